package d1sql

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Command completed successfully
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration
	ExitConnectionError = 11 // Remote service unreachable or unavailable
	ExitQueryFailed     = 12 // The remote service rejected the query
	ExitTxUnsupported   = 13 // Transaction control was requested
)

const (
	// DefaultAPIURL is the base URL of the Cloudflare v4 API.
	DefaultAPIURL = "https://api.cloudflare.com/client/v4"

	// DefaultRetries is the number of transport-level retries for read-only statements.
	DefaultRetries = 2

	// DefaultRetryDelay is the base delay of the exponential backoff.
	DefaultRetryDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay caps a single backoff sleep.
	DefaultRetryMaxDelay = 30 * time.Second

	// DefaultMaxJitter is the upper bound of the additive random jitter.
	DefaultMaxJitter = 100 * time.Millisecond

	// DefaultTimeout bounds a whole HTTP request, including reading the body.
	DefaultTimeout = 10 * time.Second

	// DefaultConnectTimeout bounds TCP connection establishment.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultSequence is the sequence name used by LastInsertID when none is given.
	DefaultSequence = "id"

	// DriverName is reported through AttrDriverName. Hosts use it to pick the SQLite dialect.
	DriverName = "sqlite"

	// ServerVersion is reported through AttrServerVersion and AttrClientVersion.
	ServerVersion = "D1"

	// MaxErrorPreviewLength is the maximum number of SQL characters shown in log lines.
	MaxErrorPreviewLength = 200
)
