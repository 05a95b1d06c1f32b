package d1sql

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// FetchMode selects the shape of rows returned by Fetch and FetchAll.
type FetchMode int

const (
	// FetchDefault uses the statement's configured mode.
	FetchDefault FetchMode = iota
	// FetchAssoc returns map[string]any.
	FetchAssoc
	// FetchNum returns []any in column order.
	FetchNum
	// FetchObj returns *Record, an ordered object-like view.
	FetchObj
	// FetchBoth returns Both, exposing associative and positional access.
	FetchBoth
)

func (m FetchMode) String() string {
	switch m {
	case FetchDefault:
		return "default"
	case FetchAssoc:
		return "assoc"
	case FetchNum:
		return "num"
	case FetchObj:
		return "obj"
	case FetchBoth:
		return "both"
	default:
		return fmt.Sprintf("FetchMode(%d)", int(m))
	}
}

// Orientation selects how Fetch moves the cursor before reading.
type Orientation int

const (
	// OrientNext reads the row at the current position.
	OrientNext Orientation = iota
	// OrientAbs moves the cursor to offset before reading.
	OrientAbs
	// OrientRel moves the cursor by offset before reading.
	OrientRel
)

// ParamType is the declared type of a bound value.
type ParamType int

const (
	// ParamStr converts non-null values to strings. Null stays null.
	ParamStr ParamType = iota
	ParamInt
	// ParamBool is sent as 1 or 0.
	ParamBool
	ParamNull
	// ParamLOB reads io.Reader or []byte values into a string.
	ParamLOB
)

// Attribute identifies a connection attribute.
type Attribute int

const (
	AttrDriverName Attribute = iota + 1
	AttrServerVersion
	AttrClientVersion
	AttrErrMode
	// AttrEmulatePrepares is accepted for compatibility. Every statement is emulated client-side.
	AttrEmulatePrepares
	AttrDefaultFetchMode
)

// ErrMode selects how SQL failures are reported.
type ErrMode int

const (
	// ErrModeException returns a *Error from the failing call.
	ErrModeException ErrMode = iota
	// ErrModeSilent reports failure through the return value and retains the error record.
	ErrModeSilent
)

func (m ErrMode) String() string {
	if m == ErrModeSilent {
		return "silent"
	}
	return "exception"
}

// TxPolicy selects transaction behaviour for a connection. It is fixed at construction.
type TxPolicy int

const (
	// TxPolicyReject fails BeginTransaction, Commit and Rollback with ErrTransactionsUnsupported.
	TxPolicyReject TxPolicy = iota
	// TxPolicyCounter tracks nesting depth without any atomicity guarantee.
	TxPolicyCounter
)

func (p TxPolicy) String() string {
	if p == TxPolicyCounter {
		return "counter"
	}
	return "reject"
}

// ParseTxPolicy parses "reject" or "counter". The empty string means reject.
func ParseTxPolicy(s string) (TxPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return TxPolicyReject, nil
	case "counter":
		return TxPolicyCounter, nil
	default:
		return TxPolicyReject, fmt.Errorf("unknown transaction policy %q: %w", s, ErrInvalidConfig)
	}
}

// Config contains everything needed to reach one D1 database.
type Config struct {
	// AccountID is the Cloudflare account identifier (URL path segment).
	AccountID string

	// DatabaseID is the D1 database identifier (URL path segment).
	DatabaseID string

	// Token is the API token sent as a bearer credential.
	Token string

	// APIURL is the API base URL, without a trailing slash.
	APIURL string

	// Retries is the transport retry budget for read-only statements.
	Retries int

	// RetryDelay is the base delay of the exponential backoff.
	RetryDelay time.Duration

	// Timeout bounds a whole request; ConnectTimeout bounds connection establishment.
	Timeout        time.Duration
	ConnectTimeout time.Duration

	ErrMode  ErrMode
	TxPolicy TxPolicy
}

// DefaultConfig returns a Config holding the documented defaults and no credentials.
func DefaultConfig() Config {
	return Config{
		APIURL:         DefaultAPIURL,
		Retries:        DefaultRetries,
		RetryDelay:     DefaultRetryDelay,
		Timeout:        DefaultTimeout,
		ConnectTimeout: DefaultConnectTimeout,
	}
}

// Validate checks if the Config has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseID == "" {
		errs = append(errs, fmt.Errorf("a database ID is required: %w", ErrInvalidConfig))
	}

	if c.Token == "" {
		errs = append(errs, fmt.Errorf("an API token is required: %w", ErrInvalidConfig))
	}

	if c.AccountID == "" {
		errs = append(errs, fmt.Errorf("an account ID is required: %w", ErrInvalidConfig))
	}

	if c.Retries < 0 {
		errs = append(errs, fmt.Errorf("retries cannot be negative: %w", ErrInvalidConfig))
	}

	if c.RetryDelay < 0 || c.Timeout < 0 || c.ConnectTimeout < 0 {
		errs = append(errs, fmt.Errorf("durations cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// QueryEventError describes a failed query in a QueryEvent.
type QueryEventError struct {
	Code    string
	Message string
	// Status is the HTTP status, or 0 when no response was received.
	Status int
}

// QueryEvent is passed to a QueryLogger after every logical query.
type QueryEvent struct {
	RequestID string
	SQL       string
	Params    []any
	Elapsed   time.Duration
	Success   bool
	Error     *QueryEventError
}

// QueryLogger observes queries. It must not block; panics are recovered and discarded.
type QueryLogger func(QueryEvent)
