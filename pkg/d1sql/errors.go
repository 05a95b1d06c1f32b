package d1sql

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	_, err := conn.Exec(ctx, "DELETE FROM users")
//	if errors.Is(err, d1sql.ErrConnectionFailed) {
//	    // The write may or may not have been applied.
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrTransactionsUnsupported is returned by the rejecting transaction policy.
	ErrTransactionsUnsupported = errors.New("D1 does not support transactions over stateless HTTP")

	// ErrNoActiveTransaction is returned by the counting policy when commit or rollback
	// is called at depth zero.
	ErrNoActiveTransaction = errors.New("no active transaction")

	// ErrUnsupportedFetchMode indicates an unknown fetch mode.
	ErrUnsupportedFetchMode = errors.New("unsupported fetch mode")

	// ErrInvalidParameter indicates a binding key or value that cannot be sent.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrConnectionFailed indicates the remote service could not be reached.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrQueryFailed indicates the remote service answered but rejected the query.
	ErrQueryFailed = errors.New("query failed")

	// ErrClosed indicates use of a closed connection.
	ErrClosed = errors.New("connection closed")
)

// Error is the structured failure produced for a query the remote service rejected
// or could not be reached for.
type Error struct {
	// SQLState is the portable taxonomy code derived from the vendor message.
	SQLState SQLState

	// VendorCode is the remote service's own error code, opaque to the driver.
	VendorCode string

	// Message is the vendor message, unchanged.
	Message string

	// Err is the underlying transport error, if any.
	Err error
}

func (e *Error) Error() string {
	if e.VendorCode != "" {
		return fmt.Sprintf("SQLSTATE[%s]: %s (code %s)", e.SQLState, e.Message, e.VendorCode)
	}
	return fmt.Sprintf("SQLSTATE[%s]: %s", e.SQLState, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports ErrConnectionFailed for connection-class states and ErrQueryFailed for all others.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrConnectionFailed:
		return e.SQLState.Class() == ClassConnectionFailure
	case ErrQueryFailed:
		return e.SQLState.Class() != ClassConnectionFailure
	}
	return false
}

// Info returns the error as an ErrorInfo record.
func (e *Error) Info() ErrorInfo {
	return ErrorInfo{SQLState: e.SQLState, VendorCode: e.VendorCode, Message: e.Message}
}

// ErrorInfo is the error record retained by connections and statements.
// After a successful call it holds StateSuccess and empty fields.
type ErrorInfo struct {
	SQLState   SQLState
	VendorCode string
	Message    string
}

// SuccessInfo is the record held after a successful call.
func SuccessInfo() ErrorInfo {
	return ErrorInfo{SQLState: StateSuccess}
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrTransactionsUnsupported):
		return ExitTxUnsupported
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrQueryFailed):
		return ExitQueryFailed
	}

	errStr := err.Error()

	// cobra reports usage problems as plain errors
	usagePatterns := []string{
		"unknown flag",
		"unknown shorthand flag",
		"unknown command",
		"accepts ",
		"requires at least",
		"required flag",
		"invalid argument",
		"missing required argument",
	}
	for _, p := range usagePatterns {
		if strings.Contains(errStr, p) {
			return ExitUsageError
		}
	}

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
