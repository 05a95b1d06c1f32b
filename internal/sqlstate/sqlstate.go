// Package sqlstate maps D1 and SQLite error messages to portable SQLSTATE codes.
//
// Matching is a case-sensitive substring search over an ordered rule table.
// The first matching rule wins; a message matching nothing maps to HY000.
package sqlstate

import (
	"strings"

	"github.com/vvka-141/d1sql/pkg/d1sql"
)

// Rule maps messages containing Pattern to State.
type Rule struct {
	Pattern string
	State   d1sql.SQLState
}

// Rules is the ordered table consulted by Classify.
var Rules = []Rule{
	// Integrity constraints
	{"UNIQUE constraint failed", d1sql.StateIntegrityConstraintViolation},
	{"FOREIGN KEY constraint failed", d1sql.StateIntegrityConstraintViolation},
	{"NOT NULL constraint failed", d1sql.StateIntegrityConstraintViolation},
	{"CHECK constraint failed", d1sql.StateIntegrityConstraintViolation},

	// Locking
	{"database is locked", d1sql.StateSerializationFailure},
	{"busy_recovery", d1sql.StateSerializationFailure},
	{"cannot commit", d1sql.StateSerializationFailure},

	// Schema
	{"no such table", d1sql.StateTableNotFound},
	{"no such column", d1sql.StateColumnNotFound},
	{"already exists", d1sql.StateTableAlreadyExists},
	{"syntax error", d1sql.StateSyntaxErrorOrAccessViolation},
	{"ambiguous column name", d1sql.StateAmbiguousColumn},

	// Data
	{"datatype mismatch", d1sql.StateDataException},
	{"division by zero", d1sql.StateDivisionByZero},
	{"string or blob too big", d1sql.StateStringDataRightTruncation},

	// Resources and permissions
	{"disk I/O error", d1sql.StateInsufficientResources},
	{"database or disk is full", d1sql.StateInsufficientResources},
	{"attempt to write a readonly database", d1sql.StateReadOnlySQLTransaction},

	// Cloudflare edge
	{"upstream service timeout", d1sql.StateConnectionFailure},
	{"service unavailable", d1sql.StateConnectionFailure},
	{"502 Bad Gateway", d1sql.StateConnectionFailure},
}

// Classify returns the SQLSTATE for a vendor message. It never fails.
func Classify(message string) d1sql.SQLState {
	for _, r := range Rules {
		if strings.Contains(message, r.Pattern) {
			return r.State
		}
	}
	return d1sql.StateGeneralError
}

// NewError builds a structured error for a vendor failure, classifying its message.
func NewError(vendorCode, message string, cause error) *d1sql.Error {
	return &d1sql.Error{
		SQLState:   Classify(message),
		VendorCode: vendorCode,
		Message:    message,
		Err:        cause,
	}
}

// ConnectionError builds the 08006 error surfaced when the transport gave up.
func ConnectionError(cause error) *d1sql.Error {
	return &d1sql.Error{
		SQLState: d1sql.StateConnectionFailure,
		Message:  cause.Error(),
		Err:      cause,
	}
}
