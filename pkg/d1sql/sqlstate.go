package d1sql

import "strings"

// SQLState is a portable five-character error code.
// See: https://en.wikipedia.org/wiki/SQLSTATE
type SQLState string

const (
	StateSuccess SQLState = "00000"

	// General
	StateGeneralError SQLState = "HY000"

	// Class 23 - Integrity Constraint Violation
	StateIntegrityConstraintViolation SQLState = "23000"

	// Class 22 - Data Exception
	StateDataException             SQLState = "22000"
	StateDivisionByZero            SQLState = "22012"
	StateStringDataRightTruncation SQLState = "22001"

	// Class 42 - Syntax Error or Access Rule Violation
	StateSyntaxErrorOrAccessViolation SQLState = "42000"
	StateTableNotFound                SQLState = "42S02"
	StateColumnNotFound               SQLState = "42S22"
	StateTableAlreadyExists           SQLState = "42S01"
	StateAmbiguousColumn              SQLState = "42702"

	// Class 40 - Transaction Rollback
	StateSerializationFailure SQLState = "40001"

	// Class 53 / 25 - Insufficient Resources, Invalid Transaction State
	StateInsufficientResources  SQLState = "53100"
	StateReadOnlySQLTransaction SQLState = "25006"

	// Class 08 - Connection Exception
	StateConnectionFailure SQLState = "08006"
)

// Class is the taxonomy bucket of an SQLState.
type Class string

const (
	ClassSuccess              Class = "success"
	ClassIntegrityViolation   Class = "integrity-violation"
	ClassSerializationFailure Class = "serialization-failure"
	ClassSchemaError          Class = "schema-error"
	ClassDataException        Class = "data-exception"
	ClassResource             Class = "resource-exhaustion"
	ClassConnectionFailure    Class = "connection-failure"
	ClassUnknown              Class = "unknown"
)

// Class returns the taxonomy bucket the state belongs to, derived from its two-character class prefix.
func (s SQLState) Class() Class {
	code := string(s)
	switch {
	case code == "":
		return ClassUnknown
	case strings.HasPrefix(code, "00"):
		return ClassSuccess
	case strings.HasPrefix(code, "23"):
		return ClassIntegrityViolation
	case strings.HasPrefix(code, "40"):
		return ClassSerializationFailure
	case strings.HasPrefix(code, "42"):
		return ClassSchemaError
	case strings.HasPrefix(code, "22"):
		return ClassDataException
	case strings.HasPrefix(code, "53"), strings.HasPrefix(code, "25"):
		return ClassResource
	case strings.HasPrefix(code, "08"):
		return ClassConnectionFailure
	default:
		return ClassUnknown
	}
}

func (s SQLState) String() string {
	return string(s)
}
