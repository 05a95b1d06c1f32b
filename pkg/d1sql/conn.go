package d1sql

import "context"

// Conn is the synchronous client contract consumed by query builders and ORMs.
//
// A Conn is not safe for concurrent use. Callers needing concurrency should open
// independent connections.
type Conn interface {
	// Prepare returns a statement for query. Nothing is sent until Execute.
	Prepare(query string) (Stmt, error)

	// Query prepares and executes query, returning the executed statement.
	// mode sets the statement's default fetch mode unless it is FetchDefault.
	Query(ctx context.Context, query string, mode FetchMode) (Stmt, error)

	// Exec executes query once and returns the number of affected rows.
	// In ErrModeSilent a failure returns -1 and a nil error; see ErrorInfo.
	Exec(ctx context.Context, query string) (int64, error)

	// Quote returns value as an SQL literal.
	Quote(value any) string

	// LastInsertID returns the last id recorded for the sequence name
	// (DefaultSequence when empty) and whether one was recorded.
	LastInsertID(name string) (string, bool)

	GetAttribute(attr Attribute) any
	SetAttribute(attr Attribute, value any) error

	BeginTransaction() error
	Commit() error
	Rollback() error
	InTransaction() bool

	// ErrorCode and ErrorInfo describe the last call made on the connection itself.
	ErrorCode() SQLState
	ErrorInfo() ErrorInfo

	// SetRetry enables or disables transport retries for every statement on the connection.
	// Disable it for DDL and migrations.
	SetRetry(enabled bool)

	Close() error
}

// Stmt is one prepared statement and its result cursor.
type Stmt interface {
	// QueryString returns the SQL text the statement was prepared with.
	QueryString() string

	// BindValue binds value to a one-based position (int) or a name (string, with or
	// without a leading colon). Rebinding a key keeps its original position in the
	// parameter list.
	BindValue(param any, value any, typ ParamType) error

	// Execute sends the statement. Supplied params replace all bindings.
	// In ErrModeSilent a failure returns false and a nil error; see ErrorInfo.
	Execute(ctx context.Context, params ...any) (bool, error)

	SetFetchMode(mode FetchMode) error

	// Fetch returns the next row shaped per mode. ok is false when no row is left.
	Fetch(mode FetchMode, orientation Orientation, offset int) (row any, ok bool, err error)

	// FetchAll returns every remaining row and leaves the cursor exhausted.
	FetchAll(mode FetchMode) ([]any, error)

	// FetchColumn returns one column of the next row. ok is false when no row is left.
	FetchColumn(column int) (value any, ok bool)

	// RowCount returns 0 for read-only statements and the number of changed rows otherwise.
	RowCount() int64

	ColumnCount() int
	Columns() []string

	ErrorCode() SQLState
	ErrorInfo() ErrorInfo
}
