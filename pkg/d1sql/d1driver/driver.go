package d1driver

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vvka-141/d1sql/internal/conn"
	"github.com/vvka-141/d1sql/internal/d1"
	"github.com/vvka-141/d1sql/pkg/d1sql"
)

// DriverName is the name registered with database/sql.
const DriverName = "d1"

func init() {
	sql.Register(DriverName, &Driver{})
}

// Driver implements driver.Driver and driver.DriverContext.
type Driver struct{}

var (
	_ driver.Driver        = (*Driver)(nil)
	_ driver.DriverContext = (*Driver)(nil)
)

// Open parses dsn and returns a new connection.
func (d *Driver) Open(dsn string) (driver.Conn, error) {
	c, err := d.OpenConnector(dsn)
	if err != nil {
		return nil, err
	}
	return c.Connect(context.Background())
}

// OpenConnector parses dsn once so that pooled connections share one transport.
func (d *Driver) OpenConnector(dsn string) (driver.Connector, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return NewConnector(cfg)
}

// Connector is a driver.Connector for use with sql.OpenDB.
type Connector struct {
	cfg     d1sql.Config
	querier *d1.Connector
}

var _ driver.Connector = (*Connector)(nil)

// NewConnector validates cfg and returns a connector whose connections share
// one HTTP transport.
//
//	db := sql.OpenDB(connector)
func NewConnector(cfg d1sql.Config, opts ...Option) (*Connector, error) {
	querier, err := newQuerier(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Connector{cfg: cfg, querier: querier}, nil
}

// Connect returns a new connection. It makes no request.
func (c *Connector) Connect(ctx context.Context) (driver.Conn, error) {
	// database/sql reports failures through errors only.
	return &sqlConn{conn: newConnection(c.querier, c.cfg, d1sql.ErrModeException)}, nil
}

func (c *Connector) Driver() driver.Driver {
	return &Driver{}
}

type sqlConn struct {
	conn *conn.Connection
}

var (
	_ driver.Conn               = (*sqlConn)(nil)
	_ driver.ConnPrepareContext = (*sqlConn)(nil)
	_ driver.ConnBeginTx        = (*sqlConn)(nil)
	_ driver.ExecerContext      = (*sqlConn)(nil)
	_ driver.QueryerContext     = (*sqlConn)(nil)
	_ driver.Pinger             = (*sqlConn)(nil)
	_ driver.NamedValueChecker  = (*sqlConn)(nil)
)

func (c *sqlConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *sqlConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	stmt, err := c.conn.PrepareStatement(query)
	if err != nil {
		return nil, translateErr(err)
	}
	return &sqlStmt{stmt: stmt}, nil
}

func (c *sqlConn) Close() error {
	return c.conn.Close()
}

func (c *sqlConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// BeginTx defers to the connection's transaction policy. Under the default
// policy every call fails with d1sql.ErrTransactionsUnsupported.
func (c *sqlConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if sql.IsolationLevel(opts.Isolation) != sql.LevelDefault {
		return nil, fmt.Errorf("isolation level %s: %w",
			sql.IsolationLevel(opts.Isolation), d1sql.ErrTransactionsUnsupported)
	}
	if err := c.conn.BeginTransaction(); err != nil {
		return nil, err
	}
	return &sqlTx{conn: c.conn}, nil
}

func (c *sqlConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	stmt, err := c.conn.PrepareStatement(query)
	if err != nil {
		return nil, translateErr(err)
	}
	return execStmt(ctx, stmt, args)
}

func (c *sqlConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	stmt, err := c.conn.PrepareStatement(query)
	if err != nil {
		return nil, translateErr(err)
	}
	return queryStmt(ctx, stmt, args)
}

func (c *sqlConn) Ping(ctx context.Context) error {
	stmt, err := c.conn.PrepareStatement("SELECT 1")
	if err != nil {
		return translateErr(err)
	}
	if _, err := stmt.Execute(ctx); err != nil {
		return translateErr(err)
	}
	return nil
}

// CheckNamedValue narrows arguments to the scalars D1 accepts: nil, int64,
// float64 and string.
func (c *sqlConn) CheckNamedValue(nv *driver.NamedValue) error {
	v, err := conn.NormalizeValue(nv.Value)
	if err != nil {
		return fmt.Errorf("argument %s: %w", argName(*nv), err)
	}
	nv.Value = v
	return nil
}

type sqlStmt struct {
	stmt *conn.Statement
}

var (
	_ driver.Stmt             = (*sqlStmt)(nil)
	_ driver.StmtExecContext  = (*sqlStmt)(nil)
	_ driver.StmtQueryContext = (*sqlStmt)(nil)
)

func (s *sqlStmt) Close() error {
	return nil
}

// NumInput returns -1; placeholders are counted by D1, not here.
func (s *sqlStmt) NumInput() int {
	return -1
}

func (s *sqlStmt) Exec(args []driver.Value) (driver.Result, error) {
	return execStmt(context.Background(), s.stmt, namedValues(args))
}

func (s *sqlStmt) Query(args []driver.Value) (driver.Rows, error) {
	return queryStmt(context.Background(), s.stmt, namedValues(args))
}

func (s *sqlStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return execStmt(ctx, s.stmt, args)
}

func (s *sqlStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return queryStmt(ctx, s.stmt, args)
}

func namedValues(args []driver.Value) []driver.NamedValue {
	out := make([]driver.NamedValue, len(args))
	for i, v := range args {
		out[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return out
}

func argName(nv driver.NamedValue) string {
	if nv.Name != "" {
		return ":" + nv.Name
	}
	return fmt.Sprintf("%d", nv.Ordinal)
}

// bindArgs replaces the statement's bindings with args, in argument order.
func bindArgs(stmt *conn.Statement, args []driver.NamedValue) error {
	stmt.ClearBindings()
	for _, a := range args {
		var err error
		if a.Name != "" {
			err = stmt.Bind(a.Name, a.Value)
		} else {
			err = stmt.Bind(a.Ordinal, a.Value)
		}
		if err != nil {
			return fmt.Errorf("argument %s: %w", argName(a), err)
		}
	}
	return nil
}

func execute(ctx context.Context, stmt *conn.Statement, args []driver.NamedValue) error {
	if err := bindArgs(stmt, args); err != nil {
		return err
	}
	if _, err := stmt.Execute(ctx); err != nil {
		return translateErr(err)
	}
	return nil
}

func execStmt(ctx context.Context, stmt *conn.Statement, args []driver.NamedValue) (driver.Result, error) {
	if err := execute(ctx, stmt, args); err != nil {
		return nil, err
	}
	return sqlResult{lastInsertID: stmt.LastInsertID(), rowsAffected: stmt.RowCount()}, nil
}

func queryStmt(ctx context.Context, stmt *conn.Statement, args []driver.NamedValue) (driver.Rows, error) {
	if err := execute(ctx, stmt, args); err != nil {
		return nil, err
	}
	return &sqlRows{stmt: stmt, columns: stmt.Columns()}, nil
}

// translateErr maps a closed connection to driver.ErrBadConn so database/sql
// discards it from the pool.
func translateErr(err error) error {
	if errors.Is(err, d1sql.ErrClosed) {
		return driver.ErrBadConn
	}
	return err
}

type sqlResult struct {
	lastInsertID int64
	rowsAffected int64
}

func (r sqlResult) LastInsertId() (int64, error) {
	return r.lastInsertID, nil
}

func (r sqlResult) RowsAffected() (int64, error) {
	return r.rowsAffected, nil
}

// sqlRows walks the buffered result of one execution.
type sqlRows struct {
	stmt    *conn.Statement
	columns []string
}

func (r *sqlRows) Columns() []string {
	return r.columns
}

func (r *sqlRows) Close() error {
	return nil
}

// Next copies the next row into dest by column name, so rows from later
// batches with a different shape leave missing columns NULL.
func (r *sqlRows) Next(dest []driver.Value) error {
	row, ok, err := r.stmt.Fetch(d1sql.FetchObj, d1sql.OrientNext, 0)
	if err != nil {
		return err
	}
	if !ok {
		return io.EOF
	}
	rec := row.(*d1sql.Record)
	for i, name := range r.columns {
		if i >= len(dest) {
			break
		}
		v, _ := rec.Get(name)
		dest[i] = driverValue(v)
	}
	return nil
}

// driverValue converts a decoded JSON value into a driver.Value.
func driverValue(v any) driver.Value {
	switch x := v.(type) {
	case nil, int64, float64, bool, string:
		return x
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

type sqlTx struct {
	conn *conn.Connection
}

func (t *sqlTx) Commit() error {
	return t.conn.Commit()
}

func (t *sqlTx) Rollback() error {
	return t.conn.Rollback()
}
