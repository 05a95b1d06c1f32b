package conn

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vvka-141/d1sql/internal/d1"
	"github.com/vvka-141/d1sql/internal/retry"
	"github.com/vvka-141/d1sql/internal/sqlstate"
	"github.com/vvka-141/d1sql/pkg/d1sql"
)

// Querier executes one SQL request. *d1.Connector implements it.
type Querier interface {
	Query(ctx context.Context, sql string, params []any, retry bool) (*d1.QueryResponse, error)
}

// Connection implements d1sql.Conn.
type Connection struct {
	querier Querier
	tx      txPolicy

	errMode         d1sql.ErrMode
	emulatePrepares bool
	fetchMode       d1sql.FetchMode
	attributes      map[d1sql.Attribute]any

	lastInsertIDs map[string]string
	errInfo       d1sql.ErrorInfo
	retry         bool
	closed        bool
}

var _ d1sql.Conn = (*Connection)(nil)

// Option configures a Connection.
type Option func(*Connection)

// WithTxPolicy selects the transaction policy. It cannot be changed afterwards.
func WithTxPolicy(p d1sql.TxPolicy) Option {
	return func(c *Connection) {
		c.tx = newTxPolicy(p)
	}
}

// WithErrMode sets the initial error mode.
func WithErrMode(m d1sql.ErrMode) Option {
	return func(c *Connection) {
		c.errMode = m
	}
}

// New creates a Connection sending through q.
func New(q Querier, opts ...Option) *Connection {
	c := &Connection{
		querier:         q,
		tx:              rejectPolicy{},
		errMode:         d1sql.ErrModeException,
		emulatePrepares: true,
		fetchMode:       d1sql.FetchAssoc,
		attributes:      make(map[d1sql.Attribute]any),
		lastInsertIDs:   make(map[string]string),
		errInfo:         d1sql.SuccessInfo(),
		retry:           true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Connection) Prepare(query string) (d1sql.Stmt, error) {
	return c.prepare(query)
}

// PrepareStatement is Prepare returning the concrete statement.
func (c *Connection) PrepareStatement(query string) (*Statement, error) {
	return c.prepare(query)
}

func (c *Connection) prepare(query string) (*Statement, error) {
	if c.closed {
		return nil, d1sql.ErrClosed
	}
	return newStatement(c, query), nil
}

// Query prepares and executes query. In silent mode a failed query returns the
// statement with its error record set and a nil error.
func (c *Connection) Query(ctx context.Context, query string, mode d1sql.FetchMode) (d1sql.Stmt, error) {
	stmt, err := c.prepare(query)
	if err != nil {
		return nil, err
	}
	if mode != d1sql.FetchDefault {
		if err := stmt.SetFetchMode(mode); err != nil {
			return nil, err
		}
	}

	_, err = stmt.Execute(ctx)
	c.errInfo = stmt.ErrorInfo()
	if err != nil {
		return nil, err
	}
	return stmt, nil
}

func (c *Connection) Exec(ctx context.Context, query string) (int64, error) {
	if c.closed {
		return -1, d1sql.ErrClosed
	}

	resp, err := c.send(ctx, query, nil)
	if err != nil {
		c.errInfo = err.Info()
		if c.errMode == d1sql.ErrModeSilent {
			return -1, nil
		}
		return -1, err
	}

	c.errInfo = d1sql.SuccessInfo()
	c.recordLastInsertID(resp)
	return resp.Changes(), nil
}

// send runs a query and turns transport and application failures into *d1sql.Error.
func (c *Connection) send(ctx context.Context, query string, params []any) (*d1.QueryResponse, *d1sql.Error) {
	resp, err := c.querier.Query(ctx, query, params, c.retry)
	if err != nil {
		return nil, sqlstate.ConnectionError(err)
	}
	if resp.Failed() {
		return nil, responseError(resp)
	}
	return resp, nil
}

// responseError classifies a failed response. A retryable status without any
// reported error means the service never got to the query.
func responseError(resp *d1.QueryResponse) *d1sql.Error {
	first := resp.FirstError()
	e := sqlstate.NewError(string(first.Code), first.Message, nil)
	if len(resp.Errors) == 0 && retry.IsRetryableStatus(resp.StatusCode) {
		e.SQLState = d1sql.StateConnectionFailure
	}
	return e
}

func (c *Connection) recordLastInsertID(resp *d1.QueryResponse) {
	if id, ok := resp.LastInsertID(); ok {
		c.lastInsertIDs[d1sql.DefaultSequence] = strconv.FormatInt(id, 10)
	}
}

func (c *Connection) Quote(value any) string {
	return quote(value)
}

func (c *Connection) LastInsertID(name string) (string, bool) {
	if name == "" {
		name = d1sql.DefaultSequence
	}
	id, ok := c.lastInsertIDs[name]
	return id, ok
}

func (c *Connection) GetAttribute(attr d1sql.Attribute) any {
	switch attr {
	case d1sql.AttrDriverName:
		return d1sql.DriverName
	case d1sql.AttrServerVersion, d1sql.AttrClientVersion:
		return d1sql.ServerVersion
	case d1sql.AttrErrMode:
		return c.errMode
	case d1sql.AttrEmulatePrepares:
		return c.emulatePrepares
	case d1sql.AttrDefaultFetchMode:
		return c.fetchMode
	default:
		return c.attributes[attr]
	}
}

// SetAttribute sets a connection attribute. The driver identity attributes are fixed;
// setting them is accepted and has no effect.
func (c *Connection) SetAttribute(attr d1sql.Attribute, value any) error {
	switch attr {
	case d1sql.AttrDriverName, d1sql.AttrServerVersion, d1sql.AttrClientVersion:
		return nil
	case d1sql.AttrErrMode:
		m, ok := value.(d1sql.ErrMode)
		if !ok || (m != d1sql.ErrModeException && m != d1sql.ErrModeSilent) {
			return fmt.Errorf("invalid error mode %v: %w", value, d1sql.ErrInvalidParameter)
		}
		c.errMode = m
	case d1sql.AttrEmulatePrepares:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("emulate prepares must be a bool, got %T: %w", value, d1sql.ErrInvalidParameter)
		}
		c.emulatePrepares = b
	case d1sql.AttrDefaultFetchMode:
		m, ok := value.(d1sql.FetchMode)
		if !ok || !validFetchMode(m) {
			return fmt.Errorf("%v: %w", value, d1sql.ErrUnsupportedFetchMode)
		}
		c.fetchMode = m
	default:
		c.attributes[attr] = value
	}
	return nil
}

func (c *Connection) BeginTransaction() error {
	return c.tx.begin()
}

func (c *Connection) Commit() error {
	return c.tx.commit()
}

func (c *Connection) Rollback() error {
	return c.tx.rollback()
}

func (c *Connection) InTransaction() bool {
	return c.tx.active()
}

func (c *Connection) ErrorCode() d1sql.SQLState {
	return c.errInfo.SQLState
}

func (c *Connection) ErrorInfo() d1sql.ErrorInfo {
	return c.errInfo
}

func (c *Connection) SetRetry(enabled bool) {
	c.retry = enabled
}

// Close marks the connection closed. There is no session to release.
func (c *Connection) Close() error {
	c.closed = true
	return nil
}
