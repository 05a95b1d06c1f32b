package d1

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/d1sql/pkg/d1sql"
)

// Connector executes SQL against one D1 database.
type Connector struct {
	sender  Sender
	retries int
	logger  d1sql.QueryLogger
	now     func() time.Time
}

// NewConnector creates a Connector sending through sender. retries is the budget
// granted to read-only statements.
func NewConnector(sender Sender, retries int) *Connector {
	return &Connector{
		sender:  sender,
		retries: retries,
		now:     time.Now,
	}
}

// SetQueryLogger sets a logger for this connector only. It runs before the global one.
func (c *Connector) SetQueryLogger(l d1sql.QueryLogger) {
	c.logger = l
}

// RetryBudget returns the number of retries sql would get when retry is allowed.
func (c *Connector) RetryBudget(sql string, retry bool) int {
	if retry && IsReadOnly(sql) {
		return c.retries
	}
	return 0
}

// Query sends sql with params. The returned error is non-nil only when no response
// was obtained; application failures are reported through the response.
func (c *Connector) Query(ctx context.Context, sql string, params []any, retry bool) (*QueryResponse, error) {
	req := QueryRequest{
		SQL:       sql,
		Params:    params,
		RequestID: uuid.NewString(),
	}

	start := c.now()
	raw, err := c.sender.Send(ctx, req, c.RetryBudget(sql, retry))
	elapsed := c.now().Sub(start)

	ev := d1sql.QueryEvent{
		RequestID: req.RequestID,
		SQL:       sql,
		Params:    append([]any(nil), params...),
		Elapsed:   elapsed,
	}

	if err != nil {
		ev.Error = &d1sql.QueryEventError{Message: err.Error()}
		c.report(ev)
		return nil, err
	}

	resp := decodeResponse(raw)
	ev.Success = !resp.Failed()
	if !ev.Success {
		first := resp.FirstError()
		ev.Error = &d1sql.QueryEventError{
			Code:    string(first.Code),
			Message: first.Message,
			Status:  resp.StatusCode,
		}
	}
	c.report(ev)

	return resp, nil
}

func (c *Connector) report(ev d1sql.QueryEvent) {
	notify(c.logger, ev)
	notify(loadGlobalQueryLogger(), ev)
}
