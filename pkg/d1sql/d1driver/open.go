package d1driver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vvka-141/d1sql/internal/conn"
	"github.com/vvka-141/d1sql/internal/d1"
	"github.com/vvka-141/d1sql/pkg/d1sql"
)

// TokenProvider supplies the bearer token for each request.
type TokenProvider = d1.TokenProvider

// EnvToken returns a TokenProvider that reads the named environment variable
// on every request, so a rotated token is picked up without reconnecting.
func EnvToken(name string) TokenProvider {
	return d1.NewEnvTokenProvider(name)
}

type options struct {
	logger      d1sql.Logger
	httpClient  *http.Client
	tokens      TokenProvider
	queryLogger d1sql.QueryLogger
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures Open and NewConnector.
type Option func(*options)

// WithLogger routes retry diagnostics to l.
func WithLogger(l d1sql.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithHTTPClient replaces the HTTP client built from the configured timeouts.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithTokenProvider replaces the static Config.Token.
func WithTokenProvider(p TokenProvider) Option {
	return func(o *options) {
		o.tokens = p
	}
}

// WithQueryLogger reports every query sent through the returned connections to l,
// in addition to the process-wide logger set by SetQueryLogger.
func WithQueryLogger(l d1sql.QueryLogger) Option {
	return func(o *options) {
		o.queryLogger = l
	}
}

// WithSleep replaces the wait between retries. Tests use it to skip backoff.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) {
		o.sleep = sleep
	}
}

// Open validates cfg and returns a connection to the database it names.
// No request is made until the first statement executes.
func Open(cfg d1sql.Config, opts ...Option) (d1sql.Conn, error) {
	querier, err := newQuerier(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return newConnection(querier, cfg, cfg.ErrMode), nil
}

// OpenDSN parses dsn and opens a connection with it.
func OpenDSN(dsn string, opts ...Option) (d1sql.Conn, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return Open(cfg, opts...)
}

func newConnection(q conn.Querier, cfg d1sql.Config, mode d1sql.ErrMode) *conn.Connection {
	return conn.New(q,
		conn.WithTxPolicy(cfg.TxPolicy),
		conn.WithErrMode(mode),
	)
}

// newQuerier builds the transport and connector shared by every connection
// opened from cfg. Both are safe for concurrent use.
func newQuerier(cfg d1sql.Config, opts ...Option) (*d1.Connector, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	check := cfg
	if o.tokens != nil && check.Token == "" {
		check.Token = o.tokens.String()
	}
	if err := check.Validate(); err != nil {
		return nil, fmt.Errorf("invalid D1 configuration: %w", err)
	}

	tokens := o.tokens
	if tokens == nil {
		tokens = d1.NewStaticTokenProvider(cfg.Token)
	}

	var transportOpts []d1.TransportOption
	if o.logger != nil {
		transportOpts = append(transportOpts, d1.WithLogger(o.logger))
	}
	if o.httpClient != nil {
		transportOpts = append(transportOpts, d1.WithHTTPClient(o.httpClient))
	}
	if o.sleep != nil {
		transportOpts = append(transportOpts, d1.WithSleep(o.sleep))
	}

	connector := d1.NewConnector(d1.NewTransport(cfg, tokens, transportOpts...), cfg.Retries)
	if o.queryLogger != nil {
		connector.SetQueryLogger(o.queryLogger)
	}
	return connector, nil
}

// SetQueryLogger installs the process-wide query logger. It receives an event
// for every query sent by any connection. The last call wins; nil removes it.
func SetQueryLogger(l d1sql.QueryLogger) {
	d1.SetGlobalQueryLogger(l)
}

// ResetQueryLogger removes the process-wide query logger.
func ResetQueryLogger() {
	d1.ResetGlobalQueryLogger()
}
