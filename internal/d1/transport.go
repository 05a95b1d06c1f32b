package d1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/d1sql/internal/logging"
	"github.com/vvka-141/d1sql/internal/retry"
	"github.com/vvka-141/d1sql/pkg/d1sql"
)

// Response is the raw outcome of the final attempt of a request.
type Response struct {
	StatusCode int
	Body       []byte
	RequestID  string

	// Attempts counts every HTTP round trip made, including the first.
	Attempts int
}

// Sender sends one logical query request with a retry budget.
type Sender interface {
	Send(ctx context.Context, req QueryRequest, maxRetries int) (*Response, error)
}

// Transport is the retrying HTTP client for one D1 database.
type Transport struct {
	client     *http.Client
	endpoint   string
	tokens     TokenProvider
	executor   *retry.Executor
	logger     d1sql.Logger
	maxRetries int
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithHTTPClient replaces the HTTP client. Timeouts from the config are not applied to it.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *Transport) {
		t.client = c
	}
}

// WithLogger sets the diagnostics logger used for retry messages.
func WithLogger(l d1sql.Logger) TransportOption {
	return func(t *Transport) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithExecutor replaces the retry executor, e.g. to inject a sleeper or jitter in tests.
func WithExecutor(e *retry.Executor) TransportOption {
	return func(t *Transport) {
		t.executor = e
	}
}

// WithSleep keeps the configured backoff but waits using sleep.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) TransportOption {
	return func(t *Transport) {
		t.executor = t.executor.WithSleep(sleep)
	}
}

// NewTransport creates a Transport for the database described by cfg.
func NewTransport(cfg d1sql.Config, tokens TokenProvider, opts ...TransportOption) *Transport {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = d1sql.DefaultAPIURL
	}

	strategy := retry.NewExponentialBackoff(cfg.Retries,
		retry.WithInitialDelay(cfg.RetryDelay),
		retry.WithMaxDelay(d1sql.DefaultRetryMaxDelay),
		retry.WithMaxJitter(d1sql.DefaultMaxJitter),
	)

	t := &Transport{
		client:     newHTTPClient(cfg.Timeout, cfg.ConnectTimeout),
		endpoint:   Endpoint(apiURL, cfg.AccountID, cfg.DatabaseID),
		tokens:     tokens,
		executor:   retry.NewExecutor(retry.NewHTTPErrorClassifier(), strategy),
		logger:     logging.NewNullLogger(),
		maxRetries: cfg.Retries,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Endpoint returns the query URL for a database.
func Endpoint(apiURL, accountID, databaseID string) string {
	return fmt.Sprintf("%s/accounts/%s/d1/database/%s/query",
		strings.TrimRight(apiURL, "/"),
		url.PathEscape(accountID),
		url.PathEscape(databaseID),
	)
}

func newHTTPClient(timeout, connectTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: connectTimeout,
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// MaxRetries returns the configured retry budget.
func (t *Transport) MaxRetries() int {
	return t.maxRetries
}

// Endpoint returns the URL requests are posted to.
func (t *Transport) Endpoint() string {
	return t.endpoint
}

// Send posts req and retries transport failures and 5xx/429 responses up to maxRetries
// times. When retries run out on a retryable status, the last response is returned
// with a nil error. A transport failure that outlives the budget is returned as is.
func (t *Transport) Send(ctx context.Context, req QueryRequest, maxRetries int) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query request: %w", err)
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	var (
		last     *Response
		attempts int
	)

	executor := t.executor.
		WithMaxRetries(maxRetries).
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			t.logger.Verbose("D1 request %s failed (%v), retry %d/%d in %v",
				requestID, err, attempt, maxRetries, delay.Round(time.Millisecond))
		})

	err = executor.Execute(ctx, func(ctx context.Context) error {
		attempts++
		resp, err := t.roundTrip(ctx, body, requestID)
		if err != nil {
			return err
		}
		resp.Attempts = attempts
		last = resp
		if retry.IsRetryableStatus(resp.StatusCode) {
			return &retry.StatusError{StatusCode: resp.StatusCode}
		}
		return nil
	})

	if err != nil {
		var statusErr *retry.StatusError
		if errors.As(err, &statusErr) && last != nil {
			return last, nil
		}
		return nil, err
	}
	return last, nil
}

func (t *Transport) roundTrip(ctx context.Context, body []byte, requestID string) (*Response, error) {
	token, err := t.tokens.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire API token from %s: %w", t.tokens, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       data,
		RequestID:  requestID,
	}, nil
}
