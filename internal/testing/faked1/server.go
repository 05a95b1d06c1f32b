// Package faked1 is an in-process stand-in for the Cloudflare D1 query endpoint.
//
// Queries run against an in-memory SQLite database and are answered with D1-shaped
// JSON envelopes. Tests can script replies (error statuses, dropped connections,
// arbitrary bodies) and inspect every request received.
package faked1

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vvka-141/d1sql/pkg/d1sql"
)

const (
	DefaultAccountID  = "test-account"
	DefaultDatabaseID = "test-database"
	DefaultToken      = "test-token"

	// sqliteErrorCode is the code D1 reports for errors raised by SQLite itself.
	sqliteErrorCode = 7500
)

var (
	pathPattern  = regexp.MustCompile(`^/accounts/([^/]+)/d1/database/([^/]+)/query$`)
	rowsPattern  = regexp.MustCompile(`(?i)^\s*(SELECT|WITH|PRAGMA|EXPLAIN)\b|\bRETURNING\b`)
	insertPrefix = regexp.MustCompile(`(?i)^\s*(INSERT|REPLACE)\b`)
)

// Reply is a scripted answer served instead of running the query.
type Reply struct {
	Status int
	Body   string

	// Drop closes the connection without writing a response.
	Drop bool
}

// Request is a query the server received.
type Request struct {
	SQL       string
	Params    []any
	RequestID string
	Token     string
}

// Server is a fake D1 endpoint.
type Server struct {
	srv *httptest.Server
	db  *sql.DB

	accountID  string
	databaseID string
	token      string

	mu       sync.Mutex
	replies  []Reply
	requests []Request
}

// Option configures a Server.
type Option func(*Server)

// WithToken sets the bearer token the server accepts.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

// WithIDs sets the account and database identifiers the server answers for.
func WithIDs(accountID, databaseID string) Option {
	return func(s *Server) {
		s.accountID = accountID
		s.databaseID = databaseID
	}
}

// New starts a Server. It is closed when the test ends.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	// A :memory: database lives and dies with its connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	s := &Server{
		db:         db,
		accountID:  DefaultAccountID,
		databaseID: DefaultDatabaseID,
		token:      DefaultToken,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(func() {
		s.srv.Close()
		db.Close()
	})
	return s
}

// URL returns the API base URL to configure clients with.
func (s *Server) URL() string {
	return s.srv.URL
}

// Config returns a client configuration pointing at the server with fast retries.
func (s *Server) Config() d1sql.Config {
	cfg := d1sql.DefaultConfig()
	cfg.APIURL = s.srv.URL
	cfg.AccountID = s.accountID
	cfg.DatabaseID = s.databaseID
	cfg.Token = s.token
	cfg.RetryDelay = time.Millisecond
	return cfg
}

// Enqueue schedules replies served, in order, to the next requests.
func (s *Server) Enqueue(replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, replies...)
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Exec runs statements directly against the backing database.
func (s *Server) Exec(t testing.TB, query string, args ...any) {
	t.Helper()
	if _, err := s.db.Exec(query, args...); err != nil {
		t.Fatalf("seed %q: %v", query, err)
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeEnvelope(w, http.StatusMethodNotAllowed, failure(10000, "method not allowed"))
		return
	}

	m := pathPattern.FindStringSubmatch(r.URL.Path)
	if m == nil || m[1] != s.accountID || m[2] != s.databaseID {
		writeEnvelope(w, http.StatusNotFound, failure(7404, "database not found"))
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if s.token != "" && token != s.token {
		writeEnvelope(w, http.StatusUnauthorized, failure(10000, "Authentication error"))
		return
	}

	var body struct {
		SQL    string `json:"sql"`
		Params []any  `json:"params"`
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		writeEnvelope(w, http.StatusBadRequest, failure(7400, "invalid request body: "+err.Error()))
		return
	}
	params := make([]any, len(body.Params))
	for i, p := range body.Params {
		params[i] = fromJSON(p)
	}

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		SQL:       body.SQL,
		Params:    params,
		RequestID: r.Header.Get("X-Request-ID"),
		Token:     token,
	})
	var reply *Reply
	if len(s.replies) > 0 {
		reply = &s.replies[0]
		s.replies = s.replies[1:]
	}
	s.mu.Unlock()

	if reply != nil {
		serveReply(w, *reply)
		return
	}

	status, envelope := s.run(body.SQL, params)
	writeEnvelope(w, status, envelope)
}

func serveReply(w http.ResponseWriter, reply Reply) {
	if reply.Drop {
		hj, ok := w.(http.Hijacker)
		if !ok {
			panic("faked1: response writer cannot be hijacked")
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}
		return
	}
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	io.WriteString(w, reply.Body)
}

// run executes one statement and builds the D1 envelope for it.
func (s *Server) run(query string, params []any) (int, []byte) {
	if rowsPattern.MatchString(query) {
		rows, err := s.db.Query(query, params...)
		if err != nil {
			return http.StatusBadRequest, failure(sqliteErrorCode, err.Error())
		}
		defer rows.Close()

		results, err := encodeRows(rows)
		if err != nil {
			return http.StatusBadRequest, failure(sqliteErrorCode, err.Error())
		}
		return http.StatusOK, success(results, 0, nil)
	}

	res, err := s.db.Exec(query, params...)
	if err != nil {
		return http.StatusBadRequest, failure(sqliteErrorCode, err.Error())
	}
	changes, _ := res.RowsAffected()

	var lastRowID *int64
	if insertPrefix.MatchString(query) {
		if id, err := res.LastInsertId(); err == nil && id != 0 {
			lastRowID = &id
		}
	}
	return http.StatusOK, success([]byte("[]"), changes, lastRowID)
}

// encodeRows writes rows as a JSON array of objects, keeping column order.
func encodeRows(rows *sql.Rows) ([]byte, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	first := true
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		if !first {
			buf.WriteByte(',')
		}
		first = false

		buf.WriteByte('{')
		for i, c := range cols {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(c)
			val, err := json.Marshal(toJSON(values[i]))
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func toJSON(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format("2006-01-02 15:04:05")
	default:
		return v
	}
}

func fromJSON(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	f, _ := n.Float64()
	return f
}

func success(results []byte, changes int64, lastRowID *int64) []byte {
	meta, _ := json.Marshal(map[string]any{
		"served_by":    "faked1",
		"duration":     0.1,
		"changes":      changes,
		"last_row_id":  lastRowID,
		"rows_read":    0,
		"rows_written": changes,
	})
	return []byte(fmt.Sprintf(
		`{"result":[{"results":%s,"success":true,"meta":%s}],"errors":[],"messages":[],"success":true}`,
		results, meta))
}

func failure(code int, message string) []byte {
	body, _ := json.Marshal(map[string]any{
		"result":   nil,
		"success":  false,
		"errors":   []map[string]any{{"code": code, "message": message}},
		"messages": []any{},
	})
	return body
}

// Envelope renders a successful D1 response with one batch per element of batches.
// Each batch is a JSON array of row objects, and changes and lastRowIDs line up with it.
func Envelope(batches []string, changes []int64, lastRowIDs []*int64) string {
	parts := make([]string, len(batches))
	for i, b := range batches {
		meta, _ := json.Marshal(map[string]any{
			"changes":     changes[i],
			"last_row_id": lastRowIDs[i],
		})
		parts[i] = fmt.Sprintf(`{"results":%s,"success":true,"meta":%s}`, b, meta)
	}
	return fmt.Sprintf(`{"result":[%s],"errors":[],"messages":[],"success":true}`, strings.Join(parts, ","))
}

// ErrorBody renders a failed D1 response.
func ErrorBody(code int, message string) string {
	return string(failure(code, message))
}

func writeEnvelope(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
