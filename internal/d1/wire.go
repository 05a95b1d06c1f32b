package d1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vvka-141/d1sql/pkg/d1sql"
)

// QueryRequest is the body of POST /accounts/{account}/d1/database/{database}/query.
type QueryRequest struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`

	// RequestID is sent as X-Request-ID. The transport generates one when empty.
	RequestID string `json:"-"`
}

// MarshalJSON always encodes params as an array, never null.
func (r QueryRequest) MarshalJSON() ([]byte, error) {
	params := r.Params
	if params == nil {
		params = []any{}
	}
	return json.Marshal(struct {
		SQL    string `json:"sql"`
		Params []any  `json:"params"`
	}{r.SQL, params})
}

// QueryResponse is the decoded response envelope.
type QueryResponse struct {
	Success bool          `json:"success"`
	Result  []ResultBatch `json:"result"`
	Errors  []WireError   `json:"errors"`

	// StatusCode is the HTTP status of the final attempt.
	StatusCode int `json:"-"`
}

// ResultBatch is one statement's result. A request carrying several statements
// returns one batch per statement.
type ResultBatch struct {
	Results []*d1sql.Record `json:"results"`
	Success bool            `json:"success"`
	Meta    BatchMeta       `json:"meta"`
}

// BatchMeta carries the counters D1 reports for a batch.
type BatchMeta struct {
	Changes     int64   `json:"changes"`
	LastRowID   *int64  `json:"last_row_id"`
	RowsRead    int64   `json:"rows_read"`
	RowsWritten int64   `json:"rows_written"`
	Duration    float64 `json:"duration"`
}

// WireError is one entry of the errors array.
type WireError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Code is a vendor error code. D1 sends numbers; proxies sometimes send strings.
type Code string

func (c *Code) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Code(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("error code must be a number or string: %w", err)
	}
	*c = Code(n.String())
	return nil
}

// Failed reports whether the query did not succeed, either at the HTTP or the
// application level.
func (r *QueryResponse) Failed() bool {
	return r.StatusCode >= http.StatusBadRequest || !r.Success
}

// FirstError returns the first reported error, or a generic one when the
// response failed without saying why.
func (r *QueryResponse) FirstError() WireError {
	if len(r.Errors) > 0 {
		return r.Errors[0]
	}
	if r.StatusCode >= http.StatusBadRequest {
		return WireError{Message: statusText(r.StatusCode)}
	}
	return WireError{Message: "Unknown error"}
}

// Rows returns the rows of every batch, concatenated in batch order.
func (r *QueryResponse) Rows() []*d1sql.Record {
	var rows []*d1sql.Record
	for _, b := range r.Result {
		rows = append(rows, b.Results...)
	}
	return rows
}

// Changes returns the sum of changed rows over all batches.
func (r *QueryResponse) Changes() int64 {
	var n int64
	for _, b := range r.Result {
		n += b.Meta.Changes
	}
	return n
}

// LastInsertID returns the last non-null, non-zero row id over all batches.
func (r *QueryResponse) LastInsertID() (int64, bool) {
	var (
		id    int64
		found bool
	)
	for _, b := range r.Result {
		if b.Meta.LastRowID != nil && *b.Meta.LastRowID != 0 {
			id = *b.Meta.LastRowID
			found = true
		}
	}
	return id, found
}

// decodeResponse builds a QueryResponse from a raw HTTP response. A body that is not
// a D1 envelope becomes a failed response carrying "<status> <text>".
func decodeResponse(resp *Response) *QueryResponse {
	out := &QueryResponse{}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		out = &QueryResponse{}
		if resp.StatusCode < http.StatusBadRequest {
			out.Errors = []WireError{{Message: fmt.Sprintf("malformed response body: %v", err)}}
		}
	}
	out.StatusCode = resp.StatusCode
	if resp.StatusCode >= http.StatusBadRequest {
		out.Success = false
	}
	return out
}

func statusText(code int) string {
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}
