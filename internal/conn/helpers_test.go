package conn

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vvka-141/d1sql/internal/d1"
)

type call struct {
	sql    string
	params []any
	retry  bool
}

type reply struct {
	resp *d1.QueryResponse
	err  error
}

// scriptedQuerier answers queries from a queue and records every call.
type scriptedQuerier struct {
	calls   []call
	replies []reply
}

func (q *scriptedQuerier) Query(ctx context.Context, sql string, params []any, retry bool) (*d1.QueryResponse, error) {
	q.calls = append(q.calls, call{sql: sql, params: params, retry: retry})
	if len(q.replies) == 0 {
		return &d1.QueryResponse{Success: true, StatusCode: 200}, nil
	}
	r := q.replies[0]
	q.replies = q.replies[1:]
	return r.resp, r.err
}

func (q *scriptedQuerier) respond(t *testing.T, status int, body string) {
	t.Helper()
	var resp d1.QueryResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	resp.StatusCode = status
	q.replies = append(q.replies, reply{resp: &resp})
}

func (q *scriptedQuerier) fail(err error) {
	q.replies = append(q.replies, reply{err: err})
}

const usersBody = `{"success":true,"errors":[],"result":[{"results":[
	{"id":1,"name":"Ada","email":null},
	{"id":2,"name":"Grace","email":"grace@example.com"},
	{"id":3,"name":"Linus","email":null}
],"meta":{"changes":0,"last_row_id":null}}]}`
