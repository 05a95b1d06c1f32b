package conn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/d1sql/pkg/d1sql"
)

func executedUsers(t *testing.T) *Statement {
	t.Helper()
	q := &scriptedQuerier{}
	q.respond(t, 200, usersBody)
	c := New(q)

	stmt, err := c.prepare("SELECT id, name, email FROM users")
	require.NoError(t, err)
	ok, err := stmt.Execute(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	return stmt
}

func TestStatement_RowCountIsZeroForReads(t *testing.T) {
	for _, query := range []string{"SELECT * FROM users", "  with cte as (select 1) select * from cte"} {
		q := &scriptedQuerier{}
		// D1 may report changes for a read; the cursor ignores them.
		q.respond(t, 200, `{"success":true,"result":[{"results":[{"id":1}],"meta":{"changes":4}}]}`)
		stmt, _ := New(q).prepare(query)

		_, err := stmt.Execute(context.Background())

		require.NoError(t, err)
		assert.Equal(t, int64(0), stmt.RowCount(), query)
	}
}

func TestStatement_RowCountCountsCTEMutations(t *testing.T) {
	q := &scriptedQuerier{}
	q.respond(t, 200, `{"success":true,"result":[{"results":[],"meta":{"changes":4}}]}`)
	c := New(q)
	stmt, _ := c.prepare("WITH old AS (SELECT id FROM users) DELETE FROM users WHERE id IN old")

	_, err := stmt.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(4), stmt.RowCount())
}

func TestStatement_RowCountSumsChangesOverBatches(t *testing.T) {
	q := &scriptedQuerier{}
	q.respond(t, 200, `{"success":true,"result":[
		{"results":[],"meta":{"changes":2,"last_row_id":5}},
		{"results":[],"meta":{"changes":3,"last_row_id":8}}
	]}`)
	c := New(q)
	stmt, _ := c.prepare("UPDATE users SET active = 0; DELETE FROM sessions")

	_, err := stmt.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(5), stmt.RowCount())
	id, ok := c.LastInsertID("")
	assert.True(t, ok)
	assert.Equal(t, "8", id)
}

func TestStatement_BindingOrderIsPreserved(t *testing.T) {
	q := &scriptedQuerier{}
	stmt, _ := New(q).prepare("INSERT INTO t (a, b, c) VALUES (?, ?, ?)")

	require.NoError(t, stmt.BindValue(2, "second-bound-first", d1sql.ParamStr))
	require.NoError(t, stmt.BindValue(1, "first", d1sql.ParamStr))
	require.NoError(t, stmt.BindValue(3, 3, d1sql.ParamInt))
	// Rebinding keeps the original slot.
	require.NoError(t, stmt.BindValue(2, "rebound", d1sql.ParamStr))

	_, err := stmt.Execute(context.Background())

	require.NoError(t, err)
	require.Len(t, q.calls, 1)
	assert.Equal(t, []any{"rebound", "first", int64(3)}, q.calls[0].params)
}

func TestStatement_NamedBindingsWithAndWithoutColon(t *testing.T) {
	q := &scriptedQuerier{}
	stmt, _ := New(q).prepare("SELECT * FROM t WHERE a = :a AND b = :b")

	require.NoError(t, stmt.BindValue(":a", "x", d1sql.ParamStr))
	require.NoError(t, stmt.BindValue("b", true, d1sql.ParamBool))
	require.NoError(t, stmt.BindValue("a", "y", d1sql.ParamStr))

	_, err := stmt.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []any{"y", int64(1)}, q.calls[0].params)
}

func TestStatement_ExecuteParamsReplaceBindings(t *testing.T) {
	q := &scriptedQuerier{}
	stmt, _ := New(q).prepare("INSERT INTO t VALUES (?, ?)")
	require.NoError(t, stmt.BindValue(1, "old", d1sql.ParamStr))

	_, err := stmt.Execute(context.Background(), "value1", true)
	require.NoError(t, err)
	_, err = stmt.Execute(context.Background())
	require.NoError(t, err)

	require.Len(t, q.calls, 2)
	assert.Equal(t, []any{"value1", int64(1)}, q.calls[0].params)
	assert.Equal(t, []any{"value1", int64(1)}, q.calls[1].params, "bindings persist across executions")
}

func TestStatement_NullIsPreservedBothWays(t *testing.T) {
	q := &scriptedQuerier{}
	q.respond(t, 200, `{"success":true,"result":[{"results":[{"v":null}],"meta":{"changes":0}}]}`)
	stmt, _ := New(q).prepare("SELECT ? AS v")
	require.NoError(t, stmt.BindValue(1, nil, d1sql.ParamStr))

	_, err := stmt.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []any{nil}, q.calls[0].params)
	v, ok := stmt.FetchColumn(0)
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestStatement_FetchAdvancesMonotonically(t *testing.T) {
	stmt := executedUsers(t)

	row, ok, err := stmt.Fetch(d1sql.FetchDefault, d1sql.OrientNext, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"id": int64(1), "name": "Ada", "email": nil}, row)

	row, ok, _ = stmt.Fetch(d1sql.FetchDefault, d1sql.OrientNext, 0)
	require.True(t, ok)
	assert.Equal(t, "Grace", row.(map[string]any)["name"])

	row, ok, _ = stmt.Fetch(d1sql.FetchDefault, d1sql.OrientNext, 0)
	require.True(t, ok)
	assert.Equal(t, "Linus", row.(map[string]any)["name"])

	row, ok, err = stmt.Fetch(d1sql.FetchDefault, d1sql.OrientNext, 0)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, row)
}

func TestStatement_FetchAllAfterKFetchesReturnsRemainder(t *testing.T) {
	for k := 0; k <= 3; k++ {
		stmt := executedUsers(t)
		for i := 0; i < k; i++ {
			_, ok, _ := stmt.Fetch(d1sql.FetchDefault, d1sql.OrientNext, 0)
			require.True(t, ok)
		}

		rows, err := stmt.FetchAll(d1sql.FetchDefault)

		require.NoError(t, err)
		assert.Len(t, rows, 3-k, "after %d fetches", k)

		rest, err := stmt.FetchAll(d1sql.FetchDefault)
		require.NoError(t, err)
		assert.Empty(t, rest)
		assert.NotNil(t, rest)
	}
}

func TestStatement_FetchModes(t *testing.T) {
	tests := []struct {
		mode d1sql.FetchMode
		want func(t *testing.T, row any)
	}{
		{d1sql.FetchAssoc, func(t *testing.T, row any) {
			assert.Equal(t, map[string]any{"id": int64(1), "name": "Ada", "email": nil}, row)
		}},
		{d1sql.FetchNum, func(t *testing.T, row any) {
			assert.Equal(t, []any{int64(1), "Ada", nil}, row)
		}},
		{d1sql.FetchObj, func(t *testing.T, row any) {
			rec, ok := row.(*d1sql.Record)
			require.True(t, ok)
			assert.Equal(t, []string{"id", "name", "email"}, rec.Columns())
		}},
		{d1sql.FetchBoth, func(t *testing.T, row any) {
			both, ok := row.(d1sql.Both)
			require.True(t, ok)
			assert.Equal(t, "Ada", both.Assoc["name"])
			assert.Equal(t, "Ada", both.Num[1])
		}},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			stmt := executedUsers(t)
			row, ok, err := stmt.Fetch(tt.mode, d1sql.OrientNext, 0)
			require.NoError(t, err)
			require.True(t, ok)
			tt.want(t, row)
		})
	}
}

func TestStatement_SetFetchModeChangesDefault(t *testing.T) {
	stmt := executedUsers(t)
	require.NoError(t, stmt.SetFetchMode(d1sql.FetchNum))

	rows, err := stmt.FetchAll(d1sql.FetchDefault)

	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), "Grace", "grace@example.com"}, rows[1])
}

func TestStatement_UnsupportedFetchMode(t *testing.T) {
	stmt := executedUsers(t)

	_, _, err := stmt.Fetch(d1sql.FetchMode(99), d1sql.OrientNext, 0)
	assert.ErrorIs(t, err, d1sql.ErrUnsupportedFetchMode)

	_, err = stmt.FetchAll(d1sql.FetchMode(99))
	assert.ErrorIs(t, err, d1sql.ErrUnsupportedFetchMode)

	assert.ErrorIs(t, stmt.SetFetchMode(d1sql.FetchMode(-1)), d1sql.ErrUnsupportedFetchMode)
}

func TestStatement_FetchOrientation(t *testing.T) {
	stmt := executedUsers(t)

	row, ok, err := stmt.Fetch(d1sql.FetchNum, d1sql.OrientAbs, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Linus", row.([]any)[1])

	row, ok, _ = stmt.Fetch(d1sql.FetchNum, d1sql.OrientRel, -3)
	require.True(t, ok)
	assert.Equal(t, "Ada", row.([]any)[1])

	_, ok, _ = stmt.Fetch(d1sql.FetchNum, d1sql.OrientAbs, 10)
	assert.False(t, ok)

	_, ok, _ = stmt.Fetch(d1sql.FetchNum, d1sql.OrientAbs, -1)
	assert.False(t, ok)

	_, _, err = stmt.Fetch(d1sql.FetchNum, d1sql.Orientation(9), 0)
	assert.ErrorIs(t, err, d1sql.ErrInvalidParameter)
}

func TestStatement_FetchColumn(t *testing.T) {
	stmt := executedUsers(t)

	v, ok := stmt.FetchColumn(1)
	assert.True(t, ok)
	assert.Equal(t, "Ada", v)

	v, ok = stmt.FetchColumn(7)
	assert.True(t, ok, "a row was consumed")
	assert.Nil(t, v)

	v, ok = stmt.FetchColumn(0)
	assert.True(t, ok)
	assert.Equal(t, int64(3), v)

	_, ok = stmt.FetchColumn(0)
	assert.False(t, ok)
}

func TestStatement_Columns(t *testing.T) {
	stmt := executedUsers(t)
	assert.Equal(t, []string{"id", "name", "email"}, stmt.Columns())
	assert.Equal(t, 3, stmt.ColumnCount())

	q := &scriptedQuerier{}
	empty, _ := New(q).prepare("DELETE FROM users")
	_, err := empty.Execute(context.Background())
	require.NoError(t, err)
	assert.Nil(t, empty.Columns())
	assert.Equal(t, 0, empty.ColumnCount())
}

func TestStatement_ReExecuteResetsCursor(t *testing.T) {
	q := &scriptedQuerier{}
	q.respond(t, 200, usersBody)
	q.respond(t, 200, usersBody)
	stmt, _ := New(q).prepare("SELECT * FROM users")

	_, err := stmt.Execute(context.Background())
	require.NoError(t, err)
	_, err = stmt.FetchAll(d1sql.FetchDefault)
	require.NoError(t, err)

	_, err = stmt.Execute(context.Background())
	require.NoError(t, err)
	rows, err := stmt.FetchAll(d1sql.FetchDefault)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestStatement_ExecuteFailureRaisesClassifiedError(t *testing.T) {
	q := &scriptedQuerier{}
	q.respond(t, 400, `{"success":false,"errors":[{"code":7500,"message":"UNIQUE constraint failed: users.email"}]}`)
	stmt, _ := New(q).prepare("INSERT INTO users (email) VALUES (?)")

	ok, err := stmt.Execute(context.Background(), "dup@example.com")

	assert.False(t, ok)
	var d1err *d1sql.Error
	require.True(t, errors.As(err, &d1err))
	assert.Equal(t, d1sql.StateIntegrityConstraintViolation, d1err.SQLState)
	assert.Equal(t, "7500", d1err.VendorCode)
	assert.Equal(t, d1sql.StateIntegrityConstraintViolation, stmt.ErrorCode())
	assert.ErrorIs(t, err, d1sql.ErrQueryFailed)
}

func TestStatement_SilentModeRetainsErrorRecord(t *testing.T) {
	q := &scriptedQuerier{}
	q.respond(t, 400, `{"success":false,"errors":[{"code":7500,"message":"no such table: ghosts"}]}`)
	q.respond(t, 200, usersBody)
	c := New(q, WithErrMode(d1sql.ErrModeSilent))
	stmt, _ := c.prepare("SELECT * FROM ghosts")

	ok, err := stmt.Execute(context.Background())

	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, d1sql.ErrorInfo{SQLState: "42S02", VendorCode: "7500", Message: "no such table: ghosts"}, stmt.ErrorInfo())

	ok, err = stmt.Execute(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, d1sql.SuccessInfo(), stmt.ErrorInfo(), "success overwrites the record")
}

func TestStatement_TransportFailureIsConnectionError(t *testing.T) {
	q := &scriptedQuerier{}
	cause := errors.New("dial tcp: connection refused")
	q.fail(cause)
	stmt, _ := New(q).prepare("SELECT 1")

	_, err := stmt.Execute(context.Background())

	assert.ErrorIs(t, err, d1sql.ErrConnectionFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, d1sql.StateConnectionFailure, stmt.ErrorCode())
}

func TestStatement_ExhaustedRetryableStatusIsConnectionError(t *testing.T) {
	q := &scriptedQuerier{}
	q.respond(t, 503, `{"success":false,"errors":[]}`)
	stmt, _ := New(q).prepare("SELECT 1")

	_, err := stmt.Execute(context.Background())

	var d1err *d1sql.Error
	require.True(t, errors.As(err, &d1err))
	assert.Equal(t, d1sql.StateConnectionFailure, d1err.SQLState)
	assert.Equal(t, "503 Service Unavailable", d1err.Message)
}

func TestStatement_InvalidBinding(t *testing.T) {
	stmt, _ := New(&scriptedQuerier{}).prepare("SELECT ?")

	assert.ErrorIs(t, stmt.BindValue(0, "x", d1sql.ParamStr), d1sql.ErrInvalidParameter)
	assert.ErrorIs(t, stmt.BindValue(1, "abc", d1sql.ParamInt), d1sql.ErrInvalidParameter)

	_, err := stmt.Execute(context.Background(), map[string]int{})
	assert.ErrorIs(t, err, d1sql.ErrInvalidParameter)
}

func TestStatement_UntypedBind(t *testing.T) {
	q := &scriptedQuerier{}
	stmt, _ := New(q).prepare("INSERT INTO t VALUES (:a, :b)")

	require.NoError(t, stmt.Bind("a", 1.5))
	require.NoError(t, stmt.Bind("b", false))
	_, err := stmt.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{1.5, int64(0)}, q.calls[0].params)

	stmt.ClearBindings()
	_, err = stmt.Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, q.calls[1].params)
}
