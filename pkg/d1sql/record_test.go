package d1sql_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/d1sql/pkg/d1sql"
)

func TestRecord_UnmarshalJSON_PreservesColumnOrder(t *testing.T) {
	var rec d1sql.Record
	require.NoError(t, json.Unmarshal([]byte(`{"zeta":1,"alpha":"a","mid":null,"score":1.5}`), &rec))

	assert.Equal(t, []string{"zeta", "alpha", "mid", "score"}, rec.Columns())
	assert.Equal(t, []any{int64(1), "a", nil, 1.5}, rec.Values())
}

func TestRecord_UnmarshalJSON_NullStaysNull(t *testing.T) {
	var rec d1sql.Record
	require.NoError(t, json.Unmarshal([]byte(`{"remember_token":null}`), &rec))

	v, ok := rec.Get("remember_token")
	require.True(t, ok)
	assert.Nil(t, v)
	assert.NotEqual(t, "", v)
}

func TestRecord_UnmarshalJSON_NumberPrecision(t *testing.T) {
	var rec d1sql.Record
	body := `{"max":9223372036854775807,"big":18446744073709551615,"neg":-9223372036854775809,"exp":1e3,"frac":0.25}`
	require.NoError(t, json.Unmarshal([]byte(body), &rec))

	assert.Equal(t, []any{
		int64(9223372036854775807),
		"18446744073709551615",
		"-9223372036854775809",
		float64(1000),
		0.25,
	}, rec.Values())
}

func TestRecord_UnmarshalJSON_RejectsNonObject(t *testing.T) {
	var rec d1sql.Record
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &rec))
}

func TestRecord_DuplicateColumns(t *testing.T) {
	var rec d1sql.Record
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"id":2}`), &rec))

	assert.Equal(t, 2, rec.Len())
	v, _ := rec.Get("id")
	assert.Equal(t, int64(2), v)
	assert.Equal(t, map[string]any{"id": int64(2)}, rec.Map())

	first, ok := rec.Index(0)
	require.True(t, ok)
	assert.Equal(t, int64(1), first)
}

func TestRecord_MarshalJSON_KeepsOrder(t *testing.T) {
	rec := d1sql.NewRecord([]string{"b", "a"}, []any{nil, int64(3)})
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"b":null,"a":3}`, string(data))
}

func TestRecord_Both(t *testing.T) {
	rec := d1sql.NewRecord([]string{"id", "name"}, []any{int64(7), "Ada"})
	both := rec.Both()

	assert.Equal(t, map[string]any{"id": int64(7), "name": "Ada"}, both.Assoc)
	assert.Equal(t, []any{int64(7), "Ada"}, both.Num)

	_, ok := rec.Index(5)
	assert.False(t, ok)
}
