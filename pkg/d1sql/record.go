package d1sql

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Record is one result row with its column order preserved.
//
// D1 encodes rows as JSON objects; a plain map would lose the column order
// that positional fetch modes depend on.
type Record struct {
	columns []string
	values  []any
}

// NewRecord builds a Record. columns and values must have the same length.
func NewRecord(columns []string, values []any) *Record {
	return &Record{columns: columns, values: values}
}

// Columns returns the column names in result order.
func (r *Record) Columns() []string {
	return r.columns
}

// Values returns the values in column order.
func (r *Record) Values() []any {
	return r.values
}

// Len returns the number of columns.
func (r *Record) Len() int {
	return len(r.columns)
}

// Get returns the value of the named column. When a name repeats, the last one wins,
// matching Map.
func (r *Record) Get(name string) (any, bool) {
	for i := len(r.columns) - 1; i >= 0; i-- {
		if r.columns[i] == name {
			return r.values[i], true
		}
	}
	return nil, false
}

// Index returns the value at position i.
func (r *Record) Index(i int) (any, bool) {
	if i < 0 || i >= len(r.values) {
		return nil, false
	}
	return r.values[i], true
}

// Map returns the row as a column-name keyed map.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}

// Both returns the merged associative and positional view of the row.
func (r *Record) Both() Both {
	values := make([]any, len(r.values))
	copy(values, r.values)
	return Both{Assoc: r.Map(), Num: values}
}

// UnmarshalJSON decodes a JSON object keeping key order. Integral numbers become int64,
// other numbers float64, and null stays nil.
func (r *Record) UnmarshalJSON(data []byte) error {
	r.columns = nil
	r.values = nil

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row must be a JSON object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected row key %v", tok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("column %q: %w", key, err)
		}

		r.columns = append(r.columns, key)
		r.values = append(r.values, normalizeNumber(value))
	}

	_, err = dec.Token()
	return err
}

// MarshalJSON encodes the row as a JSON object in column order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func normalizeNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	// An integer outside int64 keeps its exact digits.
	if !strings.ContainsAny(n.String(), ".eE") {
		return n.String()
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// Both exposes a row by column name and by position.
type Both struct {
	Assoc map[string]any
	Num   []any
}
