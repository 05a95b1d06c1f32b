package conn

import (
	"context"
	"fmt"

	"github.com/vvka-141/d1sql/internal/d1"
	"github.com/vvka-141/d1sql/pkg/d1sql"
)

// Statement implements d1sql.Stmt. Its result is buffered in full by Execute.
type Statement struct {
	conn     *Connection
	query    string
	readOnly bool

	bindings  []binding
	fetchMode d1sql.FetchMode

	rows    []*d1sql.Record
	pos     int
	changes int64
	lastID  int64
	errInfo d1sql.ErrorInfo
}

var _ d1sql.Stmt = (*Statement)(nil)

func newStatement(c *Connection, query string) *Statement {
	return &Statement{
		conn:      c,
		query:     query,
		readOnly:  d1.IsReadOnly(query),
		fetchMode: c.fetchMode,
		errInfo:   d1sql.SuccessInfo(),
	}
}

func (s *Statement) QueryString() string {
	return s.query
}

func (s *Statement) BindValue(param any, value any, typ d1sql.ParamType) error {
	key, err := bindingKey(param)
	if err != nil {
		return err
	}
	v, err := normalize(value, typ)
	if err != nil {
		return fmt.Errorf("parameter %v: %w", param, err)
	}
	s.bind(key, v)
	return nil
}

// Bind binds value without a declared type, keeping its Go kind on the wire.
func (s *Statement) Bind(param any, value any) error {
	key, err := bindingKey(param)
	if err != nil {
		return err
	}
	v, err := normalizeValue(value)
	if err != nil {
		return fmt.Errorf("parameter %v: %w", param, err)
	}
	s.bind(key, v)
	return nil
}

// ClearBindings removes every bound value.
func (s *Statement) ClearBindings() {
	s.bindings = nil
}

func (s *Statement) bind(key string, value any) {
	for i := range s.bindings {
		if s.bindings[i].key == key {
			s.bindings[i].value = value
			return
		}
	}
	s.bindings = append(s.bindings, binding{key: key, value: value})
}

// params flattens the bindings in the order they were first bound.
func (s *Statement) params() []any {
	out := make([]any, len(s.bindings))
	for i, b := range s.bindings {
		out[i] = b.value
	}
	return out
}

func (s *Statement) Execute(ctx context.Context, params ...any) (bool, error) {
	if s.conn.closed {
		return false, d1sql.ErrClosed
	}

	if len(params) > 0 {
		bindings := make([]binding, len(params))
		for i, p := range params {
			v, err := normalizeValue(p)
			if err != nil {
				return false, fmt.Errorf("parameter %d: %w", i+1, err)
			}
			bindings[i] = binding{key: fmt.Sprintf("#%d", i+1), value: v}
		}
		s.bindings = bindings
	}

	s.rows = nil
	s.pos = 0
	s.changes = 0
	s.lastID = 0

	resp, qerr := s.conn.send(ctx, s.query, s.params())
	if qerr != nil {
		s.errInfo = qerr.Info()
		if s.conn.errMode == d1sql.ErrModeSilent {
			return false, nil
		}
		return false, qerr
	}

	s.errInfo = d1sql.SuccessInfo()
	s.rows = resp.Rows()
	s.changes = resp.Changes()
	if id, ok := resp.LastInsertID(); ok {
		s.lastID = id
	}
	s.conn.recordLastInsertID(resp)
	return true, nil
}

// LastInsertID returns the row id reported by the last execution, or 0.
func (s *Statement) LastInsertID() int64 {
	return s.lastID
}

func (s *Statement) SetFetchMode(mode d1sql.FetchMode) error {
	if mode == d1sql.FetchDefault {
		s.fetchMode = s.conn.fetchMode
		return nil
	}
	if !validFetchMode(mode) {
		return fmt.Errorf("%v: %w", mode, d1sql.ErrUnsupportedFetchMode)
	}
	s.fetchMode = mode
	return nil
}

func (s *Statement) resolveMode(mode d1sql.FetchMode) (d1sql.FetchMode, error) {
	if mode == d1sql.FetchDefault {
		mode = s.fetchMode
	}
	if !validFetchMode(mode) {
		return mode, fmt.Errorf("%v: %w", mode, d1sql.ErrUnsupportedFetchMode)
	}
	return mode, nil
}

func (s *Statement) Fetch(mode d1sql.FetchMode, orientation d1sql.Orientation, offset int) (any, bool, error) {
	mode, err := s.resolveMode(mode)
	if err != nil {
		return nil, false, err
	}

	switch orientation {
	case d1sql.OrientNext:
	case d1sql.OrientAbs:
		s.pos = offset
	case d1sql.OrientRel:
		s.pos += offset
	default:
		return nil, false, fmt.Errorf("unknown cursor orientation %d: %w", orientation, d1sql.ErrInvalidParameter)
	}

	if s.pos < 0 || s.pos >= len(s.rows) {
		return nil, false, nil
	}

	row := s.rows[s.pos]
	s.pos++
	return shapeRow(row, mode), true, nil
}

func (s *Statement) FetchAll(mode d1sql.FetchMode) ([]any, error) {
	mode, err := s.resolveMode(mode)
	if err != nil {
		return nil, err
	}

	start := s.pos
	if start < 0 {
		start = 0
	}
	out := make([]any, 0)
	for i := start; i < len(s.rows); i++ {
		out = append(out, shapeRow(s.rows[i], mode))
	}
	s.pos = len(s.rows)
	return out, nil
}

// FetchColumn returns column of the next row. A column past the end of the row is nil.
func (s *Statement) FetchColumn(column int) (any, bool) {
	row, ok, _ := s.Fetch(d1sql.FetchNum, d1sql.OrientNext, 0)
	if !ok {
		return nil, false
	}
	values := row.([]any)
	if column < 0 || column >= len(values) {
		return nil, true
	}
	return values[column], true
}

func (s *Statement) RowCount() int64 {
	if s.readOnly {
		return 0
	}
	return s.changes
}

// Columns returns the column names of the first buffered row. Results without
// rows have no columns.
func (s *Statement) Columns() []string {
	if len(s.rows) == 0 {
		return nil
	}
	return s.rows[0].Columns()
}

func (s *Statement) ColumnCount() int {
	return len(s.Columns())
}

func (s *Statement) ErrorCode() d1sql.SQLState {
	return s.errInfo.SQLState
}

func (s *Statement) ErrorInfo() d1sql.ErrorInfo {
	return s.errInfo
}

func validFetchMode(m d1sql.FetchMode) bool {
	switch m {
	case d1sql.FetchAssoc, d1sql.FetchNum, d1sql.FetchObj, d1sql.FetchBoth:
		return true
	}
	return false
}

func shapeRow(row *d1sql.Record, mode d1sql.FetchMode) any {
	switch mode {
	case d1sql.FetchNum:
		values := make([]any, row.Len())
		copy(values, row.Values())
		return values
	case d1sql.FetchObj:
		return row
	case d1sql.FetchBoth:
		return row.Both()
	default:
		return row.Map()
	}
}
