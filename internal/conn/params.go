package conn

import (
	"database/sql/driver"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vvka-141/d1sql/pkg/d1sql"
)

// timeLayout is the text form SQLite date functions understand.
const timeLayout = "2006-01-02 15:04:05"

// binding is one bound parameter. key is "#<position>" or the bare name.
type binding struct {
	key   string
	value any
}

// bindingKey normalizes a positional (int, one-based) or named (string) parameter.
func bindingKey(param any) (string, error) {
	switch p := param.(type) {
	case int:
		if p < 1 {
			return "", fmt.Errorf("parameter position %d must be at least 1: %w", p, d1sql.ErrInvalidParameter)
		}
		return "#" + strconv.Itoa(p), nil
	case int64:
		return bindingKey(int(p))
	case string:
		name := strings.TrimPrefix(p, ":")
		if name == "" {
			return "", fmt.Errorf("empty parameter name: %w", d1sql.ErrInvalidParameter)
		}
		return name, nil
	default:
		return "", fmt.Errorf("parameter key must be a position or a name, got %T: %w", param, d1sql.ErrInvalidParameter)
	}
}

// NormalizeValue converts a Go value into one of the wire scalars:
// nil, int64, float64 or string. Booleans become 1 or 0.
func NormalizeValue(v any) (any, error) {
	return normalizeValue(v)
}

func normalizeValue(v any) (any, error) {
	if valuer, ok := v.(driver.Valuer); ok {
		inner, err := valuer.Value()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", d1sql.ErrInvalidParameter, err)
		}
		v = inner
	}

	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return uintToInt64(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return uintToInt64(x)
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case time.Time:
		return x.Format(timeLayout), nil
	case fmt.Stringer:
		return x.String(), nil
	default:
		return nil, fmt.Errorf("unsupported parameter type %T: %w", v, d1sql.ErrInvalidParameter)
	}
}

// normalize applies the declared type to a bound value. Null stays null for every type.
func normalize(v any, typ d1sql.ParamType) (any, error) {
	if typ == d1sql.ParamNull {
		return nil, nil
	}
	if typ == d1sql.ParamLOB {
		return readLOB(v)
	}

	n, err := normalizeValue(v)
	if err != nil || n == nil {
		return n, err
	}

	switch typ {
	case d1sql.ParamStr:
		return toString(n), nil
	case d1sql.ParamInt:
		return toInt(n)
	case d1sql.ParamBool:
		if truthy(n) {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return nil, fmt.Errorf("unknown parameter type %d: %w", typ, d1sql.ErrInvalidParameter)
	}
}

func readLOB(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case io.Reader:
		data, err := io.ReadAll(x)
		if err != nil {
			return nil, fmt.Errorf("failed to read LOB stream: %w", err)
		}
		return string(data), nil
	case []byte:
		return string(x), nil
	case string:
		return x, nil
	default:
		n, err := normalizeValue(v)
		if err != nil || n == nil {
			return n, err
		}
		return toString(n), nil
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func toInt(v any) (any, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case float64:
		if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return nil, fmt.Errorf("%v is not an integer: %w", x, d1sql.ErrInvalidParameter)
		}
		return int64(x), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer: %w", x, d1sql.ErrInvalidParameter)
		}
		return i, nil
	default:
		return nil, fmt.Errorf("cannot bind %T as integer: %w", v, d1sql.ErrInvalidParameter)
	}
}

// uintToInt64 rejects values the wire's signed 64-bit integers cannot hold.
func uintToInt64(x uint64) (any, error) {
	if x > math.MaxInt64 {
		return nil, fmt.Errorf("%d overflows int64: %w", x, d1sql.ErrInvalidParameter)
	}
	return int64(x), nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != "" && x != "0"
	default:
		return v != nil
	}
}

// quote renders value as an SQL literal: NULL, 1/0 for booleans, and a single-quoted
// string with embedded quotes doubled for everything else.
func quote(value any) string {
	switch x := value.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "1"
		}
		return "0"
	}

	n, err := normalizeValue(value)
	if err != nil {
		n = fmt.Sprint(value)
	}
	if n == nil {
		return "NULL"
	}
	return "'" + strings.ReplaceAll(toString(n), "'", "''") + "'"
}
