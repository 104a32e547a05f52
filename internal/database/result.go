// Package database provides the DBSession implementations used by the table
// engine: PgSession for PostgreSQL via pgx, and MemSession, an in-memory
// store that understands the statements the engine renders.
package database

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// ErrIndexOutOfRange is recorded when an accessor asks for a column the
// current row does not have, or when no row is current.
var ErrIndexOutOfRange = errors.New("column index out of range")

// resultSet buffers the rows of the last statement and serves the typed
// accessors shared by every session.
type resultSet struct {
	rows      [][]any
	pos       int
	accessErr error
}

func (r *resultSet) reset(rows [][]any) {
	r.rows = rows
	r.pos = -1
	r.accessErr = nil
}

// Next positions on the next buffered row.
func (r *resultSet) Next() bool {
	if r.pos+1 >= len(r.rows) {
		r.pos = len(r.rows)
		return false
	}
	r.pos++
	return true
}

// AccessErr returns the error of the most recent accessor call.
func (r *resultSet) AccessErr() error { return r.accessErr }

func (r *resultSet) value(i int) (any, bool) {
	if r.pos < 0 || r.pos >= len(r.rows) || i < 0 || i >= len(r.rows[r.pos]) {
		r.accessErr = fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
		return nil, false
	}
	r.accessErr = nil
	return r.rows[r.pos][i], true
}

// StringAt returns column i of the current row as text.
func (r *resultSet) StringAt(i int) string {
	v, ok := r.value(i)
	if !ok {
		return ""
	}
	return toString(v)
}

// IntAt returns column i of the current row as a 32-bit integer.
func (r *resultSet) IntAt(i int) int32 {
	v, ok := r.value(i)
	if !ok {
		return 0
	}
	n := toInt64(v)
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0
	}
	return int32(n)
}

// LongAt returns column i of the current row as a 64-bit integer.
func (r *resultSet) LongAt(i int) int64 {
	v, ok := r.value(i)
	if !ok {
		return 0
	}
	return toInt64(v)
}

// FloatAt returns column i of the current row as a float.
func (r *resultSet) FloatAt(i int) float32 {
	v, ok := r.value(i)
	if !ok {
		return 0
	}
	return float32(toFloat64(v))
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return ""
		}
		return strconv.FormatFloat(f.Float64, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		if x {
			return 1
		}
		return 0
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case int:
		return int64(x)
	case float32:
		return int64(x)
	case float64:
		return int64(x)
	case string:
		return parseInt(x)
	case []byte:
		return parseInt(string(x))
	case pgtype.Numeric:
		n, err := x.Int64Value()
		if err != nil {
			// Fractional or out of range: truncate like a float.
			return int64(toFloat64(x))
		}
		return n.Int64
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float32:
		return float64(x)
	case float64:
		return x
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f
	case []byte:
		f, _ := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		return f
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return 0
		}
		return f.Float64
	default:
		return float64(toInt64(v))
	}
}

func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	switch strings.ToLower(s) {
	case "t", "true":
		return 1
	}
	return 0
}
