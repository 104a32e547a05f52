package schema

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Value is a single typed column value. Only the payload matching Type is
// meaningful; the others stay zero so values compare cleanly with ==.
type Value struct {
	Type FieldType

	I64 int64   // TypeInt, TypeLong
	F32 float32 // TypeFloat
	B   bool    // TypeBool
	S   string  // TypeString
}

// IntValue returns a 32-bit integer value.
func IntValue(v int32) Value { return Value{Type: TypeInt, I64: int64(v)} }

// LongValue returns a 64-bit integer value.
func LongValue(v int64) Value { return Value{Type: TypeLong, I64: v} }

// FloatValue returns a float value.
func FloatValue(v float32) Value { return Value{Type: TypeFloat, F32: v} }

// BoolValue returns a boolean value.
func BoolValue(v bool) Value { return Value{Type: TypeBool, B: v} }

// StringValue returns an unbounded string value. It is truncated to the
// column size once it is bound to a column.
func StringValue(v string) Value { return Value{Type: TypeString, S: v} }

// Zero returns the zero value for a field type.
func Zero(t FieldType) Value { return Value{Type: t} }

// Int returns the value as an int32. Only valid for TypeInt.
func (v Value) Int() int32 { return int32(v.I64) }

// Long returns the value as an int64. Only valid for TypeLong.
func (v Value) Long() int64 { return v.I64 }

// String renders the value as SQL-ready text, without quoting.
func (v Value) String() string {
	switch v.Type {
	case TypeInt, TypeLong:
		return strconv.FormatInt(v.I64, 10)
	case TypeFloat:
		return strconv.FormatFloat(float64(v.F32), 'f', -1, 32)
	case TypeBool:
		if v.B {
			return "1"
		}
		return "0"
	case TypeString:
		return v.S
	default:
		return ""
	}
}

// Any returns the payload as a plain Go value, for JSON responses.
func (v Value) Any() any {
	switch v.Type {
	case TypeInt:
		return int32(v.I64)
	case TypeLong:
		return v.I64
	case TypeFloat:
		return v.F32
	case TypeBool:
		return v.B
	case TypeString:
		return v.S
	default:
		return nil
	}
}

// Equal reports whether both values have the same type and payload.
func (v Value) Equal(o Value) bool {
	return v.Type == o.Type && v.Compare(o) == 0
}

// Compare orders two values of the same type: numeric for numbers and bools
// (false before true), byte-wise for strings. Values of different types are
// ordered by type tag.
func (v Value) Compare(o Value) int {
	if v.Type != o.Type {
		return cmp.Compare(v.Type, o.Type)
	}
	switch v.Type {
	case TypeInt, TypeLong:
		return cmp.Compare(v.I64, o.I64)
	case TypeFloat:
		return cmp.Compare(v.F32, o.F32)
	case TypeBool:
		return cmp.Compare(boolRank(v.B), boolRank(o.B))
	case TypeString:
		return strings.Compare(v.S, o.S)
	default:
		return 0
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// bind checks a value against a column and applies string truncation.
func (c Column) bind(v Value) (Value, error) {
	if v.Type != c.Type {
		return Value{}, fmt.Errorf("%w: column %s is %s, got %s", ErrTypeMismatch, c.Name, c.Type, v.Type)
	}
	if c.Type == TypeString {
		v.S = truncate(v.S, c.Size)
	}
	return v, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 {
		r, size := utf8.DecodeLastRuneInString(s)
		if r != utf8.RuneError || size > 1 {
			break
		}
		s = s[:len(s)-1]
	}
	return s
}
