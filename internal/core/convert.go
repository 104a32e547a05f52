package core

// convert.go turns loosely typed client input into schema fields.
//
// Input arrives either as decoded JSON (numbers as float64 or json.Number,
// booleans, strings) or as raw text from forms and query strings. Every value
// is checked against the column type: integers must be integral and in
// range, booleans accept the usual spellings, floats must fit in 32 bits.

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/JonMunkholm/dbpatch/internal/schema"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ConversionError reports input that cannot be converted to a column's type.
type ConversionError struct {
	Column string
	Value  string
	Reason string // "invalid number", "out of range", "invalid boolean", "invalid text"
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("column %s: %s %q", e.Column, e.Reason, e.Value)
}

// FieldsFromJSON converts a decoded JSON object into fields, in schema column
// order. Unknown columns are rejected.
func FieldsFromJSON(sc *schema.Schema, obj map[string]any) ([]schema.Field, error) {
	var unknown []string
	for name := range obj {
		if _, ok := sc.Index(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s.%s", schema.ErrUnknownColumn, sc.Table(), strings.Join(unknown, ", "))
	}

	fields := make([]schema.Field, 0, len(obj))
	for _, c := range sc.Columns() {
		raw, ok := obj[c.Name]
		if !ok {
			continue
		}
		f, err := fieldFromJSON(c, raw)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func fieldFromJSON(c schema.Column, raw any) (schema.Field, error) {
	switch v := raw.(type) {
	case string:
		return parseField(c, v)
	case json.Number:
		return parseField(c, v.String())
	case float64:
		return floatField(c, v)
	case bool:
		switch c.Type {
		case schema.TypeBool:
			return schema.Bool(c.Name, v), nil
		case schema.TypeString:
			return schema.Field{}, &ConversionError{Column: c.Name, Value: strconv.FormatBool(v), Reason: "invalid text"}
		default:
			return schema.Field{}, &ConversionError{Column: c.Name, Value: strconv.FormatBool(v), Reason: "invalid number"}
		}
	case nil:
		return schema.Field{}, &ConversionError{Column: c.Name, Value: "null", Reason: reasonFor(c.Type)}
	default:
		return schema.Field{}, &ConversionError{Column: c.Name, Value: fmt.Sprint(v), Reason: reasonFor(c.Type)}
	}
}

// floatField converts a JSON number, which encoding/json decodes as float64.
func floatField(c schema.Column, f float64) (schema.Field, error) {
	text := strconv.FormatFloat(f, 'f', -1, 64)
	switch c.Type {
	case schema.TypeInt:
		if f != math.Trunc(f) {
			return schema.Field{}, &ConversionError{Column: c.Name, Value: text, Reason: "invalid number"}
		}
		if f > math.MaxInt32 || f < math.MinInt32 {
			return schema.Field{}, &ConversionError{Column: c.Name, Value: text, Reason: "out of range"}
		}
		return schema.Int(c.Name, int32(f)), nil
	case schema.TypeLong:
		if f != math.Trunc(f) {
			return schema.Field{}, &ConversionError{Column: c.Name, Value: text, Reason: "invalid number"}
		}
		if f >= math.MaxInt64 || f < math.MinInt64 {
			return schema.Field{}, &ConversionError{Column: c.Name, Value: text, Reason: "out of range"}
		}
		return schema.Long(c.Name, int64(f)), nil
	case schema.TypeFloat:
		if math.Abs(f) > math.MaxFloat32 {
			return schema.Field{}, &ConversionError{Column: c.Name, Value: text, Reason: "out of range"}
		}
		return schema.Float(c.Name, float32(f)), nil
	case schema.TypeBool:
		return parseField(c, text)
	default:
		return schema.Field{}, &ConversionError{Column: c.Name, Value: text, Reason: "invalid text"}
	}
}

// FieldFromString parses text input for the named column.
func FieldFromString(sc *schema.Schema, column, text string) (schema.Field, error) {
	c, ok := sc.Column(column)
	if !ok {
		return schema.Field{}, fmt.Errorf("%w: %s.%s", schema.ErrUnknownColumn, sc.Table(), column)
	}
	return parseField(c, text)
}

func parseField(c schema.Column, text string) (schema.Field, error) {
	if c.Type == schema.TypeString {
		return schema.Str(c.Name, text), nil
	}

	s := strings.TrimSpace(text)
	switch c.Type {
	case schema.TypeInt:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return schema.Field{}, numError(c, text, err)
		}
		return schema.Int(c.Name, int32(n)), nil

	case schema.TypeLong:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return schema.Field{}, numError(c, text, err)
		}
		return schema.Long(c.Name, n), nil

	case schema.TypeFloat:
		if !numericRegex.MatchString(s) {
			return schema.Field{}, &ConversionError{Column: c.Name, Value: text, Reason: "invalid number"}
		}
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return schema.Field{}, numError(c, text, err)
		}
		return schema.Float(c.Name, float32(f)), nil

	default:
		b, ok := parseBool(s)
		if !ok {
			return schema.Field{}, &ConversionError{Column: c.Name, Value: text, Reason: "invalid boolean"}
		}
		return schema.Bool(c.Name, b), nil
	}
}

// parseBool accepts true/false, yes/no, t/f, y/n and 1/0.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	default:
		return false, false
	}
}

func numError(c schema.Column, text string, err error) *ConversionError {
	reason := "invalid number"
	if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
		reason = "out of range"
	}
	return &ConversionError{Column: c.Name, Value: text, Reason: reason}
}

func reasonFor(t schema.FieldType) string {
	switch t {
	case schema.TypeBool:
		return "invalid boolean"
	case schema.TypeString:
		return "invalid text"
	default:
		return "invalid number"
	}
}
