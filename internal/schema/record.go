package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Field names a value for one column. Callers pass fields to describe partial
// rows and primary-key lookups.
type Field struct {
	Column string
	Value  Value
}

// Int builds an integer field.
func Int(column string, v int32) Field { return Field{column, IntValue(v)} }

// Long builds a 64-bit integer field.
func Long(column string, v int64) Field { return Field{column, LongValue(v)} }

// Float builds a float field.
func Float(column string, v float32) Field { return Field{column, FloatValue(v)} }

// Bool builds a boolean field.
func Bool(column string, v bool) Field { return Field{column, BoolValue(v)} }

// Str builds a string field.
func Str(column string, v string) Field { return Field{column, StringValue(v)} }

// Record is one full row: one Value per schema column, in schema order.
type Record []Value

// ZeroRecord returns a record holding the zero value of every column.
func ZeroRecord(s *Schema) Record {
	r := make(Record, len(s.columns))
	for i, c := range s.columns {
		r[i] = Zero(c.Type)
	}
	return r
}

// Equal reports whether both records hold equal values in every column.
func (r Record) Equal(o Record) bool {
	if len(r) != len(o) {
		return false
	}
	for i := range r {
		if !r[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	copy(out, r)
	return out
}

// Map returns the record as column name -> plain value.
func (r Record) Map(s *Schema) map[string]any {
	out := make(map[string]any, len(r))
	for i, v := range r {
		out[s.columns[i].Name] = v.Any()
	}
	return out
}

// Key is the projection of a record onto the primary-key columns, in schema
// order. It identifies a row across edits.
type Key []Value

// KeyOf projects a record onto the schema's primary key.
func (s *Schema) KeyOf(r Record) Key {
	k := make(Key, len(s.pk))
	for i, p := range s.pk {
		k[i] = r[p]
	}
	return k
}

// ID returns a canonical string form of the key, usable as a map key. Two
// keys have the same ID exactly when they are equal.
func (k Key) ID() string {
	var b strings.Builder
	for i, v := range k {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.Itoa(int(v.Type)))
		b.WriteByte(':')
		switch {
		case v.Type == TypeString:
			b.WriteString(strconv.Quote(v.S))
		case v.Type == TypeFloat && v.F32 == 0:
			// -0 compares equal to 0 and must map to the same entry.
			b.WriteByte('0')
		default:
			b.WriteString(v.String())
		}
	}
	return b.String()
}

// String renders the key for logs, e.g. "5" or "5|'Wolf'".
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, v := range k {
		if v.Type == TypeString {
			parts[i] = "'" + v.S + "'"
		} else {
			parts[i] = v.String()
		}
	}
	return strings.Join(parts, "|")
}

// CompareKeys orders keys column by column.
func CompareKeys(a, b Key) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// Builder assembles a complete record from a base record and named overrides.
type Builder struct {
	schema *Schema
	rec    Record
	set    map[int]bool
	err    error
}

// NewBuilder starts a builder from base, which must be a full record for s.
func NewBuilder(s *Schema, base Record) *Builder {
	return &Builder{schema: s, rec: base.Clone(), set: make(map[int]bool)}
}

// Set overrides one column. The first error sticks and is returned by Record.
func (b *Builder) Set(f Field) *Builder {
	if b.err != nil {
		return b
	}
	i, ok := b.schema.index[f.Column]
	if !ok {
		b.err = fmt.Errorf("%w: %s.%s", ErrUnknownColumn, b.schema.table, f.Column)
		return b
	}
	if b.set[i] {
		b.err = fmt.Errorf("%w: %s", ErrDuplicateColumn, f.Column)
		return b
	}
	v, err := b.schema.columns[i].bind(f.Value)
	if err != nil {
		b.err = err
		return b
	}
	b.rec[i] = v
	b.set[i] = true
	return b
}

// Apply overrides every given column in order.
func (b *Builder) Apply(fields ...Field) *Builder {
	for _, f := range fields {
		b.Set(f)
	}
	return b
}

// Record returns the assembled record or the first override error.
func (b *Builder) Record() (Record, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.rec.Clone(), nil
}

// KeyFromFields builds a key from fields that name exactly the primary key.
func (s *Schema) KeyFromFields(fields []Field) (Key, error) {
	if err := s.CheckExactKey(fields); err != nil {
		return nil, err
	}
	rec, err := NewBuilder(s, ZeroRecord(s)).Apply(fields...).Record()
	if err != nil {
		return nil, err
	}
	return s.KeyOf(rec), nil
}
