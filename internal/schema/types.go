// Package schema describes fixed-schema tables: typed columns, the primary key,
// field values and full records.
//
// A Schema is validated once when it is built and is immutable afterwards.
// Records always carry exactly one Value per column, in column order, so the
// rest of the system can index them positionally.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// FieldType is the closed set of column types a table may use.
type FieldType int

const (
	TypeInt FieldType = iota
	TypeLong
	TypeFloat
	TypeBool
	TypeString
)

// String returns the lower-case type name used in logs and API responses.
func (t FieldType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeLong:
		return "long"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// Contract violations. These are programming errors on the caller's side and
// are always reported before any statement reaches the database.
var (
	ErrUnknownColumn   = errors.New("unknown column")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrKeyNotCovered   = errors.New("fields do not cover the primary key")
	ErrKeyMismatch     = errors.New("fields do not match the primary key exactly")
)

// Column describes one table column. Size is the maximum byte length of a
// string column and is ignored for other types.
type Column struct {
	Name string
	Type FieldType
	Size int
}

// Varchar is shorthand for a bounded string column.
func Varchar(name string, size int) Column {
	return Column{Name: name, Type: TypeString, Size: size}
}

// Schema is the static description of a single table.
type Schema struct {
	table   string
	columns []Column
	index   map[string]int
	pk      []int // primary-key column positions, ascending
}

// New validates and builds a Schema. Primary-key columns may be listed in any
// order; keys are always projected in column order.
func New(table string, columns []Column, primaryKey ...string) (*Schema, error) {
	var errs []string

	if strings.TrimSpace(table) == "" {
		errs = append(errs, "table name is empty")
	}
	if len(columns) == 0 {
		errs = append(errs, "no columns")
	}

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		switch {
		case c.Name == "":
			errs = append(errs, fmt.Sprintf("column %d has no name", i))
			continue
		case c.Type < TypeInt || c.Type > TypeString:
			errs = append(errs, fmt.Sprintf("column %s has invalid type %d", c.Name, int(c.Type)))
		case c.Type == TypeString && c.Size <= 0:
			errs = append(errs, fmt.Sprintf("string column %s needs a positive size", c.Name))
		}
		if _, dup := index[c.Name]; dup {
			errs = append(errs, fmt.Sprintf("column %s declared twice", c.Name))
			continue
		}
		index[c.Name] = i
	}

	if len(primaryKey) == 0 {
		errs = append(errs, "primary key is empty")
	}
	inKey := make(map[int]bool, len(primaryKey))
	for _, name := range primaryKey {
		i, ok := index[name]
		if !ok {
			errs = append(errs, fmt.Sprintf("primary key column %s is not a table column", name))
			continue
		}
		if inKey[i] {
			errs = append(errs, fmt.Sprintf("primary key column %s listed twice", name))
			continue
		}
		inKey[i] = true
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("schema %q: %s", table, strings.Join(errs, "; "))
	}

	pk := make([]int, 0, len(inKey))
	for i := range columns {
		if inKey[i] {
			pk = append(pk, i)
		}
	}

	cols := make([]Column, len(columns))
	copy(cols, columns)

	return &Schema{table: table, columns: cols, index: index, pk: pk}, nil
}

// MustNew is New for static table definitions; it panics on an invalid schema.
func MustNew(table string, columns []Column, primaryKey ...string) *Schema {
	s, err := New(table, columns, primaryKey...)
	if err != nil {
		panic(err)
	}
	return s
}

// Table returns the table name.
func (s *Schema) Table() string { return s.table }

// Len returns the number of columns.
func (s *Schema) Len() int { return len(s.columns) }

// Columns returns a copy of the column list in schema order.
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// ColumnAt returns the column at position i.
func (s *Schema) ColumnAt(i int) Column { return s.columns[i] }

// Index returns the position of the named column.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Column returns the named column.
func (s *Schema) Column(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// KeyColumns returns the primary-key columns in schema order.
func (s *Schema) KeyColumns() []Column {
	out := make([]Column, len(s.pk))
	for i, p := range s.pk {
		out[i] = s.columns[p]
	}
	return out
}

// IsKeyColumn reports whether the named column is part of the primary key.
func (s *Schema) IsKeyColumn(name string) bool {
	i, ok := s.index[name]
	if !ok {
		return false
	}
	for _, p := range s.pk {
		if p == i {
			return true
		}
	}
	return false
}

// CheckCoversKey verifies that fields name every primary-key column. Extra
// columns are allowed.
func (s *Schema) CheckCoversKey(fields []Field) error {
	seen, err := s.columnSet(fields)
	if err != nil {
		return err
	}
	for _, p := range s.pk {
		if !seen[p] {
			return fmt.Errorf("%w: missing %s", ErrKeyNotCovered, s.columns[p].Name)
		}
	}
	return nil
}

// CheckExactKey verifies that fields name the primary-key columns and nothing
// else.
func (s *Schema) CheckExactKey(fields []Field) error {
	seen, err := s.columnSet(fields)
	if err != nil {
		return err
	}
	for _, p := range s.pk {
		if !seen[p] {
			return fmt.Errorf("%w: missing %s", ErrKeyMismatch, s.columns[p].Name)
		}
	}
	if len(seen) != len(s.pk) {
		for i := range seen {
			if !s.IsKeyColumn(s.columns[i].Name) {
				return fmt.Errorf("%w: %s is not a key column", ErrKeyMismatch, s.columns[i].Name)
			}
		}
	}
	return nil
}

// columnSet resolves field columns to positions, rejecting unknown and
// repeated columns.
func (s *Schema) columnSet(fields []Field) (map[int]bool, error) {
	seen := make(map[int]bool, len(fields))
	for _, f := range fields {
		i, ok := s.index[f.Column]
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, s.table, f.Column)
		}
		if seen[i] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, f.Column)
		}
		seen[i] = true
	}
	return seen, nil
}
