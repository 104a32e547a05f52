package database

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/JonMunkholm/dbpatch/internal/schema"
)

// ErrInjected is the error reported for statements matched by FailOn.
var ErrInjected = errors.New("injected failure")

// MemSession is an in-memory DBSession over a fixed set of tables. It accepts
// the statements the table engine renders and enforces primary-key
// uniqueness, which makes it a stand-in for a staging database in dry-run
// mode and in tests.
type MemSession struct {
	mu      sync.Mutex
	schemas map[string]*schema.Schema
	tables  map[string]map[string]schema.Record // table -> key ID -> row
	log     []string
	failOn  string
	err     error
	resultSet
}

// NewMemSession creates an empty store for the given tables.
func NewMemSession(schemas ...*schema.Schema) *MemSession {
	s := &MemSession{
		schemas: make(map[string]*schema.Schema, len(schemas)),
		tables:  make(map[string]map[string]schema.Record, len(schemas)),
	}
	for _, sc := range schemas {
		s.schemas[strings.ToLower(sc.Table())] = sc
		s.tables[strings.ToLower(sc.Table())] = make(map[string]schema.Record)
	}
	s.reset(nil)
	return s
}

// Execute runs one statement.
func (s *MemSession) Execute(ctx context.Context, stmt string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset(nil)
	s.log = append(s.log, stmt)
	if err := ctx.Err(); err != nil {
		s.err = err
		return
	}
	if s.failOn != "" && strings.HasPrefix(stmt, s.failOn) {
		s.err = fmt.Errorf("%w: %s", ErrInjected, stmt)
		return
	}

	rows, err := s.run(stmt)
	s.err = err
	if err == nil {
		s.reset(rows)
	}
}

// Succeeded reports whether the last Execute completed without error.
func (s *MemSession) Succeeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err == nil
}

// Err returns the error of the last Execute.
func (s *MemSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// FailOn makes every later statement starting with prefix fail. An empty
// prefix disables injection.
func (s *MemSession) FailOn(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = prefix
}

// Statements returns every statement executed so far, in order.
func (s *MemSession) Statements() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.log)
}

// ResetLog clears the statement log.
func (s *MemSession) ResetLog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = nil
}

// Apply runs a newline-separated script, such as a rendered patch, stopping at
// the first failing statement.
func (s *MemSession) Apply(ctx context.Context, script string) error {
	sc := bufio.NewScanner(strings.NewReader(script))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		stmt := strings.TrimSpace(sc.Text())
		if stmt == "" || strings.HasPrefix(stmt, "--") {
			continue
		}
		s.Execute(ctx, stmt)
		if err := s.Err(); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return sc.Err()
}

// Rows returns a snapshot of a table's rows in primary-key order.
func (s *MemSession) Rows(table string) []schema.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.schemas[strings.ToLower(table)]
	if !ok {
		return nil
	}
	out := make([]schema.Record, 0, len(s.tables[strings.ToLower(table)]))
	for _, r := range s.tables[strings.ToLower(table)] {
		out = append(out, r.Clone())
	}
	slices.SortFunc(out, func(a, b schema.Record) int {
		return schema.CompareKeys(sc.KeyOf(a), sc.KeyOf(b))
	})
	return out
}

func (s *MemSession) run(stmt string) ([][]any, error) {
	st, err := parseStatement(stmt)
	if err != nil {
		return nil, err
	}

	sc, ok := s.schemas[strings.ToLower(st.table)]
	if !ok {
		return nil, fmt.Errorf("relation %q does not exist", st.table)
	}
	rows := s.tables[strings.ToLower(st.table)]

	switch st.kind {
	case stmtInsert:
		return nil, s.insert(sc, rows, st)
	case stmtDelete:
		match, err := matcher(sc, st.where)
		if err != nil {
			return nil, err
		}
		for id, r := range rows {
			if match(r) {
				delete(rows, id)
			}
		}
		return nil, nil
	case stmtSelect:
		return s.selectRows(sc, rows, st)
	default:
		return s.max(sc, rows, st)
	}
}

func (s *MemSession) insert(sc *schema.Schema, rows map[string]schema.Record, st *memStmt) error {
	fields := make([]schema.Field, len(st.columns))
	for i, name := range st.columns {
		col, ok := sc.Column(name)
		if !ok {
			return fmt.Errorf("column %q of relation %q does not exist", name, sc.Table())
		}
		v, err := parseLiteral(col, st.values[i])
		if err != nil {
			return err
		}
		fields[i] = schema.Field{Column: col.Name, Value: v}
	}

	rec, err := schema.NewBuilder(sc, schema.ZeroRecord(sc)).Apply(fields...).Record()
	if err != nil {
		return err
	}
	id := sc.KeyOf(rec).ID()
	if _, exists := rows[id]; exists {
		return fmt.Errorf("duplicate key value violates unique constraint %q", sc.Table()+"_pkey")
	}
	rows[id] = rec
	return nil
}

func (s *MemSession) selectRows(sc *schema.Schema, rows map[string]schema.Record, st *memStmt) ([][]any, error) {
	match, err := matcher(sc, st.where)
	if err != nil {
		return nil, err
	}

	var proj []int
	for _, name := range st.columns {
		if name == "*" {
			for i := 0; i < sc.Len(); i++ {
				proj = append(proj, i)
			}
			continue
		}
		i, ok := sc.Index(name)
		if !ok {
			return nil, fmt.Errorf("column %q does not exist", name)
		}
		proj = append(proj, i)
	}

	var matched []schema.Record
	for _, r := range rows {
		if match(r) {
			matched = append(matched, r)
		}
	}
	slices.SortFunc(matched, func(a, b schema.Record) int {
		return schema.CompareKeys(sc.KeyOf(a), sc.KeyOf(b))
	})

	out := make([][]any, len(matched))
	for n, r := range matched {
		row := make([]any, len(proj))
		for j, i := range proj {
			row[j] = r[i].Any()
		}
		out[n] = row
	}
	return out, nil
}

// max mirrors SQL MAX: one row, NULL when no row matches.
func (s *MemSession) max(sc *schema.Schema, rows map[string]schema.Record, st *memStmt) ([][]any, error) {
	i, ok := sc.Index(st.columns[0])
	if !ok {
		return nil, fmt.Errorf("column %q does not exist", st.columns[0])
	}
	match, err := matcher(sc, st.where)
	if err != nil {
		return nil, err
	}

	var best *schema.Value
	for _, r := range rows {
		if !match(r) {
			continue
		}
		if best == nil || r[i].Compare(*best) > 0 {
			v := r[i]
			best = &v
		}
	}
	if best == nil {
		return [][]any{{nil}}, nil
	}
	return [][]any{{best.Any()}}, nil
}

// matcher compiles WHERE predicates into a row filter. No predicates match
// every row.
func matcher(sc *schema.Schema, preds []predicate) (func(schema.Record) bool, error) {
	type term struct {
		idx int
		val schema.Value
	}
	terms := make([]term, len(preds))
	for n, p := range preds {
		i, ok := sc.Index(p.column)
		if !ok {
			return nil, fmt.Errorf("column %q does not exist", p.column)
		}
		col := sc.ColumnAt(i)
		v, err := parseLiteral(col, p.literal)
		if err != nil {
			return nil, err
		}
		// Bind so string literals compare against the stored, truncated form.
		bound, err := schema.NewBuilder(sc, schema.ZeroRecord(sc)).Set(schema.Field{Column: col.Name, Value: v}).Record()
		if err != nil {
			return nil, err
		}
		terms[n] = term{idx: i, val: bound[i]}
	}

	return func(r schema.Record) bool {
		for _, t := range terms {
			if !r[t.idx].Equal(t.val) {
				return false
			}
		}
		return true
	}, nil
}

// parseLiteral converts SQL literal text to a value of the column's type.
func parseLiteral(col schema.Column, lit string) (schema.Value, error) {
	lit = strings.TrimSpace(lit)
	bad := func() (schema.Value, error) {
		return schema.Value{}, fmt.Errorf("invalid input syntax for type %s: %s", col.Type, lit)
	}

	switch col.Type {
	case schema.TypeString:
		if len(lit) < 2 || lit[0] != '\'' || lit[len(lit)-1] != '\'' {
			return bad()
		}
		return schema.StringValue(lit[1 : len(lit)-1]), nil
	case schema.TypeInt:
		n, err := strconv.ParseInt(lit, 10, 32)
		if err != nil {
			return bad()
		}
		return schema.IntValue(int32(n)), nil
	case schema.TypeLong:
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return bad()
		}
		return schema.LongValue(n), nil
	case schema.TypeFloat:
		f, err := strconv.ParseFloat(lit, 32)
		if err != nil {
			return bad()
		}
		return schema.FloatValue(float32(f)), nil
	case schema.TypeBool:
		switch strings.ToLower(lit) {
		case "1", "true", "'t'", "'1'":
			return schema.BoolValue(true), nil
		case "0", "false", "'f'", "'0'":
			return schema.BoolValue(false), nil
		}
		return bad()
	default:
		return bad()
	}
}
