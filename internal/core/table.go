package core

// table.go implements the table engine: every edit is applied to the live
// database immediately and folded into two change sets so the whole session
// can be rendered as a forward patch and a rollback patch at any time.
//
// The change sets hold the net effect of the session relative to what the
// database contained when each key was first touched:
//
//	insertions only  row written this session with nothing there before
//	deletions only   row removed this session, nothing in its place
//	both             original row (deletions) replaced by a new one (insertions)
//
// A multi-statement edit is not transactional. When a statement fails the
// call stops and the change sets reflect exactly the statements that ran.

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/dbpatch/internal/logging"
	"github.com/JonMunkholm/dbpatch/internal/schema"
	"github.com/JonMunkholm/dbpatch/internal/sqltext"
)

// Table tracks the edits made to one table during a session.
// It is not safe for concurrent use; callers serialize access.
type Table struct {
	schema     *schema.Schema
	defaults   schema.Record
	insertions *changeSet
	deletions  *changeSet
}

// NewTable creates an engine with an empty session and zero-valued defaults.
func NewTable(s *schema.Schema) *Table {
	return &Table{
		schema:     s,
		defaults:   schema.ZeroRecord(s),
		insertions: newChangeSet(s),
		deletions:  newChangeSet(s),
	}
}

// Schema returns the table schema.
func (t *Table) Schema() *schema.Schema { return t.schema }

// Defaults returns a copy of the record partial edits are built on.
func (t *Table) Defaults() schema.Record { return t.defaults.Clone() }

// SetDefault permanently overrides default column values for later edits.
// Nothing is written when any field is invalid.
func (t *Table) SetDefault(fields ...schema.Field) error {
	rec, err := schema.NewBuilder(t.schema, t.defaults).Apply(fields...).Record()
	if err != nil {
		return err
	}
	t.defaults = rec
	return nil
}

// InsertEntry writes a row built from the defaults and fields, which must
// cover the primary key. Writing a row identical to the one on record issues
// no SQL.
func (t *Table) InsertEntry(ctx context.Context, db DBSession, fields ...schema.Field) error {
	if err := t.schema.CheckCoversKey(fields); err != nil {
		return err
	}
	rec, err := schema.NewBuilder(t.schema, t.defaults).Apply(fields...).Record()
	if err != nil {
		return err
	}
	key := t.schema.KeyOf(rec)

	delRec, deleted := t.deletions.get(key)
	insRec, inserted := t.insertions.get(key)

	switch {
	case deleted:
		if inserted {
			if insRec.Equal(rec) {
				return nil
			}
			if err := t.exec(ctx, db, t.deleteSQL(key)); err != nil {
				return err
			}
			t.insertions.remove(key)
		}
		if err := t.exec(ctx, db, t.insertSQL(rec)); err != nil {
			return err
		}
		if delRec.Equal(rec) {
			// Original row restored.
			t.deletions.remove(key)
		} else {
			t.insertions.put(key, rec)
		}
		return nil

	case inserted:
		if insRec.Equal(rec) {
			return nil
		}
		if err := t.exec(ctx, db, t.deleteSQL(key)); err != nil {
			return err
		}
		t.insertions.remove(key)

	default:
		found, ok, err := t.lookup(ctx, db, key)
		if err != nil {
			return err
		}
		if ok {
			if found.Equal(rec) {
				return nil
			}
			if err := t.exec(ctx, db, t.deleteSQL(key)); err != nil {
				return err
			}
			t.deletions.put(key, found)
		}
	}

	if err := t.exec(ctx, db, t.insertSQL(rec)); err != nil {
		return err
	}
	t.insertions.put(key, rec)
	return nil
}

// DeleteEntry removes the row identified by keyFields, which must name
// exactly the primary-key columns. Deleting a missing row is a no-op.
func (t *Table) DeleteEntry(ctx context.Context, db DBSession, keyFields ...schema.Field) error {
	key, err := t.schema.KeyFromFields(keyFields)
	if err != nil {
		return err
	}

	_, deleted := t.deletions.get(key)
	_, inserted := t.insertions.get(key)

	switch {
	case inserted:
		if err := t.exec(ctx, db, t.deleteSQL(key)); err != nil {
			return err
		}
		t.insertions.remove(key)

	case deleted:
		// Already gone.

	default:
		found, ok, err := t.lookup(ctx, db, key)
		if err != nil || !ok {
			return err
		}
		if err := t.exec(ctx, db, t.deleteSQL(key)); err != nil {
			return err
		}
		t.deletions.put(key, found)
	}
	return nil
}

// TablePatch renders the session as a forward script: deletions first, then
// insertions, one statement per line in primary-key order.
func (t *Table) TablePatch() string {
	var b strings.Builder
	for _, r := range t.deletions.records() {
		b.WriteString(t.deleteSQL(t.schema.KeyOf(r)))
		b.WriteByte('\n')
	}
	for _, r := range t.insertions.records() {
		b.WriteString(t.insertSQL(r))
		b.WriteByte('\n')
	}
	return b.String()
}

// RollbackPatch renders the script that undoes TablePatch: session inserts
// are deleted, then original rows are restored.
func (t *Table) RollbackPatch() string {
	var b strings.Builder
	for _, r := range t.insertions.records() {
		b.WriteString(t.deleteSQL(t.schema.KeyOf(r)))
		b.WriteByte('\n')
	}
	for _, r := range t.deletions.records() {
		b.WriteString(t.insertSQL(r))
		b.WriteByte('\n')
	}
	return b.String()
}

// IsModified reports whether the session holds any pending change.
func (t *Table) IsModified() bool {
	return t.insertions.len() > 0 || t.deletions.len() > 0
}

// Insertions returns the rows written this session, in key order.
func (t *Table) Insertions() []schema.Record { return cloneAll(t.insertions.records()) }

// Deletions returns the original rows removed or replaced this session, in
// key order.
func (t *Table) Deletions() []schema.Record { return cloneAll(t.deletions.records()) }

// Max returns the largest value stored in column, or the column type's zero
// value when the query returns no row.
func (t *Table) Max(ctx context.Context, db DBSession, column string) (schema.Value, error) {
	col, ok := t.schema.Column(column)
	if !ok {
		return schema.Value{}, fmt.Errorf("%w: %s.%s", schema.ErrUnknownColumn, t.schema.Table(), column)
	}
	if err := t.exec(ctx, db, sqltext.Max(t.schema.Table(), col.Name)); err != nil {
		return schema.Value{}, err
	}
	if !db.Next() {
		return schema.Zero(col.Type), nil
	}
	return readValue(db, 0, col).Value, nil
}

func (t *Table) exec(ctx context.Context, db DBSession, stmt string) error {
	logging.FromContext(ctx).Debug("execute", "table", t.schema.Table(), "sql", stmt)
	db.Execute(ctx, stmt)
	if !db.Succeeded() {
		return &StatementError{Statement: stmt, Err: db.Err()}
	}
	return nil
}

// lookup selects the row stored under key. A missing row is not an error.
func (t *Table) lookup(ctx context.Context, db DBSession, key schema.Key) (schema.Record, bool, error) {
	stmt := sqltext.Select(t.schema.Table(), t.schema.Columns(), t.schema.KeyColumns(), key)
	if err := t.exec(ctx, db, stmt); err != nil {
		return nil, false, err
	}
	if !db.Next() {
		return nil, false, nil
	}

	fields := make([]schema.Field, t.schema.Len())
	for i, c := range t.schema.Columns() {
		fields[i] = readValue(db, i, c)
	}
	rec, err := schema.NewBuilder(t.schema, schema.ZeroRecord(t.schema)).Apply(fields...).Record()
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// readValue reads column i of the current row using the accessor that
// matches the column type. Booleans are stored as integers.
func readValue(db DBSession, i int, c schema.Column) schema.Field {
	switch c.Type {
	case schema.TypeInt:
		return schema.Int(c.Name, db.IntAt(i))
	case schema.TypeLong:
		return schema.Long(c.Name, db.LongAt(i))
	case schema.TypeFloat:
		return schema.Float(c.Name, db.FloatAt(i))
	case schema.TypeBool:
		return schema.Bool(c.Name, db.IntAt(i) != 0)
	default:
		return schema.Str(c.Name, db.StringAt(i))
	}
}

func (t *Table) insertSQL(r schema.Record) string {
	return sqltext.Insert(t.schema.Table(), t.schema.Columns(), r)
}

func (t *Table) deleteSQL(k schema.Key) string {
	return sqltext.Delete(t.schema.Table(), t.schema.KeyColumns(), k)
}

func cloneAll(rs []schema.Record) []schema.Record {
	out := make([]schema.Record, len(rs))
	for i, r := range rs {
		out[i] = r.Clone()
	}
	return out
}
