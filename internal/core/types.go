package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/dbpatch/internal/schema"
)

// DBSession is the database capability the table engine drives.
//
// Execute runs one statement and buffers its result. Succeeded reports
// whether the last Execute completed without error and Err returns that error.
// Next advances to the next buffered row. The typed accessors read a column of
// the current row and return the zero value when i is out of range.
//
// Satisfied by database.PgSession and database.MemSession.
type DBSession interface {
	Execute(ctx context.Context, stmt string)
	Succeeded() bool
	Err() error
	Next() bool
	StringAt(i int) string
	IntAt(i int) int32
	LongAt(i int) int64
	FloatAt(i int) float32
}

var (
	// ErrUnknownTable is returned when a table name is not registered.
	ErrUnknownTable = errors.New("unknown table")

	// ErrNothingToSave is returned when a save is requested for an
	// unmodified session.
	ErrNothingToSave = errors.New("nothing to save: session has no changes")
)

// StatementError reports a statement the database session did not accept.
type StatementError struct {
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("statement failed: %s", e.Statement)
	}
	return fmt.Sprintf("statement failed: %s: %v", e.Statement, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// TableDefinition registers one editable table.
type TableDefinition struct {
	Schema *schema.Schema
	Group  string // Data source, e.g. "World"
	Label  string // Display name
}

// Key returns the registry key, which is the table name.
func (d TableDefinition) Key() string { return d.Schema.Table() }

// TableStatus is a per-table summary of pending changes.
type TableStatus struct {
	Table      string `json:"table"`
	Group      string `json:"group"`
	Label      string `json:"label"`
	Insertions int    `json:"insertions"`
	Deletions  int    `json:"deletions"`
	Modified   bool   `json:"modified"`
}

// SessionStatus summarises the whole editing session.
type SessionStatus struct {
	Modified bool          `json:"modified"`
	Tables   []TableStatus `json:"tables"`
}

// ColumnInfo describes one column for API clients.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int    `json:"size,omitempty"`
	Key  bool   `json:"key"`
}

// TableDetail is the full view of one table: schema, defaults and the rows
// pending in the session.
type TableDetail struct {
	TableStatus
	Columns  []ColumnInfo     `json:"columns"`
	Defaults map[string]any   `json:"defaults"`
	Inserted []map[string]any `json:"inserted"`
	Deleted  []map[string]any `json:"deleted"`
}

// SessionFiles names the files written by a session save.
type SessionFiles struct {
	ID       string `json:"id"`
	Patch    string `json:"patch"`
	Rollback string `json:"rollback"`
}
