package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/dbpatch/internal/logging"
	"github.com/JonMunkholm/dbpatch/internal/schema"
)

// SessionConfig controls where and how session scripts are written.
type SessionConfig struct {
	Dir     string // Directory for saved session files
	Prepend string // Text written before every saved script
	Append  string // Text written after every saved script
}

// Config holds service settings.
type Config struct {
	MaxWait     time.Duration // How long an edit waits for the database session
	JournalSize int           // Entries kept in the edit journal; 0 uses DefaultJournalSize
	Session     SessionConfig
}

// Service is the editing session over every registered table. It owns one
// table engine per table, created on first use, and serializes all access to
// the shared database session.
type Service struct {
	db      DBSession
	limiter *EditLimiter
	journal *journal
	cfg     Config

	// mu guards engine state. Edits hold it exclusively; patch rendering and
	// status reads share it.
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewService creates a service editing through db.
func NewService(db DBSession, cfg Config) *Service {
	return &Service{
		db:      db,
		limiter: NewEditLimiter(cfg.MaxWait),
		journal: newJournal(cfg.JournalSize),
		cfg:     cfg,
		tables:  make(map[string]*Table),
	}
}

// Limiter exposes the session limiter for graceful shutdown.
func (s *Service) Limiter() *EditLimiter { return s.limiter }

// engine returns the table engine for name, creating it on first use.
// The caller must hold s.mu.
func (s *Service) engine(name string) (*Table, error) {
	def, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	t, ok := s.tables[name]
	if !ok {
		t = NewTable(def.Schema)
		s.tables[name] = t
	}
	return t, nil
}

// peek returns the engine for name if one exists, or a fresh unmodified one.
// The caller must hold s.mu for reading.
func (s *Service) peek(name string) (*Table, error) {
	def, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	if t, ok := s.tables[name]; ok {
		return t, nil
	}
	return NewTable(def.Schema), nil
}

// edit runs fn with the database session and exclusive engine access.
func (s *Service) edit(ctx context.Context, table string, fn func(*Table) error) error {
	if _, ok := Get(table); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return err
	}
	defer s.limiter.Release()

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.engine(table)
	if err != nil {
		return err
	}
	return fn(t)
}

// InsertEntry writes a row to table. Fields must cover the primary key;
// unspecified columns come from the table defaults.
func (s *Service) InsertEntry(ctx context.Context, table string, fields []schema.Field) error {
	start := time.Now()
	log := s.editLogger(ctx, table, "insert", fields)

	err := s.edit(ctx, table, func(t *Table) error {
		return t.InsertEntry(ctx, s.db, fields...)
	})
	if err != nil {
		log.Warn("edit failed", "error", err)
		return fmt.Errorf("insert into %s: %w", table, err)
	}

	s.journal.add(ctx, JournalEntry{Action: ActionInsert, Table: table, Key: keyOf(table, fields)})
	log.Info("entry written", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// DeleteEntry removes the row identified by the key fields.
func (s *Service) DeleteEntry(ctx context.Context, table string, keyFields []schema.Field) error {
	start := time.Now()
	log := s.editLogger(ctx, table, "delete", keyFields)

	err := s.edit(ctx, table, func(t *Table) error {
		return t.DeleteEntry(ctx, s.db, keyFields...)
	})
	if err != nil {
		log.Warn("edit failed", "error", err)
		return fmt.Errorf("delete from %s: %w", table, err)
	}

	s.journal.add(ctx, JournalEntry{Action: ActionDelete, Table: table, Key: keyOf(table, keyFields)})
	log.Info("entry deleted", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// SetDefault overrides default column values for later partial edits.
func (s *Service) SetDefault(ctx context.Context, table string, fields []schema.Field) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.engine(table)
	if err != nil {
		return err
	}
	if err := t.SetDefault(fields...); err != nil {
		return fmt.Errorf("set defaults for %s: %w", table, err)
	}

	s.journal.add(ctx, JournalEntry{Action: ActionSetDefault, Table: table})
	logging.WithFields(ctx, "table", table, "columns", fieldNames(fields)).Info("defaults updated")
	return nil
}

// Max returns the largest stored value of column.
func (s *Service) Max(ctx context.Context, table, column string) (schema.Value, error) {
	var v schema.Value
	err := s.edit(ctx, table, func(t *Table) error {
		var err error
		v, err = t.Max(ctx, s.db, column)
		return err
	})
	if err != nil {
		return schema.Value{}, fmt.Errorf("max %s.%s: %w", table, column, err)
	}
	return v, nil
}

// TablePatch renders the forward script for one table.
func (s *Service) TablePatch(table string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.peek(table)
	if err != nil {
		return "", err
	}
	return t.TablePatch(), nil
}

// RollbackPatch renders the undo script for one table.
func (s *Service) RollbackPatch(table string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.peek(table)
	if err != nil {
		return "", err
	}
	return t.RollbackPatch(), nil
}

// SessionPatch renders the forward script for every table, in registry
// order.
func (s *Service) SessionPatch() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionText((*Table).TablePatch)
}

// SessionRollback renders the undo script for every table, in registry
// order.
func (s *Service) SessionRollback() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionText((*Table).RollbackPatch)
}

// sessionText concatenates per-table scripts. The caller must hold s.mu.
func (s *Service) sessionText(render func(*Table) string) string {
	var b strings.Builder
	for _, def := range All() {
		if t, ok := s.tables[def.Key()]; ok {
			b.WriteString(render(t))
		}
	}
	return b.String()
}

// IsModified reports whether any table has pending changes.
func (s *Service) IsModified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified()
}

func (s *Service) modified() bool {
	for _, t := range s.tables {
		if t.IsModified() {
			return true
		}
	}
	return false
}

// Status summarises pending changes for every registered table.
func (s *Service) Status() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	defs := All()
	status := SessionStatus{Tables: make([]TableStatus, 0, len(defs))}
	for _, def := range defs {
		ts := s.tableStatus(def)
		status.Modified = status.Modified || ts.Modified
		status.Tables = append(status.Tables, ts)
	}
	return status
}

// Describe returns the schema, defaults and pending rows of one table.
func (s *Service) Describe(table string) (TableDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := Get(table)
	if !ok {
		return TableDetail{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	t, err := s.peek(table)
	if err != nil {
		return TableDetail{}, err
	}

	sc := def.Schema
	detail := TableDetail{
		TableStatus: s.tableStatus(def),
		Columns:     make([]ColumnInfo, sc.Len()),
		Defaults:    t.Defaults().Map(sc),
		Inserted:    recordMaps(sc, t.Insertions()),
		Deleted:     recordMaps(sc, t.Deletions()),
	}
	for i, c := range sc.Columns() {
		detail.Columns[i] = ColumnInfo{
			Name: c.Name,
			Type: c.Type.String(),
			Size: c.Size,
			Key:  sc.IsKeyColumn(c.Name),
		}
	}
	return detail, nil
}

// tableStatus builds the summary for def. The caller must hold s.mu.
func (s *Service) tableStatus(def TableDefinition) TableStatus {
	ts := TableStatus{Table: def.Key(), Group: def.Group, Label: def.Label}
	if t, ok := s.tables[def.Key()]; ok {
		ts.Insertions = t.insertions.len()
		ts.Deletions = t.deletions.len()
		ts.Modified = t.IsModified()
	}
	return ts
}

func (s *Service) editLogger(ctx context.Context, table, op string, fields []schema.Field) *slog.Logger {
	args := []any{"table", table, "op", op, "key", keyOf(table, fields)}
	if ip := GetIPAddressFromContext(ctx); ip != "" {
		args = append(args, "ip", ip)
	}
	if ua := GetUserAgentFromContext(ctx); ua != "" {
		args = append(args, "user_agent", ua)
	}
	return logging.WithFields(ctx, args...)
}

func keyOf(table string, fields []schema.Field) string {
	if def, ok := Get(table); ok {
		return describeKey(def.Schema, fields)
	}
	return ""
}

// describeKey renders the primary-key fields among fields, e.g. "Entry=5".
func describeKey(sc *schema.Schema, fields []schema.Field) string {
	var parts []string
	for _, f := range fields {
		if sc.IsKeyColumn(f.Column) {
			parts = append(parts, f.Column+"="+f.Value.String())
		}
	}
	return strings.Join(parts, ",")
}

func fieldNames(fields []schema.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Column
	}
	return names
}

func recordMaps(sc *schema.Schema, rs []schema.Record) []map[string]any {
	out := make([]map[string]any, len(rs))
	for i, r := range rs {
		out[i] = r.Map(sc)
	}
	return out
}
