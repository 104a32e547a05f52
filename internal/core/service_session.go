package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/dbpatch/internal/logging"
	"github.com/google/uuid"
)

// AutosaveName is the file stem used by the autosave job.
const AutosaveName = "autosave"

// SaveSession writes the session patch and rollback scripts to the session
// directory under a new id. The session itself is left untouched.
func (s *Service) SaveSession(ctx context.Context) (SessionFiles, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.modified() {
		return SessionFiles{}, ErrNothingToSave
	}
	files, err := s.writeSession(newSessionID())
	if err != nil {
		return SessionFiles{}, err
	}

	s.journal.add(ctx, JournalEntry{Action: ActionSave, SessionID: files.ID})
	logging.WithFields(ctx, "session_id", files.ID, "patch", files.Patch).Info("session saved")
	return files, nil
}

// CommitSession saves the session and then discards every table engine, so
// the next edit starts a fresh session against the current database state.
// Defaults set with SetDefault are discarded with their engines.
func (s *Service) CommitSession(ctx context.Context) (SessionFiles, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return SessionFiles{}, err
	}
	defer s.limiter.Release()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.modified() {
		return SessionFiles{}, ErrNothingToSave
	}
	files, err := s.writeSession(newSessionID())
	if err != nil {
		return SessionFiles{}, err
	}
	s.tables = make(map[string]*Table)

	// The autosave copy now describes a committed session.
	if err := s.removeAutosave(); err != nil {
		logging.FromContext(ctx).Error("remove autosave after commit", "error", err)
	}

	s.journal.add(ctx, JournalEntry{Action: ActionCommit, SessionID: files.ID})
	logging.WithFields(ctx, "session_id", files.ID, "patch", files.Patch).Info("session committed")
	return files, nil
}

// newSessionID returns a sortable, unique id such as
// 20260412T093015Z-1b4e28ba.
func newSessionID() string {
	return time.Now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
}

// writeSession writes <dir>/<name>.patch.sql and <dir>/<name>.rollback.sql.
// The caller must hold s.mu.
func (s *Service) writeSession(name string) (SessionFiles, error) {
	dir := s.cfg.Session.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return SessionFiles{}, fmt.Errorf("create session directory: %w", err)
	}

	files := SessionFiles{
		ID:       name,
		Patch:    filepath.Join(dir, name+".patch.sql"),
		Rollback: filepath.Join(dir, name+".rollback.sql"),
	}
	if err := s.writeScript(files.Patch, s.sessionText((*Table).TablePatch)); err != nil {
		return SessionFiles{}, err
	}
	if err := s.writeScript(files.Rollback, s.sessionText((*Table).RollbackPatch)); err != nil {
		return SessionFiles{}, err
	}
	return files, nil
}

// removeAutosave deletes the autosave scripts, if present. The caller must
// hold s.mu.
func (s *Service) removeAutosave() error {
	dir := s.cfg.Session.Dir
	if dir == "" {
		dir = "."
	}
	var errs []error
	for _, suffix := range []string{".patch.sql", ".rollback.sql"} {
		err := os.Remove(filepath.Join(dir, AutosaveName+suffix))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// writeScript writes body wrapped in the configured prepend/append text,
// replacing path atomically.
func (s *Service) writeScript(path, body string) error {
	content := s.cfg.Session.Prepend + body + s.cfg.Session.Append

	tmp, err := os.CreateTemp(filepath.Dir(path), ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
