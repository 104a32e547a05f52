package core

// scheduler.go runs the session autosave job.
//
// While the service runs, the job periodically writes the current session
// scripts to autosave.patch.sql and autosave.rollback.sql so a crash loses at
// most one interval of edits. The files exist only while the session has
// pending changes; CommitSession and an unmodified tick remove them.
// Failures are logged and never stop the job.

import (
	"context"
	"log/slog"
	"time"
)

// StartAutosave blocks, writing the session every interval until ctx is
// cancelled, then writes it one last time.
func (s *Service) StartAutosave(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	slog.Info("autosave started", "interval", interval.String(), "dir", s.cfg.Session.Dir)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.runAutosave()
			slog.Info("autosave stopped")
			return
		case <-ticker.C:
			s.runAutosave()
		}
	}
}

// runAutosave performs one autosave. It reports whether files were written.
func (s *Service) runAutosave() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// An unmodified session has nothing to recover. Stale scripts from
	// edits that were since undone must not outlive it.
	if !s.modified() {
		if err := s.removeAutosave(); err != nil {
			slog.Error("remove stale autosave", "error", err)
		}
		return false
	}

	start := time.Now()
	files, err := s.writeSession(AutosaveName)
	if err != nil {
		slog.Error("autosave failed", "error", err)
		return false
	}
	slog.Debug("session autosaved",
		"patch", files.Patch,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return true
}
