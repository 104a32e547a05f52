package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// defaultJournalLimit caps journal responses when no limit is given.
const defaultJournalLimit = 100

// maxResponse is the body of GET /api/tables/{table}/max/{column}.
type maxResponse struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Value  any    `json:"value"`
}

// handleMax returns the live maximum of a numeric column.
func (s *Server) handleMax(w http.ResponseWriter, r *http.Request) {
	def, err := tableDef(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	column := chi.URLParam(r, "column")

	v, err := s.service.Max(r.Context(), def.Key(), column)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, maxResponse{Table: def.Key(), Column: column, Value: v.Any()})
}

// handleTablePatch returns the forward script of one table.
func (s *Server) handleTablePatch(w http.ResponseWriter, r *http.Request) {
	def, err := tableDef(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	patch, err := s.service.TablePatch(def.Key())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeText(w, patch)
}

// handleTableRollback returns the inverse script of one table.
func (s *Server) handleTableRollback(w http.ResponseWriter, r *http.Request) {
	def, err := tableDef(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	rollback, err := s.service.RollbackPatch(def.Key())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeText(w, rollback)
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Status())
}

func (s *Server) handleSessionPatch(w http.ResponseWriter, r *http.Request) {
	writeText(w, s.service.SessionPatch())
}

func (s *Server) handleSessionRollback(w http.ResponseWriter, r *http.Request) {
	writeText(w, s.service.SessionRollback())
}

// handleJournal lists recent edits, newest first.
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", defaultJournalLimit)
	writeJSON(w, http.StatusOK, s.service.Journal(limit))
}

// handleSaveSession writes the session scripts without touching the edits.
func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	files, err := s.service.SaveSession(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// handleCommitSession writes the session scripts and starts a new session.
func (s *Server) handleCommitSession(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	files, err := s.service.CommitSession(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}
