package web

import (
	"io"
	"mime"
	"net/http"
	"strings"
)

// handleInsertEntry writes one row. Body: {"fields": {"Entry": 5, "Name": "Wolf"}}.
func (s *Server) handleInsertEntry(w http.ResponseWriter, r *http.Request) {
	def, err := tableDef(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req entryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	fields, err := fieldsFrom(def.Schema, req.Fields, "fields")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if err := s.service.InsertEntry(ctx, def.Key(), fields); err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s.tableStatus(def.Key()))
}

// handleDeleteEntry removes one row. Body: {"key": {"Entry": 5}}.
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	def, err := tableDef(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req keyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	fields, err := fieldsFrom(def.Schema, req.Key, "key")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if err := s.service.DeleteEntry(ctx, def.Key(), fields); err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s.tableStatus(def.Key()))
}

// handleSetDefaults overrides default column values for later partial edits.
func (s *Server) handleSetDefaults(w http.ResponseWriter, r *http.Request) {
	def, err := tableDef(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req entryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	fields, err := fieldsFrom(def.Schema, req.Fields, "fields")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if err := s.service.SetDefault(ctx, def.Key(), fields); err != nil {
		s.fail(w, r, err)
		return
	}

	detail, err := s.service.Describe(def.Key())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail.Defaults)
}

// handleImport loads CSV rows into the table. The CSV is either the raw
// request body or the "file" part of a multipart form.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	def, err := tableDef(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Edit.MaxImportSize)

	var body io.Reader = r.Body
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		if err := r.ParseMultipartForm(s.cfg.Edit.MaxImportSize); err != nil {
			s.fail(w, r, errorf("file too large or invalid form: %v", err))
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			s.fail(w, r, errorf("missing file: %v", err))
			return
		}
		defer file.Close()
		body = file
	}

	ctx := WithRequestMetadata(r.Context(), r)
	result, err := s.service.ImportCSV(ctx, def.Key(), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
