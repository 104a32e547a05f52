package web

// handlers_common.go holds request decoding helpers shared across handlers.

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/dbpatch/internal/core"
	"github.com/JonMunkholm/dbpatch/internal/schema"
	"github.com/go-chi/chi/v5"
)

// maxJSONBody limits edit request bodies.
const maxJSONBody = 1 << 20

// entryRequest is the body of insert and set-default requests.
type entryRequest struct {
	Fields map[string]any `json:"fields"`
}

// keyRequest is the body of delete requests.
type keyRequest struct {
	Key map[string]any `json:"key"`
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// errorf builds a bad-request error.
func errorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errBadRequest}, args...)...)
}

// decodeJSON reads a JSON body into v. Numbers are kept as json.Number so
// 64-bit columns survive the round trip.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errorf("%v", err)
	}
	return nil
}

// tableDef resolves the {table} URL parameter.
func tableDef(r *http.Request) (core.TableDefinition, error) {
	name := chi.URLParam(r, "table")
	def, ok := core.Get(name)
	if !ok {
		return core.TableDefinition{}, fmt.Errorf("%w: %s", core.ErrUnknownTable, name)
	}
	return def, nil
}

// fieldsFrom converts a JSON object to fields, rejecting an empty object.
func fieldsFrom(sc *schema.Schema, obj map[string]any, what string) ([]schema.Field, error) {
	if len(obj) == 0 {
		return nil, errorf("%s is empty", what)
	}
	return core.FieldsFromJSON(sc, obj)
}

// tableStatus returns the status entry for one table.
func (s *Server) tableStatus(table string) core.TableStatus {
	for _, ts := range s.service.Status().Tables {
		if ts.Table == table {
			return ts
		}
	}
	return core.TableStatus{Table: table}
}
