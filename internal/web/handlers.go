package web

import (
	"net/http"

	"github.com/JonMunkholm/dbpatch/internal/core"
	"github.com/JonMunkholm/dbpatch/internal/web/templates"
)

// handleReview renders the review page: every registered table grouped as in
// the registry, with its pending patch and rollback scripts.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	status := s.service.Status()
	byTable := make(map[string]core.TableStatus, len(status.Tables))
	for _, ts := range status.Tables {
		byTable[ts.Table] = ts
	}

	var groups []templates.TableGroup
	for _, groupName := range core.Groups() {
		defs := core.ByGroup(groupName)
		cards := make([]templates.TableCard, 0, len(defs))
		for _, def := range defs {
			card := templates.TableCard{Status: byTable[def.Key()]}
			if card.Status.Modified {
				// Both reads only fail for unknown tables, and def came from the registry.
				card.Patch, _ = s.service.TablePatch(def.Key())
				card.Rollback, _ = s.service.RollbackPatch(def.Key())
			}
			cards = append(cards, card)
		}
		groups = append(groups, templates.TableGroup{Name: groupName, Tables: cards})
	}

	page := templates.ReviewData{
		Modified: status.Modified,
		Groups:   groups,
		Journal:  s.service.Journal(20),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ReviewPage(page).Render(r.Context(), w); err != nil {
		s.fail(w, r, err)
	}
}

// handleListTables returns the status of every registered table.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Status().Tables)
}

// handleDescribeTable returns the columns, defaults and pending rows of a table.
func (s *Server) handleDescribeTable(w http.ResponseWriter, r *http.Request) {
	def, err := tableDef(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	detail, err := s.service.Describe(def.Key())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}
