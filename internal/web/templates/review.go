package templates

import (
	"context"
	"strconv"

	"github.com/JonMunkholm/dbpatch/internal/core"
	"github.com/a-h/templ"
)

// TableCard is one table on the review page.
type TableCard struct {
	Status   core.TableStatus
	Patch    string
	Rollback string
}

// TableGroup is a registry group and its tables.
type TableGroup struct {
	Name   string
	Tables []TableCard
}

// ReviewData is everything the review page shows.
type ReviewData struct {
	Modified bool
	Groups   []TableGroup
	Journal  []core.JournalEntry
}

const reviewStyle = `body{font-family:sans-serif;margin:2rem;color:#222}
.card{border:1px solid #ccc;border-radius:4px;padding:1rem;margin:0 0 1rem}
.card.modified{border-color:#c80}
pre{background:#f6f6f6;padding:.5rem;overflow-x:auto}
table.journal td{padding:0 .75rem 0 0}
.alert-error{color:#a00}`

// ReviewPage renders the pending changes of the session.
func ReviewPage(data ReviewData) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>dbpatch review</title><style>`)
		w.raw(reviewStyle)
		w.raw(`</style></head><body><h1>Session review</h1>`)

		if data.Modified {
			w.raw(`<p class="status">The session has unsaved changes.</p>`)
		} else {
			w.raw(`<p class="status">No pending changes.</p>`)
		}

		for _, g := range data.Groups {
			w.raw(`<section><h2>`)
			w.text(g.Name)
			w.raw(`</h2>`)
			for _, card := range g.Tables {
				tableCard(w, card)
			}
			w.raw(`</section>`)
		}

		journalTable(w, data.Journal)
		w.raw(`</body></html>`)
	})
}

func tableCard(w *writer, card TableCard) {
	ts := card.Status
	if ts.Modified {
		w.raw(`<div class="card modified"><h3>`)
	} else {
		w.raw(`<div class="card"><h3>`)
	}
	w.text(ts.Label)
	w.raw(` <small>`)
	w.text(ts.Table)
	w.raw(`</small></h3><p>`)
	w.text(strconv.Itoa(ts.Insertions) + " inserted, " + strconv.Itoa(ts.Deletions) + " deleted")
	w.raw(`</p>`)
	if ts.Modified {
		w.raw(`<h4>Patch</h4><pre>`)
		w.text(card.Patch)
		w.raw(`</pre><h4>Rollback</h4><pre>`)
		w.text(card.Rollback)
		w.raw(`</pre>`)
	}
	w.raw(`</div>`)
}

func journalTable(w *writer, entries []core.JournalEntry) {
	if len(entries) == 0 {
		return
	}
	w.raw(`<section><h2>Recent edits</h2><table class="journal">`)
	for _, e := range entries {
		w.raw(`<tr><td>`)
		w.text(e.CreatedAt.Format("15:04:05"))
		w.raw(`</td><td>`)
		w.text(string(e.Action))
		w.raw(`</td><td>`)
		w.text(e.Table)
		w.raw(`</td><td>`)
		switch {
		case e.Key != "":
			w.text(e.Key)
		case e.SessionID != "":
			w.text(e.SessionID)
		case e.Rows > 0:
			w.text(strconv.Itoa(e.Rows) + " rows")
		}
		w.raw(`</td></tr>`)
	}
	w.raw(`</table></section>`)
}
