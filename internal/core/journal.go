package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JournalAction is the kind of change recorded in the edit journal.
type JournalAction string

const (
	ActionInsert     JournalAction = "insert"
	ActionDelete     JournalAction = "delete"
	ActionSetDefault JournalAction = "set_default"
	ActionImport     JournalAction = "import"
	ActionSave       JournalAction = "save"
	ActionCommit     JournalAction = "commit"
)

// DefaultJournalSize is the number of entries the journal retains.
const DefaultJournalSize = 1000

// JournalEntry records one successful change to the editing session.
type JournalEntry struct {
	ID        string        `json:"id"`
	Action    JournalAction `json:"action"`
	Table     string        `json:"table,omitempty"`
	Key       string        `json:"key,omitempty"`
	Rows      int           `json:"rows,omitempty"`
	SessionID string        `json:"sessionId,omitempty"`
	IPAddress string        `json:"ipAddress,omitempty"`
	UserAgent string        `json:"userAgent,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// journal is a bounded, in-memory record of session changes. It survives
// CommitSession so the history of earlier sessions stays visible.
type journal struct {
	mu      sync.Mutex
	entries []JournalEntry
	max     int
}

func newJournal(max int) *journal {
	if max <= 0 {
		max = DefaultJournalSize
	}
	return &journal{max: max}
}

func (j *journal) add(ctx context.Context, e JournalEntry) {
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()
	e.IPAddress = GetIPAddressFromContext(ctx)
	e.UserAgent = GetUserAgentFromContext(ctx)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	if over := len(j.entries) - j.max; over > 0 {
		j.entries = append(j.entries[:0:0], j.entries[over:]...)
	}
}

// recent returns up to limit entries, newest first. A limit <= 0 returns all.
func (j *journal) recent(limit int) []JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()

	n := len(j.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]JournalEntry, n)
	for i := 0; i < n; i++ {
		out[i] = j.entries[len(j.entries)-1-i]
	}
	return out
}

// Journal returns the most recent session changes, newest first.
func (s *Service) Journal(limit int) []JournalEntry {
	return s.journal.recent(limit)
}
