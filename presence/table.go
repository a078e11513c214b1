package presence

import (
	"sync"

	"lovewire/domain"
)

// Table is the last-write-wins presence status table. Only the presence
// manager writes it; everyone else reads snapshots. Entries are never
// removed during a session and carry no TTL: stale entries persist until a
// later broadcast overwrites them.
type Table struct {
	mu       sync.RWMutex
	statuses map[string]domain.Status
}

func NewTable() *Table {
	return &Table{statuses: make(map[string]domain.Status)}
}

func (t *Table) Upsert(status domain.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses[status.UserID] = status
}

func (t *Table) Get(userID string) (domain.Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	status, ok := t.statuses[userID]
	return status, ok
}

// Snapshot returns a copy of the whole table.
func (t *Table) Snapshot() map[string]domain.Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]domain.Status, len(t.statuses))
	for id, status := range t.statuses {
		out[id] = status
	}
	return out
}
