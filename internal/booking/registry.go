package booking

import (
	"sync"

	"github.com/MrWong99/frontdesk/internal/calendar"
)

// Registry maps the short slot identifiers spoken to the user back to the
// underlying calendar slots. It only ever grows for the lifetime of a
// session: identifiers issued by earlier listings stay resolvable after later
// listings, so the user may still pick a slot mentioned minutes ago.
//
// Identifiers are content-derived (see calendar.Slot.UniqueHash), so the same
// slot re-listed maps to the same identifier and the first write wins.
type Registry struct {
	mu    sync.RWMutex
	slots map[string]calendar.Slot
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[string]calendar.Slot)}
}

// Put records a slot under its identifier. An identifier already present is
// left untouched.
func (r *Registry) Put(slot calendar.Slot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := slot.UniqueHash()
	if _, ok := r.slots[id]; !ok {
		r.slots[id] = slot
	}
}

// Get resolves an identifier to its slot. The boolean is false when the
// identifier was never issued.
func (r *Registry) Get(id string) (calendar.Slot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slot, ok := r.slots[id]
	return slot, ok
}

// Len returns the number of distinct identifiers issued so far.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots)
}
