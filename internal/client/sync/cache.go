// Package sync keeps the client's in-memory note cache consistent with
// the remote store: one live subscription per identity, full-replace
// reconciliation on every snapshot, teardown on sign-out.
package sync

import (
	"sync"

	"github.com/mkorchagin/quicknotes/internal/wire"
)

// Cache is the ordered mirror of the remote collection. It is derived
// and disposable: every snapshot replaces its contents wholesale, and
// the remote order (updatedAt descending) is preserved as delivered.
// Nothing ever merges into it, so stale local copies cannot linger.
type Cache struct {
	mu       sync.RWMutex
	notes    []wire.Note
	onChange []func()
}

func NewCache() *Cache {
	return &Cache{}
}

// OnChange registers fn to run after every Replace and Clear. This is
// the re-render trigger; the renderer reads the cache back on its own.
func (c *Cache) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = append(c.onChange, fn)
	c.mu.Unlock()
}

// Replace substitutes the entire cache contents with the snapshot.
func (c *Cache) Replace(snapshot []wire.Note) {
	notes := make([]wire.Note, len(snapshot))
	copy(notes, snapshot)

	c.mu.Lock()
	c.notes = notes
	fns := c.onChange
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Clear empties the cache. Used on sign-out and on fatal subscription
// errors.
func (c *Cache) Clear() {
	c.Replace(nil)
}

// Notes returns a copy of the cached collection in delivery order.
func (c *Cache) Notes() []wire.Note {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]wire.Note, len(c.notes))
	copy(out, c.notes)
	return out
}

// Get looks a note up by id.
func (c *Cache) Get(id string) (wire.Note, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, n := range c.notes {
		if n.ID == id {
			return n, true
		}
	}
	return wire.Note{}, false
}

// Contains reports whether id is present.
func (c *Cache) Contains(id string) bool {
	_, ok := c.Get(id)
	return ok
}

// Len returns the number of cached notes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.notes)
}
