// Package editor holds the client-side editing state: which note is
// open, edit/preview mode, the delete-confirmation overlay, the search
// term, and the autosave coordinator that flushes edits to the store.
package editor

import (
	"sync"

	"github.com/mkorchagin/quicknotes/internal/wire"
)

// Mode is the editor's display mode for the open note.
type Mode string

const (
	ModeEdit    Mode = "edit"
	ModePreview Mode = "preview"
)

// CacheView is the read-only slice of the note cache the state machine
// needs: existence checks when opening and reconciling, plus the full
// list for the dashboard projection.
type CacheView interface {
	Notes() []wire.Note
	Get(id string) (wire.Note, bool)
	Contains(id string) bool
}

// State is the editor session state machine. Dashboard is the state with
// an empty currentNoteID; Editor(id, mode) is a note open in one of two
// modes; the delete confirmation is an overlay orthogonal to both.
//
// currentNoteID is a non-owning reference into the cache: the note it
// names can vanish between events when another session deletes it, and
// Reconcile drops the reference when that happens.
type State struct {
	cache CacheView

	mu              sync.Mutex
	currentNoteID   string
	mode            Mode
	pendingDeleteID string
	searchTerm      string
}

func NewState(cache CacheView) *State {
	return &State{cache: cache, mode: ModeEdit}
}

// Open enters Editor(id, Edit) if id exists in the cache. A missing id
// leaves the state at Dashboard: the note may have been deleted remotely
// between render and click.
func (s *State) Open(id string) bool {
	if !s.cache.Contains(id) {
		return false
	}
	s.mu.Lock()
	s.currentNoteID = id
	s.mode = ModeEdit
	s.mu.Unlock()
	return true
}

// CloseNote returns to the Dashboard.
func (s *State) CloseNote() {
	s.mu.Lock()
	s.currentNoteID = ""
	s.mode = ModeEdit
	s.mu.Unlock()
}

// CurrentNoteID returns the open note id, or "" at the Dashboard.
func (s *State) CurrentNoteID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentNoteID
}

// CurrentNote resolves the open note against the cache.
func (s *State) CurrentNote() (wire.Note, bool) {
	id := s.CurrentNoteID()
	if id == "" {
		return wire.Note{}, false
	}
	return s.cache.Get(id)
}

// Mode returns the current editor mode.
func (s *State) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// TogglePreview flips Edit <-> Preview for the open note. Content is
// rendered only when the caller observes the switch into Preview; while
// typing nothing renders.
func (s *State) TogglePreview() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentNoteID == "" {
		return s.mode
	}
	if s.mode == ModeEdit {
		s.mode = ModePreview
	} else {
		s.mode = ModeEdit
	}
	return s.mode
}

// RequestDelete raises the confirmation overlay for id.
func (s *State) RequestDelete(id string) {
	s.mu.Lock()
	s.pendingDeleteID = id
	s.mu.Unlock()
}

// CancelDelete drops the overlay without touching anything else.
func (s *State) CancelDelete() {
	s.mu.Lock()
	s.pendingDeleteID = ""
	s.mu.Unlock()
}

// PendingDeleteID returns the id awaiting confirmation, or "".
func (s *State) PendingDeleteID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingDeleteID
}

// ConfirmDelete consumes the pending id and applies the state-machine
// transition: deleting the currently open note also returns to the
// Dashboard. The caller issues the actual delete call with the returned
// id.
func (s *State) ConfirmDelete() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.pendingDeleteID
	if id == "" {
		return "", false
	}
	s.pendingDeleteID = ""

	if s.currentNoteID == id {
		s.currentNoteID = ""
		s.mode = ModeEdit
	}
	return id, true
}

// SetSearchTerm updates the dashboard filter. It affects the projection
// only, never the cache.
func (s *State) SetSearchTerm(term string) {
	s.mu.Lock()
	s.searchTerm = term
	s.mu.Unlock()
}

// SearchTerm returns the current dashboard filter.
func (s *State) SearchTerm() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchTerm
}

// Visible returns the dashboard projection: the cache filtered by the
// current search term, order preserved.
func (s *State) Visible() []wire.Note {
	return Filter(s.cache.Notes(), s.SearchTerm())
}

// Reconcile re-checks the open note against a freshly replaced cache.
// If the note vanished (deleted by another session) the editor falls
// back to the Dashboard. Call it from the cache's change hook.
func (s *State) Reconcile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentNoteID != "" && !s.cache.Contains(s.currentNoteID) {
		s.currentNoteID = ""
		s.mode = ModeEdit
	}
	if s.pendingDeleteID != "" && !s.cache.Contains(s.pendingDeleteID) {
		s.pendingDeleteID = ""
	}
}

// Reset discards the whole session state. Used on sign-out.
func (s *State) Reset() {
	s.mu.Lock()
	s.currentNoteID = ""
	s.mode = ModeEdit
	s.pendingDeleteID = ""
	s.searchTerm = ""
	s.mu.Unlock()
}
