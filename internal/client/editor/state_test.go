package editor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkorchagin/quicknotes/internal/wire"
)

// fakeCache is a minimal CacheView backed by a slice.
type fakeCache struct {
	notes []wire.Note
}

func (f *fakeCache) Notes() []wire.Note { return f.notes }

func (f *fakeCache) Get(id string) (wire.Note, bool) {
	for _, n := range f.notes {
		if n.ID == id {
			return n, true
		}
	}
	return wire.Note{}, false
}

func (f *fakeCache) Contains(id string) bool {
	_, ok := f.Get(id)
	return ok
}

func TestState_OpenMissingNoteStaysAtDashboard(t *testing.T) {
	cache := &fakeCache{notes: []wire.Note{{ID: "a"}}}
	s := NewState(cache)

	require.False(t, s.Open("gone"))
	require.Equal(t, "", s.CurrentNoteID())

	require.True(t, s.Open("a"))
	require.Equal(t, "a", s.CurrentNoteID())
	require.Equal(t, ModeEdit, s.Mode())
}

func TestState_TogglePreview(t *testing.T) {
	cache := &fakeCache{notes: []wire.Note{{ID: "a"}}}
	s := NewState(cache)

	// No note open: toggling is a no-op.
	require.Equal(t, ModeEdit, s.TogglePreview())

	s.Open("a")
	require.Equal(t, ModePreview, s.TogglePreview())
	require.Equal(t, ModeEdit, s.TogglePreview())
}

func TestState_DeleteConfirmFlow(t *testing.T) {
	cache := &fakeCache{notes: []wire.Note{{ID: "a"}, {ID: "b"}}}
	s := NewState(cache)
	s.Open("a")

	// Cancel clears the overlay and changes nothing else.
	s.RequestDelete("b")
	require.Equal(t, "b", s.PendingDeleteID())
	s.CancelDelete()
	require.Equal(t, "", s.PendingDeleteID())
	require.Equal(t, "a", s.CurrentNoteID())

	// Confirming a non-open note leaves the editor where it is.
	s.RequestDelete("b")
	id, ok := s.ConfirmDelete()
	require.True(t, ok)
	require.Equal(t, "b", id)
	require.Equal(t, "a", s.CurrentNoteID())

	// Confirming the open note returns to the dashboard.
	s.RequestDelete("a")
	id, ok = s.ConfirmDelete()
	require.True(t, ok)
	require.Equal(t, "a", id)
	require.Equal(t, "", s.CurrentNoteID())

	// Nothing pending: confirm is a no-op.
	_, ok = s.ConfirmDelete()
	require.False(t, ok)
}

func TestState_ReconcileDropsVanishedNote(t *testing.T) {
	cache := &fakeCache{notes: []wire.Note{{ID: "a"}, {ID: "b"}}}
	s := NewState(cache)
	s.Open("a")
	s.RequestDelete("b")

	// Remote deletion by another session: the refreshed cache no longer
	// has either note.
	cache.notes = []wire.Note{{ID: "c"}}
	s.Reconcile()

	require.Equal(t, "", s.CurrentNoteID())
	require.Equal(t, "", s.PendingDeleteID())
}

func TestState_ReconcileKeepsSurvivingNote(t *testing.T) {
	cache := &fakeCache{notes: []wire.Note{{ID: "a"}}}
	s := NewState(cache)
	s.Open("a")

	cache.notes = []wire.Note{{ID: "a", Title: "renamed"}}
	s.Reconcile()

	require.Equal(t, "a", s.CurrentNoteID())
}

func TestState_VisibleAppliesSearchTerm(t *testing.T) {
	cache := &fakeCache{notes: []wire.Note{
		{ID: "a", Title: "Groceries", Content: "milk, eggs"},
		{ID: "b", Title: "Plan", Content: "roadmap"},
	}}
	s := NewState(cache)

	s.SetSearchTerm("milk")
	visible := s.Visible()
	require.Len(t, visible, 1)
	require.Equal(t, "a", visible[0].ID)

	s.SetSearchTerm("")
	require.Len(t, s.Visible(), 2)
}

func TestState_ResetDiscardsEverything(t *testing.T) {
	cache := &fakeCache{notes: []wire.Note{{ID: "a"}}}
	s := NewState(cache)
	s.Open("a")
	s.TogglePreview()
	s.RequestDelete("a")
	s.SetSearchTerm("x")

	s.Reset()

	require.Equal(t, "", s.CurrentNoteID())
	require.Equal(t, ModeEdit, s.Mode())
	require.Equal(t, "", s.PendingDeleteID())
	require.Equal(t, "", s.SearchTerm())
}
