package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/mkorchagin/quicknotes/internal/client/editor"
	"github.com/mkorchagin/quicknotes/internal/wire"
)

// open enters the editor for a note referenced by dashboard number or id
// prefix. A reference that no longer resolves (deleted remotely between
// render and command) leaves the user on the dashboard.
func (a *App) open(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: open <number|id>")
		return
	}

	note, ok := a.resolveNote(args[0])
	if !ok || !a.state.Open(note.ID) {
		fmt.Println("No such note (it may have been deleted).")
		return
	}

	a.showNote(note.ID)
}

// newNote creates an empty note remotely and opens it once the id comes
// back. The snapshot carrying the new note follows on the subscription.
func (a *App) newNote(ctx context.Context) {
	adapter := a.coordinator.Adapter()
	if adapter == nil {
		fmt.Println("Not connected.")
		return
	}

	title, err := getSimpleText(a.reader, "Enter title (optional)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	id, err := adapter.Create(ctx, wire.NoteFields{Title: title})
	if err != nil {
		log.Printf("Create failed: %s", err.Error())
		return
	}

	// The ack and the confirming snapshot arrive on separate frames, so
	// the cache may not hold the new id yet; wait for the snapshot to
	// land before entering the editor.
	if a.awaitNote(id, createSettle) && a.state.Open(id) {
		a.showNote(id)
	} else {
		fmt.Println("Note created; it will appear in the list shortly.")
	}
}

// createSettle bounds how long newNote waits for the snapshot carrying
// a freshly created note.
const createSettle = 2 * time.Second

// awaitNote polls the cache until id appears or the timeout elapses.
func (a *App) awaitNote(id string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if a.cache.Contains(id) {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (a *App) showNote(id string) {
	note, ok := a.cache.Get(id)
	if !ok {
		return
	}
	fmt.Printf("\n-- %s %s\n", displayTitle(note), a.saveBadge())
	if note.Content != "" {
		fmt.Println(note.Content)
	}
	fmt.Println("(commands: edit, title, preview, back, delete)")
}

// draftFields returns the open note's writable fields with any
// un-flushed autosave edit overlaid. A follow-up edit inside the
// debounce window must build on the pending fields, not on the cache,
// which cannot reflect them yet.
func (a *App) draftFields(note wire.Note) wire.NoteFields {
	if pending, ok := a.autosave.Pending(note.ID); ok {
		return pending
	}
	return wire.NoteFields{Title: note.Title, Content: note.Content}
}

// editContent reads a replacement body for the open note and schedules
// an autosave carrying the note id captured now.
func (a *App) editContent(ctx context.Context) {
	note, ok := a.state.CurrentNote()
	if !ok {
		fmt.Println("No note is open.")
		return
	}

	content, err := getMultiline(a.reader, "Enter content", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	fields := a.draftFields(note)
	fields.Content = content
	a.autosave.Schedule(note.ID, fields)
}

// editTitle renames the open note through the same debounced write path.
func (a *App) editTitle(ctx context.Context) {
	note, ok := a.state.CurrentNote()
	if !ok {
		fmt.Println("No note is open.")
		return
	}

	title, err := getSimpleText(a.reader, "Enter new title", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	fields := a.draftFields(note)
	fields.Title = title
	a.autosave.Schedule(note.ID, fields)
}

// preview toggles edit/preview mode. Markdown is rendered only on the
// switch into preview, never while editing.
func (a *App) preview(ctx context.Context) {
	note, ok := a.state.CurrentNote()
	if !ok {
		fmt.Println("No note is open.")
		return
	}

	if mode := a.state.TogglePreview(); mode == editor.ModeEdit {
		a.showNote(note.ID)
		return
	}

	fmt.Printf("\n-- %s [preview]\n", displayTitle(note))
	fmt.Println(a.renderer.Render(note.Content))
}

// back returns to the dashboard. A pending autosave stays armed; its
// fire-time check sees the note is no longer open and aborts, so leaving
// the editor quickly never misdirects a write.
func (a *App) back(ctx context.Context) {
	a.state.CloseNote()
	a.renderDashboard()
}

// deleteNote runs the delete confirmation flow for the referenced note,
// or for the open note when no reference is given.
func (a *App) deleteNote(ctx context.Context, args []string) {
	var id string
	if len(args) > 0 {
		note, ok := a.resolveNote(args[0])
		if !ok {
			fmt.Println("No such note.")
			return
		}
		id = note.ID
	} else {
		id = a.state.CurrentNoteID()
		if id == "" {
			fmt.Println("Usage: delete <number|id>")
			return
		}
	}

	a.state.RequestDelete(id)

	answer, err := getSimpleText(a.reader, "Delete this note? (y/n)", os.Stdout)
	if err != nil || strings.ToLower(answer) != "y" {
		a.state.CancelDelete()
		return
	}

	confirmed, ok := a.state.ConfirmDelete()
	if !ok {
		return
	}

	adapter := a.coordinator.Adapter()
	if adapter == nil {
		return
	}
	if err := adapter.Delete(ctx, confirmed); err != nil {
		log.Printf("Delete failed: %s", err.Error())
		return
	}
	fmt.Println("Deleted.")
}
