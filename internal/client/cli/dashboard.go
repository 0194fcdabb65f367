package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mkorchagin/quicknotes/internal/client/editor"
	"github.com/mkorchagin/quicknotes/internal/wire"
)

// render redraws the current view. It runs on every cache replacement
// (the sync core's re-render trigger) and after local state changes.
func (a *App) render() {
	if id := a.state.CurrentNoteID(); id != "" {
		if note, ok := a.state.CurrentNote(); ok {
			fmt.Printf("\n-- %s [%s] %s\n", displayTitle(note), a.state.Mode(), a.saveBadge())
		}
		return
	}
	a.renderDashboard()
}

func (a *App) renderDashboard() {
	notes := a.state.Visible()
	term := a.state.SearchTerm()

	if term != "" {
		fmt.Printf("\nNotes matching %q:\n", term)
	} else {
		fmt.Println("\nNotes:")
	}

	if len(notes) == 0 {
		fmt.Println("  (none)")
		return
	}

	for i, n := range notes {
		updated := ""
		if t := n.UpdatedAtTime(); !t.IsZero() {
			updated = t.Format("2006-01-02 15:04")
		}
		fmt.Printf("  %2d. %-30s %s\n", i+1, displayTitle(n), updated)
	}
}

func (a *App) saveBadge() string {
	switch a.autosave.Status() {
	case editor.StatusSaving:
		return "(saving...)"
	case editor.StatusSaved:
		return "(saved)"
	case editor.StatusError:
		return "(save failed)"
	default:
		return ""
	}
}

func displayTitle(n wire.Note) string {
	if strings.TrimSpace(n.Title) == "" {
		return "(untitled)"
	}
	return n.Title
}

func (a *App) list(ctx context.Context) {
	a.renderDashboard()
}

// search sets the dashboard filter and redraws. An empty argument clears
// the filter.
func (a *App) search(ctx context.Context, args []string) {
	a.state.SetSearchTerm(strings.Join(args, " "))
	a.renderDashboard()
}

// resolveNote maps a user-supplied reference (dashboard number or id
// prefix) onto a cached note.
func (a *App) resolveNote(ref string) (wire.Note, bool) {
	notes := a.state.Visible()

	if idx, err := strconv.Atoi(ref); err == nil {
		if idx >= 1 && idx <= len(notes) {
			return notes[idx-1], true
		}
		return wire.Note{}, false
	}

	for _, n := range notes {
		if n.ID == ref || strings.HasPrefix(n.ID, ref) {
			return n, true
		}
	}
	return wire.Note{}, false
}
