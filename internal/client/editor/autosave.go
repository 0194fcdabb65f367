package editor

import (
	"context"
	"sync"
	"time"

	"github.com/mkorchagin/quicknotes/internal/logging"
	"github.com/mkorchagin/quicknotes/internal/wire"
)

// SaveStatus is the user-visible state of the autosave pipeline.
type SaveStatus string

const (
	StatusIdle   SaveStatus = ""
	StatusSaving SaveStatus = "saving"
	StatusSaved  SaveStatus = "saved"
	StatusError  SaveStatus = "error"
)

// Default timings: one quiet second commits a burst of keystrokes, the
// "saved" badge shows for two.
const (
	DefaultDebounce    = time.Second
	DefaultSavedNotice = 2 * time.Second
)

// UpdateFunc issues the single update-document call when the debounce
// fires. It is swapped per identity by the owning app.
type UpdateFunc func(ctx context.Context, noteID string, fields wire.NoteFields) error

// ValidateFunc reports whether noteID is still the note the user has
// open in an authenticated session. Checked again at fire time.
type ValidateFunc func(noteID string) bool

// Autosave debounces keystroke-level edits into update calls. At most
// one timer is armed at a time; each Schedule cancels and re-arms it, so
// only the last edit in a burst is persisted. The target note id is
// captured when the timer is armed and re-validated when it fires,
// closing the window where an edit to one note could be written to
// another opened moments later.
type Autosave struct {
	logger   logging.Logger
	debounce time.Duration
	notice   time.Duration
	validate ValidateFunc
	onStatus func(SaveStatus)

	mu     sync.Mutex
	update UpdateFunc
	status SaveStatus
	seq    uint64
	timer  *time.Timer
	revert *time.Timer
	noteID string
	fields wire.NoteFields
}

// NewAutosave builds a coordinator. onStatus (optional) observes status
// changes, driving the status indicator.
func NewAutosave(validate ValidateFunc, logger logging.Logger, onStatus func(SaveStatus)) *Autosave {
	return &Autosave{
		logger:   logger,
		debounce: DefaultDebounce,
		notice:   DefaultSavedNotice,
		validate: validate,
		onStatus: onStatus,
	}
}

// SetDebounce overrides the quiet period. Tests use short values.
func (a *Autosave) SetDebounce(d time.Duration) {
	a.mu.Lock()
	a.debounce = d
	a.mu.Unlock()
}

// SetUpdateFunc installs the write path for the current identity, or nil
// on sign-out.
func (a *Autosave) SetUpdateFunc(fn UpdateFunc) {
	a.mu.Lock()
	a.update = fn
	a.mu.Unlock()
}

// Status returns the current user-visible save status.
func (a *Autosave) Status() SaveStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Pending returns the fields of an edit targeting noteID that has not
// reached the store yet: armed, in flight, or preserved after a failed
// write. Callers building a follow-up edit must start from these fields,
// not from the cache, which cannot reflect them.
func (a *Autosave) Pending(noteID string) (wire.NoteFields, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.noteID != noteID {
		return wire.NoteFields{}, false
	}
	if a.timer == nil && a.status != StatusSaving && a.status != StatusError {
		return wire.NoteFields{}, false
	}
	return a.fields, true
}

// Schedule records the latest fields for noteID, shows "saving", and
// re-arms the debounce timer. Any previously armed timer is cancelled:
// two edits inside the window produce exactly one write, carrying the
// second edit's fields.
func (a *Autosave) Schedule(noteID string, fields wire.NoteFields) {
	a.mu.Lock()

	if a.timer != nil {
		a.timer.Stop()
	}
	if a.revert != nil {
		a.revert.Stop()
		a.revert = nil
	}

	a.seq++
	seq := a.seq
	a.noteID = noteID
	a.fields = fields
	a.setStatusLocked(StatusSaving)

	a.timer = time.AfterFunc(a.debounce, func() { a.fire(seq) })
	a.mu.Unlock()
}

// Cancel discards any armed timer without firing it. Called when the
// editor session for the note ends (close, switch, sign-out).
func (a *Autosave) Cancel() {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.revert != nil {
		a.revert.Stop()
		a.revert = nil
	}
	a.seq++
	a.setStatusLocked(StatusIdle)
	a.mu.Unlock()
}

// fire commits the pending edit, unless it was superseded or the world
// changed under it.
func (a *Autosave) fire(seq uint64) {
	a.mu.Lock()
	if seq != a.seq {
		// A later Schedule or Cancel superseded this timer.
		a.mu.Unlock()
		return
	}
	a.timer = nil
	noteID := a.noteID
	fields := a.fields
	update := a.update
	a.mu.Unlock()

	// Re-validate at fire time: the user may have switched notes or
	// signed out inside the debounce window. Abort silently, never
	// misdirect the write.
	if update == nil || !a.validate(noteID) {
		a.mu.Lock()
		if seq == a.seq {
			a.setStatusLocked(StatusIdle)
		}
		a.mu.Unlock()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err := update(ctx, noteID, fields)
	cancel()

	a.mu.Lock()
	defer a.mu.Unlock()
	if seq != a.seq {
		return
	}

	if err != nil {
		// Pending fields stay put; the next keystroke reschedules.
		a.logger.Error(context.Background(), "autosave failed", "note_id", noteID, "error", err)
		a.setStatusLocked(StatusError)
		return
	}

	a.setStatusLocked(StatusSaved)
	a.revert = time.AfterFunc(a.notice, func() {
		a.mu.Lock()
		if a.status == StatusSaved && seq == a.seq {
			a.setStatusLocked(StatusIdle)
		}
		a.mu.Unlock()
	})
}

func (a *Autosave) setStatusLocked(status SaveStatus) {
	if a.status == status {
		return
	}
	a.status = status
	if a.onStatus != nil {
		fn := a.onStatus
		go fn(status)
	}
}
