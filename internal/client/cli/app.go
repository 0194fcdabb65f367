// Package cli implements the interactive terminal client: a REPL over
// the sync core. The core decides when the view is stale (cache change
// hook); the CLI redraws from cache and session state on that signal.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mkorchagin/quicknotes/internal/client/config"
	"github.com/mkorchagin/quicknotes/internal/client/editor"
	"github.com/mkorchagin/quicknotes/internal/client/markdown"
	"github.com/mkorchagin/quicknotes/internal/client/session"
	"github.com/mkorchagin/quicknotes/internal/client/store"
	"github.com/mkorchagin/quicknotes/internal/client/sync"
	"github.com/mkorchagin/quicknotes/internal/common"
	"github.com/mkorchagin/quicknotes/internal/logging"
	"github.com/mkorchagin/quicknotes/internal/wire"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	sessions    *session.Manager
	cache       *sync.Cache
	coordinator *sync.Coordinator
	state       *editor.State
	autosave    *editor.Autosave
	renderer    *markdown.Renderer
	reader      *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	logger := logging.NewSlogLogger(slogger)

	cache := sync.NewCache()
	state := editor.NewState(cache)
	sessions := session.NewManager(c.ServerEndpointAddr)

	dial := func(ctx context.Context, identity *session.Identity) (store.Adapter, error) {
		return store.Dial(ctx, syncURL(c.ServerEndpointAddr), identity.AccessToken, logger)
	}
	coordinator := sync.NewCoordinator(cache, dial, logger)

	a := &App{
		config:      c,
		logger:      logger,
		sessions:    sessions,
		cache:       cache,
		coordinator: coordinator,
		state:       state,
		renderer:    markdown.New(),
		reader:      bufio.NewReader(os.Stdin),
	}

	// Autosave fires only when the captured note is still the open note
	// of a live session.
	a.autosave = editor.NewAutosave(a.validateSaveTarget, logger, nil)
	a.autosave.SetDebounce(c.AutosaveDebounce)
	a.autosave.SetUpdateFunc(a.updateNote)

	// Re-render trigger: every cache replacement reconciles the session
	// state (open note may have vanished) and redraws.
	cache.OnChange(func() {
		a.state.Reconcile()
		a.render()
	})

	coordinator.Attach(sessions)

	return a, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.Close()
	a.Root(ctx)
}

// Close releases the subscription and any armed autosave timer.
func (a *App) Close() {
	a.autosave.Cancel()
	a.coordinator.Close()
}

func (a *App) isLoggedIn() bool {
	return a.sessions.Current() != nil
}

// validateSaveTarget is the autosave fire-time check: still signed in,
// and noteID is still the open note.
func (a *App) validateSaveTarget(noteID string) bool {
	if !a.isLoggedIn() {
		return false
	}
	return a.state.CurrentNoteID() == noteID
}

// updateNote is the autosave write path through the current adapter.
// With no adapter attached the write genuinely failed; reporting success
// would show "saved" for an edit that never left the client.
func (a *App) updateNote(ctx context.Context, noteID string, fields wire.NoteFields) error {
	adapter := a.coordinator.Adapter()
	if adapter == nil {
		return fmt.Errorf("update %s: %w", noteID, common.ErrSubscriptionClosed)
	}
	return adapter.Update(ctx, noteID, fields)
}

// syncURL converts the HTTP base URL into the websocket sync endpoint.
func syncURL(endpoint string) string {
	ws := strings.Replace(endpoint, "http://", "ws://", 1)
	ws = strings.Replace(ws, "https://", "wss://", 1)
	return strings.TrimRight(ws, "/") + "/api/sync"
}
