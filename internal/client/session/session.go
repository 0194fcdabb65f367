// Package session tracks the authenticated identity on the client. It
// implements the session-observer boundary: consumers subscribe and are
// called back with the current identity, or nil on sign-out, whenever
// the auth state changes.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mkorchagin/quicknotes/internal/common"
)

// Identity is the authenticated user as seen by the client.
type Identity struct {
	UserID      string
	UserName    string
	AccessToken string
}

// Observer is the narrow interface consumed by the sync layer: register
// a callback, get the current identity replayed immediately, then get
// called on every change. The returned function unsubscribes.
type Observer interface {
	Subscribe(fn func(*Identity)) func()
}

// Manager implements Observer on top of the auth HTTP API.
type Manager struct {
	endpoint string
	client   *http.Client

	mu      sync.Mutex
	current *Identity
	subs    map[int]func(*Identity)
	nextID  int
}

// NewManager creates a Manager talking to the API at endpoint, e.g.
// "http://127.0.0.1:8080".
func NewManager(endpoint string) *Manager {
	return &Manager{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		subs:     make(map[int]func(*Identity)),
	}
}

// Subscribe registers fn and immediately replays the current identity to
// it. fn is later invoked on every sign-in and sign-out.
func (m *Manager) Subscribe(fn func(*Identity)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	current := m.current
	m.mu.Unlock()

	fn(current)

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Current returns the identity as of the last auth event, or nil.
func (m *Manager) Current() *Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Register creates an account and signs in with it. The server logs the
// new user straight in, so one call yields a full identity.
func (m *Manager) Register(ctx context.Context, userName, password string) error {
	return m.authenticate(ctx, "/api/register", userName, password)
}

// Login authenticates existing credentials.
func (m *Manager) Login(ctx context.Context, userName, password string) error {
	return m.authenticate(ctx, "/api/login", userName, password)
}

// SignOut clears the identity and notifies subscribers with nil.
func (m *Manager) SignOut() {
	m.emit(nil)
}

type credentials struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
}

func (m *Manager) authenticate(ctx context.Context, path, userName, password string) error {
	body, err := json.Marshal(credentials{UserName: userName, Password: password})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("auth response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return common.ErrUnauthorized
	case resp.StatusCode == http.StatusConflict:
		return common.ErrUserExists
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("auth failed: %s", tr.Error)
	}

	m.emit(&Identity{UserID: tr.UserID, UserName: userName, AccessToken: tr.AccessToken})
	return nil
}

// emit swaps the current identity and invokes every subscriber outside
// the lock.
func (m *Manager) emit(identity *Identity) {
	m.mu.Lock()
	m.current = identity
	fns := make([]func(*Identity), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(identity)
	}
}
