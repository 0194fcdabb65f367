package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mkorchagin/quicknotes/internal/client/session"
	"github.com/mkorchagin/quicknotes/internal/client/store"
	"github.com/mkorchagin/quicknotes/internal/common"
	"github.com/mkorchagin/quicknotes/internal/logging"
	"github.com/mkorchagin/quicknotes/internal/wire"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.DiscardHandler))
}

// fakeObserver is a hand-driven session.Observer.
type fakeObserver struct {
	mu  sync.Mutex
	fns []func(*session.Identity)
}

func (o *fakeObserver) Subscribe(fn func(*session.Identity)) func() {
	o.mu.Lock()
	o.fns = append(o.fns, fn)
	o.mu.Unlock()
	fn(nil)
	return func() {}
}

func (o *fakeObserver) emit(identity *session.Identity) {
	o.mu.Lock()
	fns := append([]func(*session.Identity){}, o.fns...)
	o.mu.Unlock()
	for _, fn := range fns {
		fn(identity)
	}
}

// fakeAdapter feeds snapshots and errors through the Subscription
// channels and records lifecycle calls.
type fakeAdapter struct {
	snapshots chan []wire.Note
	errs      chan error

	mu     sync.Mutex
	closed bool
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		snapshots: make(chan []wire.Note, 4),
		errs:      make(chan error, 1),
	}
}

func (f *fakeAdapter) Subscribe(ctx context.Context) (*store.Subscription, error) {
	return store.NewSubscription(f.snapshots, f.errs, func() {}), nil
}

func (f *fakeAdapter) Create(ctx context.Context, fields wire.NoteFields) (string, error) {
	return "", nil
}

func (f *fakeAdapter) Update(ctx context.Context, id string, fields wire.NoteFields) error {
	return nil
}

func (f *fakeAdapter) Delete(ctx context.Context, id string) error { return nil }

func (f *fakeAdapter) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeAdapter) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestCoordinator_AppliesSnapshotsForIdentity(t *testing.T) {
	cache := NewCache()
	adapter := newFakeAdapter()

	dial := func(ctx context.Context, identity *session.Identity) (store.Adapter, error) {
		return adapter, nil
	}

	co := NewCoordinator(cache, dial, testLogger())
	obs := &fakeObserver{}
	co.Attach(obs)
	defer co.Close()

	obs.emit(&session.Identity{UserID: "u1"})

	adapter.snapshots <- []wire.Note{{ID: "a", OwnerID: "u1", UpdatedAt: 2}}
	waitFor(t, func() bool { return cache.Len() == 1 })

	adapter.snapshots <- []wire.Note{
		{ID: "b", OwnerID: "u1", UpdatedAt: 5},
		{ID: "a", OwnerID: "u1", UpdatedAt: 2},
	}
	waitFor(t, func() bool { return cache.Len() == 2 })

	notes := cache.Notes()
	require.Equal(t, "b", notes[0].ID)
	require.Equal(t, "a", notes[1].ID)
}

func TestCoordinator_SignOutClearsCacheAndClosesAdapter(t *testing.T) {
	cache := NewCache()
	adapter := newFakeAdapter()

	dial := func(ctx context.Context, identity *session.Identity) (store.Adapter, error) {
		return adapter, nil
	}

	co := NewCoordinator(cache, dial, testLogger())
	obs := &fakeObserver{}
	co.Attach(obs)
	defer co.Close()

	obs.emit(&session.Identity{UserID: "u1"})
	adapter.snapshots <- []wire.Note{{ID: "a"}}
	waitFor(t, func() bool { return cache.Len() == 1 })

	obs.emit(nil)

	require.Equal(t, 0, cache.Len())
	require.True(t, adapter.isClosed())
	require.Nil(t, co.Adapter())
}

func TestCoordinator_IdentitySwitchClosesPreviousFirst(t *testing.T) {
	cache := NewCache()

	var mu sync.Mutex
	adapters := map[string]*fakeAdapter{}

	dial := func(ctx context.Context, identity *session.Identity) (store.Adapter, error) {
		a := newFakeAdapter()
		mu.Lock()
		adapters[identity.UserID] = a
		mu.Unlock()

		// The previous user's adapter must already be torn down when the
		// next one is dialed.
		mu.Lock()
		for id, prev := range adapters {
			if id != identity.UserID {
				require.True(t, prev.isClosed())
			}
		}
		mu.Unlock()
		return a, nil
	}

	co := NewCoordinator(cache, dial, testLogger())
	obs := &fakeObserver{}
	co.Attach(obs)
	defer co.Close()

	obs.emit(&session.Identity{UserID: "u1"})
	mu.Lock()
	first := adapters["u1"]
	mu.Unlock()
	first.snapshots <- []wire.Note{{ID: "a", OwnerID: "u1"}}
	waitFor(t, func() bool { return cache.Len() == 1 })

	obs.emit(&session.Identity{UserID: "u2"})
	mu.Lock()
	second := adapters["u2"]
	mu.Unlock()

	second.snapshots <- []wire.Note{{ID: "x", OwnerID: "u2"}, {ID: "y", OwnerID: "u2"}}
	waitFor(t, func() bool { return cache.Len() == 2 })

	// A late push on the dead first subscription must not reach the new
	// user's cache.
	select {
	case first.snapshots <- []wire.Note{{ID: "stale", OwnerID: "u1"}}:
	default:
	}
	time.Sleep(50 * time.Millisecond)
	require.False(t, cache.Contains("stale"))
}

func TestCoordinator_UnauthorizedErrorClearsCache(t *testing.T) {
	cache := NewCache()
	adapter := newFakeAdapter()

	dial := func(ctx context.Context, identity *session.Identity) (store.Adapter, error) {
		return adapter, nil
	}

	co := NewCoordinator(cache, dial, testLogger())
	obs := &fakeObserver{}
	co.Attach(obs)
	defer co.Close()

	obs.emit(&session.Identity{UserID: "u1"})
	adapter.snapshots <- []wire.Note{{ID: "a"}}
	waitFor(t, func() bool { return cache.Len() == 1 })

	adapter.errs <- common.ErrUnauthorized
	waitFor(t, func() bool { return cache.Len() == 0 })
}

func TestCoordinator_TransportErrorKeepsLastKnownCache(t *testing.T) {
	cache := NewCache()
	adapter := newFakeAdapter()

	dial := func(ctx context.Context, identity *session.Identity) (store.Adapter, error) {
		return adapter, nil
	}

	co := NewCoordinator(cache, dial, testLogger())
	obs := &fakeObserver{}
	co.Attach(obs)
	defer co.Close()

	obs.emit(&session.Identity{UserID: "u1"})
	adapter.snapshots <- []wire.Note{{ID: "a"}}
	waitFor(t, func() bool { return cache.Len() == 1 })

	adapter.errs <- errors.New("connection reset")
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, 1, cache.Len())
}

func TestCoordinator_DialFailureLeavesCacheEmpty(t *testing.T) {
	cache := NewCache()

	dial := func(ctx context.Context, identity *session.Identity) (store.Adapter, error) {
		return nil, errors.New("server unavailable")
	}

	co := NewCoordinator(cache, dial, testLogger())
	obs := &fakeObserver{}
	co.Attach(obs)
	defer co.Close()

	obs.emit(&session.Identity{UserID: "u1"})
	require.Equal(t, 0, cache.Len())
	require.Nil(t, co.Adapter())
}
