package sync

import (
	"context"
	"errors"
	"sync"

	"github.com/mkorchagin/quicknotes/internal/client/session"
	"github.com/mkorchagin/quicknotes/internal/client/store"
	"github.com/mkorchagin/quicknotes/internal/common"
	"github.com/mkorchagin/quicknotes/internal/logging"
)

// DialFunc opens a store adapter scoped to one identity.
type DialFunc func(ctx context.Context, identity *session.Identity) (store.Adapter, error)

// Coordinator drives the cache from auth events: identity arrives, it
// dials the store and attaches the single live subscription; identity
// changes or vanishes, it tears everything down first. There is never a
// window with two live subscriptions.
type Coordinator struct {
	logger logging.Logger
	dial   DialFunc
	cache  *Cache

	mu       sync.Mutex
	identity *session.Identity
	adapter  store.Adapter
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	unsubscribe func()
}

func NewCoordinator(cache *Cache, dial DialFunc, logger logging.Logger) *Coordinator {
	return &Coordinator{logger: logger, dial: dial, cache: cache}
}

// Attach subscribes the coordinator to auth events. The observer replays
// the current identity immediately, so a signed-in user gets a
// subscription right away.
func (co *Coordinator) Attach(obs session.Observer) {
	co.unsubscribe = obs.Subscribe(co.handleIdentity)
}

// Adapter returns the store adapter for the current identity, or nil
// when signed out. Writers (autosave, create, delete) go through it.
func (co *Coordinator) Adapter() store.Adapter {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.adapter
}

// Identity returns the identity the current subscription is scoped to.
func (co *Coordinator) Identity() *session.Identity {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.identity
}

// Close detaches from the observer and tears down any live subscription.
func (co *Coordinator) Close() {
	if co.unsubscribe != nil {
		co.unsubscribe()
		co.unsubscribe = nil
	}
	co.detach()
	co.cache.Clear()
}

// handleIdentity reacts to one auth event. Teardown of the previous
// subscription always completes before the next one is dialed.
func (co *Coordinator) handleIdentity(identity *session.Identity) {
	co.detach()

	if identity == nil {
		co.cache.Clear()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	adapter, err := co.dial(ctx, identity)
	if err != nil {
		cancel()
		co.logger.Error(ctx, "store dial failed", "user_id", identity.UserID, "error", err)
		co.cache.Clear()
		return
	}

	sub, err := adapter.Subscribe(ctx)
	if err != nil {
		cancel()
		_ = adapter.Close()
		co.logger.Error(ctx, "subscribe failed", "user_id", identity.UserID, "error", err)
		co.cache.Clear()
		return
	}

	co.mu.Lock()
	co.identity = identity
	co.adapter = adapter
	co.cancel = cancel
	co.mu.Unlock()

	co.wg.Add(1)
	go co.receive(ctx, identity, sub)
}

// receive applies snapshots until the subscription ends. Every snapshot
// fully replaces the cache; nothing is merged.
func (co *Coordinator) receive(ctx context.Context, identity *session.Identity, sub *store.Subscription) {
	defer co.wg.Done()

	for {
		select {
		case snapshot, ok := <-sub.Snapshots:
			if !ok {
				return
			}
			co.cache.Replace(snapshot)
			co.logger.Debug(ctx, "snapshot applied", "notes", len(snapshot))

		case err := <-sub.Errors:
			if err == nil {
				continue
			}
			if errors.Is(err, common.ErrUnauthorized) {
				// Auth-scoped failure: the mirror may no longer be ours
				// to hold, drop it.
				co.logger.Error(ctx, "subscription lost authorization", "user_id", identity.UserID)
				co.cache.Clear()
			} else {
				// Non-fatal to the process: keep the last-known cache.
				co.logger.Error(ctx, "subscription failed", "user_id", identity.UserID, "error", err)
			}
			return

		case <-ctx.Done():
			return
		}
	}
}

// detach cancels the receive loop, closes the adapter, and waits for the
// loop to exit so no late snapshot can write into the next cache state.
func (co *Coordinator) detach() {
	co.mu.Lock()
	cancel := co.cancel
	adapter := co.adapter
	co.identity = nil
	co.adapter = nil
	co.cancel = nil
	co.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if adapter != nil {
		_ = adapter.Close()
	}
	co.wg.Wait()
}
