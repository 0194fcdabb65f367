// Package notes implements the server-side note store: per-owner
// collections with server-assigned ids and timestamps, snapshot
// generation, and change notification for attached subscribers.
package notes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkorchagin/quicknotes/internal/common"
	"github.com/mkorchagin/quicknotes/internal/wire"
)

// Store keeps every owner's notes in memory and pushes a fresh snapshot
// to that owner's subscribers after every mutation. Timestamps are
// unix-milli and monotonically non-decreasing per note: a burst of
// updates inside one millisecond still moves the clock forward.
type Store struct {
	mu      sync.Mutex
	byOwner map[string]map[string]*wire.Note
	subs    map[string]map[*Subscriber]struct{}
	lastTS  int64
}

// Subscriber receives a full snapshot of one owner's collection after
// every change. The channel is buffered; a slow consumer only ever sees
// the latest snapshot because stale pending ones are dropped first.
type Subscriber struct {
	OwnerID string
	C       chan []wire.Note
}

func NewStore() *Store {
	return &Store{
		byOwner: make(map[string]map[string]*wire.Note),
		subs:    make(map[string]map[*Subscriber]struct{}),
	}
}

// now returns a unix-milli timestamp strictly greater than any value
// previously returned. Callers must hold s.mu.
func (s *Store) now() int64 {
	ts := time.Now().UnixMilli()
	if ts <= s.lastTS {
		ts = s.lastTS + 1
	}
	s.lastTS = ts
	return ts
}

// Create inserts a new note for ownerID and returns it with a fresh id
// and timestamp.
func (s *Store) Create(ctx context.Context, ownerID string, fields wire.NoteFields) (wire.Note, error) {
	s.mu.Lock()

	coll, ok := s.byOwner[ownerID]
	if !ok {
		coll = make(map[string]*wire.Note)
		s.byOwner[ownerID] = coll
	}

	note := &wire.Note{
		ID:        uuid.NewString(),
		Title:     fields.Title,
		Content:   fields.Content,
		OwnerID:   ownerID,
		UpdatedAt: s.now(),
	}
	coll[note.ID] = note

	snapshot := s.snapshotLocked(ownerID)
	s.mu.Unlock()

	s.notify(ownerID, snapshot)
	return *note, nil
}

// Update overwrites the writable fields of an existing note and advances
// its timestamp. Notes may only be touched by their owner; a foreign id
// looks exactly like a missing one.
func (s *Store) Update(ctx context.Context, ownerID, noteID string, fields wire.NoteFields) (wire.Note, error) {
	s.mu.Lock()

	note, ok := s.byOwner[ownerID][noteID]
	if !ok {
		s.mu.Unlock()
		return wire.Note{}, common.ErrNotFound
	}

	note.Title = fields.Title
	note.Content = fields.Content
	note.UpdatedAt = s.now()

	snapshot := s.snapshotLocked(ownerID)
	s.mu.Unlock()

	s.notify(ownerID, snapshot)
	return *note, nil
}

// Delete removes a note from its owner's collection.
func (s *Store) Delete(ctx context.Context, ownerID, noteID string) error {
	s.mu.Lock()

	if _, ok := s.byOwner[ownerID][noteID]; !ok {
		s.mu.Unlock()
		return common.ErrNotFound
	}
	delete(s.byOwner[ownerID], noteID)

	snapshot := s.snapshotLocked(ownerID)
	s.mu.Unlock()

	s.notify(ownerID, snapshot)
	return nil
}

// Snapshot returns the owner's full collection ordered by updatedAt
// descending (most recently updated first).
func (s *Store) Snapshot(ctx context.Context, ownerID string) []wire.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(ownerID)
}

func (s *Store) snapshotLocked(ownerID string) []wire.Note {
	coll := s.byOwner[ownerID]
	out := make([]wire.Note, 0, len(coll))
	for _, n := range coll {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Subscribe attaches a new subscriber for ownerID. The subscriber's
// channel immediately carries the current snapshot.
func (s *Store) Subscribe(ownerID string) *Subscriber {
	sub := &Subscriber{OwnerID: ownerID, C: make(chan []wire.Note, 1)}

	s.mu.Lock()
	set, ok := s.subs[ownerID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		s.subs[ownerID] = set
	}
	set[sub] = struct{}{}
	// Seed the empty one-slot buffer with the current snapshot before
	// releasing the lock, so no notify can sneak in ahead of it.
	sub.C <- s.snapshotLocked(ownerID)
	s.mu.Unlock()

	return sub
}

// Unsubscribe detaches sub and closes its channel.
func (s *Store) Unsubscribe(sub *Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.subs[sub.OwnerID]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.C)
}

// notify pushes a snapshot to every subscriber of ownerID. A pending
// undelivered snapshot is superseded, never queued behind. Sends happen
// under s.mu so they cannot race a concurrent Unsubscribe close; the
// one-slot buffer keeps them non-blocking.
func (s *Store) notify(ownerID string, snapshot []wire.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subs[ownerID] {
		select {
		case <-sub.C:
		default:
		}
		select {
		case sub.C <- snapshot:
		default:
		}
	}
}
