// Package store defines the client's narrow view of the remote note
// store: a subscription yielding ordered snapshots plus single-document
// create/update/delete operations with server-assigned timestamps.
package store

import (
	"context"

	"github.com/mkorchagin/quicknotes/internal/wire"
)

// Subscription is a live snapshot stream for one identity. Each value on
// Snapshots is a complete ordered batch superseding all previous ones.
// A value on Errors is fatal to the subscription: no further snapshots
// will arrive and the consumer should Close and detach.
type Subscription struct {
	Snapshots <-chan []wire.Note
	Errors    <-chan error
	close     func()
}

// NewSubscription wraps the given channels; closeFn releases the
// underlying stream and may be called more than once.
func NewSubscription(snapshots <-chan []wire.Note, errs <-chan error, closeFn func()) *Subscription {
	return &Subscription{Snapshots: snapshots, Errors: errs, close: closeFn}
}

// Close detaches the subscription. Pending snapshots are discarded.
func (s *Subscription) Close() {
	if s.close != nil {
		s.close()
	}
}

// Adapter is the remote store boundary. One adapter is scoped to one
// authenticated identity; switching identities means closing the adapter
// and dialing a new one.
type Adapter interface {
	// Subscribe opens the snapshot stream for the adapter's identity.
	// Only one subscription per adapter is supported.
	Subscribe(ctx context.Context) (*Subscription, error)

	// Create inserts a new note and returns its server-assigned id.
	Create(ctx context.Context, fields wire.NoteFields) (string, error)

	// Update overwrites the writable fields of an existing note and
	// requests a fresh server-assigned timestamp.
	Update(ctx context.Context, id string, fields wire.NoteFields) error

	// Delete removes a note.
	Delete(ctx context.Context, id string) error

	// Close tears down the connection and any live subscription.
	Close() error
}
