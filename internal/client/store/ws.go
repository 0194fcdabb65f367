package store

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mkorchagin/quicknotes/internal/common"
	"github.com/mkorchagin/quicknotes/internal/logging"
	"github.com/mkorchagin/quicknotes/internal/wire"
)

// WSAdapter speaks the wire protocol over a single websocket connection.
// The server pushes a snapshot after every change; requests are
// correlated with their acks by client-generated request ids.
type WSAdapter struct {
	logger logging.Logger
	conn   *websocket.Conn

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan wire.Message

	snapshots chan []wire.Note
	errs      chan error

	closeOnce sync.Once
	done      chan struct{}
}

var _ Adapter = (*WSAdapter)(nil)

// Dial connects to the sync endpoint with the given bearer token and
// starts the read loop. url is the full websocket URL, e.g.
// "ws://127.0.0.1:8080/api/sync".
func Dial(ctx context.Context, url, token string, logger logging.Logger) (*WSAdapter, error) {
	header := http.Header{}
	header.Set(common.AuthHeaderName, common.AuthScheme+" "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	a := &WSAdapter{
		logger:    logger,
		conn:      conn,
		pending:   make(map[string]chan wire.Message),
		snapshots: make(chan []wire.Note, 1),
		errs:      make(chan error, 1),
		done:      make(chan struct{}),
	}

	go a.readLoop()
	return a, nil
}

// Subscribe returns the adapter's snapshot stream. The first snapshot is
// pushed by the server right after the connection is established.
func (a *WSAdapter) Subscribe(ctx context.Context) (*Subscription, error) {
	select {
	case <-a.done:
		return nil, common.ErrSubscriptionClosed
	default:
	}
	return NewSubscription(a.snapshots, a.errs, func() { _ = a.Close() }), nil
}

func (a *WSAdapter) Create(ctx context.Context, fields wire.NoteFields) (string, error) {
	msg, err := a.roundTrip(ctx, wire.Request{Op: wire.OpCreate, Fields: &fields})
	if err != nil {
		return "", err
	}
	return msg.NoteID, nil
}

func (a *WSAdapter) Update(ctx context.Context, id string, fields wire.NoteFields) error {
	_, err := a.roundTrip(ctx, wire.Request{Op: wire.OpUpdate, NoteID: id, Fields: &fields})
	return err
}

func (a *WSAdapter) Delete(ctx context.Context, id string) error {
	_, err := a.roundTrip(ctx, wire.Request{Op: wire.OpDelete, NoteID: id})
	return err
}

// Close tears down the connection. The read loop then drains and fails
// any in-flight round-trips.
func (a *WSAdapter) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.done)
		_ = a.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), closeDeadline())
		err = a.conn.Close()
	})
	return err
}

func closeDeadline() time.Time {
	return time.Now().Add(time.Second)
}

// roundTrip sends one request and waits for its ack or error frame.
func (a *WSAdapter) roundTrip(ctx context.Context, req wire.Request) (wire.Message, error) {
	req.ReqID = uuid.NewString()

	reply := make(chan wire.Message, 1)
	a.pendingMu.Lock()
	a.pending[req.ReqID] = reply
	a.pendingMu.Unlock()

	defer func() {
		a.pendingMu.Lock()
		delete(a.pending, req.ReqID)
		a.pendingMu.Unlock()
	}()

	a.writeMu.Lock()
	err := a.conn.WriteJSON(req)
	a.writeMu.Unlock()
	if err != nil {
		return wire.Message{}, fmt.Errorf("write %s: %w", req.Op, err)
	}

	select {
	case msg := <-reply:
		if msg.Kind == wire.KindError {
			if msg.Code == wire.CodeNotFound {
				return msg, common.ErrNotFound
			}
			return msg, fmt.Errorf("%s rejected: %s", req.Op, msg.Error)
		}
		return msg, nil
	case <-ctx.Done():
		return wire.Message{}, ctx.Err()
	case <-a.done:
		return wire.Message{}, common.ErrSubscriptionClosed
	}
}

// readLoop dispatches inbound frames: snapshots to the subscription
// channel, acks and request errors to the waiting round-trip, and
// subscription-scoped errors to the fatal error channel.
func (a *WSAdapter) readLoop() {
	for {
		var msg wire.Message
		if err := a.conn.ReadJSON(&msg); err != nil {
			select {
			case <-a.done:
				// Closed locally; not an error.
			default:
				a.fail(fmt.Errorf("sync stream: %w", err))
			}
			a.failPending(common.ErrSubscriptionClosed)
			return
		}

		switch msg.Kind {
		case wire.KindSnapshot:
			// A newer snapshot supersedes an undelivered one.
			select {
			case <-a.snapshots:
			default:
			}
			a.snapshots <- msg.Notes

		case wire.KindAck:
			a.deliver(msg)

		case wire.KindError:
			if msg.ReqID != "" {
				a.deliver(msg)
				continue
			}
			if msg.Code == wire.CodeUnauthorized {
				a.fail(common.ErrUnauthorized)
				a.failPending(common.ErrUnauthorized)
				return
			}
			a.logger.Warn(context.Background(), "subscription error", "code", msg.Code, "error", msg.Error)

		default:
			a.logger.Warn(context.Background(), "unknown frame kind", "kind", msg.Kind)
		}
	}
}

func (a *WSAdapter) deliver(msg wire.Message) {
	a.pendingMu.Lock()
	reply, ok := a.pending[msg.ReqID]
	a.pendingMu.Unlock()
	if ok {
		reply <- msg
	}
}

func (a *WSAdapter) fail(err error) {
	select {
	case a.errs <- err:
	default:
	}
}

// failPending wakes every in-flight round-trip with err.
func (a *WSAdapter) failPending(err error) {
	a.pendingMu.Lock()
	defer a.pendingMu.Unlock()
	for id, reply := range a.pending {
		select {
		case reply <- wire.Message{Kind: wire.KindError, ReqID: id, Error: err.Error()}:
		default:
		}
		delete(a.pending, id)
	}
}
