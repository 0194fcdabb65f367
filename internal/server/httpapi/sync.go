package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mkorchagin/quicknotes/internal/common"
	"github.com/mkorchagin/quicknotes/internal/wire"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The endpoint is token-authenticated; origin checks belong to a
	// fronting proxy in any real deployment.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleSync upgrades the connection, authenticates the bearer token, and
// runs the sync session: the owner's subscription snapshots are pushed as
// they arrive, and inbound requests are applied to the store and acked.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	ownerID, err := s.users.Authenticate(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := s.notes.Subscribe(ownerID)
	defer s.notes.Unsubscribe(sub)

	// Writes to one websocket must be serialized: the snapshot pusher and
	// the request handler share the connection.
	var writeMu sync.Mutex
	send := func(msg wire.Message) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	go func() {
		for {
			select {
			case snapshot, ok := <-sub.C:
				if !ok {
					return
				}
				if err := send(wire.Message{Kind: wire.KindSnapshot, Notes: snapshot}); err != nil {
					cancel()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var req wire.Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn(ctx, "sync connection dropped", "owner_id", ownerID, "error", err)
			}
			return
		}

		resp := s.apply(ctx, ownerID, req)
		if err := send(resp); err != nil {
			return
		}
	}
}

// apply executes one client request against the note store and builds the
// corresponding ack or error frame.
func (s *Server) apply(ctx context.Context, ownerID string, req wire.Request) wire.Message {
	switch req.Op {
	case wire.OpCreate:
		if req.Fields == nil {
			return errFrame(req, wire.CodeBadRequest, "create requires fields")
		}
		note, err := s.notes.Create(ctx, ownerID, *req.Fields)
		if err != nil {
			return errFrame(req, wire.CodeBadRequest, err.Error())
		}
		return wire.Message{Kind: wire.KindAck, ReqID: req.ReqID, NoteID: note.ID}

	case wire.OpUpdate:
		if req.Fields == nil {
			return errFrame(req, wire.CodeBadRequest, "update requires fields")
		}
		note, err := s.notes.Update(ctx, ownerID, req.NoteID, *req.Fields)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return errFrame(req, wire.CodeNotFound, "note not found")
			}
			return errFrame(req, wire.CodeBadRequest, err.Error())
		}
		return wire.Message{Kind: wire.KindAck, ReqID: req.ReqID, NoteID: note.ID}

	case wire.OpDelete:
		if err := s.notes.Delete(ctx, ownerID, req.NoteID); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return errFrame(req, wire.CodeNotFound, "note not found")
			}
			return errFrame(req, wire.CodeBadRequest, err.Error())
		}
		return wire.Message{Kind: wire.KindAck, ReqID: req.ReqID, NoteID: req.NoteID}

	default:
		return errFrame(req, wire.CodeBadRequest, "unknown operation: "+req.Op)
	}
}

func errFrame(req wire.Request, code, msg string) wire.Message {
	return wire.Message{Kind: wire.KindError, ReqID: req.ReqID, NoteID: req.NoteID, Code: code, Error: msg}
}
