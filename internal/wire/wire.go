// Package wire defines the JSON messages exchanged between the client and
// the sync endpoint. The protocol is deliberately small: the client sends
// single-document operations, the server answers each with an ack and pushes
// a full snapshot of the owner's collection after every change.
package wire

import "time"

// Operations the client may request on a single note.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Kinds of server-to-client messages.
const (
	KindSnapshot = "snapshot"
	KindAck      = "ack"
	KindError    = "error"
)

// Error codes carried by KindError messages. CodeUnauthorized is fatal to
// the subscription; everything else is recoverable.
const (
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeBadRequest   = "bad_request"
)

// Note is the document representation on the wire. UpdatedAt is a
// server-assigned unix-milli timestamp; zero means the note has not yet
// completed a server round-trip.
type Note struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	OwnerID   string `json:"owner_id"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
}

// UpdatedAtTime converts the opaque server timestamp to local time.
// A note that has not completed a round-trip yields the zero time.Time.
func (n Note) UpdatedAtTime() time.Time {
	if n.UpdatedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(n.UpdatedAt)
}

// NoteFields carries the writable fields of a note.
type NoteFields struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Request is a client-to-server operation. ReqID correlates the eventual
// ack; it is generated by the client and opaque to the server.
type Request struct {
	ReqID  string      `json:"req_id"`
	Op     string      `json:"op"`
	NoteID string      `json:"note_id,omitempty"`
	Fields *NoteFields `json:"fields,omitempty"`
}

// Message is a server-to-client frame: a snapshot of the full collection,
// an ack for a request, or an error (either tied to a request via ReqID or,
// with an empty ReqID, scoped to the subscription itself).
type Message struct {
	Kind   string `json:"kind"`
	ReqID  string `json:"req_id,omitempty"`
	NoteID string `json:"note_id,omitempty"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
	Notes  []Note `json:"notes,omitempty"`
}
