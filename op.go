package peerpad

import (
	"time"

	"github.com/google/uuid"

	"github.com/peerpad/peerpad/vv"
)

type OpKind string

const (
	OpInsert OpKind = "insert"
	OpDelete OpKind = "delete"
)

// Operation is one immutable edit, stamped with its origin and a clock
// snapshot taken at creation time: the authoring document's clock with the
// origin's own entry already incremented, before the merge into the clock.
type Operation struct {
	ID        string    `json:"id"`
	Kind      OpKind    `json:"kind"`
	Position  int       `json:"position"`
	Text      string    `json:"text,omitempty"`
	Length    int       `json:"length,omitempty"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
	Clock     vv.VV     `json:"vectorClock"`
}

// Update is a local edit intent; Text is used for inserts, Length for deletes.
type Update struct {
	Origin   string
	Kind     OpKind
	Position int
	Text     string
	Length   int
}

// ApplyLocal stamps the update into an Operation and applies it to the
// session's document. This is the only path that increments the origin's
// clock entry; remote operations never do. The returned operation is what
// the transport layer should deliver to peers (see also AddFeed).
func (e *Engine) ApplyLocal(sessionID string, up Update) (Operation, error) {
	ls, ok := e.sessions.Load(sessionID)
	if !ok {
		return Operation{}, ErrSessionUnknown
	}

	op := ls.doc.applyLocal(up, uuid.NewString(), time.Now())
	e.seen.Add(op.ID, struct{}{})
	ls.touch(up.Origin)

	opsApplied.WithLabelValues(string(op.Kind), "local").Inc()
	e.log.Debug("local op applied", "session", sessionID, "op", op.ID,
		"kind", op.Kind, "pos", op.Position)

	e.broadcast(sessionID, op)
	e.emit(sessionID, Event{
		Kind:          EventContent,
		ParticipantID: op.Origin,
		Timestamp:     op.Timestamp,
		Data:          op,
	})
	e.drainPending(sessionID, ls)
	return op, nil
}
