package peerpad

import (
	"encoding/json"
	"errors"

	"github.com/peerpad/peerpad/vv"
)

var ErrBadSnapshot = errors.New("peerpad: bad snapshot")

// Snapshot is the self-contained persisted form of one session and its
// document. The vector clock travels as an ordered pair list (see vv.Pair)
// so the shape survives formats without native map types.
type Snapshot struct {
	Session  Session          `json:"session"`
	Document DocumentSnapshot `json:"document"`
}

type DocumentSnapshot struct {
	ID         string      `json:"id"`
	Content    string      `json:"content"`
	Version    uint64      `json:"version"`
	Clock      vv.VV       `json:"vectorClock"`
	Operations []Operation `json:"operations"`
}

// Serialize renders the session and its document as a JSON snapshot.
func (e *Engine) Serialize(sessionID string) ([]byte, error) {
	ls, ok := e.sessions.Load(sessionID)
	if !ok {
		return nil, ErrSessionUnknown
	}

	doc := ls.doc
	doc.lock.Lock()
	snap := Snapshot{
		Document: DocumentSnapshot{
			ID:         doc.id,
			Content:    string(doc.content),
			Version:    doc.version,
			Clock:      doc.clock.Copy(),
			Operations: append([]Operation(nil), doc.log...),
		},
	}
	doc.lock.Unlock()
	snap.Session = ls.snapshot()

	return json.Marshal(snap)
}

// Deserialize reconstructs a session and its document from a snapshot and
// registers them, returning the session id. Parse and shape failures yield
// ErrBadSnapshot: callers treat that as "nothing to restore", not a crash.
func (e *Engine) Deserialize(data []byte) (string, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return "", ErrBadSnapshot
	}
	if snap.Session.ID == "" || snap.Document.ID == "" {
		return "", ErrBadSnapshot
	}
	if snap.Document.Version != uint64(len(snap.Document.Operations)) {
		// version == log length is a core invariant; a snapshot that breaks
		// it cannot have come from Serialize.
		return "", ErrBadSnapshot
	}

	clock := snap.Document.Clock
	if clock == nil {
		clock = vv.New()
	}
	for i := range snap.Document.Operations {
		if snap.Document.Operations[i].Clock == nil {
			return "", ErrBadSnapshot
		}
	}

	doc := &Document{
		id:      snap.Document.ID,
		content: []rune(snap.Document.Content),
		version: snap.Document.Version,
		clock:   clock,
		log:     snap.Document.Operations,
	}
	ls := &liveSession{rec: snap.Session, doc: doc}

	if _, existed := e.sessions.LoadAndDelete(snap.Session.ID); !existed {
		sessionsActive.Inc()
	}
	e.sessions.Store(snap.Session.ID, ls)
	e.log.Info("session restored", "session", snap.Session.ID,
		"doc", doc.id, "version", doc.version)
	return snap.Session.ID, nil
}
