package peerpad

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionUnknown = errors.New("peerpad: unknown session")

// Permissions are the session-level capability flags.
type Permissions struct {
	Edit    bool `json:"edit"`
	Comment bool `json:"comment"`
	Share   bool `json:"share"`
	Export  bool `json:"export"`
}

func FullPermissions() Permissions {
	return Permissions{Edit: true, Comment: true, Share: true, Export: true}
}

// Cursor is a presence marker. Which fields carry meaning is up to the
// origin: some editors report line/column, some a flat offset.
type Cursor struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"`
}

type Participant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Online     bool      `json:"online"`
	LastActive time.Time `json:"lastActive"`
	Cursor     *Cursor   `json:"cursor,omitempty"`
}

// Session is the record binding one document to its collaborators.
type Session struct {
	ID           string        `json:"id"`
	DocumentID   string        `json:"documentId"`
	Owner        string        `json:"ownerId"`
	Participants []Participant `json:"participants"`
	Permissions  Permissions   `json:"permissions"`
	Active       bool          `json:"active"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// liveSession is the mutable runtime state behind a Session record.
// The lock guards the record and the pending buffer; the document carries
// its own lock. Never take this lock while holding the document's.
type liveSession struct {
	lock    sync.Mutex
	rec     Session
	doc     *Document
	pending []Operation
}

func (ls *liveSession) snapshot() Session {
	ls.lock.Lock()
	defer ls.lock.Unlock()
	rec := ls.rec
	rec.Participants = make([]Participant, len(ls.rec.Participants))
	copy(rec.Participants, ls.rec.Participants)
	for i := range rec.Participants {
		if c := rec.Participants[i].Cursor; c != nil {
			cc := *c
			rec.Participants[i].Cursor = &cc
		}
	}
	return rec
}

func (ls *liveSession) touch(participantID string) {
	now := time.Now()
	ls.lock.Lock()
	defer ls.lock.Unlock()
	ls.rec.UpdatedAt = now
	for i := range ls.rec.Participants {
		if ls.rec.Participants[i].ID == participantID {
			ls.rec.Participants[i].LastActive = now
			return
		}
	}
}

type holdResult int

const (
	holdOK holdResult = iota
	holdDuplicate
	holdFull
)

func (ls *liveSession) hold(op Operation, max int) holdResult {
	ls.lock.Lock()
	defer ls.lock.Unlock()
	if op.ID != "" {
		for i := range ls.pending {
			if ls.pending[i].ID == op.ID {
				return holdDuplicate
			}
		}
	}
	if len(ls.pending) >= max {
		return holdFull
	}
	ls.pending = append(ls.pending, op)
	return holdOK
}

func (ls *liveSession) takePending() []Operation {
	ls.lock.Lock()
	defer ls.lock.Unlock()
	held := ls.pending
	ls.pending = nil
	return held
}

func (ls *liveSession) putPending(ops []Operation) {
	if len(ops) == 0 {
		return
	}
	ls.lock.Lock()
	defer ls.lock.Unlock()
	ls.pending = append(ops, ls.pending...)
}

// CreateSession allocates a fresh document seeded with initialContent and a
// session bound to it, with full permissions for the creating participant.
// A document has no lifecycle of its own: it is born and dies with its session.
func (e *Engine) CreateSession(documentID, initialContent string, owner Participant) Session {
	now := time.Now()
	owner.Online = true
	owner.LastActive = now
	ls := &liveSession{
		rec: Session{
			ID:           uuid.NewString(),
			DocumentID:   documentID,
			Owner:        owner.ID,
			Participants: []Participant{owner},
			Permissions:  FullPermissions(),
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		doc: newDocument(documentID, initialContent),
	}
	e.sessions.Store(ls.rec.ID, ls)
	sessionsActive.Inc()
	e.log.Info("session created", "session", ls.rec.ID, "doc", documentID,
		"owner", owner.ID)
	return ls.snapshot()
}

// JoinSession inserts the participant, replacing any existing entry with the
// same id, and marks it online. Unknown sessions are caller misuse, not a
// transient fault, hence the error.
func (e *Engine) JoinSession(sessionID string, p Participant) error {
	ls, ok := e.sessions.Load(sessionID)
	if !ok {
		return ErrSessionUnknown
	}
	now := time.Now()
	p.Online = true
	p.LastActive = now

	ls.lock.Lock()
	replaced := false
	for i := range ls.rec.Participants {
		if ls.rec.Participants[i].ID == p.ID {
			ls.rec.Participants[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		ls.rec.Participants = append(ls.rec.Participants, p)
	}
	ls.rec.UpdatedAt = now
	ls.lock.Unlock()

	e.log.Info("participant joined", "session", sessionID, "participant", p.ID)
	e.emit(sessionID, Event{
		Kind:          EventParticipant,
		ParticipantID: p.ID,
		Timestamp:     now,
		Data:          ParticipantChange{Action: "joined", Participant: p},
	})
	return nil
}

// LeaveSession marks the participant offline. Participants are kept, not
// removed, so their edit history stays attributable. No-op when unknown.
func (e *Engine) LeaveSession(sessionID, participantID string) {
	ls, ok := e.sessions.Load(sessionID)
	if !ok {
		return
	}
	now := time.Now()
	var left *Participant

	ls.lock.Lock()
	for i := range ls.rec.Participants {
		if ls.rec.Participants[i].ID == participantID {
			ls.rec.Participants[i].Online = false
			ls.rec.Participants[i].LastActive = now
			ls.rec.UpdatedAt = now
			p := ls.rec.Participants[i]
			left = &p
			break
		}
	}
	ls.lock.Unlock()

	if left == nil {
		return
	}
	e.log.Info("participant left", "session", sessionID, "participant", participantID)
	e.emit(sessionID, Event{
		Kind:          EventParticipant,
		ParticipantID: participantID,
		Timestamp:     now,
		Data:          ParticipantChange{Action: "left", Participant: *left},
	})
}

// CloseSession tears down the session, its document and its subscribers.
// Idempotent.
func (e *Engine) CloseSession(sessionID string) {
	ls, ok := e.sessions.LoadAndDelete(sessionID)
	if !ok {
		return
	}
	ls.lock.Lock()
	ls.rec.Active = false
	ls.pending = nil
	ls.lock.Unlock()

	e.subs.Delete(sessionID)
	sessionsActive.Dec()
	e.log.Info("session closed", "session", sessionID)
}

// UpdateCursor moves the participant's presence marker and emits a cursor
// event. No-op when the session or participant is unknown.
func (e *Engine) UpdateCursor(sessionID, participantID string, cursor Cursor) {
	ls, ok := e.sessions.Load(sessionID)
	if !ok {
		return
	}
	now := time.Now()
	found := false

	ls.lock.Lock()
	for i := range ls.rec.Participants {
		if ls.rec.Participants[i].ID == participantID {
			c := cursor
			ls.rec.Participants[i].Cursor = &c
			ls.rec.Participants[i].LastActive = now
			found = true
			break
		}
	}
	ls.lock.Unlock()

	if !found {
		return
	}
	e.emit(sessionID, Event{
		Kind:          EventCursor,
		ParticipantID: participantID,
		Timestamp:     now,
		Data:          cursor,
	})
}
