package peerpad

import (
	"sync"
	"time"
)

type EventKind string

const (
	EventContent     EventKind = "content"
	EventCursor      EventKind = "cursor"
	EventParticipant EventKind = "participant"
)

// Event is the outbound payload delivered to subscribers. Data is the
// Operation for content events, the Cursor for cursor events and a
// ParticipantChange for participant events.
type Event struct {
	Kind          EventKind
	ParticipantID string
	Timestamp     time.Time
	Data          any
}

type ParticipantChange struct {
	Action      string
	Participant Participant
}

type Callback func(Event)

type subscriber struct {
	id uint64
	cb Callback
}

type subscriberSet struct {
	lock sync.Mutex
	next uint64
	subs []subscriber
}

func (ss *subscriberSet) add(cb Callback) uint64 {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	ss.next++
	ss.subs = append(ss.subs, subscriber{id: ss.next, cb: cb})
	return ss.next
}

func (ss *subscriberSet) remove(id uint64) {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	for i := range ss.subs {
		if ss.subs[i].id == id {
			ss.subs = append(ss.subs[:i], ss.subs[i+1:]...)
			return
		}
	}
}

func (ss *subscriberSet) snapshot() []subscriber {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	ret := make([]subscriber, len(ss.subs))
	copy(ret, ss.subs)
	return ret
}

// Subscribe registers a callback for the session's events and returns a
// function that removes exactly that registration. Subscribing to an id with
// no live session is allowed; listeners simply wait for one to appear under
// that id (e.g. via Deserialize).
func (e *Engine) Subscribe(sessionID string, cb Callback) (unsubscribe func()) {
	ss, _ := e.subs.LoadOrStore(sessionID, &subscriberSet{})
	id := ss.add(cb)
	return func() {
		ss.remove(id)
	}
}

// emit delivers the event synchronously, in registration order. A failing
// listener must not starve the rest, so each visit is isolated.
func (e *Engine) emit(sessionID string, ev Event) {
	ss, ok := e.subs.Load(sessionID)
	if !ok {
		return
	}
	for _, sub := range ss.snapshot() {
		e.visit(sub.cb, ev)
	}
}

func (e *Engine) visit(cb Callback, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("subscriber panicked", "kind", ev.Kind, "panic", r)
		}
	}()
	cb(ev)
}
