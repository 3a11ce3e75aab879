package peerpad

import (
	"sync"
	"time"

	"github.com/cespare/xxhash"

	"github.com/peerpad/peerpad/vv"
)

// Document owns one piece of shared text. All mutation goes through apply,
// under one mutex, so the content, version counter, clock and log are never
// observed half-updated. Invariant: version == len(log).
type Document struct {
	id string

	lock    sync.Mutex
	content []rune
	version uint64
	clock   vv.VV
	log     []Operation
}

func newDocument(id, content string) *Document {
	return &Document{
		id:      id,
		content: []rune(content),
		clock:   vv.New(),
	}
}

func (d *Document) ID() string {
	return d.id
}

func (d *Document) Content() string {
	d.lock.Lock()
	defer d.lock.Unlock()
	return string(d.content)
}

func (d *Document) Version() uint64 {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.version
}

// Clock returns a copy of the document's vector clock.
func (d *Document) Clock() vv.VV {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.clock.Copy()
}

// Log returns a copy of the append-only operation log.
func (d *Document) Log() []Operation {
	d.lock.Lock()
	defer d.lock.Unlock()
	ret := make([]Operation, len(d.log))
	copy(ret, d.log)
	return ret
}

// Digest is the xxhash64 of the current content.
func (d *Document) Digest() uint64 {
	d.lock.Lock()
	defer d.lock.Unlock()
	return xxhash.Sum64String(string(d.content))
}

// applyLocal builds an operation from the update and applies it, all in one
// critical section: the clock snapshot and the origin increment must not
// interleave with another apply.
func (d *Document) applyLocal(up Update, id string, now time.Time) Operation {
	d.lock.Lock()
	defer d.lock.Unlock()

	// The stamped op is what gets logged and broadcast, so it carries the
	// clamped coordinates rather than whatever the caller passed in.
	up.Position = clamp(up.Position, 0, len(d.content))
	if up.Kind == OpDelete {
		up.Length = clamp(up.Length, 0, len(d.content)-up.Position)
	}

	clock := d.clock.Copy()
	clock.Inc(up.Origin)
	op := Operation{
		ID:        id,
		Kind:      up.Kind,
		Position:  up.Position,
		Text:      up.Text,
		Length:    up.Length,
		Origin:    up.Origin,
		Timestamp: now,
		Clock:     clock,
	}
	d.splice(op)
	return op
}

// applyRemote runs the causal gate and, when the operation is admissible,
// applies it. Returns whether it was applied.
func (d *Document) applyRemote(op Operation) bool {
	d.lock.Lock()
	defer d.lock.Unlock()

	if !d.admits(op) {
		return false
	}
	d.splice(op)
	return true
}

// splice mutates content and bumps the version/log/clock. Caller holds the lock.
// Out-of-range positions are clamped, never fatal: concurrent origins may
// race past each other's content bounds.
func (d *Document) splice(op Operation) {
	pos := clamp(op.Position, 0, len(d.content))
	switch op.Kind {
	case OpInsert:
		text := []rune(op.Text)
		next := make([]rune, 0, len(d.content)+len(text))
		next = append(next, d.content[:pos]...)
		next = append(next, text...)
		next = append(next, d.content[pos:]...)
		d.content = next
	case OpDelete:
		end := clamp(pos+op.Length, pos, len(d.content))
		d.content = append(d.content[:pos], d.content[end:]...)
	}
	d.version++
	d.log = append(d.log, op)
	d.clock.Merge(op.Clock)
}

func clamp(i, lo, hi int) int {
	if i < lo {
		return lo
	}
	if i > hi {
		return hi
	}
	return i
}
