package peerpad

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/learn-decentralized-systems/toyqueue"
	"github.com/learn-decentralized-systems/toytlv"

	"github.com/peerpad/peerpad/vv"
)

// Wire form of one operation, for the transport layer to carry. This is a
// codec, not a protocol: framing, delivery and retry stay with the host.
//
//	I/D ( S session, U op-id, G origin, N position,
//	      T text | L length, M unix-nanos, V clock )

var ErrBadPacket = errors.New("peerpad: bad op packet")

const FeedQueueLimit = 1 << 20

func EncodeOp(sessionID string, op Operation) []byte {
	lit := byte('I')
	if op.Kind == OpDelete {
		lit = 'D'
	}
	body := toytlv.Record('S', []byte(sessionID))
	body = toytlv.Append(body, 'U', []byte(op.ID))
	body = toytlv.Append(body, 'G', []byte(op.Origin))
	body = toytlv.Append(body, 'N', binary.AppendUvarint(nil, uint64(op.Position)))
	if op.Kind == OpDelete {
		body = toytlv.Append(body, 'L', binary.AppendUvarint(nil, uint64(op.Length)))
	} else {
		body = toytlv.Append(body, 'T', []byte(op.Text))
	}
	body = toytlv.Append(body, 'M', binary.AppendUvarint(nil, uint64(op.Timestamp.UnixNano())))
	body = toytlv.Append(body, 'V', op.Clock.TLV())
	return toytlv.Record(lit, body)
}

func ParseOp(packet []byte) (sessionID string, op Operation, err error) {
	lit, body, rest, err := toytlv.TakeAnyWary(packet)
	if err != nil {
		return
	}
	if len(rest) != 0 || (lit != 'I' && lit != 'D') {
		err = ErrBadPacket
		return
	}
	if lit == 'D' {
		op.Kind = OpDelete
	} else {
		op.Kind = OpInsert
	}

	var val []byte
	if val, body, err = toytlv.TakeWary('S', body); err != nil {
		return
	}
	sessionID = string(val)
	if val, body, err = toytlv.TakeWary('U', body); err != nil {
		return
	}
	op.ID = string(val)
	if val, body, err = toytlv.TakeWary('G', body); err != nil {
		return
	}
	op.Origin = string(val)
	if val, body, err = toytlv.TakeWary('N', body); err != nil {
		return
	}
	pos, n := binary.Uvarint(val)
	if n <= 0 {
		err = ErrBadPacket
		return
	}
	op.Position = int(pos)

	if op.Kind == OpDelete {
		if val, body, err = toytlv.TakeWary('L', body); err != nil {
			return
		}
		length, ln := binary.Uvarint(val)
		if ln <= 0 {
			err = ErrBadPacket
			return
		}
		op.Length = int(length)
	} else {
		if val, body, err = toytlv.TakeWary('T', body); err != nil {
			return
		}
		op.Text = string(val)
	}

	if val, body, err = toytlv.TakeWary('M', body); err != nil {
		return
	}
	nanos, mn := binary.Uvarint(val)
	if mn <= 0 {
		err = ErrBadPacket
		return
	}
	op.Timestamp = time.Unix(0, int64(nanos))

	if val, _, err = toytlv.TakeWary('V', body); err != nil {
		return
	}
	op.Clock, err = vv.FromTLV(val)
	return
}

// AddFeed attaches a named outbound queue; every locally applied operation
// is drained into it, encoded, for the transport to feed to peers. Attaching
// under an existing name replaces (and closes) the old queue.
func (e *Engine) AddFeed(name string) toyqueue.FeedCloser {
	queue := toyqueue.RecordQueue{Limit: FeedQueueLimit}
	e.hlock.Lock()
	q := e.hoses[name]
	e.hoses[name] = &queue
	e.hlock.Unlock()
	if q != nil {
		e.log.Warn("replacing feed", "name", name)
		_ = q.Close()
	}
	return queue.Blocking()
}

func (e *Engine) RemoveFeed(name string) {
	e.hlock.Lock()
	q := e.hoses[name]
	delete(e.hoses, name)
	e.hlock.Unlock()
	if q != nil {
		_ = q.Close()
	}
}

func (e *Engine) broadcast(sessionID string, op Operation) {
	e.hlock.Lock()
	defer e.hlock.Unlock()
	if len(e.hoses) == 0 {
		return
	}
	recs := toyqueue.Records{EncodeOp(sessionID, op)}
	for name, hose := range e.hoses {
		if err := hose.Drain(recs); err != nil {
			e.log.Warn("dead feed dropped", "name", name, "err", err)
			delete(e.hoses, name)
		}
	}
}

// Drain lets the engine sit directly on the receiving end of a transport
// queue: each record is parsed and pushed through the causal gate.
func (e *Engine) Drain(recs toyqueue.Records) error {
	for _, packet := range recs {
		sessionID, op, err := ParseOp(packet)
		if err != nil {
			e.log.Warn("bad packet", "err", err)
			return err
		}
		e.ApplyRemote(sessionID, op)
	}
	return nil
}
