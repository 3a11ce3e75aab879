package peerpad

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerpad/peerpad/vv"
)

func TestOpPacketRoundTrip(t *testing.T) {
	in := Operation{
		ID:        "op-1",
		Kind:      OpInsert,
		Position:  5,
		Text:      " World",
		Origin:    "alice",
		Timestamp: time.Unix(0, 1700000000000000000),
		Clock:     vv.VV{"alice": 1},
	}
	sid, out, err := ParseOp(EncodeOp("sess-1", in))
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sid)
	assert.Equal(t, in, out)

	del := Operation{
		ID:        "op-2",
		Kind:      OpDelete,
		Position:  2,
		Length:    3,
		Origin:    "bob",
		Timestamp: time.Unix(0, 1700000000000000000),
		Clock:     vv.VV{"alice": 1, "bob": 4},
	}
	sid, out, err = ParseOp(EncodeOp("sess-1", del))
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sid)
	assert.Equal(t, del, out)
}

func TestParseOpGarbage(t *testing.T) {
	_, _, err := ParseOp([]byte("not a packet"))
	assert.Error(t, err)
	_, _, err = ParseOp(nil)
	assert.Error(t, err)
}

func TestFeedCarriesLocalOps(t *testing.T) {
	e := testEngine()
	feed := e.AddFeed("peer-1")
	defer e.RemoveFeed("peer-1")

	sess := e.CreateSession("doc-1", "Hello", Participant{ID: "alice"})
	want, err := e.ApplyLocal(sess.ID, Update{
		Origin: "alice", Kind: OpInsert, Position: 5, Text: " World",
	})
	require.NoError(t, err)

	recs, err := feed.Feed()
	require.NoError(t, err)
	require.Len(t, recs, 1)

	sid, got, err := ParseOp(recs[0])
	require.NoError(t, err)
	assert.Equal(t, sess.ID, sid)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Text, got.Text)
	assert.Equal(t, want.Clock, got.Clock)
}

// Two engines wired feed-to-drain converge on the same content.
func TestEngineToEngineRelay(t *testing.T) {
	a := testEngine()
	b := testEngine()

	sess := a.CreateSession("doc-1", "Hello", Participant{ID: "alice"})
	snap, err := a.Serialize(sess.ID)
	require.NoError(t, err)
	_, err = b.Deserialize(snap)
	require.NoError(t, err)

	feed := a.AddFeed("b")
	defer a.RemoveFeed("b")

	_, err = a.ApplyLocal(sess.ID, Update{Origin: "alice", Kind: OpInsert, Position: 5, Text: " World"})
	require.NoError(t, err)
	_, err = a.ApplyLocal(sess.ID, Update{Origin: "alice", Kind: OpInsert, Position: 11, Text: "!"})
	require.NoError(t, err)

	relayed := 0
	for relayed < 2 {
		recs, err := feed.Feed()
		require.NoError(t, err)
		require.NoError(t, b.Drain(recs))
		relayed += len(recs)
	}

	ca, _ := a.Content(sess.ID)
	cb, _ := b.Content(sess.ID)
	assert.Equal(t, ca, cb)

	da, _ := a.Document(sess.ID)
	db, _ := b.Document(sess.ID)
	assert.Equal(t, da.Clock(), db.Clock())
	assert.Equal(t, da.Version(), db.Version())
}

func TestDrainBadPacket(t *testing.T) {
	e := testEngine()
	err := e.Drain([][]byte{[]byte("garbage")})
	assert.Error(t, err)
}
