package peerpad

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerpad/peerpad/vv"
)

func testEngine() *Engine {
	return New(Options{Logger: testLogger()})
}

func TestDocumentLocalInsert(t *testing.T) {
	e := testEngine()
	sess := e.CreateSession("doc-1", "Hello", Participant{ID: "alice", Name: "Alice"})

	op, err := e.ApplyLocal(sess.ID, Update{
		Origin:   "alice",
		Kind:     OpInsert,
		Position: 5,
		Text:     " World",
	})
	require.NoError(t, err)

	content, ok := e.Content(sess.ID)
	require.True(t, ok)
	assert.Equal(t, "Hello World", content)

	doc, _ := e.Document(sess.ID)
	assert.Equal(t, uint64(1), doc.Version())
	assert.Equal(t, uint64(1), doc.Clock().Get("alice"))
	assert.Equal(t, uint64(1), op.Clock.Get("alice"))
	assert.Equal(t, "alice", op.Origin)
	assert.NotEmpty(t, op.ID)
}

func TestDocumentInsertThenDeleteInverse(t *testing.T) {
	e := testEngine()
	sess := e.CreateSession("doc-1", "Hello", Participant{ID: "alice"})

	_, err := e.ApplyLocal(sess.ID, Update{Origin: "alice", Kind: OpInsert, Position: 2, Text: "XYZ"})
	require.NoError(t, err)
	_, err = e.ApplyLocal(sess.ID, Update{Origin: "alice", Kind: OpDelete, Position: 2, Length: 3})
	require.NoError(t, err)

	content, _ := e.Content(sess.ID)
	assert.Equal(t, "Hello", content, "inverse restores the content")

	// ops are logged even when their net content effect cancels
	doc, _ := e.Document(sess.ID)
	assert.Equal(t, uint64(2), doc.Version())
	assert.Len(t, doc.Log(), 2)
}

func TestDocumentVersionTracksLog(t *testing.T) {
	e := testEngine()
	sess := e.CreateSession("doc-1", "", Participant{ID: "alice"})
	doc, _ := e.Document(sess.ID)

	for i := 0; i < 10; i++ {
		_, err := e.ApplyLocal(sess.ID, Update{Origin: "alice", Kind: OpInsert, Position: i, Text: "a"})
		require.NoError(t, err)
		assert.Equal(t, doc.Version(), uint64(len(doc.Log())))
	}
	assert.Equal(t, uint64(10), doc.Clock().Get("alice"))
}

func TestDocumentClamping(t *testing.T) {
	e := testEngine()
	sess := e.CreateSession("doc-1", "abc", Participant{ID: "alice"})

	// insert far past the end lands at the end
	_, err := e.ApplyLocal(sess.ID, Update{Origin: "alice", Kind: OpInsert, Position: 100, Text: "!"})
	require.NoError(t, err)
	content, _ := e.Content(sess.ID)
	assert.Equal(t, "abc!", content)

	// negative positions land at the start
	_, err = e.ApplyLocal(sess.ID, Update{Origin: "alice", Kind: OpInsert, Position: -5, Text: ">"})
	require.NoError(t, err)
	content, _ = e.Content(sess.ID)
	assert.Equal(t, ">abc!", content)

	// delete ranges are clipped to the content
	_, err = e.ApplyLocal(sess.ID, Update{Origin: "alice", Kind: OpDelete, Position: 3, Length: 100})
	require.NoError(t, err)
	content, _ = e.Content(sess.ID)
	assert.Equal(t, ">ab", content)

	_, err = e.ApplyLocal(sess.ID, Update{Origin: "alice", Kind: OpDelete, Position: -2, Length: 1})
	require.NoError(t, err)
	content, _ = e.Content(sess.ID)
	assert.Equal(t, "ab", content)

	doc, _ := e.Document(sess.ID)
	assert.Equal(t, doc.Version(), uint64(len(doc.Log())), "clamped ops still count")
}

func TestDocumentStampsClampedCoordinates(t *testing.T) {
	e := testEngine()
	sess := e.CreateSession("doc-1", "abc", Participant{ID: "alice"})

	// the logged op records where the edit actually landed, not the raw input
	op, err := e.ApplyLocal(sess.ID, Update{Origin: "alice", Kind: OpInsert, Position: -5, Text: ">"})
	require.NoError(t, err)
	assert.Equal(t, 0, op.Position)

	op, err = e.ApplyLocal(sess.ID, Update{Origin: "alice", Kind: OpDelete, Position: 2, Length: 100})
	require.NoError(t, err)
	assert.Equal(t, 2, op.Position)
	assert.Equal(t, 2, op.Length)

	content, _ := e.Content(sess.ID)
	assert.Equal(t, ">a", content)

	// clamped coordinates survive the wire encoding unchanged
	sid, got, err := ParseOp(EncodeOp(sess.ID, op))
	require.NoError(t, err)
	assert.Equal(t, sess.ID, sid)
	assert.Equal(t, op.Position, got.Position)
	assert.Equal(t, op.Length, got.Length)
}

func TestDocumentRuneSafety(t *testing.T) {
	e := testEngine()
	sess := e.CreateSession("doc-1", "héllo", Participant{ID: "alice"})

	_, err := e.ApplyLocal(sess.ID, Update{Origin: "alice", Kind: OpDelete, Position: 1, Length: 1})
	require.NoError(t, err)
	content, _ := e.Content(sess.ID)
	assert.Equal(t, "hllo", content, "positions are character offsets, not bytes")
}

func TestDocumentDigest(t *testing.T) {
	e := testEngine()
	sess := e.CreateSession("doc-1", "same", Participant{ID: "alice"})
	other := e.CreateSession("doc-2", "same", Participant{ID: "bob"})

	d1, _ := e.Document(sess.ID)
	d2, _ := e.Document(other.ID)
	assert.Equal(t, d1.Digest(), d2.Digest())

	_, _ = e.ApplyLocal(sess.ID, Update{Origin: "alice", Kind: OpInsert, Position: 0, Text: "x"})
	assert.NotEqual(t, d1.Digest(), d2.Digest())
}

func TestDocumentClockNeverDecreases(t *testing.T) {
	e := testEngine()
	sess := e.CreateSession("doc-1", "", Participant{ID: "alice"})
	doc, _ := e.Document(sess.ID)

	prev := doc.Clock()
	ops := []Operation{
		{ID: "r1", Kind: OpInsert, Position: 0, Text: "a", Origin: "bob",
			Timestamp: time.Now(), Clock: vv.VV{"bob": 1}},
		{ID: "r2", Kind: OpInsert, Position: 0, Text: "b", Origin: "bob",
			Timestamp: time.Now(), Clock: vv.VV{"bob": 2}},
	}
	for _, op := range ops {
		e.ApplyRemote(sess.ID, op)
		cur := doc.Clock()
		assert.True(t, cur.Seen(prev), "clock must cover its past")
		prev = cur
	}
}
