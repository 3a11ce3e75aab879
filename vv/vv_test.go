package vv

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVVPutMerge(t *testing.T) {
	a := New()
	assert.True(t, a.Put("alice", 1))
	assert.True(t, a.Put("alice", 3))
	assert.False(t, a.Put("alice", 2), "entries never decrease")
	assert.Equal(t, uint64(3), a.Get("alice"))

	b := VV{"alice": 2, "bob": 5}
	a.Merge(b)
	assert.Equal(t, uint64(3), a.Get("alice"))
	assert.Equal(t, uint64(5), a.Get("bob"))
	assert.Equal(t, uint64(0), a.Get("carol"))
}

func TestVVSeen(t *testing.T) {
	a := VV{"alice": 3, "bob": 1}
	assert.True(t, a.Seen(VV{"alice": 2}))
	assert.True(t, a.Seen(VV{"alice": 3, "bob": 1}))
	assert.False(t, a.Seen(VV{"alice": 4}))
	assert.False(t, a.Seen(VV{"carol": 1}))
	assert.True(t, a.Seen(VV{}))
}

func TestVVInc(t *testing.T) {
	a := New()
	assert.Equal(t, uint64(1), a.Inc("alice"))
	assert.Equal(t, uint64(2), a.Inc("alice"))

	c := a.Copy()
	c.Inc("alice")
	assert.Equal(t, uint64(2), a.Get("alice"), "copies are independent")
}

func TestVVPairs(t *testing.T) {
	a := VV{"bob": 2, "alice": 1, "carol": 7}
	pairs := a.Pairs()
	assert.Equal(t, []Pair{{"alice", 1}, {"bob", 2}, {"carol", 7}}, pairs)
	assert.Equal(t, a, FromPairs(pairs))
}

func TestVVJSON(t *testing.T) {
	a := VV{"bob": 2, "alice": 1}
	data, err := json.Marshal(a)
	assert.NoError(t, err)
	assert.Equal(t, `[["alice",1],["bob",2]]`, string(data))

	var back VV
	assert.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, a, back)

	// pair order must not matter on input
	assert.NoError(t, json.Unmarshal([]byte(`[["bob",2],["alice",1]]`), &back))
	assert.Equal(t, a, back)

	assert.Error(t, json.Unmarshal([]byte(`[["bob"]]`), &back))
	assert.Error(t, json.Unmarshal([]byte(`{"bob":2}`), &back))
}

func TestVVTLV(t *testing.T) {
	a := VV{"alice": 1, "bob": 1 << 40}
	back, err := FromTLV(a.TLV())
	assert.NoError(t, err)
	assert.Equal(t, a, back)

	empty, err := FromTLV(nil)
	assert.NoError(t, err)
	assert.Equal(t, VV{}, empty)

	_, err = FromTLV([]byte{0xff, 0x01, 'x'})
	assert.Error(t, err)
}

func TestVVString(t *testing.T) {
	assert.Equal(t, "", New().String())
	assert.Equal(t, "alice:3,bob:1", VV{"bob": 1, "alice": 3}.String())
}
