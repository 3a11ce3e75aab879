// Package vv implements version vectors keyed by participant id.
package vv

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/learn-decentralized-systems/toytlv"
)

// VV is a version vector, max counters seen from each known participant.
// A missing entry reads as zero.
type VV map[string]uint64

func New() VV {
	return make(VV)
}

func (vv VV) Get(src string) (pro uint64) {
	return vv[src]
}

// Set the progress for the specified participant
func (vv VV) Set(src string, pro uint64) {
	vv[src] = pro
}

// Put the src-pro pair to the VV, returns whether it was
// unseen (i.e. made any difference)
func (vv VV) Put(src string, pro uint64) bool {
	pre, ok := vv[src]
	if ok && pre >= pro {
		return false
	}
	vv[src] = pro
	return true
}

// Inc bumps the participant's counter by one and returns the new value.
func (vv VV) Inc(src string) uint64 {
	vv[src]++
	return vv[src]
}

// Merge folds b into vv, entry-wise max. Entries never decrease.
func (vv VV) Merge(b VV) {
	for src, pro := range b {
		vv.Put(src, pro)
	}
}

func (vv VV) Copy() VV {
	ret := make(VV, len(vv))
	for src, pro := range vv {
		ret[src] = pro
	}
	return ret
}

// Seen tells whether vv covers every entry of b.
func (vv VV) Seen(b VV) bool {
	for src, pro := range b {
		if pro > vv[src] {
			return false
		}
	}
	return true
}

// Pair is one (participant, counter) entry in the ordered list form.
// It marshals as a two-element JSON array, ["src", n], so the vector
// stays representable in formats without native map types.
type Pair struct {
	Src string
	Pro uint64
}

var ErrBadPair = errors.New("vv: bad clock pair")

func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Src, p.Pro})
}

func (p *Pair) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return ErrBadPair
	}
	if err := json.Unmarshal(raw[0], &p.Src); err != nil {
		return ErrBadPair
	}
	if err := json.Unmarshal(raw[1], &p.Pro); err != nil {
		return ErrBadPair
	}
	return nil
}

// Pairs returns the entries sorted by participant id.
func (vv VV) Pairs() []Pair {
	ret := make([]Pair, 0, len(vv))
	for src, pro := range vv {
		ret = append(ret, Pair{Src: src, Pro: pro})
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Src < ret[j].Src })
	return ret
}

func FromPairs(pairs []Pair) VV {
	vv := make(VV, len(pairs))
	for _, p := range pairs {
		vv.Put(p.Src, p.Pro)
	}
	return vv
}

func (vv VV) MarshalJSON() ([]byte, error) {
	return json.Marshal(vv.Pairs())
}

func (vv *VV) UnmarshalJSON(data []byte) error {
	var pairs []Pair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	*vv = FromPairs(pairs)
	return nil
}

// TLV renders the vector as a sequence of V records, each carrying
// an uvarint counter followed by the participant id bytes.
func (vv VV) TLV() (ret []byte) {
	for _, p := range vv.Pairs() {
		body := binary.AppendUvarint(nil, p.Pro)
		body = append(body, p.Src...)
		ret = toytlv.Append(ret, 'V', body)
	}
	return
}

var ErrBadVRecord = errors.New("vv: bad V record")

// PutTLV consumes a sequence of V records, merging them in.
func (vv VV) PutTLV(rec []byte) (err error) {
	rest := rec
	for len(rest) > 0 {
		var body []byte
		body, rest, err = toytlv.TakeWary('V', rest)
		if err != nil {
			return
		}
		pro, n := binary.Uvarint(body)
		if n <= 0 {
			return ErrBadVRecord
		}
		vv.Put(string(body[n:]), pro)
	}
	return
}

func FromTLV(tlv []byte) (VV, error) {
	vv := make(VV)
	if err := vv.PutTLV(tlv); err != nil {
		return nil, err
	}
	return vv, nil
}

func (vv VV) String() string {
	pairs := vv.Pairs()
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.Src+":"+strconv.FormatUint(p.Pro, 10))
	}
	return strings.Join(parts, ",")
}
