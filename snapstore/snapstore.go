// Package snapstore keeps engine snapshots in a local pebble database.
// It is the persistence collaborator, not part of the sync core: the host
// decides when to checkpoint, the engine never calls in here on its own.
package snapstore

import (
	"encoding/binary"

	"github.com/cespare/xxhash"
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("snapstore: no snapshot")
var ErrCorrupt = errors.New("snapstore: snapshot hash mismatch")

var writeOptions = pebble.WriteOptions{Sync: true}

type Store struct {
	db *pebble.DB
}

func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "snapstore: open")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func key(sessionID string) []byte {
	return append([]byte{'S'}, sessionID...)
}

// Save stores the snapshot under the session id, prefixed with its xxhash64
// so Load can detect torn or tampered values.
func (s *Store) Save(sessionID string, snapshot []byte) error {
	val := binary.BigEndian.AppendUint64(nil, xxhash.Sum64(snapshot))
	val = append(val, snapshot...)
	if err := s.db.Set(key(sessionID), val, &writeOptions); err != nil {
		return errors.Wrap(err, "snapstore: save")
	}
	return nil
}

func (s *Store) Load(sessionID string) ([]byte, error) {
	val, closer, err := s.db.Get(key(sessionID))
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "snapstore: load")
	}
	defer func() { _ = closer.Close() }()

	if len(val) < 8 {
		return nil, ErrCorrupt
	}
	sum := binary.BigEndian.Uint64(val[:8])
	snapshot := append([]byte(nil), val[8:]...)
	if xxhash.Sum64(snapshot) != sum {
		return nil, ErrCorrupt
	}
	return snapshot, nil
}

func (s *Store) Delete(sessionID string) error {
	return s.db.Delete(key(sessionID), &writeOptions)
}

// List returns the session ids with a stored snapshot.
func (s *Store) List() (ids []string, err error) {
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{'S'},
		UpperBound: []byte{'T'},
	})
	if err != nil {
		return nil, errors.Wrap(err, "snapstore: list")
	}
	for it.First(); it.Valid(); it.Next() {
		ids = append(ids, string(it.Key()[1:]))
	}
	err = it.Close()
	return
}
