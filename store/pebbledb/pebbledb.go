// Package pebbledb implements store.Store on top of CockroachDB's
// Pebble, an embedded ordered LSM key/value engine. The wrapper shape
// (Open under a base directory, Set with pebble.Sync, Get with an
// explicit value copy, NewIter for enumeration) follows
// progressdb-ProgressDB's kms pebble store wrapper.
package pebbledb

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"

	"github.com/inkboard/boardserver/models"
	"github.com/inkboard/boardserver/store"
)

const keyPrefix = "session:"

// Store is a store.Store backed by a Pebble database rooted at a
// single directory.
type Store struct {
	db *pebble.DB
}

// Open creates (if needed) and opens the Pebble database at dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pebbledb: create data dir: %w", err)
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebbledb: open: %w", err)
	}
	return &Store{db: db}, nil
}

func sessionKey(id string) []byte {
	return []byte(keyPrefix + id)
}

// Get implements store.Store.
func (s *Store) Get(id string) (models.Session, error) {
	val, closer, err := s.db.Get(sessionKey(id))
	if err != nil {
		if err == pebble.ErrNotFound {
			return models.Session{}, store.ErrNotFound
		}
		return models.Session{}, fmt.Errorf("pebbledb: get %s: %w", id, err)
	}
	defer closer.Close()

	var sess models.Session
	if err := json.Unmarshal(val, &sess); err != nil {
		return models.Session{}, fmt.Errorf("pebbledb: decode %s: %w", id, err)
	}
	return sess, nil
}

// Put implements store.Store. The write is fsync'd (pebble.Sync)
// before returning, satisfying spec.md §4.2's durability contract: a
// mutation must be durably written before it is acknowledged.
func (s *Store) Put(session models.Session) error {
	buf, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("pebbledb: encode %s: %w", session.ID, err)
	}
	if err := s.db.Set(sessionKey(session.ID), buf, pebble.Sync); err != nil {
		return fmt.Errorf("pebbledb: put %s: %w", session.ID, err)
	}
	return nil
}

// Keys implements store.Store by iterating every key under the
// session prefix.
func (s *Store) Keys() ([]string, error) {
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "\xff"),
	})
	if err != nil {
		return nil, fmt.Errorf("pebbledb: iterate: %w", err)
	}
	defer it.Close()

	var ids []string
	for ok := it.First(); ok; ok = it.Next() {
		ids = append(ids, string(it.Key()[len(keyPrefix):]))
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("pebbledb: iterate: %w", err)
	}
	return ids, nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.db.Close()
}
