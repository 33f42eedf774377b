// Package memstore is an in-memory store.Store used by tests that
// need real get/put/enumerate semantics (including a simulated
// restart) without standing up Pebble or hand-rolling mock
// expectations for every call.
package memstore

import (
	"encoding/json"
	"sync"

	"github.com/inkboard/boardserver/models"
	"github.com/inkboard/boardserver/store"
)

// Store is a sync.Mutex-guarded map keyed by session id. Values are
// round-tripped through JSON so tests exercise the same serialization
// the Pebble-backed store would.
type Store struct {
	mu   sync.Mutex
	data map[string][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Reopen returns a new Store sharing the same backing bytes, the way a
// process restart against the same data directory would rehydrate
// from disk.
func (s *Store) Reopen() *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		data[k] = v
	}
	return &Store{data: data}
}

func (s *Store) Get(id string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.data[id]
	if !ok {
		return models.Session{}, store.ErrNotFound
	}
	var sess models.Session
	if err := json.Unmarshal(buf, &sess); err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

func (s *Store) Put(session models.Session) error {
	buf, err := json.Marshal(session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[session.ID] = buf
	return nil
}

func (s *Store) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.data))
	for k := range s.data {
		ids = append(ids, k)
	}
	return ids, nil
}

func (s *Store) Close() error { return nil }
