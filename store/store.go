// Package store defines the durable element-store contract. The board
// server keys it by session id; the value is the full session record
// (id, creation time, element sequence) serialized as JSON.
package store

import (
	"errors"

	"github.com/inkboard/boardserver/models"
)

// ErrNotFound is returned by Get when no record exists for the given
// session id.
var ErrNotFound = errors.New("store: session not found")

// Store is the embedded ordered key/value contract spec.md §2
// component 2 describes: get, put, and key enumeration, keyed by
// session id.
type Store interface {
	// Get returns the session record for id, or ErrNotFound.
	Get(id string) (models.Session, error)
	// Put durably writes the full session record before returning.
	Put(session models.Session) error
	// Keys enumerates every session id currently in the store.
	Keys() ([]string, error)
	// Close releases the underlying storage engine.
	Close() error
}
