// Package store defines the realtime-store contract the game core needs:
// read-current-document, atomic multi-key update, push-once-under-unique-
// key, and change subscription. Two implementations are provided: an
// in-memory store (also the test double) and a redis-backed one.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrNotFound = errors.New("store: path not found")

// ChangeFunc receives the serialized value now living at the subscribed
// path after any write that touches it.
type ChangeFunc func(path string, data json.RawMessage)

// Store is a hierarchical key/value document store with last-write-wins
// per-key semantics. Paths are slash-separated; a read at an interior path
// returns the whole subtree as one JSON document.
type Store interface {
	// Read returns the value at the path, or ErrNotFound.
	Read(ctx context.Context, path string) (json.RawMessage, error)

	// AtomicUpdate applies every path→value write together or not at all.
	AtomicUpdate(ctx context.Context, updates map[string]interface{}) error

	// CreateUnique stores the value under a fresh time-ordered key below
	// parentPath and returns the key.
	CreateUnique(ctx context.Context, parentPath string, value interface{}) (string, error)

	// Subscribe registers fn to be called after any write under path. The
	// returned cancel function removes the subscription.
	Subscribe(ctx context.Context, path string, fn ChangeFunc) (func(), error)

	Close() error
}
