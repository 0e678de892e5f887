package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// MemStore is the in-process store implementation. It is the default
// backend for a single-venue session and the test double for everything
// that talks to a Store.
type MemStore struct {
	mu     sync.Mutex
	root   map[string]interface{}
	subs   map[int]*memSub
	nextID int
}

type memSub struct {
	path []string
	fn   ChangeFunc
}

func NewMemStore() *MemStore {
	return &MemStore{
		root: map[string]interface{}{},
		subs: map[int]*memSub{},
	}
}

func (m *MemStore) Read(ctx context.Context, path string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	node, ok := getAtPath(m.root, splitPath(path))
	if !ok {
		return nil, ErrNotFound
	}
	return json.Marshal(node)
}

func (m *MemStore) AtomicUpdate(ctx context.Context, updates map[string]interface{}) error {
	// Decode everything before touching the tree so a marshal error can't
	// leave a partial write behind.
	decoded := make(map[string]interface{}, len(updates))
	for path, value := range updates {
		tree, err := toTree(value)
		if err != nil {
			return err
		}
		decoded[path] = tree
	}

	m.mu.Lock()
	for path, tree := range decoded {
		segments := splitPath(path)
		if len(segments) == 0 {
			continue
		}
		setAtPath(m.root, segments, tree)
	}
	notify := m.pendingNotifications(decoded)
	m.mu.Unlock()

	for _, n := range notify {
		n.fn(n.path, n.data)
	}
	return nil
}

type notification struct {
	fn   ChangeFunc
	path string
	data json.RawMessage
}

// pendingNotifications collects the callbacks affected by the just-applied
// writes, with their data snapshotted while the lock is still held.
func (m *MemStore) pendingNotifications(updates map[string]interface{}) []notification {
	var out []notification
	for _, sub := range m.subs {
		affected := false
		for path := range updates {
			if pathsOverlap(sub.path, splitPath(path)) {
				affected = true
				break
			}
		}
		if !affected {
			continue
		}
		node, ok := getAtPath(m.root, sub.path)
		if !ok {
			continue
		}
		data, err := json.Marshal(node)
		if err != nil {
			continue
		}
		out = append(out, notification{
			fn:   sub.fn,
			path: strings.Join(sub.path, "/"),
			data: data,
		})
	}
	return out
}

func (m *MemStore) CreateUnique(ctx context.Context, parentPath string, value interface{}) (string, error) {
	key := PushID()
	err := m.AtomicUpdate(ctx, map[string]interface{}{
		parentPath + "/" + key: value,
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (m *MemStore) Subscribe(ctx context.Context, path string, fn ChangeFunc) (func(), error) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = &memSub{path: splitPath(path), fn: fn}
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
	return cancel, nil
}

func (m *MemStore) Close() error {
	return nil
}
