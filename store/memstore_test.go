package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
)

func TestReadWriteSubtree(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	m := NewMemStore()

	err := m.AtomicUpdate(ctx, map[string]interface{}{
		"games/g1/status": "OPEN",
		"games/g1/round":  3,
	})
	is.NoErr(err)

	raw, err := m.Read(ctx, "games/g1/status")
	is.NoErr(err)
	is.Equal(string(raw), `"OPEN"`)

	// Interior reads return the whole subtree.
	raw, err = m.Read(ctx, "games/g1")
	is.NoErr(err)
	doc := map[string]interface{}{}
	is.NoErr(json.Unmarshal(raw, &doc))
	is.Equal(doc["status"], "OPEN")
	is.Equal(doc["round"], float64(3))
}

func TestReadNotFound(t *testing.T) {
	is := is.New(t)
	m := NewMemStore()
	_, err := m.Read(context.Background(), "games/nope")
	is.Equal(err, ErrNotFound)
}

func TestAtomicUpdateAllOrNothing(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	m := NewMemStore()

	// A value that cannot marshal poisons the whole batch.
	err := m.AtomicUpdate(ctx, map[string]interface{}{
		"games/g1/status": "OPEN",
		"games/g1/bad":    func() {},
	})
	is.True(err != nil)

	_, err = m.Read(ctx, "games/g1/status")
	is.Equal(err, ErrNotFound)
}

func TestLastWriteWins(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	m := NewMemStore()

	is.NoErr(m.AtomicUpdate(ctx, map[string]interface{}{"games/g1/moves/p1": "first"}))
	is.NoErr(m.AtomicUpdate(ctx, map[string]interface{}{"games/g1/moves/p1": "second"}))

	raw, err := m.Read(ctx, "games/g1/moves/p1")
	is.NoErr(err)
	is.Equal(string(raw), `"second"`)
}

func TestSubscribeReceivesOverlappingWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	got := []string{}
	cancel, err := m.Subscribe(ctx, "games/g1", func(path string, data json.RawMessage) {
		got = append(got, string(data))
	})
	assert.NoError(t, err)

	// A write below the subscription fires it with the whole subtree.
	assert.NoError(t, m.AtomicUpdate(ctx, map[string]interface{}{"games/g1/status": "OPEN"}))
	// A write elsewhere does not.
	assert.NoError(t, m.AtomicUpdate(ctx, map[string]interface{}{"games/g2/status": "OPEN"}))

	assert.Len(t, got, 1)
	assert.JSONEq(t, `{"status":"OPEN"}`, got[0])

	cancel()
	assert.NoError(t, m.AtomicUpdate(ctx, map[string]interface{}{"games/g1/round": 2}))
	assert.Len(t, got, 1)
}

func TestSubscribeBatchFiresOnce(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	m := NewMemStore()

	fired := 0
	_, err := m.Subscribe(ctx, "games/g1", func(path string, data json.RawMessage) {
		fired++
	})
	is.NoErr(err)

	// One atomic batch with several keys is one observable change.
	is.NoErr(m.AtomicUpdate(ctx, map[string]interface{}{
		"games/g1/status": "PREPARING",
		"games/g1/round":  2,
		"games/g1/moves":  map[string]interface{}{},
	}))
	is.Equal(fired, 1)
}

func TestCreateUnique(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	m := NewMemStore()

	k1, err := m.CreateUnique(ctx, "games/g1/history", map[string]int{"roundNumber": 1})
	is.NoErr(err)
	k2, err := m.CreateUnique(ctx, "games/g1/history", map[string]int{"roundNumber": 2})
	is.NoErr(err)
	is.True(k1 != k2)

	raw, err := m.Read(ctx, "games/g1/history/"+k2)
	is.NoErr(err)
	is.Equal(string(raw), `{"roundNumber":2}`)
}

func TestPushIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := PushID()
		if seen[id] {
			t.Fatalf("duplicate push id %v", id)
		}
		seen[id] = true
	}
}

func TestPathsOverlap(t *testing.T) {
	type overlaptest struct {
		a, b    string
		overlap bool
	}
	testCases := []overlaptest{
		{"games/g1", "games/g1/status", true},
		{"games/g1/status", "games/g1", true},
		{"games/g1", "games/g1", true},
		{"games/g1", "games/g2", false},
		{"games/g1/moves/p1", "games/g1/moves/p2", false},
	}
	for _, tc := range testCases {
		got := pathsOverlap(splitPath(tc.a), splitPath(tc.b))
		if got != tc.overlap {
			t.Errorf("For %v vs %v, expected %v, got %v", tc.a, tc.b, tc.overlap, got)
		}
	}
}
