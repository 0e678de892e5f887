package game

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"

	"github.com/escrabble-cat/duplicat/board"
	"github.com/escrabble-cat/duplicat/disc"
	"github.com/escrabble-cat/duplicat/store"
	"github.com/escrabble-cat/duplicat/tilemapping"
)

var lexiconWords = []string{
	"CASA", "MAR", "SAL", "SOL", "CEL", "AL", "SE", "AS", "LES",
}

func testController(t *testing.T) (*Controller, *store.MemStore) {
	t.Helper()
	trie, directory, nodeCount, err := disc.Build(lexiconWords)
	if err != nil {
		t.Fatal(err)
	}
	dict := disc.NewDict(disc.NewFrozenTrie(trie, directory, nodeCount), "test")
	st := store.NewMemStore()
	ctrl := NewController(st, dict, tilemapping.CatalanDistribution(), "g1")
	err = ctrl.CreateSession(context.Background(), Config{
		RoundDurationSeconds: 180,
		GracePeriodSeconds:   10,
		ArbiterName:          "MASTER",
	})
	if err != nil {
		t.Fatal(err)
	}
	return ctrl, st
}

func fixedClock(ctrl *Controller, at time.Time) {
	ctrl.SetNowFunc(func() time.Time { return at })
}

func submit(t *testing.T, ctrl *Controller, playerID, word string, row, col int, dir board.Direction) {
	t.Helper()
	err := ctrl.SubmitMove(context.Background(), PlayerMove{
		PlayerID:   playerID,
		PlayerName: "Player " + playerID,
		RawWord:    word,
		Row:        row,
		Col:        col,
		Direction:  dir,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRoundLifecycle(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	ctrl, _ := testController(t)
	t0 := time.UnixMilli(1_000_000)
	fixedClock(ctrl, t0)

	is.NoErr(ctrl.EditRack(ctx, "CASAMDR"))
	is.NoErr(ctrl.Open(ctx))

	s, err := ctrl.CurrentState()
	is.NoErr(err)
	is.Equal(s.Status, StatusOpen)
	is.Equal(*s.RoundStartTime, t0.UnixMilli())
	is.Equal(*s.RoundEndTime, t0.UnixMilli()+180_000)

	submit(t, ctrl, "p1", "CASA", 7, 4, board.Horizontal)
	is.NoErr(ctrl.Close(ctx))

	s, err = ctrl.CurrentState()
	is.NoErr(err)
	is.Equal(s.Status, StatusReviewing)

	res, err := ctrl.PreviewScore(s.Moves["p1"])
	is.NoErr(err)
	is.True(res.Valid)
	is.Equal(res.Points, 10)

	is.NoErr(ctrl.SelectAndFinalize(ctx, "p1"))

	s, err = ctrl.CurrentState()
	is.NoErr(err)
	is.Equal(s.Status, StatusPreparing)
	is.Equal(s.Round, 2)
	is.Equal(s.Board.TilesPlayed(), 4)
	is.Equal(len(s.Moves), 0)
	is.Equal(len(s.History), 1)
	is.Equal(s.LastPlayed.Score, 10)
	is.True(s.LastPlayed.IsMasterMove)
	is.Equal(s.Participants["p1"].TotalScore, 10)
	// The master move consumed C, A, S, A; the rest stays for refilling.
	is.Equal(s.Rack, []string{"M", "D", "R"})
	is.Equal(s.RoundStartTime, (*int64)(nil))
	is.Equal(s.RoundEndTime, (*int64)(nil))
}

func TestFinalizePersistsAtomically(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	ctrl, st := testController(t)
	fixedClock(ctrl, time.UnixMilli(1_000_000))

	changes := 0
	_, err := st.Subscribe(ctx, "games/g1", func(path string, data json.RawMessage) {
		changes++
	})
	is.NoErr(err)

	is.NoErr(ctrl.EditRack(ctx, "CASAMDR"))
	is.NoErr(ctrl.Open(ctx))
	submit(t, ctrl, "p1", "CASA", 7, 4, board.Horizontal)
	is.NoErr(ctrl.Close(ctx))

	before := changes
	is.NoErr(ctrl.SelectAndFinalize(ctx, "p1"))
	// The whole round transition is one store change.
	is.Equal(changes, before+1)

	// A second controller reading the same store agrees on everything.
	other := NewController(st, nil, tilemapping.CatalanDistribution(), "g1")
	is.NoErr(other.Load(ctx))
	s, err := other.CurrentState()
	is.NoErr(err)
	is.Equal(s.Round, 2)
	is.Equal(s.Board.TilesPlayed(), 4)
	is.Equal(s.Participants["p1"].RoundScores[1], 10)
}

func TestTwoRoundsAccumulateScores(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	ctrl, _ := testController(t)
	fixedClock(ctrl, time.UnixMilli(1_000_000))

	is.NoErr(ctrl.EditRack(ctx, "CASAMDR"))
	is.NoErr(ctrl.Open(ctx))
	submit(t, ctrl, "p1", "CASA", 7, 4, board.Horizontal)
	submit(t, ctrl, "p2", "SAC", 7, 4, board.Horizontal)
	is.NoErr(ctrl.Close(ctx))
	is.NoErr(ctrl.SelectAndFinalize(ctx, "p1"))

	is.NoErr(ctrl.EditRack(ctx, "MARTTTT"))
	is.NoErr(ctrl.Open(ctx))
	submit(t, ctrl, "p1", "MAR", 6, 5, board.Vertical)
	is.NoErr(ctrl.Close(ctx))
	is.NoErr(ctrl.SelectAndFinalize(ctx, "p1"))

	s, err := ctrl.CurrentState()
	is.NoErr(err)
	is.Equal(s.Round, 3)
	is.Equal(len(s.History), 2)
	// p1: 10 then 4. p2 submitted an invalid word and scored 0 that round,
	// then sat round 2 out entirely.
	is.Equal(s.Participants["p1"].TotalScore, 14)
	is.Equal(s.Participants["p2"].TotalScore, 0)
	is.Equal(s.Participants["p2"].RoundScores[1], 0)
	_, sat := s.Participants["p2"].RoundScores[2]
	is.True(!sat)
}

func TestStateRefusals(t *testing.T) {
	ctx := context.Background()
	ctrl, _ := testController(t)
	fixedClock(ctrl, time.UnixMilli(1_000_000))

	// Preparing: no submissions, no close, no finalize.
	err := ctrl.SubmitMove(ctx, PlayerMove{PlayerID: "p1", RawWord: "CASA"})
	assert.ErrorIs(t, err, ErrRoundNotOpen)
	assert.ErrorIs(t, ctrl.Close(ctx), ErrWrongStatus)
	assert.ErrorIs(t, ctrl.SelectAndFinalize(ctx, "p1"), ErrWrongStatus)
	assert.ErrorIs(t, ctrl.PauseTimer(ctx), ErrWrongStatus)

	// A short rack with tiles still in the bag cannot open.
	assert.NoError(t, ctrl.EditRack(ctx, "CAS"))
	assert.ErrorIs(t, ctrl.Open(ctx), ErrRackNotReady)

	assert.NoError(t, ctrl.EditRack(ctx, "CASAMDR"))
	assert.NoError(t, ctrl.Open(ctx))

	// Open: no rack edits, no double open.
	assert.ErrorIs(t, ctrl.EditRack(ctx, "AAAAAAA"), ErrWrongStatus)
	assert.ErrorIs(t, ctrl.RefillRack(ctx), ErrWrongStatus)
	assert.ErrorIs(t, ctrl.Open(ctx), ErrWrongStatus)

	assert.NoError(t, ctrl.Close(ctx))
	// Reviewing: no submissions, only a submitted candidate can win.
	err = ctrl.SubmitMove(ctx, PlayerMove{PlayerID: "p1", RawWord: "CASA"})
	assert.ErrorIs(t, err, ErrRoundNotOpen)
	assert.ErrorIs(t, ctrl.SelectAndFinalize(ctx, "nobody"), ErrNoSuchMove)
}

func TestEditRackTooBig(t *testing.T) {
	is := is.New(t)
	ctrl, _ := testController(t)
	err := ctrl.EditRack(context.Background(), "CASAMDRE")
	is.Equal(err, ErrRackTooBig)
}

func TestRefillRack(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	ctrl, _ := testController(t)

	is.NoErr(ctrl.EditRack(ctx, "CAS"))
	is.NoErr(ctrl.RefillRack(ctx))

	s, err := ctrl.CurrentState()
	is.NoErr(err)
	is.Equal(len(s.Rack), 7)
	is.Equal(s.Rack[:3], []string{"C", "A", "S"})

	n, err := ctrl.RemainingBagSize()
	is.NoErr(err)
	is.Equal(n, 93)
}

func TestLastSubmissionWins(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	ctrl, _ := testController(t)
	fixedClock(ctrl, time.UnixMilli(1_000_000))

	is.NoErr(ctrl.EditRack(ctx, "CASAMDR"))
	is.NoErr(ctrl.Open(ctx))
	submit(t, ctrl, "p1", "SAL", 7, 7, board.Horizontal)
	submit(t, ctrl, "p1", "CASA", 7, 4, board.Horizontal)

	s, err := ctrl.CurrentState()
	is.NoErr(err)
	is.Equal(len(s.Moves), 1)
	is.Equal(s.Moves["p1"].RawWord, "CASA")
}

func TestOutOfTimeSubmission(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	ctrl, _ := testController(t)
	t0 := time.UnixMilli(1_000_000)
	fixedClock(ctrl, t0)

	is.NoErr(ctrl.EditRack(ctx, "CASAMDR"))
	is.NoErr(ctrl.Open(ctx))

	// 12 seconds past the deadline with a 10 second grace period.
	late := t0.UnixMilli() + 180_000 + 12_000
	err := ctrl.SubmitMove(ctx, PlayerMove{
		PlayerID: "p1", RawWord: "CASA", Row: 7, Col: 4,
		Direction: board.Horizontal, SubmittedAt: late,
	})
	is.NoErr(err)
	// 8 seconds past the deadline is within grace.
	inGrace := t0.UnixMilli() + 180_000 + 8_000
	err = ctrl.SubmitMove(ctx, PlayerMove{
		PlayerID: "p2", RawWord: "CASA", Row: 7, Col: 4,
		Direction: board.Horizontal, SubmittedAt: inGrace,
	})
	is.NoErr(err)
	is.NoErr(ctrl.Close(ctx))

	s, err := ctrl.CurrentState()
	is.NoErr(err)
	res, err := ctrl.PreviewScore(s.Moves["p1"])
	is.NoErr(err)
	is.True(!res.Valid)
	is.Equal(res.Reason, OutOfTimeReason)
	is.Equal(res.Points, 0)

	res, err = ctrl.PreviewScore(s.Moves["p2"])
	is.NoErr(err)
	is.True(res.Valid)

	// The late submission stays listed, scores zero, and can never be the
	// master move.
	err = ctrl.SelectAndFinalize(ctx, "p1")
	is.True(err != nil)
	is.NoErr(ctrl.SelectAndFinalize(ctx, "p2"))

	s, err = ctrl.CurrentState()
	is.NoErr(err)
	is.Equal(s.Participants["p1"].RoundScores[1], 0)
	is.Equal(s.Participants["p2"].RoundScores[1], 10)
}

func TestRoundNumberClamped(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	ctrl, _ := testController(t)
	fixedClock(ctrl, time.UnixMilli(1_000_000))

	is.NoErr(ctrl.EditRack(ctx, "CASAMDR"))
	is.NoErr(ctrl.Open(ctx))
	err := ctrl.SubmitMove(ctx, PlayerMove{
		PlayerID: "p1", RawWord: "CASA", Row: 7, Col: 4,
		Direction: board.Horizontal, RoundNumber: 99,
	})
	is.NoErr(err)

	s, err := ctrl.CurrentState()
	is.NoErr(err)
	is.Equal(s.Moves["p1"].RoundNumber, 1)
}

func TestTimerPauseResume(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	ctrl, _ := testController(t)
	t0 := time.UnixMilli(1_000_000)
	fixedClock(ctrl, t0)

	is.NoErr(ctrl.EditRack(ctx, "CASAMDR"))
	is.NoErr(ctrl.Open(ctx))

	// A minute in, pause: 120s remain.
	fixedClock(ctrl, t0.Add(60*time.Second))
	is.NoErr(ctrl.PauseTimer(ctx))
	s, err := ctrl.CurrentState()
	is.NoErr(err)
	is.Equal(s.RoundEndTime, (*int64)(nil))
	is.Equal(*s.PausedRemainingMs, int64(120_000))
	is.Equal(s.TimeRemaining(t0.Add(5*time.Hour)), 120*time.Second)

	// Resume five minutes later: the deadline restarts from now.
	resumeAt := t0.Add(6 * time.Minute)
	fixedClock(ctrl, resumeAt)
	is.NoErr(ctrl.ResumeTimer(ctx))
	s, err = ctrl.CurrentState()
	is.NoErr(err)
	is.Equal(s.PausedRemainingMs, (*int64)(nil))
	is.Equal(*s.RoundEndTime, resumeAt.UnixMilli()+120_000)
	is.Equal(s.TimeRemaining(resumeAt.Add(20*time.Second)), 100*time.Second)

	// Reset restores the full configured duration.
	is.NoErr(ctrl.ResetTimer(ctx))
	s, err = ctrl.CurrentState()
	is.NoErr(err)
	is.Equal(*s.RoundEndTime, resumeAt.UnixMilli()+180_000)
}

func TestTimeRemainingClampsAtZero(t *testing.T) {
	is := is.New(t)
	end := int64(1_000_000)
	s := &Session{RoundEndTime: &end}
	is.Equal(s.TimeRemaining(time.UnixMilli(2_000_000)), time.Duration(0))
}

func TestApplyRemoteUpdate(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	ctrl, st := testController(t)
	fixedClock(ctrl, time.UnixMilli(1_000_000))

	follower := NewController(st, nil, tilemapping.CatalanDistribution(), "g1")
	_, err := st.Subscribe(ctx, "games/g1", func(path string, data json.RawMessage) {
		is.NoErr(follower.ApplyRemoteUpdate(data))
	})
	is.NoErr(err)

	is.NoErr(ctrl.EditRack(ctx, "CASAMDR"))
	is.NoErr(ctrl.Open(ctx))

	s, err := follower.CurrentState()
	is.NoErr(err)
	is.Equal(s.Status, StatusOpen)
	is.Equal(s.Rack, []string{"C", "A", "S", "A", "M", "D", "R"})
}

func TestResetSession(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	ctrl, _ := testController(t)
	fixedClock(ctrl, time.UnixMilli(1_000_000))

	is.NoErr(ctrl.EditRack(ctx, "CASAMDR"))
	is.NoErr(ctrl.Open(ctx))
	submit(t, ctrl, "p1", "CASA", 7, 4, board.Horizontal)
	is.NoErr(ctrl.Close(ctx))
	is.NoErr(ctrl.SelectAndFinalize(ctx, "p1"))

	is.NoErr(ctrl.ResetSession(ctx))
	s, err := ctrl.CurrentState()
	is.NoErr(err)
	is.Equal(s.Round, 1)
	is.Equal(s.Board.TilesPlayed(), 0)
	is.Equal(len(s.Participants), 0)
	is.Equal(len(s.History), 0)
	is.Equal(s.Config.RoundDurationSeconds, 180)
}

func TestOpenWithEmptyBag(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	ctrl, _ := testController(t)
	fixedClock(ctrl, time.UnixMilli(1_000_000))

	// Fill the board with the whole tile set minus a 3 tile rack, then a
	// short rack may open.
	s, err := ctrl.CurrentState()
	is.NoErr(err)
	ld := tilemapping.CatalanDistribution()
	full := board.MakeBoard()
	r, c := 0, 0
	skip := map[rune]int{'C': 1, 'A': 1, 'S': 1}
	for _, code := range ld.Letters() {
		n := int(ld.Count(code))
		n -= skip[code]
		for i := 0; i < n; i++ {
			tile := tilemapping.MakeTile(code)
			if code == tilemapping.BlankToken {
				tile = tilemapping.MakeTile('a')
			}
			is.NoErr(full.PlaceTile(r, c, tile))
			c++
			if c == board.Dim {
				r, c = r+1, 0
			}
		}
	}
	is.NoErr(ctrl.store.AtomicUpdate(ctx, map[string]interface{}{
		"games/" + s.ID + "/board": full,
	}))
	is.NoErr(ctrl.Load(ctx))

	is.NoErr(ctrl.EditRack(ctx, "CAS"))
	n, err := ctrl.RemainingBagSize()
	is.NoErr(err)
	is.Equal(n, 0)
	is.NoErr(ctrl.Open(ctx))
}
