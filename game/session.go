// Package game owns the canonical session state for a duplicate
// tournament and is the only component permitted to commit changes to it.
package game

import (
	"time"

	"github.com/samber/lo"

	"github.com/escrabble-cat/duplicat/board"
	"github.com/escrabble-cat/duplicat/tilemapping"
)

// Status is the round lifecycle state. The cycle is
// Preparing → Open → Reviewing → Preparing (round+1), repeating until the
// session is deleted; there is no terminal state.
type Status string

const (
	// StatusPreparing: the arbiter edits the rack; no submissions accepted.
	StatusPreparing Status = "PREPARING"
	// StatusOpen: the timer runs and players submit or replace moves.
	StatusOpen Status = "OPEN"
	// StatusReviewing: submissions are frozen; the arbiter picks the
	// master move.
	StatusReviewing Status = "REVIEWING"
)

// PlayerMove is one player's candidate placement for the current round.
// One move per player per round: a later submission under the same player
// id replaces the earlier one. Scores are never persisted with the move;
// every read re-scores it against the current board and rack.
type PlayerMove struct {
	ID         string             `json:"id"`
	PlayerID   string             `json:"playerId"`
	PlayerName string             `json:"playerName"`
	TableLabel string             `json:"tableLabel"`
	RawWord    string             `json:"word"`
	Tiles      []tilemapping.Tile `json:"tiles"`
	Row        int                `json:"row"`
	Col        int                `json:"col"`
	Direction  board.Direction    `json:"direction"`
	// SubmittedAt is a unix timestamp in milliseconds, same clock as the
	// session timer fields.
	SubmittedAt int64 `json:"timestamp"`
	RoundNumber int   `json:"roundNumber"`

	// Score is only stamped on the master move at finalize time.
	Score        int  `json:"score,omitempty"`
	IsMasterMove bool `json:"isMasterMove,omitempty"`
}

// Participant is created on a player's first submission and accumulates
// their per-round results for the whole session.
type Participant struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	TableLabel  string      `json:"tableLabel"`
	RoundScores map[int]int `json:"roundScores"`
	// TotalScore is always recomputed as the sum of RoundScores, never
	// incremented independently, to avoid drift.
	TotalScore int `json:"totalScore"`
}

func (p *Participant) recomputeTotal() {
	p.TotalScore = lo.Sum(lo.Values(p.RoundScores))
}

// ArchivedRound is the immutable snapshot appended once per completed
// round.
type ArchivedRound struct {
	RoundNumber int          `json:"roundNumber"`
	MasterMove  PlayerMove   `json:"masterMove"`
	Rack        []string     `json:"rack"`
	Board       *board.Board `json:"boardSnapshot"`
	StartedAt   *int64       `json:"startTime,omitempty"`
	EndedAt     *int64       `json:"endTime,omitempty"`
}

// Config is the per-session game configuration.
type Config struct {
	RoundDurationSeconds int    `json:"roundDurationSeconds"`
	GracePeriodSeconds   int    `json:"gracePeriodSeconds"`
	ArbiterName          string `json:"arbiterName"`
}

// Session is the one mutable state document of a game, mirroring the
// persisted shape. Exactly one exists per game, from creation (round 1,
// preparing) to explicit deletion.
type Session struct {
	ID           string                    `json:"id"`
	Board        *board.Board              `json:"board"`
	Rack         []string                  `json:"currentRack"`
	Round        int                       `json:"round"`
	Status       Status                    `json:"status"`
	Moves        map[string]*PlayerMove    `json:"moves"`
	Participants map[string]*Participant   `json:"participants"`
	History      map[string]*ArchivedRound `json:"history"`
	LastPlayed   *PlayerMove               `json:"lastPlayedMove"`
	Config       Config                    `json:"config"`

	// Timer fields, unix milliseconds. Exactly one of RoundEndTime and
	// PausedRemainingMs is populated while a countdown is meaningful;
	// every client derives the displayed countdown from them so all
	// observers agree.
	RoundStartTime    *int64 `json:"roundStartTime"`
	RoundEndTime      *int64 `json:"roundEndTime"`
	PausedRemainingMs *int64 `json:"timerPausedRemaining"`
}

// NewSession builds a fresh round-1 session document.
func NewSession(id string, cfg Config) *Session {
	return &Session{
		ID:           id,
		Board:        board.MakeBoard(),
		Rack:         []string{},
		Round:        1,
		Status:       StatusPreparing,
		Moves:        map[string]*PlayerMove{},
		Participants: map[string]*Participant{},
		History:      map[string]*ArchivedRound{},
		Config:       cfg,
	}
}

// sanitize repairs a session that went through a store that prunes empty
// collections.
func (s *Session) sanitize() {
	if s.Board == nil {
		s.Board = board.MakeBoard()
	}
	if s.Rack == nil {
		s.Rack = []string{}
	}
	if s.Moves == nil {
		s.Moves = map[string]*PlayerMove{}
	}
	if s.Participants == nil {
		s.Participants = map[string]*Participant{}
	}
	if s.History == nil {
		s.History = map[string]*ArchivedRound{}
	}
	if s.Round < 1 {
		s.Round = 1
	}
	if s.Status == "" {
		s.Status = StatusPreparing
	}
}

// RackTiles converts the persisted rack codes into a Rack.
func (s *Session) RackTiles() *tilemapping.Rack {
	letters := make([]rune, 0, len(s.Rack))
	for _, code := range s.Rack {
		if rs := []rune(code); len(rs) > 0 {
			letters = append(letters, rs[0])
		}
	}
	return tilemapping.RackFromLetters(letters)
}

func rackCodes(r *tilemapping.Rack) []string {
	codes := make([]string, 0, r.NumTiles())
	for _, l := range r.TilesOn() {
		codes = append(codes, string(l))
	}
	return codes
}

// TimeRemaining derives the countdown purely from session state: the
// paused remainder if the timer is paused, otherwise the distance to the
// absolute deadline, otherwise zero.
func (s *Session) TimeRemaining(now time.Time) time.Duration {
	if s.PausedRemainingMs != nil {
		return time.Duration(*s.PausedRemainingMs) * time.Millisecond
	}
	if s.RoundEndTime != nil {
		rem := *s.RoundEndTime - now.UnixMilli()
		if rem < 0 {
			rem = 0
		}
		return time.Duration(rem) * time.Millisecond
	}
	return 0
}
