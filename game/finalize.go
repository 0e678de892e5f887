package game

import (
	"context"
	"fmt"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/escrabble-cat/duplicat/board"
	"github.com/escrabble-cat/duplicat/store"
	"github.com/escrabble-cat/duplicat/tilemapping"
)

// SelectAndFinalize commits the reviewed round: the chosen candidate
// becomes the master move, every submission is scored against the
// pre-placement board, participants accumulate their results, the round is
// archived, and the session rolls over to Preparing at round+1. All of it
// lands in the store as one atomic update, so an observer sees either the
// old round or the new one, never a half-placed board.
func (c *Controller) SelectAndFinalize(ctx context.Context, playerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNotLoaded
	}
	s := c.session
	if s.Status != StatusReviewing {
		return ErrWrongStatus
	}
	master, ok := s.Moves[playerID]
	if !ok {
		return ErrNoSuchMove
	}

	// The master move must stand on its own. Everyone else's score is
	// advisory: an invalid candidate just contributes zero.
	masterRes := c.scoreLocked(master)
	if !masterRes.Valid {
		return fmt.Errorf("%w: %s", ErrInvalidCandidate, masterRes.Reason)
	}

	newBoard, remaining, err := applyToBoard(s.Board, master, s.RackTiles())
	if err != nil {
		return err
	}

	participants := map[string]*Participant{}
	for id, p := range s.Participants {
		copied := *p
		copied.RoundScores = map[int]int{}
		for r, sc := range p.RoundScores {
			copied.RoundScores[r] = sc
		}
		participants[id] = &copied
	}
	for id, mv := range s.Moves {
		res := c.scoreLocked(mv)
		points := 0
		if res.Valid {
			points = res.Points
		} else {
			log.Debug().Str("player", id).Str("reason", res.Reason).
				Msg("candidate scored zero at finalize")
		}
		p := participants[id]
		if p == nil {
			p = &Participant{
				ID:          id,
				Name:        mv.PlayerName,
				TableLabel:  mv.TableLabel,
				RoundScores: map[int]int{},
			}
			participants[id] = p
		}
		p.RoundScores[s.Round] = points
		p.recomputeTotal()
	}

	played := *master
	played.Score = masterRes.Points
	played.IsMasterMove = true

	archived := &ArchivedRound{
		RoundNumber: s.Round,
		MasterMove:  played,
		Rack:        append([]string{}, s.Rack...),
		Board:       newBoard.Copy(),
		StartedAt:   s.RoundStartTime,
		EndedAt:     s.RoundEndTime,
	}
	historyKey := store.PushID()
	newRack := rackCodes(remaining)

	if err := c.store.AtomicUpdate(ctx, map[string]interface{}{
		c.path("board"):                 newBoard,
		c.path("currentRack"):           newRack,
		c.path("round"):                 s.Round + 1,
		c.path("status"):                StatusPreparing,
		c.path("moves"):                 map[string]*PlayerMove{},
		c.path("participants"):          participants,
		c.path("lastPlayedMove"):        &played,
		c.path("history/" + historyKey): archived,
		c.path("roundStartTime"):        nil,
		c.path("roundEndTime"):          nil,
		c.path("timerPausedRemaining"):  nil,
	}); err != nil {
		return err
	}

	s.Board = newBoard
	s.Rack = newRack
	s.Round++
	s.Status = StatusPreparing
	s.Moves = map[string]*PlayerMove{}
	s.Participants = participants
	s.LastPlayed = &played
	s.History[historyKey] = archived
	s.RoundStartTime = nil
	s.RoundEndTime = nil
	s.PausedRemainingMs = nil
	log.Info().Str("game", c.gameID).
		Int("round", archived.RoundNumber).
		Str("master", playerID).
		Int("score", played.Score).
		Msg("round finalized")
	return nil
}

// applyToBoard places a move's fresh tiles on a copy of the board,
// consuming them from a copy of the rack. Cells already holding a tile are
// left alone; the scoring engine already verified they agree with the
// move.
func applyToBoard(b *board.Board, mv *PlayerMove, rack *tilemapping.Rack) (*board.Board, *tilemapping.Rack, error) {
	nb := b.Copy()
	remaining := rack.Copy()
	dr, dc := mv.Direction.Delta()
	row, col := mv.Row, mv.Col
	for _, t := range mv.Tiles {
		if nb.HasTile(row, col) {
			row, col = row+dr, col+dc
			continue
		}
		usedBlank, ok := remaining.TakeOrBlank(t.UpperCode())
		if !ok {
			return nil, nil, fmt.Errorf("rack cannot cover tile '%s' at %s",
				t.Display, board.CoordLabel(row, col))
		}
		placed := t
		if usedBlank {
			placed = tilemapping.MakeTile(unicode.ToLower(t.UpperCode()))
		}
		if err := nb.PlaceTile(row, col, placed); err != nil {
			return nil, nil, err
		}
		row, col = row+dr, col+dc
	}
	return nb, remaining, nil
}
