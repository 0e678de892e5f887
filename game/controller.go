package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/escrabble-cat/duplicat/disc"
	"github.com/escrabble-cat/duplicat/scoring"
	"github.com/escrabble-cat/duplicat/store"
	"github.com/escrabble-cat/duplicat/tilemapping"
)

// OutOfTimeReason is the fixed reason attached to submissions that arrive
// after the round deadline plus the grace period.
const OutOfTimeReason = "out of time"

// State refusals. These mean "this action is disallowed by the current
// round status"; nothing changes when they are returned.
var (
	ErrWrongStatus      = errors.New("action not allowed in the current round status")
	ErrRoundNotOpen     = errors.New("round is not open for submissions")
	ErrRackNotReady     = errors.New("rack must hold 7 tiles (or the bag be empty) before opening")
	ErrRackTooBig       = errors.New("rack cannot hold more than 7 tiles")
	ErrNoSuchMove       = errors.New("no such candidate move")
	ErrInvalidCandidate = errors.New("only a candidate scoring as valid can be selected")
	ErrNotLoaded        = errors.New("session not loaded")
)

// Controller drives the round lifecycle for one session. It is the single
// writer: player submissions land in their own move slot, and every other
// mutation is an arbiter action serialized through here. All state changes
// go to the store as one atomic update; the in-memory session is only
// advanced after the store accepts it.
type Controller struct {
	mu      sync.Mutex
	store   store.Store
	dict    *disc.Dict
	ld      *tilemapping.LetterDistribution
	gameID  string
	session *Session
	nowFn   func() time.Time
}

// NewController wires a controller to a store-backed session. Call Load
// (or ApplyRemoteUpdate) before issuing operations.
func NewController(st store.Store, dict *disc.Dict, ld *tilemapping.LetterDistribution, gameID string) *Controller {
	return &Controller{
		store:  st,
		dict:   dict,
		ld:     ld,
		gameID: gameID,
		nowFn:  time.Now,
	}
}

// SetNowFunc overrides the clock, for tests.
func (c *Controller) SetNowFunc(fn func() time.Time) {
	c.nowFn = fn
}

// GamePath is the store path of this controller's session document.
func (c *Controller) GamePath() string {
	return "games/" + c.gameID
}

func (c *Controller) path(field string) string {
	return c.GamePath() + "/" + field
}

// CreateSession writes a fresh session document and loads it.
func (c *Controller) CreateSession(ctx context.Context, cfg Config) error {
	s := NewSession(c.gameID, cfg)
	if err := c.store.AtomicUpdate(ctx, map[string]interface{}{
		c.GamePath(): s,
	}); err != nil {
		return err
	}
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	log.Info().Str("game", c.gameID).Msg("session created")
	return nil
}

// Load reads the current session document from the store.
func (c *Controller) Load(ctx context.Context) error {
	raw, err := c.store.Read(ctx, c.GamePath())
	if err != nil {
		return err
	}
	return c.ApplyRemoteUpdate(raw)
}

// ApplyRemoteUpdate replaces the in-memory session with a document
// delivered by the store subscription. This is the only entry point for
// remote changes; there is no ambient global state.
func (c *Controller) ApplyRemoteUpdate(raw json.RawMessage) error {
	s := &Session{}
	if err := json.Unmarshal(raw, s); err != nil {
		return err
	}
	s.sanitize()
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	return nil
}

// CurrentState returns a snapshot of the session document.
func (c *Controller) CurrentState() (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, ErrNotLoaded
	}
	copied := *c.session
	copied.Board = c.session.Board.Copy()
	return &copied, nil
}

// RemainingBagSize derives the bag size from board and rack.
func (c *Controller) RemainingBagSize() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return 0, ErrNotLoaded
	}
	bag := tilemapping.RemainingBag(c.ld, c.session.Board.LetterCounts(), c.session.RackTiles())
	return bag.TilesRemaining(), nil
}

// EditRack replaces the rack from a typed string. Arbiter-only, and only
// while the round status is Preparing.
func (c *Controller) EditRack(ctx context.Context, rackInput string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNotLoaded
	}
	if c.session.Status != StatusPreparing {
		return ErrWrongStatus
	}
	rack := tilemapping.RackFromString(rackInput)
	if rack.NumTiles() > tilemapping.RackTileLimit {
		return ErrRackTooBig
	}
	codes := rackCodes(rack)
	if err := c.store.AtomicUpdate(ctx, map[string]interface{}{
		c.path("currentRack"): codes,
	}); err != nil {
		return err
	}
	c.session.Rack = codes
	return nil
}

// RefillRack tops the rack up to 7 from a freshly derived shuffled bag.
func (c *Controller) RefillRack(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNotLoaded
	}
	if c.session.Status != StatusPreparing {
		return ErrWrongStatus
	}
	newRack := tilemapping.Refill(c.ld, c.session.Board.LetterCounts(), c.session.RackTiles())
	codes := rackCodes(newRack)
	if err := c.store.AtomicUpdate(ctx, map[string]interface{}{
		c.path("currentRack"): codes,
	}); err != nil {
		return err
	}
	c.session.Rack = codes
	return nil
}

// Open starts the round: stamps the start timestamp and the deadline, and
// clears the previous round's submissions. It refuses to open with a
// partially refilled rack unless the bag is empty.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNotLoaded
	}
	if c.session.Status != StatusPreparing {
		return ErrWrongStatus
	}
	rack := c.session.RackTiles()
	if rack.NumTiles() < tilemapping.RackTileLimit {
		bag := tilemapping.RemainingBag(c.ld, c.session.Board.LetterCounts(), rack)
		if bag.TilesRemaining() > 0 {
			return ErrRackNotReady
		}
	}

	now := c.nowFn().UnixMilli()
	end := now + int64(c.session.Config.RoundDurationSeconds)*1000
	if err := c.store.AtomicUpdate(ctx, map[string]interface{}{
		c.path("status"):               StatusOpen,
		c.path("moves"):                map[string]*PlayerMove{},
		c.path("roundStartTime"):       now,
		c.path("roundEndTime"):         end,
		c.path("timerPausedRemaining"): nil,
	}); err != nil {
		return err
	}
	c.session.Status = StatusOpen
	c.session.Moves = map[string]*PlayerMove{}
	c.session.RoundStartTime = &now
	c.session.RoundEndTime = &end
	c.session.PausedRemainingMs = nil
	log.Info().Str("game", c.gameID).Int("round", c.session.Round).Msg("round opened")
	return nil
}

// SubmitMove records (or replaces) a player's candidate for the current
// round. Keyed by player id: last write wins. The move is stored raw,
// never with a baked-in score.
func (c *Controller) SubmitMove(ctx context.Context, mv PlayerMove) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNotLoaded
	}
	if c.session.Status != StatusOpen {
		return ErrRoundNotOpen
	}
	if mv.PlayerID == "" {
		return fmt.Errorf("submission has no player id")
	}
	if mv.ID == "" {
		mv.ID = store.PushID()
	}
	if mv.SubmittedAt == 0 {
		mv.SubmittedAt = c.nowFn().UnixMilli()
	}
	if mv.RoundNumber != 0 && mv.RoundNumber != c.session.Round {
		// Integrity anomaly: a client raced a round transition. Keep the
		// game going with the clamped value.
		log.Warn().Str("player", mv.PlayerID).
			Int("claimed-round", mv.RoundNumber).
			Int("current-round", c.session.Round).
			Msg("round number mismatch on submission; clamping")
	}
	mv.RoundNumber = c.session.Round
	if len(mv.Tiles) == 0 {
		mv.Tiles = tilemapping.Tokenize(mv.RawWord)
	}

	if err := c.store.AtomicUpdate(ctx, map[string]interface{}{
		c.path("moves/" + mv.PlayerID): &mv,
	}); err != nil {
		return err
	}
	c.session.Moves[mv.PlayerID] = &mv
	return nil
}

// Close freezes submissions for arbiter review. The absolute deadline is
// kept so late submissions can still be judged at finalize time; only the
// pause remainder is cleared.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNotLoaded
	}
	if c.session.Status != StatusOpen {
		return ErrWrongStatus
	}
	if err := c.store.AtomicUpdate(ctx, map[string]interface{}{
		c.path("status"):               StatusReviewing,
		c.path("timerPausedRemaining"): nil,
	}); err != nil {
		return err
	}
	c.session.Status = StatusReviewing
	c.session.PausedRemainingMs = nil
	return nil
}

// PreviewScore re-scores a candidate against the current board and rack,
// with the out-of-time rule applied. No side effects; candidates never
// consume each other's rack allowance.
func (c *Controller) PreviewScore(mv *PlayerMove) (scoring.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return scoring.Result{}, ErrNotLoaded
	}
	return c.scoreLocked(mv), nil
}

func (c *Controller) scoreLocked(mv *PlayerMove) scoring.Result {
	if c.lateLocked(mv) {
		return scoring.Result{Points: 0, Valid: false, Reason: OutOfTimeReason}
	}
	return scoring.Score(c.session.Board, mv.Tiles, c.session.RackTiles(),
		mv.Row, mv.Col, mv.Direction, c.dict)
}

func (c *Controller) lateLocked(mv *PlayerMove) bool {
	if c.session.RoundEndTime == nil {
		return false
	}
	grace := int64(c.session.Config.GracePeriodSeconds) * 1000
	return mv.SubmittedAt > *c.session.RoundEndTime+grace
}

// PauseTimer swaps the absolute deadline for a remaining-duration value.
func (c *Controller) PauseTimer(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNotLoaded
	}
	if c.session.Status != StatusOpen || c.session.RoundEndTime == nil {
		return ErrWrongStatus
	}
	rem := *c.session.RoundEndTime - c.nowFn().UnixMilli()
	if rem < 0 {
		rem = 0
	}
	if err := c.store.AtomicUpdate(ctx, map[string]interface{}{
		c.path("roundEndTime"):         nil,
		c.path("timerPausedRemaining"): rem,
	}); err != nil {
		return err
	}
	c.session.RoundEndTime = nil
	c.session.PausedRemainingMs = &rem
	return nil
}

// ResumeTimer recomputes an absolute deadline from now plus the paused
// remainder.
func (c *Controller) ResumeTimer(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNotLoaded
	}
	if c.session.Status != StatusOpen || c.session.PausedRemainingMs == nil {
		return ErrWrongStatus
	}
	end := c.nowFn().UnixMilli() + *c.session.PausedRemainingMs
	if err := c.store.AtomicUpdate(ctx, map[string]interface{}{
		c.path("roundEndTime"):         end,
		c.path("timerPausedRemaining"): nil,
	}); err != nil {
		return err
	}
	c.session.RoundEndTime = &end
	c.session.PausedRemainingMs = nil
	return nil
}

// ResetTimer re-derives the deadline from the configured duration.
func (c *Controller) ResetTimer(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNotLoaded
	}
	if c.session.Status != StatusOpen {
		return ErrWrongStatus
	}
	end := c.nowFn().UnixMilli() + int64(c.session.Config.RoundDurationSeconds)*1000
	if err := c.store.AtomicUpdate(ctx, map[string]interface{}{
		c.path("roundEndTime"):         end,
		c.path("timerPausedRemaining"): nil,
	}); err != nil {
		return err
	}
	c.session.RoundEndTime = &end
	c.session.PausedRemainingMs = nil
	return nil
}

// UpdateConfig replaces the session configuration.
func (c *Controller) UpdateConfig(ctx context.Context, cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNotLoaded
	}
	if err := c.store.AtomicUpdate(ctx, map[string]interface{}{
		c.path("config"): cfg,
	}); err != nil {
		return err
	}
	c.session.Config = cfg
	return nil
}

// ResetSession replaces the whole document with a fresh round-1 session,
// keeping the configuration.
func (c *Controller) ResetSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNotLoaded
	}
	s := NewSession(c.gameID, c.session.Config)
	if err := c.store.AtomicUpdate(ctx, map[string]interface{}{
		c.GamePath(): s,
	}); err != nil {
		return err
	}
	c.session = s
	log.Info().Str("game", c.gameID).Msg("session reset")
	return nil
}
