// Package api exposes the session over HTTP: REST endpoints for the
// arbiter and player actions, and a websocket feed of session changes.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/escrabble-cat/duplicat/board"
	"github.com/escrabble-cat/duplicat/config"
	"github.com/escrabble-cat/duplicat/disc"
	"github.com/escrabble-cat/duplicat/game"
	"github.com/escrabble-cat/duplicat/store"
	"github.com/escrabble-cat/duplicat/tilemapping"
)

// Server wires the HTTP surface to the game controllers. Controllers are
// created lazily per game id and cached; all of them share one store and
// one loaded dictionary.
type Server struct {
	cfg  *config.Config
	st   store.Store
	dict *disc.Dict
	ld   *tilemapping.LetterDistribution

	mu          sync.Mutex
	controllers map[string]*game.Controller
}

func NewServer(cfg *config.Config, st store.Store, dict *disc.Dict, ld *tilemapping.LetterDistribution) *Server {
	return &Server{
		cfg:         cfg,
		st:          st,
		dict:        dict,
		ld:          ld,
		controllers: map[string]*game.Controller{},
	}
}

// Routes builds the chi router for the whole API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)

	r.Route("/api/games", func(r chi.Router) {
		r.Get("/", s.listGames)
		r.Post("/", s.createGame)
		r.Route("/{gameID}", func(r chi.Router) {
			r.Get("/", s.getGame)
			r.Get("/bag", s.getBag)
			r.Get("/ws", s.watchGame)

			r.Put("/rack", s.editRack)
			r.Post("/rack/refill", s.refillRack)
			r.Post("/open", s.openRound)
			r.Post("/close", s.closeRound)
			r.Post("/finalize", s.finalizeRound)
			r.Post("/moves", s.submitMove)
			r.Post("/preview", s.previewScore)
			r.Post("/timer/pause", s.pauseTimer)
			r.Post("/timer/resume", s.resumeTimer)
			r.Post("/timer/reset", s.resetTimer)
			r.Put("/config", s.updateConfig)
			r.Post("/reset", s.resetSession)
		})
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(start)).
			Msg("handled request")
	})
}

// controller returns the cached controller for a game, loading its session
// from the store on first use.
func (s *Server) controller(r *http.Request) (*game.Controller, error) {
	id := chi.URLParam(r, "gameID")
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctrl, ok := s.controllers[id]; ok {
		return ctrl, nil
	}
	ctrl := game.NewController(s.st, s.dict, s.ld, id)
	if err := ctrl.Load(r.Context()); err != nil {
		return nil, err
	}
	s.controllers[id] = ctrl
	s.followStore(id, ctrl)
	return ctrl, nil
}

func respond(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Error().Err(err).Msg("encoding response failed")
		}
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func respondErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, game.ErrNotLoaded),
		errors.Is(err, game.ErrNoSuchMove):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrWrongStatus),
		errors.Is(err, game.ErrRoundNotOpen),
		errors.Is(err, game.ErrRackNotReady),
		errors.Is(err, game.ErrInvalidCandidate):
		status = http.StatusConflict
	case errors.Is(err, game.ErrRackTooBig):
		status = http.StatusBadRequest
	}
	respond(w, status, errorBody{Error: err.Error()})
}

func decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) createGame(w http.ResponseWriter, r *http.Request) {
	gcfg := game.Config{
		RoundDurationSeconds: int(s.cfg.DefaultRoundDuration.Seconds()),
		GracePeriodSeconds:   int(s.cfg.DefaultGracePeriod.Seconds()),
		ArbiterName:          s.cfg.DefaultArbiterName,
	}
	var body struct {
		RoundDurationSeconds *int    `json:"roundDurationSeconds"`
		GracePeriodSeconds   *int    `json:"gracePeriodSeconds"`
		ArbiterName          *string `json:"arbiterName"`
	}
	if r.ContentLength > 0 {
		if err := decode(r, &body); err != nil {
			respond(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		if body.RoundDurationSeconds != nil {
			gcfg.RoundDurationSeconds = *body.RoundDurationSeconds
		}
		if body.GracePeriodSeconds != nil {
			gcfg.GracePeriodSeconds = *body.GracePeriodSeconds
		}
		if body.ArbiterName != nil {
			gcfg.ArbiterName = *body.ArbiterName
		}
	}

	// Mint the key first, then let the controller write the full document
	// under it.
	id, err := s.st.CreateUnique(r.Context(), "games", map[string]interface{}{})
	if err != nil {
		respondErr(w, err)
		return
	}
	ctrl := game.NewController(s.st, s.dict, s.ld, id)
	if err := ctrl.CreateSession(r.Context(), gcfg); err != nil {
		respondErr(w, err)
		return
	}
	s.mu.Lock()
	s.controllers[id] = ctrl
	s.mu.Unlock()
	s.followStore(id, ctrl)

	sess, err := ctrl.CurrentState()
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, sess)
}

// gameSummary is the lobby view of one session.
type gameSummary struct {
	ID           string      `json:"id"`
	Round        int         `json:"round"`
	Status       game.Status `json:"status"`
	Participants int         `json:"participants"`
}

func (s *Server) listGames(w http.ResponseWriter, r *http.Request) {
	raw, err := s.st.Read(r.Context(), "games")
	if errors.Is(err, store.ErrNotFound) {
		respond(w, http.StatusOK, []gameSummary{})
		return
	}
	if err != nil {
		respondErr(w, err)
		return
	}
	docs := map[string]*game.Session{}
	if err := json.Unmarshal(raw, &docs); err != nil {
		respondErr(w, err)
		return
	}
	summaries := make([]gameSummary, 0, len(docs))
	for id, sess := range docs {
		summaries = append(summaries, gameSummary{
			ID:           id,
			Round:        sess.Round,
			Status:       sess.Status,
			Participants: len(sess.Participants),
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	respond(w, http.StatusOK, summaries)
}

func (s *Server) getGame(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	sess, err := ctrl.CurrentState()
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, sess)
}

func (s *Server) getBag(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	n, err := ctrl.RemainingBagSize()
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]int{"tilesRemaining": n})
}

func (s *Server) editRack(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	var body struct {
		Rack string `json:"rack"`
	}
	if err := decode(r, &body); err != nil {
		respond(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := ctrl.EditRack(r.Context(), body.Rack); err != nil {
		respondErr(w, err)
		return
	}
	s.respondState(w, ctrl)
}

func (s *Server) refillRack(w http.ResponseWriter, r *http.Request) {
	s.simpleAction(w, r, func(ctrl *game.Controller) error {
		return ctrl.RefillRack(r.Context())
	})
}

func (s *Server) openRound(w http.ResponseWriter, r *http.Request) {
	s.simpleAction(w, r, func(ctrl *game.Controller) error {
		return ctrl.Open(r.Context())
	})
}

func (s *Server) closeRound(w http.ResponseWriter, r *http.Request) {
	s.simpleAction(w, r, func(ctrl *game.Controller) error {
		return ctrl.Close(r.Context())
	})
}

func (s *Server) finalizeRound(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	var body struct {
		PlayerID string `json:"playerId"`
	}
	if err := decode(r, &body); err != nil {
		respond(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := ctrl.SelectAndFinalize(r.Context(), body.PlayerID); err != nil {
		respondErr(w, err)
		return
	}
	s.respondState(w, ctrl)
}

func (s *Server) submitMove(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	var mv game.PlayerMove
	if err := decode(r, &mv); err != nil {
		respond(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if mv.Direction == "" {
		mv.Direction = board.Horizontal
	}
	if err := ctrl.SubmitMove(r.Context(), mv); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusAccepted, nil)
}

func (s *Server) previewScore(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	var mv game.PlayerMove
	if err := decode(r, &mv); err != nil {
		respond(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if mv.Direction == "" {
		mv.Direction = board.Horizontal
	}
	if len(mv.Tiles) == 0 {
		mv.Tiles = tilemapping.Tokenize(mv.RawWord)
	}
	res, err := ctrl.PreviewScore(&mv)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}

func (s *Server) pauseTimer(w http.ResponseWriter, r *http.Request) {
	s.simpleAction(w, r, func(ctrl *game.Controller) error {
		return ctrl.PauseTimer(r.Context())
	})
}

func (s *Server) resumeTimer(w http.ResponseWriter, r *http.Request) {
	s.simpleAction(w, r, func(ctrl *game.Controller) error {
		return ctrl.ResumeTimer(r.Context())
	})
}

func (s *Server) resetTimer(w http.ResponseWriter, r *http.Request) {
	s.simpleAction(w, r, func(ctrl *game.Controller) error {
		return ctrl.ResetTimer(r.Context())
	})
}

func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	var gcfg game.Config
	if err := decode(r, &gcfg); err != nil {
		respond(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := ctrl.UpdateConfig(r.Context(), gcfg); err != nil {
		respondErr(w, err)
		return
	}
	s.respondState(w, ctrl)
}

func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	s.simpleAction(w, r, func(ctrl *game.Controller) error {
		return ctrl.ResetSession(r.Context())
	})
}

func (s *Server) simpleAction(w http.ResponseWriter, r *http.Request, action func(*game.Controller) error) {
	ctrl, err := s.controller(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := action(ctrl); err != nil {
		respondErr(w, err)
		return
	}
	s.respondState(w, ctrl)
}

func (s *Server) respondState(w http.ResponseWriter, ctrl *game.Controller) {
	sess, err := ctrl.CurrentState()
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, sess)
}
