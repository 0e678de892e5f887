package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/escrabble-cat/duplicat/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The arbiter screen and player clients are served from other origins
	// at a tournament venue.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// watchGame streams the session document to a websocket client: one full
// snapshot on connect, then the whole updated document after every store
// change. Clients re-render from the document; there are no deltas.
func (s *Server) watchGame(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	updates := make(chan json.RawMessage, 1)
	push := func(data json.RawMessage) {
		// Keep only the latest document if the client is slow.
		for {
			select {
			case updates <- data:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	}

	// The request context dies when this handler returns; the subscription
	// has to outlive it and is torn down when the socket closes.
	cancel, err := s.st.Subscribe(context.Background(), ctrl.GamePath(), func(path string, data json.RawMessage) {
		push(data)
	})
	if err != nil {
		log.Error().Err(err).Msg("subscribe failed")
		conn.Close()
		return
	}

	if sess, err := ctrl.CurrentState(); err == nil {
		if raw, err := json.Marshal(sess); err == nil {
			push(raw)
		}
	}

	done := make(chan struct{})
	go func() {
		// Drain reads so pings/pongs and the close handshake work; clients
		// never send game data over this socket.
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		defer cancel()
		defer conn.Close()
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case data := <-updates:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()
}

// followStore keeps a controller's in-memory session in step with writes
// from other processes sharing the store. Updates are applied in order off
// a single goroutine; the newest document wins if we fall behind. With the
// in-memory backend there is no other process, so there is nothing to
// follow.
func (s *Server) followStore(id string, ctrl *game.Controller) {
	if s.cfg.StoreBackend != "redis" {
		return
	}
	updates := make(chan json.RawMessage, 1)
	_, err := s.st.Subscribe(context.Background(), "games/"+id, func(path string, data json.RawMessage) {
		for {
			select {
			case updates <- data:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	})
	if err != nil {
		log.Error().Err(err).Str("game", id).Msg("could not follow store changes")
		return
	}
	go func() {
		for data := range updates {
			if err := ctrl.ApplyRemoteUpdate(data); err != nil {
				log.Error().Err(err).Str("game", id).Msg("bad session document from store")
			}
		}
	}()
}
