package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/escrabble-cat/duplicat/api"
	"github.com/escrabble-cat/duplicat/config"
	"github.com/escrabble-cat/duplicat/disc"
	"github.com/escrabble-cat/duplicat/store"
	"github.com/escrabble-cat/duplicat/tilemapping"
)

const GracefulShutdownTimeout = 20 * time.Second

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(); err != nil {
		log.Fatal().Err(err).Msg("could not load config")
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Info().Interface("config", cfg).Msg("duplicat starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st store.Store
	switch cfg.StoreBackend {
	case "redis":
		redisStore, err := store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to redis")
		}
		st = redisStore
	default:
		st = store.NewMemStore()
	}
	defer st.Close()

	dict := disc.GetOrFailOpen(cfg, cfg.DefaultLexicon)
	ld := tilemapping.CatalanDistribution()

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewServer(cfg, st, dict, ld).Routes(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("got quit signal...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	log.Info().Msg("server gracefully shut down")
}
