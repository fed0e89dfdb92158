package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"aclamission/internal/config"
	"aclamission/internal/ledger"
	"aclamission/internal/logger"
	"aclamission/internal/routes"
	"aclamission/internal/store"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if logger.ParseLevel(cfg.LogLevel) > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := store.Open(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("connect database")
	}
	if err := store.Migrate(db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	if cfg.SeedDev {
		if err := store.SeedDev(db); err != nil {
			log.Fatal().Err(err).Msg("seed")
		}
		log.Info().Msg("dev data seeded")
	}

	notifier := ledger.NewNotifier(32)
	engine := routes.Register(cfg, log, store.New(db, cfg.DBTimeout), notifier)
	// request contexts end on shutdown so open event streams let go
	base, cancelBase := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	srv.RegisterOnShutdown(cancelBase)

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("stopped")
}
