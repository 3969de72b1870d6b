package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tt1717/battleserver/internal/api"
	"github.com/tt1717/battleserver/internal/battlelog"
	"github.com/tt1717/battleserver/internal/config"
	"github.com/tt1717/battleserver/internal/fstore"
	"github.com/tt1717/battleserver/internal/logger"
	"github.com/tt1717/battleserver/internal/rating"
	"github.com/tt1717/battleserver/internal/tournament"
	"github.com/tt1717/battleserver/internal/worker"
)

func main() {
	cfg := config.Load()

	log := logger.New(logger.WithLevel(logger.ParseLevel(cfg.LogLevel)))
	logger.SetDefault(log)

	log.Info("battle server starting")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("data_dir=%s", cfg.DataDir)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)

	files, err := fstore.New(cfg.DataDir)
	if err != nil {
		log.Error("failed to prepare data directory: %v", err)
		os.Exit(1)
	}

	battles, err := battlelog.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open battle log: %v", err)
		os.Exit(1)
	}
	defer battles.Close()

	ctrl := tournament.NewController(files, tournament.Defaults{
		Format:   cfg.TourFormat,
		BestOf:   cfg.TourBestOf,
		Players:  cfg.TourPlayers,
		Shuffle:  cfg.TourShuffle,
		AutoInit: cfg.TourAutoInit,
	})
	ctrl.LoadOrInitialize()

	pool := worker.NewPool(cfg.LogWorkerCount, cfg.LogQueueSize)

	srv := &api.Server{
		Tournament: ctrl,
		Ratings:    rating.NewManager(files),
		Battles:    battles,
		Pool:       pool,
		RatePerSec: cfg.RateLimitPerSec,
		RateBurst:  cfg.RateLimitBurst,
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info("received signal %v, shutting down", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	cancel()
	pool.Stop()
	ctrl.Close()

	log.Info("battle server stopped")
}
