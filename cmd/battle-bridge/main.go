package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eulucasalbert/tiktok-lovable-railway/internal/adapters/feed"
	"github.com/eulucasalbert/tiktok-lovable-railway/internal/adapters/storage/sqlite"
	cfgpkg "github.com/eulucasalbert/tiktok-lovable-railway/internal/infrastructure/config"
	"github.com/eulucasalbert/tiktok-lovable-railway/internal/infrastructure/httpapi"
	obs "github.com/eulucasalbert/tiktok-lovable-railway/internal/infrastructure/observability"
	"github.com/eulucasalbert/tiktok-lovable-railway/internal/usecase"
)

func main() {
	cfg, err := cfgpkg.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "battle-bridge: %v\n", err)
		os.Exit(1)
	}

	logger := obs.NewLogger(cfg.LogLevel)
	logger.Info().Str("addr", cfg.Addr).Str("version", obs.Version).Msg("starting battle-bridge")

	metrics := obs.NewMetrics()

	store, err := sqlite.Open(cfg.StorePath)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.StorePath).Msg("store open failed")
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	dial := func(ctx context.Context, handle string) (usecase.FeedConn, error) {
		return feed.Dial(ctx, logger, metrics, cfg.FeedURL, handle, feed.Options{InsecureTLS: cfg.InsecureTLS})
	}

	sink := usecase.NewEventSink(logger, store, store, metrics)
	battle := usecase.NewBattleMachine(logger, sink, metrics)
	manager := usecase.NewManager(logger, store, store, store, sink, battle, dial, metrics)
	watcher := usecase.NewWatcher(logger, store, manager,
		time.Duration(cfg.PollIntervalMs)*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	// Periodic removal of old terminal/unadopted sessions and their events.
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.CleanupIntervalSec) * time.Second)
		defer ticker.Stop()
		ttl := time.Duration(cfg.SessionTTLSec) * time.Second
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := store.DeleteStaleSessions(ctx, ttl)
				if err != nil {
					logger.Error().Err(err).Msg("session cleanup failed")
					metrics.StoreErrorsTotal.WithLabelValues("cleanup").Inc()
					continue
				}
				if n > 0 {
					logger.Info().Int("removed", n).Msg("stale sessions cleaned up")
				}
			}
		}
	}()

	deps := &httpapi.Deps{
		Cfg:      cfg,
		Logger:   logger,
		Metrics:  metrics,
		Sessions: store,
		Events:   store,
		Manager:  manager,
		Battle:   battle,
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	manager.Teardown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	logger.Info().Msg("battle-bridge stopped")
}
