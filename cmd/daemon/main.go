// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voicepick/recorderd/internal/api"
	"github.com/voicepick/recorderd/internal/config"
	"github.com/voicepick/recorderd/internal/log"
	"github.com/voicepick/recorderd/internal/notify"
	"github.com/voicepick/recorderd/internal/orchestrator"
)

var (
	version   = "v0.3.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg := config.FromEnv()

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: "recorderd",
		Version: version,
	})
	logger := log.WithComponent("daemon")

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).
			Str("event", "config.invalid").
			Msg("invalid configuration")
	}

	if err := os.MkdirAll(cfg.RecordingsDir, 0o750); err != nil {
		logger.Fatal().Err(err).
			Str(log.FieldPath, cfg.RecordingsDir).
			Msg("failed to create recordings directory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier := notify.New(cfg.NotifyBaseURL, cfg.NotifyToken)
	if !notifier.Enabled() {
		logger.Warn().Msg("no system of record configured, completions will not be reported")
	}

	orch := orchestrator.New(cfg, notifier)
	server := api.New(cfg, orch)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("event", "daemon.listening").
			Str("addr", cfg.ListenAddr).
			Str(log.FieldPath, cfg.RecordingsDir).
			Msg("recorder daemon started")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Stop live recordings first so artifacts get finalized and
		// reported, then close the HTTP listener.
		active := orch.ListActive()
		if len(active) > 0 {
			logger.Info().Int("count", len(active)).Msg("stopping active recordings")
			orch.Shutdown(shutdownCtx)
		}
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("daemon terminated")
	}
	logger.Info().Str("event", "daemon.stopped").Msg("shutdown complete")
}
