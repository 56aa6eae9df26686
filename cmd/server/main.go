// Package main provides the entry point for the video processing server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Denzyyyy/Youtube-clone/internal/bootstrap"
	"github.com/Denzyyyy/Youtube-clone/internal/config"
	"github.com/Denzyyyy/Youtube-clone/internal/server"
)

const (
	// jobDrainTimeout is how long in-flight jobs may keep running after a
	// shutdown signal.
	jobDrainTimeout = 30 * time.Second
	// serverCloseGrace covers engine termination and responses for jobs
	// cancelled at the drain deadline.
	serverCloseGrace = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting video processing service",
		slog.Int("port", cfg.Port),
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.String("raw_bucket", cfg.RawBucket),
		slog.String("processed_bucket", cfg.ProcessedBucket),
		slog.Int("target_height", cfg.TargetHeight),
		slog.Duration("transcode_timeout", cfg.TranscodeTimeout),
	)

	// Initialize dependencies using bootstrap
	deps, err := bootstrap.NewDependencies(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	// Initialize HTTP handlers and router
	handlers := server.NewHandlers(deps.Pipeline, deps.Uploads, logger)
	router := server.NewRouter(handlers, logger, server.Config{
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	// POST /process-video holds the connection for the whole transcode, so the
	// write timeout has to outlast the transcode timeout.
	writeTimeout := 5 * time.Minute
	if cfg.TranscodeTimeout > 0 {
		writeTimeout = cfg.TranscodeTimeout + 5*time.Minute
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown handling
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			slog.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-shutdownCh:
		logger.Info("received shutdown signal",
			slog.String("signal", sig.String()),
		)
	case err := <-errCh:
		return err
	}

	// In-flight jobs get jobDrainTimeout to finish. After that they are
	// cancelled, which stops the engine and removes their stage files, and the
	// blocked requests answer with an error before the server closes.
	logger.Info("shutting down server...")

	srvCtx, srvCancel := context.WithTimeout(context.Background(), jobDrainTimeout+serverCloseGrace)
	defer srvCancel()
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Shutdown(srvCtx)
	}()

	jobCtx, jobCancel := context.WithTimeout(context.Background(), jobDrainTimeout)
	defer jobCancel()
	if err := deps.Pipeline.Shutdown(jobCtx); err != nil {
		logger.Warn("in-flight jobs cancelled at shutdown",
			slog.String("error", err.Error()),
		)
	}

	if err := <-srvErr; err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
