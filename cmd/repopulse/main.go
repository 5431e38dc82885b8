// Package main is the entry point for the repopulse server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"repopulse/config"
	"repopulse/internal/cache"
	"repopulse/internal/github"
	"repopulse/internal/health"
	"repopulse/internal/observability"
	"repopulse/internal/queue"
	"repopulse/internal/quota"
	"repopulse/internal/server"
	"repopulse/internal/service"
)

const version = "0.3.0"

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println("repopulse " + version)
		os.Exit(0)
	}

	// Optional .env for local development; viper also reads it, godotenv
	// makes the variables visible to every package.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)
	slog.Info("starting repopulse", "version", version)

	if cfg.GitHub.Token == "" {
		slog.Warn("no GITHUB_TOKEN configured - running with the anonymous quota",
			"anonymous_limit", quota.AnonymousLimit,
			"recommendation", "set GITHUB_TOKEN to raise the hourly allowance")
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.New()
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	policy := health.DefaultPolicy()
	if cfg.Scoring.PolicyFile != "" {
		policy, err = health.LoadPolicy(cfg.Scoring.PolicyFile)
		if err != nil {
			slog.Error("failed to load scoring policy", "file", cfg.Scoring.PolicyFile, "error", err)
			os.Exit(1)
		}
		slog.Info("scoring policy loaded", "file", cfg.Scoring.PolicyFile)
	}

	// Acquisition pipeline: cache, quota tracker, request queue, fetcher.
	limit := quota.AnonymousLimit
	if cfg.GitHub.Token != "" {
		limit = quota.AuthenticatedLimit
	}
	tracker := quota.New(limit)

	store := cache.New(
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
		cache.WithDefaultTTL(cfg.Cache.DefaultTTL),
		cache.WithSweepInterval(cfg.Cache.SweepInterval),
		cache.WithLogger(logger),
	)
	defer store.Close()

	q := queue.New(tracker,
		queue.WithSpacing(cfg.Queue.Spacing),
		queue.WithLogger(logger),
	)
	defer q.Close()

	fetcher := github.New(github.Config{
		BaseURL: cfg.GitHub.BaseURL,
		Token:   cfg.GitHub.Token,
	}, q, tracker, metrics, logger)

	svc := service.New(store, fetcher, tracker, health.New(policy),
		service.WithMetrics(metrics),
		service.WithLogger(logger),
	)

	if metrics != nil {
		go gaugeLoop(metrics, tracker, q)
	}

	srv := server.New(svc, &server.Config{
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		Logger:          logger,
	})

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	slog.Info("starting server", "address", addr, "authenticated", cfg.GitHub.Token != "")

	if err := srv.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
		} else {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}
}

// newLogger builds the process logger: JSON by default, tint for local
// development.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := parseLevel(cfg.Level)
	if strings.EqualFold(cfg.Format, "pretty") {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// gaugeLoop keeps the quota and queue gauges current.
func gaugeLoop(m *observability.Metrics, tracker *quota.Tracker, q *queue.Queue) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		m.SetQuotaRemaining(tracker.Status().Remaining)
		m.SetQueueDepth(q.Len())
	}
}
