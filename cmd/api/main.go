package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gabriel/media-catalog/internal/auth"
	"github.com/gabriel/media-catalog/internal/config"
	"github.com/gabriel/media-catalog/internal/database"
	apihttp "github.com/gabriel/media-catalog/internal/http"
	"github.com/gabriel/media-catalog/internal/notifications"
	"github.com/gabriel/media-catalog/internal/repository"
	"github.com/gabriel/media-catalog/internal/scheduler"
	"github.com/gabriel/media-catalog/internal/scraperclient"
	"github.com/gabriel/media-catalog/internal/tmdb"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	db, err := database.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open sqlite", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.ApplyMigrations(db, cfg.MigrationsPath); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	if cfg.SeedDefaultData {
		if err := database.SeedDefaults(db); err != nil {
			slog.Error("failed to seed defaults", "error", err)
			os.Exit(1)
		}
	}
	if promoted, err := database.PromoteAdmins(db, cfg.AdminEmails); err != nil {
		slog.Error("failed to promote admins", "error", err)
		os.Exit(1)
	} else if promoted > 0 {
		slog.Info("promoted admin accounts", "count", promoted)
	}

	cache, err := tmdb.OpenBadgerCache(cfg.CachePath, logger)
	if err != nil {
		slog.Error("failed to open metadata cache", "path", cfg.CachePath, "error", err)
		os.Exit(1)
	}
	defer cache.Close()

	tmdbClient := tmdb.NewClient(tmdb.Options{
		BaseURL:    cfg.TMDBBaseURL,
		APIKey:     cfg.TMDBAPIKey,
		Language:   cfg.TMDBLanguage,
		RateLimit:  cfg.TMDBRateLimit,
		RateWindow: cfg.TMDBRateWindow,
		Cache:      cache,
		CacheTTL:   cfg.CacheTTL,
		Logger:     logger,
	})
	if !tmdbClient.Configured() {
		slog.Warn("metadata provider api key missing, catalog endpoints will fail")
	}

	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL, cfg.AppName)
	if err != nil {
		slog.Error("failed to configure auth", "error", err)
		os.Exit(1)
	}

	notifier, err := notifications.FromConfig(cfg.WebhookURL, logger)
	if err != nil {
		slog.Error("failed to configure notifications", "error", err)
		os.Exit(1)
	}

	app := apihttp.NewServer(apihttp.Dependencies{
		Config:   cfg,
		DB:       db,
		TMDB:     tmdbClient,
		Auth:     tokens,
		Scraper:  scraperclient.NewClient(cfg.ScraperURL, nil),
		Notifier: notifier,
		Logger:   logger,
	})

	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	poller := scheduler.NewPoller(
		repository.NewSeriesProgressRepository(db),
		tmdbClient,
		notifier,
		scheduler.PollerConfig{
			Interval: time.Duration(cfg.RefreshMinutes) * time.Minute,
		},
		logger,
	)
	if cfg.RefreshEnabled {
		poller.Start(pollerCtx)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()

	slog.Info("api started", "port", cfg.Port, "env", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down server")
	pollerCancel()
	poller.StopWait(2 * time.Second)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
