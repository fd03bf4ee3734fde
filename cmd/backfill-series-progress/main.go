package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/gabriel/media-catalog/internal/config"
	"github.com/gabriel/media-catalog/internal/database"
	"github.com/gabriel/media-catalog/internal/models"
	"github.com/gabriel/media-catalog/internal/repository"
	"github.com/gabriel/media-catalog/internal/scheduler"
	"github.com/gabriel/media-catalog/internal/tmdb"
)

type summary struct {
	Total     int
	Created   int
	Updated   int
	Unchanged int
	Failed    int
}

func main() {
	var (
		limit          = flag.Int("limit", 0, "Limit number of series processed (0 = all)")
		resolveTimeout = flag.Duration("resolve-timeout", 12*time.Second, "Per-series catalog request timeout")
		dryRun         = flag.Bool("dry-run", false, "Preview updates without writing to DB")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
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

	client := tmdb.NewClient(tmdb.Options{
		BaseURL:    cfg.TMDBBaseURL,
		APIKey:     cfg.TMDBAPIKey,
		Language:   cfg.TMDBLanguage,
		RateLimit:  cfg.TMDBRateLimit,
		RateWindow: cfg.TMDBRateWindow,
		Logger:     logger,
	})
	if !client.Configured() {
		slog.Error("TMDB_API_KEY is required for backfill")
		os.Exit(1)
	}

	repo := repository.NewSeriesProgressRepository(db)
	items, err := repo.ListTrackedSeries()
	if err != nil {
		slog.Error("failed to list tracked series", "error", err)
		os.Exit(1)
	}
	if *limit > 0 && len(items) > *limit {
		items = items[:*limit]
	}
	if len(items) == 0 {
		slog.Info("no tracked series found for backfill")
		return
	}

	stats := summary{}
	for _, item := range items {
		stats.Total++

		ctx, cancel := context.WithTimeout(context.Background(), *resolveTimeout)
		details, fetchErr := client.TV(ctx, item.TMDBID)
		cancel()
		if fetchErr != nil {
			stats.Failed++
			slog.Warn("catalog lookup failed; skipping series", "tmdb_id", item.TMDBID, "title", item.Title, "error", fetchErr)
			continue
		}

		previous, err := repo.Get(item.TMDBID)
		if err != nil {
			stats.Failed++
			slog.Warn("failed to read stored progress", "tmdb_id", item.TMDBID, "error", err)
			continue
		}
		next := scheduler.ProgressFromTV(details)
		if !progressChanged(previous, next) {
			stats.Unchanged++
			continue
		}

		if *dryRun {
			slog.Info("would update series progress", "tmdb_id", item.TMDBID, "name", next.Name, "episodes", next.NumberOfEpisodes)
		} else if _, err := repo.UpsertProgress(next); err != nil {
			stats.Failed++
			slog.Warn("failed to store series progress", "tmdb_id", item.TMDBID, "error", err)
			continue
		}

		if previous == nil {
			stats.Created++
		} else {
			stats.Updated++
		}
	}

	slog.Info(
		"backfill completed",
		"dry_run", *dryRun,
		"total", stats.Total,
		"created", stats.Created,
		"updated", stats.Updated,
		"unchanged", stats.Unchanged,
		"failed", stats.Failed,
	)
}

// progressChanged ignores check timestamps.
func progressChanged(previous *models.SeriesProgress, next models.SeriesProgress) bool {
	if previous == nil {
		return true
	}
	return previous.Name != next.Name ||
		previous.Status != next.Status ||
		previous.NumberOfSeasons != next.NumberOfSeasons ||
		previous.NumberOfEpisodes != next.NumberOfEpisodes ||
		!sameDate(previous.LastAirDate, next.LastAirDate) ||
		!sameDate(previous.NextAirDate, next.NextAirDate)
}

func sameDate(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
