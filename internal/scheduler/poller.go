package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gabriel/media-catalog/internal/models"
	"github.com/gabriel/media-catalog/internal/notifications"
	"github.com/gabriel/media-catalog/internal/repository"
	"github.com/gabriel/media-catalog/internal/tmdb"
)

type progressRepository interface {
	ListTrackedSeries() ([]repository.TrackedSeries, error)
	UpsertProgress(next models.SeriesProgress) (*models.SeriesProgress, error)
}

type seriesSource interface {
	TV(ctx context.Context, id int64) (*tmdb.TV, error)
}

// Poller refreshes the stored air state of every tracked series.
type Poller struct {
	repo     progressRepository
	source   seriesSource
	notifier notifications.Notifier
	interval time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
}

type PollerConfig struct {
	Interval time.Duration
}

func NewPoller(repo progressRepository, source seriesSource, notifier notifications.Notifier, cfg PollerConfig, logger *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 6 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notifications.NoopNotifier{}
	}

	return &Poller{
		repo:     repo,
		source:   source,
		notifier: notifier,
		interval: cfg.Interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("series refresh started", "interval", p.interval.String())
	ticker := time.NewTicker(p.interval)
	go func() {
		defer ticker.Stop()
		if err := p.RunOnce(ctx); err != nil {
			p.logger.Warn("series refresh initial run failed", "error", err)
		}
		for {
			select {
			case <-ctx.Done():
				p.logger.Info("series refresh stopped")
				close(p.stopCh)
				return
			case <-ticker.C:
				if err := p.RunOnce(ctx); err != nil {
					p.logger.Warn("series refresh cycle failed", "error", err)
				}
			}
		}
	}()
}

func (p *Poller) StopWait(timeout time.Duration) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	select {
	case <-p.stopCh:
	case <-time.After(timeout):
	}
}

// RunOnce checks every tracked series. A failing series is logged and
// skipped.
func (p *Poller) RunOnce(ctx context.Context) error {
	series, err := p.repo.ListTrackedSeries()
	if err != nil {
		return fmt.Errorf("load tracked series: %w", err)
	}

	for _, item := range series {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		requestCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		details, fetchErr := p.source.TV(requestCtx, item.TMDBID)
		cancel()
		if fetchErr != nil {
			p.logger.Warn("series refresh fetch failed", "tmdbId", item.TMDBID, "error", fetchErr)
			continue
		}

		next := ProgressFromTV(details)
		previous, err := p.repo.UpsertProgress(next)
		if err != nil {
			p.logger.Warn("series refresh update failed", "tmdbId", item.TMDBID, "error", err)
			continue
		}

		if !hasNewEpisodes(previous, next) {
			continue
		}
		added := next.NumberOfEpisodes - previous.NumberOfEpisodes
		message := notifications.Message{
			Event: notifications.EventSeriesNewEpisodes,
			Title: next.Name,
			Body:  fmt.Sprintf("%d new episode(s) of %s", added, next.Name),
			Context: map[string]any{
				"tmdbId":           next.TMDBID,
				"numberOfEpisodes": next.NumberOfEpisodes,
				"added":            added,
			},
			SentAt: time.Now().UTC(),
		}
		if err := p.notifier.Notify(ctx, message); err != nil {
			p.logger.Warn("series refresh notify failed", "tmdbId", item.TMDBID, "error", err)
		}
	}

	return nil
}

// ProgressFromTV maps catalog details onto the stored snapshot.
func ProgressFromTV(details *tmdb.TV) models.SeriesProgress {
	progress := models.SeriesProgress{
		TMDBID:           details.ID,
		Name:             details.Name,
		Status:           details.Status,
		NumberOfSeasons:  details.NumberOfSeasons,
		NumberOfEpisodes: details.NumberOfEpisodes,
		LastAirDate:      details.LastAirDate,
	}
	if details.NextEpisodeToAir != nil {
		progress.NextAirDate = details.NextEpisodeToAir.AirDate
	}
	return progress
}

func hasNewEpisodes(previous *models.SeriesProgress, current models.SeriesProgress) bool {
	if previous == nil {
		return false
	}
	return current.NumberOfEpisodes > previous.NumberOfEpisodes
}
