package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gabriel/media-catalog/internal/models"
	"github.com/gabriel/media-catalog/internal/notifications"
	"github.com/gabriel/media-catalog/internal/repository"
	"github.com/gabriel/media-catalog/internal/tmdb"
)

type fakeRepo struct {
	items    []repository.TrackedSeries
	stored   map[int64]models.SeriesProgress
	upserted int
}

func (f *fakeRepo) ListTrackedSeries() ([]repository.TrackedSeries, error) {
	return f.items, nil
}

func (f *fakeRepo) UpsertProgress(next models.SeriesProgress) (*models.SeriesProgress, error) {
	f.upserted++
	if f.stored == nil {
		f.stored = map[int64]models.SeriesProgress{}
	}
	previous, ok := f.stored[next.TMDBID]
	f.stored[next.TMDBID] = next
	if !ok {
		return nil, nil
	}
	return &previous, nil
}

type fakeSource struct {
	shows map[int64]*tmdb.TV
}

func (f fakeSource) TV(_ context.Context, id int64) (*tmdb.TV, error) {
	show, ok := f.shows[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return show, nil
}

type fakeNotifier struct {
	messages []notifications.Message
}

func (f *fakeNotifier) Notify(_ context.Context, message notifications.Message) error {
	f.messages = append(f.messages, message)
	return nil
}

func TestPollerRunOnce_NotifiesOnNewEpisodes(t *testing.T) {
	repo := &fakeRepo{
		items:  []repository.TrackedSeries{{TMDBID: 1, Title: "A"}},
		stored: map[int64]models.SeriesProgress{1: {TMDBID: 1, NumberOfEpisodes: 10}},
	}
	nextAir := "2026-11-01"
	source := fakeSource{shows: map[int64]*tmdb.TV{1: {
		ID:               1,
		Name:             "A",
		NumberOfEpisodes: 12,
		NextEpisodeToAir: &tmdb.EpisodeSummary{AirDate: &nextAir},
	}}}
	notifier := &fakeNotifier{}

	poller := NewPoller(repo, source, notifier, PollerConfig{Interval: time.Minute}, nil)
	if err := poller.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once failed: %v", err)
	}

	if repo.upserted != 1 {
		t.Fatalf("expected 1 upsert, got %d", repo.upserted)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.messages))
	}
	if notifier.messages[0].Context["added"] != 2 {
		t.Fatalf("expected 2 added episodes, got %v", notifier.messages[0].Context["added"])
	}
	if stored := repo.stored[1]; stored.NextAirDate == nil || *stored.NextAirDate != nextAir {
		t.Fatalf("expected next air date to be stored, got %+v", stored)
	}
}

func TestPollerRunOnce_NoNotifyOnFirstCheck(t *testing.T) {
	repo := &fakeRepo{items: []repository.TrackedSeries{{TMDBID: 1}}}
	source := fakeSource{shows: map[int64]*tmdb.TV{1: {ID: 1, NumberOfEpisodes: 5}}}
	notifier := &fakeNotifier{}

	poller := NewPoller(repo, source, notifier, PollerConfig{}, nil)
	if err := poller.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once failed: %v", err)
	}
	if len(notifier.messages) != 0 {
		t.Fatalf("expected no notification, got %d", len(notifier.messages))
	}
}

func TestPollerRunOnce_SkipsFailingSeries(t *testing.T) {
	repo := &fakeRepo{items: []repository.TrackedSeries{{TMDBID: 404}, {TMDBID: 2}}}
	source := fakeSource{shows: map[int64]*tmdb.TV{2: {ID: 2, NumberOfEpisodes: 3}}}

	poller := NewPoller(repo, source, nil, PollerConfig{}, nil)
	if err := poller.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once failed: %v", err)
	}
	if repo.upserted != 1 {
		t.Fatalf("expected only the reachable series to be stored, got %d", repo.upserted)
	}
}

func TestPollerStartStops(t *testing.T) {
	repo := &fakeRepo{}
	poller := NewPoller(repo, fakeSource{}, nil, PollerConfig{Interval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	poller.Start(ctx)
	cancel()

	select {
	case <-poller.stopCh:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected poller to stop after cancel")
	}
}
