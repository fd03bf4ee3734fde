package main

import (
	"testing"
	"time"

	"github.com/gabriel/media-catalog/internal/models"
)

func TestProgressChangedTreatsMissingSnapshotAsChange(t *testing.T) {
	if !progressChanged(nil, models.SeriesProgress{TMDBID: 1}) {
		t.Fatal("expected first snapshot to count as a change")
	}
}

func TestProgressChangedIgnoresCheckTimestamps(t *testing.T) {
	airDate := "2026-05-01"
	previous := &models.SeriesProgress{
		TMDBID:           70523,
		Name:             "Dark",
		Status:           "Ended",
		NumberOfSeasons:  3,
		NumberOfEpisodes: 26,
		LastAirDate:      &airDate,
		CheckedAt:        time.Now().Add(-time.Hour),
	}
	sameAirDate := "2026-05-01"
	next := models.SeriesProgress{
		TMDBID:           70523,
		Name:             "Dark",
		Status:           "Ended",
		NumberOfSeasons:  3,
		NumberOfEpisodes: 26,
		LastAirDate:      &sameAirDate,
		CheckedAt:        time.Now(),
	}

	if progressChanged(previous, next) {
		t.Fatal("expected identical snapshot to be unchanged")
	}

	next.NumberOfEpisodes = 27
	if !progressChanged(previous, next) {
		t.Fatal("expected episode count change to be detected")
	}
}

func TestProgressChangedComparesNextAirDate(t *testing.T) {
	upcoming := "2026-11-02"
	previous := &models.SeriesProgress{TMDBID: 1, Name: "Show"}
	next := models.SeriesProgress{TMDBID: 1, Name: "Show", NextAirDate: &upcoming}

	if !progressChanged(previous, next) {
		t.Fatal("expected newly announced air date to be detected")
	}
}
