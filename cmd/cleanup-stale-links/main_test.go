package main

import (
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/gabriel/media-catalog/internal/database"
	"github.com/gabriel/media-catalog/internal/models"
	"github.com/gabriel/media-catalog/internal/repository"
)

func TestLinkAllowedMatchesProviderOrHost(t *testing.T) {
	allowed := []string{"doodstream", "voe.sx"}

	cases := []struct {
		name string
		link linkUsage
		want bool
	}{
		{"provider name", linkUsage{Provider: "DoodStream", URL: "https://d000d.com/e/1"}, true},
		{"url host", linkUsage{URL: "https://voe.sx/e/abc"}, true},
		{"unknown host", linkUsage{Provider: "mystery", URL: "https://blocked.host/e/1"}, false},
		{"broken url", linkUsage{URL: "::not a url"}, false},
	}
	for _, tc := range cases {
		if got := linkAllowed(tc.link, allowed); got != tc.want {
			t.Fatalf("%s: linkAllowed = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSplitProvidersNormalizes(t *testing.T) {
	got := splitProviders(" Voe.sx, doodstream,,voe.sx ")
	want := []string{"doodstream", "voe.sx"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected providers: got %v want %v", got, want)
	}
}

func TestApplyCleanupRemovesStaleLinksAndEmptyEpisodes(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "cleanup.sqlite"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := database.ApplyMigrations(db, ""); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	links := repository.NewLinkRepository(db)
	season, first, second := 1, 1, 2
	if _, err := links.AddLinks(repository.EpisodeTarget{
		MediaType: models.MediaTypeTV, TMDBID: 70523, Season: &season, Episode: &first,
	}, []repository.LinkInput{
		{URL: "https://voe.sx/e/keep"},
		{URL: "https://blocked.host/e/drop"},
	}, "admin"); err != nil {
		t.Fatalf("add links: %v", err)
	}
	if _, err := links.AddLinks(repository.EpisodeTarget{
		MediaType: models.MediaTypeTV, TMDBID: 70523, Season: &season, Episode: &second,
	}, []repository.LinkInput{{URL: "https://blocked.host/e/only"}}, "admin"); err != nil {
		t.Fatalf("add links: %v", err)
	}

	stale, err := listStaleLinks(db, []string{"voe.sx"})
	if err != nil {
		t.Fatalf("list stale links: %v", err)
	}
	if len(stale) != 2 {
		t.Fatalf("expected 2 stale links, got %d", len(stale))
	}

	outcome, err := applyCleanup(db, stale)
	if err != nil {
		t.Fatalf("apply cleanup: %v", err)
	}
	if outcome.DeletedLinks != 2 || outcome.DeletedEpisodes != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	kept, err := links.GetEpisode(repository.EpisodeTarget{MediaType: models.MediaTypeTV, TMDBID: 70523, Season: &season, Episode: &first})
	if err != nil {
		t.Fatalf("get episode: %v", err)
	}
	if kept == nil || len(kept.Links) != 1 || kept.Links[0].URL != "https://voe.sx/e/keep" {
		t.Fatalf("expected allowed link kept, got %+v", kept)
	}

	remaining, err := countEmptyEpisodes(db)
	if err != nil {
		t.Fatalf("count empty episodes: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected no empty episodes, got %d", remaining)
	}
}

func TestApplyCleanupDeletesInChunks(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "chunks.sqlite"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := database.ApplyMigrations(db, ""); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	previous := deleteChunkSize
	deleteChunkSize = 2
	t.Cleanup(func() { deleteChunkSize = previous })

	links := repository.NewLinkRepository(db)
	season := 1
	for episode := 1; episode <= 3; episode++ {
		number := episode
		if _, err := links.AddLinks(repository.EpisodeTarget{
			MediaType: models.MediaTypeTV, TMDBID: 1399, Season: &season, Episode: &number,
		}, []repository.LinkInput{
			{URL: fmt.Sprintf("https://blocked.host/e/%d/a", episode)},
			{URL: fmt.Sprintf("https://blocked.host/e/%d/b", episode)},
		}, "admin"); err != nil {
			t.Fatalf("add links: %v", err)
		}
	}

	stale, err := listStaleLinks(db, []string{"voe.sx"})
	if err != nil {
		t.Fatalf("list stale links: %v", err)
	}
	if len(stale) != 6 {
		t.Fatalf("expected 6 stale links, got %d", len(stale))
	}

	outcome, err := applyCleanup(db, stale)
	if err != nil {
		t.Fatalf("apply cleanup: %v", err)
	}
	if outcome.DeletedLinks != 6 || outcome.DeletedEpisodes != 3 {
		t.Fatalf("expected every chunk applied, got %+v", outcome)
	}
}
