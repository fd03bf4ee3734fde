package scraperclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gabriel/media-catalog/internal/apperr"
	"github.com/gabriel/media-catalog/internal/repository"
)

func TestClientSearchAndLinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}

		switch r.URL.Path {
		case "/api/scrape/search":
			if body["title"] != "Dark" || body["type"] != "serial" || body["year"] != "2017" {
				t.Fatalf("unexpected search body: %v", body)
			}
			_, _ = w.Write([]byte(`{"success":true,"title":"Dark","type":"serial","year":"2017","url":"https://site/s/dark","episodes":[{"episode":"S01E01","url":"https://site/e/1"}],"count":1}`))
		case "/api/scrape/links":
			_, _ = w.Write([]byte(`{"success":true,"results":[{"episode":"S01E01","url":"https://site/e/1","links":[{"provider":"voe","url":"https://voe.sx/e/1","quality":"1080p","version":"Lektor"}]}],"count":1}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", server.Client())

	found, err := client.Search(context.Background(), "Dark", "serial", "2017")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if found.URL != "https://site/s/dark" || len(found.Episodes) != 1 {
		t.Fatalf("unexpected search result: %+v", found)
	}

	links, err := client.Links(context.Background(), found.Episodes)
	if err != nil {
		t.Fatalf("links: %v", err)
	}
	if len(links) != 1 || links[0].Links[0].Quality != "1080p" {
		t.Fatalf("unexpected links: %+v", links)
	}
}

func TestClientMapsErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   apperr.Kind
	}{
		{name: "not found", status: http.StatusNotFound, kind: apperr.KindNotFound},
		{name: "not logged in", status: http.StatusUnauthorized, kind: apperr.KindUnauthorized},
		{name: "bad request", status: http.StatusBadRequest, kind: apperr.KindBadRequest},
		{name: "server error", status: http.StatusInternalServerError, kind: apperr.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"success":false,"error":"upstream says no"}`))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, server.Client()).Search(context.Background(), "x", "serial", "")
			if apperr.KindOf(err) != tt.kind {
				t.Fatalf("expected kind %s, got %s (%v)", tt.kind, apperr.KindOf(err), err)
			}
			if apperr.PublicMessage(err) != "upstream says no" {
				t.Fatalf("expected upstream message, got %q", apperr.PublicMessage(err))
			}
		})
	}
}

func TestClientNotConfigured(t *testing.T) {
	_, err := NewClient("", nil).Health(context.Background())
	if !apperr.Is(err, apperr.KindNetwork) {
		t.Fatalf("expected network kind, got %v", err)
	}
}

func TestParseEpisodeCode(t *testing.T) {
	season, episode, ok := ParseEpisodeCode("s02E10")
	if !ok || season != 2 || episode != 10 {
		t.Fatalf("unexpected parse: %d %d %v", season, episode, ok)
	}
	if _, _, ok := ParseEpisodeCode("FILM"); ok {
		t.Fatalf("expected FILM to be rejected")
	}
}

type fakeScraper struct {
	search    SearchResult
	searches  int
	requested []Episode
	links     []EpisodeLinks
}

func (f *fakeScraper) Search(_ context.Context, _, _, _ string) (SearchResult, error) {
	f.searches++
	return f.search, nil
}

func (f *fakeScraper) Links(_ context.Context, episodes []Episode) ([]EpisodeLinks, error) {
	f.requested = episodes
	return f.links, nil
}

type recordedImport struct {
	target repository.EpisodeTarget
	links  []repository.LinkInput
}

type fakeImporter struct {
	calls []recordedImport
}

func (f *fakeImporter) AddLinks(target repository.EpisodeTarget, links []repository.LinkInput, _ string) (*repository.AddLinksResult, error) {
	f.calls = append(f.calls, recordedImport{target: target, links: links})
	return &repository.AddLinksResult{Added: len(links)}, nil
}

func TestDiscoverImportsSelectedEpisodes(t *testing.T) {
	scraper := &fakeScraper{
		search: SearchResult{Title: "Dark", URL: "https://site/s/dark", Episodes: []Episode{
			{Episode: "S01E01", URL: "https://site/e/1"},
			{Episode: "S01E02", URL: "https://site/e/2"},
			{Episode: "S02E01", URL: "https://site/e/3"},
		}},
		links: []EpisodeLinks{
			{Episode: "S01E01", Links: []Link{{Provider: "voe", URL: "https://voe.sx/e/1", Quality: "720p", Version: "Napisy"}}},
			{Episode: "S01E02", Links: []Link{}},
		},
	}
	importer := &fakeImporter{}
	season := 1

	report, err := NewDiscoverer(scraper, importer, nil).Discover(context.Background(), DiscoverRequest{
		MediaType: "tv",
		TMDBID:    70523,
		Title:     "Dark",
		Season:    &season,
	}, "admin-1")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}

	if len(scraper.requested) != 2 {
		t.Fatalf("expected season 1 episodes only, got %+v", scraper.requested)
	}
	if len(importer.calls) != 1 {
		t.Fatalf("expected one import, got %d", len(importer.calls))
	}
	call := importer.calls[0]
	if call.target.DocumentID() != "70523_s1_e1" || *call.links[0].Language != "Napisy" {
		t.Fatalf("unexpected import: %+v", call)
	}
	if len(report.Imported) != 1 || len(report.Skipped) != 1 || report.Skipped[0].Episode != "S01E02" {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestDiscoverMovieUsesFilmEntry(t *testing.T) {
	scraper := &fakeScraper{
		search: SearchResult{Title: "Heat", Episodes: []Episode{{Episode: "FILM", URL: "https://site/m/heat"}}},
		links:  []EpisodeLinks{{Episode: "FILM", Links: []Link{{Provider: "voe", URL: "https://voe.sx/e/heat"}}}},
	}
	importer := &fakeImporter{}

	report, err := NewDiscoverer(scraper, importer, nil).Discover(context.Background(), DiscoverRequest{
		MediaType: "movie",
		TMDBID:    949,
		Title:     "Heat",
	}, "admin-1")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(report.Imported) != 1 || report.Imported[0].DocumentID != "949" {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestDiscoverNoMatchingEpisodes(t *testing.T) {
	scraper := &fakeScraper{search: SearchResult{Episodes: []Episode{{Episode: "S01E01"}}}}

	_, err := NewDiscoverer(scraper, &fakeImporter{}, nil).Discover(context.Background(), DiscoverRequest{
		MediaType: "tv",
		TMDBID:    1,
		Title:     "x",
		Episodes:  []string{"S05E05"},
	}, "admin-1")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDiscoverRejectsMalformedEpisodeCodes(t *testing.T) {
	scraper := &fakeScraper{search: SearchResult{Episodes: []Episode{{Episode: "S01E01"}, {Episode: "S01E02"}}}}
	importer := &fakeImporter{}

	_, err := NewDiscoverer(scraper, importer, nil).Discover(context.Background(), DiscoverRequest{
		MediaType: "tv",
		TMDBID:    70523,
		Title:     "Dark",
		Episodes:  []string{"S01E01", "1x02"},
	}, "admin-1")
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
	if scraper.searches != 0 || len(importer.calls) != 0 {
		t.Fatalf("expected no scraping or imports, got %d searches and %d imports", scraper.searches, len(importer.calls))
	}
}
