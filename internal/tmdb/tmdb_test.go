package tmdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gabriel/media-catalog/internal/apperr"
)

func TestSlidingWindowReserve(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base
	limiter := NewSlidingWindow(3, 10*time.Second)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if wait := limiter.reserve(); wait != 0 {
			t.Fatalf("slot %d: expected immediate slot, got wait %v", i, wait)
		}
		now = now.Add(time.Second)
	}

	// Fourth request at t=3s must wait until the first stamp (t=0) leaves.
	if wait := limiter.reserve(); wait != 7*time.Second {
		t.Fatalf("expected 7s wait, got %v", wait)
	}
	if limiter.InFlight() != 3 {
		t.Fatalf("expected 3 in flight, got %d", limiter.InFlight())
	}

	now = base.Add(10 * time.Second)
	if wait := limiter.reserve(); wait != 0 {
		t.Fatalf("expected slot after window slides, got %v", wait)
	}
	if wait := limiter.reserve(); wait != time.Second {
		t.Fatalf("expected 1s wait for second stamp, got %v", wait)
	}
}

func TestSlidingWindowWaitHonoursContext(t *testing.T) {
	limiter := NewSlidingWindow(1, time.Hour)
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

type memoryCache struct {
	entries map[string][]byte
}

func (m *memoryCache) Get(key string) ([]byte, bool, error) {
	value, ok := m.entries[key]
	return value, ok, nil
}

func (m *memoryCache) Set(key string, value []byte, _ time.Duration) error {
	m.entries[key] = value
	return nil
}

func TestClientQueryParamsAndCache(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != "/movie/popular" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		query := r.URL.Query()
		if query.Get("api_key") != "key" || query.Get("language") != "pl-PL" || query.Get("page") != "2" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"page":          2,
			"total_pages":   3,
			"total_results": 60,
			"results": []map[string]any{
				{"id": 603, "title": "The Matrix", "release_date": "1999-03-30"},
			},
		})
	}))
	defer server.Close()

	cache := &memoryCache{entries: map[string][]byte{}}
	client := NewClient(Options{BaseURL: server.URL, APIKey: "key", Language: "pl-PL", Cache: cache})

	for i := 0; i < 2; i++ {
		page, err := client.Popular(context.Background(), "movie", 2)
		if err != nil {
			t.Fatalf("popular: %v", err)
		}
		if len(page.Results) != 1 || page.Results[0].MediaType != "movie" || !page.HasMore() {
			t.Fatalf("unexpected page: %+v", page)
		}
	}

	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected cached second call, got %d upstream hits", hits)
	}
	if client.limiter.InFlight() != 1 {
		t.Fatalf("cache hits must not consume limiter slots, got %d", client.limiter.InFlight())
	}
	for key := range cache.entries {
		if key != "/movie/popular?language=pl-PL&page=2" {
			t.Fatalf("unexpected cache key %q", key)
		}
	}
}

func TestClientMapsUpstreamErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movie/1":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status_code":34,"status_message":"The resource you requested could not be found."}`))
		case "/movie/2":
			w.WriteHeader(http.StatusTooManyRequests)
		case "/movie/5":
			w.WriteHeader(http.StatusForbidden)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status_code":7,"status_message":"Invalid API key"}`))
		}
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL, APIKey: "key"})

	_, err := client.Movie(context.Background(), 1)
	if !apperr.Is(err, apperr.KindNotFound) || apperr.PublicMessage(err) != "The resource you requested could not be found." {
		t.Fatalf("expected not found with upstream message, got %v", err)
	}
	if _, err := client.Movie(context.Background(), 2); !apperr.Is(err, apperr.KindRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	_, err = client.TV(context.Background(), 3)
	if !apperr.Is(err, apperr.KindNetwork) || apperr.PublicMessage(err) == "Invalid API key" {
		t.Fatalf("expected upstream 401 as a server-side failure, got %v", err)
	}
	if _, err := client.Movie(context.Background(), 5); !apperr.Is(err, apperr.KindNetwork) {
		t.Fatalf("expected upstream 403 as a server-side failure, got %v", err)
	}
	if _, err := client.Popular(context.Background(), "book", 1); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request for media type, got %v", err)
	}

	server.Close()
	if _, err := client.Movie(context.Background(), 4); !apperr.Is(err, apperr.KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestClientSearchDropsPeople(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") != "matrix" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"page":        1,
			"total_pages": 1,
			"results": []map[string]any{
				{"id": 603, "media_type": "movie", "title": "The Matrix"},
				{"id": 6384, "media_type": "person", "name": "Keanu Reeves"},
				{"id": 1, "media_type": "tv", "name": "Matrix"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL, APIKey: "key"})
	page, err := client.Search(context.Background(), " matrix ", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(page.Results) != 2 || page.HasMore() {
		t.Fatalf("unexpected search page: %+v", page)
	}
	if _, err := client.Search(context.Background(), " ", 1); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected empty query rejected, got %v", err)
	}
}

func TestClientWithoutKeyIsServerFailure(t *testing.T) {
	client := NewClient(Options{BaseURL: "http://127.0.0.1:1"})
	if _, err := client.Genres(context.Background(), "movie"); !apperr.Is(err, apperr.KindNetwork) {
		t.Fatalf("expected network kind, got %v", err)
	}
}

func TestMergePagesDedupesAcrossPages(t *testing.T) {
	existing := []Result{{ID: 1, MediaType: "movie"}, {ID: 2, MediaType: "movie"}}
	next := Page{Page: 2, TotalPages: 2, Results: []Result{
		{ID: 2, MediaType: "movie"},
		{ID: 2, MediaType: "tv"},
		{ID: 3, MediaType: "movie"},
		{ID: 3, MediaType: "movie"},
	}}

	merged := MergePages(existing, next)
	if merged.Added != 2 || len(merged.Results) != 4 || merged.HasMore {
		t.Fatalf("unexpected merge: %+v", merged)
	}
	if merged.Results[2].Key() != "tv:2" || merged.Results[3].Key() != "movie:3" {
		t.Fatalf("expected order preserved, got %+v", merged.Results)
	}
}

func TestFilterSeen(t *testing.T) {
	seen := ParseSeen("movie:1, tv:2,bogus,movie:x")
	if len(seen) != 2 {
		t.Fatalf("expected two seen keys, got %v", seen)
	}
	page := FilterSeen(seen, Page{Page: 1, TotalPages: 4, Results: []Result{
		{ID: 1, MediaType: "movie"},
		{ID: 2, MediaType: "tv"},
		{ID: 2, MediaType: "movie"},
	}})
	if len(page.Results) != 1 || page.Results[0].Key() != "movie:2" || !page.HasMore() {
		t.Fatalf("unexpected filtered page: %+v", page)
	}
}

func TestBadgerCacheRoundTrip(t *testing.T) {
	cache, err := OpenBadgerCache("", nil)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer cache.Close()

	if _, ok, err := cache.Get("missing"); err != nil || ok {
		t.Fatalf("expected miss, got %v %v", ok, err)
	}
	if err := cache.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := cache.Get("k")
	if err != nil || !ok || string(value) != "v" {
		t.Fatalf("unexpected get: %q %v %v", value, ok, err)
	}
	if err := cache.Purge(); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if _, ok, _ := cache.Get("k"); ok {
		t.Fatalf("expected purge to drop entries")
	}
}
