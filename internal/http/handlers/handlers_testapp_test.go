package handlers_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gabriel/media-catalog/internal/auth"
	"github.com/gabriel/media-catalog/internal/config"
	"github.com/gabriel/media-catalog/internal/database"
	apihttp "github.com/gabriel/media-catalog/internal/http"
	"github.com/gabriel/media-catalog/internal/notifications"
	"github.com/gabriel/media-catalog/internal/scraperclient"
	"github.com/gabriel/media-catalog/internal/tmdb"
	"github.com/gofiber/fiber/v2"
)

const adminEmail = "admin@example.com"

type testApp struct {
	db  *sql.DB
	app *fiber.App
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.ApplyMigrations(db, ""); err != nil {
		_ = db.Close()
		t.Fatalf("apply migrations: %v", err)
	}
	if err := database.SeedDefaults(db); err != nil {
		_ = db.Close()
		t.Fatalf("seed defaults: %v", err)
	}

	tmdbServer := httptest.NewServer(http.HandlerFunc(fakeTMDB))
	scraperServer := httptest.NewServer(http.HandlerFunc(fakeScraper))

	manager, err := auth.NewManager("test-secret", time.Hour, "test")
	if err != nil {
		t.Fatalf("new auth manager: %v", err)
	}

	cfg := config.Config{AppName: "test-app", AdminEmails: []string{adminEmail}}
	app := apihttp.NewServer(apihttp.Dependencies{
		Config: cfg,
		DB:     db,
		TMDB: tmdb.NewClient(tmdb.Options{
			BaseURL:    tmdbServer.URL,
			APIKey:     "test-key",
			RateLimit:  1000,
			RateWindow: time.Second,
			HTTPClient: tmdbServer.Client(),
		}),
		Auth:     manager,
		Scraper:  scraperclient.NewClient(scraperServer.URL, scraperServer.Client()),
		Notifier: notifications.NoopNotifier{},
	})

	t.Cleanup(func() {
		_ = app.Shutdown()
		tmdbServer.Close()
		scraperServer.Close()
		_ = db.Close()
	})

	return &testApp{db: db, app: app}
}

func fakeTMDB(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	page := r.URL.Query().Get("page")
	switch {
	case r.URL.Path == "/trending/all/week":
		if page == "2" {
			fmt.Fprint(w, `{"page":2,"total_pages":2,"total_results":3,"results":[
				{"id":1,"media_type":"movie","title":"One"},
				{"id":3,"media_type":"tv","name":"Three"}]}`)
			return
		}
		fmt.Fprint(w, `{"page":1,"total_pages":2,"total_results":3,"results":[
			{"id":1,"media_type":"movie","title":"One"},
			{"id":2,"media_type":"movie","title":"Two"}]}`)
	case r.URL.Path == "/movie/popular":
		fmt.Fprint(w, `{"page":1,"total_pages":1,"total_results":1,"results":[{"id":10,"title":"Popular"}]}`)
	case r.URL.Path == "/tv/70523":
		fmt.Fprint(w, `{"id":70523,"name":"Dark","number_of_seasons":3,"number_of_episodes":26,"status":"Ended"}`)
	case r.URL.Path == "/tv/70523/season/1":
		fmt.Fprint(w, `{"id":1,"season_number":1,"episodes":[{"id":1,"episode_number":1},{"id":2,"episode_number":2},{"id":3,"episode_number":3}]}`)
	case r.URL.Path == "/tv/70523/season/2":
		fmt.Fprint(w, `{"id":2,"season_number":2,"episodes":[{"id":13,"episode_number":13},{"id":14,"episode_number":14}]}`)
	case r.URL.Path == "/tv/1399" || r.URL.Path == "/tv/1399/season/1":
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status_code":7,"status_message":"Invalid API key: You must be granted a valid key."}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"status_code":34,"status_message":"The resource you requested could not be found."}`)
	}
}

func fakeScraper(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/health":
		fmt.Fprint(w, `{"status":"ok","message":"scraper is running","logged_in":true}`)
	case "/api/scrape/search":
		fmt.Fprint(w, `{"success":true,"title":"Dark","type":"serial","year":"2017","url":"https://site/s/dark","count":2,"episodes":[
			{"episode":"S01E01","url":"https://site/e/1"},
			{"episode":"S01E02","url":"https://site/e/2"}]}`)
	case "/api/scrape/links":
		fmt.Fprint(w, `{"success":true,"count":2,"results":[
			{"episode":"S01E01","url":"https://site/e/1","links":[{"provider":"voe.sx","url":"https://voe.sx/e/1","quality":"1080p","version":"Lektor"}]},
			{"episode":"S01E02","url":"https://site/e/2","links":[]}]}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"success":false,"error":"not found"}`)
	}
}

func (ta *testApp) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	decoded := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 && strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode %s %s response %q: %v", method, path, raw, err)
		}
	}
	return res.StatusCode, decoded
}

type session struct {
	token string
	id    string
}

func (ta *testApp) register(t *testing.T, email, name string) session {
	t.Helper()

	status, body := ta.do(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email":       email,
		"password":    "correct-horse",
		"displayName": name,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d %v", email, status, body)
	}
	user := body["user"].(map[string]any)
	return session{token: body["token"].(string), id: user["id"].(string)}
}
