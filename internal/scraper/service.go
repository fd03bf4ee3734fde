package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gabriel/media-catalog/internal/searchutil"
	"golang.org/x/time/rate"
)

var (
	ErrNoResults   = errors.New("no results found")
	ErrNotLoggedIn = errors.New("not logged in to the site")
	ErrMissingURL  = errors.New("episode url is required")
)

// Year accepts both a JSON number and a string.
type Year string

func (y *Year) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*y = ""
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*y = Year(strings.TrimSpace(value))
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("year must be a number or string: %w", err)
	}
	if value, err := number.Int64(); err == nil {
		*y = Year(strconv.FormatInt(value, 10))
		return nil
	}
	*y = Year(number.String())
	return nil
}

type SearchRequest struct {
	Title string `json:"title"`
	Type  string `json:"type"`
	Year  Year   `json:"year"`
}

type SearchResponse struct {
	Title    string       `json:"title"`
	Type     string       `json:"type"`
	Year     string       `json:"year"`
	URL      string       `json:"url"`
	Episodes []EpisodeRef `json:"episodes"`
	Count    int          `json:"count"`
}

type EpisodeLinks struct {
	Episode string       `json:"episode"`
	URL     string       `json:"url"`
	Links   []StreamLink `json:"links"`
	Error   string       `json:"error,omitempty"`
}

type ServiceOptions struct {
	AllowedProviders []string
	PageDelay        time.Duration
	CookiesPath      string
	Logger           *slog.Logger
}

// Service runs scraping flows over a Fetcher. Page loads are paced so the
// site sees at most one request per PageDelay.
type Service struct {
	site        SiteConfig
	fetcher     Fetcher
	allowed     []string
	pacer       *rate.Limiter
	cookiesPath string
	logger      *slog.Logger

	mu       sync.Mutex
	loggedIn bool
	checked  time.Time
}

func NewService(site SiteConfig, fetcher Fetcher, opts ServiceOptions) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if opts.PageDelay > 0 {
		limit = rate.Every(opts.PageDelay)
	}
	return &Service{
		site:        site,
		fetcher:     fetcher,
		allowed:     opts.AllowedProviders,
		pacer:       rate.NewLimiter(limit, 1),
		cookiesPath: opts.CookiesPath,
		logger:      logger,
	}
}

// Search finds the title on the site and lists its episodes. Results are
// narrowed to the requested type; the first result with an equal year wins
// over the first one.
func (s *Service) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return SearchResponse{}, fmt.Errorf("title is required")
	}
	kind := strings.ToLower(strings.TrimSpace(req.Type))
	if kind == "" {
		kind = TypeSerial
	}

	if err := s.pacer.Wait(ctx); err != nil {
		return SearchResponse{}, err
	}
	doc, err := s.fetcher.Search(ctx, title)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search %q: %w", title, err)
	}
	results, err := ParseSearchResults(s.site, doc)
	if err != nil {
		return SearchResponse{}, err
	}

	filtered := make([]SearchResult, 0, len(results))
	for _, result := range results {
		if result.Type == kind {
			filtered = append(filtered, result)
		}
	}
	if len(filtered) == 0 {
		return SearchResponse{}, ErrNoResults
	}

	chosen := pickResult(filtered, string(req.Year))
	s.logger.Info("scraper search matched", "title", title, "type", kind, "match", chosen.Title, "url", chosen.URL)
	if searchutil.TitleScore(chosen.Title, title) == 0 {
		s.logger.Warn("scraper match shares no title words with query", "title", title, "match", chosen.Title)
	}

	if err := s.pacer.Wait(ctx); err != nil {
		return SearchResponse{}, err
	}
	page, err := s.fetcher.Fetch(ctx, chosen.URL)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("load title page: %w", err)
	}
	episodes, err := ParseEpisodes(s.site, page)
	if err != nil {
		return SearchResponse{}, err
	}

	return SearchResponse{
		Title:    chosen.Title,
		Type:     chosen.Type,
		Year:     chosen.Year,
		URL:      chosen.URL,
		Episodes: episodes,
		Count:    len(episodes),
	}, nil
}

// pickResult returns the first result whose year equals year exactly, else
// the first result.
func pickResult(results []SearchResult, year string) SearchResult {
	year = strings.TrimSpace(year)
	if year != "" {
		for _, result := range results {
			if strings.TrimSpace(result.Year) == year {
				return result
			}
		}
	}
	return results[0]
}

// Links collects stream links for every episode with a URL. A failing episode
// is reported with its error and an empty link list.
func (s *Service) Links(ctx context.Context, episodes []EpisodeRef) ([]EpisodeLinks, error) {
	loggedIn, err := s.CheckLogin(ctx)
	if err != nil {
		return nil, err
	}
	if !loggedIn {
		return nil, ErrNotLoggedIn
	}

	results := make([]EpisodeLinks, 0, len(episodes))
	for _, episode := range episodes {
		if strings.TrimSpace(episode.URL) == "" {
			continue
		}
		if err := s.pacer.Wait(ctx); err != nil {
			return results, err
		}

		item := EpisodeLinks{Episode: episode.Episode, URL: episode.URL, Links: []StreamLink{}}
		doc, err := s.fetcher.Fetch(ctx, episode.URL)
		if err != nil {
			s.logger.Warn("scraper episode fetch failed", "episode", episode.Episode, "error", err)
			item.Error = err.Error()
			results = append(results, item)
			continue
		}
		links, err := ParseStreamLinks(s.site, doc, s.allowed)
		if err != nil {
			item.Error = err.Error()
		} else {
			item.Links = links
		}
		results = append(results, item)
	}
	return results, nil
}

// CheckLogin loads the home page and looks for signs of a signed-in user.
func (s *Service) CheckLogin(ctx context.Context) (bool, error) {
	if err := s.pacer.Wait(ctx); err != nil {
		return false, err
	}
	doc, err := s.fetcher.Fetch(ctx, s.site.BaseURL)
	if err != nil {
		return false, fmt.Errorf("load home page: %w", err)
	}
	loggedIn, err := IsLoggedIn(s.site, doc)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.loggedIn = loggedIn
	s.checked = time.Now().UTC()
	s.mu.Unlock()
	return loggedIn, nil
}

// UpdateSession installs new cookies, persists them and re-checks the login.
func (s *Service) UpdateSession(ctx context.Context, cookies []Cookie) (bool, error) {
	cookies = NormalizeCookies(cookies, s.site.CookieDomain)
	if len(cookies) == 0 {
		return false, fmt.Errorf("no cookies provided")
	}
	if err := s.fetcher.SetCookies(ctx, cookies); err != nil {
		return false, err
	}
	if err := SaveCookies(s.cookiesPath, cookies); err != nil {
		s.logger.Warn("persist cookies failed", "error", err)
	}
	return s.CheckLogin(ctx)
}

// LoadSavedCookies restores cookies persisted by a previous UpdateSession.
func (s *Service) LoadSavedCookies(ctx context.Context) (int, error) {
	cookies, err := LoadCookies(s.cookiesPath)
	if err != nil {
		return 0, err
	}
	if len(cookies) == 0 {
		return 0, nil
	}
	if err := s.fetcher.SetCookies(ctx, NormalizeCookies(cookies, s.site.CookieDomain)); err != nil {
		return 0, err
	}
	return len(cookies), nil
}

// KeepAlive touches the home page so the session does not expire.
func (s *Service) KeepAlive(ctx context.Context) (bool, error) {
	return s.CheckLogin(ctx)
}

func (s *Service) Status() (loggedIn bool, checkedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn, s.checked
}

func (s *Service) Close() error {
	return s.fetcher.Close()
}

// RunKeepAlive calls KeepAlive every interval until ctx is done.
func (s *Service) RunKeepAlive(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			loggedIn, err := s.KeepAlive(ctx)
			if err != nil {
				s.logger.Warn("scraper keep-alive failed", "error", err)
				continue
			}
			s.logger.Debug("scraper keep-alive", "logged_in", loggedIn)
		}
	}
}
