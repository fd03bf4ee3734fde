package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel/media-catalog/internal/apperr"
	"github.com/gabriel/media-catalog/internal/models"
)

const (
	TrendingDay  = "day"
	TrendingWeek = "week"

	maxResponseBytes = 4 << 20
)

type Options struct {
	BaseURL    string
	APIKey     string
	Language   string
	RateLimit  int
	RateWindow time.Duration
	Cache      Cache
	CacheTTL   time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	baseURL    string
	apiKey     string
	language   string
	httpClient *http.Client
	limiter    *SlidingWindow
	cache      Cache
	cacheTTL   time.Duration
	logger     *slog.Logger
}

func NewClient(opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.themoviedb.org/3"
	}
	if opts.Language == "" {
		opts.Language = "en-US"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		language:   opts.Language,
		httpClient: opts.HTTPClient,
		limiter:    NewSlidingWindow(opts.RateLimit, opts.RateWindow),
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		logger:     opts.Logger,
	}
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// RateUsage reports upstream requests inside the current limiter window and
// the window's limit.
func (c *Client) RateUsage() (inWindow, limit int) {
	return c.limiter.InFlight(), c.limiter.limit
}

func (c *Client) Trending(ctx context.Context, mediaType, window string, page int) (Page, error) {
	if mediaType == "" {
		mediaType = "all"
	}
	if mediaType != "all" && !validMediaType(mediaType) {
		return Page{}, apperr.BadRequest("media type must be all, movie or tv")
	}
	if window != TrendingDay {
		window = TrendingWeek
	}
	return c.listPage(ctx, "/trending/"+mediaType+"/"+window, pageParams(page), mediaType)
}

func (c *Client) Popular(ctx context.Context, mediaType string, page int) (Page, error) {
	if !validMediaType(mediaType) {
		return Page{}, apperr.BadRequest("media type must be movie or tv")
	}
	return c.listPage(ctx, "/"+mediaType+"/popular", pageParams(page), mediaType)
}

func (c *Client) TopRated(ctx context.Context, mediaType string, page int) (Page, error) {
	if !validMediaType(mediaType) {
		return Page{}, apperr.BadRequest("media type must be movie or tv")
	}
	return c.listPage(ctx, "/"+mediaType+"/top_rated", pageParams(page), mediaType)
}

// Search runs a multi search and drops person results.
func (c *Client) Search(ctx context.Context, query string, page int) (Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Page{}, apperr.BadRequest("query is required")
	}

	params := pageParams(page)
	params.Set("query", query)
	params.Set("include_adult", "false")

	result, err := c.listPage(ctx, "/search/multi", params, "")
	if err != nil {
		return Page{}, err
	}

	filtered := result.Results[:0]
	for _, item := range result.Results {
		if validMediaType(item.MediaType) {
			filtered = append(filtered, item)
		}
	}
	result.Results = filtered
	return result, nil
}

func (c *Client) Discover(ctx context.Context, mediaType string, genreID int64, sortBy string, page int) (Page, error) {
	if !validMediaType(mediaType) {
		return Page{}, apperr.BadRequest("media type must be movie or tv")
	}

	params := pageParams(page)
	if genreID > 0 {
		params.Set("with_genres", strconv.FormatInt(genreID, 10))
	}
	if sortBy == "" {
		sortBy = "popularity.desc"
	}
	params.Set("sort_by", sortBy)
	return c.listPage(ctx, "/discover/"+mediaType, params, mediaType)
}

func (c *Client) Genres(ctx context.Context, mediaType string) ([]Genre, error) {
	if !validMediaType(mediaType) {
		return nil, apperr.BadRequest("media type must be movie or tv")
	}
	var payload genreList
	if err := c.get(ctx, "/genre/"+mediaType+"/list", url.Values{}, &payload); err != nil {
		return nil, err
	}
	return payload.Genres, nil
}

func (c *Client) Movie(ctx context.Context, id int64) (*Movie, error) {
	if id <= 0 {
		return nil, apperr.BadRequest("invalid movie id")
	}
	var payload Movie
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10), url.Values{}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) TV(ctx context.Context, id int64) (*TV, error) {
	if id <= 0 {
		return nil, apperr.BadRequest("invalid tv id")
	}
	var payload TV
	if err := c.get(ctx, "/tv/"+strconv.FormatInt(id, 10), url.Values{}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) Season(ctx context.Context, id int64, season int) (*Season, error) {
	if id <= 0 || season < 0 {
		return nil, apperr.BadRequest("invalid season reference")
	}
	var payload Season
	path := "/tv/" + strconv.FormatInt(id, 10) + "/season/" + strconv.Itoa(season)
	if err := c.get(ctx, path, url.Values{}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) listPage(ctx context.Context, path string, params url.Values, mediaType string) (Page, error) {
	var payload Page
	if err := c.get(ctx, path, params, &payload); err != nil {
		return Page{}, err
	}
	if payload.Results == nil {
		payload.Results = []Result{}
	}
	if validMediaType(mediaType) {
		for index := range payload.Results {
			if payload.Results[index].MediaType == "" {
				payload.Results[index].MediaType = mediaType
			}
		}
	}
	return payload, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if params.Get("language") == "" {
		params.Set("language", c.language)
	}
	cacheKey := path + "?" + params.Encode()

	if c.cache != nil {
		cached, ok, err := c.cache.Get(cacheKey)
		if err != nil {
			c.logger.Warn("tmdb cache read failed", "key", cacheKey, "error", err)
		}
		if ok {
			if err := json.Unmarshal(cached, out); err == nil {
				return nil
			}
			c.logger.Warn("tmdb cache entry undecodable", "key", cacheKey)
		}
	}

	if !c.Configured() {
		return apperr.New(apperr.KindNetwork, "metadata provider api key is not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperr.Wrap(err, apperr.KindRateLimited, "metadata provider request budget exhausted")
		}
		return apperr.FromTransport(err, "wait for metadata provider")
	}

	withKey := url.Values{}
	for key, values := range params {
		withKey[key] = values
	}
	withKey.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+withKey.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create tmdb request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.FromTransport(err, "metadata provider unreachable")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return apperr.FromTransport(err, "read metadata provider response")
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var payload errorBody
		_ = json.Unmarshal(body, &payload)
		if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
			// Credential failures belong to this server, not to the API caller.
			c.logger.Warn("tmdb rejected credentials", "path", path, "status", res.StatusCode, "message", payload.StatusMessage)
			return apperr.New(apperr.KindNetwork, "metadata provider rejected the server credentials")
		}
		c.logger.Debug("tmdb request failed", "path", path, "status", res.StatusCode, "message", payload.StatusMessage)
		return apperr.FromStatus(res.StatusCode, payload.StatusMessage)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode tmdb response: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.Set(cacheKey, body, c.cacheTTL); err != nil {
			c.logger.Warn("tmdb cache write failed", "key", cacheKey, "error", err)
		}
	}
	return nil
}

func pageParams(page int) url.Values {
	if page <= 0 {
		page = 1
	}
	if page > 500 {
		page = 500
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	return params
}

func validMediaType(mediaType string) bool {
	return mediaType == models.MediaTypeMovie || mediaType == models.MediaTypeTV
}
