package scraperclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel/media-catalog/internal/apperr"
)

const maxResponseBytes = 8 << 20

type Episode struct {
	Episode string `json:"episode"`
	Title   string `json:"title,omitempty"`
	URL     string `json:"url"`
}

type Link struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
	Quality  string `json:"quality"`
	Version  string `json:"version"`
}

type SearchResult struct {
	Title    string    `json:"title"`
	Type     string    `json:"type"`
	Year     string    `json:"year"`
	URL      string    `json:"url"`
	Episodes []Episode `json:"episodes"`
	Count    int       `json:"count"`
}

type EpisodeLinks struct {
	Episode string `json:"episode"`
	URL     string `json:"url"`
	Links   []Link `json:"links"`
	Error   string `json:"error,omitempty"`
}

type Health struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	LoggedIn bool   `json:"logged_in"`
}

// Client calls the scraping companion over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		// Link scraping walks many pages sequentially.
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"), httpClient: httpClient}
}

func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

func (c *Client) Search(ctx context.Context, title, mediaType, year string) (SearchResult, error) {
	body := map[string]string{"title": title, "type": mediaType}
	if strings.TrimSpace(year) != "" {
		body["year"] = year
	}
	var result SearchResult
	if err := c.post(ctx, "/api/scrape/search", body, &result); err != nil {
		return SearchResult{}, err
	}
	return result, nil
}

func (c *Client) Links(ctx context.Context, episodes []Episode) ([]EpisodeLinks, error) {
	var response struct {
		Results []EpisodeLinks `json:"results"`
	}
	if err := c.post(ctx, "/api/scrape/links", map[string]any{"episodes": episodes}, &response); err != nil {
		return nil, err
	}
	return response.Results, nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var health Health
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &health); err != nil {
		return Health{}, err
	}
	return health, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal scraper request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, encoded, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	if !c.Configured() {
		return apperr.New(apperr.KindNetwork, "scraper service is not configured")
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create scraper request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.FromTransport(err, "scraper service unreachable")
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return apperr.FromTransport(err, "read scraper response")
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var failure struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &failure)
		return apperr.FromStatus(res.StatusCode, failure.Error)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Wrap(err, apperr.KindUnknown, "decode scraper response")
	}
	return nil
}
