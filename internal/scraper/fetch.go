package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

const maxPageBytes = 8 << 20

// Fetcher loads pages of the scraped site with a persistent session.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Document, error)
	Search(ctx context.Context, phrase string) (*Document, error)
	SetCookies(ctx context.Context, cookies []Cookie) error
	Close() error
}

// HTTPFetcher talks to the site with plain requests and a cookie jar.
type HTTPFetcher struct {
	site   SiteConfig
	client *http.Client
	base   *url.URL
}

func NewHTTPFetcher(site SiteConfig, client *http.Client) (*HTTPFetcher, error) {
	base, err := url.Parse(site.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	client.Jar = jar

	return &HTTPFetcher{site: site, client: client, base: base}, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.site.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "pl-PL,pl;q=0.9,en;q=0.8")

	res, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("%s returned status %d", rawURL, res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return &Document{URL: res.Request.URL.String(), Body: body}, nil
}

func (f *HTTPFetcher) Search(ctx context.Context, phrase string) (*Document, error) {
	searchURL := *f.base
	searchURL.Path = f.site.Search.Path
	query := url.Values{}
	query.Set(f.site.Search.Param, phrase)
	searchURL.RawQuery = query.Encode()
	return f.Fetch(ctx, searchURL.String())
}

// SetCookies stores the cookies as host cookies of the base URL so they are
// sent regardless of the domain recorded by the browser they came from.
func (f *HTTPFetcher) SetCookies(_ context.Context, cookies []Cookie) error {
	converted := make([]*http.Cookie, 0, len(cookies))
	for _, cookie := range cookies {
		converted = append(converted, cookie.httpCookie())
	}
	f.client.Jar.SetCookies(f.base, converted)
	return nil
}

func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
