package scraper

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	TypeSerial  = "serial"
	TypeFilm    = "film"
	TypeUnknown = "unknown"

	MovieEpisode = "FILM"
)

var episodeLabelPattern = regexp.MustCompile(`^\[([^\]]+)\]\s*(.*)$`)

type SearchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
	Year  string `json:"year"`
}

type EpisodeRef struct {
	Episode string `json:"episode"`
	Title   string `json:"title,omitempty"`
	URL     string `json:"url"`
}

type StreamLink struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
	Quality  string `json:"quality"`
	Version  string `json:"version"`
}

// ClassifyURL tells series pages from movie pages by their path.
func ClassifyURL(rawURL string) string {
	switch {
	case strings.Contains(rawURL, "/s/") || strings.Contains(rawURL, "/serial/"):
		return TypeSerial
	case strings.Contains(rawURL, "/m/") || strings.Contains(rawURL, "/film/"):
		return TypeFilm
	default:
		return TypeUnknown
	}
}

func ParseSearchResults(site SiteConfig, doc *Document) ([]SearchResult, error) {
	root, err := doc.query()
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0)
	root.Find(site.Search.Result).Each(func(_ int, poster *goquery.Selection) {
		href, ok := poster.Find(site.Search.Link).First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		parent := poster.Parent()
		title := normSpace(parent.Find(site.Search.Title).First().Text())
		if title == "" {
			return
		}
		absolute := resolveURL(doc.URL, href)
		results = append(results, SearchResult{
			Title: title,
			URL:   absolute,
			Type:  ClassifyURL(absolute),
			Year:  normSpace(parent.Find(site.Search.Year).First().Text()),
		})
	})
	return results, nil
}

// ParseEpisodes lists the episodes of a series page. A movie page yields one
// entry labelled FILM pointing at the page itself.
func ParseEpisodes(site SiteConfig, doc *Document) ([]EpisodeRef, error) {
	root, err := doc.query()
	if err != nil {
		return nil, err
	}

	if ClassifyURL(doc.URL) == TypeFilm {
		title := normSpace(root.Find(site.Episodes.MovieTitle).First().Text())
		if title == "" {
			title = "Film"
		}
		return []EpisodeRef{{Episode: MovieEpisode, Title: title, URL: doc.URL}}, nil
	}

	episodes := make([]EpisodeRef, 0)
	root.Find(site.Episodes.Item).Each(func(_ int, item *goquery.Selection) {
		// Season headers carry a span.
		if item.Find("span").Length() > 0 {
			return
		}
		link := item.Find(site.Episodes.Link).First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}

		text := normSpace(link.Text())
		ref := EpisodeRef{Episode: text, URL: resolveURL(doc.URL, href)}
		if match := episodeLabelPattern.FindStringSubmatch(text); match != nil {
			ref.Episode = strings.ToUpper(match[1])
			ref.Title = strings.TrimSpace(match[2])
		}
		episodes = append(episodes, ref)
	})
	return episodes, nil
}

// ParseStreamLinks keeps rows whose provider contains one of allowed.
func ParseStreamLinks(site SiteConfig, doc *Document, allowed []string) ([]StreamLink, error) {
	root, err := doc.query()
	if err != nil {
		return nil, err
	}

	links := make([]StreamLink, 0)
	root.Find(site.Links.Rows).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < site.Links.MinCells {
			return
		}
		link := row.Find(site.Links.Link).First()
		if link.Length() == 0 {
			return
		}

		provider := "unknown"
		if fields := strings.Fields(strings.ToLower(link.Text())); len(fields) > 0 {
			provider = fields[0]
		}
		if !providerAllowed(provider, allowed) {
			return
		}

		encoded, _ := link.Attr("data-iframe")
		streamURL, err := decodeIframe(encoded)
		if err != nil || streamURL == "" {
			return
		}

		links = append(links, StreamLink{
			Provider: provider,
			URL:      streamURL,
			Version:  normSpace(cells.Eq(1).Text()),
			Quality:  normSpace(cells.Eq(2).Text()),
		})
	})
	return links, nil
}

func IsLoggedIn(site SiteConfig, doc *Document) (bool, error) {
	root, err := doc.query()
	if err != nil {
		return false, err
	}

	found := false
	root.Find("a").EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		href, _ := anchor.Attr("href")
		if strings.Contains(href, site.Login.LogoutHref) || strings.Contains(anchor.Text(), site.Login.LogoutText) {
			found = true
			return false
		}
		return true
	})
	if found {
		return true, nil
	}
	return root.Find(site.Login.UserMarker).Length() > 0, nil
}

func decodeIframe(encoded string) (string, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return "", fmt.Errorf("empty data-iframe")
	}

	var raw []byte
	var err error
	for _, encoding := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		raw, err = encoding.DecodeString(encoded)
		if err == nil {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("decode data-iframe: %w", err)
	}

	var payload struct {
		Src string `json:"src"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("parse data-iframe: %w", err)
	}
	return strings.TrimSpace(payload.Src), nil
}

func providerAllowed(provider string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate != "" && strings.Contains(provider, candidate) {
			return true
		}
	}
	return false
}

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	parsedBase, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return parsedBase.ResolveReference(ref).String()
}

func normSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// Document is a fetched page and the URL it ended up at.
type Document struct {
	URL  string
	Body []byte

	parsed *goquery.Document
}

func (d *Document) query() (*goquery.Document, error) {
	if d == nil {
		return nil, fmt.Errorf("document is nil")
	}
	if d.parsed != nil {
		return d.parsed, nil
	}
	parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(d.Body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	d.parsed = parsed
	return parsed, nil
}
