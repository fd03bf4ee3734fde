package scraperclient

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/gabriel/media-catalog/internal/apperr"
	"github.com/gabriel/media-catalog/internal/models"
	"github.com/gabriel/media-catalog/internal/repository"
)

const movieEpisodeLabel = "FILM"

var episodeCodePattern = regexp.MustCompile(`(?i)^s(\d+)e(\d+)$`)

type linkImporter interface {
	AddLinks(target repository.EpisodeTarget, links []repository.LinkInput, addedBy string) (*repository.AddLinksResult, error)
}

type scraper interface {
	Search(ctx context.Context, title, mediaType, year string) (SearchResult, error)
	Links(ctx context.Context, episodes []Episode) ([]EpisodeLinks, error)
}

type DiscoverRequest struct {
	MediaType string   `json:"mediaType" validate:"required,mediatype"`
	TMDBID    int64    `json:"tmdbId" validate:"required,gt=0"`
	Title     string   `json:"title" validate:"required,max=300"`
	Year      string   `json:"year" validate:"omitempty,max=10"`
	Season    *int     `json:"season" validate:"omitempty,gte=0"`
	Episodes  []string `json:"episodes" validate:"omitempty,dive,required"`
}

type ImportedEpisode struct {
	Episode    string `json:"episode"`
	DocumentID string `json:"documentId"`
	Added      int    `json:"added"`
	Updated    int    `json:"updated"`
}

type SkippedEpisode struct {
	Episode string `json:"episode"`
	Reason  string `json:"reason"`
}

type DiscoverReport struct {
	MatchedTitle string            `json:"matchedTitle"`
	MatchedURL   string            `json:"matchedUrl"`
	Found        int               `json:"found"`
	Imported     []ImportedEpisode `json:"imported"`
	Skipped      []SkippedEpisode  `json:"skipped"`
}

// Discoverer looks a title up on the companion and imports the links it finds.
type Discoverer struct {
	scraper scraper
	links   linkImporter
	logger  *slog.Logger
}

func NewDiscoverer(scraper scraper, links linkImporter, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{scraper: scraper, links: links, logger: logger}
}

// ParseEpisodeCode reads labels such as S01E02. ok is false for anything else.
func ParseEpisodeCode(label string) (season, episode int, ok bool) {
	match := episodeCodePattern.FindStringSubmatch(strings.TrimSpace(label))
	if match == nil {
		return 0, 0, false
	}
	season, _ = strconv.Atoi(match[1])
	episode, _ = strconv.Atoi(match[2])
	return season, episode, true
}

func (d *Discoverer) Discover(ctx context.Context, req DiscoverRequest, adminID string) (DiscoverReport, error) {
	siteType := "serial"
	if req.MediaType == models.MediaTypeMovie {
		siteType = "film"
	}
	for _, code := range req.Episodes {
		if _, _, ok := ParseEpisodeCode(code); !ok {
			return DiscoverReport{}, apperr.BadRequest(fmt.Sprintf("invalid episode code %q, expected SxxEyy", code))
		}
	}

	found, err := d.scraper.Search(ctx, req.Title, siteType, req.Year)
	if err != nil {
		return DiscoverReport{}, err
	}
	report := DiscoverReport{
		MatchedTitle: found.Title,
		MatchedURL:   found.URL,
		Found:        len(found.Episodes),
		Imported:     []ImportedEpisode{},
		Skipped:      []SkippedEpisode{},
	}

	selected := selectEpisodes(found.Episodes, req)
	if len(selected) == 0 {
		return report, apperr.NotFound("no matching episodes found on the scraped site")
	}

	results, err := d.scraper.Links(ctx, selected)
	if err != nil {
		return report, err
	}

	for _, result := range results {
		target, ok := episodeTarget(req, result.Episode)
		if !ok {
			report.Skipped = append(report.Skipped, SkippedEpisode{Episode: result.Episode, Reason: "unrecognized episode label"})
			continue
		}
		if result.Error != "" {
			report.Skipped = append(report.Skipped, SkippedEpisode{Episode: result.Episode, Reason: result.Error})
			continue
		}
		inputs := linkInputs(result.Links)
		if len(inputs) == 0 {
			report.Skipped = append(report.Skipped, SkippedEpisode{Episode: result.Episode, Reason: "no links found"})
			continue
		}

		added, err := d.links.AddLinks(target, inputs, adminID)
		if err != nil {
			return report, fmt.Errorf("import links for %s: %w", result.Episode, err)
		}
		report.Imported = append(report.Imported, ImportedEpisode{
			Episode:    result.Episode,
			DocumentID: target.DocumentID(),
			Added:      added.Added,
			Updated:    added.Updated,
		})
	}

	d.logger.Info("links discovered",
		"tmdbId", req.TMDBID,
		"mediaType", req.MediaType,
		"matched", found.Title,
		"imported", len(report.Imported),
		"skipped", len(report.Skipped),
	)
	return report, nil
}

func selectEpisodes(episodes []Episode, req DiscoverRequest) []Episode {
	if req.MediaType == models.MediaTypeMovie {
		for _, episode := range episodes {
			if strings.EqualFold(episode.Episode, movieEpisodeLabel) {
				return []Episode{episode}
			}
		}
		if len(episodes) > 0 {
			return episodes[:1]
		}
		return nil
	}

	wanted := make(map[string]bool, len(req.Episodes))
	for _, code := range req.Episodes {
		if season, episode, ok := ParseEpisodeCode(code); ok {
			wanted[episodeKey(season, episode)] = true
		}
	}

	selected := make([]Episode, 0, len(episodes))
	for _, episode := range episodes {
		season, number, ok := ParseEpisodeCode(episode.Episode)
		if !ok {
			continue
		}
		if req.Season != nil && season != *req.Season {
			continue
		}
		if len(wanted) > 0 && !wanted[episodeKey(season, number)] {
			continue
		}
		selected = append(selected, episode)
	}
	return selected
}

func episodeTarget(req DiscoverRequest, label string) (repository.EpisodeTarget, bool) {
	target := repository.EpisodeTarget{MediaType: req.MediaType, TMDBID: req.TMDBID}
	if req.MediaType == models.MediaTypeMovie {
		return target, true
	}
	season, episode, ok := ParseEpisodeCode(label)
	if !ok {
		return target, false
	}
	target.Season = &season
	target.Episode = &episode
	return target, true
}

func linkInputs(links []Link) []repository.LinkInput {
	inputs := make([]repository.LinkInput, 0, len(links))
	for _, link := range links {
		if strings.TrimSpace(link.URL) == "" {
			continue
		}
		provider, quality, version := link.Provider, link.Quality, link.Version
		inputs = append(inputs, repository.LinkInput{
			URL:      link.URL,
			Provider: &provider,
			Quality:  &quality,
			Language: &version,
		})
	}
	return inputs
}

func episodeKey(season, episode int) string {
	return fmt.Sprintf("%d:%d", season, episode)
}
