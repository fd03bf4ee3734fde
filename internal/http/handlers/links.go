package handlers

import (
	"context"
	"strings"

	"github.com/gabriel/media-catalog/internal/apperr"
	"github.com/gabriel/media-catalog/internal/models"
	"github.com/gabriel/media-catalog/internal/repository"
	"github.com/gabriel/media-catalog/internal/scraperclient"
	"github.com/gofiber/fiber/v2"
)

type linkBody struct {
	URL      string  `json:"url" validate:"required,url,max=2000"`
	Provider *string `json:"provider" validate:"omitempty,max=100"`
	Quality  *string `json:"quality" validate:"omitempty,max=50"`
	Language *string `json:"language" validate:"omitempty,max=50"`
}

type addLinksRequest struct {
	MediaType string     `json:"mediaType" validate:"required,mediatype"`
	TMDBID    int64      `json:"tmdbId" validate:"required,gt=0"`
	Season    *int       `json:"season" validate:"omitempty,gte=0"`
	Episode   *int       `json:"episode" validate:"omitempty,gte=1"`
	Title     *string    `json:"title" validate:"omitempty,max=300"`
	Links     []linkBody `json:"links" validate:"required,min=1,max=50,dive"`
}

type discoverer interface {
	Discover(ctx context.Context, req scraperclient.DiscoverRequest, adminID string) (scraperclient.DiscoverReport, error)
}

type scraperHealth interface {
	Health(ctx context.Context) (scraperclient.Health, error)
}

type LinksHandler struct {
	repo       *repository.LinkRepository
	discoverer discoverer
	scraper    scraperHealth
}

func NewLinksHandler(repo *repository.LinkRepository, discoverer discoverer, scraper scraperHealth) *LinksHandler {
	return &LinksHandler{repo: repo, discoverer: discoverer, scraper: scraper}
}

func (h *LinksHandler) Movie(c *fiber.Ctx) error {
	tmdbID, err := paramInt64(c, "id")
	if err != nil {
		return err
	}
	return h.respondEpisode(c, repository.EpisodeTarget{MediaType: models.MediaTypeMovie, TMDBID: tmdbID})
}

func (h *LinksHandler) Episode(c *fiber.Ctx) error {
	tmdbID, err := paramInt64(c, "id")
	if err != nil {
		return err
	}
	season, err := paramInt(c, "season")
	if err != nil {
		return err
	}
	episode, err := paramInt(c, "episode")
	if err != nil {
		return err
	}
	return h.respondEpisode(c, repository.EpisodeTarget{MediaType: models.MediaTypeTV, TMDBID: tmdbID, Season: &season, Episode: &episode})
}

// respondEpisode answers with an empty link list when no document exists.
func (h *LinksHandler) respondEpisode(c *fiber.Ctx, target repository.EpisodeTarget) error {
	episode, err := h.repo.GetEpisode(target)
	if err != nil {
		return err
	}
	if episode == nil {
		return c.JSON(fiber.Map{"id": target.DocumentID(), "links": []models.StreamingLink{}})
	}
	return c.JSON(episode)
}

// Series lists the episode documents of a series that carry links, optionally
// limited to one season with ?season=.
func (h *LinksHandler) Series(c *fiber.Ctx) error {
	tmdbID, err := paramInt64(c, "id")
	if err != nil {
		return err
	}
	var season *int
	if raw := strings.TrimSpace(c.Query("season")); raw != "" {
		value := c.QueryInt("season", -1)
		if value < 0 {
			return apperr.BadRequest("invalid season")
		}
		season = &value
	}

	episodes, err := h.repo.ListEpisodesWithLinks(tmdbID, season)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": episodes})
}

func (h *LinksHandler) Add(c *fiber.Ctx) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req addLinksRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.MediaType == models.MediaTypeTV && (req.Season == nil || req.Episode == nil) {
		return apperr.BadRequest("season and episode are required for tv links")
	}

	inputs := make([]repository.LinkInput, 0, len(req.Links))
	for _, link := range req.Links {
		inputs = append(inputs, repository.LinkInput{
			URL:      link.URL,
			Provider: link.Provider,
			Quality:  link.Quality,
			Language: link.Language,
		})
	}

	result, err := h.repo.AddLinks(repository.EpisodeTarget{
		MediaType: req.MediaType,
		TMDBID:    req.TMDBID,
		Season:    req.Season,
		Episode:   req.Episode,
		Title:     req.Title,
	}, inputs, adminID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *LinksHandler) Delete(c *fiber.Ctx) error {
	existed, documentRemoved, err := h.repo.DeleteLink(c.Params("id"))
	if err != nil {
		return err
	}
	if !existed {
		return apperr.NotFound("link not found")
	}
	return c.JSON(fiber.Map{"deleted": true, "episodeRemoved": documentRemoved})
}

func (h *LinksHandler) Discover(c *fiber.Ctx) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req scraperclient.DiscoverRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	report, err := h.discoverer.Discover(c.UserContext(), req, adminID)
	if err != nil {
		return err
	}
	return c.JSON(report)
}

func (h *LinksHandler) ScraperHealth(c *fiber.Ctx) error {
	health, err := h.scraper.Health(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(health)
}
