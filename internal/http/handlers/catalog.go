package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/gabriel/media-catalog/internal/apperr"
	"github.com/gabriel/media-catalog/internal/tmdb"
	"github.com/gofiber/fiber/v2"
)

type catalogSource interface {
	Trending(ctx context.Context, mediaType, window string, page int) (tmdb.Page, error)
	Popular(ctx context.Context, mediaType string, page int) (tmdb.Page, error)
	TopRated(ctx context.Context, mediaType string, page int) (tmdb.Page, error)
	Search(ctx context.Context, query string, page int) (tmdb.Page, error)
	Discover(ctx context.Context, mediaType string, genreID int64, sortBy string, page int) (tmdb.Page, error)
	Genres(ctx context.Context, mediaType string) ([]tmdb.Genre, error)
	Movie(ctx context.Context, id int64) (*tmdb.Movie, error)
	TV(ctx context.Context, id int64) (*tmdb.TV, error)
	Season(ctx context.Context, id int64, season int) (*tmdb.Season, error)
}

type listResponse struct {
	Page         int           `json:"page"`
	Results      []tmdb.Result `json:"results"`
	TotalPages   int           `json:"totalPages"`
	TotalResults int           `json:"totalResults"`
	HasMore      bool          `json:"hasMore"`
}

type CatalogHandler struct {
	source catalogSource
}

func NewCatalogHandler(source catalogSource) *CatalogHandler {
	return &CatalogHandler{source: source}
}

// maxPagesPerRequest caps the `pages` query parameter.
const maxPagesPerRequest = 3

type pageFetcher func(page int) (tmdb.Page, error)

// respondPages loads `pages` consecutive upstream pages starting at `page`,
// merges them without duplicates and drops results listed in the `seen`
// query parameter so clients can append to an infinite list.
func respondPages(c *fiber.Ctx, fetch pageFetcher) error {
	start := c.QueryInt("page", 1)
	count := c.QueryInt("pages", 1)
	if count < 1 || count > maxPagesPerRequest {
		return apperr.BadRequest(fmt.Sprintf("pages must be between 1 and %d", maxPagesPerRequest))
	}

	var merged tmdb.Merged
	totalResults := 0
	for offset := 0; offset < count; offset++ {
		next, err := fetch(start + offset)
		if err != nil {
			return err
		}
		merged = tmdb.MergePages(merged.Results, next)
		totalResults = next.TotalResults
		if !merged.HasMore {
			break
		}
	}

	page := tmdb.Page{
		Page:         merged.Page,
		Results:      merged.Results,
		TotalPages:   merged.TotalPages,
		TotalResults: totalResults,
	}
	if seen := strings.TrimSpace(c.Query("seen")); seen != "" {
		page = tmdb.FilterSeen(tmdb.ParseSeen(seen), page)
	}
	return c.JSON(listResponse{
		Page:         page.Page,
		Results:      page.Results,
		TotalPages:   page.TotalPages,
		TotalResults: page.TotalResults,
		HasMore:      merged.HasMore,
	})
}

func (h *CatalogHandler) Trending(c *fiber.Ctx) error {
	mediaType, window := c.Query("mediaType", "all"), c.Query("window", tmdb.TrendingWeek)
	return respondPages(c, func(page int) (tmdb.Page, error) {
		return h.source.Trending(c.UserContext(), mediaType, window, page)
	})
}

func (h *CatalogHandler) Popular(c *fiber.Ctx) error {
	mediaType, err := paramMediaType(c)
	if err != nil {
		return err
	}
	return respondPages(c, func(page int) (tmdb.Page, error) {
		return h.source.Popular(c.UserContext(), mediaType, page)
	})
}

func (h *CatalogHandler) TopRated(c *fiber.Ctx) error {
	mediaType, err := paramMediaType(c)
	if err != nil {
		return err
	}
	return respondPages(c, func(page int) (tmdb.Page, error) {
		return h.source.TopRated(c.UserContext(), mediaType, page)
	})
}

func (h *CatalogHandler) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	return respondPages(c, func(page int) (tmdb.Page, error) {
		return h.source.Search(c.UserContext(), query, page)
	})
}

func (h *CatalogHandler) Discover(c *fiber.Ctx) error {
	mediaType, err := paramMediaType(c)
	if err != nil {
		return err
	}
	genreID, sortBy := int64(c.QueryInt("genre", 0)), c.Query("sort")
	return respondPages(c, func(page int) (tmdb.Page, error) {
		return h.source.Discover(c.UserContext(), mediaType, genreID, sortBy, page)
	})
}

func (h *CatalogHandler) Genres(c *fiber.Ctx) error {
	mediaType, err := paramMediaType(c)
	if err != nil {
		return err
	}
	genres, err := h.source.Genres(c.UserContext(), mediaType)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"genres": genres})
}

func (h *CatalogHandler) Movie(c *fiber.Ctx) error {
	id, err := paramInt64(c, "id")
	if err != nil {
		return err
	}
	movie, err := h.source.Movie(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(movie)
}

func (h *CatalogHandler) TV(c *fiber.Ctx) error {
	id, err := paramInt64(c, "id")
	if err != nil {
		return err
	}
	show, err := h.source.TV(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(show)
}

func (h *CatalogHandler) Season(c *fiber.Ctx) error {
	id, err := paramInt64(c, "id")
	if err != nil {
		return err
	}
	number, err := paramInt(c, "season")
	if err != nil {
		return err
	}
	season, err := h.source.Season(c.UserContext(), id, number)
	if err != nil {
		return err
	}
	return c.JSON(season)
}
