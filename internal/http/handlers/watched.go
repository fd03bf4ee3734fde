package handlers

import (
	"context"

	"github.com/gabriel/media-catalog/internal/apperr"
	"github.com/gabriel/media-catalog/internal/repository"
	"github.com/gabriel/media-catalog/internal/tmdb"
	"github.com/gofiber/fiber/v2"
)

type markSeasonRequest struct {
	EpisodeCount int `json:"episodeCount" validate:"gte=0,lte=500"`
}

type seasonSource interface {
	Season(ctx context.Context, id int64, season int) (*tmdb.Season, error)
}

type WatchedHandler struct {
	repo    *repository.WatchedRepository
	seasons seasonSource
}

func NewWatchedHandler(repo *repository.WatchedRepository, seasons seasonSource) *WatchedHandler {
	return &WatchedHandler{repo: repo, seasons: seasons}
}

// List returns the watched episodes of a series and the per-season counts.
func (h *WatchedHandler) List(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	tmdbID, err := paramInt64(c, "id")
	if err != nil {
		return err
	}

	episodes, err := h.repo.ListForSeries(userID, tmdbID)
	if err != nil {
		return err
	}
	progress, err := h.repo.Progress(userID, tmdbID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"episodes": episodes,
		"progress": progress,
	})
}

func (h *WatchedHandler) Mark(c *fiber.Ctx) error {
	userID, tmdbID, season, episode, err := episodeParams(c)
	if err != nil {
		return err
	}
	watched, err := h.repo.Mark(userID, tmdbID, season, episode)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(watched)
}

func (h *WatchedHandler) Unmark(c *fiber.Ctx) error {
	userID, tmdbID, season, episode, err := episodeParams(c)
	if err != nil {
		return err
	}
	removed, err := h.repo.Unmark(userID, tmdbID, season, episode)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("episode not marked as watched")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkSeason marks every episode of a season. Without an episode count in the
// body the episode numbers come from the metadata provider.
func (h *WatchedHandler) MarkSeason(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	tmdbID, err := paramInt64(c, "id")
	if err != nil {
		return err
	}
	season, err := paramInt(c, "season")
	if err != nil {
		return err
	}

	var req markSeasonRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	var episodes []int
	if req.EpisodeCount > 0 {
		episodes = make([]int, 0, req.EpisodeCount)
		for episode := 1; episode <= req.EpisodeCount; episode++ {
			episodes = append(episodes, episode)
		}
	} else {
		details, err := h.seasons.Season(c.UserContext(), tmdbID, season)
		if err != nil {
			return err
		}
		episodes = seasonEpisodeNumbers(details)
	}
	if len(episodes) == 0 {
		return apperr.BadRequest("season has no episodes")
	}

	added, err := h.repo.MarkSeason(userID, tmdbID, season, episodes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"added": added, "episodeCount": len(episodes)})
}

func (h *WatchedHandler) UnmarkSeason(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	tmdbID, err := paramInt64(c, "id")
	if err != nil {
		return err
	}
	season, err := paramInt(c, "season")
	if err != nil {
		return err
	}

	removed, err := h.repo.UnmarkSeason(userID, tmdbID, season)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"removed": removed})
}

func episodeParams(c *fiber.Ctx) (userID string, tmdbID int64, season, episode int, err error) {
	if userID, err = currentUserID(c); err != nil {
		return
	}
	if tmdbID, err = paramInt64(c, "id"); err != nil {
		return
	}
	if season, err = paramInt(c, "season"); err != nil {
		return
	}
	if episode, err = paramInt(c, "episode"); err != nil {
		return
	}
	if episode == 0 {
		err = apperr.BadRequest("invalid episode")
	}
	return
}

// seasonEpisodeNumbers keeps the catalog numbering, which need not start at 1.
func seasonEpisodeNumbers(details *tmdb.Season) []int {
	numbers := make([]int, 0, len(details.Episodes))
	seen := make(map[int]struct{}, len(details.Episodes))
	for _, episode := range details.Episodes {
		if episode.EpisodeNumber <= 0 {
			continue
		}
		if _, ok := seen[episode.EpisodeNumber]; ok {
			continue
		}
		seen[episode.EpisodeNumber] = struct{}{}
		numbers = append(numbers, episode.EpisodeNumber)
	}
	return numbers
}
