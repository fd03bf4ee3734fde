package handlers

import (
	"github.com/gabriel/media-catalog/internal/apperr"
	"github.com/gabriel/media-catalog/internal/models"
	"github.com/gabriel/media-catalog/internal/repository"
	"github.com/gofiber/fiber/v2"
)

// mediaRefRequest is the title payload shared by favorites and collections.
type mediaRefRequest struct {
	MediaType   string  `json:"mediaType" validate:"required,mediatype"`
	TMDBID      int64   `json:"tmdbId" validate:"required,gt=0"`
	Title       string  `json:"title" validate:"required,max=300"`
	PosterPath  *string `json:"posterPath" validate:"omitempty,max=300"`
	ReleaseDate *string `json:"releaseDate" validate:"omitempty,max=20"`
}

func (r mediaRefRequest) ref() models.MediaRef {
	return models.MediaRef{
		MediaType:   r.MediaType,
		TMDBID:      r.TMDBID,
		Title:       r.Title,
		PosterPath:  r.PosterPath,
		ReleaseDate: r.ReleaseDate,
	}
}

type FavoritesHandler struct {
	repo *repository.FavoriteRepository
}

func NewFavoritesHandler(repo *repository.FavoriteRepository) *FavoritesHandler {
	return &FavoritesHandler{repo: repo}
}

func (h *FavoritesHandler) List(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	mediaType := c.Query("mediaType")
	if mediaType != "" && mediaType != models.MediaTypeMovie && mediaType != models.MediaTypeTV {
		return apperr.BadRequest("media type must be movie or tv")
	}

	limit, offset := paging(c)
	page, err := h.repo.List(userID, mediaType, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// Add is idempotent: adding an existing favorite returns it unchanged.
func (h *FavoritesHandler) Add(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req mediaRefRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	favorite, err := h.repo.Add(userID, req.ref())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(favorite)
}

func (h *FavoritesHandler) Status(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	mediaType, err := paramMediaType(c)
	if err != nil {
		return err
	}
	tmdbID, err := paramInt64(c, "id")
	if err != nil {
		return err
	}

	favorite, err := h.repo.Get(userID, mediaType, tmdbID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"favorite": favorite != nil, "item": favorite})
}

func (h *FavoritesHandler) Remove(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	mediaType, err := paramMediaType(c)
	if err != nil {
		return err
	}
	tmdbID, err := paramInt64(c, "id")
	if err != nil {
		return err
	}

	removed, err := h.repo.Remove(userID, mediaType, tmdbID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("favorite not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
