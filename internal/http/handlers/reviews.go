package handlers

import (
	"github.com/gabriel/media-catalog/internal/apperr"
	"github.com/gabriel/media-catalog/internal/repository"
	"github.com/gofiber/fiber/v2"
)

type reviewRequest struct {
	Rating float64 `json:"rating" validate:"required,gte=0.5,lte=10,halfstep"`
	Body   *string `json:"body" validate:"omitempty,max=5000"`
}

type ReviewsHandler struct {
	repo *repository.ReviewRepository
}

func NewReviewsHandler(repo *repository.ReviewRepository) *ReviewsHandler {
	return &ReviewsHandler{repo: repo}
}

// ListForTitle returns a page of reviews together with the rating summary.
func (h *ReviewsHandler) ListForTitle(c *fiber.Ctx) error {
	mediaType, err := paramMediaType(c)
	if err != nil {
		return err
	}
	tmdbID, err := paramInt64(c, "id")
	if err != nil {
		return err
	}

	limit, offset := paging(c)
	page, summary, err := h.repo.ListForTitle(mediaType, tmdbID, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"summary": summary,
		"reviews": page,
	})
}

// Mine returns the caller's review of a title, or 404.
func (h *ReviewsHandler) Mine(c *fiber.Ctx) error {
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

	review, err := h.repo.Get(repository.ReviewID(userID, mediaType, tmdbID))
	if err != nil {
		return err
	}
	if review == nil {
		return apperr.NotFound("review not found")
	}
	return c.JSON(review)
}

// Upsert posts or replaces the caller's single review of a title.
func (h *ReviewsHandler) Upsert(c *fiber.Ctx) error {
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
	var req reviewRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	review, err := h.repo.Upsert(userID, mediaType, tmdbID, req.Rating, req.Body)
	if err != nil {
		return err
	}
	return c.JSON(review)
}

func (h *ReviewsHandler) Delete(c *fiber.Ctx) error {
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

	deleted, err := h.repo.Delete(userID, mediaType, tmdbID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound("review not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ReviewsHandler) ListByUser(c *fiber.Ctx) error {
	if _, err := currentUserID(c); err != nil {
		return err
	}
	limit, offset := paging(c)
	page, err := h.repo.ListByUser(c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(page)
}
