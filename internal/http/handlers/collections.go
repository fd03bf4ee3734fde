package handlers

import (
	"github.com/gabriel/media-catalog/internal/apperr"
	"github.com/gabriel/media-catalog/internal/repository"
	"github.com/gofiber/fiber/v2"
)

type collectionRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	IsPublic    bool    `json:"isPublic"`
}

type CollectionsHandler struct {
	repo *repository.CollectionRepository
}

func NewCollectionsHandler(repo *repository.CollectionRepository) *CollectionsHandler {
	return &CollectionsHandler{repo: repo}
}

func (h *CollectionsHandler) List(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	items, err := h.repo.List(userID, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

// ListForUser shows another user's public collections.
func (h *CollectionsHandler) ListForUser(c *fiber.Ctx) error {
	viewerID, err := currentUserID(c)
	if err != nil {
		return err
	}
	items, err := h.repo.List(c.Params("id"), viewerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

func (h *CollectionsHandler) Create(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req collectionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	collection, err := h.repo.Create(userID, req.Name, req.Description, req.IsPublic)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(collection)
}

func (h *CollectionsHandler) Get(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	collection, err := h.repo.Get(userID, c.Params("id"))
	if err != nil {
		return err
	}
	if collection == nil {
		return apperr.NotFound("collection not found")
	}
	return c.JSON(collection)
}

func (h *CollectionsHandler) Update(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req collectionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	collection, err := h.repo.Update(userID, c.Params("id"), req.Name, req.Description, req.IsPublic)
	if err != nil {
		return err
	}
	if collection == nil {
		return apperr.NotFound("collection not found")
	}
	return c.JSON(collection)
}

func (h *CollectionsHandler) Delete(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	deleted, err := h.repo.Delete(userID, c.Params("id"))
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound("collection not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CollectionsHandler) ListItems(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	collection, err := h.repo.Get(userID, c.Params("id"))
	if err != nil {
		return err
	}
	if collection == nil {
		return apperr.NotFound("collection not found")
	}

	limit, offset := paging(c)
	page, err := h.repo.ListItems(collection.ID, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *CollectionsHandler) AddItem(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req mediaRefRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	item, err := h.repo.AddItem(userID, c.Params("id"), req.ref())
	if err != nil {
		return err
	}
	if item == nil {
		return apperr.NotFound("collection not found")
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *CollectionsHandler) RemoveItem(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	mediaType, err := paramMediaType(c)
	if err != nil {
		return err
	}
	tmdbID, err := paramInt64(c, "tmdbId")
	if err != nil {
		return err
	}

	removed, err := h.repo.RemoveItem(userID, c.Params("id"), mediaType, tmdbID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("collection item not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Containing lists the caller's collections that already hold a title.
func (h *CollectionsHandler) Containing(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	mediaType, err := paramMediaType(c)
	if err != nil {
		return err
	}
	tmdbID, err := paramInt64(c, "tmdbId")
	if err != nil {
		return err
	}

	ids, err := h.repo.ListContaining(userID, mediaType, tmdbID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"collectionIds": ids})
}
