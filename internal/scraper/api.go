package scraper

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type linksRequest struct {
	Episodes []EpisodeRef `json:"episodes"`
}

type sessionRequest struct {
	CookieString string   `json:"cookie_string"`
	CookieText   string   `json:"cookie_text"`
	Cookies      []Cookie `json:"cookies"`
}

type Handler struct {
	service *Service
	site    SiteConfig
	logger  *slog.Logger
}

func NewHandler(service *Service, site SiteConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, site: site, logger: logger}
}

// NewApp builds the scraper HTTP API.
func NewApp(handler *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "media-catalog-scraper",
	})
	app.Use(recover.New())

	api := app.Group("/api")
	api.Get("/health", handler.Health)
	api.Post("/scrape/search", handler.Search)
	api.Post("/scrape/links", handler.Links)
	api.Post("/update-session", handler.UpdateSession)
	api.Get("/keep-alive", handler.KeepAlive)

	return app
}

func failure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "error": message})
}

func (h *Handler) Health(c *fiber.Ctx) error {
	loggedIn, checkedAt := h.service.Status()
	payload := fiber.Map{
		"status":    "ok",
		"message":   "scraper is running",
		"logged_in": loggedIn,
	}
	if !checkedAt.IsZero() {
		payload["checked_at"] = checkedAt
	}
	return c.JSON(payload)
}

func (h *Handler) Search(c *fiber.Ctx) error {
	var req SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return failure(c, fiber.StatusBadRequest, "invalid json body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return failure(c, fiber.StatusBadRequest, "title is required")
	}

	result, err := h.service.Search(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, ErrNoResults) {
			return failure(c, fiber.StatusNotFound, "no results found for "+strings.TrimSpace(req.Title))
		}
		h.logger.Error("scraper search failed", "title", req.Title, "error", err)
		return failure(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"title":    result.Title,
		"type":     result.Type,
		"year":     result.Year,
		"url":      result.URL,
		"episodes": result.Episodes,
		"count":    result.Count,
	})
}

func (h *Handler) Links(c *fiber.Ctx) error {
	var req linksRequest
	if err := c.BodyParser(&req); err != nil {
		return failure(c, fiber.StatusBadRequest, "invalid json body")
	}
	if len(req.Episodes) == 0 {
		return failure(c, fiber.StatusBadRequest, "episodes are required")
	}

	results, err := h.service.Links(c.UserContext(), req.Episodes)
	if err != nil {
		if errors.Is(err, ErrNotLoggedIn) {
			return failure(c, fiber.StatusUnauthorized, "not logged in, update the session cookies")
		}
		h.logger.Error("scraper links failed", "episodes", len(req.Episodes), "error", err)
		return failure(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"success": true,
		"results": results,
		"count":   len(results),
	})
}

func (h *Handler) UpdateSession(c *fiber.Ctx) error {
	var req sessionRequest
	if err := c.BodyParser(&req); err != nil {
		return failure(c, fiber.StatusBadRequest, "invalid json body")
	}

	var cookies []Cookie
	switch {
	case len(req.Cookies) > 0:
		cookies = req.Cookies
	case strings.TrimSpace(req.CookieText) != "":
		parsed, err := ParseCookieText(req.CookieText, h.site.CookieDomain)
		if err != nil {
			return failure(c, fiber.StatusBadRequest, err.Error())
		}
		cookies = parsed
	case strings.TrimSpace(req.CookieString) != "":
		cookies = ParseCookieString(req.CookieString, h.site.CookieDomain)
	}
	if len(NormalizeCookies(cookies, h.site.CookieDomain)) == 0 {
		return failure(c, fiber.StatusBadRequest, "no cookies provided")
	}

	loggedIn, err := h.service.UpdateSession(c.UserContext(), cookies)
	if err != nil {
		h.logger.Error("scraper session update failed", "error", err)
		return failure(c, fiber.StatusInternalServerError, err.Error())
	}

	message := "session updated"
	if !loggedIn {
		message = "cookies saved but the site does not report a logged in user"
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"logged_in": loggedIn,
		"cookies":   len(cookies),
		"message":   message,
	})
}

func (h *Handler) KeepAlive(c *fiber.Ctx) error {
	loggedIn, err := h.service.KeepAlive(c.UserContext())
	if err != nil {
		return failure(c, fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{"success": true, "logged_in": loggedIn})
}
