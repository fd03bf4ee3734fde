package handlers

import (
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
)

type metadataStatus interface {
	Configured() bool
	RateUsage() (inWindow, limit int)
}

type HealthHandler struct {
	db                *sql.DB
	tmdb              metadataStatus
	scraperConfigured bool
}

func NewHealthHandler(db *sql.DB, tmdb metadataStatus, scraperConfigured bool) *HealthHandler {
	return &HealthHandler{db: db, tmdb: tmdb, scraperConfigured: scraperConfigured}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	inWindow, limit := h.tmdb.RateUsage()
	upstream := fiber.Map{
		"tmdb":     configuredState(h.tmdb.Configured()),
		"tmdbRate": fiber.Map{"inWindow": inWindow, "limit": limit},
		"scraper":  configuredState(h.scraperConfigured),
	}

	if err := h.db.Ping(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "degraded",
			"db":       "down",
			"upstream": upstream,
			"time":     time.Now().UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(fiber.Map{
		"status":   "ok",
		"db":       "up",
		"upstream": upstream,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}

func configuredState(configured bool) string {
	if configured {
		return "configured"
	}
	return "disabled"
}
