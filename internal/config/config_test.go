package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("TMDB_RATE_LIMIT", "0")
	t.Setenv("ADMIN_EMAILS", " admin@example.com, ,ops@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.LogLevel)
	}
	if cfg.TMDBRateLimit != 35 {
		t.Fatalf("expected rate limit fallback 35, got %d", cfg.TMDBRateLimit)
	}
	if cfg.TMDBRateWindow != 10*time.Second {
		t.Fatalf("expected 10s window, got %s", cfg.TMDBRateWindow)
	}
	if len(cfg.AdminEmails) != 2 || cfg.AdminEmails[1] != "ops@example.com" {
		t.Fatalf("unexpected admin emails: %v", cfg.AdminEmails)
	}
	if cfg.JWTSecret == "" {
		t.Fatalf("expected development jwt secret fallback")
	}
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	if _, err := Load(); err == nil {
		t.Fatalf("expected invalid log level error")
	}
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_LEVEL", "INFO")
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing secret error")
	}
}

func TestLoadScraperValidatesMode(t *testing.T) {
	t.Setenv("LOG_LEVEL", "INFO")
	t.Setenv("SCRAPER_MODE", "selenium")
	if _, err := LoadScraper(); err == nil {
		t.Fatalf("expected invalid mode error")
	}

	t.Setenv("SCRAPER_MODE", "BROWSER")
	t.Setenv("SCRAPER_PAGE_DELAY", "500ms")
	cfg, err := LoadScraper()
	if err != nil {
		t.Fatalf("load scraper config: %v", err)
	}
	if cfg.Mode != "browser" {
		t.Fatalf("expected browser mode, got %s", cfg.Mode)
	}
	if cfg.PageDelay != 500*time.Millisecond {
		t.Fatalf("expected 500ms delay, got %s", cfg.PageDelay)
	}
	if len(cfg.AllowedProviders) != 5 {
		t.Fatalf("expected default providers, got %v", cfg.AllowedProviders)
	}
}
