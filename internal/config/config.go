package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment     string
	AppName         string
	Port            string
	LogLevel        slog.Level
	SQLitePath      string
	MigrationsPath  string
	SeedDefaultData bool

	TMDBAPIKey     string
	TMDBBaseURL    string
	TMDBLanguage   string
	TMDBRateLimit  int
	TMDBRateWindow time.Duration
	CachePath      string
	CacheTTL       time.Duration

	JWTSecret   string
	TokenTTL    time.Duration
	AdminEmails []string

	ScraperURL     string
	WebhookURL     string
	RefreshEnabled bool
	RefreshMinutes int
	APIRateLimit   int
	CORSOrigins    string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:     getEnv("APP_ENV", "development"),
		AppName:         getEnv("APP_NAME", "media-catalog"),
		Port:            getEnv("APP_PORT", "8080"),
		SQLitePath:      getEnv("SQLITE_PATH", "./data/app.sqlite"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./migrations"),
		SeedDefaultData: getEnvAsBool("SEED_DEFAULT_DATA", true),
		TMDBAPIKey:      getEnv("TMDB_API_KEY", ""),
		TMDBBaseURL:     getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBLanguage:    getEnv("TMDB_LANGUAGE", "en-US"),
		TMDBRateLimit:   getEnvAsInt("TMDB_RATE_LIMIT", 35),
		TMDBRateWindow:  getEnvAsDuration("TMDB_RATE_WINDOW", 10*time.Second),
		CachePath:       getEnv("CACHE_PATH", "./data/cache"),
		CacheTTL:        getEnvAsDuration("CACHE_TTL", 6*time.Hour),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		TokenTTL:        getEnvAsDuration("TOKEN_TTL", 24*time.Hour),
		AdminEmails:     splitList(getEnv("ADMIN_EMAILS", "")),
		ScraperURL:      getEnv("SCRAPER_URL", ""),
		WebhookURL:      getEnv("WEBHOOK_URL", ""),
		RefreshEnabled:  getEnvAsBool("REFRESH_ENABLED", true),
		RefreshMinutes:  getEnvAsInt("REFRESH_MINUTES", 360),
		APIRateLimit:    getEnvAsInt("API_RATE_LIMIT", 120),
		CORSOrigins:     getEnv("CORS_ORIGINS", "*"),
	}

	if cfg.RefreshMinutes <= 0 {
		cfg.RefreshMinutes = 360
	}
	if cfg.TMDBRateLimit <= 0 {
		cfg.TMDBRateLimit = 35
	}
	if cfg.TMDBRateWindow <= 0 {
		cfg.TMDBRateWindow = 10 * time.Second
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "INFO"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	if cfg.JWTSecret == "" {
		if cfg.Environment == "production" {
			return Config{}, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-only-secret-change-me"
	}

	return cfg, nil
}

type ScraperConfig struct {
	Port             string
	LogLevel         slog.Level
	SiteConfigPath   string
	Mode             string
	Headless         bool
	ProfileDir       string
	CookiesPath      string
	PageDelay        time.Duration
	AllowedProviders []string
}

func LoadScraper() (ScraperConfig, error) {
	_ = godotenv.Load()

	cfg := ScraperConfig{
		Port:             getEnv("SCRAPER_PORT", "5001"),
		SiteConfigPath:   getEnv("SCRAPER_SITE_CONFIG", ""),
		Mode:             strings.ToLower(getEnv("SCRAPER_MODE", "http")),
		Headless:         getEnvAsBool("HEADLESS_MODE", true),
		ProfileDir:       getEnv("SCRAPER_PROFILE_DIR", "./data/chrome_profile"),
		CookiesPath:      getEnv("SCRAPER_COOKIES_PATH", "./data/cookies.json"),
		PageDelay:        getEnvAsDuration("SCRAPER_PAGE_DELAY", 2*time.Second),
		AllowedProviders: splitList(getEnv("SCRAPER_ALLOWED_PROVIDERS", "doodstream,voe.sx,savefiles,vid-guard,streamup")),
	}

	if cfg.Mode != "http" && cfg.Mode != "browser" {
		return ScraperConfig{}, fmt.Errorf("invalid SCRAPER_MODE %q, expected http|browser", cfg.Mode)
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "INFO"))
	if err != nil {
		return ScraperConfig{}, err
	}
	cfg.LogLevel = level

	return cfg, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q, expected DEBUG|INFO|WARN|ERROR", raw)
	}
}

func getEnv(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
