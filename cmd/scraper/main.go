package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gabriel/media-catalog/internal/config"
	"github.com/gabriel/media-catalog/internal/scraper"
)

func main() {
	cfg, err := config.LoadScraper()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	site, err := scraper.LoadSiteConfig(cfg.SiteConfigPath)
	if err != nil {
		slog.Error("failed to load site config", "path", cfg.SiteConfigPath, "error", err)
		os.Exit(1)
	}

	var fetcher scraper.Fetcher
	switch cfg.Mode {
	case "browser":
		fetcher = scraper.NewBrowserFetcher(site, scraper.BrowserOptions{
			Headless:   cfg.Headless,
			ProfileDir: cfg.ProfileDir,
		})
	default:
		httpFetcher, err := scraper.NewHTTPFetcher(site, nil)
		if err != nil {
			slog.Error("failed to create http fetcher", "error", err)
			os.Exit(1)
		}
		fetcher = httpFetcher
	}

	service := scraper.NewService(site, fetcher, scraper.ServiceOptions{
		AllowedProviders: cfg.AllowedProviders,
		PageDelay:        cfg.PageDelay,
		CookiesPath:      cfg.CookiesPath,
		Logger:           logger,
	})
	defer service.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	restored, err := service.LoadSavedCookies(ctx)
	if err != nil {
		slog.Warn("failed to restore saved cookies", "path", cfg.CookiesPath, "error", err)
	} else if restored > 0 {
		slog.Info("restored saved cookies", "count", restored)
	}

	go service.RunKeepAlive(ctx, 30*time.Minute)

	app := scraper.NewApp(scraper.NewHandler(service, site, logger))
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()

	slog.Info("scraper started", "port", cfg.Port, "mode", cfg.Mode, "site", site.BaseURL)

	<-ctx.Done()

	slog.Info("shutting down scraper")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
