package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/gabriel/media-catalog/internal/config"
	"github.com/gabriel/media-catalog/internal/database"
	"github.com/gabriel/media-catalog/internal/tmdb"
)

type linkUsage struct {
	ID        string
	EpisodeID string
	URL       string
	Provider  string
}

type cleanupOutcome struct {
	DeletedLinks    int64
	DeletedEpisodes int64
}

func main() {
	var (
		apply      bool
		providers  string
		purgeCache bool
	)
	flag.BoolVar(&apply, "apply", false, "Apply cleanup changes. Without this flag, the command is a dry-run preview.")
	flag.StringVar(&providers, "providers", "", "Comma separated provider allow-list. Defaults to SCRAPER_ALLOWED_PROVIDERS.")
	flag.BoolVar(&purgeCache, "purge-cache", false, "Also drop every cached metadata response.")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	allowed := splitProviders(providers)
	if len(allowed) == 0 {
		scraperCfg, err := config.LoadScraper()
		if err != nil {
			slog.Error("failed to load scraper config", "error", err)
			os.Exit(1)
		}
		allowed = splitProviders(strings.Join(scraperCfg.AllowedProviders, ","))
	}
	if len(allowed) == 0 {
		slog.Error("provider allow-list is empty; refusing to treat every link as stale")
		os.Exit(1)
	}

	db, err := database.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open sqlite", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.ApplyMigrations(db, cfg.MigrationsPath); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	slog.Info("loaded provider allow-list", "count", len(allowed), "providers", allowed)

	staleLinks, err := listStaleLinks(db, allowed)
	if err != nil {
		slog.Error("failed to list stale links", "error", err)
		os.Exit(1)
	}
	emptyEpisodes, err := countEmptyEpisodes(db)
	if err != nil {
		slog.Error("failed to count empty episodes", "error", err)
		os.Exit(1)
	}

	for _, link := range staleLinks {
		slog.Info(
			"stale link detected",
			"link_id", link.ID,
			"episode_id", link.EpisodeID,
			"provider", link.Provider,
			"url", link.URL,
		)
	}

	if !apply {
		slog.Info(
			"dry-run complete",
			"stale_links", len(staleLinks),
			"empty_episodes", emptyEpisodes,
			"purge_cache", purgeCache,
		)
		return
	}

	outcome, err := applyCleanup(db, staleLinks)
	if err != nil {
		slog.Error("failed to apply stale link cleanup", "error", err)
		os.Exit(1)
	}

	if purgeCache && cfg.CachePath != "" {
		cache, err := tmdb.OpenBadgerCache(cfg.CachePath, logger)
		if err != nil {
			slog.Error("failed to open metadata cache", "path", cfg.CachePath, "error", err)
			os.Exit(1)
		}
		purgeErr := cache.Purge()
		_ = cache.Close()
		if purgeErr != nil {
			slog.Error("failed to purge metadata cache", "error", purgeErr)
			os.Exit(1)
		}
		slog.Info("metadata cache purged", "path", cfg.CachePath)
	}

	slog.Info(
		"cleanup completed",
		"deleted_links", outcome.DeletedLinks,
		"deleted_episodes", outcome.DeletedEpisodes,
	)
}

func listStaleLinks(db *sql.DB, allowed []string) ([]linkUsage, error) {
	rows, err := db.Query(`
		SELECT id, episode_id, url, COALESCE(provider, '')
		FROM streaming_links
		ORDER BY episode_id ASC, created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list streaming links: %w", err)
	}
	defer rows.Close()

	items := make([]linkUsage, 0)
	for rows.Next() {
		var item linkUsage
		if err := rows.Scan(&item.ID, &item.EpisodeID, &item.URL, &item.Provider); err != nil {
			return nil, fmt.Errorf("scan streaming link: %w", err)
		}
		if !linkAllowed(item, allowed) {
			items = append(items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate streaming links: %w", err)
	}
	return items, nil
}

func countEmptyEpisodes(db *sql.DB) (int64, error) {
	var count int64
	err := db.QueryRow(`
		SELECT COUNT(1) FROM episodes
		WHERE NOT EXISTS (SELECT 1 FROM streaming_links WHERE streaming_links.episode_id = episodes.id)
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count empty episodes: %w", err)
	}
	return count, nil
}

// deleteChunkSize keeps each IN list under sqlite's bound parameter limit.
var deleteChunkSize = 500

// applyCleanup deletes the stale links and then every episode document left
// without links, matching what deleting the last link through the API does.
func applyCleanup(db *sql.DB, staleLinks []linkUsage) (cleanupOutcome, error) {
	linkIDs := make([]string, 0, len(staleLinks))
	for _, link := range staleLinks {
		linkIDs = append(linkIDs, link.ID)
	}
	sort.Strings(linkIDs)

	tx, err := db.Begin()
	if err != nil {
		return cleanupOutcome{}, fmt.Errorf("begin cleanup tx: %w", err)
	}

	rollback := func() {
		_ = tx.Rollback()
	}

	var outcome cleanupOutcome
	for start := 0; start < len(linkIDs); start += deleteChunkSize {
		chunk := linkIDs[start:min(start+deleteChunkSize, len(linkIDs))]
		query := fmt.Sprintf("DELETE FROM streaming_links WHERE id IN (%s)", placeholders(len(chunk)))
		result, err := tx.Exec(query, stringSliceToAny(chunk)...)
		if err != nil {
			rollback()
			return cleanupOutcome{}, fmt.Errorf("delete stale links: %w", err)
		}
		deleted, err := result.RowsAffected()
		if err != nil {
			rollback()
			return cleanupOutcome{}, fmt.Errorf("rows affected for link delete: %w", err)
		}
		outcome.DeletedLinks += deleted
	}

	result, err := tx.Exec(`
		DELETE FROM episodes
		WHERE NOT EXISTS (SELECT 1 FROM streaming_links WHERE streaming_links.episode_id = episodes.id)
	`)
	if err != nil {
		rollback()
		return cleanupOutcome{}, fmt.Errorf("delete empty episodes: %w", err)
	}
	outcome.DeletedEpisodes, err = result.RowsAffected()
	if err != nil {
		rollback()
		return cleanupOutcome{}, fmt.Errorf("rows affected for episode delete: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return cleanupOutcome{}, fmt.Errorf("commit cleanup tx: %w", err)
	}

	return outcome, nil
}

// linkAllowed accepts a link when its provider name or URL host contains an
// allowed provider key.
func linkAllowed(link linkUsage, allowed []string) bool {
	provider := strings.ToLower(strings.TrimSpace(link.Provider))
	host := ""
	if parsed, err := url.Parse(strings.TrimSpace(link.URL)); err == nil {
		host = strings.ToLower(parsed.Hostname())
	}
	for _, candidate := range allowed {
		if provider != "" && strings.Contains(provider, candidate) {
			return true
		}
		if host != "" && strings.Contains(host, candidate) {
			return true
		}
	}
	return false
}

func splitProviders(raw string) []string {
	seen := map[string]struct{}{}
	items := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		value := strings.ToLower(strings.TrimSpace(part))
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		items = append(items, value)
	}
	sort.Strings(items)
	return items
}

func placeholders(count int) string {
	if count <= 0 {
		return ""
	}

	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}

func stringSliceToAny(values []string) []any {
	items := make([]any, 0, len(values))
	for _, value := range values {
		items = append(items, value)
	}
	return items
}
