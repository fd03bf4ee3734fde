package repository

import (
	"database/sql"
	"fmt"

	"github.com/gabriel/media-catalog/internal/models"
)

type WatchedRepository struct {
	db *sql.DB
}

func NewWatchedRepository(db *sql.DB) *WatchedRepository {
	return &WatchedRepository{db: db}
}

func WatchedID(userID string, tmdbID int64, season, episode int) string {
	return fmt.Sprintf("%s_%d_s%d_e%d", userID, tmdbID, season, episode)
}

// Mark records the episode as watched. Marking twice keeps the first time.
func (r *WatchedRepository) Mark(userID string, tmdbID int64, season, episode int) (*models.WatchedEpisode, error) {
	id := WatchedID(userID, tmdbID, season, episode)
	_, err := r.db.Exec(`
		INSERT OR IGNORE INTO watched_episodes (id, user_id, tmdb_id, season, episode)
		VALUES (?, ?, ?, ?, ?)
	`, id, userID, tmdbID, season, episode)
	if err != nil {
		return nil, fmt.Errorf("mark episode watched: %w", err)
	}

	row := r.db.QueryRow(`
		SELECT id, user_id, tmdb_id, season, episode, watched_at
		FROM watched_episodes WHERE id = ?
	`, id)
	var item models.WatchedEpisode
	if err := row.Scan(&item.ID, &item.UserID, &item.TMDBID, &item.Season, &item.Episode, &item.WatchedAt); err != nil {
		return nil, fmt.Errorf("reload watched episode: %w", err)
	}
	return &item, nil
}

// MarkSeason marks the given episode numbers of a season in one transaction and
// returns how many were newly recorded.
func (r *WatchedRepository) MarkSeason(userID string, tmdbID int64, season int, episodes []int) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin mark season tx: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for _, episode := range episodes {
		if episode <= 0 {
			continue
		}
		result, err := tx.Exec(`
			INSERT OR IGNORE INTO watched_episodes (id, user_id, tmdb_id, season, episode)
			VALUES (?, ?, ?, ?, ?)
		`, WatchedID(userID, tmdbID, season, episode), userID, tmdbID, season, episode)
		if err != nil {
			return 0, fmt.Errorf("mark season episode %d: %w", episode, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("mark season rows affected: %w", err)
		}
		added += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit mark season tx: %w", err)
	}
	return added, nil
}

func (r *WatchedRepository) Unmark(userID string, tmdbID int64, season, episode int) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM watched_episodes WHERE id = ?`, WatchedID(userID, tmdbID, season, episode))
	if err != nil {
		return false, fmt.Errorf("unmark episode: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unmark rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *WatchedRepository) UnmarkSeason(userID string, tmdbID int64, season int) (int, error) {
	result, err := r.db.Exec(`
		DELETE FROM watched_episodes
		WHERE user_id = ? AND tmdb_id = ? AND season = ?
	`, userID, tmdbID, season)
	if err != nil {
		return 0, fmt.Errorf("unmark season: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("unmark season rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

func (r *WatchedRepository) ListForSeries(userID string, tmdbID int64) ([]models.WatchedEpisode, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, tmdb_id, season, episode, watched_at
		FROM watched_episodes
		WHERE user_id = ? AND tmdb_id = ?
		ORDER BY season ASC, episode ASC
	`, userID, tmdbID)
	if err != nil {
		return nil, fmt.Errorf("list watched episodes: %w", err)
	}
	defer rows.Close()

	items := make([]models.WatchedEpisode, 0)
	for rows.Next() {
		var item models.WatchedEpisode
		if err := rows.Scan(&item.ID, &item.UserID, &item.TMDBID, &item.Season, &item.Episode, &item.WatchedAt); err != nil {
			return nil, fmt.Errorf("scan watched episode: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watched episodes: %w", err)
	}
	return items, nil
}

func (r *WatchedRepository) Progress(userID string, tmdbID int64) ([]models.SeasonProgress, error) {
	rows, err := r.db.Query(`
		SELECT season, COUNT(1)
		FROM watched_episodes
		WHERE user_id = ? AND tmdb_id = ?
		GROUP BY season
		ORDER BY season ASC
	`, userID, tmdbID)
	if err != nil {
		return nil, fmt.Errorf("watched progress: %w", err)
	}
	defer rows.Close()

	items := make([]models.SeasonProgress, 0)
	for rows.Next() {
		var item models.SeasonProgress
		if err := rows.Scan(&item.Season, &item.Watched); err != nil {
			return nil, fmt.Errorf("scan watched progress: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watched progress: %w", err)
	}
	return items, nil
}
