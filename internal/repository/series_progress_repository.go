package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/gabriel/media-catalog/internal/models"
)

type SeriesProgressRepository struct {
	db *sql.DB
}

func NewSeriesProgressRepository(db *sql.DB) *SeriesProgressRepository {
	return &SeriesProgressRepository{db: db}
}

type TrackedSeries struct {
	TMDBID int64
	Title  string
}

// ListTrackedSeries returns tv titles that appear in any favorite list or
// collection.
func (r *SeriesProgressRepository) ListTrackedSeries() ([]TrackedSeries, error) {
	rows, err := r.db.Query(`
		SELECT tmdb_id, MAX(title)
		FROM (
			SELECT tmdb_id, title FROM favorites WHERE media_type = 'tv'
			UNION ALL
			SELECT tmdb_id, title FROM collection_items WHERE media_type = 'tv'
		)
		GROUP BY tmdb_id
		ORDER BY tmdb_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list tracked series: %w", err)
	}
	defer rows.Close()

	items := make([]TrackedSeries, 0)
	for rows.Next() {
		var item TrackedSeries
		if err := rows.Scan(&item.TMDBID, &item.Title); err != nil {
			return nil, fmt.Errorf("scan tracked series: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracked series: %w", err)
	}
	return items, nil
}

func (r *SeriesProgressRepository) Get(tmdbID int64) (*models.SeriesProgress, error) {
	var item models.SeriesProgress
	var lastAir, nextAir sql.NullString
	var changedAt sql.NullTime
	err := r.db.QueryRow(`
		SELECT tmdb_id, name, status, number_of_seasons, number_of_episodes, last_air_date, next_air_date, checked_at, changed_at
		FROM series_progress WHERE tmdb_id = ?
	`, tmdbID).Scan(&item.TMDBID, &item.Name, &item.Status, &item.NumberOfSeasons, &item.NumberOfEpisodes, &lastAir, &nextAir, &item.CheckedAt, &changedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get series progress: %w", err)
	}
	item.LastAirDate = nullableString(lastAir)
	item.NextAirDate = nullableString(nextAir)
	if changedAt.Valid {
		value := changedAt.Time
		item.ChangedAt = &value
	}
	return &item, nil
}

// UpsertProgress stores the latest snapshot and returns the previous one, nil
// on the first check. changed_at moves only when the episode count changes.
func (r *SeriesProgressRepository) UpsertProgress(next models.SeriesProgress) (*models.SeriesProgress, error) {
	previous, err := r.Get(next.TMDBID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var changedAt any
	switch {
	case previous == nil:
		changedAt = nil
	case previous.NumberOfEpisodes != next.NumberOfEpisodes:
		changedAt = now
	case previous.ChangedAt != nil:
		changedAt = *previous.ChangedAt
	}

	_, err = r.db.Exec(`
		INSERT INTO series_progress (tmdb_id, name, status, number_of_seasons, number_of_episodes, last_air_date, next_air_date, checked_at, changed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tmdb_id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			number_of_seasons = excluded.number_of_seasons,
			number_of_episodes = excluded.number_of_episodes,
			last_air_date = excluded.last_air_date,
			next_air_date = excluded.next_air_date,
			checked_at = excluded.checked_at,
			changed_at = excluded.changed_at
	`, next.TMDBID, next.Name, next.Status, next.NumberOfSeasons, next.NumberOfEpisodes, trimmedOrNil(next.LastAirDate), trimmedOrNil(next.NextAirDate), now, changedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert series progress: %w", err)
	}
	return previous, nil
}
