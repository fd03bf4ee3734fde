package repository

import (
	"database/sql"
	"fmt"

	"github.com/gabriel/media-catalog/internal/models"
)

type FavoriteRepository struct {
	db *sql.DB
}

func NewFavoriteRepository(db *sql.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Add is idempotent: adding an existing favorite refreshes its display fields.
func (r *FavoriteRepository) Add(userID string, ref models.MediaRef) (*models.Favorite, error) {
	_, err := r.db.Exec(`
		INSERT INTO favorites (user_id, media_type, tmdb_id, title, poster_path, release_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, media_type, tmdb_id) DO UPDATE SET
			title = excluded.title,
			poster_path = excluded.poster_path,
			release_date = excluded.release_date
	`, userID, ref.MediaType, ref.TMDBID, ref.Title, ref.PosterPath, ref.ReleaseDate)
	if err != nil {
		return nil, fmt.Errorf("upsert favorite: %w", err)
	}

	return r.Get(userID, ref.MediaType, ref.TMDBID)
}

func (r *FavoriteRepository) Get(userID string, mediaType string, tmdbID int64) (*models.Favorite, error) {
	row := r.db.QueryRow(`
		SELECT user_id, media_type, tmdb_id, title, poster_path, release_date, created_at
		FROM favorites
		WHERE user_id = ? AND media_type = ? AND tmdb_id = ?
	`, userID, mediaType, tmdbID)

	item, err := scanFavorite(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get favorite: %w", err)
	}
	return item, nil
}

func (r *FavoriteRepository) Remove(userID string, mediaType string, tmdbID int64) (bool, error) {
	result, err := r.db.Exec(`
		DELETE FROM favorites
		WHERE user_id = ? AND media_type = ? AND tmdb_id = ?
	`, userID, mediaType, tmdbID)
	if err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("favorite delete rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *FavoriteRepository) List(userID string, mediaType string, limit, offset int) (models.Page[models.Favorite], error) {
	limit, offset = normalizePaging(limit, offset)

	where := `user_id = ?`
	args := []any{userID}
	if mediaType != "" {
		where += ` AND media_type = ?`
		args = append(args, mediaType)
	}

	var total int
	if err := r.db.QueryRow(`SELECT COUNT(1) FROM favorites WHERE `+where, args...).Scan(&total); err != nil {
		return models.Page[models.Favorite]{}, fmt.Errorf("count favorites: %w", err)
	}

	rows, err := r.db.Query(`
		SELECT user_id, media_type, tmdb_id, title, poster_path, release_date, created_at
		FROM favorites
		WHERE `+where+`
		ORDER BY created_at DESC, tmdb_id DESC
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return models.Page[models.Favorite]{}, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	items := make([]models.Favorite, 0)
	for rows.Next() {
		item, err := scanFavorite(rows)
		if err != nil {
			return models.Page[models.Favorite]{}, fmt.Errorf("scan favorite: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.Favorite]{}, fmt.Errorf("iterate favorites: %w", err)
	}

	return models.NewPage(items, total, limit, offset), nil
}

func scanFavorite(scanner interface{ Scan(dest ...any) error }) (*models.Favorite, error) {
	var item models.Favorite
	var posterPath, releaseDate sql.NullString
	if err := scanner.Scan(&item.UserID, &item.MediaType, &item.TMDBID, &item.Title, &posterPath, &releaseDate, &item.CreatedAt); err != nil {
		return nil, err
	}
	item.PosterPath = nullableString(posterPath)
	item.ReleaseDate = nullableString(releaseDate)
	return &item, nil
}
