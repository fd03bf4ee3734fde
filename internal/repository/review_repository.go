package repository

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/gabriel/media-catalog/internal/models"
)

type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func ReviewID(userID, mediaType string, tmdbID int64) string {
	return fmt.Sprintf("%s_%s_%d", userID, mediaType, tmdbID)
}

const reviewSelect = `
	SELECT r.id, r.user_id, u.display_name, r.media_type, r.tmdb_id, r.rating, r.body, r.created_at, r.updated_at
	FROM reviews r
	JOIN users u ON u.id = r.user_id
`

// Upsert stores the user's single review for a title. Posting again replaces
// rating and body but keeps the original creation time.
func (r *ReviewRepository) Upsert(userID, mediaType string, tmdbID int64, rating float64, body *string) (*models.Review, error) {
	id := ReviewID(userID, mediaType, tmdbID)
	_, err := r.db.Exec(`
		INSERT INTO reviews (id, user_id, media_type, tmdb_id, rating, body)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			rating = excluded.rating,
			body = excluded.body,
			updated_at = CURRENT_TIMESTAMP
	`, id, userID, mediaType, tmdbID, rating, trimmedOrNil(body))
	if err != nil {
		return nil, fmt.Errorf("upsert review: %w", err)
	}
	return r.Get(id)
}

func (r *ReviewRepository) Get(id string) (*models.Review, error) {
	row := r.db.QueryRow(reviewSelect+` WHERE r.id = ?`, id)
	item, err := scanReview(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return item, nil
}

func (r *ReviewRepository) Delete(userID, mediaType string, tmdbID int64) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM reviews WHERE id = ?`, ReviewID(userID, mediaType, tmdbID))
	if err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("review delete rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListForTitle returns a page of reviews together with the title's summary;
// the summary count doubles as the page total.
func (r *ReviewRepository) ListForTitle(mediaType string, tmdbID int64, limit, offset int) (models.Page[models.Review], models.ReviewSummary, error) {
	limit, offset = normalizePaging(limit, offset)

	summary, err := r.Summary(mediaType, tmdbID)
	if err != nil {
		return models.Page[models.Review]{}, models.ReviewSummary{}, err
	}

	rows, err := r.db.Query(reviewSelect+`
		WHERE r.media_type = ? AND r.tmdb_id = ?
		ORDER BY r.updated_at DESC, r.id ASC
		LIMIT ? OFFSET ?
	`, mediaType, tmdbID, limit, offset)
	if err != nil {
		return models.Page[models.Review]{}, models.ReviewSummary{}, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	items, err := collectReviews(rows)
	if err != nil {
		return models.Page[models.Review]{}, models.ReviewSummary{}, err
	}
	return models.NewPage(items, summary.Count, limit, offset), summary, nil
}

func (r *ReviewRepository) ListByUser(userID string, limit, offset int) (models.Page[models.Review], error) {
	limit, offset = normalizePaging(limit, offset)

	var total int
	if err := r.db.QueryRow(`SELECT COUNT(1) FROM reviews WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return models.Page[models.Review]{}, fmt.Errorf("count user reviews: %w", err)
	}

	rows, err := r.db.Query(reviewSelect+`
		WHERE r.user_id = ?
		ORDER BY r.updated_at DESC, r.id ASC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return models.Page[models.Review]{}, fmt.Errorf("list user reviews: %w", err)
	}
	defer rows.Close()

	items, err := collectReviews(rows)
	if err != nil {
		return models.Page[models.Review]{}, err
	}
	return models.NewPage(items, total, limit, offset), nil
}

func (r *ReviewRepository) Summary(mediaType string, tmdbID int64) (models.ReviewSummary, error) {
	var summary models.ReviewSummary
	var average sql.NullFloat64
	err := r.db.QueryRow(`
		SELECT COUNT(1), AVG(rating)
		FROM reviews
		WHERE media_type = ? AND tmdb_id = ?
	`, mediaType, tmdbID).Scan(&summary.Count, &average)
	if err != nil {
		return models.ReviewSummary{}, fmt.Errorf("summarize reviews: %w", err)
	}
	if average.Valid {
		summary.Average = math.Round(average.Float64*100) / 100
	}
	return summary, nil
}

func collectReviews(rows *sql.Rows) ([]models.Review, error) {
	items := make([]models.Review, 0)
	for rows.Next() {
		item, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return items, nil
}

func scanReview(scanner interface{ Scan(dest ...any) error }) (*models.Review, error) {
	var item models.Review
	var body sql.NullString
	if err := scanner.Scan(&item.ID, &item.UserID, &item.UserName, &item.MediaType, &item.TMDBID, &item.Rating, &body, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.Body = nullableString(body)
	return &item, nil
}
