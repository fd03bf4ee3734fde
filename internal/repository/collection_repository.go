package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel/media-catalog/internal/models"
	"github.com/google/uuid"
)

var (
	ErrDuplicateCollection = errors.New("collection name already used")
	ErrDuplicateItem       = errors.New("item already in collection")
)

type CollectionRepository struct {
	db *sql.DB
}

func NewCollectionRepository(db *sql.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

const collectionColumns = `id, user_id, name, description, is_public, item_count, created_at, updated_at`

func scanCollection(scanner interface{ Scan(dest ...any) error }) (*models.Collection, error) {
	var item models.Collection
	var description sql.NullString
	if err := scanner.Scan(&item.ID, &item.UserID, &item.Name, &description, &item.IsPublic, &item.ItemCount, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.Description = nullableString(description)
	return &item, nil
}

func (r *CollectionRepository) nameTaken(userID, name, exceptID string) (bool, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(1) FROM collections
		WHERE user_id = ? AND name = ? AND id <> ?
	`, userID, name, exceptID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check collection name: %w", err)
	}
	return count > 0, nil
}

func (r *CollectionRepository) Create(userID, name string, description *string, isPublic bool) (*models.Collection, error) {
	name = strings.TrimSpace(name)
	taken, err := r.nameTaken(userID, name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateCollection
	}

	id := uuid.NewString()
	_, err = r.db.Exec(`
		INSERT INTO collections (id, user_id, name, description, is_public)
		VALUES (?, ?, ?, ?, ?)
	`, id, userID, name, trimmedOrNil(description), isPublic)
	if err != nil {
		return nil, fmt.Errorf("insert collection: %w", err)
	}

	return r.Get(userID, id)
}

// Get returns the collection when it belongs to userID or is public.
func (r *CollectionRepository) Get(userID, id string) (*models.Collection, error) {
	row := r.db.QueryRow(`
		SELECT `+collectionColumns+`
		FROM collections
		WHERE id = ? AND (user_id = ? OR is_public = 1)
	`, id, userID)

	item, err := scanCollection(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return item, nil
}

func (r *CollectionRepository) List(ownerID string, viewerID string) ([]models.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE user_id = ?`
	if ownerID != viewerID {
		query += ` AND is_public = 1`
	}
	query += ` ORDER BY updated_at DESC, name ASC`

	rows, err := r.db.Query(query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	items := make([]models.Collection, 0)
	for rows.Next() {
		item, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	return items, nil
}

func (r *CollectionRepository) Update(userID, id, name string, description *string, isPublic bool) (*models.Collection, error) {
	name = strings.TrimSpace(name)
	taken, err := r.nameTaken(userID, name, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateCollection
	}

	result, err := r.db.Exec(`
		UPDATE collections
		SET name = ?, description = ?, is_public = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
	`, name, trimmedOrNil(description), isPublic, id, userID)
	if err != nil {
		return nil, fmt.Errorf("update collection: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("collection update rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil
	}
	return r.Get(userID, id)
}

func (r *CollectionRepository) Delete(userID, id string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM collections WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete collection: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("collection delete rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// AddItem inserts the item and bumps the denormalized item_count in one
// transaction. It returns (nil, nil) when the collection is not owned by userID.
func (r *CollectionRepository) AddItem(userID, collectionID string, ref models.MediaRef) (*models.CollectionItem, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin add item tx: %w", err)
	}
	defer tx.Rollback()

	owned, err := collectionOwnedTx(tx, userID, collectionID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, nil
	}

	var existing int
	if err := tx.QueryRow(`
		SELECT COUNT(1) FROM collection_items
		WHERE collection_id = ? AND media_type = ? AND tmdb_id = ?
	`, collectionID, ref.MediaType, ref.TMDBID).Scan(&existing); err != nil {
		return nil, fmt.Errorf("check collection item: %w", err)
	}
	if existing > 0 {
		return nil, ErrDuplicateItem
	}

	id := uuid.NewString()
	if _, err := tx.Exec(`
		INSERT INTO collection_items (id, collection_id, media_type, tmdb_id, title, poster_path, release_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, collectionID, ref.MediaType, ref.TMDBID, ref.Title, ref.PosterPath, ref.ReleaseDate); err != nil {
		return nil, fmt.Errorf("insert collection item: %w", err)
	}

	if _, err := tx.Exec(`
		UPDATE collections
		SET item_count = item_count + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, collectionID); err != nil {
		return nil, fmt.Errorf("increment collection count: %w", err)
	}

	row := tx.QueryRow(`
		SELECT id, collection_id, media_type, tmdb_id, title, poster_path, release_date, added_at
		FROM collection_items WHERE id = ?
	`, id)
	item, err := scanCollectionItem(row)
	if err != nil {
		return nil, fmt.Errorf("reload collection item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add item tx: %w", err)
	}
	return item, nil
}

// RemoveItem deletes the item and decrements item_count, never below zero.
func (r *CollectionRepository) RemoveItem(userID, collectionID, mediaType string, tmdbID int64) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin remove item tx: %w", err)
	}
	defer tx.Rollback()

	owned, err := collectionOwnedTx(tx, userID, collectionID)
	if err != nil {
		return false, err
	}
	if !owned {
		return false, nil
	}

	result, err := tx.Exec(`
		DELETE FROM collection_items
		WHERE collection_id = ? AND media_type = ? AND tmdb_id = ?
	`, collectionID, mediaType, tmdbID)
	if err != nil {
		return false, fmt.Errorf("delete collection item: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("collection item delete rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, nil
	}

	if _, err := tx.Exec(`
		UPDATE collections
		SET item_count = MAX(item_count - 1, 0), updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, collectionID); err != nil {
		return false, fmt.Errorf("decrement collection count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit remove item tx: %w", err)
	}
	return true, nil
}

func (r *CollectionRepository) ListItems(collectionID string, limit, offset int) (models.Page[models.CollectionItem], error) {
	limit, offset = normalizePaging(limit, offset)

	var total int
	if err := r.db.QueryRow(`SELECT COUNT(1) FROM collection_items WHERE collection_id = ?`, collectionID).Scan(&total); err != nil {
		return models.Page[models.CollectionItem]{}, fmt.Errorf("count collection items: %w", err)
	}

	rows, err := r.db.Query(`
		SELECT id, collection_id, media_type, tmdb_id, title, poster_path, release_date, added_at
		FROM collection_items
		WHERE collection_id = ?
		ORDER BY added_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, collectionID, limit, offset)
	if err != nil {
		return models.Page[models.CollectionItem]{}, fmt.Errorf("list collection items: %w", err)
	}
	defer rows.Close()

	items := make([]models.CollectionItem, 0)
	for rows.Next() {
		item, err := scanCollectionItem(rows)
		if err != nil {
			return models.Page[models.CollectionItem]{}, fmt.Errorf("scan collection item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.CollectionItem]{}, fmt.Errorf("iterate collection items: %w", err)
	}

	return models.NewPage(items, total, limit, offset), nil
}

// ListContaining returns ids of the user's collections that hold the title.
func (r *CollectionRepository) ListContaining(userID, mediaType string, tmdbID int64) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT c.id
		FROM collections c
		JOIN collection_items i ON i.collection_id = c.id
		WHERE c.user_id = ? AND i.media_type = ? AND i.tmdb_id = ?
		ORDER BY c.name ASC
	`, userID, mediaType, tmdbID)
	if err != nil {
		return nil, fmt.Errorf("list collections containing title: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan collection id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection ids: %w", err)
	}
	return ids, nil
}

func collectionOwnedTx(tx *sql.Tx, userID, collectionID string) (bool, error) {
	var count int
	if err := tx.QueryRow(`SELECT COUNT(1) FROM collections WHERE id = ? AND user_id = ?`, collectionID, userID).Scan(&count); err != nil {
		return false, fmt.Errorf("check collection owner: %w", err)
	}
	return count > 0, nil
}

func scanCollectionItem(scanner interface{ Scan(dest ...any) error }) (*models.CollectionItem, error) {
	var item models.CollectionItem
	var posterPath, releaseDate sql.NullString
	if err := scanner.Scan(&item.ID, &item.CollectionID, &item.MediaType, &item.TMDBID, &item.Title, &posterPath, &releaseDate, &item.AddedAt); err != nil {
		return nil, err
	}
	item.PosterPath = nullableString(posterPath)
	item.ReleaseDate = nullableString(releaseDate)
	return &item, nil
}
