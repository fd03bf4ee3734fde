package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel/media-catalog/internal/models"
	"github.com/google/uuid"
)

var ErrEmailTaken = errors.New("email already registered")

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, display_name, avatar_url, bio, role, password_hash, created_at, updated_at`

func scanUser(scanner interface{ Scan(dest ...any) error }) (*models.User, error) {
	var item models.User
	var avatarURL, bio sql.NullString
	if err := scanner.Scan(&item.ID, &item.Email, &item.DisplayName, &avatarURL, &bio, &item.Role, &item.PasswordHash, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.AvatarURL = nullableString(avatarURL)
	item.Bio = nullableString(bio)
	return &item, nil
}

func (r *UserRepository) Create(email, displayName, passwordHash, role string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if role == "" {
		role = models.RoleUser
	}

	var count int
	if err := r.db.QueryRow(`SELECT COUNT(1) FROM users WHERE email = ?`, email).Scan(&count); err != nil {
		return nil, fmt.Errorf("check user email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	id := uuid.NewString()
	_, err := r.db.Exec(`
		INSERT INTO users (id, email, display_name, role, password_hash)
		VALUES (?, ?, ?, ?, ?)
	`, id, email, strings.TrimSpace(displayName), role, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return r.GetByID(id)
}

func (r *UserRepository) GetByID(id string) (*models.User, error) {
	row := r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	item, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return item, nil
}

func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	row := r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
	item, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return item, nil
}

// Search matches display names by prefix, case-insensitively, and never
// returns the requesting user.
func (r *UserRepository) Search(query string, excludeID string, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	like := escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"

	rows, err := r.db.Query(`
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(display_name) LIKE ? ESCAPE '\' AND id <> ?
		ORDER BY display_name ASC, id ASC
		LIMIT ?
	`, like, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	items := make([]models.User, 0)
	for rows.Next() {
		item, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return items, nil
}

func (r *UserRepository) UpdateProfile(id string, displayName string, avatarURL *string, bio *string) (*models.User, error) {
	result, err := r.db.Exec(`
		UPDATE users
		SET display_name = ?, avatar_url = ?, bio = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, strings.TrimSpace(displayName), avatarURL, bio, id)
	if err != nil {
		return nil, fmt.Errorf("update user profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("user profile rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil
	}
	return r.GetByID(id)
}

// SetRole reports false only when no user has id; setting the current role
// again still counts as a match.
func (r *UserRepository) SetRole(id string, role string) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE users
		SET role = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, role, id)
	if err != nil {
		return false, fmt.Errorf("set user role: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("user role rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}
