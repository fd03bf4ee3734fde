package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gabriel/media-catalog/internal/models"
	"github.com/google/uuid"
)

var (
	ErrSelfRequest      = errors.New("cannot send a friend request to yourself")
	ErrAlreadyFriends   = errors.New("users are already friends")
	ErrRequestPending   = errors.New("friend request already pending")
	ErrRequestNotFound  = errors.New("friend request not found")
	ErrRequestForbidden = errors.New("friend request belongs to another user")
	ErrRequestResolved  = errors.New("friend request is no longer pending")
	ErrUserNotFound     = errors.New("user not found")
)

type FriendRepository struct {
	db *sql.DB
}

func NewFriendRepository(db *sql.DB) *FriendRepository {
	return &FriendRepository{db: db}
}

const friendRequestSelect = `
	SELECT fr.id, fr.from_user_id, fu.display_name, fr.to_user_id, tu.display_name, fr.status, fr.created_at, fr.responded_at
	FROM friend_requests fr
	JOIN users fu ON fu.id = fr.from_user_id
	JOIN users tu ON tu.id = fr.to_user_id
`

// Send creates a pending request from fromID to toID. When toID already has a
// pending request to fromID, that request is accepted instead and returned.
func (r *FriendRepository) Send(fromID, toID string) (*models.FriendRequest, error) {
	if fromID == toID {
		return nil, ErrSelfRequest
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin send request tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(1) FROM users WHERE id = ?`, toID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check recipient: %w", err)
	}
	if exists == 0 {
		return nil, ErrUserNotFound
	}

	friends, err := areFriendsTx(tx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if friends {
		return nil, ErrAlreadyFriends
	}

	var pending int
	if err := tx.QueryRow(`
		SELECT COUNT(1) FROM friend_requests
		WHERE from_user_id = ? AND to_user_id = ? AND status = 'pending'
	`, fromID, toID).Scan(&pending); err != nil {
		return nil, fmt.Errorf("check pending request: %w", err)
	}
	if pending > 0 {
		return nil, ErrRequestPending
	}

	var reverseID string
	err = tx.QueryRow(`
		SELECT id FROM friend_requests
		WHERE from_user_id = ? AND to_user_id = ? AND status = 'pending'
		ORDER BY created_at ASC LIMIT 1
	`, toID, fromID).Scan(&reverseID)
	switch {
	case err == nil:
		if err := acceptTx(tx, reverseID, toID, fromID); err != nil {
			return nil, err
		}
		item, err := loadFriendRequestTx(tx, reverseID)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit send request tx: %w", err)
		}
		return item, nil
	case err != sql.ErrNoRows:
		return nil, fmt.Errorf("check reverse request: %w", err)
	}

	id := uuid.NewString()
	if _, err := tx.Exec(`
		INSERT INTO friend_requests (id, from_user_id, to_user_id, status)
		VALUES (?, ?, ?, 'pending')
	`, id, fromID, toID); err != nil {
		return nil, fmt.Errorf("insert friend request: %w", err)
	}

	item, err := loadFriendRequestTx(tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit send request tx: %w", err)
	}
	return item, nil
}

// Accept is allowed for the recipient of a pending request only.
func (r *FriendRepository) Accept(requestID, userID string) (*models.FriendRequest, error) {
	return r.respond(requestID, userID, models.FriendRequestAccepted)
}

// Decline is allowed for the recipient of a pending request only.
func (r *FriendRepository) Decline(requestID, userID string) (*models.FriendRequest, error) {
	return r.respond(requestID, userID, models.FriendRequestDeclined)
}

// Cancel is allowed for the sender of a pending request only.
func (r *FriendRepository) Cancel(requestID, userID string) (*models.FriendRequest, error) {
	return r.respond(requestID, userID, models.FriendRequestCancelled)
}

func (r *FriendRepository) respond(requestID, userID, status string) (*models.FriendRequest, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin respond tx: %w", err)
	}
	defer tx.Rollback()

	request, err := loadFriendRequestTx(tx, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ErrRequestNotFound
	}

	actor := request.ToUserID
	if status == models.FriendRequestCancelled {
		actor = request.FromUserID
	}
	if actor != userID {
		return nil, ErrRequestForbidden
	}
	if request.Status != models.FriendRequestPending {
		return nil, ErrRequestResolved
	}

	if status == models.FriendRequestAccepted {
		if err := acceptTx(tx, request.ID, request.FromUserID, request.ToUserID); err != nil {
			return nil, err
		}
	} else {
		if _, err := tx.Exec(`
			UPDATE friend_requests
			SET status = ?, responded_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, status, request.ID); err != nil {
			return nil, fmt.Errorf("update friend request: %w", err)
		}
	}

	updated, err := loadFriendRequestTx(tx, request.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit respond tx: %w", err)
	}
	return updated, nil
}

func (r *FriendRepository) Get(requestID string) (*models.FriendRequest, error) {
	row := r.db.QueryRow(friendRequestSelect+` WHERE fr.id = ?`, requestID)
	item, err := scanFriendRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get friend request: %w", err)
	}
	return item, nil
}

func (r *FriendRepository) ListIncoming(userID string) ([]models.FriendRequest, error) {
	return r.listRequests(friendRequestSelect+`
		WHERE fr.to_user_id = ? AND fr.status = 'pending'
		ORDER BY fr.created_at DESC, fr.id ASC
	`, userID)
}

func (r *FriendRepository) ListOutgoing(userID string) ([]models.FriendRequest, error) {
	return r.listRequests(friendRequestSelect+`
		WHERE fr.from_user_id = ? AND fr.status = 'pending'
		ORDER BY fr.created_at DESC, fr.id ASC
	`, userID)
}

func (r *FriendRepository) listRequests(query string, args ...any) ([]models.FriendRequest, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	defer rows.Close()

	items := make([]models.FriendRequest, 0)
	for rows.Next() {
		item, err := scanFriendRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friend requests: %w", err)
	}
	return items, nil
}

func (r *FriendRepository) ListFriends(userID string) ([]models.Friend, error) {
	rows, err := r.db.Query(`
		SELECT u.id, u.display_name, u.avatar_url, f.created_at
		FROM friendships f
		JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = ?
		ORDER BY LOWER(u.display_name) ASC, u.id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	items := make([]models.Friend, 0)
	for rows.Next() {
		var item models.Friend
		var avatar sql.NullString
		if err := rows.Scan(&item.ID, &item.DisplayName, &avatar, &item.Since); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		item.AvatarURL = nullableString(avatar)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friends: %w", err)
	}
	return items, nil
}

func (r *FriendRepository) AreFriends(userID, otherID string) (bool, error) {
	var count int
	if err := r.db.QueryRow(`
		SELECT COUNT(1) FROM friendships WHERE user_id = ? AND friend_id = ?
	`, userID, otherID).Scan(&count); err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}
	return count > 0, nil
}

// RemoveFriend deletes the friendship in both directions.
func (r *FriendRepository) RemoveFriend(userID, friendID string) (bool, error) {
	result, err := r.db.Exec(`
		DELETE FROM friendships
		WHERE (user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)
	`, userID, friendID, friendID, userID)
	if err != nil {
		return false, fmt.Errorf("delete friendship: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("friendship delete rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func areFriendsTx(tx *sql.Tx, userID, otherID string) (bool, error) {
	var count int
	if err := tx.QueryRow(`
		SELECT COUNT(1) FROM friendships WHERE user_id = ? AND friend_id = ?
	`, userID, otherID).Scan(&count); err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}
	return count > 0, nil
}

func acceptTx(tx *sql.Tx, requestID, fromID, toID string) error {
	if _, err := tx.Exec(`
		UPDATE friend_requests
		SET status = 'accepted', responded_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, requestID); err != nil {
		return fmt.Errorf("accept friend request: %w", err)
	}

	now := time.Now().UTC()
	for _, pair := range [][2]string{{fromID, toID}, {toID, fromID}} {
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO friendships (user_id, friend_id, created_at)
			VALUES (?, ?, ?)
		`, pair[0], pair[1], now); err != nil {
			return fmt.Errorf("insert friendship: %w", err)
		}
	}
	return nil
}

func loadFriendRequestTx(tx *sql.Tx, requestID string) (*models.FriendRequest, error) {
	row := tx.QueryRow(friendRequestSelect+` WHERE fr.id = ?`, requestID)
	item, err := scanFriendRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load friend request: %w", err)
	}
	return item, nil
}

func scanFriendRequest(scanner interface{ Scan(dest ...any) error }) (*models.FriendRequest, error) {
	var item models.FriendRequest
	var respondedAt sql.NullTime
	if err := scanner.Scan(&item.ID, &item.FromUserID, &item.FromName, &item.ToUserID, &item.ToName, &item.Status, &item.CreatedAt, &respondedAt); err != nil {
		return nil, err
	}
	if respondedAt.Valid {
		value := respondedAt.Time
		item.RespondedAt = &value
	}
	return &item, nil
}
