package database

import (
	"database/sql"
	"fmt"
	"strings"
)

func SeedDefaults(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}

	defaultSettings := []struct {
		key   string
		value string
	}{
		{key: "catalog_default_language", value: "en-US"},
		{key: "refresh_notify_on", value: "new_episodes"},
		{key: "link_allowed_providers", value: "doodstream,voe.sx,savefiles,vid-guard,streamup"},
	}

	for _, setting := range defaultSettings {
		_, err := tx.Exec(`
			INSERT OR IGNORE INTO settings (key, value)
			VALUES (?, ?)
		`, setting.key, setting.value)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("seed setting %s: %w", setting.key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}

	return nil
}

// PromoteAdmins grants the admin role to already registered users whose
// email is listed. Unknown emails are ignored.
func PromoteAdmins(db *sql.DB, emails []string) (int64, error) {
	var promoted int64
	for _, email := range emails {
		normalized := strings.ToLower(strings.TrimSpace(email))
		if normalized == "" {
			continue
		}
		result, err := db.Exec(`
			UPDATE users
			SET role = 'admin', updated_at = CURRENT_TIMESTAMP
			WHERE email = ? AND role <> 'admin'
		`, normalized)
		if err != nil {
			return promoted, fmt.Errorf("promote admin %s: %w", normalized, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return promoted, fmt.Errorf("promote admin rows affected: %w", err)
		}
		promoted += affected
	}
	return promoted, nil
}
