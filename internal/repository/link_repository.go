package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/gabriel/media-catalog/internal/models"
	"github.com/google/uuid"
)

type LinkRepository struct {
	db *sql.DB
}

func NewLinkRepository(db *sql.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// EpisodeTarget addresses the document links hang off. Season and Episode are
// nil for movies.
type EpisodeTarget struct {
	MediaType string
	TMDBID    int64
	Season    *int
	Episode   *int
	Title     *string
}

// DocumentID is `{tmdbId}_s{season}_e{episode}` for episodes and `{tmdbId}`
// for movies.
func (t EpisodeTarget) DocumentID() string {
	if t.MediaType == models.MediaTypeMovie || t.Season == nil || t.Episode == nil {
		return fmt.Sprintf("%d", t.TMDBID)
	}
	return EpisodeDocumentID(t.TMDBID, *t.Season, *t.Episode)
}

func EpisodeDocumentID(tmdbID int64, season, episode int) string {
	return fmt.Sprintf("%d_s%d_e%d", tmdbID, season, episode)
}

type LinkInput struct {
	URL      string
	Provider *string
	Quality  *string
	Language *string
}

type AddLinksResult struct {
	Episode *models.Episode `json:"episode"`
	Added   int             `json:"added"`
	Updated int             `json:"updated"`
}

// AddLinks creates the episode document on first use and merges links by URL:
// a URL already present keeps its id and gets the new provider, quality and
// language.
func (r *LinkRepository) AddLinks(target EpisodeTarget, links []LinkInput, addedBy string) (*AddLinksResult, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin add links tx: %w", err)
	}
	defer tx.Rollback()

	if target.MediaType == models.MediaTypeMovie {
		target.Season, target.Episode = nil, nil
	}
	documentID := target.DocumentID()
	_, err = tx.Exec(`
		INSERT INTO episodes (id, media_type, tmdb_id, season, episode, title)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = COALESCE(excluded.title, episodes.title),
			updated_at = CURRENT_TIMESTAMP
	`, documentID, target.MediaType, target.TMDBID, target.Season, target.Episode, trimmedOrNil(target.Title))
	if err != nil {
		return nil, fmt.Errorf("upsert episode document: %w", err)
	}

	result := &AddLinksResult{}
	for _, link := range links {
		url := strings.TrimSpace(link.URL)
		if url == "" {
			continue
		}

		var existingID string
		err := tx.QueryRow(`SELECT id FROM streaming_links WHERE episode_id = ? AND url = ?`, documentID, url).Scan(&existingID)
		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.Exec(`
				INSERT INTO streaming_links (id, episode_id, url, provider, quality, language, added_by)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, uuid.NewString(), documentID, url, trimmedOrNil(link.Provider), trimmedOrNil(link.Quality), trimmedOrNil(link.Language), addedBy); err != nil {
				return nil, fmt.Errorf("insert streaming link: %w", err)
			}
			result.Added++
		case err != nil:
			return nil, fmt.Errorf("lookup streaming link: %w", err)
		default:
			if _, err := tx.Exec(`
				UPDATE streaming_links
				SET provider = COALESCE(?, provider),
					quality = COALESCE(?, quality),
					language = COALESCE(?, language),
					updated_at = CURRENT_TIMESTAMP
				WHERE id = ?
			`, trimmedOrNil(link.Provider), trimmedOrNil(link.Quality), trimmedOrNil(link.Language), existingID); err != nil {
				return nil, fmt.Errorf("update streaming link: %w", err)
			}
			result.Updated++
		}
	}

	episode, err := loadEpisode(tx, documentID)
	if err != nil {
		return nil, err
	}

	if len(episode.Links) == 0 {
		if _, err := tx.Exec(`DELETE FROM episodes WHERE id = ?`, documentID); err != nil {
			return nil, fmt.Errorf("drop empty episode document: %w", err)
		}
		episode = nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add links tx: %w", err)
	}

	result.Episode = episode
	return result, nil
}

// DeleteLink removes one link. When it was the last link of its episode
// document, the document goes too. The boolean pair reports whether the link
// existed and whether the document was removed.
func (r *LinkRepository) DeleteLink(linkID string) (bool, bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, false, fmt.Errorf("begin delete link tx: %w", err)
	}
	defer tx.Rollback()

	var episodeID string
	err = tx.QueryRow(`SELECT episode_id FROM streaming_links WHERE id = ?`, linkID).Scan(&episodeID)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("lookup streaming link: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM streaming_links WHERE id = ?`, linkID); err != nil {
		return false, false, fmt.Errorf("delete streaming link: %w", err)
	}

	var remaining int
	if err := tx.QueryRow(`SELECT COUNT(1) FROM streaming_links WHERE episode_id = ?`, episodeID).Scan(&remaining); err != nil {
		return false, false, fmt.Errorf("count remaining links: %w", err)
	}

	documentRemoved := false
	if remaining == 0 {
		if _, err := tx.Exec(`DELETE FROM episodes WHERE id = ?`, episodeID); err != nil {
			return false, false, fmt.Errorf("delete episode document: %w", err)
		}
		documentRemoved = true
	}

	if err := tx.Commit(); err != nil {
		return false, false, fmt.Errorf("commit delete link tx: %w", err)
	}
	return true, documentRemoved, nil
}

// GetEpisode returns the document with its links, or nil when no link exists.
func (r *LinkRepository) GetEpisode(target EpisodeTarget) (*models.Episode, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin get episode tx: %w", err)
	}
	defer tx.Rollback()

	episode, err := loadEpisode(tx, target.DocumentID())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return episode, nil
}

// ListEpisodesWithLinks returns every episode document of a series that has at
// least one link, optionally narrowed to one season.
func (r *LinkRepository) ListEpisodesWithLinks(tmdbID int64, season *int) ([]models.Episode, error) {
	query := `
		SELECT e.id, e.media_type, e.tmdb_id, e.season, e.episode, e.title, e.created_at, e.updated_at,
			l.id, l.episode_id, l.url, l.provider, l.quality, l.language, l.added_by, l.created_at, l.updated_at
		FROM episodes e
		JOIN streaming_links l ON l.episode_id = e.id
		WHERE e.media_type = 'tv' AND e.tmdb_id = ?`
	args := []any{tmdbID}
	if season != nil {
		query += ` AND e.season = ?`
		args = append(args, *season)
	}
	query += ` ORDER BY e.season ASC, e.episode ASC, l.created_at ASC, l.id ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list episodes with links: %w", err)
	}
	defer rows.Close()

	items := make([]models.Episode, 0)
	indexByID := map[string]int{}
	for rows.Next() {
		var episode models.Episode
		var link models.StreamingLink
		var seasonValue, episodeValue sql.NullInt64
		var title, provider, quality, language sql.NullString
		if err := rows.Scan(
			&episode.ID, &episode.MediaType, &episode.TMDBID, &seasonValue, &episodeValue, &title, &episode.CreatedAt, &episode.UpdatedAt,
			&link.ID, &link.EpisodeID, &link.URL, &provider, &quality, &language, &link.AddedBy, &link.CreatedAt, &link.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan episode link: %w", err)
		}
		link.Provider = nullableString(provider)
		link.Quality = nullableString(quality)
		link.Language = nullableString(language)

		index, ok := indexByID[episode.ID]
		if !ok {
			episode.Season = nullableInt(seasonValue)
			episode.Episode = nullableInt(episodeValue)
			episode.Title = nullableString(title)
			episode.Links = make([]models.StreamingLink, 0, 1)
			items = append(items, episode)
			index = len(items) - 1
			indexByID[episode.ID] = index
		}
		items[index].Links = append(items[index].Links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate episode links: %w", err)
	}
	return items, nil
}

func loadEpisode(tx *sql.Tx, documentID string) (*models.Episode, error) {
	var episode models.Episode
	var season, episodeNumber sql.NullInt64
	var title sql.NullString
	err := tx.QueryRow(`
		SELECT id, media_type, tmdb_id, season, episode, title, created_at, updated_at
		FROM episodes WHERE id = ?
	`, documentID).Scan(&episode.ID, &episode.MediaType, &episode.TMDBID, &season, &episodeNumber, &title, &episode.CreatedAt, &episode.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("load episode document: %w", err)
	}
	episode.Season = nullableInt(season)
	episode.Episode = nullableInt(episodeNumber)
	episode.Title = nullableString(title)

	rows, err := tx.Query(`
		SELECT id, episode_id, url, provider, quality, language, added_by, created_at, updated_at
		FROM streaming_links
		WHERE episode_id = ?
		ORDER BY created_at ASC, id ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list streaming links: %w", err)
	}
	defer rows.Close()

	episode.Links = make([]models.StreamingLink, 0)
	for rows.Next() {
		var link models.StreamingLink
		var provider, quality, language sql.NullString
		if err := rows.Scan(&link.ID, &link.EpisodeID, &link.URL, &provider, &quality, &language, &link.AddedBy, &link.CreatedAt, &link.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan streaming link: %w", err)
		}
		link.Provider = nullableString(provider)
		link.Quality = nullableString(quality)
		link.Language = nullableString(language)
		episode.Links = append(episode.Links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate streaming links: %w", err)
	}
	return &episode, nil
}
