package models

import "time"

const (
	MediaTypeMovie = "movie"
	MediaTypeTV    = "tv"

	RoleUser  = "user"
	RoleAdmin = "admin"

	FriendRequestPending   = "pending"
	FriendRequestAccepted  = "accepted"
	FriendRequestDeclined  = "declined"
	FriendRequestCancelled = "cancelled"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	AvatarURL    *string   `json:"avatarUrl,omitempty"`
	Bio          *string   `json:"bio,omitempty"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type PublicUser struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL}
}

// MediaRef identifies a TMDB title together with the display fields the UI
// needs without another metadata lookup.
type MediaRef struct {
	MediaType   string  `json:"mediaType"`
	TMDBID      int64   `json:"tmdbId"`
	Title       string  `json:"title"`
	PosterPath  *string `json:"posterPath,omitempty"`
	ReleaseDate *string `json:"releaseDate,omitempty"`
}

type Favorite struct {
	UserID string `json:"userId"`
	MediaRef
	CreatedAt time.Time `json:"createdAt"`
}

type Collection struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	IsPublic    bool      `json:"isPublic"`
	ItemCount   int       `json:"itemCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CollectionItem struct {
	ID           string `json:"id"`
	CollectionID string `json:"collectionId"`
	MediaRef
	AddedAt time.Time `json:"addedAt"`
}

type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	MediaType string    `json:"mediaType"`
	TMDBID    int64     `json:"tmdbId"`
	Rating    float64   `json:"rating"`
	Body      *string   `json:"body,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ReviewSummary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

type WatchedEpisode struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TMDBID    int64     `json:"tmdbId"`
	Season    int       `json:"season"`
	Episode   int       `json:"episode"`
	WatchedAt time.Time `json:"watchedAt"`
}

type SeasonProgress struct {
	Season  int `json:"season"`
	Watched int `json:"watched"`
}

// Episode is the document that owns streaming links. Movies use the same
// document shape with Season and Episode left nil.
type Episode struct {
	ID        string          `json:"id"`
	MediaType string          `json:"mediaType"`
	TMDBID    int64           `json:"tmdbId"`
	Season    *int            `json:"season,omitempty"`
	Episode   *int            `json:"episode,omitempty"`
	Title     *string         `json:"title,omitempty"`
	Links     []StreamingLink `json:"links"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type StreamingLink struct {
	ID        string    `json:"id"`
	EpisodeID string    `json:"episodeId"`
	URL       string    `json:"url"`
	Provider  *string   `json:"provider,omitempty"`
	Quality   *string   `json:"quality,omitempty"`
	Language  *string   `json:"language,omitempty"`
	AddedBy   string    `json:"addedBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type FriendRequest struct {
	ID          string     `json:"id"`
	FromUserID  string     `json:"fromUserId"`
	FromName    string     `json:"fromName,omitempty"`
	ToUserID    string     `json:"toUserId"`
	ToName      string     `json:"toName,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
}

type Friend struct {
	PublicUser
	Since time.Time `json:"since"`
}

type SeriesProgress struct {
	TMDBID           int64      `json:"tmdbId"`
	Name             string     `json:"name"`
	Status           string     `json:"status"`
	NumberOfSeasons  int        `json:"numberOfSeasons"`
	NumberOfEpisodes int        `json:"numberOfEpisodes"`
	LastAirDate      *string    `json:"lastAirDate,omitempty"`
	NextAirDate      *string    `json:"nextAirDate,omitempty"`
	CheckedAt        time.Time  `json:"checkedAt"`
	ChangedAt        *time.Time `json:"changedAt,omitempty"`
}

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Page[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

func NewPage[T any](items []T, total, limit, offset int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+len(items) < total,
	}
}
