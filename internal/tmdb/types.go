package tmdb

import (
	"strconv"
	"strings"
)

type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Result is one entry of a list endpoint. Movie entries carry Title and
// ReleaseDate, tv entries Name and FirstAirDate.
type Result struct {
	ID           int64   `json:"id"`
	MediaType    string  `json:"media_type,omitempty"`
	Title        string  `json:"title,omitempty"`
	Name         string  `json:"name,omitempty"`
	Overview     string  `json:"overview,omitempty"`
	PosterPath   *string `json:"poster_path"`
	BackdropPath *string `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	Popularity   float64 `json:"popularity"`
	GenreIDs     []int64 `json:"genre_ids,omitempty"`
}

func (r Result) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

func (r Result) Date() string {
	if r.ReleaseDate != "" {
		return r.ReleaseDate
	}
	return r.FirstAirDate
}

// Key identifies a result across pages.
func (r Result) Key() string {
	return ResultKey(r.MediaType, r.ID)
}

func ResultKey(mediaType string, id int64) string {
	return mediaType + ":" + strconv.FormatInt(id, 10)
}

// ParseSeen reads a comma separated `type:id` list.
func ParseSeen(raw string) map[string]struct{} {
	seen := map[string]struct{}{}
	for _, part := range strings.Split(raw, ",") {
		mediaType, id, found := strings.Cut(strings.TrimSpace(part), ":")
		if !found {
			continue
		}
		parsed, err := strconv.ParseInt(id, 10, 64)
		if err != nil || parsed <= 0 {
			continue
		}
		seen[ResultKey(strings.ToLower(mediaType), parsed)] = struct{}{}
	}
	return seen
}

type Page struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

func (p Page) HasMore() bool {
	return p.Page < p.TotalPages
}

type Movie struct {
	ID           int64   `json:"id"`
	IMDbID       *string `json:"imdb_id"`
	Title        string  `json:"title"`
	Tagline      string  `json:"tagline,omitempty"`
	Overview     string  `json:"overview"`
	PosterPath   *string `json:"poster_path"`
	BackdropPath *string `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	Runtime      int     `json:"runtime"`
	Status       string  `json:"status"`
	Genres       []Genre `json:"genres"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
}

type EpisodeSummary struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview,omitempty"`
	SeasonNumber  int     `json:"season_number"`
	EpisodeNumber int     `json:"episode_number"`
	AirDate       *string `json:"air_date"`
	StillPath     *string `json:"still_path"`
	Runtime       *int    `json:"runtime"`
	VoteAverage   float64 `json:"vote_average"`
}

type SeasonSummary struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	SeasonNumber int     `json:"season_number"`
	EpisodeCount int     `json:"episode_count"`
	AirDate      *string `json:"air_date"`
	PosterPath   *string `json:"poster_path"`
}

type TV struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Tagline          string          `json:"tagline,omitempty"`
	Overview         string          `json:"overview"`
	PosterPath       *string         `json:"poster_path"`
	BackdropPath     *string         `json:"backdrop_path"`
	FirstAirDate     string          `json:"first_air_date"`
	LastAirDate      *string         `json:"last_air_date"`
	Status           string          `json:"status"`
	InProduction     bool            `json:"in_production"`
	NumberOfSeasons  int             `json:"number_of_seasons"`
	NumberOfEpisodes int             `json:"number_of_episodes"`
	Seasons          []SeasonSummary `json:"seasons"`
	Genres           []Genre         `json:"genres"`
	NextEpisodeToAir *EpisodeSummary `json:"next_episode_to_air"`
	LastEpisodeToAir *EpisodeSummary `json:"last_episode_to_air"`
	VoteAverage      float64         `json:"vote_average"`
	VoteCount        int             `json:"vote_count"`
}

type Season struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	Overview     string           `json:"overview"`
	SeasonNumber int              `json:"season_number"`
	AirDate      *string          `json:"air_date"`
	PosterPath   *string          `json:"poster_path"`
	Episodes     []EpisodeSummary `json:"episodes"`
}

type genreList struct {
	Genres []Genre `json:"genres"`
}

type errorBody struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}
