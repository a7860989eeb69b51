package domain

import (
	"encoding/json"
	"time"
)

// MediaType distinguishes saved catalog items.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeMusic MediaType = "music"
)

// Valid reports whether the media type is one of the known kinds.
func (t MediaType) Valid() bool {
	return t == MediaTypeMovie || t == MediaTypeMusic
}

// LibraryItem is a catalog item saved to a user's library. Metadata is the
// denormalized display payload captured at save time, so the library renders
// without re-querying the catalog.
type LibraryItem struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	MediaType  MediaType       `json:"media_type"`
	ExternalID string          `json:"external_id"`
	Metadata   json.RawMessage `json:"metadata"`
	CreatedAt  time.Time       `json:"created_at"`
}

// MovieMetadata is the stored display payload for a saved movie.
type MovieMetadata struct {
	Title       string `json:"title"`
	PosterPath  string `json:"poster_path,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	Overview    string `json:"overview,omitempty"`
}

// MusicMetadata is the stored display payload for a saved track.
type MusicMetadata struct {
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// SaveLibraryItemRequest saves a catalog item to the caller's library.
type SaveLibraryItemRequest struct {
	MediaType  MediaType       `json:"media_type" binding:"required"`
	ExternalID string          `json:"external_id" binding:"required"`
	Metadata   json.RawMessage `json:"metadata" binding:"required"`
}

// LibraryResponse groups a user's saved items by media type.
type LibraryResponse struct {
	Movies []LibraryItem `json:"movies"`
	Music  []LibraryItem `json:"music"`
}
