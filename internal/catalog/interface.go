package catalog

import (
	"context"
	"fmt"

	"github.com/Ackberry/cinetune/internal/domain"
)

// MovieCatalog is the movie-side upstream client.
type MovieCatalog interface {
	SearchMovies(ctx context.Context, query string) (*domain.MovieListResponse, error)
	TrendingMovies(ctx context.Context, window string) (*domain.MovieListResponse, error)
}

// MusicCatalog is the music-side upstream client.
type MusicCatalog interface {
	SearchTracks(ctx context.Context, query string) (*domain.TrackListResponse, error)
	TopTracks(ctx context.Context) (*domain.TrackListResponse, error)
}

// UpstreamError reports a non-2xx response from a catalog provider. The
// status code is surfaced to callers; the body is not.
type UpstreamError struct {
	Provider   string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream returned status %d", e.Provider, e.StatusCode)
}
