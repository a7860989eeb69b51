package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Ackberry/cinetune/internal/domain"
)

const (
	TrendingWindowDay  = "day"
	TrendingWindowWeek = "week"
)

// TMDBClient is the movie catalog client. Authentication is a static bearer
// token sent on every request.
type TMDBClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewTMDBClient creates a TMDB client. baseURL is configurable so tests can
// point it at a local server.
func NewTMDBClient(baseURL, token string) *TMDBClient {
	return &TMDBClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SearchMovies searches the movie catalog. An empty query returns an empty
// result page without hitting the upstream.
func (c *TMDBClient) SearchMovies(ctx context.Context, query string) (*domain.MovieListResponse, error) {
	if query == "" {
		return &domain.MovieListResponse{Results: []domain.Movie{}}, nil
	}

	endpoint := fmt.Sprintf("%s/search/movie?query=%s", c.baseURL, url.QueryEscape(query))
	return c.fetchMovies(ctx, endpoint)
}

// TrendingMovies fetches the trending page for the given window. Anything
// other than "day" falls back to "week".
func (c *TMDBClient) TrendingMovies(ctx context.Context, window string) (*domain.MovieListResponse, error) {
	if window != TrendingWindowDay {
		window = TrendingWindowWeek
	}

	endpoint := fmt.Sprintf("%s/trending/movie/%s", c.baseURL, window)
	return c.fetchMovies(ctx, endpoint)
}

func (c *TMDBClient) fetchMovies(ctx context.Context, endpoint string) (*domain.MovieListResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build tmdb request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach tmdb: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Provider: "tmdb", StatusCode: resp.StatusCode}
	}

	var result domain.MovieListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode tmdb response: %w", err)
	}
	if result.Results == nil {
		result.Results = []domain.Movie{}
	}

	return &result, nil
}
