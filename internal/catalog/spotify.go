package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Ackberry/cinetune/internal/domain"
)

// topTracksPlaylistID is the global top-50 playlist the home page features.
const topTracksPlaylistID = "37i9dQZEVXbMDoHDwVN2tF"

// SpotifyClient is the music catalog client. Access tokens come from the
// client-credentials flow and are cached until shortly before expiry.
type SpotifyClient struct {
	clientID     string
	clientSecret string
	tokenURL     string
	apiURL       string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewSpotifyClient creates a Spotify client. Both URLs are configurable so
// tests can point them at a local server.
func NewSpotifyClient(tokenURL, apiURL, clientID, clientSecret string) *SpotifyClient {
	return &SpotifyClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
		apiURL:       apiURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type spotifyTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// track is the wire shape Spotify returns for one track.
type spotifyTrack struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
	PreviewURL string `json:"preview_url"`
}

func (t *spotifyTrack) toDomain() domain.Track {
	track := domain.Track{
		ID:         t.ID,
		Name:       t.Name,
		Album:      t.Album.Name,
		PreviewURL: t.PreviewURL,
	}
	if len(t.Artists) > 0 {
		names := make([]string, len(t.Artists))
		for i, artist := range t.Artists {
			names[i] = artist.Name
		}
		track.Artist = strings.Join(names, ", ")
	}
	if len(t.Album.Images) > 0 {
		track.ImageURL = t.Album.Images[0].URL
	}
	return track
}

// token returns a valid access token, exchanging client credentials when the
// cached one is missing or about to expire.
func (c *SpotifyClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build spotify token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach spotify token endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UpstreamError{Provider: "spotify", StatusCode: resp.StatusCode}
	}

	var tokenResp spotifyTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode spotify token response: %w", err)
	}

	c.accessToken = tokenResp.AccessToken
	// Refresh a minute early rather than race the expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - time.Minute)

	return c.accessToken, nil
}

// SearchTracks searches the track catalog. An empty query returns an empty
// result page without hitting the upstream.
func (c *SpotifyClient) SearchTracks(ctx context.Context, query string) (*domain.TrackListResponse, error) {
	if query == "" {
		return &domain.TrackListResponse{Tracks: []domain.Track{}}, nil
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/search?q=%s&type=track&limit=20", c.apiURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build spotify search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach spotify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Provider: "spotify", StatusCode: resp.StatusCode}
	}

	var wire struct {
		Tracks struct {
			Items []spotifyTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode spotify search response: %w", err)
	}

	tracks := make([]domain.Track, len(wire.Tracks.Items))
	for i := range wire.Tracks.Items {
		tracks[i] = wire.Tracks.Items[i].toDomain()
	}

	return &domain.TrackListResponse{Tracks: tracks}, nil
}

// TopTracks fetches the first ten tracks of the featured playlist.
func (c *SpotifyClient) TopTracks(ctx context.Context) (*domain.TrackListResponse, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/playlists/%s/tracks?limit=10", c.apiURL, topTracksPlaylistID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build spotify playlist request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach spotify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Provider: "spotify", StatusCode: resp.StatusCode}
	}

	var wire struct {
		Items []struct {
			Track spotifyTrack `json:"track"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode spotify playlist response: %w", err)
	}

	tracks := make([]domain.Track, 0, len(wire.Items))
	for i := range wire.Items {
		if wire.Items[i].Track.ID == "" {
			continue
		}
		tracks = append(tracks, wire.Items[i].Track.toDomain())
	}

	return &domain.TrackListResponse{Tracks: tracks}, nil
}
