package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newSpotifyTestServer(t *testing.T, tokenCalls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			atomic.AddInt32(tokenCalls, 1)
			user, pass, ok := r.BasicAuth()
			if !ok || user != "client-id" || pass != "client-secret" {
				t.Errorf("expected basic auth credentials, got %q/%q", user, pass)
			}
			if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
				t.Errorf("expected client_credentials grant, got %v", r.PostForm)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"spotify-token","expires_in":3600}`))

		case "/search":
			if got := r.Header.Get("Authorization"); got != "Bearer spotify-token" {
				t.Errorf("expected bearer token, got %q", got)
			}
			if got := r.URL.Query().Get("limit"); got != "20" {
				t.Errorf("expected limit 20, got %q", got)
			}
			w.Write([]byte(`{"tracks":{"items":[{"id":"t1","name":"Song","artists":[{"name":"A"},{"name":"B"}],"album":{"name":"Album","images":[{"url":"http://img/1.jpg"}]},"preview_url":"http://preview/1"}]}}`))

		case "/playlists/37i9dQZEVXbMDoHDwVN2tF/tracks":
			if got := r.URL.Query().Get("limit"); got != "10" {
				t.Errorf("expected limit 10, got %q", got)
			}
			w.Write([]byte(`{"items":[{"track":{"id":"p1","name":"Top","artists":[{"name":"C"}],"album":{"name":"Hits"}}},{"track":{"id":"","name":"local file"}}]}`))

		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestSpotifySearchTracks(t *testing.T) {
	var tokenCalls int32
	server := newSpotifyTestServer(t, &tokenCalls)
	defer server.Close()

	client := NewSpotifyClient(server.URL+"/token", server.URL, "client-id", "client-secret")
	result, err := client.SearchTracks(context.Background(), "song")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if len(result.Tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(result.Tracks))
	}
	track := result.Tracks[0]
	if track.ID != "t1" || track.Name != "Song" {
		t.Errorf("unexpected track %+v", track)
	}
	if track.Artist != "A, B" {
		t.Errorf("expected joined artist names, got %q", track.Artist)
	}
	if track.Album != "Album" || track.ImageURL != "http://img/1.jpg" {
		t.Errorf("unexpected album fields %+v", track)
	}
}

func TestSpotifyTokenIsCached(t *testing.T) {
	var tokenCalls int32
	server := newSpotifyTestServer(t, &tokenCalls)
	defer server.Close()

	client := NewSpotifyClient(server.URL+"/token", server.URL, "client-id", "client-secret")

	for i := 0; i < 3; i++ {
		if _, err := client.SearchTracks(context.Background(), "song"); err != nil {
			t.Fatalf("search failed: %v", err)
		}
	}

	if got := atomic.LoadInt32(&tokenCalls); got != 1 {
		t.Errorf("expected 1 token exchange for 3 searches, got %d", got)
	}
}

func TestSpotifyTopTracksSkipsUnplayableEntries(t *testing.T) {
	var tokenCalls int32
	server := newSpotifyTestServer(t, &tokenCalls)
	defer server.Close()

	client := NewSpotifyClient(server.URL+"/token", server.URL, "client-id", "client-secret")
	result, err := client.TopTracks(context.Background())
	if err != nil {
		t.Fatalf("top tracks failed: %v", err)
	}

	if len(result.Tracks) != 1 {
		t.Fatalf("expected 1 track after skipping empty id, got %d", len(result.Tracks))
	}
	if result.Tracks[0].ID != "p1" || result.Tracks[0].Artist != "C" {
		t.Errorf("unexpected track %+v", result.Tracks[0])
	}
}

func TestSpotifySearchEmptyQuerySkipsUpstream(t *testing.T) {
	var tokenCalls int32
	server := newSpotifyTestServer(t, &tokenCalls)
	defer server.Close()

	client := NewSpotifyClient(server.URL+"/token", server.URL, "client-id", "client-secret")
	result, err := client.SearchTracks(context.Background(), "")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(result.Tracks) != 0 {
		t.Errorf("expected no tracks, got %d", len(result.Tracks))
	}
	if got := atomic.LoadInt32(&tokenCalls); got != 0 {
		t.Errorf("expected no token exchange for empty query, got %d", got)
	}
}
