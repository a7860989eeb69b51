package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTMDBSearchMovies(t *testing.T) {
	var gotAuth, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/movie" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("query")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"id":27205,"title":"Inception","poster_path":"/poster.jpg","release_date":"2010-07-16","vote_average":8.4}]}`))
	}))
	defer server.Close()

	client := NewTMDBClient(server.URL, "test-token")
	result, err := client.SearchMovies(context.Background(), "inception")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("expected bearer token header, got %q", gotAuth)
	}
	if gotQuery != "inception" {
		t.Errorf("expected query param, got %q", gotQuery)
	}
	if len(result.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(result.Results))
	}
	if result.Results[0].Title != "Inception" || result.Results[0].ID != 27205 {
		t.Errorf("unexpected result %+v", result.Results[0])
	}
}

func TestTMDBSearchMoviesEmptyQuerySkipsUpstream(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewTMDBClient(server.URL, "test-token")
	result, err := client.SearchMovies(context.Background(), "")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if called {
		t.Error("expected no upstream call for empty query")
	}
	if len(result.Results) != 0 {
		t.Errorf("expected empty results, got %d", len(result.Results))
	}
}

func TestTMDBTrendingWindowFallback(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client := NewTMDBClient(server.URL, "test-token")

	if _, err := client.TrendingMovies(context.Background(), "day"); err != nil {
		t.Fatalf("trending failed: %v", err)
	}
	if gotPath != "/trending/movie/day" {
		t.Errorf("expected day window, got %s", gotPath)
	}

	if _, err := client.TrendingMovies(context.Background(), "month"); err != nil {
		t.Fatalf("trending failed: %v", err)
	}
	if gotPath != "/trending/movie/week" {
		t.Errorf("expected fallback to week, got %s", gotPath)
	}
}

func TestTMDBUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewTMDBClient(server.URL, "test-token")
	_, err := client.SearchMovies(context.Background(), "anything")

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusTooManyRequests || upstream.Provider != "tmdb" {
		t.Errorf("unexpected upstream error %+v", upstream)
	}
}
