package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Ackberry/cinetune/internal/cache"
	"github.com/Ackberry/cinetune/internal/catalog"
	"github.com/Ackberry/cinetune/internal/domain"
	"github.com/Ackberry/cinetune/pkg/log"
)

// catalogServiceImpl fronts the upstream catalogs with a Redis cache and
// singleflight so a burst of identical queries costs one upstream call.
type catalogServiceImpl struct {
	movies   catalog.MovieCatalog
	music    catalog.MusicCatalog
	cache    *cache.RedisCatalogCache
	cacheTTL time.Duration
	sf       singleflight.Group
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(movies catalog.MovieCatalog, music catalog.MusicCatalog, catalogCache *cache.RedisCatalogCache, cacheTTL time.Duration) CatalogService {
	return &catalogServiceImpl{
		movies:   movies,
		music:    music,
		cache:    catalogCache,
		cacheTTL: cacheTTL,
	}
}

func (s *catalogServiceImpl) SearchMovies(ctx context.Context, query string) (*domain.MovieListResponse, error) {
	if query == "" {
		return &domain.MovieListResponse{Results: []domain.Movie{}}, nil
	}

	key := s.cache.BuildKey("tmdb", "search", query)
	var resp domain.MovieListResponse
	err := s.cached(ctx, key, &resp, func() (interface{}, error) {
		return s.movies.SearchMovies(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *catalogServiceImpl) TrendingMovies(ctx context.Context, window string) (*domain.MovieListResponse, error) {
	if window != catalog.TrendingWindowDay {
		window = catalog.TrendingWindowWeek
	}

	key := s.cache.BuildKey("tmdb", "trending", window)
	var resp domain.MovieListResponse
	err := s.cached(ctx, key, &resp, func() (interface{}, error) {
		return s.movies.TrendingMovies(ctx, window)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *catalogServiceImpl) SearchTracks(ctx context.Context, query string) (*domain.TrackListResponse, error) {
	if query == "" {
		return &domain.TrackListResponse{Tracks: []domain.Track{}}, nil
	}

	key := s.cache.BuildKey("spotify", "search", query)
	var resp domain.TrackListResponse
	err := s.cached(ctx, key, &resp, func() (interface{}, error) {
		return s.music.SearchTracks(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *catalogServiceImpl) TopTracks(ctx context.Context) (*domain.TrackListResponse, error) {
	key := s.cache.BuildKey("spotify", "top-tracks", "")
	var resp domain.TrackListResponse
	err := s.cached(ctx, key, &resp, func() (interface{}, error) {
		return s.music.TopTracks(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// cached runs fetch behind the cache and singleflight, decoding the result
// into out. Cache errors other than a miss are logged and treated as misses.
func (s *catalogServiceImpl) cached(ctx context.Context, key string, out interface{}, fetch func() (interface{}, error)) error {
	data, err, _ := s.sf.Do(key, func() (interface{}, error) {
		cached, err := s.cache.Get(ctx, key)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str("key", key).Msg("cache get error")
		}

		result, err := fetch()
		if err != nil {
			return nil, err
		}

		encoded, err := json.Marshal(result)
		if err != nil {
			return nil, err
		}

		s.asyncCacheSet(key, encoded)

		return encoded, nil
	})
	if err != nil {
		return err
	}

	return json.Unmarshal(data.([]byte), out)
}

func (s *catalogServiceImpl) asyncCacheSet(key string, data []byte) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
			l := log.L()
			l.Warn().Err(err).Str("key", key).Msg("cache set error")
		}
	}()
}
