package cache

import (
	"context"
	"time"
)

// CatalogCache caches upstream catalog responses as raw JSON. Movie and
// track payloads share one cache; callers own the encoding.
type CatalogCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
