// Package cache provides a small byte-oriented cache used as the
// secondary tier for model artifacts and metadata. Backends are an
// in-process map and Redis; both share one interface so the registry
// does not care which is wired.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service defines the cache operations the registry relies on.
type Service interface {
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}
