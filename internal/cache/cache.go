// Package cache stores detail-page attribute maps between runs.
package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/IshaanNene/PriceHound/internal/config"
)

// ErrMiss is returned by Get when the key is not cached.
var ErrMiss = errors.New("cache miss")

// CacheService represents a generic byte cache.
type CacheService interface {
	// Get retrieves a value from the cache.
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time.
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache.
	Delete(key string) error
}

// New creates the cache selected by cfg.Type. It returns nil for "none".
func New(cfg *config.CacheConfig) (CacheService, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryService(), nil
	case "memcache":
		return NewMemcacheService(cfg.Servers...), nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}
