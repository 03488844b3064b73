// Package cache stores serialized render models and fetched datasets.
//
// A [Cache] is a plain byte store with per-entry TTL. Three backends exist:
//
//   - [FileCache]: one JSON file per entry, used by the CLI
//   - [RedisCache]: shared cache for the HTTP server
//   - [NullCache]: never stores anything
//
// Keys are produced by a [Keyer] so every component agrees on the layout of
// the key space.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiration.
type Cache interface {
	// Get returns the entry for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Default TTLs.
const (
	DefaultRenderTTL  = 24 * time.Hour
	DefaultDatasetTTL = time.Hour
)
