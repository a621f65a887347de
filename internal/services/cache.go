package services

import (
	"context"
	"time"
)

// Cache stores generated media as data URL strings keyed by prompt hash.
// CachedGenerator is its only writer; the health check uses Ping.
type Cache interface {
	// Ping reports whether the backing store is reachable for /health.
	Ping(ctx context.Context) error

	// Set stores a data URL. A zero expiration keeps it until evicted.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Get returns the stored data URL. A missing key returns "" and no error.
	Get(ctx context.Context, key string) (string, error)

	// Del evicts entries whose payload no longer decodes.
	Del(ctx context.Context, keys ...string) error

	Close() error

	// WaitForConnection retries Ping a bounded number of times at startup.
	WaitForConnection(ctx context.Context) error
}
