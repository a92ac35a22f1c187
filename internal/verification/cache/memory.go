// Package cache stores successful verification results by fingerprint.
// Entries are checked against their TTL on every read and evicted lazily.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"trustboard/internal/verification/models"
	"trustboard/pkg/platform/sentinel"
)

// ErrNotFound is returned on a miss, including expired and corrupted entries.
var ErrNotFound = sentinel.ErrNotFound

var errInvalidTTL = errors.New("cache ttl must be positive")

// MemoryCache is an in-process ResultCache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]models.CacheEntry
	clock   func() time.Time
}

type Option func(*MemoryCache)

// WithClock injects the time source used for TTL checks.
func WithClock(clock func() time.Time) Option {
	return func(c *MemoryCache) { c.clock = clock }
}

func NewMemory(opts ...Option) *MemoryCache {
	c := &MemoryCache{entries: make(map[string]models.CacheEntry), clock: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the cached result.
func (c *MemoryCache) Get(_ context.Context, key string) (*models.VerificationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.Valid(key) || entry.Expired(c.clock()) {
		delete(c.entries, key)
		return nil, ErrNotFound
	}
	return entry.Result.Clone(), nil
}

// Set stores a copy of result under key for ttl.
func (c *MemoryCache) Set(_ context.Context, key string, result *models.VerificationResult, ttl time.Duration) error {
	if ttl <= 0 {
		return errInvalidTTL
	}
	if result == nil {
		return errors.New("cache result is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = models.CacheEntry{
		Key:      key,
		Result:   result.Clone(),
		StoredAt: c.clock(),
		TTL:      ttl,
	}
	return nil
}

// Len reports how many entries are held, including expired ones not yet read.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
