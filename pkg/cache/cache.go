// Package cache stores computed layouts keyed by the structure of the
// filtered graph and the options that produced them.
//
// [LRU] is the in-process tier used by every engine. [Redis] is an optional
// shared tier, combined with the LRU through [Tiered] so that several
// processes can reuse each other's results. [NullCache] disables caching.
//
// Values are opaque byte slices. Implementations copy them on the way in and
// out, so callers may reuse or mutate their buffers.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is reported
	// as (nil, false, nil); an error means the lookup itself failed.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A non-positive ttl selects the cache's
	// default expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear removes every entry owned by the cache.
	Clear(ctx context.Context) error
	Close() error
}

// Cleaner is implemented by caches that can purge expired entries on demand.
type Cleaner interface {
	// Cleanup removes expired entries and returns how many were removed.
	Cleanup() int
}

// StatsReporter is implemented by caches that track usage counters.
type StatsReporter interface {
	Stats() Stats
}

// Stats are cumulative cache counters.
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Sets        int64   `json:"sets"`
	Deletes     int64   `json:"deletes"`
	Evictions   int64   `json:"evictions"`
	Expirations int64   `json:"expirations"`
	Backfills   int64   `json:"backfills,omitempty"`
	Size        int     `json:"size"`
	MaxSize     int     `json:"max_size"`
	HitRate     float64 `json:"hit_rate"`
}

func (s *Stats) updateHitRate() {
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	} else {
		s.HitRate = 0
	}
}
