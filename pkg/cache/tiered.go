package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// Tiered layers a fast local cache over a shared one. Reads try L1 first;
// an L2 hit is copied back into L1. Writes and deletes go to both tiers.
type Tiered struct {
	l1, l2    Cache
	backfills atomic.Int64
}

// NewTiered combines l1 and l2. A nil l2 makes Tiered behave like l1.
func NewTiered(l1, l2 Cache) *Tiered {
	if l2 == nil {
		l2 = NewNullCache()
	}
	return &Tiered{l1: l1, l2: l2}
}

// Get implements [Cache]. An L1 failure falls through to L2.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err1 := t.l1.Get(ctx, key)
	if err1 == nil && ok {
		return data, true, nil
	}
	data, ok, err2 := t.l2.Get(ctx, key)
	if err2 != nil {
		return nil, false, errors.Join(err1, err2)
	}
	if !ok {
		return nil, false, err1
	}
	if err := t.l1.Set(ctx, key, data, 0); err == nil {
		t.backfills.Add(1)
	}
	return data, true, nil
}

// Set implements [Cache]. Both tiers are attempted even if one fails.
func (t *Tiered) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return errors.Join(t.l1.Set(ctx, key, data, ttl), t.l2.Set(ctx, key, data, ttl))
}

func (t *Tiered) Delete(ctx context.Context, key string) error {
	return errors.Join(t.l1.Delete(ctx, key), t.l2.Delete(ctx, key))
}

func (t *Tiered) Clear(ctx context.Context) error {
	return errors.Join(t.l1.Clear(ctx), t.l2.Clear(ctx))
}

func (t *Tiered) Close() error {
	return errors.Join(t.l1.Close(), t.l2.Close())
}

// Cleanup purges expired entries from every tier that supports it.
func (t *Tiered) Cleanup() int {
	n := 0
	for _, c := range []Cache{t.l1, t.l2} {
		if cl, ok := c.(Cleaner); ok {
			n += cl.Cleanup()
		}
	}
	return n
}

// Stats reports the L1 counters plus the number of L2 backfills.
func (t *Tiered) Stats() Stats {
	var s Stats
	if sr, ok := t.l1.(StatsReporter); ok {
		s = sr.Stats()
	}
	s.Backfills = t.backfills.Load()
	return s
}

var (
	_ Cache         = (*Tiered)(nil)
	_ Cleaner       = (*Tiered)(nil)
	_ StatsReporter = (*Tiered)(nil)
)
