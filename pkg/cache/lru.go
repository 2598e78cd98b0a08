package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/matzehuels/flowlayout/pkg/clock"
)

// LRU is a bounded in-memory cache. When full, setting a new key evicts the
// least recently used entry. Entries expire after their TTL; expired
// entries are removed lazily on access or eagerly by [LRU.Cleanup].
type LRU struct {
	mu      sync.Mutex
	clock   clock.Clock
	maxSize int
	ttl     time.Duration
	ll      *list.List
	items   map[string]*list.Element
	stats   Stats
	closed  bool
}

type lruEntry struct {
	key     string
	data    []byte
	expires time.Time
}

// LRUOption configures an [LRU].
type LRUOption func(*LRU)

// WithClock sets the time source used for expiry.
func WithClock(c clock.Clock) LRUOption {
	return func(l *LRU) { l.clock = c }
}

// NewLRU returns a cache holding at most maxSize entries. A ttl of zero
// keeps entries until they are evicted. A maxSize below 1 is treated as 1.
func NewLRU(maxSize int, ttl time.Duration, opts ...LRUOption) *LRU {
	l := &LRU{
		clock:   clock.Real(),
		maxSize: max(maxSize, 1),
		ttl:     ttl,
		ll:      list.New(),
		items:   make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Get implements [Cache]. The returned slice is a copy.
func (l *LRU) Get(_ context.Context, key string) ([]byte, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, false, ErrClosed
	}

	el, ok := l.items[key]
	if !ok {
		l.stats.Misses++
		return nil, false, nil
	}
	e := el.Value.(*lruEntry)
	if l.expired(e, l.clock.Now()) {
		l.remove(el)
		l.stats.Expirations++
		l.stats.Misses++
		return nil, false, nil
	}
	l.ll.MoveToFront(el)
	l.stats.Hits++
	return clone(e.data), true, nil
}

// Set implements [Cache].
func (l *LRU) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}

	if ttl <= 0 {
		ttl = l.ttl
	}
	var expires time.Time
	if ttl > 0 {
		expires = l.clock.Now().Add(ttl)
	}

	l.stats.Sets++
	if el, ok := l.items[key]; ok {
		e := el.Value.(*lruEntry)
		e.data, e.expires = clone(data), expires
		l.ll.MoveToFront(el)
		return nil
	}
	if l.ll.Len() >= l.maxSize {
		if back := l.ll.Back(); back != nil {
			l.remove(back)
			l.stats.Evictions++
		}
	}
	l.items[key] = l.ll.PushFront(&lruEntry{key: key, data: clone(data), expires: expires})
	return nil
}

// Delete implements [Cache].
func (l *LRU) Delete(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if el, ok := l.items[key]; ok {
		l.remove(el)
		l.stats.Deletes++
	}
	return nil
}

// Clear implements [Cache]. Counters are kept.
func (l *LRU) Clear(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ll.Init()
	clear(l.items)
	return nil
}

// Close clears the cache. Later operations return [ErrClosed].
func (l *LRU) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ll.Init()
	clear(l.items)
	l.closed = true
	return nil
}

// Cleanup implements [Cleaner].
func (l *LRU) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	n := 0
	for el := l.ll.Back(); el != nil; {
		prev := el.Prev()
		if l.expired(el.Value.(*lruEntry), now) {
			l.remove(el)
			n++
		}
		el = prev
	}
	l.stats.Expirations += int64(n)
	return n
}

// Len returns the number of stored entries, including expired ones not yet
// removed.
func (l *LRU) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ll.Len()
}

// Keys returns the stored keys from most to least recently used.
func (l *LRU) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]string, 0, l.ll.Len())
	for el := l.ll.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*lruEntry).key)
	}
	return keys
}

// Stats implements [StatsReporter].
func (l *LRU) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.stats
	s.Size = l.ll.Len()
	s.MaxSize = l.maxSize
	s.updateHitRate()
	return s
}

func (l *LRU) expired(e *lruEntry, now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

func (l *LRU) remove(el *list.Element) {
	l.ll.Remove(el)
	delete(l.items, el.Value.(*lruEntry).key)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

var (
	_ Cache         = (*LRU)(nil)
	_ Cleaner       = (*LRU)(nil)
	_ StatsReporter = (*LRU)(nil)
)
