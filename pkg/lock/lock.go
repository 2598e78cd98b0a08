// Package lock implements named, self-expiring mutual-exclusion locks.
//
// The layout engine holds the "layout_execution" lock while it computes and
// writes positions, so the preview-line subsystem does not redraw against
// half-moved nodes. A lock that is never released expires after its
// timeout. Contended acquires wait in a per-lock queue ordered by priority.
package lock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/flowlayout/pkg/clock"
)

// Defaults used when a Manager is created without options.
const (
	DefaultTimeout  = 5 * time.Second
	DefaultMaxLocks = 100
)

var (
	// ErrLockLimit is returned when acquiring a new lock would exceed the
	// manager's cap.
	ErrLockLimit = errors.New("lock: maximum number of locks reached")
	// ErrWaitTimeout is returned when a contended lock was not granted
	// within the wait timeout.
	ErrWaitTimeout = errors.New("lock: wait timeout")
	// ErrClosed is returned by Acquire after Close.
	ErrClosed = errors.New("lock: manager closed")
)

// Options describe one acquire request.
type Options struct {
	// Timeout bounds how long the lock is held before it expires. Zero
	// selects the manager default; a negative value never expires.
	Timeout time.Duration
	// WaitTimeout bounds how long a contended acquire waits. Zero waits as
	// long as Timeout.
	WaitTimeout time.Duration
	// Priority orders waiters; higher goes first, ties in arrival order.
	Priority int
	Reason   string
}

// Info describes a held lock.
type Info struct {
	ID        string        `json:"id"`
	Token     string        `json:"token"`
	Reason    string        `json:"reason,omitempty"`
	Priority  int           `json:"priority"`
	Acquired  time.Time     `json:"acquired"`
	Timeout   time.Duration `json:"timeout"`
	Age       time.Duration `json:"age"`
	Remaining time.Duration `json:"remaining"`
	Waiters   int           `json:"waiters"`
}

// Metrics are cumulative lock counters.
type Metrics struct {
	Created      int64         `json:"created"`
	Released     int64         `json:"released"`
	TimedOut     int64         `json:"timed_out"`
	Forced       int64         `json:"forced"`
	Queued       int64         `json:"queued"`
	WaitTimeouts int64         `json:"wait_timeouts"`
	Rejected     int64         `json:"rejected"`
	Active       int           `json:"active"`
	Waiting      int           `json:"waiting"`
	TotalHold    time.Duration `json:"total_hold"`
	AverageHold  time.Duration `json:"average_hold"`
}

// ExpiryFunc is called, outside the manager's mutex, after a lock expired.
type ExpiryFunc func(Info)

// Manager owns a set of named locks. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	clock    clock.Clock
	logger   *log.Logger
	timeout  time.Duration
	maxLocks int
	onExpire ExpiryFunc

	locks   map[string]*held
	queues  map[string][]*request
	seq     int
	metrics Metrics
	closed  bool
}

type held struct {
	info  Info
	timer clock.Timer
}

type request struct {
	id       string
	opts     Options
	seq      int
	grant    chan *Handle
	timer    clock.Timer
	finished bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source for expiry and wait timers.
func WithClock(c clock.Clock) Option { return func(m *Manager) { m.clock = c } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(m *Manager) { m.logger = l } }

// WithDefaultTimeout sets the hold timeout used when Options.Timeout is zero.
func WithDefaultTimeout(d time.Duration) Option { return func(m *Manager) { m.timeout = d } }

// WithMaxLocks caps the number of distinct locks held at once.
func WithMaxLocks(n int) Option { return func(m *Manager) { m.maxLocks = n } }

// WithExpiryHandler registers a callback for auto-released locks.
func WithExpiryHandler(f ExpiryFunc) Option { return func(m *Manager) { m.onExpire = f } }

// New returns an empty manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		clock:    clock.Real(),
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
		timeout:  DefaultTimeout,
		maxLocks: DefaultMaxLocks,
		locks:    make(map[string]*held),
		queues:   make(map[string][]*request),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle is the holder's reference to an acquired lock.
type Handle struct {
	m    *Manager
	info Info
}

// Info returns the lock as it was granted.
func (h *Handle) Info() Info { return h.info }

// Release releases the lock if this handle still holds it. It is
// idempotent and reports whether the call released the lock; false means
// it was already released or had expired.
func (h *Handle) Release() bool {
	return h.m.release(h.info.ID, h.info.Token, false)
}

// Acquire takes lock id, waiting behind the current holder if necessary.
func (m *Manager) Acquire(ctx context.Context, id string, opts Options) (*Handle, error) {
	if opts.Timeout == 0 {
		opts.Timeout = m.timeout
	}
	wait := opts.WaitTimeout
	if wait <= 0 {
		wait = opts.Timeout
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if _, busy := m.locks[id]; !busy {
		if len(m.locks) >= m.maxLocks {
			m.metrics.Rejected++
			m.mu.Unlock()
			return nil, fmt.Errorf("%w (%d)", ErrLockLimit, m.maxLocks)
		}
		h := m.grantLocked(id, opts)
		m.mu.Unlock()
		return h, nil
	}

	m.seq++
	req := &request{id: id, opts: opts, seq: m.seq, grant: make(chan *Handle, 1)}
	m.enqueueLocked(req)
	expired := make(chan struct{})
	if wait > 0 {
		req.timer = m.clock.AfterFunc(wait, func() { close(expired) })
	}
	m.mu.Unlock()
	m.logger.Debug("lock contended", "id", id, "reason", opts.Reason, "priority", opts.Priority)

	select {
	case h := <-req.grant:
		if h == nil {
			return nil, ErrClosed
		}
		return h, nil
	case <-expired:
		return m.abandon(req, fmt.Errorf("%w after %s: %s", ErrWaitTimeout, wait, id), true)
	case <-ctx.Done():
		return m.abandon(req, ctx.Err(), false)
	}
}

// abandon withdraws a waiting request. If the lock was granted
// concurrently, the grant is released again.
func (m *Manager) abandon(req *request, err error, timedOut bool) (*Handle, error) {
	m.mu.Lock()
	if !req.finished {
		req.finished = true
		m.dequeueLocked(req)
		if timedOut {
			m.metrics.WaitTimeouts++
		}
		m.mu.Unlock()
		return nil, err
	}
	m.mu.Unlock()
	if h := <-req.grant; h != nil {
		h.Release()
	}
	return nil, err
}

// grantLocked creates the lock and arms its expiry. Callers hold m.mu.
func (m *Manager) grantLocked(id string, opts Options) *Handle {
	info := Info{
		ID:       id,
		Token:    uuid.NewString(),
		Reason:   opts.Reason,
		Priority: opts.Priority,
		Acquired: m.clock.Now(),
		Timeout:  opts.Timeout,
	}
	hl := &held{info: info}
	if opts.Timeout > 0 {
		token := info.Token
		hl.timer = m.clock.AfterFunc(opts.Timeout, func() { m.expire(id, token) })
	}
	m.locks[id] = hl
	m.metrics.Created++
	m.logger.Debug("lock acquired", "id", id, "reason", opts.Reason, "timeout", opts.Timeout)
	return &Handle{m: m, info: info}
}

func (m *Manager) enqueueLocked(req *request) {
	q := append(m.queues[req.id], req)
	slices.SortStableFunc(q, func(a, b *request) int {
		if a.opts.Priority != b.opts.Priority {
			return b.opts.Priority - a.opts.Priority
		}
		return a.seq - b.seq
	})
	m.queues[req.id] = q
	m.metrics.Queued++
}

func (m *Manager) dequeueLocked(req *request) {
	q := slices.DeleteFunc(m.queues[req.id], func(r *request) bool { return r == req })
	if len(q) == 0 {
		delete(m.queues, req.id)
	} else {
		m.queues[req.id] = q
	}
	if req.timer != nil {
		req.timer.Stop()
	}
}

// handOffLocked grants id to the first waiter, if any. Callers hold m.mu.
func (m *Manager) handOffLocked(id string) {
	q := m.queues[id]
	for len(q) > 0 {
		req := q[0]
		q = q[1:]
		if req.finished {
			continue
		}
		req.finished = true
		if req.timer != nil {
			req.timer.Stop()
		}
		if len(q) == 0 {
			delete(m.queues, id)
		} else {
			m.queues[id] = q
		}
		req.grant <- m.grantLocked(id, req.opts)
		return
	}
	delete(m.queues, id)
}

// removeLocked drops the held lock and records its hold time.
func (m *Manager) removeLocked(hl *held) {
	if hl.timer != nil {
		hl.timer.Stop()
	}
	delete(m.locks, hl.info.ID)
	m.metrics.TotalHold += m.clock.Since(hl.info.Acquired)
}

func (m *Manager) release(id, token string, force bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	hl, ok := m.locks[id]
	if !ok || (!force && hl.info.Token != token) {
		return false
	}
	m.removeLocked(hl)
	if force {
		m.metrics.Forced++
	} else {
		m.metrics.Released++
	}
	m.logger.Debug("lock released", "id", id, "forced", force)
	m.handOffLocked(id)
	return true
}

func (m *Manager) expire(id, token string) {
	m.mu.Lock()
	hl, ok := m.locks[id]
	if !ok || hl.info.Token != token {
		m.mu.Unlock()
		return
	}
	m.removeLocked(hl)
	m.metrics.TimedOut++
	info := hl.info
	info.Age = m.clock.Since(info.Acquired)
	m.handOffLocked(id)
	onExpire := m.onExpire
	m.mu.Unlock()

	m.logger.Warn("lock expired", "id", id, "reason", info.Reason, "held", info.Age)
	if onExpire != nil {
		onExpire(info)
	}
}

// ForceRelease releases id regardless of holder. It reports whether the
// lock was held.
func (m *Manager) ForceRelease(id string) bool {
	return m.release(id, "", true)
}

// ReleaseAll force-releases every held lock and returns how many there were.
// Waiters are granted in turn, so locks with queued requests are held again
// when ReleaseAll returns.
func (m *Manager) ReleaseAll() int {
	m.mu.Lock()
	ids := make([]string, 0, len(m.locks))
	for id := range m.locks {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	n := 0
	for _, id := range ids {
		if m.ForceRelease(id) {
			n++
		}
	}
	return n
}

// IsLocked reports whether id is held. An empty id reports whether any
// lock is held.
func (m *Manager) IsLocked(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		return len(m.locks) > 0
	}
	_, ok := m.locks[id]
	return ok
}

// Snapshot returns the held locks sorted by id.
func (m *Manager) Snapshot() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	out := make([]Info, 0, len(m.locks))
	for _, hl := range m.locks {
		info := hl.info
		info.Age = now.Sub(info.Acquired)
		if info.Timeout > 0 {
			info.Remaining = max(0, info.Timeout-info.Age)
		}
		info.Waiters = len(m.queues[info.ID])
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b Info) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Metrics returns a snapshot of the counters.
func (m *Manager) Metrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.metrics
	s.Active = len(m.locks)
	for _, q := range m.queues {
		s.Waiting += len(q)
	}
	if ended := s.Released + s.TimedOut + s.Forced; ended > 0 {
		s.AverageHold = s.TotalHold / time.Duration(ended)
	}
	return s
}

// Close force-releases every lock, fails every waiter with [ErrClosed], and
// rejects later acquires.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	for _, q := range m.queues {
		for _, req := range q {
			if !req.finished {
				req.finished = true
				if req.timer != nil {
					req.timer.Stop()
				}
				req.grant <- nil
			}
		}
	}
	clear(m.queues)
	for _, hl := range m.locks {
		m.removeLocked(hl)
		m.metrics.Forced++
	}
	m.mu.Unlock()
}
