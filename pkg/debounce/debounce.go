// Package debounce coalesces bursts of calls that share a key into a single
// execution.
//
// Every call to [Manager.Do] restarts the key's quiet-period timer. When the
// timer fires, or when the maximum wait since the first call of the burst
// has elapsed, the most recently supplied function runs once and every
// caller of the burst receives its result.
package debounce

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowlayout/pkg/clock"
)

var (
	// ErrCancelled is delivered to the waiters of a burst removed by Cancel.
	ErrCancelled = errors.New("debounce: cancelled")
	// ErrDisposed is delivered to waiters when the manager is disposed, and
	// returned by Do afterwards.
	ErrDisposed = errors.New("debounce: disposed")
)

// Func is the coalesced operation.
type Func[T any] func(ctx context.Context) (T, error)

// Metrics are cumulative manager counters.
type Metrics struct {
	Calls     int64 `json:"calls"`
	Created   int64 `json:"created"`
	Executed  int64 `json:"executed"`
	Coalesced int64 `json:"coalesced"`
	Flushed   int64 `json:"flushed"`
	MaxWaits  int64 `json:"max_waits"`
	Cancelled int64 `json:"cancelled"`
}

// Manager coalesces calls per key. It is safe for concurrent use.
type Manager[T any] struct {
	mu       sync.Mutex
	clock    clock.Clock
	logger   *log.Logger
	delay    time.Duration
	maxWait  time.Duration
	tasks    map[string]*task[T]
	metrics  Metrics
	disposed bool
}

type outcome[T any] struct {
	val T
	err error
}

type task[T any] struct {
	key      string
	fn       Func[T]
	ctx      context.Context
	waiters  []chan outcome[T]
	timer    clock.Timer
	maxTimer clock.Timer
	started  time.Time
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	clock  clock.Clock
	logger *log.Logger
}

// WithClock sets the time source for the delay and max-wait timers.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New returns a manager that waits delay after the last call of a burst,
// and at most maxWait after its first call. A maxWait of zero or below
// delay disables the ceiling.
func New[T any](delay, maxWait time.Duration, opts ...Option) *Manager[T] {
	o := options{clock: clock.Real(), logger: log.NewWithOptions(io.Discard, log.Options{})}
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager[T]{
		clock:   o.clock,
		logger:  o.logger,
		delay:   delay,
		maxWait: maxWait,
		tasks:   make(map[string]*task[T]),
	}
}

// Do schedules fn under key and blocks until the burst executes, is
// cancelled, or ctx is done. The function of the latest call in a burst is
// the one that runs; it receives that call's ctx without its cancellation,
// so an impatient caller does not abort the run for the others.
func (m *Manager[T]) Do(ctx context.Context, key string, fn Func[T]) (T, error) {
	ch := make(chan outcome[T], 1)

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		var zero T
		return zero, ErrDisposed
	}
	m.metrics.Calls++

	t, ok := m.tasks[key]
	if !ok {
		t = &task[T]{key: key, started: m.clock.Now()}
		m.tasks[key] = t
		m.metrics.Created++
		if m.maxWait > 0 && m.maxWait >= m.delay {
			t.maxTimer = m.clock.AfterFunc(m.maxWait, func() { m.fire(t, true) })
		}
	} else {
		m.metrics.Coalesced++
		t.timer.Stop()
	}
	t.fn = fn
	t.ctx = context.WithoutCancel(ctx)
	t.waiters = append(t.waiters, ch)
	t.timer = m.clock.AfterFunc(m.delay, func() { m.fire(t, false) })
	m.mu.Unlock()

	select {
	case out := <-ch:
		return out.val, out.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Flush runs the pending burst for key immediately, in the calling
// goroutine. It reports whether a burst was pending.
func (m *Manager[T]) Flush(key string) bool {
	m.mu.Lock()
	t, ok := m.tasks[key]
	if ok {
		m.metrics.Flushed++
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	m.fire(t, false)
	return true
}

// Cancel drops the pending burst for key; its waiters receive
// [ErrCancelled]. It reports whether a burst was pending.
func (m *Manager[T]) Cancel(key string) bool {
	m.mu.Lock()
	t, ok := m.take(key)
	if ok {
		m.metrics.Cancelled++
	}
	m.mu.Unlock()
	if ok {
		t.deliver(outcome[T]{err: ErrCancelled})
	}
	return ok
}

// CancelAll cancels every pending burst and returns how many there were.
func (m *Manager[T]) CancelAll() int {
	return m.drain(ErrCancelled, false)
}

// Pending reports whether a burst is waiting to run for key.
func (m *Manager[T]) Pending(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tasks[key]
	return ok
}

// Waiters returns the number of callers blocked on key's pending burst.
func (m *Manager[T]) Waiters(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[key]; ok {
		return len(t.waiters)
	}
	return 0
}

// Metrics returns a snapshot of the counters.
func (m *Manager[T]) Metrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics
}

// Dispose cancels every pending burst with [ErrDisposed]. Later calls to Do
// fail immediately. Dispose is idempotent.
func (m *Manager[T]) Dispose() {
	m.drain(ErrDisposed, true)
}

func (m *Manager[T]) drain(err error, dispose bool) int {
	m.mu.Lock()
	if dispose {
		m.disposed = true
	}
	var tasks []*task[T]
	for key := range m.tasks {
		if t, ok := m.take(key); ok {
			tasks = append(tasks, t)
		}
	}
	m.metrics.Cancelled += int64(len(tasks))
	m.mu.Unlock()

	for _, t := range tasks {
		t.deliver(outcome[T]{err: err})
	}
	return len(tasks)
}

// take removes key's task and stops its timers. Callers must hold m.mu.
func (m *Manager[T]) take(key string) (*task[T], bool) {
	t, ok := m.tasks[key]
	if !ok {
		return nil, false
	}
	delete(m.tasks, key)
	t.timer.Stop()
	if t.maxTimer != nil {
		t.maxTimer.Stop()
	}
	return t, true
}

// fire executes t if it is still the pending task for its key.
func (m *Manager[T]) fire(t *task[T], ceiling bool) {
	m.mu.Lock()
	if cur, ok := m.tasks[t.key]; !ok || cur != t {
		m.mu.Unlock()
		return
	}
	m.take(t.key)
	m.metrics.Executed++
	if ceiling {
		m.metrics.MaxWaits++
	}
	fn, ctx, waited := t.fn, t.ctx, m.clock.Since(t.started)
	m.mu.Unlock()

	m.logger.Debug("debounced call executing", "key", t.key, "callers", len(t.waiters), "waited", waited, "max_wait", ceiling)
	t.deliver(run(ctx, fn))
}

func run[T any](ctx context.Context, fn Func[T]) (out outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome[T]{err: fmt.Errorf("debounce: panic: %v", r)}
		}
	}()
	v, err := fn(ctx)
	return outcome[T]{val: v, err: err}
}

func (t *task[T]) deliver(out outcome[T]) {
	for _, ch := range t.waiters {
		ch <- out
	}
}
