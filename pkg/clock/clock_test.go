package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeAdvanceFiresInOrder(t *testing.T) {
	c := NewFake(epoch)
	var order []int
	c.AfterFunc(30*time.Millisecond, func() { order = append(order, 3) })
	c.AfterFunc(10*time.Millisecond, func() { order = append(order, 1) })
	c.AfterFunc(20*time.Millisecond, func() { order = append(order, 2) })

	c.Advance(15 * time.Millisecond)
	assert.Equal(t, []int{1}, order)
	assert.Equal(t, 2, c.Pending())

	c.Advance(time.Second)
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, epoch.Add(time.Second+15*time.Millisecond), c.Now())
}

func TestFakeStop(t *testing.T) {
	c := NewFake(epoch)
	var fired atomic.Bool
	tm := c.AfterFunc(time.Millisecond, func() { fired.Store(true) })

	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	c.Advance(time.Second)
	assert.False(t, fired.Load())
	assert.Zero(t, c.Pending())
}

func TestFakeNowInsideCallback(t *testing.T) {
	c := NewFake(epoch)
	var seen time.Time
	c.AfterFunc(100*time.Millisecond, func() { seen = c.Now() })
	c.Advance(time.Second)
	assert.Equal(t, epoch.Add(100*time.Millisecond), seen)
}

func TestFakeChainedTimers(t *testing.T) {
	c := NewFake(epoch)
	var count int
	var schedule func()
	schedule = func() {
		count++
		if count < 3 {
			c.AfterFunc(10*time.Millisecond, schedule)
		}
	}
	c.AfterFunc(10*time.Millisecond, schedule)

	c.Advance(25 * time.Millisecond)
	assert.Equal(t, 2, count)
	c.Advance(10 * time.Millisecond)
	assert.Equal(t, 3, count)
}

func TestFakeSince(t *testing.T) {
	c := NewFake(epoch)
	start := c.Now()
	c.Advance(42 * time.Millisecond)
	assert.Equal(t, 42*time.Millisecond, c.Since(start))
}

func TestRealAfterFunc(t *testing.T) {
	c := Real()
	done := make(chan struct{})
	c.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
	assert.GreaterOrEqual(t, c.Since(c.Now().Add(-time.Millisecond)), time.Millisecond)
}
