package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func quietSpinner(ctx context.Context, msg string) (*Spinner, *bytes.Buffer) {
	s := newSpinner(ctx, msg)
	var buf bytes.Buffer
	s.out = &buf
	return s, &buf
}

func TestSpinnerStop(t *testing.T) {
	s, _ := quietSpinner(context.Background(), "Computing layout...")
	s.Start()
	time.Sleep(2 * spinnerInterval)
	s.Stop()
	assert.False(t, s.Cancelled())
}

func TestSpinnerParentCancelled(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
	}{
		{"cancel", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, cancel
		}},
		{"timeout", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), time.Millisecond)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			defer cancel()
			s, _ := quietSpinner(ctx, "Testing...")
			s.Start()
			assert.Eventually(t, s.Cancelled, time.Second, 5*time.Millisecond)
			s.Stop()
		})
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s, _ := quietSpinner(context.Background(), "Testing idempotent stop...")
	s.Start()
	assert.NotPanics(t, func() {
		s.Stop()
		s.Stop()
	})
}

func TestSpinnerStopBeforeStart(t *testing.T) {
	s, _ := quietSpinner(context.Background(), "never started")
	assert.NotPanics(t, s.Stop)
}

func TestSpinnerStopWithStatus(t *testing.T) {
	out := captureUI(t)

	s, _ := quietSpinner(context.Background(), "Testing...")
	s.Start()
	s.StopWithSuccess("Done")
	assert.Contains(t, out.String(), "Done")

	s, _ = quietSpinner(context.Background(), "Testing...")
	s.Start()
	s.StopWithError("Failed")
	assert.Contains(t, out.String(), "Failed")
}

func TestSpinnerDrawsFrames(t *testing.T) {
	s, buf := quietSpinner(context.Background(), "drawing")
	s.Start()
	time.Sleep(3 * spinnerInterval)
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Contains(t, buf.String(), "drawing")
}
