package pipeline

import "time"

// PreviewManager is the host collaborator that draws preview lines while
// the user edits. The engine locks it for the duration of a run so that
// previews do not fight with the layout, and unlocks it when the run ends
// or the lock expires.
type PreviewManager interface {
	Lock(id string, opts LockOptions) error
	Unlock(id string, opts UnlockOptions) error
}

// LockOptions accompany [PreviewManager.Lock].
type LockOptions struct {
	Timeout time.Duration
	Reason  string
}

// UnlockOptions accompany [PreviewManager.Unlock]. Reason is one of
// "completed", "failed", "cancelled", "timeout" or "disposed".
type UnlockOptions struct {
	Reason string
}

// Unlock reasons.
const (
	UnlockCompleted = "completed"
	UnlockFailed    = "failed"
	UnlockCancelled = "cancelled"
	UnlockTimeout   = "timeout"
	UnlockDisposed  = "disposed"
)

// NoopPreview is the PreviewManager used when the host supplies none.
type NoopPreview struct{}

func (NoopPreview) Lock(string, LockOptions) error     { return nil }
func (NoopPreview) Unlock(string, UnlockOptions) error { return nil }

var _ PreviewManager = NoopPreview{}
