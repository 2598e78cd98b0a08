package pipeline

import (
	"time"

	flerrors "github.com/matzehuels/flowlayout/pkg/errors"
	"github.com/matzehuels/flowlayout/pkg/graph"
	"github.com/matzehuels/flowlayout/pkg/layout"
	"github.com/matzehuels/flowlayout/pkg/perf"
	"github.com/matzehuels/flowlayout/pkg/preprocess"
)

// Result is the outcome of one [Engine.ExecuteLayout] call. It is always
// non-nil; failures are described by its fields rather than returned as
// errors.
type Result struct {
	Success bool `json:"success"`
	// Reason is set when the call was skipped or cancelled.
	Reason string `json:"reason,omitempty"`
	// Err is the failure, if any. Error and Code are derived from it.
	Err   error         `json:"-"`
	Error string        `json:"error,omitempty"`
	Code  flerrors.Code `json:"code,omitempty"`
	// Stage names the stage the run failed or was cancelled in.
	Stage       string `json:"stage,omitempty"`
	ExecutionID string `json:"execution_id,omitempty"`

	Positions map[string]graph.Point `json:"positions,omitempty"`
	Layers    [][]string             `json:"layers,omitempty"`
	Layout    *graph.Layout          `json:"layout,omitempty"`
	Stats     *layout.Stats          `json:"stats,omitempty"`
	FromCache bool                   `json:"from_cache"`
	DryRun    bool                   `json:"dry_run,omitempty"`

	// Applied lists what was written to the host graph. IDs is non-empty
	// on failure only when application itself partially failed.
	Applied layout.ApplyResult `json:"applied"`

	LayerReport  *layout.LayerReport  `json:"layer_report,omitempty"`
	GlobalReport *layout.GlobalReport `json:"global_report,omitempty"`
	Integrity    *preprocess.Report   `json:"integrity,omitempty"`

	Warnings     []string           `json:"warnings,omitempty"`
	Duration     time.Duration      `json:"duration"`
	StageTimings []perf.StageTiming `json:"stage_timings,omitempty"`
}

func skipped(id, reason string, code flerrors.Code) *Result {
	return &Result{ExecutionID: id, Reason: reason, Code: code}
}
