// Package pipeline runs the layout engine end to end against a host graph.
//
// An [Engine] owns everything a run needs beyond the graph itself: the
// layout cache, the lock manager, the debouncer and the performance
// monitor. Hosts create one Engine per diagram and call
// [Engine.ExecuteLayout] whenever the diagram should be re-arranged.
//
// # Architecture
//
// A run is a strict sequence of stages:
//
//  1. preprocessing: filter the host graph into a DAG and report its integrity
//  2. layer_assignment: longest-path layering, cycle detection
//  3. hierarchical_build: bottom-up layer bands
//  4. positioning: bottom-up x/y placement
//  5. layer_optimization: overlaps, parent realignment, centering
//  6. global_optimization: spacing, density, vertical alignment
//  7. application: write the positions back to the host graph
//
// The cache is consulted after preprocessing; on a hit the run skips
// straight to application. A failing stage aborts the run. Every stage
// before application is pure, so a failure never leaves the host graph
// half-written.
//
// # Usage
//
//	engine, err := pipeline.New(g, nil, config.Default(), pipeline.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer engine.Dispose()
//
//	res := engine.ExecuteLayout(ctx, pipeline.ExecuteOptions{Reason: "user"})
//	if !res.Success {
//	    logger.Error("layout failed", "stage", res.Stage, "err", res.Error)
//	}
//
// Editors that trigger layouts on every keystroke use the debounced entry
// point, which collapses a burst of calls into one run:
//
//	res, err := engine.ExecuteLayoutDebounced(ctx, "auto", pipeline.ExecuteOptions{})
package pipeline

// Stage names, in execution order.
const (
	StagePreprocessing      = "preprocessing"
	StageLayerAssignment    = "layer_assignment"
	StageHierarchicalBuild  = "hierarchical_build"
	StagePositioning        = "positioning"
	StageLayerOptimization  = "layer_optimization"
	StageGlobalOptimization = "global_optimization"
	StageApplication        = "application"
)

// Stages lists every stage name in execution order.
var Stages = []string{
	StagePreprocessing,
	StageLayerAssignment,
	StageHierarchicalBuild,
	StagePositioning,
	StageLayerOptimization,
	StageGlobalOptimization,
	StageApplication,
}

// Reasons a call did not run the pipeline to completion.
const (
	ReasonAlreadyExecuting = "already_executing"
	ReasonCancelled        = "cancelled"
	ReasonDisposed         = "disposed"
	ReasonEmptyGraph       = "empty_graph"
)

// ExecuteOptions control a single run.
type ExecuteOptions struct {
	// Force recomputes the layout even when the cache holds it. The fresh
	// result is still written to the cache.
	Force bool `json:"force,omitempty"`
	// SkipCache neither reads nor writes the cache.
	SkipCache bool `json:"skip_cache,omitempty"`
	// DryRun computes the layout without writing positions to the host
	// graph and without taking the layout lock.
	DryRun bool `json:"dry_run,omitempty"`
	// Reason is passed to the lock and the preview collaborator.
	Reason string `json:"reason,omitempty"`
}

// State is the lifecycle state of an [Engine].
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
	StateDisposed  State = "disposed"
)

const defaultLockReason = "layout"
