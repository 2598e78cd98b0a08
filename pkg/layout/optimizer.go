package layout

import (
	"fmt"
	"math"

	"github.com/matzehuels/flowlayout/pkg/dag"
	"github.com/matzehuels/flowlayout/pkg/dag/transform"
)

const (
	overlapPasses  = 3
	overlapBuffer  = 10.0
	realignEpsilon = 0.01
	snapEpsilon    = 0.1
	targetEpsilon  = 1.0
)

// SyncFunc receives intermediate positions while a stage runs. It is used
// to mirror moves onto the host graph as they happen.
type SyncFunc func(id string, x, y float64)

// LayerReport counts the adjustments made by [OptimizeLayers].
type LayerReport struct {
	OverlapMoves int      `json:"overlap_moves"`
	Realigned    int      `json:"realigned"`
	Centered     int      `json:"centered"`
	Guarded      int      `json:"guarded"`
	Violations   int      `json:"violations"`
	Warnings     []string `json:"warnings,omitempty"`
}

// OptimizeLayers refines the positions of each layer, deepest first.
//
// Every layer goes through three steps in order:
//  1. Overlap resolution: scanning left to right, a node closer than
//     [Params.Enforced] to its predecessor is pushed right. At most three
//     passes run; leftover violations are reported as warnings.
//  2. Parent-child realignment: a node with positioned children moves to
//     [OptimalParentX] of their current positions.
//  3. Centering: the layer is redistributed with the size-specific
//     template, the minimum gap is restored, and the layer is shifted so
//     the midpoint of its extremes is the canvas center.
//
// sync, when non-nil, is called for every overlap push.
func OptimizeLayers(g *dag.DAG, h *transform.Hierarchy, recs *Records, p Params, sync SyncFunc) LayerReport {
	var rep LayerReport
	total := len(h.Layers)
	for i := total - 1; i >= 0; i-- {
		es := recs.layerRecords(h.Layers[i])
		if len(es) == 0 {
			continue
		}

		moves, residual := resolveOverlaps(es, p.Enforced(), sync)
		rep.OverlapMoves += moves
		if residual > 0 {
			rep.Violations += residual
			rep.Warnings = append(rep.Warnings,
				fmt.Sprintf("layer %d: %d spacing violation(s) left after %d passes", i, residual, overlapPasses))
		}

		rep.Realigned += realign(g, recs, es)

		centered, guarded := centerLayer(g, es, i, total, p)
		rep.Centered += centered
		if guarded {
			rep.Guarded++
		}
	}
	return rep
}

// resolveOverlaps returns the number of pushes and the violations left.
func resolveOverlaps(es []entry, minGap float64, sync SyncFunc) (moves, residual int) {
	sortByX(es)
	for range overlapPasses {
		pass := 0
		for k := 1; k < len(es); k++ {
			gap := es[k].rec.X - es[k-1].rec.X
			if gap < minGap {
				es[k].rec.X += minGap - gap + overlapBuffer
				pass++
				if sync != nil {
					sync(es[k].id, es[k].rec.X, es[k].rec.Y)
				}
			}
		}
		moves += pass
		if pass == 0 {
			break
		}
	}

	for k := 1; k < len(es); k++ {
		if es[k].rec.X-es[k-1].rec.X < minGap {
			residual++
		}
	}
	return moves, residual
}

func realign(g *dag.DAG, recs *Records, es []entry) int {
	n := 0
	for _, e := range es {
		xs := childXs(g, recs, e.id)
		if len(xs) == 0 {
			continue
		}
		if opt := OptimalParentX(xs); math.Abs(e.rec.X-opt) > realignEpsilon {
			e.rec.X = opt
			n++
		}
	}
	return n
}

// centerLayer applies the centering template. It returns the number of
// nodes moved onto a template target and whether the spacing guard fired.
func centerLayer(g *dag.DAG, es []entry, layer, total int, p Params) (int, bool) {
	sortByX(es)
	if len(es) == 1 {
		if math.Abs(es[0].rec.X-p.CenterX) > snapEpsilon {
			es[0].rec.X = p.CenterX
			return 1, false
		}
		return 0, false
	}

	w := make([]float64, len(es))
	for k, e := range es {
		w[k] = ImportanceWeight(g.Degree(e.id), layer, total)
	}

	moved := 0
	xs := make([]float64, len(es))
	for k, off := range centeringTargets(w) {
		target := p.CenterX + off
		xs[k] = es[k].rec.X
		if math.Abs(xs[k]-target) > targetEpsilon {
			xs[k] = target
			moved++
		}
	}

	guarded := enforceSpacing(xs, p.Enforced())
	recenter(xs, p.CenterX)
	for k, e := range es {
		e.rec.X = xs[k]
	}
	return moved, guarded
}
