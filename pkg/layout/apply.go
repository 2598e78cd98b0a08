package layout

import (
	"fmt"
	"math"

	"github.com/matzehuels/flowlayout/pkg/graph"
	"github.com/matzehuels/flowlayout/pkg/preprocess"
)

// ApplyResult reports what [Apply] wrote to the host graph.
type ApplyResult struct {
	AppliedNodes int      `json:"applied_nodes"`
	SkippedNodes int      `json:"skipped_nodes"`
	Unchanged    int      `json:"unchanged"`
	Errors       []string `json:"errors,omitempty"`
	// IDs lists the nodes whose position was written, in ID order.
	IDs []string `json:"ids,omitempty"`
}

// Apply writes the computed positions to the host graph in node ID order.
//
// A record is skipped when its node is missing from g, is a hint or
// preview, or has a non-finite coordinate. Positions are rounded to whole
// pixels and written only when they differ from the node's current
// position. Setter failures are collected in Errors and do not stop the
// remaining writes.
func Apply(g graph.Graph, recs *Records) ApplyResult {
	var res ApplyResult
	for _, id := range recs.IDs() {
		rec, _ := recs.Get(id)
		n, ok := g.CellByID(id)
		if !ok || !preprocess.IsLayoutable(id, n.Data()) || !finite(rec.X) || !finite(rec.Y) {
			res.SkippedNodes++
			continue
		}

		x, y := math.Round(rec.X), math.Round(rec.Y)
		if cur := n.Position(); cur.X == x && cur.Y == y {
			res.Unchanged++
			continue
		}
		if err := n.SetPosition(x, y); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		res.AppliedNodes++
		res.IDs = append(res.IDs, id)
	}
	return res
}

// LiveSync returns a [SyncFunc] that writes intermediate positions straight
// to the host graph. Write errors are ignored; the final [Apply] reports
// them.
func LiveSync(g graph.Graph) SyncFunc {
	return func(id string, x, y float64) {
		if n, ok := g.CellByID(id); ok && preprocess.IsLayoutable(id, n.Data()) {
			_ = n.SetPosition(math.Round(x), math.Round(y))
		}
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
