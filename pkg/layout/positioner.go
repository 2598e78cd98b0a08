package layout

import (
	"slices"

	"github.com/matzehuels/flowlayout/pkg/dag"
	"github.com/matzehuels/flowlayout/pkg/dag/transform"
)

// Position computes initial coordinates for every node of the hierarchy,
// working from the deepest layer up to the root.
//
// Every node of a layer receives the layer's y from [Params.LayerY]. The
// deepest layer is spread evenly around the canvas center with
// PreferredSpacing. Each node of a higher layer is placed above its already
// positioned children (see [OptimalParentX]). Nodes without positioned
// children are packed to the right of the layer, MinSpacing apart.
func Position(g *dag.DAG, h *transform.Hierarchy, p Params) *Records {
	recs := NewRecords()
	deepest := len(h.Layers) - 1

	for i := deepest; i >= 0; i-- {
		y := p.LayerY(deepest - i)
		layer := byPriority(g, h.Layers[i])

		if i == deepest {
			mid := float64(len(layer)-1) / 2
			for k, id := range layer {
				x := p.CenterX + (float64(k)-mid)*p.PreferredSpacing
				recs.Set(id, newRecord(g, id, x, y, i))
			}
			continue
		}

		type placement struct {
			id string
			x  float64
		}
		var placed []placement
		var orphans []string
		for _, id := range layer {
			xs := childXs(g, recs, id)
			if len(xs) == 0 {
				orphans = append(orphans, id)
				continue
			}
			placed = append(placed, placement{id, OptimalParentX(xs)})
		}

		for _, pl := range placed {
			recs.Set(pl.id, newRecord(g, pl.id, pl.x, y, i))
		}

		start := p.CenterX
		if len(placed) > 0 {
			right := placed[0].x
			for _, pl := range placed[1:] {
				right = max(right, pl.x)
			}
			start = right + p.MinSpacing
		}
		for k, id := range orphans {
			rec := newRecord(g, id, start+float64(k)*p.MinSpacing, y, i)
			rec.Orphan = true
			recs.Set(id, rec)
		}
	}
	return recs
}

// OptimalParentX returns the x a parent should take above children at xs:
// the child itself for one, the midpoint for two, and the arithmetic mean
// otherwise. xs must not be empty.
func OptimalParentX(xs []float64) float64 {
	switch len(xs) {
	case 1:
		return xs[0]
	case 2:
		return (xs[0] + xs[1]) / 2
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// childXs returns the sorted x coordinates of the positioned children of id.
func childXs(g *dag.DAG, recs *Records, id string) []float64 {
	var xs []float64
	for _, c := range g.Children(id) {
		if rec, ok := recs.Get(c); ok {
			xs = append(xs, rec.X)
		}
	}
	slices.Sort(xs)
	return xs
}

func newRecord(g *dag.DAG, id string, x, y float64, layer int) Record {
	rec := Record{X: x, Y: y, Layer: layer, Type: dag.TypeProcess}
	if n, ok := g.Node(id); ok {
		rec.Type = n.Type
		rec.Meta = n.Meta
	}
	return rec
}

func byPriority(g *dag.DAG, ids []string) []string {
	out := slices.Clone(ids)
	slices.SortStableFunc(out, func(a, b string) int {
		return dag.ComparePriority(nodeOf(g, a), nodeOf(g, b))
	})
	return out
}

func nodeOf(g *dag.DAG, id string) *dag.Node {
	if n, ok := g.Node(id); ok {
		return n
	}
	return &dag.Node{ID: id, Type: dag.TypeProcess}
}
