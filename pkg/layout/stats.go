package layout

import (
	"math"

	"github.com/matzehuels/flowlayout/pkg/dag"
	"github.com/matzehuels/flowlayout/pkg/dag/transform"
	"github.com/matzehuels/flowlayout/pkg/graph"
)

// Stats describes the geometry of a finished layout.
type Stats struct {
	Nodes     int          `json:"nodes"`
	Edges     int          `json:"edges"`
	Layers    int          `json:"layers"`
	MaxWidth  int          `json:"max_layer_width"`
	Bounds    graph.Bounds `json:"bounds"`
	Density   float64      `json:"density"`
	Crossings int          `json:"crossings"`
	// SpacingViolations counts same-layer neighbors closer than the
	// enforced minimum. It is zero for every layout this package produces.
	SpacingViolations int `json:"spacing_violations"`
}

// ComputeStats measures the layout. Density is the number of nodes per
// 100x100 pixel tile of the bounding box; crossings are counted between
// adjacent layers ordered by x.
func ComputeStats(g *dag.DAG, h *transform.Hierarchy, recs *Records, p Params) Stats {
	s := Stats{
		Nodes:  recs.Len(),
		Edges:  g.EdgeCount(),
		Layers: len(h.Layers),
		Bounds: ComputeBounds(g, recs),
	}

	x := make(map[string]float64, recs.Len())
	for _, id := range recs.IDs() {
		x[id] = recs.X(id)
	}
	ordered := dag.OrderByX(h.Layers, x)
	for _, layer := range ordered {
		s.MaxWidth = max(s.MaxWidth, len(layer))
		xs := make([]float64, 0, len(layer))
		for _, id := range layer {
			xs = append(xs, x[id])
		}
		s.SpacingViolations += violations(xs, p.Enforced()-1e-6)
	}
	s.Crossings = dag.CountCrossings(g, ordered)

	if area := s.Bounds.Width() * s.Bounds.Height(); area > 0 {
		s.Density = float64(s.Nodes) / area * 10000
	}
	return s
}

// ComputeBounds returns the box spanned by the node positions, extended by
// the node sizes.
func ComputeBounds(g *dag.DAG, recs *Records) graph.Bounds {
	if recs.Len() == 0 {
		return graph.Bounds{}
	}
	b := graph.Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, id := range recs.IDs() {
		rec, _ := recs.Get(id)
		w, h := 0.0, 0.0
		if n, ok := g.Node(id); ok {
			w, h = n.Width, n.Height
		}
		b.MinX = math.Min(b.MinX, rec.X)
		b.MinY = math.Min(b.MinY, rec.Y)
		b.MaxX = math.Max(b.MaxX, rec.X+w)
		b.MaxY = math.Max(b.MaxY, rec.Y+h)
	}
	return b
}

// BuildLayout converts a finished run into the serializable layout format.
// Layers are ordered by x.
func BuildLayout(g *dag.DAG, h *transform.Hierarchy, recs *Records) graph.Layout {
	x := make(map[string]float64, recs.Len())
	for _, id := range recs.IDs() {
		x[id] = recs.X(id)
	}

	l := graph.Layout{
		Layers: dag.OrderByX(h.Layers, x),
		Bounds: ComputeBounds(g, recs),
	}
	for _, id := range recs.IDs() {
		rec, _ := recs.Get(id)
		pn := graph.PlacedNode{ID: id, Type: string(rec.Type), Layer: rec.Layer, X: rec.X, Y: rec.Y}
		if n, ok := g.Node(id); ok {
			pn.Width, pn.Height = n.Width, n.Height
		}
		l.Nodes = append(l.Nodes, pn)
	}
	l.Edges = LayoutEdges(g)
	return l
}

// LayoutEdges lists the real edges of g as layout file edges.
func LayoutEdges(g *dag.DAG) []graph.DocumentEdge {
	var out []graph.DocumentEdge
	for _, e := range g.Edges() {
		out = append(out, graph.DocumentEdge{ID: e.ID, Source: e.From, Target: e.To})
	}
	return out
}
