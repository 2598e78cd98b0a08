package transform

import (
	"fmt"
	"slices"

	"github.com/matzehuels/flowlayout/pkg/dag"
)

// DefaultMaxLayers bounds the upward sweep of [BuildHierarchy].
const DefaultMaxLayers = 20

// Hierarchy is the ordered layer structure the positioner runs on. Index 0
// is the root layer; the last layer is the deepest.
type Hierarchy struct {
	Layers      [][]string
	NodeToLayer map[string]int
	Warnings    []string
	// TypeBased reports that the graph had no edges and the layers were
	// derived from node types alone.
	TypeBased bool
}

// LayerCount returns the number of layers.
func (h *Hierarchy) LayerCount() int { return len(h.Layers) }

// Depth returns the bottom-up step of a layer index: 0 for the deepest layer.
func (h *Hierarchy) Depth(layer int) int { return len(h.Layers) - 1 - layer }

// BuildHierarchy groups the nodes of g into layers.
//
// With edges, the sweep starts at the leaves (nodes without children) and
// moves upward: a parent joins the next band only once every one of its
// children has been placed. At most maxLayers bands are built (values <= 0
// mean [DefaultMaxLayers]). Nodes the sweep never reaches, such as members
// of a cycle, are appended to the last band built and reported in Warnings.
// The bands are then reversed so the root layer comes first.
//
// Without edges, nodes are split by type into [start], [others] and [end]
// bands, dropping empty ones.
//
// Within every layer nodes are ordered by [dag.ComparePriority]. The result
// always contains at least one layer when g has nodes.
func BuildHierarchy(g *dag.DAG, maxLayers int) *Hierarchy {
	if maxLayers <= 0 {
		maxLayers = DefaultMaxLayers
	}

	var h *Hierarchy
	if g.EdgeCount() == 0 {
		h = &Hierarchy{Layers: typeBands(g), TypeBased: true}
	} else {
		h = sweepBottomUp(g, maxLayers)
	}

	h.NodeToLayer = make(map[string]int, g.NodeCount())
	for i, layer := range h.Layers {
		for _, id := range layer {
			h.NodeToLayer[id] = i
		}
	}
	return h
}

func sweepBottomUp(g *dag.DAG, maxLayers int) *Hierarchy {
	h := &Hierarchy{}
	placed := make(map[string]bool, g.NodeCount())

	current := dag.NodeIDs(g.Sinks())
	for len(current) > 0 {
		if len(h.Layers) == maxLayers {
			h.Warnings = append(h.Warnings, fmt.Sprintf(
				"layer limit %d reached; %d node(s) left for the root layer", maxLayers, g.NodeCount()-len(placed)))
			break
		}

		band := sortByPriority(g, current)
		h.Layers = append(h.Layers, band)
		for _, id := range band {
			placed[id] = true
		}

		seen := make(map[string]bool)
		var next []string
		for _, id := range band {
			for _, p := range g.Parents(id) {
				if placed[p] || seen[p] {
					continue
				}
				seen[p] = true
				if allPlaced(g.Children(p), placed) {
					next = append(next, p)
				}
			}
		}
		current = next
	}

	var unreached []string
	for _, id := range g.NodeIDs() {
		if !placed[id] {
			unreached = append(unreached, id)
		}
	}
	if len(unreached) > 0 {
		h.Warnings = append(h.Warnings, fmt.Sprintf(
			"%d node(s) not reached from the leaves were moved to the root layer: %v", len(unreached), unreached))
		if len(h.Layers) == 0 {
			h.Layers = append(h.Layers, nil)
		}
		last := len(h.Layers) - 1
		h.Layers[last] = sortByPriority(g, append(h.Layers[last], unreached...))
	}

	slices.Reverse(h.Layers)
	return h
}

func typeBands(g *dag.DAG) [][]string {
	var start, other, end []string
	for _, n := range g.Nodes() {
		switch {
		case n.Type.IsStart():
			start = append(start, n.ID)
		case n.Type.IsEnd():
			end = append(end, n.ID)
		default:
			other = append(other, n.ID)
		}
	}

	var layers [][]string
	for _, band := range [][]string{start, other, end} {
		if len(band) > 0 {
			layers = append(layers, band)
		}
	}
	return layers
}

func allPlaced(ids []string, placed map[string]bool) bool {
	for _, id := range ids {
		if !placed[id] {
			return false
		}
	}
	return true
}

func sortByPriority(g *dag.DAG, ids []string) []string {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b string) int {
		na, _ := g.Node(a)
		nb, _ := g.Node(b)
		return dag.ComparePriority(na, nb)
	})
	return out
}
