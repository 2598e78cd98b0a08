package dag

import (
	"slices"
)

// CountCrossings returns the total number of edge crossings between
// consecutive layers. Each layer lists node IDs from left to right.
// Edges that skip layers are not counted.
func CountCrossings(g *DAG, layers [][]string) int {
	crossings := 0
	for i := 0; i+1 < len(layers); i++ {
		crossings += CountLayerCrossings(g, layers[i], layers[i+1])
	}
	return crossings
}

// CountLayerCrossings counts edge crossings between two adjacent layers using
// a Fenwick tree (binary indexed tree) for O(E log V) performance where E is
// the number of edges between the layers and V is the lower layer's size.
//
// Two edges (u1,v1) and (u2,v2) cross if and only if:
//
//	pos(u1) < pos(u2) AND pos(v1) > pos(v2)
//
// This is equivalent to counting inversions in the sequence of target
// positions when edges are sorted by source position.
//
// Returns 0 if either layer is empty or nil.
func CountLayerCrossings(g *DAG, upper, lower []string) int {
	if len(upper) == 0 || len(lower) == 0 {
		return 0
	}

	lowerPos := PosMap(lower)

	type edge struct{ upper, lower int }
	edges := make([]edge, 0, len(upper)*2)
	for i, nodeID := range upper {
		for _, child := range g.Children(nodeID) {
			if pos, ok := lowerPos[child]; ok {
				edges = append(edges, edge{i, pos})
			}
		}
	}
	if len(edges) < 2 {
		return 0
	}

	slices.SortFunc(edges, func(a, b edge) int {
		if a.upper != b.upper {
			return a.upper - b.upper
		}
		return a.lower - b.lower
	})

	fenwick := make([]int, len(lower)+1)
	crossings, total := 0, 0
	for _, e := range edges {
		lessOrEqual := 0
		for q := e.lower + 1; q > 0; q -= q & (-q) {
			lessOrEqual += fenwick[q]
		}
		crossings += total - lessOrEqual

		total++
		for idx := e.lower + 1; idx < len(fenwick); idx += idx & (-idx) {
			fenwick[idx]++
		}
	}
	return crossings
}

// OrderByX returns each layer's node IDs sorted by the given x coordinates,
// ties broken by ID. It turns a computed layout into the left-to-right
// orders [CountCrossings] expects.
func OrderByX(layers [][]string, x map[string]float64) [][]string {
	out := make([][]string, len(layers))
	for i, layer := range layers {
		ordered := slices.Clone(layer)
		slices.SortStableFunc(ordered, func(a, b string) int {
			switch {
			case x[a] < x[b]:
				return -1
			case x[a] > x[b]:
				return 1
			case a < b:
				return -1
			case a > b:
				return 1
			}
			return 0
		})
		out[i] = ordered
	}
	return out
}
