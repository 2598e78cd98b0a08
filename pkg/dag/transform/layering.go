package transform

import (
	"fmt"
	"slices"

	"github.com/matzehuels/flowlayout/pkg/dag"
)

// Topological layer indices reserved for nodes without a computed depth.
const (
	StartLayer      = 1 // start nodes are pinned here
	ParentlessLayer = 2 // non-start nodes with no parents
)

// Assignment is the result of [AssignLayers].
type Assignment struct {
	// Layers maps every node ID to its topological layer index.
	Layers map[string]int
	// Fallback lists, in resolution order, the nodes whose layer had to be
	// chosen without all parents resolved (cycle members and nodes behind them).
	Fallback []string
	// Cycles lists the cycles found when Fallback is non-empty.
	Cycles [][]string
	// Warnings are human-readable notes about degraded assignments.
	Warnings []string
}

// MaxLayer returns the largest assigned index, or 0 for an empty assignment.
func (a Assignment) MaxLayer() int {
	m := 0
	for _, l := range a.Layers {
		m = max(m, l)
	}
	return m
}

// AssignLayers computes a topological layer index for every node.
//
// Start nodes are pinned at [StartLayer]. Any other node is placed at one
// plus the maximum layer of its parents, and a non-start node with no
// parents sits at [ParentlessLayer]. Each node therefore ends up strictly
// below all of its parents.
//
// # Algorithm
//
// AssignLayers performs an iterative topological traversal (Kahn's
// algorithm), never recursion:
//  1. Queue every node with in-degree 0, in ID order
//  2. Pop a node, compute its layer from its (already resolved) parents
//  3. Decrement the in-degree of its children; queue those reaching zero
//  4. Repeat until the queue is empty
//
// # Cycles
//
// Nodes on a cycle, or downstream of one, never reach in-degree zero. When
// the queue drains with nodes left over, the unresolved node with the
// smallest ID is given a fallback layer of max(resolved parent layers)+1
// (or [ParentlessLayer] if none are resolved) and the traversal resumes
// from it. This repeats until every node has a layer, so the result is
// deterministic. The cycles involved are reported via [FindCycles] and a
// warning.
//
// # Performance
//
// Time complexity is O(V + E) for acyclic graphs. Each fallback adds an
// O(V) scan for the next unresolved node.
func AssignLayers(g *dag.DAG) Assignment {
	ids := g.NodeIDs()
	inDegree := make(map[string]int, len(ids))
	layers := make(map[string]int, len(ids))
	queue := make([]string, 0, len(ids))

	for _, id := range ids {
		inDegree[id] = g.InDegree(id)
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	resolve := func(id string) {
		n, _ := g.Node(id)
		switch {
		case n.Type.IsStart():
			layers[id] = StartLayer
		default:
			best, found := 0, false
			for _, p := range g.Parents(id) {
				if l, ok := layers[p]; ok {
					best, found = max(best, l), true
				}
			}
			if found {
				layers[id] = best + 1
			} else {
				layers[id] = ParentlessLayer
			}
		}
	}

	drain := func() {
		for len(queue) > 0 {
			curr := queue[0]
			queue = queue[1:]
			resolve(curr)
			for _, child := range g.Children(curr) {
				if _, done := layers[child]; done {
					continue
				}
				inDegree[child]--
				if inDegree[child] == 0 {
					queue = append(queue, child)
				}
			}
		}
	}

	a := Assignment{Layers: layers}
	drain()
	for len(layers) < len(ids) {
		i := slices.IndexFunc(ids, func(id string) bool {
			_, done := layers[id]
			return !done && inDegree[id] > 0
		})
		next := ids[i]
		a.Fallback = append(a.Fallback, next)
		inDegree[next] = 0
		queue = append(queue, next)
		drain()
	}

	if len(a.Fallback) > 0 {
		a.Cycles = FindCycles(g)
		a.Warnings = append(a.Warnings, fmt.Sprintf(
			"%d node(s) on or behind %d cycle(s) were given fallback layers: %v",
			len(a.Fallback), len(a.Cycles), a.Fallback))
	}
	return a
}
