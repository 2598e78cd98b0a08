package transform

import (
	"slices"

	"github.com/matzehuels/flowlayout/pkg/dag"
)

// FindCycles returns the directed cycles closed by DFS back edges. Each cycle
// lists node IDs in edge order, starting at the node the back edge points to.
// Returns nil for an acyclic graph. The graph is not modified.
func FindCycles(g *dag.DAG) [][]string {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int)
	var stack []string
	var cycles [][]string

	var dfs func(node string)
	dfs = func(node string) {
		color[node] = gray
		stack = append(stack, node)
		for _, child := range g.Children(node) {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				start := slices.Index(stack, child)
				cycles = append(cycles, slices.Clone(stack[start:]))
			}
		}
		stack = stack[:len(stack)-1]
		color[node] = black
	}

	for _, n := range g.Sources() {
		if color[n.ID] == white {
			dfs(n.ID)
		}
	}

	for _, n := range g.Nodes() {
		if color[n.ID] == white {
			dfs(n.ID)
		}
	}

	return cycles
}
