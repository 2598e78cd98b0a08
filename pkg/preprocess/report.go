package preprocess

import (
	"maps"
	"slices"
)

// Report summarizes what preprocessing kept and dropped.
type Report struct {
	TotalNodes int `json:"total_nodes"`
	TotalEdges int `json:"total_edges"`
	Nodes      int `json:"nodes"`
	Edges      int `json:"edges"`

	ExcludedNodes map[Reason]int `json:"excluded_nodes,omitempty"`
	ExcludedEdges map[Reason]int `json:"excluded_edges,omitempty"`

	// IsolatedNodes are surviving nodes with no real connection.
	IsolatedNodes []string `json:"isolated_nodes,omitempty"`
	// BrokenEdges are edges whose source or target did not survive.
	BrokenEdges []string `json:"broken_edges,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
}

// Valid reports whether the graph came through without integrity issues.
func (r Report) Valid() bool {
	return len(r.BrokenEdges) == 0 && (r.Nodes <= 1 || len(r.IsolatedNodes) == 0)
}

// Reasons returns the node and edge exclusion reasons in sorted order.
func (r Report) Reasons() []Reason {
	set := make(map[Reason]struct{})
	for k := range r.ExcludedNodes {
		set[k] = struct{}{}
	}
	for k := range r.ExcludedEdges {
		set[k] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

func (r Report) excludedNodeCount() int {
	n := 0
	for _, c := range r.ExcludedNodes {
		n += c
	}
	return n
}
