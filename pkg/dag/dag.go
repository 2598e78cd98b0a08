package dag

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrInvalidNodeID is returned by [DAG.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [DAG.AddNode] when a node with the
	// same ID already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [DAG.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [DAG.AddEdge] when the To node
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrSelfLoop is returned by [DAG.AddEdge] for an edge from a node to itself.
	ErrSelfLoop = errors.New("self-loop edge")
)

// Metadata stores arbitrary key-value pairs attached to nodes. It carries
// the host's data map through the pipeline unchanged. Metadata maps are
// never nil after [DAG.AddNode].
type Metadata map[string]any

// Node is a layoutable workflow node that survived preprocessing.
//
// The zero value is not usable - ID and Type must be set before adding to a DAG.
type Node struct {
	ID     string   // Unique identifier, shared with the host adapter
	Type   NodeType // Declared or inferred node type
	Width  float64  // Rendered width (0 if unknown)
	Height float64  // Rendered height (0 if unknown)
	Meta   Metadata // Host data map (never nil after AddNode)
}

// Priority returns the ordering priority of the node's type.
func (n Node) Priority() int { return n.Type.Priority() }

// Edge is a real connection between two layoutable nodes.
type Edge struct {
	ID   string // Host edge id of the first edge seen for this pair
	From string // Source node ID
	To   string // Target node ID
}

// DAG is the filtered graph model the layout stages run on. Despite the
// name, cycles are permitted: host editors can produce them, and the layer
// assigner degrades gracefully when it meets one.
//
// Every node added with [DAG.AddNode] is present as a key in both adjacency
// maps, with an empty list when it has no neighbors. Parallel edges between
// the same pair are collapsed into one.
//
// The zero value is not usable - use New to create a valid DAG instance.
// DAG is not safe for concurrent use without external synchronization.
type DAG struct {
	nodes    map[string]*Node
	edges    []Edge
	pairs    map[[2]string]struct{}
	outgoing map[string][]string // nodeID -> children IDs
	incoming map[string][]string // nodeID -> parent IDs
}

// New creates an empty DAG.
func New() *DAG {
	return &DAG{
		nodes:    make(map[string]*Node),
		pairs:    make(map[[2]string]struct{}),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// AddNode adds a node to the graph.
// Returns ErrInvalidNodeID if the node ID is empty, or ErrDuplicateNodeID
// if a node with the same ID already exists. An empty Type defaults to
// [TypeProcess].
func (d *DAG) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := d.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	if n.Type == "" {
		n.Type = TypeProcess
	}
	node := &n
	d.nodes[node.ID] = node
	d.outgoing[node.ID] = []string{}
	d.incoming[node.ID] = []string{}
	return nil
}

// AddEdge adds a directed edge between two existing nodes and reports
// whether it was new. A second edge with the same From/To pair is a
// duplicate: it is ignored and AddEdge returns false with a nil error.
func (d *DAG) AddEdge(e Edge) (bool, error) {
	if _, ok := d.nodes[e.From]; !ok {
		return false, ErrUnknownSourceNode
	}
	if _, ok := d.nodes[e.To]; !ok {
		return false, ErrUnknownTargetNode
	}
	if e.From == e.To {
		return false, ErrSelfLoop
	}
	key := [2]string{e.From, e.To}
	if _, dup := d.pairs[key]; dup {
		return false, nil
	}
	d.pairs[key] = struct{}{}
	d.edges = append(d.edges, e)
	d.outgoing[e.From] = append(d.outgoing[e.From], e.To)
	d.incoming[e.To] = append(d.incoming[e.To], e.From)
	return true, nil
}

// Nodes returns all nodes sorted by ID. The returned slice contains
// pointers to the actual node structs.
func (d *DAG) Nodes() []*Node {
	nodes := make([]*Node, 0, len(d.nodes))
	for _, id := range d.NodeIDs() {
		nodes = append(nodes, d.nodes[id])
	}
	return nodes
}

// NodeIDs returns all node IDs in ascending order.
func (d *DAG) NodeIDs() []string {
	return slices.Sorted(maps.Keys(d.nodes))
}

// Edges returns a copy of all edges in insertion order.
func (d *DAG) Edges() []Edge { return slices.Clone(d.edges) }

// NodeCount returns the number of nodes in the graph.
func (d *DAG) NodeCount() int { return len(d.nodes) }

// EdgeCount returns the number of distinct edges in the graph.
func (d *DAG) EdgeCount() int { return len(d.edges) }

// Children returns the IDs of nodes this node has edges to, in insertion
// order. The returned slice should not be modified.
func (d *DAG) Children(id string) []string { return d.outgoing[id] }

// Parents returns the IDs of nodes with edges to this node, in insertion
// order. The returned slice should not be modified.
func (d *DAG) Parents(id string) []string { return d.incoming[id] }

// OutDegree returns the number of outgoing edges from the node.
func (d *DAG) OutDegree(id string) int { return len(d.outgoing[id]) }

// InDegree returns the number of incoming edges to the node.
func (d *DAG) InDegree(id string) int { return len(d.incoming[id]) }

// Degree returns the total number of real connections of the node.
func (d *DAG) Degree(id string) int { return d.InDegree(id) + d.OutDegree(id) }

// Node returns the node with the given ID and true, or nil and false if not found.
func (d *DAG) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// ChildMap returns a copy of the parent → children adjacency. Every node is
// a key.
func (d *DAG) ChildMap() map[string][]string { return cloneAdjacency(d.outgoing) }

// ParentMap returns a copy of the child → parents adjacency. Every node is
// a key.
func (d *DAG) ParentMap() map[string][]string { return cloneAdjacency(d.incoming) }

// Sources returns nodes with no incoming edges, sorted by ID.
func (d *DAG) Sources() []*Node {
	return d.filter(func(id string) bool { return len(d.incoming[id]) == 0 })
}

// Sinks returns nodes with no outgoing edges (leaves), sorted by ID.
func (d *DAG) Sinks() []*Node {
	return d.filter(func(id string) bool { return len(d.outgoing[id]) == 0 })
}

// Isolated returns nodes without any real connection, sorted by ID.
func (d *DAG) Isolated() []*Node {
	return d.filter(func(id string) bool { return d.Degree(id) == 0 })
}

// Canonical returns a stable textual form of the graph structure: sorted
// nodes with their type and size, then sorted edges. Two graphs with the
// same canonical form lay out identically.
func (d *DAG) Canonical() string {
	var b strings.Builder
	for _, n := range d.Nodes() {
		fmt.Fprintf(&b, "n|%s|%s|%g|%g\n", n.ID, n.Type, n.Width, n.Height)
	}
	pairs := make([]string, 0, len(d.edges))
	for _, e := range d.edges {
		pairs = append(pairs, e.From+"\x00"+e.To)
	}
	slices.Sort(pairs)
	for _, p := range pairs {
		from, to, _ := strings.Cut(p, "\x00")
		fmt.Fprintf(&b, "e|%s|%s\n", from, to)
	}
	return b.String()
}

func (d *DAG) filter(keep func(id string) bool) []*Node {
	var out []*Node
	for _, id := range d.NodeIDs() {
		if keep(id) {
			out = append(out, d.nodes[id])
		}
	}
	return out
}

func cloneAdjacency(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = slices.Clone(v)
	}
	return out
}

// PosMap creates a position lookup map from a slice of node IDs.
// The returned map maps each ID to its index in the slice.
func PosMap(ids []string) map[string]int {
	m := make(map[string]int, len(ids))
	for i, id := range ids {
		m[id] = i
	}
	return m
}

// NodeIDs extracts the ID from each node in a slice.
func NodeIDs(nodes []*Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
