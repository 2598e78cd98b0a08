package graph

import (
	"fmt"
	"maps"
	"sync"
)

// Memory is an in-memory [Graph] safe for concurrent use. It backs the CLI,
// the HTTP service and tests.
type Memory struct {
	mu       sync.RWMutex
	nodes    map[string]*MemoryNode
	order    []string
	edges    []*MemoryEdge
	edgeIDs  map[string]struct{}
	incoming map[string][]*MemoryEdge
	outgoing map[string][]*MemoryEdge
}

var _ Graph = (*Memory)(nil)

// NewMemory returns an empty graph.
func NewMemory() *Memory {
	return &Memory{
		nodes:    make(map[string]*MemoryNode),
		edgeIDs:  make(map[string]struct{}),
		incoming: make(map[string][]*MemoryEdge),
		outgoing: make(map[string][]*MemoryEdge),
	}
}

// AddNode inserts a node. Nodes are returned by [Memory.Nodes] in insertion
// order. Duplicate ids are rejected.
func (m *Memory) AddNode(id string, data map[string]any, pos Point, size Size) (*MemoryNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[id]; ok {
		return nil, fmt.Errorf("duplicate node id %q", id)
	}
	n := &MemoryNode{id: id, data: maps.Clone(data), pos: pos, size: size}
	if n.data == nil {
		n.data = map[string]any{}
	}
	m.nodes[id] = n
	m.order = append(m.order, id)
	return n, nil
}

// AddEdge inserts an edge. Endpoints are not required to exist, which lets
// callers model the dangling connections real editors produce.
func (m *Memory) AddEdge(id, source, target string, data map[string]any) (*MemoryEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.edgeIDs[id]; ok {
		return nil, fmt.Errorf("duplicate edge id %q", id)
	}
	e := &MemoryEdge{id: id, source: source, target: target, data: maps.Clone(data)}
	if e.data == nil {
		e.data = map[string]any{}
	}
	m.edgeIDs[id] = struct{}{}
	m.edges = append(m.edges, e)
	m.outgoing[source] = append(m.outgoing[source], e)
	m.incoming[target] = append(m.incoming[target], e)
	return e, nil
}

// Nodes returns all nodes in insertion order.
func (m *Memory) Nodes() []Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Node, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.nodes[id])
	}
	return out
}

// Edges returns all edges in insertion order.
func (m *Memory) Edges() []Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, len(m.edges))
	for i, e := range m.edges {
		out[i] = e
	}
	return out
}

// CellByID returns the node with the given id.
func (m *Memory) CellByID(id string) (Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, false
	}
	return n, true
}

// IncomingEdges returns the edges targeting n.
func (m *Memory) IncomingEdges(n Node) []Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return toEdges(m.incoming[n.ID()])
}

// OutgoingEdges returns the edges leaving n.
func (m *Memory) OutgoingEdges(n Node) []Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return toEdges(m.outgoing[n.ID()])
}

// Len returns the number of nodes and edges.
func (m *Memory) Len() (nodes, edges int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes), len(m.edges)
}

// Positions returns a snapshot of every node position keyed by id.
func (m *Memory) Positions() map[string]Point {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Point, len(m.nodes))
	for id, n := range m.nodes {
		out[id] = n.Position()
	}
	return out
}

func toEdges(in []*MemoryEdge) []Edge {
	out := make([]Edge, len(in))
	for i, e := range in {
		out[i] = e
	}
	return out
}

// MemoryNode is the [Node] implementation of [Memory].
type MemoryNode struct {
	id   string
	size Size

	mu     sync.RWMutex
	data   map[string]any
	pos    Point
	writes int
}

var _ Node = (*MemoryNode)(nil)

func (n *MemoryNode) ID() string { return n.id }
func (n *MemoryNode) Size() Size { return n.size }

// Data returns a shallow copy of the node data.
func (n *MemoryNode) Data() map[string]any {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return maps.Clone(n.data)
}

func (n *MemoryNode) Position() Point {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.pos
}

func (n *MemoryNode) SetPosition(x, y float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pos = Point{X: x, Y: y}
	n.writes++
	return nil
}

// Writes returns how many times SetPosition has been called.
func (n *MemoryNode) Writes() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.writes
}

// SetData replaces a single data key.
func (n *MemoryNode) SetData(key string, value any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.data[key] = value
}

// MemoryEdge is the [Edge] implementation of [Memory].
type MemoryEdge struct {
	id, source, target string
	data               map[string]any
}

var _ Edge = (*MemoryEdge)(nil)

func (e *MemoryEdge) ID() string           { return e.id }
func (e *MemoryEdge) Source() string       { return e.source }
func (e *MemoryEdge) Target() string       { return e.target }
func (e *MemoryEdge) Data() map[string]any { return maps.Clone(e.data) }
