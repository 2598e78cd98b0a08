package graph

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// =============================================================================
// Constants
// =============================================================================

// Data keys the engine reads from node and edge data.
const (
	KeyType        = "type"
	KeyNodeType    = "nodeType"
	KeyIsPreview   = "isPreview"
	KeyIsVirtual   = "isVirtual"
	KeyIsTemporary = "isTemporary"
	KeyIsHint      = "isHint"
)

// =============================================================================
// Document - Graph Interchange Format
// =============================================================================

// Document is the JSON interchange format for workflow graphs, used by the
// CLI, the HTTP service and the file watcher.
//
//	{
//	  "nodes": [{"id": "start", "type": "start", "x": 0, "y": 0}],
//	  "edges": [{"id": "e1", "source": "start", "target": "task"}]
//	}
type Document struct {
	Nodes []DocumentNode `json:"nodes"`
	Edges []DocumentEdge `json:"edges"`
}

// DocumentNode is a serialized node. Type, when set, is stored in the node
// data under "type" unless the data already carries one.
type DocumentNode struct {
	ID     string         `json:"id"`
	Type   string         `json:"type,omitempty"`
	X      float64        `json:"x"`
	Y      float64        `json:"y"`
	Width  float64        `json:"width,omitempty"`
	Height float64        `json:"height,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// DocumentEdge is a serialized edge. An empty ID is replaced with
// "source->target" on conversion.
type DocumentEdge struct {
	ID     string         `json:"id,omitempty"`
	Source string         `json:"source"`
	Target string         `json:"target"`
	Data   map[string]any `json:"data,omitempty"`
}

// =============================================================================
// Document ↔ Graph Conversion
// =============================================================================

// ToMemory builds an in-memory graph from the document.
// Duplicate node or edge ids are rejected; dangling edges are kept so that
// preprocessing can report them.
func (d Document) ToMemory() (*Memory, error) {
	m := NewMemory()
	for _, n := range d.Nodes {
		data := maps.Clone(n.Data)
		if n.Type != "" {
			if data == nil {
				data = map[string]any{}
			}
			if _, ok := data[KeyType]; !ok {
				data[KeyType] = n.Type
			}
		}
		size := Size{Width: n.Width, Height: n.Height}
		if _, err := m.AddNode(n.ID, data, Point{X: n.X, Y: n.Y}, size); err != nil {
			return nil, err
		}
	}
	for i, e := range d.Edges {
		id := e.ID
		if id == "" {
			id = fmt.Sprintf("%s->%s", e.Source, e.Target)
			if _, dup := m.edgeIDs[id]; dup {
				id = fmt.Sprintf("%s#%d", id, i)
			}
		}
		if _, err := m.AddEdge(id, e.Source, e.Target, e.Data); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// FromGraph serializes any Graph. Nodes and edges are sorted by id for
// deterministic output.
func FromGraph(g Graph) Document {
	nodes := g.Nodes()
	slices.SortFunc(nodes, func(a, b Node) int { return cmp.Compare(a.ID(), b.ID()) })
	edges := g.Edges()
	slices.SortFunc(edges, func(a, b Edge) int { return cmp.Compare(a.ID(), b.ID()) })

	doc := Document{
		Nodes: make([]DocumentNode, len(nodes)),
		Edges: make([]DocumentEdge, len(edges)),
	}
	for i, n := range nodes {
		data := n.Data()
		typ, _ := String(data, KeyType)
		if typ != "" {
			delete(data, KeyType)
		}
		if len(data) == 0 {
			data = nil
		}
		pos, size := n.Position(), n.Size()
		doc.Nodes[i] = DocumentNode{
			ID:     n.ID(),
			Type:   typ,
			X:      pos.X,
			Y:      pos.Y,
			Width:  size.Width,
			Height: size.Height,
			Data:   data,
		}
	}
	for i, e := range edges {
		data := e.Data()
		if len(data) == 0 {
			data = nil
		}
		doc.Edges[i] = DocumentEdge{ID: e.ID(), Source: e.Source(), Target: e.Target(), Data: data}
	}
	return doc
}
