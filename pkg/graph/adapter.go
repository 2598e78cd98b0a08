package graph

// Point is a position on the canvas.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the rendered extent of a node.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Graph is the adapter contract between the layout engine and the
// diagramming host that owns the nodes and edges.
//
// The engine only reads structure through this interface. The single
// mutation it ever performs is [Node.SetPosition].
type Graph interface {
	Nodes() []Node
	Edges() []Edge
	CellByID(id string) (Node, bool)
	IncomingEdges(n Node) []Edge
	OutgoingEdges(n Node) []Edge
}

// Node is a host-owned workflow node.
type Node interface {
	ID() string
	Data() map[string]any
	Position() Point
	SetPosition(x, y float64) error
	Size() Size
}

// Edge is a host-owned directed connection. Edges are read-only to the engine.
type Edge interface {
	ID() string
	Source() string
	Target() string
	Data() map[string]any
}

// Flag reports whether data[key] is boolean true. Hosts also send flags as
// the strings "true"/"1", which are accepted.
func Flag(data map[string]any, key string) bool {
	switch v := data[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	default:
		return false
	}
}

// String returns data[key] when it is a non-empty string.
func String(data map[string]any, key string) (string, bool) {
	s, ok := data[key].(string)
	return s, ok && s != ""
}
