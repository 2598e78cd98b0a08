package graph

import (
	"encoding/json"
	"fmt"
	"os"
)

// =============================================================================
// Layout - Computed Layout Format
// =============================================================================

// Layout is the serialization format of a computed layout. It carries the
// layer structure alongside the final coordinates so that consumers (the
// DOT exporter, the inspector, HTTP clients) do not have to re-derive it.
type Layout struct {
	Layers [][]string     `json:"layers"`
	Nodes  []PlacedNode   `json:"nodes"`
	Edges  []DocumentEdge `json:"edges,omitempty"`
	Bounds Bounds         `json:"bounds"`
}

// PlacedNode is a node with its computed position.
type PlacedNode struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	Layer  int     `json:"layer"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Bounds is the axis-aligned box spanned by node positions.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Width returns MaxX - MinX.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns MaxY - MinY.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Node returns the placed node with the given id.
func (l *Layout) Node(id string) (PlacedNode, bool) {
	for _, n := range l.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return PlacedNode{}, false
}

// =============================================================================
// Layout Serialization API
// =============================================================================

// MarshalLayout serializes a Layout to pretty-printed JSON bytes.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout deserializes JSON bytes into a Layout.
// Every node listed in a layer must have a placement.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("unmarshal layout: %w", err)
	}

	placed := make(map[string]struct{}, len(l.Nodes))
	for _, n := range l.Nodes {
		placed[n.ID] = struct{}{}
	}
	for i, layer := range l.Layers {
		for _, id := range layer {
			if _, ok := placed[id]; !ok {
				return Layout{}, fmt.Errorf("layer %d references unplaced node %q", i, id)
			}
		}
	}

	return l, nil
}

// WriteLayoutFile writes a Layout to a JSON file.
func WriteLayoutFile(l Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadLayoutFile reads a Layout from a JSON file.
func ReadLayoutFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalLayout(data)
}
