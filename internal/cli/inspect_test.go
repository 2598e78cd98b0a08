package cli

import (
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/flowlayout/pkg/graph"
	"github.com/matzehuels/flowlayout/pkg/layout"
)

func sampleLayout() graph.Layout {
	return graph.Layout{
		Layers: [][]string{{"start"}, {"A", "B"}, {"end"}},
		Nodes: []graph.PlacedNode{
			{ID: "start", Type: "start", Layer: 0, X: 0, Y: 540, Width: 100, Height: 40},
			{ID: "A", Layer: 1, X: -80, Y: 420, Width: 100, Height: 40},
			{ID: "B", Layer: 1, X: 80, Y: 420, Width: 100, Height: 40},
			{ID: "end", Type: "end", Layer: 2, X: 0, Y: 300, Width: 100, Height: 40},
		},
		Bounds: graph.Bounds{MinX: -130, MaxX: 130, MinY: 280, MaxY: 560},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m inspectModel, keys ...string) inspectModel {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(inspectModel)
	}
	return m
}

func TestInspectNavigation(t *testing.T) {
	tests := []struct {
		name      string
		keys      []string
		wantLayer int
		wantNode  string
	}{
		{"initial", nil, 0, "start"},
		{"down", []string{"down"}, 1, "A"},
		{"down right", []string{"down", "right"}, 1, "B"},
		{"right clamps", []string{"j", "l", "l", "l"}, 1, "B"},
		{"node clamps on layer change", []string{"down", "right", "down"}, 2, "end"},
		{"bottom clamps", []string{"down", "down", "down", "down"}, 2, "end"},
		{"up from top", []string{"up", "k"}, 0, "start"},
		{"home", []string{"down", "right", "g"}, 0, "start"},
		{"vim keys", []string{"j", "l", "h"}, 1, "A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := press(newInspectModel("flow", sampleLayout(), nil, nil), tt.keys...)
			assert.Equal(t, tt.wantLayer, m.layer)
			n, ok := m.selected()
			require.True(t, ok)
			assert.Equal(t, tt.wantNode, n.ID)
		})
	}
}

func TestInspectQuit(t *testing.T) {
	for _, k := range []string{"q", "esc"} {
		t.Run(k, func(t *testing.T) {
			msg := key(k)
			if k == "esc" {
				msg = tea.KeyMsg{Type: tea.KeyEsc}
			}
			_, cmd := newInspectModel("flow", sampleLayout(), nil, nil).Update(msg)
			require.NotNil(t, cmd)
			assert.Equal(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestInspectScrolling(t *testing.T) {
	m := newInspectModel("flow", sampleLayout(), nil, nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 10})
	m = next.(inspectModel)
	assert.Equal(t, 3, m.height)

	m.height = 2
	m = press(m, "down", "down")
	assert.Equal(t, 1, m.offset)
	m = press(m, "up", "up")
	assert.Equal(t, 0, m.offset)
}

func TestInspectView(t *testing.T) {
	stats := &layout.Stats{Crossings: 0, Density: 0.5}
	m := press(newInspectModel("flow.json", sampleLayout(), stats, []string{"layer limit reached"}), "down", "right")

	view := m.View()
	assert.Contains(t, view, "Layout flow.json")
	assert.Contains(t, view, "Order (left to right)")
	assert.Contains(t, view, "A [B]")
	assert.Contains(t, view, "x 80")
	assert.Contains(t, view, "[2/3]")
	assert.Contains(t, view, "4 nodes")
	assert.Contains(t, view, "bounds 260×280")
	assert.Contains(t, view, "0 crossings")
	assert.Contains(t, view, "layer limit reached")
}

func TestInspectViewEmpty(t *testing.T) {
	view := newInspectModel("empty", graph.Layout{}, nil, nil).View()
	assert.Contains(t, view, "(empty layout)")
}

func TestFmtCoord(t *testing.T) {
	assert.Equal(t, "80", fmtCoord(80))
	assert.Equal(t, "-80", fmtCoord(-80))
	assert.Equal(t, "12.5", fmtCoord(12.5))
}

func TestLoadInspectModel(t *testing.T) {
	input := writeGraph(t, diamondDoc)
	c := New(io.Discard, LogInfo)

	m, err := c.loadInspectModel(t.Context(), input, false)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"start"}, {"A", "B"}, {"end"}}, m.layout.Layers)
	assert.NotNil(t, m.stats)
	assert.NoFileExists(t, derivePath(input, ".positioned.json"))

	require.NoError(t, graph.WriteLayoutFile(m.layout, derivePath(input, ".layout.json")))
	fromFile, err := c.loadInspectModel(t.Context(), derivePath(input, ".layout.json"), true)
	require.NoError(t, err)
	assert.Equal(t, m.layout.Layers, fromFile.layout.Layers)
	assert.Nil(t, fromFile.stats)
}

func TestLoadInspectModelEmptyGraph(t *testing.T) {
	input := writeGraph(t, `{"nodes": [], "edges": []}`)
	c := New(io.Discard, LogInfo)

	_, err := c.loadInspectModel(t.Context(), input, false)
	assert.ErrorContains(t, err, "empty_graph")
}
