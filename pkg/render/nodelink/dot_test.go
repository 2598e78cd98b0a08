package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/flowlayout/pkg/graph"
)

func diamondLayout() graph.Layout {
	return graph.Layout{
		Layers: [][]string{{"start"}, {"A", "B"}, {"end"}},
		Nodes: []graph.PlacedNode{
			{ID: "end", Type: "end", Layer: 2, X: 0, Y: 266, Width: 100, Height: 40},
			{ID: "A", Type: "task", Layer: 1, X: -80, Y: 133, Width: 100, Height: 40},
			{ID: "B", Type: "task", Layer: 1, X: 80, Y: 133, Width: 100, Height: 40},
			{ID: "start", Type: "start", Layer: 0, X: 0, Y: 0},
		},
		Edges: []graph.DocumentEdge{
			{Source: "start", Target: "A"}, {Source: "start", Target: "B"},
			{Source: "A", Target: "end"}, {Source: "B", Target: "end"},
		},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(diamondLayout(), Options{})

	assert.True(t, strings.HasPrefix(dot, "digraph G {"))
	assert.Contains(t, dot, `"A" [label="A", pos="-80,-133!"`)
	assert.Contains(t, dot, `"end" [label="end", pos="0,-266!"`)
	assert.Contains(t, dot, `"start" -> "A";`)
	assert.Contains(t, dot, "shape=ellipse")

	// Nodes follow layer order, not input order.
	assert.Less(t, strings.Index(dot, `"start" [`), strings.Index(dot, `"A" [`))
	assert.Less(t, strings.Index(dot, `"B" [`), strings.Index(dot, `"end" [`))
}

func TestToDOTOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"detailed", Options{Detailed: true}, `label="A\ntask, layer 1"`},
		{"scaled", Options{Scale: 0.5}, `pos="-40,-66.5!"`},
		{"default size", Options{}, `"start" [label="start", pos="0,0!", width=1.6666666666666667, height=0.6666666666666666`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, ToDOT(diamondLayout(), tt.opts), tt.want)
		})
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="x"><g/></svg>`)
	out := string(normalizeViewBox(in))
	assert.Contains(t, out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50">`)
	assert.Contains(t, out, "<g/>")

	unchanged := []byte(`<svg><g/></svg>`)
	assert.Equal(t, unchanged, normalizeViewBox(unchanged))
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(diamondLayout(), Options{}))
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
	assert.Contains(t, string(svg), "start")
}
