package graph

import (
	"bytes"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flerrors "github.com/matzehuels/flowlayout/pkg/errors"
)

const sampleDoc = `{
  "nodes": [
    {"id": "start", "type": "start", "x": 10, "y": 20, "width": 120, "height": 40},
    {"id": "task-a", "data": {"label": "A"}},
    {"id": "end", "data": {"type": "end"}}
  ],
  "edges": [
    {"id": "e1", "source": "start", "target": "task-a"},
    {"source": "task-a", "target": "end"}
  ]
}`

func TestReadDocument(t *testing.T) {
	doc, err := ReadDocument(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 3)
	require.Len(t, doc.Edges, 2)
	assert.Equal(t, "start", doc.Nodes[0].Type)
	assert.Equal(t, 120.0, doc.Nodes[0].Width)
	assert.Equal(t, "", doc.Edges[1].ID)
}

func TestReadDocumentSchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"not json", `{`, "not valid JSON"},
		{"missing nodes", `{"edges": []}`, "graph document invalid"},
		{"empty id", `{"nodes": [{"id": ""}]}`, "/nodes/0/id"},
		{"unknown field", `{"nodes": [{"id": "a", "colour": "red"}]}`, "/nodes/0"},
		{"edge without target", `{"nodes": [{"id": "a"}], "edges": [{"source": "a"}]}`, "/edges/0"},
		{"negative width", `{"nodes": [{"id": "a", "width": -1}]}`, "/nodes/0/width"},
		{"duplicate node", `{"nodes": [{"id": "a"}, {"id": "a"}]}`, `duplicate node id "a"`},
		{"duplicate edge", `{"nodes": [{"id": "a"}, {"id": "b"}], "edges": [{"id": "e", "source": "a", "target": "b"}, {"id": "e", "source": "b", "target": "a"}]}`, `duplicate edge id "e"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDocument(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, flerrors.Is(err, flerrors.ErrCodeValidation), "code = %v", flerrors.GetCode(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestToMemory(t *testing.T) {
	doc, err := ReadDocument(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	g, err := doc.ToMemory()
	require.NoError(t, err)

	nodes, edges := g.Len()
	assert.Equal(t, 3, nodes)
	assert.Equal(t, 2, edges)

	start, ok := g.CellByID("start")
	require.True(t, ok)
	assert.Equal(t, "start", start.Data()[KeyType])
	assert.Equal(t, Point{X: 10, Y: 20}, start.Position())
	assert.Equal(t, Size{Width: 120, Height: 40}, start.Size())

	end, _ := g.CellByID("end")
	assert.Equal(t, "end", end.Data()[KeyType], "data type wins over document type")

	taskA, _ := g.CellByID("task-a")
	in := g.IncomingEdges(taskA)
	out := g.OutgoingEdges(taskA)
	require.Len(t, in, 1)
	require.Len(t, out, 1)
	assert.Equal(t, "e1", in[0].ID())
	assert.Equal(t, "task-a->end", out[0].ID())
}

func TestDocumentRoundTrip(t *testing.T) {
	doc, err := ReadDocument(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	g, err := doc.ToMemory()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteDocumentFile(FromGraph(g), path))

	back, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, FromGraph(g), FromGraph(back))

	out := FromGraph(back)
	assert.Equal(t, []string{"end", "start", "task-a"}, []string{out.Nodes[0].ID, out.Nodes[1].ID, out.Nodes[2].ID})
	assert.Equal(t, "start", out.Nodes[1].Type)
	assert.Nil(t, out.Nodes[0].Data, "type is lifted out of data")
}

func TestMarshalDocument(t *testing.T) {
	data, err := MarshalDocument(Document{Nodes: []DocumentNode{{ID: "a"}}})
	require.NoError(t, err)
	assert.True(t, bytes.Contains(data, []byte(`"id": "a"`)))
	_, err = UnmarshalDocument(data)
	require.NoError(t, err)
}

func TestMemoryDuplicates(t *testing.T) {
	g := NewMemory()
	_, err := g.AddNode("a", nil, Point{}, Size{})
	require.NoError(t, err)
	_, err = g.AddNode("a", nil, Point{}, Size{})
	assert.Error(t, err)

	_, err = g.AddEdge("e", "a", "b", nil)
	require.NoError(t, err)
	_, err = g.AddEdge("e", "a", "c", nil)
	assert.Error(t, err)
}

func TestMemoryDataIsCopied(t *testing.T) {
	g := NewMemory()
	data := map[string]any{"k": "v"}
	n, err := g.AddNode("a", data, Point{}, Size{})
	require.NoError(t, err)

	data["k"] = "changed"
	assert.Equal(t, "v", n.Data()["k"])

	got := n.Data()
	got["k"] = "mutated"
	assert.Equal(t, "v", n.Data()["k"])

	n.SetData("k", "set")
	assert.Equal(t, "set", n.Data()["k"])
}

func TestMemoryConcurrentWrites(t *testing.T) {
	g := NewMemory()
	n, err := g.AddNode("a", nil, Point{}, Size{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = n.SetPosition(float64(i), 0)
			_ = g.Positions()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, n.Writes())
}

func TestFlag(t *testing.T) {
	tests := []struct {
		val  any
		want bool
	}{
		{true, true},
		{false, false},
		{"true", true},
		{"1", true},
		{"yes", false},
		{nil, false},
		{1, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Flag(map[string]any{"f": tt.val}, "f"), "value %v", tt.val)
	}
}

func TestLayoutFile(t *testing.T) {
	l := Layout{
		Layers: [][]string{{"a"}, {"b"}},
		Nodes:  []PlacedNode{{ID: "a", Layer: 0}, {ID: "b", Layer: 1, Y: 120}},
		Bounds: Bounds{MaxY: 120},
	}
	path := filepath.Join(t.TempDir(), "layout.json")
	require.NoError(t, WriteLayoutFile(l, path))

	got, err := ReadLayoutFile(path)
	require.NoError(t, err)
	assert.Equal(t, l, got)
	assert.Equal(t, 120.0, got.Bounds.Height())

	n, ok := got.Node("b")
	require.True(t, ok)
	assert.Equal(t, 1, n.Layer)

	_, err = UnmarshalLayout([]byte(`{"layers": [["ghost"]], "nodes": []}`))
	assert.ErrorContains(t, err, "unplaced node")
}
