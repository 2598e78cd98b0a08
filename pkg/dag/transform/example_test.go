package transform_test

import (
	"fmt"

	"github.com/matzehuels/flowlayout/pkg/dag"
	"github.com/matzehuels/flowlayout/pkg/dag/transform"
)

func ExampleBuildHierarchy() {
	g := dag.New()
	_ = g.AddNode(dag.Node{ID: "start", Type: dag.TypeStart})
	_ = g.AddNode(dag.Node{ID: "A"})
	_ = g.AddNode(dag.Node{ID: "B"})
	_ = g.AddNode(dag.Node{ID: "end", Type: dag.TypeEnd})
	_, _ = g.AddEdge(dag.Edge{From: "start", To: "A"})
	_, _ = g.AddEdge(dag.Edge{From: "start", To: "B"})
	_, _ = g.AddEdge(dag.Edge{From: "A", To: "end"})
	_, _ = g.AddEdge(dag.Edge{From: "B", To: "end"})

	h := transform.BuildHierarchy(g, 0)
	for i, layer := range h.Layers {
		fmt.Println(i, layer)
	}
	// Output:
	// 0 [start]
	// 1 [A B]
	// 2 [end]
}

func ExampleAssignLayers() {
	g := dag.New()
	_ = g.AddNode(dag.Node{ID: "start", Type: dag.TypeStart})
	_ = g.AddNode(dag.Node{ID: "task"})
	_ = g.AddNode(dag.Node{ID: "orphan"})
	_, _ = g.AddEdge(dag.Edge{From: "start", To: "task"})

	a := transform.AssignLayers(g)
	fmt.Println("start:", a.Layers["start"])
	fmt.Println("task:", a.Layers["task"])
	fmt.Println("orphan:", a.Layers["orphan"])
	// Output:
	// start: 1
	// task: 2
	// orphan: 2
}

func ExampleFindCycles() {
	g := dag.New()
	for _, id := range []string{"a", "b", "c"} {
		_ = g.AddNode(dag.Node{ID: id})
	}
	_, _ = g.AddEdge(dag.Edge{From: "a", To: "b"})
	_, _ = g.AddEdge(dag.Edge{From: "b", To: "c"})
	_, _ = g.AddEdge(dag.Edge{From: "c", To: "a"})

	fmt.Println(transform.FindCycles(g))
	// Output:
	// [[a b c]]
}
