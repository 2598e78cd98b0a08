package dag_test

import (
	"fmt"

	"github.com/matzehuels/flowlayout/pkg/dag"
)

func ExampleDAG_basic() {
	// A diamond workflow: start fans out to two branches that rejoin at end
	g := dag.New()
	_ = g.AddNode(dag.Node{ID: "start", Type: dag.TypeStart})
	_ = g.AddNode(dag.Node{ID: "sms"})
	_ = g.AddNode(dag.Node{ID: "email"})
	_ = g.AddNode(dag.Node{ID: "end", Type: dag.TypeEnd})
	_, _ = g.AddEdge(dag.Edge{From: "start", To: "sms"})
	_, _ = g.AddEdge(dag.Edge{From: "start", To: "email"})
	_, _ = g.AddEdge(dag.Edge{From: "sms", To: "end"})
	_, _ = g.AddEdge(dag.Edge{From: "email", To: "end"})

	fmt.Println("Nodes:", g.NodeCount())
	fmt.Println("Edges:", g.EdgeCount())
	fmt.Println("Children of start:", g.Children("start"))
	fmt.Println("Parents of end:", g.Parents("end"))
	// Output:
	// Nodes: 4
	// Edges: 4
	// Children of start: [sms email]
	// Parents of end: [sms email]
}

func ExampleDAG_AddEdge() {
	// Repeated connections between the same pair collapse into one edge
	g := dag.New()
	_ = g.AddNode(dag.Node{ID: "a"})
	_ = g.AddNode(dag.Node{ID: "b"})

	added, _ := g.AddEdge(dag.Edge{ID: "e1", From: "a", To: "b"})
	again, _ := g.AddEdge(dag.Edge{ID: "e2", From: "a", To: "b"})

	fmt.Println(added, again, g.EdgeCount())
	// Output:
	// true false 1
}

func ExampleInferType() {
	for _, id := range []string{"ai-call-start", "audience-split-2", "node-end", "sms-1"} {
		fmt.Println(id, "→", dag.InferType(id))
	}
	// Output:
	// ai-call-start → ai-call
	// audience-split-2 → audience-split
	// node-end → end
	// sms-1 → process
}

func ExampleCountLayerCrossings() {
	// Two parents whose edges swap sides cross exactly once
	g := dag.New()
	for _, id := range []string{"p1", "p2", "c1", "c2"} {
		_ = g.AddNode(dag.Node{ID: id})
	}
	_, _ = g.AddEdge(dag.Edge{From: "p1", To: "c2"})
	_, _ = g.AddEdge(dag.Edge{From: "p2", To: "c1"})

	fmt.Println(dag.CountLayerCrossings(g, []string{"p1", "p2"}, []string{"c1", "c2"}))
	fmt.Println(dag.CountLayerCrossings(g, []string{"p1", "p2"}, []string{"c2", "c1"}))
	// Output:
	// 1
	// 0
}
