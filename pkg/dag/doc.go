// Package dag provides the filtered graph model the layout stages run on.
//
// # Overview
//
// Preprocessing turns the host's raw nodes and edges into a [DAG]: only
// layoutable nodes, only real connections, parallel edges collapsed. Every
// later stage (layer assignment, positioning, optimization) reads this
// model and never touches the host graph.
//
// # Basic Usage
//
//	g := dag.New()
//	g.AddNode(dag.Node{ID: "start", Type: dag.TypeStart})
//	g.AddNode(dag.Node{ID: "sms-1"})
//	g.AddEdge(dag.Edge{ID: "e1", From: "start", To: "sms-1"})
//
// Query the structure with [DAG.Children], [DAG.Parents], [DAG.Sources] and
// [DAG.Sinks]. The adjacency maps returned by [DAG.ChildMap] and
// [DAG.ParentMap] contain every node as a key, even without neighbors.
//
// # Node Types
//
// [NodeType] classifies nodes. The type decides in-layer ordering: start
// nodes first, end nodes last, everything else by ID in between (see
// [ComparePriority]). [InferType] recovers a type from an id such as
// "audience-split-2" when the host did not declare one.
//
// # Edge Crossings
//
// [CountCrossings] and [CountLayerCrossings] count crossings between
// adjacent layers with a Fenwick tree in O(E log V). The layout engine
// reports the count; it does not minimize it.
//
// # Concurrency
//
// DAG instances are not safe for concurrent use. The layout engine builds a
// fresh DAG per run, so no synchronization is needed in practice.
//
// # Related Packages
//
// The [transform] subpackage assigns layers and builds the layer hierarchy.
//
// [transform]: github.com/matzehuels/flowlayout/pkg/dag/transform
package dag
