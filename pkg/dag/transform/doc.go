// Package transform derives the layer structure of a workflow DAG.
//
// # Overview
//
// Workflow graphs arrive as arbitrary directed graphs. Before any node can
// be positioned, the layout engine needs two views of their depth:
//
//   - a topological layer index per node ([AssignLayers])
//   - an ordered list of layers, root first ([BuildHierarchy])
//
// Neither function modifies the graph.
//
// # Layer Assignment
//
// [AssignLayers] pins start nodes at layer 1 and places every other node
// one layer below its deepest parent. It runs an iterative Kahn traversal,
// so very deep graphs do not grow the stack. Nodes on a cycle never become
// ready; they are resolved one at a time (smallest ID first) with a
// fallback layer and reported in [Assignment.Warnings].
//
// # Hierarchical Build
//
// [BuildHierarchy] sweeps from the leaves upward. A parent joins a band only
// after all of its children are placed, which keeps every parent above its
// children once the bands are reversed:
//
//	start → A → end
//	start → B → end
//
//	bands (leaves first): [end] [A B] [start]
//	layers (root first):  [start] [A B] [end]
//
// Graphs without edges fall back to type-based bands: start nodes, then
// everything else, then end nodes.
//
// # Cycle Detection
//
// [FindCycles] lists the cycles closed by DFS back edges. It is used for
// diagnostics only; the layout never removes edges.
package transform
