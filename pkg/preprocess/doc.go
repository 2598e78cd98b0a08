// Package preprocess filters a host graph down to the nodes and connections
// that take part in layout.
//
// Diagram editors keep auxiliary cells next to the real workflow: drop
// hints, preview lines, virtual placeholders. None of them may influence or
// receive a position. [Preprocessor.Run] removes them, resolves every node's
// type, and builds the [dag.DAG] the later stages read.
//
// Additional exclusions can be configured as expr-lang expressions (see
// [Rule]). Every dropped cell is accounted for in a [Report], together with
// isolated nodes and broken edges.
//
// [dag.DAG]: github.com/matzehuels/flowlayout/pkg/dag.DAG
package preprocess
