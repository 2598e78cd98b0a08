// Package layout computes node coordinates for a layered workflow graph.
//
// # Stages
//
// The engine runs four stages over a shared [Records] value, in order:
//
//	recs := layout.Position(g, h, p)                // bottom-up placement
//	layout.OptimizeLayers(g, h, recs, p, nil)       // per-layer refinement
//	layout.OptimizeGlobal(h, recs, p)               // cross-layer passes
//	res := layout.Apply(host, recs)                 // write to the host
//
// Only [Apply] touches the host graph, unless a [SyncFunc] such as
// [LiveSync] is passed to [OptimizeLayers].
//
// # Coordinates
//
// X grows to the right and is centered on [Params.CenterX]. During
// positioning, layer y decreases by BaseHeight per step up from the deepest
// layer. The global optimizer then renumbers y from the root layer down,
// starting at 0.
//
// # Spacing
//
// Neighbors in a layer are never closer than [Params.Enforced], which is
// max(MinSpacing, 150). Every pass that moves nodes horizontally restores
// this gap before it returns.
package layout
