// Package nodelink renders computed workflow layouts as node-link diagrams.
//
// # Overview
//
// Unlike a plain Graphviz rendering, the diagram keeps the coordinates the
// layout engine computed: [ToDOT] pins every node with pos="x,y!" and the
// graph is laid out by neato, which only routes the edges.
//
// # Usage
//
//	dot := nodelink.ToDOT(l, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PDF or PNG output, use the render functions:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0) // 2x scale
//
// # Coordinates
//
// Layout coordinates grow downward, Graphviz coordinates grow upward, so y
// is negated on output. One layout pixel is one Graphviz point.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
