// Package render turns computed layouts into pictures.
//
// The [nodelink] subpackage writes a layout as Graphviz DOT with every node
// pinned to its computed position and renders it to SVG in-process. [ToPDF]
// and [ToPNG] convert that SVG further using the external rsvg-convert tool
// (from librsvg):
//
//	dot := nodelink.ToDOT(l, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	png, err := render.ToPNG(ctx, svg, 2.0)
//
// [nodelink]: github.com/matzehuels/flowlayout/pkg/render/nodelink
package render
