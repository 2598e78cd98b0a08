package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/flowlayout/pkg/dag"
	"github.com/matzehuels/flowlayout/pkg/graph"
	"github.com/matzehuels/flowlayout/pkg/render"
)

const (
	pointsPerInch = 72.0
	defaultWidth  = 120.0
	defaultHeight = 48.0
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the node type and layer to each label.
	Detailed bool
	// Scale multiplies every coordinate. Zero means 1.
	Scale float64
}

var typeStyle = map[string][]string{
	string(dag.TypeStart):     {"shape=ellipse", "fillcolor=\"#d1fae5\""},
	string(dag.TypeEnd):       {"shape=ellipse", "fillcolor=\"#fee2e2\""},
	string(dag.TypeCondition): {"shape=diamond", "fillcolor=\"#fef3c7\""},
	string(dag.TypeDecision):  {"shape=diamond", "fillcolor=\"#fef3c7\""},
}

// ToDOT converts a layout to Graphviz DOT with every node pinned at its
// computed position. Nodes are written in layer order.
func ToDOT(l graph.Layout, opts Options) string {
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, fixedsize=true];\n")
	buf.WriteString("\n")

	for _, n := range ordered(l) {
		w, h := n.Width, n.Height
		if w <= 0 {
			w = defaultWidth
		}
		if h <= 0 {
			h = defaultHeight
		}
		attrs := []string{
			fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed)),
			fmt.Sprintf("pos=\"%s,%s!\"", fmtFloat(n.X*scale), fmtFloat(-n.Y*scale)),
			fmt.Sprintf("width=%s", fmtFloat(w*scale/pointsPerInch)),
			fmt.Sprintf("height=%s", fmtFloat(h*scale/pointsPerInch)),
		}
		attrs = append(attrs, typeStyle[n.Type]...)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range l.Edges {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// ordered returns the placed nodes layer by layer, then any node that no
// layer lists.
func ordered(l graph.Layout) []graph.PlacedNode {
	byID := make(map[string]graph.PlacedNode, len(l.Nodes))
	for _, n := range l.Nodes {
		byID[n.ID] = n
	}
	out := make([]graph.PlacedNode, 0, len(l.Nodes))
	seen := make(map[string]bool, len(l.Nodes))
	for _, layer := range l.Layers {
		for _, id := range layer {
			if n, ok := byID[id]; ok && !seen[id] {
				out = append(out, n)
				seen[id] = true
			}
		}
	}
	for _, n := range l.Nodes {
		if !seen[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

func fmtLabel(n graph.PlacedNode, detailed bool) string {
	if !detailed {
		return n.ID
	}
	return fmt.Sprintf("%s\n%s, layer %d", n.ID, n.Type, n.Layer)
}

func fmtFloat(v float64) string {
	if v == 0 {
		return "0" // no "-0" for negated zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderSVG renders DOT produced by [ToDOT] to SVG. The neato engine keeps
// pinned nodes in place and routes the edges between them.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the Graphviz <svg> tag with one that carries
// only the viewBox and matching pixel dimensions.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}

// RenderPDF renders DOT as PDF via SVG conversion.
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders DOT as PNG via SVG conversion at the given scale.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
