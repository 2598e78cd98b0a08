package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowlayout/pkg/graph"
	"github.com/matzehuels/flowlayout/pkg/render/nodelink"
)

// Export formats.
const (
	formatDOT = "dot"
	formatSVG = "svg"
	formatPDF = "pdf"
	formatPNG = "png"
)

var validFormats = []string{formatDOT, formatSVG, formatPDF, formatPNG}

type dotOpts struct {
	output   string
	formats  []string
	detailed bool
	scale    float64
}

// dotCommand creates the dot command for exporting a computed layout.
func (c *CLI) dotCommand() *cobra.Command {
	var (
		opts       dotOpts
		formatsStr string
	)

	cmd := &cobra.Command{
		Use:   "dot [layout.json]",
		Short: "Export a layout as Graphviz DOT, SVG, PDF or PNG",
		Long: `Export a layout as Graphviz DOT, SVG, PDF or PNG.

The dot command takes a layout file (produced by 'layout') and writes a
node-link diagram with every node pinned at its computed position. This is a
debugging aid: the drawing shows exactly where the engine placed each node.

Use -o - to write DOT to stdout. PDF and PNG output require rsvg-convert.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats, err := parseFormats(formatsStr)
			if err != nil {
				return err
			}
			opts.formats = formats
			if opts.output == "-" {
				if len(formats) != 1 || formats[0] != formatDOT {
					return fmt.Errorf("-o - only supports the dot format")
				}
				l, err := graph.ReadLayoutFile(args[0])
				if err != nil {
					return fmt.Errorf("load layout %s: %w", args[0], err)
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), nodelink.ToDOT(l, nodelink.Options{Detailed: opts.detailed, Scale: opts.scale}))
				return err
			}
			return c.runDot(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output base path (default: input without extension)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): dot (default), svg, pdf, png (comma-separated)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "add node type and layer to labels")
	cmd.Flags().Float64Var(&opts.scale, "scale", 1, "coordinate scale (also the PNG scale)")

	return cmd
}

// parseFormats parses the --format flag. An empty flag selects DOT.
func parseFormats(s string) ([]string, error) {
	if s == "" {
		return []string{formatDOT}, nil
	}
	var formats []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if !slices.Contains(validFormats, f) {
			return nil, fmt.Errorf("invalid format: %s (must be one of %s)", f, strings.Join(validFormats, ", "))
		}
		if !slices.Contains(formats, f) {
			formats = append(formats, f)
		}
	}
	return formats, nil
}

// basePath derives the output base from the output flag and input path.
// Known format extensions on output are stripped.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(strings.TrimSuffix(input, filepath.Ext(input)), ".layout")
	}
	ext := strings.TrimPrefix(filepath.Ext(output), ".")
	if slices.Contains(validFormats, ext) {
		return strings.TrimSuffix(output, "."+ext)
	}
	return output
}

func (c *CLI) runDot(ctx context.Context, input string, opts dotOpts) error {
	logger := loggerFromContext(ctx)

	l, err := graph.ReadLayoutFile(input)
	if err != nil {
		return fmt.Errorf("load layout %s: %w", input, err)
	}
	src := nodelink.ToDOT(l, nodelink.Options{Detailed: opts.detailed, Scale: opts.scale})
	base := basePath(opts.output, input)

	var written []string
	for _, format := range opts.formats {
		data, err := renderFormat(ctx, src, format, opts.scale)
		if err != nil {
			return fmt.Errorf("%s: %w", format, err)
		}
		path := base + "." + format
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		logger.Debug("generated", "path", path, "bytes", len(data))
		written = append(written, path)
	}

	printSuccess("Exported %d node(s) in %d layer(s)", len(l.Nodes), len(l.Layers))
	for _, path := range written {
		printFile(path)
	}
	return nil
}

func renderFormat(ctx context.Context, dot, format string, scale float64) ([]byte, error) {
	switch format {
	case formatDOT:
		return []byte(dot), nil
	case formatSVG:
		return nodelink.RenderSVG(ctx, dot)
	case formatPDF:
		return nodelink.RenderPDF(ctx, dot)
	case formatPNG:
		return nodelink.RenderPNG(ctx, dot, scale)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}
