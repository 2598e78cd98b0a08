package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowlayout/pkg/graph"
	"github.com/matzehuels/flowlayout/pkg/pipeline"
)

type layoutOpts struct {
	output     string
	layoutFile string
	noCache    bool
	force      bool
	dryRun     bool
	report     bool
}

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var opts layoutOpts

	cmd := &cobra.Command{
		Use:   "layout [graph.json]",
		Short: "Compute node positions for a graph document",
		Long: `Compute node positions for a graph document.

The layout command reads a graph document, runs the layout engine on it and
writes two files: the document with every node's x/y replaced by its computed
position (<input>.positioned.json) and the layout itself, with layers and
bounds (<input>.layout.json). The layout file is the input of 'dot' and
'inspect'.

With --dry-run only the layout file is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "positioned document (default: <input>.positioned.json)")
	cmd.Flags().StringVar(&opts.layoutFile, "layout-file", "", "layout output (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the layout cache")
	cmd.Flags().BoolVar(&opts.force, "force", false, "recompute even when the layout is cached")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "compute the layout without writing the positioned document")
	cmd.Flags().BoolVar(&opts.report, "report", false, "print the engine performance report as JSON")

	return cmd
}

// runLayout loads the graph, runs the engine, and writes the outputs.
func (c *CLI) runLayout(ctx context.Context, input string, opts layoutOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.noCache {
		cfg.Cache.Enabled = false
	}

	g, err := loadGraph(input)
	if err != nil {
		return err
	}
	engine, err := c.newEngine(g, cfg)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer engine.Dispose()

	spinner := newSpinner(ctx, "Computing layout...")
	spinner.Start()
	res := engine.ExecuteLayout(ctx, pipeline.ExecuteOptions{
		Force:  opts.force,
		DryRun: opts.dryRun,
		Reason: cliReason,
	})
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !res.Success {
		if res.Err == nil {
			printWarning("Nothing to lay out (%s)", res.Reason)
			return nil
		}
		printError("Layout failed in %s", res.Stage)
		return fmt.Errorf("layout %s: %w", input, res.Err)
	}

	written, err := writeLayoutOutputs(input, g, res, opts)
	if err != nil {
		return err
	}

	printSuccess("Layout complete")
	for _, path := range written {
		printFile(path)
	}
	printStats(res.Stats, res.FromCache)
	printWarnings(res.Warnings)

	if opts.report {
		data, err := json.MarshalIndent(engine.GetPerformanceReport(), "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		fmt.Fprintln(uiOut, string(data))
	}

	printNewline()
	printNextStep("Export", appName+" dot "+written[len(written)-1])
	return nil
}

// writeLayoutOutputs writes the positioned document (unless dry-run) and the
// layout file. The layout file is always last in the returned paths.
func writeLayoutOutputs(input string, g *graph.Memory, res *pipeline.Result, opts layoutOpts) ([]string, error) {
	var written []string
	if !opts.dryRun {
		path := opts.output
		if path == "" {
			path = derivePath(input, ".positioned.json")
		}
		if err := graph.WriteDocumentFile(graph.FromGraph(g), path); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}

	if res.Layout == nil {
		return nil, fmt.Errorf("layout %s: engine returned no layout", input)
	}
	path := opts.layoutFile
	if path == "" {
		path = derivePath(input, ".layout.json")
	}
	if err := graph.WriteLayoutFile(*res.Layout, path); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return append(written, path), nil
}
