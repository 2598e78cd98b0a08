// Package cli implements the flowlayout command-line interface.
//
// The CLI runs the layout engine on JSON graph documents. It reads a
// document, lays it out, and writes the document back with the computed
// positions together with a layout file that the other commands consume.
//
// # Commands
//
//   - layout: lay out a graph document
//   - dot: export a layout as Graphviz DOT, SVG, PDF or PNG
//   - inspect: browse a layout layer by layer in the terminal
//   - watch: re-run the layout whenever a graph document changes
//   - serve: expose the engine over HTTP
//   - config: show, validate or create configuration files
//   - cache: inspect or clear the shared Redis cache tier
//
// # Configuration
//
// Settings come from the built-in defaults, then the file named by --config
// (or FLOWLAYOUT_CONFIG), then FLOWLAYOUT_* environment variables. A .env
// file in the working directory is loaded first when it exists.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context so that helpers log with the command's
// settings.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowlayout/pkg/buildinfo"
	"github.com/matzehuels/flowlayout/pkg/config"
	"github.com/matzehuels/flowlayout/pkg/graph"
	"github.com/matzehuels/flowlayout/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display and file names.
	appName = "flowlayout"

	// defaultEnvFile is loaded when present unless --env-file names another.
	defaultEnvFile = ".env"

	// configEnvVar names a configuration file when --config is not given.
	configEnvVar = config.EnvPrefix + "CONFIG"

	// cliReason is recorded on lock and preview calls made by the CLI.
	cliReason = "cli"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	envFile    string
	verbose    bool
	trace      bool

	// shutdown flushes the tracer installed by --trace.
	shutdown func(context.Context) error
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "flowlayout arranges workflow graphs into readable top-down layers",
		Long: `flowlayout is a hierarchical layout engine for workflow diagrams.

It assigns every node of a directed graph to a layer, places layers from the
bottom up so that parents sit centered over their children, and writes the
resulting positions back into the graph document.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.preRun,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.postRun(cmd.Context())
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVarP(&c.configPath, "config", "c", "", "configuration file (.toml, .yaml, .json); default $"+configEnvVar)
	flags.StringVar(&c.envFile, "env-file", "", "dotenv file to load before reading the environment (default .env when present)")
	flags.BoolVar(&c.trace, "trace", false, "print OpenTelemetry spans for every layout run to stderr")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.dotCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) preRun(cmd *cobra.Command, args []string) error {
	if c.verbose {
		c.SetLogLevel(LogDebug)
	}
	cmd.SetContext(withLogger(cmd.Context(), c.Logger))

	if err := c.loadEnvFile(); err != nil {
		return err
	}
	if c.trace {
		shutdown, err := setupTracing(os.Stderr)
		if err != nil {
			return fmt.Errorf("set up tracing: %w", err)
		}
		c.shutdown = shutdown
	}
	return nil
}

func (c *CLI) postRun(ctx context.Context) error {
	if c.shutdown == nil {
		return nil
	}
	err := c.shutdown(context.WithoutCancel(ctx))
	c.shutdown = nil
	return err
}

// =============================================================================
// Configuration
// =============================================================================

// loadEnvFile loads the dotenv file. A missing default file is not an error;
// a missing file named explicitly is.
func (c *CLI) loadEnvFile() error {
	path := c.envFile
	if path == "" {
		path = defaultEnvFile
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	c.Logger.Debug("loaded environment file", "path", path)
	return nil
}

// loadConfig resolves the configuration: defaults, then the config file,
// then FLOWLAYOUT_* variables.
func (c *CLI) loadConfig() (config.Config, error) {
	path := c.configPath
	if path == "" {
		path = os.Getenv(configEnvVar)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if err := config.FromEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if path != "" {
		c.Logger.Debug("loaded config", "path", path)
	}
	return cfg, nil
}

// =============================================================================
// Engine Factory
// =============================================================================

// newEngine creates an engine for g with the CLI's logger.
func (c *CLI) newEngine(g graph.Graph, cfg config.Config) (*pipeline.Engine, error) {
	return pipeline.New(g, nil, cfg, pipeline.WithLogger(c.Logger))
}

// loadGraph reads a graph document and converts it into an in-memory graph.
func loadGraph(path string) (*graph.Memory, error) {
	g, err := graph.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load graph %s: %w", path, err)
	}
	return g, nil
}

// =============================================================================
// Paths
// =============================================================================

// derivePath replaces the extension of input with suffix, e.g.
// "flow.json" + ".layout.json" gives "flow.layout.json".
func derivePath(input, suffix string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}
