package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowlayout/pkg/config"
	"github.com/matzehuels/flowlayout/pkg/debounce"
	"github.com/matzehuels/flowlayout/pkg/pipeline"
)

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var opts layoutOpts

	cmd := &cobra.Command{
		Use:   "watch [graph.json]",
		Short: "Re-run the layout whenever a graph document changes",
		Long: `Re-run the layout whenever a graph document changes.

The watch command lays out the document once, then again after every change
to the file. Bursts of writes (editors often save in several steps) are
coalesced using the debounce settings of the configuration. The layout cache
stays warm between runs, so structurally unchanged saves are cheap.

Outputs are the same as for 'layout'. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "positioned document (default: <input>.positioned.json)")
	cmd.Flags().StringVar(&opts.layoutFile, "layout-file", "", "layout output (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the layout cache")

	return cmd
}

// watcher re-lays-out one document. Calls to trigger are coalesced by the
// debouncer; each run reloads the document from disk.
type watcher struct {
	input  string
	opts   layoutOpts
	engine *pipeline.Engine
	debs   *debounce.Manager[*pipeline.Result]
	logger *log.Logger

	mu      sync.Mutex
	runs    int
	lastErr error
}

func (c *CLI) newWatcher(input string, cfg config.Config, opts layoutOpts) (*watcher, error) {
	if opts.noCache {
		cfg.Cache.Enabled = false
	}
	engine, err := c.newEngine(nil, cfg)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	return &watcher{
		input:  input,
		opts:   opts,
		engine: engine,
		debs: debounce.New[*pipeline.Result](
			cfg.Debounce.Delay.Std(),
			cfg.Debounce.MaxWait.Std(),
			debounce.WithLogger(c.Logger),
		),
		logger: c.Logger,
	}, nil
}

// relevant reports whether ev changes the watched document. The directory
// is watched, so events for sibling files (including our own outputs) are
// ignored.
func (w *watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != filepath.Clean(w.input) {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// trigger schedules a relayout and waits for the coalesced run.
func (w *watcher) trigger(ctx context.Context) (*pipeline.Result, error) {
	return w.debs.Do(ctx, "watch", w.relayout)
}

// relayout reloads the document and runs the engine once.
func (w *watcher) relayout(ctx context.Context) (*pipeline.Result, error) {
	prog := newProgress(w.logger)
	g, err := loadGraph(w.input)
	if err != nil {
		return nil, err
	}
	w.engine.UpdateGraph(g)

	res := w.engine.ExecuteLayout(ctx, pipeline.ExecuteOptions{Reason: "watch"})
	if !res.Success {
		if res.Err != nil {
			return res, res.Err
		}
		return res, nil
	}
	if _, err := writeLayoutOutputs(w.input, g, res, w.opts); err != nil {
		return res, err
	}

	w.mu.Lock()
	w.runs++
	w.mu.Unlock()
	printWarnings(res.Warnings)
	prog.done(fmt.Sprintf("Relayout of %s", w.input))
	return res, nil
}

func (w *watcher) close() {
	w.debs.Dispose()
	w.engine.Dispose()
}

func (c *CLI) runWatch(ctx context.Context, input string, opts layoutOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	w, err := c.newWatcher(input, cfg, opts)
	if err != nil {
		return err
	}
	defer w.close()

	if _, err := w.relayout(ctx); err != nil {
		printError("%v", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()
	dir := filepath.Dir(input)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	printInfo("Watching %s", input)

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			printInfo("Stopped watching %s", input)
			return ctx.Err()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			c.Logger.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := w.trigger(ctx)
				if err != nil && !errors.Is(err, debounce.ErrCancelled) &&
					!errors.Is(err, debounce.ErrDisposed) && ctx.Err() == nil {
					w.reportOnce(err)
				}
			}()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			c.Logger.Warn("watcher error", "err", err)
		}
	}
}

// reportOnce prints a failed run. Every coalesced trigger receives the same
// error value, so it is printed for the first of them only.
func (w *watcher) reportOnce(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err == w.lastErr {
		return
	}
	w.lastErr = err
	printError("%v", err)
}
