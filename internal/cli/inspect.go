package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowlayout/pkg/graph"
	"github.com/matzehuels/flowlayout/pkg/layout"
	"github.com/matzehuels/flowlayout/pkg/pipeline"
)

// inspectCommand creates the inspect command, an interactive browser over a
// computed layout.
func (c *CLI) inspectCommand() *cobra.Command {
	var fromLayout bool

	cmd := &cobra.Command{
		Use:   "inspect [graph.json|layout.json]",
		Short: "Browse a layout layer by layer",
		Long: `Browse a layout layer by layer.

By default the argument is a graph document; it is laid out in memory
(nothing is written) and the result is shown together with the run's
statistics and warnings. With --layout the argument is a layout file
produced by 'layout'.

Keys: ↑/↓ select layer, ←/→ select node, q quit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.loadInspectModel(cmd.Context(), args[0], fromLayout)
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(m, tea.WithContext(cmd.Context()), tea.WithAltScreen()).Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&fromLayout, "layout", false, "the argument is a layout file")
	return cmd
}

func (c *CLI) loadInspectModel(ctx context.Context, path string, fromLayout bool) (inspectModel, error) {
	if fromLayout {
		l, err := graph.ReadLayoutFile(path)
		if err != nil {
			return inspectModel{}, fmt.Errorf("load layout %s: %w", path, err)
		}
		return newInspectModel(path, l, nil, nil), nil
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return inspectModel{}, err
	}
	g, err := loadGraph(path)
	if err != nil {
		return inspectModel{}, err
	}
	engine, err := c.newEngine(g, cfg)
	if err != nil {
		return inspectModel{}, fmt.Errorf("create engine: %w", err)
	}
	defer engine.Dispose()

	res := engine.ExecuteLayout(ctx, pipeline.ExecuteOptions{DryRun: true, Reason: "inspect"})
	if !res.Success {
		if res.Err != nil {
			return inspectModel{}, fmt.Errorf("layout %s: %w", path, res.Err)
		}
		return inspectModel{}, fmt.Errorf("layout %s: %s", path, res.Reason)
	}
	return newInspectModel(path, *res.Layout, res.Stats, res.Warnings), nil
}

// =============================================================================
// inspectModel - Layer browser
// =============================================================================

var (
	inspectSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	inspectHeaderStyle   = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	inspectBorderStyle   = lipgloss.NewStyle().Foreground(colorDim)
)

// inspectModel is the bubbletea model for the layer browser.
type inspectModel struct {
	title    string
	layout   graph.Layout
	byID     map[string]graph.PlacedNode
	stats    *layout.Stats
	warnings []string

	layer  int // selected layer
	node   int // selected node within the layer
	height int // visible layer rows
	offset int // first visible layer
}

func newInspectModel(title string, l graph.Layout, stats *layout.Stats, warnings []string) inspectModel {
	byID := make(map[string]graph.PlacedNode, len(l.Nodes))
	for _, n := range l.Nodes {
		byID[n.ID] = n
	}
	return inspectModel{
		title:    title,
		layout:   l,
		byID:     byID,
		stats:    stats,
		warnings: warnings,
		height:   12,
	}
}

func (m inspectModel) Init() tea.Cmd {
	return nil
}

func (m inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.layer > 0 {
				m.layer--
				m.clampNode()
				if m.layer < m.offset {
					m.offset = m.layer
				}
			}
		case "down", "j":
			if m.layer < len(m.layout.Layers)-1 {
				m.layer++
				m.clampNode()
				if m.layer >= m.offset+m.height {
					m.offset = m.layer - m.height + 1
				}
			}
		case "left", "h":
			if m.node > 0 {
				m.node--
			}
		case "right", "l":
			if m.node < len(m.currentLayer())-1 {
				m.node++
			}
		case "home", "g":
			m.layer, m.node, m.offset = 0, 0, 0
		}
	case tea.WindowSizeMsg:
		// Title, help, table chrome, detail panel and footer.
		m.height = max(msg.Height-14, 3)
	}
	return m, nil
}

func (m *inspectModel) clampNode() {
	m.node = min(m.node, max(len(m.currentLayer())-1, 0))
}

func (m inspectModel) currentLayer() []string {
	if m.layer < 0 || m.layer >= len(m.layout.Layers) {
		return nil
	}
	return m.layout.Layers[m.layer]
}

// selected returns the node under the cursor.
func (m inspectModel) selected() (graph.PlacedNode, bool) {
	ids := m.currentLayer()
	if m.node >= len(ids) {
		return graph.PlacedNode{}, false
	}
	n, ok := m.byID[ids[m.node]]
	return n, ok
}

func (m inspectModel) View() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("Layout " + m.title))
	b.WriteString("\n")
	b.WriteString(styleDim.Render("↑/↓ layer  ←/→ node  g top  q quit"))
	b.WriteString("\n\n")

	if len(m.layout.Layers) == 0 {
		b.WriteString(styleDim.Render("  (empty layout)"))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.offset+m.height, len(m.layout.Layers))
	rows := make([][]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		cursor := "  "
		if i == m.layer {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, fmt.Sprint(i), m.layerY(i), fmt.Sprint(len(m.layout.Layers[i])), m.layerNodes(i)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(inspectBorderStyle).
		Headers("", "Layer", "Y", "Nodes", "Order (left to right)").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return inspectHeaderStyle
			}
			if m.offset+row == m.layer {
				return lipgloss.NewStyle().Foreground(colorWhite)
			}
			return lipgloss.NewStyle().Foreground(colorGray)
		})
	b.WriteString(t.Render())
	b.WriteString("\n\n")

	if n, ok := m.selected(); ok {
		b.WriteString(inspectSelectedStyle.Render(n.ID))
		b.WriteString("\n")
		typ := n.Type
		if typ == "" {
			typ = "-"
		}
		fmt.Fprintf(&b, "  type %s  layer %d  x %s  y %s  size %s×%s\n",
			styleValue.Render(typ), n.Layer,
			styleHighlight.Render(fmtCoord(n.X)), styleHighlight.Render(fmtCoord(n.Y)),
			fmtCoord(n.Width), fmtCoord(n.Height))
	}

	b.WriteString("\n")
	b.WriteString(styleDim.Render(m.footer()))
	for _, w := range m.warnings {
		b.WriteString("\n")
		b.WriteString(styleWarning.Render(iconWarning + " " + w))
	}
	return b.String()
}

func (m inspectModel) layerY(i int) string {
	ids := m.layout.Layers[i]
	if len(ids) == 0 {
		return "-"
	}
	return fmtCoord(m.byID[ids[0]].Y)
}

// layerNodes lists the ids of layer i, highlighting the selected one.
func (m inspectModel) layerNodes(i int) string {
	ids := m.layout.Layers[i]
	parts := make([]string, len(ids))
	for j, id := range ids {
		if i == m.layer && j == m.node {
			parts[j] = inspectSelectedStyle.Render("[" + id + "]")
		} else {
			parts[j] = id
		}
	}
	return strings.Join(parts, " ")
}

func (m inspectModel) footer() string {
	b := m.layout.Bounds
	line := fmt.Sprintf("  [%d/%d]  %s  bounds %s×%s",
		m.layer+1, len(m.layout.Layers), plural(len(m.layout.Nodes), "node"),
		fmtCoord(b.Width()), fmtCoord(b.Height()))
	if m.stats != nil {
		line += fmt.Sprintf("  %s  density %.2f", plural(m.stats.Crossings, "crossing"), m.stats.Density)
	}
	return line
}

func fmtCoord(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
