package preprocess

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowlayout/pkg/dag"
	flerrors "github.com/matzehuels/flowlayout/pkg/errors"
	"github.com/matzehuels/flowlayout/pkg/graph"
)

// Reason explains why a node or edge was left out of the layout.
type Reason string

const (
	ReasonHint      Reason = "hint"
	ReasonPreview   Reason = "preview"
	ReasonVirtual   Reason = "virtual"
	ReasonRule      Reason = "rule"
	ReasonUnified   Reason = "unified_preview"
	ReasonTemporary Reason = "temporary"
	ReasonDangling  Reason = "dangling"
	ReasonSelfLoop  Reason = "self_loop"
	ReasonInvalid   Reason = "invalid"
	ReasonDuplicate Reason = "duplicate"
)

// Preprocessor turns a host graph into the filtered [dag.DAG] the layout
// stages run on. A Preprocessor is immutable after [New] and safe for
// concurrent use.
type Preprocessor struct {
	rules  []*Rule
	logger *log.Logger
}

// Option configures a [Preprocessor].
type Option func(*Preprocessor)

// WithLogger sets the logger used for rule evaluation warnings.
func WithLogger(l *log.Logger) Option {
	return func(p *Preprocessor) {
		if l != nil {
			p.logger = l
		}
	}
}

// New compiles the exclusion rules and returns a Preprocessor. A rule that
// does not compile yields a VALIDATION_ERROR.
func New(exclude []string, opts ...Option) (*Preprocessor, error) {
	rules, err := CompileRules(exclude)
	if err != nil {
		return nil, err
	}
	p := &Preprocessor{
		rules:  rules,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Result is the output of [Preprocessor.Run].
type Result struct {
	DAG    *dag.DAG
	Report Report
}

// Run filters the host graph.
//
// Nodes are dropped when they are hints, previews or virtual, or when an
// exclusion rule matches. Edges are dropped when they are previews or
// temporary, when an endpoint did not survive, or when they loop on one
// node. Parallel edges between the same pair collapse into one. Every drop
// is counted in the [Report].
//
// Run fails with a VALIDATION_ERROR when a node ID is invalid or when no
// node survives filtering. The host graph is never written.
func (p *Preprocessor) Run(g graph.Graph) (*Result, error) {
	if g == nil {
		return nil, flerrors.Validation("graph is nil")
	}

	nodes := g.Nodes()
	edges := g.Edges()
	rep := Report{
		TotalNodes:    len(nodes),
		TotalEdges:    len(edges),
		ExcludedNodes: make(map[Reason]int),
		ExcludedEdges: make(map[Reason]int),
	}

	d := dag.New()
	for _, n := range nodes {
		id := n.ID()
		if err := flerrors.ValidateNodeID(id); err != nil {
			return nil, err
		}
		data := n.Data()
		typ := ResolveType(id, data)

		reason, err := p.excludeNode(id, typ, data)
		if err != nil {
			rep.Warnings = append(rep.Warnings, err.Error())
			p.logger.Warn("exclusion rule failed", "node", id, "err", err)
		}
		if reason != "" {
			rep.ExcludedNodes[reason]++
			continue
		}

		size := n.Size()
		err = d.AddNode(dag.Node{
			ID:     id,
			Type:   typ,
			Width:  size.Width,
			Height: size.Height,
			Meta:   data,
		})
		if errors.Is(err, dag.ErrDuplicateNodeID) {
			return nil, flerrors.Validation("duplicate node id %q", id)
		}
		if err != nil {
			return nil, flerrors.Wrap(flerrors.ErrCodeValidation, err, "node %q", id)
		}
	}

	if d.NodeCount() == 0 {
		return nil, flerrors.Validation("no layoutable nodes (%d total, %d excluded)",
			rep.TotalNodes, rep.excludedNodeCount())
	}

	for _, e := range edges {
		id := e.ID()
		if reason := excludeEdge(e); reason != "" {
			rep.ExcludedEdges[reason]++
			continue
		}

		src, tgt := e.Source(), e.Target()
		_, okSrc := d.Node(src)
		_, okTgt := d.Node(tgt)
		if !okSrc || !okTgt {
			rep.ExcludedEdges[ReasonDangling]++
			rep.BrokenEdges = append(rep.BrokenEdges, id)
			continue
		}
		if err := flerrors.ValidateEdge(id, src, tgt); err != nil {
			if src == tgt {
				rep.ExcludedEdges[ReasonSelfLoop]++
			} else {
				rep.ExcludedEdges[ReasonInvalid]++
			}
			continue
		}

		added, err := d.AddEdge(dag.Edge{ID: id, From: src, To: tgt})
		if err != nil {
			rep.ExcludedEdges[ReasonInvalid]++
			continue
		}
		if !added {
			rep.ExcludedEdges[ReasonDuplicate]++
		}
	}

	rep.Nodes = d.NodeCount()
	rep.Edges = d.EdgeCount()
	rep.IsolatedNodes = dag.NodeIDs(d.Isolated())
	slices.Sort(rep.BrokenEdges)
	if rep.Nodes > 1 && len(rep.IsolatedNodes) > 0 {
		rep.Warnings = append(rep.Warnings,
			fmt.Sprintf("%d isolated node(s): %v", len(rep.IsolatedNodes), rep.IsolatedNodes))
	}
	if len(rep.BrokenEdges) > 0 {
		rep.Warnings = append(rep.Warnings,
			fmt.Sprintf("%d edge(s) reference excluded or missing nodes: %v", len(rep.BrokenEdges), rep.BrokenEdges))
	}

	return &Result{DAG: d, Report: rep}, nil
}

func (p *Preprocessor) excludeNode(id string, typ dag.NodeType, data map[string]any) (Reason, error) {
	switch {
	case strings.Contains(id, "hint") || graph.Flag(data, graph.KeyIsHint):
		return ReasonHint, nil
	case graph.Flag(data, graph.KeyIsPreview):
		return ReasonPreview, nil
	case strings.Contains(id, "virtual") || graph.Flag(data, graph.KeyIsVirtual):
		return ReasonVirtual, nil
	}

	var errs []error
	for _, r := range p.rules {
		ok, err := r.Match(id, string(typ), data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			return ReasonRule, nil
		}
	}
	return "", errors.Join(errs...)
}

func excludeEdge(e graph.Edge) Reason {
	id, data := e.ID(), e.Data()
	switch {
	case strings.Contains(id, "unified_preview"):
		return ReasonUnified
	case strings.Contains(id, "preview") || graph.Flag(data, graph.KeyIsPreview):
		return ReasonPreview
	case graph.Flag(data, graph.KeyIsTemporary):
		return ReasonTemporary
	}
	return ""
}

// ResolveType returns the declared type from data["type"], then
// data["nodeType"], and otherwise infers one from the id.
func ResolveType(id string, data map[string]any) dag.NodeType {
	if t, ok := graph.String(data, graph.KeyType); ok {
		return dag.NodeType(t)
	}
	if t, ok := graph.String(data, graph.KeyNodeType); ok {
		return dag.NodeType(t)
	}
	return dag.InferType(id)
}

// IsLayoutable reports whether a host node takes part in layout by the
// built-in rules alone. The position applicator uses it to skip hints and
// previews.
func IsLayoutable(id string, data map[string]any) bool {
	return !strings.Contains(id, "hint") &&
		!graph.Flag(data, graph.KeyIsHint) &&
		!graph.Flag(data, graph.KeyIsPreview)
}
