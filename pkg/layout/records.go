package layout

import (
	"maps"
	"math"
	"slices"

	"github.com/matzehuels/flowlayout/pkg/dag"
	"github.com/matzehuels/flowlayout/pkg/graph"
)

// Record is the computed position of one node.
type Record struct {
	X     float64
	Y     float64
	Layer int
	Type  dag.NodeType
	// Orphan marks a node placed without any positioned child.
	Orphan bool
	Meta   map[string]any
}

// Records holds the positions of one layout run. It is created by
// [Position], mutated in place by the optimizers, and read by [Apply].
// A Records value belongs to a single run and is not safe for concurrent use.
type Records struct {
	byID map[string]*Record
}

// NewRecords returns an empty record set.
func NewRecords() *Records {
	return &Records{byID: make(map[string]*Record)}
}

// Set stores a copy of r under id.
func (r *Records) Set(id string, rec Record) {
	r.byID[id] = &rec
}

// Get returns the record for id. The returned pointer aliases the stored
// record; writes through it are visible to later stages.
func (r *Records) Get(id string) (*Record, bool) {
	rec, ok := r.byID[id]
	return rec, ok
}

// Len returns the number of records.
func (r *Records) Len() int { return len(r.byID) }

// IDs returns all node IDs in sorted order.
func (r *Records) IDs() []string {
	return slices.Sorted(maps.Keys(r.byID))
}

// X returns the x coordinate of id, or NaN when the node has no record.
func (r *Records) X(id string) float64 {
	if rec, ok := r.byID[id]; ok {
		return rec.X
	}
	return math.NaN()
}

// Clone returns a deep copy.
func (r *Records) Clone() *Records {
	out := &Records{byID: make(map[string]*Record, len(r.byID))}
	for id, rec := range r.byID {
		cp := *rec
		cp.Meta = maps.Clone(rec.Meta)
		out.byID[id] = &cp
	}
	return out
}

// Points returns the positions keyed by node ID.
func (r *Records) Points() map[string]graph.Point {
	out := make(map[string]graph.Point, len(r.byID))
	for id, rec := range r.byID {
		out[id] = graph.Point{X: rec.X, Y: rec.Y}
	}
	return out
}

// RecordsFromPoints rebuilds a record set from cached positions and layers.
func RecordsFromPoints(points map[string]graph.Point, layers [][]string) *Records {
	r := NewRecords()
	for i, layer := range layers {
		for _, id := range layer {
			p, ok := points[id]
			if !ok {
				continue
			}
			r.Set(id, Record{X: p.X, Y: p.Y, Layer: i})
		}
	}
	return r
}

// layerRecords returns the records of the given IDs that exist, in the
// same order as ids.
func (r *Records) layerRecords(ids []string) []entry {
	out := make([]entry, 0, len(ids))
	for _, id := range ids {
		if rec, ok := r.byID[id]; ok {
			out = append(out, entry{id: id, rec: rec})
		}
	}
	return out
}

type entry struct {
	id  string
	rec *Record
}

// sortByX orders entries left to right. Ties fall back to node priority.
func sortByX(es []entry) {
	slices.SortStableFunc(es, func(a, b entry) int {
		switch {
		case a.rec.X < b.rec.X:
			return -1
		case a.rec.X > b.rec.X:
			return 1
		}
		return dag.ComparePriority(
			&dag.Node{ID: a.id, Type: a.rec.Type},
			&dag.Node{ID: b.id, Type: b.rec.Type},
		)
	})
}
