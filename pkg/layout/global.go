package layout

import (
	"math"

	"github.com/matzehuels/flowlayout/pkg/dag/transform"
)

const (
	densityRange      = 1000.0
	densityRegions    = 10
	densityThreshold  = 0.1
	densityStrength   = 0.3
	densityFalloff    = 200.0
	sparseRegionRatio = 0.5
	denseRegionRatio  = 1.5
)

// DensityReport describes the horizontal distribution analysed by the
// global optimizer.
type DensityReport struct {
	Regions    []int   `json:"regions,omitempty"`
	Sparse     []int   `json:"sparse,omitempty"`
	Dense      []int   `json:"dense,omitempty"`
	Offset     float64 `json:"offset"`
	Intensity  float64 `json:"intensity"`
	Rebalanced bool    `json:"rebalanced"`
	Shifted    int     `json:"shifted"`
}

// GlobalReport summarizes [OptimizeGlobal].
type GlobalReport struct {
	LayerSpacing     float64       `json:"layer_spacing,omitempty"`
	Density          DensityReport `json:"density"`
	GuardMoves       int           `json:"guard_moves"`
	VerticalShift    float64       `json:"vertical_shift"`
	AestheticLayers  int           `json:"aesthetic_layers"`
	AestheticSkipped int           `json:"aesthetic_skipped"`
}

// OptimizeGlobal runs the cross-layer passes, in order:
//
//   - layer spacing: with more than one layer, layer i moves to y = i*d,
//     where d = BaseHeight*(1 + 0.1*ln L) clamped to [0.8, 1.5]*BaseHeight
//   - density: if the center of mass of all |x| < 1000 lies more than 10%
//     of the spread away from the spread's midpoint, nodes are pulled back,
//     outliers more than near-center nodes, then the minimum gap is restored
//   - vertical: all y are translated so the smallest is 0
//   - aesthetic: layers of 2 to 4 nodes that do not already match a
//     canonical pattern are redistributed onto fixed offsets
func OptimizeGlobal(h *transform.Hierarchy, recs *Records, p Params) GlobalReport {
	var rep GlobalReport
	rep.LayerSpacing = normalizeSpacing(h, recs, p)
	rep.Density = rebalanceDensity(recs, p)
	if rep.Density.Rebalanced {
		rep.GuardMoves = guardLayers(h, recs, p)
	}
	rep.VerticalShift = alignTop(recs)
	rep.AestheticLayers, rep.AestheticSkipped = aestheticPass(h, recs, p)
	return rep
}

// LayerSpacing returns the vertical distance between layers for a
// hierarchy of the given depth.
func LayerSpacing(layers int, baseHeight float64) float64 {
	d := baseHeight * (1 + 0.1*math.Log(float64(layers)))
	return math.Min(math.Max(d, 0.8*baseHeight), 1.5*baseHeight)
}

func normalizeSpacing(h *transform.Hierarchy, recs *Records, p Params) float64 {
	if len(h.Layers) <= 1 {
		return 0
	}
	d := LayerSpacing(len(h.Layers), p.BaseHeight)
	for i, layer := range h.Layers {
		for _, e := range recs.layerRecords(layer) {
			e.rec.Y = float64(i) * d
		}
	}
	return d
}

func rebalanceDensity(recs *Records, p Params) DensityReport {
	var rep DensityReport
	var in []*Record
	for _, id := range recs.IDs() {
		rec, _ := recs.Get(id)
		if math.Abs(rec.X) < densityRange {
			in = append(in, rec)
		}
	}
	if len(in) < 2 {
		return rep
	}

	lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
	for _, r := range in {
		lo, hi = math.Min(lo, r.X), math.Max(hi, r.X)
		sum += r.X
	}
	width := hi - lo
	if width == 0 {
		return rep
	}

	rep.Regions = make([]int, densityRegions)
	for _, r := range in {
		k := int((r.X - lo) / width * densityRegions)
		rep.Regions[min(k, densityRegions-1)]++
	}
	avg := float64(len(in)) / densityRegions
	for k, c := range rep.Regions {
		switch {
		case float64(c) < sparseRegionRatio*avg:
			rep.Sparse = append(rep.Sparse, k)
		case float64(c) > denseRegionRatio*avg:
			rep.Dense = append(rep.Dense, k)
		}
	}

	rep.Offset = sum/float64(len(in)) - (lo+hi)/2
	if math.Abs(rep.Offset) <= densityThreshold*width {
		return rep
	}

	rep.Rebalanced = true
	rep.Intensity = math.Min(math.Abs(rep.Offset)/(0.2*width), 1)
	for _, r := range in {
		d := -rep.Offset * densityStrength * rep.Intensity * math.Min(math.Abs(r.X-p.CenterX)/densityFalloff, 1)
		if d != 0 {
			r.X += d
			rep.Shifted++
		}
	}
	return rep
}

// guardLayers restores the minimum gap inside every layer.
func guardLayers(h *transform.Hierarchy, recs *Records, p Params) int {
	moves := 0
	for _, layer := range h.Layers {
		es := recs.layerRecords(layer)
		sortByX(es)
		xs := make([]float64, len(es))
		for k, e := range es {
			xs[k] = e.rec.X
		}
		moves += sweep(xs, p.Enforced())
		for k, e := range es {
			e.rec.X = xs[k]
		}
	}
	return moves
}

func alignTop(recs *Records) float64 {
	if recs.Len() == 0 {
		return 0
	}
	minY := math.Inf(1)
	for _, id := range recs.IDs() {
		rec, _ := recs.Get(id)
		minY = math.Min(minY, rec.Y)
	}
	if minY != 0 {
		for _, id := range recs.IDs() {
			rec, _ := recs.Get(id)
			rec.Y -= minY
		}
	}
	return -minY
}

func aestheticPass(h *transform.Hierarchy, recs *Records, p Params) (applied, skipped int) {
	for _, layer := range h.Layers {
		es := recs.layerRecords(layer)
		targets, ok := aestheticTargets[len(es)]
		if !ok {
			continue
		}
		sortByX(es)
		xs := make([]float64, len(es))
		for k, e := range es {
			xs[k] = e.rec.X
		}

		if matchesPattern(xs, aestheticPatterns[len(es)]) {
			skipped++
			continue
		}

		for k := range xs {
			xs[k] = p.CenterX + targets[k]
		}
		enforceSpacing(xs, p.Enforced())
		recenter(xs, p.CenterX)
		for k, e := range es {
			e.rec.X = xs[k]
		}
		applied++
	}
	return applied, skipped
}

// matchesPattern reports whether sorted xs, taken relative to their
// midpoint, are within patternTolerance of pattern.
func matchesPattern(xs, pattern []float64) bool {
	mid := (xs[0] + xs[len(xs)-1]) / 2
	for k, x := range xs {
		if math.Abs(x-mid-pattern[k]) > patternTolerance {
			return false
		}
	}
	return true
}
