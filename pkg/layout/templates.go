package layout

import "math"

// The centering and aesthetic tables below are hand-tuned offsets,
// relative to the layer midpoint, for small layers. They are heuristics
// chosen for readability and carry no geometric derivation.

const goldenRatio = 1.618

// centeringTemplates maps a layer size to its target offsets. w holds the
// importance weights of the nodes in left-to-right order.
var centeringTemplates = map[int]func(w []float64) []float64{
	2: func(w []float64) []float64 {
		s := 80 + math.Abs(w[0]-w[1])*20
		return []float64{-s / 2, s / 2}
	},
	3: func(w []float64) []float64 {
		return []float64{-70, (w[1] - 0.5) * 20, 70}
	},
	4: func(w []float64) []float64 {
		inner := 120 / goldenRatio
		return []float64{-120, -inner / 2, inner / 2, 120}
	},
}

// centeringTargets returns the template offsets for n nodes. Layers with
// five or more nodes span [-200, 200]; interior nodes are shifted by their
// weight relative to the layer average.
func centeringTargets(w []float64) []float64 {
	n := len(w)
	if tmpl, ok := centeringTemplates[n]; ok {
		return tmpl(w)
	}

	const half = 200.0
	avg := 0.0
	for _, v := range w {
		avg += v
	}
	avg /= float64(n)

	out := make([]float64, n)
	unit := 2 * half / float64(n-1)
	for k := range out {
		switch k {
		case 0:
			out[k] = -half
		case n - 1:
			out[k] = half
		default:
			out[k] = -half + float64(k)*unit + (w[k]/avg-1)*30
		}
	}
	return out
}

// aestheticPatterns are layouts the global pass accepts as they are.
var aestheticPatterns = map[int][]float64{
	2: {-60, 60},
	3: {-80, 0, 80},
	4: {-90, -30, 30, 90},
}

// aestheticTargets are the offsets the global pass redistributes to.
var aestheticTargets = map[int][]float64{
	2: {-80, 80},
	3: {-120, 0, 120},
	4: {-150, -50, 50, 150},
}

// patternTolerance is the per-node slack when matching aestheticPatterns.
const patternTolerance = 10.0

// ImportanceWeight scores a node for the centering templates:
//
//	0.5 + min(conn*0.1, 0.3) + (1 - |layer - L/2| / (L/2)) * 0.2
//
// clamped to [0.1, 1], where conn is the node's degree and L the layer
// count. Nodes in the middle layers and well connected nodes weigh more.
func ImportanceWeight(conn, layer, layers int) float64 {
	w := 0.5 + math.Min(float64(conn)*0.1, 0.3)
	if half := float64(layers) / 2; half > 0 {
		w += (1 - math.Abs(float64(layer)-half)/half) * 0.2
	}
	return math.Min(math.Max(w, 0.1), 1)
}
