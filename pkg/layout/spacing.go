package layout

import "math"

// enforceSpacing keeps every gap between consecutive elements of xs at
// least minGap. If the smallest gap is positive but too small, xs is first
// scaled about its midpoint by minGap/smallest; a sweep then pushes any
// remaining offender right. xs is modified in place and is ascending
// afterwards. Returns true when anything moved.
func enforceSpacing(xs []float64, minGap float64) bool {
	if len(xs) < 2 {
		return false
	}

	smallest := math.Inf(1)
	for i := 1; i < len(xs); i++ {
		smallest = math.Min(smallest, xs[i]-xs[i-1])
	}
	if smallest >= minGap {
		return false
	}

	if smallest > 0 {
		mid := (xs[0] + xs[len(xs)-1]) / 2
		scale := minGap / smallest
		for i := range xs {
			xs[i] = mid + (xs[i]-mid)*scale
		}
	}
	sweep(xs, minGap)
	return true
}

// sweep pushes each element right until it is at least minGap from its
// predecessor. It returns the number of moved elements.
func sweep(xs []float64, minGap float64) int {
	moved := 0
	for i := 1; i < len(xs); i++ {
		if xs[i]-xs[i-1] < minGap {
			xs[i] = xs[i-1] + minGap
			moved++
		}
	}
	return moved
}

// recenter offsets xs so that the midpoint of its extremes equals cx.
// xs must be sorted. It returns the applied offset.
func recenter(xs []float64, cx float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	off := cx - (xs[0]+xs[len(xs)-1])/2
	if off != 0 {
		for i := range xs {
			xs[i] += off
		}
	}
	return off
}

// violations counts gaps below minGap in a sorted slice.
func violations(xs []float64, minGap float64) int {
	n := 0
	for i := 1; i < len(xs); i++ {
		if xs[i]-xs[i-1] < minGap {
			n++
		}
	}
	return n
}
