package focus

import "math"

// nearestIndex returns the index whose position is closest to y, or -1 when
// positions is empty. On equal distance the lower index wins: the scan keeps the
// first minimum and only replaces it on a strictly smaller distance.
//
// A linear scan over the cached positions of the current layout generation;
// resolution only runs once per debounce window.
func nearestIndex(positions []float64, y float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i, p := range positions {
		d := math.Abs(p - y)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}
