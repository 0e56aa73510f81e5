package focus

import (
	"math"

	"healthline/internal/scroll"
)

// Zoom steps the zoom factor one step in dir. At a bound it is a no-op and
// returns false. Otherwise the layout is recomputed and the timeline jumps to
// the focused event's new offset so it keeps its place under the header.
func (s *Synchronizer) Zoom(dir ZoomDirection) (scroll.Motion, bool) {
	step := s.opts.ZoomStep
	if dir == ZoomOut {
		step = -step
	}
	return s.SetZoom(s.state.ZoomFactor + step)
}

// SetZoom sets the zoom factor directly, snapped to the step grid and clamped
// to the configured range.
func (s *Synchronizer) SetZoom(factor float64) (scroll.Motion, bool) {
	z := s.clampZoom(factor)
	if z == s.state.ZoomFactor {
		return scroll.Motion{}, false
	}
	s.state.ZoomFactor = z
	s.relayout()
	s.opts.Logger.Printf("focus: zoom %.2f height %.0f", z, s.layout.Height())

	m, ok := s.Recenter()
	if !ok {
		return scroll.Motion{}, true
	}
	return m, true
}

// CanZoom reports whether a step in dir would change the factor.
func (s *Synchronizer) CanZoom(dir ZoomDirection) bool {
	if dir == ZoomOut {
		return s.state.ZoomFactor > s.opts.MinZoom
	}
	return s.state.ZoomFactor < s.opts.MaxZoom
}

func (s *Synchronizer) clampZoom(z float64) float64 {
	if math.IsNaN(z) || z <= 0 {
		return s.opts.MinZoom
	}
	steps := math.Round((z - s.opts.MinZoom) / s.opts.ZoomStep)
	z = s.opts.MinZoom + steps*s.opts.ZoomStep
	if z < s.opts.MinZoom {
		return s.opts.MinZoom
	}
	if z > s.opts.MaxZoom {
		return s.opts.MaxZoom
	}
	return z
}
