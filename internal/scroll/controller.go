// Package scroll performs programmatic scrolling of the timeline container and
// owns the flag that tells live-scroll handlers to stand down while it does.
package scroll

import (
	"math"
	"time"
)

// Motion is one programmatic scroll request.
type Motion struct {
	ID       uint64        `json:"id"`
	From     float64       `json:"from"`
	Target   float64       `json:"target"`
	Duration time.Duration `json:"duration"`
	Start    time.Time     `json:"-"`
}

// Jump reports whether the motion is applied without animation.
func (m Motion) Jump() bool { return m.Duration <= 0 }

// Controller is not safe for concurrent use.
type Controller struct {
	offset float64
	max    float64

	programmatic bool
	animating    bool
	current      Motion
	seq          uint64

	ease func(float64) float64
}

func NewController() *Controller {
	return &Controller{ease: EaseInOutQuad}
}

// SetMaxOffset bounds applied offsets to [0, max]. A max of zero or less leaves
// offsets unbounded above.
func (c *Controller) SetMaxOffset(max float64) {
	c.max = max
	c.offset = c.clamp(c.offset)
}

func (c *Controller) MaxOffset() float64 { return c.max }

func (c *Controller) Offset() float64 { return c.offset }

// Programmatic is true from ScrollTo until End is called for the latest motion.
func (c *Controller) Programmatic() bool { return c.programmatic }

// Animating is true while the latest motion still has frames to apply.
func (c *Controller) Animating() bool { return c.animating }

// Current returns the latest motion.
func (c *Controller) Current() (Motion, bool) {
	return c.current, c.current.ID != 0
}

// ScrollTo starts a motion towards target, superseding any motion in flight.
// A zero duration applies the target immediately; the motion still has to be
// closed with End.
func (c *Controller) ScrollTo(target float64, d time.Duration, now time.Time) Motion {
	c.programmatic = true
	c.seq++
	if d < 0 {
		d = 0
	}
	m := Motion{ID: c.seq, From: c.offset, Target: target, Duration: d, Start: now}
	c.current = m
	c.animating = true
	if m.Jump() {
		c.offset = c.clamp(target)
	}
	return m
}

// Advance applies the animation frame for now. ended is true exactly once per
// motion, on the frame that reaches the target.
func (c *Controller) Advance(now time.Time) (offset float64, ended bool) {
	if !c.animating {
		return c.offset, false
	}
	m := c.current
	if m.Jump() {
		c.animating = false
		return c.offset, true
	}
	p := float64(now.Sub(m.Start)) / float64(m.Duration)
	if p >= 1 {
		c.offset = c.clamp(m.Target)
		c.animating = false
		return c.offset, true
	}
	if p < 0 {
		p = 0
	}
	c.offset = c.clamp(m.From + (m.Target-m.From)*c.ease(p))
	return c.offset, false
}

// End is the scroll-ended signal for motion id. Only the latest motion clears the
// programmatic flag; signals for superseded motions are ignored.
func (c *Controller) End(id uint64) bool {
	if !c.programmatic || id != c.current.ID {
		return false
	}
	if c.animating {
		c.offset = c.clamp(c.current.Target)
		c.animating = false
	}
	c.programmatic = false
	return true
}

// UserScroll records an offset produced by the user.
func (c *Controller) UserScroll(offset float64) float64 {
	c.offset = c.clamp(offset)
	return c.offset
}

// Reset clears the programmatic flag and stops animating. Used on teardown so a
// motion that never completed cannot leave the flag stuck.
func (c *Controller) Reset() {
	c.programmatic = false
	c.animating = false
}

func (c *Controller) clamp(v float64) float64 {
	if math.IsNaN(v) {
		return c.offset
	}
	if v < 0 {
		return 0
	}
	if c.max > 0 && v > c.max {
		return c.max
	}
	return v
}

// EaseInOutQuad accelerates until halfway, then decelerates.
func EaseInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return -1 + (4-2*t)*t
}
