// Package focus keeps the focused event, the timeline scroll offset and any
// external index-driven component (the carousel) in agreement.
//
// A Synchronizer is the single writer of ViewState. It is driven from one
// goroutine (the bubbletea update loop) and is not safe for concurrent use.
// Waiting is expressed as data: Scroll returns a debounce ticket and ScrollTo
// produces motions; the host schedules the timers and feeds the results back
// through Resolve, Advance and ScrollEnded.
package focus

import (
	"time"

	"healthline/internal/model"
	"healthline/internal/ratelimit"
	"healthline/internal/scale"
	"healthline/internal/scroll"
)

type ViewState struct {
	FocusedIndex   int              `json:"focusedIndex"`
	HasFocus       bool             `json:"hasFocus"`
	ActiveCategory model.CategoryID `json:"activeCategory,omitempty"`
	ZoomFactor     float64          `json:"zoomFactor"`
	Programmatic   bool             `json:"programmatic"`
	BeyondEnd      bool             `json:"beyondEnd"`
	OverflowAmount float64          `json:"overflowAmount"`
	HeaderHidden   bool             `json:"headerHidden"`
}

type Synchronizer struct {
	opts Options
	cb   Callbacks

	set    model.EventSet
	layout scale.Result
	height float64

	scroller *scroll.Controller
	debounce *ratelimit.Debouncer
	throttle *ratelimit.Throttle
	overflow overflowDetector

	state ViewState
}

func New(events []model.Event, opts Options, cb Callbacks) *Synchronizer {
	opts = opts.withDefaults()
	s := &Synchronizer{
		opts:     opts,
		cb:       cb,
		set:      model.NewEventSet(events, opts.Categories),
		height:   -1,
		scroller: scroll.NewController(),
		debounce: ratelimit.NewDebouncer(opts.ResolveDebounce),
		throttle: ratelimit.NewThrottle(opts.OverflowThrottle),
	}
	s.state.ZoomFactor = s.clampZoom(opts.Params.ZoomFactor)
	s.relayout()
	if s.set.Len() > 0 {
		s.state.HasFocus = true
		s.state.FocusedIndex = s.clampIndex(opts.InitialIndex)
		ev, _ := s.set.At(s.state.FocusedIndex)
		s.state.ActiveCategory = ev.Category
	}
	return s
}

// State returns a snapshot of the view state.
func (s *Synchronizer) State() ViewState {
	st := s.state
	st.Programmatic = s.scroller.Programmatic()
	return st
}

func (s *Synchronizer) Layout() scale.Result     { return s.layout }
func (s *Synchronizer) Events() []model.Event    { return s.set.Events() }
func (s *Synchronizer) EventSet() model.EventSet { return s.set }
func (s *Synchronizer) Offset() float64          { return s.scroller.Offset() }
func (s *Synchronizer) HeaderOffset() float64    { return s.opts.HeaderOffset }

// Focused returns the focused event.
func (s *Synchronizer) Focused() (model.Event, bool) {
	if !s.state.HasFocus {
		return model.Event{}, false
	}
	return s.set.At(s.state.FocusedIndex)
}

// Target returns the header-adjusted scroll target of event i.
func (s *Synchronizer) Target(i int) (float64, bool) {
	y, ok := s.layout.Position(i)
	if !ok {
		return 0, false
	}
	return y - s.opts.HeaderOffset, true
}

// SetScrollBounds bounds the container offset to [0, max].
func (s *Synchronizer) SetScrollBounds(max float64) {
	s.scroller.SetMaxOffset(max)
}

// Recenter jumps to the focused event without animation.
func (s *Synchronizer) Recenter() (scroll.Motion, bool) {
	if !s.state.HasFocus {
		return scroll.Motion{}, false
	}
	target, _ := s.Target(s.state.FocusedIndex)
	return s.scrollTo(target, 0), true
}

// SetFocusedIndex handles a focus change requested from outside the timeline.
// The index is clamped; the category updates immediately and the timeline
// animates to the event. OnFocusedIndexChanged is not called: the caller
// already knows.
func (s *Synchronizer) SetFocusedIndex(i int) (scroll.Motion, bool) {
	if s.set.Len() == 0 {
		return scroll.Motion{}, false
	}
	i = s.clampIndex(i)
	s.setFocus(i)
	target, _ := s.Target(i)
	return s.scrollTo(target, s.opts.IndexChangeDuration), true
}

// Scroll records a live user scroll offset. It returns the debounce ticket the
// host must deliver back to Resolve, or false while a programmatic scroll is in
// flight (the input is ignored entirely then).
func (s *Synchronizer) Scroll(offset float64) (ratelimit.Ticket, bool) {
	if s.scroller.Programmatic() {
		return ratelimit.Ticket{}, false
	}
	s.scroller.UserScroll(offset)
	s.checkOverflow(false)
	return s.debounce.Notify(), true
}

// Resolve runs the debounced position resolution for ticket seq.
func (s *Synchronizer) Resolve(seq uint64) (FocusChange, bool) {
	if !s.debounce.Fire(seq) {
		return FocusChange{}, false
	}
	if s.scroller.Programmatic() || s.set.Len() == 0 {
		return FocusChange{}, false
	}
	// Forced: a dropped throttle check would leave a stale classification.
	s.checkOverflow(true)
	if s.overflow.last.BeyondEnd {
		return FocusChange{}, false
	}

	idx := nearestIndex(s.layout.Positions(), s.scroller.Offset()+s.opts.HeaderOffset)
	if idx < 0 {
		return FocusChange{}, false
	}
	changed := idx != s.state.FocusedIndex
	s.setFocus(idx)

	d := s.opts.SettleDuration
	if changed {
		d = s.opts.IndexChangeDuration
	}
	target, _ := s.Target(idx)
	s.scrollTo(target, d)

	fc := FocusChange{Index: idx, Origin: OriginTimeline}
	if changed && s.cb.OnFocusedIndexChanged != nil {
		s.cb.OnFocusedIndexChanged(fc)
	}
	return fc, changed
}

// Advance applies one animation frame. When the latest motion reaches its
// target, ended is true and id names the motion to pass to ScrollEnded.
func (s *Synchronizer) Advance(now time.Time) (offset float64, id uint64, ended bool) {
	offset, ended = s.scroller.Advance(now)
	if ended {
		m, _ := s.scroller.Current()
		id = m.ID
	}
	return offset, id, ended
}

// Animating reports whether a motion still needs frames.
func (s *Synchronizer) Animating() bool { return s.scroller.Animating() }

// ScrollEnded is the scroll-ended signal. It clears the programmatic flag only
// for the latest motion, then reclassifies the new offset against the end of
// the timeline.
func (s *Synchronizer) ScrollEnded(id uint64) bool {
	if !s.scroller.End(id) {
		return false
	}
	s.checkOverflow(true)
	return true
}

// Check classifies offset against the end of the timeline without touching state.
func (s *Synchronizer) Check(offset float64) Overflow {
	pos, ok := s.endPosition()
	return classifyOverflow(offset, pos, ok)
}

// SetViewportWidth relayouts the bands.
func (s *Synchronizer) SetViewportWidth(width float64) {
	if width == s.opts.Params.ViewportWidth {
		return
	}
	s.opts.Params.ViewportWidth = width
	s.relayout()
}

// SetDateRange replaces the axis bounds (zero values derive from the data) and
// keeps the focused event in place.
func (s *Synchronizer) SetDateRange(minDate, maxDate time.Time) {
	s.opts.Params.MinDate = minDate
	s.opts.Params.MaxDate = maxDate
	s.relayout()
	s.Recenter()
}

// SetCategories replaces the explicit band ordering; nil restores first-seen order.
func (s *Synchronizer) SetCategories(categories []model.CategoryID) {
	s.set = s.set.WithCategories(categories)
	s.relayout()
}

// SetEventList replaces the events. Focus is clamped if the list shrank; zoom is kept.
func (s *Synchronizer) SetEventList(events []model.Event) {
	s.set = s.set.WithEvents(events)
	s.reconcile(s.state.FocusedIndex, false)
}

// SetDatasetFilter re-derives the event list from dataset tag membership
// (model.AllDatasets for everything) and resets focus to the first event.
func (s *Synchronizer) SetDatasetFilter(tag string) {
	s.set = s.set.WithDataset(tag)
	s.reconcile(0, true)
}

// Dataset returns the active dataset filter.
func (s *Synchronizer) Dataset() string { return s.set.Dataset() }

// Teardown releases the view: a motion that never completed cannot leave the
// programmatic flag set, and pending resolutions are dropped.
func (s *Synchronizer) Teardown() {
	s.scroller.Reset()
	s.debounce.Cancel()
}

// reconcile re-runs layout after the event list changed and re-centers on the
// clamped focus. notify forces the OriginData callback even when the index is
// numerically unchanged, since it now names a different event.
func (s *Synchronizer) reconcile(want int, notify bool) {
	prevIndex, prevFocus := s.state.FocusedIndex, s.state.HasFocus
	s.relayout()

	if s.set.Len() == 0 {
		s.state.HasFocus = false
		s.state.FocusedIndex = 0
		s.setCategory("")
		s.checkOverflow(true)
		return
	}

	idx := s.clampIndex(want)
	s.state.HasFocus = true
	s.setFocus(idx)
	if (notify || !prevFocus || idx != prevIndex) && s.cb.OnFocusedIndexChanged != nil {
		s.cb.OnFocusedIndexChanged(FocusChange{Index: idx, Origin: OriginData})
	}
	s.Recenter()
}

func (s *Synchronizer) relayout() {
	p := s.opts.Params
	p.ZoomFactor = s.state.ZoomFactor
	p.Categories = s.set.Categories()
	s.layout = scale.Layout(s.set.Events(), p)

	for _, i := range s.layout.Invalid {
		ev, _ := s.set.At(i)
		s.opts.Logger.Printf("focus: event %q has no usable date; check the source data", ev.ID)
	}
	for _, c := range s.set.Orphans {
		s.opts.Logger.Printf("focus: category %q is not in the configured ordering; appended", c)
	}

	if h := s.layout.Height(); h != s.height {
		s.height = h
		if s.cb.OnLayoutHeightChanged != nil {
			s.cb.OnLayoutHeightChanged(h)
		}
	}
}

func (s *Synchronizer) scrollTo(target float64, d time.Duration) scroll.Motion {
	m := s.scroller.ScrollTo(target, d, s.opts.Clock())
	if s.cb.OnScrollTo != nil {
		s.cb.OnScrollTo(m)
	}
	return m
}

func (s *Synchronizer) setFocus(i int) {
	s.state.FocusedIndex = i
	ev, _ := s.set.At(i)
	s.setCategory(ev.Category)
}

func (s *Synchronizer) setCategory(c model.CategoryID) {
	if c == s.state.ActiveCategory {
		return
	}
	s.state.ActiveCategory = c
	if s.cb.OnActiveCategoryChanged != nil {
		s.cb.OnActiveCategoryChanged(c)
	}
}

// checkOverflow classifies the current offset. Unless force is set the check
// goes through the throttle and is dropped inside the interval.
func (s *Synchronizer) checkOverflow(force bool) {
	if force {
		s.throttle.Reset()
	}
	if !s.throttle.Allow(s.opts.Clock()) {
		return
	}
	o := s.Check(s.scroller.Offset())
	flipped := s.overflow.update(o)
	s.state.BeyondEnd = o.BeyondEnd
	s.state.OverflowAmount = o.Amount
	if !flipped {
		return
	}
	s.state.HeaderHidden = o.BeyondEnd
	if s.cb.OnBeyondTimelineScroll != nil {
		s.cb.OnBeyondTimelineScroll(o.Amount)
	}
}

// endPosition is the largest event offset: the event drawn last along the
// scroll axis. That is the latest event, or the earliest when inverted.
func (s *Synchronizer) endPosition() (float64, bool) {
	positions := s.layout.Positions()
	if len(positions) == 0 {
		return 0, false
	}
	end := positions[0]
	for _, p := range positions[1:] {
		end = max(end, p)
	}
	return end, true
}

func (s *Synchronizer) clampIndex(i int) int {
	n := s.set.Len()
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
