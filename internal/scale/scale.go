// Package scale maps categories to horizontal bands and dates to vertical offsets.
//
// Layout is a pure function: a Result is an immutable value describing one layout
// generation and is recomputed, never patched, whenever any input changes.
package scale

import (
	"math"
	"strconv"
	"time"

	"healthline/internal/model"
)

const (
	DefaultPixelsPerYear = 10
	DefaultPaddingYears  = 10
	DefaultBandPadding   = 0.5
)

type Params struct {
	ViewportWidth float64

	// MinDate/MaxDate bound the axis. A zero value is derived from the events
	// (earliest/latest date padded by PaddingYears).
	MinDate time.Time
	MaxDate time.Time

	PixelsPerYear float64
	ZoomFactor    float64

	// Inverted puts MaxDate at the top of the axis.
	Inverted bool

	// BandPadding is the fraction of each category slot left as gap. Zero
	// means DefaultBandPadding; a negative value means no gap.
	BandPadding float64
	// PaddingYears is added around derived date bounds. Zero means
	// DefaultPaddingYears; a negative value means none.
	PaddingYears int

	Categories []model.CategoryID
}

// WithDefaults fills unset numeric fields.
func (p Params) WithDefaults() Params {
	if p.PixelsPerYear <= 0 {
		p.PixelsPerYear = DefaultPixelsPerYear
	}
	if p.ZoomFactor <= 0 {
		p.ZoomFactor = 1
	}
	switch {
	case p.BandPadding < 0:
		p.BandPadding = 0
	case p.BandPadding == 0 || p.BandPadding >= 1 || math.IsNaN(p.BandPadding):
		p.BandPadding = DefaultBandPadding
	}
	switch {
	case p.PaddingYears < 0:
		p.PaddingYears = 0
	case p.PaddingYears == 0:
		p.PaddingYears = DefaultPaddingYears
	}
	if p.ViewportWidth < 0 || math.IsNaN(p.ViewportWidth) {
		p.ViewportWidth = 0
	}
	return p
}

// EffectivePixelsPerYear is PixelsPerYear scaled by the zoom factor.
func (p Params) EffectivePixelsPerYear() float64 {
	return p.PixelsPerYear * p.ZoomFactor
}

type Band struct {
	Start float64 `json:"start"`
	Width float64 `json:"width"`
}

// Center is the horizontal middle of the band, where markers are drawn.
func (b Band) Center() float64 { return b.Start + b.Width/2 }

type Tick struct {
	Year  int     `json:"year"`
	Y     float64 `json:"y"`
	Label string  `json:"label,omitempty"`
}

type Result struct {
	params     Params
	categories []model.CategoryID
	bands      map[model.CategoryID]Band
	minDate    time.Time
	maxDate    time.Time
	years      int
	height     float64
	positions  []float64

	// Invalid holds indices of events whose date cannot be placed meaningfully
	// (zero time). Their positions are whatever the arithmetic yields.
	Invalid []int
}

// Layout computes the layout of events, which must already be sorted by date.
func Layout(events []model.Event, p Params) Result {
	p = p.WithDefaults()
	r := Result{
		params:     p,
		categories: append([]model.CategoryID(nil), p.Categories...),
		bands:      make(map[model.CategoryID]Band, len(p.Categories)),
	}
	if len(r.categories) == 0 {
		r.categories = model.DeriveCategories(events)
	}
	r.layoutBands()

	if len(events) == 0 {
		return r
	}

	r.minDate, r.maxDate = dateBounds(events, p)
	r.years = yearsBetween(r.minDate, r.maxDate)
	r.height = float64(r.years) * p.EffectivePixelsPerYear()

	r.positions = make([]float64, len(events))
	for i, ev := range events {
		if ev.Date.IsZero() {
			r.Invalid = append(r.Invalid, i)
		}
		r.positions[i] = r.Y(ev.Date)
	}
	return r
}

func (r *Result) layoutBands() {
	n := len(r.categories)
	if n == 0 || r.params.ViewportWidth <= 0 {
		for _, c := range r.categories {
			r.bands[c] = Band{}
		}
		return
	}
	slot := r.params.ViewportWidth / float64(n)
	gap := slot * r.params.BandPadding
	for i, c := range r.categories {
		r.bands[c] = Band{
			Start: float64(i)*slot + gap/2,
			Width: slot - gap,
		}
	}
}

func dateBounds(events []model.Event, p Params) (time.Time, time.Time) {
	minDate, maxDate := p.MinDate, p.MaxDate
	if minDate.IsZero() || maxDate.IsZero() {
		lo, hi := events[0].Date, events[0].Date
		for _, ev := range events[1:] {
			if ev.Date.Before(lo) {
				lo = ev.Date
			}
			if ev.Date.After(hi) {
				hi = ev.Date
			}
		}
		if minDate.IsZero() {
			minDate = lo.AddDate(-p.PaddingYears, 0, 0)
		}
		if maxDate.IsZero() {
			maxDate = hi.AddDate(p.PaddingYears, 0, 0)
		}
	}
	return minDate, maxDate
}

// yearsBetween counts whole calendar years from a to b. It never returns a
// negative number.
func yearsBetween(a, b time.Time) int {
	if b.Before(a) {
		return 0
	}
	years := b.Year() - a.Year()
	anniversary := a.AddDate(years, 0, 0)
	if anniversary.After(b) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Y maps date onto [0, Height()].
func (r Result) Y(date time.Time) float64 {
	if r.height == 0 {
		return 0
	}
	lo := float64(r.minDate.Unix())
	hi := float64(r.maxDate.Unix())
	if hi == lo {
		return 0
	}
	t := (float64(date.Unix()) - lo) / (hi - lo)
	if r.params.Inverted {
		t = 1 - t
	}
	return t * r.height
}

// Band returns the band of category c.
func (r Result) Band(c model.CategoryID) (Band, bool) {
	b, ok := r.bands[c]
	return b, ok
}

// Bands returns bands in category order.
func (r Result) Bands() []Band {
	out := make([]Band, len(r.categories))
	for i, c := range r.categories {
		out[i] = r.bands[c]
	}
	return out
}

func (r Result) Categories() []model.CategoryID { return r.categories }

// Height is the full timeline height.
func (r Result) Height() float64 { return r.height }

func (r Result) Empty() bool { return len(r.positions) == 0 }

func (r Result) Len() int { return len(r.positions) }

// Position returns the cached offset of event i.
func (r Result) Position(i int) (float64, bool) {
	if i < 0 || i >= len(r.positions) {
		return 0, false
	}
	return r.positions[i], true
}

// Positions returns a copy of every event's offset.
func (r Result) Positions() []float64 {
	return append([]float64(nil), r.positions...)
}

func (r Result) MinDate() time.Time { return r.minDate }
func (r Result) MaxDate() time.Time { return r.maxDate }
func (r Result) Years() int         { return r.years }
func (r Result) Params() Params     { return r.params }

// Ticks returns one tick per year boundary inside the domain; only decades are
// labelled.
func (r Result) Ticks() []Tick {
	if r.height == 0 {
		return nil
	}
	var out []Tick
	for y := r.minDate.Year(); y <= r.maxDate.Year(); y++ {
		d := time.Date(y, time.January, 1, 0, 0, 0, 0, r.minDate.Location())
		if d.Before(r.minDate) || d.After(r.maxDate) {
			continue
		}
		t := Tick{Year: y, Y: r.Y(d)}
		if y%10 == 0 {
			t.Label = strconv.Itoa(y)
		}
		out = append(out, t)
	}
	return out
}
