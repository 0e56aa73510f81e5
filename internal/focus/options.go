package focus

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"healthline/internal/model"
	"healthline/internal/scale"
	"healthline/internal/scroll"
)

const (
	DefaultMinZoom  = 1.0
	DefaultMaxZoom  = 3.0
	DefaultZoomStep = 0.5

	DefaultResolveDebounce     = 100 * time.Millisecond
	DefaultOverflowThrottle    = 10 * time.Millisecond
	DefaultIndexChangeDuration = 300 * time.Millisecond
	DefaultSettleDuration      = 750 * time.Millisecond
)

// Origin tags where a focus change came from.
type Origin int

const (
	// OriginExternal is a change requested through SetFocusedIndex (e.g. the carousel).
	OriginExternal Origin = iota
	// OriginTimeline is a change resolved from the user's scroll position.
	OriginTimeline
	// OriginData is a change forced by a new event list or dataset filter.
	OriginData
)

func (o Origin) String() string {
	switch o {
	case OriginExternal:
		return "external"
	case OriginTimeline:
		return "timeline"
	case OriginData:
		return "data"
	default:
		return fmt.Sprintf("origin(%d)", int(o))
	}
}

type FocusChange struct {
	Index  int
	Origin Origin
}

type ZoomDirection int

const (
	ZoomIn ZoomDirection = iota
	ZoomOut
)

func ParseZoomDirection(s string) (ZoomDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in", "+":
		return ZoomIn, nil
	case "out", "-":
		return ZoomOut, nil
	default:
		return ZoomIn, fmt.Errorf("unknown zoom direction: %q (want in|out)", s)
	}
}

type Options struct {
	// Params seeds the layout. Params.ZoomFactor is the initial zoom; Params.Categories
	// is ignored in favour of Categories.
	Params scale.Params

	// Categories optionally fixes the band ordering.
	Categories []model.CategoryID

	// HeaderOffset is the height of the header strip; every scroll target is
	// shifted up by it so the focused event sits just below the header.
	HeaderOffset float64

	MinZoom  float64
	MaxZoom  float64
	ZoomStep float64

	ResolveDebounce  time.Duration
	OverflowThrottle time.Duration

	// IndexChangeDuration animates scrolls that move focus to another event;
	// SettleDuration animates the snap back onto the already focused event.
	IndexChangeDuration time.Duration
	SettleDuration      time.Duration

	InitialIndex int

	Clock  func() time.Time
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.MinZoom <= 0 {
		o.MinZoom = DefaultMinZoom
	}
	if o.MaxZoom < o.MinZoom {
		o.MaxZoom = DefaultMaxZoom
		if o.MaxZoom < o.MinZoom {
			o.MaxZoom = o.MinZoom
		}
	}
	if o.ZoomStep <= 0 {
		o.ZoomStep = DefaultZoomStep
	}
	if o.ResolveDebounce <= 0 {
		o.ResolveDebounce = DefaultResolveDebounce
	}
	if o.OverflowThrottle <= 0 {
		o.OverflowThrottle = DefaultOverflowThrottle
	}
	if o.IndexChangeDuration <= 0 {
		o.IndexChangeDuration = DefaultIndexChangeDuration
	}
	if o.SettleDuration <= 0 {
		o.SettleDuration = DefaultSettleDuration
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard, "", 0)
	}
	return o
}

// Callbacks are invoked synchronously from Synchronizer methods. Any of them may be nil.
type Callbacks struct {
	OnFocusedIndexChanged   func(FocusChange)
	OnActiveCategoryChanged func(model.CategoryID)
	OnBeyondTimelineScroll  func(amount float64)
	OnLayoutHeightChanged   func(height float64)
	OnScrollTo              func(scroll.Motion)
}
