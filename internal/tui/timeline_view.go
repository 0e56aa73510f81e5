package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"healthline/internal/focus"
	"healthline/internal/model"
	"healthline/internal/scale"
)

// gutterWidth is the axis column: a 5 wide year label, the tick and the
// reading-line mark.
const gutterWidth = 7

// timelineView renders one frame of the timeline pane. One layout unit is one
// terminal row (vertical) or column (horizontal).
type timelineView struct {
	layout  scale.Result
	events  []model.Event
	state   focus.ViewState
	offset  float64
	reading int
	palette categoryPalette
	about   []string
}

func newTimelineView(m *appModel) timelineView {
	return timelineView{
		layout:  m.sync.Layout(),
		events:  m.sync.Events(),
		state:   m.sync.State(),
		offset:  m.sync.Offset(),
		reading: int(math.Round(m.sync.HeaderOffset())),
		palette: m.palette,
		about:   m.about,
	}
}

func (v timelineView) top() int { return int(math.Floor(v.offset)) }

// headerStrip is the category column header. Past the end of the timeline it
// gives way to the about title.
func (v timelineView) headerStrip(width int, title string) string {
	if v.state.HeaderHidden {
		return fitLine(lipgloss.NewStyle().Bold(true).Render(title), width)
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", gutterWidth))
	pos := 0
	for _, c := range v.layout.Categories() {
		band, ok := v.layout.Band(c)
		if !ok {
			continue
		}
		start, end := bandColumns(band)
		if end <= start {
			continue
		}
		if start > pos {
			b.WriteString(strings.Repeat(" ", start-pos))
		}
		header, _ := v.palette.colors(c).adaptive()
		st := lipgloss.NewStyle().Background(header).Foreground(lipgloss.Color("#1c1c1c"))
		if c == v.state.ActiveCategory {
			st = st.Bold(true).Underline(true)
		}
		label := truncate.StringWithTail(string(c), uint(end-start), "…")
		b.WriteString(st.Render(lipgloss.PlaceHorizontal(end-start, lipgloss.Center, label)))
		pos = end
	}
	return fitLine(b.String(), width)
}

func bandColumns(b scale.Band) (start, end int) {
	return int(math.Round(b.Start)), int(math.Round(b.Start + b.Width))
}

// cell is one terminal column of a timeline row; st indexes rowStyles.
type cell struct {
	r  rune
	st int
}

// rowStyles holds the styles cells refer to: 0 is unstyled, then three per
// band (background, marker, label), then the focused marker.
type rowStyles []lipgloss.Style

func (v timelineView) styles() rowStyles {
	cats := v.layout.Categories()
	out := make(rowStyles, 0, 2+3*len(cats))
	out = append(out, lipgloss.NewStyle())
	for _, c := range cats {
		header, bg := v.palette.colors(c).adaptive()
		base := lipgloss.NewStyle().Background(bg)
		out = append(out,
			base,
			base.Foreground(header).Bold(true),
			base.Foreground(colorSurfaceFg),
		)
	}
	out = append(out, lipgloss.NewStyle().Background(colorAccent).Foreground(colorAccentFg).Bold(true))
	return out
}

func bandStyle(b int) int   { return 1 + 3*b }
func markerStyle(b int) int { return 2 + 3*b }
func labelStyle(b int) int  { return 3 + 3*b }

// body renders rows lines of width columns starting at the current offset.
func (v timelineView) body(width, rows int) string {
	area := width - gutterWidth
	if area < 0 {
		area = 0
	}
	styles := v.styles()
	focused := len(styles) - 1

	// Column to band index.
	cats := v.layout.Categories()
	bandOf := make([]int, area)
	for i := range bandOf {
		bandOf[i] = -1
	}
	for bi, c := range cats {
		band, ok := v.layout.Band(c)
		if !ok {
			continue
		}
		start, end := bandColumns(band)
		for col := max(start, 0); col < min(end, area); col++ {
			bandOf[col] = bi
		}
	}
	bandIndex := make(map[model.CategoryID]int, len(cats))
	for i, c := range cats {
		bandIndex[c] = i
	}

	top := v.top()
	byRow := v.eventsByRow(top, rows)
	ticks := v.ticksByRow(top, rows)
	end := int(math.Ceil(v.layout.Height()))

	lines := make([]string, 0, rows)
	for r := 0; r < rows; r++ {
		y := top + r
		if y >= end && !v.layout.Empty() {
			if i := y - end; i < len(v.about) {
				lines = append(lines, v.about[i])
			} else {
				lines = append(lines, "")
			}
			continue
		}

		cells := make([]cell, area)
		for col := range cells {
			cells[col] = cell{r: ' '}
			if b := bandOf[col]; b >= 0 {
				cells[col].st = bandStyle(b)
			}
		}
		for _, i := range byRow[r] {
			ev := v.events[i]
			bi, ok := bandIndex[ev.Category]
			if !ok {
				continue
			}
			band, _ := v.layout.Band(ev.Category)
			col := int(math.Floor(band.Center()))
			_, bandEnd := bandColumns(band)
			if col < 0 || col >= area {
				continue
			}
			glyph, st := glyphMarker(), markerStyle(bi)
			if ev.IsMilestone {
				glyph = glyphMilestone()
			}
			if v.state.HasFocus && i == v.state.FocusedIndex {
				st = focused
			}
			cells[col] = cell{r: []rune(glyph)[0], st: st}
			if ev.IsMilestone && ev.MilestoneText != "" {
				room := min(bandEnd, area) - col - 2
				if room > 0 {
					label := truncate.StringWithTail(ev.MilestoneText, uint(room), "…")
					c := col + 2
					for _, ch := range label {
						if c >= area {
							break
						}
						cells[c] = cell{r: ch, st: labelStyle(bi)}
						c++
					}
				}
			}
		}
		lines = append(lines, v.gutter(r, ticks[r])+renderCells(cells, styles))
	}
	return normalizePane(strings.Join(lines, "\n"), width, rows)
}

func (v timelineView) gutter(r int, tick *scale.Tick) string {
	label, mark := "", glyphAxis()
	if tick != nil {
		label, mark = tick.Label, glyphTick()
	}
	reading := " "
	if r == v.reading {
		reading = lipgloss.NewStyle().Foreground(colorAccent).Render(glyphReading())
	}
	return styleMuted().Render(fmt.Sprintf("%5s", label)+mark) + reading
}

// renderCells styles runs of equal style in one call each.
func renderCells(cells []cell, styles rowStyles) string {
	var b strings.Builder
	run := make([]rune, 0, len(cells))
	cur := -1
	flush := func() {
		if len(run) == 0 {
			return
		}
		if cur == 0 {
			b.WriteString(string(run))
		} else {
			b.WriteString(styles[cur].Render(string(run)))
		}
		run = run[:0]
	}
	for _, c := range cells {
		if c.st != cur {
			flush()
			cur = c.st
		}
		run = append(run, c.r)
	}
	flush()
	return b.String()
}

// eventsByRow maps visible rows to the indices of the events drawn on them.
func (v timelineView) eventsByRow(top, rows int) map[int][]int {
	out := map[int][]int{}
	for i, y := range v.layout.Positions() {
		r := int(math.Round(y)) - top
		if r >= 0 && r < rows {
			out[r] = append(out[r], i)
		}
	}
	return out
}

func (v timelineView) ticksByRow(top, rows int) map[int]*scale.Tick {
	out := map[int]*scale.Tick{}
	ticks := v.layout.Ticks()
	for i := range ticks {
		r := int(math.Round(ticks[i].Y)) - top
		if r >= 0 && r < rows {
			out[r] = &ticks[i]
		}
	}
	return out
}

// hit returns the event drawn at body row r and pane column col. A click
// anywhere in the event's band on that row counts.
func (v timelineView) hit(r, col int) (int, bool) {
	c := col - gutterWidth
	if c < 0 {
		return 0, false
	}
	top := v.top()
	for _, i := range v.eventsByRow(top, r+1)[r] {
		band, ok := v.layout.Band(v.events[i].Category)
		if !ok {
			continue
		}
		start, end := bandColumns(band)
		if c >= start && c < end {
			return i, true
		}
	}
	return 0, false
}
