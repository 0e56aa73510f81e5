package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"healthline/internal/model"
)

// carousel shows one event card at a time. Navigation wraps around at both ends.
type carousel struct {
	index int
	n     int
}

func (c *carousel) setLen(n int) {
	if n < 0 {
		n = 0
	}
	c.n = n
	c.goTo(c.index)
}

func (c *carousel) goTo(i int) {
	switch {
	case c.n == 0 || i < 0:
		c.index = 0
	case i >= c.n:
		c.index = c.n - 1
	default:
		c.index = i
	}
}

func (c carousel) next() int {
	if c.n == 0 {
		return 0
	}
	return (c.index + 1) % c.n
}

func (c carousel) prev() int {
	if c.n == 0 {
		return 0
	}
	return (c.index - 1 + c.n) % c.n
}

// cardOptions carries what a card needs besides the event.
type cardOptions struct {
	width     int
	maxHeight int
	colors    categoryColors
}

// view renders the card for ev at most maxHeight lines tall (border included).
func (c carousel) view(ev model.Event, ok bool, o cardOptions) string {
	header, _ := o.colors.adaptive()
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(header).
		Padding(0, 1)
	inner := o.width - box.GetHorizontalFrameSize()
	if inner < 4 {
		inner = 4
	}

	if !ok {
		body := styleMuted().Render("No events")
		return box.Width(o.width - box.GetHorizontalBorderSize()).Render(body)
	}

	avail := o.maxHeight - box.GetVerticalFrameSize() - 1
	if avail < 2 {
		avail = 2
	}

	pill := lipgloss.NewStyle().
		Background(header).
		Foreground(lipgloss.Color("#1c1c1c")).
		Padding(0, 1).
		Render(string(ev.Category))
	meta := pill + "  " + styleMuted().Render(eventDateLabel(ev))
	if ev.IsMilestone {
		meta += "  " + lipgloss.NewStyle().Foreground(header).Render(glyphMilestone())
	}

	lines := []string{meta}
	title := lipgloss.NewStyle().Bold(true).Render(wordwrap.String(ev.Title, inner))
	lines = append(lines, strings.Split(title, "\n")...)
	if ev.MilestoneText != "" {
		lines = append(lines, lipgloss.NewStyle().Italic(true).Foreground(header).Render(
			truncate.StringWithTail(ev.MilestoneText, uint(inner), "…")))
	}
	if body := renderMarkdown(ev.Body, inner, markdownCompact); body != "" {
		lines = append(lines, "")
		lines = append(lines, strings.Split(body, "\n")...)
	}

	if len(lines) > avail {
		lines = lines[:avail-1]
		lines = append(lines, styleMuted().Render("… enter: read more"))
	}
	lines = append(lines, c.dots(inner))

	return box.Width(o.width - box.GetHorizontalBorderSize()).Render(strings.Join(lines, "\n"))
}

// dots is the slide indicator: a window of dots around the current slide and
// the position as a counter.
func (c carousel) dots(width int) string {
	if c.n == 0 {
		return ""
	}
	counter := " " + strconv.Itoa(c.index+1) + "/" + strconv.Itoa(c.n)
	room := (width - lipgloss.Width(counter) - 4) / 2
	if room < 1 {
		room = 1
	}
	k := c.n
	if k > room {
		k = room
	}
	start := c.index - k/2
	if start < 0 {
		start = 0
	}
	if start > c.n-k {
		start = c.n - k
	}

	active := lipgloss.NewStyle().Foreground(colorAccent)
	var b strings.Builder
	b.WriteString(glyphPrev())
	for i := start; i < start+k; i++ {
		b.WriteByte(' ')
		if i == c.index {
			b.WriteString(active.Render(glyphDotActive()))
		} else {
			b.WriteString(styleMuted().Render(glyphDot()))
		}
	}
	b.WriteByte(' ')
	b.WriteString(glyphNext())
	b.WriteString(styleMuted().Render(counter))
	return b.String()
}

// readMore is the full event text for the read-more view.
func readMore(ev model.Event) string {
	var b strings.Builder
	b.WriteString("# " + ev.Title + "\n\n")
	b.WriteString("*" + eventDateLabel(ev) + " · " + string(ev.Category) + "*\n\n")
	if ev.MilestoneText != "" {
		b.WriteString("> " + ev.MilestoneText + "\n\n")
	}
	b.WriteString(ev.Body)
	if len(ev.DatasetTags) > 0 {
		b.WriteString("\n\nDatasets: " + strings.Join(ev.DatasetTags, ", "))
	}
	return b.String()
}

// eventDateLabel shows a bare year for events dated on January 1st.
func eventDateLabel(ev model.Event) string {
	d := ev.Date
	if d.IsZero() {
		return "undated"
	}
	if d.Month() == 1 && d.Day() == 1 {
		return strconv.Itoa(d.Year())
	}
	return d.Format("2 January 2006")
}
