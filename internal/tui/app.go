package tui

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"healthline/internal/focus"
	"healthline/internal/model"
	"healthline/internal/scroll"
	"healthline/internal/source"
)

const (
	frameInterval = 16 * time.Millisecond
	resizeDelay   = 120 * time.Millisecond
	statusTTL     = 3 * time.Second

	headerRows = 1
	wheelStep  = 3

	// Narrower terminals stack the carousel under the timeline.
	sideBySideMinWidth = 100
	carouselMinWidth   = 36
)

type frameMsg struct{}

type resolveMsg struct{ seq uint64 }

type resizeDoneMsg struct{ seq int }

type statusDoneMsg struct{ seq int }

type eventsLoadedMsg struct {
	events []model.Event
	err    error
}

type watchMsg source.Change

// syncFeed collects synchronizer callbacks. The synchronizer calls back
// synchronously, so Update drains the feed right after each call.
type syncFeed struct {
	sync *focus.Synchronizer
	// rows is the visible timeline height; aboutRows the height of the region
	// past the end of the timeline.
	rows      int
	aboutRows int

	focus    []focus.FocusChange
	motion   bool
	overflow bool
}

func (f *syncFeed) callbacks() focus.Callbacks {
	return focus.Callbacks{
		OnFocusedIndexChanged:  func(fc focus.FocusChange) { f.focus = append(f.focus, fc) },
		OnBeyondTimelineScroll: func(float64) { f.overflow = true },
		OnLayoutHeightChanged: func(h float64) {
			// Bounds must follow the layout before a recentering motion is clamped.
			if f.sync != nil {
				f.sync.SetScrollBounds(f.maxOffset(h))
			}
		},
		OnScrollTo: func(scroll.Motion) { f.motion = true },
	}
}

// maxOffset lets the user scroll until the about region fills the pane.
func (f *syncFeed) maxOffset(height float64) float64 {
	about := max(f.aboutRows, f.rows)
	return math.Max(0, math.Ceil(height)+float64(about-f.rows))
}

type appModel struct {
	ctx      context.Context
	opts     Options
	provider source.Provider
	logger   *log.Logger

	sync    *focus.Synchronizer
	feed    *syncFeed
	palette categoryPalette

	carousel carousel
	keys     keyMap
	help     help.Model
	reader   viewport.Model
	reading  bool

	width  int
	height int

	// The first WindowSizeMsg is initial sizing, not a resize to debounce.
	seenWindowSize bool
	resizeSeq      int
	resolveSeq     uint64
	cardHeight     int
	// cardIndex is the slide cardHeight was measured for.
	cardIndex int

	datasets    []string
	frameActive bool
	loading     bool

	status    string
	statusErr bool
	statusSeq int

	watch <-chan source.Change
	about []string
}

func newAppModel(ctx context.Context, opts Options, events []model.Event) appModel {
	feed := &syncFeed{}
	sync := focus.New(events, opts.Sync, feed.callbacks())
	feed.sync = sync

	logger := opts.Sync.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	m := appModel{
		ctx:      ctx,
		opts:     opts,
		provider: opts.Provider,
		logger:   logger,
		sync:     sync,
		feed:     feed,
		keys:     defaultKeyMap(),
		help:     help.New(),
	}
	m.syncData()
	m.carousel.goTo(sync.State().FocusedIndex)
	return m
}

func (m appModel) Init() tea.Cmd {
	if m.watch != nil {
		return waitWatch(m.watch)
	}
	return nil
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if !m.seenWindowSize {
			m.seenWindowSize = true
			return m, m.applySize()
		}
		m.resizeSeq++
		seq := m.resizeSeq
		return m, tea.Tick(resizeDelay, func(time.Time) tea.Msg { return resizeDoneMsg{seq: seq} })

	case resizeDoneMsg:
		if msg.seq != m.resizeSeq {
			return m, nil
		}
		return m, m.applySize()

	case frameMsg:
		return m, m.frame()

	case resolveMsg:
		if msg.seq != m.resolveSeq {
			return m, nil
		}
		m.sync.Resolve(msg.seq)
		return m, m.drain()

	case eventsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.logger.Printf("reload %s: %v", m.sourceName(), msg.err)
			return m, m.flash("Reload failed: "+msg.err.Error(), true)
		}
		m.sync.SetEventList(msg.events)
		m.syncData()
		return m, tea.Batch(m.applySize(), m.flash(fmt.Sprintf("Loaded %d events", len(msg.events)), false))

	case watchMsg:
		cmds := []tea.Cmd{waitWatch(m.watch)}
		if msg.Err != nil {
			cmds = append(cmds, m.flash("Watch: "+msg.Err.Error(), true))
		} else {
			cmds = append(cmds, m.reload())
		}
		return m, tea.Batch(cmds...)

	case statusDoneMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil

	case tea.MouseMsg:
		if m.reading {
			var cmd tea.Cmd
			m.reader, cmd = m.reader.Update(msg)
			return m, cmd
		}
		return m, m.mouse(msg)

	case tea.KeyMsg:
		if m.reading {
			if key.Matches(msg, m.keys.Close) {
				m.reading = false
				return m, nil
			}
			var cmd tea.Cmd
			m.reader, cmd = m.reader.Update(msg)
			return m, cmd
		}
		return m.updateKey(msg)
	}
	return m, nil
}

func (m appModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.sync.Teardown()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Down):
		return m, m.scrollBy(1)
	case key.Matches(msg, m.keys.Up):
		return m, m.scrollBy(-1)
	case key.Matches(msg, m.keys.PageDown):
		return m, m.scrollBy(float64(max(m.feed.rows/2, 1)))
	case key.Matches(msg, m.keys.PageUp):
		return m, m.scrollBy(-float64(max(m.feed.rows/2, 1)))
	case key.Matches(msg, m.keys.Next):
		return m, m.focusIndex(m.carousel.next())
	case key.Matches(msg, m.keys.Prev):
		return m, m.focusIndex(m.carousel.prev())
	case key.Matches(msg, m.keys.First):
		return m, m.focusIndex(0)
	case key.Matches(msg, m.keys.Last):
		return m, m.focusIndex(m.carousel.n - 1)
	case key.Matches(msg, m.keys.ZoomIn):
		return m, m.zoom(focus.ZoomIn)
	case key.Matches(msg, m.keys.ZoomOut):
		return m, m.zoom(focus.ZoomOut)
	case key.Matches(msg, m.keys.Dataset):
		return m, m.cycleDataset()
	case key.Matches(msg, m.keys.Read):
		m.openReader()
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		return m, m.reload()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, m.applySize()
	}
	return m, nil
}

func (m *appModel) mouse(msg tea.MouseMsg) tea.Cmd {
	switch msg.Button {
	case tea.MouseButtonWheelDown:
		return m.scrollBy(wheelStep)
	case tea.MouseButtonWheelUp:
		return m.scrollBy(-wheelStep)
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return nil
		}
		r := msg.Y - headerRows
		if r < 0 || r >= m.feed.rows || msg.X >= m.timelineWidth() {
			return nil
		}
		if i, ok := newTimelineView(m).hit(r, msg.X); ok {
			return m.focusIndex(i)
		}
	}
	return nil
}

// scrollBy is a live user scroll. The resolve runs once the debounce ticket
// comes back without a newer one.
func (m *appModel) scrollBy(delta float64) tea.Cmd {
	t, ok := m.sync.Scroll(m.sync.Offset() + delta)
	if !ok {
		return nil
	}
	m.resolveSeq = t.Seq
	seq := t.Seq
	resolve := tea.Tick(t.After, func(time.Time) tea.Msg { return resolveMsg{seq: seq} })
	return tea.Batch(resolve, m.drain())
}

// focusIndex moves the carousel and tells the synchronizer, the way a slide
// change from the carousel does.
func (m *appModel) focusIndex(i int) tea.Cmd {
	m.carousel.goTo(i)
	m.sync.SetFocusedIndex(m.carousel.index)
	return m.drain()
}

func (m *appModel) zoom(dir focus.ZoomDirection) tea.Cmd {
	if !m.sync.CanZoom(dir) {
		return m.flash(fmt.Sprintf("Zoom limit %.1f×", m.sync.State().ZoomFactor), false)
	}
	m.sync.Zoom(dir)
	return tea.Batch(m.drain(), m.flash(fmt.Sprintf("Zoom %.1f×", m.sync.State().ZoomFactor), false))
}

func (m *appModel) cycleDataset() tea.Cmd {
	if len(m.datasets) < 2 {
		return m.flash("No datasets", false)
	}
	next := 0
	for i, d := range m.datasets {
		if d == m.sync.Dataset() {
			next = (i + 1) % len(m.datasets)
			break
		}
	}
	m.sync.SetDatasetFilter(m.datasets[next])
	m.syncData()
	return tea.Batch(m.applySize(), m.flash("Dataset: "+m.datasets[next], false))
}

func (m *appModel) openReader() {
	ev, ok := m.sync.Focused()
	if !ok {
		return
	}
	w, h := max(m.width-4, 20), max(m.height-4, 5)
	m.reader = viewport.New(w, h)
	m.reader.SetContent(renderMarkdown(readMore(ev), w-2, markdownFull))
	m.reading = true
}

func (m *appModel) reload() tea.Cmd {
	if m.provider == nil || m.loading {
		return nil
	}
	m.loading = true
	ctx, p := m.ctx, m.provider
	return func() tea.Msg {
		events, err := p.Load(ctx)
		return eventsLoadedMsg{events: events, err: err}
	}
}

// frame advances the running motion and schedules the next frame while one is
// in flight.
func (m *appModel) frame() tea.Cmd {
	_, id, ended := m.sync.Advance(m.now())
	if ended {
		m.sync.ScrollEnded(id)
	}
	cmd := m.drain()
	if m.sync.Animating() {
		return tea.Batch(cmd, frameTick())
	}
	m.frameActive = false
	return cmd
}

// drain applies the callbacks collected since the last drain.
func (m *appModel) drain() tea.Cmd {
	f := m.feed
	for _, fc := range f.focus {
		m.logger.Printf("focus %d (%s)", fc.Index, fc.Origin)
		m.carousel.goTo(fc.Index)
	}
	f.focus = f.focus[:0]
	if f.overflow {
		f.overflow = false
		m.logger.Printf("beyond end=%v", m.sync.State().BeyondEnd)
	}

	m.measureCard(false)

	var cmd tea.Cmd
	if f.motion {
		f.motion = false
		if !m.frameActive {
			m.frameActive = true
			cmd = frameTick()
		}
	}
	return cmd
}

// syncData refreshes everything derived from the event list.
func (m *appModel) syncData() {
	set := m.sync.EventSet()
	m.carousel.setLen(set.Len())
	m.palette = newCategoryPalette(set.Categories())
	m.datasets = append([]string{model.AllDatasets}, model.DatasetTags(set.All())...)
}

// applySize recomputes pane geometry and everything that depends on it.
func (m *appModel) applySize() tea.Cmd {
	if m.width == 0 || m.height == 0 {
		return nil
	}
	tw := m.timelineWidth()
	m.sync.SetViewportWidth(float64(max(tw-gutterWidth, 0)))

	m.measureCard(true)
	m.about = m.aboutLines(tw)
	m.feed.aboutRows = len(m.about)
	m.sync.SetScrollBounds(m.feed.maxOffset(m.sync.Layout().Height()))
	m.sync.Recenter()
	return m.drain()
}

// measureCard sizes the timeline around the stacked carousel card. The card
// adapts its height to the slide, so the timeline gives up or regains rows as
// focus moves.
func (m *appModel) measureCard(force bool) {
	if m.width == 0 || m.height == 0 {
		return
	}
	if !force && m.cardIndex == m.carousel.index {
		return
	}
	m.cardIndex = m.carousel.index
	h := 0
	if !m.sideBySide() {
		h = lipgloss.Height(m.cardView(m.width, max(m.height/3, 6)))
	}
	rows := max(m.height-headerRows-m.footerHeight()-h, 1)
	if !force && h == m.cardHeight && rows == m.feed.rows {
		return
	}
	m.cardHeight = h
	m.feed.rows = rows
	if !force {
		m.sync.SetScrollBounds(m.feed.maxOffset(m.sync.Layout().Height()))
	}
}

func (m appModel) sideBySide() bool { return m.width >= sideBySideMinWidth }

func (m appModel) timelineWidth() int {
	if !m.sideBySide() {
		return m.width
	}
	return m.width - m.carouselWidth()
}

func (m appModel) carouselWidth() int {
	return max(m.width*2/5, carouselMinWidth)
}

func (m appModel) footerHeight() int {
	return 1 + lipgloss.Height(m.help.View(m.keys))
}

func (m appModel) cardView(width, maxHeight int) string {
	ev, ok := m.sync.EventSet().At(m.carousel.index)
	return m.carousel.view(ev, ok, cardOptions{
		width:     width,
		maxHeight: maxHeight,
		colors:    m.palette.colors(ev.Category),
	})
}

func (m appModel) aboutLines(width int) []string {
	set := m.sync.EventSet()
	var b strings.Builder
	b.WriteString("## About this timeline\n\n")
	if ev, ok := set.At(0); ok {
		last, _ := set.Last()
		fmt.Fprintf(&b, "%d events in %d categories, %s to %s.\n\n",
			set.Len(), len(set.Categories()), eventDateLabel(ev), eventDateLabel(last))
	}
	fmt.Fprintf(&b, "Source: `%s`. Dataset: **%s**.\n\n", m.sourceName(), set.Dataset())
	b.WriteString("Scroll back up to return to the timeline.")
	out := renderMarkdown(b.String(), max(width-2, 10), markdownFull)
	return strings.Split(out, "\n")
}

func (m appModel) sourceName() string {
	if m.provider == nil {
		return "memory"
	}
	return m.provider.Name()
}

func (m *appModel) flash(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	seq := m.statusSeq
	m.status = text
	m.statusErr = isErr
	return tea.Tick(statusTTL, func(time.Time) tea.Msg { return statusDoneMsg{seq: seq} })
}

func (m appModel) now() time.Time {
	if m.opts.Sync.Clock != nil {
		return m.opts.Sync.Clock()
	}
	return time.Now()
}

func (m appModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.reading {
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			Render(m.reader.View())
	}

	tw := m.timelineWidth()
	v := newTimelineView(&m)
	timeline := v.headerStrip(tw, "About") + "\n" + v.body(tw, m.feed.rows)

	var main string
	if m.sideBySide() {
		cw := m.width - tw
		h := headerRows + m.feed.rows
		card := normalizePane(m.cardView(cw, h), cw, h)
		main = lipgloss.JoinHorizontal(lipgloss.Top, timeline, card)
	} else {
		card := normalizePane(m.cardView(m.width, m.cardHeight), m.width, m.cardHeight)
		main = timeline + "\n" + card
	}
	return main + "\n" + m.statusLine() + "\n" + m.help.View(m.keys)
}

func (m appModel) statusLine() string {
	st := m.sync.State()
	parts := []string{
		m.sync.Dataset(),
		fmt.Sprintf("zoom %.1f×", st.ZoomFactor),
	}
	if st.HasFocus {
		parts = append(parts, fmt.Sprintf("%d/%d", st.FocusedIndex+1, m.carousel.n), string(st.ActiveCategory))
	}
	if st.BeyondEnd {
		parts = append(parts, "about")
	}
	sep := "  " + glyphHRule() + "  "
	line := styleMuted().Render(strings.Join(parts, sep))
	if m.status != "" {
		s := lipgloss.NewStyle().Foreground(colorAccent)
		if m.statusErr {
			s = lipgloss.NewStyle().Foreground(colorError)
		}
		line += "  " + s.Render(m.status)
	}
	return fitLine(line, m.width)
}

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg { return frameMsg{} })
}

func waitWatch(ch <-chan source.Change) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return watchMsg(c)
	}
}
