package cli

import (
	"fmt"
	"strconv"

	"healthline/internal/focus"

	"github.com/spf13/cobra"
)

type resolveResult struct {
	Offset      float64         `json:"offset"`
	ReadingLine float64         `json:"readingLine"`
	Index       int             `json:"index"`
	Event       *layoutRow      `json:"event,omitempty"`
	Overflow    focus.Overflow  `json:"overflow"`
	State       focus.ViewState `json:"state"`
}

func (r resolveResult) TableHeader() []string {
	return []string{"OFFSET", "READING LINE", "INDEX", "DATE", "TITLE", "BEYOND END"}
}

func (r resolveResult) TableRows() [][]string {
	date, title, index := "-", "-", "-"
	if r.Event != nil {
		date, title, index = dateLabel(r.Event.Date), r.Event.Title, strconv.Itoa(r.Index)
	}
	return [][]string{{
		formatFloat(r.Offset),
		formatFloat(r.ReadingLine),
		index,
		date,
		title,
		strconv.FormatBool(r.Overflow.BeyondEnd),
	}}
}

// resolveOffset plays a user scroll to offset through s and lets the debounce
// fire at once, the way the viewer does once scrolling pauses.
func resolveOffset(s *focus.Synchronizer, offset float64) (resolveResult, error) {
	if s.EventSet().Len() == 0 {
		return resolveResult{}, emptyTimelineError{source: "the current dataset"}
	}
	s.SetScrollBounds(s.Layout().Height() + s.HeaderOffset())
	ticket, ok := s.Scroll(offset)
	if !ok {
		return resolveResult{}, fmt.Errorf("resolve: timeline is busy")
	}
	s.Resolve(ticket.Seq)

	st := s.State()
	out := resolveResult{
		Offset:      s.Offset(),
		ReadingLine: s.Offset() + s.HeaderOffset(),
		Index:       st.FocusedIndex,
		Overflow:    s.Check(s.Offset()),
		State:       st,
	}
	if !out.Overflow.BeyondEnd {
		row := buildLayoutReport(s).Events[st.FocusedIndex]
		out.Event = &row
	}
	return out, nil
}

func newResolveCmd(app *App) *cobra.Command {
	var flags layoutFlags

	cmd := &cobra.Command{
		Use:   "resolve <offset>",
		Short: "Find the event the timeline settles on for a scroll offset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			offset, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return writeErr(cmd, fmt.Errorf("invalid offset %q: %w", args[0], err))
			}
			s, err := flags.synchronizer(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Teardown()
			res, err := resolveOffset(s, offset)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, res, nil)
		},
	}
	flags.register(cmd)
	return cmd
}
