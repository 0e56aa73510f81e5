package cli

import (
	"strings"

	"healthline/internal/focus"

	"github.com/spf13/cobra"
)

type zoomResult struct {
	From    float64    `json:"from"`
	To      float64    `json:"to"`
	Changed bool       `json:"changed"`
	Height  float64    `json:"height"`
	Offset  float64    `json:"offset"`
	Event   *layoutRow `json:"event,omitempty"`
}

func (r zoomResult) TableHeader() []string {
	return []string{"FROM", "TO", "HEIGHT", "OFFSET", "EVENT"}
}

func (r zoomResult) TableRows() [][]string {
	title := "-"
	if r.Event != nil {
		title = r.Event.Title
	}
	return [][]string{{
		formatFloat(r.From),
		formatFloat(r.To),
		formatFloat(r.Height),
		formatFloat(r.Offset),
		title,
	}}
}

// zoomAt steps the zoom of s in dir with event id (or the first event) focused
// and reports where the timeline lands.
func zoomAt(s *focus.Synchronizer, dir focus.ZoomDirection, id string) (zoomResult, error) {
	if s.EventSet().Len() == 0 {
		return zoomResult{}, emptyTimelineError{source: "the current dataset"}
	}
	if id = strings.TrimSpace(id); id != "" {
		i := s.EventSet().IndexOf(id)
		if i < 0 {
			return zoomResult{}, errNotFound("event", id)
		}
		s.SetFocusedIndex(i)
	}
	s.SetScrollBounds(s.Layout().Height() + s.HeaderOffset())
	s.Recenter()

	out := zoomResult{From: s.State().ZoomFactor}
	m, changed := s.Zoom(dir)
	st := s.State()
	out.To = st.ZoomFactor
	out.Changed = changed
	out.Height = s.Layout().Height()
	out.Offset = s.Offset()
	if changed {
		out.Offset = m.Target
	}
	row := buildLayoutReport(s).Events[st.FocusedIndex]
	out.Event = &row
	return out, nil
}

func newZoomCmd(app *App) *cobra.Command {
	var (
		flags layoutFlags
		event string
	)

	cmd := &cobra.Command{
		Use:   "zoom <in|out>",
		Short: "Step the zoom and show where the focused event lands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := focus.ParseZoomDirection(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := flags.synchronizer(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Teardown()
			res, err := zoomAt(s, dir, event)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, res, map[string]any{
				"canZoomIn":  s.CanZoom(focus.ZoomIn),
				"canZoomOut": s.CanZoom(focus.ZoomOut),
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&event, "event", "", "Event id to keep in place (default: the first event)")
	return cmd
}
