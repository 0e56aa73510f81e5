package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"healthline/internal/focus"
	"healthline/internal/model"
	"healthline/internal/source"

	"github.com/spf13/cobra"
)

// layoutFlags override the configured layout parameters for one command.
type layoutFlags struct {
	width    float64
	zoom     float64
	inverted bool
	minDate  string
	maxDate  string
	dataset  string
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.width, "width", 80, "Viewport width the category bands are laid out in")
	cmd.Flags().Float64Var(&f.zoom, "zoom", 1, "Zoom factor (snapped to zoom_step, clamped to min_zoom..max_zoom)")
	cmd.Flags().BoolVar(&f.inverted, "inverted", false, "Put the latest date at the top")
	cmd.Flags().StringVar(&f.minDate, "min", "", "Axis start date (e.g. 1880); default from config or the data")
	cmd.Flags().StringVar(&f.maxDate, "max", "", "Axis end date (e.g. 2020); default from config or the data")
	cmd.Flags().StringVar(&f.dataset, "dataset", model.AllDatasets, "Only lay out events tagged with this dataset")
}

// synchronizer loads the events and builds a synchronizer for the flags on
// top of the configuration.
func (f *layoutFlags) synchronizer(cmd *cobra.Command, app *App) (*focus.Synchronizer, error) {
	cfg, err := app.config()
	if err != nil {
		return nil, err
	}
	opts, err := syncOptions(cfg)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("min") || cmd.Flags().Changed("max") {
		minDate, maxDate, err := dateRange(f.minDate, f.maxDate)
		if err != nil {
			return nil, err
		}
		if cmd.Flags().Changed("min") {
			opts.Params.MinDate = minDate
		}
		if cmd.Flags().Changed("max") {
			opts.Params.MaxDate = maxDate
		}
	}
	if cmd.Flags().Changed("inverted") {
		opts.Params.Inverted = f.inverted
	}
	opts.Params.ViewportWidth = f.width
	opts.Params.ZoomFactor = f.zoom

	p, err := app.provider()
	if err != nil {
		return nil, err
	}
	if err := categoryOrder(&opts, p); err != nil {
		return nil, err
	}
	events, err := load(cmd, p)
	if err != nil {
		return nil, err
	}
	s := focus.New(events, opts, focus.Callbacks{})
	if f.dataset != "" && f.dataset != model.AllDatasets {
		s.SetDatasetFilter(f.dataset)
	}
	return s, nil
}

// dateRange parses optional axis bounds. Empty means derive from the data.
func dateRange(minText, maxText string) (minDate, maxDate time.Time, err error) {
	if strings.TrimSpace(minText) != "" {
		if minDate, err = source.ParseDate(minText); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("min date: %w", err)
		}
	}
	if strings.TrimSpace(maxText) != "" {
		if maxDate, err = source.ParseDate(maxText); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("max date: %w", err)
		}
	}
	if !minDate.IsZero() && !maxDate.IsZero() && maxDate.Before(minDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("date range: %s is before %s", maxText, minText)
	}
	return minDate, maxDate, nil
}

type layoutRow struct {
	Index    int              `json:"index"`
	ID       string           `json:"id"`
	Date     time.Time        `json:"date"`
	Category model.CategoryID `json:"category"`
	Title    string           `json:"title"`
	Y        float64          `json:"y"`
	Target   float64          `json:"target"`
	X        float64          `json:"x"`
}

type layoutReport struct {
	Height   float64     `json:"height"`
	MinDate  time.Time   `json:"minDate"`
	MaxDate  time.Time   `json:"maxDate"`
	Years    int         `json:"years"`
	Zoom     float64     `json:"zoom"`
	Inverted bool        `json:"inverted"`
	Dataset  string      `json:"dataset"`
	Events   []layoutRow `json:"events"`
	Decades  []int       `json:"decades,omitempty"`
	Invalid  []string    `json:"invalid,omitempty"`
}

func (r layoutReport) TableHeader() []string {
	return []string{"#", "DATE", "CATEGORY", "Y", "TARGET", "X", "TITLE"}
}

func (r layoutReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Events))
	for _, ev := range r.Events {
		rows = append(rows, []string{
			strconv.Itoa(ev.Index),
			dateLabel(ev.Date),
			string(ev.Category),
			formatFloat(ev.Y),
			formatFloat(ev.Target),
			formatFloat(ev.X),
			ev.Title,
		})
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func buildLayoutReport(s *focus.Synchronizer) layoutReport {
	l := s.Layout()
	events := s.Events()
	r := layoutReport{
		Height:   l.Height(),
		MinDate:  l.MinDate(),
		MaxDate:  l.MaxDate(),
		Years:    l.Years(),
		Zoom:     s.State().ZoomFactor,
		Inverted: l.Params().Inverted,
		Dataset:  s.Dataset(),
		Events:   make([]layoutRow, 0, len(events)),
	}
	for i, ev := range events {
		y, _ := l.Position(i)
		target, _ := s.Target(i)
		band, _ := l.Band(ev.Category)
		r.Events = append(r.Events, layoutRow{
			Index:    i,
			ID:       ev.ID,
			Date:     ev.Date,
			Category: ev.Category,
			Title:    ev.Title,
			Y:        y,
			Target:   target,
			X:        band.Center(),
		})
	}
	for _, t := range l.Ticks() {
		if t.Label != "" {
			r.Decades = append(r.Decades, t.Year)
		}
	}
	for _, i := range l.Invalid {
		r.Invalid = append(r.Invalid, events[i].ID)
	}
	return r
}

func newLayoutCmd(app *App) *cobra.Command {
	var flags layoutFlags

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Show the timeline height and every event's position and scroll target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.synchronizer(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Teardown()
			return writeOut(cmd, app, buildLayoutReport(s), map[string]any{
				"width":        flags.width,
				"headerOffset": s.HeaderOffset(),
			})
		},
	}
	flags.register(cmd)
	return cmd
}
