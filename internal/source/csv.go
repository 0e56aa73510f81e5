package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"healthline/internal/model"
)

// DefaultCategory is given to rows that leave the category cell empty.
const DefaultCategory model.CategoryID = "Medicine"

// SheetLayout maps spreadsheet columns (0-based) to event fields. A negative
// column means the field is not present.
type SheetLayout struct {
	// SkipRows is the number of leading rows before the data starts.
	SkipRows int `mapstructure:"skip_rows" yaml:"skip_rows"`

	YearCol     int `mapstructure:"year_col" yaml:"year_col"`
	MonthCol    int `mapstructure:"month_col" yaml:"month_col"`
	DayCol      int `mapstructure:"day_col" yaml:"day_col"`
	TitleCol    int `mapstructure:"title_col" yaml:"title_col"`
	BodyCol     int `mapstructure:"body_col" yaml:"body_col"`
	CategoryCol int `mapstructure:"category_col" yaml:"category_col"`

	MilestoneCol     int `mapstructure:"milestone_col" yaml:"milestone_col"`
	MilestoneTextCol int `mapstructure:"milestone_text_col" yaml:"milestone_text_col"`
	TagsCol          int `mapstructure:"tags_col" yaml:"tags_col"`
	IDCol            int `mapstructure:"id_col" yaml:"id_col"`
}

// DefaultSheetLayout is the layout of the published health timeline sheet:
// data from row 3, year/month/day in A..C, title in J, body in K and category
// in Q.
func DefaultSheetLayout() SheetLayout {
	return SheetLayout{
		SkipRows:         2,
		YearCol:          0,
		MonthCol:         1,
		DayCol:           2,
		TitleCol:         9,
		BodyCol:          10,
		CategoryCol:      16,
		MilestoneCol:     -1,
		MilestoneTextCol: -1,
		TagsCol:          -1,
		IDCol:            -1,
	}
}

// isZero reports a layout nobody configured.
func (l SheetLayout) isZero() bool { return l == SheetLayout{} }

// WithColumns overrides single columns by their config key (e.g. "category_col").
func (l SheetLayout) WithColumns(cols map[string]int) (SheetLayout, error) {
	for k, v := range cols {
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "skip_rows":
			l.SkipRows = v
		case "year_col":
			l.YearCol = v
		case "month_col":
			l.MonthCol = v
		case "day_col":
			l.DayCol = v
		case "title_col":
			l.TitleCol = v
		case "body_col":
			l.BodyCol = v
		case "category_col":
			l.CategoryCol = v
		case "milestone_col":
			l.MilestoneCol = v
		case "milestone_text_col":
			l.MilestoneTextCol = v
		case "tags_col":
			l.TagsCol = v
		case "id_col":
			l.IDCol = v
		default:
			return l, fmt.Errorf("unknown sheet column: %q", k)
		}
	}
	return l, nil
}

// CSVFile reads events from a CSV file. A file whose first row names a "date"
// or "year" column is read by header name; anything else is read positionally
// with Layout.
type CSVFile struct {
	Path   string
	Layout SheetLayout
}

func (f CSVFile) Name() string { return f.Path }

func (f CSVFile) Load(ctx context.Context) ([]model.Event, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ParseCSV(ctx, file, f.Path, f.Layout)
}

// ParseCSV reads every record of r. name labels row errors.
func ParseCSV(ctx context.Context, r io.Reader, name string, layout SheetLayout) ([]model.Event, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: error reading CSV: %w", name, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	if cols, ok := headerColumns(records[0]); ok {
		return parseRows(ctx, records[1:], 2, name, cols)
	}
	if layout.isZero() {
		layout = DefaultSheetLayout()
	}
	skip := layout.SkipRows
	if skip > len(records) {
		skip = len(records)
	}
	return parseRows(ctx, records[skip:], skip+1, name, layout)
}

// headerColumns builds a layout from a header row, matching names
// case-insensitively.
func headerColumns(header []string) (SheetLayout, bool) {
	l := SheetLayout{
		YearCol: -1, MonthCol: -1, DayCol: -1, TitleCol: -1, BodyCol: -1, CategoryCol: -1,
		MilestoneCol: -1, MilestoneTextCol: -1, TagsCol: -1, IDCol: -1,
	}
	found := false
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date", "year":
			l.YearCol = i
			found = true
		case "month":
			l.MonthCol = i
		case "day":
			l.DayCol = i
		case "title", "name":
			l.TitleCol = i
		case "body", "description", "text":
			l.BodyCol = i
		case "category", "categories":
			l.CategoryCol = i
		case "milestone", "ismilestone":
			l.MilestoneCol = i
		case "milestonetext", "milestone_text", "milestone text":
			l.MilestoneTextCol = i
		case "datasets", "dataset", "tags", "datasettags":
			l.TagsCol = i
		case "id":
			l.IDCol = i
		}
	}
	return l, found
}

func parseRows(ctx context.Context, records [][]string, firstRow int, name string, l SheetLayout) ([]model.Event, error) {
	out := make([]model.Event, 0, len(records))
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if blankRecord(rec) {
			continue
		}
		ev, err := l.event(rec)
		if err != nil {
			return nil, &RowError{Source: name, Row: firstRow + i, Err: err}
		}
		out = append(out, ev)
	}
	return out, nil
}

func (l SheetLayout) event(rec []string) (model.Event, error) {
	cell := func(col int) string {
		if col < 0 || col >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[col])
	}

	var (
		date = cell(l.YearCol)
		err  error
		ev   model.Event
	)
	if l.MonthCol >= 0 || l.DayCol >= 0 {
		ev.Date, err = YMD(date, cell(l.MonthCol), cell(l.DayCol))
	} else {
		ev.Date, err = ParseDate(date)
	}
	if err != nil {
		return model.Event{}, err
	}

	ev.Title = cell(l.TitleCol)
	if ev.Title == "" {
		return model.Event{}, errors.New("missing title")
	}
	ev.Body = cell(l.BodyCol)
	ev.Category = model.CategoryID(cell(l.CategoryCol))
	if ev.Category == "" {
		ev.Category = DefaultCategory
	}
	ev.MilestoneText = cell(l.MilestoneTextCol)
	ev.IsMilestone = parseBool(cell(l.MilestoneCol)) || ev.MilestoneText != ""
	ev.DatasetTags = splitTags(cell(l.TagsCol))
	ev.ID = cell(l.IDCol)
	if ev.ID == "" {
		ev.ID = eventID(ev)
	}
	return ev, nil
}

func blankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
