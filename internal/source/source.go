// Package source loads timeline events from files, the sqlite index or a
// published spreadsheet and turns them into model.Event values.
package source

import (
	"context"
	"crypto/md5"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"healthline/internal/model"
	"healthline/internal/store"
)

// Provider yields the full event list. Events need not be sorted.
type Provider interface {
	Load(ctx context.Context) ([]model.Event, error)
	// Name is shown in the TUI status line and in error messages.
	Name() string
}

type Options struct {
	// Dir is the healthline data dir, used for the sqlite index and the sheet cache.
	Dir string
	// CacheDir overrides where sheet snapshots are kept.
	CacheDir string
	Layout   SheetLayout
}

// Open picks a provider for spec:
//
//	events.json | events.yaml | events.yml | events.csv   a local file
//	sqlite: or sqlite:<dir>                               the events index
//	sheet:<url>                                           a published CSV export
func Open(spec string, opts Options) (Provider, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = "sqlite:"
	}
	switch {
	case strings.HasPrefix(spec, "sqlite:"):
		dir := strings.TrimSpace(strings.TrimPrefix(spec, "sqlite:"))
		if dir == "" {
			dir = opts.Dir
		}
		if dir == "" {
			return nil, fmt.Errorf("sqlite source: no data dir")
		}
		return sqliteProvider{st: store.Store{Dir: dir}}, nil
	case strings.HasPrefix(spec, "sheet:"):
		url := strings.TrimSpace(strings.TrimPrefix(spec, "sheet:"))
		if url == "" {
			return nil, fmt.Errorf("sheet source: missing url")
		}
		cache := opts.CacheDir
		if cache == "" && opts.Dir != "" {
			cache = filepath.Join(opts.Dir, "sheet-cache")
		}
		return NewSheet(url, cache, opts.Layout), nil
	}

	switch strings.ToLower(filepath.Ext(spec)) {
	case ".json":
		return File{Path: spec, Format: FormatJSON}, nil
	case ".yaml", ".yml":
		return File{Path: spec, Format: FormatYAML}, nil
	case ".csv":
		return CSVFile{Path: spec, Layout: opts.Layout}, nil
	default:
		return nil, UnsupportedFormatError{Spec: spec}
	}
}

type UnsupportedFormatError struct {
	Spec string
}

func (e UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported source: %q (want .json, .yaml, .csv, sqlite: or sheet:<url>)", e.Spec)
}

// RowError reports a record that could not be turned into an event. Row is
// 1-based, counted the way a spreadsheet shows it.
type RowError struct {
	Source string
	Row    int
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s: row %d: %v", e.Source, e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

var dateFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-1-2",
	"2006-01",
	"2006",
	"01/02/2006",
	"02.01.2006",
}

// ParseDate accepts the date spellings found in event sheets, from a bare year
// up to RFC 3339. Dates without a zone are UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	var err error
	for _, f := range dateFormats {
		var t time.Time
		t, err = time.Parse(f, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date %q: %w", s, err)
}

// YMD builds a date from separate year, month and day cells. Month and day
// default to January and 1 when blank.
func YMD(year, month, day string) (time.Time, error) {
	y := strings.TrimSpace(year)
	m := strings.TrimSpace(month)
	d := strings.TrimSpace(day)
	if m == "" {
		m = "1"
	}
	if d == "" {
		d = "1"
	}
	return ParseDate(y + "-" + m + "-" + d)
}

// eventID derives a stable id for records that carry none.
func eventID(ev model.Event) string {
	sum := md5.Sum([]byte(ev.Date.UTC().Format(time.RFC3339) + "\x00" + string(ev.Category) + "\x00" + ev.Title))
	return fmt.Sprintf("ev-%x", sum[:6])
}

// splitTags reads a comma or semicolon separated tag cell.
func splitTags(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "x", "milestone":
		return true
	}
	return false
}

type sqliteProvider struct {
	st store.Store
}

func (p sqliteProvider) Name() string { return "sqlite:" + p.st.Dir }

func (p sqliteProvider) Load(ctx context.Context) ([]model.Event, error) {
	return p.st.LoadEvents(ctx)
}
