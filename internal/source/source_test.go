package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"healthline/internal/model"
	"healthline/internal/store"
)

func TestParseDate_AcceptsSheetSpellings(t *testing.T) {
	cases := map[string]time.Time{
		"1967":                 time.Date(1967, 1, 1, 0, 0, 0, 0, time.UTC),
		"1967-12":              time.Date(1967, 12, 1, 0, 0, 0, 0, time.UTC),
		"1967-12-03":           time.Date(1967, 12, 3, 0, 0, 0, 0, time.UTC),
		"1967-12-3":            time.Date(1967, 12, 3, 0, 0, 0, 0, time.UTC),
		"1967-12-03T10:00:00Z": time.Date(1967, 12, 3, 10, 0, 0, 0, time.UTC),
		"12/03/1967":           time.Date(1967, 12, 3, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%q: expected %v, got %v", in, want, got)
		}
	}
	if _, err := ParseDate("sometime"); err == nil {
		t.Fatalf("expected error for garbage")
	}
	if _, err := ParseDate(" "); err == nil {
		t.Fatalf("expected error for empty date")
	}
}

func TestYMD_DefaultsMonthAndDay(t *testing.T) {
	got, err := YMD("1928", "", "")
	if err != nil {
		t.Fatalf("YMD: %v", err)
	}
	if !got.Equal(time.Date(1928, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected %v", got)
	}
}

// sheetRow builds a 20 column row laid out like the published sheet.
func sheetRow(year, month, day, title, body, category string) string {
	cells := make([]string, 20)
	cells[0], cells[1], cells[2] = year, month, day
	cells[9], cells[10], cells[16] = title, body, category
	return strings.Join(cells, ",")
}

func TestParseCSV_SheetLayout(t *testing.T) {
	data := strings.Join([]string{
		"Health timeline,,,",
		"Y,M,D",
		sheetRow("1928", "9", "28", "Penicillin", "Fleming notices mould", "Research"),
		sheetRow("1901", "", "", "Uncategorized", "", ""),
		",,,,",
	}, "\n")

	evs, err := ParseCSV(context.Background(), strings.NewReader(data), "sheet", SheetLayout{})
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if evs[0].Title != "Penicillin" || evs[0].Body != "Fleming notices mould" || evs[0].Category != "Research" {
		t.Fatalf("unexpected first event %+v", evs[0])
	}
	if !evs[0].Date.Equal(time.Date(1928, 9, 28, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", evs[0].Date)
	}
	if evs[1].Category != DefaultCategory {
		t.Fatalf("expected default category, got %q", evs[1].Category)
	}
	if evs[0].ID == "" || evs[0].ID == evs[1].ID {
		t.Fatalf("expected distinct derived ids, got %q %q", evs[0].ID, evs[1].ID)
	}
}

func TestParseCSV_HeaderColumns(t *testing.T) {
	data := "Date,Title,Category,Datasets,Milestone Text\n" +
		"1967-12-03,Heart transplant,Surgery,\"nobel; who\",first\n" +
		"1979,Smallpox eradicated,Epidemics,,\n"
	evs, err := ParseCSV(context.Background(), strings.NewReader(data), "h.csv", SheetLayout{})
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if !evs[0].IsMilestone || evs[0].MilestoneText != "first" {
		t.Fatalf("expected milestone from text column, got %+v", evs[0])
	}
	if !evs[0].HasTag("WHO") || !evs[0].HasTag("nobel") {
		t.Fatalf("expected dataset tags, got %v", evs[0].DatasetTags)
	}
	if evs[1].IsMilestone {
		t.Fatalf("expected plain event")
	}
}

func TestParseCSV_RowErrorCarriesSheetRow(t *testing.T) {
	data := "date,title\n1901,ok\nnot-a-date,broken\n"
	_, err := ParseCSV(context.Background(), strings.NewReader(data), "bad.csv", SheetLayout{})
	var rowErr *RowError
	if !errors.As(err, &rowErr) {
		t.Fatalf("expected RowError, got %v", err)
	}
	if rowErr.Row != 3 || rowErr.Source != "bad.csv" {
		t.Fatalf("expected row 3 of bad.csv, got %+v", rowErr)
	}
}

func TestFile_LoadsYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "events.yaml")
	yamlBody := `categories: [Surgery, Medicine]
events:
  - date: 1967-12-03
    title: Heart transplant
    category: Surgery
    milestone: true
    milestoneText: first
    datasets: [nobel]
  - date: 1901
    title: Nobel prize
`
	if err := os.WriteFile(yamlPath, []byte(yamlBody), 0o644); err != nil {
		t.Fatal(err)
	}
	f := File{Path: yamlPath, Format: FormatYAML}
	evs, err := f.Load(context.Background())
	if err != nil {
		t.Fatalf("Load yaml: %v", err)
	}
	if len(evs) != 2 || !evs[0].IsMilestone || evs[1].Category != DefaultCategory {
		t.Fatalf("unexpected events %+v", evs)
	}
	if !evs[1].Date.Equal(time.Date(1901, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected bare year, got %v", evs[1].Date)
	}
	cats, err := f.Categories()
	if err != nil || len(cats) != 2 || cats[0] != "Surgery" {
		t.Fatalf("unexpected categories %v err=%v", cats, err)
	}

	jsonPath := filepath.Join(dir, "events.json")
	if err := WriteFile(jsonPath, FormatJSON, evs); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	back, err := File{Path: jsonPath, Format: FormatJSON}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load json: %v", err)
	}
	if len(back) != 2 || back[0].ID != evs[0].ID || !back[0].Date.Equal(evs[0].Date) {
		t.Fatalf("expected json to read back, got %+v", back)
	}
}

func TestFile_BareJSONList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.json")
	body := `[{"date":"1983","title":"HIV identified","category":"Research","datasetTags":["who"]}]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	evs, err := File{Path: path, Format: FormatJSON}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(evs) != 1 || !evs[0].HasTag("who") {
		t.Fatalf("unexpected events %+v", evs)
	}
}

func TestFile_MissingTitleIsRowError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "e.yaml")
	if err := os.WriteFile(path, []byte("- date: 1901\n  title: ok\n- date: 1902\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := File{Path: path, Format: FormatYAML}.Load(context.Background())
	var rowErr *RowError
	if !errors.As(err, &rowErr) || rowErr.Row != 2 {
		t.Fatalf("expected RowError on row 2, got %v", err)
	}
}

func TestOpen_PicksProvider(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"a.json":                   "a.json",
		"b.YML":                    "b.YML",
		"c.csv":                    "c.csv",
		"sqlite:" + dir:            "sqlite:" + dir,
		"sheet:https://x.invalid/": "sheet:https://x.invalid/",
	}
	for spec, name := range cases {
		p, err := Open(spec, Options{})
		if err != nil {
			t.Fatalf("%s: %v", spec, err)
		}
		if p.Name() != name {
			t.Fatalf("%s: expected name %q, got %q", spec, name, p.Name())
		}
	}
	var unsupported UnsupportedFormatError
	if _, err := Open("events.xml", Options{}); !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
	if _, err := Open("", Options{}); err == nil {
		t.Fatalf("expected error for sqlite without a dir")
	}
}

func TestOpen_SQLiteReadsIndex(t *testing.T) {
	dir := t.TempDir()
	want := []model.Event{{ID: "x", Date: time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC), Category: "Medicine", Title: "Indexed"}}
	if err := (store.Store{Dir: dir}).SaveEvents(context.Background(), "test", want); err != nil {
		t.Fatalf("SaveEvents: %v", err)
	}
	p, err := Open("sqlite:", Options{Dir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := p.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Indexed" {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestSheet_FallsBackToSnapshot(t *testing.T) {
	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			http.Error(w, "gone", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("date,title,category\n1796,Smallpox vaccine,Medicine\n"))
	}))
	defer srv.Close()

	s := NewSheet(srv.URL, t.TempDir(), SheetLayout{})
	evs, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(evs) != 1 || !s.Cached() {
		t.Fatalf("expected one event and a snapshot, got %d cached=%v", len(evs), s.Cached())
	}

	down.Store(true)
	evs, err = s.Load(context.Background())
	if err != nil {
		t.Fatalf("expected snapshot fallback, got %v", err)
	}
	if len(evs) != 1 || evs[0].Title != "Smallpox vaccine" {
		t.Fatalf("unexpected fallback events %+v", evs)
	}

	cold := NewSheet(srv.URL, t.TempDir(), SheetLayout{})
	if _, err := cold.Load(context.Background()); err == nil {
		t.Fatalf("expected error without a snapshot")
	}
}

func TestWatch_CoalescesWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := Watch(ctx, path, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("[]\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case c := <-changes:
		if c.Err != nil {
			t.Fatalf("unexpected watch error: %v", c.Err)
		}
		abs, _ := filepath.Abs(path)
		if c.Path != abs {
			t.Fatalf("expected %s, got %s", abs, c.Path)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("expected a change notification")
	}

	cancel()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("expected channel closed after cancel")
		}
	}
}

func TestSheetLayout_WithColumns(t *testing.T) {
	l, err := DefaultSheetLayout().WithColumns(map[string]int{"category_col": 17, "tags_col": 18})
	if err != nil {
		t.Fatalf("WithColumns: %v", err)
	}
	if l.CategoryCol != 17 || l.TagsCol != 18 || l.TitleCol != 9 {
		t.Fatalf("expected overrides on top of the default layout, got %+v", l)
	}
	if _, err := DefaultSheetLayout().WithColumns(map[string]int{"colour_col": 1}); err == nil {
		t.Fatalf("expected error for unknown column")
	}
}

func TestWatchPath(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		spec string
		want string
		ok   bool
	}{
		{"events.yaml", "events.yaml", true},
		{"events.csv", "events.csv", true},
		{"sqlite:" + dir, filepath.Join(dir, "events.sqlite"), true},
		{"sheet:https://example.invalid/export", "", false},
	}
	for _, tc := range cases {
		p, err := Open(tc.spec, Options{Dir: dir})
		if err != nil {
			t.Fatalf("Open(%q): %v", tc.spec, err)
		}
		got, ok := WatchPath(p)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("WatchPath(%q): expected %q %v, got %q %v", tc.spec, tc.want, tc.ok, got, ok)
		}
	}
}
