package cli

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const eventsYAML = `categories: [Medicine, Research, Surgery, Epidemics]
events:
  - id: nobel-1901
    date: 1901
    title: First Nobel prize in medicine
    category: Medicine
    datasets: [nobel]
  - id: malaria
    date: 1902
    title: Malaria transmission
    category: Research
  - id: penicillin
    date: 1928-09-28
    title: Penicillin
    category: Research
    milestone: true
    milestoneText: Antibiotic era
    datasets: [nobel, who]
  - id: heart
    date: 1967-12-03
    title: First heart transplant
    category: Surgery
  - id: smallpox
    date: 1979-12-09
    title: Smallpox eradicated
    category: Epidemics
    datasets: [who]
`

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// testEnv isolates config and data dirs and writes the sample event file.
func testEnv(t *testing.T) (dir, eventsPath string) {
	t.Helper()
	t.Setenv("HEALTHLINE_CONFIG_DIR", t.TempDir())
	t.Setenv("HEALTHLINE_DIR", "")
	t.Setenv("HEALTHLINE_SOURCE", "")
	t.Setenv("HEALTHLINE_FORMAT", "")

	dir = t.TempDir()
	eventsPath = filepath.Join(dir, "events.yaml")
	if err := os.WriteFile(eventsPath, []byte(eventsYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, eventsPath
}

func mustEnv(t *testing.T, args ...string) map[string]any {
	t.Helper()
	stdout, stderr, err := runCLI(t, args)
	if err != nil {
		t.Fatalf("command failed: healthline %v\nerr: %v\nstderr:\n%s\nstdout:\n%s", args, err, string(stderr), string(stdout))
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal stdout as json envelope: %v\nstdout:\n%s\nargs: %v", err, string(stdout), args)
	}
	if _, ok := env["data"]; !ok {
		t.Fatalf("expected JSON envelope to contain data key; got: %v", env)
	}
	return env
}

func dataList(t *testing.T, env map[string]any) []any {
	t.Helper()
	xs, ok := env["data"].([]any)
	if !ok {
		t.Fatalf("expected data to be a list, got %T", env["data"])
	}
	return xs
}

func dataObject(t *testing.T, env map[string]any) map[string]any {
	t.Helper()
	m, ok := env["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data to be an object, got %T", env["data"])
	}
	return m
}

func TestEvents_ImportThenListFromIndex(t *testing.T) {
	dir, eventsPath := testEnv(t)

	imported := dataObject(t, mustEnv(t, "--dir", dir, "events", "import", eventsPath))
	if imported["count"] != float64(5) {
		t.Fatalf("expected 5 imported events, got %v", imported["count"])
	}
	if imported["source"] != eventsPath {
		t.Fatalf("expected source %q, got %v", eventsPath, imported["source"])
	}

	// Default source is the sqlite index in --dir.
	env := mustEnv(t, "--dir", dir, "events", "list")
	events := dataList(t, env)
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}
	first := events[0].(map[string]any)
	if first["id"] != "nobel-1901" {
		t.Fatalf("expected events in date order, got first %v", first["id"])
	}

	who := dataList(t, mustEnv(t, "--dir", dir, "events", "list", "--dataset", "who"))
	if len(who) != 2 {
		t.Fatalf("expected 2 who events, got %d", len(who))
	}

	meta := dataObject(t, mustEnv(t, "--dir", dir, "events", "meta"))
	if meta["count"] != float64(5) || meta["source"] != eventsPath {
		t.Fatalf("unexpected index meta: %v", meta)
	}
}

func TestEvents_ShowAndNotFound(t *testing.T) {
	dir, eventsPath := testEnv(t)

	env := mustEnv(t, "--dir", dir, "--source", eventsPath, "events", "show", "penicillin")
	events := dataList(t, env)
	if len(events) != 1 || events[0].(map[string]any)["title"] != "Penicillin" {
		t.Fatalf("expected penicillin, got %v", events)
	}
	if env["meta"].(map[string]any)["index"] != float64(2) {
		t.Fatalf("expected timeline index 2, got %v", env["meta"])
	}

	_, stderr, err := runCLI(t, []string{"--dir", dir, "--source", eventsPath, "events", "show", "nope"})
	if err == nil {
		t.Fatalf("expected error for unknown event")
	}
	if !strings.Contains(string(stderr), "event not found: nope") {
		t.Fatalf("expected not-found message, got %q", string(stderr))
	}
}

func TestEvents_ExportRoundTrip(t *testing.T) {
	dir, eventsPath := testEnv(t)
	out := filepath.Join(dir, "out.json")

	res := dataObject(t, mustEnv(t, "--dir", dir, "--source", eventsPath, "events", "export", out))
	if res["count"] != float64(5) {
		t.Fatalf("expected 5 exported events, got %v", res["count"])
	}
	back := dataList(t, mustEnv(t, "--dir", dir, "--source", out, "events", "list"))
	if len(back) != 5 {
		t.Fatalf("expected exported file to list 5 events, got %d", len(back))
	}

	if _, _, err := runCLI(t, []string{"--dir", dir, "--source", eventsPath, "events", "export", filepath.Join(dir, "out.txt")}); err == nil {
		t.Fatalf("expected error for unsupported export format")
	}
}

func TestLayout_PositionsAndTargets(t *testing.T) {
	dir, eventsPath := testEnv(t)

	env := mustEnv(t, "--dir", dir, "--source", eventsPath, "layout", "--min", "1891", "--max", "1991", "--width", "100")
	data := dataObject(t, env)
	if data["height"] != float64(1000) {
		t.Fatalf("expected height 1000 for 100 years at 10 per year, got %v", data["height"])
	}
	events := data["events"].([]any)
	if len(events) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(events))
	}
	for _, raw := range events {
		ev := raw.(map[string]any)
		y, target := ev["y"].(float64), ev["target"].(float64)
		if math.Abs(y-target-2) > 1e-9 {
			t.Fatalf("expected target = y - header offset 2, got y=%v target=%v", y, target)
		}
	}
	if env["meta"].(map[string]any)["headerOffset"] != float64(2) {
		t.Fatalf("expected header offset in meta, got %v", env["meta"])
	}

	zoomed := dataObject(t, mustEnv(t, "--dir", dir, "--source", eventsPath, "layout", "--min", "1891", "--max", "1991", "--zoom", "2"))
	if zoomed["height"] != float64(2000) || zoomed["zoom"] != float64(2) {
		t.Fatalf("expected zoom 2 to double the height, got %v at %v", zoomed["height"], zoomed["zoom"])
	}

	inverted := dataObject(t, mustEnv(t, "--dir", dir, "--source", eventsPath, "layout", "--inverted"))
	rows := inverted["events"].([]any)
	firstY := rows[0].(map[string]any)["y"].(float64)
	lastY := rows[len(rows)-1].(map[string]any)["y"].(float64)
	if firstY <= lastY {
		t.Fatalf("expected inverted axis to put the earliest event lowest, got %v <= %v", firstY, lastY)
	}

	if _, _, err := runCLI(t, []string{"--dir", dir, "--source", eventsPath, "layout", "--min", "2000", "--max", "1900"}); err == nil {
		t.Fatalf("expected error for a reversed date range")
	}
}

func TestResolve_NearestEventAndOverflow(t *testing.T) {
	dir, eventsPath := testEnv(t)

	layout := dataObject(t, mustEnv(t, "--dir", dir, "--source", eventsPath, "layout"))
	malaria := layout["events"].([]any)[1].(map[string]any)
	target := malaria["target"].(float64)

	res := dataObject(t, mustEnv(t, "--dir", dir, "--source", eventsPath, "resolve", formatFloat(target+0.5)))
	if res["index"] != float64(1) {
		t.Fatalf("expected offset near malaria to resolve to 1, got %v", res["index"])
	}
	if ev := res["event"].(map[string]any); ev["id"] != "malaria" {
		t.Fatalf("expected malaria, got %v", ev["id"])
	}

	beyond := dataObject(t, mustEnv(t, "--dir", dir, "--source", eventsPath, "resolve", "100000"))
	if beyond["overflow"].(map[string]any)["beyondEnd"] != true {
		t.Fatalf("expected beyond end, got %v", beyond["overflow"])
	}
	if _, ok := beyond["event"]; ok {
		t.Fatalf("expected no event past the end, got %v", beyond["event"])
	}

	if _, _, err := runCLI(t, []string{"--dir", dir, "--source", eventsPath, "resolve", "abc"}); err == nil {
		t.Fatalf("expected error for a non-numeric offset")
	}
}

func TestCategories_FileOrderAndTable(t *testing.T) {
	dir, eventsPath := testEnv(t)

	cats := dataList(t, mustEnv(t, "--dir", dir, "--source", eventsPath, "categories", "--width", "400"))
	want := []string{"Medicine", "Research", "Surgery", "Epidemics"}
	if len(cats) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(cats))
	}
	for i, raw := range cats {
		c := raw.(map[string]any)
		if c["category"] != want[i] {
			t.Fatalf("expected %s at %d, got %v", want[i], i, c["category"])
		}
		if c["width"] != float64(50) {
			t.Fatalf("expected band width 50 in a 100 slot, got %v", c["width"])
		}
	}
	if research := cats[1].(map[string]any); research["events"] != float64(2) {
		t.Fatalf("expected 2 research events, got %v", research["events"])
	}

	stdout, stderr, err := runCLI(t, []string{"--dir", dir, "--source", eventsPath, "--format", "table", "categories"})
	if err != nil {
		t.Fatalf("categories table: %v\nstderr:\n%s", err, string(stderr))
	}
	out := string(stdout)
	if !strings.Contains(out, "CATEGORY") || !strings.Contains(out, "Epidemics") {
		t.Fatalf("expected table output, got:\n%s", out)
	}
}

func TestDatasets_CountsPerTag(t *testing.T) {
	dir, eventsPath := testEnv(t)

	got := dataList(t, mustEnv(t, "--dir", dir, "--source", eventsPath, "datasets"))
	want := map[string]float64{"all": 5, "nobel": 2, "who": 2}
	if len(got) != len(want) {
		t.Fatalf("expected %d datasets, got %v", len(want), got)
	}
	if got[0].(map[string]any)["tag"] != "all" {
		t.Fatalf("expected all first, got %v", got[0])
	}
	for _, raw := range got {
		d := raw.(map[string]any)
		if want[d["tag"].(string)] != d["events"] {
			t.Fatalf("unexpected count for %v: %v", d["tag"], d["events"])
		}
	}
}

func TestConfig_InitThenShow(t *testing.T) {
	testEnv(t)
	cfgDir := t.TempDir()
	t.Setenv("HEALTHLINE_CONFIG_DIR", cfgDir)

	env := mustEnv(t, "--source", "events.yaml", "config", "init")
	if env["meta"].(map[string]any)["path"] != filepath.Join(cfgDir, "config.yaml") {
		t.Fatalf("expected config in the config dir, got %v", env["meta"])
	}
	if _, err := os.Stat(filepath.Join(cfgDir, "config.yaml")); err != nil {
		t.Fatalf("expected config file: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "init"}); err == nil {
		t.Fatalf("expected init to refuse overwriting without --force")
	}

	shown := dataObject(t, mustEnv(t, "config", "show"))
	if shown["source"] != "events.yaml" {
		t.Fatalf("expected saved source, got %v", shown["source"])
	}

	t.Setenv("HEALTHLINE_PIXELS_PER_YEAR", "4")
	shown = dataObject(t, mustEnv(t, "config", "show"))
	if shown["pixelsPerYear"] != float64(4) {
		t.Fatalf("expected env override, got %v", shown["pixelsPerYear"])
	}
}

func TestOutput_FormatsAndErrors(t *testing.T) {
	dir, eventsPath := testEnv(t)

	stdout, _, err := runCLI(t, []string{"--dir", dir, "--source", eventsPath, "--format", "edn", "datasets"})
	if err != nil {
		t.Fatalf("datasets edn: %v", err)
	}
	if !strings.HasPrefix(string(stdout), "{:data [") {
		t.Fatalf("expected edn envelope, got %q", string(stdout))
	}

	if _, _, err := runCLI(t, []string{"--dir", dir, "--source", eventsPath, "--format", "xml", "datasets"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}

	_, stderr, err := runCLI(t, []string{"--dir", dir, "--source", "events.txt", "datasets"})
	if err == nil || !strings.Contains(string(stderr), "unsupported source") {
		t.Fatalf("expected unsupported source error, got %v (%q)", err, string(stderr))
	}
}

func TestDocs_ListAndRaw(t *testing.T) {
	testEnv(t)

	topics := dataList(t, mustEnv(t, "docs"))
	if len(topics) == 0 {
		t.Fatalf("expected doc topics")
	}

	page := dataObject(t, mustEnv(t, "docs", "keys"))
	if page["topic"] != "keys" || !strings.Contains(page["markdown"].(string), "zoom") {
		t.Fatalf("unexpected docs page: %v", page)
	}

	stdout, _, err := runCLI(t, []string{"docs", "sources", "--raw"})
	if err != nil {
		t.Fatalf("docs --raw: %v", err)
	}
	if !strings.HasPrefix(string(stdout), "# Event sources") {
		t.Fatalf("expected raw markdown, got %q", string(stdout))
	}

	if _, _, err := runCLI(t, []string{"docs", "nope"}); err == nil {
		t.Fatalf("expected error for unknown topic")
	}
}

func TestZoom_KeepsEventUnderHeader(t *testing.T) {
	dir, eventsPath := testEnv(t)

	env := mustEnv(t, "--dir", dir, "--source", eventsPath, "zoom", "in", "--event", "penicillin")
	res := dataObject(t, env)
	if res["from"] != float64(1) || res["to"] != float64(1.5) || res["changed"] != true {
		t.Fatalf("expected zoom 1 -> 1.5, got %v", res)
	}
	ev := res["event"].(map[string]any)
	if ev["id"] != "penicillin" {
		t.Fatalf("expected penicillin to stay focused, got %v", ev["id"])
	}
	if res["offset"] != ev["target"] {
		t.Fatalf("expected the offset to land on the event target, got %v vs %v", res["offset"], ev["target"])
	}

	atMin := dataObject(t, mustEnv(t, "--dir", dir, "--source", eventsPath, "zoom", "out"))
	if atMin["changed"] != false || atMin["to"] != float64(1) {
		t.Fatalf("expected zoom out at the minimum to be a no-op, got %v", atMin)
	}

	if _, _, err := runCLI(t, []string{"--dir", dir, "--source", eventsPath, "zoom", "sideways"}); err == nil {
		t.Fatalf("expected error for an unknown direction")
	}
	if _, _, err := runCLI(t, []string{"--dir", dir, "--source", eventsPath, "zoom", "in", "--event", "nope"}); err == nil {
		t.Fatalf("expected error for an unknown event")
	}
}
