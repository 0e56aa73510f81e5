package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestNormalizePane_PadsAndCuts(t *testing.T) {
	out := normalizePane("short\n"+strings.Repeat("x", 20)+"\nthird\nfourth", 10, 3)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "short     " {
		t.Fatalf("expected padded line, got %q", lines[0])
	}
	if lines[1] != strings.Repeat("x", 9)+"…" {
		t.Fatalf("expected cut line with ellipsis, got %q", lines[1])
	}

	out = normalizePane("one", 4, 3)
	if got := lipgloss.Height(out); got != 3 {
		t.Fatalf("expected pane padded to 3 lines, got %d", got)
	}
	for _, ln := range strings.Split(out, "\n") {
		if lipgloss.Width(ln) != 4 {
			t.Fatalf("expected every line 4 wide, got %q", ln)
		}
	}
}

func TestFitLine_ANSIAware(t *testing.T) {
	styled := lipgloss.NewStyle().Bold(true).Render("bold")
	if got := lipgloss.Width(fitLine(styled, 8)); got != 8 {
		t.Fatalf("expected width 8, got %d", got)
	}
	if got := fitLine("abc", 0); got != "" {
		t.Fatalf("expected empty line at width 0, got %q", got)
	}
}
