package tui

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"

	"healthline/internal/model"
)

// Theme/palette helpers.
//
// The TUI must remain readable on both light and dark terminal backgrounds.
// Chrome uses lipgloss.AdaptiveColor; category colors come from the fixed
// header/background palette and are darkened for dark terminals.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted     = ac("240", "243")
	colorSurfaceFg = ac("235", "252")
	colorControlBg = ac("252", "235")
	colorAccent    = ac("27", "62")
	colorAccentFg  = ac("255", "235")
	colorBorder    = ac("250", "243")
	colorError     = ac("160", "203")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

// categoryColors is one header/background pair of the category palette.
type categoryColors struct {
	Header     string
	Background string
}

// basePalette is the original five-category palette.
var basePalette = []categoryColors{
	{Header: "#8FC5D8", Background: "#F5FFFF"},
	{Header: "#9DA5CC", Background: "#EAF2FF"},
	{Header: "#DC8072", Background: "#FFE6D8"},
	{Header: "#AC599B", Background: "#FFF2FF"},
	{Header: "#425AA3", Background: "#DBF3FF"},
}

// darkSurface is what category backgrounds are blended towards on dark terminals.
const darkSurface = "#1c1c1c"

func hexColor(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}
	}
	return c
}

// paletteColor returns the colors of the i-th category. Past the base palette,
// neighbouring entries are blended in Lab space so every extra round still
// gets distinct colors.
func paletteColor(i int) categoryColors {
	if i < 0 {
		i = 0
	}
	n := len(basePalette)
	if i < n {
		return basePalette[i]
	}
	a, b := basePalette[i%n], basePalette[(i+1)%n]
	round := float64(i / n)
	t := round / (round + 1)
	return categoryColors{
		Header:     hexColor(a.Header).BlendLab(hexColor(b.Header), t).Clamped().Hex(),
		Background: hexColor(a.Background).BlendLab(hexColor(b.Background), t).Clamped().Hex(),
	}
}

// adaptive turns the pair into terminal colors for the current background.
func (c categoryColors) adaptive() (header, background lipgloss.AdaptiveColor) {
	dark := hexColor(c.Background).BlendLab(hexColor(darkSurface), 0.85).Clamped().Hex()
	return ac(c.Header, c.Header), ac(c.Background, dark)
}

// categoryPalette assigns palette colors to categories in band order.
type categoryPalette map[model.CategoryID]categoryColors

func newCategoryPalette(categories []model.CategoryID) categoryPalette {
	p := make(categoryPalette, len(categories))
	for i, c := range categories {
		p[c] = paletteColor(i)
	}
	return p
}

func (p categoryPalette) colors(c model.CategoryID) categoryColors {
	if cc, ok := p[c]; ok {
		return cc
	}
	return paletteColor(0)
}

// applyColorProfilePreference sets Lip Gloss's color profile for the interactive TUI.
//
// termenv.EnvColorProfile respects CLICOLOR/CLICOLOR_FORCE, which can disable
// colors in a TUI. We only honor NO_COLOR and otherwise follow the terminal.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}

	profile := termenv.ColorProfile()

	// Trust TERM/COLORTERM when they claim more than the detector reports.
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	if strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit") {
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	} else if strings.Contains(term, "256color") {
		if profile == termenv.Ascii || profile == termenv.ANSI {
			profile = termenv.ANSI256
		}
	}

	lipgloss.SetColorProfile(profile)
}

// applyThemePreference configures Lip Gloss's background detection.
//
// Priority:
// 1) HEALTHLINE_TUI_THEME=light|dark|auto
// 2) the configured tui.theme
// 3) COLORFGBG heuristic ("15;0" = fg;bg)
// 4) macOS appearance
func applyThemePreference(configured string) {
	for _, v := range []string{os.Getenv("HEALTHLINE_TUI_THEME"), configured} {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "light":
			lipgloss.SetHasDarkBackground(false)
			return
		case "dark":
			lipgloss.SetHasDarkBackground(true)
			return
		}
	}

	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			lipgloss.SetHasDarkBackground(bg < 7)
			return
		}
	}

	if runtime.GOOS == "darwin" {
		if dark, ok := macOSHasDarkAppearance(); ok {
			lipgloss.SetHasDarkBackground(dark)
			return
		}
	}
}

func macOSHasDarkAppearance() (dark bool, ok bool) {
	// `defaults read -g AppleInterfaceStyle` prints "Dark" in dark mode and exits 1
	// in light mode (key missing).
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	out, err := exec.CommandContext(ctx, "defaults", "read", "-g", "AppleInterfaceStyle").CombinedOutput()
	if ctx.Err() != nil {
		return false, false
	}
	if err == nil {
		return strings.Contains(strings.ToLower(string(out)), "dark"), true
	}
	if ee, ok := err.(*exec.ExitError); ok && ee.ExitCode() == 1 {
		return false, true
	}
	return false, false
}
