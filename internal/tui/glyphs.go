package tui

import (
	"os"
	"strings"
	"sync"
)

// Terminal apps can't change the user's font. Instead we choose between
// Unicode and ASCII glyphs for markers, rules and the carousel dots.

type glyphSet int

const (
	glyphSetUnicode glyphSet = iota
	glyphSetASCII
)

var (
	glyphsMu      sync.RWMutex
	currentGlyphs = glyphSetUnicode
)

func applyGlyphPreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("HEALTHLINE_TUI_GLYPHS"))) {
	case "", "unicode", "utf8":
		setGlyphs(glyphSetUnicode)
	case "ascii":
		setGlyphs(glyphSetASCII)
	}
}

func setGlyphs(gs glyphSet) {
	glyphsMu.Lock()
	currentGlyphs = gs
	glyphsMu.Unlock()
}

func glyphs() glyphSet {
	glyphsMu.RLock()
	gs := currentGlyphs
	glyphsMu.RUnlock()
	return gs
}

func pick(unicode, ascii string) string {
	if glyphs() == glyphSetASCII {
		return ascii
	}
	return unicode
}

func glyphMarker() string    { return pick("●", "o") }
func glyphMilestone() string { return pick("◆", "#") }
func glyphDotActive() string { return pick("●", "*") }
func glyphDot() string       { return pick("○", ".") }
func glyphAxis() string      { return pick("│", "|") }
func glyphTick() string      { return pick("┤", "+") }
func glyphReading() string   { return pick("▸", ">") }
func glyphHRule() string     { return pick("─", "-") }
func glyphPrev() string      { return pick("‹", "<") }
func glyphNext() string      { return pick("›", ">") }
