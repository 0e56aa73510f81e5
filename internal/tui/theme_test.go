package tui

import (
	"testing"

	"healthline/internal/model"
)

func TestPaletteColor_BaseEntries(t *testing.T) {
	for i, want := range basePalette {
		if got := paletteColor(i); got != want {
			t.Fatalf("expected palette %d to be %+v, got %+v", i, want, got)
		}
	}
	if got := paletteColor(-3); got != basePalette[0] {
		t.Fatalf("expected negative index to use the first entry, got %+v", got)
	}
}

func TestPaletteColor_ExtendsWithDistinctBlends(t *testing.T) {
	seen := map[string]int{}
	for i := 0; i < 3*len(basePalette); i++ {
		c := paletteColor(i)
		if j, dup := seen[c.Header]; dup {
			t.Fatalf("expected distinct headers, %d and %d are both %s", j, i, c.Header)
		}
		seen[c.Header] = i
		if paletteColor(i) != c {
			t.Fatalf("expected palette %d to be stable", i)
		}
	}
}

func TestCategoryPalette_FollowsBandOrder(t *testing.T) {
	p := newCategoryPalette([]model.CategoryID{"Medicine", "Research"})
	if p.colors("Research") != basePalette[1] {
		t.Fatalf("expected second category to take the second color")
	}
	if p.colors("Unknown") != basePalette[0] {
		t.Fatalf("expected unknown category to fall back to the first color")
	}
}

func TestCategoryColors_DarkBackgroundIsBlended(t *testing.T) {
	header, bg := basePalette[0].adaptive()
	if header.Light != basePalette[0].Header || header.Dark != basePalette[0].Header {
		t.Fatalf("expected header color on both backgrounds, got %+v", header)
	}
	if bg.Light != basePalette[0].Background {
		t.Fatalf("expected light background %s, got %s", basePalette[0].Background, bg.Light)
	}
	if bg.Dark == bg.Light || bg.Dark == darkSurface {
		t.Fatalf("expected dark background blended towards %s, got %s", darkSurface, bg.Dark)
	}
}
