package model

import (
	"testing"
	"time"
)

func year(y int) time.Time {
	return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func TestSortEvents_StableOnEqualDates(t *testing.T) {
	in := []Event{
		{ID: "c", Date: year(1967)},
		{ID: "a", Date: year(1901)},
		{ID: "d", Date: year(1967)},
		{ID: "b", Date: year(1910)},
	}
	got := SortEvents(in)
	want := []string{"a", "b", "c", "d"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("expected %v at %d, got %q (all: %+v)", id, i, got[i].ID, got)
		}
	}
	if in[0].ID != "c" {
		t.Fatalf("expected input to be left untouched, got %q first", in[0].ID)
	}
}

func TestNewEventSet_DerivesCategoriesFirstSeen(t *testing.T) {
	s := NewEventSet([]Event{
		{ID: "1", Date: year(1950), Category: "Surgery"},
		{ID: "2", Date: year(1900), Category: "Medicine"},
		{ID: "3", Date: year(1960), Category: "Medicine"},
	}, nil)
	cats := s.Categories()
	if len(cats) != 2 || cats[0] != "Medicine" || cats[1] != "Surgery" {
		t.Fatalf("unexpected categories: %v", cats)
	}
}

func TestNewEventSet_ExplicitCategoriesKeepOrderAndAppendOrphans(t *testing.T) {
	s := NewEventSet([]Event{
		{ID: "1", Date: year(1950), Category: "Surgery"},
		{ID: "2", Date: year(1900), Category: "Public Health"},
	}, []CategoryID{"Surgery", "Medicine"})
	cats := s.Categories()
	if len(cats) != 3 || cats[0] != "Surgery" || cats[1] != "Medicine" || cats[2] != "Public Health" {
		t.Fatalf("unexpected categories: %v", cats)
	}
	if len(s.Orphans) != 1 || s.Orphans[0] != "Public Health" {
		t.Fatalf("expected orphan Public Health, got %v", s.Orphans)
	}
}

func TestEventSet_WithDatasetFiltersButKeepsBands(t *testing.T) {
	s := NewEventSet([]Event{
		{ID: "1", Date: year(1900), Category: "A", DatasetTags: []string{"Europe"}},
		{ID: "2", Date: year(1910), Category: "B", DatasetTags: []string{"asia"}},
		{ID: "3", Date: year(1920), Category: "A", DatasetTags: []string{"europe", "asia"}},
	}, nil)

	eu := s.WithDataset("EUROPE")
	if eu.Len() != 2 || eu.Events()[0].ID != "1" || eu.Events()[1].ID != "3" {
		t.Fatalf("unexpected europe events: %+v", eu.Events())
	}
	if len(eu.Categories()) != 2 {
		t.Fatalf("expected categories derived from full list, got %v", eu.Categories())
	}
	if s.Len() != 3 {
		t.Fatalf("expected receiver untouched, got %d events", s.Len())
	}
	if all := eu.WithDataset(AllDatasets); all.Len() != 3 {
		t.Fatalf("expected all events back, got %d", all.Len())
	}
}

func TestDatasetTags_SortedDistinct(t *testing.T) {
	got := DatasetTags([]Event{
		{DatasetTags: []string{"b", " A "}},
		{DatasetTags: []string{"a", ""}},
	})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected tags: %v", got)
	}
}

func TestEventSet_EmptyIsValid(t *testing.T) {
	s := NewEventSet(nil, nil)
	if s.Len() != 0 {
		t.Fatalf("expected empty set")
	}
	if _, ok := s.Last(); ok {
		t.Fatalf("expected no last event")
	}
	if _, ok := s.At(0); ok {
		t.Fatalf("expected no event at 0")
	}
}

func TestEventSet_IndexOfFollowsFilter(t *testing.T) {
	s := NewEventSet([]Event{
		{ID: "a", Date: year(1901), DatasetTags: []string{"nobel"}},
		{ID: "b", Date: year(1902)},
		{ID: "c", Date: year(1928), DatasetTags: []string{"nobel"}},
	}, nil)
	if i := s.IndexOf("c"); i != 2 {
		t.Fatalf("expected c at 2, got %d", i)
	}
	nobel := s.WithDataset("nobel")
	if i := nobel.IndexOf("c"); i != 1 {
		t.Fatalf("expected c at 1 in the nobel list, got %d", i)
	}
	if i := nobel.IndexOf("b"); i != -1 {
		t.Fatalf("expected filtered-out event to be missing, got %d", i)
	}
}
