package model

import (
	"sort"
	"strings"
	"time"
)

// CategoryID names one horizontal band of the timeline.
type CategoryID string

// AllDatasets is the dataset filter value that keeps every event.
const AllDatasets = "all"

type Event struct {
	ID       string     `json:"id" yaml:"id"`
	Date     time.Time  `json:"date" yaml:"date"`
	Category CategoryID `json:"category" yaml:"category"`
	Title    string     `json:"title" yaml:"title"`
	Body     string     `json:"body,omitempty" yaml:"body,omitempty"`

	IsMilestone   bool   `json:"isMilestone,omitempty" yaml:"milestone,omitempty"`
	MilestoneText string `json:"milestoneText,omitempty" yaml:"milestoneText,omitempty"`

	// DatasetTags is treated as a set; see HasTag.
	DatasetTags []string `json:"datasetTags,omitempty" yaml:"datasets,omitempty"`
}

// HasTag reports whether tag is one of the event's dataset tags.
// AllDatasets and the empty tag match every event.
func (e Event) HasTag(tag string) bool {
	tag = normalizeTag(tag)
	if tag == "" || tag == AllDatasets {
		return true
	}
	for _, t := range e.DatasetTags {
		if normalizeTag(t) == tag {
			return true
		}
	}
	return false
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// SortEvents returns a copy of events ordered by date. Events sharing a date keep
// their original relative order.
func SortEvents(events []Event) []Event {
	out := make([]Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// DeriveCategories returns the distinct categories of events in first-seen order.
func DeriveCategories(events []Event) []CategoryID {
	seen := make(map[CategoryID]struct{}, len(events))
	out := make([]CategoryID, 0, 8)
	for _, ev := range events {
		if _, ok := seen[ev.Category]; ok {
			continue
		}
		seen[ev.Category] = struct{}{}
		out = append(out, ev.Category)
	}
	return out
}

// DatasetTags returns the distinct dataset tags across events, sorted.
func DatasetTags(events []Event) []string {
	set := map[string]struct{}{}
	for _, ev := range events {
		for _, t := range ev.DatasetTags {
			t = normalizeTag(t)
			if t == "" {
				continue
			}
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
