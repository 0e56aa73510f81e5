package model

// EventSet is the ordered event list for one render cycle together with the
// category ordering that determines band positions.
//
// An EventSet is a value: the With* methods return new sets and never modify the
// receiver, so a layout generation can hold on to one safely.
type EventSet struct {
	all      []Event
	events   []Event
	explicit []CategoryID
	cats     []CategoryID
	dataset  string

	// Orphans lists categories found on events but missing from an explicit ordering.
	// They are appended to the ordering so every event still has a band.
	Orphans []CategoryID
}

// NewEventSet sorts events by date and derives categories in first-seen order
// (of the sorted list) unless categories is non-empty.
func NewEventSet(events []Event, categories []CategoryID) EventSet {
	s := EventSet{
		all:      SortEvents(events),
		explicit: append([]CategoryID(nil), categories...),
		dataset:  AllDatasets,
	}
	s.rebuild()
	return s
}

func (s *EventSet) rebuild() {
	s.events = s.events[:0:0]
	for _, ev := range s.all {
		if ev.HasTag(s.dataset) {
			s.events = append(s.events, ev)
		}
	}
	s.Orphans = nil
	if len(s.explicit) == 0 {
		s.cats = DeriveCategories(s.all)
		return
	}
	s.cats = append([]CategoryID(nil), s.explicit...)
	known := make(map[CategoryID]struct{}, len(s.cats))
	for _, c := range s.cats {
		known[c] = struct{}{}
	}
	for _, c := range DeriveCategories(s.all) {
		if _, ok := known[c]; ok {
			continue
		}
		known[c] = struct{}{}
		s.cats = append(s.cats, c)
		s.Orphans = append(s.Orphans, c)
	}
}

// Events returns the date-sorted events that pass the dataset filter.
func (s EventSet) Events() []Event { return s.events }

// All returns every loaded event regardless of the dataset filter.
func (s EventSet) All() []Event { return s.all }

// Categories returns the band ordering. Categories are derived from the full list so
// switching datasets does not shuffle bands.
func (s EventSet) Categories() []CategoryID { return s.cats }

func (s EventSet) Dataset() string { return s.dataset }

func (s EventSet) Len() int { return len(s.events) }

// Last returns the latest event, if any.
func (s EventSet) Last() (Event, bool) {
	if len(s.events) == 0 {
		return Event{}, false
	}
	return s.events[len(s.events)-1], true
}

// At returns the event at index i of the filtered list.
func (s EventSet) At(i int) (Event, bool) {
	if i < 0 || i >= len(s.events) {
		return Event{}, false
	}
	return s.events[i], true
}

// IndexOf returns the index of event id in the filtered list, or -1.
func (s EventSet) IndexOf(id string) int {
	for i, ev := range s.events {
		if ev.ID == id {
			return i
		}
	}
	return -1
}

// WithDataset re-derives the filtered list from dataset tag membership.
func (s EventSet) WithDataset(tag string) EventSet {
	tag = normalizeTag(tag)
	if tag == "" {
		tag = AllDatasets
	}
	next := s
	next.dataset = tag
	next.rebuild()
	return next
}

// WithEvents replaces the event list, keeping the dataset filter and explicit categories.
func (s EventSet) WithEvents(events []Event) EventSet {
	next := s
	next.all = SortEvents(events)
	next.rebuild()
	return next
}

// WithCategories replaces the explicit category ordering. A nil slice returns to
// first-seen ordering.
func (s EventSet) WithCategories(categories []CategoryID) EventSet {
	next := s
	next.explicit = append([]CategoryID(nil), categories...)
	next.rebuild()
	return next
}
