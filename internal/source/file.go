package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"healthline/internal/model"
)

type FileFormat string

const (
	FormatJSON FileFormat = "json"
	FormatYAML FileFormat = "yaml"
)

// File loads a JSON or YAML event file. Both accept either a bare list of
// events or a document with an "events" list and an optional "categories"
// ordering.
type File struct {
	Path   string
	Format FileFormat
}

// fileEvent keeps the date as text so hand-written files can use a bare year.
type fileEvent struct {
	ID            string   `json:"id" yaml:"id"`
	Date          string   `json:"date" yaml:"date"`
	Category      string   `json:"category" yaml:"category"`
	Title         string   `json:"title" yaml:"title"`
	Body          string   `json:"body" yaml:"body"`
	IsMilestone   bool     `json:"isMilestone" yaml:"milestone"`
	MilestoneText string   `json:"milestoneText" yaml:"milestoneText"`
	DatasetTags   []string `json:"datasetTags" yaml:"datasets"`
}

type fileDoc struct {
	Categories []string    `json:"categories" yaml:"categories"`
	Events     []fileEvent `json:"events" yaml:"events"`
}

func (f File) Name() string { return f.Path }

func (f File) Load(ctx context.Context) ([]model.Event, error) {
	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	out := make([]model.Event, 0, len(doc.Events))
	for i, fe := range doc.Events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ev, err := fe.event()
		if err != nil {
			return nil, &RowError{Source: f.Path, Row: i + 1, Err: err}
		}
		out = append(out, ev)
	}
	return out, nil
}

// Categories returns the explicit ordering declared in the file, if any.
func (f File) Categories() ([]model.CategoryID, error) {
	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	out := make([]model.CategoryID, 0, len(doc.Categories))
	for _, c := range doc.Categories {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, model.CategoryID(c))
		}
	}
	return out, nil
}

func (f File) read() (fileDoc, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return fileDoc{}, err
	}
	var doc fileDoc
	switch f.Format {
	case FormatJSON:
		err = decodeJSON(b, &doc)
	case FormatYAML:
		err = decodeYAML(b, &doc)
	default:
		return fileDoc{}, UnsupportedFormatError{Spec: f.Path}
	}
	if err != nil {
		return fileDoc{}, fmt.Errorf("%s: %w", f.Path, err)
	}
	return doc, nil
}

func decodeJSON(b []byte, doc *fileDoc) error {
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(b, &doc.Events)
	}
	return json.Unmarshal(b, doc)
}

func decodeYAML(b []byte, doc *fileDoc) error {
	var root yaml.Node
	if err := yaml.Unmarshal(b, &root); err != nil {
		return err
	}
	if len(root.Content) > 0 && root.Content[0].Kind == yaml.SequenceNode {
		return root.Content[0].Decode(&doc.Events)
	}
	return root.Decode(doc)
}

func (fe fileEvent) event() (model.Event, error) {
	if strings.TrimSpace(fe.Title) == "" {
		return model.Event{}, errors.New("missing title")
	}
	date, err := ParseDate(fe.Date)
	if err != nil {
		return model.Event{}, err
	}
	ev := model.Event{
		ID:            strings.TrimSpace(fe.ID),
		Date:          date,
		Category:      model.CategoryID(strings.TrimSpace(fe.Category)),
		Title:         strings.TrimSpace(fe.Title),
		Body:          fe.Body,
		IsMilestone:   fe.IsMilestone,
		MilestoneText: strings.TrimSpace(fe.MilestoneText),
		DatasetTags:   fe.DatasetTags,
	}
	if ev.Category == "" {
		ev.Category = DefaultCategory
	}
	if ev.ID == "" {
		ev.ID = eventID(ev)
	}
	return ev, nil
}

// WriteFile writes events in the format File reads back.
func WriteFile(path string, format FileFormat, events []model.Event) error {
	doc := fileDoc{Events: make([]fileEvent, len(events))}
	for i, ev := range events {
		doc.Events[i] = fileEvent{
			ID:            ev.ID,
			Date:          ev.Date.UTC().Format("2006-01-02"),
			Category:      string(ev.Category),
			Title:         ev.Title,
			Body:          ev.Body,
			IsMilestone:   ev.IsMilestone,
			MilestoneText: ev.MilestoneText,
			DatasetTags:   ev.DatasetTags,
		}
	}
	var (
		b   []byte
		err error
	)
	switch format {
	case FormatJSON:
		b, err = json.MarshalIndent(doc, "", "  ")
	case FormatYAML:
		b, err = yaml.Marshal(doc)
	default:
		return UnsupportedFormatError{Spec: path}
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
