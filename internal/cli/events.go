package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"healthline/internal/model"
	"healthline/internal/source"
	"healthline/internal/store"

	"github.com/spf13/cobra"
)

// eventList renders events as a table.
type eventList []model.Event

func (l eventList) TableHeader() []string {
	return []string{"#", "DATE", "CATEGORY", "TITLE", "DATASETS"}
}

func (l eventList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for i, ev := range l {
		title := ev.Title
		if ev.IsMilestone {
			title = "◆ " + title
		}
		rows = append(rows, []string{
			fmt.Sprint(i),
			dateLabel(ev.Date),
			string(ev.Category),
			title,
			strings.Join(ev.DatasetTags, ","),
		})
	}
	return rows
}

func dateLabel(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

// indexMeta renders store.IndexMeta as a table.
type indexMeta store.IndexMeta

func (m indexMeta) TableHeader() []string { return []string{"SOURCE", "IMPORTED", "EVENTS"} }

func (m indexMeta) TableRows() [][]string {
	imported := "-"
	if !m.ImportedAt.IsZero() {
		imported = m.ImportedAt.Format(time.RFC3339)
	}
	return [][]string{{m.Source, imported, fmt.Sprint(m.Count)}}
}

type exportResult struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

func (r exportResult) TableHeader() []string { return []string{"PATH", "EVENTS"} }
func (r exportResult) TableRows() [][]string { return [][]string{{r.Path, fmt.Sprint(r.Count)}} }

func newEventsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List, import and export timeline events",
	}
	cmd.AddCommand(newEventsListCmd(app))
	cmd.AddCommand(newEventsShowCmd(app))
	cmd.AddCommand(newEventsImportCmd(app))
	cmd.AddCommand(newEventsExportCmd(app))
	cmd.AddCommand(newEventsMetaCmd(app))
	return cmd
}

func newEventsListCmd(app *App) *cobra.Command {
	var dataset string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events in timeline order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := app.loadEvents(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			cfg, _ := app.config()
			set := model.NewEventSet(events, nil).WithDataset(dataset)
			return writeOut(cmd, app, eventList(set.Events()), map[string]any{
				"source":  cfg.Source,
				"dataset": set.Dataset(),
				"count":   set.Len(),
			})
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", model.AllDatasets, "Only events tagged with this dataset")
	return cmd
}

func newEventsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <event-id>",
		Short: "Show one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := app.loadEvents(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			for i, ev := range model.SortEvents(events) {
				if ev.ID == id {
					return writeOut(cmd, app, eventList{ev}, map[string]any{"index": i})
				}
			}
			return writeErr(cmd, errNotFound("event", id))
		},
	}
}

func newEventsImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|sheet:url>",
		Short: "Load events from a file or sheet into the local index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.open(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			events, err := load(cmd, p)
			if err != nil {
				return writeErr(cmd, err)
			}

			st, err := app.store()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := st.SaveEvents(cmd.Context(), p.Name(), events); err != nil {
				return writeErr(cmd, err)
			}
			meta, err := st.Meta(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, indexMeta(meta), map[string]any{"dir": st.Dir})
		},
	}
}

func newEventsExportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.json|file.yaml>",
		Short: "Write the current source's events to an event file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			var f source.FileFormat
			switch strings.ToLower(filepath.Ext(path)) {
			case ".json":
				f = source.FormatJSON
			case ".yaml", ".yml":
				f = source.FormatYAML
			default:
				return writeErr(cmd, source.UnsupportedFormatError{Spec: path})
			}
			events, err := app.loadEvents(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := source.WriteFile(path, f, events); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, exportResult{Path: path, Count: len(events)}, nil)
		},
	}
}

func newEventsMetaCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "meta",
		Short: "Show what the local index was last imported from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.store()
			if err != nil {
				return writeErr(cmd, err)
			}
			meta, err := st.Meta(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, indexMeta(meta), map[string]any{"dir": st.Dir})
		},
	}
}
