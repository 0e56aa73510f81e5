package cli

import (
	"strconv"

	"healthline/internal/model"

	"github.com/spf13/cobra"
)

type datasetRow struct {
	Tag    string `json:"tag"`
	Events int    `json:"events"`
}

type datasetList []datasetRow

func (l datasetList) TableHeader() []string { return []string{"DATASET", "EVENTS"} }

func (l datasetList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, d := range l {
		rows = append(rows, []string{d.Tag, strconv.Itoa(d.Events)})
	}
	return rows
}

// datasets lists "all" first, then every tag with the number of events it keeps.
func datasets(events []model.Event) datasetList {
	out := datasetList{{Tag: model.AllDatasets, Events: len(events)}}
	for _, tag := range model.DatasetTags(events) {
		n := 0
		for _, ev := range events {
			if ev.HasTag(tag) {
				n++
			}
		}
		out = append(out, datasetRow{Tag: tag, Events: n})
	}
	return out
}

func newDatasetsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List dataset tags usable as filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := app.loadEvents(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, datasets(events), nil)
		},
	}
}
