package cli

import (
	"strconv"

	"healthline/internal/model"

	"github.com/spf13/cobra"
)

type categoryRow struct {
	Category model.CategoryID `json:"category"`
	Start    float64          `json:"start"`
	Width    float64          `json:"width"`
	Center   float64          `json:"center"`
	Events   int              `json:"events"`
}

type categoryList []categoryRow

func (l categoryList) TableHeader() []string {
	return []string{"#", "CATEGORY", "START", "WIDTH", "CENTER", "EVENTS"}
}

func (l categoryList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for i, c := range l {
		rows = append(rows, []string{
			strconv.Itoa(i),
			string(c.Category),
			formatFloat(c.Start),
			formatFloat(c.Width),
			formatFloat(c.Center),
			strconv.Itoa(c.Events),
		})
	}
	return rows
}

func newCategoriesCmd(app *App) *cobra.Command {
	var flags layoutFlags

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Show the category bands in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.synchronizer(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Teardown()

			counts := map[model.CategoryID]int{}
			for _, ev := range s.Events() {
				counts[ev.Category]++
			}
			l := s.Layout()
			out := make(categoryList, 0, len(l.Categories()))
			for _, c := range l.Categories() {
				band, _ := l.Band(c)
				out = append(out, categoryRow{
					Category: c,
					Start:    band.Start,
					Width:    band.Width,
					Center:   band.Center(),
					Events:   counts[c],
				})
			}
			return writeOut(cmd, app, out, map[string]any{
				"width":   flags.width,
				"orphans": s.EventSet().Orphans,
			})
		},
	}
	flags.register(cmd)
	return cmd
}
