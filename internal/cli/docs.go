package cli

import (
	"fmt"
	"strings"

	"healthline/internal/docs"
	"healthline/internal/format"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

type topicList []docs.Topic

func (l topicList) TableHeader() []string { return []string{"TOPIC", "TITLE"} }

func (l topicList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, t := range l {
		rows = append(rows, []string{t.Name, t.Title})
	}
	return rows
}

type docPage struct {
	Topic    string `json:"topic"`
	Markdown string `json:"markdown"`
}

func newDocsCmd(app *App) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show documentation on sources, keys and configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return writeOut(cmd, app, topicList(docs.Topics()), nil)
			}

			topic := args[0]
			body, ok := docs.Get(topic)
			if !ok {
				return writeErr(cmd, fmt.Errorf("unknown docs topic: %q (run `healthline docs` to list topics)", topic))
			}

			// Tables have no page layout; show the page itself instead.
			if raw || strings.EqualFold(strings.TrimSpace(app.Format), "table") {
				out := body
				if !raw && format.Colorful(cmd.OutOrStdout()) {
					r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
					if err == nil {
						if rendered, err := r.Render(body); err == nil {
							out = rendered
						}
					}
				}
				_, err := fmt.Fprint(cmd.OutOrStdout(), out)
				return err
			}

			return writeOut(cmd, app, docPage{Topic: strings.ToLower(topic), Markdown: body}, nil)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print raw markdown (no envelope)")

	return cmd
}
