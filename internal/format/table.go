package format

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/mattn/go-isatty"
)

// Tabular is implemented by payloads that have a table rendering.
type Tabular interface {
	TableHeader() []string
	TableRows() [][]string
}

// MaxColWidth caps table cells; longer cells are wrapped when pretty and
// truncated otherwise.
const MaxColWidth = 60

// WriteTable renders v as an aligned table with a bold header. Color is only
// used when w is a terminal and NO_COLOR is unset.
func WriteTable(w io.Writer, v any, pretty bool) error {
	t, ok := v.(Tabular)
	if !ok {
		return fmt.Errorf("format: %T has no table rendering", v)
	}

	bold := color.New(color.Bold)
	if !Colorful(w) {
		bold.DisableColor()
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = MaxColWidth
	tbl.Wrap = pretty

	header := t.TableHeader()
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = bold.Sprint(h)
	}
	tbl.AddRow(cells...)
	for _, row := range t.TableRows() {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = c
		}
		tbl.AddRow(cells...)
	}

	_, err := fmt.Fprintln(w, tbl)
	return err
}

// Colorful reports whether w is a terminal that should get ANSI color.
func Colorful(w io.Writer) bool {
	if _, off := os.LookupEnv("NO_COLOR"); off {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
