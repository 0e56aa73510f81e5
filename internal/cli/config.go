package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"healthline/internal/store"

	"github.com/spf13/cobra"
)

// configView renders the effective configuration as key/value rows.
type configView struct {
	*store.Config
}

func (c configView) TableHeader() []string { return []string{"KEY", "VALUE"} }

func (c configView) TableRows() [][]string {
	kv := map[string]string{
		"source":                c.Source,
		"dir":                   c.Dir,
		"pixels_per_year":       formatFloat(c.PixelsPerYear),
		"padding_years":         fmt.Sprint(c.PaddingYears),
		"band_padding":          fmt.Sprint(c.BandPadding),
		"header_offset":         formatFloat(c.HeaderOffset),
		"inverted":              fmt.Sprint(c.Inverted),
		"min_date":              c.MinDate,
		"max_date":              c.MaxDate,
		"categories":            strings.Join(c.Categories, ","),
		"min_zoom":              fmt.Sprint(c.MinZoom),
		"max_zoom":              fmt.Sprint(c.MaxZoom),
		"zoom_step":             fmt.Sprint(c.ZoomStep),
		"resolve_debounce":      c.ResolveDebounce.String(),
		"overflow_throttle":     c.OverflowThrottle.String(),
		"index_change_duration": c.IndexChangeDuration.String(),
		"settle_duration":       c.SettleDuration.String(),
		"sheet.url":             c.Sheet.URL,
		"sheet.cache_dir":       c.Sheet.CacheDir,
		"tui.theme":             c.TUI.Theme,
		"tui.watch":             fmt.Sprint(c.TUI.Watch),
	}
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, kv[k]})
	}
	return rows
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration (defaults, file, .env, environment, flags)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config()
			if err != nil {
				return writeErr(cmd, err)
			}
			path, err := configPath(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, configView{cfg}, map[string]any{"path": path})
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if _, err := os.Stat(path); err == nil && !force {
				return writeErr(cmd, fmt.Errorf("config already exists: %s (use --force to overwrite)", path))
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return writeErr(cmd, err)
			}
			cfg := store.DefaultConfig()
			if app.Source != "" {
				cfg.Source = app.Source
			}
			if err := store.SaveConfig(path, cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, configView{cfg}, map[string]any{"path": path})
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config (the old one is kept as .bak)")
	cmd.AddCommand(initCmd)

	return cmd
}

func configPath(app *App) (string, error) {
	if app.ConfigPath != "" {
		return app.ConfigPath, nil
	}
	return store.ConfigPath()
}
