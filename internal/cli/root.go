package cli

import (
	"fmt"
	"os"
	"strings"

	"healthline/internal/focus"
	"healthline/internal/format"
	"healthline/internal/model"
	"healthline/internal/scale"
	"healthline/internal/source"
	"healthline/internal/store"
	"healthline/internal/tui"

	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	Source     string
	ConfigPath string
	PrettyJSON bool
	Format     string

	cfg *store.Config
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "healthline",
		Short:        "Health history timeline (TUI + CLI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Browse the timeline
  healthline --source events.yaml

  # Same, shorter
  healthline events.yaml

  # Import a sheet export into the local index, then browse it
  healthline events import timeline.csv
  healthline

  # Where does the timeline land at a given scroll offset?
  healthline resolve 420 --format table
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				if err := runTUI(cmd, app); err != nil {
					return writeErr(cmd, err)
				}
				return nil
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("HEALTHLINE_DIR", ""), "Data dir holding the events index and sheet cache (default: nearest .healthline, else ~/.healthline)")
	cmd.PersistentFlags().StringVar(&app.Source, "source", envOr("HEALTHLINE_SOURCE", ""), "Event source: a .json/.yaml/.csv file, sqlite:[dir] or sheet:<url> (default from config)")
	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("HEALTHLINE_CONFIG", ""), "Config file (default: ~/.healthline/config.yaml)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("HEALTHLINE_FORMAT", "json"), "Output format ("+strings.Join(format.Formats, "|")+")")

	cmd.AddCommand(newEventsCmd(app))
	cmd.AddCommand(newCategoriesCmd(app))
	cmd.AddCommand(newDatasetsCmd(app))
	cmd.AddCommand(newLayoutCmd(app))
	cmd.AddCommand(newResolveCmd(app))
	cmd.AddCommand(newZoomCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

func runTUI(cmd *cobra.Command, app *App) error {
	cfg, err := app.config()
	if err != nil {
		return err
	}
	p, err := app.provider()
	if err != nil {
		return err
	}
	sync, err := syncOptions(cfg)
	if err != nil {
		return err
	}

	if err := categoryOrder(&sync, p); err != nil {
		return err
	}

	opts := tui.Options{Provider: p, Sync: sync, Theme: cfg.TUI.Theme}
	if cfg.TUI.Watch {
		if path, ok := source.WatchPath(p); ok {
			opts.WatchPath = path
		}
	}
	if strings.TrimSpace(os.Getenv("HEALTHLINE_DEBUG")) != "" {
		st := store.Store{Dir: cfg.Dir}
		if err := st.Ensure(); err != nil {
			return err
		}
		opts.DebugLog = st.DebugLogPath()
	}
	return tui.Run(cmd.Context(), opts)
}

// config loads the layered configuration once; flags win over it.
func (app *App) config() (*store.Config, error) {
	if app.cfg != nil {
		return app.cfg, nil
	}
	cfg, err := store.LoadConfig(app.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if app.Dir != "" {
		cfg.Dir = app.Dir
	}
	if cfg.Dir == "" {
		d, err := store.DefaultDir()
		if err != nil {
			return nil, err
		}
		cfg.Dir = d
	}
	if app.Source != "" {
		cfg.Source = app.Source
	}
	app.cfg = cfg
	return cfg, nil
}

func (app *App) store() (store.Store, error) {
	cfg, err := app.config()
	if err != nil {
		return store.Store{}, err
	}
	return store.Store{Dir: cfg.Dir}, nil
}

// open resolves a source spec against the data dir and sheet settings. A bare
// "sheet:" uses sheet.url from the config.
func (app *App) open(spec string) (source.Provider, error) {
	cfg, err := app.config()
	if err != nil {
		return nil, err
	}
	opts := source.Options{Dir: cfg.Dir, CacheDir: cfg.Sheet.CacheDir}
	if len(cfg.Sheet.Columns) > 0 {
		if opts.Layout, err = source.DefaultSheetLayout().WithColumns(cfg.Sheet.Columns); err != nil {
			return nil, err
		}
	}
	spec = strings.TrimSpace(spec)
	if spec == "sheet:" && cfg.Sheet.URL != "" {
		spec += cfg.Sheet.URL
	}
	return source.Open(spec, opts)
}

func (app *App) provider() (source.Provider, error) {
	cfg, err := app.config()
	if err != nil {
		return nil, err
	}
	return app.open(cfg.Source)
}

func (app *App) loadEvents(cmd *cobra.Command) ([]model.Event, error) {
	p, err := app.provider()
	if err != nil {
		return nil, err
	}
	return load(cmd, p)
}

func load(cmd *cobra.Command, p source.Provider) ([]model.Event, error) {
	events, err := p.Load(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", p.Name(), err)
	}
	return events, nil
}

// categoryOrder falls back to the band order an event file carries when the
// config sets none.
func categoryOrder(opts *focus.Options, p source.Provider) error {
	if len(opts.Categories) > 0 {
		return nil
	}
	f, ok := p.(interface {
		Categories() ([]model.CategoryID, error)
	})
	if !ok {
		return nil
	}
	cats, err := f.Categories()
	if err != nil {
		return err
	}
	opts.Categories = cats
	return nil
}

// syncOptions turns the configuration into synchronizer options.
func syncOptions(cfg *store.Config) (focus.Options, error) {
	minDate, maxDate, err := dateRange(cfg.MinDate, cfg.MaxDate)
	if err != nil {
		return focus.Options{}, err
	}
	var cats []model.CategoryID
	for _, c := range cfg.Categories {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, model.CategoryID(c))
		}
	}
	return focus.Options{
		Params: scale.Params{
			MinDate:       minDate,
			MaxDate:       maxDate,
			PixelsPerYear: cfg.PixelsPerYear,
			PaddingYears:  cfg.PaddingYears,
			BandPadding:   cfg.BandPadding,
			Inverted:      cfg.Inverted,
		},
		Categories:          cats,
		HeaderOffset:        cfg.HeaderOffset,
		MinZoom:             cfg.MinZoom,
		MaxZoom:             cfg.MaxZoom,
		ZoomStep:            cfg.ZoomStep,
		ResolveDebounce:     cfg.ResolveDebounce,
		OverflowThrottle:    cfg.OverflowThrottle,
		IndexChangeDuration: cfg.IndexChangeDuration,
		SettleDuration:      cfg.SettleDuration,
	}, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// writeOut wraps data in the {"data": ..., "meta": ...} envelope. Tables show
// the data only.
func writeOut(cmd *cobra.Command, app *App, data any, meta map[string]any) error {
	if strings.EqualFold(strings.TrimSpace(app.Format), "table") {
		return format.Write(cmd.OutOrStdout(), data, app.Format, app.PrettyJSON)
	}
	env := map[string]any{"data": data}
	if len(meta) > 0 {
		env["meta"] = meta
	}
	return format.Write(cmd.OutOrStdout(), env, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
