// Package tui is the interactive timeline viewer: a timeline pane with
// category bands and an axis, and a carousel of event cards, kept in step by a
// focus.Synchronizer.
package tui

import (
	"context"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"healthline/internal/focus"
	"healthline/internal/source"
)

type Options struct {
	Provider source.Provider
	Sync     focus.Options
	// Theme is the configured tui.theme (auto, light or dark).
	Theme string
	// WatchPath, when set, reloads the provider whenever the file changes.
	WatchPath string
	// DebugLog receives log output (focus changes, reload errors) when set.
	DebugLog string
}

func Run(ctx context.Context, opts Options) error {
	applyThemePreference(opts.Theme)
	applyColorProfilePreference()
	applyGlyphPreference()

	if opts.DebugLog != "" {
		f, err := tea.LogToFile(opts.DebugLog, "healthline ")
		if err != nil {
			return err
		}
		defer f.Close()
		if opts.Sync.Logger == nil {
			opts.Sync.Logger = log.Default()
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := opts.Provider.Load(ctx)
	if err != nil {
		return err
	}

	m := newAppModel(ctx, opts, events)
	if opts.WatchPath != "" {
		ch, err := source.Watch(ctx, opts.WatchPath, source.DefaultWatchDelay)
		if err != nil {
			m.logger.Printf("watch %s: %v", opts.WatchPath, err)
		} else {
			m.watch = ch
		}
	}

	final, err := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	).Run()
	if fm, ok := final.(appModel); ok {
		fm.sync.Teardown()
	}
	return err
}
