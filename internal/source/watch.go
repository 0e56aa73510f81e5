package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDelay coalesces editor save storms (write, chmod, rename) into
// one reload.
const DefaultWatchDelay = 150 * time.Millisecond

// Change is sent on the Watch channel after the watched file settles.
type Change struct {
	Path string
	Err  error
}

// Watch streams a Change whenever path is written, created or replaced. The
// parent directory is watched so editors that save by rename keep working.
// The channel is closed once ctx is done.
func Watch(ctx context.Context, path string, delay time.Duration) (<-chan Change, error) {
	if delay <= 0 {
		delay = DefaultWatchDelay
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("source: create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("source: watch %s: %w", filepath.Dir(abs), err)
	}

	changes := make(chan Change, 4)
	var (
		mu     sync.Mutex
		closed bool
	)
	send := func(c Change) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case changes <- c:
		default:
			// A reload is already queued; it will read the latest contents.
		}
	}

	go func() {
		defer func() {
			mu.Lock()
			closed = true
			close(changes)
			mu.Unlock()
		}()
		defer func() {
			if err := watcher.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "source: watcher close: %v\n", err)
			}
		}()

		coalesce := newCoalescer(delay)
		defer coalesce.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				send(Change{Path: abs, Err: err})
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != abs {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				coalesce.Enqueue(func() { send(Change{Path: abs}) })
			}
		}
	}()

	return changes, nil
}

// coalescer runs the last enqueued func once per burst.
type coalescer struct {
	mu    sync.Mutex
	timer *time.Timer
	fn    func()
	delay time.Duration
}

func newCoalescer(delay time.Duration) *coalescer {
	return &coalescer{delay: delay}
}

func (c *coalescer) Enqueue(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fn = fn
	if c.timer == nil {
		c.timer = time.AfterFunc(c.delay, c.flush)
	}
}

func (c *coalescer) flush() {
	c.mu.Lock()
	fn := c.fn
	c.fn = nil
	c.timer = nil
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *coalescer) Stop() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
}

// WatchPath returns the file behind p worth watching for reloads. Sheets are
// remote and have none.
func WatchPath(p Provider) (string, bool) {
	switch p := p.(type) {
	case File:
		return p.Path, true
	case CSVFile:
		return p.Path, true
	case sqliteProvider:
		return p.st.SQLitePath(), true
	default:
		return "", false
	}
}
