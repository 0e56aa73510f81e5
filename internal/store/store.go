package store

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	dirName        = ".healthline"
	sqliteFileName = "events.sqlite"
	debugLogName   = "debug.log"
)

// Store is a healthline data dir: the sqlite event index, the sheet cache and
// the TUI debug log live under Dir.
type Store struct {
	Dir string
}

// DiscoverDir walks up from start looking for a .healthline directory.
func DiscoverDir(start string) (string, bool) {
	dir := start
	for {
		candidate := filepath.Join(dir, dirName)
		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// DefaultDir is HEALTHLINE_DIR, else the nearest .healthline above the working
// directory, else the config dir.
func DefaultDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("HEALTHLINE_DIR")); v != "" {
		return expandPath(v)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if found, ok := DiscoverDir(cwd); ok {
		return found, nil
	}
	return ConfigDir()
}

func (s Store) Ensure() error {
	return os.MkdirAll(s.Dir, 0o755)
}

// SQLitePath is the events index file.
func (s Store) SQLitePath() string {
	return filepath.Join(s.Dir, sqliteFileName)
}

// DebugLogPath is where the TUI writes its log when HEALTHLINE_DEBUG is set.
func (s Store) DebugLogPath() string {
	return filepath.Join(s.Dir, debugLogName)
}

// SheetCacheDir is the default snapshot cache for sheet sources.
func (s Store) SheetCacheDir() string {
	return filepath.Join(s.Dir, "sheet-cache")
}
