package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const configFileName = "config.yaml"

type Config struct {
	// Source is the event source spec (see source.Open).
	Source string `mapstructure:"source" yaml:"source" json:"source"`
	// Dir is the data dir. Empty means DefaultDir.
	Dir string `mapstructure:"dir" yaml:"dir,omitempty" json:"dir,omitempty"`

	PixelsPerYear float64 `mapstructure:"pixels_per_year" yaml:"pixels_per_year" json:"pixelsPerYear"`
	PaddingYears  int     `mapstructure:"padding_years" yaml:"padding_years" json:"paddingYears"`
	BandPadding   float64 `mapstructure:"band_padding" yaml:"band_padding" json:"bandPadding"`
	HeaderOffset  float64 `mapstructure:"header_offset" yaml:"header_offset" json:"headerOffset"`
	Inverted      bool    `mapstructure:"inverted" yaml:"inverted" json:"inverted"`

	// MinDate/MaxDate fix the axis ("1880", "2020-06-01"); empty derives it from the data.
	MinDate string `mapstructure:"min_date" yaml:"min_date,omitempty" json:"minDate,omitempty"`
	MaxDate string `mapstructure:"max_date" yaml:"max_date,omitempty" json:"maxDate,omitempty"`

	// Categories fixes the band order; empty uses first-seen order.
	Categories []string `mapstructure:"categories" yaml:"categories,omitempty" json:"categories,omitempty"`

	MinZoom  float64 `mapstructure:"min_zoom" yaml:"min_zoom" json:"minZoom"`
	MaxZoom  float64 `mapstructure:"max_zoom" yaml:"max_zoom" json:"maxZoom"`
	ZoomStep float64 `mapstructure:"zoom_step" yaml:"zoom_step" json:"zoomStep"`

	ResolveDebounce     time.Duration `mapstructure:"resolve_debounce" yaml:"resolve_debounce" json:"resolveDebounce"`
	OverflowThrottle    time.Duration `mapstructure:"overflow_throttle" yaml:"overflow_throttle" json:"overflowThrottle"`
	IndexChangeDuration time.Duration `mapstructure:"index_change_duration" yaml:"index_change_duration" json:"indexChangeDuration"`
	SettleDuration      time.Duration `mapstructure:"settle_duration" yaml:"settle_duration" json:"settleDuration"`

	Sheet SheetConfig `mapstructure:"sheet" yaml:"sheet" json:"sheet"`
	TUI   TUIConfig   `mapstructure:"tui" yaml:"tui" json:"tui"`
}

type SheetConfig struct {
	URL      string `mapstructure:"url" yaml:"url,omitempty" json:"url,omitempty"`
	CacheDir string `mapstructure:"cache_dir" yaml:"cache_dir,omitempty" json:"cacheDir,omitempty"`
	// Columns overrides single entries of the default sheet layout
	// (e.g. category_col: 17).
	Columns map[string]int `mapstructure:"columns" yaml:"columns,omitempty" json:"columns,omitempty"`
}

type TUIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme string `mapstructure:"theme" yaml:"theme" json:"theme"`
	// Watch reloads file sources when they change on disk.
	Watch bool `mapstructure:"watch" yaml:"watch" json:"watch"`
}

// ConfigDir is HEALTHLINE_CONFIG_DIR, else ~/.healthline.
func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.healthline).
	if v := strings.TrimSpace(os.Getenv("HEALTHLINE_CONFIG_DIR")); v != "" {
		return expandPath(v)
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, dirName), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source", "sqlite:")
	// Keys without a real default are still registered so AutomaticEnv values
	// reach Unmarshal.
	v.SetDefault("dir", "")
	v.SetDefault("min_date", "")
	v.SetDefault("max_date", "")
	v.SetDefault("sheet.url", "")
	v.SetDefault("sheet.cache_dir", "")
	v.SetDefault("pixels_per_year", 10.0)
	v.SetDefault("padding_years", 10)
	v.SetDefault("band_padding", 0.5)
	v.SetDefault("header_offset", 2.0)
	v.SetDefault("inverted", false)
	v.SetDefault("min_zoom", 1.0)
	v.SetDefault("max_zoom", 3.0)
	v.SetDefault("zoom_step", 0.5)
	v.SetDefault("resolve_debounce", 100*time.Millisecond)
	v.SetDefault("overflow_throttle", 10*time.Millisecond)
	v.SetDefault("index_change_duration", 300*time.Millisecond)
	v.SetDefault("settle_duration", 750*time.Millisecond)
	v.SetDefault("tui.theme", "auto")
	v.SetDefault("tui.watch", true)
}

// LoadConfig layers defaults, the config file (path, or config.yaml in the
// config dir or the working directory), a .env file in the working directory
// and HEALTHLINE_* environment variables. A missing config file is not an
// error.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("HEALTHLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		p, err := expandPath(path)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(p)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := ConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	var err error
	if cfg.Dir, err = expandPath(cfg.Dir); err != nil {
		return nil, err
	}
	if cfg.Sheet.CacheDir, err = expandPath(cfg.Sheet.CacheDir); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig is the configuration LoadConfig yields with no file and no env.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// SaveConfig writes cfg to path (ConfigPath when empty), keeping a .bak of the
// previous file.
func SaveConfig(path string, cfg *Config) error {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return err
		}
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = atomicWriteFile(dir, "config.yaml.bak.*.tmp", path+".bak", prev, 0o644)
	}
	return atomicWriteFile(dir, "config.yaml.*.tmp", path, b, 0o600)
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

func expandPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", nil
	}
	return homedir.Expand(p)
}
