package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Paths   []string `toml:"paths"`
	Checks  Checks   `toml:"checks"`
	Exclude Exclude  `toml:"exclude"`
	Watch   Watch    `toml:"watch"`
	History History  `toml:"history"`
	Output  Output   `toml:"output"`
	Metrics Metrics  `toml:"metrics"`
}

type Checks struct {
	ImportNaming bool `toml:"import_naming"`
	Calls        bool `toml:"calls"`
	Visibility   bool `toml:"function_visibility"`
	// CheckFileExists is a pointer so that an absent key means true.
	CheckFileExists *bool `toml:"check_file_exists"`
}

// FileExists returns the existence-check setting, defaulting to enabled.
func (c Checks) FileExists() bool {
	if c.CheckFileExists == nil {
		return true
	}
	return *c.CheckFileExists
}

// Any reports whether at least one check is selected.
func (c Checks) Any() bool {
	return c.ImportNaming || c.Calls || c.Visibility
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	// MinInterval throttles back-to-back re-analysis runs in watch mode.
	MinInterval time.Duration `toml:"min_interval"`
}

type History struct {
	Path string `toml:"path"`
}

type Output struct {
	SARIF string `toml:"sarif"`
}

type Metrics struct {
	Addr string `toml:"addr"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if len(c.Paths) == 0 {
		c.Paths = []string{"."}
	}
	if len(c.Exclude.Dirs) == 0 {
		c.Exclude.Dirs = []string{".git"}
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = 500 * time.Millisecond
	}
	if c.Watch.MinInterval == 0 {
		c.Watch.MinInterval = 2 * time.Second
	}
}
