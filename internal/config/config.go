// Package config loads bplusviz settings from a YAML file and the
// environment.
//
// Precedence, lowest first: built-in defaults, the YAML file, BPLUSVIZ_*
// environment variables, command-line flags (applied by the caller).

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cabewaldrop/bplusviz/internal/bptree"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BPLUSVIZ_"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

type Tree struct {
	Order  int  `yaml:"order"`
	Record bool `yaml:"record"`
}

type Replay struct {
	SpeedMS    int `yaml:"speed_ms"`
	MinSpeedMS int `yaml:"min_speed_ms"`
	MaxSpeedMS int `yaml:"max_speed_ms"`
}

type Server struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Log struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // console, json or auto
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type History struct {
	MaxEntries int `yaml:"max_entries"`
}

// Config is the full configuration.
type Config struct {
	Tree    Tree    `yaml:"tree"`
	Replay  Replay  `yaml:"replay"`
	Server  Server  `yaml:"server"`
	Log     Log     `yaml:"log"`
	History History `yaml:"history"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Tree:   Tree{Order: 4, Record: true},
		Replay: Replay{SpeedMS: 500, MinSpeedMS: 100, MaxSpeedMS: 2000},
		Server: Server{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: Log{
			Level:      "info",
			Format:     "auto",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 7,
			Compress:   true,
		},
		History: History{MaxEntries: 100},
	}
}

// Load reads path over the defaults and then applies environment overrides.
// An empty path or a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, errors.Wrapf(err, "reading config %s", path)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, errors.Wrapf(err, "parsing config %s", path)
			}
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// LoadFromEnv applies BPLUSVIZ_* overrides, e.g. BPLUSVIZ_TREE_ORDER=5 or
// BPLUSVIZ_SERVER_READ_TIMEOUT=5s. Malformed values are errors.
func (c *Config) LoadFromEnv() error {
	ints := map[string]*int{
		"TREE_ORDER":          &c.Tree.Order,
		"REPLAY_SPEED_MS":     &c.Replay.SpeedMS,
		"REPLAY_MIN_SPEED_MS": &c.Replay.MinSpeedMS,
		"REPLAY_MAX_SPEED_MS": &c.Replay.MaxSpeedMS,
		"SERVER_PORT":         &c.Server.Port,
		"LOG_MAX_SIZE_MB":     &c.Log.MaxSizeMB,
		"LOG_MAX_BACKUPS":     &c.Log.MaxBackups,
		"LOG_MAX_AGE_DAYS":    &c.Log.MaxAgeDays,
		"HISTORY_MAX_ENTRIES": &c.History.MaxEntries,
	}
	for name, dst := range ints {
		if v, ok := lookup(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return errors.Wrapf(err, "%s%s", EnvPrefix, name)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{
		"TREE_RECORD":  &c.Tree.Record,
		"LOG_COMPRESS": &c.Log.Compress,
	}
	for name, dst := range bools {
		if v, ok := lookup(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errors.Wrapf(err, "%s%s", EnvPrefix, name)
			}
			*dst = b
		}
	}

	durations := map[string]*time.Duration{
		"SERVER_READ_TIMEOUT":     &c.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":    &c.Server.WriteTimeout,
		"SERVER_IDLE_TIMEOUT":     &c.Server.IdleTimeout,
		"SERVER_SHUTDOWN_TIMEOUT": &c.Server.ShutdownTimeout,
	}
	for name, dst := range durations {
		if v, ok := lookup(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return errors.Wrapf(err, "%s%s", EnvPrefix, name)
			}
			*dst = d
		}
	}

	strs := map[string]*string{
		"LOG_LEVEL":  &c.Log.Level,
		"LOG_FORMAT": &c.Log.Format,
		"LOG_FILE":   &c.Log.File,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}
	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	switch {
	case c.Tree.Order < bptree.MinOrder:
		return errors.Wrapf(ErrInvalidConfig, "tree.order %d is below %d", c.Tree.Order, bptree.MinOrder)
	case c.Replay.MinSpeedMS <= 0 || c.Replay.MinSpeedMS > c.Replay.MaxSpeedMS:
		return errors.Wrapf(ErrInvalidConfig, "replay speed bounds [%d, %d]", c.Replay.MinSpeedMS, c.Replay.MaxSpeedMS)
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return errors.Wrapf(ErrInvalidConfig, "server.port %d", c.Server.Port)
	case c.History.MaxEntries <= 0:
		return errors.Wrapf(ErrInvalidConfig, "history.max_entries %d", c.History.MaxEntries)
	}
	switch strings.ToLower(c.Log.Format) {
	case "auto", "console", "json":
	default:
		return errors.Wrapf(ErrInvalidConfig, "log.format %q", c.Log.Format)
	}
	return nil
}

// Write saves the configuration as YAML.
func (c Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "writing config %s", path)
}
