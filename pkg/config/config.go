// Package config loads and validates the optional nockkeygen YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/modoterra/nockkeygen/pkg/logging"
)

// Default values used when the file or a field is absent.
const (
	DefaultTool        = "nockchain-wallet"
	DefaultStopTimeout = 10 * time.Second
	DefaultExportName  = "keys.export"
	DefaultFileMode    = os.FileMode(0o600)
	DefaultLogLevel    = "info"
	DefaultJournald    = logging.JournaldAuto

	appName = "nockkeygen"
)

// Config represents a nockkeygen config.yaml file.
type Config struct {
	Version        int           `yaml:"version"      json:"version"`
	Tool           string        `yaml:"tool"         json:"tool"`
	Dir            string        `yaml:"dir,omitempty" json:"dir,omitempty"`
	PTY            bool          `yaml:"pty"          json:"pty"`
	RawStopTimeout string        `yaml:"stop_timeout" json:"stop_timeout"` // e.g. "10s"
	Export         ExportConfig  `yaml:"export"       json:"export"`
	History        HistoryConfig `yaml:"history"      json:"history"`
	Log            LogConfig     `yaml:"log"          json:"log"`
}

// ExportConfig controls where exported keys are written.
type ExportConfig struct {
	DefaultName string `yaml:"default_name" json:"default_name"`
	DefaultDir  string `yaml:"default_dir"  json:"default_dir"` // empty = home directory
	RawFileMode string `yaml:"file_mode"    json:"file_mode"`   // octal, e.g. "0600"
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path"    json:"path"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level    string `yaml:"level"    json:"level"` // debug|info|warn|error
	File     string `yaml:"file"     json:"file"`
	Journald string `yaml:"journald" json:"journald"` // auto|on|off
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version:        1,
		Tool:           DefaultTool,
		RawStopTimeout: DefaultStopTimeout.String(),
		Export: ExportConfig{
			DefaultName: DefaultExportName,
			RawFileMode: fmt.Sprintf("%04o", DefaultFileMode),
		},
		History: HistoryConfig{Enabled: true},
		Log: LogConfig{
			Level:    DefaultLogLevel,
			Journald: DefaultJournald,
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/nockkeygen/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(homeDir(), ".config")
	}
	return filepath.Join(dir, appName, "config.yaml")
}

// Load reads the config file at path. If the file does not exist, the
// default Config is returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults, so omitted fields keep their
// default values.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		// An empty document is a valid, all-default config.
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the config to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// StopTimeout returns the configured stop timeout or the default.
func (c *Config) StopTimeout() time.Duration {
	if c.RawStopTimeout != "" {
		d, err := time.ParseDuration(c.RawStopTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultStopTimeout
}

// FileMode returns the permission bits for exported files.
func (c *Config) FileMode() os.FileMode {
	if m, err := parseFileMode(c.Export.RawFileMode); err == nil {
		return m
	}
	return DefaultFileMode
}

// ExportPath is the destination offered for a save when the user has not
// chosen one: default_dir (or the home directory) joined with default_name.
func (c *Config) ExportPath() string {
	name := c.Export.DefaultName
	if name == "" {
		name = DefaultExportName
	}
	dir := expandHome(c.Export.DefaultDir)
	if dir == "" {
		dir = homeDir()
	}
	return filepath.Join(dir, name)
}

// WorkDir returns the tool's working directory with ~ expanded.
func (c *Config) WorkDir() string { return expandHome(c.Dir) }

// HistoryPath returns the history database path, or "" when disabled.
func (c *Config) HistoryPath() string {
	if !c.History.Enabled {
		return ""
	}
	if c.History.Path != "" {
		return expandHome(c.History.Path)
	}
	return filepath.Join(StateDir(), "history.db")
}

// LogPath returns the diagnostic log file path.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return expandHome(c.Log.File)
	}
	return filepath.Join(StateDir(), appName+".log")
}

// StateDir is $XDG_STATE_HOME/nockkeygen, falling back to ~/.local/state.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(homeDir(), ".local", "state", appName)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) string { return expandHome(p) }

func expandHome(p string) string {
	if p == "~" {
		return homeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(homeDir(), p[2:])
	}
	return p
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func parseFileMode(s string) (os.FileMode, error) {
	if s == "" {
		return 0, fmt.Errorf("empty file mode")
	}
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("file mode %q is not octal", s)
	}
	if n == 0 || n > 0o777 {
		return 0, fmt.Errorf("file mode %q out of range", s)
	}
	return os.FileMode(n), nil
}
