// Package config manages netchoo configuration: defaults, an optional JSON or
// YAML file under the XDG config directory, and command-line overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shini4i/netchoo/internal/counter"
	"github.com/shini4i/netchoo/internal/fileutil"
	"github.com/shini4i/netchoo/internal/scale"
)

const (
	// AppName is the application identifier used for XDG paths.
	AppName = "netchoo"
	// ConfigFileName is the name of the main configuration file.
	ConfigFileName = "config.json"
	// YAMLConfigFileName is used when present and no JSON file exists.
	YAMLConfigFileName = "config.yaml"
	// LogFileName is the log written while the dashboard owns the terminal.
	LogFileName = "netchoo.log"
)

// Renderer names.
const (
	RendererAuto = "auto"
	RendererTerm = "term"
	RendererTray = "tray"
	RendererLog  = "log"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Bounds on the sampling period and the history window.
const (
	MaxSampleInterval = time.Hour
	MaxWindow         = 7 * 24 * time.Hour
)

var (
	// ErrInvalidInterval is returned for a sample interval that is not
	// positive or exceeds MaxSampleInterval.
	ErrInvalidInterval = errors.New("sample interval must be positive")
	// ErrInvalidWindow is returned when the window is shorter than one
	// interval or exceeds MaxWindow.
	ErrInvalidWindow = errors.New("window must be at least one sample interval")
	// ErrInvalidSource is returned for an unknown counter backend.
	ErrInvalidSource = errors.New("unknown counter source")
	// ErrInvalidRenderer is returned for an unknown renderer.
	ErrInvalidRenderer = errors.New("unknown renderer")
	// ErrInvalidPattern is returned for a malformed exclude glob.
	ErrInvalidPattern = errors.New("invalid exclude pattern")
	// ErrInvalidLogFormat is returned for an unknown log format.
	ErrInvalidLogFormat = errors.New("unknown log format")
	// ErrInvalidScale is returned for a bad headroom or axis floor.
	ErrInvalidScale = errors.New("invalid scale settings")
)

var renderers = []string{RendererAuto, RendererTerm, RendererTray, RendererLog}

// Config represents the application configuration.
type Config struct {
	SampleIntervalMs int `json:"sample_interval_ms" yaml:"sample_interval_ms"`
	WindowSeconds    int `json:"window_seconds" yaml:"window_seconds"`

	Source     string `json:"source" yaml:"source"`
	ProcNetDev string `json:"proc_net_dev,omitempty" yaml:"proc_net_dev,omitempty"`
	SysfsNet   string `json:"sysfs_net,omitempty" yaml:"sysfs_net,omitempty"`

	IncludeLoopback bool     `json:"include_loopback" yaml:"include_loopback"`
	OnlyActive      bool     `json:"only_active" yaml:"only_active"`
	Exclude         []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`

	Headroom float64 `json:"headroom" yaml:"headroom"`
	MinAxis  float64 `json:"min_axis" yaml:"min_axis"`

	Renderer      string `json:"renderer" yaml:"renderer"`
	DockerReverse bool   `json:"docker_reverse" yaml:"docker_reverse"`
	Listen        string `json:"listen,omitempty" yaml:"listen,omitempty"`

	LogFile   string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	LogFormat string `json:"log_format" yaml:"log_format"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SampleIntervalMs: 1000,
		WindowSeconds:    300,
		Source:           counter.BackendProcfs,
		OnlyActive:       true,
		Headroom:         scale.DefaultHeadroom,
		MinAxis:          scale.DefaultFloor,
		Renderer:         RendererAuto,
		LogFormat:        LogFormatText,
	}
}

// SampleInterval returns the sampling period.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalMs) * time.Millisecond
}

// Window returns the retained history duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// ScaleModel returns the axis model.
func (c *Config) ScaleModel() scale.Model {
	return scale.Model{Headroom: c.Headroom, Floor: c.MinAxis}
}

// CounterOptions returns the options for counter.Open.
func (c *Config) CounterOptions() counter.Options {
	return counter.Options{Backend: c.Source, ProcNetDev: c.ProcNetDev, SysfsNet: c.SysfsNet}
}

// Filter returns the interface filter. operState may be nil.
func (c *Config) Filter(operState func(string) (string, error)) counter.Filter {
	return counter.Filter{
		IncludeLoopback: c.IncludeLoopback,
		OnlyActive:      c.OnlyActive,
		Exclude:         slices.Clone(c.Exclude),
		OperState:       operState,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleIntervalMs <= 0 || int64(c.SampleIntervalMs) > MaxSampleInterval.Milliseconds() {
		return fmt.Errorf("%w: %d ms (max %s)", ErrInvalidInterval, c.SampleIntervalMs, MaxSampleInterval)
	}
	if int64(c.WindowSeconds) > int64(MaxWindow/time.Second) {
		return fmt.Errorf("%w: %d s (max %s)", ErrInvalidWindow, c.WindowSeconds, MaxWindow)
	}
	if c.Window() < c.SampleInterval() {
		return fmt.Errorf("%w: window %s, interval %s", ErrInvalidWindow, c.Window(), c.SampleInterval())
	}
	if c.Source != "" && !slices.Contains(counter.Backends, c.Source) {
		return fmt.Errorf("%w %q (want one of %s)", ErrInvalidSource, c.Source, strings.Join(counter.Backends, ", "))
	}
	if c.Renderer != "" && !slices.Contains(renderers, c.Renderer) {
		return fmt.Errorf("%w %q (want one of %s)", ErrInvalidRenderer, c.Renderer, strings.Join(renderers, ", "))
	}
	if err := counter.ValidatePatterns(c.Exclude); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	if err := c.ScaleModel().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScale, err)
	}
	if c.LogFormat != "" && c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return fmt.Errorf("%w %q", ErrInvalidLogFormat, c.LogFormat)
	}
	return nil
}

// Paths holds the resolved configuration directories.
type Paths struct {
	ConfigDir  string
	ConfigFile string
	StateDir   string
	LogFile    string
}

// GetPaths returns the configuration paths following XDG Base Directory spec.
func GetPaths() (*Paths, error) {
	configHome, err := xdgDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return nil, err
	}
	stateHome, err := xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
	if err != nil {
		return nil, err
	}

	configDir := filepath.Join(configHome, AppName)
	stateDir := filepath.Join(stateHome, AppName)
	return &Paths{
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, ConfigFileName),
		StateDir:   stateDir,
		LogFile:    filepath.Join(stateDir, LogFileName),
	}, nil
}

func xdgDir(env, fallback string) (string, error) {
	if dir := os.Getenv(env); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, fallback), nil
}

// Locate returns the config file to read: config.json if it exists, else
// config.yaml if that exists, else the config.json path.
func (p *Paths) Locate() string {
	if _, err := os.Stat(p.ConfigFile); err == nil {
		return p.ConfigFile
	}
	yamlPath := filepath.Join(p.ConfigDir, YAMLConfigFileName)
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}
	return p.ConfigFile
}

// Load reads the configuration from disk. A missing file yields the defaults.
// Files ending in .yaml or .yml are parsed as YAML, anything else as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if isYAML(path) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
		return cfg, nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration atomically, creating the parent directory.
// The format follows the file extension as in Load.
func Save(path string, cfg *Config) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := fileutil.AtomicWrite(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
