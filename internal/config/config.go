package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/heart/internal/errors"
	"github.com/vango-dev/heart/pkg/heart"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "heart.json"

	// DefaultInspectorAddr is the default inspector listen address.
	DefaultInspectorAddr = "localhost:7070"

	// DefaultScenario is the default demo scenario.
	DefaultScenario = "counter"

	// DefaultTick is the default interval between demo frames.
	DefaultTick = "100ms"
)

// configFileNames are tried in order by Load.
var configFileNames = []string{ConfigFileName, "heart.yaml", "heart.yml"}

// Config represents the complete heart configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Engine contains evaluator settings.
	Engine EngineConfig `json:"engine" yaml:"engine"`

	// Log contains logging settings.
	Log LogConfig `json:"log" yaml:"log"`

	// Inspector contains inspector server settings.
	Inspector InspectorConfig `json:"inspector" yaml:"inspector"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Demo contains settings for the demo command.
	Demo DemoConfig `json:"demo" yaml:"demo"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// EngineConfig contains evaluator settings.
type EngineConfig struct {
	// Debug enables debug logging of every evaluation step.
	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty"`

	// MaxDrainIterations caps dirty-args drains per cycle (0 disables).
	MaxDrainIterations int `json:"maxDrainIterations" yaml:"maxDrainIterations"`

	// MaxReevaluationsPerCycle caps re-evaluations per cycle (0 disables).
	MaxReevaluationsPerCycle int `json:"maxReevaluationsPerCycle" yaml:"maxReevaluationsPerCycle"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// InspectorConfig contains inspector server settings.
type InspectorConfig struct {
	// Enabled starts the inspector with the serve command.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Addr is the listen address.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`

	// AllowAllOrigins accepts WebSocket upgrades from any origin.
	AllowAllOrigins bool `json:"allowAllOrigins,omitempty" yaml:"allowAllOrigins,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Namespace is the metrics namespace.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`

	// Subsystem is the metrics subsystem.
	Subsystem string `json:"subsystem,omitempty" yaml:"subsystem,omitempty"`
}

// DemoConfig contains settings for the demo command.
type DemoConfig struct {
	// Scenario is the demo to run (counter, list, chain).
	Scenario string `json:"scenario,omitempty" yaml:"scenario,omitempty"`

	// Tick is the interval between frames, e.g. "100ms".
	Tick string `json:"tick,omitempty" yaml:"tick,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	budget := heart.DefaultBudget()
	return &Config{
		Engine: EngineConfig{
			MaxDrainIterations:       budget.MaxDrainIterations,
			MaxReevaluationsPerCycle: budget.MaxReevaluationsPerCycle,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Inspector: InspectorConfig{
			Addr: DefaultInspectorAddr,
		},
		Metrics: MetricsConfig{
			Namespace: "heart",
		},
		Demo: DemoConfig{
			Scenario: DefaultScenario,
			Tick:     DefaultTick,
		},
	}
}

// Load reads configuration from the specified directory. It looks for
// heart.json, heart.yaml and heart.yml in that order.
func Load(dir string) (*Config, error) {
	for _, name := range configFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("H141").
		WithDetail("No heart.json or heart.yaml found in " + dir)
}

// LoadFile reads configuration from the specified file path. Files ending
// in .yaml or .yml are parsed as YAML, everything else as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("H141").
				WithDetail("No configuration file at " + path)
		}
		return nil, errors.New("H120").Wrap(err)
	}

	cfg := New()
	if isYAML(path) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("H120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid YAML")
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("H120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid JSON")
		}
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path, in YAML when the
// extension says so.
func (c *Config) SaveTo(path string) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		// Add newline at end of file
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("H120").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("H120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Inspector.Addr == "" {
		c.Inspector.Addr = DefaultInspectorAddr
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "heart"
	}
	if c.Demo.Scenario == "" {
		c.Demo.Scenario = DefaultScenario
	}
	if c.Demo.Tick == "" {
		c.Demo.Tick = DefaultTick
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Engine.MaxDrainIterations < 0 {
		return errors.New("H121").
			WithDetail("engine.maxDrainIterations must not be negative")
	}
	if c.Engine.MaxReevaluationsPerCycle < 0 {
		return errors.New("H121").
			WithDetail("engine.maxReevaluationsPerCycle must not be negative")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("H121").
			WithDetailf("log.format %q must be text or json", c.Log.Format)
	}
	if tick, err := time.ParseDuration(c.Demo.Tick); err != nil || tick <= 0 {
		return errors.New("H121").
			WithDetailf("demo.tick %q must be a positive duration", c.Demo.Tick)
	}
	return nil
}

// Budget returns the evaluator budget.
func (c *Config) Budget() heart.Budget {
	return heart.Budget{
		MaxDrainIterations:       c.Engine.MaxDrainIterations,
		MaxReevaluationsPerCycle: c.Engine.MaxReevaluationsPerCycle,
	}
}

// TickDuration returns the parsed demo tick, or the default when invalid.
func (c *Config) TickDuration() time.Duration {
	d, err := time.ParseDuration(c.Demo.Tick)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultTick)
	}
	return d
}

// LogLevel returns the configured level. Engine.Debug forces debug.
func (c *Config) LogLevel() (slog.Level, error) {
	if c.Engine.Debug {
		return slog.LevelDebug, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, errors.New("H121").
			WithDetailf("log.level %q must be debug, info, warn or error", c.Log.Level)
	}
	return level, nil
}

// NewLogger builds the logger described by the config, writing to w.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := c.LogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch c.Log.Format {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "text", "":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, errors.New("H121").
			WithDetail(fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	return slog.New(h), nil
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range configFileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a config file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("H141").
				WithDetail("No heart.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working
// directory or its nearest parent that has one.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
