package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/heart/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Inspector.Addr != DefaultInspectorAddr {
		t.Errorf("Inspector.Addr = %q, want %q", cfg.Inspector.Addr, DefaultInspectorAddr)
	}
	if cfg.Demo.Scenario != DefaultScenario {
		t.Errorf("Demo.Scenario = %q, want %q", cfg.Demo.Scenario, DefaultScenario)
	}
	if cfg.Engine.MaxDrainIterations != 10000 {
		t.Errorf("Engine.MaxDrainIterations = %d, want 10000", cfg.Engine.MaxDrainIterations)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Test loading non-existent config
	_, err := Load(tmpDir)
	if errors.Code(err) != "H141" {
		t.Errorf("Load() on empty dir = %v, want H141", err)
	}

	configJSON := `{
  "name": "demo",
  "engine": {
    "debug": true,
    "maxDrainIterations": 50
  },
  "inspector": {
    "enabled": true,
    "addr": "0.0.0.0:9000"
  },
  "demo": {
    "scenario": "list"
  }
}
`
	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Name != "demo" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if !cfg.Engine.Debug || cfg.Engine.MaxDrainIterations != 50 {
		t.Errorf("Engine = %+v", cfg.Engine)
	}
	if !cfg.Inspector.Enabled || cfg.Inspector.Addr != "0.0.0.0:9000" {
		t.Errorf("Inspector = %+v", cfg.Inspector)
	}
	if cfg.Demo.Scenario != "list" {
		t.Errorf("Demo.Scenario = %q", cfg.Demo.Scenario)
	}
	// Defaults fill the rest
	if cfg.Demo.Tick != DefaultTick || cfg.Log.Format != "text" {
		t.Errorf("defaults not applied: %+v %+v", cfg.Demo, cfg.Log)
	}
	if cfg.Path() != configPath || cfg.Dir() != tmpDir {
		t.Errorf("Path/Dir = %q %q", cfg.Path(), cfg.Dir())
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configYAML := `name: yaml-demo
engine:
  maxReevaluationsPerCycle: 500
log:
  level: warn
  format: json
demo:
  scenario: chain
  tick: 1s
`
	if err := os.WriteFile(filepath.Join(tmpDir, "heart.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Name != "yaml-demo" || cfg.Engine.MaxReevaluationsPerCycle != 500 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Engine.MaxDrainIterations != 10000 {
		t.Errorf("unset field lost its default: %d", cfg.Engine.MaxDrainIterations)
	}
	if cfg.TickDuration() != time.Second {
		t.Errorf("TickDuration() = %v", cfg.TickDuration())
	}
	level, err := cfg.LogLevel()
	if err != nil || level != slog.LevelWarn {
		t.Errorf("LogLevel() = %v, %v", level, err)
	}
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte("{invalid json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(path)
	if errors.Code(err) != "H120" {
		t.Errorf("LoadFile() = %v, want H120", err)
	}
}

func TestLoadFile_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heart.yml")
	if err := os.WriteFile(path, []byte("engine: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(path)
	if errors.Code(err) != "H120" {
		t.Errorf("LoadFile() = %v, want H120", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"heart.json", "heart.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := New()
			cfg.Name = "saved"
			cfg.Engine.MaxDrainIterations = 7

			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo error: %v", err)
			}
			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile error: %v", err)
			}
			if loaded.Name != "saved" || loaded.Engine.MaxDrainIterations != 7 {
				t.Errorf("loaded = %+v", loaded)
			}
		})
	}
}

func TestSave_NoPath(t *testing.T) {
	if err := New().Save(); err == nil {
		t.Error("Save() without a path should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		detail string
	}{
		{"negative drains", func(c *Config) { c.Engine.MaxDrainIterations = -1 }, "maxDrainIterations"},
		{"negative reevaluations", func(c *Config) { c.Engine.MaxReevaluationsPerCycle = -1 }, "maxReevaluationsPerCycle"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad tick", func(c *Config) { c.Demo.Tick = "soon" }, "demo.tick"},
		{"zero tick", func(c *Config) { c.Demo.Tick = "0s" }, "demo.tick"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if errors.Code(err) != "H121" {
				t.Fatalf("Validate() = %v, want H121", err)
			}
			if !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.detail)
			}
		})
	}
}

func TestBudget(t *testing.T) {
	cfg := New()
	cfg.Engine.MaxDrainIterations = 3
	cfg.Engine.MaxReevaluationsPerCycle = 9

	b := cfg.Budget()
	if b.MaxDrainIterations != 3 || b.MaxReevaluationsPerCycle != 9 {
		t.Errorf("Budget() = %+v", b)
	}
}

func TestNewLogger(t *testing.T) {
	cfg := New()
	cfg.Log.Format = "json"
	cfg.Engine.Debug = true

	var buf bytes.Buffer
	logger, err := cfg.NewLogger(&buf)
	if err != nil {
		t.Fatalf("NewLogger error: %v", err)
	}
	logger.Debug("hello", "k", 1)
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("FindProjectRoot() = %q, want %q", got, want)
	}
	if !Exists(root) || Exists(nested) {
		t.Error("Exists() mismatch")
	}
}
