package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/heart/internal/demo"
	"github.com/vango-dev/heart/internal/errors"
	"github.com/vango-dev/heart/pkg/metrics"
)

func TestGuard_ConvertsFatalPanic(t *testing.T) {
	col := metrics.New(metrics.WithRegistry(prometheus.NewRegistry()))
	err := guard(col, func() error {
		errors.Fail("H003", "two children keyed %s", "x")
		return nil
	})
	if errors.Code(err) != "H003" {
		t.Fatalf("guard() = %v, want H003", err)
	}
}

func TestGuard_RepanicsForeignValues(t *testing.T) {
	col := metrics.New(metrics.WithRegistry(prometheus.NewRegistry()))
	defer func() {
		if r := recover(); r != "boom" {
			t.Errorf("recovered %v, want boom", r)
		}
	}()
	guard(col, func() error { panic("boom") })
}

func TestLoadConfig_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heart.yaml")
	if err := os.WriteFile(path, []byte("demo:\n  scenario: list\n  tick: 5ms\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Demo.Scenario != "list" {
		t.Errorf("scenario = %q", cfg.Demo.Scenario)
	}
}

func TestLoadConfig_InvalidValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heart.json")
	if err := os.WriteFile(path, []byte(`{"log":{"format":"xml"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); errors.Code(err) != "H121" {
		t.Errorf("loadConfig() = %v, want H121", err)
	}
}

func TestSession_RunsFrames(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, `{"demo":{"scenario":"chain","tick":"1ms"},"log":{"level":"error"}}`))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	s, err := newSession(cfg, cfg.Demo.Scenario, false)
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}

	var frames []demo.Frame
	if err := s.run(context.Background(), 2, func(f demo.Frame) { frames = append(frames, f) }); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(frames) != 2 || !frames[1].Changed {
		t.Errorf("frames = %+v", frames)
	}
}

func TestSession_UnknownScenario(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, `{}`))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if _, err := newSession(cfg, "missing", false); errors.Code(err) != "H200" {
		t.Errorf("newSession() = %v, want H200", err)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "heart.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
