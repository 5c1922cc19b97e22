package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	for _, k := range []string{"K8S_CONTEXT", "OKNI_CONTEXT", "OKNI_DISPLAY_WIDTH", "OKNI_LOG_LEVEL", "OKNI_SELECTION_SORTBY", "OKNI_SELECTION_FILTERS"} {
		if v, ok := os.LookupEnv(k); ok {
			os.Unsetenv(k)
			t.Cleanup(func() { os.Setenv(k, v) })
		}
	}
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadDefaultWhenMissing(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Display.Thresholds.Mid != 50 || cfg.Display.Thresholds.High != 75 || cfg.Display.Thresholds.Critical != 90 {
		t.Fatalf("unexpected default thresholds: %+v", cfg.Display.Thresholds)
	}
	if cfg.Selection.SortBy != "name" || cfg.Selection.HighUsageThreshold != 75 {
		t.Fatalf("unexpected selection defaults: %+v", cfg.Selection)
	}
	if !cfg.Display.Colors || cfg.Display.Width != 0 {
		t.Fatalf("unexpected display defaults: %+v", cfg.Display)
	}
	if d, _ := cfg.TimeoutDuration(); d != 30*time.Second {
		t.Fatalf("timeout = %v", d)
	}
	if len(cfg.AutoscalerLabelPatterns) != 2 {
		t.Fatalf("autoscaler patterns = %v", cfg.AutoscalerLabelPatterns)
	}
}

func TestLoadFromDefaultPath(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".oke-node-inspector", "config.yaml"), `
context: oke-prod
display:
  width: 100
  thresholds:
    mid: 40
    high: 60
    critical: 80
selection:
  sortBy: CPU
  filters: [tainted]
log:
  format: json
`)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Context != "oke-prod" || cfg.Display.Width != 100 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Display.Thresholds.High != 60 {
		t.Fatalf("thresholds not applied: %+v", cfg.Display.Thresholds)
	}
	if cfg.Selection.SortBy != "cpu" {
		t.Fatalf("sortBy not normalized: %q", cfg.Selection.SortBy)
	}
	if len(cfg.Selection.Filters) != 1 || cfg.Selection.Filters[0] != "tainted" {
		t.Fatalf("filters = %v", cfg.Selection.Filters)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "info" {
		t.Fatalf("log config = %+v", cfg.Log)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".oke-node-inspector", "config.yaml"), "display:\n  width: 100\nlog:\n  level: warn\n")
	t.Setenv("OKNI_DISPLAY_WIDTH", "120")
	t.Setenv("OKNI_LOG_LEVEL", "debug")
	t.Setenv("OKNI_SELECTION_FILTERS", "tainted,high-usage")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Display.Width != 120 {
		t.Fatalf("width = %d want 120", cfg.Display.Width)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("level = %q want debug", cfg.Log.Level)
	}
	if strings.Join(cfg.Selection.Filters, ",") != "tainted,high-usage" {
		t.Fatalf("filters = %v", cfg.Selection.Filters)
	}
}

func TestContextFromK8SContextEnv(t *testing.T) {
	isolate(t)
	writeFile(t, ".env", "K8S_CONTEXT=from-dotenv\n")
	t.Setenv("K8S_CONTEXT", "from-env")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Context != "from-env" {
		t.Fatalf("context = %q want from-env", cfg.Context)
	}

	t.Setenv("OKNI_CONTEXT", "from-okni")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Context != "from-okni" {
		t.Fatalf("context = %q want from-okni", cfg.Context)
	}
}

func TestContextFromDotEnv(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".oke-node-inspector", "config.yaml"), "context: from-file\n")
	writeFile(t, ".env", "# cluster\nK8S_CONTEXT=from-dotenv\nOTHER=1\n")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Context != "from-dotenv" {
		t.Fatalf("context = %q want from-dotenv", cfg.Context)
	}
}

func TestExplicitPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "basis: allocatable\ntimeout: 5s\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Basis != "allocatable" {
		t.Fatalf("basis = %q", cfg.Basis)
	}
	if d, _ := cfg.TimeoutDuration(); d != 5*time.Second {
		t.Fatalf("timeout = %v", d)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":       "display: [",
		"bad sort":       "selection:\n  sortBy: age\n",
		"bad filter":     "selection:\n  filters: [hot]\n",
		"bad thresholds": "display:\n  thresholds:\n    mid: 80\n    high: 70\n    critical: 90\n",
		"bad basis":      "basis: requests\n",
		"bad timeout":    "timeout: soon\n",
		"bad level":      "log:\n  level: loud\n",
		"bad width":      "display:\n  width: -1\n",
		"bad threshold":  "selection:\n  highUsageThreshold: 150\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			path := filepath.Join(t.TempDir(), "config.yaml")
			writeFile(t, path, content)
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestYAML(t *testing.T) {
	out, err := Default().YAML()
	if err != nil {
		t.Fatalf("YAML error: %v", err)
	}
	for _, want := range []string{"sortBy: name", "critical: 90", "format: console"} {
		if !strings.Contains(out, want) {
			t.Fatalf("YAML output missing %q:\n%s", want, out)
		}
	}
}

func TestFilePath(t *testing.T) {
	home := isolate(t)
	path, err := FilePath()
	if err != nil {
		t.Fatalf("FilePath error: %v", err)
	}
	if want := filepath.Join(home, ".oke-node-inspector", "config.yaml"); path != want {
		t.Fatalf("unexpected config path %q want %q", path, want)
	}
}

func TestEnsureExistsAndReload(t *testing.T) {
	home := isolate(t)
	path, created, err := EnsureExists("")
	if err != nil {
		t.Fatalf("EnsureExists error: %v", err)
	}
	if !created || path != filepath.Join(home, ".oke-node-inspector", "config.yaml") {
		t.Fatalf("unexpected result path=%q created=%v", path, created)
	}
	if _, created, err = EnsureExists(""); err != nil || created {
		t.Fatalf("second EnsureExists should not create: created=%v err=%v", created, err)
	}

	cfg := Default()
	cfg.Selection.SortBy = "pods"
	cfg.Display.Width = 90
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	loaded, err := Load("")
	if err != nil {
		t.Fatalf("Load after save error: %v", err)
	}
	if loaded.Selection.SortBy != "pods" || loaded.Display.Width != 90 {
		t.Fatalf("round trip lost values: %+v", loaded)
	}

	cfg.Basis = "requests"
	if err := Save(path, cfg); err == nil {
		t.Fatal("expected Save to reject invalid config")
	}
}
