package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	content := `
paths = ["./src"]

[checks]
import_naming = true
calls = true
check_file_exists = false

[exclude]
dirs = [".git", "vendor"]
files = ["*.tmpl.star"]

[watch]
debounce = "1s"
min_interval = "5s"

[history]
path = "runs.db"

[output]
sarif = "report.sarif"

[metrics]
addr = ":9901"
`
	path := filepath.Join(t.TempDir(), "starlint.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Paths) != 1 || cfg.Paths[0] != "./src" {
		t.Errorf("unexpected paths: %v", cfg.Paths)
	}
	if !cfg.Checks.ImportNaming || !cfg.Checks.Calls || cfg.Checks.Visibility {
		t.Errorf("unexpected checks: %+v", cfg.Checks)
	}
	if cfg.Checks.FileExists() {
		t.Error("check_file_exists = false should disable the existence check")
	}
	if cfg.Watch.Debounce != time.Second || cfg.Watch.MinInterval != 5*time.Second {
		t.Errorf("unexpected watch settings: %+v", cfg.Watch)
	}
	if cfg.History.Path != "runs.db" {
		t.Errorf("unexpected history path: %s", cfg.History.Path)
	}
	if cfg.Output.SARIF != "report.sarif" {
		t.Errorf("unexpected sarif path: %s", cfg.Output.SARIF)
	}
	if cfg.Metrics.Addr != ":9901" {
		t.Errorf("unexpected metrics addr: %s", cfg.Metrics.Addr)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if len(cfg.Paths) != 1 || cfg.Paths[0] != "." {
		t.Errorf("unexpected default paths: %v", cfg.Paths)
	}
	if !cfg.Checks.FileExists() {
		t.Error("existence check should default to enabled")
	}
	if cfg.Checks.Any() {
		t.Error("no checks should be selected by default")
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("unexpected default debounce: %v", cfg.Watch.Debounce)
	}
	if cfg.Watch.MinInterval != 2*time.Second {
		t.Errorf("unexpected default min interval: %v", cfg.Watch.MinInterval)
	}
}
