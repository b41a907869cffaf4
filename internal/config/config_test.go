package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"docmill/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	// Defaults use ~ paths; Load normalizes them. Validate the normalized
	// form the way Load produces it.
	loaded, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if loaded.Queue.Parallelism != cfg.Queue.Parallelism {
		t.Fatalf("defaults not applied: parallelism %d", loaded.Queue.Parallelism)
	}
	if loaded.Host.RecycleAfterUses != 20 {
		t.Fatalf("expected default recycle threshold 20, got %d", loaded.Host.RecycleAfterUses)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docmill.toml")
	content := `
[paths]
input_dir = "` + filepath.Join(dir, "in") + `"
output_dir = "` + filepath.Join(dir, "out") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[queue]
parallelism = 5

[host]
output_format = ".PDF"
recycle_after_uses = 7
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: exists=%v path=%s", exists, resolved)
	}
	if cfg.Queue.Parallelism != 5 {
		t.Fatalf("parallelism = %d, want 5", cfg.Queue.Parallelism)
	}
	if cfg.Host.OutputFormat != "pdf" {
		t.Fatalf("output format not normalized: %q", cfg.Host.OutputFormat)
	}
	if cfg.Host.RecycleAfterUses != 7 {
		t.Fatalf("recycle threshold = %d, want 7", cfg.Host.RecycleAfterUses)
	}
	if cfg.Workers.Count != 1 {
		t.Fatalf("worker count default = %d, want 1", cfg.Workers.Count)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name    string
		content string
	}{
		{"same dirs", `
[paths]
input_dir = "` + dir + `"
output_dir = "` + dir + `"
`},
		{"bad format", `
[host]
output_format = "exe"
`},
		{"excessive retries", `
[retry]
max_attempts = 50
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "docmill.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
}
