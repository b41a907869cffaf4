package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docmill/internal/queue"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := executeCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("output missing target path: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	if _, err := executeCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestConfigValidateCommand(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`input_dir = "` + filepath.Join(dir, "in") + `"`,
		`output_dir = "` + filepath.Join(dir, "out") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
	}, "\n")
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := executeCommand(t, "config", "validate", "--path", target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "is valid") {
		t.Fatalf("unexpected validate output: %q", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Fatal("version output empty")
	}
}

func TestDiscoverInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.docx", "a.odt", "notes.txt", "image.png", "archive.zip"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.docx"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got := discoverInputs(dir)
	want := []string{
		filepath.Join(dir, "a.odt"),
		filepath.Join(dir, "b.docx"),
		filepath.Join(dir, "notes.txt"),
	}
	if len(got) != len(want) {
		t.Fatalf("discoverInputs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("discoverInputs = %v, want %v", got, want)
		}
	}
}

func TestRenderReport(t *testing.T) {
	now := time.Now()
	items := []queue.Item{
		{
			SourcePath: "/in/alpha.docx",
			OutputPath: "/out/alpha.pdf",
			Status:     queue.StatusCompleted,
			StartedAt:  now,
			FinishedAt: now.Add(1200 * time.Millisecond),
		},
		{
			SourcePath: "/in/beta.odt",
			Status:     queue.StatusFailed,
			RetryCount: 2,
			LastError:  "native interop error: host hung",
			StartedAt:  now,
			FinishedAt: now.Add(4 * time.Second),
		},
	}
	stats := queue.StatsSnapshot{Admitted: 2, Completed: 1, Failed: 1, Retries: 2}

	report := renderReport(items, stats)
	for _, fragment := range []string{"alpha.docx", "beta.odt", "completed", "failed", "host hung", "2 admitted, 1 completed, 1 failed"} {
		if !strings.Contains(report, fragment) {
			t.Fatalf("report missing %q:\n%s", fragment, report)
		}
	}
}
