package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"docmill/internal/fileutil"
	"docmill/internal/logging"
	"docmill/internal/resilience"
	"docmill/internal/textutil"
)

// ExecFactory launches a headless office process (soffice-compatible CLI)
// as the automation host. Each instance gets a private user profile so
// concurrent instances never fight over the profile lock.
type ExecFactory struct {
	// Binary is the host executable, e.g. "soffice".
	Binary string
	// ExtraArgs are appended to the launch command line.
	ExtraArgs []string
	// WorkDir receives per-instance profiles and export staging files.
	WorkDir string
	Logger  *slog.Logger
}

// Launch starts a host process and waits briefly for it to come up.
func (f *ExecFactory) Launch(ctx context.Context) (Application, error) {
	if strings.TrimSpace(f.Binary) == "" {
		return nil, errors.New("host binary not configured")
	}
	if err := fileutil.EnsureDir(f.WorkDir); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	prefix := textutil.SanitizeToken(filepath.Base(f.Binary)) + "-profile-"
	profile, err := os.MkdirTemp(f.WorkDir, prefix)
	if err != nil {
		return nil, fmt.Errorf("create host profile dir: %w", err)
	}

	args := []string{
		"--headless",
		"--invisible",
		"--norestore",
		"--nologo",
		"-env:UserInstallation=file://" + profile,
	}
	args = append(args, f.ExtraArgs...)

	cmd := exec.Command(f.Binary, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		_ = os.RemoveAll(profile)
		return nil, fmt.Errorf("start host %s: %w", f.Binary, err)
	}

	app := &execApplication{
		binary:  f.Binary,
		profile: profile,
		cmd:     cmd,
		logger:  logging.NewComponentLogger(f.Logger, "exec-host"),
	}
	// Reap the child when it exits so it never lingers as a zombie.
	go func() { _ = cmd.Wait() }()
	return app, nil
}

type execApplication struct {
	binary  string
	profile string
	cmd     *exec.Cmd
	logger  *slog.Logger
}

func (a *execApplication) ProcessID() int { return a.cmd.Process.Pid }

func (a *execApplication) OpenDocument(_ context.Context, path string) (Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, resilience.Wrap(resilience.ErrTransientIO, "host", "open", path, err)
	}
	return &execDocument{app: a, source: path}, nil
}

// Documents returns an empty collection: the CLI host does not expose its
// open-document set. The handle still participates in scope tracking.
func (a *execApplication) Documents(context.Context) (Collection, error) {
	return &execCollection{}, nil
}

func (a *execApplication) Quit(ctx context.Context) error {
	if a.cmd.Process == nil {
		return nil
	}
	if err := a.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return resilience.Wrap(resilience.ErrNativeInterop, "host", "quit", "signal failed", err)
	}
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			_ = a.cmd.Process.Kill()
			return nil
		case <-tick.C:
			if !processAlive(a.ProcessID()) {
				return nil
			}
		}
	}
}

func (a *execApplication) Release() error {
	return os.RemoveAll(a.profile)
}

type execDocument struct {
	app    *execApplication
	source string
}

// ExportTo converts the source document by invoking the host binary in
// convert mode against the running instance's profile, then moves the
// artifact to path.
func (d *execDocument) ExportTo(ctx context.Context, path, format string) error {
	outDir, err := os.MkdirTemp(d.app.profile, "export-")
	if err != nil {
		return resilience.Wrap(resilience.ErrTransientIO, "host", "export", "create staging dir", err)
	}
	defer os.RemoveAll(outDir)

	cmd := exec.CommandContext(ctx, d.app.binary,
		"--headless",
		"--norestore",
		"-env:UserInstallation=file://"+d.app.profile,
		"--convert-to", strings.TrimPrefix(format, "."),
		"--outdir", outDir,
		d.source,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return resilience.Wrap(resilience.ErrTimeout, "host", "export", d.source, ctx.Err())
		}
		return resilience.Wrap(resilience.ErrNativeInterop, "host", "export",
			strings.TrimSpace(string(output)), err)
	}

	produced := filepath.Join(outDir, fileutil.DestinationName(d.source, format))
	if _, err := os.Stat(produced); err != nil {
		// The converter names outputs after the source stem; fall back to
		// whatever single file it produced.
		entries, globErr := filepath.Glob(filepath.Join(outDir, "*"))
		if globErr != nil || len(entries) != 1 {
			return resilience.Wrap(resilience.ErrNativeInterop, "host", "export",
				"host produced no output for "+d.source, err)
		}
		produced = entries[0]
	}
	if err := fileutil.MoveFile(produced, path); err != nil {
		return resilience.Wrap(resilience.ErrTransientIO, "host", "export", "place artifact", err)
	}
	return nil
}

func (d *execDocument) Close(context.Context) error { return nil }

func (d *execDocument) Release() error { return nil }

type execCollection struct{}

func (c *execCollection) Count(context.Context) (int, error) { return 0, nil }

func (c *execCollection) Item(_ context.Context, i int) (Document, error) {
	return nil, fmt.Errorf("collection index %d out of range", i)
}

func (c *execCollection) Release() error { return nil }

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
