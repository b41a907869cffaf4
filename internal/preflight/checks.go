package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"docmill/internal/procguard"
)

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckHostBinary verifies the automation host binary is on PATH (or at its
// configured absolute location).
func CheckHostBinary(binary string) Result {
	const name = "Automation host"

	binary = strings.TrimSpace(binary)
	if binary == "" {
		return Result{Name: name, Detail: "binary not configured"}
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", binary)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// CheckStateStore verifies the process ledger can be opened where state
// lives.
func CheckStateStore(ctx context.Context, stateDir string) Result {
	const name = "State store"

	ledger, err := procguard.OpenLedger(stateDir)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", stateDir, err)}
	}
	defer ledger.Close()

	if _, err := ledger.List(ctx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", ledger.Path(), err)}
	}
	return Result{Name: name, Passed: true, Detail: ledger.Path()}
}
