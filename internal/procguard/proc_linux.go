//go:build linux

package procguard

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// processIdentity reads the live process's executable name and kernel start
// ticks (field 22 of /proc/<pid>/stat). The pair is stable for the life of a
// PID and changes the moment the PID is reused.
func processIdentity(pid int) (string, uint64, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return "", 0, err
	}
	text := string(data)

	// comm is parenthesized and may itself contain spaces or parentheses;
	// everything after the last ')' is fixed-position fields.
	start := strings.IndexByte(text, '(')
	end := strings.LastIndexByte(text, ')')
	if start < 0 || end < 0 || end < start {
		return "", 0, fmt.Errorf("malformed stat for pid %d", pid)
	}
	comm := text[start+1 : end]

	fields := strings.Fields(text[end+1:])
	// starttime is the 22nd stat field; 19 after pid, comm, and state.
	if len(fields) < 20 {
		return "", 0, fmt.Errorf("short stat for pid %d", pid)
	}
	ticks, err := strconv.ParseUint(fields[19], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("parse start ticks for pid %d: %w", pid, err)
	}
	return comm, ticks, nil
}

// processRSS returns the resident set size of pid in bytes, zero when the
// process is gone.
func processRSS(pid int) int64 {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/statm", pid))
	if err != nil {
		return 0
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return 0
	}
	pages, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return pages * int64(os.Getpagesize())
}

func signalProcess(pid int, sig unix.Signal) error {
	return unix.Kill(pid, sig)
}

func processExists(pid int) bool {
	return unix.Kill(pid, 0) == nil
}
