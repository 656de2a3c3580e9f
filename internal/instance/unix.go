//go:build !windows
// +build !windows

package instance

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// processExeName is the executable name CheckExistingInstance verifies a
// surviving PID against, to detect PID reuse by an unrelated process.
const processExeName = "vibe-ensembled"

// IsProcessRunning checks if a process with the given PID is running
// and verifies it's actually our own binary (not a PID reuse). Signal 0
// only probes existence/permission; it delivers nothing to the target.
func IsProcessRunning(pid int) (bool, error) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}

	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return false, nil
	}

	name, err := GetProcessName(pid)
	if err != nil {
		// Can't get name, assume it's running since the signal succeeded
		return true, nil
	}

	return strings.EqualFold(name, processExeName), nil
}

// GetProcessName retrieves the executable name for a given PID by reading
// the /proc/<pid>/exe symlink (Linux) or falling back to /proc/<pid>/cmdline.
func GetProcessName(pid int) (string, error) {
	exePath, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err == nil {
		return filepath.Base(exePath), nil
	}

	cmdline, err := os.ReadFile(fmt.Sprintf("/proc/%d/cmdline", pid))
	if err != nil {
		return "", fmt.Errorf("failed to read process info for PID %d: %w", pid, err)
	}

	fields := strings.Split(string(cmdline), "\x00")
	if len(fields) == 0 || fields[0] == "" {
		return "", fmt.Errorf("process not found")
	}

	return filepath.Base(fields[0]), nil
}

// GetProcessStartTime approximates a process's start time by the modification
// time of its /proc/<pid> directory. If /proc/<pid>/stat cannot be read (no
// such process, or a platform without /proc such as darwin), it returns the
// zero time and a nil error.
func GetProcessStartTime(pid int) (time.Time, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return time.Time{}, nil
	}

	info, err := os.Stat(fmt.Sprintf("/proc/%d", pid))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to stat process %d: %w", pid, err)
	}

	_ = data // stat field parsing is intentionally not needed beyond directory mtime
	return info.ModTime(), nil
}

// KillProcess forcefully terminates a process
func KillProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to kill process %d: %w", pid, err)
	}
	return nil
}
