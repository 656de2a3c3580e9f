//go:build !windows
// +build !windows

package instance

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// tcpListenState is the /proc/net/tcp "st" field value for a listening
// socket (see Documentation/networking/proc_net_tcp.txt).
const tcpListenState = "0A"

// GetProcessUsingPort attempts to find which process is using a given
// port by reading /proc/net/tcp(6) for the listening socket's inode, then
// scanning /proc/<pid>/fd for the descriptor that owns it — the same
// /proc-walking idiom GetProcessName/GetProcessStartTime use in unix.go,
// generalized from reading one process' own files to scanning all of
// them. Returns PID of the process, or 0 if not found.
func GetProcessUsingPort(port int) (int, error) {
	inode, err := findListeningInode(port)
	if err != nil {
		return 0, err
	}

	entries, err := os.ReadDir("/proc")
	if err != nil {
		return 0, fmt.Errorf("failed to read /proc: %w", err)
	}

	target := fmt.Sprintf("socket:[%s]", inode)
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		fds, err := os.ReadDir(fmt.Sprintf("/proc/%d/fd", pid))
		if err != nil {
			continue // process exited or we lack permission; not an error worth surfacing
		}
		for _, fd := range fds {
			link, err := os.Readlink(fmt.Sprintf("/proc/%d/fd/%s", pid, fd.Name()))
			if err != nil {
				continue
			}
			if link == target {
				return pid, nil
			}
		}
	}

	return 0, fmt.Errorf("no process found listening on port %d", port)
}

// findListeningInode scans /proc/net/tcp and /proc/net/tcp6 for a socket
// bound to port in the LISTEN state and returns its inode.
func findListeningInode(port int) (string, error) {
	wantHex := strings.ToUpper(strconv.FormatInt(int64(port), 16))

	for _, path := range []string{"/proc/net/tcp", "/proc/net/tcp6"} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		lines := strings.Split(string(data), "\n")
		for _, line := range lines[1:] { // first line is the column header
			fields := strings.Fields(line)
			if len(fields) < 10 {
				continue
			}
			localAddr := fields[1] // "<ip-hex>:<port-hex>"
			state := fields[3]
			parts := strings.Split(localAddr, ":")
			if len(parts) != 2 || parts[1] != wantHex {
				continue
			}
			if state != tcpListenState {
				continue
			}
			return fields[9], nil
		}
	}

	return "", fmt.Errorf("no listening socket found for port %d", port)
}
