// Package probesession enforces exclusive access to a single debug probe:
// one worker may hold it for the lifetime of a session, and a second
// attach attempt while the first is live must fail rather than corrupt the
// target's debug state.
//
// Grounded on the stop-indicator idiom of marking CPU state with the
// presence of a sentinel file; here the sentinel is widened to carry the
// holding process's PID, so a stale lock left behind by a crashed session
// can be told apart from one a live process still holds.
package probesession

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// Lock represents an acquired exclusive hold on a probe identified by its
// connection target (e.g. a serial port path or TCP address).
type Lock struct {
	path string
}

func lockPath(probeAddr string) string {
	sanitized := strings.NewReplacer("/", "_", ":", "_", "\\", "_").Replace(probeAddr)
	return fmt.Sprintf(".%s.cm4gdbridge.lock", sanitized)
}

// Acquire creates an exclusive PID-stamped lock file for probeAddr. It
// fails if a lock already exists and its PID still refers to a live
// process; a lock left by a process that is no longer running is treated
// as stale and replaced.
func Acquire(probeAddr string) (*Lock, error) {
	path := lockPath(probeAddr)

	if holderPID, err := readLockPID(path); err == nil {
		if processAlive(holderPID) {
			return nil, fmt.Errorf("probe %s is already held by process %d", probeAddr, holderPID)
		}
		// Stale lock from a crashed or killed session: remove it.
		_ = os.Remove(path)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("probe %s is already held by another session: %w", probeAddr, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		os.Remove(path)
		return nil, err
	}

	return &Lock{path: path}, nil
}

// Release removes the lock file, making the probe available again.
func (l *Lock) Release() error {
	return os.Remove(l.path)
}

func readLockPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, err
	}
	return pid, nil
}

// processAlive reports whether pid refers to a running process, by sending
// the null signal (0): it performs existence and permission checks without
// affecting the target process, the standard POSIX liveness probe.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
