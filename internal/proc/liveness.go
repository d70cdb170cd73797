package proc

import (
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// IsAlive reports whether the process recorded in the PID file at pidPath is
// running and looks like the expected program.
//
// The check is two-stage to guard against PID reuse after a crash: a signal-0
// probe proves a process with that id exists, then the process table entry
// must contain commandContains. A permission error on the signal probe is
// treated as "exists" (fail open, the permission boundary is not ours to
// resolve); only a definitive lookup failure counts as dead.
func IsAlive(pidPath, commandContains string) bool {
	pid := ReadPID(pidPath)
	if pid == 0 {
		return false
	}

	if err := syscall.Kill(pid, 0); err != nil {
		if !errors.Is(err, syscall.EPERM) {
			return false
		}
	}

	out, err := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "comm=").Output()
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(out)), strings.ToLower(commandContains))
}
