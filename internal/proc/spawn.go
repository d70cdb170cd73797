package proc

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// SpawnDetached re-executes the current binary with args in a new session,
// detached from the controlling terminal, with all stdio discarded. Returns
// the child PID. The child keeps running after the parent exits.
func SpawnDetached(args ...string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("resolving executable path: %w", err)
	}

	cmd := exec.Command(exe, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // new session, no controlling terminal
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("starting detached process: %w", err)
	}
	pid := cmd.Process.Pid

	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("releasing detached process: %w", err)
	}
	return pid, nil
}

// Terminate sends SIGTERM to the process recorded in the PID file.
// Returns false if no such process is running.
func Terminate(pidPath string) (int, bool) {
	pid := ReadPID(pidPath)
	if pid == 0 {
		return 0, false
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return pid, false
	}
	return pid, true
}
