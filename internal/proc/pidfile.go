// Package proc handles PID files, process liveness probing, and spawning of
// detached worker/tray processes. PID files are single-writer-owned: the
// process that wrote one is the only legitimate remover, except the recovery
// scanner, which may remove a file whose owner is provably dead.
package proc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ReadPID reads a decimal PID from path. Returns 0 if the file is missing or
// does not contain a valid PID.
func ReadPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}

// WritePIDFile writes the current process id to path atomically
// (write-to-temp-then-rename) so readers never observe a partial write.
func WritePIDFile(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".")
	if err != nil {
		return fmt.Errorf("creating temp pid file: %w", err)
	}

	if _, err := tmp.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing pid: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("closing temp pid file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("renaming pid file: %w", err)
	}
	return nil
}

// RemovePIDFile deletes path. Best effort: a leftover file is caught by the
// liveness probe later.
func RemovePIDFile(path string) {
	_ = os.Remove(path)
}
