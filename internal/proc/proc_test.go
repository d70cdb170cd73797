package proc

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testProcessToken returns a token the identity probe will find in the test
// process's own process-table entry. comm may be truncated, so keep it short.
func testProcessToken(t *testing.T) string {
	t.Helper()
	name := strings.ToLower(filepath.Base(os.Args[0]))
	if len(name) > 10 {
		name = name[:10]
	}
	return name
}

func TestWritePIDFile_Roundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "worker.pid")
	require.NoError(t, WritePIDFile(path))

	assert.Equal(t, os.Getpid(), ReadPID(path))

	// Atomic write leaves no temp files behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "worker.pid", entries[0].Name())
}

func TestReadPID_MissingFile(t *testing.T) {
	t.Parallel()

	assert.Zero(t, ReadPID(filepath.Join(t.TempDir(), "absent.pid")))
}

func TestReadPID_Garbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid\n"), 0600))
	assert.Zero(t, ReadPID(path))

	require.NoError(t, os.WriteFile(path, []byte("-4"), 0600))
	assert.Zero(t, ReadPID(path))
}

func TestRemovePIDFile_MissingIsFine(t *testing.T) {
	t.Parallel()

	RemovePIDFile(filepath.Join(t.TempDir(), "absent.pid"))
}

func TestIsAlive_OwnProcess(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "self.pid")
	require.NoError(t, WritePIDFile(path))

	assert.True(t, IsAlive(path, testProcessToken(t)))
}

func TestIsAlive_WrongCommand(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "self.pid")
	require.NoError(t, WritePIDFile(path))

	// The PID is alive but it is not the expected program: PID-reuse guard.
	assert.False(t, IsAlive(path, "definitely-not-this-binary"))
}

func TestIsAlive_DeadProcess(t *testing.T) {
	t.Parallel()

	// Run a short-lived child and probe its reaped PID.
	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())
	deadPID := cmd.ProcessState.Pid()

	path := filepath.Join(t.TempDir(), "dead.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(deadPID)), 0600))

	assert.False(t, IsAlive(path, testProcessToken(t)))
}

func TestIsAlive_NoFile(t *testing.T) {
	t.Parallel()

	assert.False(t, IsAlive(filepath.Join(t.TempDir(), "absent.pid"), "anything"))
}
