package recovery

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolapsis/pomo/internal/proc"
	"github.com/kolapsis/pomo/internal/store"
)

func newScanner(t *testing.T) (*Scanner, *store.SQLiteStore, string) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	pidPath := filepath.Join(t.TempDir(), "worker.pid")
	return &Scanner{
		Store:         s,
		WorkerPIDPath: pidPath,
		WorkerCommand: "pomo",
	}, s, pidPath
}

func TestScan_NoIntervals_Noop(t *testing.T) {
	t.Parallel()
	sc, _, _ := newScanner(t)

	require.NoError(t, sc.Scan(time.Now().Unix()))
}

func TestScan_NotRunning_Noop(t *testing.T) {
	t.Parallel()
	sc, s, _ := newScanner(t)

	t0 := time.Now().Unix()
	iv, err := s.Start(1500, t0)
	require.NoError(t, err)
	require.NoError(t, s.Pause(iv.ID, t0+10))

	require.NoError(t, sc.Scan(t0+60))

	got, err := s.ByID(iv.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPaused, got.Status)
}

func TestScan_DeadWorker_RecoversFromHeartbeat(t *testing.T) {
	t.Parallel()
	sc, s, pidPath := newScanner(t)

	t0 := time.Now().Unix()
	iv, err := s.Start(60, t0)
	require.NoError(t, err)
	require.NoError(t, s.Heartbeat(iv.ID, t0+10))

	// Stale PID file from a worker that no longer exists.
	require.NoError(t, os.WriteFile(pidPath, []byte("999999"), 0600))

	require.NoError(t, sc.Scan(t0+40))

	got, err := s.ByID(iv.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusInterrupted, got.Status)
	assert.Equal(t, int64(10), got.WorkedSec)

	_, statErr := os.Stat(pidPath)
	assert.True(t, os.IsNotExist(statErr), "stale pid file must be removed")
}

func TestScan_FreshIntervalWithoutHeartbeat_GracePeriod(t *testing.T) {
	t.Parallel()
	sc, s, _ := newScanner(t)

	t0 := time.Now().Unix()
	iv, err := s.Start(1500, t0)
	require.NoError(t, err)

	// No PID file, no heartbeat, but still inside the startup grace window:
	// the worker may simply not have come up yet.
	require.NoError(t, sc.Scan(t0+StartupGraceSec-1))

	got, err := s.ByID(iv.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusRunning, got.Status)
}

func TestScan_StaleIntervalWithoutHeartbeat_NoCredit(t *testing.T) {
	t.Parallel()
	sc, s, _ := newScanner(t)

	t0 := time.Now().Unix()
	iv, err := s.Start(1500, t0)
	require.NoError(t, err)

	require.NoError(t, sc.Scan(t0+StartupGraceSec+5))

	got, err := s.ByID(iv.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusInterrupted, got.Status)
	assert.Equal(t, int64(0), got.WorkedSec, "no heartbeat means no credit for the segment")
}

func TestScan_LiveWorker_Noop(t *testing.T) {
	t.Parallel()
	sc, s, pidPath := newScanner(t)

	t0 := time.Now().Unix()
	iv, err := s.Start(1500, t0)
	require.NoError(t, err)

	// Use the test process itself as the "worker".
	require.NoError(t, os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0600))
	name := strings.ToLower(filepath.Base(os.Args[0]))
	if len(name) > 10 {
		name = name[:10]
	}
	sc.WorkerCommand = name

	require.NoError(t, sc.Scan(t0+120))

	got, err := s.ByID(iv.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusRunning, got.Status)
	assert.True(t, proc.IsAlive(pidPath, name), "pid file must remain")
}
