package worker

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolapsis/pomo/internal/store"
)

// fakeNotifier records the finished interval and replies with a canned
// resolution.
type fakeNotifier struct {
	resolution store.Status
	calls      int
	lastID     string
}

func (f *fakeNotifier) IntervalFinished(iv *store.Interval) (store.Status, error) {
	f.calls++
	f.lastID = iv.ID
	return f.resolution, nil
}

// tickingClock returns a clock that advances one second per call, starting
// one second after base.
func tickingClock(base int64) func() int64 {
	var n int64
	return func() int64 {
		return base + atomic.AddInt64(&n, 1)
	}
}

func newTestLoop(t *testing.T, n *fakeNotifier, base int64) (*Loop, *store.SQLiteStore, string) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	pidPath := filepath.Join(t.TempDir(), "worker.pid")
	return &Loop{
		Store:    s,
		Notifier: n,
		PIDPath:  pidPath,
		Tick:     time.Millisecond,
		Now:      tickingClock(base),
	}, s, pidPath
}

func TestRun_FinishesAndResolves(t *testing.T) {
	t.Parallel()

	t0 := time.Now().Unix()
	n := &fakeNotifier{resolution: store.StatusCompleted}
	loop, s, pidPath := newTestLoop(t, n, t0)

	iv, err := s.Start(3, t0)
	require.NoError(t, err)

	require.NoError(t, loop.Run(iv.ID))

	got, err := s.ByID(iv.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
	assert.Equal(t, int64(3), got.WorkedSec)
	assert.Equal(t, t0+3, got.EndedAt, "ended_at marks when the timer elapsed")

	assert.Equal(t, 1, n.calls)
	assert.Equal(t, iv.ID, n.lastID)

	_, statErr := os.Stat(pidPath)
	assert.True(t, os.IsNotExist(statErr), "pid file must be removed on exit")
}

func TestRun_NoResolutionLeavesFinished(t *testing.T) {
	t.Parallel()

	t0 := time.Now().Unix()
	n := &fakeNotifier{} // replies with no resolution
	loop, s, _ := newTestLoop(t, n, t0)

	iv, err := s.Start(3, t0)
	require.NoError(t, err)

	require.NoError(t, loop.Run(iv.ID))

	got, err := s.ByID(iv.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFinished, got.Status, "interval awaits an explicit finish command")
	assert.Equal(t, t0+3, got.EndedAt)
	assert.Equal(t, 1, n.calls)
}

func TestRun_ExitsWhenNotRunning(t *testing.T) {
	t.Parallel()

	t0 := time.Now().Unix()
	n := &fakeNotifier{resolution: store.StatusCompleted}
	loop, s, pidPath := newTestLoop(t, n, t0)

	iv, err := s.Start(1500, t0)
	require.NoError(t, err)
	require.NoError(t, s.Pause(iv.ID, t0))

	require.NoError(t, loop.Run(iv.ID))

	got, err := s.ByID(iv.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPaused, got.Status)
	assert.Zero(t, n.calls, "notifier must not fire for a non-finished interval")

	_, statErr := os.Stat(pidPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_ExitsOnUnknownInterval(t *testing.T) {
	t.Parallel()

	t0 := time.Now().Unix()
	n := &fakeNotifier{}
	loop, _, pidPath := newTestLoop(t, n, t0)

	require.NoError(t, loop.Run("no-such-interval"))
	assert.Zero(t, n.calls)

	_, statErr := os.Stat(pidPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_WritesHeartbeat(t *testing.T) {
	t.Parallel()

	t0 := time.Now().Unix()
	n := &fakeNotifier{} // no resolution, so heartbeat state survives until Finish clears it
	loop, s, _ := newTestLoop(t, n, t0)

	iv, err := s.Start(3, t0)
	require.NoError(t, err)

	require.NoError(t, loop.Run(iv.ID))

	// The first tick heartbeats immediately; Finish then clears the liveness
	// columns along with run_started_at.
	got, err := s.ByID(iv.ID)
	require.NoError(t, err)
	assert.Zero(t, got.HeartbeatAt)
	assert.Zero(t, got.RunStartedAt)
}
