// Package recovery reconciles a running interval whose worker process died
// mid-segment. It runs once, synchronously, before any user-facing command
// other than the worker and tray entry points themselves.
package recovery

import (
	"fmt"
	"log/slog"

	"github.com/kolapsis/pomo/internal/proc"
	"github.com/kolapsis/pomo/internal/store"
)

// StartupGraceSec covers worker launch, store opening, and the first
// heartbeat write. Recovery skips fresh intervals inside this window when no
// heartbeat was ever written, to avoid racing a worker that is still starting.
const StartupGraceSec = 15

// Scanner detects and repairs stale running intervals.
type Scanner struct {
	Store store.Store

	// WorkerPIDPath is the worker's PID file; WorkerCommand is the token the
	// liveness identity probe expects in the process table entry.
	WorkerPIDPath string
	WorkerCommand string
}

// Scan fetches the latest interval and, if it is running with a dead worker,
// applies the recover transition and removes the stale PID file. A live
// worker or a non-running interval is a no-op.
func (s *Scanner) Scan(now int64) error {
	iv, err := s.Store.Latest()
	if err != nil {
		return fmt.Errorf("fetching latest interval: %w", err)
	}
	if iv == nil || iv.Status != store.StatusRunning {
		return nil
	}

	if proc.IsAlive(s.WorkerPIDPath, s.WorkerCommand) {
		return nil
	}

	if iv.HeartbeatAt == 0 && iv.RunStartedAt != 0 && now-iv.RunStartedAt < StartupGraceSec {
		slog.Debug("skipping recovery for fresh interval",
			"interval_id", iv.ID,
			"age_sec", now-iv.RunStartedAt)
		return nil
	}

	if err := s.Store.Recover(iv.ID, now); err != nil {
		return fmt.Errorf("recovering interval %s: %w", iv.ID, err)
	}
	slog.Warn("recovered stale interval", "interval_id", iv.ID)

	proc.RemovePIDFile(s.WorkerPIDPath)
	return nil
}
