// Package worker drives a running interval to completion. The loop is the
// sole owner of the running-to-finished transition and of heartbeat emission;
// it has no cancellation channel and learns to stop only by re-reading state
// each tick.
package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kolapsis/pomo/internal/notify"
	"github.com/kolapsis/pomo/internal/proc"
	"github.com/kolapsis/pomo/internal/store"
)

const (
	// DefaultTick is the polling cadence of the loop.
	DefaultTick = time.Second
	// HeartbeatIntervalSec is the minimum gap between heartbeat writes. The
	// heartbeat is the only signal that lets a later process distinguish
	// "worker alive but status stale" from "worker dead mid-segment".
	HeartbeatIntervalSec = 10
)

// Loop is the long-running driver for one running interval.
type Loop struct {
	Store    store.Store
	Notifier notify.Notifier
	PIDPath  string

	// Tick overrides the polling cadence; zero means DefaultTick.
	Tick time.Duration
	// Now overrides the clock; nil means time.Now. Tests inject fixed clocks.
	Now func() int64
}

// Run ticks until the interval finishes or is no longer running. It owns the
// PID file for its lifetime: written on entry, removed on every exit path.
func (l *Loop) Run(intervalID string) error {
	tick := l.Tick
	if tick == 0 {
		tick = DefaultTick
	}
	now := l.Now
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}

	if err := proc.WritePIDFile(l.PIDPath); err != nil {
		return fmt.Errorf("writing worker pid file: %w", err)
	}
	defer proc.RemovePIDFile(l.PIDPath)

	slog.Info("worker started", "interval_id", intervalID)

	var lastHeartbeat int64 // zero forces an immediate heartbeat on the first tick
	for {
		iv, err := l.Store.ByID(intervalID)
		if err != nil {
			return fmt.Errorf("fetching interval %s: %w", intervalID, err)
		}
		if iv == nil || iv.Status != store.StatusRunning {
			slog.Info("worker exiting: interval no longer running", "interval_id", intervalID)
			return nil
		}

		t := now()

		if t-lastHeartbeat >= HeartbeatIntervalSec {
			if err := l.Store.Heartbeat(intervalID, t); err != nil {
				return fmt.Errorf("writing heartbeat: %w", err)
			}
			lastHeartbeat = t
		}

		if iv.EffectiveWorked(t) >= iv.DurationSec {
			l.finish(iv, t, now)
			return nil
		}

		time.Sleep(tick)
	}
}

// finish attempts the finish transition, then consults the notification
// collaborator and applies any resolution it returns. Losing the finish race
// to another writer means another process owns the interval now; the worker
// exits without resolving.
func (l *Loop) finish(iv *store.Interval, now int64, clock func() int64) {
	if err := l.Store.Finish(iv.ID, now); err != nil {
		slog.Warn("finish race lost", "interval_id", iv.ID, "error", err)
		return
	}
	slog.Info("interval finished", "interval_id", iv.ID, "duration_sec", iv.DurationSec)

	resolution, err := l.Notifier.IntervalFinished(iv)
	if err != nil {
		slog.Error("notification failed", "interval_id", iv.ID, "error", err)
		return
	}
	if resolution == "" {
		return
	}

	// Re-read the clock: the user may have stared at the dialog for a while.
	if err := l.Store.Resolve(iv.ID, resolution, clock()); err != nil {
		slog.Warn("resolve after notification failed", "interval_id", iv.ID, "error", err)
		return
	}
	slog.Info("interval resolved", "interval_id", iv.ID, "resolution", string(resolution))
}
