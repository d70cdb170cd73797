package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kolapsis/pomo/internal/notify"
	"github.com/kolapsis/pomo/internal/proc"
	"github.com/kolapsis/pomo/internal/store"
	"github.com/kolapsis/pomo/internal/timeutil"
	"github.com/kolapsis/pomo/internal/tray"
	"github.com/kolapsis/pomo/internal/worker"
)

func (a *app) cmdStart(args []string) {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	_ = fs.Parse(args)

	raw := fs.Arg(0)
	if raw == "" {
		raw = a.cfg.Timer.DefaultDuration
	}
	durationSec, ok := timeutil.ParseDuration(raw)
	if !ok || durationSec <= 0 {
		a.out.errorExit("INVALID_DURATION",
			fmt.Sprintf("Invalid duration: %s. Examples: 25, 25m, 90s, 10m30s.", raw))
	}

	now := time.Now().Unix()
	iv, err := a.st.Start(durationSec, now)
	if err != nil {
		var active *store.ActiveIntervalError
		if errors.As(err, &active) {
			a.out.intervalErrorExit("ACTIVE_INTERVAL_EXISTS", "An active interval already exists.", active.Existing)
		}
		a.out.errorExit("STORE_ERROR", err.Error())
	}

	a.spawnWorker(iv.ID)

	slog.Info("interval started", "interval_id", iv.ID, "duration_sec", durationSec)
	a.out.printStarted(startResult{IntervalID: iv.ID, DurationSec: durationSec, StartedAt: now})
}

func (a *app) cmdPause(args []string) {
	_ = args

	iv := a.latest()
	if iv == nil || iv.Status != store.StatusRunning {
		a.out.intervalErrorExit("NOT_PAUSABLE", "No running interval to pause.", iv)
	}

	now := time.Now().Unix()
	if err := a.st.Pause(iv.ID, now); err != nil {
		a.conflictExit(err, iv.ID)
	}

	paused := a.byID(iv.ID)
	slog.Info("interval paused", "interval_id", iv.ID, "worked_sec", paused.WorkedSec)
	a.out.printPaused(pauseResult{
		IntervalID:   iv.ID,
		WorkedSec:    paused.WorkedSec,
		RemainingSec: paused.DurationSec - paused.WorkedSec,
	})
}

func (a *app) cmdResume(args []string) {
	_ = args

	iv := a.latest()
	if iv == nil || (iv.Status != store.StatusPaused && iv.Status != store.StatusInterrupted) {
		a.out.intervalErrorExit("NOT_RESUMABLE", "No paused or interrupted interval to resume.", iv)
	}

	now := time.Now().Unix()
	if err := a.st.Resume(iv.ID, now); err != nil {
		a.conflictExit(err, iv.ID)
	}

	a.spawnWorker(iv.ID)

	remaining := iv.DurationSec - iv.WorkedSec
	slog.Info("interval resumed", "interval_id", iv.ID, "worked_sec", iv.WorkedSec, "remaining_sec", remaining)
	a.out.printResumed(resumeResult{IntervalID: iv.ID, WorkedSec: iv.WorkedSec, RemainingSec: remaining})
}

func (a *app) cmdCancel(args []string) {
	_ = args

	iv := a.latest()
	if iv == nil || (iv.Status != store.StatusRunning && iv.Status != store.StatusPaused && iv.Status != store.StatusInterrupted) {
		a.out.intervalErrorExit("NOT_CANCELLABLE", "No active interval to cancel.", iv)
	}

	now := time.Now().Unix()
	if err := a.st.Cancel(iv.ID, now); err != nil {
		a.conflictExit(err, iv.ID)
	}

	cancelled := a.byID(iv.ID)
	slog.Info("interval cancelled", "interval_id", iv.ID, "worked_sec", cancelled.WorkedSec)
	a.out.printCancelled(cancelResult{IntervalID: iv.ID, WorkedSec: cancelled.WorkedSec})
}

func (a *app) cmdFinish(args []string) {
	fs := flag.NewFlagSet("finish", flag.ExitOnError)
	_ = fs.Parse(args)

	resolution := store.StatusCompleted
	if fs.Arg(0) != "" {
		resolution = store.Status(fs.Arg(0))
	}
	if resolution != store.StatusCompleted && resolution != store.StatusAbandoned {
		a.out.errorExit("INVALID_RESOLUTION",
			fmt.Sprintf("Invalid resolution: %s. Use completed or abandoned.", fs.Arg(0)))
	}

	iv := a.latest()
	if iv == nil || iv.Status != store.StatusFinished {
		a.out.intervalErrorExit("NOT_RESOLVABLE", "No finished interval awaiting resolution.", iv)
	}

	now := time.Now().Unix()
	if err := a.st.Resolve(iv.ID, resolution, now); err != nil {
		a.conflictExit(err, iv.ID)
	}

	slog.Info("interval resolved", "interval_id", iv.ID, "resolution", string(resolution))
	a.out.printFinished(finishResult{IntervalID: iv.ID, Resolution: string(resolution), WorkedSec: iv.WorkedSec})
}

func (a *app) cmdStatus(args []string) {
	_ = args

	now := time.Now().Unix()
	iv := a.latest()
	today, err := a.st.TodayCompletedCount(now)
	if err != nil {
		a.out.errorExit("STORE_ERROR", err.Error())
	}

	if iv == nil || !iv.Status.IsActive() {
		a.out.printStatus(statusResult{TodayCompleted: today})
		return
	}

	a.out.printStatus(statusResult{
		IntervalID:     iv.ID,
		Status:         string(iv.Status),
		DurationSec:    iv.DurationSec,
		WorkedSec:      iv.EffectiveWorked(now),
		RemainingSec:   iv.Remaining(now),
		StartedAt:      iv.StartedAt,
		TodayCompleted: today,
	})
}

func (a *app) cmdHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("n", 10, "maximum number of entries to show")
	daily := fs.Bool("daily", false, "show completed count per day")
	_ = fs.Parse(args)

	if *limit < 1 {
		*limit = 1
	}

	if *daily {
		counts, err := a.st.DailyCompletedCounts(*limit)
		if err != nil {
			a.out.errorExit("STORE_ERROR", err.Error())
		}
		r := dailyHistoryResult{Days: []dailyHistoryItem{}}
		for _, c := range counts {
			r.Days = append(r.Days, dailyHistoryItem{Date: c.Date, Completed: c.Completed})
		}
		a.out.printDailyHistory(r)
		return
	}

	intervals, err := a.st.Recent(*limit)
	if err != nil {
		a.out.errorExit("STORE_ERROR", err.Error())
	}

	now := time.Now().Unix()
	r := historyResult{Intervals: []historyItem{}}
	for i := range intervals {
		iv := &intervals[i]
		r.Intervals = append(r.Intervals, historyItem{
			IntervalID:  iv.ID,
			Status:      string(iv.Status),
			DurationSec: iv.DurationSec,
			WorkedSec:   iv.EffectiveWorked(now),
			StartedAt:   iv.StartedAt,
		})
	}
	a.out.printHistory(r)
}

func (a *app) cmdWorker(args []string) {
	if len(args) != 1 {
		a.out.errorExit("USAGE", "worker requires exactly one interval id")
	}

	loop := &worker.Loop{
		Store:    a.st,
		Notifier: &notify.Script{Command: a.cfg.Notify.Command},
		PIDPath:  a.cfg.WorkerPIDPath(),
	}
	if err := loop.Run(args[0]); err != nil {
		slog.Error("worker failed", "interval_id", args[0], "error", err)
		os.Exit(1)
	}
}

func (a *app) cmdTray(args []string) {
	fs := flag.NewFlagSet("tray", flag.ExitOnError)
	run := fs.Bool("run", false, "run the tray poller in the foreground (internal)")
	stop := fs.Bool("stop", false, "stop a running tray process")
	_ = fs.Parse(args)

	switch {
	case *run:
		a.runTray()
	case *stop:
		pid, ok := proc.Terminate(a.cfg.TrayPIDPath())
		if !ok {
			a.out.errorExit("TRAY_NOT_RUNNING", "No tray process is running.")
		}
		a.out.printTrayStopped(trayResult{PID: pid})
	default:
		if proc.IsAlive(a.cfg.TrayPIDPath(), processName) {
			a.out.errorExit("TRAY_ALREADY_RUNNING", "A tray process is already running.")
		}
		pid, err := proc.SpawnDetached("-data-dir", a.cfg.DataDir, "tray", "-run")
		if err != nil {
			a.out.errorExit("SPAWN_ERROR", err.Error())
		}
		a.out.printTrayStarted(trayResult{PID: pid})
	}
}

func (a *app) runTray() {
	if err := proc.WritePIDFile(a.cfg.TrayPIDPath()); err != nil {
		slog.Error("writing tray pid file", "error", err)
		os.Exit(1)
	}
	defer proc.RemovePIDFile(a.cfg.TrayPIDPath())

	stop := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		close(stop)
	}()

	poller := &tray.Poller{
		Store: a.st,
		Render: func(s tray.Snapshot) {
			fmt.Printf("%s  %s\n", s.Title(), s.Detail())
		},
	}
	if err := poller.Run(stop); err != nil {
		slog.Error("tray poller failed", "error", err)
		os.Exit(1)
	}
}

// spawnWorker launches the detached timer worker for an interval.
func (a *app) spawnWorker(intervalID string) {
	if _, err := proc.SpawnDetached("-data-dir", a.cfg.DataDir, "worker", intervalID); err != nil {
		// The interval is already persisted; the next command's recovery
		// scan will reconcile it if no worker ever comes up.
		slog.Error("spawning worker failed", "interval_id", intervalID, "error", err)
	}
}

// latest fetches the most recent interval, exiting on storage errors.
func (a *app) latest() *store.Interval {
	iv, err := a.st.Latest()
	if err != nil {
		a.out.errorExit("STORE_ERROR", err.Error())
	}
	return iv
}

// byID fetches an interval that is known to exist.
func (a *app) byID(id string) *store.Interval {
	iv, err := a.st.ByID(id)
	if err != nil || iv == nil {
		a.out.errorExit("STORE_ERROR", fmt.Sprintf("interval %s disappeared", id))
	}
	return iv
}

// conflictExit maps a failed CAS to the user-facing concurrency error.
func (a *app) conflictExit(err error, id string) {
	if errors.Is(err, store.ErrConflict) {
		slog.Warn("transition rejected: concurrent modification", "interval_id", id)
		a.out.errorExit("CONCURRENT_MODIFICATION", "Interval was modified concurrently.")
	}
	a.out.errorExit("STORE_ERROR", err.Error())
}
