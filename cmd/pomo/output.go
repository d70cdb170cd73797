package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/kolapsis/pomo/internal/store"
	"github.com/kolapsis/pomo/internal/timeutil"
)

// output renders command results in human-readable or JSON mode. JSON mode
// wraps every result in {"ok":true,"data":…} or {"ok":false,"error":…} so
// scripted callers never have to parse prose.
type output struct {
	jsonMode bool
}

func (o *output) success(data any, message string) {
	if o.jsonMode {
		enc, _ := json.Marshal(map[string]any{"ok": true, "data": data})
		fmt.Println(string(enc))
		return
	}
	fmt.Println(message)
}

// errorExit prints a structured error and exits with code 1.
func (o *output) errorExit(code, message string) {
	slog.Error("command error", "code", code, "message", message)
	if o.jsonMode {
		enc, _ := json.Marshal(map[string]any{"ok": false, "error": code, "message": message})
		fmt.Println(string(enc))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	}
	os.Exit(1)
}

// intervalErrorExit is errorExit with the conflicting interval for context.
func (o *output) intervalErrorExit(code, message string, iv *store.Interval) {
	if iv != nil {
		message = fmt.Sprintf("%s Latest interval: id=%s, status=%s.", message, iv.ID, iv.Status)
	}
	o.errorExit(code, message)
}

type startResult struct {
	IntervalID  string `json:"interval_id"`
	DurationSec int64  `json:"duration_sec"`
	StartedAt   int64  `json:"started_at"`
}

type pauseResult struct {
	IntervalID   string `json:"interval_id"`
	WorkedSec    int64  `json:"worked_sec"`
	RemainingSec int64  `json:"remaining_sec"`
}

type resumeResult struct {
	IntervalID   string `json:"interval_id"`
	WorkedSec    int64  `json:"worked_sec"`
	RemainingSec int64  `json:"remaining_sec"`
}

type cancelResult struct {
	IntervalID string `json:"interval_id"`
	WorkedSec  int64  `json:"worked_sec"`
}

type finishResult struct {
	IntervalID string `json:"interval_id"`
	Resolution string `json:"resolution"`
	WorkedSec  int64  `json:"worked_sec"`
}

type statusResult struct {
	IntervalID string `json:"interval_id,omitempty"`
	Status     string `json:"status,omitempty"`
	// The numeric fields never carry omitempty: a just-started interval
	// reports worked_sec 0 and a finished one remaining_sec 0, and scripted
	// consumers must be able to tell zero from absent.
	DurationSec    int64 `json:"duration_sec"`
	WorkedSec      int64 `json:"worked_sec"`
	RemainingSec   int64 `json:"remaining_sec"`
	StartedAt      int64 `json:"started_at,omitempty"`
	TodayCompleted int   `json:"today_completed"`
}

type historyItem struct {
	IntervalID  string `json:"interval_id"`
	Status      string `json:"status"`
	DurationSec int64  `json:"duration_sec"`
	WorkedSec   int64  `json:"worked_sec"`
	StartedAt   int64  `json:"started_at"`
}

type historyResult struct {
	Intervals []historyItem `json:"intervals"`
}

type dailyHistoryItem struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
}

type dailyHistoryResult struct {
	Days []dailyHistoryItem `json:"days"`
}

type trayResult struct {
	PID int `json:"pid"`
}

func (o *output) printStarted(r startResult) {
	o.success(r, fmt.Sprintf("Pomodoro started: %s.", timeutil.FormatMMSS(r.DurationSec)))
}

func (o *output) printPaused(r pauseResult) {
	o.success(r, fmt.Sprintf("Paused. Worked: %s, left: %s.",
		timeutil.FormatMMSS(r.WorkedSec), timeutil.FormatMMSS(r.RemainingSec)))
}

func (o *output) printResumed(r resumeResult) {
	o.success(r, fmt.Sprintf("Resumed. Worked: %s, left: %s.",
		timeutil.FormatMMSS(r.WorkedSec), timeutil.FormatMMSS(r.RemainingSec)))
}

func (o *output) printCancelled(r cancelResult) {
	o.success(r, fmt.Sprintf("Cancelled. Worked: %s.", timeutil.FormatMMSS(r.WorkedSec)))
}

func (o *output) printFinished(r finishResult) {
	o.success(r, fmt.Sprintf("Interval %s. Worked: %s.", r.Resolution, timeutil.FormatMMSS(r.WorkedSec)))
}

func (o *output) printStatus(r statusResult) {
	if r.Status == "" {
		o.success(r, fmt.Sprintf("No active interval. Today: %d completed.", r.TodayCompleted))
		return
	}
	o.success(r, fmt.Sprintf("%s: worked %s, left %s. Today: %d completed.",
		r.Status, timeutil.FormatMMSS(r.WorkedSec), timeutil.FormatMMSS(r.RemainingSec), r.TodayCompleted))
}

func (o *output) printHistory(r historyResult) {
	if o.jsonMode {
		o.success(r, "")
		return
	}
	if len(r.Intervals) == 0 {
		fmt.Println("No intervals yet.")
		return
	}
	for _, item := range r.Intervals {
		fmt.Printf("%s  %-11s  %s / %s\n",
			timeutil.FormatDateTime(item.StartedAt),
			item.Status,
			timeutil.FormatMMSS(item.WorkedSec),
			timeutil.FormatMMSS(item.DurationSec))
	}
}

func (o *output) printDailyHistory(r dailyHistoryResult) {
	if o.jsonMode {
		o.success(r, "")
		return
	}
	if len(r.Days) == 0 {
		fmt.Println("No completed intervals yet.")
		return
	}
	for _, day := range r.Days {
		fmt.Printf("%s  %d completed\n", day.Date, day.Completed)
	}
}

func (o *output) printTrayStarted(r trayResult) {
	o.success(r, fmt.Sprintf("Tray started (pid %d).", r.PID))
}

func (o *output) printTrayStopped(r trayResult) {
	o.success(r, fmt.Sprintf("Tray stopped (pid %d).", r.PID))
}
