// Package tray is the read-only polling core behind the status-display
// process. It never mutates the store; every refresh is an independent
// snapshot read.
package tray

import (
	"fmt"
	"time"

	"github.com/kolapsis/pomo/internal/store"
	"github.com/kolapsis/pomo/internal/timeutil"
)

// DefaultPollInterval is the refresh cadence of the display.
const DefaultPollInterval = 2 * time.Second

// Snapshot is what the display surface renders on each refresh.
type Snapshot struct {
	Interval       *store.Interval // nil when nothing is active
	EffectiveSec   int64
	RemainingSec   int64
	TodayCompleted int
}

// Title builds the one-glyph summary shown in the menu bar.
func (s Snapshot) Title() string {
	var icon string
	switch {
	case s.Interval == nil:
		icon = "◇" // idle
	case s.Interval.Status == store.StatusFinished:
		icon = "✓"
	case s.Interval.Status == store.StatusPaused || s.Interval.Status == store.StatusInterrupted:
		icon = "⏸"
	default:
		icon = "▶"
	}
	if s.TodayCompleted > 0 {
		return fmt.Sprintf("%s %d", icon, s.TodayCompleted)
	}
	return icon
}

// Detail renders a one-line human summary of the snapshot.
func (s Snapshot) Detail() string {
	if s.Interval == nil {
		return fmt.Sprintf("idle (today: %d completed)", s.TodayCompleted)
	}
	return fmt.Sprintf("%s %s worked, %s left (today: %d completed)",
		s.Interval.Status,
		timeutil.FormatMMSS(s.EffectiveSec),
		timeutil.FormatMMSS(s.RemainingSec),
		s.TodayCompleted)
}

// Poller polls the store at a fixed cadence and hands each snapshot to a
// render callback.
type Poller struct {
	Store    store.Store
	Render   func(Snapshot)
	Interval time.Duration // zero means DefaultPollInterval
	Now      func() int64  // nil means time.Now
}

// Snapshot performs one refresh read.
func (p *Poller) Snapshot(now int64) (Snapshot, error) {
	iv, err := p.Store.Latest()
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetching latest interval: %w", err)
	}
	today, err := p.Store.TodayCompletedCount(now)
	if err != nil {
		return Snapshot{}, fmt.Errorf("counting today's completed: %w", err)
	}

	snap := Snapshot{TodayCompleted: today}
	if iv != nil && iv.Status.IsActive() {
		snap.Interval = iv
		snap.EffectiveSec = iv.EffectiveWorked(now)
		snap.RemainingSec = iv.Remaining(now)
	}
	return snap, nil
}

// Run polls until stop is closed, rendering each snapshot. Read errors are
// rendered as the previous state being kept; they do not end the loop.
func (p *Poller) Run(stop <-chan struct{}) error {
	interval := p.Interval
	if interval == 0 {
		interval = DefaultPollInterval
	}
	now := p.Now
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap, err := p.Snapshot(now())
		if err == nil && p.Render != nil {
			p.Render(snap)
		}

		select {
		case <-stop:
			return nil
		case <-ticker.C:
		}
	}
}
