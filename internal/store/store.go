// Package store owns the durable interval schema and the state machine
// governing interval transitions. Every mutation is a status-guarded
// compare-and-swap: concurrent writers race on the expected prior status and
// losers observe ErrConflict instead of partial state.
package store

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of an interval.
type Status string

const (
	StatusRunning     Status = "running"
	StatusPaused      Status = "paused"
	StatusFinished    Status = "finished"
	StatusCompleted   Status = "completed"
	StatusAbandoned   Status = "abandoned"
	StatusCancelled   Status = "cancelled"
	StatusInterrupted Status = "interrupted"
)

// ActiveStatuses are the states counted toward the single-active-interval
// constraint. completed, abandoned, and cancelled are terminal and exempt.
var ActiveStatuses = map[Status]bool{
	StatusRunning:     true,
	StatusPaused:      true,
	StatusInterrupted: true,
	StatusFinished:    true,
}

// IsActive reports whether s still holds the uniqueness constraint.
func (s Status) IsActive() bool {
	return ActiveStatuses[s]
}

// EventType labels a row in the append-only interval_events audit log.
type EventType string

const (
	EventStarted     EventType = "started"
	EventPaused      EventType = "paused"
	EventResumed     EventType = "resumed"
	EventFinished    EventType = "finished"
	EventCompleted   EventType = "completed"
	EventAbandoned   EventType = "abandoned"
	EventCancelled   EventType = "cancelled"
	EventInterrupted EventType = "interrupted"
)

// Interval is one timed work session. Timestamps are Unix seconds.
// RunStartedAt and HeartbeatAt are zero whenever the interval is not running.
type Interval struct {
	ID           string
	Status       Status
	DurationSec  int64
	WorkedSec    int64
	StartedAt    int64
	EndedAt      int64
	RunStartedAt int64
	HeartbeatAt  int64
}

// EffectiveWorked returns worked seconds including the current running
// segment, capped at DurationSec. For any non-running status it is WorkedSec.
func (iv *Interval) EffectiveWorked(now int64) int64 {
	if iv.Status == StatusRunning && iv.RunStartedAt != 0 {
		return min(iv.WorkedSec+(now-iv.RunStartedAt), iv.DurationSec)
	}
	return iv.WorkedSec
}

// Remaining returns seconds left until the interval reaches its target length.
func (iv *Interval) Remaining(now int64) int64 {
	return max(0, iv.DurationSec-iv.EffectiveWorked(now))
}

// Event is one row of the append-only audit log.
type Event struct {
	ID         int64
	IntervalID string
	EventType  EventType
	EventAt    int64
}

// DailyCount is a per-local-calendar-day completed interval count.
type DailyCount struct {
	Date      string
	Completed int
}

// ErrConflict is returned when a status-guarded mutation matched zero rows:
// the interval was modified concurrently or is not in a state the operation
// applies to. Callers decide whether that is fatal; the store never retries.
var ErrConflict = errors.New("interval was modified concurrently or is not in an applicable state")

// ActiveIntervalError is returned by Start when an active interval already
// exists. It carries the conflicting interval for display when known.
type ActiveIntervalError struct {
	Existing *Interval
}

func (e *ActiveIntervalError) Error() string {
	if e.Existing == nil {
		return "an active interval already exists"
	}
	return fmt.Sprintf("an active interval already exists: id=%s status=%s", e.Existing.ID, e.Existing.Status)
}

// Store is the persistence interface for the interval engine.
// Defined at the consumer side per Go conventions. Callers always pass now
// explicitly; the store never reads the clock.
type Store interface {
	// Mutations. Each is a single atomic conditional transition that also
	// appends exactly one event row, except Heartbeat which emits no event.
	Start(durationSec, now int64) (*Interval, error)
	Pause(id string, now int64) error
	Resume(id string, now int64) error
	Cancel(id string, now int64) error
	Finish(id string, now int64) error
	Resolve(id string, resolution Status, now int64) error
	Heartbeat(id string, now int64) error
	Recover(id string, now int64) error

	// Reads. Latest and ByID return (nil, nil) when no row matches.
	Latest() (*Interval, error)
	ByID(id string) (*Interval, error)
	Recent(limit int) ([]Interval, error)
	Events(intervalID string, limit int) ([]Event, error)
	TodayCompletedCount(now int64) (int, error)
	DailyCompletedCounts(limit int) ([]DailyCount, error)

	Close() error
}
