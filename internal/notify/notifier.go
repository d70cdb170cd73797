// Package notify delivers the end-of-interval notification and collects the
// user's optional resolution. The worker loop consults it exactly once, at
// the finish transition.
package notify

import "github.com/kolapsis/pomo/internal/store"

// Notifier is the notification collaborator. IntervalFinished may return a
// resolution (StatusCompleted or StatusAbandoned) chosen by the user, or ""
// when the user made no immediate decision.
type Notifier interface {
	IntervalFinished(iv *store.Interval) (store.Status, error)
}

// Noop never notifies and never resolves.
type Noop struct{}

func (Noop) IntervalFinished(*store.Interval) (store.Status, error) {
	return "", nil
}
