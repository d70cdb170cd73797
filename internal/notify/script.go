package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/kolapsis/pomo/internal/store"
)

// dialogTimeout bounds how long a notification command may block the worker.
// The command typically shows a dialog and waits for the user.
const dialogTimeout = 5 * time.Minute

// Script runs a user-configured shell command when an interval finishes.
// The interval is exposed through POMO_INTERVAL_ID and POMO_DURATION_SEC
// environment variables. If the command prints "completed" or "abandoned" as
// the first line of stdout, that is taken as the user's resolution; any other
// output means no resolution.
type Script struct {
	Command string
}

func (s *Script) IntervalFinished(iv *store.Interval) (store.Status, error) {
	if s.Command == "" {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialogTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", s.Command)
	cmd.Env = append(cmd.Environ(),
		"POMO_INTERVAL_ID="+iv.ID,
		"POMO_DURATION_SEC="+strconv.FormatInt(iv.DurationSec, 10),
	)

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("running notify command: %w", err)
	}

	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	switch store.Status(strings.TrimSpace(line)) {
	case store.StatusCompleted:
		return store.StatusCompleted, nil
	case store.StatusAbandoned:
		return store.StatusAbandoned, nil
	}
	if line != "" {
		slog.Debug("notify command produced no resolution", "output", line)
	}
	return "", nil
}
