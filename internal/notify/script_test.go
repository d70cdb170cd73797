package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolapsis/pomo/internal/store"
)

func testInterval() *store.Interval {
	return &store.Interval{ID: "iv-1", Status: store.StatusFinished, DurationSec: 1500}
}

func TestScript_EmptyCommandIsNoop(t *testing.T) {
	t.Parallel()

	s := &Script{}
	resolution, err := s.IntervalFinished(testInterval())
	require.NoError(t, err)
	assert.Empty(t, resolution)
}

func TestScript_CompletedResolution(t *testing.T) {
	t.Parallel()

	s := &Script{Command: "echo completed"}
	resolution, err := s.IntervalFinished(testInterval())
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, resolution)
}

func TestScript_AbandonedResolution(t *testing.T) {
	t.Parallel()

	s := &Script{Command: "echo abandoned"}
	resolution, err := s.IntervalFinished(testInterval())
	require.NoError(t, err)
	assert.Equal(t, store.StatusAbandoned, resolution)
}

func TestScript_OnlyFirstLineCounts(t *testing.T) {
	t.Parallel()

	s := &Script{Command: "printf 'completed\\nabandoned\\n'"}
	resolution, err := s.IntervalFinished(testInterval())
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, resolution)
}

func TestScript_UnrecognizedOutputMeansNoResolution(t *testing.T) {
	t.Parallel()

	s := &Script{Command: "echo dismissed"}
	resolution, err := s.IntervalFinished(testInterval())
	require.NoError(t, err)
	assert.Empty(t, resolution)
}

func TestScript_IntervalExposedThroughEnv(t *testing.T) {
	t.Parallel()

	s := &Script{Command: `test "$POMO_INTERVAL_ID" = iv-1 && test "$POMO_DURATION_SEC" = 1500 && echo completed`}
	resolution, err := s.IntervalFinished(testInterval())
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, resolution)
}

func TestScript_CommandFailure(t *testing.T) {
	t.Parallel()

	s := &Script{Command: "exit 3"}
	resolution, err := s.IntervalFinished(testInterval())
	require.Error(t, err)
	assert.Empty(t, resolution)
}
