package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusResult_ZeroFieldsSurviveJSON(t *testing.T) {
	t.Parallel()

	// A just-started interval has worked zero seconds; a finished one has
	// zero remaining. Both must appear explicitly in the JSON.
	enc, err := json.Marshal(statusResult{
		IntervalID:  "iv-1",
		Status:      "running",
		DurationSec: 1500,
		WorkedSec:   0,
	})
	require.NoError(t, err)
	assert.Contains(t, string(enc), `"worked_sec":0`)
	assert.Contains(t, string(enc), `"remaining_sec":0`)
	assert.Contains(t, string(enc), `"duration_sec":1500`)

	enc, err = json.Marshal(statusResult{
		IntervalID:   "iv-1",
		Status:       "finished",
		DurationSec:  1500,
		WorkedSec:    1500,
		RemainingSec: 0,
	})
	require.NoError(t, err)
	assert.Contains(t, string(enc), `"remaining_sec":0`)
}

func TestVersionString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pomo "+version, versionString())
}
