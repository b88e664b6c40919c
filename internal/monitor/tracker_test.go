package monitor

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarflux/solarflux/internal/collector"
)

func successRecord(start time.Time) collector.CycleRecord {
	return collector.CycleRecord{
		ID:       uuid.New(),
		Start:    start,
		Duration: 120 * time.Millisecond,
		Outcome:  collector.OutcomeSuccess,
		Stage:    collector.StateReporting,
	}
}

func TestTrackerSnapshot(t *testing.T) {
	tr := NewTracker(NewMetrics(), time.Minute)

	start := time.Now().UTC()
	tr.Record(successRecord(start))
	tr.Record(collector.CycleRecord{
		ID:       uuid.New(),
		Start:    start.Add(time.Minute),
		Duration: 80 * time.Millisecond,
		Outcome:  collector.OutcomeWriteFailed,
		Stage:    collector.StateWriting,
		Err:      errors.New("write timeout"),
	})

	snap := tr.Snapshot()
	assert.Equal(t, int64(2), snap.Cycles)
	assert.Equal(t, int64(1), snap.Successes)
	assert.Equal(t, "write_failed", snap.LastOutcome)

	require.NotNil(t, snap.LastSuccess)
	assert.Equal(t, start.Add(120*time.Millisecond), *snap.LastSuccess)

	require.Len(t, snap.Recent, 2)
	assert.Equal(t, "write_failed", snap.Recent[0].Outcome, "newest first")
	assert.Equal(t, "writing", snap.Recent[0].Stage)
	assert.Equal(t, "write timeout", snap.Recent[0].Error)
	assert.Equal(t, "success", snap.Recent[1].Outcome)
	assert.Empty(t, snap.Recent[1].Stage)
	assert.Empty(t, snap.Recent[1].Error)
}

func TestTrackerRecentWindowBounded(t *testing.T) {
	tr := NewTracker(nil, time.Minute)

	for i := 0; i < recentCycles+8; i++ {
		tr.Record(successRecord(time.Now()))
	}

	snap := tr.Snapshot()
	assert.Len(t, snap.Recent, recentCycles)
	assert.Equal(t, int64(recentCycles+8), snap.Cycles)
}

func TestTrackerHealth(t *testing.T) {
	tr := NewTracker(nil, time.Minute)

	now := time.Now()
	tr.startedAt = now
	tr.now = func() time.Time { return now }

	assert.True(t, tr.Healthy(), "startup grace")

	now = now.Add(2 * time.Minute)
	assert.False(t, tr.Healthy(), "grace expired without a success")

	tr.Record(successRecord(now.Add(-10 * time.Second)))
	assert.True(t, tr.Healthy())

	now = now.Add(5 * time.Minute)
	assert.False(t, tr.Healthy(), "last success went stale")
}
