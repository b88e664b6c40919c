package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// instantTimer records requested delays and fires immediately.
type instantTimer struct {
	delays []time.Duration
	ch     chan time.Time
}

func newInstantTimer() *instantTimer {
	return &instantTimer{ch: make(chan time.Time, 1)}
}

func (t *instantTimer) Start(d time.Duration) {
	t.delays = append(t.delays, d)
	t.ch <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.ch }

type flakyErr struct {
	transient bool
}

func (e *flakyErr) Error() string   { return "flaky" }
func (e *flakyErr) Transient() bool { return e.transient }

func newTestPolicy(maxAttempts int) (*Policy, *instantTimer, *test.Hook) {
	logger, hook := test.NewNullLogger()
	timer := newInstantTimer()
	p := NewPolicy(maxAttempts, logger.WithField("component", "retry"))
	p.timer = timer
	return p, timer, hook
}

func TestPolicyExhaustsAttempts(t *testing.T) {
	p, timer, _ := newTestPolicy(4)
	p.MaxDelay = 2 * time.Second

	failure := &flakyErr{transient: true}
	calls := 0
	err := p.Do(context.Background(), "fetch", func(context.Context) error {
		calls++
		return failure
	})

	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 4, calls)

	// Deterministic, non-decreasing, capped at MaxDelay.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 2 * time.Second}, timer.delays)
}

func TestPolicySucceedsMidway(t *testing.T) {
	p, timer, hook := newTestPolicy(3)

	calls := 0
	err := p.Do(context.Background(), "fetch", func(context.Context) error {
		calls++
		if calls < 3 {
			return &flakyErr{transient: true}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, timer.delays, 2)

	warnings := hook.AllEntries()
	require.Len(t, warnings, 2)
	for _, e := range warnings {
		assert.Equal(t, logrus.WarnLevel, e.Level)
		assert.Equal(t, "fetch", e.Data["operation"])
	}
}

func TestPolicyNonTransientSingleAttempt(t *testing.T) {
	p, timer, hook := newTestPolicy(5)

	failure := &flakyErr{transient: false}
	calls := 0
	err := p.Do(context.Background(), "write", func(context.Context) error {
		calls++
		return failure
	})

	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 1, calls)
	assert.Empty(t, timer.delays)
	assert.Empty(t, hook.AllEntries())
}

func TestPolicySingleAttemptBudget(t *testing.T) {
	p, timer, _ := newTestPolicy(1)

	calls := 0
	err := p.Do(context.Background(), "fetch", func(context.Context) error {
		calls++
		return &flakyErr{transient: true}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, timer.delays)
}

func TestPolicyContextCanceled(t *testing.T) {
	p, _, _ := newTestPolicy(3)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Do(ctx, "fetch", func(context.Context) error {
		calls++
		cancel()
		return &flakyErr{transient: true}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "no further attempts after cancellation")
}

func TestPolicyOnRetryHook(t *testing.T) {
	p, _, _ := newTestPolicy(3)

	var ops []string
	p.OnRetry = func(op string) { ops = append(ops, op) }

	_ = p.Do(context.Background(), "write", func(context.Context) error {
		return &flakyErr{transient: true}
	})

	assert.Equal(t, []string{"write", "write"}, ops)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient classified error", &flakyErr{transient: true}, true},
		{"non-transient classified error", &flakyErr{transient: false}, false},
		{"wrapped transient error", fmt.Errorf("cycle: %w", &flakyErr{transient: true}), true},
		{"plain error", errors.New("boom"), false},
		{"context error", context.DeadlineExceeded, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
