package monitor

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/solarflux/solarflux/internal/collector"
)

// recentCycles bounds the /status history window.
const recentCycles = 32

// Tracker keeps the operational view of the collector: totals, the most
// recent cycles, and the health verdict. It is the only state shared
// across goroutines; the collector writes while the HTTP surface reads.
type Tracker struct {
	mu sync.RWMutex

	metrics      *Metrics
	healthWindow time.Duration
	startedAt    time.Time
	now          func() time.Time

	cycles      int64
	successes   int64
	lastOutcome string
	lastSuccess time.Time

	// recent keeps the newest N records: keys are a monotone sequence,
	// so LRU eviction removes the oldest cycle.
	seq    uint64
	recent *lru.Cache
}

var _ collector.Reporter = (*Tracker)(nil)

// NewTracker creates a Tracker. healthWindow is how long /healthz stays
// green without a successful cycle; the same grace applies at startup.
func NewTracker(metrics *Metrics, healthWindow time.Duration) *Tracker {
	cache, _ := lru.New(recentCycles)
	return &Tracker{
		metrics:      metrics,
		healthWindow: healthWindow,
		startedAt:    time.Now().UTC(),
		now:          time.Now,
		recent:       cache,
	}
}

// CycleStatus is one cycle as presented by /status.
type CycleStatus struct {
	ID         string    `json:"id"`
	Start      time.Time `json:"start"`
	DurationMS int64     `json:"duration_ms"`
	Outcome    string    `json:"outcome"`
	Stage      string    `json:"stage,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Snapshot is the /status response body.
type Snapshot struct {
	StartedAt   time.Time     `json:"started_at"`
	Cycles      int64         `json:"cycles"`
	Successes   int64         `json:"successes"`
	LastOutcome string        `json:"last_outcome,omitempty"`
	LastSuccess *time.Time    `json:"last_success,omitempty"`
	Healthy     bool          `json:"healthy"`
	Recent      []CycleStatus `json:"recent"`
}

// Record implements collector.Reporter.
func (t *Tracker) Record(rec collector.CycleRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cycles++
	t.lastOutcome = rec.Outcome.String()

	if rec.Outcome == collector.OutcomeSuccess {
		t.successes++
		t.lastSuccess = rec.Start.Add(rec.Duration)
		if t.metrics != nil {
			t.metrics.lastSuccess.Set(float64(t.lastSuccess.Unix()))
		}
	}

	if t.metrics != nil {
		t.metrics.cycles.WithLabelValues(rec.Outcome.String()).Inc()
		t.metrics.duration.Observe(rec.Duration.Seconds())
	}

	status := CycleStatus{
		ID:         rec.ID.String(),
		Start:      rec.Start,
		DurationMS: rec.Duration.Milliseconds(),
		Outcome:    rec.Outcome.String(),
	}
	if rec.Err != nil {
		status.Stage = rec.Stage.String()
		status.Error = rec.Err.Error()
	}

	t.seq++
	t.recent.Add(t.seq, status)
}

// Healthy reports whether a successful cycle happened within the health
// window. A freshly started tracker gets the same window as grace.
func (t *Tracker) Healthy() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.healthyLocked()
}

func (t *Tracker) healthyLocked() bool {
	now := t.now()
	if !t.lastSuccess.IsZero() {
		return now.Sub(t.lastSuccess) <= t.healthWindow
	}
	return now.Sub(t.startedAt) <= t.healthWindow
}

// Snapshot returns the current status view, newest cycle first.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := Snapshot{
		StartedAt:   t.startedAt,
		Cycles:      t.cycles,
		Successes:   t.successes,
		LastOutcome: t.lastOutcome,
		Healthy:     t.healthyLocked(),
	}
	if !t.lastSuccess.IsZero() {
		ls := t.lastSuccess
		snap.LastSuccess = &ls
	}

	keys := t.recent.Keys()
	for i := len(keys) - 1; i >= 0; i-- {
		if v, ok := t.recent.Peek(keys[i]); ok {
			snap.Recent = append(snap.Recent, v.(CycleStatus))
		}
	}
	return snap
}
