// Package collector drives the polling pipeline: fetch the status page,
// parse it, normalize it, write the point. Cycles run strictly one at a
// time off a fixed-interval ticker; a cycle that overruns its interval
// is followed by the one buffered tick, further missed ticks are
// dropped. A failed cycle is logged, counted, and left behind.
package collector

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/solarflux/solarflux/internal/influx"
	"github.com/solarflux/solarflux/internal/inverter"
	"github.com/solarflux/solarflux/internal/reading"
	"github.com/solarflux/solarflux/internal/retry"
)

// ErrPersistentAuthFailure is returned by Run when credentials were
// rejected on enough consecutive cycles that retrying further would
// only lock the account out. The process should exit.
var ErrPersistentAuthFailure = errors.New("authentication rejected on consecutive cycles")

const defaultAuthFailureLimit = 3

// Config wires a Collector.
type Config struct {
	Fetcher  Fetcher
	Writer   Writer
	Retry    *retry.Policy
	Reporter Reporter // optional
	Logger   *logrus.Entry
	Clock    Clock // optional, system clock when nil

	Interval time.Duration

	// Consecutive auth-rejected cycles tolerated before Run gives up.
	AuthFailureLimit int
}

// Collector owns the cycle loop. All fields are confined to the
// goroutine running Run.
type Collector struct {
	fetcher   Fetcher
	writer    Writer
	retry     *retry.Policy
	reporter  Reporter
	logger    *logrus.Entry
	clock     Clock
	interval  time.Duration
	authLimit int

	state      State
	authStreak int
}

func New(cfg Config) *Collector {
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.AuthFailureLimit <= 0 {
		cfg.AuthFailureLimit = defaultAuthFailureLimit
	}
	return &Collector{
		fetcher:   cfg.Fetcher,
		writer:    cfg.Writer,
		retry:     cfg.Retry,
		reporter:  cfg.Reporter,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
		interval:  cfg.Interval,
		authLimit: cfg.AuthFailureLimit,
	}
}

// Run executes cycles until ctx is canceled (returns ctx.Err()) or
// authentication keeps failing (returns ErrPersistentAuthFailure).
// The first cycle starts one interval after Run is called.
func (c *Collector) Run(ctx context.Context) error {
	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.WithField("interval", c.interval.String()).Info("Collector started")

	for {
		c.state = StateWaiting
		select {
		case <-ctx.Done():
			c.logger.Info("Collector stopped")
			return ctx.Err()
		case <-ticker.Chan():
		}

		rec, err := c.runCycle(ctx)
		if err != nil {
			c.logger.Info("Collector stopped mid-cycle")
			return err
		}

		if isAuthRejected(rec.Err) {
			c.authStreak++
			if c.authStreak >= c.authLimit {
				c.logger.WithField("consecutive_rejections", c.authStreak).
					Error("Credentials rejected on consecutive cycles, giving up")
				return ErrPersistentAuthFailure
			}
		} else {
			c.authStreak = 0
		}
	}
}

// runCycle performs one pass through the pipeline. The returned error is
// non-nil only for cancellation; pipeline failures land in the record.
func (c *Collector) runCycle(ctx context.Context) (CycleRecord, error) {
	rec := CycleRecord{
		ID:      uuid.New(),
		Start:   c.clock.Now(),
		Outcome: OutcomeSuccess,
		Stage:   StateReporting,
	}
	log := c.logger.WithField("cycle_id", rec.ID.String())

	if err := c.pipeline(ctx, log, &rec); err != nil {
		return rec, err
	}

	if err := c.setState(ctx, log, StateReporting); err != nil {
		return rec, err
	}
	rec.Duration = c.clock.Now().Sub(rec.Start)
	c.report(log, rec)
	return rec, nil
}

func (c *Collector) pipeline(ctx context.Context, log *logrus.Entry, rec *CycleRecord) error {
	if err := c.setState(ctx, log, StateFetching); err != nil {
		return err
	}
	var payload []byte
	err := c.retry.Do(ctx, "fetch", func(ctx context.Context) error {
		var ferr error
		payload, ferr = c.fetcher.Fetch(ctx)
		return ferr
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rec.fail(StateFetching, OutcomeFetchFailed, err)
		return nil
	}

	if err := c.setState(ctx, log, StateParsing); err != nil {
		return err
	}
	raw, err := inverter.Parse(payload)
	if err != nil {
		rec.fail(StateParsing, OutcomeParseFailed, err)
		return nil
	}

	if err := c.setState(ctx, log, StateNormalizing); err != nil {
		return err
	}
	r, err := reading.Normalize(raw)
	if err != nil {
		rec.fail(StateNormalizing, OutcomeParseFailed, err)
		return nil
	}

	if err := c.setState(ctx, log, StateWriting); err != nil {
		return err
	}
	err = c.retry.Do(ctx, "write", func(ctx context.Context) error {
		return c.writer.Write(ctx, r)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rec.fail(StateWriting, OutcomeWriteFailed, err)
	}
	return nil
}

// setState advances the cycle state machine. Cancellation is checked at
// every transition so shutdown never waits on a stage it can skip.
func (c *Collector) setState(ctx context.Context, log *logrus.Entry, s State) error {
	if err := ctx.Err(); err != nil {
		log.WithField("state", s.String()).Debug("Cycle abandoned at state transition")
		return err
	}
	c.state = s
	log.WithField("state", s.String()).Debug("State transition")
	return nil
}

func (c *Collector) report(log *logrus.Entry, rec CycleRecord) {
	fields := logrus.Fields{
		"outcome":  rec.Outcome.String(),
		"duration": rec.Duration.String(),
	}

	switch {
	case rec.Err == nil:
		log.WithFields(fields).Info("Cycle complete")
	case retry.IsTransient(rec.Err):
		fields["stage"] = rec.Stage.String()
		fields["error"] = rec.Err.Error()
		log.WithFields(fields).Warn("Cycle failed")
	default:
		fields["stage"] = rec.Stage.String()
		fields["error"] = rec.Err.Error()
		log.WithFields(fields).Error("Cycle failed")
	}

	if c.reporter != nil {
		c.reporter.Record(rec)
	}
}

func (rec *CycleRecord) fail(stage State, outcome Outcome, err error) {
	rec.Stage = stage
	rec.Outcome = outcome
	rec.Err = err
}

// isAuthRejected matches credential rejections from either end of the
// pipeline; these feed the persistent failure counter.
func isAuthRejected(err error) bool {
	var ferr *inverter.FetchError
	if errors.As(err, &ferr) {
		return ferr.Kind == inverter.FetchAuthRejected
	}
	var werr *influx.WriteError
	if errors.As(err, &werr) {
		return werr.Kind == influx.WriteAuthRejected
	}
	return false
}
