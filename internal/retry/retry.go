// Package retry bounds the attempts made against the inverter and the
// store within a single collection cycle.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Policy retries transient failures with capped exponential backoff.
// A transient operation is attempted at most MaxAttempts times; a
// non-transient failure gets exactly one attempt. Delays carry no
// jitter, so the sequence is deterministic and non-decreasing.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	Logger *logrus.Entry
	// OnRetry is invoked before each backoff wait, with the operation name.
	OnRetry func(op string)

	timer backoff.Timer
}

// NewPolicy returns a Policy with the collector's defaults.
func NewPolicy(maxAttempts int, logger *logrus.Entry) *Policy {
	return &Policy{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		Logger:       logger,
	}
}

// Do runs fn until it succeeds, returns a non-transient error, exhausts
// MaxAttempts, or ctx is canceled. The error returned is fn's own last
// error (or ctx.Err() when canceled mid-wait), never a wrapper.
func (p *Policy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialDelay
	eb.MaxInterval = p.MaxDelay
	eb.Multiplier = p.Multiplier
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0

	attempt := 0
	operation := func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, delay time.Duration) {
		if p.Logger != nil {
			p.Logger.WithFields(logrus.Fields{
				"operation": op,
				"attempt":   attempt,
				"delay":     delay.String(),
				"error":     err.Error(),
			}).Warn("Transient failure, retrying")
		}
		if p.OnRetry != nil {
			p.OnRetry(op)
		}
	}

	b := backoff.WithMaxRetries(backoff.WithContext(eb, ctx), uint64(attempts-1))
	return backoff.RetryNotifyWithTimer(operation, b, notify, p.timer)
}

// IsTransient reports whether err advertises itself as retryable.
// Errors without a Transient method (context errors included) are not.
func IsTransient(err error) bool {
	var t interface{ Transient() bool }
	return errors.As(err, &t) && t.Transient()
}
