package scheduler

import (
	"carebot/internal/eventbus"
	logx "carebot/pkg/logx"
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithLogger(log logx.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// WithClock replaces the wall clock. Tests pass clockwork.NewFakeClock().
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithBus publishes activity events (registration, runs, cancellation) on bus.
func WithBus(bus eventbus.Bus) Option {
	return func(s *Scheduler) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithContext sets the parent context of every activity. Cancelling it has
// the same effect on the loops as Shutdown, without the wait.
func WithContext(ctx context.Context) Option {
	return func(s *Scheduler) {
		if ctx != nil {
			s.parent = ctx
		}
	}
}

// WithDefaultBackoff applies b to every activity registered without its own
// WithFailureBackoff.
func WithDefaultBackoff(b FailureBackoff) Option {
	return func(s *Scheduler) { s.defaultBackoff = &b }
}

// ActivityOption configures a single activity.
type ActivityOption func(*activityCfg)

type activityCfg struct {
	backoff *FailureBackoff
}

// FailureBackoff stretches the wait after consecutive failures.
//
// The extra delay starts at Initial and grows by Multiplier up to Max; it is
// added on top of the interval and resets after the first success.
type FailureBackoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64 // 0.2 = ±20%
}

// WithFailureBackoff enables backoff for one activity. A zero Initial disables it.
func WithFailureBackoff(b FailureBackoff) ActivityOption {
	return func(c *activityCfg) { c.backoff = &b }
}

func (b FailureBackoff) build() backoff.BackOff {
	if b.Initial <= 0 {
		return nil
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = b.Initial
	eb.MaxInterval = b.Max
	if eb.MaxInterval < b.Initial {
		eb.MaxInterval = b.Initial
	}
	eb.Multiplier = b.Multiplier
	if eb.Multiplier < 1 {
		eb.Multiplier = 2
	}
	eb.RandomizationFactor = b.Jitter
	// Never give up: activities run until cancelled.
	eb.MaxElapsedTime = 0
	eb.Reset()
	return eb
}
