package scheduler

import (
	"carebot/internal/eventbus"
	logx "carebot/pkg/logx"
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Activity is one registered, repeating execution of a Work.
// Its interval never changes; Cancel is the only way to end it.
type Activity struct {
	id         string
	name       string
	interval   time.Duration
	work       Work
	registered time.Time

	sched   *Scheduler
	log     logx.Logger
	backoff backoff.BackOff // nil unless failure backoff is enabled

	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}

	mu    sync.Mutex
	stats Stats
}

// Stats are per-activity counters.
type Stats struct {
	Invocations         uint64
	Failures            uint64
	ConsecutiveFailures int
	LastStart           time.Time
	LastDuration        time.Duration
	LastError           string
	LastErrorAt         time.Time
}

// RunRecord describes one finished invocation. It is the Data of
// eventbus.TypeActivityRun events.
type RunRecord struct {
	ActivityID string
	Name       string
	Started    time.Time
	Duration   time.Duration
	Error      string
	Panicked   bool
	// Cancelled marks a run cut short by Cancel, CancelAll or Shutdown.
	// It is not a failure.
	Cancelled bool
}

func (r RunRecord) OK() bool { return r.Error == "" }

func (a *Activity) ID() string              { return a.id }
func (a *Activity) Name() string            { return a.name }
func (a *Activity) Interval() time.Duration { return a.interval }
func (a *Activity) Registered() time.Time   { return a.registered }

// Done is closed once the activity loop has returned.
func (a *Activity) Done() <-chan struct{} { return a.done }

func (a *Activity) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Cancel stops this activity and removes it from the scheduler. An in-flight
// invocation sees its context cancelled; no further invocation starts.
func (a *Activity) Cancel() {
	if a.sched.remove(a.id) {
		a.log.Info("activity cancelled")
	}
	a.stop()
}

func (a *Activity) stop() {
	a.stopOnce.Do(func() {
		a.cancel()
		a.sched.bus.Publish(eventbus.Event{Type: eventbus.TypeActivityCancelled, Data: a.id})
	})
}

func (a *Activity) run(ctx context.Context) error {
	defer close(a.done)
	// The loop also ends when the scheduler's parent context is cancelled;
	// drop out of the registry either way.
	defer func() {
		a.sched.remove(a.id)
		a.stop()
	}()
	clock := a.sched.clock
	for {
		if ctx.Err() != nil {
			return nil
		}
		err := a.invoke(ctx)

		t := clock.NewTimer(a.nextWait(err))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.Chan():
		}
	}
}

// invoke runs the work once. Errors and panics are logged and returned to the
// loop, never further.
func (a *Activity) invoke(ctx context.Context) (err error) {
	clock := a.sched.clock
	start := clock.Now()

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Value: r, Stack: string(debug.Stack())}
			}
		}()
		err = a.work.Invoke(ctx)
	}()
	took := clock.Since(start)

	rec := RunRecord{ActivityID: a.id, Name: a.name, Started: start, Duration: took}
	switch {
	case err == nil:
	case ctx.Err() != nil && errors.Is(err, context.Canceled):
		rec.Cancelled = true
	default:
		rec.Error = err.Error()
		var pe *PanicError
		rec.Panicked = errors.As(err, &pe)
	}
	a.record(rec)

	switch {
	case err == nil:
		a.log.Debug("activity invoked", logx.Duration("took", took))
	case rec.Cancelled:
		a.log.Debug("activity invocation interrupted by cancel", logx.Duration("took", took))
	default:
		a.log.Error("activity invocation failed",
			append([]logx.Field{logx.Duration("took", took)}, errorFields(err)...)...)
	}

	a.sched.bus.Publish(eventbus.Event{Type: eventbus.TypeActivityRun, Time: start, Data: rec})
	return err
}

func (a *Activity) record(rec RunRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.Invocations++
	a.stats.LastStart = rec.Started
	a.stats.LastDuration = rec.Duration
	if rec.Cancelled {
		return
	}
	if rec.OK() {
		a.stats.ConsecutiveFailures = 0
		return
	}
	a.stats.Failures++
	a.stats.ConsecutiveFailures++
	a.stats.LastError = rec.Error
	a.stats.LastErrorAt = rec.Started.Add(rec.Duration)
}

// nextWait is the interval, plus the failure backoff when enabled.
func (a *Activity) nextWait(err error) time.Duration {
	if a.backoff == nil {
		return a.interval
	}
	if err == nil {
		a.backoff.Reset()
		return a.interval
	}
	extra := a.backoff.NextBackOff()
	if extra == backoff.Stop {
		extra = 0
	}
	return a.interval + extra
}

// errorFields renders err with the panic site for recovered panics and
// otherwise with the stack logx.ErrStack finds.
func errorFields(err error) []logx.Field {
	var pe *PanicError
	if errors.As(err, &pe) {
		return []logx.Field{logx.Err(err), logx.Stack(pe.Stack)}
	}
	return []logx.Field{logx.ErrStack(err)}
}
