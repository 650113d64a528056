package history

import (
	"carebot/internal/eventbus"
	"carebot/internal/storage"
	"carebot/internal/task/scheduler"
	logx "carebot/pkg/logx"
	"context"
	"time"
)

const (
	defaultBuffer       = 256
	defaultWriteTimeout = 5 * time.Second
)

// Recorder appends every run record published on the bus to a store.
type Recorder struct {
	store storage.Store
	log   logx.Logger

	ch    <-chan eventbus.Event
	unsub func()
}

// NewRecorder subscribes immediately so runs published before Run starts
// are buffered rather than lost.
func NewRecorder(store storage.Store, bus eventbus.Bus, log logx.Logger) *Recorder {
	if log.IsZero() {
		log = logx.Nop()
	}
	ch, unsub := bus.Subscribe(defaultBuffer)
	return &Recorder{
		store: store,
		log:   log.With(logx.String("comp", "history")),
		ch:    ch,
		unsub: unsub,
	}
}

// Run consumes events until ctx is done, then drains what is already
// buffered and unsubscribes.
func (r *Recorder) Run(ctx context.Context) error {
	defer r.unsub()
	for {
		select {
		case <-ctx.Done():
			r.drain()
			return nil
		case ev, ok := <-r.ch:
			if !ok {
				return nil
			}
			r.handle(ctx, ev)
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case ev, ok := <-r.ch:
			if !ok {
				return
			}
			r.handle(context.Background(), ev)
		default:
			return
		}
	}
}

func (r *Recorder) handle(ctx context.Context, ev eventbus.Event) {
	if ev.Type != eventbus.TypeActivityRun {
		return
	}
	rec, ok := ev.Data.(scheduler.RunRecord)
	if !ok || rec.Cancelled {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultWriteTimeout)
	defer cancel()
	if err := r.store.AppendRun(wctx, Entry(rec)); err != nil {
		r.log.Warn("run record not persisted",
			logx.String("activity", rec.Name),
			logx.String("activity_id", rec.ActivityID),
			logx.Err(err),
		)
	}
}

// Entry maps a run record to its persisted form.
func Entry(rec scheduler.RunRecord) storage.RunEntry {
	return storage.RunEntry{
		ActivityID: rec.ActivityID,
		Activity:   rec.Name,
		Started:    rec.Started,
		DurationMS: rec.Duration.Milliseconds(),
		Error:      rec.Error,
		Panicked:   rec.Panicked,
	}
}
