package scheduler

import (
	"carebot/internal/eventbus"
	"carebot/internal/runtime/supervisor"
	logx "carebot/pkg/logx"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Scheduler owns a registry of running activities.
//
// The registry grows through Register and shrinks through Activity.Cancel,
// CancelAll or Shutdown. A Scheduler stays usable after CancelAll; after
// Shutdown every Register fails with ErrStopped.
type Scheduler struct {
	log            logx.Logger
	clock          clockwork.Clock
	bus            eventbus.Bus
	parent         context.Context
	defaultBackoff *FailureBackoff

	sup *supervisor.Supervisor

	mu         sync.Mutex
	activities map[string]*Activity
	stopped    bool
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:      clockwork.NewRealClock(),
		bus:        eventbus.Nop(),
		parent:     context.Background(),
		activities: map[string]*Activity{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	s.sup = supervisor.New(s.parent, supervisor.WithLogger(s.log))
	return s
}

// Register starts a new activity that invokes work right away and then every
// interval, measured from the end of one invocation to the start of the next.
//
// An empty name is replaced by the function name behind work. A non-positive
// interval fails with ErrInvalidInterval and nothing is started.
func (s *Scheduler) Register(name string, interval time.Duration, work Work, opts ...ActivityOption) (*Activity, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidInterval, interval)
	}
	if work == nil {
		return nil, ErrNilWork
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = nameOf(work)
	}

	cfg := activityCfg{backoff: s.defaultBackoff}
	for _, o := range opts {
		o(&cfg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.sup.Context().Err() != nil {
		return nil, ErrStopped
	}

	ctx, cancel := context.WithCancel(s.sup.Context())
	a := &Activity{
		id:         uuid.NewString(),
		name:       name,
		interval:   interval,
		work:       work,
		registered: s.clock.Now(),
		sched:      s,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	if cfg.backoff != nil {
		a.backoff = cfg.backoff.build()
	}
	a.log = s.log.With(
		logx.String("activity", a.name),
		logx.String("activity_id", a.id),
		logx.Duration("interval", a.interval),
	)
	s.activities[a.id] = a

	a.log.Info("activity registered")
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeActivityRegistered, Data: a.id})

	// Started under s.mu so Shutdown never waits on a half-registered loop.
	s.sup.GoContext(ctx, "activity:"+a.name, a.run)
	return a, nil
}

// CancelAll stops every registered activity and empties the registry.
// It does not wait for in-flight invocations; see Shutdown.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	acts := s.activities
	s.activities = map[string]*Activity{}
	s.mu.Unlock()

	for _, a := range acts {
		a.stop()
	}
	if len(acts) > 0 {
		s.log.Info("activities cancelled", logx.Int("count", len(acts)))
	}
}

// Shutdown cancels every activity, refuses new registrations and waits for
// all activity loops to return or ctx to end.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.CancelAll()
	return s.sup.Stop(ctx)
}

// Len returns the number of registered activities.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activities)
}

// Get looks an activity up by ID.
func (s *Scheduler) Get(id string) (*Activity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[id]
	return a, ok
}

func (s *Scheduler) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[id]; !ok {
		return false
	}
	delete(s.activities, id)
	return true
}
