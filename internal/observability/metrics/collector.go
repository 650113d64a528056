package metrics

import (
	"carebot/internal/eventbus"
	"carebot/internal/task/scheduler"
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "carebot"

// Collector turns scheduler events into Prometheus series.
type Collector struct {
	invocations *prometheus.CounterVec
	failures    *prometheus.CounterVec
	panics      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	active      prometheus.Gauge

	ch    <-chan eventbus.Event
	unsub func()
}

// NewCollector registers the series on reg and subscribes to bus.
func NewCollector(reg prometheus.Registerer, bus eventbus.Bus) (*Collector, error) {
	c := &Collector{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "invocations_total",
			Help:      "Number of finished activity invocations.",
		}, []string{"activity"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "failures_total",
			Help:      "Number of activity invocations that returned an error or panicked.",
		}, []string{"activity"}),
		panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "panics_total",
			Help:      "Number of activity invocations that panicked.",
		}, []string{"activity"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "duration_seconds",
			Help:      "Wall time of one activity invocation.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 9),
		}, []string{"activity"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "activities",
			Help:      "Number of registered activities.",
		}),
	}
	for _, col := range []prometheus.Collector{c.invocations, c.failures, c.panics, c.duration, c.active} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	if bus != nil {
		c.ch, c.unsub = bus.Subscribe(512)
	}
	return c, nil
}

// Observe records one finished invocation.
func (c *Collector) Observe(rec scheduler.RunRecord) {
	c.invocations.WithLabelValues(rec.Name).Inc()
	c.duration.WithLabelValues(rec.Name).Observe(rec.Duration.Seconds())
	if !rec.OK() {
		c.failures.WithLabelValues(rec.Name).Inc()
	}
	if rec.Panicked {
		c.panics.WithLabelValues(rec.Name).Inc()
	}
}

// Run consumes bus events until ctx is done.
func (c *Collector) Run(ctx context.Context) error {
	if c.ch == nil {
		<-ctx.Done()
		return nil
	}
	defer c.unsub()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-c.ch:
			if !ok {
				return nil
			}
			c.handle(ev)
		}
	}
}

func (c *Collector) handle(ev eventbus.Event) {
	switch ev.Type {
	case eventbus.TypeActivityRun:
		if rec, ok := ev.Data.(scheduler.RunRecord); ok {
			c.Observe(rec)
		}
	case eventbus.TypeActivityRegistered:
		c.active.Inc()
	case eventbus.TypeActivityCancelled:
		c.active.Dec()
	}
}
