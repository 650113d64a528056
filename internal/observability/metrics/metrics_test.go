package metrics

import (
	"carebot/internal/eventbus"
	"carebot/internal/task/scheduler"
	logx "carebot/pkg/logx"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorObserve(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg, nil)
	require.NoError(t, err)

	c.Observe(scheduler.RunRecord{Name: "heartbeat", Duration: 10 * time.Millisecond})
	c.Observe(scheduler.RunRecord{Name: "heartbeat", Error: "boom"})
	c.Observe(scheduler.RunRecord{Name: "heartbeat", Error: "panic: x", Panicked: true})
	c.Observe(scheduler.RunRecord{Name: "status"})
	c.Observe(scheduler.RunRecord{Name: "status", Cancelled: true})

	assert.Equal(t, 3.0, testutil.ToFloat64(c.invocations.WithLabelValues("heartbeat")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.failures.WithLabelValues("heartbeat")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.panics.WithLabelValues("heartbeat")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.invocations.WithLabelValues("status")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.failures.WithLabelValues("status")))
}

func TestCollectorDuplicateRegistration(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg, nil)
	require.NoError(t, err)
	_, err = NewCollector(reg, nil)
	require.Error(t, err)
}

func TestCollectorConsumesBus(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	c, err := NewCollector(prometheus.NewRegistry(), bus)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	bus.Publish(eventbus.Event{Type: eventbus.TypeActivityRegistered, Data: "a"})
	bus.Publish(eventbus.Event{Type: eventbus.TypeActivityRegistered, Data: "b"})
	bus.Publish(eventbus.Event{Type: eventbus.TypeActivityCancelled, Data: "a"})
	bus.Publish(eventbus.Event{Type: eventbus.TypeActivityRun, Data: scheduler.RunRecord{Name: "prune", Error: "x"}})

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(c.failures.WithLabelValues("prune")) == 1 &&
			testutil.ToFloat64(c.active) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestServerServesMetrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg, nil)
	require.NoError(t, err)
	c.Observe(scheduler.RunRecord{Name: "heartbeat"})

	srv := NewServer(Config{Enabled: true, Addr: "127.0.0.1:0"}, reg, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.Start(ctx)

	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + srv.Addr() + DefaultPath)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `carebot_activity_invocations_total{activity="heartbeat"} 1`))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer stopCancel()
	srv.Stop(stopCtx)
	assert.Equal(t, "", srv.Addr())
}

func TestServerDisabled(t *testing.T) {
	t.Parallel()
	srv := NewServer(Config{}, prometheus.NewRegistry(), logx.Nop())
	srv.Start(context.Background())
	assert.Equal(t, "", srv.Addr())
	srv.Stop(context.Background())
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()
	assert.True(t, isLoopbackAddr("127.0.0.1:9464"))
	assert.True(t, isLoopbackAddr("localhost:1"))
	assert.True(t, isLoopbackAddr("[::1]:9464"))
	assert.False(t, isLoopbackAddr(":9464"))
	assert.False(t, isLoopbackAddr("10.0.0.1:9464"))
}
