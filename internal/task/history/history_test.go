package history

import (
	"carebot/internal/eventbus"
	"carebot/internal/storage"
	"carebot/internal/task/scheduler"
	logx "carebot/pkg/logx"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) storage.Store {
	t.Helper()
	st, err := storage.Open(storage.Config{Driver: "file", Path: filepath.Join(t.TempDir(), "runs")}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRecorderPersistsRunEvents(t *testing.T) {
	t.Parallel()
	st := openStore(t)
	bus := eventbus.New()
	rec := NewRecorder(st, bus, logx.Nop())

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	bus.Publish(eventbus.Event{Type: eventbus.TypeActivityRegistered, Data: "ignored"})
	bus.Publish(eventbus.Event{Type: eventbus.TypeActivityRun, Data: scheduler.RunRecord{
		ActivityID: "id-1", Name: "heartbeat", Started: started.Add(-time.Minute), Cancelled: true,
	}})
	bus.Publish(eventbus.Event{Type: eventbus.TypeActivityRun, Data: scheduler.RunRecord{
		ActivityID: "id-1", Name: "heartbeat", Started: started, Duration: 1500 * time.Millisecond,
	}})
	bus.Publish(eventbus.Event{Type: eventbus.TypeActivityRun, Data: scheduler.RunRecord{
		ActivityID: "id-1", Name: "heartbeat", Started: started.Add(time.Minute), Error: "boom", Panicked: true,
	}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()

	require.Eventually(t, func() bool {
		runs, err := st.RecentRuns(context.Background(), "heartbeat", 10)
		return err == nil && len(runs) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	runs, err := st.RecentRuns(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "boom", runs[0].Error)
	assert.True(t, runs[0].Panicked)
	assert.Equal(t, int64(1500), runs[1].DurationMS)
}

func TestRecorderDrainsOnStop(t *testing.T) {
	t.Parallel()
	st := openStore(t)
	bus := eventbus.New()
	rec := NewRecorder(st, bus, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(eventbus.Event{Type: eventbus.TypeActivityRun, Data: scheduler.RunRecord{
		ActivityID: "id-2", Name: "status", Started: time.Now(),
	}})
	require.NoError(t, rec.Run(ctx))

	runs, err := st.RecentRuns(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestPruneWork(t *testing.T) {
	t.Parallel()
	st := openStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)

	require.NoError(t, st.AppendRun(ctx, storage.RunEntry{ActivityID: "a", Activity: "old", Started: now.Add(-48 * time.Hour)}))
	require.NoError(t, st.AppendRun(ctx, storage.RunEntry{ActivityID: "b", Activity: "new", Started: now.Add(-time.Hour)}))

	w := PruneWork(st, 24*time.Hour, clock, logx.Nop())
	require.NoError(t, w.Invoke(ctx))

	runs, err := st.RecentRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "new", runs[0].Activity)

	// Nothing older than the window remains; a second pass is a no-op.
	require.NoError(t, w.Invoke(ctx))
}

func TestPruneWorkReportsStoreErrors(t *testing.T) {
	t.Parallel()
	st := openStore(t)
	require.NoError(t, st.Close())

	err := PruneWork(st, time.Hour, nil, logx.Nop()).Invoke(context.Background())
	require.ErrorIs(t, err, storage.ErrDisabled)
}
