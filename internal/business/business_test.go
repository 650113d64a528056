package business_test

import (
	"carebot/internal/business"
	"carebot/internal/business/customerservice"
	"carebot/internal/business/marketing"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubsFailImmediately(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := customerservice.HandleInquiry(ctx, customerservice.Inquiry{Text: "hi"})
	require.ErrorIs(t, err, business.ErrNotImplemented)
	require.ErrorIs(t, customerservice.Escalate(ctx, "t-1"), business.ErrNotImplemented)

	_, err = marketing.SchedulePost(ctx, marketing.Post{Text: "sale", At: time.Now()})
	require.ErrorIs(t, err, business.ErrNotImplemented)
	_, err = marketing.ScheduleAd(ctx, marketing.Ad{Budget: 5})
	require.ErrorIs(t, err, business.ErrNotImplemented)
	tasks, err := marketing.ListScheduledTasks(ctx)
	require.ErrorIs(t, err, business.ErrNotImplemented)
	assert.Nil(t, tasks)
	assert.Contains(t, err.Error(), "marketing: list scheduled tasks")
}

func TestDefaultsAndWorkflows(t *testing.T) {
	t.Parallel()
	cs := customerservice.DefaultConfig()
	assert.True(t, cs.AutoReply)
	assert.Positive(t, cs.EscalationThreshold)

	mk := marketing.DefaultConfig()
	assert.Contains(t, mk.Channels, "facebook")

	assert.NotEmpty(t, customerservice.Workflow())
	assert.Contains(t, marketing.Workflow(), business.Stage("schedule_post"))

	// Callers get their own copy.
	w := marketing.Workflow()
	w[0] = "mutated"
	assert.Equal(t, business.Stage("define_audience"), marketing.Workflow()[0])
}

func TestFormat(t *testing.T) {
	t.Parallel()
	out := business.Format([]business.Module{
		{Name: "a", Workflow: []business.Stage{"one", "two"}},
		{Name: "b", Workflow: []business.Stage{"three"}},
	})
	assert.Equal(t, "a:\n  1. one\n  2. two\n\nb:\n  1. three\n", out)
}
