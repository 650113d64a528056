// Package marketing is the marketing module scaffold. Post and ad
// scheduling are stubs.
package marketing

import (
	"carebot/internal/business"
	"context"
	"time"
)

const Name = "marketing"

type Config struct {
	Channels       []string
	Timezone       string
	MaxPostsPerDay int
	DailyAdBudget  float64
	Currency       string
}

// DefaultConfig returns the built-in module settings.
func DefaultConfig() Config {
	return Config{
		Channels:       []string{"facebook", "telegram"},
		Timezone:       "UTC",
		MaxPostsPerDay: 3,
		DailyAdBudget:  10,
		Currency:       "USD",
	}
}

// Workflow returns the ordered campaign stages.
func Workflow() []business.Stage {
	return []business.Stage{
		"define_audience",
		"create_content",
		"review_content",
		"schedule_post",
		"launch_ad",
		"track_engagement",
		"report_results",
	}
}

func Module() business.Module {
	return business.Module{Name: Name, Workflow: Workflow()}
}

type Post struct {
	Channel string
	Text    string
	At      time.Time
}

type Ad struct {
	Channel  string
	Creative string
	Budget   float64
	Start    time.Time
	End      time.Time
}

// ScheduledTask is a queued post or ad.
type ScheduledTask struct {
	ID   string
	Kind string
	At   time.Time
}

// SchedulePost is not implemented.
func SchedulePost(ctx context.Context, p Post) (string, error) {
	return "", business.NotImplemented(Name, "schedule post")
}

// ScheduleAd is not implemented.
func ScheduleAd(ctx context.Context, ad Ad) (string, error) {
	return "", business.NotImplemented(Name, "schedule ad")
}

// ListScheduledTasks is not implemented.
func ListScheduledTasks(ctx context.Context) ([]ScheduledTask, error) {
	return nil, business.NotImplemented(Name, "list scheduled tasks")
}
