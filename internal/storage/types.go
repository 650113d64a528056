package storage

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// RunEntry is one persisted activity invocation.
// Keep it compact and schema-stable.
type RunEntry struct {
	ActivityID string    `json:"activity_id"`
	Activity   string    `json:"activity"`
	Started    time.Time `json:"started"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	Panicked   bool      `json:"panicked,omitempty"`
}

// Store is the persistence API used by the run history.
type Store interface {
	AppendRun(ctx context.Context, e RunEntry) error
	// RecentRuns returns up to limit entries, newest first. An empty
	// activity matches every activity.
	RecentRuns(ctx context.Context, activity string, limit int) ([]RunEntry, error)
	// PruneRuns deletes entries started before the cutoff and reports how many.
	PruneRuns(ctx context.Context, before time.Time) (int, error)
	Close() error
}
