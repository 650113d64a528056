package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Metrics  MetricsConfig  `json:"metrics,omitempty"`

	// History controls run-history retention. Only meaningful when storage
	// is enabled.
	History HistoryConfig `json:"history,omitempty"`

	Storage *StorageConfig `json:"storage,omitempty"`

	// Activities are the built-in periodic activities registered at startup.
	Activities []ActivityConfig `json:"activities" validate:"dive"`

	Facebook FacebookConfig `json:"facebook,omitempty"`
}

type TelegramConfig struct {
	// Token is optional. Without it the bot transport is not started and
	// Telegram log output is disabled.
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids" validate:"dive,gt=0"`
	GroupLog     string  `json:"group_log" validate:"omitempty,numeric"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path" validate:"required_if=Enabled true"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id" validate:"gte=0"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec" validate:"gte=0"`
}

// MetricsConfig controls the Prometheus endpoint.
//
// Prefer binding to localhost (e.g. "127.0.0.1:9464").
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty" validate:"omitempty,hostname_port"` // default: "127.0.0.1:9464"
	Path    string `json:"path,omitempty" validate:"omitempty,startswith=/"`  // default: "/metrics"
}

// HistoryConfig controls how long run records are kept.
type HistoryConfig struct {
	// Retention is a Go duration string. Default "168h".
	Retention string `json:"retention,omitempty"`
	// RecentLimit caps how many runs /status reports per activity. Default 5.
	RecentLimit int `json:"recent_limit,omitempty" validate:"gte=0,lte=100"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/carebot.db" }
type StorageConfig struct {
	Driver      string `json:"driver" validate:"omitempty,oneof=none file sqlite sqlite3"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// Activity kinds understood by the app.
const (
	KindHeartbeat    = "heartbeat"
	KindHistoryPrune = "history_prune"
	KindStatusReport = "status_report"
)

// ActivityConfig declares one built-in periodic activity.
//
// Example (YAML):
//
//	activities:
//	  - name: heartbeat
//	    kind: heartbeat
//	    every: 30s
//	  - name: history.prune
//	    kind: history_prune
//	    every: "@every 1h"
//	    failure_backoff: { initial: 30s, max: 10m }
type ActivityConfig struct {
	Name string `json:"name" validate:"required"`
	Kind string `json:"kind" validate:"required,oneof=heartbeat history_prune status_report"`
	// Every accepts a Go duration, "HH:MM", "every:<dur>" or "@every <dur>".
	Every string `json:"every" validate:"required"`

	// Enabled is a pointer so we can distinguish "omitted" (default true)
	// from an explicit false.
	Enabled *bool `json:"enabled,omitempty"`

	FailureBackoff *BackoffConfig `json:"failure_backoff,omitempty"`
}

// IsEnabled reports whether the activity should be registered.
func (a ActivityConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// BackoffConfig adds exponential extra delay after consecutive failures.
//
// Durations are Go duration strings.
type BackoffConfig struct {
	Initial    string  `json:"initial"`
	Max        string  `json:"max,omitempty"`
	Multiplier float64 `json:"multiplier,omitempty" validate:"omitempty,gte=1"`
	Jitter     float64 `json:"jitter,omitempty" validate:"gte=0,lte=1"`
}

// FacebookConfig holds the OAuth app settings used by `carebot oauth-url`
// when flags are omitted.
type FacebookConfig struct {
	AppID       string   `json:"app_id,omitempty" validate:"omitempty,numeric"`
	RedirectURL string   `json:"redirect_url,omitempty" validate:"omitempty,url"`
	Scopes      []string `json:"scopes,omitempty"`
}
