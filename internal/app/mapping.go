package app

import (
	"carebot/internal/config"
	"carebot/internal/observability/metrics"
	"carebot/internal/storage"
	"carebot/internal/task/history"
	"carebot/internal/task/scheduler"
	"carebot/internal/transport/telegram"
	logx "carebot/pkg/logx"
	"strconv"
	"strings"
	"time"
)

// All map* helpers expect a config that already passed config.Validate.

func mapStorageConfig(cfg *config.Config) (storage.Config, bool) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false
	}
	return storage.Config{
		Driver:      driver,
		Path:        strings.TrimSpace(cfg.Storage.Path),
		BusyTimeout: config.DurationOr(cfg.Storage.BusyTimeout, time.Second),
	}, true
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapTelegramConfig(cfg *config.Config) telegram.Config {
	return telegram.Config{
		Token:        strings.TrimSpace(cfg.Telegram.Token),
		PollTimeout:  config.DurationOr(cfg.Telegram.PollTimeout, 10*time.Second),
		OwnerUserIDs: cfg.Telegram.OwnerUserIDs,
	}
}

func mapMetricsConfig(cfg *config.Config) metrics.Config {
	return metrics.Config{
		Enabled: cfg.Metrics.Enabled,
		Addr:    cfg.Metrics.Addr,
		Path:    cfg.Metrics.Path,
	}
}

func mapRetention(cfg *config.Config) time.Duration {
	return config.DurationOr(cfg.History.Retention, history.DefaultRetention)
}

func mapRecentLimit(cfg *config.Config) int {
	if cfg.History.RecentLimit > 0 {
		return cfg.History.RecentLimit
	}
	return 5
}

func mapFailureBackoff(b *config.BackoffConfig) (scheduler.FailureBackoff, bool) {
	if b == nil {
		return scheduler.FailureBackoff{}, false
	}
	fb := scheduler.FailureBackoff{
		Initial:    config.DurationOr(b.Initial, 0),
		Max:        config.DurationOr(b.Max, 0),
		Multiplier: b.Multiplier,
		Jitter:     b.Jitter,
	}
	return fb, fb.Initial > 0
}

// groupLogTarget parses telegram.group_log. ok is false when unset.
func groupLogTarget(cfg *config.Config) (chatID int64, ok bool) {
	s := strings.TrimSpace(cfg.Telegram.GroupLog)
	if s == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
