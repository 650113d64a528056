package config

import (
	"carebot/internal/task/scheduler"
	logx "carebot/pkg/logx"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tags and the semantic rules tags cannot express
// (level names, durations, interval syntax, unique activity names).
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var errs []error
	if lv := strings.TrimSpace(cfg.Logging.Level); lv != "" {
		if _, ok := logx.ParseLevel(lv); !ok {
			errs = append(errs, fmt.Errorf("logging.level: unknown level %q", lv))
		}
	}
	if lv := strings.TrimSpace(cfg.Logging.Telegram.MinLevel); lv != "" {
		if _, ok := logx.ParseLevel(lv); !ok {
			errs = append(errs, fmt.Errorf("logging.telegram.min_level: unknown level %q", lv))
		}
	}
	if cfg.Logging.Telegram.Enabled && strings.TrimSpace(cfg.Telegram.GroupLog) == "" {
		errs = append(errs, errors.New("logging.telegram.enabled requires telegram.group_log"))
	}

	if _, err := ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseDurationField("history.retention", cfg.History.Retention); err != nil {
		errs = append(errs, err)
	}
	if cfg.Storage != nil {
		if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
			errs = append(errs, err)
		}
		d := strings.TrimSpace(cfg.Storage.Driver)
		if d != "" && d != "none" && strings.TrimSpace(cfg.Storage.Path) == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for driver %q", d))
		}
	}

	seen := make(map[string]struct{}, len(cfg.Activities))
	for i, a := range cfg.Activities {
		path := fmt.Sprintf("activities[%d]", i)
		name := strings.TrimSpace(a.Name)
		if _, dup := seen[name]; dup {
			errs = append(errs, fmt.Errorf("%s: duplicate activity name %q", path, name))
		}
		seen[name] = struct{}{}

		if _, err := scheduler.ParseInterval(a.Every); err != nil {
			errs = append(errs, fmt.Errorf("%s.every: %w", path, err))
		}
		if a.FailureBackoff != nil {
			if _, err := ParseDurationField(path+".failure_backoff.initial", a.FailureBackoff.Initial); err != nil {
				errs = append(errs, err)
			}
			if _, err := ParseDurationField(path+".failure_backoff.max", a.FailureBackoff.Max); err != nil {
				errs = append(errs, err)
			}
		}
		if a.Kind == KindHistoryPrune && a.IsEnabled() && storageDisabled(cfg.Storage) {
			errs = append(errs, fmt.Errorf("%s: kind %q requires storage", path, a.Kind))
		}
	}
	return errors.Join(errs...)
}

func storageDisabled(s *StorageConfig) bool {
	if s == nil {
		return true
	}
	d := strings.TrimSpace(s.Driver)
	return d == "" || d == "none"
}
