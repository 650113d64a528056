package config

import (
	logx "carebot/pkg/logx"
	"reflect"
	"sort"
	"strings"
)

// SummarizeConfigChange returns (1) a compact list of changed sections,
// (2) safe structured attrs for logging (never includes secrets like tokens),
// and (3) the names of activities that were added, removed or changed.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	// Telegram (never log token)
	if strings.TrimSpace(oldCfg.Telegram.PollTimeout) != strings.TrimSpace(newCfg.Telegram.PollTimeout) ||
		!reflect.DeepEqual(oldCfg.Telegram.OwnerUserIDs, newCfg.Telegram.OwnerUserIDs) ||
		strings.TrimSpace(oldCfg.Telegram.GroupLog) != strings.TrimSpace(newCfg.Telegram.GroupLog) ||
		(oldCfg.Telegram.Token != "") != (newCfg.Telegram.Token != "") {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.String("telegram.poll_timeout", strings.TrimSpace(newCfg.Telegram.PollTimeout)),
			logx.Int("telegram.owner_count", len(newCfg.Telegram.OwnerUserIDs)),
			logx.Bool("telegram.group_log_set", strings.TrimSpace(newCfg.Telegram.GroupLog) != ""),
			logx.Bool("telegram.token_set", newCfg.Telegram.Token != ""),
		)
	}

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if oldCfg.Metrics != newCfg.Metrics {
		changed = append(changed, "metrics")
		attrs = append(attrs,
			logx.Bool("metrics.enabled", newCfg.Metrics.Enabled),
			logx.String("metrics.addr", strings.TrimSpace(newCfg.Metrics.Addr)),
		)
	}

	if oldCfg.History != newCfg.History {
		changed = append(changed, "history")
		attrs = append(attrs,
			logx.String("history.retention", strings.TrimSpace(newCfg.History.Retention)),
			logx.Int("history.recent_limit", newCfg.History.RecentLimit),
		)
	}

	// Storage. Nil means disabled.
	var oS, nS StorageConfig
	if oldCfg.Storage != nil {
		oS = *oldCfg.Storage
	}
	if newCfg.Storage != nil {
		nS = *newCfg.Storage
	}
	if oS != nS {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(nS.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(nS.Path) != ""),
			logx.String("storage.busy_timeout", strings.TrimSpace(nS.BusyTimeout)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Facebook, newCfg.Facebook) {
		changed = append(changed, "facebook")
	}

	activityChanged := diffActivities(oldCfg.Activities, newCfg.Activities)
	if len(activityChanged) > 0 {
		changed = append(changed, "activities")
		attrs = append(attrs,
			logx.Int("activities.changed_count", len(activityChanged)),
			logx.Int("activities.enabled_count", countEnabled(newCfg.Activities)),
		)
	}

	sort.Strings(changed)
	return changed, attrs, activityChanged
}

func countEnabled(list []ActivityConfig) int {
	n := 0
	for _, a := range list {
		if a.IsEnabled() {
			n++
		}
	}
	return n
}

func diffActivities(oldL, newL []ActivityConfig) []string {
	oldM := make(map[string]ActivityConfig, len(oldL))
	for _, a := range oldL {
		oldM[a.Name] = a
	}
	newM := make(map[string]ActivityConfig, len(newL))
	for _, a := range newL {
		newM[a.Name] = a
	}

	set := map[string]struct{}{}
	for k := range oldM {
		set[k] = struct{}{}
	}
	for k := range newM {
		set[k] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for name := range set {
		o, okO := oldM[name]
		n, okN := newM[name]
		if okO != okN || o.IsEnabled() != n.IsEnabled() ||
			o.Kind != n.Kind || strings.TrimSpace(o.Every) != strings.TrimSpace(n.Every) ||
			!reflect.DeepEqual(o.FailureBackoff, n.FailureBackoff) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
