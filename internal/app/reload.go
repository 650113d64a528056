package app

import (
	"carebot/internal/config"
	logx "carebot/pkg/logx"
	"context"
	"slices"
	"strings"
)

// reloadLoop applies committed config updates until ctx is done.
func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	defer a.cfgm.Unsubscribe(sub)

	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			newCfg = latest(sub, newCfg)
			a.applyConfig(ctx, lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

// latest coalesces a burst of updates into the newest one.
func latest(sub <-chan *config.Config, cur *config.Config) *config.Config {
	for {
		select {
		case newer, ok := <-sub:
			if !ok {
				return cur
			}
			if newer != nil {
				cur = newer
			}
		default:
			return cur
		}
	}
}

func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *config.Config) {
	sections, attrs, activityChanged := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	if slices.Contains(sections, "storage") {
		a.log.Warn("storage config changed; restart required for changes to take effect")
	}
	if (strings.TrimSpace(oldCfg.Telegram.Token) == "") != (strings.TrimSpace(newCfg.Telegram.Token) == "") {
		a.log.Warn("telegram token changed; restart required for changes to take effect")
	}

	// Target first so Apply does not warn about a missing chat.
	if chatID, ok := groupLogTarget(newCfg); ok {
		a.logs.SetTelegramTarget(chatID, newCfg.Logging.Telegram.ThreadID)
	} else {
		a.logs.SetTelegramTarget(0, 0)
	}
	logCfg := mapLogConfig(newCfg)
	if a.adapter == nil {
		logCfg.Telegram.Enabled = false
	}
	a.logs.Apply(logCfg)

	if a.adapter != nil {
		a.adapter.Router().SetOwners(newCfg.Telegram.OwnerUserIDs)
	}
	a.metrics.Reconfigure(ctx, mapMetricsConfig(newCfg))

	// Prune activities capture the retention at registration.
	if slices.Contains(sections, "history") {
		for _, ac := range newCfg.Activities {
			if ac.Kind == config.KindHistoryPrune && !slices.Contains(activityChanged, ac.Name) {
				activityChanged = append(activityChanged, ac.Name)
			}
		}
	}
	if len(activityChanged) > 0 {
		if err := a.applyActivities(newCfg.Activities, activityChanged); err != nil {
			a.log.Warn("activity reload incomplete", logx.Err(err))
		}
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}
