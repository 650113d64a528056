package app

import (
	"carebot/internal/config"
	"carebot/internal/task/history"
	"carebot/internal/task/scheduler"
	kit "carebot/internal/transport"
	logx "carebot/pkg/logx"
	"carebot/pkg/systemd"
	"carebot/pkg/tgui"
	"context"
	"errors"
	"fmt"
	"time"
)

// applyActivities (re)registers the configured activities. With a nil
// names filter every activity is applied; otherwise only the named ones are
// cancelled and, when still present and enabled, registered again.
func (a *App) applyActivities(list []config.ActivityConfig, names []string) error {
	wanted := make(map[string]config.ActivityConfig, len(list))
	for _, ac := range list {
		wanted[ac.Name] = ac
	}
	if names == nil {
		names = make([]string, 0, len(list))
		for _, ac := range list {
			names = append(names, ac.Name)
		}
	}

	var errs []error
	for _, name := range names {
		a.cancelActivity(name)
		ac, ok := wanted[name]
		if !ok || !ac.IsEnabled() {
			continue
		}
		if err := a.registerActivity(ac); err != nil {
			errs = append(errs, fmt.Errorf("activity %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) cancelActivity(name string) {
	a.actsMu.Lock()
	act := a.acts[name]
	delete(a.acts, name)
	a.actsMu.Unlock()
	if act != nil {
		act.Cancel()
	}
}

func (a *App) registerActivity(ac config.ActivityConfig) error {
	interval, err := scheduler.ParseInterval(ac.Every)
	if err != nil {
		return err
	}
	work, err := a.buildWork(ac)
	if err != nil {
		return err
	}
	if wd := systemd.WatchdogInterval(); ac.Kind == config.KindHeartbeat && wd > 0 && interval > wd/2 {
		a.log.Warn("heartbeat slower than half the systemd watchdog",
			logx.String("activity", ac.Name),
			logx.Duration("every", interval),
			logx.Duration("watchdog", wd),
		)
	}

	var opts []scheduler.ActivityOption
	if fb, ok := mapFailureBackoff(ac.FailureBackoff); ok {
		opts = append(opts, scheduler.WithFailureBackoff(fb))
	}
	act, err := a.sched.Register(ac.Name, interval, work, opts...)
	if err != nil {
		return err
	}

	a.actsMu.Lock()
	a.acts[ac.Name] = act
	a.actsMu.Unlock()
	return nil
}

func (a *App) buildWork(ac config.ActivityConfig) (scheduler.Work, error) {
	switch ac.Kind {
	case config.KindHeartbeat:
		return scheduler.WorkFunc(a.heartbeat), nil
	case config.KindHistoryPrune:
		if a.store == nil {
			return nil, errors.New("history_prune requires storage")
		}
		cfg := a.cfgm.Get()
		return history.PruneWork(a.store, mapRetention(cfg), nil, a.log.With(logx.String("comp", "history"))), nil
	case config.KindStatusReport:
		return scheduler.WorkFunc(a.statusReport), nil
	default:
		return nil, fmt.Errorf("unknown activity kind %q", ac.Kind)
	}
}

// heartbeat logs liveness and pings the systemd watchdog.
func (a *App) heartbeat(ctx context.Context) error {
	snap := a.sched.Snapshot()
	failing := countFailing(snap)
	a.log.Debug("heartbeat",
		logx.Int("activities", len(snap.Activities)),
		logx.Int("failing", failing),
		logx.Duration("uptime", time.Since(a.started).Round(time.Second)),
	)
	if _, err := a.notify(systemd.Watchdog); err != nil {
		return fmt.Errorf("sd_notify watchdog: %w", err)
	}
	_, _ = a.notify(systemd.Status(fmt.Sprintf("%d activities, %d failing", len(snap.Activities), failing)))
	return nil
}

// statusReport sends a status card to the Telegram log chat, or logs the
// plain text when no chat is configured.
func (a *App) statusReport(ctx context.Context) error {
	chatID, ok := groupLogTarget(a.cfgm.Get())
	if a.adapter == nil || !ok {
		a.log.Info("status report", logx.String("text", a.statusText(ctx)))
		return nil
	}
	card := statusCard(a.sched.Snapshot(), time.Since(a.started), time.Now())
	to := kit.ChatTarget{ChatID: chatID, ThreadID: a.cfgm.Get().Logging.Telegram.ThreadID}
	opt := &kit.SendOptions{ParseMode: tgui.ParseModeHTML, DisablePreview: true}
	if _, err := a.adapter.SendText(ctx, to, card.String(), opt); err != nil {
		return fmt.Errorf("send status report: %w", err)
	}
	return nil
}

func countFailing(snap scheduler.Snapshot) int {
	n := 0
	for _, it := range snap.Activities {
		if it.Stats.ConsecutiveFailures > 0 {
			n++
		}
	}
	return n
}
