package app

import (
	"carebot/internal/business"
	"carebot/internal/business/customerservice"
	"carebot/internal/business/marketing"
	"carebot/internal/task/scheduler"
	kit "carebot/internal/transport"
	"carebot/pkg/tgui"
	"context"
	"fmt"
	"strings"
	"time"
)

func (a *App) registerCommands() {
	a.adapter.Handle(kit.BotCommand{Command: "status", Description: "Scheduler status"},
		func(ctx context.Context, _ kit.Message, _ []string) (string, error) {
			return a.statusText(ctx), nil
		})
	a.adapter.Handle(kit.BotCommand{Command: "runs", Description: "Recent runs: /runs [activity]"},
		func(ctx context.Context, _ kit.Message, args []string) (string, error) {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return a.runsText(ctx, name)
		})
	a.adapter.Handle(kit.BotCommand{Command: "workflows", Description: "Business module workflows"},
		func(context.Context, kit.Message, []string) (string, error) {
			return WorkflowsText(), nil
		})
}

// WorkflowsText lists the business modules and their stages.
func WorkflowsText() string {
	return business.Format([]business.Module{customerservice.Module(), marketing.Module()})
}

func (a *App) statusText(ctx context.Context) string {
	snap := a.sched.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "carebot up %s, %d activities", time.Since(a.started).Round(time.Second), len(snap.Activities))
	if snap.Stopped {
		b.WriteString(" (stopped)")
	}
	b.WriteByte('\n')
	for _, it := range snap.Activities {
		b.WriteString(formatActivity(it, time.Now()))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatActivity(it scheduler.ActivityInfo, now time.Time) string {
	st := it.Stats
	line := fmt.Sprintf("- %s every %s: runs=%d failures=%d", it.Name, it.Interval, st.Invocations, st.Failures)
	if !st.LastStart.IsZero() {
		line += fmt.Sprintf(" last=%s ago", now.Sub(st.LastStart).Round(time.Second))
	}
	if st.ConsecutiveFailures > 0 {
		line += fmt.Sprintf(" FAILING x%d: %s", st.ConsecutiveFailures, tgui.TruncRunes(st.LastError, 120))
	}
	return line
}

func (a *App) runsText(ctx context.Context, activity string) (string, error) {
	if a.store == nil {
		return "Run history is disabled (no storage configured).", nil
	}
	runs, err := a.store.RecentRuns(ctx, activity, mapRecentLimit(a.cfgm.Get()))
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "No runs recorded.", nil
	}
	var b strings.Builder
	for _, r := range runs {
		status := "ok"
		if r.Error != "" {
			status = "FAIL " + tgui.TruncRunes(r.Error, 80)
		}
		fmt.Fprintf(&b, "%s %s %dms %s\n", r.Started.UTC().Format(time.RFC3339), r.Activity, r.DurationMS, status)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// statusCard is the HTML rendition of statusText sent by status_report.
func statusCard(snap scheduler.Snapshot, up time.Duration, now time.Time) tgui.H {
	c := tgui.NewCard("carebot status").
		Field("uptime", up.Round(time.Second).String()).
		Field("activities", fmt.Sprint(len(snap.Activities)))
	for _, it := range snap.Activities {
		st := it.Stats
		parts := []tgui.H{tgui.B(it.Name), tgui.Esc(fmt.Sprintf("every %s, runs=%d failures=%d", it.Interval, st.Invocations, st.Failures))}
		if !st.LastStart.IsZero() {
			parts = append(parts, tgui.Esc(fmt.Sprintf("last %s ago", now.Sub(st.LastStart).Round(time.Second))))
		}
		if st.ConsecutiveFailures > 0 {
			parts = append(parts, tgui.B(fmt.Sprintf("FAILING x%d", st.ConsecutiveFailures)), tgui.Code(tgui.TruncRunes(st.LastError, 120)))
		}
		c.Bullet(parts...)
	}
	return c.HTML()
}
