package app

import (
	"carebot/internal/config"
	"carebot/internal/eventbus"
	"carebot/internal/observability/metrics"
	rtsup "carebot/internal/runtime/supervisor"
	"carebot/internal/storage"
	"carebot/internal/task/history"
	"carebot/internal/task/scheduler"
	"carebot/internal/transport/telegram"
	logx "carebot/pkg/logx"
	"carebot/pkg/systemd"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfgm *config.ConfigManager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store    storage.Store       // nil when storage is disabled
	recorder *history.Recorder   // nil when storage is disabled
	adapter  *telegram.Adapter   // nil without a bot token
	registry *prometheus.Registry
	collect  *metrics.Collector
	metrics  *metrics.Server
	sched    *scheduler.Scheduler

	notify  systemd.Notifier
	started time.Time

	actsMu sync.Mutex
	acts   map[string]*scheduler.Activity // by activity name
}

// Option customizes an App. Mostly for tests.
type Option func(*App)

// WithNotifier replaces the sd_notify sender.
func WithNotifier(n systemd.Notifier) Option {
	return func(a *App) {
		if n != nil {
			a.notify = n
		}
	}
}

func New(cfgPath string, opts ...Option) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	var ad *telegram.Adapter
	if tc := mapTelegramConfig(cfg); tc.Token != "" {
		ad, err = telegram.New(tc, logx.NewConsole(cfg.Logging.Level))
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
	}

	// logx.New applies immediately and warns when Telegram logging is on
	// without a target, so bootstrap with it off and enable after the
	// target is set.
	logCfg := mapLogConfig(cfg)
	bootCfg := logCfg
	bootCfg.Telegram.Enabled = false
	var sender logx.Sender
	if ad != nil {
		sender = ad
	}
	logSvc, log := logx.New(bootCfg, sender)
	if chatID, ok := groupLogTarget(cfg); ok {
		logSvc.SetTelegramTarget(chatID, cfg.Logging.Telegram.ThreadID)
	}
	if ad == nil {
		logCfg.Telegram.Enabled = false
	}
	logSvc.Apply(logCfg)
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	a := &App{
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		bus:      bus,
		adapter:  ad,
		registry: prometheus.NewRegistry(),
		notify:   systemd.Notify,
		acts:     map[string]*scheduler.Activity{},
	}
	for _, o := range opts {
		o(a)
	}

	if sc, enabled := mapStorageConfig(cfg); enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			_ = logSvc.Close()
			return nil, fmt.Errorf("storage: %w", err)
		}
		a.store = st
		a.recorder = history.NewRecorder(st, bus, log)
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if a.collect, err = metrics.NewCollector(a.registry, bus); err != nil {
		a.closeStore()
		_ = logSvc.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}
	a.metrics = metrics.NewServer(mapMetricsConfig(cfg), a.registry, log)

	return a, nil
}

// Scheduler returns the activity scheduler (nil before Start).
func (a *App) Scheduler() *scheduler.Scheduler { return a.sched }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.started = time.Now()
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	a.sched = scheduler.New(
		scheduler.WithLogger(a.log.With(logx.String("comp", "scheduler"))),
		scheduler.WithBus(a.bus),
		scheduler.WithContext(a.sup.Context()),
	)
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	cfg := a.cfgm.Get()

	if a.recorder != nil {
		a.sup.Go("history.recorder", a.recorder.Run)
	}
	a.sup.Go("metrics.collector", a.collect.Run)
	a.metrics.Start(a.sup.Context())

	if a.adapter != nil {
		a.registerCommands()
		if err := a.adapter.Start(a.sup.Context()); err != nil {
			return err
		}
	}

	if err := a.applyActivities(cfg.Activities, nil); err != nil {
		a.sup.Cancel()
		return err
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) { a.reloadLoop(c, sub) })
	a.sup.Go("config.watch", a.cfgm.Watch)

	if _, err := a.notify(systemd.Ready); err != nil {
		a.log.Warn("sd_notify ready failed", logx.Err(err))
	}
	a.log.Info("app started",
		logx.Int("activities", a.sched.Len()),
		logx.Bool("telegram", a.adapter != nil),
		logx.Bool("storage", a.store != nil),
		logx.Bool("metrics", cfg.Metrics.Enabled),
	)
	return nil
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	_, _ = a.notify(systemd.Stopping)

	// Activities stop first while the recorder and collector still consume
	// their last run events.
	var errs []error
	if err := a.step(ctx, "scheduler", 3*time.Second, a.sched.Shutdown); err != nil {
		errs = append(errs, err)
	}
	a.sup.Cancel()

	// Outer surfaces are independent of each other.
	if err := a.step(ctx, "surfaces", 3*time.Second, func(c context.Context) error {
		g, gctx := errgroup.WithContext(c)
		if a.adapter != nil {
			g.Go(func() error { return a.adapter.Stop(gctx) })
		}
		g.Go(func() error { a.metrics.Stop(gctx); return nil })
		return g.Wait()
	}); err != nil {
		errs = append(errs, err)
	}

	// The recorder drains buffered runs before the store closes.
	if err := a.step(ctx, "supervisor", 2*time.Second, a.sup.Wait); err != nil && !errors.Is(err, context.Canceled) {
		errs = append(errs, err)
	}
	a.closeStore()

	a.log.Info("stopped")
	_ = a.logs.Close()
	return errors.Join(errs...)
}

// step runs fn bounded by max and the caller's deadline.
func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	sctx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	err := fn(sctx)
	took := time.Since(start)
	if err != nil {
		a.log.Warn("stop step error", logx.String("name", name), logx.Err(err), logx.Duration("took", took))
		return fmt.Errorf("stop %s: %w", name, err)
	}
	a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
	return nil
}

func (a *App) closeStore() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("storage close failed", logx.Err(err))
	}
}
