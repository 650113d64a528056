package telegram

import (
	rtsup "carebot/internal/runtime/supervisor"
	kit "carebot/internal/transport"
	logx "carebot/pkg/logx"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"
)

type Config struct {
	Token        string
	PollTimeout  time.Duration
	OwnerUserIDs []int64

	// CommandTimeout bounds one command handler. Default 15s.
	CommandTimeout time.Duration

	// Offline builds the bot without contacting Telegram (tests).
	Offline bool
}

// Adapter is the telebot implementation of transport.Adapter.
type Adapter struct {
	cfg    Config
	log    logx.Logger
	bot    *tele.Bot
	router *Router

	runMu   sync.Mutex
	running bool
	// sup owns the poll loop and the stop watcher. Created on Start.
	sup *rtsup.Supervisor
}

var _ kit.Adapter = (*Adapter)(nil)

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cmdTimeout := cfg.CommandTimeout
	if cmdTimeout <= 0 {
		cmdTimeout = 15 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Poller:  &tele.LongPoller{Timeout: timeout},
		Offline: cfg.Offline,
	})
	if err != nil {
		return nil, err
	}
	log = log.With(logx.String("comp", "telegram"))
	a := &Adapter{
		cfg:    cfg,
		log:    log,
		bot:    b,
		router: NewRouter(cfg.OwnerUserIDs, cmdTimeout, log),
	}
	b.Handle(tele.OnText, a.onText)
	return a, nil
}

// Router exposes the command table (owner updates, menu listing).
func (a *Adapter) Router() *Router { return a.router }

func (a *Adapter) Handle(cmd kit.BotCommand, h kit.CommandHandler) { a.router.Handle(cmd, h) }

func (a *Adapter) onText(c tele.Context) error {
	m := c.Message()
	if m == nil || m.Sender == nil || m.Chat == nil {
		return nil
	}
	msg := kit.Message{
		ID:           m.ID,
		ChatID:       m.Chat.ID,
		ThreadID:     m.ThreadID,
		FromID:       m.Sender.ID,
		FromUsername: m.Sender.Username,
		Text:         m.Text,
	}

	ctx := context.Background()
	if sup := a.Supervisor(); sup != nil {
		ctx = sup.Context()
	}
	reply, matched, err := a.router.Dispatch(ctx, msg)
	if !matched {
		return nil
	}
	switch {
	case errors.Is(err, ErrForbidden):
		reply = "Not allowed."
	case err != nil:
		reply = "Error: " + err.Error()
	}
	if strings.TrimSpace(reply) == "" {
		return nil
	}
	_, err = a.SendText(ctx, kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}, reply, &kit.SendOptions{DisablePreview: true})
	return err
}

// Supervisor returns the adapter's internal supervisor (nil if not started).
func (a *Adapter) Supervisor() *rtsup.Supervisor {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.sup
}

func (a *Adapter) Start(ctx context.Context) error {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	a.sup = rtsup.New(ctx,
		rtsup.WithLogger(a.log),
		// the bot is best-effort; it must not take the scheduler down.
		rtsup.WithCancelOnError(false),
	)
	sup := a.sup
	a.runMu.Unlock()

	sup.Go0("telebot.stop_on_cancel", func(c context.Context) {
		<-c.Done()
		a.bot.Stop()
	})

	sup.Go("menu.sync", func(c context.Context) error {
		if err := a.syncMenu(); err != nil {
			a.log.Warn("menu commands not updated", logx.Err(err))
		}
		return nil
	})

	// Start blocks until Stop; it can return early on some network failures,
	// so it runs under a restart loop.
	sup.GoRestart("telebot.poll", func(c context.Context) error {
		a.log.Info("polling started")
		a.bot.Start()
		a.log.Info("polling stopped")
		return nil
	},
		rtsup.WithRestartBackoff(500*time.Millisecond, 10*time.Second),
		rtsup.WithStopOnCleanExit(false),
	)
	return nil
}

func (a *Adapter) syncMenu() error {
	if a.cfg.Offline {
		return nil
	}
	cmds := a.router.Commands()
	if len(cmds) == 0 {
		return nil
	}
	out := make([]tele.Command, 0, len(cmds))
	for _, c := range cmds {
		d := c.Description
		if d == "" {
			d = c.Command
		}
		out = append(out, tele.Command{Text: c.Command, Description: truncateRunes(d, 256)})
	}
	if err := a.bot.SetCommands(out); err != nil {
		return err
	}
	a.log.Info("menu commands updated", logx.Int("count", len(out)))
	return nil
}

// Stop cancels polling and waits a short grace window; Telegram long-poll
// must never hold shutdown hostage.
func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	a.sup = nil
	wasRunning := a.running
	a.running = false
	a.runMu.Unlock()

	if !wasRunning || sup == nil {
		return nil
	}
	a.log.Info("stopping")
	sup.Cancel()

	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	wctx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()
	if err := sup.Wait(wctx); err != nil {
		a.log.Warn("telegram stop timed out", logx.Err(err))
	}
	return nil
}

const telegramTextLimit = 4000

func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	chat := &tele.Chat{ID: to.ChatID}

	var first kit.MessageRef
	for i, chunk := range splitTelegramText(text, telegramTextLimit, opt.ParseMode) {
		if err := ctx.Err(); err != nil {
			return first, err
		}
		msg, err := a.bot.Send(chat, chunk, &tele.SendOptions{
			ParseMode:             opt.ParseMode,
			DisableWebPagePreview: opt.DisablePreview,
			ThreadID:              to.ThreadID,
		})
		if err != nil {
			return first, err
		}
		if i == 0 {
			first = kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}
		}
	}
	return first, nil
}
