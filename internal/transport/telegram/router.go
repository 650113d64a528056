package telegram

import (
	kit "carebot/internal/transport"
	logx "carebot/pkg/logx"
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"
)

var ErrForbidden = errors.New("command restricted to owners")

// Middleware wraps a command handler.
type Middleware func(next kit.CommandHandler) kit.CommandHandler

func chain(h kit.CommandHandler, m ...Middleware) kit.CommandHandler {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

func mwTimeout(d time.Duration) Middleware {
	return func(next kit.CommandHandler) kit.CommandHandler {
		return func(ctx context.Context, msg kit.Message, args []string) (string, error) {
			if d <= 0 {
				return next(ctx, msg, args)
			}
			cctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(cctx, msg, args)
		}
	}
}

func mwPanicRecover(log logx.Logger) Middleware {
	return func(next kit.CommandHandler) kit.CommandHandler {
		return func(ctx context.Context, msg kit.Message, args []string) (out string, err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("command panicked", logx.Any("panic", r), logx.Stack(string(debug.Stack())))
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, msg, args)
		}
	}
}

func mwRequestLog(log logx.Logger, cmd string) Middleware {
	return func(next kit.CommandHandler) kit.CommandHandler {
		return func(ctx context.Context, msg kit.Message, args []string) (string, error) {
			start := time.Now()
			out, err := next(ctx, msg, args)
			fields := []logx.Field{
				logx.String("cmd", cmd),
				logx.Int64("chat_id", msg.ChatID),
				logx.Int64("from_id", msg.FromID),
				logx.Duration("dur", time.Since(start)),
			}
			if err != nil {
				log.Warn("command failed", append(fields, logx.Err(err))...)
			} else {
				log.Debug("command ok", fields...)
			}
			return out, err
		}
	}
}

// Router maps bot commands to handlers and enforces the owner gate.
// Every registered command is owner-only.
type Router struct {
	log     logx.Logger
	timeout time.Duration

	mu       sync.RWMutex
	owners   map[int64]struct{}
	handlers map[string]kit.CommandHandler
	menu     map[string]kit.BotCommand
}

func NewRouter(owners []int64, timeout time.Duration, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Router{
		log:      log,
		timeout:  timeout,
		handlers: map[string]kit.CommandHandler{},
		menu:     map[string]kit.BotCommand{},
	}
	r.SetOwners(owners)
	return r
}

// SetOwners replaces the allowed user IDs. Safe during hot reload.
func (r *Router) SetOwners(ids []int64) {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	r.mu.Lock()
	r.owners = m
	r.mu.Unlock()
}

func (r *Router) isOwner(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.owners[id]
	return ok
}

// Handle registers h for cmd.Command (without the leading slash).
func (r *Router) Handle(cmd kit.BotCommand, h kit.CommandHandler) {
	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cmd.Command), "/"))
	if name == "" || h == nil {
		return
	}
	cmd.Command = name
	wrapped := chain(h,
		mwRequestLog(r.log, name),
		mwPanicRecover(r.log),
		mwTimeout(r.timeout),
	)
	r.mu.Lock()
	r.handlers[name] = wrapped
	r.menu[name] = cmd
	r.mu.Unlock()
}

// Commands returns the registered commands sorted by name.
func (r *Router) Commands() []kit.BotCommand {
	r.mu.RLock()
	out := make([]kit.BotCommand, 0, len(r.menu))
	for _, c := range r.menu {
		out = append(out, c)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Command < out[j].Command })
	return out
}

// Dispatch routes a message. matched is false when the text is not a known
// command; such messages are ignored.
func (r *Router) Dispatch(ctx context.Context, msg kit.Message) (reply string, matched bool, err error) {
	name, args, ok := parseCommand(msg.Text)
	if !ok {
		return "", false, nil
	}
	r.mu.RLock()
	h := r.handlers[name]
	r.mu.RUnlock()
	if h == nil {
		return "", false, nil
	}
	if !r.isOwner(msg.FromID) {
		r.log.Debug("command denied", logx.String("cmd", name), logx.Int64("from_id", msg.FromID))
		return "", true, ErrForbidden
	}
	reply, err = h(ctx, msg, args)
	return reply, true, err
}

// parseCommand splits "/status@carebot a b" into ("status", [a b]).
func parseCommand(text string) (string, []string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	word := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	if word == "" {
		return "", nil, false
	}
	return strings.ToLower(word), fields[1:], true
}
