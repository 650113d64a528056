package logx

import (
	kit "carebot/internal/transport"
	"carebot/pkg/tgui"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Sender delivers log lines to a chat. The Telegram adapter satisfies it.
type Sender interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error)
}

const (
	telegramQueueSize   = 256
	telegramSendTimeout = 10 * time.Second

	telegramMaxRunes   = 3500
	telegramFieldRunes = 600
	telegramStackRunes = 900
)

type telegramMessage struct {
	to   kit.ChatTarget
	text string
}

// telegramSink is a zerolog.LevelWriter that forwards entries at or above
// minLevel to the log chat. Sending happens on one worker goroutine; when
// the queue is full or the limiter refuses, the entry is dropped.
type telegramSink struct {
	sender Sender
	queue  chan telegramMessage

	mu          sync.Mutex
	chatID      int64
	threadID    int
	cfgThreadID int
	minLevel    zerolog.Level
	limiter     *rate.Limiter
	cancel      context.CancelFunc
	closed      bool
	wg          sync.WaitGroup
}

func newTelegramSink(sender Sender) *telegramSink {
	return &telegramSink{
		sender:   sender,
		queue:    make(chan telegramMessage, telegramQueueSize),
		minLevel: zerolog.WarnLevel,
	}
}

func (t *telegramSink) setTarget(chatID int64, threadID int) {
	t.mu.Lock()
	t.chatID = chatID
	t.threadID = threadID
	t.mu.Unlock()
}

// configure applies cfg and starts the worker on first use. It reports
// whether a chat target is set.
func (t *telegramSink) configure(cfg TelegramConfig) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.minLevel = levelOr(cfg.MinLevel, zerolog.WarnLevel)
	rps := max(1, cfg.RatePerSec)
	t.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	t.cfgThreadID = cfg.ThreadID

	if t.cancel == nil && !t.closed && t.sender != nil {
		ctx, cancel := context.WithCancel(context.Background())
		t.cancel = cancel
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.work(ctx)
		}()
	}
	return t.chatID != 0
}

func (t *telegramSink) close() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.closed = true
	t.mu.Unlock()
	if cancel != nil {
		cancel()
		t.wg.Wait()
	}
}

func (t *telegramSink) work(ctx context.Context) {
	opt := &kit.SendOptions{DisablePreview: true}
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-t.queue:
			sctx, cancel := context.WithTimeout(ctx, telegramSendTimeout)
			_, _ = t.sender.SendText(sctx, m.to, m.text, opt)
			cancel()
		}
	}
}

func (t *telegramSink) Write(p []byte) (int, error) {
	return t.WriteLevel(zerolog.InfoLevel, p)
}

func (t *telegramSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	t.mu.Lock()
	to := kit.ChatTarget{ChatID: t.chatID, ThreadID: t.threadID}
	if to.ThreadID == 0 {
		to.ThreadID = t.cfgThreadID
	}
	pass := t.cancel != nil && to.ChatID != 0 && level >= t.minLevel && t.limiter.Allow()
	t.mu.Unlock()
	if !pass {
		return len(p), nil
	}

	text := formatTelegramJSON(p)
	if text == "" {
		return len(p), nil
	}
	select {
	case t.queue <- telegramMessage{to: to, text: text}:
	default:
	}
	return len(p), nil
}

// formatTelegramJSON renders one JSON log line as
//
//	[LEVEL] message
//	- key=value
//
// with keys sorted. Input that is not a JSON object is sent trimmed.
func formatTelegramJSON(p []byte) string {
	var m map[string]any
	if err := json.Unmarshal(p, &m); err != nil {
		return tgui.TruncRunes(strings.TrimSpace(string(p)), telegramMaxRunes)
	}

	var b strings.Builder
	if lvl, _ := m[zerolog.LevelFieldName].(string); lvl != "" {
		b.WriteString("[" + strings.ToUpper(lvl) + "] ")
	}
	msg, _ := m[zerolog.MessageFieldName].(string)
	b.WriteString(msg)

	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case zerolog.LevelFieldName, zerolog.MessageFieldName, zerolog.TimestampFieldName, "stack":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("\n- " + k + "=")
		b.WriteString(tgui.TruncRunes(fmt.Sprint(m[k]), telegramFieldRunes))
	}
	if st, ok := m["stack"]; ok {
		b.WriteString("\n- stack:\n")
		b.WriteString(tgui.TruncRunes(renderStack(st), telegramStackRunes))
	}
	return tgui.TruncRunes(b.String(), telegramMaxRunes)
}

// renderStack accepts both a preformatted trace and the frame list written
// by the pkg/errors stack marshaler.
func renderStack(v any) string {
	frames, ok := v.([]any)
	if !ok {
		return fmt.Sprint(v)
	}
	lines := make([]string, 0, len(frames))
	for _, fr := range frames {
		f, ok := fr.(map[string]any)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%v %v:%v", f["func"], f["source"], f["line"]))
	}
	return strings.Join(lines, "\n")
}
