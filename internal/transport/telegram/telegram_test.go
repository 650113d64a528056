package telegram

import (
	kit "carebot/internal/transport"
	logx "carebot/pkg/logx"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text string
		name string
		args []string
		ok   bool
	}{
		{text: "/status", name: "status", args: []string{}, ok: true},
		{text: "/Status@carebot_bot  full  now", name: "status", args: []string{"full", "now"}, ok: true},
		{text: "hello", ok: false},
		{text: "/", ok: false},
		{text: "", ok: false},
	}
	for _, tt := range tests {
		name, args, ok := parseCommand(tt.text)
		require.Equal(t, tt.ok, ok, tt.text)
		if !ok {
			continue
		}
		assert.Equal(t, tt.name, name)
		assert.Equal(t, tt.args, args)
	}
}

func TestRouterOwnerGate(t *testing.T) {
	t.Parallel()
	r := NewRouter([]int64{7}, time.Second, logx.Nop())
	calls := 0
	r.Handle(kit.BotCommand{Command: "/status", Description: "scheduler status"},
		func(ctx context.Context, msg kit.Message, args []string) (string, error) {
			calls++
			return "ok " + strings.Join(args, ","), nil
		})

	reply, matched, err := r.Dispatch(context.Background(), kit.Message{FromID: 7, Text: "/status a b"})
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, "ok a,b", reply)

	_, matched, err = r.Dispatch(context.Background(), kit.Message{FromID: 8, Text: "/status"})
	assert.True(t, matched)
	require.ErrorIs(t, err, ErrForbidden)

	_, matched, err = r.Dispatch(context.Background(), kit.Message{FromID: 7, Text: "/unknown"})
	require.NoError(t, err)
	assert.False(t, matched)

	r.SetOwners([]int64{8})
	_, _, err = r.Dispatch(context.Background(), kit.Message{FromID: 8, Text: "/status"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRouterRecoversPanicsAndTimesOut(t *testing.T) {
	t.Parallel()
	r := NewRouter([]int64{1}, 20*time.Millisecond, logx.Nop())
	r.Handle(kit.BotCommand{Command: "boom"}, func(context.Context, kit.Message, []string) (string, error) {
		panic("kaboom")
	})
	r.Handle(kit.BotCommand{Command: "slow"}, func(ctx context.Context, _ kit.Message, _ []string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	_, _, err := r.Dispatch(context.Background(), kit.Message{FromID: 1, Text: "/boom"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	_, _, err = r.Dispatch(context.Background(), kit.Message{FromID: 1, Text: "/slow"})
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRouterCommandsSorted(t *testing.T) {
	t.Parallel()
	r := NewRouter(nil, 0, logx.Nop())
	noop := func(context.Context, kit.Message, []string) (string, error) { return "", nil }
	r.Handle(kit.BotCommand{Command: "workflows"}, noop)
	r.Handle(kit.BotCommand{Command: "status"}, noop)
	r.Handle(kit.BotCommand{Command: ""}, noop)

	cmds := r.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, "status", cmds[0].Command)
	assert.Equal(t, "workflows", cmds[1].Command)
}

func TestSplitTelegramText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"short"}, splitTelegramText("short", 10, ""))

	long := strings.Repeat("a", 25)
	parts := splitTelegramText(long, 10, "")
	assert.Equal(t, []string{strings.Repeat("a", 10), strings.Repeat("a", 10), strings.Repeat("a", 5)}, parts)

	lines := "line-one\nline-two\nline-three"
	parts = splitTelegramText(lines, 12, "")
	assert.Equal(t, []string{"line-one", "line-two", "line-three"}, parts)

	html := "abcdef<b>bold</b>"
	parts = splitTelegramText(html, 8, "HTML")
	assert.Equal(t, "abcdef", parts[0])
	assert.Equal(t, html, strings.Join(parts, ""))

	// Runes, not bytes.
	parts = splitTelegramText(strings.Repeat("é", 6), 4, "")
	assert.Equal(t, []string{"éééé", "éé"}, parts)
}

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()
	_, err := New(Config{}, logx.Nop())
	require.Error(t, err)

	a, err := New(Config{Token: "123:abc", Offline: true, OwnerUserIDs: []int64{1}}, logx.Nop())
	require.NoError(t, err)
	a.Handle(kit.BotCommand{Command: "status"}, func(context.Context, kit.Message, []string) (string, error) { return "", nil })
	assert.Len(t, a.Router().Commands(), 1)
	require.NoError(t, a.Stop(context.Background()))
}
