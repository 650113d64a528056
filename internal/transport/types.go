package transport

import "context"

// Message is an incoming chat message normalized across transports.
type Message struct {
	ID           int
	ChatID       int64
	ThreadID     int // telegram forum topic thread id (0 if none)
	FromID       int64
	FromUsername string
	Text         string
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// CommandHandler answers a bot command. The returned text is sent back to the
// originating chat; an empty string sends nothing.
type CommandHandler func(ctx context.Context, msg Message, args []string) (string, error)

// BotCommand represents a single bot command menu entry.
type BotCommand struct {
	Command     string
	Description string
}

type Adapter interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	Handle(cmd BotCommand, h CommandHandler)
}
