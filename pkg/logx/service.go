package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type Config struct {
	Level    string
	Console  bool
	File     FileConfig
	Telegram TelegramConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

type TelegramConfig struct {
	Enabled    bool
	ThreadID   int
	MinLevel   string // default warn
	RatePerSec int    // default 1
}

const defaultLogPath = "./carebot.log"

// Service owns the process-wide sinks. Loggers returned by New read the
// current root on every entry, so Apply takes effect without rebuilding them.
type Service struct {
	mu   sync.Mutex // serializes Apply and Close
	cur  atomic.Pointer[zerolog.Logger]
	file *os.File
	tg   *telegramSink
}

// New applies cfg and returns the service with a root logger bound to it.
// sender may be nil, in which case Telegram output is dropped.
func New(cfg Config, sender Sender) (*Service, Logger) {
	s := &Service{tg: newTelegramSink(sender)}
	s.Apply(cfg)
	return s, Logger{svc: s}
}

func (s *Service) root() zerolog.Logger {
	if zl := s.cur.Load(); zl != nil {
		return *zl
	}
	return zerolog.Nop()
}

// SetTelegramTarget sets the log chat. chatID 0 mutes Telegram output; a
// zero threadID falls back to TelegramConfig.ThreadID.
func (s *Service) SetTelegramTarget(chatID int64, threadID int) {
	s.tg.setTarget(chatID, threadID)
}

// Apply swaps sinks and levels. Safe for concurrent use with logging.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, consoleWriter(os.Stdout))
	}

	var file *os.File
	if cfg.File.Enabled {
		path := strings.TrimSpace(cfg.File.Path)
		if path == "" {
			path = defaultLogPath
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logx: open %s: %v\n", path, err)
		} else {
			file = f
			writers = append(writers, zerolog.SyncWriter(f))
		}
	}

	if cfg.Telegram.Enabled {
		if !s.tg.configure(cfg.Telegram) {
			fmt.Fprintln(os.Stderr, "logx: telegram logging enabled without a log chat")
		}
		writers = append(writers, s.tg)
	}

	if len(writers) == 0 {
		writers = append(writers, consoleWriter(os.Stdout))
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(levelOr(cfg.Level, zerolog.InfoLevel)).
		With().Timestamp().Logger()
	s.cur.Store(&zl)

	if s.file != nil {
		_ = s.file.Close()
	}
	s.file = file
}

// Close stops the Telegram worker and closes the log file. Entries logged
// afterwards still reach the console and are dropped elsewhere.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tg.close()
	zl := consoleRoot(os.Stdout, s.root().GetLevel())
	s.cur.Store(&zl)

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
