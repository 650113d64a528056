package logx

import (
	"strings"

	"github.com/rs/zerolog"
)

type Level = zerolog.Level

// ParseLevel maps a config level name to a Level. ok is false for unknown
// names.
func ParseLevel(s string) (lvl Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	}
	return zerolog.NoLevel, false
}

func levelOr(s string, def Level) Level {
	if lvl, ok := ParseLevel(s); ok {
		return lvl
	}
	return def
}
