package logx

import (
	"errors"
	"runtime"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

func init() {
	zerolog.ErrorFieldName = "err"
	zerolog.TimeFieldFormat = timeFormat
	zerolog.ErrorStackMarshaler = zpkgerrors.MarshalStack
}

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Field adds one key to an entry. Later fields overwrite earlier ones with
// the same key.
type Field func(e *zerolog.Event)

func String(k, v string) Field      { return func(e *zerolog.Event) { e.Str(k, v) } }
func Int(k string, v int) Field     { return func(e *zerolog.Event) { e.Int(k, v) } }
func Int64(k string, v int64) Field { return func(e *zerolog.Event) { e.Int64(k, v) } }
func Bool(k string, v bool) Field   { return func(e *zerolog.Event) { e.Bool(k, v) } }
func Any(k string, v any) Field     { return func(e *zerolog.Event) { e.Interface(k, v) } }
func Duration(k string, v time.Duration) Field {
	return func(e *zerolog.Event) { e.Dur(k, v) }
}

// Err sets "err". A nil err adds nothing.
func Err(err error) Field {
	return func(e *zerolog.Event) {
		if err != nil {
			e.Err(err)
		}
	}
}

// Stack sets "stack" to a preformatted trace, e.g. from debug.Stack().
func Stack(stack string) Field {
	return func(e *zerolog.Event) {
		if strings.TrimSpace(stack) != "" {
			e.Str("stack", stack)
		}
	}
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// ErrStack sets "err" and "stack". Errors built with github.com/pkg/errors
// carry the stack of their origin; for any other error the stack of the
// ErrStack call site is captured instead.
func ErrStack(err error) Field {
	if err == nil {
		return func(*zerolog.Event) {}
	}
	var st stackTracer
	if errors.As(err, &st) {
		return func(e *zerolog.Event) { e.Stack().Err(err) }
	}
	stack := callSite(2, maxStackFrames)
	return func(e *zerolog.Event) { e.Err(err).Str("stack", stack) }
}

const maxStackFrames = 16

// callSite renders at most n frames, one "function\n  file:line" pair each.
// skip 1 starts at callSite's caller.
func callSite(skip, n int) string {
	pcs := make([]uintptr, n)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(skip+1, pcs)])
	var b strings.Builder
	for {
		fr, more := frames.Next()
		if fr.File != "" {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(fr.Function)
			b.WriteString("\n  ")
			b.WriteString(fr.File)
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(fr.Line))
		}
		if !more {
			return b.String()
		}
	}
}
