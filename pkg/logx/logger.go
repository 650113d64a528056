package logx

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/rs/zerolog"
)

// Logger writes structured entries. The zero value discards everything.
type Logger struct {
	svc    *Service       // live root, follows Service.Apply
	base   zerolog.Logger // fixed root when svc is nil
	fixed  bool
	fields []Field
}

func Nop() Logger { return Logger{base: zerolog.Nop(), fixed: true} }

// NewConsole logs human-readable lines to stdout. Used before the config
// is loaded.
func NewConsole(level string) Logger {
	return Logger{base: consoleRoot(os.Stdout, levelOr(level, zerolog.InfoLevel)), fixed: true}
}

// NewJSON logs one JSON object per line to w.
func NewJSON(w io.Writer, level string) Logger {
	zl := zerolog.New(w).Level(levelOr(level, zerolog.InfoLevel)).With().Timestamp().Logger()
	return Logger{base: zl, fixed: true}
}

func (l Logger) IsZero() bool { return l.svc == nil && !l.fixed && len(l.fields) == 0 }

// With returns a logger that adds fields to every entry.
func (l Logger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	l.fields = append(append([]Field(nil), l.fields...), fields...)
	return l
}

func (l Logger) Trace(msg string, fields ...Field) { l.emit(zerolog.TraceLevel, msg, fields) }
func (l Logger) Debug(msg string, fields ...Field) { l.emit(zerolog.DebugLevel, msg, fields) }
func (l Logger) Info(msg string, fields ...Field)  { l.emit(zerolog.InfoLevel, msg, fields) }
func (l Logger) Warn(msg string, fields ...Field)  { l.emit(zerolog.WarnLevel, msg, fields) }
func (l Logger) Error(msg string, fields ...Field) { l.emit(zerolog.ErrorLevel, msg, fields) }

func (l Logger) root() zerolog.Logger {
	switch {
	case l.svc != nil:
		return l.svc.root()
	case l.fixed:
		return l.base
	default:
		return zerolog.Nop()
	}
}

func (l Logger) emit(level zerolog.Level, msg string, fields []Field) {
	zl := l.root()
	e := zl.WithLevel(level)
	if e == nil {
		return
	}
	// 1 is Info/Warn/..., 2 the logging call site.
	if _, file, line, ok := runtime.Caller(2); ok {
		e.Str(zerolog.CallerFieldName, filepath.Base(file)+":"+strconv.Itoa(line))
	}
	for _, group := range [][]Field{l.fields, fields} {
		for _, f := range group {
			if f != nil {
				f(e)
			}
		}
	}
	e.Msg(msg)
}

func consoleRoot(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	return zerolog.New(consoleWriter(w)).Level(lvl).With().Timestamp().Logger()
}

func consoleWriter(w io.Writer) io.Writer {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}
	cw.FormatCaller = func(i any) string {
		s, _ := i.(string)
		return s
	}
	return cw
}
