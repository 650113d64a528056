package scheduler

import (
	"context"
	"reflect"
	"runtime"
	"strings"
)

// Work is one unit of work run by an activity.
//
// Invoke may block; it should return promptly once ctx is done. Synchronous
// functions and functions with bound arguments are adapted with Func and Bind,
// so the activity loop only ever deals with Work.
type Work interface {
	Invoke(ctx context.Context) error
}

// Named is implemented by Work that provides its own display name.
type Named interface {
	Name() string
}

// WorkFunc adapts a context-aware function.
type WorkFunc func(ctx context.Context) error

func (f WorkFunc) Invoke(ctx context.Context) error { return f(ctx) }

func (f WorkFunc) Name() string { return funcName(f) }

// Func adapts a plain function that neither takes a context nor fails.
func Func(fn func()) Work {
	if fn == nil {
		return nil
	}
	return plainWork{fn: fn}
}

type plainWork struct{ fn func() }

func (w plainWork) Invoke(context.Context) error {
	w.fn()
	return nil
}

func (w plainWork) Name() string { return funcName(w.fn) }

// Bind forwards arg to fn on every invocation.
func Bind[A any](fn func(ctx context.Context, arg A) error, arg A) Work {
	if fn == nil {
		return nil
	}
	return boundWork[A]{fn: fn, arg: arg}
}

type boundWork[A any] struct {
	fn  func(ctx context.Context, arg A) error
	arg A
}

func (w boundWork[A]) Invoke(ctx context.Context) error { return w.fn(ctx, w.arg) }

func (w boundWork[A]) Name() string { return funcName(w.fn) }

func nameOf(w Work) string {
	if n, ok := w.(Named); ok {
		if s := strings.TrimSpace(n.Name()); s != "" {
			return s
		}
	}
	return reflect.TypeOf(w).String()
}

// funcName returns "pkg.Func" for a function value ("" if unknown).
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
