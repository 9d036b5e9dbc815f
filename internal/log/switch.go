package log

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

type handlerBox struct {
	h slog.Handler
}

var (
	current     atomic.Pointer[handlerBox]
	installOnce sync.Once
	swapMx      sync.Mutex
)

func init() {
	current.Store(&handlerBox{h: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})})
}

// switchHandler forwards to the handler installed by Swap at the time a
// record is handled. Attributes and groups added through With are replayed
// on top of it.
type switchHandler struct {
	ops []func(slog.Handler) slog.Handler
}

func (s switchHandler) resolve() slog.Handler {
	h := current.Load().h
	for _, op := range s.ops {
		h = op(h)
	}
	return h
}

func (s switchHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return s.resolve().Enabled(ctx, level)
}

func (s switchHandler) Handle(ctx context.Context, r slog.Record) error {
	return s.resolve().Handle(ctx, r)
}

func (s switchHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return s.with(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (s switchHandler) WithGroup(name string) slog.Handler {
	return s.with(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (s switchHandler) with(op func(slog.Handler) slog.Handler) switchHandler {
	ops := make([]func(slog.Handler) slog.Handler, 0, len(s.ops)+1)
	ops = append(ops, s.ops...)
	return switchHandler{ops: append(ops, op)}
}

// Install makes the switchable handler the slog default. It is called by Swap
// and is safe to call more than once.
func Install() {
	installOnce.Do(func() {
		slog.SetDefault(slog.New(switchHandler{}))
	})
}

// Swap routes the default slog logger (and the stdlib log package) to h. The
// returned function restores the handler which was active before.
func Swap(h slog.Handler) (restore func()) {
	Install()
	swapMx.Lock()
	defer swapMx.Unlock()
	prev := current.Swap(&handlerBox{h: h})
	return func() {
		swapMx.Lock()
		defer swapMx.Unlock()
		current.Store(prev)
	}
}

// Current returns the handler the default logger forwards to.
func Current() slog.Handler {
	return current.Load().h
}
