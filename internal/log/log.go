package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
)

type slogKeyT struct{}

var slogKey slogKeyT

const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config selects the level and the format of a handler.
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(handler slog.Handler) ContextHandler {
	return ContextHandler{
		Handler: handler,
	}
}

func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if a, ok := ctx.Value(slogKey).([]slog.Attr); ok {
		r.AddAttrs(a...)
	}

	return h.Handler.Handle(ctx, r)
}

func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithGroup(name)}
}

func ContextAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	a, ok := ctx.Value(slogKey).([]slog.Attr)
	if !ok || a == nil {
		a = make([]slog.Attr, 0, len(attrs))
	}
	a = append(a[:len(a):len(a)], attrs...)
	return context.WithValue(ctx, slogKey, a)
}

// Attrs returns the attributes added to ctx by ContextAttrs.
func Attrs(ctx context.Context) []slog.Attr {
	a, _ := ctx.Value(slogKey).([]slog.Attr)
	return slices.Clone(a)
}

// ParseLevel maps debug, info, warn and error to a slog.Level. Anything else
// is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler returns a ContextHandler writing to w in the configured format.
func NewHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{
		AddSource: false,
		Level:     ParseLevel(cfg.Level),
	}
	var base slog.Handler
	if strings.EqualFold(cfg.Format, FormatText) {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}
	return NewContextHandler(base)
}

func New(w io.Writer, cfg Config) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(NewHandler(w, cfg))
}
