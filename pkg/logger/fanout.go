package logger

import (
	"context"
	"errors"
	"log/slog"
)

// fanout dispatches each record to every handler that accepts its level.
// The chat command uses it to keep a JSON log file next to the terminal
// output.
type fanout []slog.Handler

// Multi returns a logger that writes through the handlers of all given loggers.
func Multi(loggers ...*slog.Logger) *slog.Logger {
	f := make(fanout, 0, len(loggers))
	for _, l := range loggers {
		f = append(f, l.Handler())
	}
	return slog.New(f)
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}
