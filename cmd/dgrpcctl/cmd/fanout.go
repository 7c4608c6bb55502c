package cmd

import (
	"context"
	"log/slog"
)

// fanoutHandler dispatches every record to each of its handlers in
// turn, letting dgrpcctl send the same log stream to a colorized
// console handler and the library's rotating file handler without
// either one knowing about the other.
type fanoutHandler []slog.Handler

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range *f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range *f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanoutHandler, len(*f))
	for i, h := range *f {
		next[i] = h.WithAttrs(attrs)
	}
	return &next
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make(fanoutHandler, len(*f))
	for i, h := range *f {
		next[i] = h.WithGroup(name)
	}
	return &next
}
