package logging

import (
	"context"
	"log/slog"
	"time"
)

// ContextProvider returns attributes evaluated at log time.
type ContextProvider func() []slog.Attr

// SimClock is the part of the simulation clock the log context needs.
type SimClock interface {
	Now() time.Time
	Ticks() uint64
}

// SimTimeProvider tags records with the simulated time and tick.
func SimTimeProvider(c SimClock) ContextProvider {
	return func() []slog.Attr {
		return []slog.Attr{
			slog.String("simTime", c.Now().UTC().Format(time.RFC3339)),
			slog.Uint64("tick", c.Ticks()),
		}
	}
}

// ContextHandler wraps another handler and injects dynamic context attributes.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

// NewContextHandler creates a handler that adds dynamic context to each record.
func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{
		inner:    inner,
		provider: provider,
	}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		r.AddAttrs(h.provider()...)
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{
		inner:    h.inner.WithAttrs(attrs),
		provider: h.provider,
	}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{
		inner:    h.inner.WithGroup(name),
		provider: h.provider,
	}
}
