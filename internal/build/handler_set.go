package build

import (
	"context"
	"log/slog"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
)

// HandlerSet fans each record out to several btclog handlers, typically the
// console and the rotating log file.
type HandlerSet struct {
	level btclog.Level
	set   []btclogv2.Handler
}

// NewHandlerSet builds a set starting at the Info level.
func NewHandlerSet(handlers ...btclogv2.Handler) *HandlerSet {
	h := &HandlerSet{set: handlers}
	h.SetLevel(btclog.LevelInfo)

	return h
}

// Enabled is true only when every member handles level.
//
// NOTE: this is part of the slog.Handler interface.
func (h *HandlerSet) Enabled(ctx context.Context, level slog.Level) bool {
	return allEnabled(ctx, level, h.set)
}

// Handle passes the record to each member, stopping at the first error.
//
// NOTE: this is part of the slog.Handler interface.
func (h *HandlerSet) Handle(ctx context.Context, record slog.Record) error {
	return handleAll(ctx, record, h.set)
}

// WithAttrs is part of the slog.Handler interface.
func (h *HandlerSet) WithAttrs(attrs []slog.Attr) slog.Handler {
	return mapSlog(h.set, func(s slog.Handler) slog.Handler {
		return s.WithAttrs(attrs)
	})
}

// WithGroup is part of the slog.Handler interface.
func (h *HandlerSet) WithGroup(name string) slog.Handler {
	return mapSlog(h.set, func(s slog.Handler) slog.Handler {
		return s.WithGroup(name)
	})
}

// SubSystem tags every member with the subsystem name.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *HandlerSet) SubSystem(tag string) btclogv2.Handler {
	return h.derive(func(b btclogv2.Handler) btclogv2.Handler {
		return b.SubSystem(tag)
	})
}

// WithPrefix is part of the btclog.Handler interface.
func (h *HandlerSet) WithPrefix(prefix string) btclogv2.Handler {
	return h.derive(func(b btclogv2.Handler) btclogv2.Handler {
		return b.WithPrefix(prefix)
	})
}

// SetLevel is part of the btclog.Handler interface.
func (h *HandlerSet) SetLevel(level btclog.Level) {
	for _, handler := range h.set {
		handler.SetLevel(level)
	}
	h.level = level
}

// Level is part of the btclog.Handler interface.
func (h *HandlerSet) Level() btclog.Level {
	return h.level
}

func (h *HandlerSet) derive(
	f func(btclogv2.Handler) btclogv2.Handler) *HandlerSet {

	derived := &HandlerSet{
		level: h.level,
		set:   make([]btclogv2.Handler, len(h.set)),
	}
	for i, handler := range h.set {
		derived.set[i] = f(handler)
	}

	return derived
}

var _ btclogv2.Handler = (*HandlerSet)(nil)

// slogSet is what WithAttrs and WithGroup return, since those produce plain
// slog handlers.
type slogSet []slog.Handler

func mapSlog[H slog.Handler](set []H,
	f func(slog.Handler) slog.Handler) slogSet {

	out := make(slogSet, len(set))
	for i, handler := range set {
		out[i] = f(handler)
	}

	return out
}

func (s slogSet) Enabled(ctx context.Context, level slog.Level) bool {
	return allEnabled(ctx, level, []slog.Handler(s))
}

func (s slogSet) Handle(ctx context.Context, record slog.Record) error {
	return handleAll(ctx, record, []slog.Handler(s))
}

func (s slogSet) WithAttrs(attrs []slog.Attr) slog.Handler {
	return mapSlog([]slog.Handler(s), func(h slog.Handler) slog.Handler {
		return h.WithAttrs(attrs)
	})
}

func (s slogSet) WithGroup(name string) slog.Handler {
	return mapSlog([]slog.Handler(s), func(h slog.Handler) slog.Handler {
		return h.WithGroup(name)
	})
}

var _ slog.Handler = (slogSet)(nil)

func allEnabled[H slog.Handler](ctx context.Context, level slog.Level,
	set []H) bool {

	for _, handler := range set {
		if !handler.Enabled(ctx, level) {
			return false
		}
	}

	return true
}

func handleAll[H slog.Handler](ctx context.Context, record slog.Record,
	set []H) error {

	for _, handler := range set {
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}

	return nil
}
