package ctxlogger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// AppendCtx returns a context carrying the given attribute in addition to
// any attributes already accumulated on it.
func AppendCtx(parent context.Context, attr slog.Attr) context.Context {
	if parent == nil {
		parent = context.Background()
	}

	if attrs, ok := parent.Value(ctxKey{}).([]slog.Attr); ok {
		attrs = append(attrs[:len(attrs):len(attrs)], attr)
		return context.WithValue(parent, ctxKey{}, attrs)
	}

	return context.WithValue(parent, ctxKey{}, []slog.Attr{attr})
}

// ContextHandler injects attributes accumulated via AppendCtx into every
// record logged through the wrapped handler.
type ContextHandler struct {
	slog.Handler
}

func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}

	return h.Handler.Handle(ctx, r)
}
