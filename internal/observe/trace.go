package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// scope names the instrumentation library on every span cynicast records.
const scope = "github.com/MrWong99/cynicast"

// SessionAttr is the span attribute holding the live session ID.
const SessionAttr = attribute.Key("live.session_id")

type sessionKey struct{}

// WithSessionID returns a copy of ctx tagged with a live session ID. Spans
// started and loggers derived from it carry the ID.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionID returns the live session ID stored in ctx, if any.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// StartSpan starts a span from the global tracer provider. Inside a live
// session the span is tagged with [SessionAttr]. Callers end the span.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if id := SessionID(ctx); id != "" {
		opts = append(opts, trace.WithAttributes(SessionAttr.String(id)))
	}
	return otel.Tracer(scope).Start(ctx, name, opts...)
}

// CorrelationID is the hex trace ID of the span in ctx, or "" outside a
// trace. HTTP responses echo it in [CorrelationHeader].
func CorrelationID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns slog.Default with the trace_id, span_id and session_id
// found in ctx attached.
func Logger(ctx context.Context) *slog.Logger {
	var attrs []any
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if id := SessionID(ctx); id != "" {
		attrs = append(attrs, slog.String("session_id", id))
	}
	if len(attrs) == 0 {
		return slog.Default()
	}
	return slog.Default().With(attrs...)
}
