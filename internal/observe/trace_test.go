package observe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useTracer installs an in-memory tracer provider as the global one for the
// duration of the test.
func useTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

// captureLogs redirects the default logger into a buffer.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestStartSpan(t *testing.T) {
	exp := useTracer(t)

	ctx, span := StartSpan(context.Background(), "live.session")
	cid := CorrelationID(ctx)
	span.End()

	if len(cid) != 32 || strings.Trim(cid, "0123456789abcdef") != "" {
		t.Errorf("correlation ID = %q, want 32 hex characters", cid)
	}
	spans := exp.GetSpans()
	if len(spans) != 1 || spans[0].Name != "live.session" {
		t.Fatalf("spans = %+v", spans)
	}
	if spans[0].SpanContext.TraceID().String() != cid {
		t.Error("correlation ID differs from the recorded trace ID")
	}

	// Children share the trace.
	child, cs := StartSpan(ctx, "live.connect")
	cs.End()
	if CorrelationID(child) != cid {
		t.Errorf("child correlation ID = %q, want %q", CorrelationID(child), cid)
	}
}

func TestStartSpan_SessionAttribute(t *testing.T) {
	exp := useTracer(t)

	_, span := StartSpan(WithSessionID(context.Background(), "sess-9"), "live.connect")
	span.End()
	_, plain := StartSpan(context.Background(), "studio.script")
	plain.End()

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	session := func(i int) string {
		for _, a := range spans[i].Attributes {
			if a.Key == SessionAttr {
				return a.Value.AsString()
			}
		}
		return ""
	}
	if got := session(0); got != "sess-9" {
		t.Errorf("%s = %q, want sess-9", SessionAttr, got)
	}
	if got := session(1); got != "" {
		t.Errorf("span outside a session has %s = %q", SessionAttr, got)
	}
}

func TestCorrelationID_WithoutSpan(t *testing.T) {
	t.Parallel()
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID = %q, want empty", got)
	}
}

func TestLogger(t *testing.T) {
	useTracer(t)

	tests := []struct {
		name    string
		ctx     func() (context.Context, func())
		want    []string
		missing []string
	}{
		{
			name:    "plain context",
			ctx:     func() (context.Context, func()) { return context.Background(), func() {} },
			missing: []string{"trace_id=", "session_id="},
		},
		{
			name: "live session",
			ctx: func() (context.Context, func()) {
				return WithSessionID(context.Background(), "sess-1"), func() {}
			},
			want:    []string{"session_id=sess-1"},
			missing: []string{"trace_id="},
		},
		{
			name: "traced session",
			ctx: func() (context.Context, func()) {
				ctx, span := StartSpan(WithSessionID(context.Background(), "sess-2"), "studio.script")
				return ctx, func() { span.End() }
			},
			want: []string{"session_id=sess-2", "trace_id=", "span_id="},
		},
	}
	for _, tc := range tests {
		buf := captureLogs(t)
		ctx, done := tc.ctx()
		Logger(ctx).Info("productor listo")
		done()

		out := buf.String()
		for _, w := range tc.want {
			if !strings.Contains(out, w) {
				t.Errorf("%s: log missing %q: %s", tc.name, w, out)
			}
		}
		for _, m := range tc.missing {
			if strings.Contains(out, m) {
				t.Errorf("%s: log unexpectedly has %q: %s", tc.name, m, out)
			}
		}
	}
}

func TestSessionID(t *testing.T) {
	t.Parallel()
	if got := SessionID(context.Background()); got != "" {
		t.Errorf("SessionID(background) = %q, want empty", got)
	}
	ctx := WithSessionID(WithSessionID(context.Background(), "a"), "b")
	if got := SessionID(ctx); got != "b" {
		t.Errorf("SessionID = %q, want the innermost value", got)
	}
}
