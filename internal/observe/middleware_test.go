package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type mwHarness struct {
	reader *sdkmetric.ManualReader
	spans  *tracetest.InMemoryExporter
	mux    *http.ServeMux
}

// newMWHarness mounts handlers behind Middleware on a mux the way the app
// does. It swaps the global tracer provider, so callers must not run in
// parallel.
func newMWHarness(t *testing.T, routes map[string]http.HandlerFunc) *mwHarness {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	mw := Middleware(m)
	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.Handle(pattern, mw(h))
	}
	return &mwHarness{reader: reader, spans: exp, mux: mux}
}

func (h *mwHarness) do(method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

func (h *mwHarness) durationPoints(t *testing.T) []metricdata.HistogramDataPoint[float64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := h.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	met := findMetric(rm, "cynicast.http.request.duration")
	if met == nil {
		t.Fatal("cynicast.http.request.duration not recorded")
	}
	return met.Data.(metricdata.Histogram[float64]).DataPoints
}

func attr(set attribute.Set, key string) string {
	v, _ := set.Value(attribute.Key(key))
	return v.AsString()
}

func TestMiddleware_Routes(t *testing.T) {
	h := newMWHarness(t, map[string]http.HandlerFunc{
		"POST /api/scripts": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"title":"El Algoritmo Bizarro: Gemini"}`))
		},
		"POST /api/audio": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "huelga", http.StatusBadGateway)
		},
		"GET /scripts/{id}": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		},
	})

	tests := []struct {
		method, target string
		wantCode       int
		wantRoute      string
		wantClass      string
		wantSpanError  bool
	}{
		{"POST", "/api/scripts", http.StatusOK, "POST /api/scripts", "2xx", false},
		{"POST", "/api/audio", http.StatusBadGateway, "POST /api/audio", "5xx", true},
		{"GET", "/scripts/42", http.StatusNotFound, "GET /scripts/{id}", "4xx", false},
	}
	for _, tc := range tests {
		rec := h.do(tc.method, tc.target, nil)
		if rec.Code != tc.wantCode {
			t.Errorf("%s %s: status = %d, want %d", tc.method, tc.target, rec.Code, tc.wantCode)
		}
		if len(rec.Header().Get(CorrelationHeader)) != 32 {
			t.Errorf("%s %s: %s = %q", tc.method, tc.target, CorrelationHeader, rec.Header().Get(CorrelationHeader))
		}
	}

	spans := h.spans.GetSpans()
	if len(spans) != len(tests) {
		t.Fatalf("recorded %d spans, want %d", len(spans), len(tests))
	}
	for i, tc := range tests {
		s := spans[i]
		if s.Name != "HTTP "+tc.wantRoute {
			t.Errorf("span %d name = %q, want %q", i, s.Name, "HTTP "+tc.wantRoute)
		}
		if got := s.Status.Code == codes.Error; got != tc.wantSpanError {
			t.Errorf("span %q error = %v, want %v", s.Name, got, tc.wantSpanError)
		}
		var code int64
		for _, a := range s.Attributes {
			if a.Key == "http.response.status_code" {
				code = a.Value.AsInt64()
			}
		}
		if code != int64(tc.wantCode) {
			t.Errorf("span %q status attribute = %d, want %d", s.Name, code, tc.wantCode)
		}
	}

	got := map[string]string{}
	for _, dp := range h.durationPoints(t) {
		if dp.Count != 1 {
			t.Errorf("route %q count = %d, want 1", attr(dp.Attributes, "path"), dp.Count)
		}
		got[attr(dp.Attributes, "path")] = attr(dp.Attributes, "status")
	}
	for _, tc := range tests {
		if got[tc.wantRoute] != tc.wantClass {
			t.Errorf("route %q status label = %q, want %q", tc.wantRoute, got[tc.wantRoute], tc.wantClass)
		}
	}
}

func TestMiddleware_ContinuesIncomingTrace(t *testing.T) {
	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	var seen string
	h := newMWHarness(t, map[string]http.HandlerFunc{
		"POST /api/scripts": func(_ http.ResponseWriter, r *http.Request) {
			seen = CorrelationID(r.Context())
		},
	})

	rec := h.do("POST", "/api/scripts", http.Header{
		"Traceparent": {"00-" + traceID + "-00f067aa0ba902b7-01"},
	})

	if seen != traceID {
		t.Errorf("handler correlation ID = %q, want %q", seen, traceID)
	}
	if got := rec.Header().Get(CorrelationHeader); got != traceID {
		t.Errorf("%s = %q, want %q", CorrelationHeader, got, traceID)
	}
}

func TestMiddleware_RecoversPanic(t *testing.T) {
	h := newMWHarness(t, map[string]http.HandlerFunc{
		"POST /api/scripts": func(http.ResponseWriter, *http.Request) { panic("la IA se niega") },
	})

	rec := h.do("POST", "/api/scripts", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	spans := h.spans.GetSpans()
	if len(spans) != 1 || spans[0].Status.Description != "la IA se niega" {
		t.Errorf("spans = %+v", spans)
	}
	if pts := h.durationPoints(t); len(pts) != 1 || attr(pts[0].Attributes, "status") != "5xx" {
		t.Errorf("duration points = %+v", pts)
	}
}

func TestMiddleware_ImplicitOK(t *testing.T) {
	h := newMWHarness(t, map[string]http.HandlerFunc{
		"GET /healthz": func(http.ResponseWriter, *http.Request) {},
	})
	if rec := h.do("GET", "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if pts := h.durationPoints(t); attr(pts[0].Attributes, "status") != "2xx" {
		t.Errorf("status label = %q, want 2xx", attr(pts[0].Attributes, "status"))
	}
}

func TestRouteAndStatusClass(t *testing.T) {
	t.Parallel()
	if got := route(httptest.NewRequest("GET", "/anything", nil)); got != "unmatched" {
		t.Errorf("route = %q, want unmatched", got)
	}
	for code, want := range map[int]string{200: "2xx", 204: "2xx", 413: "4xx", 502: "5xx"} {
		if got := statusClass(code); got != want {
			t.Errorf("statusClass(%d) = %q, want %q", code, got, want)
		}
	}
}
