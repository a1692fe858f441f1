// Package studio implements the offline half of cynicast: the script writer,
// which turns an episode brief into a sarcastic podcast script, and the audio
// lab, which transcribes or sarcastically rewrites an uploaded recording.
//
// Both talk to hosted models through [llm.Provider] (and optionally
// [stt.Provider]); neither keeps any state between calls, so a single
// [Writer] or [Lab] may serve concurrent requests.
package studio

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/cynicast/internal/observe"
	"github.com/MrWong99/cynicast/pkg/provider/stt"
)

// Sentinel errors returned by Validate and by the studio entry points.
var (
	ErrInvalidIntensity = errors.New("studio: intensity must be between 1 and 10")
	ErrInvalidMode      = errors.New("studio: unknown audio mode")
	ErrEmptyAudio       = errors.New("studio: audio file is empty")
	ErrNotAudio         = errors.New("studio: file is not audio")
	ErrAudioTooLarge    = errors.New("studio: audio file too large")
)

// Option configures a [Writer] or [Lab].
type Option func(*options)

type options struct {
	log      *slog.Logger
	metrics  *observe.Metrics
	provider string
	stt      stt.Provider
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics sets the metrics sink. Defaults to observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithProviderName labels provider metrics. Defaults to "llm".
func WithProviderName(name string) Option {
	return func(o *options) { o.provider = name }
}

// WithTranscriber routes audio-lab transcriptions to a dedicated
// speech-to-text backend instead of the multimodal LLM. Writers ignore it.
func WithTranscriber(t stt.Provider) Option {
	return func(o *options) { o.stt = t }
}

func applyOptions(opts []Option) options {
	o := options{provider: "llm"}
	for _, fn := range opts {
		fn(&o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	return o
}

// observeCall records latency and outcome of a single provider call.
func (o *options) observeCall(ctx context.Context, h metric.Float64Histogram, kind string, start time.Time, err error) {
	h.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("provider", o.provider), attribute.String("kind", kind)))
	status := "ok"
	if err != nil {
		status = "error"
		o.metrics.RecordProviderError(ctx, o.provider, kind)
	}
	o.metrics.RecordProviderRequest(ctx, o.provider, kind, status)
}
