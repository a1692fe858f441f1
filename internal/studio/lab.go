package studio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MrWong99/cynicast/internal/observe"
	"github.com/MrWong99/cynicast/pkg/provider/llm"
	"github.com/MrWong99/cynicast/pkg/provider/stt"
)

// Mode selects what the audio lab does with a recording.
type Mode string

const (
	// ModeTranscribe returns the spoken words verbatim.
	ModeTranscribe Mode = "transcribe"
	// ModeHumor rewrites the recording with a given sarcasm level.
	ModeHumor Mode = "humor"
)

const (
	// DefaultSarcasm is used when an AudioRequest leaves Sarcasm at zero.
	DefaultSarcasm = 8

	// DefaultAudioMIME is assumed when an upload carries no content type.
	DefaultAudioMIME = "audio/mp3"

	// MaxAudioBytes bounds inline uploads.
	MaxAudioBytes = 20 << 20

	// FallbackAudioText is returned when the model produced no text.
	FallbackAudioText = "No se pudo procesar el audio."
)

const transcribePrompt = "Transcribe este audio exactamente palabra por palabra. No añadas comentarios, ni descripciones, solo el texto hablado."

// ParseMode converts user input into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeTranscribe, ModeHumor:
		return m, nil
	case "":
		return ModeTranscribe, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// AudioRequest is a single uploaded recording.
type AudioRequest struct {
	Name     string
	MIMEType string
	Data     []byte
	Mode     Mode
	Sarcasm  int
}

// normalize fills defaults and validates r.
func (r *AudioRequest) normalize() error {
	if r.Mode == "" {
		r.Mode = ModeTranscribe
	}
	if r.Mode != ModeTranscribe && r.Mode != ModeHumor {
		return fmt.Errorf("%w: %q", ErrInvalidMode, r.Mode)
	}
	if r.Sarcasm == 0 {
		r.Sarcasm = DefaultSarcasm
	}
	if r.Sarcasm < 1 || r.Sarcasm > 10 {
		return fmt.Errorf("%w: got %d", ErrInvalidIntensity, r.Sarcasm)
	}
	if len(r.Data) == 0 {
		return ErrEmptyAudio
	}
	if len(r.Data) > MaxAudioBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrAudioTooLarge, len(r.Data), MaxAudioBytes)
	}
	r.MIMEType = strings.TrimSpace(r.MIMEType)
	if r.MIMEType == "" {
		r.MIMEType = DefaultAudioMIME
	}
	if !strings.HasPrefix(strings.ToLower(r.MIMEType), "audio/") {
		return fmt.Errorf("%w: %s", ErrNotAudio, r.MIMEType)
	}
	if r.Name == "" {
		r.Name = "audio"
	}
	return nil
}

// AudioResult is the lab output. Header names the source file and mode.
type AudioResult struct {
	Header string `json:"header"`
	Text   string `json:"text"`
}

// String returns the header, a blank line, then the text.
func (r AudioResult) String() string {
	return r.Header + "\n\n" + r.Text
}

// Header returns the banner line for a processed recording.
func Header(name string, mode Mode, sarcasm int) string {
	if mode == ModeHumor {
		return fmt.Sprintf("*** REMIX SARCÁSTICO DE AUDIO: %s (NIVEL %d) ***", name, sarcasm)
	}
	return fmt.Sprintf("*** TRANSCRIPCIÓN DE AUDIO: %s ***", name)
}

// Lab transcribes and remixes recordings.
type Lab struct {
	llm llm.Provider
	options
}

// NewLab returns a Lab backed by p. See [WithTranscriber] for routing
// transcriptions elsewhere.
func NewLab(p llm.Provider, opts ...Option) *Lab {
	return &Lab{llm: p, options: applyOptions(opts)}
}

// Process runs req through the lab.
func (l *Lab) Process(ctx context.Context, req AudioRequest) (*AudioResult, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	ctx, span := observe.StartSpan(ctx, "studio.audio")
	defer span.End()
	span.SetAttributes(
		attribute.String("mode", string(req.Mode)),
		attribute.String("mime_type", req.MIMEType),
		attribute.Int("bytes", len(req.Data)),
	)

	start := time.Now()
	var (
		text string
		err  error
	)
	if req.Mode == ModeTranscribe && l.stt != nil {
		text, err = l.transcribe(ctx, req)
	} else {
		text, err = l.complete(ctx, req)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("studio: process audio: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		l.log.Warn("studio: model returned no text for audio", "file", req.Name, "mode", req.Mode)
		text = FallbackAudioText
	}
	l.log.Info("studio: audio processed",
		"file", req.Name,
		"mode", req.Mode,
		"bytes", len(req.Data),
		"duration", time.Since(start),
	)
	return &AudioResult{Header: Header(req.Name, req.Mode, req.Sarcasm), Text: text}, nil
}

func (l *Lab) transcribe(ctx context.Context, req AudioRequest) (string, error) {
	start := time.Now()
	tr, err := l.stt.Transcribe(ctx, stt.Request{
		Name:     req.Name,
		MIMEType: req.MIMEType,
		Data:     req.Data,
	})
	l.observeCall(ctx, l.metrics.STTDuration, "transcribe", start, err)
	if err != nil {
		return "", err
	}
	return tr.Text, nil
}

func (l *Lab) complete(ctx context.Context, req AudioRequest) (string, error) {
	start := time.Now()
	resp, err := l.llm.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			llm.UserMessage(audioPrompt(req), llm.Attachment{
				Name:     req.Name,
				MIMEType: req.MIMEType,
				Data:     req.Data,
			}),
		},
	})
	l.observeCall(ctx, l.metrics.LLMDuration, string(req.Mode), start, err)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func audioPrompt(r AudioRequest) string {
	if r.Mode == ModeTranscribe {
		return transcribePrompt
	}
	return fmt.Sprintf(`Escucha este audio. Tu tarea es reescribir lo que se dice pero con un nivel de sarcasmo y acidez de %d/10.
Mantén el significado central del mensaje, pero hazlo gracioso, cínico y burlón.
Si el audio es serio, búrlate de su seriedad. Si es tonto, exagera su estupidez.
Formato de salida: Texto plano listo para ser leído por un locutor sarcástico.`, r.Sarcasm)
}
