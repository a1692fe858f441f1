// Package openai implements the live.Provider interface for OpenAI's Realtime API.
//
// It establishes a bidirectional WebSocket connection to the OpenAI Realtime
// endpoint and exchanges JSON events according to the Realtime API protocol.
// The Realtime API speaks 24 kHz PCM16 in both directions, so captured 16 kHz
// frames are resampled before they are appended to the input buffer.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/coder/websocket"

	"github.com/MrWong99/cynicast/pkg/audio"
	"github.com/MrWong99/cynicast/pkg/provider/live"
)

// Compile-time assertions that Provider and session satisfy the live interfaces.
var _ live.Provider = (*Provider)(nil)
var _ live.Session = (*session)(nil)

const (
	defaultModel   = "gpt-4o-realtime-preview"
	defaultBaseURL = "wss://api.openai.com/v1/realtime"

	// wireRate is the only PCM16 rate the Realtime API accepts.
	wireRate = 24000

	eventBuffer = 64
)

// ── Options ────────────────────────────────────────────────────────────────────

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the OpenAI model used for sessions.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithBaseURL overrides the base WebSocket URL. Primarily used in tests to
// point at a local mock server.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// WithLogger sets the logger for session diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// ── Provider ───────────────────────────────────────────────────────────────────

// Provider implements live.Provider for OpenAI's Realtime API.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
	log     *slog.Logger
}

// New creates a new OpenAI Realtime Provider with the given API key and options.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Name implements live.Provider.
func (p *Provider) Name() string { return "openai" }

// Connect establishes a new OpenAI Realtime session and sends session.update.
// EventOpened is emitted once the server confirms the session.
func (p *Provider) Connect(ctx context.Context, cfg live.SessionConfig) (live.Session, error) {
	model := p.model
	if cfg.Model != "" {
		model = cfg.Model
	}
	wsURL := fmt.Sprintf("%s?model=%s", p.baseURL, url.QueryEscape(model))

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + p.apiKey},
			"OpenAI-Beta":   []string{"realtime=v1"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: dial: %w", err)
	}
	conn.SetReadLimit(16 << 20)

	sessCtx, sessCancel := context.WithCancel(context.Background())
	sess := &session{
		conn:   conn,
		events: make(chan live.Event, eventBuffer),
		ctx:    sessCtx,
		cancel: sessCancel,
		log:    p.log.With("provider", "openai", "model", model),
	}

	if err := sess.writeJSON(ctx, newSessionUpdate(cfg)); err != nil {
		sessCancel()
		conn.Close(websocket.StatusInternalError, "session update failed")
		return nil, fmt.Errorf("openai: session update: %w", err)
	}

	go sess.receiveLoop()

	return sess, nil
}

// ── Protocol message types (outgoing) ─────────────────────────────────────────

type sessionUpdateMessage struct {
	Type    string        `json:"type"`
	Session sessionParams `json:"session"`
}

type sessionParams struct {
	Modalities              []string           `json:"modalities"`
	Voice                   string             `json:"voice,omitempty"`
	Instructions            string             `json:"instructions,omitempty"`
	InputAudioFormat        string             `json:"input_audio_format"`
	OutputAudioFormat       string             `json:"output_audio_format"`
	InputAudioTranscription *transcriptionConf `json:"input_audio_transcription,omitempty"`
	TurnDetection           *turnDetection     `json:"turn_detection,omitempty"`
}

type transcriptionConf struct {
	Model string `json:"model"`
}

type turnDetection struct {
	Type string `json:"type"`
}

type appendAudioMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio"` // base64-encoded PCM16
}

func newSessionUpdate(cfg live.SessionConfig) sessionUpdateMessage {
	params := sessionParams{
		Modalities:        []string{"audio", "text"},
		Voice:             cfg.Voice,
		Instructions:      cfg.Instructions,
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
		TurnDetection:     &turnDetection{Type: "server_vad"},
	}
	if cfg.Transcribe {
		params.InputAudioTranscription = &transcriptionConf{Model: "whisper-1"}
	}
	return sessionUpdateMessage{Type: "session.update", Session: params}
}

// ── Protocol message types (incoming) ─────────────────────────────────────────

// serverErrorDetail represents the nested error object in an OpenAI Realtime
// error event: {"type":"error","error":{"type":"...","code":"...","message":"..."}}.
type serverErrorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *serverErrorDetail) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	if e.Code != "" {
		return fmt.Sprintf("openai: %s (%s)", msg, e.Code)
	}
	return "openai: " + msg
}

type serverEvent struct {
	Type string `json:"type"`

	// response.{output_,}audio.delta / response.{output_,}audio_transcript.delta
	Delta string `json:"delta,omitempty"`

	// conversation.item.input_audio_transcription.completed
	Transcript string `json:"transcript,omitempty"`

	// error event
	Error *serverErrorDetail `json:"error,omitempty"`
}

// ── session ────────────────────────────────────────────────────────────────────

type session struct {
	conn   *websocket.Conn
	events chan live.Event
	log    *slog.Logger

	mu     sync.Mutex
	closed bool
	opened bool

	// transcript accumulates response.audio_transcript.delta events until
	// response.audio_transcript.done is received. Only touched by receiveLoop.
	transcript strings.Builder

	ctx    context.Context
	cancel context.CancelFunc
}

// writeJSON marshals v and writes it as a text WebSocket message.
func (s *session) writeJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("openai: marshal: %w", err)
	}
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *session) emit(ev live.Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// receiveLoop reads events from the WebSocket and dispatches them.
// It owns the events channel and closes it when it exits.
func (s *session) receiveLoop() {
	defer close(s.events)

	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			var ce websocket.CloseError
			if errors.As(err, &ce) {
				var reason error
				if ce.Code != websocket.StatusNormalClosure {
					reason = fmt.Errorf("openai: closed by server: %w", err)
				}
				s.emit(live.Event{Kind: live.EventClosed, Err: reason})
				return
			}
			s.emit(live.Event{Kind: live.EventError, Err: fmt.Errorf("openai: read: %w", err)})
			return
		}

		var evt serverEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			s.log.Warn("openai: skipping malformed event", "err", err)
			continue
		}

		if !s.handleServerEvent(&evt) {
			return
		}
	}
}

func (s *session) handleServerEvent(evt *serverEvent) bool {
	switch evt.Type {
	case "session.created", "session.updated":
		// The first confirmation opens the session; later updates are echoes.
		if s.opened {
			return true
		}
		s.opened = true
		return s.emit(live.Event{Kind: live.EventOpened})

	case "response.audio.delta", "response.output_audio.delta":
		if evt.Delta == "" {
			return true
		}
		return s.emit(live.Event{
			Kind:  live.EventAudio,
			Audio: audio.Chunk{Data: evt.Delta, SampleRate: wireRate},
		})

	case "input_audio_buffer.speech_started":
		return s.emit(live.Event{Kind: live.EventInterrupted})

	case "response.audio_transcript.delta", "response.output_audio_transcript.delta":
		s.transcript.WriteString(evt.Delta)
		return true

	case "response.audio_transcript.done", "response.output_audio_transcript.done":
		text := s.transcript.String()
		s.transcript.Reset()
		if text == "" {
			return true
		}
		return s.emit(live.Event{Kind: live.EventTranscript, Speaker: live.SpeakerModel, Text: text})

	case "conversation.item.input_audio_transcription.completed":
		if evt.Transcript == "" {
			return true
		}
		return s.emit(live.Event{Kind: live.EventTranscript, Speaker: live.SpeakerUser, Text: evt.Transcript})

	case "response.done":
		return s.emit(live.Event{Kind: live.EventTurnComplete})

	case "error":
		detail := evt.Error
		if detail == nil {
			detail = &serverErrorDetail{}
		}
		s.emit(live.Event{Kind: live.EventError, Err: detail})
		return false
	}
	return true
}

// ── Session methods ────────────────────────────────────────────────────────────

// Send appends one captured frame to the input audio buffer, resampled to the
// Realtime API's 24 kHz.
func (s *session) Send(ctx context.Context, frame audio.Frame) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return live.ErrSessionClosed
	}

	pcm, err := base64.StdEncoding.DecodeString(frame.Data)
	if err != nil {
		return fmt.Errorf("openai: frame payload: %w", err)
	}
	pcm = audio.ResampleMono16(pcm, frameRate(frame.MIMEType), wireRate)

	msg := appendAudioMessage{
		Type:  "input_audio_buffer.append",
		Audio: base64.StdEncoding.EncodeToString(pcm),
	}
	if err := s.writeJSON(ctx, msg); err != nil {
		return fmt.Errorf("openai: send audio: %w", err)
	}
	return nil
}

// frameRate extracts the rate parameter from a MIME tag such as
// "audio/pcm;rate=16000", defaulting to the capture rate.
func frameRate(mime string) int {
	_, rate, ok := strings.Cut(mime, "rate=")
	if !ok {
		return audio.Input.SampleRate
	}
	n, err := strconv.Atoi(rate)
	if err != nil || n <= 0 {
		return audio.Input.SampleRate
	}
	return n
}

// Events returns the ordered event stream.
func (s *session) Events() <-chan live.Event { return s.events }

// Close terminates the session and releases all resources. Idempotent.
func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.conn.Close(websocket.StatusNormalClosure, "session closed")
	return nil
}
