// Package genailive implements the live.Provider interface on top of the
// official Google GenAI SDK's Live client.
//
// It is the SDK-backed alternative to the raw WebSocket provider in
// package gemini: the SDK owns the wire format and this package only maps
// SDK messages onto live.Event values.
package genailive

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"google.golang.org/genai"

	"github.com/MrWong99/cynicast/pkg/audio"
	"github.com/MrWong99/cynicast/pkg/provider/live"
)

var (
	_ live.Provider = (*Provider)(nil)
	_ live.Session  = (*session)(nil)
)

// DefaultModel is used when neither the provider nor the session names one.
const DefaultModel = "gemini-2.5-flash-native-audio-preview-09-2025"

const eventBuffer = 64

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the default model for sessions.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithBaseURL points the SDK at a different endpoint. Used in tests.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// WithLogger sets the logger for session diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// Provider implements live.Provider using genai.Client.Live.
type Provider struct {
	client  *genai.Client
	model   string
	baseURL string
	log     *slog.Logger
}

// New creates a Provider authenticated with apiKey.
func New(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	p := &Provider{model: DefaultModel, log: slog.Default()}
	for _, o := range opts {
		o(p)
	}

	cc := &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1beta"},
	}
	if p.baseURL != "" {
		cc.HTTPOptions.BaseURL = p.baseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("genailive: new client: %w", err)
	}
	p.client = client
	return p, nil
}

// Name implements live.Provider.
func (p *Provider) Name() string { return "genai" }

// Connect implements live.Provider.
func (p *Provider) Connect(ctx context.Context, cfg live.SessionConfig) (live.Session, error) {
	model := p.model
	if cfg.Model != "" {
		model = cfg.Model
	}

	conf := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
	}
	if cfg.Voice != "" {
		conf.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	if cfg.Instructions != "" {
		conf.SystemInstruction = genai.NewContentFromText(cfg.Instructions, genai.RoleUser)
	}
	if cfg.Transcribe {
		conf.InputAudioTranscription = &genai.AudioTranscriptionConfig{}
		conf.OutputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}

	// Live.Connect only uses ctx for credentials; the websocket handshake is
	// a context-free Dial. Race it so cancellation still aborts the connect.
	type result struct {
		s   *genai.Session
		err error
	}
	ch := make(chan result, 1)
	go func() {
		s, err := p.client.Live.Connect(ctx, model, conf)
		ch <- result{s, err}
	}()

	var conn *genai.Session
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("genailive: connect: %w", r.err)
		}
		conn = r.s
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.s != nil {
				r.s.Close()
			}
		}()
		return nil, fmt.Errorf("genailive: connect: %w", ctx.Err())
	}

	s := &session{
		conn:   conn,
		events: make(chan live.Event, eventBuffer),
		done:   make(chan struct{}),
		log:    p.log.With("provider", "genai", "model", model),
	}
	go s.receiveLoop()
	return s, nil
}

type session struct {
	conn   *genai.Session
	events chan live.Event
	done   chan struct{}
	log    *slog.Logger

	// writeMu serialises SDK writes; the underlying connection allows only
	// one concurrent writer.
	writeMu sync.Mutex

	mu     sync.Mutex
	closed bool
}

func (s *session) emit(ev live.Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *session) receiveLoop() {
	defer close(s.events)

	for {
		msg, err := s.conn.Receive()
		if err != nil {
			if s.isClosed() {
				return
			}
			s.emit(terminalEvent(err))
			return
		}
		if !s.dispatch(msg) {
			return
		}
	}
}

func terminalEvent(err error) live.Event {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		var reason error
		if ce.Code != websocket.CloseNormalClosure {
			reason = fmt.Errorf("genailive: closed by server: %w", err)
		}
		return live.Event{Kind: live.EventClosed, Err: reason}
	}
	return live.Event{Kind: live.EventError, Err: fmt.Errorf("genailive: receive: %w", err)}
}

func (s *session) dispatch(msg *genai.LiveServerMessage) bool {
	if msg.SetupComplete != nil {
		if !s.emit(live.Event{Kind: live.EventOpened}) {
			return false
		}
	}
	sc := msg.ServerContent
	if sc == nil {
		return true
	}

	if sc.Interrupted {
		if !s.emit(live.Event{Kind: live.EventInterrupted}) {
			return false
		}
	}
	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			chunk := audio.Chunk{
				Data:       base64.StdEncoding.EncodeToString(part.InlineData.Data),
				SampleRate: audio.Output.SampleRate,
			}
			if !s.emit(live.Event{Kind: live.EventAudio, Audio: chunk}) {
				return false
			}
		}
	}
	if t := sc.InputTranscription; t != nil && t.Text != "" {
		if !s.emit(live.Event{Kind: live.EventTranscript, Speaker: live.SpeakerUser, Text: t.Text}) {
			return false
		}
	}
	if t := sc.OutputTranscription; t != nil && t.Text != "" {
		if !s.emit(live.Event{Kind: live.EventTranscript, Speaker: live.SpeakerModel, Text: t.Text}) {
			return false
		}
	}
	if sc.TurnComplete {
		return s.emit(live.Event{Kind: live.EventTurnComplete})
	}
	return true
}

// Send implements live.Session. The SDK expects raw bytes, so the frame's
// base64 payload is decoded before handing it over.
func (s *session) Send(_ context.Context, frame audio.Frame) error {
	if s.isClosed() {
		return live.ErrSessionClosed
	}
	pcm, err := base64.StdEncoding.DecodeString(frame.Data)
	if err != nil {
		return fmt.Errorf("genailive: frame payload: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	err = s.conn.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{MIMEType: frame.MIMEType, Data: pcm},
	})
	if err != nil {
		return fmt.Errorf("genailive: send audio: %w", err)
	}
	return nil
}

// Events implements live.Session.
func (s *session) Events() <-chan live.Event { return s.events }

// Close implements live.Session.
func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	if err := s.conn.Close(); err != nil {
		s.log.Debug("genailive: close", "err", err)
	}
	return nil
}
