// Package mock provides test doubles for the live package interfaces.
//
// Use Provider to verify Connect calls and hand out controllable sessions.
// Use Session to inject server events and inspect the frames the caller sent.
//
// Example:
//
//	sess := mock.NewSession()
//	p := &mock.Provider{Session: sess}
//	s, _ := p.Connect(ctx, cfg)
//	sess.Emit(live.Event{Kind: live.EventOpened})
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/cynicast/pkg/audio"
	"github.com/MrWong99/cynicast/pkg/provider/live"
)

var (
	_ live.Provider = (*Provider)(nil)
	_ live.Session  = (*Session)(nil)
)

// ConnectCall records a single invocation of Provider.Connect.
type ConnectCall struct {
	// Cfg is the SessionConfig passed to Connect.
	Cfg live.SessionConfig
}

// Provider is a mock implementation of live.Provider.
type Provider struct {
	mu sync.Mutex

	// Session is returned by Connect. If nil, Connect returns a fresh
	// Session from NewSession.
	Session *Session

	// ConnectErr, if non-nil, is returned as the error from Connect.
	ConnectErr error

	// ConnectHook, if set, runs before Connect returns. It may block on ctx
	// to simulate a slow dial.
	ConnectHook func(ctx context.Context) error

	// ConnectCalls records every call to Connect in order.
	ConnectCalls []ConnectCall
}

// Connect records the call and returns Session, ConnectErr.
func (p *Provider) Connect(ctx context.Context, cfg live.SessionConfig) (live.Session, error) {
	p.mu.Lock()
	p.ConnectCalls = append(p.ConnectCalls, ConnectCall{Cfg: cfg})
	hook, err, sess := p.ConnectHook, p.ConnectErr, p.Session
	p.mu.Unlock()

	if hook != nil {
		if herr := hook(ctx); herr != nil {
			return nil, herr
		}
	}
	if err != nil {
		return nil, err
	}
	if sess == nil {
		sess = NewSession()
		p.mu.Lock()
		p.Session = sess
		p.mu.Unlock()
	}
	return sess, nil
}

// Name returns "mock".
func (p *Provider) Name() string { return "mock" }

// Calls returns a copy of the recorded Connect calls.
func (p *Provider) Calls() []ConnectCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ConnectCall(nil), p.ConnectCalls...)
}

// CurrentSession returns the session handed out by the last Connect.
func (p *Provider) CurrentSession() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Session
}

// Session is a mock implementation of live.Session.
type Session struct {
	mu sync.Mutex

	// SendErr, if non-nil, is returned from Send.
	SendErr error

	sent       []audio.Frame
	closeCount int
	closed     bool
	sentCh     chan struct{}

	events    chan live.Event
	closeOnce sync.Once
	done      chan struct{}
}

// NewSession returns a Session with a buffered event stream.
func NewSession() *Session {
	return &Session{
		events: make(chan live.Event, 256),
		done:   make(chan struct{}),
		sentCh: make(chan struct{}, 1024),
	}
}

// Send records the frame.
func (s *Session) Send(_ context.Context, f audio.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return live.ErrSessionClosed
	}
	if s.SendErr != nil {
		return s.SendErr
	}
	s.sent = append(s.sent, f)
	select {
	case s.sentCh <- struct{}{}:
	default:
	}
	return nil
}

// Events returns the event stream fed by Emit.
func (s *Session) Events() <-chan live.Event { return s.events }

// Emit pushes ev to the event stream. It reports false once the session is
// closed.
func (s *Session) Emit(ev live.Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// Close marks the session closed. Later Emit calls report false. The event
// channel is left open so that concurrent Emit calls cannot panic.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closeCount++
	s.closed = true
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// Sent returns a copy of the frames received by Send in order.
func (s *Session) Sent() []audio.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audio.Frame(nil), s.sent...)
}

// SentSignal receives a value after each successful Send.
func (s *Session) SentSignal() <-chan struct{} { return s.sentCh }

// CloseCount returns how many times Close was called.
func (s *Session) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCount
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
