package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/cynicast/internal/config"
	"github.com/MrWong99/cynicast/internal/live"
	"github.com/MrWong99/cynicast/internal/observe"
	"github.com/MrWong99/cynicast/pkg/audio/device"
	transport "github.com/MrWong99/cynicast/pkg/provider/live"
)

// User-facing messages for a failed live session.
const (
	MsgMicrophone = "No se pudo iniciar la sesión. Verifica el micrófono."
	MsgConnection = "Error de conexión"
)

// SessionInfo holds metadata about the running live session.
type SessionInfo struct {
	SessionID string
	Provider  string
	Model     string
	Voice     string
	StartedAt time.Time
}

// SessionManager runs live producer sessions for the CLI. It owns one
// [live.Controller] and forwards its notifications.
// All exported methods are safe for concurrent use.
type SessionManager struct {
	ctrl     *live.Controller
	provider transport.Provider
	session  transport.SessionConfig
	log      *slog.Logger

	onStatus func(live.Status)

	mu     sync.Mutex
	info   SessionInfo
	active bool
	ended  chan live.Status
}

// SessionManagerConfig holds the dependencies of a [SessionManager].
type SessionManagerConfig struct {
	Provider transport.Provider
	Device   device.Backend
	Config   *config.Config

	Logger  *slog.Logger
	Metrics *observe.Metrics

	// OnStatus and OnTranscript are optional listeners. Both run on session
	// goroutines and must not block.
	OnStatus     func(live.Status)
	OnTranscript func(live.Transcript)
}

// NewSessionManager builds the live controller from cfg.Config.Live.
func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	lc := cfg.Config.Live
	sm := &SessionManager{
		provider: cfg.Provider,
		session: transport.SessionConfig{
			Model:        cfg.Config.Providers.Live.Model,
			Voice:        lc.Voice,
			Instructions: lc.Instructions,
			Transcribe:   lc.TranscribeEnabled(),
		},
		log:      cfg.Logger,
		onStatus: cfg.OnStatus,
		ended:    make(chan live.Status, 1),
	}
	opts := []live.Option{
		live.WithLogger(cfg.Logger),
		live.WithStatusListener(sm.handleStatus),
	}
	if cfg.Metrics != nil {
		opts = append(opts, live.WithMetrics(cfg.Metrics))
	}
	if cfg.OnTranscript != nil {
		opts = append(opts, live.WithTranscriptListener(cfg.OnTranscript))
	}
	sm.ctrl = live.New(cfg.Provider, cfg.Device, live.Config{
		Session:        sm.session,
		FrameSize:      lc.FrameSize,
		SendQueue:      lc.SendQueue,
		VolumeGain:     lc.VolumeGain,
		ConnectTimeout: lc.ConnectTimeout,
	}, opts...)
	return sm
}

func (sm *SessionManager) handleStatus(s live.Status) {
	sm.mu.Lock()
	switch s.State {
	case live.StateConnecting:
		sm.active = true
		sm.info = SessionInfo{
			SessionID: s.SessionID,
			Provider:  sm.provider.Name(),
			Model:     sm.session.Model,
			Voice:     sm.session.Voice,
			StartedAt: time.Now().UTC(),
		}
	case live.StateDisconnected:
		if sm.active {
			sm.active = false
			select {
			case sm.ended <- s:
			default:
			}
		}
	}
	sm.mu.Unlock()

	if sm.onStatus != nil {
		sm.onStatus(s)
	}
}

// Start opens the devices and dials the transport. It returns
// [live.ErrSessionActive] while a session is running.
func (sm *SessionManager) Start(ctx context.Context) error {
	// Drain a stale end notification from a previous session.
	select {
	case <-sm.ended:
	default:
	}
	if err := sm.ctrl.Start(ctx); err != nil {
		return fmt.Errorf("app: start live session: %w", err)
	}
	return nil
}

// Wait blocks until the session ends or ctx is done. A cancelled ctx stops
// the session and is not reported as an error. The returned error is the
// fatal cause, if any; a remote close returns nil.
func (sm *SessionManager) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return sm.ctrl.Close()
	case <-sm.ended:
		return sm.ctrl.Err()
	}
}

// Run starts a session and waits for it to end.
func (sm *SessionManager) Run(ctx context.Context) error {
	if err := sm.Start(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return sm.Wait(ctx)
}

// Stop ends the current session without waiting for its goroutines.
func (sm *SessionManager) Stop() error { return sm.ctrl.Stop() }

// Close ends the current session and waits for it to be torn down.
func (sm *SessionManager) Close() error { return sm.ctrl.Close() }

// IsActive reports whether a session is connecting or running.
func (sm *SessionManager) IsActive() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.active
}

// Info returns metadata about the current or most recent session.
func (sm *SessionManager) Info() SessionInfo {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.info
}

// Snapshot returns the controller's live view of the session.
func (sm *SessionManager) Snapshot() live.Snapshot { return sm.ctrl.Snapshot() }

// UserMessage converts a live session error into the message shown to the
// user. It returns "" for nil.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, live.ErrPermissionDenied):
		return MsgMicrophone
	default:
		return MsgConnection
	}
}
