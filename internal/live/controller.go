// Package live runs a realtime voice session between the local microphone
// and speaker and a remote live model.
//
// A [Controller] is an explicit state machine:
//
//	Disconnected → Connecting → Active → {Error, Disconnected}
//
// It owns every resource of a session (microphone, speaker, transport,
// playback queue) and releases all of them through a single teardown path,
// whether the session ends because the user stopped it, the remote side
// closed it, or the transport failed. Nothing is retried: after any
// terminal event the caller must call [Controller.Start] again.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/cynicast/internal/observe"
	"github.com/MrWong99/cynicast/pkg/audio"
	"github.com/MrWong99/cynicast/pkg/audio/device"
	transport "github.com/MrWong99/cynicast/pkg/provider/live"
)

const (
	// DefaultFrameSize is the number of microphone samples per outbound frame.
	DefaultFrameSize = 4096

	// DefaultSendQueue is the capacity of the frame channel between capture
	// and the sender.
	DefaultSendQueue = 8
)

// errStopped is returned by Start when Stop raced with it.
var errStopped = errors.New("live: session stopped while starting")

// Config tunes a [Controller]. Zero fields take their defaults.
type Config struct {
	// Session is passed to the transport on connect.
	Session transport.SessionConfig

	// FrameSize is the outbound frame length in samples. Default: 4096.
	FrameSize int

	// SendQueue is the capacity of the outbound frame channel. Default: 8.
	SendQueue int

	// VolumeGain scales the RMS volume indicator. Default: 5.
	VolumeGain float64

	// ConnectTimeout bounds the transport dial. Zero means no limit beyond
	// the context passed to Start.
	ConnectTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.FrameSize <= 0 {
		c.FrameSize = DefaultFrameSize
	}
	if c.SendQueue <= 0 {
		c.SendQueue = DefaultSendQueue
	}
	if c.VolumeGain <= 0 {
		c.VolumeGain = audio.DefaultVolumeGain
	}
}

// Transcript is a line of recognised user speech or spoken model output.
type Transcript struct {
	SessionID string
	Speaker   transport.Speaker
	Text      string
}

// Option is a functional option for [New].
type Option func(*Controller)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithMetrics sets the metric instruments. Default: observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithStatusListener registers fn for state transitions. fn runs on the
// goroutine that caused the transition and may call Stop.
func WithStatusListener(fn func(Status)) Option {
	return func(c *Controller) { c.onStatus = fn }
}

// WithTranscriptListener registers fn for transcripts. fn runs on the event
// loop and must not block.
func WithTranscriptListener(fn func(Transcript)) Option {
	return func(c *Controller) { c.onTranscript = fn }
}

// Controller manages at most one live session at a time.
// All exported methods are safe for concurrent use.
type Controller struct {
	provider transport.Provider
	devices  device.Backend
	cfg      Config

	log          *slog.Logger
	metrics      *observe.Metrics
	onStatus     func(Status)
	onTranscript func(Transcript)

	mu     sync.Mutex
	state  State
	run    *run
	err    error
	closed bool

	// wg.Add happens under mu with closed unset, so it never races Close's Wait.
	wg sync.WaitGroup
}

// New returns a disconnected Controller that dials p and plays through d.
func New(p transport.Provider, d device.Backend, cfg Config, opts ...Option) *Controller {
	cfg.applyDefaults()
	c := &Controller{
		provider: p,
		devices:  d,
		cfg:      cfg,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// ── Session resources ──────────────────────────────────────────────────────

// run holds everything acquired for one session.
type run struct {
	id      string
	ctx     context.Context
	cancel  context.CancelFunc
	sched   *Scheduler
	capture *capture
	log     *slog.Logger
	started time.Time

	mu       sync.Mutex
	sess     transport.Session
	closers  []func() error
	released bool
}

// adopt registers fn for teardown. If the run was already released, fn is
// called at once and adopt reports false.
func (r *run) adopt(fn func() error) bool {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		_ = fn()
		return false
	}
	r.closers = append(r.closers, fn)
	r.mu.Unlock()
	return true
}

// release tears the run down exactly once. Closers run in reverse order of
// acquisition.
func (r *run) release() error {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return nil
	}
	r.released = true
	closers := r.closers
	r.closers = nil
	r.mu.Unlock()

	r.cancel()
	r.capture.disable()
	r.sched.Close()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *run) session() transport.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sess
}

// ── Lifecycle ──────────────────────────────────────────────────────────────

// Start acquires the microphone and speaker, dials the transport and begins
// streaming. It returns once the transport is connected; the session becomes
// [StateActive] when the server confirms the setup.
//
// Microphone or speaker failures wrap [ErrPermissionDenied] and no transport
// connect is attempted. Dial failures wrap [ErrConnectFailure]. ctx bounds
// only the start phase; the session itself runs until Stop or a terminal
// transport event.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	if c.run != nil {
		c.mu.Unlock()
		return ErrSessionActive
	}
	id := uuid.NewString()
	log := c.log.With("session_id", id)
	rctx, cancel := context.WithCancel(observe.WithSessionID(context.Background(), id))
	r := &run{
		id:      id,
		ctx:     rctx,
		cancel:  cancel,
		sched:   NewScheduler(audio.Output),
		capture: newCapture(audio.Input, c.cfg.FrameSize, c.cfg.SendQueue, c.cfg.VolumeGain, log, c.metrics),
		log:     log,
		started: time.Now(),
	}
	c.run = r
	c.err = nil
	c.state = StateConnecting
	c.mu.Unlock()

	c.metrics.ActiveSessions.Add(ctx, 1)
	r.adopt(func() error {
		c.metrics.ActiveSessions.Add(context.Background(), -1)
		return nil
	})
	c.notify(Status{State: StateConnecting, SessionID: id})
	log.Info("live: session starting", "provider", c.provider.Name(), "model", c.cfg.Session.Model)

	mic, err := c.devices.OpenMicrophone(audio.Input, r.capture.write)
	if err != nil {
		err = fmt.Errorf("%w: open microphone: %w", ErrPermissionDenied, err)
		c.terminate(r, err)
		return err
	}
	if !r.adopt(mic.Close) {
		return errStopped
	}

	spk, err := c.devices.OpenSpeaker(audio.Output, r.sched.Render)
	if err != nil {
		err = fmt.Errorf("%w: open speaker: %w", ErrPermissionDenied, err)
		c.terminate(r, err)
		return err
	}
	if !r.adopt(spk.Close) {
		return errStopped
	}

	sess, err := c.connect(ctx, r)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrConnectFailure, err)
		c.terminate(r, err)
		return err
	}
	if !r.adopt(sess.Close) {
		return errStopped
	}
	r.mu.Lock()
	r.sess = sess
	r.mu.Unlock()

	c.mu.Lock()
	if c.run != r {
		c.mu.Unlock()
		return errStopped
	}
	c.wg.Add(1)
	c.mu.Unlock()
	go c.supervise(r)
	return nil
}

// connect dials the transport. The dial is abandoned when ctx is done, when
// the run is stopped, or after the configured connect timeout.
func (c *Controller) connect(ctx context.Context, r *run) (transport.Session, error) {
	dctx, cancel := context.WithCancel(r.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if c.cfg.ConnectTimeout > 0 {
		var tcancel context.CancelFunc
		dctx, tcancel = context.WithTimeout(dctx, c.cfg.ConnectTimeout)
		defer tcancel()
	}

	dctx, span := observe.StartSpan(dctx, "live.connect",
		trace.WithAttributes(attribute.String("live.provider", c.provider.Name())))
	defer span.End()

	sess, err := c.provider.Connect(dctx, c.cfg.Session)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.metrics.RecordProviderError(ctx, c.provider.Name(), "live")
		return nil, err
	}
	return sess, nil
}

// supervise runs the event loop and the sender until either fails or the
// run is released, then tears the session down.
func (c *Controller) supervise(r *run) {
	defer c.wg.Done()

	g, gctx := errgroup.WithContext(r.ctx)
	g.Go(func() error { return c.loop(gctx, r) })
	g.Go(func() error { return c.send(gctx, r) })
	c.terminate(r, g.Wait())
}

// Stop ends the current session and releases all of its resources. It is
// idempotent, safe to call when no session exists, and never waits for the
// session goroutines, so it may be called from a listener.
func (c *Controller) Stop() error {
	c.mu.Lock()
	r := c.run
	c.run = nil
	c.state = StateDisconnected
	c.mu.Unlock()
	if r == nil {
		return nil
	}

	err := r.release()
	c.metrics.RecordSessionEnded(context.Background(), "stopped")
	r.log.Info("live: session stopped",
		"duration", time.Since(r.started),
		"frames_dropped", r.capture.droppedFrames(),
	)
	c.notify(Status{State: StateDisconnected, SessionID: r.id})
	return err
}

// Close stops the current session and waits for its goroutines to exit.
// The Controller cannot be started again afterwards.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	err := c.Stop()
	c.wg.Wait()
	return err
}

// terminate ends r after a terminal event. It does nothing if r is no
// longer the current run.
func (c *Controller) terminate(r *run, cause error) {
	c.mu.Lock()
	if c.run != r {
		c.mu.Unlock()
		return
	}
	c.run = nil
	c.state = StateDisconnected
	isFatal := fatal(cause)
	if isFatal {
		c.err = cause
	}
	c.mu.Unlock()

	if err := r.release(); err != nil {
		r.log.Warn("live: release session resources", "err", err)
	}

	reason := "stopped"
	switch {
	case errors.Is(cause, ErrTransportClosed):
		reason = "closed"
		r.log.Info("live: session closed by remote", "reason", cause)
	case isFatal:
		reason = "error"
		r.log.Error("live: session failed", "err", cause)
	}
	c.metrics.RecordSessionEnded(context.Background(), reason)

	if isFatal {
		c.notify(Status{State: StateError, SessionID: r.id, Cause: cause})
	}
	c.notify(Status{State: StateDisconnected, SessionID: r.id, Cause: cause})
}

func (c *Controller) notify(s Status) {
	if c.onStatus != nil {
		c.onStatus(s)
	}
}

// ── Session goroutines ─────────────────────────────────────────────────────

// loop consumes transport events in order. It is the only goroutine that
// schedules playback or flushes it on interruption.
func (c *Controller) loop(ctx context.Context, r *run) error {
	events := r.session().Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return ErrTransportClosed
			}
			if err := c.handle(ctx, r, ev); err != nil {
				return err
			}
		}
	}
}

func (c *Controller) handle(ctx context.Context, r *run, ev transport.Event) error {
	switch ev.Kind {
	case transport.EventOpened:
		c.activate(r)

	case transport.EventAudio:
		p, err := r.sched.Enqueue(ev.Audio)
		switch {
		case errors.Is(err, ErrDecode):
			r.log.Warn("live: dropping malformed audio chunk", "err", err)
			c.metrics.RecordChunkDropped(ctx, "decode")
		case errors.Is(err, ErrStaleChunk):
			c.metrics.RecordChunkDropped(ctx, "stale")
		default:
			c.metrics.ChunksPlayed.Add(ctx, 1)
			r.log.Debug("live: chunk scheduled",
				"start", r.sched.Duration(p.Start),
				"duration", r.sched.Duration(p.Frames()),
			)
		}

	case transport.EventInterrupted:
		n := r.sched.Interrupt()
		c.metrics.Interruptions.Add(ctx, 1)
		r.log.Debug("live: playback interrupted", "dropped", n)

	case transport.EventTurnComplete:
		r.log.Debug("live: turn complete")

	case transport.EventTranscript:
		if c.onTranscript != nil && ev.Text != "" {
			c.onTranscript(Transcript{SessionID: r.id, Speaker: ev.Speaker, Text: ev.Text})
		}

	case transport.EventError:
		if ev.Err == nil {
			return ErrTransport
		}
		return fmt.Errorf("%w: %w", ErrTransport, ev.Err)

	case transport.EventClosed:
		if ev.Err == nil {
			return ErrTransportClosed
		}
		return fmt.Errorf("%w: %w", ErrTransportClosed, ev.Err)
	}
	return nil
}

// activate moves a connecting run to StateActive and opens the capture gate.
func (c *Controller) activate(r *run) {
	c.mu.Lock()
	if c.run != r || c.state != StateConnecting {
		c.mu.Unlock()
		return
	}
	c.state = StateActive
	c.mu.Unlock()

	r.capture.enable()
	c.metrics.LiveConnectDuration.Record(r.ctx, time.Since(r.started).Seconds())
	r.log.Info("live: session active")
	c.notify(Status{State: StateActive, SessionID: r.id})
}

// send forwards captured frames to the transport one at a time, in capture
// order.
func (c *Controller) send(ctx context.Context, r *run) error {
	sess := r.session()
	frames := r.capture.frames()
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-frames:
			if err := sess.Send(ctx, f); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: send: %w", ErrTransport, err)
			}
			c.metrics.FramesSent.Add(ctx, 1)
		}
	}
}

// ── Accessors ──────────────────────────────────────────────────────────────

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that ended the last session, or nil if it ended
// normally or was closed by the remote side. Start clears it.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Snapshot returns the current session's playback position and volume.
// Without a session every numeric field is zero.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	r, state := c.run, c.state
	c.mu.Unlock()

	if r == nil {
		return Snapshot{State: state}
	}
	return Snapshot{
		State:     state,
		SessionID: r.id,
		Cursor:    r.sched.Cursor(),
		Clock:     r.sched.Now(),
		Queued:    r.sched.Len(),
		Volume:    r.capture.level(),
	}
}
