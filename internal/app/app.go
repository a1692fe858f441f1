// Package app wires the cynicast subsystems into a running application.
//
// [App] is the composition root for `cynicast serve`: New builds the studio
// from the configured providers, Handler exposes the HTTP API with health
// and metrics endpoints, Run serves it until the context is cancelled, and
// Shutdown releases everything in reverse order.
//
// [SessionManager] drives the live producer session for `cynicast live`.
//
// For testing, inject mock providers through [Providers] and observability
// sinks through the functional options.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/cynicast/internal/config"
	"github.com/MrWong99/cynicast/internal/health"
	"github.com/MrWong99/cynicast/internal/observe"
	"github.com/MrWong99/cynicast/internal/studio"
)

// App owns the studio services and the HTTP server.
type App struct {
	cfg       *config.Config
	providers *Providers

	log            *slog.Logger
	metrics        *observe.Metrics
	metricsHandler http.Handler

	writer *studio.Writer
	lab    *studio.Lab
	health *health.Handler

	// studioCfg holds the hot-reloadable studio defaults.
	studioCfg atomic.Pointer[config.StudioConfig]

	handler http.Handler

	// closers are called in reverse order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.log = l }
}

// WithMetrics sets the metrics sink. Defaults to observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.metricsHandler = h }
}

// WithCloser registers fn to run during Shutdown.
func WithCloser(fn func() error) Option {
	return func(a *App) { a.closers = append(a.closers, fn) }
}

// New creates an App from cfg and the instantiated providers. An LLM
// provider is required; STT is optional.
func New(cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.LLM == nil {
		return nil, errors.New("app: an llm provider is required")
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	name := providers.LLMName
	if name == "" {
		name = "llm"
	}
	studioOpts := []studio.Option{
		studio.WithLogger(a.log),
		studio.WithMetrics(a.metrics),
		studio.WithProviderName(name),
	}
	a.writer = studio.NewWriter(providers.LLM, studioOpts...)
	if providers.STT != nil {
		studioOpts = append(studioOpts, studio.WithTranscriber(providers.STT))
	}
	a.lab = studio.NewLab(providers.LLM, studioOpts...)

	sc := cfg.Studio
	a.studioCfg.Store(&sc)

	a.health = health.New(a.checkers())
	a.handler = a.routes()
	return a, nil
}

// checkers returns a readiness check for every provider that can report
// its own availability.
func (a *App) checkers() []health.Checker {
	type checker interface {
		Check(ctx context.Context) error
	}
	var out []health.Checker
	if c, ok := a.providers.LLM.(checker); ok {
		out = append(out, health.Checker{Name: "llm", Check: c.Check})
	}
	if c, ok := a.providers.STT.(checker); ok {
		out = append(out, health.Checker{Name: "stt", Check: c.Check})
	}
	return out
}

func (a *App) routes() http.Handler {
	mw := observe.Middleware(a.metrics)
	mux := http.NewServeMux()
	mux.Handle("POST /api/scripts", mw(http.HandlerFunc(a.handleScript)))
	mux.Handle("POST /api/audio", mw(http.HandlerFunc(a.handleAudio)))
	a.health.Register(mux)
	if a.metricsHandler != nil {
		mux.Handle("GET /metrics", a.metricsHandler)
	}
	return mux
}

// Handler returns the HTTP handler serving the API, health and metrics.
func (a *App) Handler() http.Handler { return a.handler }

// Studio returns the studio defaults currently in effect.
func (a *App) Studio() config.StudioConfig { return *a.studioCfg.Load() }

// ApplyStudio replaces the studio defaults. It is safe to call while
// requests are being served.
func (a *App) ApplyStudio(s config.StudioConfig) {
	a.studioCfg.Store(&s)
	a.log.Info("app: studio defaults updated",
		"podcast", s.PodcastName,
		"host", s.HostName,
		"intensity", s.Intensity,
		"sarcasm", s.Sarcasm,
	)
}

// Run serves the HTTP API on cfg.Server.ListenAddr until ctx is cancelled,
// then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("app: listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener. It closes ln.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	tls := a.cfg.Server.TLS

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("app: http server listening", "addr", ln.Addr().String(), "tls", tls != nil)
		var err error
		if tls != nil {
			err = srv.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			err = srv.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := a.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = config.DefaultShutdownTimeout
		}
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("app: http shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// Shutdown runs the registered closers in reverse order. It respects the
// context deadline: if ctx expires first, the remaining closers are skipped
// and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.log.Info("app: shutting down", "closers", len(a.closers))
		var errs []error
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := ctx.Err(); err != nil {
				a.log.Warn("app: shutdown deadline exceeded", "remaining", i+1)
				errs = append(errs, err)
				break
			}
			if err := a.closers[i](); err != nil {
				a.log.Warn("app: closer error", "index", i, "err", err)
				errs = append(errs, err)
			}
		}
		shutdownErr = errors.Join(errs...)
		a.log.Info("app: shutdown complete")
	})
	return shutdownErr
}
