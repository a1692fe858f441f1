package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrWong99/cynicast/internal/app"
	"github.com/MrWong99/cynicast/internal/config"
	"github.com/MrWong99/cynicast/internal/observe"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the studio HTTP API",
	Long: `Serve the script writer and audio lab over HTTP:

  POST /api/scripts   JSON episode brief → script
  POST /api/audio     multipart upload (file, mode, sarcasm) → result
  GET  /healthz       liveness
  GET  /readyz        readiness (circuit breaker state)
  GET  /metrics       Prometheus metrics

Log level and studio defaults are reloaded when the configuration file
changes; other sections need a restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "override server.listen_addr")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if serveAddr != "" {
		cfg.Server.ListenAddr = serveAddr
	}

	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	a, err := newStudio(ctx,
		app.WithMetrics(tel.Metrics),
		app.WithMetricsHandler(tel.Handler),
		app.WithCloser(func() error {
			sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return tel.Shutdown(sctx)
		}),
	)
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return err
	}

	if _, err := os.Stat(configPath); err == nil {
		w, err := config.NewWatcher(configPath, reloader(a))
		if err != nil {
			slog.Warn("config hot-reload disabled", "err", err)
		} else {
			defer w.Stop()
		}
	}

	fmt.Fprintln(cmd.ErrOrStderr(), summary("cynicast · serve", [][2]string{
		{"Listen", cfg.Server.ListenAddr},
		{"LLM", providerValue(cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)},
		{"Fallbacks", fallbackNames(cfg.Providers.LLMFallbacks)},
		{"STT", providerValue(cfg.Providers.STT.Name, cfg.Providers.STT.Model)},
		{"Log level", string(cfg.Server.LogLevel)},
	}))

	runErr := a.Run(ctx)

	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.Shutdown(sctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	return runErr
}

// reloader applies the hot-reloadable parts of a configuration change.
func reloader(a *app.App) func(config.Change) {
	return func(c config.Change) {
		if c.Diff.LogLevelChanged {
			levelVar.Set(c.Diff.NewLogLevel.Level())
			slog.Info("log level changed", "level", c.Diff.NewLogLevel)
		}
		if c.Diff.StudioChanged {
			a.ApplyStudio(c.New.Studio)
		}
		if len(c.Diff.RestartRequired) > 0 {
			slog.Warn("config change needs a restart", "sections", c.Diff.RestartRequired)
		}
	}
}

func fallbackNames(entries []config.ProviderEntry) string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return strings.Join(names, ", ")
}
