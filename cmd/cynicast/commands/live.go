package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/cynicast/internal/app"
	"github.com/MrWong99/cynicast/internal/config"
	"github.com/MrWong99/cynicast/internal/live"
	"github.com/MrWong99/cynicast/pkg/audio/device"
)

var liveMeter bool

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Talk to the AI executive producer",
	Long: `Open the microphone and speaker and start a realtime voice session with
the AI executive producer. Press Ctrl+C to end the session.`,
	Args: cobra.NoArgs,
	RunE: runLive,
}

func init() {
	liveCmd.Flags().BoolVar(&liveMeter, "meter", true, "show the live status line with the microphone level")
}

// console serialises terminal writes from the session goroutines and the
// status ticker. The status line is redrawn in place; other lines are
// printed above it.
type console struct {
	mu     sync.Mutex
	w      io.Writer
	status bool
}

func (c *console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status {
		fmt.Fprint(c.w, "\r\033[K")
		c.status = false
	}
	fmt.Fprintln(c.w, s)
}

func (c *console) redraw(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.w, "\r\033[K"+s)
	c.status = true
}

func runLive(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := *cfg
	c.Providers.LLM, c.Providers.STT, c.Providers.LLMFallbacks = config.ProviderEntry{}, config.ProviderEntry{}, nil

	log := slog.Default()
	reg := config.NewRegistry()
	app.RegisterBuiltinProviders(reg, log)
	ps, err := app.BuildProviders(ctx, &c, reg, log)
	if err != nil {
		return err
	}

	backend, err := device.NewMalgo()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(app.MsgMicrophone))
		return err
	}
	defer backend.Close()

	out := &console{w: cmd.OutOrStdout()}
	sm := app.NewSessionManager(app.SessionManagerConfig{
		Provider: ps.Live,
		Device:   backend,
		Config:   &c,
		Logger:   log,
		OnStatus: func(s live.Status) {
			switch s.State {
			case live.StateActive:
				out.println(labelStyle.Render("Conectado.") + " Habla cuando quieras. Ctrl+C para terminar.")
			case live.StateDisconnected:
				if errors.Is(s.Cause, live.ErrTransportClosed) {
					out.println(mutedStyle.Render("El productor colgó."))
				}
			}
		},
		OnTranscript: func(t live.Transcript) { out.println(transcriptLine(t)) },
	})

	out.println(summary("cynicast · en vivo", [][2]string{
		{"Provider", providerValue(c.Providers.Live.Name, c.Providers.Live.Model)},
		{"Voice", c.Live.Voice},
	}))

	if err := sm.Start(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		out.println(errorStyle.Render(app.UserMessage(err)))
		return err
	}

	if liveMeter {
		go drawStatus(ctx, out, sm)
	}

	err = sm.Wait(ctx)
	if err != nil {
		out.println(errorStyle.Render(app.UserMessage(err)))
		return err
	}
	info := sm.Info()
	out.println(mutedStyle.Render(fmt.Sprintf("Sesión %s terminada tras %s.",
		info.SessionID, time.Since(info.StartedAt).Round(time.Second))))
	return nil
}

func drawStatus(ctx context.Context, out *console, sm *app.SessionManager) {
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !sm.IsActive() {
				return
			}
			out.redraw(statusLine(sm.Snapshot()))
		}
	}
}
