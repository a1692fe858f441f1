package config_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrWong99/cynicast/internal/config"
)

const (
	watcherValidYAML   = "server:\n  log_level: info\nstudio:\n  host_name: Cyber-Vato\n"
	watcherUpdatedYAML = "server:\n  log_level: debug\nstudio:\n  host_name: Doña Bit\n"
	watcherInvalidYAML = "server:\n  log_level: bananas\n"
)

// writeFile writes content and pushes the mtime forward so coarse
// filesystem timestamps still register a change.
func writeFile(t *testing.T, path, content string, bump time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
	if bump > 0 {
		ts := time.Now().Add(bump)
		if err := os.Chtimes(path, ts, ts); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cynicast.yaml")
	writeFile(t, path, watcherValidYAML, 0)

	w, err := config.NewWatcher(path, nil, config.WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if cfg := w.Current(); cfg == nil || cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("Current() = %+v", cfg)
	}
}

func TestWatcher_InitialLoadInvalid(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cynicast.yaml")
	writeFile(t, path, watcherInvalidYAML, 0)

	if _, err := config.NewWatcher(path, nil); err == nil {
		t.Fatal("expected error for invalid initial config")
	}
}

func newTestWatcher(t *testing.T, content string) (string, *config.Watcher, <-chan config.Change) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cynicast.yaml")
	writeFile(t, path, content, 0)

	changes := make(chan config.Change, 4)
	w, err := config.NewWatcher(path, func(c config.Change) { changes <- c },
		config.WithInterval(20*time.Millisecond),
		config.WithWatcherLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(w.Stop)
	return path, w, changes
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()
	path, w, changes := newTestWatcher(t, watcherValidYAML)

	writeFile(t, path, watcherUpdatedYAML, 2*time.Second)

	var c config.Change
	select {
	case c = <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not invoked")
	}
	if !c.Diff.LogLevelChanged || c.Diff.NewLogLevel != config.LogDebug || !c.Diff.StudioChanged {
		t.Errorf("diff = %+v, want log level and studio changes", c.Diff)
	}
	if c.Old.Studio.HostName != "Cyber-Vato" || c.New.Studio.HostName != "Doña Bit" {
		t.Errorf("old/new host = %q/%q", c.Old.Studio.HostName, c.New.Studio.HostName)
	}
	if w.Current() != c.New {
		t.Error("Current() is not the reloaded config")
	}
}

func TestWatcher_SkipsIneffectiveEdit(t *testing.T) {
	t.Parallel()
	path, w, changes := newTestWatcher(t, watcherValidYAML)
	before := w.Current()

	// Same settings, different bytes.
	writeFile(t, path, "# comentario\n"+watcherValidYAML, 2*time.Second)

	select {
	case c := <-changes:
		t.Fatalf("callback invoked for a comment-only edit: %+v", c.Diff)
	case <-time.After(200 * time.Millisecond):
	}
	if w.Current() == before {
		t.Error("Current() not refreshed after the edit")
	}
}

func TestWatcher_IgnoresInvalidEdit(t *testing.T) {
	t.Parallel()
	path, w, changes := newTestWatcher(t, watcherValidYAML)

	writeFile(t, path, watcherInvalidYAML, 2*time.Second)

	select {
	case <-changes:
		t.Fatal("callback invoked for an invalid config")
	case <-time.After(200 * time.Millisecond):
	}
	if w.Current().Server.LogLevel != config.LogInfo {
		t.Errorf("current log level = %q, want previous config kept", w.Current().Server.LogLevel)
	}

	// A later valid edit is still picked up.
	writeFile(t, path, watcherUpdatedYAML, 4*time.Second)
	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("valid edit after an invalid one was not reported")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cynicast.yaml")
	writeFile(t, path, watcherValidYAML, 0)

	w, err := config.NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Stop()
	w.Stop()
}
