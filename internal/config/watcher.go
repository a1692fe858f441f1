package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Change is delivered to the [Watcher] callback after a successful reload.
type Change struct {
	Old, New *Config
	Diff     ConfigDiff
}

// Watcher polls a config file and reports edits that change the effective
// configuration. Invalid edits are logged once and ignored; the previous
// config stays current until the file validates again.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(Change)
	log      *slog.Logger

	mu      sync.Mutex
	current *Config
	seen    stamp

	done chan struct{}
	stop sync.Once
}

// stamp identifies one version of the file on disk.
type stamp struct {
	mtime time.Time
	size  int64
	sum   [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatcherLogger sets the logger. Default: slog.Default().
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.log = l }
}

// NewWatcher loads path and starts polling it. onChange may be nil; it runs
// on the polling goroutine and only for edits with a non-empty [Diff].
func NewWatcher(path string, onChange func(Change), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		log:      slog.Default(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	st, data, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current, w.seen = cfg, st

	go w.poll()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends polling. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stop.Do(func() { close(w.done) })
}

func (w *Watcher) poll() {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-t.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.log.Warn("config: watcher cannot stat file", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	seen := w.seen
	w.mu.Unlock()
	if info.ModTime().Equal(seen.mtime) && info.Size() == seen.size {
		return
	}

	st, data, err := w.read()
	if err != nil {
		w.log.Warn("config: watcher cannot read file", "path", w.path, "err", err)
		return
	}
	if st.sum == seen.sum {
		w.remember(st)
		return
	}

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		// Remembered so the same broken file is reported once, not every tick.
		w.remember(st)
		w.log.Warn("config: watcher ignoring invalid config", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	old := w.current
	w.current, w.seen = cfg, st
	w.mu.Unlock()

	d := Diff(old, cfg)
	if d.Empty() {
		w.log.Debug("config: file changed without effect", "path", w.path)
		return
	}
	w.log.Info("config: reloaded",
		"path", w.path,
		"log_level_changed", d.LogLevelChanged,
		"studio_changed", d.StudioChanged,
		"restart_required", d.RestartRequired,
	)
	if w.onChange != nil {
		w.onChange(Change{Old: old, New: cfg, Diff: d})
	}
}

func (w *Watcher) remember(st stamp) {
	w.mu.Lock()
	w.seen = st
	w.mu.Unlock()
}

// read returns the file content with its stamp. The stamp's mtime and size
// come from the same open file that was read.
func (w *Watcher) read() (stamp, []byte, error) {
	f, err := os.Open(w.path)
	if err != nil {
		return stamp{}, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return stamp{}, nil, err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		return stamp{}, nil, err
	}
	return stamp{
		mtime: info.ModTime(),
		size:  info.Size(),
		sum:   sha256.Sum256(buf.Bytes()),
	}, buf.Bytes(), nil
}
