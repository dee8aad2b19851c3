// Package reload re-applies the configuration file to running modules,
// on SIGHUP, on file modification, or on request from the admin surface.
package reload

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const defaultPollInterval = 5 * time.Second

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// ConfigPath is the path to the configuration file to watch.
	ConfigPath string

	// PollInterval is how often to check for file changes.
	// Defaults to 5 seconds if zero.
	PollInterval time.Duration
}

func (c WatcherConfig) pollIntervalOrDefault() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return defaultPollInterval
}

// Event reports that the watched file changed.
type Event struct {
	ConfigPath string
	ModTime    time.Time
}

// fingerprint identifies one version of the file. Size catches rewrites
// that land within the filesystem's mtime granularity.
type fingerprint struct {
	modTime time.Time
	size    int64
}

// Watcher polls a configuration file for modifications. Events coalesce:
// at most one is pending at a time.
type Watcher struct {
	cfg     WatcherConfig
	events  chan Event
	stop    chan struct{}
	stopped chan struct{}

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewWatcher creates a new file watcher.
func NewWatcher(cfg WatcherConfig) *Watcher {
	return &Watcher{
		cfg:     cfg,
		events:  make(chan Event, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins polling. Only the first call starts the goroutine.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.started.Store(true)
		go w.poll(ctx)
	})
}

// Events returns the channel of file change events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop stops the watcher and waits for the poll goroutine to exit. Safe to
// call multiple times and before Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	if w.started.Load() {
		<-w.stopped
	}
}

func (w *Watcher) poll(ctx context.Context) {
	defer close(w.stopped)

	ticker := time.NewTicker(w.cfg.pollIntervalOrDefault())
	defer ticker.Stop()

	last, _ := w.stat()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			current, ok := w.stat()
			// A missing file is usually an editor's rename-and-replace in
			// progress. Keep the last version and check again.
			if !ok || current == last {
				continue
			}
			last = current
			select {
			case w.events <- Event{ConfigPath: w.cfg.ConfigPath, ModTime: current.modTime}:
			default:
			}
		}
	}
}

func (w *Watcher) stat() (fingerprint, bool) {
	info, err := os.Stat(w.cfg.ConfigPath)
	if err != nil {
		return fingerprint{}, false
	}
	return fingerprint{modTime: info.ModTime(), size: info.Size()}, true
}
