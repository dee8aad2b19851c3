package execution

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultSweepInterval = time.Hour

// Purger is the subset of Store the sweeper needs.
type Purger interface {
	Purge(ctx context.Context, before time.Time) (int, error)
}

// SweeperConfig configures a retention Sweeper.
type SweeperConfig struct {
	// Retention is how long rows are kept. Defaults to DefaultRetention.
	Retention time.Duration

	// Interval is how often expired rows are purged. Defaults to one hour.
	Interval time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// Sweeper deletes expired execution rows on a fixed interval. It is the
// housekeeping half of the store and never runs as part of a lock or mark
// call.
type Sweeper struct {
	store  Purger
	cfg    SweeperConfig
	cancel context.CancelFunc
	done   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewSweeper creates a sweeper for store.
func NewSweeper(store Purger, cfg SweeperConfig) *Sweeper {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultSweepInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Sweeper{store: store, cfg: cfg, done: make(chan struct{})}
}

// Start runs one sweep immediately and then one per interval until Stop.
// Calling Start more than once has no effect.
func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go s.loop(ctx)
	})
}

// Stop halts the sweep loop and waits for an in-progress sweep to return.
// Safe to call before Start and more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		started := false
		s.startOnce.Do(func() {}) // prevent a later Start
		if s.cancel != nil {
			s.cancel()
			started = true
		}
		if started {
			<-s.done
		}
	})
}

// SweepOnce purges rows older than the retention window.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.cfg.Now().Add(-s.cfg.Retention)
	n, err := s.store.Purge(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.cfg.Logger.Info("execution: purged expired rows", "count", n, "cutoff", cutoff.UTC().Format(time.RFC3339))
	}
	return n, nil
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.cfg.Logger.Warn("execution: retention sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
