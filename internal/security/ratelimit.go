package security

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a bucket is full.
var ErrRateLimited = errors.New("rate limit exceeded")

// Limit allows Max events per Window.
type Limit struct {
	Max    int
	Window time.Duration
}

// RateLimiter is a set of named sliding-window buckets.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	Limit
	events []time.Time
}

// NewRateLimiter creates one bucket per entry with a positive Max. Kinds
// without a bucket are never limited.
func NewRateLimiter(limits map[string]Limit) *RateLimiter {
	rl := &RateLimiter{buckets: make(map[string]*bucket), now: time.Now}
	for kind, l := range limits {
		if l.Max <= 0 {
			continue
		}
		if l.Window <= 0 {
			l.Window = time.Minute
		}
		rl.buckets[kind] = &bucket{Limit: l}
	}
	return rl
}

// Allow records one event of kind, or returns ErrRateLimited when the
// bucket is full. A nil RateLimiter allows everything.
func (rl *RateLimiter) Allow(kind string) error {
	if rl == nil {
		return nil
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[kind]
	if !ok {
		return nil
	}

	now := rl.now()
	b.evict(now)
	if len(b.events) >= b.Max {
		return ErrRateLimited
	}
	b.events = append(b.events, now)
	return nil
}

// evict drops events older than the window. Events are in time order.
func (b *bucket) evict(now time.Time) {
	cutoff := now.Add(-b.Window)
	i := 0
	for i < len(b.events) && b.events[i].Before(cutoff) {
		i++
	}
	b.events = b.events[i:]
}
