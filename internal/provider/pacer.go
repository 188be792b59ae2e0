package provider

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum interval between dispatches per provider,
// independent of which worker issues the call. The limiter state is shared
// across all workers, so spacing holds for the whole run.
type Pacer struct {
	base  time.Duration
	floor time.Duration

	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	intervals map[string]time.Duration
}

// NewPacer creates a pacer with the given base interval (the job's
// delaySeconds) and the floor below which no provider interval may drop.
func NewPacer(base, floor time.Duration) *Pacer {
	return &Pacer{
		base:      base,
		floor:     floor,
		limiters:  make(map[string]*rate.Limiter),
		intervals: make(map[string]time.Duration),
	}
}

// Register creates the limiter for a provider. Interval is
// max(base×weight, floor); burst 1, so the first call goes out
// immediately and every later call reserves the next slot.
func (p *Pacer) Register(name string, weight float64) {
	interval := time.Duration(float64(p.base) * weight)
	if interval < p.floor {
		interval = p.floor
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.intervals[name] = interval
	p.limiters[name] = rate.NewLimiter(rate.Every(interval), 1)
}

// Interval returns the configured minimum interval for a provider.
func (p *Pacer) Interval(name string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.intervals[name]
}

// Wait blocks until the provider's next slot is available and reserves it.
// Returns the context error when cancelled while waiting.
func (p *Pacer) Wait(ctx context.Context, name string) error {
	p.mu.Lock()
	limiter := p.limiters[name]
	p.mu.Unlock()

	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}
