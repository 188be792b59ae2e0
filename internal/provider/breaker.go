package provider

import (
	"sync"
	"time"
)

const (
	// Consecutive failures before a provider is paused.
	breakerThreshold = 4
	// How long a tripped provider is skipped without I/O.
	breakerCooldown = 45 * time.Second
)

type providerState struct {
	consecutiveFailures int
	cooldownUntil       time.Time
}

// Breaker pauses a provider after repeated consecutive failures so a dead
// or throttling upstream is not hammered while the batch runs. All updates
// are serialized behind one mutex; workers never observe a half-applied
// trip decision.
type Breaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu     sync.Mutex
	states map[string]*providerState
}

// NewBreaker creates a circuit breaker with the default threshold/cooldown.
func NewBreaker() *Breaker {
	return &Breaker{
		threshold: breakerThreshold,
		cooldown:  breakerCooldown,
		now:       time.Now,
		states:    make(map[string]*providerState),
	}
}

// Allow reports whether the provider may be called right now. While the
// cooldown window is open the call must short-circuit with no network I/O.
func (b *Breaker) Allow(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.states[name]
	if !ok {
		return true
	}
	return !b.now().Before(state.cooldownUntil)
}

// Failure records one counted failure (429, 5xx, malformed payload,
// network error). Reaching the threshold opens the cooldown window and
// resets the counter.
func (b *Breaker) Failure(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.states[name]
	if !ok {
		state = &providerState{}
		b.states[name] = state
	}

	state.consecutiveFailures++
	if state.consecutiveFailures >= b.threshold {
		state.cooldownUntil = b.now().Add(b.cooldown)
		state.consecutiveFailures = 0
	}
}

// Success resets the failure count and clears any cooldown.
func (b *Breaker) Success(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.states[name]
	if !ok {
		return
	}
	state.consecutiveFailures = 0
	state.cooldownUntil = time.Time{}
}

// Failures returns the current consecutive-failure count, for stats.
func (b *Breaker) Failures(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if state, ok := b.states[name]; ok {
		return state.consecutiveFailures
	}
	return 0
}
