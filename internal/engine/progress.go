package engine

import (
	"sync"
)

// progressTracker converts per-identifier completion events into a
// monotonic weighted 0..total progress value.
//
// Invalid and cached rows report their full row weight immediately. An
// identifier that survives into later rounds credits rows/maxRounds per
// completed round, and whatever weight remains is credited in one step
// when the identifier resolves or is finalized, so each identifier
// contributes its row weight exactly once.
type progressTracker struct {
	mu        sync.Mutex
	total     int
	maxRounds int
	done      float64
	credited  map[string]float64
	emit      func(done float64, total int)
}

func newProgressTracker(total, maxRounds int, emit func(done float64, total int)) *progressTracker {
	if maxRounds < 1 {
		maxRounds = 1
	}
	if emit == nil {
		emit = func(float64, int) {}
	}
	return &progressTracker{
		total:     total,
		maxRounds: maxRounds,
		credited:  make(map[string]float64),
		emit:      emit,
	}
}

// CreditFull reports full weight for rows that never enter the round loop
// (cache hits, invalid identifiers).
func (t *progressTracker) CreditFull(rows int) {
	if rows <= 0 {
		return
	}
	t.mu.Lock()
	t.done += float64(rows)
	done := t.done
	t.mu.Unlock()
	t.emit(done, t.total)
}

// CreditRound reports one round's partial weight for an identifier that
// will be retried. Capped so accumulated partial credit never exceeds the
// identifier's row weight.
func (t *progressTracker) CreditRound(id string, rows int) {
	if rows <= 0 {
		return
	}
	t.mu.Lock()
	weight := float64(rows) / float64(t.maxRounds)
	if remaining := float64(rows) - t.credited[id]; weight > remaining {
		weight = remaining
	}
	if weight <= 0 {
		t.mu.Unlock()
		return
	}
	t.credited[id] += weight
	t.done += weight
	done := t.done
	t.mu.Unlock()
	t.emit(done, t.total)
}

// CreditFinal reports the identifier's remaining weight on resolution or
// finalization. Safe to call once per identifier; a second call is a no-op.
func (t *progressTracker) CreditFinal(id string, rows int) {
	if rows <= 0 {
		return
	}
	t.mu.Lock()
	remaining := float64(rows) - t.credited[id]
	if remaining <= 0 {
		t.mu.Unlock()
		return
	}
	t.credited[id] = float64(rows)
	t.done += remaining
	done := t.done
	t.mu.Unlock()
	t.emit(done, t.total)
}

// Done returns the accumulated progress.
func (t *progressTracker) Done() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}
