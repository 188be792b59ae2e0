package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// newTestBreaker returns a breaker on a fake clock the test can advance.
func newTestBreaker() (*Breaker, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := NewBreaker()
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakerAllowsUnknownProvider(t *testing.T) {
	b, _ := newTestBreaker()
	assert.True(t, b.Allow("cnpja_open"))
}

func TestBreakerTripsAtThreshold(t *testing.T) {
	b, _ := newTestBreaker()

	for i := 0; i < breakerThreshold-1; i++ {
		b.Failure("cnpja_open")
		assert.True(t, b.Allow("cnpja_open"), "below threshold must stay closed")
	}
	assert.Equal(t, breakerThreshold-1, b.Failures("cnpja_open"))

	b.Failure("cnpja_open")
	assert.False(t, b.Allow("cnpja_open"))
	assert.Equal(t, 0, b.Failures("cnpja_open"), "trip resets the counter")
}

func TestBreakerCooldownExpires(t *testing.T) {
	b, now := newTestBreaker()

	for i := 0; i < breakerThreshold; i++ {
		b.Failure("receita_ws")
	}
	assert.False(t, b.Allow("receita_ws"))

	*now = now.Add(breakerCooldown - time.Second)
	assert.False(t, b.Allow("receita_ws"))

	*now = now.Add(time.Second)
	assert.True(t, b.Allow("receita_ws"), "cooldown boundary is inclusive")
}

func TestBreakerSuccessResets(t *testing.T) {
	b, _ := newTestBreaker()

	b.Failure("brasil_api")
	b.Failure("brasil_api")
	b.Success("brasil_api")
	assert.Equal(t, 0, b.Failures("brasil_api"))

	// A fresh streak has to reach the full threshold again.
	for i := 0; i < breakerThreshold-1; i++ {
		b.Failure("brasil_api")
	}
	assert.True(t, b.Allow("brasil_api"))
}

func TestBreakerSuccessClearsCooldown(t *testing.T) {
	b, _ := newTestBreaker()

	for i := 0; i < breakerThreshold; i++ {
		b.Failure("minha_receita")
	}
	assert.False(t, b.Allow("minha_receita"))

	b.Success("minha_receita")
	assert.True(t, b.Allow("minha_receita"))
}

func TestBreakerTracksProvidersIndependently(t *testing.T) {
	b, _ := newTestBreaker()

	for i := 0; i < breakerThreshold; i++ {
		b.Failure("cnpja_open")
	}
	assert.False(t, b.Allow("cnpja_open"))
	assert.True(t, b.Allow("receita_ws"))
}
