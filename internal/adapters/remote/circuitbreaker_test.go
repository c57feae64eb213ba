package remote_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ogsentinel/fleetwatch/internal/adapters/remote"
	"github.com/ogsentinel/fleetwatch/internal/domain/shared"
)

var errBoom = errors.New("boom")

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	clock := shared.NewMockClock(time.Unix(0, 0))
	cb := remote.NewCircuitBreaker(2, time.Minute, clock)

	assert.ErrorIs(t, cb.Call(func() error { return errBoom }), errBoom)
	assert.Equal(t, remote.CircuitClosed, cb.State())

	assert.ErrorIs(t, cb.Call(func() error { return errBoom }), errBoom)
	assert.Equal(t, remote.CircuitOpen, cb.State())
}

func TestCircuitBreakerRejectsWhileOpen(t *testing.T) {
	clock := shared.NewMockClock(time.Unix(0, 0))
	cb := remote.NewCircuitBreaker(1, time.Minute, clock)

	_ = cb.Call(func() error { return errBoom })
	assert.Equal(t, remote.CircuitOpen, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, remote.ErrCircuitOpen)
	assert.False(t, called, "fn must not run while circuit is open")
}

func TestCircuitBreakerHalfOpenProbeRecovers(t *testing.T) {
	clock := shared.NewMockClock(time.Unix(0, 0))
	cb := remote.NewCircuitBreaker(1, time.Minute, clock)

	_ = cb.Call(func() error { return errBoom })
	assert.Equal(t, remote.CircuitOpen, cb.State())

	clock.Advance(time.Minute)
	err := cb.Call(func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, remote.CircuitClosed, cb.State())
	assert.Equal(t, 0, cb.FailureCount())
}

func TestCircuitBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	clock := shared.NewMockClock(time.Unix(0, 0))
	cb := remote.NewCircuitBreaker(1, time.Minute, clock)

	_ = cb.Call(func() error { return errBoom })
	clock.Advance(time.Minute)
	err := cb.Call(func() error { return errBoom })

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, remote.CircuitOpen, cb.State())
}

func TestCircuitBreakerResetClearsState(t *testing.T) {
	clock := shared.NewMockClock(time.Unix(0, 0))
	cb := remote.NewCircuitBreaker(1, time.Minute, clock)

	_ = cb.Call(func() error { return errBoom })
	cb.Reset()

	assert.Equal(t, remote.CircuitClosed, cb.State())
	assert.Equal(t, 0, cb.FailureCount())
}
