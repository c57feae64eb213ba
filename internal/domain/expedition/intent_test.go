package expedition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ogsentinel/fleetwatch/internal/domain/expedition"
)

func TestRepeatExhaustsAfterExactlyNDecrements(t *testing.T) {
	r := expedition.Repeat{Count: 3}

	for i := 0; i < 3; i++ {
		assert.False(t, r.Exhausted(), "should not be exhausted before all cycles run")
		r = r.Decrement()
	}
	assert.True(t, r.Exhausted())
	assert.Equal(t, 0, r.Count)
}

func TestRepeatForeverNeverDecrements(t *testing.T) {
	r := expedition.Repeat{Forever: true, Count: 0}

	for i := 0; i < 10; i++ {
		r = r.Decrement()
		assert.False(t, r.Exhausted())
	}
}

func TestIntentIsRunningTracksFleetID(t *testing.T) {
	intent := &expedition.Intent{ID: "E1"}
	assert.False(t, intent.IsRunning())

	intent.FleetID = "fleet-123"
	assert.True(t, intent.IsRunning())
}
