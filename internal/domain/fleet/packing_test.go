package fleet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ogsentinel/fleetwatch/internal/domain/fleet"
)

func TestPackCargoFillsDeuteriumFirst(t *testing.T) {
	packed := fleet.PackCargo(1000, fleet.Resources{Metal: 400, Crystal: 400, Deuterium: 400})

	assert.Equal(t, 400, packed.Deuterium)
	assert.Equal(t, 400, packed.Crystal)
	assert.Equal(t, 200, packed.Metal)
}

func TestPackCargoSatisfiesInvariant(t *testing.T) {
	cases := []struct {
		capacity  int
		available fleet.Resources
	}{
		{capacity: 0, available: fleet.Resources{Metal: 10, Crystal: 10, Deuterium: 10}},
		{capacity: 50, available: fleet.Resources{Metal: 10, Crystal: 10, Deuterium: 10}},
		{capacity: 1000, available: fleet.Resources{Metal: 100, Crystal: 0, Deuterium: 0}},
		{capacity: 15, available: fleet.Resources{Metal: 5, Crystal: 5, Deuterium: 5}},
	}

	for _, c := range cases {
		packed := fleet.PackCargo(c.capacity, c.available)

		wantDeuterium := min(c.available.Deuterium, c.capacity)
		assert.Equal(t, wantDeuterium, packed.Deuterium)

		wantCrystal := min(c.available.Crystal, c.capacity-packed.Deuterium)
		assert.Equal(t, wantCrystal, packed.Crystal)

		wantMetal := min(c.available.Metal, c.capacity-packed.Deuterium-packed.Crystal)
		assert.Equal(t, wantMetal, packed.Metal)

		total := packed.Deuterium + packed.Crystal + packed.Metal
		assert.Equal(t, min(c.capacity, c.available.Metal+c.available.Crystal+c.available.Deuterium), total)
	}
}
