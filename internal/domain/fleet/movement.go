package fleet

import (
	"github.com/ogsentinel/fleetwatch/internal/domain/coordinates"
	"github.com/ogsentinel/fleetwatch/internal/domain/engine"
)

// Resources is the flat metal/crystal/deuterium resource model.
type Resources struct {
	Metal     int
	Crystal   int
	Deuterium int
}

// Movement is one of the player's own fleets, as reported on the movement
// page.
type Movement struct {
	ID              string
	Origin          coordinates.Coordinates
	Destination     coordinates.Coordinates
	DepartureTime   int64
	ArrivalTime     int64
	Mission         Mission
	ReturnFlight    bool
	Ships           engine.Fleet
	Cargo           Resources
	Holding         bool
	HoldingDuration int // seconds
}
