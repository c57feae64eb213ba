package fleet

import (
	"github.com/ogsentinel/fleetwatch/internal/domain/coordinates"
	"github.com/ogsentinel/fleetwatch/internal/domain/engine"
)

// Event is a fleet observed on the events page; the core never mutates it.
type Event struct {
	ID               string
	Origin           coordinates.Coordinates
	Destination      coordinates.Coordinates
	ArrivalTime      int64 // seconds since epoch
	Mission          Mission
	ReturnFlight     bool
	Ships            engine.Fleet // optional: from hover-tooltip, may be nil
	OpposingPlayerID string       // optional
}

// IsHostileTo reports whether e constitutes a hostile event against a
// planet the player owns, excluding fleets composed solely of probes.
func (e Event) IsHostileTo(ownedDestinations map[coordinates.Coordinates]bool) bool {
	if !IsHostileMission(e.Mission) {
		return false
	}
	if !ownedDestinations[e.Destination] {
		return false
	}
	if e.Ships != nil && engine.IsProbeOnly(e.Ships) {
		return false
	}
	return true
}
