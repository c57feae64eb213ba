// Package expedition holds the expedition intent: a repeating send-fleet
// command tracked across wakes until its repeat counter reaches zero or it
// is cancelled.
package expedition

import (
	"github.com/ogsentinel/fleetwatch/internal/domain/coordinates"
	"github.com/ogsentinel/fleetwatch/internal/domain/engine"
	"github.com/ogsentinel/fleetwatch/internal/domain/fleet"
)

// Repeat is either a finite counter or "forever".
type Repeat struct {
	Forever bool
	Count   int
}

func (r Repeat) Decrement() Repeat {
	if r.Forever {
		return r
	}
	return Repeat{Count: r.Count - 1}
}

func (r Repeat) Exhausted() bool {
	return !r.Forever && r.Count <= 0
}

// Cancel is a pending cancellation request against a running intent.
type Cancel struct {
	ReturnFleet bool
}

// Intent is a client-assigned expedition the subsystem keeps dispatching
// until it finishes. FleetID is empty when not currently running; the
// invariant running <=> FleetID != "" is maintained by the subsystem, not
// by this type.
type Intent struct {
	ID              string
	Origin          coordinates.Coordinates
	OriginType      coordinates.BodyType
	Destination     coordinates.Coordinates
	Ships           engine.Fleet
	Speed           int // 1-10, fraction of 100% in steps of 10
	HoldingSeconds  int
	Cargo           fleet.Resources
	Repeat          Repeat
	PendingCancel   *Cancel
	FleetID         string
}

// IsRunning reports the invariant: an intent is running iff it has a fleet id.
func (i Intent) IsRunning() bool {
	return i.FleetID != ""
}
