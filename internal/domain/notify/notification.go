// Package notify defines the typed notification stream the decision core
// emits and a fan-out bus that never blocks the decision loop.
package notify

import "github.com/ogsentinel/fleetwatch/internal/domain/coordinates"

// Kind tags a Notification's concrete payload.
type Kind string

const (
	Started            Kind = "started"
	Stopped            Kind = "stopped"
	WakeUp             Kind = "wake_up"
	HostileEvent       Kind = "hostile_event"
	HostileRecalled    Kind = "hostile_event_recalled"
	PlanetsSafe        Kind = "planets_safe"
	FleetSaved         Kind = "fleet_saved"
	FleetRecalled      Kind = "fleet_recalled"
	SavedFleetRecalled Kind = "saved_fleet_recalled"
	ExpeditionFinished Kind = "expedition_finished"
	ExpeditionCancelled Kind = "expedition_cancelled"
	DebrisHarvest      Kind = "debris_harvest"
	Fatal              Kind = "fatal"
)

// Notification is a single typed event in the notification stream. Only
// the fields relevant to Kind are populated; the rest are zero values.
type Notification struct {
	Kind Kind

	Planet              coordinates.Coordinates
	Arrival             int64
	PreviousArrival      *int64
	Origin              coordinates.Coordinates
	Destination         coordinates.Coordinates
	Error               error
	Expedition          string
	Cancellation        bool
	FleetReturned       bool
	DebrisDestination   coordinates.Coordinates
	Debris              int

	// Err carries the full error chain for a Fatal notification, so sinks
	// can render it the way the reference bot's exception listener does.
	Err error
}

func NewStarted() Notification { return Notification{Kind: Started} }
func NewStopped() Notification { return Notification{Kind: Stopped} }
func NewWakeUp() Notification  { return Notification{Kind: WakeUp} }

func NewHostileEvent(planet coordinates.Coordinates, arrival int64, previousArrival *int64) Notification {
	return Notification{Kind: HostileEvent, Planet: planet, Arrival: arrival, PreviousArrival: previousArrival}
}

func NewHostileRecalled(planet coordinates.Coordinates, arrival int64) Notification {
	return Notification{Kind: HostileRecalled, Planet: planet, Arrival: arrival}
}

func NewPlanetsSafe() Notification { return Notification{Kind: PlanetsSafe} }

func NewFleetSaved(origin coordinates.Coordinates, arrival int64, destination *coordinates.Coordinates, err error) Notification {
	n := Notification{Kind: FleetSaved, Origin: origin, Arrival: arrival, Error: err}
	if destination != nil {
		n.Destination = *destination
	}
	return n
}

func NewFleetRecalled(origin, destination coordinates.Coordinates, arrival int64, err error) Notification {
	return Notification{Kind: FleetRecalled, Origin: origin, Destination: destination, Arrival: arrival, Error: err}
}

func NewSavedFleetRecalled(origin coordinates.Coordinates, err error) Notification {
	return Notification{Kind: SavedFleetRecalled, Origin: origin, Error: err}
}

func NewExpeditionFinished(expedition string, err error) Notification {
	return Notification{Kind: ExpeditionFinished, Expedition: expedition, Error: err}
}

func NewExpeditionCancelled(expedition string, cancellation, fleetReturned bool) Notification {
	return Notification{Kind: ExpeditionCancelled, Expedition: expedition, Cancellation: cancellation, FleetReturned: fleetReturned}
}

func NewDebrisHarvest(destination coordinates.Coordinates, debris int, err error) Notification {
	return Notification{Kind: DebrisHarvest, DebrisDestination: destination, Debris: debris, Error: err}
}

// NewFatal wraps an unhandled error for every sink, carrying the full
// unwrap chain the way the reference bot's exception listener forwards a
// full traceback rather than a flat message.
func NewFatal(err error) Notification {
	return Notification{Kind: Fatal, Err: err}
}
