// Package remote defines the typed Remote Game Client interface the core
// consumes: authentication, HTML/JSON parsing, form submission and
// rate-limiting all live behind this boundary, out of the core's scope.
package remote

import (
	"context"

	"github.com/ogsentinel/fleetwatch/internal/domain/coordinates"
	"github.com/ogsentinel/fleetwatch/internal/domain/engine"
	"github.com/ogsentinel/fleetwatch/internal/domain/fleet"
)

// CharacterClass is the player's active character class.
type CharacterClass string

const (
	Collector  CharacterClass = "collector"
	General    CharacterClass = "general"
	Discoverer CharacterClass = "discoverer"
)

// Body is one of the player's planets or moons.
type Body struct {
	ID     string
	Name   string
	Coords coordinates.Coordinates
}

// Overview is the result of get-overview.
type Overview struct {
	Bodies         []Body
	CharacterClass CharacterClass
}

// Research is the result of get-research: technology levels plus any
// active production.
type Research struct {
	Levels           map[engine.Drive]int
	HyperspaceLevel  int
	ActiveProduction bool
}

// Shipyard is the result of get-shipyard.
type Shipyard struct {
	Ships            engine.Fleet
	ActiveProduction bool
}

// Resources is an alias for the flat resource model used across the core.
type Resources = fleet.Resources

// ResourcesWithCap pairs a resource amount with its storage cap.
type ResourcesWithCap struct {
	Amount Resources
	Cap    Resources
}

// Movement is the result of get-fleet-movement: the player's own fleets,
// plus the remote timestamp of the read.
type Movement struct {
	Fleets    []fleet.Movement
	Timestamp int64
}

// FleetDispatch is the result of get-fleet-dispatch: current ships, free
// slots and a single-use dispatch token.
type FleetDispatch struct {
	Ships          engine.Fleet
	FreeFleetSlots int
	Token          string
	Timestamp      int64
}

// GalaxyTile is one position's contents on a galaxy page.
type GalaxyTile struct {
	Position      int
	ExpeditionDebris fleet.Resources
}

// Galaxy is the result of get-galaxy.
type Galaxy struct {
	Tiles []GalaxyTile
}

// SendFleetRequest is the full argument set for send-fleet. Token must come
// from the FleetDispatch snapshot obtained immediately before the call.
// GetFleetDispatch and SendFleet are separate GameClient methods; the port
// does not prevent another remote call between them.
type SendFleetRequest struct {
	Origin         coordinates.Coordinates
	Destination    coordinates.Coordinates
	Mission        fleet.Mission
	Ships          engine.Fleet
	SpeedPercentage int
	Resources       *Resources
	HoldingSeconds  int
	Token           string
}

// GameClient is the typed Remote Game Client interface the core consumes.
// Implementations own authentication, HTML/JSON parsing, form submission
// and rate-limiting.
type GameClient interface {
	GetOverview(ctx context.Context) (Overview, error)
	GetResearch(ctx context.Context) (Research, error)
	GetShipyard(ctx context.Context, planet coordinates.Coordinates) (Shipyard, error)
	GetResources(ctx context.Context, planet coordinates.Coordinates) (ResourcesWithCap, error)
	GetEvents(ctx context.Context) ([]fleet.Event, error)

	// GetFleetMovement returns the player's own fleets. When returnFleetID
	// is non-empty, it first issues a recall command for that fleet id;
	// either way this is a mutating-or-not call the cache only memoises
	// when returnFleetID is empty.
	GetFleetMovement(ctx context.Context, returnFleetID string) (Movement, error)

	// GetFleetDispatch must immediately precede SendFleet: its Token is
	// single-use and its validity window closes quickly.
	GetFleetDispatch(ctx context.Context, planet coordinates.Coordinates) (FleetDispatch, error)

	GetGalaxy(ctx context.Context, galaxy, system int) (Galaxy, error)

	// SendFleet does not provide idempotency; callers verify success by
	// matching the subsequent movement list.
	SendFleet(ctx context.Context, req SendFleetRequest) (bool, error)
}
