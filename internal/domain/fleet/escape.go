package fleet

import (
	"sort"

	"github.com/ogsentinel/fleetwatch/internal/domain/coordinates"
	"github.com/ogsentinel/fleetwatch/internal/domain/engine"
)

// speedSettings is the 10 discrete fleet-speed percentages the game exposes.
var speedSettings = [10]int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

// EscapeFlight is a candidate save trajectory: one of the player's other
// bodies at one of the 10 discrete fleet-speed settings.
type EscapeFlight struct {
	Destination     coordinates.Coordinates
	SpeedPercentage int
	Distance        int
	Duration        int
	FuelConsumption int
}

// EnumerateEscapeFlights builds every (destination, speed) pair from origin
// to each of the player's other bodies.
func EnumerateEscapeFlights(origin coordinates.Coordinates, otherBodies []coordinates.Coordinates, ships engine.Fleet, tech engine.TechnologyLevels, class engine.CharacterClass) []EscapeFlight {
	var flights []EscapeFlight
	for _, dest := range otherBodies {
		if dest == origin {
			continue
		}
		distance := coordinates.Distance(origin, dest)
		for _, speed := range speedSettings {
			flights = append(flights, EscapeFlight{
				Destination:     dest,
				SpeedPercentage: speed,
				Distance:        distance,
				Duration:        engine.FlightDurationOfFleet(distance, fleetOf(ships), speed, tech, class),
				FuelConsumption: engine.FuelConsumptionOfFleet(distance, fleetOf(ships), speed, tech, class),
			})
		}
	}
	return flights
}

func fleetOf(ships engine.Fleet) engine.Fleet { return ships }

// sameDistancePosition is the distance value for a planet<->moon hop at the
// same galaxy/system/position.
const sameDistancePosition = 5

// AttackedAt reports, for a destination, whether a handled hostile event
// lands there strictly before the given time — used by rank 1 of the safety
// ranking for within-same-position hops.
type AttackedAt func(dest coordinates.Coordinates, before int64) bool

// RankEscapeFlights orders flights by the safety ranking (index 0 is
// safest): same-position hops into a destination under imminent attack are
// penalised first, then shorter distance, then moon over planet, then
// (for same-position hops) shorter duration else lower fuel.
func RankEscapeFlights(flights []EscapeFlight, saveHandledAt int64, attackedAt AttackedAt) []EscapeFlight {
	ranked := make([]EscapeFlight, len(flights))
	copy(ranked, flights)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		ra := escapeRankKey(a, saveHandledAt, attackedAt)
		rb := escapeRankKey(b, saveHandledAt, attackedAt)
		return ra.less(rb)
	})
	return ranked
}

type rankKey struct {
	landsDuringAttack int // 0 or 1
	distance          int
	isPlanet          int // 0 moon, 1 planet
	samePosition      bool
	duration          int
	fuel              int
}

func (k rankKey) less(o rankKey) bool {
	if k.landsDuringAttack != o.landsDuringAttack {
		return k.landsDuringAttack < o.landsDuringAttack
	}
	if k.distance != o.distance {
		return k.distance < o.distance
	}
	if k.isPlanet != o.isPlanet {
		return k.isPlanet < o.isPlanet
	}
	if k.samePosition {
		return k.duration < o.duration
	}
	return k.fuel < o.fuel
}

func escapeRankKey(f EscapeFlight, saveHandledAt int64, attackedAt AttackedAt) rankKey {
	samePosition := f.Distance == sameDistancePosition
	landsDuringAttack := 0
	if samePosition && attackedAt != nil && attackedAt(f.Destination, saveHandledAt) {
		landsDuringAttack = 1
	}

	isPlanet := 0
	if f.Destination.Type == coordinates.Planet {
		isPlanet = 1
	}

	return rankKey{
		landsDuringAttack: landsDuringAttack,
		distance:          f.Distance,
		isPlanet:          isPlanet,
		samePosition:      samePosition,
		duration:          f.Duration,
		fuel:              f.FuelConsumption,
	}
}

// FirstAffordable returns the first flight (in rank order) whose fuel
// consumption fits within availableDeuterium, and true; or the zero value
// and false if none qualifies.
func FirstAffordable(ranked []EscapeFlight, availableDeuterium int) (EscapeFlight, bool) {
	for _, f := range ranked {
		if f.FuelConsumption <= availableDeuterium {
			return f, true
		}
	}
	return EscapeFlight{}, false
}
