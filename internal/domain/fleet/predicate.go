package fleet

import (
	"github.com/ogsentinel/fleetwatch/internal/domain/coordinates"
)

// Predicate is a struct of optional fields used to search a movement list.
// Unset fields (nil pointers, nil maps) are not checked; all set fields
// must match. Ship and cargo equality ignores zero-amount entries so a
// dispatched fleet can be matched against a movement recorded with a
// slightly different representation of "no cargo of this kind".
type Predicate struct {
	Origin            *coordinates.Coordinates
	Destination       *coordinates.Coordinates
	Mission           *Mission
	Ships             Fleet // compared ignoring zero entries
	Cargo             *Resources
	ArrivalBefore     *int64
	ArrivalAfter      *int64
	DepartureBefore   *int64
	DepartureAfter    *int64
	ReturnFlight      *bool
	ID                *string
}

// Fleet is the string-keyed ship-count map the predicate compares; unlike
// engine.Fleet (keyed by engine.ShipKind) its keys are plain strings, so an
// engine.Fleet is converted before matching.
type Fleet = map[string]int

// Match reports whether m satisfies every set field of p.
func (p Predicate) Match(m Movement) bool {
	if p.Origin != nil && m.Origin != *p.Origin {
		return false
	}
	if p.Destination != nil && m.Destination != *p.Destination {
		return false
	}
	if p.Mission != nil && m.Mission != *p.Mission {
		return false
	}
	if p.Ships != nil && !shipsEqualIgnoringZero(p.Ships, shipsAsStringMap(m)) {
		return false
	}
	if p.Cargo != nil && !cargoEqualIgnoringZero(*p.Cargo, m.Cargo) {
		return false
	}
	if p.ArrivalBefore != nil && m.ArrivalTime >= *p.ArrivalBefore {
		return false
	}
	if p.ArrivalAfter != nil && m.ArrivalTime <= *p.ArrivalAfter {
		return false
	}
	if p.DepartureBefore != nil && m.DepartureTime >= *p.DepartureBefore {
		return false
	}
	if p.DepartureAfter != nil && m.DepartureTime <= *p.DepartureAfter {
		return false
	}
	if p.ReturnFlight != nil && m.ReturnFlight != *p.ReturnFlight {
		return false
	}
	if p.ID != nil && m.ID != *p.ID {
		return false
	}
	return true
}

func shipsAsStringMap(m Movement) Fleet {
	out := make(Fleet, len(m.Ships))
	for kind, count := range m.Ships {
		out[string(kind)] = count
	}
	return out
}

func shipsEqualIgnoringZero(a, b Fleet) bool {
	for kind, count := range a {
		if count == 0 {
			continue
		}
		if b[kind] != count {
			return false
		}
	}
	for kind, count := range b {
		if count == 0 {
			continue
		}
		if a[kind] != count {
			return false
		}
	}
	return true
}

func cargoEqualIgnoringZero(a, b Resources) bool {
	return a.Metal == b.Metal && a.Crystal == b.Crystal && a.Deuterium == b.Deuterium
}

// FindFleets returns every movement in list matching p.
func FindFleets(list []Movement, p Predicate) []Movement {
	var matches []Movement
	for _, m := range list {
		if p.Match(m) {
			matches = append(matches, m)
		}
	}
	return matches
}
