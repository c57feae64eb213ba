// Package savedfleet tracks fleets dispatched defensively so they can be
// recalled in a short window once their origin is safe again.
package savedfleet

import "github.com/ogsentinel/fleetwatch/internal/domain/coordinates"

// Record remembers the origin planet a saved fleet departed from, keyed by
// the fleet-id the remote issued on successful dispatch.
type Record struct {
	FleetID string
	Origin  coordinates.Coordinates
}

// Table is the set of currently tracked saved-fleet records, keyed by
// fleet-id. It is mutated only inside the decision loop and is therefore
// never contested.
type Table map[string]Record

func NewTable() Table {
	return make(Table)
}

func (t Table) Put(r Record) {
	t[r.FleetID] = r
}

func (t Table) Delete(fleetID string) {
	delete(t, fleetID)
}
