// Package steps holds the godog step definitions for the fleet-safety and
// expedition scenarios in spec.md section 8 (S1-S6). Each scenario group
// gets its own context struct and Initialize function, following the
// reference bot's test/bdd/steps layout.
package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/ogsentinel/fleetwatch/internal/domain/coordinates"
	"github.com/ogsentinel/fleetwatch/internal/domain/engine"
	"github.com/ogsentinel/fleetwatch/internal/domain/fleet"
	"github.com/ogsentinel/fleetwatch/internal/domain/notify"
	"github.com/ogsentinel/fleetwatch/internal/domain/remote"
)

// fakeGameClient is a minimal domain/remote.GameClient, identical in shape
// to the one used by the application-layer unit tests, whose every method
// is individually overridable for the scenario under test and which counts
// calls so steps can assert ordering (dispatch must immediately precede
// send-fleet, movement must be refetched after a mutation).
type fakeGameClient struct {
	overview    remote.Overview
	overviewErrs []error // consumed in order, one per GetOverview call; nil once exhausted
	overviewCalls int

	research remote.Research
	events   []fleet.Event

	dispatch     remote.FleetDispatch
	dispatchCalls int
	resources    remote.ResourcesWithCap

	shipyards map[coordinates.Coordinates]remote.Shipyard
	galaxy    remote.Galaxy

	movementSequence []remote.Movement
	movementCalls    int

	// movementOverride, when set, is returned verbatim by every
	// GetFleetMovement call instead of the auto-materialized fleet,
	// simulating a fleet that has landed/vanished from the movement list.
	movementOverride *remote.Movement

	// materializedCount/lastMaterialized auto-synthesize the movement
	// entry a real server would show right after a successful send-fleet:
	// one fleet.Movement built from the request just sent, with a
	// departure time one second after the dispatch snapshot's timestamp
	// (inside the (dispatch-timestamp, movement-timestamp] window the
	// spec requires verification to match against).
	materializedCount int
	lastMaterialized  *remote.Movement
	fleetIDSeq        int

	sendFleetOK  bool
	sendFleetErr error
	sentRequests []remote.SendFleetRequest
}

func newFakeGameClient() *fakeGameClient {
	return &fakeGameClient{sendFleetOK: true}
}

func (f *fakeGameClient) GetOverview(ctx context.Context) (remote.Overview, error) {
	idx := f.overviewCalls
	f.overviewCalls++
	if idx < len(f.overviewErrs) && f.overviewErrs[idx] != nil {
		return remote.Overview{}, f.overviewErrs[idx]
	}
	return f.overview, nil
}

func (f *fakeGameClient) GetResearch(ctx context.Context) (remote.Research, error) {
	return f.research, nil
}

func (f *fakeGameClient) GetShipyard(ctx context.Context, planet coordinates.Coordinates) (remote.Shipyard, error) {
	return f.shipyards[planet], nil
}

func (f *fakeGameClient) GetResources(ctx context.Context, planet coordinates.Coordinates) (remote.ResourcesWithCap, error) {
	return f.resources, nil
}

func (f *fakeGameClient) GetEvents(ctx context.Context) ([]fleet.Event, error) {
	return f.events, nil
}

func (f *fakeGameClient) GetFleetMovement(ctx context.Context, returnFleetID string) (remote.Movement, error) {
	f.movementCalls++

	if f.movementOverride != nil {
		return *f.movementOverride, nil
	}

	if len(f.sentRequests) > f.materializedCount {
		req := f.sentRequests[len(f.sentRequests)-1]
		f.materializedCount = len(f.sentRequests)
		f.fleetIDSeq++

		departure := f.dispatch.Timestamp + 1
		var cargo fleet.Resources
		if req.Resources != nil {
			cargo = *req.Resources
		}
		mv := remote.Movement{
			Timestamp: departure,
			Fleets: []fleet.Movement{{
				ID:            fmt.Sprintf("auto-fleet-%d", f.fleetIDSeq),
				Origin:        req.Origin,
				Destination:   req.Destination,
				Mission:       req.Mission,
				DepartureTime: departure,
				ArrivalTime:   departure + 100,
				Ships:         req.Ships,
				Cargo:         cargo,
			}},
		}
		f.lastMaterialized = &mv
		return mv, nil
	}

	if f.lastMaterialized != nil {
		return *f.lastMaterialized, nil
	}

	idx := f.movementCalls - 1
	if idx >= len(f.movementSequence) {
		idx = len(f.movementSequence) - 1
	}
	if idx < 0 {
		return remote.Movement{}, nil
	}
	return f.movementSequence[idx], nil
}

func (f *fakeGameClient) GetFleetDispatch(ctx context.Context, planet coordinates.Coordinates) (remote.FleetDispatch, error) {
	f.dispatchCalls++
	return f.dispatch, nil
}

func (f *fakeGameClient) GetGalaxy(ctx context.Context, galaxy, system int) (remote.Galaxy, error) {
	return f.galaxy, nil
}

func (f *fakeGameClient) SendFleet(ctx context.Context, req remote.SendFleetRequest) (bool, error) {
	f.sentRequests = append(f.sentRequests, req)
	// A fresh send clears any override (a disappeared fleet) so the next
	// movement read auto-materializes the newly dispatched one.
	f.movementOverride = nil
	return f.sendFleetOK, f.sendFleetErr
}

// dropMaterializedFleet simulates the dispatched fleet vanishing from the
// movement list (landed, or otherwise no longer present), by pinning every
// subsequent GetFleetMovement call to a snapshot with no fleets until the
// next SendFleet call clears the override.
func (f *fakeGameClient) dropMaterializedFleet(atUnix int64) {
	f.movementOverride = &remote.Movement{Timestamp: atUnix}
}

// recordingSink collects every notification delivered to it on a buffered
// channel, since notify.Bus fans out on its own goroutine per sink.
type recordingSink struct {
	ch chan notify.Notification
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ch: make(chan notify.Notification, 64)}
}

func (r *recordingSink) Notify(n notify.Notification) { r.ch <- n }

// drain collects whatever notifications arrive within a short window,
// without requiring the caller to know the exact count in advance.
func (r *recordingSink) drain() []notify.Notification {
	var out []notify.Notification
	for {
		select {
		case n := <-r.ch:
			out = append(out, n)
		case <-time.After(150 * time.Millisecond):
			return out
		}
	}
}

func findKind(notifications []notify.Notification, kind notify.Kind) (notify.Notification, bool) {
	for _, n := range notifications {
		if n.Kind == kind {
			return n, true
		}
	}
	return notify.Notification{}, false
}

func coordsAt(galaxy, system, position int, bodyType coordinates.BodyType) coordinates.Coordinates {
	return coordinates.New(galaxy, system, position, bodyType)
}

func parseCoordsTriple(s string) (int, int, int, error) {
	var g, sys, p int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &g, &sys, &p); err != nil {
		return 0, 0, 0, err
	}
	return g, sys, p, nil
}

// shipKindByName maps the ship-name tokens used in feature files to
// engine.ShipKind, so steps can stay free of engine package identifiers in
// the gherkin text.
func shipKindByName(name string) engine.ShipKind {
	return engine.ShipKind(name)
}
