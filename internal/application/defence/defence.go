// Package defence implements the defensive subsystem: hostile-event
// detection, defensive wake-up scheduling, fleet-save dispatch,
// incoming-deployment recall and saved-fleet recall.
package defence

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ogsentinel/fleetwatch/internal/application/cache"
	"github.com/ogsentinel/fleetwatch/internal/domain/coordinates"
	"github.com/ogsentinel/fleetwatch/internal/domain/engine"
	"github.com/ogsentinel/fleetwatch/internal/domain/fleet"
	"github.com/ogsentinel/fleetwatch/internal/domain/notify"
	"github.com/ogsentinel/fleetwatch/internal/domain/remote"
	"github.com/ogsentinel/fleetwatch/internal/domain/savedfleet"
	"github.com/ogsentinel/fleetwatch/internal/domain/scheduler"
	"github.com/ogsentinel/fleetwatch/internal/domain/shared"
	"github.com/ogsentinel/fleetwatch/internal/domain/wake"
)

// Options carries the configurable thresholds the algorithm needs.
type Options struct {
	MinLeadTime            time.Duration // min-time-before-attack-to-act
	MaxLeadTime            time.Duration // max-time-before-attack-to-act
	TryRecallingSavedFleet bool
	MaxReturnFlightTime    time.Duration
}

// Subsystem holds the state that must survive across wakes: the hostile
// snapshot table, the saved-fleet table and the handle and id of the
// currently scheduled defensive wake.
type Subsystem struct {
	clock     shared.Clock
	scheduler *scheduler.Scheduler
	bus       *notify.Bus
	opts      Options

	snapshot      map[string]fleet.Event
	saved         savedfleet.Table
	defenseWake   *uuid.UUID
	defenseWakeID uuid.UUID
}

func New(clock shared.Clock, sched *scheduler.Scheduler, bus *notify.Bus, opts Options) *Subsystem {
	return &Subsystem{
		clock:     clock,
		scheduler: sched,
		bus:       bus,
		opts:      opts,
		snapshot:  make(map[string]fleet.Event),
		saved:     savedfleet.NewTable(),
	}
}

// CurrentWakeID returns the id of the most recently scheduled defensive wake
// (kept after that wake fires, until another replaces it), or the zero uuid
// if none has been scheduled yet. The decision loop compares an incoming
// wake's id against this to compute currentWakeIsDefensive.
func (s *Subsystem) CurrentWakeID() uuid.UUID {
	return s.defenseWakeID
}

// HandleDefence runs one pass of the defensive algorithm. currentWakeIsDefensive
// is set by the decision loop when the current wake IS the scheduled
// defensive wake, so step 6 knows not to cancel it.
func (s *Subsystem) HandleDefence(ctx context.Context, currentWakeIsDefensive bool, gs *cache.GameState) error {
	overview, err := gs.Overview(ctx, false)
	if err != nil {
		return err
	}
	events, err := gs.Events(ctx, false)
	if err != nil {
		return err
	}

	owned := ownedDestinations(overview.Bodies)

	// 1. Detect hostile events.
	hostile := make(map[string]fleet.Event)
	for _, e := range events {
		if e.IsHostileTo(owned) {
			hostile[e.ID] = e
		}
	}

	// 2. Last friendly arrival per destination, computed lazily in step 6
	// against the movement list fetched there.

	// 3. Notify recalls: previously seen, now absent, still in the future.
	now := s.clock.Now().Unix()
	for id, prev := range s.snapshot {
		if _, stillHostile := hostile[id]; !stillHostile && prev.ArrivalTime > now {
			s.bus.Publish(notify.NewHostileRecalled(prev.Destination, prev.ArrivalTime))
		}
	}

	// 4. Notify new/delayed hostile events; PlanetsSafe if all cleared.
	for id, e := range hostile {
		prev, existed := s.snapshot[id]
		switch {
		case !existed:
			s.bus.Publish(notify.NewHostileEvent(e.Destination, e.ArrivalTime, nil))
		case prev.ArrivalTime != e.ArrivalTime:
			previousArrival := prev.ArrivalTime
			s.bus.Publish(notify.NewHostileEvent(e.Destination, e.ArrivalTime, &previousArrival))
		}
	}
	if len(hostile) == 0 && len(s.snapshot) > 0 {
		s.bus.Publish(notify.NewPlanetsSafe())
	}

	// 5. Overwrite the hostile snapshot.
	s.snapshot = hostile

	if len(hostile) == 0 {
		return nil
	}

	movement, err := gs.Movement(ctx, false, "")
	if err != nil {
		return err
	}

	// 6. Schedule the next defensive wake.
	s.scheduleNextWake(currentWakeIsDefensive, hostile, movement.Fleets)

	// 7. Act on each imminent hostile event, one per destination, earliest first.
	imminent := imminentEventsByDestination(hostile, now, s.opts.MaxLeadTime)
	research, err := gs.Research(ctx, false)
	if err != nil {
		return err
	}
	class := engine.CharacterClass(overview.CharacterClass)
	for _, e := range imminent {
		if err := s.saveFleetFrom(ctx, e, owned, research, class, gs); err != nil {
			// Guard/starvation/window-missed failures are reported via
			// FleetSaved notifications inside saveFleetFrom; only a
			// transient remote error propagates.
			if _, ok := err.(*shared.TransientError); ok {
				return err
			}
		}
	}

	// 8. Recall incoming deployments that would land within +/-10s of a
	// hostile arrival at an attacked destination.
	s.recallSnipedDeployments(ctx, hostile, movement.Fleets, gs)

	// 9. Recall previously saved fleets.
	s.recallSavedFleets(ctx, hostile, movement.Fleets, gs)

	return nil
}

func ownedDestinations(bodies []remote.Body) map[coordinates.Coordinates]bool {
	owned := make(map[coordinates.Coordinates]bool, len(bodies))
	for _, b := range bodies {
		owned[b.Coords] = true
	}
	return owned
}

// lastFriendlyArrival returns the latest own returning-or-incoming-deployment
// fleet landing at dest within [hostileArrival-maxLead, hostileArrival), or
// false if none qualifies.
func lastFriendlyArrival(dest coordinates.Coordinates, hostileArrival int64, maxLead time.Duration, movements []fleet.Movement) (int64, bool) {
	lower := hostileArrival - int64(maxLead.Seconds())
	best := int64(-1)
	found := false
	for _, m := range movements {
		if m.Destination != dest {
			continue
		}
		if !(m.ReturnFlight || m.Mission == fleet.Deployment) {
			continue
		}
		if m.ArrivalTime < lower || m.ArrivalTime >= hostileArrival {
			continue
		}
		if m.ArrivalTime > best {
			best = m.ArrivalTime
			found = true
		}
	}
	return best, found
}

func (s *Subsystem) scheduleNextWake(currentWakeIsDefensive bool, hostile map[string]fleet.Event, movements []fleet.Movement) {
	now := s.clock.Now()
	var earliest time.Time

	for _, e := range hostile {
		earliestSave := e.ArrivalTime - int64(s.opts.MaxLeadTime.Seconds())
		var candidate time.Time

		if earliestSave > now.Unix() {
			lower := e.ArrivalTime - int64(s.opts.MaxLeadTime.Seconds())
			upper := e.ArrivalTime - int64(s.opts.MinLeadTime.Seconds())
			if upper < lower {
				upper = lower
			}
			jitter := int64(0)
			if upper > lower {
				jitter = rand.Int63n(upper - lower + 1)
			}
			candidate = time.Unix(lower+jitter, 0)
		} else if friendlyArrival, ok := lastFriendlyArrival(e.Destination, e.ArrivalTime, s.opts.MaxLeadTime, movements); ok {
			tenBefore := e.ArrivalTime - 10
			if tenBefore < friendlyArrival {
				candidate = time.Unix(tenBefore, 0)
			} else {
				candidate = time.Unix(friendlyArrival+1, 0)
			}
		} else {
			candidate = time.Unix(e.ArrivalTime+1, 0)
		}

		if !candidate.After(now) {
			continue
		}
		if earliest.IsZero() || candidate.Before(earliest) {
			earliest = candidate
		}
	}

	if earliest.IsZero() {
		return
	}

	if s.defenseWake != nil && !currentWakeIsDefensive {
		s.scheduler.Cancel(*s.defenseWake)
	}
	id := uuid.New()
	handle := s.scheduler.PushAbsolute(earliest, 0, wake.Payload{ID: id}, nil)
	s.defenseWake = &handle
	s.defenseWakeID = id
}

// imminentEventsByDestination returns one event per destination, earliest
// arrival first, for events whose earliest-save-time has already passed.
func imminentEventsByDestination(hostile map[string]fleet.Event, now int64, maxLead time.Duration) []fleet.Event {
	byDest := make(map[coordinates.Coordinates]fleet.Event)
	for _, e := range hostile {
		earliestSave := e.ArrivalTime - int64(maxLead.Seconds())
		if earliestSave > now {
			continue
		}
		existing, ok := byDest[e.Destination]
		if !ok || e.ArrivalTime < existing.ArrivalTime {
			byDest[e.Destination] = e
		}
	}

	out := make([]fleet.Event, 0, len(byDest))
	for _, e := range byDest {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArrivalTime < out[j].ArrivalTime })
	return out
}

func (s *Subsystem) saveFleetFrom(ctx context.Context, hostileEvent fleet.Event, owned map[coordinates.Coordinates]bool, research remote.Research, class engine.CharacterClass, gs *cache.GameState) error {
	origin := hostileEvent.Destination

	resourcesWithCap, err := gs.Client().GetResources(ctx, origin)
	if err != nil {
		return err
	}
	dispatch, err := gs.Client().GetFleetDispatch(ctx, origin)
	if err != nil {
		return err
	}

	if len(dispatch.Ships) == 0 {
		s.bus.Publish(notify.NewFleetSaved(origin, hostileEvent.ArrivalTime, nil, shared.NewStarvationError("no ships present")))
		return nil
	}
	if dispatch.FreeFleetSlots <= 0 {
		s.bus.Publish(notify.NewFleetSaved(origin, hostileEvent.ArrivalTime, nil, shared.NewStarvationError("no free fleet slot")))
		return nil
	}

	otherBodies := make([]coordinates.Coordinates, 0, len(owned))
	for c := range owned {
		if c != origin {
			otherBodies = append(otherBodies, c)
		}
	}

	tech := make(engine.TechnologyLevels, len(research.Levels))
	for d, lvl := range research.Levels {
		tech[d] = lvl
	}

	flights := fleet.EnumerateEscapeFlights(origin, otherBodies, dispatch.Ships, tech, class)
	ranked := fleet.RankEscapeFlights(flights, hostileEvent.ArrivalTime, func(dest coordinates.Coordinates, before int64) bool {
		e, ok := s.snapshot[hostileEventKeyFor(s.snapshot, dest)]
		return ok && e.ArrivalTime < before
	})

	chosen, ok := fleet.FirstAffordable(ranked, resourcesWithCap.Amount.Deuterium)
	if !ok {
		s.bus.Publish(notify.NewFleetSaved(origin, hostileEvent.ArrivalTime, nil, shared.NewStarvationError("no affordable escape route")))
		return nil
	}

	freeCapacity := engine.CargoCapacityOfFleet(dispatch.Ships, research.HyperspaceLevel, class) - chosen.FuelConsumption
	available := resourcesWithCap.Amount
	available.Deuterium -= chosen.FuelConsumption
	if available.Deuterium < 0 {
		available.Deuterium = 0
	}
	cargo := fleet.PackCargo(freeCapacity, available)

	dispatchTimestamp := dispatch.Timestamp
	ok, err = gs.Client().SendFleet(ctx, remote.SendFleetRequest{
		Origin:          origin,
		Destination:     chosen.Destination,
		Mission:         fleet.Deployment,
		Ships:           dispatch.Ships,
		SpeedPercentage: chosen.SpeedPercentage,
		Resources:       &cargo,
		Token:           dispatch.Token,
	})
	if err != nil {
		s.bus.Publish(notify.NewFleetSaved(origin, hostileEvent.ArrivalTime, &chosen.Destination, err))
		return nil
	}
	if !ok {
		s.bus.Publish(notify.NewFleetSaved(origin, hostileEvent.ArrivalTime, &chosen.Destination, fmt.Errorf("send-fleet rejected")))
		return nil
	}

	gs.InvalidateMovement()
	movement, err := gs.Movement(ctx, true, "")
	if err != nil {
		return err
	}

	dest := chosen.Destination
	mission := fleet.Deployment
	matches := fleet.FindFleets(movement.Fleets, fleet.Predicate{
		Origin:          &origin,
		Destination:     &dest,
		Mission:         &mission,
		Ships:           fleetToPredicateShips(dispatch.Ships),
		Cargo:           &cargo,
		DepartureAfter:  &dispatchTimestamp,
		DepartureBefore: depBeforePtr(movement.Timestamp + 1),
	})

	if len(matches) != 1 {
		s.bus.Publish(notify.NewFleetSaved(origin, hostileEvent.ArrivalTime, &dest, shared.NewVerificationMismatchError(len(matches))))
		return nil
	}

	if s.opts.TryRecallingSavedFleet {
		s.saved.Put(savedfleet.Record{FleetID: matches[0].ID, Origin: origin})
	}

	s.bus.Publish(notify.NewFleetSaved(origin, hostileEvent.ArrivalTime, &dest, nil))
	return nil
}

func depBeforePtr(v int64) *int64 { return &v }

// fleetToPredicateShips converts an engine.Fleet (keyed by the typed
// ShipKind) into the string-keyed map fleet.Predicate compares against.
func fleetToPredicateShips(f engine.Fleet) fleet.Fleet {
	out := make(fleet.Fleet, len(f))
	for kind, count := range f {
		out[string(kind)] = count
	}
	return out
}

func hostileEventKeyFor(snapshot map[string]fleet.Event, dest coordinates.Coordinates) string {
	for id, e := range snapshot {
		if e.Destination == dest {
			return id
		}
	}
	return ""
}

// recallSnipedDeployments recalls incoming deployments landing within +/-10s
// of a hostile arrival at the destination under attack, denying snipe
// opportunities.
func (s *Subsystem) recallSnipedDeployments(ctx context.Context, hostile map[string]fleet.Event, movements []fleet.Movement, gs *cache.GameState) {
	const snipeWindow = 10
	for _, e := range hostile {
		for _, m := range movements {
			if m.Mission != fleet.Deployment || m.ReturnFlight || m.Destination != e.Destination {
				continue
			}
			if abs64(m.ArrivalTime-e.ArrivalTime) > snipeWindow {
				continue
			}
			movement, err := gs.Movement(ctx, true, m.ID)
			origin := m.Origin
			if err != nil {
				s.bus.Publish(notify.NewFleetRecalled(origin, m.Destination, e.ArrivalTime, err))
				continue
			}
			_ = movement
			s.bus.Publish(notify.NewFleetRecalled(origin, m.Destination, e.ArrivalTime, nil))
		}
	}
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// recallSavedFleets recalls previously saved fleets whose origin is no
// longer under attack, still in flight, not already returning, and whose
// outbound duration has not exceeded max-return-flight-time.
func (s *Subsystem) recallSavedFleets(ctx context.Context, hostile map[string]fleet.Event, movements []fleet.Movement, gs *cache.GameState) {
	now := s.clock.Now().Unix()

	underAttack := make(map[coordinates.Coordinates]bool, len(hostile))
	for _, e := range hostile {
		underAttack[e.Destination] = true
	}

	byID := make(map[string]fleet.Movement, len(movements))
	for _, m := range movements {
		byID[m.ID] = m
	}

	for fleetID, rec := range s.saved {
		if underAttack[rec.Origin] {
			continue // deferred, not destroyed
		}

		m, inFlight := byID[fleetID]
		if !inFlight {
			s.saved.Delete(fleetID)
			continue
		}
		if m.ReturnFlight {
			s.saved.Delete(fleetID)
			continue
		}

		outboundAge := now - m.DepartureTime
		if time.Duration(outboundAge)*time.Second > s.opts.MaxReturnFlightTime {
			s.saved.Delete(fleetID)
			continue
		}

		_, err := gs.Movement(ctx, true, fleetID)
		if err != nil {
			s.bus.Publish(notify.NewSavedFleetRecalled(rec.Origin, err))
			continue
		}
		s.saved.Delete(fleetID)
		s.bus.Publish(notify.NewSavedFleetRecalled(rec.Origin, nil))
	}
}
