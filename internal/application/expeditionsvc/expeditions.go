// Package expeditionsvc implements the expedition subsystem: intent
// lifecycle, unassigned-fleet reattachment, dispatch of new expeditions,
// and expedition-debris harvesting.
package expeditionsvc

import (
	"context"
	"math"
	"sort"
	"strconv"

	"github.com/ogsentinel/fleetwatch/internal/application/cache"
	"github.com/ogsentinel/fleetwatch/internal/domain/coordinates"
	"github.com/ogsentinel/fleetwatch/internal/domain/engine"
	"github.com/ogsentinel/fleetwatch/internal/domain/expedition"
	"github.com/ogsentinel/fleetwatch/internal/domain/fleet"
	"github.com/ogsentinel/fleetwatch/internal/domain/notify"
	"github.com/ogsentinel/fleetwatch/internal/domain/remote"
	"github.com/ogsentinel/fleetwatch/internal/domain/shared"
)

// Options carries the configurable thresholds the algorithm needs.
type Options struct {
	HarvestExpeditionDebris bool
	HarvestSpeedPercentage  int // harvest-speed, 1-10 mapped to 10-100
}

// Subsystem holds the running intents across wakes.
type Subsystem struct {
	bus     *notify.Bus
	opts    Options
	intents map[string]*expedition.Intent
}

func New(bus *notify.Bus, opts Options, seed []*expedition.Intent) *Subsystem {
	intents := make(map[string]*expedition.Intent, len(seed))
	for _, i := range seed {
		intents[i.ID] = i
	}
	return &Subsystem{bus: bus, opts: opts, intents: intents}
}

// AddIntent registers a new expedition intent, e.g. from an external
// command issued after startup.
func (s *Subsystem) AddIntent(intent *expedition.Intent) {
	s.intents[intent.ID] = intent
}

// RequestCancel marks a running intent for cancellation on the next wake.
func (s *Subsystem) RequestCancel(intentID string, returnFleet bool) {
	if intent, ok := s.intents[intentID]; ok {
		intent.PendingCancel = &expedition.Cancel{ReturnFleet: returnFleet}
	}
}

func (s *Subsystem) HandleExpeditions(ctx context.Context, gs *cache.GameState) error {
	overview, err := gs.Overview(ctx, false)
	if err != nil {
		return err
	}
	movement, err := gs.Movement(ctx, false, "")
	if err != nil {
		return err
	}

	if err := s.drainFinished(ctx, movement.Fleets, gs); err != nil {
		return err
	}
	s.reattachUnassigned(movement.Fleets)
	if err := s.dispatchNew(ctx, overview, gs); err != nil {
		return err
	}
	if s.opts.HarvestExpeditionDebris {
		if err := s.harvestDebris(ctx, overview, gs); err != nil {
			return err
		}
	}
	return nil
}

// runningByFleetID indexes movement entries with mission=expedition by id.
func runningByFleetID(movements []fleet.Movement) map[string]fleet.Movement {
	out := make(map[string]fleet.Movement)
	for _, m := range movements {
		if m.Mission == fleet.Expedition {
			out[m.ID] = m
		}
	}
	return out
}

// drainFinished handles intents whose fleet no longer appears in movement,
// or which carry a pending cancel: cancelled and exhausted intents are
// removed, the others have their FleetID cleared for redispatch.
func (s *Subsystem) drainFinished(ctx context.Context, movements []fleet.Movement, gs *cache.GameState) error {
	inFlight := runningByFleetID(movements)

	for id, intent := range s.intents {
		if intent.PendingCancel != nil {
			m, stillFlying := inFlight[intent.FleetID]
			returned := !stillFlying
			if stillFlying && intent.PendingCancel.ReturnFleet && !m.Holding && !m.ReturnFlight {
				if _, err := gs.Movement(ctx, true, intent.FleetID); err != nil {
					return err
				}
				returned = true
			}
			s.bus.Publish(notify.NewExpeditionCancelled(id, true, returned))
			delete(s.intents, id)
			continue
		}

		if !intent.IsRunning() {
			continue
		}
		if _, stillFlying := inFlight[intent.FleetID]; stillFlying {
			continue
		}

		// Fleet vanished from movement: the expedition cycle completed.
		// The repeat counter was already decremented at dispatch time
		// (dispatchNew); this only decides whether to stop or redispatch.
		if intent.Repeat.Exhausted() {
			s.bus.Publish(notify.NewExpeditionFinished(id, nil))
			delete(s.intents, id)
		} else {
			intent.FleetID = ""
		}
	}
	return nil
}

// reattachUnassigned adopts movement entries matching an intent without a
// fleet-id on (origin, destination, ships), tolerating a crash between
// send-fleet and movement observation.
func (s *Subsystem) reattachUnassigned(movements []fleet.Movement) {
	claimed := make(map[string]bool)
	for _, intent := range s.intents {
		if intent.IsRunning() {
			claimed[intent.FleetID] = true
		}
	}

	for _, intent := range s.intents {
		if intent.IsRunning() {
			continue
		}
		for _, m := range movements {
			if m.Mission != fleet.Expedition || claimed[m.ID] {
				continue
			}
			if m.Origin != intent.Origin || m.Destination != intent.Destination {
				continue
			}
			if !shipsMatch(intent.Ships, m.Ships) {
				continue
			}
			intent.FleetID = m.ID
			claimed[m.ID] = true
			break
		}
	}
}

func shipsMatch(a, b engine.Fleet) bool {
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

func (s *Subsystem) dispatchNew(ctx context.Context, overview remote.Overview, gs *cache.GameState) error {
	owned := make(map[coordinates.Coordinates]bool, len(overview.Bodies))
	for _, b := range overview.Bodies {
		owned[b.Coords] = true
	}
	class := engine.CharacterClass(overview.CharacterClass)

	pending := pendingIntents(s.intents)
	if len(pending) == 0 {
		return nil
	}

	research, err := gs.Research(ctx, false)
	if err != nil {
		return err
	}
	tech := make(engine.TechnologyLevels, len(research.Levels))
	for d, lvl := range research.Levels {
		tech[d] = lvl
	}

	for _, intent := range pending {
		if !owned[intent.Origin] {
			s.bus.Publish(notify.NewExpeditionFinished(intent.ID, shared.NewIntentInvalidError("unknown origin")))
			delete(s.intents, intent.ID)
			continue
		}

		resourcesWithCap, err := gs.Client().GetResources(ctx, intent.Origin)
		if err != nil {
			return err
		}

		distance := coordinates.Distance(intent.Origin, intent.Destination)
		speed := speedPercentageFromSetting(intent.Speed)
		cargoCapacity := engine.CargoCapacityOfFleet(intent.Ships, research.HyperspaceLevel, class)
		requiredCargo := intent.Cargo.Metal + intent.Cargo.Crystal + intent.Cargo.Deuterium
		if requiredCargo > cargoCapacity {
			s.bus.Publish(notify.NewExpeditionFinished(intent.ID, shared.NewIntentInvalidError("cargo exceeds capacity")))
			delete(s.intents, intent.ID)
			continue
		}
		if !resourcesAvailable(intent.Cargo, resourcesWithCap.Amount) {
			continue
		}

		fuel := engine.FuelConsumptionOfFleet(distance, intent.Ships, speed, tech, class)
		if fuel+intent.Cargo.Deuterium > resourcesWithCap.Amount.Deuterium {
			continue
		}

		dispatch, err := gs.Client().GetFleetDispatch(ctx, intent.Origin)
		if err != nil {
			return err
		}
		if dispatch.FreeFleetSlots <= 0 {
			return nil // abort the whole batch: no free fleet slot
		}
		if !shipsAvailable(intent.Ships, dispatch.Ships) {
			continue // starvation, retried next wake
		}

		dispatchTimestamp := dispatch.Timestamp
		resources := intent.Cargo
		ok, err := gs.Client().SendFleet(ctx, remote.SendFleetRequest{
			Origin:          intent.Origin,
			Destination:     intent.Destination,
			Mission:         fleet.Expedition,
			Ships:           intent.Ships,
			SpeedPercentage: speed,
			Resources:       &resources,
			HoldingSeconds:  intent.HoldingSeconds,
			Token:           dispatch.Token,
		})
		if err != nil || !ok {
			continue // transient: retried next wake
		}

		intent.Repeat = intent.Repeat.Decrement()
		gs.InvalidateMovement()

		movement, err := gs.Movement(ctx, true, "")
		if err != nil {
			return err
		}
		origin := intent.Origin
		dest := intent.Destination
		matches := fleet.FindFleets(movement.Fleets, fleet.Predicate{
			Origin:          &origin,
			Destination:     &dest,
			Ships:           engineFleetToPredicateShips(intent.Ships),
			Cargo:           &intent.Cargo,
			DepartureAfter:  &dispatchTimestamp,
			DepartureBefore: depBeforePtr(movement.Timestamp + 1),
		})
		if len(matches) == 1 {
			intent.FleetID = matches[0].ID
		}
	}

	return nil
}

func depBeforePtr(v int64) *int64 { return &v }

// engineFleetToPredicateShips converts an engine.Fleet (keyed by the typed
// ShipKind) into the string-keyed map fleet.Predicate compares against.
func engineFleetToPredicateShips(f engine.Fleet) fleet.Fleet {
	out := make(fleet.Fleet, len(f))
	for kind, count := range f {
		out[string(kind)] = count
	}
	return out
}

func pendingIntents(intents map[string]*expedition.Intent) []*expedition.Intent {
	var pending []*expedition.Intent
	for _, i := range intents {
		if !i.IsRunning() && i.PendingCancel == nil {
			pending = append(pending, i)
		}
	}
	sort.Slice(pending, func(a, b int) bool { return pending[a].ID < pending[b].ID })
	return pending
}

func shipsAvailable(required, available engine.Fleet) bool {
	for kind, count := range required {
		if count > available[kind] {
			return false
		}
	}
	return true
}

func resourcesAvailable(required, available fleet.Resources) bool {
	return required.Metal <= available.Metal &&
		required.Crystal <= available.Crystal &&
		required.Deuterium <= available.Deuterium
}

// speedPercentageFromSetting maps the 1-10 discrete speed setting to the
// percentage the remote client expects.
func speedPercentageFromSetting(speed int) int {
	if speed < 1 {
		speed = 1
	}
	if speed > 10 {
		speed = 10
	}
	return speed * 10
}

// harvestDebris dispatches pathfinders to collect expedition debris at each
// unique expedition destination.
func (s *Subsystem) harvestDebris(ctx context.Context, overview remote.Overview, gs *cache.GameState) error {
	destinations := uniqueDestinations(s.intents)
	if len(destinations) == 0 {
		return nil
	}

	research, err := gs.Research(ctx, false)
	if err != nil {
		return err
	}
	movement, err := gs.Movement(ctx, false, "")
	if err != nil {
		return err
	}

	pathfinderCapacity := engine.CargoCapacityOfFleet(engine.Fleet{engine.Pathfinder: 1}, research.HyperspaceLevel, engine.CharacterClass(overview.CharacterClass))

	for _, dest := range destinations {
		galaxy, err := gs.Client().GetGalaxy(ctx, dest.Galaxy, dest.System)
		if err != nil {
			return err
		}

		var debris fleet.Resources
		for _, tile := range galaxy.Tiles {
			if tile.Position == dest.Position {
				debris = tile.ExpeditionDebris
			}
		}
		totalDebris := debris.Metal + debris.Crystal
		if totalDebris <= 0 {
			continue
		}

		requiredPathfinders := int(math.Ceil(float64(totalDebris) / float64(pathfinderCapacity)))
		requiredPathfinders -= inboundPathfinders(dest, movement.Fleets)
		if requiredPathfinders <= 0 {
			continue
		}

		origin, available, ok := nearestOriginWithPathfinders(ctx, dest, overview.Bodies, gs)
		if !ok {
			s.bus.Publish(notify.NewDebrisHarvest(dest, totalDebris, shared.NewStarvationError("no pathfinders available")))
			continue
		}

		sendCount := requiredPathfinders
		if sendCount > available {
			sendCount = available
		}

		shortfall := requiredPathfinders - sendCount
		if sendCount > 0 {
			dispatch, err := gs.Client().GetFleetDispatch(ctx, origin)
			if err != nil {
				return err
			}
			_, _ = gs.Client().SendFleet(ctx, remote.SendFleetRequest{
				Origin:          origin,
				Destination:     dest,
				Mission:         fleet.Harvest,
				Ships:           engine.Fleet{engine.Pathfinder: sendCount},
				SpeedPercentage: s.opts.HarvestSpeedPercentage,
				Token:           dispatch.Token,
			})
			gs.InvalidateMovement()
		}

		if shortfall > 0 {
			s.bus.Publish(notify.NewDebrisHarvest(dest, totalDebris, shared.NewStarvationError(shortfallMessage(shortfall))))
		} else {
			s.bus.Publish(notify.NewDebrisHarvest(dest, totalDebris, nil))
		}
	}

	return nil
}

func shortfallMessage(n int) string {
	if n == 1 {
		return "Missing 1 pathfinder"
	}
	return "Missing " + strconv.Itoa(n) + " pathfinders"
}

func uniqueDestinations(intents map[string]*expedition.Intent) []coordinates.Coordinates {
	seen := make(map[coordinates.Coordinates]bool)
	var out []coordinates.Coordinates
	for _, i := range intents {
		if !seen[i.Destination] {
			seen[i.Destination] = true
			out = append(out, i.Destination)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Less(out[b]) })
	return out
}

func inboundPathfinders(dest coordinates.Coordinates, movements []fleet.Movement) int {
	count := 0
	for _, m := range movements {
		if m.Destination == dest && m.Mission == fleet.Harvest {
			count += m.Ships[engine.Pathfinder]
		}
	}
	return count
}

func nearestOriginWithPathfinders(ctx context.Context, dest coordinates.Coordinates, bodies []remote.Body, gs *cache.GameState) (coordinates.Coordinates, int, bool) {
	type candidate struct {
		coords   coordinates.Coordinates
		distance int
		count    int
	}
	var candidates []candidate
	for _, b := range bodies {
		shipyard, err := gs.Client().GetShipyard(ctx, b.Coords)
		if err != nil {
			continue
		}
		count := shipyard.Ships[engine.Pathfinder]
		if count <= 0 {
			continue
		}
		candidates = append(candidates, candidate{
			coords:   b.Coords,
			distance: coordinates.Distance(b.Coords, dest),
			count:    count,
		})
	}
	if len(candidates) == 0 {
		return coordinates.Coordinates{}, 0, false
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].distance < candidates[j].distance })
	return candidates[0].coords, candidates[0].count, true
}
