package steps

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"

	"github.com/ogsentinel/fleetwatch/internal/application/cache"
	"github.com/ogsentinel/fleetwatch/internal/application/expeditionsvc"
	"github.com/ogsentinel/fleetwatch/internal/domain/coordinates"
	"github.com/ogsentinel/fleetwatch/internal/domain/engine"
	"github.com/ogsentinel/fleetwatch/internal/domain/expedition"
	"github.com/ogsentinel/fleetwatch/internal/domain/fleet"
	"github.com/ogsentinel/fleetwatch/internal/domain/notify"
	"github.com/ogsentinel/fleetwatch/internal/domain/remote"
)

// expeditionContext carries the fixture for the expedition-subsystem
// scenarios S4 (dispatch and repeat) and S6 (debris-harvest shortfall).
type expeditionContext struct {
	client *fakeGameClient
	sink   *recordingSink
	sub    *expeditionsvc.Subsystem
	intent *expedition.Intent
	opts   expeditionsvc.Options

	lastWakeTimestamp int64
	notifications     []notify.Notification
	priorFleetID      string
}

func (e *expeditionContext) reset() {
	e.client = newFakeGameClient()
	e.client.movementSequence = []remote.Movement{{Timestamp: 500}}
	e.client.dispatch = remote.FleetDispatch{Token: "tok", Timestamp: 500, FreeFleetSlots: 1}
	e.client.resources = remote.ResourcesWithCap{Amount: fleet.Resources{Deuterium: 1_000_000, Metal: 1_000_000, Crystal: 1_000_000}}
	e.sink = newRecordingSink()
	e.sub = nil
	e.intent = nil
	e.opts = expeditionsvc.Options{}
	e.lastWakeTimestamp = 500
	e.notifications = nil
}

func (e *expeditionContext) aPlayerPlanetAtG(galaxy, system, position int) error {
	c := coordsAt(galaxy, system, position, coordinates.Planet)
	e.client.overview.Bodies = append(e.client.overview.Bodies, remote.Body{Coords: c})
	return nil
}

func (e *expeditionContext) anExpeditionIntentRepeatingNTimes(originStr, destStr string, shipCount int, shipKind string, holdingHours, repeat int) error {
	origin, dest, err := parseOriginDest(originStr, destStr)
	if err != nil {
		return err
	}
	e.intent = &expedition.Intent{
		ID:             "exp-1",
		Origin:         origin,
		Destination:    dest,
		Ships:          engine.Fleet{shipKindByName(shipKind): shipCount},
		Speed:          10,
		HoldingSeconds: holdingHours * 3600,
		Repeat:         expedition.Repeat{Count: repeat},
	}
	e.client.dispatch.Ships = engine.Fleet{shipKindByName(shipKind): shipCount}
	return nil
}

func (e *expeditionContext) anExpeditionIntentRepeatingForever(originStr, destStr string, shipCount int, shipKind string, holdingHours int) error {
	origin, dest, err := parseOriginDest(originStr, destStr)
	if err != nil {
		return err
	}
	e.intent = &expedition.Intent{
		ID:             "exp-1",
		Origin:         origin,
		Destination:    dest,
		Ships:          engine.Fleet{shipKindByName(shipKind): shipCount},
		Speed:          10,
		HoldingSeconds: holdingHours * 3600,
		Repeat:         expedition.Repeat{Forever: true},
	}
	return nil
}

func parseOriginDest(originStr, destStr string) (coordinates.Coordinates, coordinates.Coordinates, error) {
	og, os_, op, err := parseCoordsTriple(originStr)
	if err != nil {
		return coordinates.Coordinates{}, coordinates.Coordinates{}, err
	}
	dg, ds, dp, err := parseCoordsTriple(destStr)
	if err != nil {
		return coordinates.Coordinates{}, coordinates.Coordinates{}, err
	}
	return coordsAt(og, os_, op, coordinates.Planet), coordsAt(dg, ds, dp, coordinates.Planet), nil
}

func (e *expeditionContext) noHostileEventsArePresent() error {
	return nil // the expedition subsystem does not consult events directly
}

func (e *expeditionContext) theDestinationGalaxyTileHasDebris(metal, crystal int) error {
	dest := e.intent.Destination
	e.client.galaxy = remote.Galaxy{Tiles: []remote.GalaxyTile{{
		Position:         dest.Position,
		ExpeditionDebris: fleet.Resources{Metal: metal, Crystal: crystal},
	}}}
	return nil
}

func (e *expeditionContext) theSinglePathfinderCapacityIs(capacity int) error {
	// capacity = 10000 * (1 + level*0.05); solve for level.
	level := int((float64(capacity)/10000.0 - 1) / 0.05)
	e.client.research.HyperspaceLevel = level
	return nil
}

func (e *expeditionContext) thePlanetHasPathfindersAvailableForHarvest(count int) error {
	origin := e.intent.Origin
	if e.client.shipyards == nil {
		e.client.shipyards = make(map[coordinates.Coordinates]remote.Shipyard)
	}
	e.client.shipyards[origin] = remote.Shipyard{Ships: engine.Fleet{engine.Pathfinder: count}}
	return nil
}

func (e *expeditionContext) harvestingExpeditionDebrisIsEnabled() error {
	e.opts.HarvestExpeditionDebris = true
	e.opts.HarvestSpeedPercentage = 100
	return nil
}

func (e *expeditionContext) theExpeditionSubsystemRuns() error {
	e.priorFleetID = e.intent.FleetID
	if e.sub == nil {
		bus := notify.NewBus(e.sink)
		e.sub = expeditionsvc.New(bus, e.opts, []*expedition.Intent{e.intent})
	}
	gs := cache.New(e.client)
	err := e.sub.HandleExpeditions(context.Background(), gs)
	e.notifications = append(e.notifications, e.sink.drain()...)
	return err
}

func (e *expeditionContext) theDispatchedFleetDisappearsFromMovement() error {
	e.lastWakeTimestamp += 100
	e.client.dropMaterializedFleet(e.lastWakeTimestamp)
	return nil
}

func (e *expeditionContext) theIntentShouldAdoptAFleetID() error {
	if e.intent.FleetID == "" {
		return fmt.Errorf("expected the intent to adopt a fleet id")
	}
	return nil
}

func (e *expeditionContext) theIntentRepeatCountShouldBe(expected int) error {
	if e.intent.Repeat.Count != expected {
		return fmt.Errorf("expected repeat count %d, got %d", expected, e.intent.Repeat.Count)
	}
	return nil
}

func (e *expeditionContext) theIntentShouldDispatchAgainWithANewFleetID() error {
	if e.intent.FleetID == "" {
		return fmt.Errorf("expected the intent to have redispatched and adopted a new fleet id")
	}
	if e.intent.FleetID == e.priorFleetID {
		return fmt.Errorf("expected a new fleet id distinct from the prior one %q", e.priorFleetID)
	}
	return nil
}

func (e *expeditionContext) anExpeditionFinishedNotificationWithNoErrorShouldBePublished() error {
	n, ok := findKind(e.notifications, notify.ExpeditionFinished)
	if !ok {
		return fmt.Errorf("expected an ExpeditionFinished notification, got %+v", e.notifications)
	}
	if n.Error != nil {
		return fmt.Errorf("expected no error, got %v", n.Error)
	}
	return nil
}

// theIntentShouldNoLongerBeTracked confirms the subsystem dropped the
// intent from its internal table: a further pass produces no notification
// for it at all, since a tracked-but-finished intent would fire
// ExpeditionFinished again.
func (e *expeditionContext) theIntentShouldNoLongerBeTracked() error {
	gs := cache.New(e.client)
	if err := e.sub.HandleExpeditions(context.Background(), gs); err != nil {
		return err
	}
	if extra := e.sink.drain(); len(extra) != 0 {
		return fmt.Errorf("expected no further notifications for a finished intent, got %+v", extra)
	}
	return nil
}

func (e *expeditionContext) aHarvestFleetOfShouldBeSentToTheDebrisField(count int, kind string) error {
	for _, req := range e.client.sentRequests {
		if req.Mission == fleet.Harvest && req.Ships[shipKindByName(kind)] == count {
			return nil
		}
	}
	return fmt.Errorf("expected a harvest send-fleet of %d %s, got requests: %+v", count, kind, e.client.sentRequests)
}

func (e *expeditionContext) aDebrisHarvestNotificationReportingAShortfallOfShouldBePublished(shortfall int) error {
	n, ok := findKind(e.notifications, notify.DebrisHarvest)
	if !ok {
		return fmt.Errorf("expected a DebrisHarvest notification, got %+v", e.notifications)
	}
	if n.Error == nil {
		return fmt.Errorf("expected a shortfall error on the DebrisHarvest notification")
	}
	want := fmt.Sprintf("Missing %d pathfinders", shortfall)
	if n.Error.Error() != want {
		return fmt.Errorf("expected error %q, got %q", want, n.Error.Error())
	}
	return nil
}

// InitializeExpeditionScenario registers step definitions for the S4 and S6
// scenarios in spec.md section 8 (expedition dispatch/repeat, debris
// harvest shortfall).
func InitializeExpeditionScenario(ctx *godog.ScenarioContext) {
	e := &expeditionContext{}
	ctx.Before(func(goCtx context.Context, sc *godog.Scenario) (context.Context, error) {
		e.reset()
		return goCtx, nil
	})

	ctx.Step(`^a player planet at galaxy (\d+) system (\d+) position (\d+)$`, e.aPlayerPlanetAtG)
	ctx.Step(`^an expedition intent from planet (\S+) to galaxy (\d+) system (\d+) position (\d+) with (\d+) (\S+) ships holding (\d+) hours repeating (\d+) times$`,
		func(origin string, g, s, p, shipCount int, kind string, holding, repeat int) error {
			return e.anExpeditionIntentRepeatingNTimes(origin, fmt.Sprintf("%d:%d:%d", g, s, p), shipCount, kind, holding, repeat)
		})
	ctx.Step(`^an expedition intent from planet (\S+) to galaxy (\d+) system (\d+) position (\d+) with (\d+) (\S+) ships holding (\d+) hours repeating forever$`,
		func(origin string, g, s, p, shipCount int, kind string, holding int) error {
			return e.anExpeditionIntentRepeatingForever(origin, fmt.Sprintf("%d:%d:%d", g, s, p), shipCount, kind, holding)
		})
	ctx.Step(`^no hostile events are present$`, e.noHostileEventsArePresent)
	ctx.Step(`^the destination galaxy tile has (\d+) metal and (\d+) crystal of expedition debris$`, e.theDestinationGalaxyTileHasDebris)
	ctx.Step(`^the single-pathfinder capacity is (\d+)$`, e.theSinglePathfinderCapacityIs)
	ctx.Step(`^the planet has (\d+) pathfinder ships available for harvest$`, e.thePlanetHasPathfindersAvailableForHarvest)
	ctx.Step(`^harvesting expedition debris is enabled$`, e.harvestingExpeditionDebrisIsEnabled)
	ctx.Step(`^the expedition subsystem runs$`, e.theExpeditionSubsystemRuns)
	ctx.Step(`^the dispatched fleet disappears from movement$`, e.theDispatchedFleetDisappearsFromMovement)
	ctx.Step(`^the intent should adopt a fleet id$`, e.theIntentShouldAdoptAFleetID)
	ctx.Step(`^the intent repeat count should be (\d+)$`, e.theIntentRepeatCountShouldBe)
	ctx.Step(`^the intent should dispatch again with a new fleet id$`, e.theIntentShouldDispatchAgainWithANewFleetID)
	ctx.Step(`^an ExpeditionFinished notification with no error should be published$`, e.anExpeditionFinishedNotificationWithNoErrorShouldBePublished)
	ctx.Step(`^the intent should no longer be tracked$`, e.theIntentShouldNoLongerBeTracked)
	ctx.Step(`^a harvest fleet of (\d+) (\S+) ships should be sent to the debris field$`, e.aHarvestFleetOfShouldBeSentToTheDebrisField)
	ctx.Step(`^a DebrisHarvest notification reporting a shortfall of (\d+) pathfinders should be published$`, e.aDebrisHarvestNotificationReportingAShortfallOfShouldBePublished)
}
