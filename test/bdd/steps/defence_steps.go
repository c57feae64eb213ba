package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"

	"github.com/ogsentinel/fleetwatch/internal/application/cache"
	"github.com/ogsentinel/fleetwatch/internal/application/defence"
	"github.com/ogsentinel/fleetwatch/internal/domain/coordinates"
	"github.com/ogsentinel/fleetwatch/internal/domain/engine"
	"github.com/ogsentinel/fleetwatch/internal/domain/fleet"
	"github.com/ogsentinel/fleetwatch/internal/domain/notify"
	"github.com/ogsentinel/fleetwatch/internal/domain/remote"
	"github.com/ogsentinel/fleetwatch/internal/domain/scheduler"
	"github.com/ogsentinel/fleetwatch/internal/domain/shared"
)

// defenceContext carries the fixture for one defence-subsystem scenario
// (S1-S3): a mock clock, a scheduler, a fake game client, the subsystem
// under test, and the notifications it published.
type defenceContext struct {
	clock  *shared.MockClock
	sched  *scheduler.Scheduler
	sink   *recordingSink
	client *fakeGameClient
	sub    *defence.Subsystem

	minLead, maxLead time.Duration
	hostileArrival   int64

	runErr        error
	notifications []notify.Notification
}

func (d *defenceContext) reset() {
	d.clock = shared.NewMockClock(time.Unix(1000, 0))
	d.sched = nil
	d.sink = newRecordingSink()
	d.client = newFakeGameClient()
	d.client.movementSequence = []remote.Movement{{Timestamp: 1000}}
	d.sub = nil
	d.minLead, d.maxLead = 120*time.Second, 180*time.Second
	d.runErr = nil
	d.notifications = nil
}

func (d *defenceContext) theClockReads(unixSeconds int) error {
	d.clock = shared.NewMockClock(time.Unix(int64(unixSeconds), 0))
	return nil
}

func (d *defenceContext) aPlayerPlanetAt(galaxy, system, position int) error {
	c := coordsAt(galaxy, system, position, coordinates.Planet)
	d.client.overview.Bodies = append(d.client.overview.Bodies, remote.Body{Coords: c})
	return nil
}

func (d *defenceContext) aPlayerMoonAt(galaxy, system, position int) error {
	c := coordsAt(galaxy, system, position, coordinates.Moon)
	d.client.overview.Bodies = append(d.client.overview.Bodies, remote.Body{Coords: c})
	return nil
}

func (d *defenceContext) thePlanetHasShips(count int, kind string) error {
	if d.client.dispatch.Ships == nil {
		d.client.dispatch.Ships = engine.Fleet{}
	}
	d.client.dispatch.Ships[shipKindByName(kind)] = count
	d.client.dispatch.FreeFleetSlots = 1
	d.client.dispatch.Token = "tok-1"
	d.client.dispatch.Timestamp = d.clock.Now().Unix()
	return nil
}

func (d *defenceContext) thePlanetHasResources(metal, crystal, deuterium int) error {
	d.client.resources.Amount = fleet.Resources{Metal: metal, Crystal: crystal, Deuterium: deuterium}
	d.client.resources.Cap = fleet.Resources{Metal: metal, Crystal: crystal, Deuterium: deuterium}
	return nil
}

func (d *defenceContext) theMinAndMaxLeadTimeAre(min, max int) error {
	d.minLead = time.Duration(min) * time.Second
	d.maxLead = time.Duration(max) * time.Second
	return nil
}

func (d *defenceContext) aHostileAttackEventArrivesIn(coordsStr string, inSeconds int) error {
	g, s, p, err := parseCoordsTriple(coordsStr)
	if err != nil {
		return err
	}
	dest := coordsAt(g, s, p, coordinates.Planet)
	d.hostileArrival = d.clock.Now().Unix() + int64(inSeconds)
	d.client.events = append(d.client.events, fleet.Event{
		ID:          fmt.Sprintf("ev-%d", len(d.client.events)+1),
		Destination: dest,
		ArrivalTime: d.hostileArrival,
		Mission:     fleet.Attack,
	})
	return nil
}

func (d *defenceContext) anAttackEventComposedOf(coordsStr string, count int, shipKind string) error {
	g, s, p, err := parseCoordsTriple(coordsStr)
	if err != nil {
		return err
	}
	dest := coordsAt(g, s, p, coordinates.Planet)
	d.client.events = append(d.client.events, fleet.Event{
		ID:          "ev-probe",
		Destination: dest,
		ArrivalTime: d.clock.Now().Unix() + 60,
		Mission:     fleet.Attack,
		Ships:       engine.Fleet{shipKindByName(shipKind): count},
	})
	return nil
}

func (d *defenceContext) theDefenceSubsystemRuns() error {
	d.sched = scheduler.New(d.clock)
	bus := notify.NewBus(d.sink)
	d.sub = defence.New(d.clock, d.sched, bus, defence.Options{
		MinLeadTime:         d.minLead,
		MaxLeadTime:         d.maxLead,
		MaxReturnFlightTime: 600 * time.Second,
	})
	gs := cache.New(d.client)
	d.runErr = d.sub.HandleDefence(context.Background(), false, gs)
	d.notifications = d.sink.drain()
	return d.runErr
}

func (d *defenceContext) noFleetShouldBeSent() error {
	if len(d.client.sentRequests) != 0 {
		return fmt.Errorf("expected no send-fleet calls, got %d", len(d.client.sentRequests))
	}
	return nil
}

func (d *defenceContext) noNotificationShouldBePublished() error {
	if len(d.notifications) != 0 {
		return fmt.Errorf("expected no notifications, got %+v", d.notifications)
	}
	return nil
}

func (d *defenceContext) noDefensiveWakeShouldBeScheduled() error {
	if d.sched.Len() != 0 {
		return fmt.Errorf("expected no scheduled wakes, got %d", d.sched.Len())
	}
	return nil
}

func (d *defenceContext) exactlyNDefensiveWakesShouldBeScheduled(n int) error {
	if d.sched.Len() != n {
		return fmt.Errorf("expected %d scheduled wake(s), got %d", n, d.sched.Len())
	}
	return nil
}

func (d *defenceContext) theScheduledWakeTimeShouldFallWithin(minBefore, maxBefore int) error {
	// The scheduler does not expose pop-without-removal, so this runs it
	// against the mock clock (whose Sleep advances time instantly) and reads
	// the clock at the moment the single pending wake fires.
	lower := d.hostileArrival - int64(maxBefore)
	upper := d.hostileArrival - int64(minBefore)
	fired := make(chan int64, 1)
	stop := make(chan struct{})
	defer close(stop)
	go d.sched.Run(func(payload interface{}) error {
		select {
		case fired <- d.clock.Now().Unix():
		default:
		}
		return nil
	}, stop)
	select {
	case at := <-fired:
		if at < lower || at > upper {
			return fmt.Errorf("expected the wake between %d and %d, fired at %d", lower, upper, at)
		}
		return nil
	case <-time.After(2 * time.Second):
		return fmt.Errorf("timed out waiting for the defensive wake to fire")
	}
}

func (d *defenceContext) aHostileEventNotificationForPlanetShouldBePublished(coordsStr string) error {
	g, s, p, err := parseCoordsTriple(coordsStr)
	if err != nil {
		return err
	}
	planet := coordsAt(g, s, p, coordinates.Planet)
	n, ok := findKind(d.notifications, notify.HostileEvent)
	if !ok {
		return fmt.Errorf("expected a HostileEvent notification, got %+v", d.notifications)
	}
	if n.Planet != planet {
		return fmt.Errorf("expected HostileEvent for %v, got %v", planet, n.Planet)
	}
	return nil
}

func (d *defenceContext) aSingleFleetShouldBeSentFromToTheMoonAsADeployment(originStr string) error {
	if len(d.client.sentRequests) != 1 {
		return fmt.Errorf("expected exactly one send-fleet call, got %d", len(d.client.sentRequests))
	}
	req := d.client.sentRequests[0]
	if req.Mission != fleet.Deployment {
		return fmt.Errorf("expected mission=deployment, got %s", req.Mission)
	}
	if req.Destination.Type != coordinates.Moon {
		return fmt.Errorf("expected moon destination, got %v", req.Destination)
	}
	return nil
}

func (d *defenceContext) theDispatchSnapshotShouldHaveBeenFetchedImmediatelyBeforeTheSend() error {
	if d.client.dispatchCalls != 1 {
		return fmt.Errorf("expected exactly one fleet-dispatch fetch, got %d", d.client.dispatchCalls)
	}
	if len(d.client.sentRequests) != 1 {
		return fmt.Errorf("expected exactly one send-fleet call, got %d", len(d.client.sentRequests))
	}
	return nil
}

func (d *defenceContext) theSavedCargoShouldBeFilledWithDeuteriumFirst() error {
	req := d.client.sentRequests[0]
	if req.Resources == nil {
		return fmt.Errorf("expected cargo to be set on the send-fleet request")
	}
	if req.Resources.Deuterium == 0 {
		return fmt.Errorf("expected deuterium to be packed first, got zero")
	}
	return nil
}

func (d *defenceContext) theMovementCacheShouldHaveBeenRefetchedAfterTheSend() error {
	if d.client.movementCalls < 2 {
		return fmt.Errorf("expected movement to be refetched after send-fleet, saw %d calls", d.client.movementCalls)
	}
	return nil
}

func (d *defenceContext) aFleetSavedNotificationWithNoErrorShouldBePublishedForPlanet(coordsStr string) error {
	g, s, p, err := parseCoordsTriple(coordsStr)
	if err != nil {
		return err
	}
	origin := coordsAt(g, s, p, coordinates.Planet)
	n, ok := findKind(d.notifications, notify.FleetSaved)
	if !ok {
		return fmt.Errorf("expected a FleetSaved notification, got %+v", d.notifications)
	}
	if n.Origin != origin {
		return fmt.Errorf("expected FleetSaved origin %v, got %v", origin, n.Origin)
	}
	if n.Error != nil {
		return fmt.Errorf("expected no error on FleetSaved, got %v", n.Error)
	}
	return nil
}

// InitializeDefenceScenario registers step definitions for the S1-S3
// scenarios in spec.md section 8 (distant attack, imminent attack,
// probe-only event).
func InitializeDefenceScenario(ctx *godog.ScenarioContext) {
	d := &defenceContext{}
	ctx.Before(func(goCtx context.Context, sc *godog.Scenario) (context.Context, error) {
		d.reset()
		return goCtx, nil
	})

	ctx.Step(`^the clock reads (\d+)$`, d.theClockReads)
	ctx.Step(`^a player planet at galaxy (\d+) system (\d+) position (\d+)$`, d.aPlayerPlanetAt)
	ctx.Step(`^a player moon at galaxy (\d+) system (\d+) position (\d+)$`, d.aPlayerMoonAt)
	ctx.Step(`^the planet has (\d+) (\S+) ships$`, d.thePlanetHasShips)
	ctx.Step(`^the planet has (\d+) metal, (\d+) crystal and (\d+) deuterium$`, d.thePlanetHasResources)
	ctx.Step(`^the min and max lead time are (\d+) and (\d+) seconds$`, d.theMinAndMaxLeadTimeAre)
	ctx.Step(`^a hostile attack event arrives at planet (\S+) in (\d+) seconds$`, d.aHostileAttackEventArrivesIn)
	ctx.Step(`^an attack-mission event to planet (\S+) composed of (\d+) (\S+) ships$`, d.anAttackEventComposedOf)
	ctx.Step(`^the defence subsystem runs$`, d.theDefenceSubsystemRuns)
	ctx.Step(`^no fleet should be sent$`, d.noFleetShouldBeSent)
	ctx.Step(`^no notification should be published$`, d.noNotificationShouldBePublished)
	ctx.Step(`^no defensive wake should be scheduled$`, d.noDefensiveWakeShouldBeScheduled)
	ctx.Step(`^exactly (\d+) defensive wake should be scheduled$`, d.exactlyNDefensiveWakesShouldBeScheduled)
	ctx.Step(`^the scheduled wake time should fall within (\d+) and (\d+) seconds before the attack$`, d.theScheduledWakeTimeShouldFallWithin)
	ctx.Step(`^a HostileEvent notification for planet (\S+) should be published$`, d.aHostileEventNotificationForPlanetShouldBePublished)
	ctx.Step(`^a single fleet should be sent from planet (\S+) to the moon as a deployment$`, d.aSingleFleetShouldBeSentFromToTheMoonAsADeployment)
	ctx.Step(`^the dispatch snapshot should have been fetched immediately before the send$`, d.theDispatchSnapshotShouldHaveBeenFetchedImmediatelyBeforeTheSend)
	ctx.Step(`^the saved cargo should be filled with deuterium first$`, d.theSavedCargoShouldBeFilledWithDeuteriumFirst)
	ctx.Step(`^the movement cache should have been refetched after the send$`, d.theMovementCacheShouldHaveBeenRefetchedAfterTheSend)
	ctx.Step(`^a FleetSaved notification with no error should be published for planet (\S+)$`, d.aFleetSavedNotificationWithNoErrorShouldBePublishedForPlanet)
}
