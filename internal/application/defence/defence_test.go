package defence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

var (
	home  = coordinates.New(1, 1, 1, coordinates.Planet)
	haven = coordinates.New(1, 1, 2, coordinates.Planet)
)

// fakeGameClient is a minimal domain/remote.GameClient whose every method is
// individually overridable for the scenario under test.
type fakeGameClient struct {
	overview remote.Overview
	research remote.Research
	events   []fleet.Event

	dispatch    remote.FleetDispatch
	dispatchErr error
	resources   remote.ResourcesWithCap

	movementSequence []remote.Movement
	movementCalls    int

	sendFleetOK  bool
	sendFleetErr error
}

func (f *fakeGameClient) GetOverview(ctx context.Context) (remote.Overview, error) {
	return f.overview, nil
}
func (f *fakeGameClient) GetResearch(ctx context.Context) (remote.Research, error) {
	return f.research, nil
}
func (f *fakeGameClient) GetShipyard(ctx context.Context, planet coordinates.Coordinates) (remote.Shipyard, error) {
	return remote.Shipyard{}, nil
}
func (f *fakeGameClient) GetResources(ctx context.Context, planet coordinates.Coordinates) (remote.ResourcesWithCap, error) {
	return f.resources, nil
}
func (f *fakeGameClient) GetEvents(ctx context.Context) ([]fleet.Event, error) {
	return f.events, nil
}
func (f *fakeGameClient) GetFleetMovement(ctx context.Context, returnFleetID string) (remote.Movement, error) {
	idx := f.movementCalls
	if idx >= len(f.movementSequence) {
		idx = len(f.movementSequence) - 1
	}
	f.movementCalls++
	return f.movementSequence[idx], nil
}
func (f *fakeGameClient) GetFleetDispatch(ctx context.Context, planet coordinates.Coordinates) (remote.FleetDispatch, error) {
	return f.dispatch, f.dispatchErr
}
func (f *fakeGameClient) GetGalaxy(ctx context.Context, galaxy, system int) (remote.Galaxy, error) {
	return remote.Galaxy{}, nil
}
func (f *fakeGameClient) SendFleet(ctx context.Context, req remote.SendFleetRequest) (bool, error) {
	return f.sendFleetOK, f.sendFleetErr
}

// recordingSink collects every notification delivered to it on a channel,
// since Bus.Publish fans out on its own goroutine per sink.
type recordingSink struct {
	ch chan notify.Notification
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ch: make(chan notify.Notification, 64)}
}

func (r *recordingSink) Notify(n notify.Notification) { r.ch <- n }

func (r *recordingSink) collect(t *testing.T, n int) []notify.Notification {
	t.Helper()
	out := make([]notify.Notification, 0, n)
	for i := 0; i < n; i++ {
		select {
		case notification := <-r.ch:
			out = append(out, notification)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for notification %d/%d", i+1, n)
		}
	}
	return out
}

func findKind(notifications []notify.Notification, kind notify.Kind) (notify.Notification, bool) {
	for _, n := range notifications {
		if n.Kind == kind {
			return n, true
		}
	}
	return notify.Notification{}, false
}

func TestHandleDefenceDetectsNewHostileEventAndSchedulesWake(t *testing.T) {
	clock := shared.NewMockClock(time.Unix(1000, 0))
	sched := scheduler.New(clock)
	sink := newRecordingSink()
	bus := notify.NewBus(sink)

	client := &fakeGameClient{
		overview: remote.Overview{Bodies: []remote.Body{{Coords: home}}},
		events: []fleet.Event{{
			ID:          "ev1",
			Destination: home,
			ArrivalTime: 2000, // far beyond max lead time; not yet imminent
			Mission:     fleet.Attack,
		}},
		movementSequence: []remote.Movement{{Timestamp: 1000}},
	}
	gs := cache.New(client)

	sub := defence.New(clock, sched, bus, defence.Options{
		MinLeadTime:         120 * time.Second,
		MaxLeadTime:         180 * time.Second,
		MaxReturnFlightTime: 600 * time.Second,
	})

	err := sub.HandleDefence(context.Background(), false, gs)
	require.NoError(t, err)

	notifications := sink.collect(t, 1)
	n, ok := findKind(notifications, notify.HostileEvent)
	require.True(t, ok, "expected a HostileEvent notification")
	assert.Equal(t, home, n.Planet)
	assert.Equal(t, int64(2000), n.Arrival)
	assert.Equal(t, 1, sched.Len(), "a defensive wake must be scheduled")
}

func TestHandleDefenceIsIdempotentOnUnchangedHostileEvent(t *testing.T) {
	clock := shared.NewMockClock(time.Unix(1000, 0))
	sched := scheduler.New(clock)
	sink := newRecordingSink()
	bus := notify.NewBus(sink)

	event := fleet.Event{ID: "ev1", Destination: home, ArrivalTime: 2000, Mission: fleet.Attack}
	client := &fakeGameClient{
		overview:         remote.Overview{Bodies: []remote.Body{{Coords: home}}},
		events:           []fleet.Event{event},
		movementSequence: []remote.Movement{{Timestamp: 1000}},
	}
	gs := cache.New(client)

	sub := defence.New(clock, sched, bus, defence.Options{
		MinLeadTime: 120 * time.Second, MaxLeadTime: 180 * time.Second,
	})

	require.NoError(t, sub.HandleDefence(context.Background(), false, gs))
	sink.collect(t, 1) // the first-sight HostileEvent notification

	// Re-running with the exact same event, against a fresh per-wake
	// GameState (the lifetime a real wake constructs), must not publish a
	// second HostileEvent notification since neither its presence nor its
	// arrival time changed.
	gs2 := cache.New(client)
	require.NoError(t, sub.HandleDefence(context.Background(), true, gs2))

	select {
	case n := <-sink.ch:
		t.Fatalf("unexpected notification on unchanged event: %+v", n)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandleDefenceSavesFleetWhenEventIsImminent(t *testing.T) {
	clock := shared.NewMockClock(time.Unix(1000, 0))
	sched := scheduler.New(clock)
	sink := newRecordingSink()
	bus := notify.NewBus(sink)

	client := &fakeGameClient{
		overview: remote.Overview{Bodies: []remote.Body{{Coords: home}, {Coords: haven}}},
		events: []fleet.Event{{
			ID: "ev1", Destination: home, ArrivalTime: 1100, Mission: fleet.Attack,
		}},
		research: remote.Research{Levels: map[engine.Drive]int{engine.CombustionDrive: 2}},
		dispatch: remote.FleetDispatch{
			Ships:          engine.Fleet{engine.SmallCargo: 1},
			FreeFleetSlots: 1,
			Token:          "tok-1",
			Timestamp:      1000,
		},
		resources: remote.ResourcesWithCap{
			Amount: fleet.Resources{Metal: 1000, Crystal: 1000, Deuterium: 1000},
		},
		movementSequence: []remote.Movement{
			{Timestamp: 1000}, // step-6 fetch: nothing in flight yet
			{ // post-dispatch verification fetch
				Timestamp: 1001,
				Fleets: []fleet.Movement{{
					ID: "saved-1", Origin: home, Destination: haven,
					DepartureTime: 1001, Mission: fleet.Deployment,
					Ships: engine.Fleet{engine.SmallCargo: 1},
					Cargo: fleet.Resources{Metal: 1000, Crystal: 1000, Deuterium: 999},
				}},
			},
		},
		sendFleetOK: true,
	}
	gs := cache.New(client)

	sub := defence.New(clock, sched, bus, defence.Options{
		MinLeadTime: 120 * time.Second, MaxLeadTime: 180 * time.Second, MaxReturnFlightTime: 600 * time.Second,
	})

	require.NoError(t, sub.HandleDefence(context.Background(), false, gs))

	notifications := sink.collect(t, 2) // HostileEvent + FleetSaved
	saved, ok := findKind(notifications, notify.FleetSaved)
	require.True(t, ok, "expected a FleetSaved notification")
	assert.NoError(t, saved.Error)
	assert.Equal(t, home, saved.Origin)
	assert.Equal(t, haven, saved.Destination)
}

func TestHandleDefencePublishesStarvationWhenNoShipsPresent(t *testing.T) {
	clock := shared.NewMockClock(time.Unix(1000, 0))
	sched := scheduler.New(clock)
	sink := newRecordingSink()
	bus := notify.NewBus(sink)

	client := &fakeGameClient{
		overview: remote.Overview{Bodies: []remote.Body{{Coords: home}, {Coords: haven}}},
		events: []fleet.Event{{
			ID: "ev1", Destination: home, ArrivalTime: 1100, Mission: fleet.Attack,
		}},
		dispatch:         remote.FleetDispatch{Ships: engine.Fleet{}, FreeFleetSlots: 1},
		movementSequence: []remote.Movement{{Timestamp: 1000}},
	}
	gs := cache.New(client)

	sub := defence.New(clock, sched, bus, defence.Options{
		MinLeadTime: 120 * time.Second, MaxLeadTime: 180 * time.Second,
	})

	require.NoError(t, sub.HandleDefence(context.Background(), false, gs))

	notifications := sink.collect(t, 2)
	saved, ok := findKind(notifications, notify.FleetSaved)
	require.True(t, ok)
	assert.Error(t, saved.Error)
}

func TestHandleDefencePublishesPlanetsSafeOnceHostileFleetsClear(t *testing.T) {
	clock := shared.NewMockClock(time.Unix(1000, 0))
	sched := scheduler.New(clock)
	sink := newRecordingSink()
	bus := notify.NewBus(sink)

	event := fleet.Event{ID: "ev1", Destination: home, ArrivalTime: 2000, Mission: fleet.Attack}
	client := &fakeGameClient{
		overview:         remote.Overview{Bodies: []remote.Body{{Coords: home}}},
		events:           []fleet.Event{event},
		movementSequence: []remote.Movement{{Timestamp: 1000}},
	}
	gs := cache.New(client)

	sub := defence.New(clock, sched, bus, defence.Options{
		MinLeadTime: 120 * time.Second, MaxLeadTime: 180 * time.Second,
	})

	require.NoError(t, sub.HandleDefence(context.Background(), false, gs))
	sink.collect(t, 1) // HostileEvent

	client.events = nil
	gs2 := cache.New(client)
	require.NoError(t, sub.HandleDefence(context.Background(), false, gs2))

	notifications := sink.collect(t, 1)
	_, ok := findKind(notifications, notify.PlanetsSafe)
	assert.True(t, ok, "expected a PlanetsSafe notification once hostiles clear")
}
