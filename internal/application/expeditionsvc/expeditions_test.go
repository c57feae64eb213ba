package expeditionsvc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogsentinel/fleetwatch/internal/application/cache"
	"github.com/ogsentinel/fleetwatch/internal/application/expeditionsvc"
	"github.com/ogsentinel/fleetwatch/internal/domain/coordinates"
	"github.com/ogsentinel/fleetwatch/internal/domain/engine"
	"github.com/ogsentinel/fleetwatch/internal/domain/expedition"
	"github.com/ogsentinel/fleetwatch/internal/domain/fleet"
	"github.com/ogsentinel/fleetwatch/internal/domain/notify"
	"github.com/ogsentinel/fleetwatch/internal/domain/remote"
)

var (
	homePlanet = coordinates.New(3, 4, 5, coordinates.Planet)
	destField  = coordinates.New(3, 4, 6, coordinates.Planet)
)

type fakeGameClient struct {
	overview remote.Overview
	research remote.Research

	dispatch remote.FleetDispatch
	resources remote.ResourcesWithCap
	galaxy    remote.Galaxy
	shipyards map[coordinates.Coordinates]remote.Shipyard

	movementSequence []remote.Movement
	movementCalls    int

	sendFleetOK bool
}

func (f *fakeGameClient) GetOverview(ctx context.Context) (remote.Overview, error) {
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
	return nil, nil
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
	return f.dispatch, nil
}
func (f *fakeGameClient) GetGalaxy(ctx context.Context, galaxy, system int) (remote.Galaxy, error) {
	return f.galaxy, nil
}
func (f *fakeGameClient) SendFleet(ctx context.Context, req remote.SendFleetRequest) (bool, error) {
	return f.sendFleetOK, nil
}

type recordingSink struct {
	ch chan notify.Notification
}

func newRecordingSink() *recordingSink { return &recordingSink{ch: make(chan notify.Notification, 64)} }

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

func TestDispatchNewSendsQueuedIntentAndAttachesFleetID(t *testing.T) {
	sink := newRecordingSink()
	bus := notify.NewBus(sink)

	intent := &expedition.Intent{
		ID:          "exp-1",
		Origin:      homePlanet,
		Destination: destField,
		Ships:       engine.Fleet{engine.Pathfinder: 1},
		Speed:       10,
		Cargo:       fleet.Resources{},
		Repeat:      expedition.Repeat{Count: 3},
	}

	client := &fakeGameClient{
		overview: remote.Overview{Bodies: []remote.Body{{Coords: homePlanet}}},
		dispatch: remote.FleetDispatch{
			Ships:          engine.Fleet{engine.Pathfinder: 1},
			FreeFleetSlots: 1,
			Token:          "tok",
			Timestamp:      500,
		},
		resources: remote.ResourcesWithCap{Amount: fleet.Resources{Deuterium: 1000}},
		movementSequence: []remote.Movement{
			{Timestamp: 500}, // step-1 fetch before dispatch
			{
				Timestamp: 501,
				Fleets: []fleet.Movement{{
					ID: "fleet-1", Origin: homePlanet, Destination: destField,
					Mission: fleet.Expedition, DepartureTime: 501,
					Ships: engine.Fleet{engine.Pathfinder: 1},
				}},
			},
		},
		sendFleetOK: true,
	}
	gs := cache.New(client)

	sub := expeditionsvc.New(bus, expeditionsvc.Options{}, []*expedition.Intent{intent})
	require.NoError(t, sub.HandleExpeditions(context.Background(), gs))

	assert.Equal(t, "fleet-1", intent.FleetID)
	assert.True(t, intent.IsRunning())
	assert.Equal(t, 2, intent.Repeat.Count, "repeat counter must decrement by exactly one on dispatch")
}

func TestHandleExpeditionsFinishesIntentWhenFleetVanishesAndRepeatExhausted(t *testing.T) {
	sink := newRecordingSink()
	bus := notify.NewBus(sink)

	intent := &expedition.Intent{
		ID: "exp-1", Origin: homePlanet, Destination: destField,
		FleetID: "fleet-1", Repeat: expedition.Repeat{Count: 0},
	}

	client := &fakeGameClient{
		overview:         remote.Overview{Bodies: []remote.Body{{Coords: homePlanet}}},
		movementSequence: []remote.Movement{{Timestamp: 500}}, // fleet-1 no longer present
	}
	gs := cache.New(client)

	sub := expeditionsvc.New(bus, expeditionsvc.Options{}, []*expedition.Intent{intent})
	require.NoError(t, sub.HandleExpeditions(context.Background(), gs))

	notifications := sink.collect(t, 1)
	assert.Equal(t, notify.ExpeditionFinished, notifications[0].Kind)
	assert.Equal(t, "exp-1", notifications[0].Expedition)
	assert.NoError(t, notifications[0].Error)
}

func TestHandleExpeditionsRequeuesIntentWhenRepeatRemains(t *testing.T) {
	sink := newRecordingSink()
	bus := notify.NewBus(sink)

	intent := &expedition.Intent{
		ID: "exp-1", Origin: homePlanet, Destination: destField,
		FleetID: "fleet-1", Repeat: expedition.Repeat{Count: 2},
	}

	client := &fakeGameClient{
		overview:         remote.Overview{Bodies: []remote.Body{{Coords: homePlanet}}},
		movementSequence: []remote.Movement{{Timestamp: 500}},
	}
	gs := cache.New(client)

	sub := expeditionsvc.New(bus, expeditionsvc.Options{}, []*expedition.Intent{intent})
	require.NoError(t, sub.HandleExpeditions(context.Background(), gs))

	assert.Empty(t, intent.FleetID, "a finished cycle with repeats left must clear the fleet id so it re-dispatches")
	assert.Equal(t, 2, intent.Repeat.Count, "the drain step must not decrement; that happens only at dispatch")
	assert.False(t, intent.IsRunning())
}

func TestRequestCancelMarksRunningIntentAndHandleExpeditionsPublishesCancellation(t *testing.T) {
	sink := newRecordingSink()
	bus := notify.NewBus(sink)

	intent := &expedition.Intent{
		ID: "exp-1", Origin: homePlanet, Destination: destField,
		FleetID: "fleet-1", Repeat: expedition.Repeat{Count: 5},
	}

	client := &fakeGameClient{
		overview: remote.Overview{Bodies: []remote.Body{{Coords: homePlanet}}},
		movementSequence: []remote.Movement{{
			Timestamp: 500,
			Fleets: []fleet.Movement{{
				ID: "fleet-1", Origin: homePlanet, Destination: destField,
				Mission: fleet.Expedition, Holding: true,
			}},
		}},
	}
	gs := cache.New(client)

	sub := expeditionsvc.New(bus, expeditionsvc.Options{}, []*expedition.Intent{intent})
	sub.RequestCancel("exp-1", false)

	require.NoError(t, sub.HandleExpeditions(context.Background(), gs))

	notifications := sink.collect(t, 1)
	assert.Equal(t, notify.ExpeditionCancelled, notifications[0].Kind)
	assert.True(t, notifications[0].Cancellation)
}

func TestHarvestDebrisPublishesShortfallWhenPathfindersInsufficient(t *testing.T) {
	sink := newRecordingSink()
	bus := notify.NewBus(sink)

	intent := &expedition.Intent{
		ID: "exp-1", Origin: homePlanet, Destination: destField,
		FleetID: "fleet-1", Repeat: expedition.Repeat{Forever: true},
	}

	client := &fakeGameClient{
		overview: remote.Overview{Bodies: []remote.Body{{Coords: homePlanet}}},
		galaxy: remote.Galaxy{Tiles: []remote.GalaxyTile{{
			Position:         destField.Position,
			ExpeditionDebris: fleet.Resources{Metal: 100000, Crystal: 0},
		}}},
		shipyards: map[coordinates.Coordinates]remote.Shipyard{
			homePlanet: {Ships: engine.Fleet{engine.Pathfinder: 1}},
		},
		movementSequence: []remote.Movement{{
			Timestamp: 500,
			Fleets: []fleet.Movement{{
				ID: "fleet-1", Origin: homePlanet, Destination: destField,
				Mission: fleet.Expedition,
			}},
		}},
	}
	gs := cache.New(client)

	opts := expeditionsvc.Options{HarvestExpeditionDebris: true, HarvestSpeedPercentage: 100}
	sub := expeditionsvc.New(bus, opts, []*expedition.Intent{intent})
	require.NoError(t, sub.HandleExpeditions(context.Background(), gs))

	notifications := sink.collect(t, 1)
	assert.Equal(t, notify.DebrisHarvest, notifications[0].Kind)
	assert.Error(t, notifications[0].Error, "one available pathfinder must fall short of a 100000-metal debris field")
}
