package decision_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogsentinel/fleetwatch/internal/application/decision"
	"github.com/ogsentinel/fleetwatch/internal/application/defence"
	"github.com/ogsentinel/fleetwatch/internal/application/expeditionsvc"
	"github.com/ogsentinel/fleetwatch/internal/domain/coordinates"
	"github.com/ogsentinel/fleetwatch/internal/domain/expedition"
	"github.com/ogsentinel/fleetwatch/internal/domain/fleet"
	"github.com/ogsentinel/fleetwatch/internal/domain/notify"
	domremote "github.com/ogsentinel/fleetwatch/internal/domain/remote"
	"github.com/ogsentinel/fleetwatch/internal/domain/scheduler"
	"github.com/ogsentinel/fleetwatch/internal/domain/shared"
	"github.com/ogsentinel/fleetwatch/internal/domain/wake"
)

// fakeClient is a minimal domain/remote.GameClient for exercising the
// decision loop without a live server. When overviewErr is set, GetOverview
// fails every call, driving the retry path.
type fakeClient struct {
	overviewErr error
	overviewN   atomic.Int64
}

func (f *fakeClient) GetOverview(ctx context.Context) (domremote.Overview, error) {
	f.overviewN.Add(1)
	if f.overviewErr != nil {
		return domremote.Overview{}, f.overviewErr
	}
	return domremote.Overview{}, nil
}
func (f *fakeClient) GetResearch(ctx context.Context) (domremote.Research, error) {
	return domremote.Research{}, nil
}
func (f *fakeClient) GetShipyard(ctx context.Context, planet coordinates.Coordinates) (domremote.Shipyard, error) {
	return domremote.Shipyard{}, nil
}
func (f *fakeClient) GetResources(ctx context.Context, planet coordinates.Coordinates) (domremote.ResourcesWithCap, error) {
	return domremote.ResourcesWithCap{}, nil
}
func (f *fakeClient) GetEvents(ctx context.Context) ([]fleet.Event, error) {
	return nil, nil
}
func (f *fakeClient) GetFleetMovement(ctx context.Context, returnFleetID string) (domremote.Movement, error) {
	return domremote.Movement{}, nil
}
func (f *fakeClient) GetFleetDispatch(ctx context.Context, planet coordinates.Coordinates) (domremote.FleetDispatch, error) {
	return domremote.FleetDispatch{}, nil
}
func (f *fakeClient) GetGalaxy(ctx context.Context, galaxy, system int) (domremote.Galaxy, error) {
	return domremote.Galaxy{}, nil
}
func (f *fakeClient) SendFleet(ctx context.Context, req domremote.SendFleetRequest) (bool, error) {
	return true, nil
}

func newTestLoop(client *fakeClient) *decision.Loop {
	clock := shared.NewMockClock(time.Unix(0, 0))
	sched := scheduler.New(clock)
	bus := notify.NewBus()

	def := defence.New(clock, sched, bus, defence.Options{
		MinLeadTime:         120 * time.Second,
		MaxLeadTime:         180 * time.Second,
		MaxReturnFlightTime: 600 * time.Second,
	})
	exp := expeditionsvc.New(bus, expeditionsvc.Options{}, nil)

	return decision.New(sched, bus, client, clock, def, exp, decision.Options{
		SleepMin: 600 * time.Second,
		SleepMax: 900 * time.Second,
	})
}

func TestOnWakeSucceedsAndFetchesOverviewOnce(t *testing.T) {
	client := &fakeClient{}
	loop := newTestLoop(client)

	err := loop.Consume(context.Background(), wake.Payload{ID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), client.overviewN.Load())
}

func TestRetryCoalescesNonSentinelWakesUntilSentinelSucceeds(t *testing.T) {
	client := &fakeClient{overviewErr: errors.New("transient network error")}
	loop := newTestLoop(client)

	err := loop.Consume(context.Background(), wake.Payload{ID: uuid.New()})
	require.Error(t, err)
	assert.Equal(t, int64(1), client.overviewN.Load())

	// A non-sentinel wake racing in during the retry window must be
	// dropped without touching the remote client at all.
	err = loop.Consume(context.Background(), wake.Payload{ID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), client.overviewN.Load(), "non-sentinel wake must be coalesced away during retry")

	// Clearing the error and delivering the sentinel must succeed and
	// resume normal processing.
	client.overviewErr = nil
	err = loop.Consume(context.Background(), wake.Payload{ID: wake.RetrySentinelID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), client.overviewN.Load())

	// Error count is reset: a fresh non-sentinel wake is processed again.
	err = loop.Consume(context.Background(), wake.Payload{ID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, int64(3), client.overviewN.Load())
}

func TestDefenceCurrentWakeIDStartsAtNilUUID(t *testing.T) {
	def := defence.New(shared.NewRealClock(), scheduler.New(nil), notify.NewBus(), defence.Options{})
	assert.Equal(t, uuid.Nil, def.CurrentWakeID())
}

func TestSendExpeditionPayloadRoutesToExpeditionSubsystem(t *testing.T) {
	client := &fakeClient{}
	loop := newTestLoop(client)

	intent := &expedition.Intent{ID: "E1"}
	err := loop.Consume(context.Background(), wake.SendExpeditionPayload{Intent: intent})
	assert.NoError(t, err)
}
