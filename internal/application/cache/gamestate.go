// Package cache implements the per-wake-up game-state cache: short-lived
// memoisation of remote reads, discarded at the end of one decision-loop
// invocation.
package cache

import (
	"context"
	"sync"

	"github.com/ogsentinel/fleetwatch/internal/domain/fleet"
	"github.com/ogsentinel/fleetwatch/internal/domain/remote"
)

// GameState wraps a remote.GameClient with memoised getters for overview,
// events, movement and research. It has the lifetime of one decision-loop
// wake: construct one per wake, discard it at the end.
type GameState struct {
	client remote.GameClient

	mu sync.Mutex

	overview     *remote.Overview
	overviewErr  error
	events       []fleet.Event
	eventsErr    error
	movement     *remote.Movement
	movementErr  error
	research     *remote.Research
	researchErr  error
}

func New(client remote.GameClient) *GameState {
	return &GameState{client: client}
}

// Overview fetches on first call, returns the cached value otherwise.
func (g *GameState) Overview(ctx context.Context, invalidate bool) (remote.Overview, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if invalidate || g.overview == nil {
		o, err := g.client.GetOverview(ctx)
		g.overview, g.overviewErr = &o, err
	}
	if g.overviewErr != nil {
		return remote.Overview{}, g.overviewErr
	}
	return *g.overview, nil
}

// Events fetches on first call, returns the cached value otherwise.
func (g *GameState) Events(ctx context.Context, invalidate bool) ([]fleet.Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if invalidate || g.events == nil {
		events, err := g.client.GetEvents(ctx)
		g.events, g.eventsErr = events, err
	}
	return g.events, g.eventsErr
}

// Research fetches on first call, returns the cached value otherwise.
func (g *GameState) Research(ctx context.Context, invalidate bool) (remote.Research, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if invalidate || g.research == nil {
		r, err := g.client.GetResearch(ctx)
		g.research, g.researchErr = &r, err
	}
	if g.researchErr != nil {
		return remote.Research{}, g.researchErr
	}
	return *g.research, nil
}

// Movement fetches on first call, returns the cached value otherwise.
// Passing a non-empty returnFleetID always forces a fetch, since it issues
// a recall and mutates remote state.
func (g *GameState) Movement(ctx context.Context, invalidate bool, returnFleetID string) (remote.Movement, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if invalidate || returnFleetID != "" || g.movement == nil {
		m, err := g.client.GetFleetMovement(ctx, returnFleetID)
		g.movement, g.movementErr = &m, err
	}
	if g.movementErr != nil {
		return remote.Movement{}, g.movementErr
	}
	return *g.movement, nil
}

// InvalidateMovement forces the next Movement call to refetch, used after
// a send-fleet mutates remote state.
func (g *GameState) InvalidateMovement() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.movement = nil
}

// Client exposes the underlying remote client for the operations this
// cache never memoises: fleet-dispatch (single-use token), resources,
// shipyard, galaxy and send-fleet.
func (g *GameState) Client() remote.GameClient {
	return g.client
}
