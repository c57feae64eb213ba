// Package decision implements the per-wake orchestration: fetch overview,
// run the defence subsystem, run the expedition subsystem, and reset or
// escalate the shared retry-backoff counter.
package decision

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ogsentinel/fleetwatch/internal/application/cache"
	"github.com/ogsentinel/fleetwatch/internal/application/common"
	"github.com/ogsentinel/fleetwatch/internal/application/defence"
	"github.com/ogsentinel/fleetwatch/internal/application/expeditionsvc"
	"github.com/ogsentinel/fleetwatch/internal/domain/notify"
	"github.com/ogsentinel/fleetwatch/internal/domain/remote"
	"github.com/ogsentinel/fleetwatch/internal/domain/scheduler"
	"github.com/ogsentinel/fleetwatch/internal/domain/shared"
	"github.com/ogsentinel/fleetwatch/internal/domain/wake"
)

// retryBackoff is the delay ladder (seconds) used on successive errors,
// clamped to the last entry once exhausted.
var retryBackoff = []time.Duration{
	5 * time.Second,
	10 * time.Second,
	15 * time.Second,
	30 * time.Second,
	60 * time.Second,
}

// Options carries the main wake cadence.
type Options struct {
	SleepMin time.Duration
	SleepMax time.Duration
}

// Loop is the decision loop: it owns the bot lifecycle, the scheduler, and
// the shared retry-error counter.
type Loop struct {
	sched     *scheduler.Scheduler
	bus       *notify.Bus
	client    remote.GameClient
	defence   *defence.Subsystem
	expedition *expeditionsvc.Subsystem
	lifecycle *shared.LifecycleStateMachine
	opts      Options

	mu         sync.Mutex
	errorCount int
	mainWake   *uuid.UUID
}

func New(
	sched *scheduler.Scheduler,
	bus *notify.Bus,
	client remote.GameClient,
	clock shared.Clock,
	def *defence.Subsystem,
	exp *expeditionsvc.Subsystem,
	opts Options,
) *Loop {
	return &Loop{
		sched:      sched,
		bus:        bus,
		client:     client,
		defence:    def,
		expedition: exp,
		lifecycle:  shared.NewLifecycleStateMachine(clock),
		opts:       opts,
	}
}

// Start transitions stopped -> running and schedules the periodic main
// wake. It is idempotent.
func (l *Loop) Start() {
	if l.lifecycle.IsRunning() {
		return
	}
	if err := l.lifecycle.Start(); err != nil {
		return
	}
	l.bus.Publish(notify.NewStarted())

	handle := l.sched.Push(0, 1, wake.Payload{ID: uuid.New()}, l.mainPeriod)
	l.mainWake = &handle
}

// Stop cancels the periodic wake handle. In-flight handlers complete
// normally; there is no preemption.
func (l *Loop) Stop() {
	if !l.lifecycle.IsRunning() {
		return
	}
	if l.mainWake != nil {
		l.sched.Cancel(*l.mainWake)
		l.mainWake = nil
	}
	_ = l.lifecycle.Stop(nil)
	l.bus.Publish(notify.NewStopped())
}

// mainPeriod draws a random delay in [SleepMin, SleepMax] for the
// recurring main-cadence wake.
func (l *Loop) mainPeriod() time.Duration {
	if l.opts.SleepMax <= l.opts.SleepMin {
		return l.opts.SleepMin
	}
	span := l.opts.SleepMax - l.opts.SleepMin
	return l.opts.SleepMin + time.Duration(rand.Int63n(int64(span)))
}

// Consume is the scheduler's consume callback: it routes by payload type.
func (l *Loop) Consume(ctx context.Context, payload interface{}) error {
	switch p := payload.(type) {
	case wake.Payload:
		return l.onWake(ctx, p)
	case wake.SendExpeditionPayload:
		l.expedition.AddIntent(p.Intent)
		return nil
	case wake.CancelExpeditionPayload:
		l.expedition.RequestCancel(p.IntentID, p.ReturnFleet)
		return nil
	default:
		return nil
	}
}

// onWake runs exactly one decision-loop pass.
func (l *Loop) onWake(ctx context.Context, event wake.Payload) error {
	l.mu.Lock()
	inRetry := l.errorCount > 0
	l.mu.Unlock()

	if inRetry && event.ID != wake.RetrySentinelID {
		return nil
	}

	l.bus.Publish(notify.NewWakeUp())

	gs := cache.New(l.client)

	overview, err := gs.Overview(ctx, false)
	if err != nil {
		return l.onError(ctx, err)
	}
	common.LoggerFromContext(ctx).Log("info", "wake", map[string]interface{}{
		"wake_id":         event.ID,
		"character_class": overview.CharacterClass,
	})

	currentWakeIsDefensive := event.ID == l.defence.CurrentWakeID()
	if err := l.defence.HandleDefence(ctx, currentWakeIsDefensive, gs); err != nil {
		return l.onError(ctx, err)
	}
	if err := l.expedition.HandleExpeditions(ctx, gs); err != nil {
		return l.onError(ctx, err)
	}

	l.mu.Lock()
	l.errorCount = 0
	l.mu.Unlock()
	l.lifecycle.RecordWakeError(nil)
	return nil
}

// onError schedules a retry wake using the backoff ladder, escalates the
// counter, records the error on the lifecycle, and re-raises for
// observation by higher-level supervision (the scheduler logs and
// swallows it so the process survives).
func (l *Loop) onError(ctx context.Context, err error) error {
	l.mu.Lock()
	index := l.errorCount
	if index >= len(retryBackoff) {
		index = len(retryBackoff) - 1
	}
	delay := retryBackoff[index]
	l.errorCount++
	l.mu.Unlock()

	common.LoggerFromContext(ctx).Log("error", "wake failed", map[string]interface{}{"error": err.Error()})
	l.sched.Push(delay, 0, wake.Payload{ID: wake.RetrySentinelID}, nil)
	l.lifecycle.RecordWakeError(err)
	l.bus.Publish(notify.NewFatal(err))
	return err
}

