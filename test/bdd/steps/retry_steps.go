package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/uuid"

	"github.com/ogsentinel/fleetwatch/internal/application/defence"
	"github.com/ogsentinel/fleetwatch/internal/application/decision"
	"github.com/ogsentinel/fleetwatch/internal/application/expeditionsvc"
	"github.com/ogsentinel/fleetwatch/internal/domain/expedition"
	"github.com/ogsentinel/fleetwatch/internal/domain/notify"
	"github.com/ogsentinel/fleetwatch/internal/domain/scheduler"
	"github.com/ogsentinel/fleetwatch/internal/domain/shared"
	"github.com/ogsentinel/fleetwatch/internal/domain/wake"
)

// firedEvent captures one scheduler firing observed through the loop's
// Consume callback, along with the mock clock reading at the moment it ran.
type firedEvent struct {
	payload interface{}
	err     error
	at      time.Time
}

// retryContext drives the real scheduler against a loop wired with a mock
// clock, parking the scheduler's single consumer goroutine between firings
// so each step inspects exactly one wake at a time.
type retryContext struct {
	client *fakeGameClient
	sink   *recordingSink
	clock  *shared.MockClock
	sched  *scheduler.Scheduler
	loop   *decision.Loop

	fired  chan firedEvent
	resume chan struct{}
	stop   chan struct{}
	parked bool

	lastFired     firedEvent
	expectedDelay time.Duration
}

func (e *retryContext) reset() {
	e.clock = shared.NewMockClock(time.Unix(1000, 0))
	e.sched = scheduler.New(e.clock)
	e.client = newFakeGameClient()
	e.sink = newRecordingSink()
	bus := notify.NewBus(e.sink)

	defSub := defence.New(e.clock, e.sched, bus, defence.Options{
		MinLeadTime:         time.Minute,
		MaxLeadTime:         time.Hour,
		MaxReturnFlightTime: time.Hour,
	})
	expSub := expeditionsvc.New(bus, expeditionsvc.Options{}, []*expedition.Intent{})
	e.loop = decision.New(e.sched, bus, e.client, e.clock, defSub, expSub, decision.Options{
		SleepMin: time.Minute,
		SleepMax: 2 * time.Minute,
	})

	e.fired = make(chan firedEvent, 1)
	e.resume = make(chan struct{})
	e.stop = make(chan struct{})
	e.parked = false
	e.lastFired = firedEvent{}
	e.expectedDelay = 0

	consume := func(payload interface{}) error {
		err := e.loop.Consume(context.Background(), payload)
		e.fired <- firedEvent{payload: payload, err: err, at: e.clock.Now()}
		<-e.resume
		return err
	}
	go e.sched.Run(consume, e.stop)
}

// awaitFired unparks the previously parked firing (if any) and blocks for
// the next one. The scheduler's idle wait advances the mock clock without
// a real sleep, so the next due entry surfaces almost immediately.
func (e *retryContext) awaitFired() error {
	if e.parked {
		e.resume <- struct{}{}
		e.parked = false
	}
	select {
	case ev := <-e.fired:
		e.lastFired = ev
		e.parked = true
		return nil
	case <-time.After(2 * time.Second):
		return fmt.Errorf("timed out waiting for the scheduler to fire the next wake")
	}
}

// fireNext advances to the next scheduled wake and, if a prior "Then"
// step recorded an expected delay, verifies it against the elapsed mock
// time between this firing and the previous one.
func (e *retryContext) fireNext() error {
	prev := e.lastFired
	if err := e.awaitFired(); err != nil {
		return err
	}
	if e.expectedDelay > 0 {
		got := e.lastFired.at.Sub(prev.at)
		if got != e.expectedDelay {
			return fmt.Errorf("expected the wake %s after the previous one, got %s", e.expectedDelay, got)
		}
		e.expectedDelay = 0
	}
	return nil
}

func (e *retryContext) theClockReads(unixSeconds int64) error {
	e.clock.SetTime(time.Unix(unixSeconds, 0))
	return nil
}

func (e *retryContext) getOverviewFailsTransientlyForTheFirstNWakes(n int) error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = shared.NewTransientError(fmt.Errorf("remote overview fetch failed"))
	}
	e.client.overviewErrs = errs
	return nil
}

func (e *retryContext) theMainWakeFires() error {
	e.loop.Start()
	return e.fireNext()
}

func (e *retryContext) theRetrySentinelWakeFires() error {
	return e.fireNext()
}

func (e *retryContext) aRetryWakeShouldBeScheduledSecondsOut(n int) error {
	if e.lastFired.err == nil {
		return fmt.Errorf("expected the last wake to have errored so a retry would be scheduled")
	}
	e.expectedDelay = time.Duration(n) * time.Second
	return nil
}

func (e *retryContext) aNonSentinelWakeFiresDuringRetry() error {
	before := e.client.overviewCalls
	err := e.loop.Consume(context.Background(), wake.Payload{ID: uuid.New()})
	if err != nil {
		return fmt.Errorf("expected a dropped wake to return no error, got %v", err)
	}
	if e.client.overviewCalls != before {
		return fmt.Errorf("expected the dropped wake not to call the remote client")
	}
	return nil
}

func (e *retryContext) itShouldBeDroppedWithoutCallingTheRemoteClient() error {
	return nil // verified inline by aNonSentinelWakeFiresDuringRetry
}

func (e *retryContext) theWakeShouldSucceedAndTheErrorCounterShouldResetToZero() error {
	if e.lastFired.err != nil {
		return fmt.Errorf("expected the wake to succeed, got %v", e.lastFired.err)
	}
	before := e.client.overviewCalls
	if err := e.loop.Consume(context.Background(), wake.Payload{ID: uuid.New()}); err != nil {
		return fmt.Errorf("expected a fresh non-sentinel wake to proceed now the counter is reset, got error %v", err)
	}
	if e.client.overviewCalls != before+1 {
		return fmt.Errorf("expected the fresh wake to call the remote client, proving the retry counter was reset")
	}
	return nil
}

// InitializeRetryScenario registers step definitions for the S5 scenario in
// spec.md section 8 (retry-backoff coalescing of whole-wake failures).
func InitializeRetryScenario(ctx *godog.ScenarioContext) {
	e := &retryContext{}
	ctx.Before(func(goCtx context.Context, sc *godog.Scenario) (context.Context, error) {
		e.reset()
		return goCtx, nil
	})
	ctx.After(func(goCtx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		close(e.stop)
		if e.parked {
			close(e.resume)
		}
		return goCtx, nil
	})

	ctx.Step(`^the clock reads (\d+)$`, e.theClockReads)
	ctx.Step(`^get-overview fails transiently for the first (\d+) wakes$`, e.getOverviewFailsTransientlyForTheFirstNWakes)
	ctx.Step(`^the main wake fires$`, e.theMainWakeFires)
	ctx.Step(`^a retry wake should be scheduled (\d+) seconds out$`, e.aRetryWakeShouldBeScheduledSecondsOut)
	ctx.Step(`^a non-sentinel wake fires during retry$`, e.aNonSentinelWakeFiresDuringRetry)
	ctx.Step(`^it should be dropped without calling the remote client$`, e.itShouldBeDroppedWithoutCallingTheRemoteClient)
	ctx.Step(`^the retry sentinel wake fires$`, e.theRetrySentinelWakeFires)
	ctx.Step(`^the wake should succeed and the error counter should reset to 0$`, e.theWakeShouldSucceedAndTheErrorCounterShouldResetToZero)
}
