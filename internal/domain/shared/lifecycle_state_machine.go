package shared

import (
	"fmt"
	"time"
)

// LifecycleStatus represents the run state of the bot process.
type LifecycleStatus string

const (
	// LifecycleStatusStopped means the decision loop is not running.
	LifecycleStatusStopped LifecycleStatus = "STOPPED"

	// LifecycleStatusRunning means the decision loop is actively executing.
	LifecycleStatusRunning LifecycleStatus = "RUNNING"
)

// LifecycleStateMachine tracks the bot's Stopped/Running lifecycle with
// clock-injected timestamps, so the decision loop's uptime and last-error
// state can be asserted deterministically in tests.
type LifecycleStateMachine struct {
	status    LifecycleStatus
	createdAt time.Time
	updatedAt time.Time
	startedAt *time.Time
	stoppedAt *time.Time
	lastError error
	clock     Clock
}

// NewLifecycleStateMachine creates a state machine in the Stopped state.
func NewLifecycleStateMachine(clock Clock) *LifecycleStateMachine {
	if clock == nil {
		clock = NewRealClock()
	}

	now := clock.Now()
	return &LifecycleStateMachine{
		status:    LifecycleStatusStopped,
		createdAt: now,
		updatedAt: now,
		clock:     clock,
	}
}

func (sm *LifecycleStateMachine) Status() LifecycleStatus {
	return sm.status
}

func (sm *LifecycleStateMachine) CreatedAt() time.Time {
	return sm.createdAt
}

func (sm *LifecycleStateMachine) UpdatedAt() time.Time {
	return sm.updatedAt
}

// StartedAt returns when the loop last started (nil if never started).
func (sm *LifecycleStateMachine) StartedAt() *time.Time {
	return sm.startedAt
}

// StoppedAt returns when the loop last stopped (nil if currently running).
func (sm *LifecycleStateMachine) StoppedAt() *time.Time {
	return sm.stoppedAt
}

// LastError returns the error from the most recent failed wake, if any.
func (sm *LifecycleStateMachine) LastError() error {
	return sm.lastError
}

// Start transitions Stopped -> Running.
func (sm *LifecycleStateMachine) Start() error {
	if sm.status != LifecycleStatusStopped {
		return fmt.Errorf("cannot start from %s state", sm.status)
	}

	now := sm.clock.Now()
	sm.status = LifecycleStatusRunning
	sm.startedAt = &now
	sm.stoppedAt = nil
	sm.updatedAt = now
	return nil
}

// Stop transitions Running -> Stopped, recording the cause if non-nil.
func (sm *LifecycleStateMachine) Stop(cause error) error {
	if sm.status != LifecycleStatusRunning {
		return fmt.Errorf("cannot stop from %s state", sm.status)
	}

	now := sm.clock.Now()
	sm.status = LifecycleStatusStopped
	sm.stoppedAt = &now
	sm.lastError = cause
	sm.updatedAt = now
	return nil
}

// RecordWakeError attaches the last wake's error without changing status;
// the decision loop keeps running through transient failures.
func (sm *LifecycleStateMachine) RecordWakeError(err error) {
	sm.lastError = err
	sm.updatedAt = sm.clock.Now()
}

func (sm *LifecycleStateMachine) IsRunning() bool {
	return sm.status == LifecycleStatusRunning
}

// Uptime reports how long the loop has been running in its current run.
// Returns 0 if not currently running.
func (sm *LifecycleStateMachine) Uptime() time.Duration {
	if sm.status != LifecycleStatusRunning || sm.startedAt == nil {
		return 0
	}
	return sm.clock.Now().Sub(*sm.startedAt)
}
