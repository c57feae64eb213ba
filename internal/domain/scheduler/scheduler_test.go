package scheduler_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ogsentinel/fleetwatch/internal/domain/scheduler"
	"github.com/ogsentinel/fleetwatch/internal/domain/shared"
)

// runUntil drives sched.Run on its own goroutine and blocks until want
// payloads have been consumed or the deadline passes, then stops the
// scheduler and returns what was collected in arrival order.
func runUntil(t *testing.T, sched *scheduler.Scheduler, want int) []interface{} {
	t.Helper()

	var mu sync.Mutex
	var got []interface{}
	done := make(chan struct{})
	stop := make(chan struct{})

	go sched.Run(func(payload interface{}) error {
		mu.Lock()
		got = append(got, payload)
		n := len(got)
		mu.Unlock()
		if n == want {
			close(done)
		}
		return nil
	}, stop)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %d payloads, got %d", want, len(got))
	}
	close(stop)

	mu.Lock()
	defer mu.Unlock()
	return got
}

func TestSchedulerPopsInNonDecreasingOrder(t *testing.T) {
	clock := shared.NewMockClock(time.Unix(0, 0))
	sched := scheduler.New(clock)

	sched.Push(3*time.Second, 0, "third", nil)
	sched.Push(1*time.Second, 0, "first", nil)
	sched.Push(2*time.Second, 0, "second", nil)

	got := runUntil(t, sched, 3)
	assert.Equal(t, []interface{}{"first", "second", "third"}, got)
}

func TestSchedulerOrdersEqualTimesByPriority(t *testing.T) {
	clock := shared.NewMockClock(time.Unix(0, 0))
	sched := scheduler.New(clock)

	sched.PushAbsolute(clock.Now().Add(time.Second), 5, "low-priority", nil)
	sched.PushAbsolute(clock.Now().Add(time.Second), 0, "high-priority", nil)

	got := runUntil(t, sched, 2)
	assert.Equal(t, []interface{}{"high-priority", "low-priority"}, got)
}

func TestCancelledEntryNeverFires(t *testing.T) {
	clock := shared.NewMockClock(time.Unix(0, 0))
	sched := scheduler.New(clock)

	handle := sched.Push(time.Second, 0, "cancel-me", nil)
	sched.Push(2*time.Second, 0, "sentinel", nil)
	sched.Cancel(handle)

	got := runUntil(t, sched, 1)
	assert.Equal(t, []interface{}{"sentinel"}, got)
}

func TestLenReflectsPendingEntries(t *testing.T) {
	clock := shared.NewMockClock(time.Unix(0, 0))
	sched := scheduler.New(clock)

	assert.Equal(t, 0, sched.Len())
	sched.Push(time.Minute, 0, "a", nil)
	sched.Push(time.Minute, 0, "b", nil)
	assert.Equal(t, 2, sched.Len())
}
