// Package scheduler implements a priority-ordered event queue keyed on
// absolute wake time, with one-shot and periodic entries and cancellation
// by handle. Grounded on the reference bot's heapq-backed event loop,
// translated to container/heap with a mutex-guarded push/cancel side and a
// single-goroutine consumer.
package scheduler

import (
	"container/heap"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ogsentinel/fleetwatch/internal/domain/shared"
)

// PeriodFunc returns the delay until an entry's next occurrence; it may be
// constant or randomised (the main wake cadence uses a random period).
type PeriodFunc func() time.Duration

type entry struct {
	id       uuid.UUID
	time     time.Time
	priority int
	payload  interface{}
	period   PeriodFunc
	index    int // heap.Interface bookkeeping
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if !h[i].time.Equal(h[j].time) {
		return h[i].time.Before(h[j].time)
	}
	return h[i].priority < h[j].priority
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler is a single-threaded cooperative event queue: Push/PushAbsolute/
// Cancel may be called from any goroutine (guarded by a mutex); Run is the
// only consumer and executes every handler on its own goroutine, in order.
type Scheduler struct {
	mu    sync.Mutex
	queue entryHeap
	byID  map[uuid.UUID]*entry
	clock shared.Clock
}

// New creates an empty Scheduler using the given clock (RealClock if nil).
func New(clock shared.Clock) *Scheduler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Scheduler{
		queue: entryHeap{},
		byID:  make(map[uuid.UUID]*entry),
		clock: clock,
	}
}

// Push schedules payload to fire after delay, returning a cancellable handle.
func (s *Scheduler) Push(delay time.Duration, priority int, payload interface{}, period PeriodFunc) uuid.UUID {
	return s.PushAbsolute(s.clock.Now().Add(delay), priority, payload, period)
}

// PushAbsolute schedules payload to fire at the given absolute time.
func (s *Scheduler) PushAbsolute(at time.Time, priority int, payload interface{}, period PeriodFunc) uuid.UUID {
	e := &entry{
		id:       uuid.New(),
		time:     at,
		priority: priority,
		payload:  payload,
		period:   period,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	heap.Push(&s.queue, e)
	s.byID[e.id] = e
	return e.id
}

// Cancel removes the entry if present; cancelling an absent handle is a no-op.
func (s *Scheduler) Cancel(handle uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[handle]
	if !ok {
		return
	}
	delete(s.byID, handle)
	heap.Remove(&s.queue, e.index)
}

// popDue removes and returns the earliest entry if its time has elapsed.
func (s *Scheduler) popDue() *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return nil
	}
	head := s.queue[0]
	if head.time.After(s.clock.Now()) {
		return nil
	}
	heap.Pop(&s.queue)
	delete(s.byID, head.id)
	return head
}

// reschedule reinserts a periodic entry at now + period().
func (s *Scheduler) reschedule(e *entry) {
	next := &entry{
		id:       e.id,
		time:     s.clock.Now().Add(e.period()),
		priority: e.priority,
		payload:  e.payload,
		period:   e.period,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	heap.Push(&s.queue, next)
	s.byID[next.id] = next
}

// idleDelay is the polling granularity when the queue has nothing due.
const idleDelay = 50 * time.Millisecond

// Run drives the loop: pops due entries and invokes consume synchronously,
// re-inserting periodic entries (at now + period) before invoking consume. Exceptions returned by
// consume are logged and swallowed; they never terminate the loop. Run
// blocks until stop is closed.
func (s *Scheduler) Run(consume func(payload interface{}) error, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		e := s.popDue()
		if e == nil {
			s.clock.Sleep(idleDelay)
			continue
		}

		if e.period != nil {
			s.reschedule(e)
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("scheduler: recovered panic in consume: %v", r)
				}
			}()
			if err := consume(e.payload); err != nil {
				log.Printf("scheduler: handler error: %v", err)
			}
		}()
	}
}

// Len reports the number of pending entries, used by ambient metrics.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
