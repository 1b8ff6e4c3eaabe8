package taskz

import (
	"container/heap"
	"context"
	"fmt"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for Timer.
const (
	// Metrics.
	TimerRegisteredTotal = metricz.Key("timer.registered.total")
	TimerExpiredTotal    = metricz.Key("timer.expired.total")
	TimerRemovedTotal    = metricz.Key("timer.removed.total")
	TimerPendingCurrent  = metricz.Key("timer.pending.current")

	// Spans.
	TimerProcessExpiredSpan = tracez.Key("timer.process-expired")

	// Tags.
	TimerTagExpiredCount = tracez.Tag("timer.expired_count")

	// Hook event keys.
	TimerEventExpired = hookz.Key("timer.expired")
)

// TimerEvent is emitted via hookz each time an entry's deadline elapses.
type TimerEvent struct {
	ID       ID
	Deadline int64
}

// entry is one registered deadline. It implements container/heap's element
// contract through timerHeap below; idx tracks its current heap position so
// Remove can splice it out in O(log n) instead of a linear scan.
type entry struct {
	id       ID
	deadline int64
	waker    Waker
	idx      int
}

type timerHeap []*entry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline < h[j].deadline }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].idx = i
	h[j].idx = j
}

func (h *timerHeap) Push(x any) {
	e := x.(*entry)
	e.idx = len(*h)
	*h = append(*h, e)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.idx = -1
	*h = old[:n-1]
	return e
}

// Timer is a deadline registry: DelayFuture and TimeoutFuture register a
// Waker against a monotonic deadline (nanoseconds read from a clockz.Clock),
// and ProcessExpired fires every Waker whose deadline has passed. There is
// no background goroutine — a Timer only advances when something calls
// ProcessExpired, matching the single-threaded, explicit-poll executor
// model the rest of this module follows.
type Timer struct {
	mu       sync.Mutex
	heap     timerHeap
	byID     map[ID]*entry
	nextID   ID
	capacity int // 0 means unbounded

	clock   clockz.Clock
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[TimerEvent]
}

// NewTimer constructs an unbounded Timer using the real wall clock.
func NewTimer() *Timer {
	return NewTimerWithCapacity(0)
}

// NewTimerWithCapacity constructs a Timer that refuses registration once
// capacity entries are pending. A capacity of 0 means unbounded.
func NewTimerWithCapacity(capacity int) *Timer {
	metrics := metricz.New()
	metrics.Counter(TimerRegisteredTotal)
	metrics.Counter(TimerExpiredTotal)
	metrics.Counter(TimerRemovedTotal)
	metrics.Gauge(TimerPendingCurrent)

	return &Timer{
		byID:     make(map[ID]*entry),
		capacity: capacity,
		clock:    clockz.RealClock,
		metrics:  metrics,
		tracer:   tracez.New(),
		hooks:    hookz.New[TimerEvent](),
	}
}

// WithClock sets a custom clock, for deterministic testing against a
// clockz.FakeClock.
func (t *Timer) WithClock(clock clockz.Clock) *Timer {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clock = clock
	return t
}

func (t *Timer) getClock() clockz.Clock {
	if t.clock == nil {
		return clockz.RealClock
	}
	return t.clock
}

// Now returns the current monotonic nanosecond timestamp, as read from the
// Timer's clock.
func (t *Timer) Now() int64 {
	return t.getClock().Now().UnixNano()
}

// Register arranges for waker.Wake to be invoked the next time ProcessExpired
// is called after deadline has passed (deadline is a nanosecond timestamp as
// returned by Now). It returns an ID usable with Remove.
func (t *Timer) Register(deadline int64, waker Waker) (ID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.capacity > 0 && len(t.heap) >= t.capacity {
		return 0, ErrOutOfMemory
	}

	t.nextID++
	id := t.nextID
	e := &entry{id: id, deadline: deadline, waker: waker}
	heap.Push(&t.heap, e)
	t.byID[id] = e

	t.metrics.Counter(TimerRegisteredTotal).Inc()
	t.metrics.Gauge(TimerPendingCurrent).Set(float64(len(t.heap)))
	capitan.Info(context.Background(), SignalTimerRegistered,
		FieldTimerID.Field(int(id)),
		FieldDeadline.Field(float64(deadline)),
		FieldPendingCount.Field(len(t.heap)),
	)

	return id, nil
}

// Remove cancels a pending registration. It reports whether id was found and
// removed; removing an id that already expired or was never registered is a
// no-op that returns false.
func (t *Timer) Remove(id ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&t.heap, e.idx)
	delete(t.byID, id)

	t.metrics.Counter(TimerRemovedTotal).Inc()
	t.metrics.Gauge(TimerPendingCurrent).Set(float64(len(t.heap)))
	capitan.Info(context.Background(), SignalTimerRemoved,
		FieldTimerID.Field(int(id)),
		FieldPendingCount.Field(len(t.heap)),
	)

	return true
}

// HasExpired reports whether any registered entry's deadline is at or before
// now.
func (t *Timer) HasExpired(now int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.heap) > 0 && t.heap[0].deadline <= now
}

// NextDeadline returns the soonest pending deadline and whether one exists.
// Callers that sleep between polls can use this to bound how long to sleep.
func (t *Timer) NextDeadline() (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.heap) == 0 {
		return 0, false
	}
	return t.heap[0].deadline, true
}

// Count returns the number of entries still pending.
func (t *Timer) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.heap)
}

// ProcessExpired fires every Waker whose deadline is at or before now and
// removes those entries, returning how many were fired. Wakers are invoked
// after the Timer's internal lock is released, so a Waker that re-enters the
// Timer (e.g. to re-register) cannot deadlock.
func (t *Timer) ProcessExpired(now int64) int {
	t.mu.Lock()
	var fired []*entry
	for len(t.heap) > 0 && t.heap[0].deadline <= now {
		e := heap.Pop(&t.heap).(*entry)
		delete(t.byID, e.id)
		fired = append(fired, e)
	}
	pending := len(t.heap)
	t.mu.Unlock()

	if len(fired) == 0 {
		return 0
	}

	_, span := t.tracer.StartSpan(context.Background(), TimerProcessExpiredSpan)
	span.SetTag(TimerTagExpiredCount, fmt.Sprintf("%d", len(fired)))
	defer span.Finish()

	t.metrics.Counter(TimerExpiredTotal).Add(float64(len(fired)))
	t.metrics.Gauge(TimerPendingCurrent).Set(float64(pending))

	for _, e := range fired {
		capitan.Info(context.Background(), SignalTimerExpired,
			FieldTimerID.Field(int(e.id)),
			FieldDeadline.Field(float64(e.deadline)),
			FieldTimestamp.Field(float64(now)),
		)
		_ = t.hooks.Emit(context.Background(), TimerEventExpired, TimerEvent{ID: e.id, Deadline: e.deadline}) //nolint:errcheck
		e.waker.Wake()
	}

	return len(fired)
}

// OnExpired registers a handler invoked for every fired entry.
func (t *Timer) OnExpired(handler func(context.Context, TimerEvent) error) error {
	_, err := t.hooks.Hook(TimerEventExpired, handler)
	return err
}

// Metrics returns the Timer's diagnostic registry.
func (t *Timer) Metrics() *metricz.Registry { return t.metrics }

// Tracer returns the Timer's tracer.
func (t *Timer) Tracer() *tracez.Tracer { return t.tracer }

// Close releases the Timer's observability components. Safe to call once;
// pending entries are left untouched (their Wakers simply never fire).
func (t *Timer) Close() error {
	if t.tracer != nil {
		t.tracer.Close()
	}
	t.hooks.Close()
	return nil
}
