package taskz

import (
	"context"
	"fmt"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for Executor.
const (
	// Metrics.
	ExecutorSpawnedTotal   = metricz.Key("executor.spawned.total")
	ExecutorCompletedTotal = metricz.Key("executor.completed.total")
	ExecutorFailedTotal    = metricz.Key("executor.failed.total")
	ExecutorWokenTotal     = metricz.Key("executor.woken.total")
	ExecutorStepsTotal     = metricz.Key("executor.steps.total")
	ExecutorReadyCurrent   = metricz.Key("executor.ready.current")
	ExecutorPendingCurrent = metricz.Key("executor.pending.current")

	// Spans.
	ExecutorStepSpan = tracez.Key("executor.step")

	// Tags.
	ExecutorTagTaskID   = tracez.Tag("executor.task_id")
	ExecutorTagPriority = tracez.Tag("executor.priority")
	ExecutorTagOutcome  = tracez.Tag("executor.outcome")

	// Hook event keys.
	ExecutorEventCompleted = hookz.Key("executor.completed")
	ExecutorEventPanicked  = hookz.Key("executor.panicked")
)

// ExecutorEvent is emitted via hookz when a task reaches a terminal state.
type ExecutorEvent struct {
	TaskID   ID
	Priority Priority
	Panic    any // non-nil only for ExecutorEventPanicked
}

// Executor is a single-threaded, cooperative scheduler. It holds a
// priority-ordered ready set (four FIFO lanes, one per Priority, serviced
// strictly highest-first) and a pending set of tasks parked awaiting a
// wake. There is no preemption: a task runs until its poll returns, and the
// executor never runs two tasks concurrently.
type Executor struct {
	mu        sync.Mutex
	ready     [4][]*Task // indexed by Priority
	pending   map[ID]*Task
	tasks     map[ID]*Task
	nextID    ID
	running   bool
	current   ID // id of the task currently inside t.poll, 0 if none

	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[ExecutorEvent]
}

// NewExecutor constructs an empty Executor.
func NewExecutor() *Executor {
	metrics := metricz.New()
	metrics.Counter(ExecutorSpawnedTotal)
	metrics.Counter(ExecutorCompletedTotal)
	metrics.Counter(ExecutorFailedTotal)
	metrics.Counter(ExecutorWokenTotal)
	metrics.Counter(ExecutorStepsTotal)
	metrics.Gauge(ExecutorReadyCurrent)
	metrics.Gauge(ExecutorPendingCurrent)

	return &Executor{
		pending: make(map[ID]*Task),
		tasks:   make(map[ID]*Task),
		metrics: metrics,
		tracer:  tracez.New(),
		hooks:   hookz.New[ExecutorEvent](),
	}
}

// Spawn wraps f as a Task at the given priority, inserts it into the ready
// set, and returns a handle to it. The task runs no sooner than the next
// Step or Run call.
func (e *Executor) Spawn(f Future[struct{}], priority Priority) TaskHandle {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	t := newTask(id, f, priority)
	e.tasks[id] = t
	e.ready[priority] = append(e.ready[priority], t)

	e.metrics.Counter(ExecutorSpawnedTotal).Inc()
	e.metrics.Gauge(ExecutorReadyCurrent).Set(float64(e.readyCountLocked()))
	capitan.Info(context.Background(), SignalTaskSpawned,
		FieldTaskID.Field(int(id)),
		FieldPriority.Field(priority.String()),
	)

	return TaskHandle{id: id}
}

// SpawnNormal is a convenience for Spawn(f, PriorityNormal).
func (e *Executor) SpawnNormal(f Future[struct{}]) TaskHandle {
	return e.Spawn(f, PriorityNormal)
}

func (e *Executor) readyCountLocked() int {
	n := 0
	for _, lane := range e.ready {
		n += len(lane)
	}
	return n
}

// dequeueReadyLocked pops the highest-priority ready task, preserving FIFO
// order within a priority level. Caller must hold e.mu.
func (e *Executor) dequeueReadyLocked() *Task {
	for p := PriorityCritical; p >= PriorityLow; p-- {
		lane := e.ready[p]
		if len(lane) == 0 {
			continue
		}
		t := lane[0]
		e.ready[p] = lane[1:]
		return t
	}
	return nil
}

// Step dequeues and polls the single highest-priority ready task, if any.
// It reports whether the ready set is non-empty afterward (i.e. whether
// another Step would find work). A ready-set entry whose task state is no
// longer Ready (a stale entry left by a re-insertion path) is skipped.
func (e *Executor) Step() bool {
	e.mu.Lock()
	t := e.dequeueReadyLocked()
	if t == nil {
		e.mu.Unlock()
		return false
	}
	if t.State() != StateReady {
		e.metrics.Gauge(ExecutorReadyCurrent).Set(float64(e.readyCountLocked()))
		any := e.readyCountLocked() > 0
		e.mu.Unlock()
		return any
	}

	waker := NewWaker(func() { e.wake(t.id) })
	t.state = StateRunning
	t.woken = false
	e.current = t.id
	e.metrics.Gauge(ExecutorReadyCurrent).Set(float64(e.readyCountLocked()))
	e.mu.Unlock()

	e.metrics.Counter(ExecutorStepsTotal).Inc()
	_, span := e.tracer.StartSpan(context.Background(), ExecutorStepSpan)
	span.SetTag(ExecutorTagTaskID, fmt.Sprintf("%d", t.id))
	span.SetTag(ExecutorTagPriority, t.priority.String())

	poll, panicVal := t.poll(NewContext(waker))

	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = 0

	switch {
	case panicVal != nil:
		t.state = StateFailed
		delete(e.tasks, t.id)
		e.metrics.Counter(ExecutorFailedTotal).Inc()
		span.SetTag(ExecutorTagOutcome, "panicked")
		span.Finish()
		capitan.Error(context.Background(), SignalTaskPanicked,
			FieldTaskID.Field(int(t.id)),
			FieldError.Field(fmt.Sprintf("%v", panicVal)),
		)
		_ = t.close() //nolint:errcheck
		_ = e.hooks.Emit(context.Background(), ExecutorEventPanicked, ExecutorEvent{ //nolint:errcheck
			TaskID: t.id, Priority: t.priority, Panic: panicVal,
		})
	case poll.IsReady():
		t.state = StateCompleted
		delete(e.tasks, t.id)
		e.metrics.Counter(ExecutorCompletedTotal).Inc()
		span.SetTag(ExecutorTagOutcome, "completed")
		span.Finish()
		capitan.Info(context.Background(), SignalTaskCompleted,
			FieldTaskID.Field(int(t.id)),
			FieldState.Field(StateCompleted.String()),
		)
		_ = t.close() //nolint:errcheck
		_ = e.hooks.Emit(context.Background(), ExecutorEventCompleted, ExecutorEvent{ //nolint:errcheck
			TaskID: t.id, Priority: t.priority,
		})
	case t.woken:
		// The task called ctx.Waker.Wake() synchronously during this very
		// poll, before Step had a chance to park it in e.pending — wake
		// found nothing there and latched t.woken instead (see wake). Honor
		// that latched wake now by re-queuing immediately rather than
		// parking a task that nothing will ever wake again.
		t.woken = false
		t.state = StateReady
		e.ready[t.priority] = append(e.ready[t.priority], t)
		e.metrics.Counter(ExecutorWokenTotal).Inc()
		span.SetTag(ExecutorTagOutcome, "requeued")
		span.Finish()
		capitan.Info(context.Background(), SignalTaskWoken, FieldTaskID.Field(int(t.id)))
	default:
		t.state = StatePending
		e.pending[t.id] = t
		span.SetTag(ExecutorTagOutcome, "pending")
		span.Finish()
	}

	e.metrics.Gauge(ExecutorReadyCurrent).Set(float64(e.readyCountLocked()))
	e.metrics.Gauge(ExecutorPendingCurrent).Set(float64(len(e.pending)))

	return e.readyCountLocked() > 0
}

// Run steps the executor until the ready set is empty. Returns
// ErrAlreadyRunning if called while already running (e.g. re-entered from
// within a task's poll). Tasks left in the pending set when Run returns are
// not dropped — they remain parked until woken by a later Run/Step, or
// until Close tears the executor down.
func (e *Executor) Run() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		capitan.Warn(context.Background(), SignalExecutorAlreadyRunning)
		return ErrAlreadyRunning
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	for e.Step() {
	}
	return nil
}

// wake moves a pending task back to ready. Idempotent: waking a task that
// is already ready, completed, or unknown is a silent no-op.
//
// A task's own poll may call ctx.Waker.Wake() synchronously and then return
// Pending — the cooperative yield idiom. That wake arrives here while the
// task is still StateRunning and not yet in e.pending (Step only parks it
// after poll returns), so the e.pending lookup below finds nothing. Rather
// than drop the wake, latch it on the task itself when id is the task Step
// currently has in flight; Step checks that latch immediately after poll
// returns and re-queues the task instead of parking it forever.
func (e *Executor) wake(id ID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.pending[id]; ok {
		delete(e.pending, id)
		t.state = StateReady
		e.ready[t.priority] = append(e.ready[t.priority], t)

		e.metrics.Counter(ExecutorWokenTotal).Inc()
		e.metrics.Gauge(ExecutorReadyCurrent).Set(float64(e.readyCountLocked()))
		e.metrics.Gauge(ExecutorPendingCurrent).Set(float64(len(e.pending)))
		capitan.Info(context.Background(), SignalTaskWoken, FieldTaskID.Field(int(id)))
		return
	}

	if e.current == id {
		if t, ok := e.tasks[id]; ok {
			t.woken = true
		}
	}
}

// ReadyCount returns the number of tasks currently in the ready set.
func (e *Executor) ReadyCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.readyCountLocked()
}

// PendingCount returns the number of tasks currently parked awaiting a wake.
func (e *Executor) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// OnCompleted registers a handler invoked when a task completes normally.
func (e *Executor) OnCompleted(handler func(context.Context, ExecutorEvent) error) error {
	_, err := e.hooks.Hook(ExecutorEventCompleted, handler)
	return err
}

// OnPanicked registers a handler invoked when a task's poll panics.
func (e *Executor) OnPanicked(handler func(context.Context, ExecutorEvent) error) error {
	_, err := e.hooks.Hook(ExecutorEventPanicked, handler)
	return err
}

// Metrics returns the executor's diagnostic registry.
func (e *Executor) Metrics() *metricz.Registry { return e.metrics }

// Tracer returns the executor's tracer.
func (e *Executor) Tracer() *tracez.Tracer { return e.tracer }

// Close tears down observability components and drops every task still
// held in the ready or pending sets, closing their futures. Safe to call
// once; a Close while Run is active on another goroutine is not supported,
// matching the single-threaded contract.
func (e *Executor) Close() error {
	e.mu.Lock()
	var leaked []*Task
	for _, lane := range e.ready {
		leaked = append(leaked, lane...)
	}
	for _, t := range e.pending {
		leaked = append(leaked, t)
	}
	for p := range e.ready {
		e.ready[p] = nil
	}
	e.pending = make(map[ID]*Task)
	e.mu.Unlock()

	for _, t := range leaked {
		_ = t.close() //nolint:errcheck
	}

	if e.tracer != nil {
		e.tracer.Close()
	}
	e.hooks.Close()
	return nil
}
