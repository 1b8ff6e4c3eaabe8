package taskz

import "fmt"

// Priority orders ready tasks within the Executor's ready set. Higher
// values run first; within one priority level the Executor preserves
// insertion order (spec leaves intra-priority order unspecified but
// requires it be total and deterministic per instance — see DESIGN.md).
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// String renders the priority name for logs and signal fields.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// State is a Task's position in its lifecycle.
type State int

const (
	// StateReady means the task is waiting in the executor's ready set.
	StateReady State = iota
	// StateRunning means the executor is currently inside this task's poll.
	StateRunning
	// StatePending means the task returned Pending and is parked until woken.
	StatePending
	// StateCompleted means the task's future returned Ready.
	StateCompleted
	// StateFailed means the task's poll panicked; the executor isolated it.
	StateFailed
)

// String renders the state name for logs and signal fields.
func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StatePending:
		return "pending"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ID identifies a Task, unique within the Executor that spawned it and
// monotonically increasing from 1.
type ID uint64

// Task is a scheduler record owning exactly one type-erased future of
// result type struct{}. Tasks are created by Executor.Spawn, repeatedly
// polled by Executor.Step, and reach a terminal state of Completed (the
// future returned Ready) or Failed (the future's poll panicked).
type Task struct {
	id       ID
	future   Future[struct{}]
	state    State
	priority Priority

	// woken latches a wake that arrived while this task was StateRunning —
	// a future that calls ctx.Waker.Wake() synchronously before returning
	// Pending. Executor.Step checks and clears it immediately after poll
	// returns; see Executor.wake.
	woken bool
}

func newTask(id ID, f Future[struct{}], priority Priority) *Task {
	return &Task{id: id, future: f, state: StateReady, priority: priority}
}

// ID returns the task's identity.
func (t *Task) ID() ID { return t.id }

// State returns the task's current lifecycle state.
func (t *Task) State() State { return t.state }

// Priority returns the task's scheduling priority.
func (t *Task) Priority() Priority { return t.priority }

// poll drives the task's future once, recovering any panic raised inside
// it so the caller (Executor.Step) can isolate a single misbehaving task
// instead of bringing down the whole run loop.
func (t *Task) poll(ctx *Context) (p Poll[struct{}], panicVal any) {
	defer func() {
		panicVal = recover()
	}()
	p = t.future.Poll(ctx)
	return
}

// close releases the underlying future's resources. Safe to call multiple
// times; errors are surfaced to the caller (Executor) to log or ignore.
func (t *Task) close() error {
	if t.future == nil {
		return nil
	}
	return t.future.Close()
}

// TaskHandle is returned from Executor.Spawn. It carries only the task's
// id today; cancel/join are documented future extensions (spec.md §6).
type TaskHandle struct {
	id ID
}

// ID returns the handle's task id.
func (h TaskHandle) ID() ID { return h.id }
