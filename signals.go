package taskz

import "github.com/zoobzio/capitan"

// Signal constants for taskz scheduling events.
// Signals follow the pattern: <component>.<event>.
const (
	// Task/executor signals.
	SignalTaskSpawned            capitan.Signal = "task.spawned"
	SignalTaskWoken               capitan.Signal = "task.woken"
	SignalTaskCompleted           capitan.Signal = "task.completed"
	SignalTaskPanicked            capitan.Signal = "task.panicked"
	SignalExecutorAlreadyRunning  capitan.Signal = "executor.already-running"

	// Timer signals.
	SignalTimerRegistered capitan.Signal = "timer.registered"
	SignalTimerExpired    capitan.Signal = "timer.expired"
	SignalTimerRemoved    capitan.Signal = "timer.removed"

	// Worker/ring signals.
	SignalRingOverflowed   capitan.Signal = "ring.overflowed"
	SignalRingStealAttempt capitan.Signal = "ring.steal-attempt"
	SignalRingStolenFrom   capitan.Signal = "ring.stolen-from"
)

// Common field keys using capitan primitive types.
// All keys use primitive types to avoid custom struct serialization.
var (
	// Common fields.
	FieldTaskID     = capitan.NewIntKey("task_id")
	FieldPriority   = capitan.NewStringKey("priority")
	FieldState      = capitan.NewStringKey("state")
	FieldError      = capitan.NewStringKey("error")
	FieldTimestamp  = capitan.NewFloat64Key("timestamp")

	// Timer fields.
	FieldDeadline    = capitan.NewFloat64Key("deadline")
	FieldTimerID     = capitan.NewIntKey("timer_id")
	FieldPendingCount = capitan.NewIntKey("pending_count")

	// Worker/ring fields.
	FieldEjectedCount = capitan.NewIntKey("ejected_count")
	FieldStolenCount  = capitan.NewIntKey("stolen_count")
	FieldQueueDepth   = capitan.NewIntKey("queue_depth")
)
