// Package taskz provides a small, explicit-poll asynchronous task runtime.
//
// # Overview
//
// taskz has no language-level await. Futures are explicit state machines
// that a caller polls; an executor drives a set of tasks by repeatedly
// polling the ones that are ready and parking the ones that are not. This
// mirrors the "Rust-style" async model: a Future reports Ready(value) or
// Pending, and a Pending result always means the future has arranged, via
// a Waker, to be polled again later.
//
// # Core Concepts
//
//   - Poll[T]: the two-case outcome of a single poll — Ready(value) or Pending.
//   - Waker: an immutable, copyable handle that reschedules whatever suspended
//     on it. Calling it twice, or never, is always safe.
//   - Future[T]: anything pollable — Poll(*Context) Poll[T] plus Close() for
//     teardown.
//   - Task: an executor-owned, type-erased Future[struct{}] with an id,
//     a state, and a priority.
//   - Executor: a single-threaded, cooperative scheduler. It holds a
//     priority-ordered ready set and a pending set, and loops calling Step()
//     until nothing is ready.
//   - Timer: a deadline registry. DelayFuture and TimeoutFuture register a
//     Waker against a deadline, and Timer.ProcessExpired fires it once the
//     time (read through a clockz.Clock) has passed that deadline; the
//     Timer has no background goroutine of its own.
//
// # Scheduling primitives
//
// Two lock-free structures exist ahead of a future multi-threaded,
// work-stealing executor: LockFreeQueue, a multi-producer/multi-consumer
// LIFO stack with single-consumer exclusion packed into its head word, and
// RingBuffer, a bounded single-producer/multi-consumer deque that overflows
// half its contents to a shared queue and supports half-stealing from
// peers. Worker pairs one RingBuffer with a LockFreeQueue to exercise that
// handoff protocol; only the single-threaded Executor is wired up to run
// tasks today.
//
// # Observability
//
// Timer, Executor and TimeoutFuture each carry a metricz.Registry of
// diagnostic counters/gauges, a tracez.Tracer for span-per-operation
// tracing, and a hookz.Hooks for typed event subscriptions (timer expiry,
// task completion, task panic, timeout fired). Worker carries none of these
// and only emits signals. Scheduling occurrences useful to an operator but
// outside the programmatic contract (spawn, wake, expiry, overflow, steal)
// are emitted as capitan signals.
// LockFreeQueue and RingBuffer expose metrics only — spans and hook dispatch
// on every push/pop would defeat the point of being lock-free.
//
// # Usage Example
//
//	tm := taskz.NewTimer()
//	ex := taskz.NewExecutor()
//
//	handle := ex.Spawn(taskz.NewDelay(tm, 50*time.Millisecond), taskz.PriorityNormal)
//	_ = handle
//
//	if err := ex.Run(); err != nil {
//	    log.Fatal(err)
//	}
package taskz
