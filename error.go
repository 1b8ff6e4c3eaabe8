package taskz

import "errors"

// ErrAlreadyRunning is returned by Executor.Run when the executor is
// already inside a run loop on another goroutine. Only one Run may be
// active at a time; spawning from other goroutines while a Run is active
// is fine, re-entering Run is not.
var ErrAlreadyRunning = errors.New("taskz: executor is already running")

// ErrOutOfMemory is returned by Timer.Register when a caller-supplied
// capacity bound has been reached. This module never allocates without
// bound on a hot path; callers that need unbounded registration should
// size their capacity accordingly.
var ErrOutOfMemory = errors.New("taskz: capacity exhausted")

// ErrEmpty is returned by RingBuffer.Pop and LockFreeQueue.Pop when there
// is nothing to dequeue. It is a normal, expected outcome, not a fault —
// callers poll for it rather than treat it as exceptional.
var ErrEmpty = errors.New("taskz: queue is empty")

// ErrContended is returned by LockFreeQueue.Pop when another consumer
// currently holds the single-consumer exclusion bit. The caller should
// back off and retry rather than treat this as data loss; the element(s)
// it would have returned are still in the queue.
var ErrContended = errors.New("taskz: queue is contended by another consumer")

// ErrTimeout marks a TimeoutFuture result that completed because its
// deadline elapsed rather than because the wrapped future finished.
// TimeoutFuture[T].Poll reports this via its Ready value, not by
// returning it as a Go error — see the Outcome type in timeoutfuture.go —
// but it is exposed here so callers composing with errors.Is have a
// stable sentinel to compare against when they unwrap an Outcome's error.
var ErrTimeout = errors.New("taskz: deadline elapsed before completion")

// Overflow reports that a RingBuffer push could not fit locally and the
// caller must hand the ejected half to a shared LockFreeQueue. It is
// returned (never wrapped further) by RingBuffer.Push so the caller can
// recover the ejected nodes rather than losing them.
type Overflow struct {
	// Ejected holds the part of the pushed list that did not fit, followed
	// by the nodes migrated out of the ring to make room. The caller is
	// expected to push this list onto a shared LockFreeQueue.
	Ejected List
}

// Error implements the error interface.
func (o *Overflow) Error() string {
	return "taskz: ring buffer full, ejected nodes require migration"
}
