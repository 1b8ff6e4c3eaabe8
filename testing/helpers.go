// Package testing provides test utilities for taskz-based code: a
// configurable mock future, assertion helpers, and a couple of latency
// measurement helpers carried over from the sibling pipeline library this
// module was generalized from.
//
// Example usage:
//
//	func TestDelayThenReady(t *testing.T) {
//		mock := testing.NewMockFuture[int](t, "mock-future")
//		mock.WithPendingCount(1).WithReturn(42, nil)
//
//		ex := taskz.NewExecutor()
//		ex.SpawnNormal(taskz.Erase(mock))
//		require.NoError(t, ex.Run()) // first poll is Pending; the task parks
//		mock.Wake()                  // moves the task back to ready
//		require.NoError(t, ex.Run())
//		testing.AssertPolled(t, mock, 2)
//	}
package testing

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/taskz"
)

// MockFuture is a configurable Future[T] for testing Executor and Timer
// interactions without a real async source. By default it returns Ready on
// its first poll; WithPendingCount makes it return Pending for a fixed
// number of polls first, recording the poll's Waker each time so a test
// can drive it forward explicitly via Wake. The mock never wakes itself, so
// an Executor parks it after each Pending poll until Wake is called.
type MockFuture[T any] struct { //nolint:govet // fieldalignment: test helper, clarity over packing
	t             *testing.T
	name          string
	mu            sync.Mutex
	pollCount     int64
	pendingCount  int
	returnVal     T
	returnErr     error
	panicMsg      string
	lastWaker     *taskz.Waker
	closed        bool
	closeErr      error
}

// PollRecord describes one poll by index and time. MockFuture does not
// record these itself; it keeps only a poll count.
type PollRecord struct {
	Index     int
	Timestamp time.Time
}

// NewMockFuture constructs a MockFuture that returns Ready(zero value) on
// its very first poll, unless reconfigured with WithPendingCount/WithReturn.
func NewMockFuture[T any](t *testing.T, name string) *MockFuture[T] {
	return &MockFuture[T]{t: t, name: name}
}

// WithPendingCount configures the future to return Pending for the first n
// polls before returning Ready on poll n+1.
func (m *MockFuture[T]) WithPendingCount(n int) *MockFuture[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingCount = n
	return m
}

// WithReturn configures the value the future resolves to. The error, if
// non-nil, is not surfaced by Poll directly (Future[T] has no error
// channel) but is available via LastError for assertions about what a
// fallible-T caller would have seen.
func (m *MockFuture[T]) WithReturn(val T, err error) *MockFuture[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.returnVal = val
	m.returnErr = err
	return m
}

// WithPanic configures the future to panic with msg on its final poll (the
// one that would otherwise have returned Ready), exercising Task's panic
// isolation.
func (m *MockFuture[T]) WithPanic(msg string) *MockFuture[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicMsg = msg
	return m
}

// WithCloseError configures the error Close returns.
func (m *MockFuture[T]) WithCloseError(err error) *MockFuture[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeErr = err
	return m
}

// Poll implements taskz.Future[T].
func (m *MockFuture[T]) Poll(ctx *taskz.Context) taskz.Poll[T] {
	n := atomic.AddInt64(&m.pollCount, 1)

	m.mu.Lock()
	pendingCount := m.pendingCount
	panicMsg := m.panicMsg
	returnVal := m.returnVal
	returnErr := m.returnErr
	waker := ctx.Waker
	m.lastWaker = &waker
	m.mu.Unlock()

	if int(n) <= pendingCount {
		return taskz.Pending[T]()
	}

	if panicMsg != "" {
		panic(panicMsg)
	}

	_ = returnErr // surfaced only via LastError(); Future[T] carries no error channel
	return taskz.Ready(returnVal)
}

// Close implements taskz.Future[T].
func (m *MockFuture[T]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.closeErr
}

// PollCount returns the number of times Poll has been called.
func (m *MockFuture[T]) PollCount() int {
	return int(atomic.LoadInt64(&m.pollCount))
}

// LastError returns the error configured via WithReturn, for tests that
// want to assert on it independent of the Poll/Ready contract.
func (m *MockFuture[T]) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.returnErr
}

// Wake invokes the Waker captured on the most recent poll, if any. Returns
// false if Poll has never been called.
func (m *MockFuture[T]) Wake() bool {
	m.mu.Lock()
	waker := m.lastWaker
	m.mu.Unlock()
	if waker == nil {
		return false
	}
	waker.Wake()
	return true
}

// Closed reports whether Close has been called.
func (m *MockFuture[T]) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Assertion helpers.

// AssertPolled verifies that a mock future was polled exactly n times.
func AssertPolled[T any](t *testing.T, mock *MockFuture[T], expected int) {
	t.Helper()
	actual := mock.PollCount()
	if actual != expected {
		t.Errorf("expected mock future %s to be polled %d times, but was polled %d times",
			mock.name, expected, actual)
	}
}

// AssertNotPolled verifies that a mock future was never polled.
func AssertNotPolled[T any](t *testing.T, mock *MockFuture[T]) {
	t.Helper()
	AssertPolled(t, mock, 0)
}

// AssertClosed verifies that a mock future's Close was called.
func AssertClosed[T any](t *testing.T, mock *MockFuture[T]) {
	t.Helper()
	if !mock.Closed() {
		t.Errorf("expected mock future %s to be closed, but it was not", mock.name)
	}
}

// WaitForPolls waits for a mock future to be polled at least n times,
// polling at a short fixed interval. Returns true if the expected poll
// count was reached before timeout.
func WaitForPolls[T any](mock *MockFuture[T], expected int, timeout time.Duration) bool {
	start := time.Now()
	for time.Since(start) < timeout {
		if mock.PollCount() >= expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

// MeasureLatency measures the latency of a function call.
func MeasureLatency(fn func()) time.Duration {
	start := time.Now()
	fn()
	return time.Since(start)
}
