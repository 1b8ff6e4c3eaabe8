package taskz

// Poll is the outcome of a single poll of a Future[T]: either the future has
// completed with a value (Ready) or it has not yet made progress (Pending).
// The zero value of Poll[T] is Pending.
//
// Ready is a terminal observation — a Future must never be polled to
// produce a second Ready after the first, and callers must not rely on
// externally observable state changing across repeated Pending polls beyond
// at most one new waker registration (see DelayFuture and TimeoutFuture).
type Poll[T any] struct {
	value T
	ready bool
}

// Ready constructs a completed poll carrying value.
func Ready[T any](value T) Poll[T] {
	return Poll[T]{value: value, ready: true}
}

// Pending constructs an incomplete poll. Equivalent to the zero value.
func Pending[T any]() Poll[T] {
	return Poll[T]{}
}

// IsReady reports whether this poll completed.
func (p Poll[T]) IsReady() bool { return p.ready }

// IsPending reports whether this poll has not yet completed.
func (p Poll[T]) IsPending() bool { return !p.ready }

// Value returns the carried value and whether it is valid (i.e. the poll
// was Ready). Calling Value on a Pending poll returns the zero value of T
// and false.
func (p Poll[T]) Value() (T, bool) {
	return p.value, p.ready
}

// MustValue returns the carried value, panicking if the poll was Pending.
// Intended for call sites that have already checked IsReady.
func (p Poll[T]) MustValue() T {
	if !p.ready {
		panic("taskz: MustValue called on a Pending poll")
	}
	return p.value
}

// Waker is an immutable, copyable handle that reschedules whatever
// suspended on it. Calling Wake invokes the bound function exactly as
// given; a Waker may be stored, copied, and dropped freely, and a Waker
// that is never invoked has no side effects. Multiple invocations may
// occur — idempotence of the resulting wake-up is the scheduler's
// responsibility, not the Waker's.
type Waker struct {
	wake func()
}

// NewWaker binds wake as the callback a Waker invokes. A nil wake produces
// a Waker whose Wake is a no-op.
func NewWaker(wake func()) Waker {
	return Waker{wake: wake}
}

// Noop is a Waker whose Wake call has no effect. Useful for polling a
// future that is known never to return Pending, or in tests that don't
// care about rescheduling.
var Noop = Waker{}

// Wake invokes the bound callback, if any. Safe to call zero, one, or many
// times.
func (w Waker) Wake() {
	if w.wake != nil {
		w.wake()
	}
}

// Context carries the current Waker into a poll call. It is passed by
// value; the type is kept thin but distinct from a bare Waker so it can
// grow fields (a deadline hint, a poll budget) without breaking the
// Future[T] signature.
type Context struct {
	Waker Waker
}

// NewContext wraps w in a Context.
func NewContext(w Waker) *Context {
	return &Context{Waker: w}
}
