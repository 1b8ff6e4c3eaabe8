package taskz

import "time"

// DelayFuture resolves to struct{} once its deadline has passed. It is the
// simplest possible Timer-backed future: register once on the first poll,
// then report Pending until a Timer.ProcessExpired call wakes it, at which
// point the next poll observes the deadline has passed and returns Ready.
type DelayFuture struct {
	timer      *Timer
	deadline   int64
	timerID    ID
	armed      bool
	registered bool
	fired      bool
}

// NewDelay constructs a DelayFuture that resolves once d has elapsed,
// measured from the moment it is first polled (not from construction).
func NewDelay(timer *Timer, d time.Duration) *DelayFuture {
	return &DelayFuture{timer: timer, deadline: int64(d)}
}

// NewDelayUntil constructs a DelayFuture that resolves once the Timer's
// clock reaches the given absolute nanosecond deadline.
func NewDelayUntil(timer *Timer, deadlineNanos int64) *DelayFuture {
	return &DelayFuture{timer: timer, deadline: deadlineNanos, armed: true}
}

// Poll implements Future[struct{}].
func (d *DelayFuture) Poll(ctx *Context) Poll[struct{}] {
	if d.fired {
		return Ready(struct{}{})
	}

	now := d.timer.Now()

	if !d.armed {
		// First poll: NewDelay's deadline field held a relative duration in
		// nanoseconds until now; convert it to an absolute deadline.
		d.deadline += now
		d.armed = true
	}

	if now >= d.deadline {
		if d.registered {
			d.timer.Remove(d.timerID)
		}
		d.fired = true
		return Ready(struct{}{})
	}

	if !d.registered {
		id, err := d.timer.Register(d.deadline, ctx.Waker)
		if err != nil {
			// Nothing will ever wake this future if registration itself
			// fails (e.g. the Timer is at capacity) — treat it as
			// immediately Ready rather than stall forever.
			d.fired = true
			return Ready(struct{}{})
		}
		d.timerID = id
		d.registered = true
	}
	return Pending[struct{}]()
}

// Close cancels the pending registration, if any. Safe to call more than
// once or after the future has already resolved.
func (d *DelayFuture) Close() error {
	if d.timerID != 0 && !d.fired {
		d.timer.Remove(d.timerID)
	}
	return nil
}
