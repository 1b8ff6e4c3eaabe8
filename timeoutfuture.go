package taskz

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for TimeoutFuture.
const (
	// Metrics.
	TimeoutProcessedTotal = metricz.Key("timeoutfuture.processed.total")
	TimeoutSuccessesTotal = metricz.Key("timeoutfuture.successes.total")
	TimeoutTimeoutsTotal  = metricz.Key("timeoutfuture.timeouts.total")
	TimeoutDurationMs     = metricz.Key("timeoutfuture.duration.ms")

	// Spans.
	TimeoutProcessSpan = tracez.Key("timeoutfuture.process")

	// Tags.
	TimeoutTagDuration = tracez.Tag("timeoutfuture.duration")
	TimeoutTagSuccess  = tracez.Tag("timeoutfuture.success")
	TimeoutTagElapsed  = tracez.Tag("timeoutfuture.elapsed")

	// Hook event keys.
	TimeoutEventTimeout     = hookz.Key("timeoutfuture.timeout")
	TimeoutEventNearTimeout = hookz.Key("timeoutfuture.near_timeout")
)

// TimeoutEvent is emitted via hookz when a TimeoutFuture resolves.
type TimeoutEvent struct {
	Duration    time.Duration
	Elapsed     time.Duration
	TimedOut    bool
	NearTimeout bool // elapsed exceeded 80% of duration without timing out
	PercentUsed float64
}

// Outcome is what a TimeoutFuture resolves to: either the wrapped future's
// value, or a signal that the deadline elapsed first. Exactly one of Value
// or Err is meaningful, discriminated by TimedOut.
type Outcome[T any] struct {
	Value    T
	TimedOut bool
	Err      error // ErrTimeout when TimedOut; nil otherwise
}

// TimeoutFuture races inner against a deadline. Unlike the teacher
// connector this generalizes, there is no goroutine and no context — the
// deadline is driven by the same Timer and poll loop as every other future
// in this module, so racing is a pure poll-order comparison: poll inner
// first, and only consult the deadline if inner is still Pending.
type TimeoutFuture[T any] struct {
	inner    Future[T]
	timer    *Timer
	duration time.Duration

	start    int64
	deadline int64
	timerID  ID
	started  bool
	armed    bool
	done     bool

	mu      sync.Mutex
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[TimeoutEvent]
}

// NewTimeoutFuture wraps inner with a hard deadline of duration, measured
// from the future's first poll.
func NewTimeoutFuture[T any](timer *Timer, inner Future[T], duration time.Duration) *TimeoutFuture[T] {
	metrics := metricz.New()
	metrics.Counter(TimeoutProcessedTotal)
	metrics.Counter(TimeoutSuccessesTotal)
	metrics.Counter(TimeoutTimeoutsTotal)
	metrics.Gauge(TimeoutDurationMs)

	return &TimeoutFuture[T]{
		inner:    inner,
		timer:    timer,
		duration: duration,
		metrics:  metrics,
		tracer:   tracez.New(),
		hooks:    hookz.New[TimeoutEvent](),
	}
}

// Poll implements Future[Outcome[T]].
func (t *TimeoutFuture[T]) Poll(ctx *Context) Poll[Outcome[T]] {
	if t.done {
		var zero Outcome[T]
		return Ready(zero)
	}

	now := t.timer.Now()
	if !t.started {
		t.start = now
		t.deadline = now + int64(t.duration)
		t.started = true
		t.metrics.Counter(TimeoutProcessedTotal).Inc()
		_, span := t.tracer.StartSpan(context.Background(), TimeoutProcessSpan)
		span.SetTag(TimeoutTagDuration, t.duration.String())
		span.Finish()
	}

	if p := t.inner.Poll(ctx); p.IsReady() {
		t.done = true
		if t.armed {
			t.timer.Remove(t.timerID)
		}
		elapsed := time.Duration(now - t.start)
		t.recordSuccess(elapsed)
		return Ready(Outcome[T]{Value: p.MustValue()})
	}

	if now >= t.deadline {
		t.done = true
		if t.armed {
			t.timer.Remove(t.timerID)
		}
		t.recordTimeout(time.Duration(now - t.start))
		var zero T
		return Ready(Outcome[T]{TimedOut: true, Err: ErrTimeout, Value: zero})
	}

	if !t.armed {
		id, err := t.timer.Register(t.deadline, ctx.Waker)
		if err != nil {
			// Nothing will ever wake this future if registration itself
			// fails — latch the Timeout marker and return Ready rather
			// than stall forever.
			t.done = true
			t.recordTimeout(time.Duration(now - t.start))
			var zero T
			return Ready(Outcome[T]{TimedOut: true, Err: ErrTimeout, Value: zero})
		}
		t.timerID = id
		t.armed = true
	}
	return Pending[Outcome[T]]()
}

func (t *TimeoutFuture[T]) recordSuccess(elapsed time.Duration) {
	t.metrics.Counter(TimeoutSuccessesTotal).Inc()
	t.metrics.Gauge(TimeoutDurationMs).Set(float64(elapsed.Milliseconds()))

	percentUsed := float64(elapsed) / float64(t.duration) * 100
	if percentUsed > 80 {
		_ = t.hooks.Emit(context.Background(), TimeoutEventNearTimeout, TimeoutEvent{ //nolint:errcheck
			Duration:    t.duration,
			Elapsed:     elapsed,
			NearTimeout: true,
			PercentUsed: percentUsed,
		})
	}
}

func (t *TimeoutFuture[T]) recordTimeout(elapsed time.Duration) {
	t.metrics.Counter(TimeoutTimeoutsTotal).Inc()
	t.metrics.Gauge(TimeoutDurationMs).Set(float64(elapsed.Milliseconds()))
	_ = t.hooks.Emit(context.Background(), TimeoutEventTimeout, TimeoutEvent{ //nolint:errcheck
		Duration:    t.duration,
		Elapsed:     elapsed,
		TimedOut:    true,
		PercentUsed: 100.0,
	})
}

// OnTimeout registers a handler invoked when the deadline elapses first.
func (t *TimeoutFuture[T]) OnTimeout(handler func(context.Context, TimeoutEvent) error) error {
	_, err := t.hooks.Hook(TimeoutEventTimeout, handler)
	return err
}

// OnNearTimeout registers a handler invoked when inner completes but used
// over 80% of the timeout budget.
func (t *TimeoutFuture[T]) OnNearTimeout(handler func(context.Context, TimeoutEvent) error) error {
	_, err := t.hooks.Hook(TimeoutEventNearTimeout, handler)
	return err
}

// Metrics returns the future's diagnostic registry.
func (t *TimeoutFuture[T]) Metrics() *metricz.Registry { return t.metrics }

// Tracer returns the future's tracer.
func (t *TimeoutFuture[T]) Tracer() *tracez.Tracer { return t.tracer }

// Close tears down observability components and cancels the pending timer
// registration, then closes inner.
func (t *TimeoutFuture[T]) Close() error {
	t.mu.Lock()
	if t.armed && !t.done {
		t.timer.Remove(t.timerID)
	}
	t.mu.Unlock()

	if t.tracer != nil {
		t.tracer.Close()
	}
	t.hooks.Close()
	return t.inner.Close()
}
