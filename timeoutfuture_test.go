package taskz

import (
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestTimeoutFuture(t *testing.T) {
	t.Run("Inner Completes Before Deadline", func(t *testing.T) {
		clock := clockz.NewFakeClock()
		tm := NewTimer().WithClock(clock)
		defer tm.Close()

		inner := &countingFuture{readyAt: 1, value: 99}
		tf := NewTimeoutFuture[int](tm, inner, time.Hour)
		defer tf.Close()

		p := tf.Poll(NewContext(Noop))
		if !p.IsReady() {
			t.Fatal("expected Ready")
		}
		outcome, _ := p.Value()
		if outcome.TimedOut {
			t.Error("expected TimedOut == false")
		}
		if outcome.Value != 99 {
			t.Errorf("expected value 99, got %d", outcome.Value)
		}
	})

	t.Run("Deadline Elapses Before Inner Completes", func(t *testing.T) {
		clock := clockz.NewFakeClock()
		tm := NewTimer().WithClock(clock)
		defer tm.Close()

		inner := &countingFuture{readyAt: 1000}
		tf := NewTimeoutFuture[int](tm, inner, 50*time.Millisecond)
		defer tf.Close()

		ctx := NewContext(Noop)
		if p := tf.Poll(ctx); !p.IsPending() {
			t.Fatal("expected Pending before the deadline")
		}

		clock.Advance(50 * time.Millisecond)
		p := tf.Poll(ctx)
		if !p.IsReady() {
			t.Fatal("expected Ready once the deadline elapses")
		}
		outcome, _ := p.Value()
		if !outcome.TimedOut {
			t.Error("expected TimedOut == true")
		}
		if outcome.Err != ErrTimeout {
			t.Errorf("expected ErrTimeout, got %v", outcome.Err)
		}
	})

	t.Run("Ready Is Sticky After Resolution", func(t *testing.T) {
		clock := clockz.NewFakeClock()
		tm := NewTimer().WithClock(clock)
		defer tm.Close()

		inner := &countingFuture{readyAt: 1, value: 5}
		tf := NewTimeoutFuture[int](tm, inner, time.Hour)
		defer tf.Close()

		ctx := NewContext(Noop)
		tf.Poll(ctx)
		p := tf.Poll(ctx)
		if !p.IsReady() {
			t.Fatal("expected Ready to remain sticky")
		}
		outcome, _ := p.Value()
		if outcome.Value != 0 {
			t.Error("expected zero-value Outcome on the repeated poll")
		}
	})

	t.Run("Registers Timer Only Once While Pending", func(t *testing.T) {
		clock := clockz.NewFakeClock()
		tm := NewTimer().WithClock(clock)
		defer tm.Close()

		inner := &countingFuture{readyAt: 1000}
		tf := NewTimeoutFuture[int](tm, inner, time.Hour)
		defer tf.Close()

		ctx := NewContext(Noop)
		tf.Poll(ctx)
		tf.Poll(ctx)
		tf.Poll(ctx)

		if tm.Count() != 1 {
			t.Errorf("expected 1 registered timer entry, got %d", tm.Count())
		}
	})

	t.Run("Register Failure Falls Back To Immediate Timeout", func(t *testing.T) {
		tm := NewTimerWithCapacity(1)
		defer tm.Close()
		// Fill the timer's single slot so the TimeoutFuture's own Register
		// call fails with ErrOutOfMemory.
		tm.Register(tm.Now()+int64(time.Hour), Noop)

		inner := &countingFuture{readyAt: 1000}
		tf := NewTimeoutFuture[int](tm, inner, time.Hour)
		defer tf.Close()

		p := tf.Poll(NewContext(Noop))
		if !p.IsReady() {
			t.Fatal("expected Ready when Timer.Register fails")
		}
		outcome, _ := p.Value()
		if !outcome.TimedOut || outcome.Err != ErrTimeout {
			t.Errorf("expected TimedOut Outcome with ErrTimeout, got %+v", outcome)
		}
	})

	t.Run("Close Cancels Pending Registration And Closes Inner", func(t *testing.T) {
		tm := NewTimer()
		defer tm.Close()

		inner := &countingFuture{readyAt: 1000}
		tf := NewTimeoutFuture[int](tm, inner, time.Hour)

		tf.Poll(NewContext(Noop))
		if tm.Count() != 1 {
			t.Fatalf("expected 1 registered entry, got %d", tm.Count())
		}

		if err := tf.Close(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if tm.Count() != 0 {
			t.Errorf("expected registration removed after Close, got %d", tm.Count())
		}
		if !inner.closed {
			t.Error("expected inner future to be closed")
		}
	})
}
