package taskz

import (
	"errors"
	"testing"
)

func TestNextPowerOfTwo(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {4, 4}, {5, 8}, {16, 16}, {17, 32},
	}
	for _, c := range cases {
		if got := nextPowerOfTwo(c.in); got != c.want {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestRingBufferPushPop(t *testing.T) {
	t.Run("Pop On Empty Ring Returns ErrEmpty", func(t *testing.T) {
		r := NewRingBuffer(4)
		if _, err := r.Pop(); !errors.Is(err, ErrEmpty) {
			t.Errorf("expected ErrEmpty, got %v", err)
		}
	})

	t.Run("Push Then Pop Round-trips", func(t *testing.T) {
		r := NewRingBuffer(4)
		n := &Node{}
		if err := r.Push(NodeFrom(n)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := r.Pop()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != n {
			t.Error("expected to pop the pushed node")
		}
	})

	t.Run("Occupancy Tracks Pending Count", func(t *testing.T) {
		r := NewRingBuffer(8)
		list := NodeFrom(&Node{})
		list.Append(NodeFrom(&Node{}))
		list.Append(NodeFrom(&Node{}))
		_ = r.Push(list)
		if r.Occupancy() != 3 {
			t.Errorf("expected occupancy 3, got %d", r.Occupancy())
		}
		r.Pop()
		if r.Occupancy() != 2 {
			t.Errorf("expected occupancy 2, got %d", r.Occupancy())
		}
	})

	t.Run("Overflow Ejects Half And Returns Combined List", func(t *testing.T) {
		r := NewRingBuffer(4)
		for i := 0; i < 4; i++ {
			if err := r.Push(NodeFrom(&Node{})); err != nil {
				t.Fatalf("unexpected overflow on fill: %v", err)
			}
		}

		overflowList := NodeFrom(&Node{})
		err := r.Push(overflowList)
		var overflow *Overflow
		if !errors.As(err, &overflow) {
			t.Fatalf("expected *Overflow, got %v", err)
		}
		if overflow.Ejected.IsEmpty() {
			t.Error("expected non-empty ejected list")
		}
	})
}

func TestRingBufferSteal(t *testing.T) {
	t.Run("Steal From Empty Ring Returns ErrEmpty", func(t *testing.T) {
		victim := NewRingBuffer(8)
		thief := NewRingBuffer(8)
		if _, _, err := thief.Steal(victim); !errors.Is(err, ErrEmpty) {
			t.Errorf("expected ErrEmpty, got %v", err)
		}
	})

	t.Run("Steal Takes Roughly Half", func(t *testing.T) {
		victim := NewRingBuffer(8)
		for i := 0; i < 4; i++ {
			_ = victim.Push(NodeFrom(&Node{}))
		}
		thief := NewRingBuffer(8)

		_, _, err := thief.Steal(victim)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		remaining := victim.Occupancy()
		if remaining != 2 {
			t.Errorf("expected 2 remaining in victim, got %d", remaining)
		}
	})

	t.Run("Steal Of Single Item Returns It Directly", func(t *testing.T) {
		victim := NewRingBuffer(8)
		n := &Node{}
		_ = victim.Push(NodeFrom(n))
		thief := NewRingBuffer(8)

		got, pushed, err := thief.Steal(victim)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != n {
			t.Error("expected to steal the sole node directly")
		}
		if pushed {
			t.Error("expected nothing retained in thief's buffer for a single-item steal")
		}
	})
}

func TestRingBufferConsume(t *testing.T) {
	t.Run("Consume Refills From Shared Queue", func(t *testing.T) {
		q := NewLockFreeQueue()
		list := NodeFrom(&Node{})
		list.Append(NodeFrom(&Node{}))
		list.Append(NodeFrom(&Node{}))
		q.Push(list)

		r := NewRingBuffer(8)
		first, err := r.Consume(q)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first == nil {
			t.Fatal("expected a node back directly")
		}

		count := 1
		for {
			_, err := r.Pop()
			if err != nil {
				break
			}
			count++
		}
		if count != 3 {
			t.Errorf("expected 3 total nodes consumed, got %d", count)
		}
	})

	t.Run("Consume On Empty Queue Returns ErrEmpty", func(t *testing.T) {
		q := NewLockFreeQueue()
		r := NewRingBuffer(8)
		if _, err := r.Consume(q); !errors.Is(err, ErrEmpty) {
			t.Errorf("expected ErrEmpty, got %v", err)
		}
	})
}
