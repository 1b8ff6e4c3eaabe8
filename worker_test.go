package taskz

import (
	"errors"
	"testing"
)

func TestWorker(t *testing.T) {
	t.Run("Submit Then Next Returns The Node", func(t *testing.T) {
		q := NewLockFreeQueue()
		w := NewWorker(1, 8, q)
		n := &Node{}
		w.Submit(NodeFrom(n))

		got, err := w.Next(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != n {
			t.Error("expected to get back the submitted node")
		}
	})

	t.Run("Next On Empty Worker With No Peers Returns ErrEmpty", func(t *testing.T) {
		q := NewLockFreeQueue()
		w := NewWorker(1, 8, q)
		if _, err := w.Next(nil); !errors.Is(err, ErrEmpty) {
			t.Errorf("expected ErrEmpty, got %v", err)
		}
	})

	t.Run("Next Falls Back To Shared Queue", func(t *testing.T) {
		q := NewLockFreeQueue()
		n := &Node{}
		q.Push(NodeFrom(n))

		w := NewWorker(1, 8, q)
		got, err := w.Next(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != n {
			t.Error("expected to consume the node from the shared queue")
		}
	})

	t.Run("Next Steals From A Peer When Own Sources Are Empty", func(t *testing.T) {
		q := NewLockFreeQueue()
		w1 := NewWorker(1, 8, q)
		w2 := NewWorker(2, 8, q)

		n := &Node{}
		w2.Submit(NodeFrom(n))

		got, err := w1.Next([]*Worker{w1, w2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != n {
			t.Error("expected to steal the node from peer w2")
		}
	})

	t.Run("Submit Overflow Forwards To Shared Queue", func(t *testing.T) {
		q := NewLockFreeQueue()
		w := NewWorker(1, 4, q)
		for i := 0; i < 6; i++ {
			w.Submit(NodeFrom(&Node{}))
		}

		total := w.Ring().Occupancy()
		for {
			_, err := q.Pop()
			if err != nil {
				break
			}
			total++
		}
		if total != 6 {
			t.Errorf("expected 6 total nodes across ring + queue, got %d", total)
		}
	})

	t.Run("ID Returns Constructor Value", func(t *testing.T) {
		w := NewWorker(42, 8, NewLockFreeQueue())
		if w.ID() != 42 {
			t.Errorf("expected ID 42, got %d", w.ID())
		}
	})

	t.Run("Close Is Safe To Call Multiple Times", func(t *testing.T) {
		w := NewWorker(1, 8, NewLockFreeQueue())
		if err := w.Close(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Errorf("unexpected error on second close: %v", err)
		}
	})
}
