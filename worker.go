package taskz

import (
	"context"
	"errors"
	"sync"

	"github.com/zoobzio/capitan"
)

// Worker pairs a per-worker RingBuffer (owned, SPMC) with a shared
// LockFreeQueue (MPMC) to exercise the overflow/steal/consume handshake
// between those two primitives ahead of a future multi-worker executor.
// Only one Worker owns a given RingBuffer as producer; other Workers may
// Steal from it or share the same LockFreeQueue as an overflow/backfill
// channel.
type Worker struct {
	id    int
	ring  *RingBuffer
	queue *LockFreeQueue

	closeOnce sync.Once
}

// NewWorker constructs a Worker with its own RingBuffer of the given
// capacity, sharing queue with any sibling workers.
func NewWorker(id int, ringCapacity int, queue *LockFreeQueue) *Worker {
	return &Worker{
		id:    id,
		ring:  NewRingBuffer(ringCapacity),
		queue: queue,
	}
}

// ID returns the worker's identity, stable for its lifetime.
func (w *Worker) ID() int { return w.id }

// Ring returns the worker's owned RingBuffer.
func (w *Worker) Ring() *RingBuffer { return w.ring }

// Submit pushes list onto the worker's own ring. If the ring overflows,
// the ejected-plus-remaining nodes are forwarded to the shared queue
// automatically; Submit itself never returns Overflow to its caller.
func (w *Worker) Submit(list List) {
	err := w.ring.Push(list)
	if err == nil {
		return
	}
	var overflow *Overflow
	if errors.As(err, &overflow) {
		w.queue.Push(overflow.Ejected)
		capitan.Info(context.Background(), SignalRingOverflowed,
			FieldEjectedCount.Field(overflow.Ejected.Count()),
			FieldQueueDepth.Field(w.queue.approximateDepth()),
		)
	}
}

// Next returns the next node this worker should run: its own ring first,
// then a refill from the shared queue, then stealing from a peer. Returns
// ErrEmpty if none of those sources have anything right now.
func (w *Worker) Next(peers []*Worker) (*Node, error) {
	if n, err := w.ring.Pop(); err == nil {
		return n, nil
	}

	if n, err := w.ring.Consume(w.queue); err == nil {
		return n, nil
	}

	for _, peer := range peers {
		if peer == w || peer == nil {
			continue
		}
		capitan.Info(context.Background(), SignalRingStealAttempt, FieldTaskID.Field(peer.id))
		before := w.ring.Occupancy()
		n, _, err := w.ring.Steal(peer.ring)
		if err == nil {
			stolen := w.ring.Occupancy() - before + 1
			capitan.Info(context.Background(), SignalRingStolenFrom,
				FieldTaskID.Field(peer.id),
				FieldStolenCount.Field(stolen),
			)
			return n, nil
		}
	}

	return nil, ErrEmpty
}

// Close releases nothing: the worker's ring and the shared queue are left
// as they are (the shared queue outlives any single worker). Safe to call
// more than once; it always returns nil.
func (w *Worker) Close() error {
	w.closeOnce.Do(func() {})
	return nil
}
