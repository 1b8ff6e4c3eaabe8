package taskz

import (
	"sync/atomic"

	"github.com/zoobzio/metricz"
)

// Observability constants for RingBuffer.
const (
	RingPushTotal      = metricz.Key("ring.push.total")
	RingPopTotal       = metricz.Key("ring.pop.total")
	RingOverflowTotal  = metricz.Key("ring.overflow.total")
	RingStealTotal     = metricz.Key("ring.steal.total")
	RingStolenTotal    = metricz.Key("ring.stolen.total")
	RingOccupancyGauge = metricz.Key("ring.occupancy.current")
)

// RingBuffer is a bounded, power-of-two-capacity single-producer/
// multi-consumer deque. The owning Worker is the sole producer — only it
// advances tail and writes slots. Consumers (the owner popping, or peers
// stealing) advance head via CAS; pop and steal therefore contend with
// each other on head, never on tail.
//
// head and tail are unsigned counters that wrap modulo 2^32; occupancy is
// always computed as tail-head with wraparound-safe unsigned subtraction,
// matching how Chase-Lev-style deques in this module's reference material
// track size without a separate count field.
type RingBuffer struct {
	head atomic.Uint32
	tail atomic.Uint32

	mask  uint32 // capacity-1; capacity is a power of two
	slots []atomic.Pointer[Node]

	metrics *metricz.Registry
}

// NewRingBuffer constructs a RingBuffer of the given capacity, which must
// be a power of two (e.g. 256). Capacities that aren't a power of two are
// rounded up to the next one.
func NewRingBuffer(capacity int) *RingBuffer {
	capacity = nextPowerOfTwo(capacity)
	metrics := metricz.New()
	metrics.Counter(RingPushTotal)
	metrics.Counter(RingPopTotal)
	metrics.Counter(RingOverflowTotal)
	metrics.Counter(RingStealTotal)
	metrics.Counter(RingStolenTotal)
	metrics.Gauge(RingOccupancyGauge)

	return &RingBuffer{
		mask:    uint32(capacity - 1),
		slots:   make([]atomic.Pointer[Node], capacity),
		metrics: metrics,
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (r *RingBuffer) capacity() uint32 { return r.mask + 1 }

// Push splices list into the ring starting at the current tail. If the
// ring would exceed capacity partway through, it ejects half of its
// current occupants to make room (overflow migration) and returns an
// *Overflow error carrying the combined ejected-plus-remaining-to-push
// list; the caller (Worker) is responsible for forwarding that list to the
// shared LockFreeQueue.
//
// Push is owner-only: calling it from more than one goroutine concurrently
// is a contract violation the type does not defend against, matching the
// spec's single-producer ownership model.
func (r *RingBuffer) Push(list List) error {
	n := list.Head()
	pushed := 0

	for n != nil {
		tail := r.tail.Load()
		head := r.head.Load()

		if tail-head >= r.capacity() {
			migrate := int(tail-head) / 2
			if migrate == 0 {
				migrate = 1
			}
			newHead := head + uint32(migrate)
			if !r.head.CompareAndSwap(head, newHead) {
				continue
			}

			ejected := r.collectRange(head, newHead)
			r.metrics.Counter(RingOverflowTotal).Add(float64(migrate))

			// The caller still holds `n` onward, not yet pushed anywhere;
			// it is prepended ahead of the migrated nodes, so the combined
			// list holds the unpushed remainder first, then the migrated
			// nodes in ring order.
			combined := List{head: n, tail: list.Tail()}
			combined.Append(ejected)
			return &Overflow{Ejected: combined}
		}

		next := n.next
		r.slots[tail&r.mask].Store(n)
		n.next = nil
		r.tail.Store(tail + 1)
		pushed++
		n = next
	}

	r.metrics.Counter(RingPushTotal).Add(float64(pushed))
	r.metrics.Gauge(RingOccupancyGauge).Set(float64(r.tail.Load() - r.head.Load()))
	return nil
}

// collectRange reads slots [from, to) in order and links them into a List.
// Called only right after winning the head CAS that reserves that range,
// so no other goroutine is writing to these slots concurrently.
func (r *RingBuffer) collectRange(from, to uint32) List {
	var list List
	for i := from; i != to; i++ {
		n := r.slots[i&r.mask].Load()
		list.Append(NodeFrom(n))
	}
	return list
}

// Pop removes and returns the oldest node still resident in the ring (the
// one at head), on the owner's side. Returns ErrEmpty if the ring is empty. Pop races
// with Steal on head via CAS, not with Push, since only the owner writes
// tail.
func (r *RingBuffer) Pop() (*Node, error) {
	for {
		head := r.head.Load()
		tail := r.tail.Load()
		if tail-head == 0 {
			return nil, ErrEmpty
		}
		if !r.head.CompareAndSwap(head, head+1) {
			continue
		}
		n := r.slots[head&r.mask].Load()
		r.metrics.Counter(RingPopTotal).Inc()
		r.metrics.Gauge(RingOccupancyGauge).Set(float64(r.tail.Load() - (head + 1)))
		return n, nil
	}
}

// Steal takes roughly half of target's occupants (rounded up, at least one)
// and appends them to r's own tail, returning the last one directly to the
// caller and reporting whether any were retained in r's buffer. The
// caller's ring (r) is expected to be empty before calling Steal — stealing
// into a non-empty ring is not supported.
func (r *RingBuffer) Steal(target *RingBuffer) (node *Node, pushedToBuffer bool, err error) {
	target.metrics.Counter(RingStealTotal).Inc()

	for {
		head := target.head.Load()
		tail := target.tail.Load()
		size := tail - head
		if size == 0 {
			return nil, false, ErrEmpty
		}
		if size > target.capacity() {
			continue // racy overread of a wrapped/in-flight region; retry
		}

		stealCount := size - size/2
		if stealCount == 0 {
			stealCount = 1
		}

		nodes := make([]*Node, 0, stealCount)
		for i := uint32(0); i < stealCount; i++ {
			nodes = append(nodes, target.slots[(head+i)&target.mask].Load())
		}

		if !target.head.CompareAndSwap(head, head+stealCount) {
			continue
		}

		ourTail := r.tail.Load()
		for i, n := range nodes {
			if uint32(i) == stealCount-1 {
				break // last one returned directly, never resident in r
			}
			n.next = nil
			r.slots[(ourTail+uint32(i))&r.mask].Store(n)
		}
		if stealCount > 1 {
			r.tail.Store(ourTail + stealCount - 1)
			pushedToBuffer = true
		}

		target.metrics.Counter(RingStolenTotal).Add(float64(stealCount))
		return nodes[stealCount-1], pushedToBuffer, nil
	}
}

// Consume refills r from the shared queue when r is empty: it acquires a
// Consumer session on queue and pops up to r's capacity in total: the first
// node is returned directly for the caller to run without a further pop,
// and up to capacity-1 more are pushed into r's tail. Returns ErrEmpty if the queue had nothing pending.
func (r *RingBuffer) Consume(queue *LockFreeQueue) (*Node, error) {
	c, err := queue.Acquire()
	if err != nil {
		return nil, err
	}
	defer c.Release()

	first, err := c.Pop()
	if err != nil {
		return nil, err
	}

	list := c.PopAll(int(r.capacity()) - 1)
	if !list.IsEmpty() {
		_ = r.Push(list) // r is empty by contract; this cannot overflow
	}
	return first, nil
}

// Occupancy returns the approximate number of nodes currently resident.
func (r *RingBuffer) Occupancy() int {
	return int(r.tail.Load() - r.head.Load())
}

// Metrics returns the ring's diagnostic registry.
func (r *RingBuffer) Metrics() *metricz.Registry { return r.metrics }
