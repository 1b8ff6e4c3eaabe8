package taskz

import (
	"sync/atomic"
	"unsafe"

	"github.com/zoobzio/metricz"
)

// Observability constants for LockFreeQueue.
const (
	QueuePushTotal      = metricz.Key("queue.push.total")
	QueuePopTotal       = metricz.Key("queue.pop.total")
	QueueContendedTotal = metricz.Key("queue.contended.total")
	QueueAcquireTotal   = metricz.Key("queue.acquire.total")
	QueueDepthCurrent   = metricz.Key("queue.depth.current")
)

// Bits packed into the low end of the head word. Node's only field is a
// pointer, so any *Node is at least pointer-aligned (≥4 bytes on every
// platform this module targets), leaving these two bits free.
const (
	tagHasCache    = uintptr(1) << 0
	tagIsConsuming = uintptr(1) << 1
	tagMask        = tagHasCache | tagIsConsuming
)

func wordOf(n *Node, flags uintptr) uintptr {
	return uintptr(unsafe.Pointer(n)) | (flags & tagMask)
}

func ptrOf(w uintptr) *Node {
	return (*Node)(unsafe.Pointer(w &^ tagMask))
}

func flagsOf(w uintptr) uintptr {
	return w & tagMask
}

// LockFreeQueue is a multi-producer/multi-consumer intrusive LIFO stack
// whose entire state — top-of-stack pointer, HAS_CACHE bit, IS_CONSUMING
// bit — lives in one atomic word, so push and the consumer handshake are
// each a single CAS loop.
//
// Push is unrestricted: any number of producers may call it concurrently.
// Popping is serialized through a single active Consumer at a time — see
// Acquire — so that a consumer can drain several nodes via private,
// non-atomic pointer-chasing between the atomic swaps that refill it from
// the shared chain.
type LockFreeQueue struct {
	head atomic.Uintptr

	// cache holds whatever a consumer had left over, unconsumed, when it
	// released. It is valid to read only while HAS_CACHE is set, and is
	// written only by the currently active consumer, so it needs no
	// synchronization of its own beyond the head word's CAS.
	cache *Node

	metrics *metricz.Registry
}

// NewLockFreeQueue constructs an empty LockFreeQueue.
func NewLockFreeQueue() *LockFreeQueue {
	metrics := metricz.New()
	metrics.Counter(QueuePushTotal)
	metrics.Counter(QueuePopTotal)
	metrics.Counter(QueueContendedTotal)
	metrics.Counter(QueueAcquireTotal)
	metrics.Gauge(QueueDepthCurrent)
	return &LockFreeQueue{metrics: metrics}
}

// Push atomically prepends list onto the stack. Safe from any number of
// concurrent producers and concurrent with an active Consumer.
func (q *LockFreeQueue) Push(list List) {
	if list.IsEmpty() {
		return
	}
	head, tail, n := list.Head(), list.Tail(), list.Count()

	for {
		old := q.head.Load()
		tail.next = ptrOf(old)
		newWord := wordOf(head, flagsOf(old))
		if q.head.CompareAndSwap(old, newWord) {
			q.metrics.Counter(QueuePushTotal).Add(float64(n))
			q.metrics.Gauge(QueueDepthCurrent).Set(float64(q.approximateDepth()))
			return
		}
	}
}

// tryAcquireConsumer claims IS_CONSUMING and returns the chain the new
// consumer should start popping from: the previous consumer's leftover
// cache if HAS_CACHE was set, otherwise the entire current stack (whose
// pointer field the new head word then clears, since the consumer now
// privately owns that chain).
func (q *LockFreeQueue) tryAcquireConsumer() (*Node, error) {
	for {
		old := q.head.Load()
		flags := flagsOf(old)
		if flags&tagIsConsuming != 0 {
			q.metrics.Counter(QueueContendedTotal).Inc()
			return nil, ErrContended
		}

		hasCache := flags&tagHasCache != 0
		top := ptrOf(old)
		if !hasCache && top == nil {
			return nil, ErrEmpty
		}

		var newWord uintptr
		if hasCache {
			newWord = wordOf(top, tagHasCache|tagIsConsuming)
		} else {
			newWord = wordOf(nil, tagIsConsuming)
		}

		if q.head.CompareAndSwap(old, newWord) {
			q.metrics.Counter(QueueAcquireTotal).Inc()
			if hasCache {
				return q.cache, nil
			}
			return top, nil
		}
	}
}

// approximateDepth walks the visible chain for a diagnostic gauge. Racy
// under concurrent mutation by design — never consulted for correctness.
func (q *LockFreeQueue) approximateDepth() int {
	n := ptrOf(q.head.Load())
	count := 0
	for n != nil {
		count++
		n = n.next
	}
	return count
}

// Metrics returns the queue's diagnostic registry.
func (q *LockFreeQueue) Metrics() *metricz.Registry { return q.metrics }

// Consumer is one active pop session obtained from LockFreeQueue.Acquire.
// Only one Consumer may exist per queue at a time; Acquire enforces this
// via the IS_CONSUMING bit.
type Consumer struct {
	q     *LockFreeQueue
	local *Node
}

// Acquire claims the single-consumer slot. Returns ErrContended if another
// consumer already holds it, ErrEmpty if the queue has nothing pending.
func (q *LockFreeQueue) Acquire() (*Consumer, error) {
	local, err := q.tryAcquireConsumer()
	if err != nil {
		return nil, err
	}
	return &Consumer{q: q, local: local}, nil
}

// Pop returns the next node from the consumer's private chain, refilling
// it from the shared head word (via one atomic swap) when it runs dry.
// Returns ErrEmpty once both the private chain and the shared stack are
// exhausted.
func (c *Consumer) Pop() (*Node, error) {
	if c.local != nil {
		n := c.local
		c.local = n.next
		c.q.metrics.Counter(QueuePopTotal).Inc()
		return n, nil
	}

	for {
		old := c.q.head.Load()
		newWord := wordOf(nil, tagHasCache|tagIsConsuming)
		if c.q.head.CompareAndSwap(old, newWord) {
			top := ptrOf(old)
			if top == nil {
				return nil, ErrEmpty
			}
			c.local = top.next
			c.q.metrics.Counter(QueuePopTotal).Inc()
			return top, nil
		}
	}
}

// PopAll drains every node the consumer can currently reach — its private
// chain plus whatever refills the shared stack offers — up to max nodes (0
// means unbounded), returning them as a List. Used by RingBuffer.Consume to
// refill a worker's local ring in one call.
func (c *Consumer) PopAll(max int) List {
	var list List
	taken := 0
	for max <= 0 || taken < max {
		n, err := c.Pop()
		if err != nil {
			break
		}
		list.Append(NodeFrom(n))
		taken++
	}
	return list
}

// Release hands back the consumer slot. Any nodes left in the consumer's
// private chain are stashed in the queue's cache for the next Acquire to
// pick up, rather than requiring the caller to push them back (which would
// reorder them behind anything pushed during this session).
func (c *Consumer) Release() {
	c.q.cache = c.local
	for {
		old := c.q.head.Load()
		flags := flagsOf(old) &^ tagIsConsuming
		if c.local != nil {
			flags |= tagHasCache
		} else {
			flags &^= tagHasCache
		}
		newWord := wordOf(ptrOf(old), flags)
		if c.q.head.CompareAndSwap(old, newWord) {
			return
		}
	}
}

// Pop is the acquire-pop-release convenience path for a caller that only
// wants a single node and doesn't want to manage a Consumer session.
func (q *LockFreeQueue) Pop() (*Node, error) {
	c, err := q.Acquire()
	if err != nil {
		return nil, err
	}
	n, popErr := c.Pop()
	c.Release()
	return n, popErr
}
