package taskz

// Node is an embeddable single-link node. It carries no payload of its own
// — callers embed Node in the type they want to chain (a Task wrapper, a
// pooled buffer, ...) and cast back via their own bookkeeping. This keeps
// list operations allocation-free: the link pointers live inside the
// element, not in a separate list cell.
//
// Node's only field is a pointer, so any *Node is naturally word-aligned
// (≥8 bytes on every platform this module targets) — well past the
// alignment ≥ 4 that LockFreeQueue requires to pack flag bits into the low
// bits of a tagged pointer word.
type Node struct {
	next *Node
}

// Next returns the node following this one, or nil at the tail.
func (n *Node) Next() *Node { return n.next }

// List is an intrusive singly-linked list over Nodes. head and tail are
// both nil for an empty list and both non-nil otherwise; a single-element
// list has head == tail.
type List struct {
	head, tail *Node
}

// NodeFrom resets n's link and returns the singleton list containing it.
func NodeFrom(n *Node) List {
	n.next = nil
	return List{head: n, tail: n}
}

// IsEmpty reports whether the list has no elements.
func (l List) IsEmpty() bool { return l.head == nil }

// Head returns the first node, or nil if the list is empty.
func (l List) Head() *Node { return l.head }

// Tail returns the last node, or nil if the list is empty.
func (l List) Tail() *Node { return l.tail }

// Append splices other onto the end of l: l's tail becomes other's tail.
// If l is empty, l becomes other. If other is empty, l is unchanged.
func (l *List) Append(other List) {
	if other.head == nil {
		return
	}
	if l.head == nil {
		*l = other
		return
	}
	l.tail.next = other.head
	l.tail = other.tail
}

// Prepend splices other onto the front of l: l's head becomes other's
// head. If l is empty, l becomes other. If other is empty, l is unchanged.
func (l *List) Prepend(other List) {
	if other.head == nil {
		return
	}
	if l.head == nil {
		*l = other
		return
	}
	other.tail.next = l.head
	l.head = other.head
}

// SplitAfter detaches everything after s from l and returns it as a new
// list; l is left holding only its elements up to and including s. Returns
// ok == false (and an unspecified List) if s is l's tail, i.e. there is
// nothing after it to split off.
//
// s must be an element of l; passing a foreign node produces undefined
// results, matching the spec's zero-allocation, no-bounds-checking
// contract for this structure.
func (l *List) SplitAfter(s *Node) (rest List, ok bool) {
	if s.next == nil {
		return List{}, false
	}
	rest = List{head: s.next, tail: l.tail}
	l.tail = s
	s.next = nil
	return rest, true
}

// Count walks the list from head to tail and returns the number of
// elements. O(n); diagnostic use only (tests, metrics), never on a
// scheduling hot path.
func (l List) Count() int {
	n := 0
	for cur := l.head; cur != nil; cur = cur.next {
		n++
		if cur == l.tail {
			break
		}
	}
	return n
}
