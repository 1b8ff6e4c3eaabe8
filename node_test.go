package taskz

import "testing"

func TestNode(t *testing.T) {
	t.Run("Next On Fresh Node Is Nil", func(t *testing.T) {
		n := &Node{}
		if n.Next() != nil {
			t.Error("expected nil Next on a fresh node")
		}
	})

	t.Run("NodeFrom Produces Singleton List", func(t *testing.T) {
		n := &Node{}
		l := NodeFrom(n)
		if l.Head() != n || l.Tail() != n {
			t.Error("expected singleton list head == tail == n")
		}
		if l.IsEmpty() {
			t.Error("expected non-empty list")
		}
		if l.Count() != 1 {
			t.Errorf("expected count 1, got %d", l.Count())
		}
	})
}

func TestList(t *testing.T) {
	t.Run("Empty List", func(t *testing.T) {
		var l List
		if !l.IsEmpty() {
			t.Error("expected zero-value list to be empty")
		}
		if l.Head() != nil || l.Tail() != nil {
			t.Error("expected nil head/tail on empty list")
		}
		if l.Count() != 0 {
			t.Errorf("expected count 0, got %d", l.Count())
		}
	})

	t.Run("Append Onto Empty List", func(t *testing.T) {
		var l List
		other := NodeFrom(&Node{})
		l.Append(other)
		if l.Head() != other.Head() || l.Tail() != other.Tail() {
			t.Error("expected l to become other")
		}
	})

	t.Run("Append Empty Other Is No-op", func(t *testing.T) {
		n := &Node{}
		l := NodeFrom(n)
		l.Append(List{})
		if l.Head() != n || l.Tail() != n {
			t.Error("expected l unchanged after appending an empty list")
		}
	})

	t.Run("Append Splices Tail To Head", func(t *testing.T) {
		a, b, c := &Node{}, &Node{}, &Node{}
		l := NodeFrom(a)
		l.Append(NodeFrom(b))
		l.Append(NodeFrom(c))

		if l.Count() != 3 {
			t.Fatalf("expected count 3, got %d", l.Count())
		}
		if l.Head() != a || l.Tail() != c {
			t.Error("expected head a, tail c")
		}
		if a.Next() != b || b.Next() != c {
			t.Error("expected a -> b -> c link order")
		}
	})

	t.Run("Prepend Onto Empty List", func(t *testing.T) {
		var l List
		other := NodeFrom(&Node{})
		l.Prepend(other)
		if l.Head() != other.Head() {
			t.Error("expected l to become other")
		}
	})

	t.Run("Prepend Splices Other Ahead Of Head", func(t *testing.T) {
		a, b := &Node{}, &Node{}
		l := NodeFrom(b)
		l.Prepend(NodeFrom(a))

		if l.Head() != a || l.Tail() != b {
			t.Error("expected head a, tail b")
		}
		if a.Next() != b {
			t.Error("expected a -> b link order")
		}
	})

	t.Run("SplitAfter Tail Returns Not Ok", func(t *testing.T) {
		n := &Node{}
		l := NodeFrom(n)
		_, ok := l.SplitAfter(n)
		if ok {
			t.Error("expected SplitAfter on the tail to report ok == false")
		}
	})

	t.Run("SplitAfter Middle Detaches Remainder", func(t *testing.T) {
		a, b, c := &Node{}, &Node{}, &Node{}
		l := NodeFrom(a)
		l.Append(NodeFrom(b))
		l.Append(NodeFrom(c))

		rest, ok := l.SplitAfter(a)
		if !ok {
			t.Fatal("expected ok == true")
		}
		if l.Head() != a || l.Tail() != a {
			t.Error("expected l to be reduced to just a")
		}
		if rest.Head() != b || rest.Tail() != c {
			t.Error("expected rest to be b -> c")
		}
		if a.Next() != nil {
			t.Error("expected a's next severed after split")
		}
	})
}
