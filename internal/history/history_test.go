package history

import (
	"fmt"
	"testing"
)

func TestPushWithinCapacity(t *testing.T) {
	s := New[int](5)
	s.Push(1)
	s.Push(2)
	s.Push(3)

	got := s.Items()
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("Len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Items()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestEvictionKeepsMostRecent(t *testing.T) {
	// Pushing n > capacity items must leave exactly the most recent
	// `capacity` items, in insertion order.
	for _, capacity := range []int{1, 3, 10} {
		t.Run(fmt.Sprintf("capacity_%d", capacity), func(t *testing.T) {
			s := New[int](capacity)
			n := capacity*2 + 3
			for i := 0; i < n; i++ {
				s.Push(i)
			}
			if s.Len() != capacity {
				t.Fatalf("Len = %d, want %d", s.Len(), capacity)
			}
			items := s.Items()
			for i, v := range items {
				want := n - capacity + i
				if v != want {
					t.Errorf("Items()[%d] = %d, want %d", i, v, want)
				}
			}
		})
	}
}

func TestConversationPairsEviction(t *testing.T) {
	// Six user/assistant exchanges (12 messages) into a capacity-10 store
	// leaves the last 10 messages; the oldest exchange is gone.
	type msg struct {
		role    string
		content string
	}
	s := New[msg](10)
	for i := 0; i < 6; i++ {
		s.Push(msg{"user", fmt.Sprintf("prompt %d", i)})
		s.Push(msg{"assistant", fmt.Sprintf("reply %d", i)})
	}

	items := s.Items()
	if len(items) != 10 {
		t.Fatalf("Len = %d, want 10", len(items))
	}
	if items[0].content != "prompt 1" {
		t.Errorf("oldest retained = %q, want %q", items[0].content, "prompt 1")
	}
	if items[9].content != "reply 5" {
		t.Errorf("newest retained = %q, want %q", items[9].content, "reply 5")
	}
}

func TestNewestFirstOrder(t *testing.T) {
	s := NewestFirst[string](3)
	s.Push("a")
	s.Push("b")
	s.Push("c")
	s.Push("d")

	items := s.Items()
	want := []string{"d", "c", "b"}
	if len(items) != len(want) {
		t.Fatalf("Len = %d, want %d", len(items), len(want))
	}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("Items()[%d] = %q, want %q", i, items[i], want[i])
		}
	}
}

func TestClear(t *testing.T) {
	s := New[int](4)
	s.Push(1)
	s.Push(2)
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", s.Len())
	}
	s.Push(7)
	if got := s.Items(); len(got) != 1 || got[0] != 7 {
		t.Errorf("Items after Clear+Push = %v, want [7]", got)
	}
}

func TestItemsIsSnapshot(t *testing.T) {
	s := New[int](4)
	s.Push(1)
	snap := s.Items()
	s.Push(2)
	if len(snap) != 1 {
		t.Errorf("snapshot mutated: len = %d, want 1", len(snap))
	}
}

func TestZeroCapacityClamped(t *testing.T) {
	s := New[int](0)
	s.Push(1)
	s.Push(2)
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1 (capacity clamped to 1)", s.Len())
	}
}
