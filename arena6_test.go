package mtrie

import (
	"errors"
	"testing"
)

func TestArena6AllocExhaustion(t *testing.T) {
	a := NewArena6[string](nil)

	got := make([]*node6[string], 0, numNodes6)
	for i := 0; i < numNodes6; i++ {
		n, err := a.alloc6()
		if err != nil {
			t.Fatalf("alloc6 failed before exhaustion at %d: %v", i, err)
		}
		got = append(got, n)
	}

	if _, err := a.alloc6(); !errors.Is(err, ErrArenaExhausted) {
		t.Fatalf("expected ErrArenaExhausted, got %v", err)
	}

	a.free6(got[len(got)-1])
	if _, err := a.alloc6(); err != nil {
		t.Fatalf("alloc6 after a free should succeed, got %v", err)
	}
}

func TestArena6FreeInNonLIFOOrder(t *testing.T) {
	a := NewArena6[int](nil)

	n1, _ := a.alloc6()
	n2, _ := a.alloc6()
	n3, _ := a.alloc6()

	// Freeing in an order other than the reverse of allocation must still
	// return every freed node to the pool.
	a.free6(n2)
	a.free6(n1)
	a.free6(n3)

	seen := map[int]bool{}
	for i := 0; i < 3; i++ {
		n, err := a.alloc6()
		if err != nil {
			t.Fatalf("alloc6: %v", err)
		}
		seen[n.idx] = true
	}
	for _, n := range []*node6[int]{n1, n2, n3} {
		if !seen[n.idx] {
			t.Fatalf("idx %d was not returned by subsequent allocs", n.idx)
		}
	}
}
