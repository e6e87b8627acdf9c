package mtrie

import (
	"github.com/bits-and-blooms/bitset"
	"go.uber.org/zap"
)

const numNodes6 = 65536

// node6 is one level of the IPv6 binary trie: one bit consumed per
// level, descending right on a set bit. While on the free list, left
// and right are overloaded to thread the doubly-linked list (spec
// §4.1): left points at the previous free node (or nil), right at the
// next.
type node6[V comparable] struct {
	idx   int
	left  *node6[V]
	right *node6[V]

	hasData bool
	data    V
}

// Arena6 is the pre-reserved pool of IPv6 trie nodes. The free list is
// doubly linked (left back-pointers are maintained alongside right), but
// alloc6 and free6 both work only at its head, in O(1); no operation
// removes a node from the middle of the list.
type Arena6[V comparable] struct {
	pool []node6[V]
	free *node6[V]

	nodesAllocated    int
	maxNodesAllocated int

	live *bitset.BitSet

	log *zap.Logger
}

// NewArena6 builds the IPv6 node pool's free list.
func NewArena6[V comparable](log *zap.Logger) *Arena6[V] {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Arena6[V]{
		pool: make([]node6[V], numNodes6),
		live: bitset.New(numNodes6),
		log:  log,
	}
	for i := range a.pool {
		a.pool[i].idx = i
		if i > 0 {
			a.pool[i].left = &a.pool[i-1]
		}
		if i < numNodes6-1 {
			a.pool[i].right = &a.pool[i+1]
		}
	}
	a.free = &a.pool[0]
	return a
}

// alloc6 pops a zeroed node off the free list in O(1).
func (a *Arena6[V]) alloc6() (*node6[V], error) {
	if a.free == nil {
		a.log.Warn("ipv6 node arena exhausted", zap.Int("capacity", numNodes6))
		return nil, ErrArenaExhausted
	}

	n := a.free
	a.free = n.right
	if a.free != nil {
		a.free.left = nil
	}

	idx := n.idx
	*n = node6[V]{idx: idx}

	a.nodesAllocated++
	if a.nodesAllocated > a.maxNodesAllocated {
		a.maxNodesAllocated = a.nodesAllocated
	}
	a.live.Set(uint(idx))

	return n, nil
}

// free6 pushes n onto the free list head, overwriting its left and right
// fields. It does not unlink n from a parent or from the free list; it
// is only ever called with a node that is not reachable from any tree
// anymore and is not already free.
func (a *Arena6[V]) free6(n *node6[V]) {
	n.left = nil
	n.right = a.free
	if a.free != nil {
		a.free.left = n
	}
	a.free = n
	a.nodesAllocated--
	a.live.Clear(uint(n.idx))
}

// Stats reports current and peak live-node counts against capacity.
// live is read from the occupancy bitmap rather than the allocation
// counter; the two are cross-checked so the counter can't silently
// drift from what's actually marked live.
func (a *Arena6[V]) Stats() (live, peak, capacity int) {
	live = int(a.live.Count())
	if live != a.nodesAllocated {
		a.log.Error("ipv6 node live bitmap disagrees with counter",
			zap.Int("bitmap", live), zap.Int("counter", a.nodesAllocated))
	}
	return live, a.maxNodesAllocated, numNodes6
}
