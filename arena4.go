package mtrie

import (
	"github.com/bits-and-blooms/bitset"
	"go.uber.org/zap"
)

// IPv4 stride schedule (spec §3): level boundaries low..high advance
// 0 -> 13 -> 17 -> 21 -> 25 -> 29 -> 32.
const (
	ipv4Length     = 32
	ipv4FirstLevel = 13 // root stride
	ipv4Level      = 4  // interior/terminal stride

	numSmallNodes4 = 1024
	numLargeNodes4 = 128

	smallNodeSize4 = 1 << ipv4Level      // 16
	largeNodeSize4 = 1 << ipv4FirstLevel // 8192
)

// entry4 is one slot of an IPv4 node. hasData/termLen carry the terminal
// next-hop for a prefix ending exactly here; next descends to the child
// node for longer prefixes. Both may be populated at once (spec
// Invariant (IPv4)): a /8 can terminate at a slot through which a /20
// also continues.
type entry4[V comparable] struct {
	hasData bool
	termLen uint8
	data    V
	next    *smallNode4[V]
}

func (e *entry4[V]) vacant() bool { return !e.hasData && e.next == nil }

// smallNode4 is a 16-entry interior or terminal-level IPv4 node.
type smallNode4[V comparable] struct {
	idx      int // fixed position in the pool, for the live bitmap
	ref      int
	entries  [smallNodeSize4]entry4[V]
	freeNext *smallNode4[V]
}

// largeNode4 is the 8192-entry root node. Exactly one is bound per tree
// and it is never returned to a free list.
type largeNode4[V comparable] struct {
	ref     int
	entries [largeNodeSize4]entry4[V]
}

// Arena4 is the pre-reserved pool of IPv4 trie nodes backing every
// Tree4[V] sharing it. It never grows past its initial capacity and
// never allocates from the Go heap after NewArena4 returns.
type Arena4[V comparable] struct {
	small []smallNode4[V]
	large []largeNode4[V]

	freeSmall   *smallNode4[V]
	freeLargeAt int // index of next unused large node; large nodes are never recycled

	nodesAllocated    int
	maxNodesAllocated int

	// live tracks which small-node pool slots are currently handed out,
	// for Stats and for debug validation; the intrusive free list above
	// remains the actual allocation path (spec §4.1).
	live *bitset.BitSet

	log *zap.Logger
}

// NewArena4 builds the free lists for the small- and large-node pools.
func NewArena4[V comparable](log *zap.Logger) *Arena4[V] {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Arena4[V]{
		small: make([]smallNode4[V], numSmallNodes4),
		large: make([]largeNode4[V], numLargeNodes4),
		live:  bitset.New(numSmallNodes4),
		log:   log,
	}
	for i := range a.small {
		a.small[i].idx = i
		if i < numSmallNodes4-1 {
			a.small[i].freeNext = &a.small[i+1]
		}
	}
	a.freeSmall = &a.small[0]
	return a
}

// allocSmall pops a zeroed small node off the free list.
func (a *Arena4[V]) allocSmall() (*smallNode4[V], error) {
	if a.freeSmall == nil {
		a.log.Warn("ipv4 small-node arena exhausted", zap.Int("capacity", numSmallNodes4))
		return nil, ErrArenaExhausted
	}

	n := a.freeSmall
	a.freeSmall = n.freeNext

	idx := n.idx
	*n = smallNode4[V]{idx: idx}

	a.nodesAllocated++
	if a.nodesAllocated > a.maxNodesAllocated {
		a.maxNodesAllocated = a.nodesAllocated
	}
	a.live.Set(uint(idx))

	return n, nil
}

// freeSmallNode returns a small node to the free list. Callers must only
// call this once a node's ref count has reached zero.
func (a *Arena4[V]) freeSmallNode(n *smallNode4[V]) {
	n.freeNext = a.freeSmall
	a.freeSmall = n
	a.nodesAllocated--
	a.live.Clear(uint(n.idx))
}

// allocLarge hands out the next unused large (root) node. There is no
// free list for large nodes: they live for the lifetime of the tree
// that bound them (spec §4.1).
func (a *Arena4[V]) allocLarge() (*largeNode4[V], error) {
	if a.freeLargeAt >= len(a.large) {
		a.log.Warn("ipv4 large-node arena exhausted", zap.Int("capacity", numLargeNodes4))
		return nil, ErrArenaExhausted
	}
	n := &a.large[a.freeLargeAt]
	a.freeLargeAt++
	*n = largeNode4[V]{}
	return n, nil
}

// Stats reports current and peak small-node counts against capacity.
// live is read from the occupancy bitmap rather than the allocation
// counter; the two are cross-checked so the counter can't silently
// drift from what's actually marked live.
func (a *Arena4[V]) Stats() (live, peak, capacity int) {
	live = int(a.live.Count())
	if live != a.nodesAllocated {
		a.log.Error("ipv4 small-node live bitmap disagrees with counter",
			zap.Int("bitmap", live), zap.Int("counter", a.nodesAllocated))
	}
	return live, a.maxNodesAllocated, numSmallNodes4
}

// LargeStats reports large (root) node usage against capacity. Large
// nodes are never recycled, so live == peak always.
func (a *Arena4[V]) LargeStats() (live, peak, capacity int) {
	return a.freeLargeAt, a.freeLargeAt, numLargeNodes4
}
