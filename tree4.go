package mtrie

import "go.uber.org/zap"

// Tree4 is an IPv4 longest-prefix-match trie for one VRF, backed by a
// shared Arena4 and a shared ShadowTable. The zero value is not usable;
// construct with NewTree4.
//
// Tree4 takes no locks and issues no memory barriers: Insert and Remove
// update entries with ordinary stores, so a Search running at the same
// time as either of them is not synchronized with it and is a data race
// under the Go memory model.
type Tree4[V comparable] struct {
	vrf    uint16
	root   *largeNode4[V]
	arena  *Arena4[V]
	shadow *ShadowTable[V]
	log    *zap.Logger

	// defaultData/hasDefault hold the /0 route outside the stride trie
	// entirely. See DESIGN.md's resolution of spec §9's default-route
	// Open Question: folding /0 into the per-slot overwrite rule makes
	// it indistinguishable from a vacant slot once a more specific
	// prefix sharing the same root index is later removed, which would
	// silently drop the default route instead of falling back to it.
	// An explicit slot sidesteps the ambiguity entirely.
	defaultData V
	hasDefault  bool
}

// NewTree4 binds a fresh root node from arena for vrf.
func NewTree4[V comparable](arena *Arena4[V], shadow *ShadowTable[V], vrf uint16, log *zap.Logger) (*Tree4[V], error) {
	if log == nil {
		log = zap.NewNop()
	}
	root, err := arena.allocLarge()
	if err != nil {
		return nil, err
	}
	return &Tree4[V]{vrf: vrf, root: root, arena: arena, shadow: shadow, log: log}, nil
}

// VRF returns the tree's bound VRF id.
func (t *Tree4[V]) VRF() uint16 { return t.vrf }

// canonicalize4 zeros the bits below masklen in a network-order IPv4
// address, per spec §3's Prefix definition.
func canonicalize4(addrBE uint32, masklen uint8) uint32 {
	if masklen == 0 {
		return 0
	}
	return addrBE & (^uint32(0) << (ipv4Length - masklen))
}

// stride4 describes one level of descent: [low, high) bit boundary.
type stride4 struct{ low, high uint8 }

func strideSchedule4() []stride4 {
	return []stride4{
		{0, ipv4FirstLevel},
		{13, 17},
		{17, 21},
		{21, 25},
		{25, 29},
		{29, 32},
	}
}

// rangeAt computes the half-open entry index range [iLo, iHi) that a
// prefix of length masklen, at level [low, high), occupies within the
// current node (spec §4.3.1/§4.3.2).
func rangeAt(addr uint32, masklen, low, high uint8) (iLo, iHi uint32) {
	addrRight := addr >> (ipv4Length - masklen)
	shiftLeft := uint32(ipv4Length) - uint32(masklen) + uint32(low)
	shiftRight := uint32(low) + uint32(ipv4Length) - uint32(high)

	iLo = (addrRight << shiftLeft) >> shiftRight
	iHi = ((addrRight + 1) << shiftLeft) >> shiftRight
	if iHi == 0 {
		iHi = 1 << (high - low)
	}
	return
}

// descendIndex computes the single entry index used when a prefix
// extends beyond the current level.
func descendIndex(addr uint32, low, high uint8) uint32 {
	return (addr << low) >> (uint32(low) + ipv4Length - uint32(high))
}

// Insert adds (addr_be, masklen) -> data to the tree and records it in
// the shared shadow table. masklen == 0 is the default route and is
// stored outside the stride trie (see Tree4's doc comment).
func (t *Tree4[V]) Insert(addrBE uint32, masklen uint8, data V) error {
	if masklen == 0 {
		t.defaultData = data
		t.hasDefault = true
		return t.shadow.add(t.vrf, 0, 0, data)
	}

	addr := canonicalize4(addrBE, masklen)

	// A prefix that is already configured (a repeated insert, or the
	// survivor Remove re-inserts) already holds one reference on every
	// node along its path; only a new prefix adds another.
	isNew := t.shadow.find(t.vrf, addr, masklen) == -1

	entries := t.root.entries[:]
	ref := &t.root.ref

	for _, s := range strideSchedule4() {
		if isNew {
			incRef(ref)
		}

		if masklen <= s.high {
			iLo, iHi := rangeAt(addr, masklen, s.low, s.high)
			for i := iLo; i < iHi; i++ {
				e := &entries[i]
				if !e.hasData || e.termLen <= masklen {
					e.data = data
					e.termLen = masklen
					e.hasData = true
				}
			}
			break
		}

		idx := descendIndex(addr, s.low, s.high)
		e := &entries[idx]
		if e.next == nil {
			child, err := t.arena.allocSmall()
			if err != nil {
				return err
			}
			e.next = child
		}
		entries = e.next.entries[:]
		ref = &e.next.ref
	}

	return t.shadow.add(t.vrf, addr, masklen, data)
}

// incRef and decRef exist only to spell out `(*p)++`/`(*p)--` at call
// sites without the double-pointer-deref noise.
func incRef(ref *int) { *ref++ }

// decRef decrements *ref and returns whether it dropped to zero.
func decRef(ref *int) bool { *ref--; return *ref == 0 }

// Search returns the next-hop of the longest prefix in the tree that
// covers addrBE, or the zero value and false if none does.
func (t *Tree4[V]) Search(addrBE uint32) (V, bool) {
	addr := addrBE

	var best V
	var ok bool
	if t.hasDefault {
		best, ok = t.defaultData, true
	}

	entries := t.root.entries[:]

	for _, s := range strideSchedule4() {
		idx := descendIndex(addr, s.low, s.high)
		e := &entries[idx]

		if !e.hasData && e.next == nil {
			return best, ok
		}
		if e.hasData {
			best, ok = e.data, true
		}
		if e.next == nil {
			return best, ok
		}
		entries = e.next.entries[:]
	}

	return best, ok
}

// Remove deletes (addr_be, masklen) from the tree, resurrecting the best
// surviving less-specific prefix at the same trie level if one is
// configured. It returns the removed next-hop and true, or false if the
// prefix was never inserted (spec §7).
func (t *Tree4[V]) Remove(addrBE uint32, masklen uint8) (V, bool) {
	var zero V

	if masklen == 0 {
		if !t.hasDefault {
			return zero, false
		}
		old := t.defaultData
		t.hasDefault = false
		t.defaultData = zero
		t.shadow.remove(t.vrf, 0, 0)
		return old, true
	}

	addr := canonicalize4(addrBE, masklen)

	ri := t.shadow.find(t.vrf, addr, masklen)
	if ri == -1 {
		return zero, false
	}
	removedData := t.shadow.rules[ri].data

	// Clear the shadow rule before searching for a less-specific
	// survivor: find_prefix_match would otherwise happily nominate the
	// very rule being removed as its own replacement.
	t.shadow.remove(t.vrf, addr, masklen)

	entries := t.root.entries[:]
	ref := &t.root.ref
	var curSmall *smallNode4[V] // nil while current node is the root

	survivorIdx := -1

	for _, s := range strideSchedule4() {
		// Decrement the current node's reference count first, exactly
		// where the original does, and free it immediately if it just
		// became unreferenced (never the root). The node's entries
		// remain valid Go memory even once linked into the free list,
		// so reading them below this point is still safe.
		if decRef(ref) && curSmall != nil {
			t.arena.freeSmallNode(curSmall)
		}

		if masklen <= s.high {
			iLo, iHi := rangeAt(addr, masklen, s.low, s.high)
			for i := iLo; i < iHi; i++ {
				e := &entries[i]
				if e.hasData && e.termLen == masklen && e.data == removedData {
					e.hasData = false
				}
			}
			survivorIdx = t.shadow.findPrefixMatch(t.vrf, addr, masklen, s.low)
			break
		}

		idx := descendIndex(addr, s.low, s.high)
		e := &entries[idx]
		if e.next == nil {
			return zero, false
		}

		child := e.next
		if child.ref == 1 {
			// child is about to drop to zero references next
			// iteration: detach it now so the parent doesn't retain
			// the pointer once the child is recycled (spec §4.3.4
			// step 5). Whether e itself carries a route of its own is
			// irrelevant — that data lives in e.hasData/e.data, not in
			// e.next, and is untouched by clearing the child link.
			e.next = nil
		}

		entries = child.entries[:]
		ref = &child.ref
		curSmall = child
	}

	if survivorIdx != -1 {
		r := t.shadow.rules[survivorIdx]
		// Re-insert through the public path: this also re-records the
		// (already-surviving) shadow rule, a harmless overwrite.
		_ = t.Insert(r.addr, r.masklen, r.data)
	}

	return removedData, true
}
