package mtrie

import "go.uber.org/zap"

// ipv6MaxDepth is the deepest trie level: one level per address bit.
// (node6 marks valid data with a plain bool, hasData, rather than a
// flags bit.)
const ipv6MaxDepth = 128

// Tree6 is an IPv6 longest-prefix-match trie: one bit consumed per
// level, descending right on a set bit (spec §4.4). Unlike Tree4 it has
// no VRF or shadow table: IPv6 routes are not shadow-recorded (spec §3
// scopes the shadow rule table to IPv4).
type Tree6[V comparable] struct {
	root  *node6[V]
	arena *Arena6[V]
	log   *zap.Logger
}

// NewTree6 allocates the tree's root node from arena.
func NewTree6[V comparable](arena *Arena6[V], log *zap.Logger) (*Tree6[V], error) {
	if log == nil {
		log = zap.NewNop()
	}
	root, err := arena.alloc6()
	if err != nil {
		return nil, err
	}
	return &Tree6[V]{root: root, arena: arena, log: log}, nil
}

// Insert adds addr/masklen -> data. If a node already exists at depth
// masklen on addr's path, Insert stores nothing and returns that node's
// data unchanged with existed=true (spec §4.4.2: insert never
// overwrites); this holds even for a data-less intermediate node, for
// which the zero value is returned and data is not recorded. A brand new
// insert returns the zero value and existed=false.
func (t *Tree6[V]) Insert(addr [16]byte, masklen uint8, data V) (existing V, existed bool, err error) {
	var zero V

	depth := 0
	node := t.root
	var last *node6[V]
	for depth < int(masklen) && node != nil {
		last = node
		if bitSet6(addr, depth) {
			node = node.right
		} else {
			node = node.left
		}
		depth++
	}

	if node != nil {
		return node.data, true, nil
	}

	terminal, err := t.arena.alloc6()
	if err != nil {
		return zero, false, err
	}
	terminal.hasData = true
	terminal.data = data

	allocated := []*node6[V]{terminal}
	cur := terminal
	bit := int(masklen) - 1

	for depth < int(masklen) {
		tmp, err := t.arena.alloc6()
		if err != nil {
			for _, n := range allocated {
				t.arena.free6(n)
			}
			return zero, false, err
		}
		if bitSet6(addr, bit) {
			tmp.right = cur
		} else {
			tmp.left = cur
		}
		allocated = append(allocated, tmp)
		cur = tmp
		bit--
		depth++
	}

	if bitSet6(addr, bit) {
		last.right = cur
	} else {
		last.left = cur
	}

	return zero, false, nil
}

// Search returns the next-hop of the longest prefix covering addr, or
// the zero value and false if none does (spec §4.4.3's "dedicated
// lookup" design, since search is not otherwise exposed by insert's
// descent alone).
func (t *Tree6[V]) Search(addr [16]byte) (V, bool) {
	var best V
	var ok bool

	node := t.root
	for depth := 0; ; depth++ {
		if node.hasData {
			best, ok = node.data, true
		}
		if depth >= ipv6MaxDepth {
			return best, ok
		}

		var next *node6[V]
		if bitSet6(addr, depth) {
			next = node.right
		} else {
			next = node.left
		}
		if next == nil {
			return best, ok
		}
		node = next
	}
}

// Remove deletes addr/masklen, returning its data and true, or false if
// the prefix was never inserted. Freeing cascades up through ancestors
// left with no other child and no data of their own (spec §4.4.4).
func (t *Tree6[V]) Remove(addr [16]byte, masklen uint8) (V, bool) {
	var stack [ipv6MaxDepth + 1]*node6[V]

	depth := 0
	node := t.root
	for depth < int(masklen) && node != nil {
		stack[depth] = node
		if bitSet6(addr, depth) {
			node = node.right
		} else {
			node = node.left
		}
		depth++
	}

	var zero V
	if node == nil || !node.hasData {
		return zero, false
	}

	data := node.data
	node.hasData = false
	node.data = zero

	if node.left != nil || node.right != nil {
		return data, true
	}
	if depth == 0 {
		return data, true
	}

	t.arena.free6(node)

	bit := int(masklen) - 1
	depth--

	for {
		parent := stack[depth]
		if bitSet6(addr, bit) {
			parent.right = nil
			if parent.left != nil || parent.hasData {
				break
			}
		} else {
			parent.left = nil
			if parent.right != nil || parent.hasData {
				break
			}
		}

		if depth == 0 {
			break
		}

		t.arena.free6(parent)
		depth--
		bit--
	}

	return data, true
}

// Ipv6Sink receives one trie node's (key, depth, data) during Traverse.
type Ipv6Sink[V comparable] func(key [16]byte, depth int, data V)

// Traverse walks the trie in pre-order (self, then left, then right),
// emitting every node carrying data (spec §4.4.5).
func (t *Tree6[V]) Traverse(sink Ipv6Sink[V]) {
	const visitedLeft = 1
	const visitedRight = 2

	var key [16]byte
	var visited [ipv6MaxDepth + 1]byte
	var stack [ipv6MaxDepth + 1]*node6[V]

	node := t.root
	depth := 0

	for {
		if node.hasData && visited[depth] == 0 {
			sink(key, depth, node.data)
		}

		stack[depth] = node

		switch {
		case node.left != nil && visited[depth]&visitedLeft == 0:
			node = node.left
			setBit6(&key, depth, false)
			visited[depth] |= visitedLeft
			depth++
		case node.right != nil && visited[depth]&visitedRight == 0:
			node = node.right
			setBit6(&key, depth, true)
			visited[depth] |= visitedRight
			depth++
		default:
			visited[depth] = 0
			if depth < ipv6MaxDepth {
				setBit6(&key, depth, false)
			}
			depth--
			if depth < 0 {
				return
			}
			node = stack[depth]
		}
	}
}
