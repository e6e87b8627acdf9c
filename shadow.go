package mtrie

import (
	"github.com/bits-and-blooms/bitset"
	"go.uber.org/zap"
)

// ruleTableSize is ROUTE_LIST_SIZE in the original implementation: the
// fixed capacity of configured IPv4 prefixes across all VRFs.
const ruleTableSize = 65536

// rule4 is one configured IPv4 prefix, the unit of record in the shadow
// table. It is the authoritative source of truth for "which prefixes
// are currently configured" (spec Invariant (Shadow)); the trie itself
// only encodes how search resolves them.
type rule4[V comparable] struct {
	used    bool
	vrf     uint16
	addr    uint32 // host order, canonicalized to masklen
	masklen uint8
	data    V
}

// ShadowTable is the flat, authoritative list of every inserted IPv4
// prefix (spec C2). A linear scan over `used` slots is intentional: the
// table encodes policy, not a fast path. The bitset index below only
// accelerates the "first free slot" search that rule_add performs; it
// changes nothing a caller can observe.
type ShadowTable[V comparable] struct {
	rules []rule4[V]
	used  *bitset.BitSet // 1 bit per slot, mirrors rules[i].used

	log *zap.Logger
}

// NewShadowTable allocates the fixed-size rule array.
func NewShadowTable[V comparable](log *zap.Logger) *ShadowTable[V] {
	if log == nil {
		log = zap.NewNop()
	}
	return &ShadowTable[V]{
		rules: make([]rule4[V], ruleTableSize),
		used:  bitset.New(ruleTableSize),
		log:   log,
	}
}

// find returns the index of the rule matching (vrf, addr, masklen), or
// -1 if none is configured.
func (s *ShadowTable[V]) find(vrf uint16, addr uint32, masklen uint8) int {
	for i := range s.rules {
		r := &s.rules[i]
		if r.used && r.vrf == vrf && r.addr == addr && r.masklen == masklen {
			return i
		}
	}
	return -1
}

// add records or updates the rule for (vrf, addr, masklen). If the
// prefix already exists its data is overwritten (latest write wins, per
// spec §4.3.5); otherwise the first free slot is reserved. Returns
// ErrRuleTableFull if the table has no free slot, in which case the add
// is a logged no-op (spec §7).
func (s *ShadowTable[V]) add(vrf uint16, addr uint32, masklen uint8, data V) error {
	if i := s.find(vrf, addr, masklen); i != -1 {
		s.rules[i].data = data
		return nil
	}

	free, ok := s.used.NextClear(0)
	if !ok || int(free) >= len(s.rules) {
		s.log.Warn("shadow rule table full", zap.Int("capacity", ruleTableSize))
		return ErrRuleTableFull
	}

	s.rules[free] = rule4[V]{used: true, vrf: vrf, addr: addr, masklen: masklen, data: data}
	s.used.Set(free)
	return nil
}

// remove clears the rule for (vrf, addr, masklen), if any.
func (s *ShadowTable[V]) remove(vrf uint16, addr uint32, masklen uint8) {
	if i := s.find(vrf, addr, masklen); i != -1 {
		s.rules[i].used = false
		s.used.Clear(uint(i))
	}
}

// findPrefixMatch finds the best surviving less-specific rule in the
// same VRF after a remove: the greatest masklen satisfying
// low < rule.masklen <= masklen whose address prefix matches addr in
// its top rule.masklen bits. Ties go to the latest-encountered slot.
//
// low is the lower bit boundary of the level at which the just-removed
// prefix terminated in the trie; only a survivor that terminates within
// that same level is returned. Less specific rules, which terminate at
// shallower levels, are not considered (spec §4.2).
func (s *ShadowTable[V]) findPrefixMatch(vrf uint16, addr uint32, masklen, low uint8) int {
	lowBound := low + 1
	best := -1

	for i := range s.rules {
		r := &s.rules[i]
		if !r.used || r.vrf != vrf {
			continue
		}
		if r.masklen < lowBound || r.masklen > masklen {
			continue
		}
		if (r.addr >> (ipv4Length - r.masklen)) != (addr >> (ipv4Length - r.masklen)) {
			continue
		}
		lowBound = r.masklen
		best = i
	}
	return best
}

// RuleStats reports how many of the fixed rule slots are in use, across
// all VRFs.
func (s *ShadowTable[V]) RuleStats() (live, capacity int) {
	return int(s.used.Count()), len(s.rules)
}

// Rules4Sink receives one rule per call during TraverseRules, mirroring
// the shape the original rule_print callback receives.
type Rules4Sink[V comparable] func(vrf uint16, addr uint32, masklen uint8, data V)

// TraverseRules walks the shadow table in storage order, emitting every
// used rule for vrf (spec §4.5: "the trie itself is not walked; the
// rule table is the authoritative enumeration").
func (s *ShadowTable[V]) TraverseRules(vrf uint16, sink Rules4Sink[V]) {
	for i := range s.rules {
		r := &s.rules[i]
		if r.used && r.vrf == vrf {
			sink(r.vrf, r.addr, r.masklen, r.data)
		}
	}
}
