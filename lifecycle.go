package mtrie

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ofproute/mtrie/internal/shm"
)

func regionName(name string) string { return "mtrie/" + name }

// Table is the top-level lifecycle object: a named collection of
// per-VRF IPv4 trees, a single IPv6 tree, and the arenas and shadow
// table they share (spec §1's "global init" / per-instance arena
// create, lookup, and free by name).
type Table[V4 comparable, V6 comparable] struct {
	name string

	arena4 *Arena4[V4]
	arena6 *Arena6[V6]
	shadow *ShadowTable[V4]

	mu     sync.Mutex
	trees4 map[uint16]*Tree4[V4]
	tree6  *Tree6[V6]

	log *zap.Logger
}

var (
	globalMu   sync.Mutex
	globalOpen bool

	registryMu sync.Mutex
	registry   = map[string]any{}
)

// InitGlobal performs one-time process-wide setup. It must run before
// any Table is created, and must not run twice without an intervening
// TermGlobal.
func InitGlobal() error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalOpen {
		return ErrAlreadyInitialized
	}
	globalOpen = true
	return nil
}

// TermGlobal reverses InitGlobal, freeing every Table still registered.
func TermGlobal() error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if !globalOpen {
		return ErrNotInitialized
	}

	registryMu.Lock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	registryMu.Unlock()

	for _, n := range names {
		_ = shm.Free(regionName(n))
		registryMu.Lock()
		delete(registry, n)
		registryMu.Unlock()
	}

	globalOpen = false
	return nil
}

// NewTable creates and names a new Table, reserving its backing region.
// log may be nil. InitGlobal must have run first, and TermGlobal must
// not have run since.
//
// The region reserved here is bookkeeping, not backing storage: the
// arenas below are ordinary pre-reserved Go slices, not literally
// carved out of this byte range. Its job is solely to give
// create/lookup/free-by-name a real resource to arbitrate, the way the
// original's named arena allocator does.
func NewTable[V4 comparable, V6 comparable](name string, log *zap.Logger) (*Table[V4, V6], error) {
	globalMu.Lock()
	open := globalOpen
	globalMu.Unlock()
	if !open {
		return nil, ErrNotInitialized
	}

	if log == nil {
		log = zap.NewNop()
	}

	if _, err := shm.Alloc(regionName(name), 4096); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitFailure, err)
	}

	arena4 := NewArena4[V4](log)
	arena6 := NewArena6[V6](log)
	shadow := NewShadowTable[V4](log)

	tree6, err := NewTree6[V6](arena6, log)
	if err != nil {
		_ = shm.Free(regionName(name))
		return nil, err
	}

	t := &Table[V4, V6]{
		name:   name,
		arena4: arena4,
		arena6: arena6,
		shadow: shadow,
		trees4: map[uint16]*Tree4[V4]{},
		tree6:  tree6,
		log:    log,
	}

	registryMu.Lock()
	registry[name] = t
	registryMu.Unlock()

	return t, nil
}

// LookupTable finds a previously created Table by name. V4/V6 must
// match the types it was created with, or the lookup fails.
func LookupTable[V4 comparable, V6 comparable](name string) (*Table[V4, V6], error) {
	registryMu.Lock()
	v, ok := registry[name]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	t, ok := v.(*Table[V4, V6])
	if !ok {
		return nil, fmt.Errorf("mtrie: table %q has a different value type", name)
	}
	return t, nil
}

// FreeTable releases a Table and its backing region by name.
func FreeTable(name string) error {
	registryMu.Lock()
	_, ok := registry[name]
	if ok {
		delete(registry, name)
	}
	registryMu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	return shm.Free(regionName(name))
}

// VRF returns the IPv4 tree for vrf, creating it on first use.
func (t *Table[V4, V6]) VRF(vrf uint16) (*Tree4[V4], error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tr, ok := t.trees4[vrf]; ok {
		return tr, nil
	}
	tr, err := NewTree4[V4](t.arena4, t.shadow, vrf, t.log)
	if err != nil {
		return nil, err
	}
	t.trees4[vrf] = tr
	return tr, nil
}

// IPv6 returns the table's single IPv6 tree. IPv6 routes are not
// VRF-scoped (spec §3).
func (t *Table[V4, V6]) IPv6() *Tree6[V6] { return t.tree6 }

// Stats summarizes this table's arena and rule-table occupancy.
func (t *Table[V4, V6]) Stats() Stats {
	return CollectStats[V4, V6](t.arena4, t.arena6, t.shadow)
}

// TraverseRules walks the shadow rule table for vrf in storage order,
// emitting every configured IPv4 prefix (spec §4.5's rule_print).
func (t *Table[V4, V6]) TraverseRules(vrf uint16, sink Rules4Sink[V4]) {
	t.shadow.TraverseRules(vrf, sink)
}
