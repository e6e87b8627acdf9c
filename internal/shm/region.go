// Package shm provides a named, process-wide memory region, standing in
// for the shared-memory allocator that the surrounding data-plane stack
// would normally supply (spec §1 treats it as an external collaborator).
//
// A region is backed by an anonymous mmap rather than a filesystem-backed
// shm_open segment: the core only needs create/lookup/free-by-name
// semantics and a guarantee that the bytes start zeroed, not actual
// cross-process sharing, and mmap gives both without the cleanup hazards
// of a named POSIX shm object.
package shm

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	mu       sync.Mutex
	registry = map[string]*Region{}
)

// Region is a named block of zeroed, page-backed memory.
type Region struct {
	name string
	mem  []byte
}

// Name returns the region's registered name.
func (r *Region) Name() string { return r.name }

// Bytes returns the region's backing storage. The slice is zeroed at
// creation time and never resized.
func (r *Region) Bytes() []byte { return r.mem }

// Alloc creates and names a new region of size bytes. It fails if a
// region with the same name already exists.
func Alloc(name string, size int) (*Region, error) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := registry[name]; exists {
		return nil, fmt.Errorf("shm: region %q already allocated", name)
	}

	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap %q (%d bytes): %w", name, size, err)
	}

	r := &Region{name: name, mem: mem}
	registry[name] = r
	return r, nil
}

// Lookup finds a previously allocated region by name.
func Lookup(name string) (*Region, error) {
	mu.Lock()
	defer mu.Unlock()

	r, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("shm: region %q not found", name)
	}
	return r, nil
}

// Free unmaps and forgets the named region.
func Free(name string) error {
	mu.Lock()
	defer mu.Unlock()

	r, ok := registry[name]
	if !ok {
		return fmt.Errorf("shm: region %q not found", name)
	}

	delete(registry, name)
	return unix.Munmap(r.mem)
}
