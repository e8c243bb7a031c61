// Package slab's Heap is the per-thread façade stm.Alloc and stm.Free route
// through: small requests hit a size-class pool backed by the thread's
// chunk cache, large requests go straight to a dedicated OS mapping.
package slab

import (
	"fmt"
	"unsafe"

	"github.com/kolkov/gostm/internal/stm/osmem"
)

// Heap is one thread's allocator state. Heaps are not goroutine-safe and
// must not be shared; see package txn for how one is bound per
// transaction attempt via slotmgr, mirroring the thread-local heap this
// allocator's design was distilled from.
type Heap struct {
	central *CentralSource
	cache   *threadCache
	pools   [NumClasses]*sizeClassPool
}

// NewHeap constructs a Heap drawing chunks from central.
func NewHeap(central *CentralSource) *Heap {
	h := &Heap{
		central: central,
		cache:   newThreadCache(central),
	}
	for i := range h.pools {
		h.pools[i] = newSizeClassPool(i, h.cache)
	}
	return h
}

// Alloc reserves n bytes and returns a pointer to unmanaged memory. The
// caller is responsible for calling Free exactly once, on any Heap backed
// by the same CentralSource.
func (h *Heap) Alloc(n uintptr) (unsafe.Pointer, error) {
	if n == 0 {
		n = 1
	}
	class := sizeToClass(n)
	if class >= NumClasses {
		return h.allocLarge(n)
	}

	pool := h.pools[class]
	ptr, s, err := pool.allocate()
	if err != nil {
		return nil, fmt.Errorf("slab: allocate class %d: %w", class, err)
	}
	if ptr == nil {
		return nil, fmt.Errorf("slab: allocate class %d: chunk source exhausted", class)
	}
	h.central.registerBlock(ptr, blockOwner{heap: h, pool: pool, slab: s})
	return ptr, nil
}

func (h *Heap) allocLarge(n uintptr) (unsafe.Pointer, error) {
	size := normalize(n)
	region, err := osmem.Map(int(size))
	if err != nil {
		return nil, fmt.Errorf("slab: large allocation of %d bytes: %w", n, err)
	}
	ptr := unsafe.Pointer(&region.Bytes()[0])
	h.central.registerLarge(ptr, region)
	return ptr, nil
}

// Free releases a pointer previously returned by Alloc. If ptr was
// allocated by a different Heap than the one calling Free, the block is
// pushed onto its owning slab's remote free-list instead of reclaimed
// immediately; the owning thread reclaims it when it next allocates from
// that slab and finds the slab's local free-list empty.
func (h *Heap) Free(ptr unsafe.Pointer) {
	if owner, ok := h.central.takeBlock(ptr); ok {
		if owner.heap == h {
			owner.pool.deallocate(owner.slab, ptr)
		} else {
			owner.slab.freeRemote(ptr)
		}
		return
	}

	if region, ok := h.central.takeLarge(ptr); ok {
		region.Release()
	}
}

// Release drains this heap's thread cache back to the central source.
// Nothing in this module calls it: package txn returns a Heap to its pool
// through slotmgr, which calls Reset, so a pooled Heap keeps its cached
// chunks.
func (h *Heap) Release() {
	h.cache.drain()
}

// Reset satisfies slotmgr.Resettable. A Heap checked back into the pool
// at the end of an Atomically call keeps its warm slabs and cached chunks —
// that persistence across attempts is the entire point of a thread-caching
// allocator — so Reset intentionally does nothing.
func (h *Heap) Reset() {}
