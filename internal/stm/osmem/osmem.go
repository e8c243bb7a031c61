//go:build linux || darwin

// Package osmem carves large, page-aligned regions directly from the
// operating system, the way package slab's central chunk source refills
// itself once its cached chunks run out.
//
// Grounded on the mmap-backed slab region allocator retrieved from
// nixomose-slookup_i, which sources its own arena from
// golang.org/x/sys/unix.Mmap rather than growing a Go slice, so that the
// arena's address range is stable and can be handed out to size-class
// pools as raw, unmanaged memory.
package osmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Region is one OS-backed mapping. Callers must call Release exactly once
// when the region is no longer needed.
type Region struct {
	data []byte
}

// Map allocates a private, anonymous mapping of at least size bytes,
// rounded up by the kernel to a whole number of pages. The returned
// region's backing memory is not tracked by the Go garbage collector.
func Map(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("osmem: size must be positive, got %d", size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("osmem: mmap %d bytes: %w", size, err)
	}
	return &Region{data: data}, nil
}

// Bytes exposes the region's backing storage.
func (r *Region) Bytes() []byte {
	return r.data
}

// Len reports the region's size in bytes.
func (r *Region) Len() int {
	return len(r.data)
}

// Release unmaps the region. The region must not be used afterward.
func (r *Region) Release() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	if err != nil {
		return fmt.Errorf("osmem: munmap: %w", err)
	}
	return nil
}
