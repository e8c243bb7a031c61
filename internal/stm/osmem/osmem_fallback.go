//go:build !linux && !darwin

// Fallback region source for platforms golang.org/x/sys/unix.Mmap does not
// cover.
//
// This trades away the real guarantee osmem.go provides on linux/darwin —
// that a region's address is stable and untouched by the Go garbage
// collector — for the ability to run go test at all on those platforms. It
// is not a production allocator backend: a chunk allocated here is an
// ordinary Go slice the GC can still see and move address bookkeeping
// around, so slab code holding raw unsafe.Pointer offsets into it works by
// coincidence, not guarantee. Production builds are linux/darwin only.
package osmem

import "fmt"

// Region is one fallback-backed mapping.
type Region struct {
	data []byte
}

// Map allocates a Go-heap slice of at least size bytes in lieu of a real
// OS mapping.
func Map(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("osmem: size must be positive, got %d", size)
	}
	return &Region{data: make([]byte, size)}, nil
}

// Bytes exposes the region's backing storage.
func (r *Region) Bytes() []byte {
	return r.data
}

// Len reports the region's size in bytes.
func (r *Region) Len() int {
	return len(r.data)
}

// Release drops the fallback region for the garbage collector to reclaim.
func (r *Region) Release() error {
	r.data = nil
	return nil
}
