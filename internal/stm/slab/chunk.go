package slab

import (
	"sync"
	"unsafe"

	"github.com/kolkov/gostm/internal/stm/osmem"
)

// ChunkSize is the allocator's unit of OS interaction: every chunk handed
// out by the central source is exactly this many bytes.
const ChunkSize = 2 * 1024 * 1024

// MaxCentralCache bounds how many idle chunks the central source keeps
// before releasing surplus chunks back to the OS.
const MaxCentralCache = 64

// chunk is one 2 MiB region carved either into a slab of fixed-size blocks
// (see slab.go) or, on the large-object path, handed back to the caller
// whole.
type chunk struct {
	region *osmem.Region
	base   []byte
}

// CentralSource is the process-wide free-list of chunks, guarded by a
// simple mutex rather than the striped spinlock used for TMVar addresses:
// contention here is rare (only on cache misses in every per-thread
// cache), so a plain sync.Mutex is the right tool, matching spec §4.7.1's
// "mutex-protected free list".
type CentralSource struct {
	cfg  Config
	mu   sync.Mutex
	free []*chunk

	// indexMu protects blockIndex and large, the process-wide lookup
	// tables that let a Free call on any Heap find where a pointer
	// actually lives, regardless of which Heap allocated it. Go gives
	// interior pointers no way to recover their owning chunk by masking
	// the way a natively-aligned allocation could, so an explicit index
	// stands in for that trick.
	indexMu    sync.Mutex
	blockIndex map[unsafe.Pointer]blockOwner
	large      map[unsafe.Pointer]*osmem.Region
}

// NewCentralSource constructs an empty central chunk source tuned with
// DefaultConfig. Chunks are carved from the OS lazily, on the first Fetch
// miss.
func NewCentralSource() *CentralSource {
	return NewCentralSourceWithConfig(DefaultConfig())
}

// NewCentralSourceWithConfig constructs an empty central chunk source
// using cfg's capacities instead of the defaults.
func NewCentralSourceWithConfig(cfg Config) *CentralSource {
	return &CentralSource{
		cfg:        cfg,
		blockIndex: make(map[unsafe.Pointer]blockOwner),
		large:      make(map[unsafe.Pointer]*osmem.Region),
	}
}

// blockOwner records which Heap and slab a live small-object pointer
// belongs to.
type blockOwner struct {
	heap *Heap
	pool *sizeClassPool
	slab *slabUnit
}

func (c *CentralSource) registerBlock(ptr unsafe.Pointer, owner blockOwner) {
	c.indexMu.Lock()
	c.blockIndex[ptr] = owner
	c.indexMu.Unlock()
}

func (c *CentralSource) takeBlock(ptr unsafe.Pointer) (blockOwner, bool) {
	c.indexMu.Lock()
	owner, ok := c.blockIndex[ptr]
	if ok {
		delete(c.blockIndex, ptr)
	}
	c.indexMu.Unlock()
	return owner, ok
}

func (c *CentralSource) registerLarge(ptr unsafe.Pointer, region *osmem.Region) {
	c.indexMu.Lock()
	c.large[ptr] = region
	c.indexMu.Unlock()
}

func (c *CentralSource) takeLarge(ptr unsafe.Pointer) (*osmem.Region, bool) {
	c.indexMu.Lock()
	region, ok := c.large[ptr]
	if ok {
		delete(c.large, ptr)
	}
	c.indexMu.Unlock()
	return region, ok
}

// Fetch pops a chunk from the free list, or maps a fresh one from the OS
// if the list is empty.
func (c *CentralSource) Fetch() (*chunk, error) {
	c.mu.Lock()
	if n := len(c.free); n > 0 {
		ch := c.free[n-1]
		c.free = c.free[:n-1]
		c.mu.Unlock()
		return ch, nil
	}
	c.mu.Unlock()

	region, err := osmem.Map(c.cfg.ChunkSize)
	if err != nil {
		return nil, err
	}
	return &chunk{region: region, base: region.Bytes()}, nil
}

// Return pushes ch back onto the free list, releasing it to the OS instead
// if the list is already at cfg.MaxCentralCache.
func (c *CentralSource) Return(ch *chunk) {
	c.mu.Lock()
	if len(c.free) >= c.cfg.MaxCentralCache {
		c.mu.Unlock()
		ch.region.Release()
		return
	}
	c.free = append(c.free, ch)
	c.mu.Unlock()
}
