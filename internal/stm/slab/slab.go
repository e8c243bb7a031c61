package slab

import (
	"sync/atomic"
	"unsafe"
)

// slabUnit is one chunk carved into blockCount fixed-size blocks for a
// single size class. Unlike the layout this allocator's block-placement
// scheme was distilled from, the header here is an ordinary Go struct
// kept alongside the chunk rather than packed into the chunk's own first
// bytes — Go has no portable way to reinterpret an arbitrary byte range
// as a struct without unsafe tricks the standard library itself avoids,
// and keeping metadata as a normal Go value lets it be tracked by the
// garbage collector like everything else while the block storage
// underneath remains unmanaged, OS-backed memory.
type slabUnit struct {
	ch    *chunk
	class int

	blockSize  uintptr
	blockCount int
	data       unsafe.Pointer

	bump      int
	localFree []unsafe.Pointer
	remote    remoteFreeList

	allocated int

	prev, next *slabUnit
}

func newSlabUnit(ch *chunk, class int) *slabUnit {
	bs := classSize(class)
	count := int(uintptr(len(ch.base)) / bs)
	return &slabUnit{
		ch:         ch,
		class:      class,
		blockSize:  bs,
		blockCount: count,
		data:       unsafe.Pointer(&ch.base[0]),
	}
}

func (s *slabUnit) blockAt(i int) unsafe.Pointer {
	return unsafe.Add(s.data, uintptr(i)*s.blockSize)
}

// allocate returns a block from the local free-list first, then from
// blocks reclaimed off the remote free-list, then from the bump-pointer
// region, or nil if the slab is full. Only the owning thread may call
// this.
func (s *slabUnit) allocate() unsafe.Pointer {
	if len(s.localFree) == 0 {
		s.reclaimRemoteMemory()
	}
	if n := len(s.localFree); n > 0 {
		p := s.localFree[n-1]
		s.localFree = s.localFree[:n-1]
		s.allocated++
		return p
	}
	if s.bump < s.blockCount {
		p := s.blockAt(s.bump)
		s.bump++
		s.allocated++
		return p
	}
	return nil
}

// freeLocal returns ptr to the owning thread's own free-list and reports
// whether the slab is now fully empty.
func (s *slabUnit) freeLocal(ptr unsafe.Pointer) bool {
	s.localFree = append(s.localFree, ptr)
	s.allocated--
	return s.allocated == 0
}

// freeRemote is safe to call from any thread: it pushes onto the
// lock-free remote free-list for the owning thread to reclaim later.
func (s *slabUnit) freeRemote(ptr unsafe.Pointer) {
	s.remote.push(ptr)
}

// reclaimRemoteMemory drains the remote free-list into the local one and
// returns how many blocks were reclaimed.
func (s *slabUnit) reclaimRemoteMemory() int {
	stolen := s.remote.stealAll()
	if len(stolen) == 0 {
		return 0
	}
	s.localFree = append(s.localFree, stolen...)
	s.allocated -= len(stolen)
	return len(stolen)
}

func (s *slabUnit) isFull() bool  { return s.allocated == s.blockCount }
func (s *slabUnit) isEmpty() bool { return s.allocated == 0 }

// destroyForReuse resets a slab so its chunk can be handed back to the
// thread cache and later reused for any size class.
func (s *slabUnit) destroyForReuse() {
	s.bump = 0
	s.localFree = s.localFree[:0]
	s.allocated = 0
	s.remote.stealAll()
}

// remoteFreeList is a lock-free MPSC LIFO: any thread may push, only the
// owning thread ever drains it, via reclaimRemoteMemory.
type remoteFreeList struct {
	head atomic.Pointer[remoteNode]
}

func (l *remoteFreeList) push(ptr unsafe.Pointer) {
	n := &remoteNode{ptr: ptr}
	for {
		old := l.head.Load()
		n.next = old
		if l.head.CompareAndSwap(old, n) {
			return
		}
	}
}

func (l *remoteFreeList) stealAll() []unsafe.Pointer {
	n := l.head.Swap(nil)
	var out []unsafe.Pointer
	for n != nil {
		out = append(out, n.ptr)
		n = n.next
	}
	return out
}

type remoteNode struct {
	ptr  unsafe.Pointer
	next *remoteNode
}
