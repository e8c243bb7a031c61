// Package txdesc defines the per-thread transaction descriptor: the
// read-set, write-set, lock-set, and read-version a single in-flight
// transaction accumulates between begin and commit.
//
// The descriptor is deliberately type-free (spec §9 "type-erased
// per-variable operations"): every entry captures its variable-specific
// behavior as a Go closure rather than through a generic interface, which
// keeps this package free of type parameters and lets package txn commit
// and validate transactions without knowing what T any given Var holds.
// Package verchain is what constructs these closures.
package txdesc

// State is the transaction's lifecycle stage (spec §4.4.1).
type State int

const (
	// Inactive is the State of a descriptor fresh from New, before its
	// first Reset.
	Inactive State = iota
	// Active descriptors are accumulating reads and writes; Reset sets
	// this State.
	Active
	// Committed names the stage after a successful commit. Package txn
	// does not assign it: a descriptor stays Active until its next Reset.
	Committed
	// Aborted names the stage after a validation failure or user error.
	// Package txn does not assign it either.
	Aborted
)

// Default slice capacities, per spec §3.
const (
	readSetCapacity  = 64
	writeSetCapacity = 16
	lockSetCapacity  = 16
)

// ReadEntry records one variable this transaction has read, so that commit
// can revalidate it wasn't concurrently overwritten.
type ReadEntry struct {
	// Addr identifies the TMVar for stripe-lock lookups during validation.
	Addr uintptr
	// Validate reports whether the version this transaction observed is
	// still consistent with rv (the transaction's read timestamp) — it
	// closes over the expected head pointer captured at load time.
	Validate func(rv uint64) bool
}

// WriteEntry records one staged write, not yet visible to any other
// transaction.
type WriteEntry struct {
	// Addr identifies the TMVar this entry targets, for stripe hashing.
	Addr uintptr
	// Payload is the boxed staged value, used only to serve
	// read-your-own-writes lookups against the same Var.
	Payload any
	// Commit installs the staged node as the new head at write timestamp
	// wv. Called only while this entry's stripe is held. After Commit
	// runs, ownership of the staged node has transferred to the Var's
	// chain; Free must not be called afterward.
	Commit func(wv uint64)
	// Free releases the staged node. Called on abort or descriptor reset,
	// never after a successful Commit.
	Free func()
}

// Allocation is a transaction-local record of an stm.Alloc'd object, kept so
// an aborted transaction can free everything it allocated.
type Allocation struct {
	Free func()
}

// Descriptor is one thread's reusable transaction state. A single
// Descriptor is obtained fresh for each Atomically call (see package
// txn) and Reset between retry attempts.
type Descriptor struct {
	State       State
	ReadVersion uint64

	ReadSet  []ReadEntry
	WriteSet []WriteEntry
	LockSet  []uint32

	Allocs []Allocation
}

// New returns a Descriptor with its slices pre-sized to the spec's default
// capacities.
func New() *Descriptor {
	return &Descriptor{
		ReadSet:  make([]ReadEntry, 0, readSetCapacity),
		WriteSet: make([]WriteEntry, 0, writeSetCapacity),
		LockSet:  make([]uint32, 0, lockSetCapacity),
		Allocs:   make([]Allocation, 0, writeSetCapacity),
	}
}

// Reset returns the descriptor to State Active with an empty read/write/
// lock set, releasing any staged writes via their Free closures first.
// Slices are truncated, not reallocated, so the underlying arrays are
// reused across attempts (spec §3 capacity hints exist precisely so this
// almost never grows).
func (d *Descriptor) Reset() {
	d.releaseWriteSet()
	d.DiscardAllocations()
	d.State = Active
	d.ReadVersion = 0
	d.ReadSet = d.ReadSet[:0]
	d.LockSet = d.LockSet[:0]
}

func (d *Descriptor) releaseWriteSet() {
	for i := range d.WriteSet {
		if d.WriteSet[i].Free != nil {
			d.WriteSet[i].Free()
		}
	}
	d.WriteSet = d.WriteSet[:0]
}

// FindWrite scans the write-set in reverse (most recent first) for an entry
// targeting addr, implementing read-your-own-writes.
func (d *Descriptor) FindWrite(addr uintptr) (any, bool) {
	for i := len(d.WriteSet) - 1; i >= 0; i-- {
		if d.WriteSet[i].Addr == addr {
			return d.WriteSet[i].Payload, true
		}
	}
	return nil, false
}

// AddRead appends a read-set entry.
func (d *Descriptor) AddRead(addr uintptr, validate func(rv uint64) bool) {
	d.ReadSet = append(d.ReadSet, ReadEntry{Addr: addr, Validate: validate})
}

// AddWrite appends (or, if addr is already staged, overwrites-in-place via
// append — commit walks in insertion order so a later Store to the same Var
// simply wins by appearing later) a write-set entry.
func (d *Descriptor) AddWrite(addr uintptr, payload any, commit func(wv uint64), free func()) {
	d.WriteSet = append(d.WriteSet, WriteEntry{Addr: addr, Payload: payload, Commit: commit, Free: free})
}

// AddAlloc records a transaction-local allocation for abort-time cleanup.
func (d *Descriptor) AddAlloc(free func()) {
	d.Allocs = append(d.Allocs, Allocation{Free: free})
}

// DiscardAllocations is called on abort: frees every stm.Alloc'd object
// recorded since the last Reset.
func (d *Descriptor) DiscardAllocations() {
	for i := range d.Allocs {
		d.Allocs[i].Free()
	}
	d.Allocs = d.Allocs[:0]
}

// CommitAllocations is called on successful commit: the allocations become
// user-owned, so the bookkeeping is simply dropped without freeing.
func (d *Descriptor) CommitAllocations() {
	d.Allocs = d.Allocs[:0]
}
