// Package stripelock implements the striped write-lock table used by the
// transaction engine's commit phase.
//
// Every TMVar's address hashes onto one of a Table's cache-line-padded
// spin flags. Multiple TMVars may collide on the same stripe; collisions
// only serialize commit-time write ownership, never the values readers see,
// so a coarse table is an acceptable trade against per-variable lock
// allocation. Readers never take these locks: they rely on acquire-loads of
// the version chain plus the commit-time validation protocol in package
// txn.
package stripelock

import (
	"runtime"
	"sync/atomic"
)

const (
	// DefaultTableBits sizes a default-constructed table at 2^20 stripes,
	// per the tuning table — 64 MiB, chosen deliberately (see spec §4.2)
	// to keep collision probability low without per-variable allocation.
	DefaultTableBits = 20

	// spinLimit bounds the number of busy-spin iterations attempted before
	// a contended lock backs off with runtime.Gosched. Go exposes no
	// portable CPU pause intrinsic outside of assembly, so Gosched stands
	// in for the pause-hint the spec describes.
	spinLimit = 32
)

// stripe is a single cache-line-padded spin lock. The padding keeps
// adjacent stripes from sharing a cache line, avoiding false sharing
// between transactions committing unrelated variables.
type stripe struct {
	flag atomic.Bool
	_    [60]byte
}

// Table is a striped lock table sized to 2^bits stripes at construction.
// It should be allocated once per Runtime via New or NewSized, never
// copied.
type Table struct {
	stripes []stripe
	mask    uint32
}

// New allocates a fresh, fully unlocked Table at the default size
// (2^DefaultTableBits stripes).
func New() *Table {
	return NewSized(DefaultTableBits)
}

// NewSized allocates a fresh, fully unlocked Table with 2^bits stripes.
// Tests wanting to exercise collision handling without allocating tens of
// megabytes construct a small table this way.
func NewSized(bits int) *Table {
	size := 1 << uint(bits)
	return &Table{
		stripes: make([]stripe, size),
		mask:    uint32(size - 1),
	}
}

// fnv1a hashes addr with the same FNV-1a convention used elsewhere in the
// corpus for address dispersion (internal/race/shadowmem's CAS table and
// stackdepot's stack hashing both use FNV-1a).
func fnv1a(addr uintptr) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for i := 0; i < 8; i++ {
		h ^= uint64(byte(addr >> (8 * i)))
		h *= prime64
	}
	return h
}

// StripeOf hashes addr onto a stripe index within t's table.
func (t *Table) StripeOf(addr uintptr) uint32 {
	return uint32(fnv1a(addr)) & t.mask
}

// StripeOf hashes addr onto a stripe index in a default-sized table. It is
// provided for callers (and tests) that only ever deal with a
// default-constructed Table and don't want to thread one through just to
// compute an index.
func StripeOf(addr uintptr) uint32 {
	return uint32(fnv1a(addr)) & (1<<DefaultTableBits - 1)
}

// LockByIndex acquires the stripe at idx using test-and-test-and-set with a
// bounded spin before yielding the goroutine. It is not reentrant: a
// transaction must never lock the same index twice without an intervening
// unlock (the transaction engine enforces this by sorting and deduplicating
// stripe indices before acquiring any of them).
func (t *Table) LockByIndex(idx uint32) {
	s := &t.stripes[idx]
	spins := 0
	for {
		if !s.flag.Load() && !s.flag.Swap(true) {
			return
		}
		spins++
		if spins >= spinLimit {
			runtime.Gosched()
			spins = 0
		}
	}
}

// UnlockByIndex releases the stripe at idx with a release store, making all
// of the committing transaction's writes visible to the next lock holder.
func (t *Table) UnlockByIndex(idx uint32) {
	t.stripes[idx].flag.Store(false)
}

// IsLocked reports whether the stripe that addr hashes onto is currently
// held by some transaction. Used by commit-time validation's pre- and
// post-lock checks.
func (t *Table) IsLocked(addr uintptr) bool {
	return t.stripes[t.StripeOf(addr)].flag.Load()
}

// IsLockedIndex reports whether the stripe at idx is currently held.
func (t *Table) IsLockedIndex(idx uint32) bool {
	return t.stripes[idx].flag.Load()
}
