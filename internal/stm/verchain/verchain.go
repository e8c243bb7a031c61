// Package verchain implements the version chain backing every TMVar: an
// immutable, singly-linked list of committed values ordered by commit
// timestamp, with the most recent version at the head.
//
// Reads observe the head without taking any lock (spec §4.1 "readers never
// block"); the head handle Load returns and the closure MakeValidator builds from it let
// package txn stage a read and later re-check, at commit time, that no
// writer replaced the head in between — all without verchain knowing
// anything about transactions, and without txn knowing anything about T.
package verchain

import (
	"sync/atomic"
	"unsafe"

	"github.com/kolkov/gostm/internal/stm/ebr"
)

// DefaultMaxHistory bounds how many committed versions a Var keeps
// reachable by default. Beyond this depth the tail is severed once EBR
// proves no active reader could still be walking past it, per spec
// §4.1's history cap.
const DefaultMaxHistory = 8

type node[T any] struct {
	version uint64
	value   T
	next    atomic.Pointer[node[T]]
}

// Var is one transactional memory location holding a value of type T. The
// zero Var is not usable; construct one with New.
type Var[T any] struct {
	head       atomic.Pointer[node[T]]
	ebr        *ebr.Manager
	maxHistory int
}

// New constructs a Var holding initial at version 0, whose history will be
// pruned through mgr down to DefaultMaxHistory versions. mgr may be nil,
// in which case pruning is disabled (used by package-level tests that
// don't need a full runtime).
func New[T any](initial T, mgr *ebr.Manager) *Var[T] {
	return NewWithHistory(initial, mgr, DefaultMaxHistory)
}

// NewWithHistory is New with an explicit history depth, for runtimes
// configured away from the default via stm.WithMaxHistory.
func NewWithHistory[T any](initial T, mgr *ebr.Manager, maxHistory int) *Var[T] {
	v := &Var[T]{ebr: mgr, maxHistory: maxHistory}
	v.head.Store(&node[T]{value: initial})
	return v
}

// Addr returns an identity for this Var suitable for stripe-lock hashing.
// It is stable for the Var's lifetime and unique among live Vars, which is
// all the striping scheme in package stripelock requires.
func (v *Var[T]) Addr() uintptr {
	return uintptr(unsafe.Pointer(v))
}

// node is an unexported type, so Load and MakeValidator's parameter are
// only usable together through Go's type inference — callers outside this
// package cannot name *node[T], only pass it straight through.

// Load returns the newest version with a commit timestamp at or below rv,
// together with an opaque handle on the head observed at the start of the
// walk (for later validation via MakeValidator). ok is false if every
// reachable version is newer than rv — including once history pruning has
// severed the version rv would have needed, which the caller must treat as
// a retry condition, not a stale read.
func (v *Var[T]) Load(rv uint64) (val T, head *node[T], ok bool) {
	head = v.head.Load()
	for n := head; n != nil; n = n.next.Load() {
		if n.version <= rv {
			return n.value, head, true
		}
	}
	var zero T
	return zero, head, false
}

// MakeValidator returns a closure reporting whether the head observed as
// prev is still the current head and whether that head's commit timestamp
// is at or below rv, the transaction's read version. Identity alone is not
// enough: Load may have walked past a head committed after the transaction
// began, and that head staying in place does not make the older value the
// transaction read current.
func (v *Var[T]) MakeValidator(prev *node[T]) func(uint64) bool {
	return func(rv uint64) bool {
		cur := v.head.Load()
		return cur == prev && cur.version <= rv
	}
}

// StageWrite allocates a new, not-yet-visible node holding val and returns
// the (payload, commit, free) triple package txdesc's WriteEntry expects.
// commit must only be called while the stripe covering v's Addr is held;
// it publishes the node as the new head at write timestamp wv and prunes
// history beyond maxHistory. free discards the staged node; Go's garbage
// collector reclaims it once unreferenced, so free has nothing to do here,
// but is kept for parity with the write-entry contract other Vars rely on
// when their staged payload does hold external resources (see package
// slab's allocation entries).
func StageWrite[T any](v *Var[T], val T) (payload any, commit func(wv uint64), free func()) {
	n := &node[T]{value: val}
	commit = func(wv uint64) {
		n.version = wv
		old := v.head.Swap(n)
		n.next.Store(old)
		v.trim(n)
	}
	free = func() {}
	return val, commit, free
}

// trim walks v.maxHistory nodes down from newHead and, once the chain runs
// longer than that, hands the tail's unlinking to the epoch reclaimer so it
// only happens once no reader could still be following the severed
// suffix.
func (v *Var[T]) trim(newHead *node[T]) {
	if v.ebr == nil {
		return
	}
	n := newHead
	for i := 1; i < v.maxHistory; i++ {
		next := n.next.Load()
		if next == nil {
			return
		}
		n = next
	}
	tail := n
	if tail.next.Load() == nil {
		return
	}
	v.ebr.Retire(func() { tail.next.Store(nil) })
}
