// Package txn implements the transaction engine: begin, load, store,
// alloc, free, and the commit/validate protocol that ties together the
// version chains, the striped lock table, and epoch-based reclamation.
//
// It deliberately knows nothing about the payload type T a caller's TMVars
// hold — every read/write-set entry it walks was built by package
// verchain as a closure over that type. This is what lets Tx, Runtime, and
// the whole commit algorithm below live in an ordinary, non-generic Go
// package even though Go has no generic methods.
package txn

import (
	"github.com/kolkov/gostm/internal/stm/clock"
	"github.com/kolkov/gostm/internal/stm/ebr"
	"github.com/kolkov/gostm/internal/stm/slab"
	"github.com/kolkov/gostm/internal/stm/slotmgr"
	"github.com/kolkov/gostm/internal/stm/stmlog"
	"github.com/kolkov/gostm/internal/stm/stripelock"
	"github.com/kolkov/gostm/internal/stm/txdesc"
	"github.com/kolkov/gostm/internal/stm/verchain"
)

// Tuning holds the tunable capacities a Runtime is constructed with. The
// zero Tuning is not valid; start from DefaultTuning and override only
// what needs changing.
type Tuning struct {
	// StripeBits sizes the striped lock table at 2^StripeBits entries.
	StripeBits int
	// MaxHistory bounds how many committed versions each Var keeps
	// reachable before the tail is pruned.
	MaxHistory int
	// Slab tunes the allocator's chunk size and cache capacities.
	Slab slab.Config
}

// DefaultTuning returns the capacities this module's design was
// distilled from.
func DefaultTuning() Tuning {
	return Tuning{
		StripeBits: stripelock.DefaultTableBits,
		MaxHistory: verchain.DefaultMaxHistory,
		Slab:       slab.DefaultConfig(),
	}
}

// Runtime is one independent instance of the whole STM: its own clock,
// stripe table, epoch manager, and allocator arena. Tests and callers
// wanting isolation construct more than one; production code typically
// uses a single process-wide Runtime.
type Runtime struct {
	Clock      *clock.Clock
	Stripes    *stripelock.Table
	EBR        *ebr.Manager
	Central    *slab.CentralSource
	Log        *stmlog.Logger
	MaxHistory int

	descs *slotmgr.Manager[*txdesc.Descriptor]
	heaps *slotmgr.Manager[*slab.Heap]
}

// NewRuntime constructs a Runtime tuned with DefaultTuning. log may be
// stmlog.Discard() for tests that don't want retry-trace noise.
func NewRuntime(log *stmlog.Logger) *Runtime {
	return NewRuntimeWithTuning(log, DefaultTuning())
}

// NewRuntimeWithTuning constructs a Runtime using tuning's capacities
// instead of the defaults.
func NewRuntimeWithTuning(log *stmlog.Logger, tuning Tuning) *Runtime {
	rt := &Runtime{
		Clock:      clock.New(),
		Stripes:    stripelock.NewSized(tuning.StripeBits),
		EBR:        ebr.NewManager(),
		Central:    slab.NewCentralSourceWithConfig(tuning.Slab),
		Log:        log,
		MaxHistory: tuning.MaxHistory,
	}
	rt.descs = slotmgr.New(func() *txdesc.Descriptor { return txdesc.New() })
	rt.heaps = slotmgr.New(func() *slab.Heap { return slab.NewHeap(rt.Central) })
	return rt
}

// Tx is one in-flight transaction attempt: the descriptor accumulating
// reads and writes, plus the thread heap backing Alloc/Free. A Tx is only
// valid for the duration of a single Atomically body invocation.
type Tx struct {
	rt   *Runtime
	desc *txdesc.Descriptor
	heap *slab.Heap
}

// Desc exposes the underlying descriptor to the generic free functions in
// package stm (Load, Store, and friends), which need to append read/write
// entries without txn knowing what type they hold.
func (tx *Tx) Desc() *txdesc.Descriptor { return tx.desc }

// Heap exposes the transaction's thread-local allocator for stm.Alloc and
// stm.Free.
func (tx *Tx) Heap() *slab.Heap { return tx.heap }

// ReadVersion returns the clock value this attempt began at.
func (tx *Tx) ReadVersion() uint64 { return tx.desc.ReadVersion }

// Log exposes the owning runtime's logger, for reporting conditions the
// caller has decided are fatal (see stm.Alloc).
func (tx *Tx) Log() *stmlog.Logger { return tx.rt.Log }

// retrySignal is the panic value Retry (and a load that can't find a
// visible version) uses to unwind out of the user's transaction body
// without escaping Atomically as a genuine error.
type retrySignal struct{}

// Retry aborts the current attempt and asks Atomically to try again after
// yielding. It is the library's only form of user-triggered rollback (spec
// Non-goals rule out condition-based blocking).
func (tx *Tx) Retry() {
	panic(retrySignal{})
}

// FailSignal is the panic value Fail uses to unwind out of a transaction
// body carrying a caller-supplied error, for AtomicallyE to recover and
// hand back as a plain error return.
type FailSignal struct{ Err error }

// Fail aborts the current attempt outright, discarding its staged writes
// and allocations same as a panic would, and carries err out to whichever
// caller recovers FailSignal. Unlike Retry, an attempt that calls Fail is
// never retried: Atomically lets the FailSignal panic propagate, and only
// AtomicallyE recovers it.
func (tx *Tx) Fail(err error) {
	panic(FailSignal{Err: err})
}
