// Package stm provides an in-process software transactional memory
// library: application code mutates a set of shared Var cells inside an
// Atomically block that either commits as a whole or is silently retried,
// with strict serializability across concurrent goroutines.
//
// See doc.go for the concurrency model and worked examples.
package stm

import (
	"sync"
	"unsafe"

	"github.com/kolkov/gostm/internal/stm/txn"
	"github.com/kolkov/gostm/internal/stm/verchain"
)

// Runtime is one independent instance of the whole STM: its own clock,
// stripe table, epoch manager, and allocator arena. Most programs never
// construct one directly and use the package-level functions, which share
// a single lazily-initialized default Runtime.
type Runtime struct {
	inner *txn.Runtime
}

// NewRuntime constructs an independent Runtime. Tests wanting isolation
// from other tests' transactions should construct their own rather than
// use the package-level default.
func NewRuntime(opts ...Option) *Runtime {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Runtime{inner: txn.NewRuntimeWithTuning(cfg.logger, cfg.tuning)}
}

var (
	defaultOnce sync.Once
	defaultRT   *Runtime
)

func defaultRuntime() *Runtime {
	defaultOnce.Do(func() { defaultRT = NewRuntime() })
	return defaultRT
}

// Tx is the handle a transaction body uses to read, write, allocate, and
// signal retry. A Tx is only valid for the duration of a single
// Atomically call and must not be retained beyond it.
type Tx = txn.Tx

// Var is one transactional memory location holding a value of type T. The
// zero Var is not usable; construct one with NewVar or NewVarIn.
type Var[T any] = verchain.Var[T]

// NewVar constructs a Var holding initial, registered with the default
// package-level Runtime.
func NewVar[T any](initial T) *Var[T] {
	return NewVarIn(defaultRuntime(), initial)
}

// NewVarIn constructs a Var holding initial, whose history pruning is
// driven by rt's epoch manager and bounded by rt's configured MaxHistory
// (see WithMaxHistory).
func NewVarIn[T any](rt *Runtime, initial T) *Var[T] {
	return verchain.NewWithHistory(initial, rt.inner.EBR, rt.inner.MaxHistory)
}

// Load reads v's current value within tx: read-your-own-writes returns a
// value staged earlier in the same transaction, otherwise the most recent
// version committed at or before tx's read timestamp is returned and
// recorded for commit-time validation. Load calls tx.Retry if v's history
// has been pruned past what this transaction should be able to see —
// which cannot happen for one long-running transaction on its own, but
// can if MaxHistory is exhausted by other writers between this
// transaction's begin and this Load call.
func Load[T any](tx *Tx, v *Var[T]) T {
	if payload, ok := tx.Desc().FindWrite(v.Addr()); ok {
		return payload.(T)
	}
	val, head, ok := v.Load(tx.ReadVersion())
	if !ok {
		tx.Retry()
	}
	tx.Desc().AddRead(v.Addr(), v.MakeValidator(head))
	return val
}

// Store stages val as v's new value. The write is not visible to any
// other transaction until this transaction commits; a later Load of v
// within the same transaction returns exactly this staged value through
// Load's read-your-own-writes path.
func Store[T any](tx *Tx, v *Var[T], val T) {
	payload, commit, free := verchain.StageWrite(v, val)
	tx.Desc().AddWrite(v.Addr(), payload, commit, free)
}

// Alloc reserves space for one T from tx's thread heap and returns a
// pointer to it, optionally initialized from args[0]. The returned
// pointer is unmanaged by Go's garbage collector: it must eventually be
// released with Free, either by this transaction (if it aborts, Alloc's
// bookkeeping frees it automatically) or by the caller once the
// transaction commits and ownership transfers to them.
func Alloc[T any](tx *Tx, args ...T) *T {
	var zero T
	raw, err := tx.Heap().Alloc(unsafe.Sizeof(zero))
	if err != nil {
		tx.Log().Fatalf("stm: allocation failed: %v", err)
	}
	p := (*T)(raw)
	if len(args) > 0 {
		*p = args[0]
	} else {
		*p = zero
	}
	tx.Desc().AddAlloc(func() { tx.Heap().Free(raw) })
	return p
}

// Free releases memory obtained from Alloc. The caller must be certain no
// concurrent reader still holds ptr — Free runs T's zero value over the
// memory and returns it to the allocator immediately, it does not wait
// for an epoch to pass, because slab-allocated memory (unlike a Var's
// version chain) is never reachable through any path except the pointer
// the caller already has.
func Free[T any](tx *Tx, ptr *T) {
	var zero T
	*ptr = zero
	tx.Heap().Free(unsafe.Pointer(ptr))
}

// Atomically runs f against the default Runtime, retrying until it
// commits, and returns its result.
func Atomically[T any](f func(tx *Tx) T) T {
	return AtomicallyIn(defaultRuntime(), f)
}

// AtomicallyIn runs f against rt, retrying until it commits, and returns
// its result.
func AtomicallyIn[T any](rt *Runtime, f func(tx *Tx) T) T {
	return txn.Atomically(rt.inner, f)
}

// AtomicallyE runs f against the default Runtime, retrying until it
// commits or f calls tx.Fail, in which case AtomicallyE returns the zero
// value and the error passed to Fail instead of retrying. It exists for
// callers who would rather thread an error return through their
// transaction body than have Fail's panic surface directly.
func AtomicallyE[T any](f func(tx *Tx) (T, error)) (T, error) {
	return AtomicallyEIn(defaultRuntime(), f)
}

// AtomicallyEIn is AtomicallyE against an explicit Runtime.
func AtomicallyEIn[T any](rt *Runtime, f func(tx *Tx) (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			if fail, ok := r.(txn.FailSignal); ok {
				var zero T
				result, err = zero, fail.Err
				return
			}
			panic(r)
		}
	}()
	result = AtomicallyIn(rt, func(tx *Tx) T {
		v, ferr := f(tx)
		if ferr != nil {
			tx.Fail(ferr)
		}
		return v
	})
	return result, nil
}

// AtomicallyVoid runs f against the default Runtime for its side effects
// only, retrying until it commits. It exists because Go cannot infer T
// from a func(tx *Tx) with no return value.
func AtomicallyVoid(f func(tx *Tx)) {
	Atomically(func(tx *Tx) struct{} {
		f(tx)
		return struct{}{}
	})
}
