// Package stm provides a software transactional memory runtime for Go
// programs, without any external lock manager or database.
//
// Application code declares shared state as [Var] cells and mutates them
// inside an [Atomically] block:
//
//	package main
//
//	import "github.com/kolkov/gostm/stm"
//
//	var balance = stm.NewVar(100)
//
//	func withdraw(amount int) {
//		stm.AtomicallyVoid(func(tx *stm.Tx) {
//			cur := stm.Load(tx, balance)
//			if cur < amount {
//				tx.Retry()
//			}
//			stm.Store(tx, balance, cur-amount)
//		})
//	}
//
// # Concurrency model
//
// Every transaction runs against a snapshot of the store taken at its
// start (a read-version sampled from a monotonic clock). Reads never
// block. A transaction that reaches the end of its body attempts to
// commit by locking the stripes its writes touch, re-validating every
// variable it read, and — if nothing changed underneath it — publishing
// its writes atomically at a new commit timestamp. A transaction that
// fails validation, or calls [Tx.Retry] itself, is silently re-run from
// the beginning; user code should have no side effects other than through
// Var reads and writes, the same discipline required by any
// optimistic-concurrency system.
//
// # What Atomically guarantees
//
//   - Every committed transaction appears to execute at a single instant,
//     the timestamp it committed at (strict serializability).
//   - A transaction's writes are invisible to every other transaction
//     until it commits, and become visible to all of them simultaneously.
//   - [Tx.Retry] abandons the current attempt, yields the goroutine once,
//     and re-runs the body from the start. It does not wait for any Var
//     it read to change, so a body that keeps calling Retry re-runs in a
//     spin/yield loop (not a condition variable) until its condition
//     holds.
//
// # What it does not provide
//
// There is no nested-transaction support, no durability, and no
// distributed coordination — this is a single-process, in-memory
// primitive. A transaction body must be safe to run more than once: it
// should not perform I/O or other externally visible side effects that
// aren't themselves transactional.
//
// # Manual memory
//
// [Alloc] and [Free] hand out and release memory from a thread-caching
// slab allocator, for code that wants to build its own data structures
// without asking the garbage collector to track every node. This is
// unrelated to Var's own version-chain memory, which the garbage
// collector always manages.
package stm
