package txn

import "runtime"

// traceEvery controls how often the retry loop emits a diagnostic line,
// per spec §4.4.7.
const traceEvery = 1000

// Atomically runs f to completion, retrying on conflict or an explicit
// Retry call, and returns its result. A panic from f that is not a Retry
// call propagates out of Atomically after the attempt's staged writes and
// allocations are discarded; it is never treated as a retry condition.
func Atomically[T any](rt *Runtime, f func(tx *Tx) T) T {
	guard := rt.EBR.Enter()
	defer guard.Leave()

	desc := rt.descs.Acquire()
	heap := rt.heaps.Acquire()
	defer rt.heaps.Release(heap)
	defer rt.descs.Release(desc)

	tx := &Tx{rt: rt, desc: desc, heap: heap}

	retries := 0
	for {
		desc.Reset()
		desc.ReadVersion = rt.Clock.Now()

		result, committed := attempt(tx, f)
		if committed {
			return result
		}

		retries++
		if retries%traceEvery == 0 {
			rt.Log.Tracef("transaction retrying, attempt %d", retries)
		}
		runtime.Gosched()
	}
}

// attempt runs one iteration of f's body and, if it returns normally,
// tries to commit it. It reports (result, true) only on a successful
// commit.
func attempt[T any](tx *Tx, f func(tx *Tx) T) (result T, committed bool) {
	retried := false

	func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(retrySignal); ok {
					retried = true
					return
				}
				panic(r)
			}
		}()
		result = f(tx)
	}()

	if retried {
		var zero T
		return zero, false
	}

	if !tx.commit() {
		var zero T
		return zero, false
	}
	return result, true
}
