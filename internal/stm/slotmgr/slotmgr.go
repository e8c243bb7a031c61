// Package slotmgr implements the growable, per-thread slot registry shared
// by the epoch manager (and, potentially, any other subsystem that needs
// long-lived, thread-cached state recycled without an explicit thread-exit
// hook).
//
// Go has no portable thread-local-storage destructor: a goroutine that
// exits leaves no callback for returning resources to a shared pool. The
// idiomatic substitute — used throughout the standard library's own
// sync.Pool (see golang-design-under-the-hood/gosrc/sync/pool.go for the
// runtime's internal per-P victim-cache design this mirrors) — is a pool
// that hands out and reclaims values without caring which goroutine held
// them last. Manager layers exactly that on top of an append-only registry,
// so that every slot ever created remains reachable for a full scan (the
// spec's ForEachSlot contract) even after its holder goroutine is gone,
// while acquisition and release go through sync.Pool's lock-free per-P
// fast path instead of a hand-rolled Treiber stack.
package slotmgr

import "sync"

// Resettable is the constraint a pooled slot type must satisfy: it must be
// able to return itself to a pristine, Inactive state before being handed
// to a new acquirer.
type Resettable interface {
	Reset()
}

// Manager owns every slot instance ever created for one runtime, plus a
// reuse pool over them. T is expected to be a pointer type (e.g. *ebr.Slot)
// so that Reset mutates shared state rather than a copy.
type Manager[T Resettable] struct {
	newFn func() T

	mu  sync.Mutex
	all []T

	pool sync.Pool
}

// New creates a Manager whose slots are produced by newFn on first
// acquisition beyond what's already pooled.
func New[T Resettable](newFn func() T) *Manager[T] {
	m := &Manager[T]{newFn: newFn}
	m.pool.New = func() any {
		s := m.newFn()
		m.mu.Lock()
		m.all = append(m.all, s)
		m.mu.Unlock()
		return s
	}
	return m
}

// Acquire returns a slot for the calling goroutine's use. The slot may be
// freshly constructed or recycled from a prior release; either way it
// starts Reset.
func (m *Manager[T]) Acquire() T {
	return m.pool.Get().(T)
}

// Release resets s and returns it to the pool for reuse.
func (m *Manager[T]) Release(s T) {
	s.Reset()
	m.pool.Put(s)
}

// ForEach calls f once for every slot ever created by this Manager,
// including ones currently checked out by another goroutine. Iteration
// holds the registry mutex for its duration, matching the spec's
// "for_each_slot is done under the expansion mutex so the segment array is
// stable" requirement.
func (m *Manager[T]) ForEach(f func(T)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.all {
		f(s)
	}
}

// Len reports how many distinct slots this Manager has ever created.
func (m *Manager[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.all)
}
