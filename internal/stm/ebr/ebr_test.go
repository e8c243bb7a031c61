package ebr

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestEnterLeaveAdvancesEpoch(t *testing.T) {
	m := NewManager()
	if m.GlobalEpoch() != 0 {
		t.Fatalf("initial epoch = %d, want 0", m.GlobalEpoch())
	}

	g := m.Enter()
	g.Leave()

	if m.GlobalEpoch() != 1 {
		t.Fatalf("epoch after single enter/leave = %d, want 1", m.GlobalEpoch())
	}
}

func TestRetireDeferredUntilTwoEpochsPass(t *testing.T) {
	m := NewManager()

	freed := atomic.Bool{}

	// Hold a critical section open across the retire call so that the
	// retiring epoch cannot immediately advance past it.
	holder := m.Enter()

	m.Retire(func() { freed.Store(true) })

	// A second, independent enter/leave advances the epoch to 1 (holder has
	// published epoch 0, which is current), but that only drains epoch 1's
	// list, not epoch 0's.
	other := m.Enter()
	other.Leave()
	if freed.Load() {
		t.Fatalf("retired pointer freed while original epoch's slot still active")
	}

	holder.Leave()
	// holder's Leave advances the epoch to 2; one more full enter/leave
	// cycle pushes it to 3 and reclaims epoch 0's list.
	g2 := m.Enter()
	g2.Leave()

	if !freed.Load() {
		t.Fatalf("retired pointer never freed after epoch advanced past its retirement")
	}
}

func TestNoDoubleFree(t *testing.T) {
	m := NewManager()
	var count atomic.Int32

	for i := 0; i < 100; i++ {
		g := m.Enter()
		m.Retire(func() { count.Add(1) })
		g.Leave()
	}
	// Drain any stragglers by cycling the epoch a couple more times.
	for i := 0; i < 4; i++ {
		g := m.Enter()
		g.Leave()
	}

	if got := count.Load(); got != 100 {
		t.Fatalf("deleter invoked %d times, want exactly 100 (no double free, no lost free)", got)
	}
}

func TestConcurrentEnterLeaveRetire(t *testing.T) {
	m := NewManager()
	var freedCount atomic.Int64
	var retiredCount atomic.Int64

	const goroutines = 8
	const iterations = 500

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				g := m.Enter()
				retiredCount.Add(1)
				m.Retire(func() { freedCount.Add(1) })
				g.Leave()
			}
		}()
	}
	wg.Wait()

	// Cycle a few more epochs to flush everything retired near the end.
	for i := 0; i < 8; i++ {
		g := m.Enter()
		g.Leave()
	}

	if freedCount.Load() != retiredCount.Load() {
		t.Fatalf("freed %d, retired %d: reclamation lost or duplicated work", freedCount.Load(), retiredCount.Load())
	}
}

func TestNestedGuard(t *testing.T) {
	m := NewManager()
	g := m.Enter()
	g.EnterNested()
	g.Leave() // still nested once
	if m.GlobalEpoch() != 0 {
		t.Fatalf("epoch advanced before outermost Leave")
	}
	g.Leave()
	if m.GlobalEpoch() != 1 {
		t.Fatalf("epoch did not advance after outermost Leave")
	}
}
