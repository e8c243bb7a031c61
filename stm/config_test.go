package stm_test

import (
	"testing"

	"github.com/kolkov/gostm/stm"
)

func TestWithMaxHistoryBoundsRetainedVersions(t *testing.T) {
	rt := stm.NewRuntime(stm.WithMaxHistory(2))
	v := stm.NewVarIn(rt, 0)

	for i := 1; i <= 10; i++ {
		stm.AtomicallyIn(rt, func(tx *stm.Tx) any {
			stm.Store(tx, v, i)
			return nil
		})
	}

	got := stm.AtomicallyIn(rt, func(tx *stm.Tx) int {
		return stm.Load(tx, v)
	})
	if got != 10 {
		t.Fatalf("head value = %d, want 10", got)
	}
}

func TestWithStripeBitsBuildsUsableRuntime(t *testing.T) {
	rt := stm.NewRuntime(stm.WithStripeBits(4))
	a := stm.NewVarIn(rt, 1)
	b := stm.NewVarIn(rt, 2)

	stm.AtomicallyIn(rt, func(tx *stm.Tx) any {
		x := stm.Load(tx, a)
		stm.Store(tx, b, x+stm.Load(tx, b))
		return nil
	})

	got := stm.AtomicallyIn(rt, func(tx *stm.Tx) int {
		return stm.Load(tx, b)
	})
	if got != 3 {
		t.Fatalf("b = %d, want 3", got)
	}
}

func TestWithSlabTuningBuildsUsableRuntime(t *testing.T) {
	rt := stm.NewRuntime(
		stm.WithChunkSize(64*1024),
		stm.WithMaxCentralCache(2),
		stm.WithMaxThreadCache(1),
		stm.WithMaxRescueChecks(1),
	)

	got := stm.AtomicallyIn(rt, func(tx *stm.Tx) int {
		p := stm.Alloc(tx, 7)
		defer stm.Free(tx, p)
		return *p
	})
	if got != 7 {
		t.Fatalf("Alloc/Free round trip = %d, want 7", got)
	}
}
