package txdesc

import "testing"

func TestNewHasExpectedCapacities(t *testing.T) {
	d := New()
	if cap(d.ReadSet) != readSetCapacity {
		t.Fatalf("ReadSet cap = %d, want %d", cap(d.ReadSet), readSetCapacity)
	}
	if cap(d.WriteSet) != writeSetCapacity {
		t.Fatalf("WriteSet cap = %d, want %d", cap(d.WriteSet), writeSetCapacity)
	}
	if cap(d.LockSet) != lockSetCapacity {
		t.Fatalf("LockSet cap = %d, want %d", cap(d.LockSet), lockSetCapacity)
	}
}

func TestFindWriteReturnsMostRecent(t *testing.T) {
	d := New()
	d.AddWrite(1, "first", nil, func() {})
	d.AddWrite(1, "second", nil, func() {})

	got, ok := d.FindWrite(1)
	if !ok || got != "second" {
		t.Fatalf("FindWrite = (%v, %v), want (second, true)", got, ok)
	}

	if _, ok := d.FindWrite(2); ok {
		t.Fatalf("FindWrite found an entry for an untouched address")
	}
}

func TestResetReleasesStagedWrites(t *testing.T) {
	d := New()
	freed := false
	d.AddWrite(1, "staged", nil, func() { freed = true })
	d.AddRead(1, func(uint64) bool { return true })
	d.LockSet = append(d.LockSet, 5)

	d.Reset()

	if !freed {
		t.Fatalf("Reset did not free staged write")
	}
	if len(d.ReadSet) != 0 || len(d.WriteSet) != 0 || len(d.LockSet) != 0 {
		t.Fatalf("Reset left non-empty sets: %+v", d)
	}
	if d.State != Active {
		t.Fatalf("Reset left State = %v, want Active", d.State)
	}
}

func TestDiscardAllocationsFreesAll(t *testing.T) {
	d := New()
	count := 0
	d.AddAlloc(func() { count++ })
	d.AddAlloc(func() { count++ })

	d.DiscardAllocations()

	if count != 2 {
		t.Fatalf("DiscardAllocations freed %d objects, want 2", count)
	}
	if len(d.Allocs) != 0 {
		t.Fatalf("Allocs not cleared after discard")
	}
}

func TestCommitAllocationsDoesNotFree(t *testing.T) {
	d := New()
	freed := false
	d.AddAlloc(func() { freed = true })

	d.CommitAllocations()

	if freed {
		t.Fatalf("CommitAllocations invoked the free closure, it must not")
	}
	if len(d.Allocs) != 0 {
		t.Fatalf("Allocs not cleared after commit")
	}
}
