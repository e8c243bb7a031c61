package verchain

import (
	"testing"

	"github.com/kolkov/gostm/internal/stm/ebr"
)

func (v *Var[T]) historyLen() int {
	n := v.head.Load()
	count := 0
	for n != nil {
		count++
		n = n.next.Load()
	}
	return count
}

func TestNewAndLoad(t *testing.T) {
	v := New(42, nil)
	val, head, ok := v.Load(^uint64(0))
	if !ok {
		t.Fatalf("Load reported not-ok for the genesis version")
	}
	if val != 42 {
		t.Fatalf("Load value = %d, want 42", val)
	}
	if head == nil {
		t.Fatalf("Load returned nil node handle")
	}
}

func TestLoadRespectsReadVersion(t *testing.T) {
	v := New(0, nil)
	_, commit, _ := StageWrite(v, 1)
	commit(1)
	_, commit2, _ := StageWrite(v, 2)
	commit2(2)

	val, _, ok := v.Load(1)
	if !ok || val != 1 {
		t.Fatalf("Load(1) = (%d, %v), want (1, true)", val, ok)
	}
	val, _, ok = v.Load(0)
	if !ok || val != 0 {
		t.Fatalf("Load(0) = (%d, %v), want (0, true)", val, ok)
	}
	val, _, ok = v.Load(2)
	if !ok || val != 2 {
		t.Fatalf("Load(2) = (%d, %v), want (2, true)", val, ok)
	}
}

func TestValidatorTrueUntilNextCommit(t *testing.T) {
	v := New("a", nil)
	_, head, _ := v.Load(^uint64(0))
	validate := v.MakeValidator(head)

	if !validate(0) {
		t.Fatalf("validator false before any concurrent commit")
	}

	_, commit, _ := StageWrite(v, "b")
	commit(1)

	if validate(0) {
		t.Fatalf("validator true after a commit replaced the head")
	}
}

func TestStageWriteFreeIsNoop(t *testing.T) {
	v := New(1, nil)
	_, _, free := StageWrite(v, 2)
	free() // must not panic, must not affect v
	val, _, _ := v.Load(^uint64(0))
	if val != 1 {
		t.Fatalf("uncommitted staged write leaked into head: got %d", val)
	}
}

func TestAddrStableAndDistinct(t *testing.T) {
	v1 := New(0, nil)
	v2 := New(0, nil)
	if v1.Addr() != v1.Addr() {
		t.Fatalf("Addr not stable across calls")
	}
	if v1.Addr() == v2.Addr() {
		t.Fatalf("distinct Vars produced the same Addr")
	}
}

func TestNewWithHistoryPrunesToConfiguredDepth(t *testing.T) {
	mgr := ebr.NewManager()
	const depth = 2
	v := NewWithHistory(0, mgr, depth)

	for i := 1; i <= depth+5; i++ {
		g := mgr.Enter()
		_, commit, _ := StageWrite(v, i)
		commit(uint64(i))
		g.Leave()
	}
	for i := 0; i < 8; i++ {
		g := mgr.Enter()
		g.Leave()
	}

	if got := v.historyLen(); got > depth {
		t.Fatalf("historyLen = %d, want <= %d", got, depth)
	}
}

func TestHistoryPrunedBeyondMaxAfterEpochAdvance(t *testing.T) {
	mgr := ebr.NewManager()
	v := New(0, mgr)

	for i := 1; i <= DefaultMaxHistory+5; i++ {
		g := mgr.Enter()
		_, commit, _ := StageWrite(v, i)
		commit(uint64(i))
		g.Leave()
	}

	// Drive the epoch forward with no readers active so deferred trims run.
	for i := 0; i < 8; i++ {
		g := mgr.Enter()
		g.Leave()
	}

	if got := v.historyLen(); got > DefaultMaxHistory {
		t.Fatalf("historyLen = %d after pruning, want <= %d", got, DefaultMaxHistory)
	}

	val, _, _ := v.Load(^uint64(0))
	if val != DefaultMaxHistory+5 {
		t.Fatalf("head value = %d, want %d (pruning must not affect the head)", val, DefaultMaxHistory+5)
	}
}
