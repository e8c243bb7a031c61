package stm_test

import (
	"errors"
	"testing"

	"github.com/kolkov/gostm/stm"
)

func TestAtomicallyEReturnsFailErrorWithoutPanicking(t *testing.T) {
	rt := stm.NewRuntime()
	v := stm.NewVarIn(rt, "clean")
	wantErr := errors.New("validation failed")

	_, err := stm.AtomicallyEIn(rt, func(tx *stm.Tx) (int, error) {
		stm.Store(tx, v, "dirty")
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}

	got := stm.AtomicallyIn(rt, func(tx *stm.Tx) string {
		return stm.Load(tx, v)
	})
	if got != "clean" {
		t.Fatalf("value after Fail = %q, want %q (writes must roll back)", got, "clean")
	}
}

func TestAtomicallyESucceedsWithNilError(t *testing.T) {
	rt := stm.NewRuntime()
	v := stm.NewVarIn(rt, 1)

	got, err := stm.AtomicallyEIn(rt, func(tx *stm.Tx) (int, error) {
		stm.Store(tx, v, 2)
		return stm.Load(tx, v), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2 {
		t.Fatalf("result = %d, want 2", got)
	}
}
