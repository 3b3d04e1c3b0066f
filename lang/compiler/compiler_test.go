package compiler

import (
	"testing"

	"golang.org/x/exp/slices"
)

// TestLoadRollsBackOnError exercises spec.md §8's rollback invariant: after
// any failing Load, the Compiler's instruction buffers, constant/global
// pools, and bindings must be exactly as they were before the call, even
// when the failing chunk had already compiled some items successfully
// before the one that errored.
func TestLoadRollsBackOnError(t *testing.T) {
	c := New()
	if err := c.Load("ok", "x <- 3\n"); err != nil {
		t.Fatalf("unexpected error on a valid Load: %v", err)
	}

	preFunc, preTop := len(c.funcInstrs), len(c.topInstrs)
	preConst, preGlobal := len(c.constants), len(c.globals)
	preBindings := append([]string(nil), c.Bindings()...)

	// "y <- 5" compiles fine and would add a binding and instructions; the
	// second line references an unresolved name, failing the whole chunk.
	err := c.Load("bad", "y <- 5\nundefinedBinding\n")
	if err == nil {
		t.Fatal("expected Load to fail on an unresolved identifier")
	}

	if got := len(c.funcInstrs); got != preFunc {
		t.Errorf("funcInstrs grew after a failed Load: %d -> %d", preFunc, got)
	}
	if got := len(c.topInstrs); got != preTop {
		t.Errorf("topInstrs grew after a failed Load: %d -> %d", preTop, got)
	}
	if got := len(c.constants); got != preConst {
		t.Errorf("constants grew after a failed Load: %d -> %d", preConst, got)
	}
	if got := len(c.globals); got != preGlobal {
		t.Errorf("globals grew after a failed Load: %d -> %d", preGlobal, got)
	}
	if got := c.Bindings(); !slices.Equal(got, preBindings) {
		t.Errorf("bindings changed after a failed Load: got %v, want %v", got, preBindings)
	}
}

// TestLoadRollsBackParseErrors covers the other failure path: a chunk that
// never even compiles because it fails to parse must leave no trace either.
func TestLoadRollsBackParseErrors(t *testing.T) {
	c := New()
	if err := c.Load("ok", "x <- 3\n"); err != nil {
		t.Fatalf("unexpected error on a valid Load: %v", err)
	}
	preTop := len(c.topInstrs)

	if err := c.Load("bad", "_\n"); err == nil {
		t.Fatal("expected Load to fail on a stray underscore")
	}
	if got := len(c.topInstrs); got != preTop {
		t.Errorf("topInstrs grew after a parse-failing Load: %d -> %d", preTop, got)
	}
}
