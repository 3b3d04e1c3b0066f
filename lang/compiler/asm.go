package compiler

import (
	"fmt"
	"strings"

	"github.com/dolthub/swiss"

	"github.com/kelplang/kelp/lang/token"
	"github.com/kelplang/kelp/lang/value"
)

// Assembly is the output of compilation: a single flat instruction stream
// split at Start (instructions before Start are function bodies, reachable
// only via Call; instructions from Start on are top-level code the VM runs
// directly), a constant pool, a function-identity index for diagnostics, and
// a parallel span table for error reporting.
type Assembly struct {
	Instrs []Instr
	Start  uint32

	Constants []value.Value
	Globals   []string

	// FunctionIDs recovers the logical identity (name, anonymous-at-span,
	// format-string, or primitive) of a Function value, for diagnostics.
	// Keyed by the packed Function struct itself, which is comparable.
	FunctionIDs *swiss.Map[value.Function, value.FunctionID]

	// Spans holds only the synthetic builtin span, at index 0; every Instr
	// carries its own source Span inline, which is what error reporting uses.
	Spans []token.Span
}

// Dump renders the assembly as a flat, line-numbered listing, in the style
// of an objdump: useful for golden-file tests of the compiler.
func (a *Assembly) Dump() string {
	var sb strings.Builder
	for i, instr := range a.Instrs {
		marker := "  "
		if uint32(i) == a.Start {
			marker = "->"
		}
		fmt.Fprintf(&sb, "%s%04d  %s\n", marker, i, instr)
	}
	return sb.String()
}

// FunctionID looks up the logical identity of a function handle. f must
// have come from this Assembly (built by its Compiler, or produced by
// running it): asking about a function from a different assembly is a
// programmer error, not a runtime condition, so this panics rather than
// returning a zero value or an error.
func (a *Assembly) FunctionID(f value.Function) value.FunctionID {
	id, ok := a.FunctionIDs.Get(f)
	if !ok {
		panic(fmt.Sprintf("compiler: FunctionID called with a function not from this assembly: %v", f))
	}
	return id
}

// FindFunction is the reverse of FunctionID: given a logical identity, it
// recovers the Function handle that produces it, if any. Used by the
// embedding API to resolve a name or primitive back to a callable.
func (a *Assembly) FindFunction(id value.FunctionID) (value.Function, bool) {
	var found value.Function
	ok := false
	a.FunctionIDs.Iter(func(f value.Function, fid value.FunctionID) bool {
		if fid == id {
			found, ok = f, true
			return true
		}
		return false
	})
	return found, ok
}
