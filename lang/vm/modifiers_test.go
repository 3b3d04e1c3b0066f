package vm

import (
	"reflect"
	"testing"

	"github.com/kelplang/kelp/lang/compiler"
	"github.com/kelplang/kelp/lang/primitive"
	"github.com/kelplang/kelp/lang/value"
)

func numArray(shape []int, data ...float64) *value.NumberArray {
	return &value.NumberArray{Shape: shape, Data: data}
}

func newTestVM(instrs []compiler.Instr, constants []value.Value) *VM {
	asm := &compiler.Assembly{Instrs: instrs, Constants: constants}
	return New(asm, NewPipedIo(""))
}

// TestPartitionUnpartitionRoundTrip checks spec.md §8's partition round
// trip: unpartition(identity)(partition(identity)(A, M), A, M) == A, using
// equal-length runs so the grouped rows combine into a rectangular array.
func TestPartitionUnpartitionRoundTrip(t *testing.T) {
	vm := newTestVM(nil, nil)
	identity := value.PrimitiveFunction(primitive.Identity)
	A := numArray([]int{4}, 1, 2, 3, 4)
	markers := numArray([]int{4}, 1, 1, 2, 2)

	vm.push(A)
	vm.push(markers)
	vm.push(identity)
	if err := vm.collapseGroups("partition", partitionGroups); err != nil {
		t.Fatalf("partition: %v", err)
	}
	partitioned := vm.pop()

	vm.push(markers)
	vm.push(A)
	vm.push(partitioned)
	vm.push(identity)
	if err := vm.unpartition(); err != nil {
		t.Fatalf("unpartition: %v", err)
	}
	got := vm.pop().(*value.NumberArray)

	if !reflect.DeepEqual(got.Shape, A.Shape) || !reflect.DeepEqual(got.Data, A.Data) {
		t.Errorf("round trip mismatch: got shape %v data %v, want shape %v data %v", got.Shape, got.Data, A.Shape, A.Data)
	}
}

// TestGroupUngroupRoundTrip checks spec.md §8's group round trip:
// ungroup(identity)(group(identity)(A, I), A, I) == A, with no negative
// index (per the law's stated precondition).
func TestGroupUngroupRoundTrip(t *testing.T) {
	vm := newTestVM(nil, nil)
	identity := value.PrimitiveFunction(primitive.Identity)
	A := numArray([]int{4}, 10, 20, 30, 40)
	indices := numArray([]int{4}, 0, 1, 0, 1)

	vm.push(A)
	vm.push(indices)
	vm.push(identity)
	if err := vm.collapseGroups("group", groupGroups); err != nil {
		t.Fatalf("group: %v", err)
	}
	grouped := vm.pop()

	vm.push(indices)
	vm.push(A)
	vm.push(grouped)
	vm.push(identity)
	if err := vm.ungroup(); err != nil {
		t.Fatalf("ungroup: %v", err)
	}
	got := vm.pop().(*value.NumberArray)

	if !reflect.DeepEqual(got.Shape, A.Shape) || !reflect.DeepEqual(got.Data, A.Data) {
		t.Errorf("round trip mismatch: got shape %v data %v, want shape %v data %v", got.Shape, got.Data, A.Shape, A.Data)
	}
}

// TestPartitionRunCountMismatch checks spec.md §8's "unpartition succeeds
// iff positive-run count equals the transformed row count" property: giving
// unpartition fewer transformed rows than the markers imply must error
// rather than silently truncate or pad.
func TestPartitionRunCountMismatch(t *testing.T) {
	vm := newTestVM(nil, nil)
	identity := value.PrimitiveFunction(primitive.Identity)
	A := numArray([]int{4}, 1, 2, 3, 4)
	markers := numArray([]int{4}, 1, 1, 2, 2) // 2 positive runs

	// A single transformed row, claiming to replace a partitioned array that
	// actually had 2 groups: must be rejected.
	onlyOneRow := numArray([]int{1}, 9)

	vm.push(markers)
	vm.push(A)
	vm.push(onlyOneRow)
	vm.push(identity)
	if err := vm.unpartition(); err == nil {
		t.Fatal("expected a run-count mismatch error")
	}
}

// buildDoAssembly hand-assembles a condition function g with signature
// (1,2): given a counter V, it returns (V-1, (V-1) != 0). Chained through do
// with f = identity, this counts down to exactly 0 and stops — exercising
// spec.md §8's "do termination" law (condition eventually false) and its
// net-zero-stack-delta check. The original V is discarded (dup/sub/flip/pop)
// so the condition tests the value that's actually left on the stack, not
// the one the loop is about to discard.
func buildDoAssembly() (*compiler.Assembly, value.Function) {
	dup := value.PrimitiveFunction(primitive.Dup)
	sub := value.PrimitiveFunction(primitive.Sub)
	flip := value.PrimitiveFunction(primitive.Flip)
	pop := value.PrimitiveFunction(primitive.Pop)
	ne := value.PrimitiveFunction(primitive.Ne)

	instrs := []compiler.Instr{
		{Op: compiler.OpComment, Text: "g"},
		{Op: compiler.OpPush, Value: dup},
		{Op: compiler.OpCall},
		{Op: compiler.OpConstant, Const: 0}, // 1.0
		{Op: compiler.OpPush, Value: sub},
		{Op: compiler.OpCall},
		{Op: compiler.OpPush, Value: flip},
		{Op: compiler.OpCall},
		{Op: compiler.OpPush, Value: pop},
		{Op: compiler.OpCall},
		{Op: compiler.OpPush, Value: dup},
		{Op: compiler.OpCall},
		{Op: compiler.OpConstant, Const: 1}, // 0.0
		{Op: compiler.OpPush, Value: ne},
		{Op: compiler.OpCall},
		{Op: compiler.OpReturn},
	}
	asm := &compiler.Assembly{
		Instrs:    instrs,
		Constants: []value.Value{value.NewNumber(1), value.NewNumber(0)},
	}
	return asm, value.CodeFunction(0)
}

func TestDoTerminatesWithNetZeroStack(t *testing.T) {
	asm, g := buildDoAssembly()
	vm := New(asm, NewPipedIo(""))
	f := value.PrimitiveFunction(primitive.Identity)

	vm.push(value.NewNumber(3))
	vm.push(g)
	vm.push(f)
	if err := vm.do(); err != nil {
		t.Fatalf("do: %v", err)
	}
	if got := len(vm.stack); got != 1 {
		t.Fatalf("do left %d values on the stack, want 1 (net-zero delta from the single counter pushed in)", got)
	}
	result := vm.stack[0].(*value.NumberArray)
	if result.Data[0] != 0 {
		t.Errorf("countdown terminated at %v, want 0", result.Data[0])
	}
}

// buildRepeatPlus1Assembly builds a curried "(+1)" function: the exact
// 6-instruction shape funcOuter produces for a one-constant, one-primitive
// function body, which invert.go recognizes and inverts to "(-1)".
func buildRepeatPlus1Assembly() (*compiler.Assembly, value.Function) {
	add := value.PrimitiveFunction(primitive.Add)
	instrs := []compiler.Instr{
		{Op: compiler.OpComment, Text: "func"},
		{Op: compiler.OpConstant, Const: 0}, // 1.0
		{Op: compiler.OpPush, Value: add},
		{Op: compiler.OpCall},
		{Op: compiler.OpComment, Text: "end func"},
		{Op: compiler.OpReturn},
	}
	asm := &compiler.Assembly{
		Instrs:    instrs,
		Constants: []value.Value{value.NewNumber(1)},
	}
	return asm, value.CodeFunction(0)
}

// TestRepeatCallsFunctionNTimes is the plain, non-inverted case: repeat
// calls f exactly n times.
func TestRepeatCallsFunctionNTimes(t *testing.T) {
	asm, plus1 := buildRepeatPlus1Assembly()
	vm := New(asm, NewPipedIo(""))

	vm.push(value.NewNumber(0))
	vm.push(value.NewNumber(5))
	vm.push(plus1)
	if err := vm.repeat(); err != nil {
		t.Fatalf("repeat: %v", err)
	}
	got := vm.pop().(*value.NumberArray).Data[0]
	if got != 5 {
		t.Errorf("repeat(+1, 5) from 0 = %v, want 5", got)
	}
}

// TestRepeatNegativeCountUsesInverse exercises spec.md §8's "repeat
// inverse" law and concrete scenario 5: a negative count replaces f with
// its inverse and repeats |n| times, so repeat(-5, +1) from 5 lands back at
// 0 via five applications of -1.
func TestRepeatNegativeCountUsesInverse(t *testing.T) {
	asm, plus1 := buildRepeatPlus1Assembly()
	vm := New(asm, NewPipedIo(""))

	vm.push(value.NewNumber(5))
	vm.push(value.NewNumber(-5))
	vm.push(plus1)
	if err := vm.repeat(); err != nil {
		t.Fatalf("repeat: %v", err)
	}
	got := vm.pop().(*value.NumberArray).Data[0]
	if got != 0 {
		t.Errorf("repeat(-5, +1) from 5 = %v, want 0", got)
	}
}

// TestRepeatNegativeCountWithoutInverseErrors checks that a function with
// no known inverse fails loudly instead of silently doing something wrong.
func TestRepeatNegativeCountWithoutInverseErrors(t *testing.T) {
	vm := newTestVM(nil, nil)
	dup := value.PrimitiveFunction(primitive.Dup)

	vm.push(value.NewNumber(5))
	vm.push(value.NewNumber(-2))
	vm.push(dup)
	if err := vm.repeat(); err == nil {
		t.Fatal("expected an error repeating a negative count of a function with no inverse")
	}
}
