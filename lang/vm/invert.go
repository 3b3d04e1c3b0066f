package vm

import (
	"fmt"

	"github.com/kelplang/kelp/lang/compiler"
	"github.com/kelplang/kelp/lang/primitive"
	"github.com/kelplang/kelp/lang/value"
)

// invert produces the structural reversal of f's effect, as required by
// repeat's negative-count case (spec.md §4.4: "replace f with its inverse").
// Only two shapes are recognized, matching spec.md's note that inverting an
// arbitrary user-defined function is out of scope:
//
//   - f is itself a primitive with a known inverse (bare `+`, `-`, `×`, `÷`).
//   - f is a compiled function whose body is exactly a constant curried into
//     one of those primitives, e.g. "(+1)" compiles to push-1/push-add/call —
//     the shape funcOuter produces for any single-glyph modifier operand that
//     isn't itself trivial. Its inverse swaps in the paired primitive and
//     keeps the same constant, e.g. "(+1)" inverts to "(-1)".
//
// Anything else (a multi-instruction user function, a selector) has no
// inverse here; ok is false and the caller reports that as a repeat error,
// per spec.md's "inverse failure surfaces a diagnostic string" escape hatch.
func (vm *VM) invert(f value.Function) (value.Function, bool) {
	switch f.Tag {
	case value.FuncPrimitive:
		e := primitive.ByID(f.Prim)
		if !e.HasInverse {
			return value.Function{}, false
		}
		return value.PrimitiveFunction(e.Inverse), true

	case value.FuncCode:
		return vm.invertCurriedPrimitive(f)

	default:
		return value.Function{}, false
	}
}

// invertCurriedPrimitive recognizes the exact 6-instruction shape funcOuter
// emits for a function body consisting of one constant followed by one
// primitive call (e.g. the body of "(+1)"):
//
//	comment "func"; constant #k; push <primitive p>; call; comment "end func"; return
//
// and, when p has a known inverse, emits the same shape with p replaced by
// its inverse, appended to the assembly's instruction stream (a called
// function's body can live anywhere in Instrs; it doesn't need to sit in the
// region the compiler originally carved out for function bodies).
func (vm *VM) invertCurriedPrimitive(f value.Function) (value.Function, bool) {
	instrs := vm.Asm.Instrs
	start := int(f.Code)
	if start < 0 || start+6 > len(instrs) {
		return value.Function{}, false
	}
	body := instrs[start : start+6]
	if body[0].Op != compiler.OpComment ||
		body[1].Op != compiler.OpConstant ||
		body[2].Op != compiler.OpPush ||
		body[3].Op != compiler.OpCall ||
		body[4].Op != compiler.OpComment ||
		body[5].Op != compiler.OpReturn {
		return value.Function{}, false
	}
	pushed, ok := body[2].Value.(value.Function)
	if !ok || pushed.Tag != value.FuncPrimitive {
		return value.Function{}, false
	}
	e := primitive.ByID(pushed.Prim)
	if !e.HasInverse {
		return value.Function{}, false
	}

	inverted := make([]compiler.Instr, 6)
	copy(inverted, body)
	inverted[2].Value = value.PrimitiveFunction(e.Inverse)
	newStart := len(vm.Asm.Instrs)
	vm.Asm.Instrs = append(vm.Asm.Instrs, inverted...)
	return value.CodeFunction(uint32(newStart)), true
}

// requireInverse is invert plus the error message repeat and friends report
// on failure.
func (vm *VM) requireInverse(f value.Function) (value.Function, error) {
	inv, ok := vm.invert(f)
	if !ok {
		return value.Function{}, fmt.Errorf("requires an invertible function, and this one has no known inverse (only bare +, -, ×, ÷ and a single constant curried into one of them do)")
	}
	return inv, nil
}
