// Package vm executes a lang/compiler.Assembly. The instruction alphabet has
// no jumps or branches, so the dispatch loop is just a program counter plus
// a return-address stack for Call/Return; all looping and grouping lives in
// the modifier implementations in modifiers.go, which re-enter the loop via
// Call.
package vm

import (
	"fmt"
	"math"

	"github.com/kelplang/kelp/lang/compiler"
	"github.com/kelplang/kelp/lang/primitive"
	"github.com/kelplang/kelp/lang/value"
)

// RuntimeError reports a failure with the source span active when it
// occurred.
type RuntimeError struct {
	Span string
	Msg  string
}

func (e *RuntimeError) Error() string { return fmt.Sprintf("%s: %s", e.Span, e.Msg) }

// VM holds the interpreter's mutable state: the value stack, named globals,
// and array-literal bookkeeping. It is single-threaded by design (spec
// Non-goal); concurrency, where used at all, lives one layer up in the CLI's
// multi-file loading.
type VM struct {
	Asm     *compiler.Assembly
	Globals []value.Value
	IO      IO

	// MaxSteps caps the number of instructions Run will execute before
	// aborting with an error, guarding the embedding CLI against a runaway
	// repeat/do loop. Zero means unlimited.
	MaxSteps int

	stack      []value.Value
	arrayMarks []int
	frames     []int // return addresses
	steps      int
}

func New(asm *compiler.Assembly, io IO) *VM {
	return &VM{
		Asm:     asm,
		Globals: make([]value.Value, len(asm.Globals)),
		IO:      io,
	}
}

// Stack returns the current value stack, bottom first.
func (vm *VM) Stack() []value.Value { return vm.stack }

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() value.Value {
	if len(vm.stack) == 0 {
		panic(vm.runtimeErrorAt(0, "stack underflow"))
	}
	n := len(vm.stack) - 1
	v := vm.stack[n]
	vm.stack = vm.stack[:n]
	return v
}

func (vm *VM) popN(n int) []value.Value {
	if n == 0 {
		return nil
	}
	out := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = vm.pop()
	}
	return out
}

func (vm *VM) popFunction() value.Function {
	v := vm.pop()
	f, ok := v.(value.Function)
	if !ok {
		panic(vm.runtimeErrorAt(0, fmt.Sprintf("expected a function, got %s", v.Kind())))
	}
	return f
}

// cloneTop pushes copies of the top n stack values without removing the
// originals, used by the do modifier to re-present its condition function's
// inputs on each iteration.
func (vm *VM) cloneTop(n int) {
	if n == 0 {
		return
	}
	top := vm.stack[len(vm.stack)-n:]
	cp := append([]value.Value(nil), top...)
	vm.stack = append(vm.stack, cp...)
}

func (vm *VM) runtimeErrorAt(pc int, msg string) *RuntimeError {
	span := "<unknown>"
	if pc >= 0 && pc < len(vm.Asm.Instrs) {
		span = vm.Asm.Instrs[pc].Span.String()
	}
	return &RuntimeError{Span: span, Msg: msg}
}

// Run executes instructions in [start, end), treating any Call that lands
// below start (i.e. inside the function region) as a normal call that
// returns back into range. It stops once pc reaches end with no pending
// call frames.
func (vm *VM) Run(start, end int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(*RuntimeError); ok {
				err = rerr
				return
			}
			panic(r)
		}
	}()

	pc := start
	for {
		if pc >= end && len(vm.frames) == 0 {
			return nil
		}
		if pc < 0 || pc >= len(vm.Asm.Instrs) {
			return vm.runtimeErrorAt(pc, "program counter ran off the end of the assembly")
		}
		if vm.MaxSteps > 0 {
			vm.steps++
			if vm.steps > vm.MaxSteps {
				return vm.runtimeErrorAt(pc, fmt.Sprintf("exceeded max steps (%d)", vm.MaxSteps))
			}
		}
		instr := vm.Asm.Instrs[pc]
		switch instr.Op {
		case compiler.OpComment:
			pc++
		case compiler.OpPush:
			vm.push(instr.Value)
			pc++
		case compiler.OpConstant:
			vm.push(vm.Asm.Constants[instr.Const])
			pc++
		case compiler.OpBeginArray:
			vm.arrayMarks = append(vm.arrayMarks, len(vm.stack))
			pc++
		case compiler.OpEndArray:
			n := len(vm.arrayMarks) - 1
			mark := vm.arrayMarks[n]
			vm.arrayMarks = vm.arrayMarks[:n]
			rows := append([]value.Value(nil), vm.stack[mark:]...)
			vm.stack = vm.stack[:mark]
			if instr.FuncArray {
				vm.push(&value.BoxArray{Shape: []int{len(rows)}, Data: rows})
			} else {
				v, ferr := value.FromRowValues(rows)
				if ferr != nil {
					return &RuntimeError{Span: instr.Span.String(), Msg: ferr.Error()}
				}
				vm.push(v)
			}
			pc++
		case compiler.OpBindGlobal:
			v := vm.pop()
			vm.ensureGlobal(instr.Global)
			vm.Globals[instr.Global] = v
			pc++
		case compiler.OpCopyGlobal:
			vm.ensureGlobal(instr.Global)
			vm.push(vm.Globals[instr.Global])
			pc++
		case compiler.OpCall:
			f := vm.popFunction()
			next, cerr := vm.dispatch(f, instr)
			if cerr != nil {
				return cerr
			}
			if next >= 0 {
				vm.frames = append(vm.frames, pc+1)
				pc = next
				continue
			}
			pc++
		case compiler.OpReturn:
			if len(vm.frames) == 0 {
				return nil
			}
			n := len(vm.frames) - 1
			pc = vm.frames[n]
			vm.frames = vm.frames[:n]
		default:
			return vm.runtimeErrorAt(pc, fmt.Sprintf("unhandled opcode %s", instr.Op))
		}
	}
}

func (vm *VM) ensureGlobal(slot int) {
	for len(vm.Globals) <= slot {
		vm.Globals = append(vm.Globals, nil)
	}
}

// dispatch executes a called function. For FuncCode it returns the target
// instruction index (the caller pushes a return address and jumps); for
// everything else it runs to completion inline and returns -1.
func (vm *VM) dispatch(f value.Function, instr compiler.Instr) (next int, err error) {
	switch f.Tag {
	case value.FuncCode:
		return int(f.Code), nil
	case value.FuncSelector:
		return -1, vm.callSelector(f.Sel)
	case value.FuncPrimitive:
		e := primitive.ByID(f.Prim)
		if e.IsMod {
			return -1, vm.callModifier(e.ID, instr)
		}
		args := vm.popN(e.Sig.Args)
		results, kerr := e.Kernel(args)
		if kerr != nil {
			return -1, &RuntimeError{Span: instr.Span.String(), Msg: kerr.Error()}
		}
		for _, r := range results {
			vm.push(r)
		}
		return -1, nil
	default:
		return -1, &RuntimeError{Span: instr.Span.String(), Msg: "invalid function tag"}
	}
}

// call invokes f and runs it to completion (including, for FuncCode, a full
// nested Run over its body), used by modifiers re-entering the VM. It is
// exported in spirit (lowercase, but the only entry point modifiers.go
// needs) rather than in name, since only this package calls it.
func (vm *VM) call(f value.Function) error {
	switch f.Tag {
	case value.FuncCode:
		savedFrames := vm.frames
		vm.frames = nil
		// end is set past the whole stream: a called function's body always
		// terminates via its own trailing Return, which this sub-run sees
		// with an empty frame stack (since we just cleared it) and reports
		// as done — the pc/end race only matters for top-level ranges that
		// have no trailing Return of their own.
		err := vm.Run(int(f.Code), len(vm.Asm.Instrs))
		vm.frames = savedFrames
		return err
	case value.FuncSelector:
		return vm.callSelector(f.Sel)
	case value.FuncPrimitive:
		e := primitive.ByID(f.Prim)
		if e.IsMod {
			return vm.callModifier(e.ID, compiler.Instr{})
		}
		args := vm.popN(e.Sig.Args)
		results, err := e.Kernel(args)
		if err != nil {
			return err
		}
		for _, r := range results {
			vm.push(r)
		}
		return nil
	default:
		return fmt.Errorf("invalid function tag")
	}
}

// callSelector applies a stack permutation/duplication selector: for each
// output position left to right, it copies the stack value min_inputs-digit
// positions deep (digit 1 = the deepest required input).
func (vm *VM) callSelector(sel value.Selector) error {
	n := sel.MinInputs()
	if len(vm.stack) < n {
		return fmt.Errorf("selector %s needs %d inputs, stack has %d", sel.String(), n, len(vm.stack))
	}
	base := len(vm.stack) - n
	inputs := vm.stack[base:]
	var out []value.Value
	for _, b := range sel {
		if b == 0 {
			break
		}
		out = append(out, inputs[int(b)-1])
	}
	vm.stack = vm.stack[:base]
	vm.stack = append(vm.stack, out...)
	return nil
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// scalarFloat extracts a single float64 from a scalar numeric value, as
// required by repeat's count and do's condition.
func scalarFloat(v value.Value) (float64, error) {
	switch a := v.(type) {
	case *value.NumberArray:
		if len(a.Data) != 1 {
			return 0, fmt.Errorf("expected a single number, got shape %v", a.Shape)
		}
		return a.Data[0], nil
	case *value.ByteArray:
		if len(a.Data) != 1 {
			return 0, fmt.Errorf("expected a single number, got shape %v", a.Shape)
		}
		return float64(a.Data[0]), nil
	default:
		return 0, fmt.Errorf("expected a number, got %s", v.Kind())
	}
}

// truthy interprets do's loop condition. The condition must be exactly 0 or
// 1 — any other scalar (2, -1, 0.5, ...) is a type error, not "truthy".
func truthy(v value.Value) (bool, error) {
	f, err := scalarFloat(v)
	if err != nil {
		return false, fmt.Errorf("expected a boolean condition: %w", err)
	}
	switch f {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("expected a boolean condition (0 or 1), got %v", f)
	}
}

func valueToInts(v value.Value) ([]int, error) {
	switch a := v.(type) {
	case *value.NumberArray:
		out := make([]int, len(a.Data))
		for i, f := range a.Data {
			if math.Trunc(f) != f {
				return nil, fmt.Errorf("expected a list of integers, got %v", f)
			}
			out[i] = int(f)
		}
		return out, nil
	case *value.ByteArray:
		out := make([]int, len(a.Data))
		for i, b := range a.Data {
			out[i] = int(b)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list of integers, got %s", v.Kind())
	}
}
