package compiler

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/kelplang/kelp/lang/primitive"
	"github.com/kelplang/kelp/lang/value"
)

// Signature statically infers f's (args, outputs) pair without running it.
// This is not a full Uiua-style dataflow analysis: it folds each
// instruction's own contribution with Signature.Compose, resolving Call by
// requiring (as the compiler's lowering rules guarantee) that the
// immediately preceding instruction is always Push(Function). Recursive
// functions are rejected rather than analyzed, since the real fixed-point
// algorithm is out of scope here; do/group/partition operands in practice
// are never recursive.
func (a *Assembly) Signature(f value.Function) (value.Signature, error) {
	return a.signatureOf(f, map[uint32]bool{})
}

func (a *Assembly) signatureOf(f value.Function, inProgress map[uint32]bool) (value.Signature, error) {
	switch f.Tag {
	case value.FuncSelector:
		return value.Signature{Args: f.Sel.MinInputs(), Outputs: f.Sel.Outputs()}, nil
	case value.FuncPrimitive:
		e := primitive.ByID(f.Prim)
		if e.IsMod {
			return value.Signature{}, fmt.Errorf("signature: modifier %q has no static signature of its own", e.Name)
		}
		return e.Sig, nil
	case value.FuncCode:
		if inProgress[f.Code] {
			starts := maps.Keys(inProgress)
			slices.Sort(starts)
			return value.Signature{}, fmt.Errorf("signature: recursive function at instruction %d has no static signature (cycle through %v)", f.Code, starts)
		}
		inProgress[f.Code] = true
		sig, _, err := a.foldSignature(int(f.Code), OpReturn, inProgress)
		delete(inProgress, f.Code)
		return sig, err
	default:
		return value.Signature{}, fmt.Errorf("signature: unknown function tag %d", f.Tag)
	}
}

// foldSignature folds the net signature of instructions starting at i until
// it reaches stopOp (consumed), returning the signature and the index just
// past the stop instruction.
func (a *Assembly) foldSignature(i int, stopOp Opcode, inProgress map[uint32]bool) (value.Signature, int, error) {
	var sig value.Signature
	for {
		if i >= len(a.Instrs) {
			return value.Signature{}, 0, fmt.Errorf("signature: instruction stream ran off the end while folding")
		}
		instr := a.Instrs[i]
		if instr.Op == stopOp {
			return sig, i + 1, nil
		}
		switch instr.Op {
		case OpComment:
			i++
		case OpConstant:
			sig = sig.Compose(value.Signature{Outputs: 1})
			i++
		case OpPush:
			if i+1 < len(a.Instrs) && a.Instrs[i+1].Op == OpCall {
				f, ok := instr.Value.(value.Function)
				if !ok {
					return value.Signature{}, 0, fmt.Errorf("signature: call target is not a function")
				}
				callee, err := a.signatureOf(f, inProgress)
				if err != nil {
					return value.Signature{}, 0, err
				}
				sig = sig.Compose(callee)
				i += 2
			} else {
				sig = sig.Compose(value.Signature{Outputs: 1})
				i++
			}
		case OpBeginArray:
			inner, next, err := a.foldSignature(i+1, OpEndArray, inProgress)
			if err != nil {
				return value.Signature{}, 0, err
			}
			sig = sig.Compose(value.Signature{Args: inner.Args, Outputs: 1})
			i = next
		case OpBindGlobal:
			sig = sig.Compose(value.Signature{Args: 1})
			i++
		case OpCopyGlobal:
			sig = sig.Compose(value.Signature{Outputs: 1})
			i++
		case OpCall:
			return value.Signature{}, 0, fmt.Errorf("signature: call not immediately preceded by push")
		case OpReturn:
			return value.Signature{}, 0, fmt.Errorf("signature: unexpected return")
		default:
			return value.Signature{}, 0, fmt.Errorf("signature: unhandled opcode %s", instr.Op)
		}
	}
}
