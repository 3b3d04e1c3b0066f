package compiler

import (
	"fmt"

	"github.com/kelplang/kelp/lang/token"
	"github.com/kelplang/kelp/lang/value"
)

// Opcode is the VM's entire instruction alphabet. There are no jumps or
// branches: every instruction either pushes/pops/calls or manages array and
// global bookkeeping. Looping and grouping are algorithms inside the VM's
// modifier dispatch (lang/vm), not control flow in this stream.
type Opcode int

const (
	OpPush       Opcode = iota // push Value immediately (functions, small literals)
	OpConstant                 // push Constants[Const]
	OpCall                     // pop a Function, invoke it
	OpReturn                   // return from the current function
	OpBeginArray               // mark the current stack depth
	OpEndArray                 // collect everything above the last BeginArray mark into one array
	OpBindGlobal               // pop the stack top into Globals[Global]
	OpCopyGlobal               // push a copy of Globals[Global]
	OpComment                  // no-op, carries a human-readable label for dumps/diagnostics
)

func (op Opcode) String() string {
	switch op {
	case OpPush:
		return "push"
	case OpConstant:
		return "constant"
	case OpCall:
		return "call"
	case OpReturn:
		return "return"
	case OpBeginArray:
		return "begin_array"
	case OpEndArray:
		return "end_array"
	case OpBindGlobal:
		return "bind_global"
	case OpCopyGlobal:
		return "copy_global"
	case OpComment:
		return "comment"
	default:
		return fmt.Sprintf("opcode(%d)", int(op))
	}
}

// Instr is a single instruction. Only the fields relevant to Op are
// meaningful; see Opcode's doc comments.
type Instr struct {
	Op   Opcode
	Span token.Span

	Value value.Value // OpPush

	Const int // OpConstant: index into Assembly.Constants

	FuncArray bool // OpEndArray: true if this array is a function array (boxes of callables)

	Name   string // OpBindGlobal: source name, for diagnostics
	Global int    // OpBindGlobal, OpCopyGlobal: slot index into the VM's Globals

	Text string // OpComment
}

func (i Instr) String() string {
	switch i.Op {
	case OpPush:
		return fmt.Sprintf("push %s", i.Value)
	case OpConstant:
		return fmt.Sprintf("constant #%d", i.Const)
	case OpCall:
		return "call"
	case OpReturn:
		return "return"
	case OpBeginArray:
		return "begin_array"
	case OpEndArray:
		if i.FuncArray {
			return "end_array (func)"
		}
		return "end_array"
	case OpBindGlobal:
		return fmt.Sprintf("bind_global %s (#%d)", i.Name, i.Global)
	case OpCopyGlobal:
		return fmt.Sprintf("copy_global #%d", i.Global)
	case OpComment:
		return fmt.Sprintf("; %s", i.Text)
	default:
		return i.Op.String()
	}
}
