// Package primitive is the table of built-in operations: their identity,
// source-level names, static signatures, and (for the non-modifier ones) a
// pervasive kernel implementation. The bit-level pervasive kernel table is
// explicitly out of scope per spec.md §1; what follows is a representative
// subset large enough to exercise the compiler and VM end to end, not an
// attempt at the full Uiua primitive set.
//
// Modifiers (repeat, do, partition, unpartition, group, ungroup, reduce,
// level) are
// listed here for their identity and name only: their behavior re-enters the
// VM and lives in lang/vm, not in a Kernel func, because a pure
// []value.Value -> []value.Value function cannot call back into the
// interpreter.
package primitive

import (
	"fmt"

	"github.com/kelplang/kelp/lang/value"
)

// ID identifies a single built-in primitive. The zero value is Identity.
type ID = value.PrimitiveID

// Kernel is a pervasive, non-modifier primitive implementation: given its
// popped arguments (in push order: args[0] is the deepest), it returns its
// results (in push order: results[len-1] is pushed last, ending on top).
type Kernel func(args []value.Value) ([]value.Value, error)

// Entry describes one primitive.
type Entry struct {
	ID     ID
	Name   string // source identifier, e.g. "add"; empty for glyph-only prims
	Symbol string // short display form, e.g. "+"
	Sig    value.Signature
	IsMod  bool // true for repeat/do/partition/unpartition/group/ungroup/reduce/level
	Kernel Kernel

	// HasInverse and Inverse record the primitive this one undoes when
	// curried by a constant, e.g. (+1) inverts to (-1). Used by repeat's
	// negative-count case (spec's "replace f with its inverse"); only the
	// pervasive arithmetic pairs declare one, matching spec.md's note that
	// inversion of an arbitrary user function is out of scope.
	HasInverse bool
	Inverse    ID
}

// Primitive IDs. Arithmetic and comparisons are pervasive (element-wise with
// scalar broadcasting, see pervasiveBinary in kernels.go).
const (
	Identity ID = iota
	Pop
	Dup
	Flip
	Add
	Sub
	Mul
	Div
	Neg
	Not
	Eq
	Ne
	Lt
	Gt
	Le
	Ge
	First
	Length
	Shape
	Reverse

	// modifiers
	Repeat
	Do
	Partition
	Unpartition
	Group
	Ungroup
	Reduce
	Level

	numPrimitives
)

var table [numPrimitives]Entry

func def(e Entry) { table[e.ID] = e }

func init() {
	def(Entry{ID: Identity, Name: "identity", Symbol: "∘", Sig: value.Signature{Args: 1, Outputs: 1}, Kernel: kIdentity})
	def(Entry{ID: Pop, Name: "pop", Symbol: ";", Sig: value.Signature{Args: 1, Outputs: 0}, Kernel: kPop})
	def(Entry{ID: Dup, Name: "dup", Symbol: ".", Sig: value.Signature{Args: 1, Outputs: 2}, Kernel: kDup})
	def(Entry{ID: Flip, Name: "flip", Symbol: ":", Sig: value.Signature{Args: 2, Outputs: 2}, Kernel: kFlip})
	def(Entry{ID: Add, Name: "add", Symbol: "+", Sig: value.Signature{Args: 2, Outputs: 1}, Kernel: kAdd, HasInverse: true, Inverse: Sub})
	def(Entry{ID: Sub, Name: "sub", Symbol: "-", Sig: value.Signature{Args: 2, Outputs: 1}, Kernel: kSub, HasInverse: true, Inverse: Add})
	def(Entry{ID: Mul, Name: "mul", Symbol: "×", Sig: value.Signature{Args: 2, Outputs: 1}, Kernel: kMul, HasInverse: true, Inverse: Div})
	def(Entry{ID: Div, Name: "div", Symbol: "÷", Sig: value.Signature{Args: 2, Outputs: 1}, Kernel: kDiv, HasInverse: true, Inverse: Mul})
	def(Entry{ID: Neg, Name: "neg", Symbol: "¯", Sig: value.Signature{Args: 1, Outputs: 1}, Kernel: kNeg})
	def(Entry{ID: Not, Name: "not", Symbol: "¬", Sig: value.Signature{Args: 1, Outputs: 1}, Kernel: kNot})
	def(Entry{ID: Eq, Name: "eq", Symbol: "=", Sig: value.Signature{Args: 2, Outputs: 1}, Kernel: kEq})
	def(Entry{ID: Ne, Name: "ne", Symbol: "≠", Sig: value.Signature{Args: 2, Outputs: 1}, Kernel: kNe})
	def(Entry{ID: Lt, Name: "lt", Symbol: "<", Sig: value.Signature{Args: 2, Outputs: 1}, Kernel: kLt})
	def(Entry{ID: Gt, Name: "gt", Symbol: ">", Sig: value.Signature{Args: 2, Outputs: 1}, Kernel: kGt})
	def(Entry{ID: Le, Name: "le", Symbol: "≤", Sig: value.Signature{Args: 2, Outputs: 1}, Kernel: kLe})
	def(Entry{ID: Ge, Name: "ge", Symbol: "≥", Sig: value.Signature{Args: 2, Outputs: 1}, Kernel: kGe})
	def(Entry{ID: First, Name: "first", Symbol: "⊢", Sig: value.Signature{Args: 1, Outputs: 1}, Kernel: kFirst})
	def(Entry{ID: Length, Name: "len", Symbol: "⧻", Sig: value.Signature{Args: 1, Outputs: 1}, Kernel: kLength})
	def(Entry{ID: Shape, Name: "shape", Symbol: "△", Sig: value.Signature{Args: 1, Outputs: 1}, Kernel: kShape})
	def(Entry{ID: Reverse, Name: "reverse", Symbol: "⇌", Sig: value.Signature{Args: 1, Outputs: 1}, Kernel: kReverse})

	def(Entry{ID: Repeat, Name: "repeat", Symbol: "⍥", IsMod: true})
	def(Entry{ID: Do, Name: "do", Symbol: "⍢", IsMod: true})
	def(Entry{ID: Partition, Name: "partition", Symbol: "⊜", IsMod: true})
	def(Entry{ID: Unpartition, Name: "unpartition", Symbol: "°⊜", IsMod: true})
	def(Entry{ID: Group, Name: "group", Symbol: "⊕", IsMod: true})
	def(Entry{ID: Ungroup, Name: "ungroup", Symbol: "°⊕", IsMod: true})
	def(Entry{ID: Reduce, Name: "reduce", Symbol: "/", IsMod: true})
	def(Entry{ID: Level, Name: "level", Symbol: "⍚", IsMod: true})
}

// All returns every primitive entry, in ID order.
func All() []Entry { return table[:] }

// ByID returns the entry for id. It panics if id is out of range, which can
// only happen for a malformed Function value (a compiler invariant
// violation, not a runtime condition).
func ByID(id ID) Entry {
	if int(id) >= len(table) {
		panic(fmt.Sprintf("primitive: invalid id %d", id))
	}
	return table[id]
}

// ByName looks up a primitive by its source identifier (e.g. "add"), used by
// the compiler when an identifier is otherwise unbound.
func ByName(name string) (Entry, bool) {
	for _, e := range table {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}
