package value

import (
	"fmt"
	"strings"

	"github.com/dolthub/maphash"

	"github.com/kelplang/kelp/lang/token"
)

// selectorHasher is shared across calls: maphash.NewHasher builds one seeded
// hash.Hash64 per comparable type, and reusing it avoids reseeding on every
// Selector.Hash call.
var selectorHasher = maphash.NewHasher[Selector]()

// Hash returns a process-local hash of s, stable across calls within one
// run (but not across runs — maphash seeds per process). Used by callers
// that want a Selector-keyed set or cache without pulling in the full
// swiss.Map machinery for a 5-byte key.
func (s Selector) Hash() uint64 { return selectorHasher.Hash(s) }

// PrimitiveID is an opaque reference into the primitive table (lang/primitive).
// value deliberately does not depend on lang/primitive to avoid an import
// cycle; lang/primitive depends on value instead.
type PrimitiveID uint16

// FuncTag discriminates the three ways a Function can be realized, packed
// into the Function struct below. The packed encoding mirrors the
// tag-byte/payload layout documented in spec.md §4.1; Go does not need the
// bit-for-bit 6-byte form (see spec.md's "tagged function packing" design
// note), so Function is a plain comparable struct instead of a NaN-boxed
// word, but the three variants and their payload widths are preserved.
type FuncTag uint8

const (
	FuncCode FuncTag = iota
	FuncPrimitive
	FuncSelector
)

// Function is one of Code(start)/Primitive(id)/Selector(pattern). It is
// comparable and hashable, so it can be used as a map key (e.g. the
// Assembly's function-id index) without a custom Equal/Hash pair.
type Function struct {
	Tag  FuncTag
	Code uint32      // valid when Tag == FuncCode: index into Assembly.Instrs
	Prim PrimitiveID // valid when Tag == FuncPrimitive
	Sel  Selector    // valid when Tag == FuncSelector
}

var (
	_ Value = Function{}
)

func (f Function) Kind() Kind     { return KindFunction }
func (f Function) Shape() []int   { return nil }
func (f Function) Len() int       { return 1 }
func (f Function) RowCount() int  { return 1 }
func (f Function) Rank() int      { return 0 }
func (f Function) Row(int) Value  { return f }

func (f Function) String() string {
	switch f.Tag {
	case FuncCode:
		return fmt.Sprintf("(%d)", f.Code)
	case FuncPrimitive:
		return fmt.Sprintf("prim(%d)", f.Prim)
	case FuncSelector:
		return f.Sel.String()
	default:
		return "<invalid function>"
	}
}

// CodeFunction builds a Function referring to a compiled code block starting
// at the given instruction index.
func CodeFunction(start uint32) Function { return Function{Tag: FuncCode, Code: start} }

// PrimitiveFunction builds a Function wrapping a built-in primitive.
func PrimitiveFunction(id PrimitiveID) Function { return Function{Tag: FuncPrimitive, Prim: id} }

// SelectorFunction builds a Function wrapping a stack selector.
func SelectorFunction(s Selector) Function { return Function{Tag: FuncSelector, Sel: s} }

// Selector is a fixed 5-byte stack rearrangement pattern: each non-zero byte
// is a 1-based stack-slot digit (1..=5), terminated by the first zero byte.
// See spec.md §4.1.
type Selector [5]byte

// MinInputs is the number of stack items the selector inspects: the largest
// digit it mentions.
func (s Selector) MinInputs() int {
	max := 0
	for _, d := range s {
		if int(d) > max {
			max = int(d)
		}
	}
	return max
}

// Outputs is the number of values the selector produces: the count of
// non-zero bytes.
func (s Selector) Outputs() int {
	for i, d := range s {
		if d == 0 {
			return i
		}
	}
	return len(s)
}

// OutputIndices yields, in order, the 0-based input index (digit-1, counted
// from the deepest of the MinInputs inputs) that each output slot is drawn
// from.
func (s Selector) OutputIndices() []int {
	out := make([]int, 0, len(s))
	for _, d := range s {
		if d == 0 {
			break
		}
		out = append(out, int(d)-1)
	}
	return out
}

func (s Selector) String() string {
	var sb strings.Builder
	for _, d := range s {
		if d == 0 {
			break
		}
		sb.WriteByte('a' + d - 1)
	}
	return sb.String()
}

// ParseSelector parses a selector's text form: 1 to 5 characters drawn from
// 'a'..='e'. It rejects the empty string, strings longer than 5 characters,
// and any character outside that range.
func ParseSelector(s string) (Selector, bool) {
	var sel Selector
	if len(s) == 0 || len(s) > len(sel) {
		return sel, false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 'a' || c > 'e' {
			return Selector{}, false
		}
		sel[i] = c - 'a' + 1
	}
	return sel, true
}

// FunctionIDKind discriminates the four ways a function can be named for
// diagnostic and lookup purposes, independent of its runtime Function handle.
type FunctionIDKind uint8

const (
	FuncIDNamed FunctionIDKind = iota
	FuncIDAnonymous
	FuncIDFormatString
	FuncIDPrimitive
)

// FunctionID is a Function's logical identity, used as the value type of the
// Assembly's function-id index (keyed by the comparable Function itself).
type FunctionID struct {
	Kind FunctionIDKind
	Name string      // valid for Named
	Span token.Span  // valid for Anonymous, FormatString
	Prim PrimitiveID // valid for Primitive
}

func NamedID(name string) FunctionID          { return FunctionID{Kind: FuncIDNamed, Name: name} }
func AnonymousID(span token.Span) FunctionID  { return FunctionID{Kind: FuncIDAnonymous, Span: span} }
func FormatStringID(span token.Span) FunctionID {
	return FunctionID{Kind: FuncIDFormatString, Span: span}
}
func PrimitiveFuncID(id PrimitiveID) FunctionID { return FunctionID{Kind: FuncIDPrimitive, Prim: id} }

func (id FunctionID) String() string {
	switch id.Kind {
	case FuncIDNamed:
		return fmt.Sprintf("`%s`", id.Name)
	case FuncIDAnonymous:
		return fmt.Sprintf("fn at %s", id.Span)
	case FuncIDFormatString:
		return fmt.Sprintf("format string at %s", id.Span)
	case FuncIDPrimitive:
		return fmt.Sprintf("primitive(%d)", id.Prim)
	default:
		return "<invalid function id>"
	}
}
