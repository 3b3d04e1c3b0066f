// Package compiler lowers a lang/ast.Chunk into a flat lang/compiler.Assembly
// for lang/vm to run. It resolves every identifier at compile time — against
// user bindings, then primitives, then selector syntax — so the VM never
// does name lookup itself.
package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dolthub/swiss"
	"golang.org/x/exp/slices"

	"github.com/kelplang/kelp/lang/ast"
	"github.com/kelplang/kelp/lang/parser"
	"github.com/kelplang/kelp/lang/primitive"
	"github.com/kelplang/kelp/lang/token"
	"github.com/kelplang/kelp/lang/value"
)

// CompileError aggregates every error produced while compiling one Load, so
// a caller sees all of them at once instead of stopping at the first.
type CompileError struct {
	Errors []error
}

func (e *CompileError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "\n")
}

func (e *CompileError) Unwrap() []error { return e.Errors }

type bindKind int

const (
	bindFunc bindKind = iota
	bindGlobal
)

type binding struct {
	kind bindKind
	fn   value.Function // bindFunc
	slot int            // bindGlobal: index into Globals
}

// Compiler incrementally lowers chunks of source into a growing Assembly. It
// is safe to call Load multiple times (as a REPL does) before calling
// Finish.
//
// Functions are compiled into their own temporary buffer (bufStack) and
// flushed into funcInstrs as one contiguous block only once complete. This
// matters: without it, a function literal nested inside another function's
// body would interleave its instructions into the enclosing function's
// straight-line stream, and the VM's jump-free execution model would fall
// through into code that should only ever run via an explicit Call.
type Compiler struct {
	funcInstrs []Instr
	topInstrs  []Instr
	bufStack   [][]Instr

	constants []value.Value
	globals   []string

	bindings    *swiss.Map[string, binding]
	functionIDs *swiss.Map[value.Function, value.FunctionID]

	spans []token.Span

	pending []error // accumulated during the Load currently in progress
}

func New() *Compiler {
	c := &Compiler{
		bindings:    swiss.NewMap[string, binding](64),
		functionIDs: swiss.NewMap[value.Function, value.FunctionID](64),
		spans:       []token.Span{token.Builtin},
	}
	for _, e := range primitive.All() {
		f := value.PrimitiveFunction(e.ID)
		c.functionIDs.Put(f, value.PrimitiveFuncID(e.ID))
	}
	return c
}

// Bindings returns the names currently bound at top level, sorted, for
// REPL introspection and diagnostic dumps. The underlying swiss.Map has no
// stable iteration order, so callers that need one always go through this.
func (c *Compiler) Bindings() []string {
	names := make([]string, 0, 16)
	c.bindings.Iter(func(k string, _ binding) bool {
		names = append(names, k)
		return false
	})
	slices.Sort(names)
	return names
}

// snapshot captures enough state to undo a failed Load.
type snapshot struct {
	funcLen, topLen, constLen, globalLen int
	names                                []string // bindings added since snapshot
	bindings                             map[string]binding
	ids                                  map[value.Function]value.FunctionID
}

func (c *Compiler) snap() *snapshot {
	s := &snapshot{
		funcLen:   len(c.funcInstrs),
		topLen:    len(c.topInstrs),
		constLen:  len(c.constants),
		globalLen: len(c.globals),
		bindings:  make(map[string]binding),
		ids:       make(map[value.Function]value.FunctionID),
	}
	c.bindings.Iter(func(k string, b binding) bool { s.bindings[k] = b; return false })
	c.functionIDs.Iter(func(f value.Function, id value.FunctionID) bool { s.ids[f] = id; return false })
	return s
}

func (c *Compiler) rollback(s *snapshot) {
	c.funcInstrs = c.funcInstrs[:s.funcLen]
	c.topInstrs = c.topInstrs[:s.topLen]
	c.constants = c.constants[:s.constLen]
	c.globals = c.globals[:s.globalLen]
	for _, name := range s.names {
		if b, ok := s.bindings[name]; ok {
			c.bindings.Put(name, b)
		} else {
			c.bindings.Delete(name)
		}
	}
	c.functionIDs = swiss.NewMap[value.Function, value.FunctionID](uint32(len(s.ids)))
	for f, id := range s.ids {
		c.functionIDs.Put(f, id)
	}
}

// Load parses and compiles one chunk of source. If any error occurs —
// parse or compile — none of the chunk's effects are kept: Load either
// fully succeeds or leaves the Compiler exactly as it was.
func (c *Compiler) Load(file, src string) error {
	chunk, errs := parser.Parse(file, src)
	if len(errs) > 0 {
		return &CompileError{Errors: errs}
	}

	s := c.snap()
	c.pending = nil
	for _, item := range chunk.Items {
		c.compileItem(item, &s.names)
	}
	if len(c.pending) > 0 {
		err := &CompileError{Errors: c.pending}
		c.rollback(s)
		c.pending = nil
		return err
	}
	return nil
}

// Eval compiles src and returns the resulting Assembly along with the
// instruction range ([start,end)) of the newly added top-level code, so a
// REPL can execute just that range.
func (c *Compiler) Eval(file, src string) (asm *Assembly, start, end int, err error) {
	beforeTop := len(c.topInstrs)
	if err := c.Load(file, src); err != nil {
		return nil, 0, 0, err
	}
	asm = c.Finish()
	start = int(asm.Start) + beforeTop
	end = len(asm.Instrs)
	return asm, start, end, nil
}

// Finish assembles everything compiled so far into an Assembly. It may be
// called repeatedly (e.g. after each REPL Eval).
func (c *Compiler) Finish() *Assembly {
	instrs := make([]Instr, 0, len(c.funcInstrs)+len(c.topInstrs))
	instrs = append(instrs, c.funcInstrs...)
	instrs = append(instrs, c.topInstrs...)
	return &Assembly{
		Instrs:      instrs,
		Start:       uint32(len(c.funcInstrs)),
		Constants:   append([]value.Value(nil), c.constants...),
		Globals:     append([]string(nil), c.globals...),
		FunctionIDs: c.functionIDs,
		Spans:       append([]token.Span(nil), c.spans...),
	}
}

func (c *Compiler) errorf(span token.Span, format string, args ...interface{}) {
	c.pending = append(c.pending, fmt.Errorf("%s: %s", span, fmt.Sprintf(format, args...)))
}

// emit appends to whichever buffer is currently active: the innermost
// in-progress function, or top-level code if none is in progress.
func (c *Compiler) emit(i Instr) {
	if n := len(c.bufStack); n > 0 {
		c.bufStack[n-1] = append(c.bufStack[n-1], i)
		return
	}
	c.topInstrs = append(c.topInstrs, i)
}

func (c *Compiler) compileItem(item ast.Item, added *[]string) {
	switch item.Kind {
	case ast.ItemWords:
		c.words(item.Words)
	case ast.ItemBinding:
		c.compileBinding(item.Binding, added)
	}
}

func (c *Compiler) compileBinding(b *ast.Binding, added *[]string) {
	if ast.IsCapitalized(b.Name) {
		fn := c.funcOuter(b.NameSpan, b.Words)
		c.bindings.Put(b.Name, binding{kind: bindFunc, fn: fn})
		c.functionIDs.Put(fn, value.NamedID(b.Name))
		*added = append(*added, b.Name)
		return
	}
	c.words(b.Words)
	slot := len(c.globals)
	c.globals = append(c.globals, b.Name)
	c.emit(Instr{Op: OpBindGlobal, Span: b.NameSpan, Name: b.Name, Global: slot})
	c.bindings.Put(b.Name, binding{kind: bindGlobal, slot: slot})
	*added = append(*added, b.Name)
}

// words compiles ws right-to-left: the language evaluates right to left,
// but the VM always executes its instruction stream left to right, so the
// rightmost word is lowered (and therefore runs) first.
func (c *Compiler) words(ws []ast.Word) {
	for i := len(ws) - 1; i >= 0; i-- {
		c.word(ws[i])
	}
}

func (c *Compiler) word(w ast.Word) {
	switch w.Kind {
	case ast.WNumber:
		idx := c.intern(value.NewNumber(w.Number))
		c.emit(Instr{Op: OpConstant, Span: w.Span, Const: idx})
	case ast.WChar:
		idx := c.intern(value.NewChar(w.Char))
		c.emit(Instr{Op: OpConstant, Span: w.Span, Const: idx})
	case ast.WString:
		idx := c.intern(value.NewString(w.Str))
		c.emit(Instr{Op: OpConstant, Span: w.Span, Const: idx})
	case ast.WIdent, ast.WPrimitive:
		c.applyIdent(w)
	case ast.WArray:
		c.emit(Instr{Op: OpBeginArray, Span: w.Span})
		c.words(w.Items)
		c.emit(Instr{Op: OpEndArray, Span: w.Span})
	case ast.WStrand:
		c.emit(Instr{Op: OpBeginArray, Span: w.Span})
		c.words(w.Items)
		c.emit(Instr{Op: OpEndArray, Span: w.Span})
	case ast.WFunc:
		fn := c.funcOuter(w.Span, w.Func.Body)
		c.emit(Instr{Op: OpPush, Span: w.Span, Value: fn})
	case ast.WFuncArray:
		c.emit(Instr{Op: OpBeginArray, Span: w.Span})
		for i := len(w.Funcs) - 1; i >= 0; i-- {
			fn := c.funcOuter(w.Funcs[i].Span, w.Funcs[i].Body)
			c.emit(Instr{Op: OpPush, Span: w.Funcs[i].Span, Value: fn})
		}
		c.emit(Instr{Op: OpEndArray, Span: w.Span, FuncArray: true})
	case ast.WModified:
		c.modified(w)
	default:
		c.errorf(w.Span, "unhandled word kind %d", w.Kind)
	}
}

func (c *Compiler) intern(v value.Value) int {
	c.constants = append(c.constants, v)
	return len(c.constants) - 1
}

// applyIdent resolves w (an identifier or bare primitive reference) and
// emits code to invoke it: Push(function) followed by Call, or CopyGlobal
// for a global value binding. Resolution
// order: user bindings, then primitives by name, then selector syntax;
// anything else is an UnknownBinding error.
func (c *Compiler) applyIdent(w ast.Word) {
	name := w.Ident
	if b, ok := c.bindings.Get(name); ok {
		switch b.kind {
		case bindFunc:
			c.emit(Instr{Op: OpPush, Span: w.Span, Value: b.fn})
			c.emit(Instr{Op: OpCall, Span: w.Span})
		case bindGlobal:
			c.emit(Instr{Op: OpCopyGlobal, Span: w.Span, Global: b.slot})
		}
		return
	}
	if e, ok := primitive.ByName(name); ok {
		fn := value.PrimitiveFunction(e.ID)
		c.emit(Instr{Op: OpPush, Span: w.Span, Value: fn})
		c.emit(Instr{Op: OpCall, Span: w.Span})
		return
	}
	if sel, ok := value.ParseSelector(name); ok {
		fn := value.SelectorFunction(sel)
		c.emit(Instr{Op: OpPush, Span: w.Span, Value: fn})
		c.emit(Instr{Op: OpCall, Span: w.Span})
		return
	}
	c.pending = append(c.pending, fmt.Errorf("%s: %w %q", w.Span, ErrUnknownBinding, name))
	// Recover with a sentinel error function so the instruction stream
	// remains well-formed; the VM never actually runs this because Load
	// rolls the whole chunk back when pending errors are non-empty.
	c.emit(Instr{Op: OpPush, Span: w.Span, Value: errorSentinel})
	c.emit(Instr{Op: OpCall, Span: w.Span})
}

// errorSentinel stands in for an unresolved identifier during error
// recovery; it is never reached at runtime since Load discards any chunk
// that produced compile errors.
var errorSentinel = value.PrimitiveFunction(primitive.Identity)

// ErrUnknownBinding is wrapped by every unresolved-identifier error, so
// errors.Is on a CompileError reports whether any of its errors was one,
// for callers that want to offer "did you mean" suggestions.
var ErrUnknownBinding = errors.New("unknown binding")

// modified lowers a WModified word: the operand becomes a function (a
// function literal operand is compiled directly from its body; any other
// operand is wrapped through funcOuter, which collapses trivial single-call
// wrappers), then the modifier primitive itself is pushed and called. The
// modifier's own behavior — looping, grouping, partitioning — lives in
// lang/vm, which special-cases primitives marked IsMod when it executes Call.
func (c *Compiler) modified(w ast.Word) {
	var operandFn value.Function
	if w.Modified.Kind == ast.WFunc {
		operandFn = c.funcOuter(w.Modified.Func.Span, w.Modified.Func.Body)
	} else {
		operandFn = c.funcOuter(w.Modified.Span, []ast.Word{*w.Modified})
	}
	c.emit(Instr{Op: OpPush, Span: w.Span, Value: operandFn})

	e, ok := primitive.ByName(w.Modifier.Ident)
	if !ok {
		c.errorf(w.Modifier.Span, "unknown modifier %q", w.Modifier.Ident)
		return
	}
	modFn := value.PrimitiveFunction(e.ID)
	c.emit(Instr{Op: OpPush, Span: w.Span, Value: modFn})
	c.emit(Instr{Op: OpCall, Span: w.Span})
}

// funcOuter compiles body as a new function, isolated in its own buffer so
// that nested function literals cannot interleave with it (see the
// Compiler doc comment), and returns a handle to it. If the compiled body
// is exactly the five instructions [Comment, Push(f), Call, Comment,
// Return] for some function handle f, funcOuter discards the wrapper and
// returns f directly: a bare reference to an existing function needs no
// new code of its own. This keeps modifier operands like `⍥Add` from
// allocating a throwaway wrapper around the Add primitive on every compile.
func (c *Compiler) funcOuter(span token.Span, body []ast.Word) value.Function {
	c.bufStack = append(c.bufStack, []Instr{{Op: OpComment, Span: span, Text: "func"}})
	c.words(body)
	top := len(c.bufStack) - 1
	c.bufStack[top] = append(c.bufStack[top],
		Instr{Op: OpComment, Span: span, Text: "end func"},
		Instr{Op: OpReturn, Span: span})
	buf := c.bufStack[top]
	c.bufStack = c.bufStack[:top]

	if f, ok := trivialWrapper(buf); ok {
		return f
	}

	start := len(c.funcInstrs)
	c.funcInstrs = append(c.funcInstrs, buf...)
	fn := value.CodeFunction(uint32(start))
	c.functionIDs.Put(fn, value.AnonymousID(span))
	return fn
}

// trivialWrapper recognizes the pattern [Comment, Push(f), Call, Comment,
// Return] and returns f, or false if region doesn't match.
func trivialWrapper(region []Instr) (value.Function, bool) {
	if len(region) != 5 {
		return value.Function{}, false
	}
	if region[0].Op != OpComment || region[2].Op != OpCall ||
		region[3].Op != OpComment || region[4].Op != OpReturn {
		return value.Function{}, false
	}
	if region[1].Op != OpPush {
		return value.Function{}, false
	}
	f, ok := region[1].Value.(value.Function)
	if !ok {
		return value.Function{}, false
	}
	return f, true
}
