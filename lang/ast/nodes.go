// Package ast is the parsed representation of kelp source: a flat sequence
// of words (the language has no statements, only word sequences and
// bindings), annotated with spans for diagnostics. The lexer/parser that
// produce this tree are out of scope per spec.md §1; this package and
// lang/scanner, lang/parser exist only to give the compiler something
// concrete to lower.
package ast

import "github.com/kelplang/kelp/lang/token"

// WordKind discriminates the concrete shape of a Word.
type WordKind int

const (
	WNumber WordKind = iota
	WChar
	WString
	WIdent
	WPrimitive
	WArray
	WStrand
	WFunc
	WFuncArray
	WModified
)

// Word is one element of a word sequence. Exactly the fields relevant to
// Kind are populated; see the lowering rules in lang/compiler for how each
// kind is compiled.
type Word struct {
	Kind WordKind
	Span token.Span

	Number float64 // WNumber
	Char   rune    // WChar
	Str    string  // WString
	Ident  string  // WIdent, WPrimitive (primitive's source name or symbol)

	Items []Word // WArray, WStrand; lowered identically, each item compiled as an ordinary word (a strand's identifiers are called too)
	Funcs []Func // WFuncArray

	Func *Func // WFunc

	Modifier *Word // WModified: always Kind == WPrimitive
	Modified *Word // WModified: the word being modified
}

// Func is an anonymous or named function literal: a sequence of words
// executed in the order given by Body (which lowering reverses, per
// spec.md §4.2).
type Func struct {
	Span token.Span
	Body []Word
}

// Binding assigns a name to the value (lowercase) or function (capitalized)
// produced by Words.
type Binding struct {
	Name     string
	NameSpan token.Span
	Words    []Word
}

// ItemKind discriminates a top-level Item.
type ItemKind int

const (
	ItemWords ItemKind = iota
	ItemBinding
)

// Item is one top-level element of a Chunk: either a bare word sequence
// (evaluated for effect) or a binding.
type Item struct {
	Kind    ItemKind
	Words   []Word   // ItemWords
	Binding *Binding // ItemBinding
}

// Chunk is a whole parsed source file or REPL fragment.
type Chunk struct {
	Items []Item
}

// IsCapitalized reports whether name should bind a function rather than a
// global value: the first rune is an ASCII upper-case letter (A-Z).
func IsCapitalized(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)[0]
	return r >= 'A' && r <= 'Z'
}
