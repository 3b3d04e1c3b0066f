// Package parser turns a scanner.Token stream into a lang/ast.Chunk. Items
// are separated by newlines; within an item, a lowercase-bound name followed
// by "<-"/"←" introduces a value binding, an uppercase-bound name introduces
// a function binding, and everything else is a bare word sequence.
package parser

import (
	"fmt"

	"github.com/kelplang/kelp/lang/ast"
	"github.com/kelplang/kelp/lang/primitive"
	"github.com/kelplang/kelp/lang/scanner"
	"github.com/kelplang/kelp/lang/token"
)

// Error is a parse-time error with its source span.
type Error struct {
	Span token.Span
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Span, e.Msg) }

// Parser consumes a fixed token slice produced by scanner.Scan.
type Parser struct {
	file   string
	toks   []scanner.Token
	pos    int
	Errors []*Error
}

func New(file string, toks []scanner.Token) *Parser {
	return &Parser{file: file, toks: toks}
}

// Parse scans src with a fresh scanner and parses the result, aggregating
// scan errors ahead of parse errors into a single combined error list.
func Parse(file, src string) (*ast.Chunk, []error) {
	sc := scanner.New(file, src)
	toks := sc.Scan()
	p := New(file, toks)
	c := p.ParseChunk()

	var errs []error
	for _, e := range sc.Errors {
		errs = append(errs, e)
	}
	for _, e := range p.Errors {
		errs = append(errs, e)
	}
	return c, errs
}

func (p *Parser) errorf(span token.Span, format string, args ...interface{}) {
	p.Errors = append(p.Errors, &Error{Span: span, Msg: fmt.Sprintf(format, args...)})
}

func (p *Parser) peek() scanner.Token  { return p.toks[p.pos] }
func (p *Parser) peekAt(n int) scanner.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}
func (p *Parser) advance() scanner.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) skipNewlines() {
	for p.peek().Kind == scanner.TNewline {
		p.advance()
	}
}

// ParseChunk parses every item up to EOF.
func (p *Parser) ParseChunk() *ast.Chunk {
	c := &ast.Chunk{}
	p.skipNewlines()
	for p.peek().Kind != scanner.TEOF {
		item := p.parseItem()
		c.Items = append(c.Items, item)
		p.skipNewlines()
	}
	return c
}

func (p *Parser) parseItem() ast.Item {
	if p.peek().Kind == scanner.TIdent && p.peekAt(1).Kind == scanner.TArrow {
		name := p.advance()
		p.advance() // arrow
		words := p.parseWordsUntilNewline()
		return ast.Item{
			Kind: ast.ItemBinding,
			Binding: &ast.Binding{
				Name:     name.Text,
				NameSpan: name.Span,
				Words:    words,
			},
		}
	}
	words := p.parseWordsUntilNewline()
	return ast.Item{Kind: ast.ItemWords, Words: words}
}

func (p *Parser) parseWordsUntilNewline() []ast.Word {
	var words []ast.Word
	for {
		k := p.peek().Kind
		if k == scanner.TNewline || k == scanner.TEOF || k == scanner.TRParen || k == scanner.TRBracket {
			break
		}
		words = append(words, p.parseWord())
	}
	return words
}

// parseWord parses a single syntactic word, then greedily absorbs a
// following strand chain ("_"-joined atoms with no intervening whitespace in
// the idiomatic case, though this parser only requires adjacency in the
// token stream, not in byte offsets).
func (p *Parser) parseWord() ast.Word {
	w := p.parseAtom()
	if p.peek().Kind == scanner.TUnderscore {
		items := []ast.Word{w}
		span := w.Span
		for p.peek().Kind == scanner.TUnderscore {
			p.advance()
			next := p.parseAtom()
			items = append(items, next)
			span = span.Merge(next.Span)
		}
		return ast.Word{Kind: ast.WStrand, Span: span, Items: items}
	}
	return w
}

func (p *Parser) parseAtom() ast.Word {
	t := p.peek()
	switch t.Kind {
	case scanner.TNumber:
		p.advance()
		return ast.Word{Kind: ast.WNumber, Span: t.Span, Number: t.Num}
	case scanner.TChar:
		p.advance()
		return ast.Word{Kind: ast.WChar, Span: t.Span, Char: t.Char}
	case scanner.TString:
		p.advance()
		return ast.Word{Kind: ast.WString, Span: t.Span, Str: t.Text}
	case scanner.TIdent:
		p.advance()
		return ast.Word{Kind: ast.WIdent, Span: t.Span, Ident: t.Text}
	case scanner.TPrimitive:
		p.advance()
		return p.maybeModified(ast.Word{Kind: ast.WPrimitive, Span: t.Span, Ident: primitiveName(t)})
	case scanner.TLBracket:
		return p.parseArray()
	case scanner.TLParen:
		return p.parseFuncOrArray()
	default:
		p.advance()
		p.errorf(t.Span, "unexpected token %q", t.Text)
		return ast.Word{Kind: ast.WIdent, Span: t.Span, Ident: "?"}
	}
}

func primitiveName(t scanner.Token) string {
	e := primitive.ByID(t.Prim)
	if e.Name != "" {
		return e.Name
	}
	return e.Symbol
}

// maybeModified wraps w as WModified if w is a modifier primitive: the next
// parsed word becomes its operand.
func (p *Parser) maybeModified(w ast.Word) ast.Word {
	if w.Kind != ast.WPrimitive {
		return w
	}
	e, ok := primitive.ByName(w.Ident)
	if !ok || !e.IsMod {
		return w
	}
	operand := p.parseWord()
	modWord := w
	return ast.Word{
		Kind:     ast.WModified,
		Span:     w.Span.Merge(operand.Span),
		Modifier: &modWord,
		Modified: &operand,
	}
}

// parseArray parses a "[" word* "]" array literal.
func (p *Parser) parseArray() ast.Word {
	open := p.advance() // [
	var items []ast.Word
	for p.peek().Kind != scanner.TRBracket && p.peek().Kind != scanner.TEOF {
		if p.peek().Kind == scanner.TNewline {
			p.advance()
			continue
		}
		items = append(items, p.parseWord())
	}
	span := open.Span
	if p.peek().Kind == scanner.TRBracket {
		close := p.advance()
		span = span.Merge(close.Span)
	} else {
		p.errorf(open.Span, "unterminated array literal")
	}
	return ast.Word{Kind: ast.WArray, Span: span, Items: items}
}

// parseFuncOrArray parses "(" word* ")", a single function literal, or
// "(" func ("|" func)* ")", multiple function literals separated by "|"
// forming a function array (used by do/partition/group branches that need
// more than one callee). Since "|" is not part of the token alphabet, a
// function array is instead written as nested parens: "((f)(g))".
func (p *Parser) parseFuncOrArray() ast.Word {
	open := p.advance() // (
	if p.peek().Kind == scanner.TLParen {
		var funcs []ast.Func
		for p.peek().Kind == scanner.TLParen {
			funcs = append(funcs, p.parseFuncBody())
		}
		span := open.Span
		if p.peek().Kind == scanner.TRParen {
			close := p.advance()
			span = span.Merge(close.Span)
		} else {
			p.errorf(open.Span, "unterminated function array")
		}
		return ast.Word{Kind: ast.WFuncArray, Span: span, Funcs: funcs}
	}

	body := p.parseWordsUntilNewline()
	span := open.Span
	if p.peek().Kind == scanner.TRParen {
		close := p.advance()
		span = span.Merge(close.Span)
	} else {
		p.errorf(open.Span, "unterminated function literal")
	}
	fn := &ast.Func{Span: span, Body: body}
	return ast.Word{Kind: ast.WFunc, Span: span, Func: fn}
}

// parseFuncBody parses one "(" word* ")" nested inside a function array.
func (p *Parser) parseFuncBody() ast.Func {
	open := p.advance() // (
	body := p.parseWordsUntilNewline()
	span := open.Span
	if p.peek().Kind == scanner.TRParen {
		close := p.advance()
		span = span.Merge(close.Span)
	} else {
		p.errorf(open.Span, "unterminated function literal")
	}
	return ast.Func{Span: span, Body: body}
}
