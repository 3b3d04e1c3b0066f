package ast

import (
	"fmt"
	"io"
	"strings"
)

// Printer writes a human-readable dump of a Chunk, in the style of the
// teacher's ast.Printer: one node per line, indentation showing nesting.
// Unlike the teacher's printer it has no Pos/NodeFmt modes, since kelp's
// concrete syntax carries far less per-node metadata.
type Printer struct {
	Output io.Writer
}

func (p *Printer) Print(c *Chunk) error {
	w := &indentWriter{w: p.Output}
	for _, item := range c.Items {
		printItem(w, item)
	}
	return w.err
}

func printItem(w *indentWriter, item Item) {
	switch item.Kind {
	case ItemWords:
		w.line("words:")
		w.indent()
		printWords(w, item.Words)
		w.dedent()
	case ItemBinding:
		b := item.Binding
		w.line("binding %s:", b.Name)
		w.indent()
		printWords(w, b.Words)
		w.dedent()
	}
}

func printWords(w *indentWriter, words []Word) {
	for _, word := range words {
		printWord(w, word)
	}
}

func printWord(w *indentWriter, word Word) {
	switch word.Kind {
	case WNumber:
		w.line("number %g", word.Number)
	case WChar:
		w.line("char %q", word.Char)
	case WString:
		w.line("string %q", word.Str)
	case WIdent:
		w.line("ident %s", word.Ident)
	case WPrimitive:
		w.line("primitive %s", word.Ident)
	case WArray:
		w.line("array:")
		w.indent()
		printWords(w, word.Items)
		w.dedent()
	case WStrand:
		w.line("strand:")
		w.indent()
		printWords(w, word.Items)
		w.dedent()
	case WFunc:
		w.line("func:")
		w.indent()
		printWords(w, word.Func.Body)
		w.dedent()
	case WFuncArray:
		w.line("func array:")
		w.indent()
		for _, f := range word.Funcs {
			w.line("func:")
			w.indent()
			printWords(w, f.Body)
			w.dedent()
		}
		w.dedent()
	case WModified:
		w.line("modified %s:", word.Modifier.Ident)
		w.indent()
		printWord(w, *word.Modified)
		w.dedent()
	}
}

type indentWriter struct {
	w      io.Writer
	depth  int
	err    error
}

func (w *indentWriter) indent() { w.depth++ }
func (w *indentWriter) dedent() { w.depth-- }

func (w *indentWriter) line(format string, args ...interface{}) {
	if w.err != nil {
		return
	}
	prefix := strings.Repeat("  ", w.depth)
	_, err := fmt.Fprintf(w.w, "%s%s\n", prefix, fmt.Sprintf(format, args...))
	if err != nil {
		w.err = err
	}
}
