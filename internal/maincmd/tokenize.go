package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/kelplang/kelp/lang/scanner"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(stdio, args...)
}

// TokenizeFiles scans each file in turn and prints its tokens, one per
// line, prefixed by the source span.
func TokenizeFiles(stdio mainer.Stdio, files ...string) error {
	sources, err := readFiles(files)
	if err != nil {
		return printError(stdio, err)
	}

	var scanErr error
	for _, src := range sources {
		sc := scanner.New(src.name, src.text)
		toks := sc.Scan()
		for _, tok := range toks {
			fmt.Fprintf(stdio.Stdout, "%s: %s", tok.Span, tok.Kind)
			if lit := tokenLiteral(tok); lit != "" {
				fmt.Fprintf(stdio.Stdout, " %s", lit)
			}
			fmt.Fprintln(stdio.Stdout)
		}
		if len(sc.Errors) > 0 {
			for _, e := range sc.Errors {
				fmt.Fprintln(stdio.Stderr, e)
			}
			scanErr = fmt.Errorf("%s: %d scan error(s)", src.name, len(sc.Errors))
		}
	}
	return scanErr
}

func tokenLiteral(tok scanner.Token) string {
	switch tok.Kind {
	case scanner.TNumber:
		return fmt.Sprintf("%g", tok.Num)
	case scanner.TChar:
		return fmt.Sprintf("%q", tok.Char)
	case scanner.TString, scanner.TIdent:
		return tok.Text
	case scanner.TPrimitive:
		return tok.Text
	default:
		return ""
	}
}
