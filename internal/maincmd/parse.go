package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/kelplang/kelp/lang/ast"
	"github.com/kelplang/kelp/lang/parser"
)

func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ParseFiles(stdio, args...)
}

// ParseFiles parses each file and prints its abstract syntax tree.
func ParseFiles(stdio mainer.Stdio, files ...string) error {
	sources, err := readFiles(files)
	if err != nil {
		return printError(stdio, err)
	}

	printer := ast.Printer{Output: stdio.Stdout}
	var firstErr error
	for _, src := range sources {
		chunk, errs := parser.Parse(src.name, src.text)
		if len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintln(stdio.Stderr, e)
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %d parse error(s)", src.name, len(errs))
			}
			continue
		}
		if err := printer.Print(chunk); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return err
		}
	}
	return firstErr
}
