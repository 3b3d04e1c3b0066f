package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/kelplang/kelp/lang/compiler"
)

func (c *Cmd) Asm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return AsmFiles(stdio, args...)
}

// AsmFiles compiles each file, in order, into a single Assembly and prints
// its instruction listing.
func AsmFiles(stdio mainer.Stdio, files ...string) error {
	asm, err := compileFiles(stdio, files)
	if err != nil {
		return err
	}
	fmt.Fprint(stdio.Stdout, asm.Dump())
	return nil
}

// compileFiles loads every file into a fresh Compiler, in path order (later
// files can reference globals bound by earlier ones), and returns the
// finished Assembly. Compilation is inherently sequential — each Load
// mutates shared binding state — unlike readFiles, which only touches disk.
func compileFiles(stdio mainer.Stdio, files []string) (*compiler.Assembly, error) {
	sources, err := readFiles(files)
	if err != nil {
		return nil, printError(stdio, err)
	}

	comp := compiler.New()
	for _, src := range sources {
		if err := comp.Load(src.name, src.text); err != nil {
			return nil, printError(stdio, err)
		}
	}
	return comp.Finish(), nil
}
