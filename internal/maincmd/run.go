package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/kelplang/kelp/lang/vm"
)

func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return RunFiles(stdio, args...)
}

// RunFiles compiles and runs every file as one program, printing the final
// value stack, bottom first.
func RunFiles(stdio mainer.Stdio, files ...string) error {
	asm, err := compileFiles(stdio, files)
	if err != nil {
		return err
	}

	cfg, err := LoadConfig()
	if err != nil {
		return printError(stdio, err)
	}

	m := vm.New(asm, vm.NewStdIo())
	m.MaxSteps = cfg.MaxSteps
	if err := m.Run(int(asm.Start), len(asm.Instrs)); err != nil {
		return printError(stdio, err)
	}

	for _, v := range m.Stack() {
		fmt.Fprintln(stdio.Stdout, v.String())
	}
	return nil
}
