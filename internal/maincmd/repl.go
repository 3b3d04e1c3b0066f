package maincmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"
	"github.com/mna/mainer"

	"github.com/kelplang/kelp/lang/compiler"
	"github.com/kelplang/kelp/lang/vm"
)

func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return Repl(stdio)
}

// Repl runs an interactive read-eval-print loop: each line is compiled as
// its own Compiler.Eval chunk (so earlier bindings stay visible) and run
// against one persistent VM, printing the resulting stack after every line.
func Repl(stdio mainer.Stdio) error {
	cfg, err := LoadConfig()
	if err != nil {
		return printError(stdio, err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "kelp> ",
		HistoryFile: "/tmp/kelp_history",
		Stdin:       io.NopCloser(stdio.Stdin),
		Stdout:      stdio.Stdout,
		Stderr:      stdio.Stderr,
	})
	if err != nil {
		return printError(stdio, err)
	}
	defer rl.Close()

	comp := compiler.New()
	var m *vm.VM

	for line := 1; ; line++ {
		text, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return printError(stdio, err)
		}
		if text == "" {
			continue
		}

		asm, start, end, err := comp.Eval(fmt.Sprintf("<repl:%d>", line), text)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			continue
		}

		if m == nil {
			m = vm.New(asm, vm.NewStdIo())
		} else {
			m.Asm = asm
		}
		m.MaxSteps = cfg.MaxSteps

		if err := m.Run(start, end); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			continue
		}
		for _, v := range m.Stack() {
			fmt.Fprintln(stdio.Stdout, v.String())
		}
	}
}
