// Command bcplc drives the compiler pipeline end to end: it parses CLI
// flags into a compile.Options, loads a program, runs compile.Build,
// and then either prints assembly (--asm), links and JIT-executes
// in-process with an optional breakpoint at a chosen offset (--run), or
// assembles, links and runs the program through the host toolchain
// (--exec) (spec.md §6).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
