package main

import (
	"github.com/albanread/bcplc-go/internal/bcpl/asmwriter"
	"github.com/albanread/bcplc-go/internal/bcpl/compile"
)

// writeAssembly renders unit's Stream as Mach-O-compatible assembly
// text with entrySymbol aliased to the process entry point (spec.md
// §6's --asm flag).
func writeAssembly(unit *compile.Unit, entrySymbol string) (string, error) {
	return asmwriter.Write(unit.Stream, unit.Runtime, entrySymbol)
}
