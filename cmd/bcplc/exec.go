package main

import (
	stderrors "errors"
	"os"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/albanread/bcplc-go/internal/bcpl/compile"
)

// runtimeLibraryFlag is the linker flag naming the external BCPL
// runtime library --exec links the assembled program against. spec.md
// §1 scopes the runtime's implementation out of this repository; it is
// expected to be installed on the host as a linkable archive, the same
// boundary ResolveRuntimeSymbol documents for --run's JIT path.
const runtimeLibraryFlag = "-lbcplrt"

// assembleLinkAndRun implements --exec: spec.md §6 describes it as
// "assemble + link + run", distinct from --run's in-process JIT. It
// writes unit's assembly to a temporary file and hands it to the host's
// C toolchain to assemble and link (this package never implements an
// assembler or system linker itself), then executes the resulting
// binary with this process's stdio and reports its exit code.
func assembleLinkAndRun(unit *compile.Unit, entrySymbol string) (exitCode int, err error) {
	asm, err := writeAssembly(unit, entrySymbol)
	if err != nil {
		return 0, errors.Wrap(err, "bcplc: render assembly")
	}

	src, err := os.CreateTemp("", "bcplc-*.s")
	if err != nil {
		return 0, errors.Wrap(err, "bcplc: create temporary assembly file")
	}
	defer os.Remove(src.Name())
	if _, err := src.WriteString(asm); err != nil {
		src.Close()
		return 0, errors.Wrap(err, "bcplc: write temporary assembly file")
	}
	if err := src.Close(); err != nil {
		return 0, errors.Wrap(err, "bcplc: close temporary assembly file")
	}

	bin, err := os.CreateTemp("", "bcplc-*.out")
	if err != nil {
		return 0, errors.Wrap(err, "bcplc: create temporary binary path")
	}
	binPath := bin.Name()
	bin.Close()
	os.Remove(binPath)
	defer os.Remove(binPath)

	toolchain := os.Getenv("BCPLC_CC")
	if toolchain == "" {
		toolchain = "cc"
	}

	assemble := exec.Command(toolchain, src.Name(), runtimeLibraryFlag, "-o", binPath)
	assemble.Stdout = os.Stdout
	assemble.Stderr = os.Stderr
	if err := assemble.Run(); err != nil {
		return 0, errors.Wrapf(err, "bcplc: assemble and link via %s (expects the external BCPL runtime to be installed as %s)", toolchain, runtimeLibraryFlag)
	}

	run := exec.Command(binPath)
	run.Stdin = os.Stdin
	run.Stdout = os.Stdout
	run.Stderr = os.Stderr
	if err := run.Run(); err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 0, errors.Wrap(err, "bcplc: run assembled binary")
	}
	return 0, nil
}
