package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/albanread/bcplc-go/internal/bcpl/compile"
	"github.com/albanread/bcplc-go/internal/bcpl/tracing"
)

// traceFlag pairs a --trace-<name> flag with the tracing.Component it
// enables, one entry per component spec.md §6's "--trace-*" names.
type traceFlag struct {
	name      string
	component tracing.Component
}

var traceFlags = []traceFlag{
	{"trace-semantic", tracing.Semantic},
	{"trace-cfg", tracing.CFG},
	{"trace-liveness", tracing.Liveness},
	{"trace-regalloc", tracing.RegAlloc},
	{"trace-frame", tracing.Frame},
	{"trace-codegen", tracing.Codegen},
	{"trace-linker", tracing.Linker},
	{"trace-peephole", tracing.Peephole},
	{"trace-data", tracing.DataSeg},
}

func newRootCommand() *cobra.Command {
	var (
		run           bool
		asm           bool
		execFlag      bool
		opt           bool
		peephole      bool
		stackCanaries bool
		callName      string
		offset        int
		includePaths  []string
	)

	cmd := &cobra.Command{
		Use:           "bcplc <source-file>",
		Short:         "Compile a BCPL source file to AArch64",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			modes := 0
			for _, on := range []bool{run, asm, execFlag} {
				if on {
					modes++
				}
			}
			if modes != 1 {
				return errors.New("bcplc: specify exactly one of --run, --asm, --exec")
			}

			prog, err := LoadProgram(args[0], includePaths)
			if err != nil {
				return err
			}

			tracer := tracing.New(cmd.ErrOrStderr())
			for _, tf := range traceFlags {
				if on, _ := cmd.Flags().GetBool(tf.name); on {
					tracer.Enable(tf.component)
				}
			}

			unit, err := compile.Build(prog, compile.Options{
				Optimize:      opt,
				Peephole:      peephole,
				StackCanaries: stackCanaries,
				JITMode:       run,
				Tracer:        tracer,
			})
			if err != nil {
				return errors.Wrap(err, "bcplc: compile")
			}
			if len(unit.Errors) > 0 {
				for _, e := range unit.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", e.Function, e.Message)
				}
				return errors.Errorf("bcplc: %d semantic error(s)", len(unit.Errors))
			}

			switch {
			case asm:
				text, err := writeAssembly(unit, callName)
				if err != nil {
					return errors.Wrap(err, "bcplc: write assembly")
				}
				fmt.Fprint(cmd.OutOrStdout(), text)
				return nil

			case run:
				code, err := runJIT(unit, callName, offset)
				if err != nil {
					return err
				}
				return exitWithCode(code)

			default: // execFlag
				code, err := assembleLinkAndRun(unit, callName)
				if err != nil {
					return err
				}
				return exitWithCode(code)
			}
		},
	}

	cmd.Flags().BoolVar(&run, "run", false, "run the compiled program in-process via JIT")
	cmd.Flags().BoolVar(&asm, "asm", false, "emit Mach-O compatible assembly to stdout")
	cmd.Flags().BoolVar(&execFlag, "exec", false, "assemble, link, and run via the host toolchain")
	cmd.Flags().BoolVar(&opt, "opt", false, "enable the advanced optimizer passes (CSE, LICM, short-circuit)")
	cmd.Flags().BoolVar(&peephole, "peephole", false, "enable the peephole pass")
	cmd.Flags().BoolVar(&stackCanaries, "stack-canaries", false, "emit a stack canary in every function's frame")
	cmd.Flags().StringVar(&callName, "call", "START", "JIT/exec entry-point symbol")
	cmd.Flags().IntVar(&offset, "offset", 0, "JIT breakpoint offset, in bytes past the entry symbol")
	cmd.Flags().StringArrayVarP(&includePaths, "include", "I", nil, "include search path (repeatable)")

	for _, tf := range traceFlags {
		cmd.Flags().Bool(tf.name, false, fmt.Sprintf("trace the %s pass", tf.component))
	}

	return cmd
}
