package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadProgramDefaultReportsMissingFrontEnd(t *testing.T) {
	prog, err := LoadProgram("hello.b", nil)
	require.Nil(t, prog)
	require.Error(t, err)
	require.Contains(t, err.Error(), "LoadProgram")
}

func TestResolveRuntimeSymbolDefaultReportsMissingRuntime(t *testing.T) {
	addr, err := ResolveRuntimeSymbol("WRITES")
	require.Zero(t, addr)
	require.Error(t, err)
	require.Contains(t, err.Error(), "WRITES")
}

func TestRootCommandRejectsAmbiguousMode(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--run", "--asm", "nonexistent.b"})
	cmd.SetOut(new(nopWriter))
	cmd.SetErr(new(nopWriter))
	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "exactly one of")
}

func TestRootCommandRequiresOneMode(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"nonexistent.b"})
	cmd.SetOut(new(nopWriter))
	cmd.SetErr(new(nopWriter))
	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "exactly one of")
}

func TestRootCommandRegistersOneTraceFlagPerComponent(t *testing.T) {
	cmd := newRootCommand()
	for _, tf := range traceFlags {
		require.NotNil(t, cmd.Flags().Lookup(tf.name), "missing flag --%s", tf.name)
	}
}

type nopWriter struct{}

func (*nopWriter) Write(p []byte) (int, error) { return len(p), nil }
