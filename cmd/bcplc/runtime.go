package main

import (
	"github.com/pkg/errors"
)

// ResolveRuntimeSymbol maps a registered runtime-intrinsic name (WRITES,
// FINISH, and the rest of runtimeabi.Standard's entries) to its absolute
// address in this process, for --run's JIT path: jitexec.Buffer's
// function-pointer table must hold real addresses before execution.
// spec.md §1 scopes the C runtime implementing these intrinsics out of
// this repository entirely ("external collaborator"); this variable is
// the seam an embedder links a real runtime through (typically via cgo,
// dlopen, or a prebuilt archive providing WRITES/FINISH/etc as exported
// symbols). The default reports the gap rather than writing a garbage
// address into the table.
var ResolveRuntimeSymbol = func(name string) (uint64, error) {
	return 0, errors.Errorf(
		"bcplc: no runtime symbol resolver is wired into this build; %q has no known address — "+
			"the C runtime is an external collaborator per spec.md §1, "+
			"and ResolveRuntimeSymbol in cmd/bcplc/runtime.go is the seam one plugs into",
		name,
	)
}
