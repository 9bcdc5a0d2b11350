package main

import (
	"github.com/pkg/errors"

	"github.com/albanread/bcplc-go/internal/bcpl/ast"
)

// LoadProgram turns a BCPL source file on disk into a *ast.Program.
// spec.md §1 explicitly scopes the lexer and parser producing the AST
// out of this repository ("external collaborators"); this variable is
// the seam an external front end plugs into. The default reports that
// boundary plainly instead of silently compiling an empty program.
var LoadProgram = func(path string, includePaths []string) (*ast.Program, error) {
	return nil, errors.Errorf(
		"bcplc: no BCPL front end is wired into this build; %q was not parsed — "+
			"the lexer and parser are an external collaborator per spec.md §1, "+
			"and LoadProgram in cmd/bcplc/loader.go is the seam one plugs into",
		path,
	)
}
