package sema

import (
	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/symtab"
)

// discoverFunctions is pass 1 (spec.md §4.1a): discover all
// user-defined functions and routines and seed their metrics, and
// register every top-level global/static/manifest declaration in the
// symbol table so later passes can resolve forward references.
func (c *Context) discoverFunctions(prog *ast.Program) {
	for _, d := range prog.Declarations {
		switch decl := d.(type) {
		case *ast.FunctionDeclaration:
			c.seedFunction(decl.Name, decl.Params, symtab.KindFunctionInt)
		case *ast.RoutineDeclaration:
			c.seedFunction(decl.Name, decl.Params, symtab.KindRoutine)
		case *ast.GlobalDeclaration:
			kind := symtab.KindGlobal
			if decl.Kind == ast.GlobalKindStatic {
				kind = symtab.KindStatic
			}
			c.Symbols.Declare(&symtab.Symbol{Name: decl.Name, Kind: kind, Type: decl.Type})
		case *ast.ManifestDeclaration:
			c.Symbols.Declare(&symtab.Symbol{Name: decl.Name, Kind: symtab.KindManifest})
		}
	}
}

func (c *Context) seedFunction(name string, params []ast.Param, kind symtab.Kind) {
	m := newFunctionMetrics(name)
	m.NumParameters = len(params)
	for i, p := range params {
		m.ParameterIndices[p.Name] = i
		m.ParameterTypes[p.Name] = p.Type
	}
	c.Metrics[name] = m

	symParams := make([]symtab.ParamInfo, len(params))
	for i, p := range params {
		symParams[i] = symtab.ParamInfo{Name: p.Name, Type: p.Type}
	}
	c.Symbols.Declare(&symtab.Symbol{Name: name, Kind: kind, Params: symParams})
}
