package sema

import (
	"strings"
	"testing"

	"github.com/lightplayer/lightplayer/ast"
	"github.com/lightplayer/lightplayer/builtin"
)

func newTestRegistry() *builtin.Registry {
	r := builtin.NewRegistry()
	builtin.RegisterStandardLibrary(r)
	return r
}

func scalarSpec(name string) ast.TypeSpec {
	return &ast.ScalarTypeSpec{Name: name}
}

func lit(f float64) ast.Expr {
	return &ast.LiteralExpr{Kind: ast.LitFloat, Float: f}
}

// TestAnalyzeScalarReturn exercises the smallest possible valid module:
// a single function that returns a float constant.
func TestAnalyzeScalarReturn(t *testing.T) {
	m := &ast.Module{
		Funcs: []*ast.FuncDecl{
			{
				Name:       "scalarConst",
				ReturnType: scalarSpec("float"),
				Body: &ast.BlockStmt{
					Stmts: []ast.Stmt{
						&ast.ReturnStmt{Value: lit(1.0)},
					},
				},
			},
		},
	}

	mod, errs := New(newTestRegistry()).Analyze(m)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(mod.Funcs) != 1 {
		t.Fatalf("expected 1 function, got %d", len(mod.Funcs))
	}
	fn := mod.Funcs[0]
	if fn.ReturnType == nil || fn.ReturnType.String() != "float" {
		t.Fatalf("expected float return type, got %v", fn.ReturnType)
	}
}

// TestAnalyzeMissingReturn exercises spec §4.1 pass 5's return-on-all-
// paths check: an if/else where only one branch returns.
func TestAnalyzeMissingReturn(t *testing.T) {
	m := &ast.Module{
		Funcs: []*ast.FuncDecl{
			{
				Name:       "maybeReturn",
				ReturnType: scalarSpec("float"),
				Body: &ast.BlockStmt{
					Stmts: []ast.Stmt{
						&ast.IfStmt{
							Cond: &ast.LiteralExpr{Kind: ast.LitBool, Bool: true},
							Then: &ast.BlockStmt{Stmts: []ast.Stmt{
								&ast.ReturnStmt{Value: lit(1.0)},
							}},
						},
					},
				},
			},
		},
	}

	_, errs := New(newTestRegistry()).Analyze(m)
	if !containsKind(errs, "missing_return") {
		t.Fatalf("expected missing_return error, got %v", errs)
	}
}

// TestAnalyzeOutParamRequiresLvalue exercises spec §4.1 pass 4's
// qualifier check: passing a literal where an out parameter is expected.
func TestAnalyzeOutParamRequiresLvalue(t *testing.T) {
	m := &ast.Module{
		Funcs: []*ast.FuncDecl{
			{
				Name: "writeOut",
				Params: []ast.Param{
					{Name: "v", Type: scalarSpec("float"), Qualifier: ast.QualifierOut},
				},
				Body: &ast.BlockStmt{
					Stmts: []ast.Stmt{
						&ast.ExprStmt{X: &ast.BinaryExpr{
							Op:    ast.OpAssign,
							Left:  &ast.IdentExpr{Name: "v"},
							Right: lit(2.0),
						}},
					},
				},
			},
			{
				Name: "caller",
				Body: &ast.BlockStmt{
					Stmts: []ast.Stmt{
						&ast.ExprStmt{X: &ast.CallExpr{
							Callee: "writeOut",
							Args:   []ast.Expr{lit(1.0)},
						}},
					},
				},
			},
		},
	}

	_, errs := New(newTestRegistry()).Analyze(m)
	if !containsKind(errs, "out_param_requires_lvalue") {
		t.Fatalf("expected out_param_requires_lvalue error, got %v", errs)
	}
}

// TestAnalyzeDuplicateSwizzleLvalue exercises spec §4.1 pass 4's
// repeated-component write-swizzle rejection.
func TestAnalyzeDuplicateSwizzleLvalue(t *testing.T) {
	m := &ast.Module{
		Funcs: []*ast.FuncDecl{
			{
				Name: "badSwizzle",
				Body: &ast.BlockStmt{
					Stmts: []ast.Stmt{
						&ast.DeclStmt{
							Name: "v",
							Type: &ast.VectorTypeSpec{Name: "vec3", Len: 3},
							Init: &ast.ConstructorExpr{
								Type: &ast.VectorTypeSpec{Name: "vec3", Len: 3},
								Args: []ast.Expr{lit(1), lit(2), lit(3)},
							},
						},
						&ast.ExprStmt{X: &ast.BinaryExpr{
							Op: ast.OpAssign,
							Left: &ast.SwizzleExpr{
								Base:       &ast.IdentExpr{Name: "v"},
								Components: "xx",
							},
							Right: &ast.ConstructorExpr{
								Type: &ast.VectorTypeSpec{Name: "vec2", Len: 2},
								Args: []ast.Expr{lit(1), lit(2)},
							},
						}},
					},
				},
			},
		},
	}

	_, errs := New(newTestRegistry()).Analyze(m)
	if !containsKind(errs, "duplicate_swizzle_component") {
		t.Fatalf("expected duplicate_swizzle_component error, got %v", errs)
	}
}

// TestAnalyzeBreakOutsideLoop exercises the break/continue-must-be-in-a-
// loop check.
func TestAnalyzeBreakOutsideLoop(t *testing.T) {
	m := &ast.Module{
		Funcs: []*ast.FuncDecl{
			{
				Name: "stray",
				Body: &ast.BlockStmt{
					Stmts: []ast.Stmt{&ast.BreakStmt{}},
				},
			},
		},
	}

	_, errs := New(newTestRegistry()).Analyze(m)
	if !containsKind(errs, "qualifier_violation") {
		t.Fatalf("expected qualifier_violation error, got %v", errs)
	}
}

// TestAnalyzeUnknownIdentifier exercises undeclared-name detection.
func TestAnalyzeUnknownIdentifier(t *testing.T) {
	m := &ast.Module{
		Funcs: []*ast.FuncDecl{
			{
				Name:       "useUndeclared",
				ReturnType: scalarSpec("float"),
				Body: &ast.BlockStmt{
					Stmts: []ast.Stmt{
						&ast.ReturnStmt{Value: &ast.IdentExpr{Name: "nope"}},
					},
				},
			},
		},
	}

	_, errs := New(newTestRegistry()).Analyze(m)
	if !containsKind(errs, "unknown_identifier") {
		t.Fatalf("expected unknown_identifier error, got %v", errs)
	}
}

// TestAnalyzeBuiltinCallResolution exercises call resolution falling
// through from user functions to the builtin registry (spec §4.1 pass 3).
func TestAnalyzeBuiltinCallResolution(t *testing.T) {
	m := &ast.Module{
		Funcs: []*ast.FuncDecl{
			{
				Name:       "useSin",
				ReturnType: scalarSpec("float"),
				Body: &ast.BlockStmt{
					Stmts: []ast.Stmt{
						&ast.ReturnStmt{Value: &ast.CallExpr{Callee: "sin", Args: []ast.Expr{lit(0.0)}}},
					},
				},
			},
		},
	}

	mod, errs := New(newTestRegistry()).Analyze(m)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	ret := mod.Funcs[0].Body.Stmts[0].(*Return)
	call, ok := ret.Value.(*Call)
	if !ok || call.Kind != CalleeBuiltin {
		t.Fatalf("expected a resolved builtin call, got %#v", ret.Value)
	}
}

func containsKind(errs []error, kind string) bool {
	for _, e := range errs {
		if strings.Contains(e.Error(), kind) {
			return true
		}
	}
	return false
}
