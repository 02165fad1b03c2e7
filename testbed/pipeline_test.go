// Package testbed exercises the compiler end to end: a hand-built
// ast.Module goes in, a compiler.Module backed by a live emu.CPU comes
// out, and an exported function is invoked and checked against its
// expected Q16.16 result — the same "load once, invoke, assert" shape
// as the teacher's own testbed package, with compiler.Compile standing
// in for runtime.New/LoadComponent and compiler.Module.Call standing
// in for inst.CallWithTypes.
package testbed

import (
	"testing"

	"github.com/lightplayer/lightplayer/ast"
	"github.com/lightplayer/lightplayer/compiler"
)

const q32Unit = 1 << 16

func q32Of(f float64) uint32 {
	return uint32(int32(f * q32Unit))
}

func scalarSpec(name string) ast.TypeSpec { return &ast.ScalarTypeSpec{Name: name} }

func vecSpec(name string, n int) ast.TypeSpec { return &ast.VectorTypeSpec{Name: name, Len: n} }

func lit(f float64) ast.Expr { return &ast.LiteralExpr{Kind: ast.LitFloat, Float: f} }

func litInt(v int64) ast.Expr { return &ast.LiteralExpr{Kind: ast.LitInt, Int: v} }

func compile(t *testing.T, m *ast.Module) *compiler.Module {
	t.Helper()
	mod, errs := compiler.Compile(m, &compiler.Config{
		Target:      compiler.TargetEmulator,
		LoadBase:    0x1000,
		MemoryBytes: 1 << 16,
	})
	if len(errs) != 0 {
		t.Fatalf("compile: %v", errs)
	}
	return mod
}

// TestPipeline_DotProduct builds dot(v, v) for v = vec2(3, 4) out of
// swizzle member access and scalar arithmetic (no dot() builtin
// involved, since this is testing lowering/arithmetic, not the
// builtin catalog) and checks the Q16.16-encoded result of 3*3+4*4=25.
func TestPipeline_DotProduct(t *testing.T) {
	vx := &ast.SwizzleExpr{Base: &ast.IdentExpr{Name: "v"}, Components: "x"}
	vy := &ast.SwizzleExpr{Base: &ast.IdentExpr{Name: "v"}, Components: "y"}

	m := &ast.Module{
		Funcs: []*ast.FuncDecl{
			{
				Name:       "test",
				ReturnType: scalarSpec("float"),
				Body: &ast.BlockStmt{
					Stmts: []ast.Stmt{
						&ast.DeclStmt{
							Name: "v",
							Type: vecSpec("vec2", 2),
							Init: &ast.ConstructorExpr{
								Type: vecSpec("vec2", 2),
								Args: []ast.Expr{lit(3), lit(4)},
							},
						},
						&ast.ReturnStmt{Value: &ast.BinaryExpr{
							Op:   ast.OpAdd,
							Left: &ast.BinaryExpr{Op: ast.OpMul, Left: vx, Right: vx},
							Right: &ast.BinaryExpr{
								Op:    ast.OpMul,
								Left:  vy,
								Right: &ast.SwizzleExpr{Base: &ast.IdentExpr{Name: "v"}, Components: "y"},
							},
						}},
					},
				},
			},
		},
	}

	mod := compile(t, m)
	got, err := mod.Call("test")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if want := q32Of(25.0); got != want {
		t.Fatalf("test() = %d, want %d (Q16.16 of 25)", got, want)
	}
}

// TestPipeline_LoopAccumulate sums 1..5 via a C-style for loop,
// exercising ForStmt lowering (init/cond/post/body) end to end through
// a live emu.CPU rather than just the SSA the lower package's own unit
// tests inspect.
func TestPipeline_LoopAccumulate(t *testing.T) {
	m := &ast.Module{
		Funcs: []*ast.FuncDecl{
			{
				Name:       "test",
				ReturnType: scalarSpec("int"),
				Body: &ast.BlockStmt{
					Stmts: []ast.Stmt{
						&ast.DeclStmt{Name: "sum", Type: scalarSpec("int"), Init: litInt(0)},
						&ast.ForStmt{
							Init: &ast.DeclStmt{Name: "i", Type: scalarSpec("int"), Init: litInt(1)},
							Cond: &ast.BinaryExpr{Op: ast.OpLe, Left: &ast.IdentExpr{Name: "i"}, Right: litInt(5)},
							Post: &ast.ExprStmt{X: &ast.UnaryExpr{Op: ast.OpPreInc, Operand: &ast.IdentExpr{Name: "i"}}},
							Body: &ast.BlockStmt{
								Stmts: []ast.Stmt{
									&ast.ExprStmt{X: &ast.BinaryExpr{
										Op:    ast.OpAddAssign,
										Left:  &ast.IdentExpr{Name: "sum"},
										Right: &ast.IdentExpr{Name: "i"},
									}},
								},
							},
						},
						&ast.ReturnStmt{Value: &ast.IdentExpr{Name: "sum"}},
					},
				},
			},
		},
	}

	mod := compile(t, m)
	got, err := mod.Call("test")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if want := uint32(15); got != want {
		t.Fatalf("test() = %d, want %d", got, want)
	}
}

// TestPipeline_StructFieldArithmetic constructs a Pair{a, b float}
// local and returns a.Field + b.Field, exercising struct construction
// and MemberExpr field access together through a live call rather than
// in isolation.
func TestPipeline_StructFieldArithmetic(t *testing.T) {
	pairTy := &ast.StructTypeSpec{Name: "Pair"}
	m := &ast.Module{
		Structs: []*ast.StructDecl{
			{
				Name: "Pair",
				Fields: []ast.StructField{
					{Name: "a", Type: scalarSpec("float")},
					{Name: "b", Type: scalarSpec("float")},
				},
			},
		},
		Funcs: []*ast.FuncDecl{
			{
				Name:       "test",
				ReturnType: scalarSpec("float"),
				Body: &ast.BlockStmt{
					Stmts: []ast.Stmt{
						&ast.DeclStmt{
							Name: "p",
							Type: pairTy,
							Init: &ast.ConstructorExpr{Type: pairTy, Args: []ast.Expr{lit(1.25), lit(2.75)}},
						},
						&ast.ReturnStmt{Value: &ast.BinaryExpr{
							Op:    ast.OpAdd,
							Left:  &ast.MemberExpr{Base: &ast.IdentExpr{Name: "p"}, Field: "a"},
							Right: &ast.MemberExpr{Base: &ast.IdentExpr{Name: "p"}, Field: "b"},
						}},
					},
				},
			},
		},
	}

	mod := compile(t, m)
	got, err := mod.Call("test")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if want := q32Of(4.0); got != want {
		t.Fatalf("test() = %d, want %d (Q16.16 of 4.0)", got, want)
	}
}

// TestPipeline_CallAcrossFunctions checks a user function call (not a
// builtin) threading a value through two separate functions' stack
// frames, unlike compiler_test.go's E-scenarios which each exercise a
// single concern in isolation.
func TestPipeline_CallAcrossFunctions(t *testing.T) {
	m := &ast.Module{
		Funcs: []*ast.FuncDecl{
			{
				Name:       "double",
				Params:     []ast.Param{{Name: "x", Type: scalarSpec("float")}},
				ReturnType: scalarSpec("float"),
				Body: &ast.BlockStmt{
					Stmts: []ast.Stmt{
						&ast.ReturnStmt{Value: &ast.BinaryExpr{
							Op:    ast.OpMul,
							Left:  &ast.IdentExpr{Name: "x"},
							Right: lit(2.0),
						}},
					},
				},
			},
			{
				Name:       "test",
				ReturnType: scalarSpec("float"),
				Body: &ast.BlockStmt{
					Stmts: []ast.Stmt{
						&ast.ReturnStmt{Value: &ast.CallExpr{Callee: "double", Args: []ast.Expr{lit(10.5)}}},
					},
				},
			},
		},
	}

	mod := compile(t, m)
	got, err := mod.Call("test")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if want := q32Of(21.0); got != want {
		t.Fatalf("test() = %d, want %d (Q16.16 of 21.0)", got, want)
	}
}
