package lower

import (
	"testing"

	"github.com/lightplayer/lightplayer/ast"
	"github.com/lightplayer/lightplayer/builtin"
	"github.com/lightplayer/lightplayer/sema"
	"github.com/lightplayer/lightplayer/ssa"
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

func litInt(v int64) ast.Expr {
	return &ast.LiteralExpr{Kind: ast.LitInt, Int: v}
}

func analyzeOK(t *testing.T, m *ast.Module) *sema.Module {
	t.Helper()
	mod, errs := sema.New(newTestRegistry()).Analyze(m)
	if len(errs) != 0 {
		t.Fatalf("unexpected sema errors: %v", errs)
	}
	return mod
}

func lowerFunc(t *testing.T, m *ast.Module, name string) *ssa.Function {
	t.Helper()
	mod := analyzeOK(t, m)
	out := New(newTestRegistry()).Module(mod)
	fn := out.Func(name)
	if fn == nil {
		t.Fatalf("function %q missing from lowered module", name)
	}
	return fn
}

func countOp(fn *ssa.Function, op ssa.Opcode) int {
	n := 0
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if in.Op == op {
				n++
			}
		}
	}
	return n
}

// TestLowerScalarArithmetic exercises the smallest possible body: a
// float add folded into a single return.
func TestLowerScalarArithmetic(t *testing.T) {
	m := &ast.Module{
		Funcs: []*ast.FuncDecl{
			{
				Name:       "addOne",
				ReturnType: scalarSpec("float"),
				Params: []ast.Param{
					{Name: "x", Type: scalarSpec("float")},
				},
				Body: &ast.BlockStmt{
					Stmts: []ast.Stmt{
						&ast.ReturnStmt{Value: &ast.BinaryExpr{
							Op:    ast.OpAdd,
							Left:  &ast.IdentExpr{Name: "x"},
							Right: lit(1.0),
						}},
					},
				},
			},
		},
	}

	fn := lowerFunc(t, m, "addOne")
	if countOp(fn, ssa.OpFAdd) != 1 {
		t.Fatalf("expected exactly one FAdd, got function: %+v", fn)
	}
	if countOp(fn, ssa.OpReturn) != 1 {
		t.Fatalf("expected exactly one Return")
	}
	if fn.Sig.Result != ssa.TypeF32 {
		t.Fatalf("expected f32 result, got %v", fn.Sig.Result)
	}
}

// TestLowerIfElseMerge exercises spec §4.2's register-vs-pointer join
// algorithm: an if/else where both branches assign a register-backed
// local, which must reconcile into a block parameter at the merge
// point rather than a stack slot.
func TestLowerIfElseMerge(t *testing.T) {
	m := &ast.Module{
		Funcs: []*ast.FuncDecl{
			{
				Name:       "pick",
				ReturnType: scalarSpec("float"),
				Params: []ast.Param{
					{Name: "cond", Type: scalarSpec("bool")},
				},
				Body: &ast.BlockStmt{
					Stmts: []ast.Stmt{
						&ast.DeclStmt{Name: "r", Type: scalarSpec("float"), Init: lit(0.0)},
						&ast.IfStmt{
							Cond: &ast.IdentExpr{Name: "cond"},
							Then: &ast.BlockStmt{Stmts: []ast.Stmt{
								&ast.ExprStmt{X: &ast.BinaryExpr{
									Op:    ast.OpAssign,
									Left:  &ast.IdentExpr{Name: "r"},
									Right: lit(1.0),
								}},
							}},
							Else: &ast.BlockStmt{Stmts: []ast.Stmt{
								&ast.ExprStmt{X: &ast.BinaryExpr{
									Op:    ast.OpAssign,
									Left:  &ast.IdentExpr{Name: "r"},
									Right: lit(2.0),
								}},
							}},
						},
						&ast.ReturnStmt{Value: &ast.IdentExpr{Name: "r"}},
					},
				},
			},
		},
	}

	fn := lowerFunc(t, m, "pick")
	if countOp(fn, ssa.OpBrif) != 1 {
		t.Fatalf("expected exactly one Brif, got function: %+v", fn)
	}
	if countOp(fn, ssa.OpStackAddr) != 0 {
		t.Fatalf("expected no stack slots for a register-backed merge, got function: %+v", fn)
	}

	found := false
	for _, b := range fn.Blocks {
		// the entry block's params are the incoming arguments, not a merge.
		if len(b.Params) > 0 && b.ID != fn.EntryBlock().ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected at least one merge block to carry a parameter, got function: %+v", fn)
	}
}

// TestLowerForLoopAccumulator exercises a loop-carried accumulator,
// which must also reconcile through a block parameter on the loop
// header rather than a stack slot.
func TestLowerForLoopAccumulator(t *testing.T) {
	m := &ast.Module{
		Funcs: []*ast.FuncDecl{
			{
				Name:       "sumTo",
				ReturnType: scalarSpec("int"),
				Params: []ast.Param{
					{Name: "n", Type: scalarSpec("int")},
				},
				Body: &ast.BlockStmt{
					Stmts: []ast.Stmt{
						&ast.DeclStmt{Name: "acc", Type: scalarSpec("int"), Init: litInt(0)},
						&ast.ForStmt{
							Init: &ast.DeclStmt{Name: "i", Type: scalarSpec("int"), Init: litInt(0)},
							Cond: &ast.BinaryExpr{
								Op:    ast.OpLt,
								Left:  &ast.IdentExpr{Name: "i"},
								Right: &ast.IdentExpr{Name: "n"},
							},
							Post: &ast.ExprStmt{X: &ast.UnaryExpr{Op: ast.OpPreInc, Operand: &ast.IdentExpr{Name: "i"}}},
							Body: &ast.BlockStmt{Stmts: []ast.Stmt{
								&ast.ExprStmt{X: &ast.BinaryExpr{
									Op:    ast.OpAddAssign,
									Left:  &ast.IdentExpr{Name: "acc"},
									Right: &ast.IdentExpr{Name: "i"},
								}},
							}},
						},
						&ast.ReturnStmt{Value: &ast.IdentExpr{Name: "acc"}},
					},
				},
			},
		},
	}

	fn := lowerFunc(t, m, "sumTo")
	if countOp(fn, ssa.OpJump) == 0 {
		t.Fatalf("expected at least one Jump (loop back-edge), got function: %+v", fn)
	}

	found := false
	for _, b := range fn.Blocks {
		// the entry block's params are the incoming arguments, not a merge.
		if len(b.Params) > 0 && b.ID != fn.EntryBlock().ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the loop header to carry a block parameter for acc/i, got function: %+v", fn)
	}
}

// TestLowerStructLocal exercises a struct-typed local, which must be
// stack-slot-backed (never register-backed) and addressed via field
// offsets rather than loaded as a whole.
func TestLowerStructLocal(t *testing.T) {
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
				Name:       "sumPair",
				ReturnType: scalarSpec("float"),
				Body: &ast.BlockStmt{
					Stmts: []ast.Stmt{
						&ast.DeclStmt{
							Name: "p",
							Type: &ast.StructTypeSpec{Name: "Pair"},
							Init: &ast.ConstructorExpr{
								Type: &ast.StructTypeSpec{Name: "Pair"},
								Args: []ast.Expr{lit(1.0), lit(2.0)},
							},
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

	fn := lowerFunc(t, m, "sumPair")
	if countOp(fn, ssa.OpStackAddr) == 0 {
		t.Fatalf("expected the struct local to be stack-slot-backed, got function: %+v", fn)
	}
	if len(fn.Slots) == 0 {
		t.Fatalf("expected a stack slot to be registered for the struct local")
	}
	if countOp(fn, ssa.OpFAdd) != 1 {
		t.Fatalf("expected exactly one FAdd combining the two fields")
	}
}

// TestLowerOutParamCall exercises the out-parameter calling
// convention: the callee must take a pointer argument and the caller
// must read the value back after the call.
func TestLowerOutParamCall(t *testing.T) {
	m := &ast.Module{
		Funcs: []*ast.FuncDecl{
			{
				Name: "produce",
				Params: []ast.Param{
					{Name: "v", Type: scalarSpec("float"), Qualifier: ast.QualifierOut},
				},
				Body: &ast.BlockStmt{
					Stmts: []ast.Stmt{
						&ast.ExprStmt{X: &ast.BinaryExpr{
							Op:    ast.OpAssign,
							Left:  &ast.IdentExpr{Name: "v"},
							Right: lit(3.0),
						}},
					},
				},
			},
			{
				Name:       "caller",
				ReturnType: scalarSpec("float"),
				Body: &ast.BlockStmt{
					Stmts: []ast.Stmt{
						&ast.DeclStmt{Name: "r", Type: scalarSpec("float")},
						&ast.ExprStmt{X: &ast.CallExpr{
							Callee: "produce",
							Args:   []ast.Expr{&ast.IdentExpr{Name: "r"}},
						}},
						&ast.ReturnStmt{Value: &ast.IdentExpr{Name: "r"}},
					},
				},
			},
		},
	}

	mod := analyzeOK(t, m)
	out := New(newTestRegistry()).Module(mod)

	produce := out.Func("produce")
	if produce == nil {
		t.Fatalf("produce missing from lowered module")
	}
	if len(produce.Sig.Params) != 1 || produce.Sig.Params[0] != ssa.TypePtr {
		t.Fatalf("expected produce to take a single pointer parameter, got %+v", produce.Sig.Params)
	}

	caller := out.Func("caller")
	if caller == nil {
		t.Fatalf("caller missing from lowered module")
	}
	if countOp(caller, ssa.OpCall) != 1 {
		t.Fatalf("expected exactly one Call in caller")
	}
	if countOp(caller, ssa.OpLoad) == 0 {
		t.Fatalf("expected caller to read the out value back via Load after the call")
	}
}
