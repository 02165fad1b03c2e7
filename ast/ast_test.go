package ast

import "testing"

func TestExprSpans(t *testing.T) {
	sp := Span{Start: 1, End: 2}
	exprs := []Expr{
		&LiteralExpr{SpanVal: sp},
		&IdentExpr{SpanVal: sp},
		&MemberExpr{SpanVal: sp},
		&SwizzleExpr{SpanVal: sp},
		&IndexExpr{SpanVal: sp},
		&CallExpr{SpanVal: sp},
		&ConstructorExpr{SpanVal: sp},
		&UnaryExpr{SpanVal: sp},
		&BinaryExpr{SpanVal: sp},
	}
	for _, e := range exprs {
		if e.Span() != sp {
			t.Errorf("%T.Span() = %v, want %v", e, e.Span(), sp)
		}
	}
}

func TestStmtSpans(t *testing.T) {
	sp := Span{Start: 3, End: 4}
	stmts := []Stmt{
		&BlockStmt{SpanVal: sp},
		&DeclStmt{SpanVal: sp},
		&ExprStmt{SpanVal: sp},
		&IfStmt{SpanVal: sp},
		&ForStmt{SpanVal: sp},
		&WhileStmt{SpanVal: sp},
		&DoWhileStmt{SpanVal: sp},
		&BreakStmt{SpanVal: sp},
		&ContinueStmt{SpanVal: sp},
		&ReturnStmt{SpanVal: sp},
	}
	for _, s := range stmts {
		if s.Span() != sp {
			t.Errorf("%T.Span() = %v, want %v", s, s.Span(), sp)
		}
	}
}

func TestTypeSpecSpans(t *testing.T) {
	sp := Span{Start: 5, End: 6}
	specs := []TypeSpec{
		&ScalarTypeSpec{SpanVal: sp, Name: "float"},
		&VectorTypeSpec{SpanVal: sp, Name: "vec3", Len: 3},
		&MatrixTypeSpec{SpanVal: sp, Name: "mat4", Dim: 4},
		&ArrayTypeSpec{SpanVal: sp, Elem: &ScalarTypeSpec{Name: "int"}},
		&StructTypeSpec{SpanVal: sp, Name: "Light"},
	}
	for _, s := range specs {
		if s.Span() != sp {
			t.Errorf("%T.Span() = %v, want %v", s, s.Span(), sp)
		}
	}
}

func TestModuleShape(t *testing.T) {
	m := &Module{
		Structs: []*StructDecl{{Name: "Light", Fields: []StructField{{Name: "intensity", Type: &ScalarTypeSpec{Name: "float"}}}}},
		Consts:  []*ConstDecl{{Name: "PI", Type: &ScalarTypeSpec{Name: "float"}, Init: &LiteralExpr{Kind: LitFloat, Float: 3.14159}}},
		Funcs: []*FuncDecl{{
			Name:       "test",
			ReturnType: &ScalarTypeSpec{Name: "float"},
			Body:       &BlockStmt{Stmts: []Stmt{&ReturnStmt{Value: &LiteralExpr{Kind: LitFloat, Float: 1.5}}}},
		}},
	}

	if len(m.Structs) != 1 || m.Structs[0].Name != "Light" {
		t.Errorf("unexpected Structs: %+v", m.Structs)
	}
	if len(m.Funcs) != 1 || m.Funcs[0].Body == nil {
		t.Errorf("unexpected Funcs: %+v", m.Funcs)
	}
}
