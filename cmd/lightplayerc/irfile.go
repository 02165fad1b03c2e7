package main

// The GLSL parser itself is out of scope for this core (SPEC_FULL.md
// §8's scenarios are all hand-built typed IR for the same reason), so
// the CLI's input file is a JSON encoding of the typed-IR shape
// compiler.Compile already accepts: a tagged union per node kind,
// decoded with the standard library rather than a third-party
// serialization package, since no pack example reaches for one to
// decode a tagged union of AST node kinds — this is the one place in
// the repository where stdlib encoding/json is the grounded choice
// rather than an exception to be justified away.

import (
	"encoding/json"
	"fmt"

	"github.com/lightplayer/lightplayer/ast"
)

func decodeModule(data []byte) (*ast.Module, error) {
	var raw struct {
		Consts  []json.RawMessage `json:"consts"`
		Structs []json.RawMessage `json:"structs"`
		Funcs   []json.RawMessage `json:"funcs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode module: %w", err)
	}

	m := &ast.Module{}
	for _, r := range raw.Consts {
		d, err := decodeConstDecl(r)
		if err != nil {
			return nil, err
		}
		m.Consts = append(m.Consts, d)
	}
	for _, r := range raw.Structs {
		d, err := decodeStructDecl(r)
		if err != nil {
			return nil, err
		}
		m.Structs = append(m.Structs, d)
	}
	for _, r := range raw.Funcs {
		d, err := decodeFuncDecl(r)
		if err != nil {
			return nil, err
		}
		m.Funcs = append(m.Funcs, d)
	}
	return m, nil
}

func decodeConstDecl(raw json.RawMessage) (*ast.ConstDecl, error) {
	var v struct {
		Name string          `json:"name"`
		Type json.RawMessage `json:"type"`
		Init json.RawMessage `json:"init"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode const: %w", err)
	}
	ty, err := decodeTypeSpec(v.Type)
	if err != nil {
		return nil, err
	}
	init, err := decodeExpr(v.Init)
	if err != nil {
		return nil, err
	}
	return &ast.ConstDecl{Name: v.Name, Type: ty, Init: init}, nil
}

func decodeStructDecl(raw json.RawMessage) (*ast.StructDecl, error) {
	var v struct {
		Name   string `json:"name"`
		Fields []struct {
			Name string          `json:"name"`
			Type json.RawMessage `json:"type"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode struct: %w", err)
	}
	d := &ast.StructDecl{Name: v.Name}
	for _, f := range v.Fields {
		ty, err := decodeTypeSpec(f.Type)
		if err != nil {
			return nil, err
		}
		d.Fields = append(d.Fields, ast.StructField{Name: f.Name, Type: ty})
	}
	return d, nil
}

func decodeFuncDecl(raw json.RawMessage) (*ast.FuncDecl, error) {
	var v struct {
		Name   string `json:"name"`
		Params []struct {
			Name      string          `json:"name"`
			Type      json.RawMessage `json:"type"`
			Qualifier string          `json:"qualifier"`
		} `json:"params"`
		ReturnType json.RawMessage `json:"returnType"`
		Body       json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode func %s: %w", v.Name, err)
	}

	d := &ast.FuncDecl{Name: v.Name}
	for _, p := range v.Params {
		ty, err := decodeTypeSpec(p.Type)
		if err != nil {
			return nil, err
		}
		d.Params = append(d.Params, ast.Param{Name: p.Name, Type: ty, Qualifier: decodeQualifier(p.Qualifier)})
	}
	if len(v.ReturnType) > 0 {
		ty, err := decodeTypeSpec(v.ReturnType)
		if err != nil {
			return nil, err
		}
		d.ReturnType = ty
	}
	if len(v.Body) > 0 {
		body, err := decodeStmt(v.Body)
		if err != nil {
			return nil, err
		}
		block, ok := body.(*ast.BlockStmt)
		if !ok {
			return nil, fmt.Errorf("func %s: body must be a block", v.Name)
		}
		d.Body = block
	}
	return d, nil
}

func decodeQualifier(s string) ast.ParamQualifier {
	switch s {
	case "out":
		return ast.QualifierOut
	case "inout":
		return ast.QualifierInout
	case "const":
		return ast.QualifierConst
	default:
		return ast.QualifierIn
	}
}

func decodeTypeSpec(raw json.RawMessage) (ast.TypeSpec, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode type: %w", err)
	}
	switch head.Kind {
	case "scalar":
		var v struct {
			Name string `json:"name"`
		}
		json.Unmarshal(raw, &v)
		return &ast.ScalarTypeSpec{Name: v.Name}, nil
	case "vector":
		var v struct {
			Name string `json:"name"`
			Len  int    `json:"len"`
		}
		json.Unmarshal(raw, &v)
		return &ast.VectorTypeSpec{Name: v.Name, Len: v.Len}, nil
	case "matrix":
		var v struct {
			Name string `json:"name"`
			Dim  int    `json:"dim"`
		}
		json.Unmarshal(raw, &v)
		return &ast.MatrixTypeSpec{Name: v.Name, Dim: v.Dim}, nil
	case "array":
		var v struct {
			Elem json.RawMessage `json:"elem"`
			Size json.RawMessage `json:"size"`
		}
		json.Unmarshal(raw, &v)
		elem, err := decodeTypeSpec(v.Elem)
		if err != nil {
			return nil, err
		}
		var size ast.Expr
		if len(v.Size) > 0 {
			size, err = decodeExpr(v.Size)
			if err != nil {
				return nil, err
			}
		}
		return &ast.ArrayTypeSpec{Elem: elem, Size: size}, nil
	case "struct":
		var v struct {
			Name string `json:"name"`
		}
		json.Unmarshal(raw, &v)
		return &ast.StructTypeSpec{Name: v.Name}, nil
	default:
		return nil, fmt.Errorf("unknown type kind %q", head.Kind)
	}
}

var binOps = map[string]ast.BinOp{
	"add": ast.OpAdd, "sub": ast.OpSub, "mul": ast.OpMul, "div": ast.OpDiv, "mod": ast.OpMod,
	"and": ast.OpAnd, "or": ast.OpOr, "eq": ast.OpEq, "ne": ast.OpNe,
	"lt": ast.OpLt, "le": ast.OpLe, "gt": ast.OpGt, "ge": ast.OpGe,
	"assign": ast.OpAssign, "addAssign": ast.OpAddAssign, "subAssign": ast.OpSubAssign,
	"mulAssign": ast.OpMulAssign, "divAssign": ast.OpDivAssign,
}

var unaryOps = map[string]ast.UnaryOp{
	"neg": ast.OpNeg, "not": ast.OpNot, "preInc": ast.OpPreInc, "preDec": ast.OpPreDec,
}

func decodeExpr(raw json.RawMessage) (ast.Expr, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode expr: %w", err)
	}
	switch head.Kind {
	case "literal":
		var v struct {
			LitKind string  `json:"litKind"`
			Int     int64   `json:"int"`
			Float   float64 `json:"float"`
			Bool    bool    `json:"bool"`
		}
		json.Unmarshal(raw, &v)
		switch v.LitKind {
		case "int":
			return &ast.LiteralExpr{Kind: ast.LitInt, Int: v.Int}, nil
		case "uint":
			return &ast.LiteralExpr{Kind: ast.LitUint, Int: v.Int}, nil
		case "bool":
			return &ast.LiteralExpr{Kind: ast.LitBool, Bool: v.Bool}, nil
		default:
			return &ast.LiteralExpr{Kind: ast.LitFloat, Float: v.Float}, nil
		}
	case "ident":
		var v struct {
			Name string `json:"name"`
		}
		json.Unmarshal(raw, &v)
		return &ast.IdentExpr{Name: v.Name}, nil
	case "member":
		var v struct {
			Base  json.RawMessage `json:"base"`
			Field string          `json:"field"`
		}
		json.Unmarshal(raw, &v)
		base, err := decodeExpr(v.Base)
		if err != nil {
			return nil, err
		}
		return &ast.MemberExpr{Base: base, Field: v.Field}, nil
	case "swizzle":
		var v struct {
			Base       json.RawMessage `json:"base"`
			Components string          `json:"components"`
		}
		json.Unmarshal(raw, &v)
		base, err := decodeExpr(v.Base)
		if err != nil {
			return nil, err
		}
		return &ast.SwizzleExpr{Base: base, Components: v.Components}, nil
	case "index":
		var v struct {
			Base  json.RawMessage `json:"base"`
			Index json.RawMessage `json:"index"`
		}
		json.Unmarshal(raw, &v)
		base, err := decodeExpr(v.Base)
		if err != nil {
			return nil, err
		}
		idx, err := decodeExpr(v.Index)
		if err != nil {
			return nil, err
		}
		return &ast.IndexExpr{Base: base, Index: idx}, nil
	case "call":
		var v struct {
			Callee string            `json:"callee"`
			Args   []json.RawMessage `json:"args"`
		}
		json.Unmarshal(raw, &v)
		args, err := decodeExprs(v.Args)
		if err != nil {
			return nil, err
		}
		return &ast.CallExpr{Callee: v.Callee, Args: args}, nil
	case "constructor":
		var v struct {
			Type json.RawMessage   `json:"type"`
			Args []json.RawMessage `json:"args"`
		}
		json.Unmarshal(raw, &v)
		ty, err := decodeTypeSpec(v.Type)
		if err != nil {
			return nil, err
		}
		args, err := decodeExprs(v.Args)
		if err != nil {
			return nil, err
		}
		return &ast.ConstructorExpr{Type: ty, Args: args}, nil
	case "unary":
		var v struct {
			Op      string          `json:"op"`
			Operand json.RawMessage `json:"operand"`
		}
		json.Unmarshal(raw, &v)
		operand, err := decodeExpr(v.Operand)
		if err != nil {
			return nil, err
		}
		op, ok := unaryOps[v.Op]
		if !ok {
			return nil, fmt.Errorf("unknown unary op %q", v.Op)
		}
		return &ast.UnaryExpr{Op: op, Operand: operand}, nil
	case "binary":
		var v struct {
			Op    string          `json:"op"`
			Left  json.RawMessage `json:"left"`
			Right json.RawMessage `json:"right"`
		}
		json.Unmarshal(raw, &v)
		left, err := decodeExpr(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeExpr(v.Right)
		if err != nil {
			return nil, err
		}
		op, ok := binOps[v.Op]
		if !ok {
			return nil, fmt.Errorf("unknown binary op %q", v.Op)
		}
		return &ast.BinaryExpr{Op: op, Left: left, Right: right}, nil
	default:
		return nil, fmt.Errorf("unknown expr kind %q", head.Kind)
	}
}

func decodeExprs(raw []json.RawMessage) ([]ast.Expr, error) {
	out := make([]ast.Expr, 0, len(raw))
	for _, r := range raw {
		e, err := decodeExpr(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeStmt(raw json.RawMessage) (ast.Stmt, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode stmt: %w", err)
	}
	switch head.Kind {
	case "block":
		var v struct {
			Stmts []json.RawMessage `json:"stmts"`
		}
		json.Unmarshal(raw, &v)
		b := &ast.BlockStmt{}
		for _, r := range v.Stmts {
			s, err := decodeStmt(r)
			if err != nil {
				return nil, err
			}
			b.Stmts = append(b.Stmts, s)
		}
		return b, nil
	case "decl":
		var v struct {
			Name  string          `json:"name"`
			Type  json.RawMessage `json:"type"`
			Init  json.RawMessage `json:"init"`
			Const bool            `json:"const"`
		}
		json.Unmarshal(raw, &v)
		ty, err := decodeTypeSpec(v.Type)
		if err != nil {
			return nil, err
		}
		init, err := decodeExpr(v.Init)
		if err != nil {
			return nil, err
		}
		return &ast.DeclStmt{Name: v.Name, Type: ty, Init: init, Const: v.Const}, nil
	case "expr":
		var v struct {
			X json.RawMessage `json:"x"`
		}
		json.Unmarshal(raw, &v)
		x, err := decodeExpr(v.X)
		if err != nil {
			return nil, err
		}
		return &ast.ExprStmt{X: x}, nil
	case "if":
		var v struct {
			Cond json.RawMessage `json:"cond"`
			Then json.RawMessage `json:"then"`
			Else json.RawMessage `json:"else"`
		}
		json.Unmarshal(raw, &v)
		cond, err := decodeExpr(v.Cond)
		if err != nil {
			return nil, err
		}
		then, err := decodeStmt(v.Then)
		if err != nil {
			return nil, err
		}
		els, err := decodeStmt(v.Else)
		if err != nil {
			return nil, err
		}
		return &ast.IfStmt{Cond: cond, Then: then, Else: els}, nil
	case "for":
		var v struct {
			Init json.RawMessage `json:"init"`
			Cond json.RawMessage `json:"cond"`
			Post json.RawMessage `json:"post"`
			Body json.RawMessage `json:"body"`
		}
		json.Unmarshal(raw, &v)
		init, err := decodeStmt(v.Init)
		if err != nil {
			return nil, err
		}
		cond, err := decodeExpr(v.Cond)
		if err != nil {
			return nil, err
		}
		post, err := decodeStmt(v.Post)
		if err != nil {
			return nil, err
		}
		body, err := decodeStmt(v.Body)
		if err != nil {
			return nil, err
		}
		return &ast.ForStmt{Init: init, Cond: cond, Post: post, Body: body}, nil
	case "while":
		var v struct {
			Cond json.RawMessage `json:"cond"`
			Body json.RawMessage `json:"body"`
		}
		json.Unmarshal(raw, &v)
		cond, err := decodeExpr(v.Cond)
		if err != nil {
			return nil, err
		}
		body, err := decodeStmt(v.Body)
		if err != nil {
			return nil, err
		}
		return &ast.WhileStmt{Cond: cond, Body: body}, nil
	case "dowhile":
		var v struct {
			Cond json.RawMessage `json:"cond"`
			Body json.RawMessage `json:"body"`
		}
		json.Unmarshal(raw, &v)
		cond, err := decodeExpr(v.Cond)
		if err != nil {
			return nil, err
		}
		body, err := decodeStmt(v.Body)
		if err != nil {
			return nil, err
		}
		return &ast.DoWhileStmt{Cond: cond, Body: body}, nil
	case "break":
		return &ast.BreakStmt{}, nil
	case "continue":
		return &ast.ContinueStmt{}, nil
	case "return":
		var v struct {
			Value json.RawMessage `json:"value"`
		}
		json.Unmarshal(raw, &v)
		val, err := decodeExpr(v.Value)
		if err != nil {
			return nil, err
		}
		return &ast.ReturnStmt{Value: val}, nil
	default:
		return nil, fmt.Errorf("unknown stmt kind %q", head.Kind)
	}
}
