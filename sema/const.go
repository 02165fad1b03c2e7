package sema

import (
	"github.com/lightplayer/lightplayer/ast"
	"github.com/lightplayer/lightplayer/types"
)

// foldConst evaluates e as a compile-time constant expression (spec
// §4.1 pass 2). Only the forms the spec requires to be constant-foldable
// are handled: literals, references to already-folded const bindings,
// and arithmetic/comparison over folded operands. Anything else (calls,
// non-const identifiers, indexing) is not constant.
func (a *Analyzer) foldConst(e ast.Expr) (ConstValue, bool) {
	switch x := e.(type) {
	case *ast.LiteralExpr:
		return literalConstValue(x), true

	case *ast.IdentExpr:
		sym, ok := a.scopes.lookup(x.Name)
		if !ok || sym.constVal == nil {
			return ConstValue{}, false
		}
		return *sym.constVal, true

	case *ast.UnaryExpr:
		v, ok := a.foldConst(x.Operand)
		if !ok {
			return ConstValue{}, false
		}
		return foldUnary(x.Op, v)

	case *ast.BinaryExpr:
		l, ok := a.foldConst(x.Left)
		if !ok {
			return ConstValue{}, false
		}
		r, ok := a.foldConst(x.Right)
		if !ok {
			return ConstValue{}, false
		}
		return foldBinary(x.Op, l, r)

	default:
		return ConstValue{}, false
	}
}

func literalConstValue(l *ast.LiteralExpr) ConstValue {
	switch l.Kind {
	case ast.LitInt:
		return ConstValue{Type: types.Int, Int: l.Int}
	case ast.LitUint:
		return ConstValue{Type: types.Uint, Int: l.Int}
	case ast.LitFloat:
		return ConstValue{Type: types.Float, Float: l.Float}
	case ast.LitBool:
		return ConstValue{Type: types.Bool, Bool: l.Bool}
	default:
		return ConstValue{Type: types.Invalid}
	}
}

func foldUnary(op ast.UnaryOp, v ConstValue) (ConstValue, bool) {
	switch op {
	case ast.OpNeg:
		if v.Type.Kind == types.KindFloat {
			return ConstValue{Type: types.Float, Float: -v.Float}, true
		}
		return ConstValue{Type: v.Type, Int: -v.Int}, true
	case ast.OpNot:
		return ConstValue{Type: types.Bool, Bool: !v.Bool}, true
	default:
		return ConstValue{}, false
	}
}

func foldBinary(op ast.BinOp, l, r ConstValue) (ConstValue, bool) {
	isFloat := l.Type.Kind == types.KindFloat || r.Type.Kind == types.KindFloat
	lf, rf := asFloat(l), asFloat(r)

	switch op {
	case ast.OpAdd:
		if isFloat {
			return ConstValue{Type: types.Float, Float: lf + rf}, true
		}
		return ConstValue{Type: l.Type, Int: l.Int + r.Int}, true
	case ast.OpSub:
		if isFloat {
			return ConstValue{Type: types.Float, Float: lf - rf}, true
		}
		return ConstValue{Type: l.Type, Int: l.Int - r.Int}, true
	case ast.OpMul:
		if isFloat {
			return ConstValue{Type: types.Float, Float: lf * rf}, true
		}
		return ConstValue{Type: l.Type, Int: l.Int * r.Int}, true
	case ast.OpDiv:
		if isFloat {
			return ConstValue{Type: types.Float, Float: lf / rf}, true
		}
		if r.Int == 0 {
			return ConstValue{}, false
		}
		return ConstValue{Type: l.Type, Int: l.Int / r.Int}, true
	default:
		return ConstValue{}, false
	}
}

func asFloat(v ConstValue) float64 {
	if v.Type.Kind == types.KindFloat {
		return v.Float
	}
	return float64(v.Int)
}

// coerceConst applies the spec §3.1 widening rule (int->float only) to
// bring a folded value's representation in line with its declared type.
func (a *Analyzer) coerceConst(v ConstValue, want *types.Type) ConstValue {
	if want.Kind == types.KindFloat && v.Type.Kind != types.KindFloat {
		return ConstValue{Type: types.Float, Float: asFloat(v)}
	}
	return v
}
