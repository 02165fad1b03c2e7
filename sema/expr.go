package sema

import (
	"github.com/lightplayer/lightplayer/ast"
	"github.com/lightplayer/lightplayer/errors"
	"github.com/lightplayer/lightplayer/types"
)

func (a *Analyzer) checkExpr(e ast.Expr) Expr {
	switch x := e.(type) {
	case *ast.LiteralExpr:
		return &Literal{SpanVal: x.Span(), Value: literalConstValue(x)}

	case *ast.IdentExpr:
		return a.checkIdent(x)

	case *ast.MemberExpr:
		return a.checkMember(x)

	case *ast.SwizzleExpr:
		return a.checkSwizzle(x)

	case *ast.IndexExpr:
		return a.checkIndex(x)

	case *ast.CallExpr:
		return a.checkCall(x)

	case *ast.ConstructorExpr:
		return a.checkConstructor(x)

	case *ast.UnaryExpr:
		return a.checkUnary(x)

	case *ast.BinaryExpr:
		return a.checkBinary(x)

	default:
		return &Literal{SpanVal: e.Span(), Value: ConstValue{Type: types.Invalid}}
	}
}

func (a *Analyzer) checkIdent(x *ast.IdentExpr) Expr {
	sym, ok := a.scopes.lookup(x.Name)
	if !ok {
		a.errorf(errors.UnknownIdentifier(x.Span(), x.Name))
		return &Ident{SpanVal: x.Span(), Name: x.Name, Ty: types.Invalid}
	}
	if sym.constVal != nil {
		return &Literal{SpanVal: x.Span(), Value: *sym.constVal}
	}
	return &Ident{
		SpanVal:    x.Span(),
		Name:       x.Name,
		Ty:         sym.typ,
		IsOutParam: sym.qualifier == qualOut || sym.qualifier == qualInout,
	}
}

func (a *Analyzer) checkMember(x *ast.MemberExpr) Expr {
	base := a.checkExpr(x.Base)
	bt := base.Type()
	if bt.Kind != types.KindStruct {
		a.errorf(errors.TypeMismatch(x.Span(), "struct", bt.String()))
		return &Member{SpanVal: x.Span(), Base: base, FieldName: x.Field, Ty: types.Invalid}
	}
	for i, f := range bt.Fields {
		if f.Name == x.Field {
			return &Member{SpanVal: x.Span(), Base: base, FieldName: x.Field, FieldIdx: i, Ty: f.Type}
		}
	}
	a.errorf(errors.UnknownIdentifier(x.Span(), x.Field))
	return &Member{SpanVal: x.Span(), Base: base, FieldName: x.Field, Ty: types.Invalid}
}

// swizzleIndices maps a swizzle string (any of the xyzw/rgba/stpq
// component-name sets, spec §3.1) to 0-based component indices.
func swizzleIndices(s string) ([]int, bool) {
	idx := make([]int, 0, len(s))
	for _, r := range s {
		var i int
		switch r {
		case 'x', 'r', 's':
			i = 0
		case 'y', 'g', 't':
			i = 1
		case 'z', 'b', 'p':
			i = 2
		case 'w', 'a', 'q':
			i = 3
		default:
			return nil, false
		}
		idx = append(idx, i)
	}
	return idx, true
}

func hasDuplicateComponent(idx []int) bool {
	seen := make(map[int]bool, len(idx))
	for _, i := range idx {
		if seen[i] {
			return true
		}
		seen[i] = true
	}
	return false
}

func (a *Analyzer) checkSwizzle(x *ast.SwizzleExpr) Expr {
	base := a.checkExpr(x.Base)
	bt := base.Type()

	idx, ok := swizzleIndices(x.Components)
	if !ok || !bt.Kind.IsVector() {
		a.errorf(errors.TypeMismatch(x.Span(), "vector", bt.String()))
		return &Swizzle{SpanVal: x.Span(), Base: base, Ty: types.Invalid}
	}
	for _, i := range idx {
		if i >= bt.Kind.VectorLen() {
			a.errorf(errors.TypeMismatch(x.Span(), "valid swizzle component", x.Components))
			return &Swizzle{SpanVal: x.Span(), Base: base, Ty: types.Invalid}
		}
	}

	resultTy := scalarOrVectorOfLen(bt.Kind.ComponentKind(), len(idx))
	return &Swizzle{SpanVal: x.Span(), Base: base, Components: idx, Ty: resultTy}
}

func scalarOrVectorOfLen(component types.Kind, n int) *types.Type {
	if n == 1 {
		switch component {
		case types.KindFloat:
			return types.Float
		case types.KindInt:
			return types.Int
		case types.KindUint:
			return types.Uint
		case types.KindBool:
			return types.Bool
		}
		return types.Invalid
	}
	switch component {
	case types.KindFloat:
		return []*types.Type{nil, nil, types.Vec2, types.Vec3, types.Vec4}[n]
	case types.KindInt:
		return []*types.Type{nil, nil, types.IVec2, types.IVec3, types.IVec4}[n]
	case types.KindUint:
		return []*types.Type{nil, nil, types.UVec2, types.UVec3, types.UVec4}[n]
	case types.KindBool:
		return []*types.Type{nil, nil, types.BVec2, types.BVec3, types.BVec4}[n]
	}
	return types.Invalid
}

func (a *Analyzer) checkIndex(x *ast.IndexExpr) Expr {
	base := a.checkExpr(x.Base)
	idx := a.checkExpr(x.Index)
	bt := base.Type()

	var elemTy *types.Type
	switch {
	case bt.Kind == types.KindArray:
		elemTy = bt.Elem
	case bt.Kind.IsVector():
		elemTy = scalarOrVectorOfLen(bt.Kind.ComponentKind(), 1)
	case bt.Kind.IsMatrix():
		elemTy = vectorOfLen(bt.Kind.MatrixDim())
	default:
		a.errorf(errors.TypeMismatch(x.Span(), "array, vector, or matrix", bt.String()))
		elemTy = types.Invalid
	}
	return &Index{SpanVal: x.Span(), Base: base, Idx: idx, Ty: elemTy}
}

func vectorOfLen(n int) *types.Type {
	switch n {
	case 2:
		return types.Vec2
	case 3:
		return types.Vec3
	case 4:
		return types.Vec4
	default:
		return types.Invalid
	}
}

func (a *Analyzer) checkCall(x *ast.CallExpr) Expr {
	args := make([]Expr, len(x.Args))
	for i, ae := range x.Args {
		args[i] = a.checkExpr(ae)
	}

	if hdr, ok := a.funcSigs[x.Callee]; ok {
		if len(args) != len(hdr.params) {
			a.errorf(errors.ArityMismatch(x.Span(), x.Callee, len(hdr.params), len(args)))
		} else {
			for i, p := range hdr.params {
				args[i] = a.checkImplicitConvert(args[i], p.Type, args[i].Span())
				if p.Qualifier == qualOut || p.Qualifier == qualInout {
					if !isLvalue(args[i]) {
						a.errorf(errors.OutParamRequiresLvalue(args[i].Span(), p.Name))
					}
				}
			}
		}
		return &Call{SpanVal: x.Span(), Kind: CalleeUserFunc, Name: x.Callee, Args: args, Ty: hdr.result}
	}

	entry, ok := a.builtins.Lookup(x.Callee, len(args))
	if !ok {
		a.errorf(errors.UnknownIdentifier(x.Span(), x.Callee))
		return &Call{SpanVal: x.Span(), Kind: CalleeBuiltin, Name: x.Callee, Args: args, Ty: types.Invalid}
	}
	for i, p := range entry.Sig.Params {
		args[i] = a.checkImplicitConvert(args[i], p, args[i].Span())
	}
	return &Call{SpanVal: x.Span(), Kind: CalleeBuiltin, Name: x.Callee, Args: args, Ty: entry.Sig.Result, BuiltinID: int(entry.ID)}
}

func (a *Analyzer) checkConstructor(x *ast.ConstructorExpr) Expr {
	ty := a.resolveTypeSpec(x.Type)
	args := make([]Expr, len(x.Args))
	for i, ae := range x.Args {
		args[i] = a.checkExpr(ae)
	}

	switch {
	case ty.Kind.IsVector():
		comp := scalarOrVectorOfLen(ty.Kind.ComponentKind(), 1)
		for i, arg := range args {
			args[i] = a.checkImplicitConvert(arg, comp, arg.Span())
		}
	case ty.Kind.IsMatrix():
		col := vectorOfLen(ty.Kind.MatrixDim())
		for i, arg := range args {
			args[i] = a.checkImplicitConvert(arg, col, arg.Span())
		}
	case ty.Kind == types.KindArray:
		for i, arg := range args {
			args[i] = a.checkImplicitConvert(arg, ty.Elem, arg.Span())
		}
		if ty.Len != 0 && len(args) != ty.Len {
			a.errorf(errors.ArityMismatch(x.Span(), ty.String(), ty.Len, len(args)))
		}
	case ty.Kind == types.KindStruct:
		for i, f := range ty.Fields {
			if i < len(args) {
				args[i] = a.checkImplicitConvert(args[i], f.Type, args[i].Span())
			}
		}
		if len(args) != len(ty.Fields) {
			a.errorf(errors.ArityMismatch(x.Span(), ty.String(), len(ty.Fields), len(args)))
		}
	}

	return &Constructor{SpanVal: x.Span(), Ty: ty, Args: args}
}

func (a *Analyzer) checkUnary(x *ast.UnaryExpr) Expr {
	operand := a.checkExpr(x.Operand)
	op := convertUnaryOp(x.Op)

	if op == UnPreInc || op == UnPreDec {
		if !isLvalue(operand) {
			a.errorf(errors.QualifierViolation(x.Span(), "increment/decrement operand must be an lvalue"))
		}
		a.checkNotConst(operand, x.Span())
	}

	return &Unary{SpanVal: x.Span(), Op: op, X: operand, Ty: operand.Type()}
}

func convertUnaryOp(op ast.UnaryOp) UnaryOp {
	switch op {
	case ast.OpNeg:
		return UnNeg
	case ast.OpNot:
		return UnNot
	case ast.OpPreInc:
		return UnPreInc
	case ast.OpPreDec:
		return UnPreDec
	default:
		return UnNeg
	}
}

func (a *Analyzer) checkBinary(x *ast.BinaryExpr) Expr {
	left := a.checkExpr(x.Left)
	op := convertBinOp(x.Op)

	if op.IsAssignment() {
		a.checkAssignableLvalue(left, x.Span())
		a.checkNotConst(left, x.Span())
	}

	right := a.checkExpr(x.Right)
	right = a.checkImplicitConvert(right, left.Type(), right.Span())

	resultTy := left.Type()
	switch op {
	case BinEq, BinNe, BinLt, BinLe, BinGt, BinGe, BinAnd, BinOr:
		resultTy = types.Bool
	}
	if op.IsAssignment() {
		resultTy = left.Type()
	}

	return &Binary{SpanVal: x.Span(), Op: op, Left: left, Right: right, Ty: resultTy}
}

func convertBinOp(op ast.BinOp) BinOp {
	switch op {
	case ast.OpAdd:
		return BinAdd
	case ast.OpSub:
		return BinSub
	case ast.OpMul:
		return BinMul
	case ast.OpDiv:
		return BinDiv
	case ast.OpMod:
		return BinMod
	case ast.OpAnd:
		return BinAnd
	case ast.OpOr:
		return BinOr
	case ast.OpEq:
		return BinEq
	case ast.OpNe:
		return BinNe
	case ast.OpLt:
		return BinLt
	case ast.OpLe:
		return BinLe
	case ast.OpGt:
		return BinGt
	case ast.OpGe:
		return BinGe
	case ast.OpAssign:
		return BinAssign
	case ast.OpAddAssign:
		return BinAddAssign
	case ast.OpSubAssign:
		return BinSubAssign
	case ast.OpMulAssign:
		return BinMulAssign
	case ast.OpDivAssign:
		return BinDivAssign
	default:
		return BinAdd
	}
}

// checkImplicitConvert applies the spec §3.1 widening rule (int -> float,
// component-wise for vectors) when got does not already match want.
// Folded literals are re-coerced in place; everything else is wrapped in
// a Unary no-op is avoided — lower's instruction selection performs the
// actual widening instruction, so checking here only validates legality
// and retags literal constants.
func (a *Analyzer) checkImplicitConvert(e Expr, want *types.Type, span ast.Span) Expr {
	if want == nil || e.Type().Equal(want) {
		return e
	}
	if lit, ok := e.(*Literal); ok && want.Kind == types.KindFloat && lit.Value.Type.Kind != types.KindFloat {
		return &Literal{SpanVal: lit.SpanVal, Value: a.coerceConst(lit.Value, want)}
	}
	if e.Type().Kind == types.KindInt && want.Kind == types.KindFloat {
		return e // widened by lower; type recorded on the declaration/param, not here
	}
	if !e.Type().Equal(want) {
		a.errorf(errors.TypeMismatch(span, want.String(), e.Type().String()))
	}
	return e
}

// checkAssignableLvalue validates a would-be assignment target, reporting
// the more specific DuplicateSwizzleComponent diagnostic when a repeated
// swizzle component (e.g. `v.xx = ...`) is the reason it is not an
// lvalue (spec §4.1 pass 4).
func (a *Analyzer) checkAssignableLvalue(e Expr, span ast.Span) {
	if sw, ok := e.(*Swizzle); ok && hasDuplicateComponent(sw.Components) {
		a.errorf(errors.DuplicateSwizzleComponent(span, componentsString(sw.Components)))
		return
	}
	if !isLvalue(e) {
		a.errorf(errors.QualifierViolation(span, "left-hand side of assignment must be an lvalue"))
	}
}

func componentsString(idx []int) string {
	const names = "xyzw"
	b := make([]byte, len(idx))
	for i, c := range idx {
		b[i] = names[c]
	}
	return string(b)
}

func (a *Analyzer) checkNotConst(e Expr, span ast.Span) {
	id, ok := e.(*Ident)
	if !ok {
		return
	}
	sym, ok := a.scopes.lookup(id.Name)
	if ok && sym.qualifier == qualConst {
		a.errorf(errors.QualifierViolation(span, "cannot assign to const parameter or binding \""+id.Name+"\""))
	}
}

// isLvalue reports whether e denotes an assignable storage location
// (spec §4.1 pass 4): a variable/parameter reference, a field access, a
// non-repeating swizzle, or an array/vector index, recursively.
func isLvalue(e Expr) bool {
	switch x := e.(type) {
	case *Ident:
		return true
	case *Member:
		return isLvalue(x.Base)
	case *Swizzle:
		if hasDuplicateComponent(x.Components) {
			return false
		}
		return isLvalue(x.Base)
	case *Index:
		return isLvalue(x.Base)
	default:
		return false
	}
}
