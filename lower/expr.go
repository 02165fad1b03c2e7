package lower

import (
	"github.com/lightplayer/lightplayer/builtin"
	"github.com/lightplayer/lightplayer/errors"
	"github.com/lightplayer/lightplayer/sema"
	"github.com/lightplayer/lightplayer/ssa"
	"github.com/lightplayer/lightplayer/types"
)

// trapArrayBounds is the guest trap code an out-of-range array index
// raises (spec §4.2's bounds-check idiom: an inline icmp+Trapnz guarding
// the load/store in the same block).
const trapArrayBounds int32 = 1

// Reserved extern names for the two scalar conversions that need a
// real numeric transform rather than a bit-for-bit reinterpretation.
// Everything else the Q32 pass needs to know about an fp operation is
// named this way already (spec §4.3); these two conversions are no
// different, so they flow through the same CalleeExternRef mechanism
// rather than inventing a dedicated IR opcode. The leading '$' keeps
// them out of the GLSL identifier namespace a builtin name could ever
// collide with.
const (
	externIntToFloat = "$itof"
	externFloatToInt = "$ftoi"
)

func (fl *fnLower) lowerExpr(e sema.Expr) place {
	switch x := e.(type) {
	case *sema.Literal:
		return fl.lowerLiteral(x)
	case *sema.Ident:
		return fl.lowerIdent(x)
	case *sema.Member:
		return fl.lowerMember(x)
	case *sema.Swizzle:
		return fl.lowerSwizzle(x)
	case *sema.Index:
		return fl.lowerIndex(x)
	case *sema.Call:
		return fl.lowerCall(x)
	case *sema.Constructor:
		return fl.lowerConstructor(x)
	case *sema.Unary:
		return fl.lowerUnary(x)
	case *sema.Binary:
		return fl.lowerBinary(x)
	default:
		panic(errors.Internal("lower", "unhandled expression kind"))
	}
}

func (fl *fnLower) iConst(v int64) ssa.ValueID {
	if id, ok := fl.iconsts[v]; ok {
		return id
	}
	id := fl.entryBuilder().IConst(v)
	fl.iconsts[v] = id
	return id
}

func (fl *fnLower) f32Const(v float32) ssa.ValueID {
	if id, ok := fl.fconsts[v]; ok {
		return id
	}
	id := fl.entryBuilder().F32Const(v)
	fl.fconsts[v] = id
	return id
}

func (fl *fnLower) i8Const(v int64) ssa.ValueID {
	if id, ok := fl.i8consts[v]; ok {
		return id
	}
	id := fl.entryBuilder().IConst8(v)
	fl.i8consts[v] = id
	return id
}

func (fl *fnLower) lowerLiteral(x *sema.Literal) place {
	switch x.Value.Type.Kind {
	case types.KindFloat:
		return regPlace(x.Value.Type, fl.f32Const(float32(x.Value.Float)))
	case types.KindBool:
		v := int64(0)
		if x.Value.Bool {
			v = 1
		}
		return regPlace(x.Value.Type, fl.i8Const(v))
	default:
		return regPlace(x.Value.Type, fl.iConst(x.Value.Int))
	}
}

func (fl *fnLower) lowerIdent(x *sema.Ident) place {
	p, ok := fl.env[x.Name]
	if !ok {
		panic(errors.Internal("lower", "unbound identifier: "+x.Name))
	}
	return p
}

// newSlotPlace allocates a fresh stack slot for an intermediate
// aggregate/vector value (a constructor result, a call's hidden return
// value) and returns its address as a pointer-backed place. The
// StackAddr itself is emitted in the entry block, same as every other
// slot in the function, so it dominates every later use regardless of
// which block this call runs in.
func (fl *fnLower) newSlotPlace(ty *types.Type) place {
	info := fl.layouts.Calculate(ty)
	slot := fl.fn.NewSlot(info.Size, info.Align)
	ptr := fl.entryBuilder().StackAddr(slot)
	return ptrPlace(ty, ptr)
}

func (fl *fnLower) elemAddr(ptr ssa.ValueID, offset int32) ssa.ValueID {
	if offset == 0 {
		return ptr
	}
	return fl.b.Binary(ssa.OpIAdd, ssa.TypePtr, ptr, fl.iConst(int64(offset)))
}

func (fl *fnLower) dynamicElemAddr(ptr, idx ssa.ValueID, elemSize int) ssa.ValueID {
	scaled := fl.b.Binary(ssa.OpIMul, ssa.TypeI32, idx, fl.iConst(int64(elemSize)))
	return fl.b.Binary(ssa.OpIAdd, ssa.TypePtr, ptr, scaled)
}

// subPlace returns the place of a field/element living at a static
// byte offset within base, spilling base to a stack slot first if it
// is still register-backed (e.g. `vec3(1,2,3).y`, a member access on a
// temporary).
func (fl *fnLower) subPlace(base place, ty *types.Type, offset int32) place {
	ptr := fl.elemAddr(fl.addr(base), offset)
	return ptrPlace(ty, ptr)
}

func (fl *fnLower) lowerMember(x *sema.Member) place {
	base := fl.lowerExpr(x.Base)
	off := fl.layouts.FieldOffset(x.Base.Type(), x.FieldIdx)
	return fl.subPlace(base, x.Ty, int32(off))
}

func (fl *fnLower) lowerSwizzle(x *sema.Swizzle) place {
	base := fl.load(fl.lowerExpr(x.Base))
	scalars := make([]ssa.ValueID, len(x.Components))
	for i, c := range x.Components {
		scalars[i] = base.scalars[c]
	}
	return regPlace(x.Ty, scalars...)
}

func (fl *fnLower) lowerIndex(x *sema.Index) place {
	base := fl.lowerExpr(x.Base)
	idx := fl.load(fl.lowerExpr(x.Idx)).scalars[0]
	elemSize := fl.layouts.Calculate(x.Ty).Size

	if bt := x.Base.Type(); bt.Kind == types.KindArray {
		bound := fl.iConst(int64(bt.Len))
		oob := fl.b.ICmp(ssa.CondUGE, idx, bound)
		fl.b.Trapnz(oob, trapArrayBounds)
	}

	ptr := fl.dynamicElemAddr(fl.addr(base), idx, elemSize)
	return ptrPlace(x.Ty, ptr)
}

// assign commits val to the storage lhs names, returning the
// now-current place of that storage. Every lvalue form funnels through
// here: a plain identifier rebinds its env entry (or, if it is already
// pointer-backed — an out/inout parameter or a whole-aggregate
// destination — copies through storeAggregate); a member/index target
// is always pointer-backed already; a swizzle recurses into its base.
func (fl *fnLower) assign(lhs sema.Expr, val place) place {
	switch x := lhs.(type) {
	case *sema.Ident:
		dst := fl.env[x.Name]
		if dst.pointer {
			fl.storeAggregate(dst, val)
			return dst
		}
		loaded := fl.load(val)
		stored := fl.store(dst, loaded.scalars)
		fl.env[x.Name] = stored
		return stored
	case *sema.Member:
		dst := fl.lowerMember(x)
		fl.storeAggregate(dst, val)
		return dst
	case *sema.Index:
		dst := fl.lowerIndex(x)
		fl.storeAggregate(dst, val)
		return dst
	case *sema.Swizzle:
		return fl.assignSwizzle(x, val)
	default:
		panic(errors.Internal("lower", "unassignable expression (should have been rejected by sema)"))
	}
}

// assignSwizzle rewrites the swizzled components of Base in place: load
// the full base vector, overwrite just the addressed components, then
// write the whole vector back through assign (which recurses into
// whatever lvalue form Base itself is — a plain local, a struct field,
// an array element).
func (fl *fnLower) assignSwizzle(x *sema.Swizzle, val place) place {
	base := fl.load(fl.lowerExpr(x.Base))
	newVal := fl.load(val)
	scalars := append([]ssa.ValueID(nil), base.scalars...)
	for i, c := range x.Components {
		scalars[c] = newVal.scalars[i]
	}
	fl.assign(x.Base, regPlace(x.Base.Type(), scalars...))
	return regPlace(x.Ty, newVal.scalars...)
}

// widen applies the spec §3.1 int->float implicit-widening rule at the
// one point sema leaves it undone (checkImplicitConvert validates
// legality but defers the actual conversion to "lower's instruction
// selection"). A no-op whenever v's type already matches want.
func (fl *fnLower) widen(v place, want *types.Type) place {
	if want == nil || v.ty.Equal(want) {
		return v
	}
	loaded := fl.load(v)
	fromCt := componentType(v.ty)
	toCt := componentType(want)
	scalars := make([]ssa.ValueID, len(loaded.scalars))
	for i, s := range loaded.scalars {
		scalars[i] = fl.convertScalar(s, fromCt, toCt)
	}
	return regPlace(want, scalars...)
}

// convertScalar converts one scalar value from one component type to
// another, covering every explicit constructor conversion (float(i),
// int(f), bool(x), uint(i)) as well as the implicit int->float widening
// widen calls it for. int<->uint reuses the bit pattern unchanged,
// matching GLSL's defined reinterpretation between the two.
func (fl *fnLower) convertScalar(v ssa.ValueID, from, to *types.Type) ssa.ValueID {
	if from.Kind == to.Kind {
		return v
	}
	switch {
	case to.Kind == types.KindFloat && (from.Kind == types.KindInt || from.Kind == types.KindUint):
		return fl.b.Call(ssa.Callee{Kind: ssa.CalleeExternRef, ExternRef: externIntToFloat}, ssa.TypeF32, v)
	case from.Kind == types.KindFloat && (to.Kind == types.KindInt || to.Kind == types.KindUint):
		return fl.b.Call(ssa.Callee{Kind: ssa.CalleeExternRef, ExternRef: externFloatToInt}, ssa.TypeI32, v)
	case to.Kind == types.KindBool:
		zero := fl.zeroValue(ssaType(from))
		if from.Kind == types.KindFloat {
			return fl.b.FCmp(ssa.CondNE, v, zero)
		}
		return fl.b.ICmp(ssa.CondNE, v, zero)
	case from.Kind == types.KindBool:
		sel := fl.b.Select(ssa.TypeI32, v, fl.iConst(1), fl.iConst(0))
		if to.Kind == types.KindFloat {
			return fl.b.Call(ssa.Callee{Kind: ssa.CalleeExternRef, ExternRef: externIntToFloat}, ssa.TypeF32, sel)
		}
		return sel
	default: // int <-> uint: identical bit pattern
		return v
	}
}

func vectorTypeForDim(dim int) *types.Type {
	switch dim {
	case 2:
		return types.Vec2
	case 3:
		return types.Vec3
	default:
		return types.Vec4
	}
}

// matrixElem reads one column-major element of a matrix place, per
// spec §4.2: "element access computes an offset (col * N + row) *
// sizeof(float)".
func (fl *fnLower) matrixElem(p place, dim, col, row int) ssa.ValueID {
	ptr := fl.addr(p)
	off := int32((col*dim + row) * wordSize)
	return fl.b.Load(ssa.TypeF32, ptr, off)
}

func (fl *fnLower) matrixStore(res place, dim, col, row int, v ssa.ValueID) {
	fl.b.Store(res.ptr, v, int32((col*dim+row)*wordSize))
}

// mulMatMat expands a matN * matN product into its dim^3 scalar
// multiply-adds (spec §4.2: "Matrix-matrix, matrix-vector, matrix-
// scalar operators are expanded into the scalar SSA form"). Matrix
// dimensions are always 2, 3, or 4 and known at lowering time, so the
// triple loop unrolls into straight-line code with no runtime loop.
func (fl *fnLower) mulMatMat(lp, rp place, dim int) place {
	res := fl.newSlotPlace(lp.ty)
	for col := 0; col < dim; col++ {
		for row := 0; row < dim; row++ {
			var sum ssa.ValueID
			for k := 0; k < dim; k++ {
				a := fl.matrixElem(lp, dim, k, row)
				b := fl.matrixElem(rp, dim, col, k)
				prod := fl.b.Binary(ssa.OpFMul, ssa.TypeF32, a, b)
				if k == 0 {
					sum = prod
				} else {
					sum = fl.b.Binary(ssa.OpFAdd, ssa.TypeF32, sum, prod)
				}
			}
			fl.matrixStore(res, dim, col, row, sum)
		}
	}
	return res
}

// mulMatVec expands matN * vecN (column-vector transform).
func (fl *fnLower) mulMatVec(mp, v place, dim int) place {
	lv := fl.load(v)
	scalars := make([]ssa.ValueID, dim)
	for row := 0; row < dim; row++ {
		var sum ssa.ValueID
		for col := 0; col < dim; col++ {
			a := fl.matrixElem(mp, dim, col, row)
			prod := fl.b.Binary(ssa.OpFMul, ssa.TypeF32, a, lv.scalars[col])
			if col == 0 {
				sum = prod
			} else {
				sum = fl.b.Binary(ssa.OpFAdd, ssa.TypeF32, sum, prod)
			}
		}
		scalars[row] = sum
	}
	return regPlace(vectorTypeForDim(dim), scalars...)
}

// mulVecMat expands vecN * matN (row-vector transform).
func (fl *fnLower) mulVecMat(v, mp place, dim int) place {
	lv := fl.load(v)
	scalars := make([]ssa.ValueID, dim)
	for col := 0; col < dim; col++ {
		var sum ssa.ValueID
		for row := 0; row < dim; row++ {
			a := fl.matrixElem(mp, dim, col, row)
			prod := fl.b.Binary(ssa.OpFMul, ssa.TypeF32, a, lv.scalars[row])
			if row == 0 {
				sum = prod
			} else {
				sum = fl.b.Binary(ssa.OpFAdd, ssa.TypeF32, sum, prod)
			}
		}
		scalars[col] = sum
	}
	return regPlace(vectorTypeForDim(dim), scalars...)
}

func (fl *fnLower) mulMatScalar(mp place, s ssa.ValueID, dim int) place {
	res := fl.newSlotPlace(mp.ty)
	for col := 0; col < dim; col++ {
		for row := 0; row < dim; row++ {
			a := fl.matrixElem(mp, dim, col, row)
			fl.matrixStore(res, dim, col, row, fl.b.Binary(ssa.OpFMul, ssa.TypeF32, a, s))
		}
	}
	return res
}

// lowerMatrixOp expands the componentwise matN +/- matN forms, and the
// matN * scalar / matN * matN forms a compound-assignment operator can
// also name.
func (fl *fnLower) lowerMatrixOp(op sema.BinOp, ty *types.Type, lp, rp place) place {
	dim := ty.Kind.MatrixDim()
	switch op {
	case sema.BinAdd, sema.BinSub:
		fop := ssa.OpFAdd
		if op == sema.BinSub {
			fop = ssa.OpFSub
		}
		res := fl.newSlotPlace(ty)
		for col := 0; col < dim; col++ {
			for row := 0; row < dim; row++ {
				a := fl.matrixElem(lp, dim, col, row)
				b := fl.matrixElem(rp, dim, col, row)
				fl.matrixStore(res, dim, col, row, fl.b.Binary(fop, ssa.TypeF32, a, b))
			}
		}
		return res
	case sema.BinMul:
		if rp.ty.Kind.IsMatrix() {
			return fl.mulMatMat(lp, rp, dim)
		}
		return fl.mulMatScalar(lp, fl.load(rp).scalars[0], dim)
	default:
		panic(errors.Internal("lower", "unsupported matrix operator"))
	}
}

func (fl *fnLower) lowerMatrixBinary(x *sema.Binary) place {
	lp := fl.lowerExpr(x.Left)
	rp := fl.lowerExpr(x.Right)
	lt, rt := x.Left.Type(), x.Right.Type()

	switch {
	case lt.Kind.IsMatrix() && rt.Kind.IsMatrix():
		if x.Op == sema.BinMul {
			return fl.mulMatMat(lp, rp, lt.Kind.MatrixDim())
		}
		return fl.lowerMatrixOp(x.Op, x.Ty, lp, rp)
	case lt.Kind.IsMatrix() && rt.Kind.IsVector():
		return fl.mulMatVec(lp, rp, lt.Kind.MatrixDim())
	case lt.Kind.IsVector() && rt.Kind.IsMatrix():
		return fl.mulVecMat(lp, rp, rt.Kind.MatrixDim())
	case lt.Kind.IsMatrix():
		return fl.mulMatScalar(lp, fl.load(rp).scalars[0], lt.Kind.MatrixDim())
	default:
		return fl.mulMatScalar(rp, fl.load(lp).scalars[0], rt.Kind.MatrixDim())
	}
}

func isCompare(op sema.BinOp) bool {
	switch op {
	case sema.BinEq, sema.BinNe, sema.BinLt, sema.BinLe, sema.BinGt, sema.BinGe:
		return true
	}
	return false
}

func condFor(op sema.BinOp, ct *types.Type) ssa.Cond {
	unsigned := ct.Kind == types.KindUint
	isFloat := ct.Kind == types.KindFloat
	switch op {
	case sema.BinEq:
		return ssa.CondEQ
	case sema.BinNe:
		return ssa.CondNE
	case sema.BinLt:
		switch {
		case isFloat:
			return ssa.CondLT
		case unsigned:
			return ssa.CondULT
		default:
			return ssa.CondSLT
		}
	case sema.BinLe:
		switch {
		case isFloat:
			return ssa.CondLE
		case unsigned:
			return ssa.CondULE
		default:
			return ssa.CondSLE
		}
	case sema.BinGt:
		switch {
		case isFloat:
			return ssa.CondGT
		case unsigned:
			return ssa.CondUGT
		default:
			return ssa.CondSGT
		}
	case sema.BinGe:
		switch {
		case isFloat:
			return ssa.CondGE
		case unsigned:
			return ssa.CondUGE
		default:
			return ssa.CondSGE
		}
	default:
		panic(errors.Internal("lower", "not a comparison operator"))
	}
}

func pickComponent(p place, i int) ssa.ValueID {
	if len(p.scalars) == 1 {
		return p.scalars[0]
	}
	return p.scalars[i]
}

// lowerCompare implements GLSL's scalar relational operators and the
// aggregate equality rule for == and != on vectors (all/any of the
// componentwise comparison, rather than a bvecN result — lessThan and
// friends are the builtins that produce a bvecN).
func (fl *fnLower) lowerCompare(op sema.BinOp, resultTy *types.Type, lp, rp place, ct *types.Type) place {
	ll := fl.load(lp)
	rl := fl.load(rp)
	cond := condFor(op, ct)

	cmp := func(i int) ssa.ValueID {
		a, b := pickComponent(ll, i), pickComponent(rl, i)
		if ct.Kind == types.KindFloat {
			return fl.b.FCmp(cond, a, b)
		}
		return fl.b.ICmp(cond, a, b)
	}

	n := len(ll.scalars)
	if n <= 1 || (op != sema.BinEq && op != sema.BinNe) {
		return regPlace(resultTy, cmp(0))
	}

	acc := cmp(0)
	for i := 1; i < n; i++ {
		c := cmp(i)
		if op == sema.BinNe {
			acc = fl.b.Binary(ssa.OpIOr, ssa.TypeI8, acc, c)
		} else {
			acc = fl.b.Binary(ssa.OpIAnd, ssa.TypeI8, acc, c)
		}
	}
	return regPlace(resultTy, acc)
}

func (fl *fnLower) scalarBinary(op sema.BinOp, ct *types.Type, l, r ssa.ValueID) ssa.ValueID {
	if ct.Kind == types.KindFloat {
		switch op {
		case sema.BinAdd:
			return fl.b.Binary(ssa.OpFAdd, ssa.TypeF32, l, r)
		case sema.BinSub:
			return fl.b.Binary(ssa.OpFSub, ssa.TypeF32, l, r)
		case sema.BinMul:
			return fl.b.Binary(ssa.OpFMul, ssa.TypeF32, l, r)
		case sema.BinDiv:
			return fl.b.Binary(ssa.OpFDiv, ssa.TypeF32, l, r)
		}
	}
	switch op {
	case sema.BinAdd:
		return fl.b.Binary(ssa.OpIAdd, ssa.TypeI32, l, r)
	case sema.BinSub:
		return fl.b.Binary(ssa.OpISub, ssa.TypeI32, l, r)
	case sema.BinMul:
		return fl.b.Binary(ssa.OpIMul, ssa.TypeI32, l, r)
	case sema.BinDiv:
		if ct.Kind == types.KindUint {
			return fl.b.Binary(ssa.OpUDiv, ssa.TypeI32, l, r)
		}
		return fl.b.Binary(ssa.OpSDiv, ssa.TypeI32, l, r)
	case sema.BinMod:
		if ct.Kind == types.KindUint {
			return fl.b.Binary(ssa.OpURem, ssa.TypeI32, l, r)
		}
		return fl.b.Binary(ssa.OpSRem, ssa.TypeI32, l, r)
	case sema.BinAnd:
		return fl.b.Binary(ssa.OpIAnd, ssa.TypeI8, l, r)
	case sema.BinOr:
		return fl.b.Binary(ssa.OpIOr, ssa.TypeI8, l, r)
	}
	panic(errors.Internal("lower", "unhandled binary operator"))
}

// binaryComponentwise expands an arithmetic/logical operator over every
// component of a vector result, broadcasting a one-component operand
// against a wider one (vec3 * float, float * vec3).
func (fl *fnLower) binaryComponentwise(op sema.BinOp, ty *types.Type, lp, rp place) place {
	ll := fl.load(lp)
	rl := fl.load(rp)
	ct := componentType(ty)
	n := componentCount(ty)
	scalars := make([]ssa.ValueID, n)
	for i := 0; i < n; i++ {
		scalars[i] = fl.scalarBinary(op, ct, pickComponent(ll, i), pickComponent(rl, i))
	}
	return regPlace(ty, scalars...)
}

func compoundBase(op sema.BinOp) sema.BinOp {
	switch op {
	case sema.BinAddAssign:
		return sema.BinAdd
	case sema.BinSubAssign:
		return sema.BinSub
	case sema.BinMulAssign:
		return sema.BinMul
	case sema.BinDivAssign:
		return sema.BinDiv
	default:
		panic(errors.Internal("lower", "not a compound assignment operator"))
	}
}

func (fl *fnLower) lowerAssign(x *sema.Binary) place {
	rhs := fl.lowerExpr(x.Right)
	if x.Op == sema.BinAssign {
		return fl.assign(x.Left, fl.widen(rhs, x.Left.Type()))
	}

	lhsVal := fl.lowerExpr(x.Left)
	base := compoundBase(x.Op)
	var combined place
	if x.Ty.Kind.IsMatrix() {
		combined = fl.lowerMatrixOp(base, x.Ty, lhsVal, rhs)
	} else {
		combined = fl.binaryComponentwise(base, x.Ty, lhsVal, rhs)
	}
	return fl.assign(x.Left, combined)
}

func (fl *fnLower) lowerBinary(x *sema.Binary) place {
	if x.Op.IsAssignment() {
		return fl.lowerAssign(x)
	}

	lt := x.Left.Type()
	rt := x.Right.Type()
	if lt.Kind.IsMatrix() || rt.Kind.IsMatrix() {
		return fl.lowerMatrixBinary(x)
	}

	lp := fl.lowerExpr(x.Left)
	rp := fl.lowerExpr(x.Right)
	if isCompare(x.Op) {
		return fl.lowerCompare(x.Op, x.Ty, lp, rp, componentType(lt))
	}
	return fl.binaryComponentwise(x.Op, x.Ty, lp, rp)
}

func (fl *fnLower) constOne(ct *types.Type) ssa.ValueID {
	if ct.Kind == types.KindFloat {
		return fl.f32Const(1)
	}
	return fl.iConst(1)
}

func (fl *fnLower) lowerUnary(x *sema.Unary) place {
	switch x.Op {
	case sema.UnNeg:
		p := fl.load(fl.lowerExpr(x.X))
		ct := componentType(x.Ty)
		scalars := make([]ssa.ValueID, len(p.scalars))
		for i, v := range p.scalars {
			if ct.Kind == types.KindFloat {
				scalars[i] = fl.b.Unary(ssa.OpFNeg, ssa.TypeF32, v)
			} else {
				scalars[i] = fl.b.Unary(ssa.OpINeg, ssa.TypeI32, v)
			}
		}
		return regPlace(x.Ty, scalars...)

	case sema.UnNot:
		p := fl.load(fl.lowerExpr(x.X))
		return regPlace(x.Ty, fl.b.ICmp(ssa.CondEQ, p.scalars[0], fl.i8Const(0)))

	case sema.UnPreInc, sema.UnPreDec:
		p := fl.load(fl.lowerExpr(x.X))
		ct := componentType(x.Ty)
		one := fl.constOne(ct)
		var nv ssa.ValueID
		if ct.Kind == types.KindFloat {
			op := ssa.OpFAdd
			if x.Op == sema.UnPreDec {
				op = ssa.OpFSub
			}
			nv = fl.b.Binary(op, ssa.TypeF32, p.scalars[0], one)
		} else {
			op := ssa.OpIAdd
			if x.Op == sema.UnPreDec {
				op = ssa.OpISub
			}
			nv = fl.b.Binary(op, ssa.TypeI32, p.scalars[0], one)
		}
		result := regPlace(x.Ty, nv)
		fl.assign(x.X, result)
		return result

	default:
		panic(errors.Internal("lower", "unhandled unary operator"))
	}
}

func (fl *fnLower) lowerConstructor(x *sema.Constructor) place {
	switch {
	case x.Ty.Kind.IsVector():
		return fl.constructVector(x)
	case x.Ty.Kind.IsMatrix():
		return fl.constructMatrix(x)
	case x.Ty.Kind == types.KindArray:
		return fl.constructArray(x)
	case x.Ty.Kind == types.KindStruct:
		return fl.constructStruct(x)
	default:
		v := fl.load(fl.lowerExpr(x.Args[0]))
		return regPlace(x.Ty, fl.convertScalar(v.scalars[0], componentType(x.Args[0].Type()), componentType(x.Ty)))
	}
}

// constructVector implements both the broadcast form (vec3(1.0)) and
// the concatenation form (vec4(v.xyz, 1.0), vec3(v2, f)): every
// argument's scalar components are flattened in order, converting each
// to the result's component type, and truncated to the result's width.
func (fl *fnLower) constructVector(x *sema.Constructor) place {
	n := x.Ty.Kind.VectorLen()
	ct := componentType(x.Ty)

	if len(x.Args) == 1 && x.Args[0].Type().Kind.IsScalar() {
		v := fl.load(fl.lowerExpr(x.Args[0]))
		conv := fl.convertScalar(v.scalars[0], componentType(x.Args[0].Type()), ct)
		scalars := make([]ssa.ValueID, n)
		for i := range scalars {
			scalars[i] = conv
		}
		return regPlace(x.Ty, scalars...)
	}

	var scalars []ssa.ValueID
	for _, a := range x.Args {
		av := fl.load(fl.lowerExpr(a))
		fromCt := componentType(a.Type())
		for _, s := range av.scalars {
			scalars = append(scalars, fl.convertScalar(s, fromCt, ct))
		}
	}
	return regPlace(x.Ty, scalars[:n]...)
}

func (fl *fnLower) constructMatrix(x *sema.Constructor) place {
	dim := x.Ty.Kind.MatrixDim()
	res := fl.newSlotPlace(x.Ty)

	switch {
	case len(x.Args) == 1 && x.Args[0].Type().Kind == types.KindFloat:
		s := fl.load(fl.lowerExpr(x.Args[0])).scalars[0]
		zero := fl.f32Const(0)
		for col := 0; col < dim; col++ {
			for row := 0; row < dim; row++ {
				v := zero
				if col == row {
					v = s
				}
				fl.matrixStore(res, dim, col, row, v)
			}
		}

	case len(x.Args) == 1 && x.Args[0].Type().Kind.IsMatrix():
		src := fl.lowerExpr(x.Args[0])
		srcDim := x.Args[0].Type().Kind.MatrixDim()
		one, zero := fl.f32Const(1), fl.f32Const(0)
		for col := 0; col < dim; col++ {
			for row := 0; row < dim; row++ {
				var v ssa.ValueID
				switch {
				case col < srcDim && row < srcDim:
					v = fl.matrixElem(src, srcDim, col, row)
				case col == row:
					v = one
				default:
					v = zero
				}
				fl.matrixStore(res, dim, col, row, v)
			}
		}

	default:
		i := 0
		for col := 0; col < dim; col++ {
			for row := 0; row < dim; row++ {
				v := fl.load(fl.lowerExpr(x.Args[i])).scalars[0]
				fl.matrixStore(res, dim, col, row, v)
				i++
			}
		}
	}
	return res
}

func (fl *fnLower) constructArray(x *sema.Constructor) place {
	res := fl.newSlotPlace(x.Ty)
	elemSize := fl.layouts.Calculate(x.Ty.Elem).Size
	for i, a := range x.Args {
		v := fl.lowerExpr(a)
		dst := ptrPlace(x.Ty.Elem, fl.elemAddr(res.ptr, int32(i*elemSize)))
		fl.storeAggregate(dst, v)
	}
	return res
}

func (fl *fnLower) constructStruct(x *sema.Constructor) place {
	res := fl.newSlotPlace(x.Ty)
	for i, a := range x.Args {
		v := fl.lowerExpr(a)
		off := fl.layouts.FieldOffset(x.Ty, i)
		dst := ptrPlace(x.Ty.Fields[i].Type, fl.elemAddr(res.ptr, int32(off)))
		fl.storeAggregate(dst, v)
	}
	return res
}

func (fl *fnLower) lowerCall(x *sema.Call) place {
	if x.Kind == sema.CalleeUserFunc {
		return fl.lowerUserCall(x)
	}
	return fl.lowerBuiltinCall(x)
}

// lowerUserCall marshals arguments per spec §4.2's calling convention:
// an aggregate or wide-vector return routes through a hidden leading
// pointer argument; an out/inout parameter is passed by address, and —
// if the caller's own argument storage was register-backed — the
// callee's write is read back into the caller's binding once the call
// returns, since the callee only ever saw the spilled copy.
func (fl *fnLower) lowerUserCall(x *sema.Call) place {
	target := fl.lo.funcs[x.Name]
	hiddenReturn := target.ReturnType != nil && usesHiddenReturn(target.ReturnType)

	var args []ssa.ValueID
	var retPtr ssa.ValueID
	if hiddenReturn {
		res := fl.newSlotPlace(target.ReturnType)
		retPtr = res.ptr
		args = append(args, retPtr)
	}

	type fixup struct {
		expr sema.Expr
		ptr  ssa.ValueID
		ty   *types.Type
	}
	var fixups []fixup

	for i, p := range target.Params {
		argExpr := x.Args[i]
		if p.Qualifier.IsOut() || p.Qualifier.IsInout() {
			ptr := fl.addr(fl.lowerExpr(argExpr))
			args = append(args, ptr)
			fixups = append(fixups, fixup{argExpr, ptr, p.Type})
			continue
		}
		if isAggregate(p.Type) {
			args = append(args, fl.addr(fl.lowerExpr(argExpr)))
			continue
		}
		v := fl.load(fl.widen(fl.lowerExpr(argExpr), p.Type))
		args = append(args, v.scalars...)
	}

	callee := ssa.Callee{Kind: ssa.CalleeIntraModule, FuncIndex: fl.lo.funcIndex[x.Name]}
	var resultTy ssa.Type
	if !hiddenReturn && target.ReturnType != nil {
		resultTy = ssaType(componentType(target.ReturnType))
	}
	res := fl.b.Call(callee, resultTy, args...)

	for _, fx := range fixups {
		id, ok := fx.expr.(*sema.Ident)
		if !ok {
			continue
		}
		if dst := fl.env[id.Name]; !dst.pointer {
			fl.env[id.Name] = fl.load(ptrPlace(fx.ty, fx.ptr))
		}
	}

	switch {
	case target.ReturnType == nil:
		return place{}
	case hiddenReturn:
		return ptrPlace(target.ReturnType, retPtr)
	default:
		return regPlace(target.ReturnType, res)
	}
}

// lowerBuiltinCall emits a call through the TestCase deferred-
// resolution form (ssa.CalleeExternRef), named by the builtin's GLSL
// identity; the Q32 pass resolves it to that builtin's fixed-point
// variant, and the backend resolves the survivor to its native
// function pointer or ELF symbol (spec §3.5, §4.4).
func (fl *fnLower) lowerBuiltinCall(x *sema.Call) place {
	entry := fl.lo.builtins.Get(builtin.ID(x.BuiltinID))
	hiddenReturn := entry.Sig.Result != nil && usesHiddenReturn(entry.Sig.Result)

	var args []ssa.ValueID
	var retPtr ssa.ValueID
	if hiddenReturn {
		res := fl.newSlotPlace(entry.Sig.Result)
		retPtr = res.ptr
		args = append(args, retPtr)
	}

	for i, a := range x.Args {
		v := fl.load(fl.widen(fl.lowerExpr(a), entry.Sig.Params[i]))
		args = append(args, v.scalars...)
	}

	var resultTy ssa.Type
	if !hiddenReturn && entry.Sig.Result != nil {
		resultTy = ssaType(componentType(entry.Sig.Result))
	}
	res := fl.b.Call(ssa.Callee{Kind: ssa.CalleeExternRef, ExternRef: entry.Name}, resultTy, args...)

	switch {
	case entry.Sig.Result == nil:
		return place{}
	case hiddenReturn:
		return ptrPlace(entry.Sig.Result, retPtr)
	default:
		return regPlace(entry.Sig.Result, res)
	}
}
