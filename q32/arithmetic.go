package q32

import "github.com/lightplayer/lightplayer/ssa"

// fnegSeq appends the saturating negate sequence for a into dest: the
// INT32_MIN special case (spec §4.3: "a == INT32_MIN -> INT32_MAX",
// since -INT32_MIN cannot be represented) means a plain `isub 0, a`
// is not enough on its own.
func fnegSeq(tr *FunctionTransformer, a ssa.ValueID, dest ssa.ValueID) []ssa.Instr {
	fn := tr.fn
	zero := tr.pool.Get(0)
	minC := tr.pool.Get(int32Min)
	maxC := tr.pool.Get(int32Max)

	neg := fn.NewValue(ssa.TypeI32)
	isMin := fn.NewValue(ssa.TypeI8)

	return []ssa.Instr{
		{Op: ssa.OpISub, Result: neg, ResultTy: ssa.TypeI32, Args: []ssa.ValueID{zero, a}},
		{Op: ssa.OpICmp, Result: isMin, ResultTy: ssa.TypeI8, Cond: ssa.CondEQ, Args: []ssa.ValueID{a, minC}},
		{Op: ssa.OpSelect, Result: dest, ResultTy: ssa.TypeI32, Args: []ssa.ValueID{isMin, maxC, neg}},
	}
}

// rewriteFNeg implements `fneg a`.
func rewriteFNeg(tr *FunctionTransformer, instr ssa.Instr) []ssa.Instr {
	return fnegSeq(tr, instr.Args[0], instr.Result)
}

// rewriteFAbs implements `fabs a` as select(a<0, fnegSeq(a), a), reusing
// the same INT32_MIN guard fneg needs.
func rewriteFAbs(tr *FunctionTransformer, instr ssa.Instr) []ssa.Instr {
	fn := tr.fn
	a := instr.Args[0]
	zero := tr.pool.Get(0)

	negated := fn.NewValue(ssa.TypeI32)
	out := fnegSeq(tr, a, negated)

	isNeg := fn.NewValue(ssa.TypeI8)
	out = append(out, ssa.Instr{Op: ssa.OpICmp, Result: isNeg, ResultTy: ssa.TypeI8, Cond: ssa.CondSLT, Args: []ssa.ValueID{a, zero}})
	out = append(out, ssa.Instr{Op: ssa.OpSelect, Result: instr.Result, ResultTy: ssa.TypeI32, Args: []ssa.ValueID{isNeg, negated, a}})
	return out
}

// satAddSub implements the shared saturating-arithmetic shape behind
// fadd/fsub (spec §4.3, §8 property 4): compute the wrapping result,
// then detect two's-complement overflow by comparing operand/result
// signs, and select a clamp when it fires.
//
// Overflow conditions (op is OpIAdd or OpISub):
//   - add: sign(a) == sign(b) && sign(r) != sign(a)
//   - sub: sign(a) != sign(b) && sign(r) != sign(a)
//
// In both cases the clamp direction is select(sign(a), INT32_MIN,
// INT32_MAX): an overflowing add of two negatives, or an underflowing
// subtraction of a positive from a very negative a, both saturate low;
// the mirror cases saturate high.
func satAddSub(tr *FunctionTransformer, instr ssa.Instr, op ssa.Opcode) []ssa.Instr {
	fn := tr.fn
	a, b := instr.Args[0], instr.Args[1]
	zero := tr.pool.Get(0)
	one := tr.pool.Get(1)
	minC := tr.pool.Get(int32Min)
	maxC := tr.pool.Get(int32Max)

	signA := fn.NewValue(ssa.TypeI8)
	signB := fn.NewValue(ssa.TypeI8)
	r := fn.NewValue(ssa.TypeI32)
	signR := fn.NewValue(ssa.TypeI8)
	xorAB := fn.NewValue(ssa.TypeI8)
	xorAR := fn.NewValue(ssa.TypeI8)
	overflow := fn.NewValue(ssa.TypeI8)
	clamp := fn.NewValue(ssa.TypeI32)

	out := []ssa.Instr{
		{Op: ssa.OpICmp, Result: signA, ResultTy: ssa.TypeI8, Cond: ssa.CondSLT, Args: []ssa.ValueID{a, zero}},
		{Op: ssa.OpICmp, Result: signB, ResultTy: ssa.TypeI8, Cond: ssa.CondSLT, Args: []ssa.ValueID{b, zero}},
		{Op: op, Result: r, ResultTy: ssa.TypeI32, Args: []ssa.ValueID{a, b}},
		{Op: ssa.OpICmp, Result: signR, ResultTy: ssa.TypeI8, Cond: ssa.CondSLT, Args: []ssa.ValueID{r, zero}},
		{Op: ssa.OpIXor, Result: xorAB, ResultTy: ssa.TypeI8, Args: []ssa.ValueID{signA, signB}},
		{Op: ssa.OpIXor, Result: xorAR, ResultTy: ssa.TypeI8, Args: []ssa.ValueID{signA, signR}},
	}

	if op == ssa.OpIAdd {
		notXorAB := fn.NewValue(ssa.TypeI8)
		out = append(out, ssa.Instr{Op: ssa.OpIXor, Result: notXorAB, ResultTy: ssa.TypeI8, Args: []ssa.ValueID{xorAB, one}})
		out = append(out, ssa.Instr{Op: ssa.OpIAnd, Result: overflow, ResultTy: ssa.TypeI8, Args: []ssa.ValueID{notXorAB, xorAR}})
	} else {
		out = append(out, ssa.Instr{Op: ssa.OpIAnd, Result: overflow, ResultTy: ssa.TypeI8, Args: []ssa.ValueID{xorAB, xorAR}})
	}

	out = append(out, ssa.Instr{Op: ssa.OpSelect, Result: clamp, ResultTy: ssa.TypeI32, Args: []ssa.ValueID{signA, minC, maxC}})
	out = append(out, ssa.Instr{Op: ssa.OpSelect, Result: instr.Result, ResultTy: ssa.TypeI32, Args: []ssa.ValueID{overflow, clamp, r}})
	return out
}

// rewriteFAdd implements `fadd a b`.
func rewriteFAdd(tr *FunctionTransformer, instr ssa.Instr) []ssa.Instr {
	return satAddSub(tr, instr, ssa.OpIAdd)
}

// rewriteFSub implements `fsub a b`.
func rewriteFSub(tr *FunctionTransformer, instr ssa.Instr) []ssa.Instr {
	return satAddSub(tr, instr, ssa.OpISub)
}

// q32MulSymbol and q32DivSymbol are the imported fixed-point multiply
// and divide routines fmul/fdiv rewrite to (spec §4.3): their internal
// rounding and saturation policy is too costly to inline at every call
// site, so they live out-of-line, resolved through the same
// CalleeExternRef deferred-resolution mechanism as a renamed builtin
// call (see rewriteCall in conversion.go).
const (
	q32MulSymbol = "__lp_q32_mul"
	q32DivSymbol = "__lp_q32_div"
)

// rewriteFMul implements `fmul a b`.
func rewriteFMul(tr *FunctionTransformer, instr ssa.Instr) []ssa.Instr {
	return []ssa.Instr{{
		Op:       ssa.OpCall,
		Result:   instr.Result,
		ResultTy: ssa.TypeI32,
		Args:     instr.Args,
		Callee:   ssa.Callee{Kind: ssa.CalleeExternRef, ExternRef: q32MulSymbol},
	}}
}

// rewriteFDiv implements `fdiv a b`.
func rewriteFDiv(tr *FunctionTransformer, instr ssa.Instr) []ssa.Instr {
	return []ssa.Instr{{
		Op:       ssa.OpCall,
		Result:   instr.Result,
		ResultTy: ssa.TypeI32,
		Args:     instr.Args,
		Callee:   ssa.Callee{Kind: ssa.CalleeExternRef, ExternRef: q32DivSymbol},
	}}
}
