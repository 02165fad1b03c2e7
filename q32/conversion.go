package q32

import "github.com/lightplayer/lightplayer/ssa"

const (
	externIntToFloat = "$itof"
	externFloatToInt = "$ftoi"
)

// rewriteFCmp implements `fcmp op a b -> icmp op a b`. The Cond family
// and the i8 result type already match; only the opcode itself changes.
func rewriteFCmp(tr *FunctionTransformer, instr ssa.Instr) []ssa.Instr {
	return []ssa.Instr{{
		Op:       ssa.OpICmp,
		Result:   instr.Result,
		ResultTy: ssa.TypeI8,
		Cond:     instr.Cond,
		Args:     instr.Args,
	}}
}

// rewriteCall handles every CalleeExternRef call lower may have emitted:
// the two reserved scalar-conversion pseudo-calls ($itof/$ftoi), and a
// GLSL builtin call that needs renaming to its Q32 fixed-point variant.
// Intra-module and already-resolved imported calls pass through with
// only the blanket ResultTy sweep applied.
func rewriteCall(tr *FunctionTransformer, instr ssa.Instr) []ssa.Instr {
	if instr.Callee.Kind == ssa.CalleeExternRef {
		switch instr.Callee.ExternRef {
		case externIntToFloat:
			return rewriteItof(tr, instr)
		case externFloatToInt:
			return rewriteFtoi(tr, instr)
		default:
			if tr.registry != nil {
				if entry, ok := tr.registry.Lookup(instr.Callee.ExternRef, len(instr.Args)); ok && entry.Q32Name != "" {
					instr.Callee.ExternRef = entry.Q32Name
				}
			}
		}
	}
	instr.ResultTy = sweepType(instr.ResultTy)
	return []ssa.Instr{instr}
}

// rewriteItof implements the "$itof" pseudo-call: int->Q16.16 widening
// is just a left shift by the fractional width.
func rewriteItof(tr *FunctionTransformer, instr ssa.Instr) []ssa.Instr {
	shift := tr.pool.Get(16)
	return []ssa.Instr{{
		Op:       ssa.OpIShl,
		Result:   instr.Result,
		ResultTy: ssa.TypeI32,
		Args:     []ssa.ValueID{instr.Args[0], shift},
	}}
}

// rewriteFtoi implements the "$ftoi" pseudo-call: Q16.16->int,
// truncating toward zero the way GLSL's int(floatExpr) does. A plain
// arithmetic right shift rounds toward negative infinity instead, so
// negative values get a rounding bias added before the shift: bias is
// 0xFFFF when v is negative (forcing the shift to round up toward
// zero) and 0 otherwise, obtained by masking the arithmetic-shifted
// sign (all-ones when negative, all-zero otherwise) down to 16 bits.
func rewriteFtoi(tr *FunctionTransformer, instr ssa.Instr) []ssa.Instr {
	fn := tr.fn
	v := instr.Args[0]
	thirtyOne := tr.pool.Get(31)
	mask := tr.pool.Get(0xFFFF)
	sixteen := tr.pool.Get(16)

	signMask := fn.NewValue(ssa.TypeI32)
	bias := fn.NewValue(ssa.TypeI32)
	biased := fn.NewValue(ssa.TypeI32)

	return []ssa.Instr{
		{Op: ssa.OpSShr, Result: signMask, ResultTy: ssa.TypeI32, Args: []ssa.ValueID{v, thirtyOne}},
		{Op: ssa.OpIAnd, Result: bias, ResultTy: ssa.TypeI32, Args: []ssa.ValueID{signMask, mask}},
		{Op: ssa.OpIAdd, Result: biased, ResultTy: ssa.TypeI32, Args: []ssa.ValueID{v, bias}},
		{Op: ssa.OpSShr, Result: instr.Result, ResultTy: ssa.TypeI32, Args: []ssa.ValueID{biased, sixteen}},
	}
}
