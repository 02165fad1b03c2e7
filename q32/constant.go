package q32

import (
	"math"

	"github.com/lightplayer/lightplayer/ssa"
)

// q16Scale is the Q16.16 fractional width: a real value v is encoded as
// round(v * q16Scale).
const q16Scale = 1 << 16

const (
	int32Min = int64(math.MinInt32)
	int32Max = int64(math.MaxInt32)
)

// encodeQ16 rounds c*65536 to the nearest integer and saturates it into
// the representable i32 range (spec §4.3: "iconst round(c * 65536) with
// saturation at build time").
func encodeQ16(c float32) int64 {
	scaled := math.Round(float64(c) * q16Scale)
	if scaled > float64(int32Max) {
		return int32Max
	}
	if scaled < float64(int32Min) {
		return int32Min
	}
	return int64(scaled)
}

// ConstPool memoizes the auxiliary integer constants a rewrite rule
// introduces (zero, INT32_MIN, INT32_MAX, the Q16.16 unit) so each
// distinct value is materialized exactly once per function. Get never
// touches a block directly; it only allocates a ValueID and buffers the
// defining instruction in Pending. The FunctionTransformer splices
// Pending onto the front of the entry block after every other block has
// been rewritten, which is what makes every pooled constant dominate
// every use regardless of which block first requested it (spec §4.3's
// constant pre-materialization, §8 property 5).
type ConstPool struct {
	fn      *ssa.Function
	values  map[int64]ssa.ValueID
	Pending []ssa.Instr
}

// NewConstPool returns an empty pool for fn.
func NewConstPool(fn *ssa.Function) *ConstPool {
	return &ConstPool{fn: fn, values: make(map[int64]ssa.ValueID)}
}

// Get returns the ValueID of an i32 constant equal to v, buffering its
// defining instruction on first request.
func (p *ConstPool) Get(v int64) ssa.ValueID {
	if id, ok := p.values[v]; ok {
		return id
	}
	id := p.fn.NewValue(ssa.TypeI32)
	p.Pending = append(p.Pending, ssa.Instr{Op: ssa.OpIConst, Result: id, ResultTy: ssa.TypeI32, IConst: v})
	p.values[v] = id
	return id
}

// rewriteF32Const implements the `f32const c` rewrite rule.
func rewriteF32Const(tr *FunctionTransformer, instr ssa.Instr) []ssa.Instr {
	return []ssa.Instr{{
		Op:       ssa.OpIConst,
		Result:   instr.Result,
		ResultTy: ssa.TypeI32,
		IConst:   encodeQ16(instr.F32Const),
	}}
}
