package q32

import (
	"github.com/lightplayer/lightplayer/builtin"
	"github.com/lightplayer/lightplayer/ssa"
)

// FunctionTransformer applies the Q32 rewrite to one function: first a
// type sweep over the signature, block parameters, and value-type table
// (every f32 becomes i32), then a per-block instruction rewrite driven
// by the RuleRegistry.
type FunctionTransformer struct {
	registry *builtin.Registry
	rules    *RuleRegistry
	fn       *ssa.Function
	pool     *ConstPool
}

// NewFunctionTransformer returns a transformer for one function's pass,
// configured against registry and rules.
func NewFunctionTransformer(registry *builtin.Registry, rules *RuleRegistry) *FunctionTransformer {
	return &FunctionTransformer{registry: registry, rules: rules}
}

// sweepType maps f32 to i32 and passes every other type through
// unchanged.
func sweepType(t ssa.Type) ssa.Type {
	if t == ssa.TypeF32 {
		return ssa.TypeI32
	}
	return t
}

// Transform rewrites fn in place.
func (tr *FunctionTransformer) Transform(fn *ssa.Function) {
	tr.fn = fn
	tr.pool = NewConstPool(fn)

	fn.Sig.Result = sweepType(fn.Sig.Result)
	for i, p := range fn.Sig.Params {
		fn.Sig.Params[i] = sweepType(p)
	}
	for id, t := range fn.ValueType {
		fn.ValueType[id] = sweepType(t)
	}

	for _, b := range fn.Blocks {
		for i := range b.Params {
			b.Params[i].Type = sweepType(b.Params[i].Type)
		}
		b.Instrs = tr.rewriteBlock(b.Instrs)
	}

	if len(tr.pool.Pending) > 0 {
		entry := fn.EntryBlock()
		entry.Instrs = append(append([]ssa.Instr{}, tr.pool.Pending...), entry.Instrs...)
	}
}

// rewriteBlock runs every rule-matched instruction through its rule and
// applies the blanket ResultTy sweep to everything else.
func (tr *FunctionTransformer) rewriteBlock(instrs []ssa.Instr) []ssa.Instr {
	out := make([]ssa.Instr, 0, len(instrs))
	for _, instr := range instrs {
		if rule := tr.rules.Lookup(instr.Op); rule != nil {
			out = append(out, rule(tr, instr)...)
			continue
		}
		instr.ResultTy = sweepType(instr.ResultTy)
		out = append(out, instr)
	}
	return out
}
