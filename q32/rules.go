package q32

import "github.com/lightplayer/lightplayer/ssa"

// RewriteRule replaces one matched instruction with zero or more
// replacement instructions. The first replacement that defines a value
// must reuse instr.Result, so every other instruction's Args referencing
// that value keep resolving correctly (see package doc).
type RewriteRule func(tr *FunctionTransformer, instr ssa.Instr) []ssa.Instr

// RuleRegistry dispatches a rewrite on the matched instruction's opcode,
// mirroring the array-indexed dispatch of
// asyncify/internal/handler.Registry, but keyed by this core's Opcode
// rather than a WASM opcode byte.
type RuleRegistry struct {
	rules map[ssa.Opcode]RewriteRule
}

// NewRuleRegistry returns an empty registry.
func NewRuleRegistry() *RuleRegistry {
	return &RuleRegistry{rules: make(map[ssa.Opcode]RewriteRule)}
}

// Register binds op to rule, replacing any prior binding.
func (r *RuleRegistry) Register(op ssa.Opcode, rule RewriteRule) {
	r.rules[op] = rule
}

// Lookup returns the rule bound to op, or nil if the opcode passes
// through unchanged (modulo the blanket F32->I32 ResultTy sweep every
// instruction receives regardless of rule match).
func (r *RuleRegistry) Lookup(op ssa.Opcode) RewriteRule {
	return r.rules[op]
}

// DefaultRuleRegistry wires every spec §4.3 rewrite rule against its
// matched opcode.
func DefaultRuleRegistry() *RuleRegistry {
	r := NewRuleRegistry()

	r.Register(ssa.OpF32Const, rewriteF32Const)

	r.Register(ssa.OpFNeg, rewriteFNeg)
	r.Register(ssa.OpFAbs, rewriteFAbs)
	r.Register(ssa.OpFAdd, rewriteFAdd)
	r.Register(ssa.OpFSub, rewriteFSub)
	r.Register(ssa.OpFMul, rewriteFMul)
	r.Register(ssa.OpFDiv, rewriteFDiv)

	r.Register(ssa.OpFCmp, rewriteFCmp)
	r.Register(ssa.OpCall, rewriteCall)

	return r
}
