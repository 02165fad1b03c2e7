package q32

import (
	"github.com/lightplayer/lightplayer/builtin"
	"github.com/lightplayer/lightplayer/ssa"
)

// Config configures the Q32 transformation engine, mirroring the shape
// of asyncify/internal/engine.Config: a plain struct of knobs passed
// once to New, no functional options.
type Config struct {
	// Registry resolves a builtin call's Q32 fixed-point variant name
	// (spec §3.5, §4.3's "call name=fp-builtin" rewrite rule). Required.
	Registry *builtin.Registry
}

// Engine orchestrates the Q32 rewrite across every function of a
// module. Like asyncify's Engine, it is stateless between Transform
// calls: all mutable state lives in the per-function FunctionTransformer.
type Engine struct {
	registry *builtin.Registry
	rules    *RuleRegistry
}

// New returns an Engine configured to rewrite against cfg.Registry.
func New(cfg Config) *Engine {
	return &Engine{registry: cfg.Registry, rules: DefaultRuleRegistry()}
}

// Transform rewrites every function in m in place and returns m. Spec
// §4.3's round-trip law — "running Q32 on an already-Q32 module is the
// identity" — holds because every rule only fires on opcodes/ExternRefs
// that an already-transformed function no longer contains.
func (e *Engine) Transform(m *ssa.Module) *ssa.Module {
	for _, fn := range m.Funcs {
		NewFunctionTransformer(e.registry, e.rules).Transform(fn)
	}
	return m
}
