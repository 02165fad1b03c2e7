package lower

import (
	"github.com/lightplayer/lightplayer/builtin"
	"github.com/lightplayer/lightplayer/sema"
	"github.com/lightplayer/lightplayer/ssa"
	"github.com/lightplayer/lightplayer/types"
)

// Lowerer converts a typed module into SSA IR. One Lowerer lowers
// exactly one module; it holds no state a second lowering could
// observe (spec §5).
type Lowerer struct {
	builtins  *builtin.Registry
	layouts   *types.LayoutCalculator
	funcs     map[string]*sema.Func
	funcIndex map[string]int
}

// New returns a Lowerer resolving external calls against builtins.
func New(builtins *builtin.Registry) *Lowerer {
	return &Lowerer{builtins: builtins, layouts: types.NewLayoutCalculator()}
}

// Module lowers every function definition in m to an ssa.Module. Every
// function's name and index within the eventual ssa.Module.Funcs list
// is resolved up front, so a call site reached before its callee has
// been lowered can still build a well-formed Callee{Kind:
// CalleeIntraModule} reference.
//
// Forward-declared headers (Body == nil in the typed IR — sema never
// emits one, since Analyze only appends functions with a body) never
// reach here; Module still guards for completeness.
func (lo *Lowerer) Module(m *sema.Module) *ssa.Module {
	lo.funcs = make(map[string]*sema.Func, len(m.Funcs))
	lo.funcIndex = make(map[string]int, len(m.Funcs))
	for _, fn := range m.Funcs {
		if fn.Body == nil {
			continue
		}
		lo.funcIndex[fn.Name] = len(lo.funcs)
		lo.funcs[fn.Name] = fn
	}

	out := &ssa.Module{Name: "lightplayer"}
	for _, fn := range m.Funcs {
		if fn.Body == nil {
			continue
		}
		out.Funcs = append(out.Funcs, lo.function(fn))
	}
	return out
}

// fnLower holds the per-function state of one lowering pass.
type fnLower struct {
	lo         *Lowerer
	fn         *ssa.Function
	b          *ssa.Builder
	layouts    *types.LayoutCalculator
	env        map[string]place
	loops      []*loopFrame
	iconsts    map[int64]ssa.ValueID
	i8consts   map[int64]ssa.ValueID
	fconsts    map[float32]ssa.ValueID
	returnType *types.Type
}

// loopFrame records the state break/continue need: the fixed, ordered
// list of register-backed variables threaded through this loop's block
// parameters, and the blocks those two statements jump to.
type loopFrame struct {
	vars       []string
	continueTo *ssa.Block
	breakTo    *ssa.Block
}

// hiddenReturnSlotName binds the hidden first pointer argument a
// non-scalar return uses (spec §4.2) under a name no GLSL identifier
// can spell.
const hiddenReturnSlotName = "$return"

func isAggregate(t *types.Type) bool {
	return t.Kind == types.KindStruct || t.Kind == types.KindArray || t.Kind.IsMatrix()
}

// usesHiddenReturn reports whether a value of type t must be passed
// through the hidden-pointer return convention rather than as a Call
// instruction's single result value. A Call instruction defines at
// most one value (ssa.Opcode.DefinesValue's doc comment), so anything
// wider than one scalar component — not just structs/arrays/matrices,
// but also vecN/ivecN/uvecN/bvecN — has to round-trip through memory.
func usesHiddenReturn(t *types.Type) bool {
	if t == nil {
		return false
	}
	return isAggregate(t) || componentCount(t) > 1
}

func signatureOf(fn *sema.Func) ssa.Signature {
	var params []ssa.Type
	if fn.ReturnType != nil && usesHiddenReturn(fn.ReturnType) {
		params = append(params, ssa.TypePtr)
	}
	for _, p := range fn.Params {
		if p.Qualifier.IsOut() || p.Qualifier.IsInout() || isAggregate(p.Type) {
			// An out/inout parameter is passed by address because the
			// callee must write back through it. A plain aggregate
			// parameter is also passed by address — structs/arrays/
			// matrices are too wide for a flat scalar list the way a
			// vector's components are — but the callee copies it into
			// its own stack slot (materializeParams) so the pass-by-
			// value semantics of an unqualified GLSL parameter still
			// hold: the callee's local may be reassigned without the
			// caller observing it.
			params = append(params, ssa.TypePtr)
			continue
		}
		sty := ssaType(componentType(p.Type))
		for i := 0; i < componentCount(p.Type); i++ {
			params = append(params, sty)
		}
	}

	sig := ssa.Signature{Params: params, Convention: "systemv-like"}
	if fn.ReturnType != nil && !usesHiddenReturn(fn.ReturnType) {
		sig.Result = ssaType(componentType(fn.ReturnType))
	}
	return sig
}

func (lo *Lowerer) function(fn *sema.Func) *ssa.Function {
	ssaFn := ssa.NewFunction(fn.Name, signatureOf(fn), ssa.LinkageExported)
	entry := ssaFn.NewBlock()

	fl := &fnLower{
		lo:         lo,
		fn:         ssaFn,
		b:          ssa.NewBuilder(ssaFn, entry),
		layouts:    lo.layouts,
		env:        make(map[string]place),
		iconsts:    make(map[int64]ssa.ValueID),
		i8consts:   make(map[int64]ssa.ValueID),
		fconsts:    make(map[float32]ssa.ValueID),
		returnType: fn.ReturnType,
	}

	fl.materializeParams(fn)
	fl.preallocateSlots(fn.Body)

	terminated := fl.lowerBlock(fn.Body)
	if !terminated {
		fl.b.Return()
	}
	return ssaFn
}

// entryBuilder returns a Builder pinned to the function's entry block,
// used for the two categories of value every block in the function must
// dominate: stack-slot addresses and constants.
func (fl *fnLower) entryBuilder() *ssa.Builder {
	return ssa.NewBuilder(fl.fn, fl.fn.EntryBlock())
}

// materializeParams binds every declared parameter (and, for an
// aggregate-returning function, the hidden return pointer) to a fresh
// SSA value or pointer standing in for the incoming argument. Each such
// value is an entry-block parameter, in call-argument order; the
// backend prologue fills them from the argument registers.
func (fl *fnLower) materializeParams(fn *sema.Func) {
	entry := fl.fn.EntryBlock()
	param := func(ty ssa.Type) ssa.ValueID {
		v := fl.fn.NewValue(ty)
		entry.Params = append(entry.Params, ssa.Param{Value: v, Type: ty})
		return v
	}
	if fn.ReturnType != nil && usesHiddenReturn(fn.ReturnType) {
		v := param(ssa.TypePtr)
		fl.env[hiddenReturnSlotName] = ptrPlace(fn.ReturnType, v)
	}
	for _, p := range fn.Params {
		if p.Qualifier.IsOut() || p.Qualifier.IsInout() {
			v := param(ssa.TypePtr)
			fl.env[p.Name] = ptrPlace(p.Type, v)
			continue
		}
		if isAggregate(p.Type) {
			incoming := param(ssa.TypePtr)
			info := fl.layouts.Calculate(p.Type)
			slot := fl.fn.NewSlot(info.Size, info.Align)
			eb := fl.entryBuilder()
			dst := eb.StackAddr(slot)
			for i := 0; i < info.Size/wordSize; i++ {
				v := eb.Load(ssa.TypeI32, incoming, int32(i*wordSize))
				eb.Store(dst, v, int32(i*wordSize))
			}
			fl.env[p.Name] = ptrPlace(p.Type, dst)
			continue
		}
		n := componentCount(p.Type)
		sty := ssaType(componentType(p.Type))
		scalars := make([]ssa.ValueID, n)
		for i := range scalars {
			scalars[i] = param(sty)
		}
		fl.env[p.Name] = regPlace(p.Type, scalars...)
	}
}

// preallocateSlots walks the function body once, before any statement
// is lowered, allocating a stack slot (and its StackAddr, emitted into
// the entry block) for every array/struct/matrix local. See the
// package doc comment for why this runs up front rather than at the
// declaration site.
func (fl *fnLower) preallocateSlots(body *sema.Block) {
	walkDecls(body, func(d *sema.LocalDecl) {
		if !d.SlotRequired {
			return
		}
		info := fl.layouts.Calculate(d.Type)
		slot := fl.fn.NewSlot(info.Size, info.Align)
		ptr := fl.entryBuilder().StackAddr(slot)
		fl.env[d.Name] = ptrPlace(d.Type, ptr)
	})
}

func walkDecls(s sema.Stmt, visit func(*sema.LocalDecl)) {
	switch x := s.(type) {
	case *sema.Block:
		for _, inner := range x.Stmts {
			walkDecls(inner, visit)
		}
	case *sema.LocalDecl:
		visit(x)
	case *sema.If:
		walkDecls(x.Then, visit)
		if x.Else != nil {
			walkDecls(x.Else, visit)
		}
	case *sema.For:
		if x.Init != nil {
			walkDecls(x.Init, visit)
		}
		walkDecls(x.Body, visit)
	case *sema.While:
		walkDecls(x.Body, visit)
	case *sema.DoWhile:
		walkDecls(x.Body, visit)
	}
}

func (fl *fnLower) cloneEnv() map[string]place {
	out := make(map[string]place, len(fl.env))
	for k, v := range fl.env {
		out[k] = v
	}
	return out
}

// registerVarNames returns the names, in a stable order, of every
// currently-bound register-backed (non-pointer) local — the set
// threaded through block parameters at a control-flow merge.
func (fl *fnLower) registerVarNames() []string {
	names := make([]string, 0, len(fl.env))
	for name, p := range fl.env {
		if !p.pointer {
			names = append(names, name)
		}
	}
	sortStrings(names)
	return names
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// varArgs flattens the current value of each named register-backed
// variable, in the given order, into a flat argument list suitable for
// a Jump/Brif into a block whose parameters were built in that order.
func (fl *fnLower) varArgs(names []string) []ssa.ValueID {
	var args []ssa.ValueID
	for _, name := range names {
		args = append(args, fl.env[name].scalars...)
	}
	return args
}

// bindHeaderParams creates one fresh block parameter per component of
// every named register-backed variable, appends them to block, and
// returns the env those parameters represent.
func (fl *fnLower) bindHeaderParams(block *ssa.Block, names []string) map[string]place {
	env := make(map[string]place, len(names))
	for _, name := range names {
		ty := fl.env[name].ty
		n := componentCount(ty)
		sty := ssaType(componentType(ty))
		scalars := make([]ssa.ValueID, n)
		for i := range scalars {
			v := fl.fn.NewValue(sty)
			scalars[i] = v
			block.Params = append(block.Params, ssa.Param{Value: v, Type: sty})
		}
		env[name] = regPlace(ty, scalars...)
	}
	return env
}
