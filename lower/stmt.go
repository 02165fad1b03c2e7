package lower

import (
	"github.com/lightplayer/lightplayer/errors"
	"github.com/lightplayer/lightplayer/sema"
	"github.com/lightplayer/lightplayer/ssa"
)

// lowerBlock lowers a statement sequence into the current block,
// stopping early if a statement terminates the block (return, break,
// continue, or a fully-covered if/else). It reports whether control
// fell off the end still open (false) or was terminated (true).
func (fl *fnLower) lowerBlock(b *sema.Block) bool {
	for _, s := range b.Stmts {
		if fl.lowerStmt(s) {
			return true
		}
	}
	return false
}

func (fl *fnLower) lowerStmt(s sema.Stmt) (terminated bool) {
	switch x := s.(type) {
	case *sema.Block:
		return fl.lowerBlock(x)
	case *sema.LocalDecl:
		fl.lowerLocalDecl(x)
		return false
	case *sema.ExprStmt:
		fl.lowerExpr(x.X)
		return false
	case *sema.If:
		return fl.lowerIf(x)
	case *sema.For:
		return fl.lowerFor(x)
	case *sema.While:
		return fl.lowerWhile(x)
	case *sema.DoWhile:
		return fl.lowerDoWhile(x)
	case *sema.Break:
		fl.lowerBreak()
		return true
	case *sema.Continue:
		fl.lowerContinue()
		return true
	case *sema.Return:
		fl.lowerReturn(x)
		return true
	default:
		panic(errors.Internal("lower", "unhandled statement kind"))
	}
}

func (fl *fnLower) lowerLocalDecl(d *sema.LocalDecl) {
	if d.SlotRequired {
		// Slot and pointer already exist (preallocateSlots); only the
		// initializer's store, if any, happens here.
		p := fl.env[d.Name]
		if d.Init != nil {
			init := fl.lowerExpr(d.Init)
			fl.storeAggregate(p, init)
		}
		return
	}

	if d.Init != nil {
		init := fl.load(fl.widen(fl.lowerExpr(d.Init), d.Type))
		fl.env[d.Name] = regPlace(d.Type, init.scalars...)
		return
	}

	n := componentCount(d.Type)
	sty := ssaType(componentType(d.Type))
	scalars := make([]ssa.ValueID, n)
	for i := range scalars {
		scalars[i] = fl.zeroValue(sty)
	}
	fl.env[d.Name] = regPlace(d.Type, scalars...)
}

// storeAggregate copies src (a pointer-backed struct/array/matrix
// place, or a register-backed value for a scalar/vector local that
// happens to be address-taken) into dst, word by word.
func (fl *fnLower) storeAggregate(dst, src place) {
	if src.pointer {
		info := fl.layouts.Calculate(dst.ty)
		n := info.Size / wordSize
		for i := 0; i < n; i++ {
			v := fl.b.Load(ssa.TypeI32, src.ptr, int32(i*wordSize))
			fl.b.Store(dst.ptr, v, int32(i*wordSize))
		}
		return
	}
	for i, v := range src.scalars {
		fl.b.Store(dst.ptr, v, int32(i*wordSize))
	}
}

func (fl *fnLower) zeroValue(ty ssa.Type) ssa.ValueID {
	switch ty {
	case ssa.TypeF32:
		return fl.f32Const(0)
	case ssa.TypeI8:
		return fl.i8Const(0)
	default:
		return fl.iConst(0)
	}
}

// lowerIf implements the if/else join described in the package doc
// comment: both branches run against a snapshot of the entry
// environment, then a merge block is given exactly the block parameters
// needed to reconcile the two exit environments.
func (fl *fnLower) lowerIf(s *sema.If) bool {
	cond := fl.load(fl.lowerExpr(s.Cond)).scalars[0]

	thenBlock := fl.fn.NewBlock()
	elseBlock := fl.fn.NewBlock()
	mergeBlock := fl.fn.NewBlock()

	fl.b.Brif(cond, thenBlock.ID, nil, elseBlock.ID, nil)

	envBefore := fl.cloneEnv()

	fl.b.SetBlock(thenBlock)
	fl.env = copyMap(envBefore)
	thenTerm := fl.lowerStmt(s.Then)
	envThen := fl.env

	fl.b.SetBlock(elseBlock)
	fl.env = copyMap(envBefore)
	elseTerm := false
	if s.Else != nil {
		elseTerm = fl.lowerStmt(s.Else)
	}
	envElse := fl.env

	if thenTerm && elseTerm {
		fl.b.SetBlock(mergeBlock)
		fl.b.Unreachable()
		return true
	}

	merged := fl.reconcileBranch(envBefore, thenBlock, envThen, thenTerm, elseBlock, envElse, elseTerm, mergeBlock)

	fl.b.SetBlock(mergeBlock)
	fl.env = merged
	return false
}

func copyMap(m map[string]place) map[string]place {
	out := make(map[string]place, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// reconcileBranch builds mergeBlock's parameter list and emits the
// closing Jump from each non-terminated branch block. A register-backed
// variable only needs a block parameter if its value actually differs
// between the two incoming edges (or one edge doesn't exist); otherwise
// the value already dominates mergeBlock unchanged and is reused as-is.
func (fl *fnLower) reconcileBranch(
	before map[string]place,
	thenBlock *ssa.Block, thenEnv map[string]place, thenTerm bool,
	elseBlock *ssa.Block, elseEnv map[string]place, elseTerm bool,
	mergeBlock *ssa.Block,
) map[string]place {
	merged := make(map[string]place, len(before))
	var thenArgs, elseArgs []ssa.ValueID

	for name, bp := range before {
		if bp.pointer {
			merged[name] = bp
			continue
		}
		switch {
		case thenTerm && !elseTerm:
			merged[name] = elseEnv[name]
		case elseTerm && !thenTerm:
			merged[name] = thenEnv[name]
		default:
			tv := thenEnv[name].scalars
			ev := elseEnv[name].scalars
			if sameValues(tv, ev) {
				merged[name] = regPlace(bp.ty, tv...)
				continue
			}
			sty := ssaType(componentType(bp.ty))
			scalars := make([]ssa.ValueID, len(tv))
			for i := range scalars {
				v := fl.fn.NewValue(sty)
				scalars[i] = v
				mergeBlock.Params = append(mergeBlock.Params, ssa.Param{Value: v, Type: sty})
			}
			merged[name] = regPlace(bp.ty, scalars...)
			thenArgs = append(thenArgs, tv...)
			elseArgs = append(elseArgs, ev...)
		}
	}

	if !thenTerm {
		fl.b.SetBlock(thenBlock)
		fl.b.Jump(mergeBlock.ID, thenArgs...)
	}
	if !elseTerm {
		fl.b.SetBlock(elseBlock)
		fl.b.Jump(mergeBlock.ID, elseArgs...)
	}
	return merged
}

func sameValues(a, b []ssa.ValueID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// lowerWhile lowers `while (Cond) Body` into a pretest header carrying
// every in-scope register variable as a block parameter, so the loop
// body and the eventual exit both observe a value dominated by the
// header regardless of how many iterations ran.
func (fl *fnLower) lowerWhile(s *sema.While) bool {
	return fl.lowerPretestLoop(s.Cond, s.Body, nil)
}

// lowerFor lowers a C-style for loop. Unlike while, `continue` runs Post
// before re-checking Cond, so the continue target is a dedicated block
// between the body and the header rather than the header itself.
func (fl *fnLower) lowerFor(s *sema.For) bool {
	if s.Init != nil {
		fl.lowerStmt(s.Init)
	}
	return fl.lowerPretestLoop(s.Cond, s.Body, s.Post)
}

func (fl *fnLower) lowerPretestLoop(cond sema.Expr, body, post sema.Stmt) bool {
	vars := fl.registerVarNames()
	header := fl.fn.NewBlock()
	bodyBlock := fl.fn.NewBlock()
	var postBlock *ssa.Block
	if post != nil {
		postBlock = fl.fn.NewBlock()
	}
	exitBlock := fl.fn.NewBlock()

	fl.b.Jump(header.ID, fl.varArgs(vars)...)

	fl.b.SetBlock(header)
	headerEnv := fl.bindHeaderParams(header, vars)
	fl.env = copyMap(headerEnv)
	var condVal ssa.ValueID
	if cond != nil {
		condVal = fl.load(fl.lowerExpr(cond)).scalars[0]
	} else {
		condVal = fl.iConst(1)
	}
	fl.b.Brif(condVal, bodyBlock.ID, fl.varArgs(vars), exitBlock.ID, fl.varArgs(vars))

	continueTarget := header
	if postBlock != nil {
		continueTarget = postBlock
	}
	fl.loops = append(fl.loops, &loopFrame{vars: vars, continueTo: continueTarget, breakTo: exitBlock})

	fl.b.SetBlock(bodyBlock)
	fl.env = copyMap(headerEnv)
	bodyTerm := fl.lowerStmt(body)
	if !bodyTerm {
		if postBlock != nil {
			fl.b.Jump(postBlock.ID, fl.varArgs(vars)...)
		} else {
			fl.b.Jump(header.ID, fl.varArgs(vars)...)
		}
	}

	if postBlock != nil {
		fl.b.SetBlock(postBlock)
		fl.env = fl.bindHeaderParams(postBlock, vars)
		fl.lowerStmt(post)
		fl.b.Jump(header.ID, fl.varArgs(vars)...)
	}

	fl.loops = fl.loops[:len(fl.loops)-1]

	fl.b.SetBlock(exitBlock)
	fl.env = fl.bindHeaderParams(exitBlock, vars)
	return false
}

// lowerDoWhile lowers `do Body while (Cond);`. The body always runs at
// least once; the condition check sits in its own block so `continue`
// can jump straight to it without re-running Body.
func (fl *fnLower) lowerDoWhile(s *sema.DoWhile) bool {
	vars := fl.registerVarNames()
	bodyBlock := fl.fn.NewBlock()
	condBlock := fl.fn.NewBlock()
	exitBlock := fl.fn.NewBlock()

	fl.b.Jump(bodyBlock.ID, fl.varArgs(vars)...)

	fl.loops = append(fl.loops, &loopFrame{vars: vars, continueTo: condBlock, breakTo: exitBlock})

	fl.b.SetBlock(bodyBlock)
	bodyEnv := fl.bindHeaderParams(bodyBlock, vars)
	fl.env = copyMap(bodyEnv)
	bodyTerm := fl.lowerStmt(s.Body)
	if !bodyTerm {
		fl.b.Jump(condBlock.ID, fl.varArgs(vars)...)
	}

	fl.b.SetBlock(condBlock)
	fl.env = fl.bindHeaderParams(condBlock, vars)
	condVal := fl.load(fl.lowerExpr(s.Cond)).scalars[0]
	fl.b.Brif(condVal, bodyBlock.ID, fl.varArgs(vars), exitBlock.ID, fl.varArgs(vars))

	fl.loops = fl.loops[:len(fl.loops)-1]

	fl.b.SetBlock(exitBlock)
	fl.env = fl.bindHeaderParams(exitBlock, vars)
	return false
}

func (fl *fnLower) currentLoop() *loopFrame {
	if len(fl.loops) == 0 {
		panic(errors.Internal("lower", "break/continue outside a loop (should have been rejected by sema)"))
	}
	return fl.loops[len(fl.loops)-1]
}

func (fl *fnLower) lowerBreak() {
	lf := fl.currentLoop()
	fl.b.Jump(lf.breakTo.ID, fl.varArgs(lf.vars)...)
}

func (fl *fnLower) lowerContinue() {
	lf := fl.currentLoop()
	fl.b.Jump(lf.continueTo.ID, fl.varArgs(lf.vars)...)
}

func (fl *fnLower) lowerReturn(s *sema.Return) {
	if s.Value == nil {
		fl.b.Return()
		return
	}
	v := fl.lowerExpr(s.Value)
	if usesHiddenReturn(fl.returnType) {
		dst := fl.env[hiddenReturnSlotName]
		fl.storeAggregate(dst, v)
		fl.b.Return()
		return
	}
	loaded := fl.load(fl.widen(v, fl.returnType))
	fl.b.Return(loaded.scalars...)
}
