package ssa

import (
	"fmt"

	"github.com/lightplayer/lightplayer/errors"
)

// Verifier checks the SSA invariants spec §3.3/§8 require to hold after
// every pass: dominance, block-parameter type agreement, and constant
// dominance. A violation is always a compiler bug (the passes that
// produce and rewrite this IR are specified to never emit malformed
// IR for well-typed input), so Verify returns *errors.Error values with
// errors.PhaseInternal.
type Verifier struct {
	pass string
}

// NewVerifier returns a Verifier that attributes failures to pass.
func NewVerifier(pass string) *Verifier {
	return &Verifier{pass: pass}
}

// Verify runs every check against fn, returning the first violation
// found, or nil if fn is well-formed.
func (v *Verifier) Verify(fn *Function) error {
	dom, err := v.computeDominance(fn)
	if err != nil {
		return err
	}
	if err := v.checkValueDominance(fn, dom); err != nil {
		return err
	}
	if err := v.checkBlockParamAgreement(fn); err != nil {
		return err
	}
	if err := v.checkConstantDominance(fn, dom); err != nil {
		return err
	}
	return nil
}

func (v *Verifier) fail(detail string, args ...any) error {
	return errors.Internal(v.pass, fmt.Sprintf(detail, args...))
}

// dominance holds, per function, the immediate dominator of every
// reachable block (idom[entry] == entry) and the entry's reachable set.
type dominance struct {
	idom      map[BlockID]BlockID
	order     []BlockID // reverse postorder, reachable blocks only
	reachable map[BlockID]bool
}

// dominates reports whether a dominates b (a == b counts as dominating).
func (d *dominance) dominates(a, b BlockID) bool {
	if a == b {
		return true
	}
	if !d.reachable[b] {
		return false
	}
	cur := b
	for {
		parent, ok := d.idom[cur]
		if !ok {
			return false
		}
		if parent == cur {
			return a == cur
		}
		if parent == a {
			return true
		}
		cur = parent
	}
}

// computeDominance runs the standard iterative (Cooper/Harvey/Kennedy)
// dominator algorithm over fn's block graph.
func (v *Verifier) computeDominance(fn *Function) (*dominance, error) {
	preds := make(map[BlockID][]BlockID)
	index := make(map[BlockID]int)
	for i, b := range fn.Blocks {
		index[b.ID] = i
	}
	for _, b := range fn.Blocks {
		term := b.Terminator()
		if term == nil {
			return nil, v.fail("block %d in function %q has no terminator", b.ID, fn.Name)
		}
		for _, succ := range term.Successors() {
			preds[succ] = append(preds[succ], b.ID)
		}
	}

	order := reversePostorder(fn)
	rpoIndex := make(map[BlockID]int, len(order))
	for i, id := range order {
		rpoIndex[id] = i
	}
	reachable := make(map[BlockID]bool, len(order))
	for _, id := range order {
		reachable[id] = true
	}

	idom := make(map[BlockID]BlockID)
	idom[fn.Entry] = fn.Entry

	changed := true
	for changed {
		changed = false
		for _, id := range order {
			if id == fn.Entry {
				continue
			}
			var newIdom BlockID
			set := false
			for _, p := range preds[id] {
				if !reachable[p] {
					continue
				}
				if _, ok := idom[p]; !ok {
					continue
				}
				if !set {
					newIdom = p
					set = true
					continue
				}
				newIdom = intersect(idom, rpoIndex, newIdom, p)
			}
			if !set {
				continue
			}
			if cur, ok := idom[id]; !ok || cur != newIdom {
				idom[id] = newIdom
				changed = true
			}
		}
	}

	return &dominance{idom: idom, order: order, reachable: reachable}, nil
}

func intersect(idom map[BlockID]BlockID, rpoIndex map[BlockID]int, a, b BlockID) BlockID {
	for a != b {
		for rpoIndex[a] > rpoIndex[b] {
			a = idom[a]
		}
		for rpoIndex[b] > rpoIndex[a] {
			b = idom[b]
		}
	}
	return a
}

// reversePostorder walks fn's CFG from Entry and returns reachable
// block IDs in reverse postorder.
func reversePostorder(fn *Function) []BlockID {
	visited := make(map[BlockID]bool)
	var post []BlockID

	var visit func(id BlockID)
	visit = func(id BlockID) {
		if visited[id] {
			return
		}
		visited[id] = true
		b := fn.Block(id)
		if b == nil {
			return
		}
		if term := b.Terminator(); term != nil {
			for _, succ := range term.Successors() {
				visit(succ)
			}
		}
		post = append(post, id)
	}
	visit(fn.Entry)

	rpo := make([]BlockID, len(post))
	for i, id := range post {
		rpo[len(post)-1-i] = id
	}
	return rpo
}

// defLocation records where a value is defined: its block, and its
// instruction index within that block (-1 for a block parameter,
// defined before the block's first instruction).
type defLocation struct {
	block BlockID
	index int
}

func buildDefTable(fn *Function) map[ValueID]defLocation {
	defs := make(map[ValueID]defLocation)
	for _, b := range fn.Blocks {
		for _, p := range b.Params {
			defs[p.Value] = defLocation{block: b.ID, index: -1}
		}
		for i, instr := range b.Instrs {
			// A void call's Result is an unused zero value, not a definition.
			if instr.Op == OpCall && instr.ResultTy == TypeInvalid {
				continue
			}
			if instr.Op.DefinesValue() {
				defs[instr.Result] = defLocation{block: b.ID, index: i}
			}
		}
	}
	return defs
}

func (v *Verifier) checkValueDominance(fn *Function, dom *dominance) error {
	defs := buildDefTable(fn)
	blockIndex := make(map[BlockID]int, len(fn.Blocks))
	for i, b := range fn.Blocks {
		blockIndex[b.ID] = i
	}

	checkUse := func(use ValueID, useBlock BlockID, useIndex int) error {
		def, ok := defs[use]
		if !ok {
			return v.fail("function %q uses undefined value %%%d", fn.Name, use)
		}
		if def.block == useBlock {
			if def.index < useIndex {
				return nil
			}
			if def.index == -1 {
				return nil // block parameter dominates every instruction in its block
			}
			return v.fail("function %q: value %%%d used before its definition in block %d", fn.Name, use, useBlock)
		}
		if !dom.dominates(def.block, useBlock) {
			return v.fail("function %q: definition of %%%d in block %d does not dominate use in block %d",
				fn.Name, use, def.block, useBlock)
		}
		return nil
	}

	for _, b := range fn.Blocks {
		if !dom.reachable[b.ID] {
			continue
		}
		for i, instr := range b.Instrs {
			for _, arg := range instr.Args {
				if err := checkUse(arg, b.ID, i); err != nil {
					return err
				}
			}
			for _, arg := range instr.JumpArgs {
				if err := checkUse(arg, b.ID, i); err != nil {
					return err
				}
			}
			for _, arg := range instr.ThenArgs {
				if err := checkUse(arg, b.ID, i); err != nil {
					return err
				}
			}
			for _, arg := range instr.ElseArgs {
				if err := checkUse(arg, b.ID, i); err != nil {
					return err
				}
			}
			for _, arg := range instr.RetValues {
				if err := checkUse(arg, b.ID, i); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// checkBlockParamAgreement verifies spec §3.3's edge-type invariant:
// every predecessor's branch arguments match the successor's block
// parameter types, both in count and in type.
func (v *Verifier) checkBlockParamAgreement(fn *Function) error {
	blocks := make(map[BlockID]*Block, len(fn.Blocks))
	for _, b := range fn.Blocks {
		blocks[b.ID] = b
	}

	checkEdge := func(from BlockID, target BlockID, args []ValueID) error {
		succ, ok := blocks[target]
		if !ok {
			return v.fail("function %q: block %d branches to undefined block %d", fn.Name, from, target)
		}
		if len(args) != len(succ.Params) {
			return v.fail("function %q: edge %d->%d supplies %d argument(s), block expects %d",
				fn.Name, from, target, len(args), len(succ.Params))
		}
		for i, arg := range args {
			argTy, ok := fn.ValueType[arg]
			if !ok {
				return v.fail("function %q: edge %d->%d argument %%%d has no recorded type", fn.Name, from, target, arg)
			}
			if argTy != succ.Params[i].Type {
				return v.fail("function %q: edge %d->%d argument %d has type %s, block parameter expects %s",
					fn.Name, from, target, i, argTy, succ.Params[i].Type)
			}
		}
		return nil
	}

	for _, b := range fn.Blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		switch term.Op {
		case OpJump:
			if err := checkEdge(b.ID, term.JumpTarget, term.JumpArgs); err != nil {
				return err
			}
		case OpBrif:
			if err := checkEdge(b.ID, term.ThenTarget, term.ThenArgs); err != nil {
				return err
			}
			if err := checkEdge(b.ID, term.ElseTarget, term.ElseArgs); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkConstantDominance verifies spec §3.3/§8's rule that a constant
// used in more than one block must be defined in the function's entry
// block.
func (v *Verifier) checkConstantDominance(fn *Function, dom *dominance) error {
	defs := buildDefTable(fn)
	usedIn := make(map[ValueID]map[BlockID]bool)

	record := func(val ValueID, block BlockID) {
		if usedIn[val] == nil {
			usedIn[val] = make(map[BlockID]bool)
		}
		usedIn[val][block] = true
	}

	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			for _, arg := range instr.Args {
				record(arg, b.ID)
			}
			for _, arg := range instr.JumpArgs {
				record(arg, b.ID)
			}
			for _, arg := range instr.ThenArgs {
				record(arg, b.ID)
			}
			for _, arg := range instr.ElseArgs {
				record(arg, b.ID)
			}
			for _, arg := range instr.RetValues {
				record(arg, b.ID)
			}
		}
	}

	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if instr.Op != OpIConst && instr.Op != OpF32Const {
				continue
			}
			uses := usedIn[instr.Result]
			if len(uses) <= 1 {
				continue
			}
			def := defs[instr.Result]
			if def.block != fn.Entry {
				return v.fail("function %q: constant %%%d used across %d blocks but defined outside the entry block (block %d)",
					fn.Name, instr.Result, len(uses), def.block)
			}
		}
	}
	return nil
}

// CheckNoFloat verifies spec §8 property 3 (Q32 total coverage): no
// value, signature, or instruction in fn mentions TypeF32 or a
// floating-point opcode. Called by package q32's tests after the
// rewrite pass.
func CheckNoFloat(fn *Function) error {
	for _, t := range fn.Sig.Params {
		if t == TypeF32 {
			return errors.Internal("q32.coverage", fmt.Sprintf("function %q signature still mentions f32", fn.Name))
		}
	}
	if fn.Sig.Result == TypeF32 {
		return errors.Internal("q32.coverage", fmt.Sprintf("function %q return type still f32", fn.Name))
	}
	for _, t := range fn.ValueType {
		if t == TypeF32 {
			return errors.Internal("q32.coverage", fmt.Sprintf("function %q still has an f32-typed value", fn.Name))
		}
	}
	for _, b := range fn.Blocks {
		for _, p := range b.Params {
			if p.Type == TypeF32 {
				return errors.Internal("q32.coverage", fmt.Sprintf("function %q block %d still has an f32 parameter", fn.Name, b.ID))
			}
		}
		for _, instr := range b.Instrs {
			switch instr.Op {
			case OpFAdd, OpFSub, OpFMul, OpFDiv, OpFNeg, OpFAbs, OpFCmp, OpF32Const:
				return errors.Internal("q32.coverage", fmt.Sprintf("function %q still has a %v instruction", fn.Name, instr.Op))
			}
		}
	}
	return nil
}
