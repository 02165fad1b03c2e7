package backend

import (
	"github.com/lightplayer/lightplayer/backend/riscv"
	"github.com/lightplayer/lightplayer/errors"
	"github.com/lightplayer/lightplayer/ssa"
)

// Scratch registers used to stage operands and results around every
// instruction. Every SSA value is homed in memory (see frame.go), so
// these never need saving across instruction boundaries.
const (
	scratch0 = riscv.T0
	scratch1 = riscv.T1
	scratch2 = riscv.T2
)

// argRegs lists the registers the calling convention passes the first
// eight arguments/results in, mirroring the standard RV32 integer
// calling convention.
var argRegs = [8]riscv.Reg{riscv.A0, riscv.A1, riscv.A2, riscv.A3, riscv.A4, riscv.A5, riscv.A6, riscv.A7}

// branchFixup records a not-yet-resolvable branch/jump whose target is
// a block that may not have been emitted yet. Patched once every
// block's start offset is known.
type branchFixup struct {
	offset int32 // byte offset of the instruction word to patch
	target ssa.BlockID
}

// callFixup records a call site whose target symbol resolves only
// once the whole module (or the linking host) is known.
type callFixup struct {
	offset int32 // byte offset of the auipc half of the pair
	symbol string
}

// FuncImage is one function's assembled code plus the bookkeeping the
// assembler needs to stitch multiple functions into a module (spec
// §4.4: "contiguous byte sequence... plus an SSA-block-to-code-offset
// table... plus relocations for any cross-module name").
type FuncImage struct {
	Name         string
	Exported     bool
	Code         []uint32
	BlockOffsets map[ssa.BlockID]int32
	Relocs       []Relocation
}

type selector struct {
	fn     *ssa.Function
	mod    *ssa.Module
	fr     *frame
	code   []uint32
	blocks map[ssa.BlockID]int32
	fixups []branchFixup
	calls  []callFixup
}

// SelectFunction lowers fn's SSA body to a contiguous RV32IMAC
// instruction stream, following the simplest correct codegen strategy
// this core uses throughout: no register allocation, every SSA value
// homed to a fixed stack offset, scratch registers reloaded around
// every instruction.
func SelectFunction(fn *ssa.Function, mod *ssa.Module) (*FuncImage, error) {
	s := &selector{
		fn:     fn,
		mod:    mod,
		fr:     computeFrame(fn),
		blocks: make(map[ssa.BlockID]int32),
	}

	s.emitPrologue()
	for _, b := range fn.Blocks {
		s.blocks[b.ID] = s.offset()
		if err := s.selectBlock(b); err != nil {
			return nil, err
		}
	}
	s.resolveFixups()

	relocs := make([]Relocation, 0, len(s.calls))
	for _, c := range s.calls {
		relocs = append(relocs, Relocation{Offset: int(c.offset), Kind: R_RISCV_CALL, Symbol: c.symbol})
	}

	return &FuncImage{
		Name:         fn.Name,
		Exported:     fn.Linkage == ssa.LinkageExported,
		Code:         s.code,
		BlockOffsets: s.blocks,
		Relocs:       relocs,
	}, nil
}

func (s *selector) offset() int32 { return int32(len(s.code)) * 4 }

func (s *selector) emit(word uint32) int32 {
	off := s.offset()
	s.code = append(s.code, word)
	return off
}

// loadImmediate appends the shortest lui+addi (or bare addi) sequence
// that materializes val into reg, returning the number of words used.
func (s *selector) loadImmediate(reg riscv.Reg, val int32) int {
	if val >= -2048 && val <= 2047 {
		s.emit(riscv.Addi(reg, riscv.Zero, val))
		return 1
	}
	hi := (val + 0x800) & ^0xFFF
	lo := val - hi
	s.emit(riscv.Lui(reg, hi))
	if lo != 0 {
		s.emit(riscv.Addi(reg, reg, lo))
		return 2
	}
	return 1
}

func (s *selector) loadValue(reg riscv.Reg, id ssa.ValueID) {
	off, ok := s.fr.values[id]
	if !ok {
		panic(errors.Internal("backend.select", "value has no frame slot").Error())
	}
	s.emit(riscv.Lw(reg, riscv.S0, off))
}

func (s *selector) storeValue(reg riscv.Reg, id ssa.ValueID) {
	off, ok := s.fr.values[id]
	if !ok {
		panic(errors.Internal("backend.select", "value has no frame slot").Error())
	}
	s.emit(riscv.Sw(riscv.S0, reg, off))
}

func (s *selector) slotAddr(reg riscv.Reg, id ssa.SlotID) {
	off, ok := s.fr.slots[id]
	if !ok {
		panic(errors.Internal("backend.select", "stack slot not laid out").Error())
	}
	s.loadImmediate(reg, off)
	s.emit(riscv.Add(reg, reg, riscv.S0))
}

// emitPrologue establishes the frame: sp -= size; save ra, s0; s0 = old sp.
func (s *selector) emitPrologue() {
	size := s.fr.size
	s.emit(riscv.Addi(riscv.SP, riscv.SP, -size))
	s.emit(riscv.Sw(riscv.SP, riscv.RA, size-4))
	s.emit(riscv.Sw(riscv.SP, riscv.S0, size-8))
	s.emit(riscv.Addi(riscv.S0, riscv.SP, size))

	for i, id := range s.fn.EntryBlock().Params {
		if i < len(argRegs) {
			s.storeValue(argRegs[i], id.Value)
		}
	}
}

// emitEpilogue restores ra, s0, sp and returns.
func (s *selector) emitEpilogue() {
	size := s.fr.size
	s.emit(riscv.Lw(riscv.RA, riscv.SP, size-4))
	s.emit(riscv.Lw(riscv.S0, riscv.SP, size-8))
	s.emit(riscv.Addi(riscv.SP, riscv.SP, size))
	s.emit(riscv.Jalr(riscv.Zero, riscv.RA, 0))
}

func (s *selector) selectBlock(b *ssa.Block) error {
	for i, instr := range b.Instrs {
		// A Trapnz before the block's last instruction is a mid-block
		// check that falls through; only the final instruction ends the block.
		if instr.Op == ssa.OpTrapnz && i < len(b.Instrs)-1 {
			s.selectTrapnz(instr)
			continue
		}
		if instr.Op.IsTerminator() {
			return s.selectTerminator(b, instr)
		}
		if err := s.selectInstr(instr); err != nil {
			return err
		}
	}
	return errors.Internal("backend.select", "block has no terminator").Pass("select")
}

// selectICmp materializes a boolean (0/1) result for every Cond. EQ/NE
// compare the xor of the operands against zero (sltiu/sltu); the
// *LE/*GE families are built from slt/sltu plus a negation, since RV32I
// only has slt/sltu as a native comparison primitive.
func (s *selector) selectICmp(instr ssa.Instr) {
	s.loadValue(scratch0, instr.Args[0])
	s.loadValue(scratch1, instr.Args[1])

	switch instr.Cond {
	case ssa.CondEQ:
		s.emit(riscv.Xor(scratch2, scratch0, scratch1))
		s.emit(riscv.Sltiu(scratch2, scratch2, 1))
	case ssa.CondNE:
		s.emit(riscv.Xor(scratch2, scratch0, scratch1))
		s.emit(riscv.Sltu(scratch2, riscv.Zero, scratch2))
	case ssa.CondSLT, ssa.CondLT:
		s.emit(riscv.Slt(scratch2, scratch0, scratch1))
	case ssa.CondSGT, ssa.CondGT:
		s.emit(riscv.Slt(scratch2, scratch1, scratch0))
	case ssa.CondSLE, ssa.CondLE:
		s.emit(riscv.Slt(scratch2, scratch1, scratch0))
		s.emit(riscv.Xori(scratch2, scratch2, 1))
	case ssa.CondSGE, ssa.CondGE:
		s.emit(riscv.Slt(scratch2, scratch0, scratch1))
		s.emit(riscv.Xori(scratch2, scratch2, 1))
	case ssa.CondULT:
		s.emit(riscv.Sltu(scratch2, scratch0, scratch1))
	case ssa.CondUGT:
		s.emit(riscv.Sltu(scratch2, scratch1, scratch0))
	case ssa.CondULE:
		s.emit(riscv.Sltu(scratch2, scratch1, scratch0))
		s.emit(riscv.Xori(scratch2, scratch2, 1))
	case ssa.CondUGE:
		s.emit(riscv.Sltu(scratch2, scratch0, scratch1))
		s.emit(riscv.Xori(scratch2, scratch2, 1))
	}
	s.storeValue(scratch2, instr.Result)
}

func (s *selector) selectInstr(instr ssa.Instr) error {
	switch instr.Op {
	case ssa.OpIConst:
		s.loadImmediate(scratch0, int32(instr.IConst))
		s.storeValue(scratch0, instr.Result)

	case ssa.OpIAdd:
		s.binop(instr, riscv.Add)
	case ssa.OpISub:
		s.binop(instr, riscv.Sub)
	case ssa.OpIMul:
		s.binop(instr, riscv.Mul)
	case ssa.OpSDiv:
		s.binop(instr, riscv.Div)
	case ssa.OpUDiv:
		s.binop(instr, riscv.Divu)
	case ssa.OpSRem:
		s.binop(instr, riscv.Rem)
	case ssa.OpURem:
		s.binop(instr, riscv.Remu)
	case ssa.OpIShl:
		s.binop(instr, riscv.Sll)
	case ssa.OpSShr:
		s.binop(instr, riscv.Sra)
	case ssa.OpUShr:
		s.binop(instr, riscv.Srl)
	case ssa.OpIAnd:
		s.binop(instr, riscv.And)
	case ssa.OpIOr:
		s.binop(instr, riscv.Or)
	case ssa.OpIXor:
		s.binop(instr, riscv.Xor)

	case ssa.OpINeg:
		s.loadValue(scratch0, instr.Args[0])
		s.emit(riscv.Sub(scratch1, riscv.Zero, scratch0))
		s.storeValue(scratch1, instr.Result)

	case ssa.OpICmp:
		s.selectICmp(instr)

	case ssa.OpSelect:
		s.selectSelect(instr)
	case ssa.OpSMin:
		s.selectExtremum(instr, true)
	case ssa.OpSMax:
		s.selectExtremum(instr, false)

	case ssa.OpStackAddr:
		s.slotAddr(scratch0, instr.Slot)
		s.storeValue(scratch0, instr.Result)

	case ssa.OpLoad:
		s.loadValue(scratch0, instr.Args[0])
		s.emit(riscv.Lw(scratch1, scratch0, instr.Offset))
		s.storeValue(scratch1, instr.Result)

	case ssa.OpStore:
		s.loadValue(scratch0, instr.Args[0])
		s.loadValue(scratch1, instr.Args[1])
		s.emit(riscv.Sw(scratch0, scratch1, instr.Offset))

	case ssa.OpCall:
		s.selectCall(instr)

	case ssa.OpFAdd, ssa.OpFSub, ssa.OpFMul, ssa.OpFDiv, ssa.OpFNeg, ssa.OpFAbs, ssa.OpFCmp, ssa.OpF32Const:
		return errors.Internal("backend.select", "floating-point opcode reached the backend; q32 must rewrite it first").Pass("select")

	default:
		return errors.Internal("backend.select", "unhandled opcode").Pass("select")
	}
	return nil
}

func (s *selector) binop(instr ssa.Instr, emit func(rd, rs1, rs2 riscv.Reg) uint32) {
	s.loadValue(scratch0, instr.Args[0])
	s.loadValue(scratch1, instr.Args[1])
	s.emit(emit(scratch2, scratch0, scratch1))
	s.storeValue(scratch2, instr.Result)
}

// selectSelect implements cond ? ifTrue : ifFalse with a fully local
// two-way branch; no cross-block fixup is needed since both arms are
// emitted back to back in the same instruction stream.
func (s *selector) selectSelect(instr ssa.Instr) {
	cond, ifTrue, ifFalse := instr.Args[0], instr.Args[1], instr.Args[2]
	s.loadValue(scratch0, cond)
	branchAt := s.emit(0) // placeholder, patched below
	s.loadValue(scratch1, ifFalse)
	s.storeValue(scratch1, instr.Result)
	jAt := s.emit(0)
	trueAt := s.offset()
	s.loadValue(scratch1, ifTrue)
	s.storeValue(scratch1, instr.Result)
	doneAt := s.offset()

	s.code[branchAt/4] = riscv.Bne(scratch0, riscv.Zero, trueAt-branchAt)
	s.code[jAt/4] = riscv.Jal(riscv.Zero, doneAt-jAt)
}

// selectExtremum implements the saturating SMin/SMax opcodes as
// select(a<b, a, b) or its mirror.
func (s *selector) selectExtremum(instr ssa.Instr, min bool) {
	a, b := instr.Args[0], instr.Args[1]
	s.loadValue(scratch0, a)
	s.loadValue(scratch1, b)
	if min {
		s.emit(riscv.Slt(scratch2, scratch0, scratch1))
	} else {
		s.emit(riscv.Slt(scratch2, scratch1, scratch0))
	}
	branchAt := s.emit(0)
	s.storeValue(scratch1, instr.Result)
	jAt := s.emit(0)
	trueAt := s.offset()
	s.storeValue(scratch0, instr.Result)
	doneAt := s.offset()

	s.code[branchAt/4] = riscv.Bne(scratch2, riscv.Zero, trueAt-branchAt)
	s.code[jAt/4] = riscv.Jal(riscv.Zero, doneAt-jAt)
}

func calleeSymbol(mod *ssa.Module, c ssa.Callee) string {
	switch c.Kind {
	case ssa.CalleeExternRef:
		return c.ExternRef
	case ssa.CalleeIntraModule:
		if mod != nil && c.FuncIndex >= 0 && c.FuncIndex < len(mod.Funcs) {
			return mod.Funcs[c.FuncIndex].Name
		}
	case ssa.CalleeImported:
		if mod != nil && c.FuncIndex >= 0 && c.FuncIndex < len(mod.Imports) {
			return mod.Imports[c.FuncIndex].Name
		}
	}
	return ""
}

// selectCall stages arguments into a0.., emits an auipc+jalr pair
// against the callee's symbol (resolved later by the assembler
// regardless of whether the callee turns out to live in this same
// module), and homes the result if the signature has one.
func (s *selector) selectCall(instr ssa.Instr) {
	for i, arg := range instr.Args {
		if i >= len(argRegs) {
			panic(errors.Internal("backend.select", "call exceeds eight-argument convention").Error())
		}
		s.loadValue(argRegs[i], arg)
	}

	auipcAt := s.emit(riscv.Auipc(scratch0, 0))
	s.emit(riscv.Jalr(riscv.RA, scratch0, 0))
	s.calls = append(s.calls, callFixup{offset: auipcAt, symbol: calleeSymbol(s.mod, instr.Callee)})

	// ResultTy is TypeInvalid for a void callee; DefinesValue alone
	// can't distinguish that from "result unused" since Call always
	// reports true (see Opcode.DefinesValue's doc comment).
	if instr.ResultTy != ssa.TypeInvalid {
		s.storeValue(riscv.A0, instr.Result)
	}
}

func (s *selector) selectTerminator(b *ssa.Block, instr ssa.Instr) error {
	switch instr.Op {
	case ssa.OpJump:
		s.storeBlockArgs(instr.JumpTarget, instr.JumpArgs)
		at := s.emit(0)
		s.fixups = append(s.fixups, branchFixup{offset: at, target: instr.JumpTarget})
		return nil

	case ssa.OpBrif:
		s.loadValue(scratch0, instr.Args[0])
		beqAt := s.emit(0) // beq cond,zero -> else path, patched once else length known
		s.storeBlockArgs(instr.ThenTarget, instr.ThenArgs)
		thenJAt := s.emit(0)
		elseStart := s.offset()
		s.code[beqAt/4] = riscv.Beq(scratch0, riscv.Zero, elseStart-beqAt)
		s.storeBlockArgs(instr.ElseTarget, instr.ElseArgs)
		elseJAt := s.emit(0)
		s.fixups = append(s.fixups, branchFixup{offset: thenJAt, target: instr.ThenTarget})
		s.fixups = append(s.fixups, branchFixup{offset: elseJAt, target: instr.ElseTarget})
		return nil

	case ssa.OpReturn:
		if len(instr.RetValues) > 0 {
			s.loadValue(riscv.A0, instr.RetValues[0])
		}
		s.emitEpilogue()
		return nil

	case ssa.OpUnreachable:
		s.emit(riscv.Ebreak())
		return nil

	case ssa.OpTrapnz:
		s.selectTrapnz(instr)
		return nil

	default:
		return errors.Internal("backend.select", "unhandled terminator").Pass("select")
	}
}

// selectTrapnz checks Args[0] and, if nonzero, loads TrapCode into a0
// and executes ebreak; otherwise falls through to the code selected
// right after it (spec §4.1 pass 3's bounds-check
// shape: "continues in the same control-flow position" rather than
// branching to a separate successor block).
func (s *selector) selectTrapnz(instr ssa.Instr) {
	s.loadValue(scratch0, instr.Args[0])
	beqAt := s.emit(0)
	s.loadImmediate(riscv.A0, instr.TrapCode)
	s.emit(riscv.Ebreak())
	cont := s.offset()
	s.code[beqAt/4] = riscv.Beq(scratch0, riscv.Zero, cont-beqAt)
}

// storeBlockArgs writes a jump/branch's arguments into the target
// block's parameter slots before transferring control. Each
// destination param's home offset is already known (frame layout is
// computed up front from the whole function), so this needs no
// fixup even though the target block itself may not be emitted yet.
func (s *selector) storeBlockArgs(target ssa.BlockID, args []ssa.ValueID) {
	tb := s.fn.Block(target)
	if tb == nil {
		panic(errors.Internal("backend.select", "branch target block not found").Error())
	}
	for i, arg := range args {
		if i >= len(tb.Params) {
			break
		}
		s.loadValue(scratch0, arg)
		s.storeValue(scratch0, tb.Params[i].Value)
	}
}

func (s *selector) resolveFixups() {
	for _, f := range s.fixups {
		target := s.blocks[f.target]
		s.code[f.offset/4] = riscv.Jal(riscv.Zero, target-f.offset)
	}
}
