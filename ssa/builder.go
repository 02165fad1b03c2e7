package ssa

// Builder appends instructions to a block under construction. It is a
// thin convenience layer; package lower and package q32 both build
// functions instruction-by-instruction and call these helpers to keep
// ValueID/type bookkeeping in one place.
type Builder struct {
	Func  *Function
	Block *Block
}

// NewBuilder returns a Builder appending to block within fn.
func NewBuilder(fn *Function, block *Block) *Builder {
	return &Builder{Func: fn, Block: block}
}

// SetBlock redirects subsequent emission to a different block.
func (b *Builder) SetBlock(block *Block) { b.Block = block }

func (b *Builder) emit(i Instr) ValueID {
	if i.Op.DefinesValue() {
		if i.Result == 0 && i.ResultTy != TypeInvalid {
			i.Result = b.Func.NewValue(i.ResultTy)
		}
	}
	b.Block.Instrs = append(b.Block.Instrs, i)
	return i.Result
}

// IConst emits an i32 constant.
func (b *Builder) IConst(v int64) ValueID {
	return b.emit(Instr{Op: OpIConst, ResultTy: TypeI32, IConst: v})
}

// F32Const emits an f32 constant (pre-Q32 only).
func (b *Builder) F32Const(v float32) ValueID {
	return b.emit(Instr{Op: OpF32Const, ResultTy: TypeF32, F32Const: v})
}

// IConst8 emits an i8 constant — bool literals and zero-values live
// here rather than in IConst's i32 pool, since the two are distinct
// ValueIDs in Function.ValueType even when v is the same.
func (b *Builder) IConst8(v int64) ValueID {
	return b.emit(Instr{Op: OpIConst, ResultTy: TypeI8, IConst: v})
}

// Binary emits a two-operand arithmetic/logical instruction.
func (b *Builder) Binary(op Opcode, ty Type, lhs, rhs ValueID) ValueID {
	return b.emit(Instr{Op: op, ResultTy: ty, Args: []ValueID{lhs, rhs}})
}

// Unary emits a one-operand instruction.
func (b *Builder) Unary(op Opcode, ty Type, x ValueID) ValueID {
	return b.emit(Instr{Op: op, ResultTy: ty, Args: []ValueID{x}})
}

// ICmp emits an integer comparison, producing i8.
func (b *Builder) ICmp(cond Cond, lhs, rhs ValueID) ValueID {
	return b.emit(Instr{Op: OpICmp, ResultTy: TypeI8, Cond: cond, Args: []ValueID{lhs, rhs}})
}

// FCmp emits a floating-point comparison, producing i8.
func (b *Builder) FCmp(cond Cond, lhs, rhs ValueID) ValueID {
	return b.emit(Instr{Op: OpFCmp, ResultTy: TypeI8, Cond: cond, Args: []ValueID{lhs, rhs}})
}

// Select emits a ternary select.
func (b *Builder) Select(ty Type, cond, ifTrue, ifFalse ValueID) ValueID {
	return b.emit(Instr{Op: OpSelect, ResultTy: ty, Args: []ValueID{cond, ifTrue, ifFalse}})
}

// StackAddr emits the address of a stack slot as a pointer value.
func (b *Builder) StackAddr(slot SlotID) ValueID {
	return b.emit(Instr{Op: OpStackAddr, ResultTy: TypePtr, Slot: slot})
}

// Load emits a typed load from ptr at the given byte offset.
func (b *Builder) Load(ty Type, ptr ValueID, offset int32) ValueID {
	return b.emit(Instr{Op: OpLoad, ResultTy: ty, Args: []ValueID{ptr}, Offset: offset})
}

// Store emits a store of val into ptr at the given byte offset.
func (b *Builder) Store(ptr, val ValueID, offset int32) {
	b.emit(Instr{Op: OpStore, Args: []ValueID{ptr, val}, Offset: offset})
}

// Trapnz emits a conditional trap: if cond is nonzero, the guest traps
// with code; execution falls through otherwise. Trapnz is only a
// terminator when it is the block's final instruction (the bounds-check
// idiom in spec §4.2 emits it mid-block, followed by the guarded
// load/store in the same block).
func (b *Builder) Trapnz(cond ValueID, code int32) {
	b.emit(Instr{Op: OpTrapnz, Args: []ValueID{cond}, TrapCode: code})
}

// Call emits a call to callee with the given argument values, returning
// the single result value (zero value if the callee is void).
func (b *Builder) Call(callee Callee, resultTy Type, args ...ValueID) ValueID {
	i := Instr{Op: OpCall, Args: args, Callee: callee}
	if resultTy != TypeInvalid {
		i.ResultTy = resultTy
	}
	return b.emit(i)
}

// Jump terminates the block with an unconditional branch.
func (b *Builder) Jump(target BlockID, args ...ValueID) {
	b.emit(Instr{Op: OpJump, JumpTarget: target, JumpArgs: args})
}

// Brif terminates the block with a conditional branch.
func (b *Builder) Brif(cond ValueID, thenTarget BlockID, thenArgs []ValueID, elseTarget BlockID, elseArgs []ValueID) {
	b.emit(Instr{
		Op: OpBrif, Args: []ValueID{cond},
		ThenTarget: thenTarget, ThenArgs: thenArgs,
		ElseTarget: elseTarget, ElseArgs: elseArgs,
	})
}

// Return terminates the block, returning vals.
func (b *Builder) Return(vals ...ValueID) {
	b.emit(Instr{Op: OpReturn, RetValues: vals})
}

// Unreachable terminates the block with a trap.
func (b *Builder) Unreachable() {
	b.emit(Instr{Op: OpUnreachable})
}
