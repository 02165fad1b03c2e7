// Package riscv encodes RV32IMAC instructions. It mirrors the
// byte-level writer discipline of wasm/internal/binary
// (reader.go/writer.go) and the instruction/section split of
// wat/internal/encoder (instr.go/section.go), generalized from WASM
// opcodes and LEB128 integers to RV32 opcodes and fixed-width
// immediate-field encoding.
package riscv

// Reg names one of the 32 general-purpose registers by its ABI name.
type Reg uint8

const (
	Zero Reg = iota
	RA
	SP
	GP
	TP
	T0
	T1
	T2
	S0
	S1
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6
)

// Base RV32I/M opcode field values (bits [6:0]).
const (
	opLoad   = 0x03
	opOpImm  = 0x13
	opAUIPC  = 0x17
	opStore  = 0x23
	opOp     = 0x33
	opLUI    = 0x37
	opBranch = 0x63
	opJALR   = 0x67
	opJAL    = 0x6F
	opSystem = 0x73
)

func bits(v uint32, hi, lo uint) uint32 {
	return (v >> lo) & ((1 << (hi - lo + 1)) - 1)
}

// REncode builds an R-type instruction: register-register ALU ops.
func REncode(opcode, funct3, funct7 uint32, rd, rs1, rs2 Reg) uint32 {
	return funct7<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | funct3<<12 | uint32(rd)<<7 | opcode
}

// IEncode builds an I-type instruction: immediate ALU ops, loads, JALR.
func IEncode(opcode, funct3 uint32, rd, rs1 Reg, imm int32) uint32 {
	return (uint32(imm)&0xFFF)<<20 | uint32(rs1)<<15 | funct3<<12 | uint32(rd)<<7 | opcode
}

// SEncode builds an S-type instruction: stores.
func SEncode(opcode, funct3 uint32, rs1, rs2 Reg, imm int32) uint32 {
	u := uint32(imm)
	return bits(u, 11, 5)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | funct3<<12 | bits(u, 4, 0)<<7 | opcode
}

// BEncode builds a B-type instruction: conditional branches. imm is the
// byte offset and must be even (spec: RV32 branches are 2-byte aligned).
func BEncode(opcode, funct3 uint32, rs1, rs2 Reg, imm int32) uint32 {
	u := uint32(imm)
	return bits(u, 12, 12)<<31 | bits(u, 10, 5)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 |
		funct3<<12 | bits(u, 4, 1)<<8 | bits(u, 11, 11)<<7 | opcode
}

// UEncode builds a U-type instruction: LUI/AUIPC. imm is the raw
// already-shifted 20-bit upper-immediate value.
func UEncode(opcode uint32, rd Reg, imm int32) uint32 {
	return uint32(imm)&0xFFFFF000 | uint32(rd)<<7 | opcode
}

// JEncode builds a J-type instruction: JAL. imm is the byte offset and
// must be even.
func JEncode(opcode uint32, rd Reg, imm int32) uint32 {
	u := uint32(imm)
	return bits(u, 20, 20)<<31 | bits(u, 10, 1)<<21 | bits(u, 11, 11)<<20 |
		bits(u, 19, 12)<<12 | uint32(rd)<<7 | opcode
}

// funct3/funct7 selectors used by the instruction constructors below.
const (
	f3ADDSUB = 0x0
	f3SLL    = 0x1
	f3SLT    = 0x2
	f3SLTU   = 0x3
	f3XOR    = 0x4
	f3SR     = 0x5
	f3OR     = 0x6
	f3AND    = 0x7

	f7Base = 0x00
	f7Alt  = 0x20 // SUB, SRA

	f3MUL    = 0x0
	f3MULH   = 0x1
	f3MULHSU = 0x2
	f3MULHU  = 0x3
	f3DIV    = 0x4
	f3DIVU   = 0x5
	f3REM    = 0x6
	f3REMU   = 0x7
	f7MulDiv = 0x01

	f3BEQ  = 0x0
	f3BNE  = 0x1
	f3BLT  = 0x4
	f3BGE  = 0x5
	f3BLTU = 0x6
	f3BGEU = 0x7

	f3LB  = 0x0
	f3LH  = 0x1
	f3LW  = 0x2
	f3LBU = 0x4
	f3LHU = 0x5

	f3SB = 0x0
	f3SH = 0x1
	f3SW = 0x2

	f3JALR = 0x0
)

// Register-register arithmetic (RV32I base + M extension).
func Add(rd, rs1, rs2 Reg) uint32  { return REncode(opOp, f3ADDSUB, f7Base, rd, rs1, rs2) }
func Sub(rd, rs1, rs2 Reg) uint32  { return REncode(opOp, f3ADDSUB, f7Alt, rd, rs1, rs2) }
func Sll(rd, rs1, rs2 Reg) uint32  { return REncode(opOp, f3SLL, f7Base, rd, rs1, rs2) }
func Slt(rd, rs1, rs2 Reg) uint32  { return REncode(opOp, f3SLT, f7Base, rd, rs1, rs2) }
func Sltu(rd, rs1, rs2 Reg) uint32 { return REncode(opOp, f3SLTU, f7Base, rd, rs1, rs2) }
func Xor(rd, rs1, rs2 Reg) uint32  { return REncode(opOp, f3XOR, f7Base, rd, rs1, rs2) }
func Srl(rd, rs1, rs2 Reg) uint32  { return REncode(opOp, f3SR, f7Base, rd, rs1, rs2) }
func Sra(rd, rs1, rs2 Reg) uint32  { return REncode(opOp, f3SR, f7Alt, rd, rs1, rs2) }
func Or(rd, rs1, rs2 Reg) uint32   { return REncode(opOp, f3OR, f7Base, rd, rs1, rs2) }
func And(rd, rs1, rs2 Reg) uint32  { return REncode(opOp, f3AND, f7Base, rd, rs1, rs2) }

func Mul(rd, rs1, rs2 Reg) uint32  { return REncode(opOp, f3MUL, f7MulDiv, rd, rs1, rs2) }
func Div(rd, rs1, rs2 Reg) uint32  { return REncode(opOp, f3DIV, f7MulDiv, rd, rs1, rs2) }
func Divu(rd, rs1, rs2 Reg) uint32 { return REncode(opOp, f3DIVU, f7MulDiv, rd, rs1, rs2) }
func Rem(rd, rs1, rs2 Reg) uint32  { return REncode(opOp, f3REM, f7MulDiv, rd, rs1, rs2) }
func Remu(rd, rs1, rs2 Reg) uint32 { return REncode(opOp, f3REMU, f7MulDiv, rd, rs1, rs2) }

// Register-immediate arithmetic.
func Addi(rd, rs1 Reg, imm int32) uint32  { return IEncode(opOpImm, f3ADDSUB, rd, rs1, imm) }
func Slti(rd, rs1 Reg, imm int32) uint32  { return IEncode(opOpImm, f3SLT, rd, rs1, imm) }
func Sltiu(rd, rs1 Reg, imm int32) uint32 { return IEncode(opOpImm, f3SLTU, rd, rs1, imm) }
func Xori(rd, rs1 Reg, imm int32) uint32  { return IEncode(opOpImm, f3XOR, rd, rs1, imm) }
func Ori(rd, rs1 Reg, imm int32) uint32   { return IEncode(opOpImm, f3OR, rd, rs1, imm) }
func Andi(rd, rs1 Reg, imm int32) uint32  { return IEncode(opOpImm, f3AND, rd, rs1, imm) }
func Slli(rd, rs1 Reg, shamt uint32) uint32 {
	return IEncode(opOpImm, f3SLL, rd, rs1, int32(shamt&0x1F))
}
func Srli(rd, rs1 Reg, shamt uint32) uint32 {
	return IEncode(opOpImm, f3SR, rd, rs1, int32(shamt&0x1F))
}
func Srai(rd, rs1 Reg, shamt uint32) uint32 {
	return IEncode(opOpImm, f3SR, rd, rs1, int32(shamt&0x1F)|f7Alt<<5)
}

// Loads/stores.
func Lw(rd, rs1 Reg, imm int32) uint32  { return IEncode(opLoad, f3LW, rd, rs1, imm) }
func Lb(rd, rs1 Reg, imm int32) uint32  { return IEncode(opLoad, f3LB, rd, rs1, imm) }
func Lbu(rd, rs1 Reg, imm int32) uint32 { return IEncode(opLoad, f3LBU, rd, rs1, imm) }
func Sw(rs1, rs2 Reg, imm int32) uint32 { return SEncode(opStore, f3SW, rs1, rs2, imm) }
func Sb(rs1, rs2 Reg, imm int32) uint32 { return SEncode(opStore, f3SB, rs1, rs2, imm) }

// Branches/jumps.
func Beq(rs1, rs2 Reg, imm int32) uint32 { return BEncode(opBranch, f3BEQ, rs1, rs2, imm) }
func Bne(rs1, rs2 Reg, imm int32) uint32 { return BEncode(opBranch, f3BNE, rs1, rs2, imm) }
func Jal(rd Reg, imm int32) uint32       { return JEncode(opJAL, rd, imm) }
func Jalr(rd, rs1 Reg, imm int32) uint32 { return IEncode(opJALR, f3JALR, rd, rs1, imm) }
func Lui(rd Reg, imm int32) uint32       { return UEncode(opLUI, rd, imm) }
func Auipc(rd Reg, imm int32) uint32     { return UEncode(opAUIPC, rd, imm) }

// Ebreak/Ecall are the fixed SYSTEM-opcode encodings with no operands.
func Ebreak() uint32 { return IEncode(opSystem, 0, Zero, Zero, 1) }
func Ecall() uint32  { return IEncode(opSystem, 0, Zero, Zero, 0) }
