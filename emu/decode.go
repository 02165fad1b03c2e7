package emu

import "fmt"

type aluOp int

const (
	aluAdd aluOp = iota
	aluSub
	aluSll
	aluSlt
	aluSltu
	aluXor
	aluSrl
	aluSra
	aluOr
	aluAnd
	aluMul
	aluMulh
	aluMulhsu
	aluMulhu
	aluDiv
	aluDivu
	aluRem
	aluRemu
)

type branchCond int

const (
	brEq branchCond = iota
	brNe
	brLt
	brGe
	brLtu
	brGeu
)

type amoOp int

const (
	amoSwap amoOp = iota
	amoAdd
	amoAnd
	amoOr
	amoXor
	amoMax
	amoMin
	amoMaxu
	amoMinu
	amoLR
	amoSC
)

type instrKind int

const (
	kLUI instrKind = iota
	kAUIPC
	kJAL
	kJALR
	kBranch
	kLoad
	kStore
	kOpImm
	kOp
	kSystemECall
	kSystemEBreak
	kFence
	kAMO
)

// decoded is the backend-agnostic instruction shape both the 32-bit and
// compressed decoders produce; execute operates only on this.
type decoded struct {
	kind   instrKind
	rd     uint32
	rs1    uint32
	rs2    uint32
	imm    int32
	alu    aluOp
	cond   branchCond
	amo    amoOp
	width  int // 1, 2, or 4 bytes
	signed bool
}

func bits(v uint32, hi, lo uint32) uint32 {
	return (v >> lo) & ((1 << (hi - lo + 1)) - 1)
}

func signExtend(v uint32, bit uint32) int32 {
	shift := 31 - bit
	return int32(v<<shift) >> shift
}

// decode32 decodes one standard 32-bit RISC-V instruction word.
func decode32(w uint32) (decoded, error) {
	opcode := w & 0x7F
	rd := bits(w, 11, 7)
	funct3 := bits(w, 14, 12)
	rs1 := bits(w, 19, 15)
	rs2 := bits(w, 24, 20)
	funct7 := bits(w, 31, 25)

	switch opcode {
	case 0x37: // LUI
		return decoded{kind: kLUI, rd: rd, imm: int32(w & 0xFFFFF000)}, nil
	case 0x17: // AUIPC
		return decoded{kind: kAUIPC, rd: rd, imm: int32(w & 0xFFFFF000)}, nil
	case 0x6F: // JAL
		imm20 := bits(w, 31, 31)
		imm19_12 := bits(w, 19, 12)
		imm11 := bits(w, 20, 20)
		imm10_1 := bits(w, 30, 21)
		raw := (imm20 << 20) | (imm19_12 << 12) | (imm11 << 11) | (imm10_1 << 1)
		return decoded{kind: kJAL, rd: rd, imm: signExtend(raw, 20)}, nil
	case 0x67: // JALR
		return decoded{kind: kJALR, rd: rd, rs1: rs1, imm: signExtend(bits(w, 31, 20), 11)}, nil
	case 0x63: // Branch
		imm12 := bits(w, 31, 31)
		imm10_5 := bits(w, 30, 25)
		imm4_1 := bits(w, 11, 8)
		imm11 := bits(w, 7, 7)
		raw := (imm12 << 12) | (imm11 << 11) | (imm10_5 << 5) | (imm4_1 << 1)
		cond, err := branchCondFromFunct3(funct3)
		if err != nil {
			return decoded{}, err
		}
		return decoded{kind: kBranch, rs1: rs1, rs2: rs2, cond: cond, imm: signExtend(raw, 12)}, nil
	case 0x03: // Load
		width, signed, err := loadShapeFromFunct3(funct3)
		if err != nil {
			return decoded{}, err
		}
		return decoded{kind: kLoad, rd: rd, rs1: rs1, width: width, signed: signed, imm: signExtend(bits(w, 31, 20), 11)}, nil
	case 0x23: // Store
		width, err := storeWidthFromFunct3(funct3)
		if err != nil {
			return decoded{}, err
		}
		raw := (bits(w, 31, 25) << 5) | bits(w, 11, 7)
		return decoded{kind: kStore, rs1: rs1, rs2: rs2, width: width, imm: signExtend(raw, 11)}, nil
	case 0x13: // OP-IMM
		op, err := aluOpFromImmFunct(funct3, funct7)
		if err != nil {
			return decoded{}, err
		}
		imm := signExtend(bits(w, 31, 20), 11)
		if funct3 == 1 || funct3 == 5 { // shift amounts are unsigned 5-bit
			imm = int32(bits(w, 24, 20))
		}
		return decoded{kind: kOpImm, rd: rd, rs1: rs1, alu: op, imm: imm}, nil
	case 0x33: // OP (R-type, including M extension)
		op, err := aluOpFromRegFunct(funct3, funct7)
		if err != nil {
			return decoded{}, err
		}
		return decoded{kind: kOp, rd: rd, rs1: rs1, rs2: rs2, alu: op}, nil
	case 0x0F: // FENCE / FENCE.I
		return decoded{kind: kFence}, nil
	case 0x73: // SYSTEM
		switch bits(w, 31, 20) {
		case 0:
			return decoded{kind: kSystemECall}, nil
		case 1:
			return decoded{kind: kSystemEBreak}, nil
		}
		return decoded{}, fmt.Errorf("unsupported SYSTEM immediate %#x", bits(w, 31, 20))
	case 0x2F: // AMO (A extension)
		op, err := amoOpFromFunct7(bits(funct7, 6, 2))
		if err != nil {
			return decoded{}, err
		}
		return decoded{kind: kAMO, rd: rd, rs1: rs1, rs2: rs2, amo: op}, nil
	default:
		return decoded{}, fmt.Errorf("unsupported opcode %#02x", opcode)
	}
}

func branchCondFromFunct3(f3 uint32) (branchCond, error) {
	switch f3 {
	case 0x0:
		return brEq, nil
	case 0x1:
		return brNe, nil
	case 0x4:
		return brLt, nil
	case 0x5:
		return brGe, nil
	case 0x6:
		return brLtu, nil
	case 0x7:
		return brGeu, nil
	default:
		return 0, fmt.Errorf("unsupported branch funct3 %#x", f3)
	}
}

func loadShapeFromFunct3(f3 uint32) (width int, signed bool, err error) {
	switch f3 {
	case 0x0:
		return 1, true, nil
	case 0x1:
		return 2, true, nil
	case 0x2:
		return 4, true, nil
	case 0x4:
		return 1, false, nil
	case 0x5:
		return 2, false, nil
	default:
		return 0, false, fmt.Errorf("unsupported load funct3 %#x", f3)
	}
}

func storeWidthFromFunct3(f3 uint32) (int, error) {
	switch f3 {
	case 0x0:
		return 1, nil
	case 0x1:
		return 2, nil
	case 0x2:
		return 4, nil
	default:
		return 0, fmt.Errorf("unsupported store funct3 %#x", f3)
	}
}

func aluOpFromImmFunct(f3, f7 uint32) (aluOp, error) {
	switch f3 {
	case 0x0:
		return aluAdd, nil
	case 0x1:
		return aluSll, nil
	case 0x2:
		return aluSlt, nil
	case 0x3:
		return aluSltu, nil
	case 0x4:
		return aluXor, nil
	case 0x5:
		if f7>>1 == 0x10 {
			return aluSra, nil
		}
		return aluSrl, nil
	case 0x6:
		return aluOr, nil
	case 0x7:
		return aluAnd, nil
	default:
		return 0, fmt.Errorf("unsupported op-imm funct3 %#x", f3)
	}
}

func aluOpFromRegFunct(f3, f7 uint32) (aluOp, error) {
	if f7 == 0x01 { // M extension
		switch f3 {
		case 0x0:
			return aluMul, nil
		case 0x1:
			return aluMulh, nil
		case 0x2:
			return aluMulhsu, nil
		case 0x3:
			return aluMulhu, nil
		case 0x4:
			return aluDiv, nil
		case 0x5:
			return aluDivu, nil
		case 0x6:
			return aluRem, nil
		case 0x7:
			return aluRemu, nil
		}
	}
	switch f3 {
	case 0x0:
		if f7 == 0x20 {
			return aluSub, nil
		}
		return aluAdd, nil
	case 0x1:
		return aluSll, nil
	case 0x2:
		return aluSlt, nil
	case 0x3:
		return aluSltu, nil
	case 0x4:
		return aluXor, nil
	case 0x5:
		if f7 == 0x20 {
			return aluSra, nil
		}
		return aluSrl, nil
	case 0x6:
		return aluOr, nil
	case 0x7:
		return aluAnd, nil
	}
	return 0, fmt.Errorf("unsupported op funct3=%#x funct7=%#x", f3, f7)
}

func amoOpFromFunct7(top5 uint32) (amoOp, error) {
	switch top5 {
	case 0x01:
		return amoSwap, nil
	case 0x00:
		return amoAdd, nil
	case 0x0C:
		return amoAnd, nil
	case 0x08:
		return amoOr, nil
	case 0x04:
		return amoXor, nil
	case 0x14:
		return amoMax, nil
	case 0x10:
		return amoMin, nil
	case 0x1C:
		return amoMaxu, nil
	case 0x18:
		return amoMinu, nil
	case 0x02:
		return amoLR, nil
	case 0x03:
		return amoSC, nil
	default:
		return 0, fmt.Errorf("unsupported amo funct5 %#x", top5)
	}
}

// decodeCompressed expands a 16-bit RVC instruction to the same
// decoded shape a 32-bit instruction produces, covering the subset
// backend/select.go's own output never needs but a general guest image
// (spec §4.5: "branch/jump decoding must handle both 32-bit and 16-bit
// encodings") may still contain: c.addi/c.li/c.lui, c.mv/c.add,
// c.lw/c.sw, c.beqz/c.bnez, c.j, c.jr/c.jalr, c.nop.
func decodeCompressed(w uint16) (decoded, error) {
	op := w & 0x3
	funct3 := (w >> 13) & 0x7

	switch op {
	case 0x1: // C1
		switch funct3 {
		case 0x0: // c.addi / c.nop
			rd := uint32((w >> 7) & 0x1F)
			imm := cImm6(w)
			return decoded{kind: kOpImm, rd: rd, rs1: rd, alu: aluAdd, imm: imm}, nil
		case 0x1: // c.jal (rv32) : jal x1, offset
			imm := cImmJ(w)
			return decoded{kind: kJAL, rd: 1, imm: imm}, nil
		case 0x2: // c.li: addi rd, x0, imm
			rd := uint32((w >> 7) & 0x1F)
			imm := cImm6(w)
			return decoded{kind: kOpImm, rd: rd, rs1: 0, alu: aluAdd, imm: imm}, nil
		case 0x3: // c.lui
			rd := uint32((w >> 7) & 0x1F)
			imm := cImm6(w) << 12
			return decoded{kind: kLUI, rd: rd, imm: imm}, nil
		case 0x5: // c.j
			imm := cImmJ(w)
			return decoded{kind: kJAL, rd: 0, imm: imm}, nil
		case 0x6: // c.beqz
			rs1 := 8 + uint32((w>>7)&0x7)
			imm := cImmB(w)
			return decoded{kind: kBranch, rs1: rs1, rs2: 0, cond: brEq, imm: imm}, nil
		case 0x7: // c.bnez
			rs1 := 8 + uint32((w>>7)&0x7)
			imm := cImmB(w)
			return decoded{kind: kBranch, rs1: rs1, rs2: 0, cond: brNe, imm: imm}, nil
		}
	case 0x2: // C2
		switch funct3 {
		case 0x0: // c.slli
			rd := uint32((w >> 7) & 0x1F)
			shamt := int32((w>>2)&0x1F) | int32((w>>12)&1)<<5
			return decoded{kind: kOpImm, rd: rd, rs1: rd, alu: aluSll, imm: shamt}, nil
		case 0x4:
			rd := uint32((w >> 7) & 0x1F)
			rs2 := uint32((w >> 2) & 0x1F)
			bit12 := (w >> 12) & 1
			if rs2 == 0 {
				if bit12 == 0 { // c.jr
					return decoded{kind: kJALR, rd: 0, rs1: rd, imm: 0}, nil
				}
				// c.jalr
				return decoded{kind: kJALR, rd: 1, rs1: rd, imm: 0}, nil
			}
			if bit12 == 0 { // c.mv: add rd, x0, rs2
				return decoded{kind: kOp, rd: rd, rs1: 0, rs2: rs2, alu: aluAdd}, nil
			}
			// c.add
			return decoded{kind: kOp, rd: rd, rs1: rd, rs2: rs2, alu: aluAdd}, nil
		}
	case 0x0: // C0
		rdp := 8 + uint32((w>>2)&0x7)
		rs1p := 8 + uint32((w>>7)&0x7)
		switch funct3 {
		case 0x2: // c.lw
			imm := cImmW(w)
			return decoded{kind: kLoad, rd: rdp, rs1: rs1p, width: 4, signed: true, imm: imm}, nil
		case 0x6: // c.sw
			imm := cImmW(w)
			return decoded{kind: kStore, rs1: rs1p, rs2: rdp, width: 4, imm: imm}, nil
		}
	}
	return decoded{}, fmt.Errorf("unsupported compressed instruction %#04x", w)
}

func cImm6(w uint16) int32 {
	raw := uint32((w>>2)&0x1F) | uint32((w>>12)&1)<<5
	return signExtend(raw, 5)
}

func cImmJ(w uint16) int32 {
	b := func(bit uint) uint32 { return uint32((w >> bit) & 1) }
	raw := b(12)<<11 | b(11)<<4 | b(10)<<9 | b(9)<<8 | b(8)<<10 |
		b(7)<<6 | b(6)<<7 | b(5)<<3 | b(4)<<2 | b(3)<<1 | b(2)<<5
	return signExtend(raw, 11)
}

func cImmB(w uint16) int32 {
	b := func(bit uint) uint32 { return uint32((w >> bit) & 1) }
	raw := b(12)<<8 | b(11)<<4 | b(10)<<3 | b(6)<<7 | b(5)<<6 | b(4)<<2 | b(3)<<1 | b(2)<<5
	return signExtend(raw, 8)
}

func cImmW(w uint16) int32 {
	b := func(bit uint) uint32 { return uint32((w >> bit) & 1) }
	raw := b(5)<<6 | b(12)<<5 | b(11)<<4 | b(10)<<3 | b(6)<<2
	return int32(raw)
}
