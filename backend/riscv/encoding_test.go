package riscv

import "testing"

func TestAddiKnownEncoding(t *testing.T) {
	// addi t0, zero, 42 is a well-known fixed bit pattern.
	got := Addi(T0, Zero, 42)
	want := uint32(0x02A00293)
	if got != want {
		t.Fatalf("Addi(T0, Zero, 42) = %#08x, want %#08x", got, want)
	}
}

func TestJalKnownEncoding(t *testing.T) {
	// jal ra, 0
	got := Jal(RA, 0)
	want := uint32(0x000000EF)
	if got != want {
		t.Fatalf("Jal(RA, 0) = %#08x, want %#08x", got, want)
	}
}

func TestJalrRetEncoding(t *testing.T) {
	// jalr zero, ra, 0 -- the canonical "ret" pseudo-instruction.
	got := Jalr(Zero, RA, 0)
	want := uint32(0x00008067)
	if got != want {
		t.Fatalf("Jalr(Zero, RA, 0) = %#08x, want %#08x", got, want)
	}
}

func TestLuiKnownEncoding(t *testing.T) {
	got := Lui(A0, 0x12345000)
	want := uint32(0x12345537)
	if got != want {
		t.Fatalf("Lui(A0, 0x12345000) = %#08x, want %#08x", got, want)
	}
}

func TestBranchOffsetKeepsOpcode(t *testing.T) {
	for _, off := range []int32{-4096, -16, 0, 16, 4092} {
		word := Beq(T0, T1, off)
		// bits [6:0] must stay the branch opcode regardless of offset.
		if word&0x7F != 0x63 {
			t.Fatalf("Beq(%d) lost its opcode field: %#08x", off, word)
		}
	}
}

func TestJumpOffsetKeepsOpcodeAndRd(t *testing.T) {
	for _, off := range []int32{-1048576, -4, 0, 4, 1048572} {
		word := Jal(RA, off)
		if word&0x7F != 0x6F {
			t.Fatalf("Jal(%d) lost its opcode field: %#08x", off, word)
		}
		if (word>>7)&0x1F != uint32(RA) {
			t.Fatalf("Jal(%d) lost its rd field: %#08x", off, word)
		}
	}
}

func TestRegisterFieldsDoNotOverflow(t *testing.T) {
	word := Add(T6, T6, T6)
	rd := (word >> 7) & 0x1F
	rs1 := (word >> 15) & 0x1F
	rs2 := (word >> 20) & 0x1F
	if rd != uint32(T6) || rs1 != uint32(T6) || rs2 != uint32(T6) {
		t.Fatalf("Add(T6,T6,T6) field mismatch: rd=%d rs1=%d rs2=%d", rd, rs1, rs2)
	}
}
