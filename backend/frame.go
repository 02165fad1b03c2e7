package backend

import "github.com/lightplayer/lightplayer/ssa"

// frame describes one function's activation record. Every SSA value,
// regardless of its logical Type, is homed in a dedicated 4-byte word
// of the frame; this core does no register allocation; it is a
// baseline "every value lives in memory, registers are scratch"
// codegen in the spirit of an unoptimizing JIT's first tier. Declared
// stack slots (arrays, structs, matrices, out-param backing) get
// their own area sized by StackSlot.Size/Align.
type frame struct {
	values map[ssa.ValueID]int32 // offset from s0, negative
	slots  map[ssa.SlotID]int32  // offset from s0, negative
	size   int32                 // total frame size, 16-byte aligned
}

// collectValues walks fn's blocks in order and returns every
// value-defining ValueID in first-encounter order: block parameters,
// then each instruction's Result. The order only has to be stable
// across repeated compiles of the same function, not semantically
// meaningful, so a program-order walk is used instead of ranging over
// the ValueType map (whose iteration order Go leaves undefined).
func collectValues(fn *ssa.Function) []ssa.ValueID {
	seen := make(map[ssa.ValueID]bool)
	var order []ssa.ValueID
	add := func(id ssa.ValueID) {
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	for _, b := range fn.Blocks {
		for _, p := range b.Params {
			add(p.Value)
		}
		for _, instr := range b.Instrs {
			if instr.Op == ssa.OpTrapnz {
				// Trapnz's Result, if any, is never consumed by lower;
				// it does not need a home.
				continue
			}
			if instr.Op == ssa.OpCall && instr.ResultTy == ssa.TypeInvalid {
				// Void call: Result is an unused zero value, not a
				// real SSA definition.
				continue
			}
			if instr.Op.DefinesValue() {
				add(instr.Result)
			}
		}
	}
	return order
}

func align16(n int32) int32 {
	if n%16 == 0 {
		return n
	}
	return n + (16 - n%16)
}

// computeFrame assigns every SSA value and declared stack slot of fn a
// home offset relative to s0. Layout: [ra][saved s0][values...][slots...].
func computeFrame(fn *ssa.Function) *frame {
	fr := &frame{values: make(map[ssa.ValueID]int32), slots: make(map[ssa.SlotID]int32)}

	size := int32(8) // ra, saved s0
	for _, id := range collectValues(fn) {
		size += 4
		fr.values[id] = -size
	}

	var slotIDs []ssa.SlotID
	for id := range fn.Slots {
		slotIDs = append(slotIDs, id)
	}
	for i := 0; i < len(slotIDs); i++ {
		for j := i + 1; j < len(slotIDs); j++ {
			if slotIDs[j] < slotIDs[i] {
				slotIDs[i], slotIDs[j] = slotIDs[j], slotIDs[i]
			}
		}
	}
	for _, id := range slotIDs {
		slot := fn.Slots[id]
		align := int32(slot.Align)
		if align < 1 {
			align = 1
		}
		if rem := size % align; rem != 0 {
			size += align - rem
		}
		size += int32(slot.Size)
		fr.slots[id] = -size
	}

	fr.size = align16(size)
	return fr
}
