package lower

import (
	"github.com/lightplayer/lightplayer/errors"
	"github.com/lightplayer/lightplayer/ssa"
	"github.com/lightplayer/lightplayer/types"
)

// place is a lowered local binding or intermediate expression value: it
// is either register-backed (a handful of SSA scalar values, one per
// vector component) or pointer-backed (the address of a stack slot —
// used for arrays, structs, matrices, and the incoming pointer of an
// out/inout parameter).
type place struct {
	ty      *types.Type
	pointer bool
	ptr     ssa.ValueID
	scalars []ssa.ValueID
}

func regPlace(ty *types.Type, scalars ...ssa.ValueID) place {
	return place{ty: ty, scalars: scalars}
}

func ptrPlace(ty *types.Type, ptr ssa.ValueID) place {
	return place{ty: ty, pointer: true, ptr: ptr}
}

// ssaType maps a frontend type to the SSA value type carrying one of
// its components (spec §3.3's four-way value-type lattice).
func ssaType(t *types.Type) ssa.Type {
	switch t.Kind {
	case types.KindBool:
		return ssa.TypeI8
	case types.KindFloat:
		return ssa.TypeF32
	default:
		if t.Kind.IsFloatVector() {
			return ssa.TypeF32
		}
		if t.Kind.IsVector() && t.Kind.ComponentKind() == types.KindBool {
			return ssa.TypeI8
		}
		return ssa.TypeI32
	}
}

// componentCount returns how many scalar SSA values a register-backed
// place of type t occupies: 1 for a scalar, N for a vecN.
func componentCount(t *types.Type) int {
	if t.Kind.IsVector() {
		return t.Kind.VectorLen()
	}
	return 1
}

// componentType returns the scalar type of one component of t.
func componentType(t *types.Type) *types.Type {
	switch t.Kind.ComponentKind() {
	case types.KindFloat:
		return types.Float
	case types.KindInt:
		return types.Int
	case types.KindUint:
		return types.Uint
	case types.KindBool:
		return types.Bool
	default:
		return t
	}
}

// load reads p into a register-backed place, emitting Load instructions
// for a pointer-backed one. Only scalar and vector types are loadable as
// a whole; calling load on a struct/array/matrix place is an internal
// compiler error — those are only ever consumed through member/index
// sub-places.
func (fl *fnLower) load(p place) place {
	if !p.pointer {
		return p
	}
	if p.ty.Kind == types.KindStruct || p.ty.Kind == types.KindArray || p.ty.Kind.IsMatrix() {
		panic(errors.Internal("lower", "attempted to load an aggregate place as a whole: "+p.ty.String()))
	}
	n := componentCount(p.ty)
	sty := ssaType(componentType(p.ty))
	scalars := make([]ssa.ValueID, n)
	for i := 0; i < n; i++ {
		scalars[i] = fl.b.Load(sty, p.ptr, int32(i*wordSize))
	}
	return regPlace(p.ty, scalars...)
}

// store writes vals into p: a plain env rebinding for a register-backed
// place, component-wise Store instructions for a pointer-backed one.
func (fl *fnLower) store(p place, vals []ssa.ValueID) place {
	if !p.pointer {
		return regPlace(p.ty, vals...)
	}
	for i, v := range vals {
		fl.b.Store(p.ptr, v, int32(i*wordSize))
	}
	return p
}

// addr returns a pointer to p's storage, spilling a register-backed
// place to a fresh stack slot the first time its address is taken
// (spec §4.2: "assigned a stack slot iff its address is taken").
func (fl *fnLower) addr(p place) ssa.ValueID {
	if p.pointer {
		return p.ptr
	}
	info := fl.layouts.Calculate(p.ty)
	slot := fl.fn.NewSlot(info.Size, info.Align)
	ptr := fl.entryBuilder().StackAddr(slot)
	fl.store(ptrPlace(p.ty, ptr), p.scalars)
	return ptr
}

const wordSize = 4
