package ssa

import "testing"

// buildDiamond builds:
//
//	entry: c = iconst 1; brif c, then, else
//	then:  t = iconst 2; jump join(t)
//	else:  jump join(c)
//	join(p): return p
func buildDiamond(t *testing.T) *Function {
	fn := NewFunction("diamond", Signature{Result: TypeI32}, LinkageExported)
	entry := fn.NewBlock()
	thenB := fn.NewBlock()
	elseB := fn.NewBlock()
	join := fn.NewBlock()

	p := fn.NewValue(TypeI32)
	join.Params = []Param{{Value: p, Type: TypeI32}}

	b := NewBuilder(fn, entry)
	c := b.IConst(1)
	b.Brif(c, thenB.ID, nil, elseB.ID, nil)

	b.SetBlock(thenB)
	tv := b.IConst(2)
	b.Jump(join.ID, tv)

	b.SetBlock(elseB)
	b.Jump(join.ID, c)

	b.SetBlock(join)
	b.Return(p)

	return fn
}

func TestVerifierAcceptsWellFormedFunction(t *testing.T) {
	fn := buildDiamond(t)
	if err := NewVerifier("test").Verify(fn); err != nil {
		t.Fatalf("Verify() = %v, want nil", err)
	}
}

func TestVerifierRejectsUndominatedUse(t *testing.T) {
	fn := NewFunction("bad", Signature{Result: TypeI32}, LinkageExported)
	entry := fn.NewBlock()
	other := fn.NewBlock()

	b := NewBuilder(fn, other)
	v := b.IConst(42) // defined in `other`

	b.SetBlock(entry)
	b.Return(v) // used in `entry`, which does not follow `other`

	if err := NewVerifier("test").Verify(fn); err == nil {
		t.Fatal("Verify() = nil, want a dominance violation")
	}
}

func TestVerifierRejectsBlockParamMismatch(t *testing.T) {
	fn := NewFunction("bad", Signature{Result: TypeI32}, LinkageExported)
	entry := fn.NewBlock()
	join := fn.NewBlock()

	p := fn.NewValue(TypeI32)
	join.Params = []Param{{Value: p, Type: TypeI32}}

	b := NewBuilder(fn, entry)
	f := b.F32Const(1.0) // wrong type for join's i32 parameter
	b.Jump(join.ID, f)

	b.SetBlock(join)
	b.Return(p)

	if err := NewVerifier("test").Verify(fn); err == nil {
		t.Fatal("Verify() = nil, want a block-parameter type mismatch")
	}
}

func TestVerifierRejectsBlockParamArityMismatch(t *testing.T) {
	fn := NewFunction("bad", Signature{}, LinkageExported)
	entry := fn.NewBlock()
	join := fn.NewBlock()

	p := fn.NewValue(TypeI32)
	join.Params = []Param{{Value: p, Type: TypeI32}}

	b := NewBuilder(fn, entry)
	b.Jump(join.ID) // missing the one argument join expects

	b.SetBlock(join)
	b.Return()

	if err := NewVerifier("test").Verify(fn); err == nil {
		t.Fatal("Verify() = nil, want an arity mismatch")
	}
}

func TestVerifierRejectsNonEntryCrossBlockConstant(t *testing.T) {
	fn := NewFunction("bad", Signature{Result: TypeI32}, LinkageExported)
	entry := fn.NewBlock()
	thenB := fn.NewBlock()
	elseB := fn.NewBlock()
	join := fn.NewBlock()

	p := fn.NewValue(TypeI32)
	join.Params = []Param{{Value: p, Type: TypeI32}}

	b := NewBuilder(fn, entry)
	cond := b.IConst(0)

	b.SetBlock(thenB)
	// A constant defined in a non-entry block but used both here and in elseB.
	shared := b.IConst(7)
	b.Jump(join.ID, shared)

	b.SetBlock(elseB)
	b.Jump(join.ID, shared) // second use, different block: violates constant dominance

	b.SetBlock(entry)
	b.Brif(cond, thenB.ID, nil, elseB.ID, nil)

	b.SetBlock(join)
	b.Return(p)

	if err := NewVerifier("test").Verify(fn); err == nil {
		t.Fatal("Verify() = nil, want a constant-dominance violation")
	}
}

func TestCheckNoFloatRejectsResidualFloat(t *testing.T) {
	fn := NewFunction("hasFloat", Signature{Result: TypeF32}, LinkageExported)
	entry := fn.NewBlock()
	b := NewBuilder(fn, entry)
	f := b.F32Const(1.5)
	b.Return(f)

	if err := CheckNoFloat(fn); err == nil {
		t.Fatal("CheckNoFloat() = nil, want a violation for residual f32")
	}
}

func TestCheckNoFloatAcceptsAllInteger(t *testing.T) {
	fn := NewFunction("allInt", Signature{Result: TypeI32}, LinkageExported)
	entry := fn.NewBlock()
	b := NewBuilder(fn, entry)
	v := b.IConst(98304)
	b.Return(v)

	if err := CheckNoFloat(fn); err != nil {
		t.Fatalf("CheckNoFloat() = %v, want nil", err)
	}
}
