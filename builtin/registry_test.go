package builtin

import (
	"testing"

	"github.com/lightplayer/lightplayer/types"
)

func TestRegisterAssignsDenseIDs(t *testing.T) {
	r := NewRegistry()
	id0 := r.Register(Entry{Name: "foo", Sig: Signature{Result: types.Float}})
	id1 := r.Register(Entry{Name: "bar", Sig: Signature{Result: types.Float}})

	if id0 != 0 || id1 != 1 {
		t.Errorf("got IDs %d, %d, want 0, 1", id0, id1)
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestLookupByArity(t *testing.T) {
	r := NewRegistry()
	r.Register(Entry{
		Name: "mix",
		Sig:  Signature{Params: []*types.Type{types.Float, types.Float, types.Float}, Result: types.Float},
	})

	if _, ok := r.Lookup("mix", 3); !ok {
		t.Error("expected Lookup(mix, 3) to find the registered overload")
	}
	if _, ok := r.Lookup("mix", 2); ok {
		t.Error("expected Lookup(mix, 2) to fail: no such overload registered")
	}
	if _, ok := r.Lookup("nope", 1); ok {
		t.Error("expected Lookup of an unregistered name to fail")
	}
}

func TestHas(t *testing.T) {
	r := NewRegistry()
	r.Register(Entry{Name: "sin", Sig: Signature{Params: []*types.Type{types.Float}, Result: types.Float}})

	if !r.Has("sin") {
		t.Error("expected Has(sin) to be true")
	}
	if r.Has("cos") {
		t.Error("expected Has(cos) to be false")
	}
}

func TestStandardLibraryCoversCoreBuiltins(t *testing.T) {
	r := NewRegistry()
	RegisterStandardLibrary(r)

	for _, name := range []string{"sin", "cos", "sqrt", "mix", "clamp", "length", "normalize", "lpfx_snoise3", "lpfx_hsv2rgb"} {
		if !r.Has(name) {
			t.Errorf("expected standard library to register %q", name)
		}
	}

	sin, ok := r.Lookup("sin", 1)
	if !ok {
		t.Fatal("expected sin/1 to resolve")
	}
	if sin.Q32Name != "__lp_q32_sin" {
		t.Errorf("sin.Q32Name = %q, want __lp_q32_sin", sin.Q32Name)
	}
	if sin.Resolution != ResolveELFSymbol {
		t.Errorf("sin.Resolution = %v, want ResolveELFSymbol", sin.Resolution)
	}
}

func TestQ32HelpersRegistered(t *testing.T) {
	r := NewRegistry()
	RegisterStandardLibrary(r)

	for _, name := range []string{"__lp_q32_mul", "__lp_q32_div"} {
		e, ok := r.Lookup(name, 2)
		if !ok {
			t.Fatalf("expected %q/2 to resolve", name)
		}
		if e.Sig.Result != types.Int {
			t.Errorf("%s.Sig.Result = %v, want int", name, e.Sig.Result)
		}
	}
}
