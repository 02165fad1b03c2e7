package types

import "testing"

func TestArenaInternDeduplicates(t *testing.T) {
	a := NewArena()

	t1 := a.Intern(NewArray(Float, 4))
	t2 := a.Intern(NewArray(Float, 4))
	if t1 != t2 {
		t.Error("expected Intern to return the same *Type for identical array shapes")
	}
	if t1.ID() == 0 {
		t.Error("expected interned array to be assigned a nonzero ID")
	}

	t3 := a.Intern(NewArray(Float, 3))
	if t1 == t3 {
		t.Error("expected arrays of different length to intern to distinct Types")
	}
	if t1.ID() == t3.ID() {
		t.Error("expected distinct shapes to be assigned distinct IDs")
	}
}

func TestArenaInternStructs(t *testing.T) {
	a := NewArena()

	fields := []Field{{Name: "pos", Type: Vec3}, {Name: "intensity", Type: Float}}
	s1 := a.Intern(NewStruct("Light", fields))
	s2 := a.Intern(NewStruct("Light", []Field{{Name: "pos", Type: Vec3}, {Name: "intensity", Type: Float}}))

	if s1 != s2 {
		t.Error("expected Intern to deduplicate structurally identical structs")
	}

	other := a.Intern(NewStruct("Light", []Field{{Name: "pos", Type: Vec3}}))
	if s1 == other {
		t.Error("expected structs with different fields to intern to distinct Types")
	}
}

func TestArenaInternPassesScalarsThrough(t *testing.T) {
	a := NewArena()
	if got := a.Intern(Float); got != Float {
		t.Error("expected Intern to pass scalar singletons through unchanged")
	}
	if Float.ID() != 0 {
		t.Error("expected scalar singleton to never be assigned an ID")
	}
}

func TestArenaLookup(t *testing.T) {
	a := NewArena()
	arr := a.Intern(NewArray(Float, 4))

	if got := a.Lookup(arr.ID()); got != arr {
		t.Errorf("Lookup(%d) = %v, want %v", arr.ID(), got, arr)
	}
	if got := a.Lookup(0); got != nil {
		t.Errorf("Lookup(0) = %v, want nil", got)
	}
	if got := a.Lookup(ID(999)); got != nil {
		t.Errorf("Lookup(999) = %v, want nil", got)
	}
}

func TestArenaStructs(t *testing.T) {
	a := NewArena()
	a.Intern(NewArray(Float, 4))
	light := a.Intern(NewStruct("Light", []Field{{Name: "intensity", Type: Float}}))
	camera := a.Intern(NewStruct("Camera", []Field{{Name: "fov", Type: Float}}))

	structs := a.Structs()
	if len(structs) != 2 {
		t.Fatalf("Structs() returned %d types, want 2", len(structs))
	}
	if structs[0] != light || structs[1] != camera {
		t.Error("Structs() did not preserve interning order or include only structs")
	}
}
