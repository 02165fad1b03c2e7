package types

import "testing"

func TestCalculateScalarsVectorsMatrices(t *testing.T) {
	c := NewLayoutCalculator()

	tests := []struct {
		typ   *Type
		name  string
		size  int
		align int
	}{
		{Bool, "bool", 4, 4},
		{Int, "int", 4, 4},
		{Float, "float", 4, 4},
		{Vec2, "vec2", 8, 4},
		{Vec3, "vec3", 12, 4},
		{Vec4, "vec4", 16, 4},
		{Mat2, "mat2", 16, 4},
		{Mat3, "mat3", 36, 4},
		{Mat4, "mat4", 64, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := c.Calculate(tt.typ)
			if info.Size != tt.size {
				t.Errorf("Size = %d, want %d", info.Size, tt.size)
			}
			if info.Align != tt.align {
				t.Errorf("Align = %d, want %d", info.Align, tt.align)
			}
		})
	}
}

func TestCalculateArray(t *testing.T) {
	c := NewLayoutCalculator()

	info := c.Calculate(NewArray(Float, 4))
	if info.Size != 16 {
		t.Errorf("Size = %d, want 16", info.Size)
	}
	if info.Align != 4 {
		t.Errorf("Align = %d, want 4", info.Align)
	}

	nested := c.Calculate(NewArray(Vec3, 2))
	if nested.Size != 24 {
		t.Errorf("Size = %d, want 24", nested.Size)
	}
}

func TestCalculateStruct(t *testing.T) {
	c := NewLayoutCalculator()

	light := NewStruct("Light", []Field{
		{Name: "pos", Type: Vec3},
		{Name: "intensity", Type: Float},
	})

	info := c.Calculate(light)
	if info.Size != 16 {
		t.Errorf("Size = %d, want 16", info.Size)
	}
	if info.Align != 4 {
		t.Errorf("Align = %d, want 4", info.Align)
	}
	if len(info.FieldOffs) != 2 || info.FieldOffs[0] != 0 || info.FieldOffs[1] != 12 {
		t.Errorf("FieldOffs = %v, want [0 12]", info.FieldOffs)
	}
}

func TestCalculateEmptyStruct(t *testing.T) {
	c := NewLayoutCalculator()
	info := c.Calculate(NewStruct("Empty", nil))
	if info.Size != 0 {
		t.Errorf("Size = %d, want 0", info.Size)
	}
}

func TestFieldOffset(t *testing.T) {
	c := NewLayoutCalculator()
	light := NewStruct("Light", []Field{
		{Name: "pos", Type: Vec3},
		{Name: "intensity", Type: Float},
	})
	c.Calculate(light)

	if got := c.FieldOffset(light, 1); got != 12 {
		t.Errorf("FieldOffset(light, 1) = %d, want 12", got)
	}
}

func TestCalculateCachesByPointer(t *testing.T) {
	c := NewLayoutCalculator()
	light := NewStruct("Light", []Field{{Name: "pos", Type: Vec3}})

	first := c.Calculate(light)
	second := c.Calculate(light)
	if first.Size != second.Size || first.Align != second.Align {
		t.Error("expected cached Calculate result to be stable across calls")
	}
}
