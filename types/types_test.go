package types

import "testing"

func TestKindHelpers(t *testing.T) {
	if !KindFloat.IsScalar() || KindVec3.IsScalar() {
		t.Error("IsScalar misclassified float/vec3")
	}
	if !KindVec4.IsFloatVector() || KindIVec4.IsFloatVector() {
		t.Error("IsFloatVector misclassified vec4/ivec4")
	}
	if !KindUVec2.IsVector() || !KindBVec3.IsVector() || KindMat3.IsVector() {
		t.Error("IsVector misclassified uvec2/bvec3/mat3")
	}
	if !KindMat4.IsMatrix() || KindVec4.IsMatrix() {
		t.Error("IsMatrix misclassified mat4/vec4")
	}
	if got := KindVec3.VectorLen(); got != 3 {
		t.Errorf("VectorLen(vec3) = %d, want 3", got)
	}
	if got := KindMat2.MatrixDim(); got != 2 {
		t.Errorf("MatrixDim(mat2) = %d, want 2", got)
	}
	if got := KindIVec4.ComponentKind(); got != KindInt {
		t.Errorf("ComponentKind(ivec4) = %v, want %v", got, KindInt)
	}
}

func TestTypeEqual(t *testing.T) {
	a := NewArray(Float, 4)
	b := NewArray(Float, 4)
	c := NewArray(Float, 3)

	if !a.Equal(b) {
		t.Error("expected equal arrays of same elem/len to be Equal")
	}
	if a.Equal(c) {
		t.Error("expected arrays of different len not to be Equal")
	}

	s1 := NewStruct("Light", []Field{{Name: "pos", Type: Vec3}, {Name: "intensity", Type: Float}})
	s2 := NewStruct("Light", []Field{{Name: "pos", Type: Vec3}, {Name: "intensity", Type: Float}})
	s3 := NewStruct("Light", []Field{{Name: "pos", Type: Vec3}})

	if !s1.Equal(s2) {
		t.Error("expected structurally identical structs to be Equal")
	}
	if s1.Equal(s3) {
		t.Error("expected structs with different field counts not to be Equal")
	}
	if Vec3.Equal(Vec4) {
		t.Error("expected vec3 and vec4 not to be Equal")
	}
	if !Float.Equal(Float) {
		t.Error("expected a scalar singleton to Equal itself")
	}
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  *Type
		want string
	}{
		{Float, "float"},
		{Vec3, "vec3"},
		{Mat4, "mat4"},
		{NewArray(Float, 4), "float[4]"},
		{NewStruct("Light", nil), "struct Light"},
		{NewStruct("", nil), "anonymous struct"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
