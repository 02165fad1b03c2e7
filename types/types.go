package types

import "fmt"

// Kind identifies a member of the GLSL type lattice (spec §3.1).
type Kind uint8

const (
	KindInvalid Kind = iota

	KindBool
	KindInt
	KindUint
	KindFloat

	KindVec2
	KindVec3
	KindVec4

	KindIVec2
	KindIVec3
	KindIVec4

	KindUVec2
	KindUVec3
	KindUVec4

	KindBVec2
	KindBVec3
	KindBVec4

	KindMat2
	KindMat3
	KindMat4

	KindArray
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindVec2:
		return "vec2"
	case KindVec3:
		return "vec3"
	case KindVec4:
		return "vec4"
	case KindIVec2:
		return "ivec2"
	case KindIVec3:
		return "ivec3"
	case KindIVec4:
		return "ivec4"
	case KindUVec2:
		return "uvec2"
	case KindUVec3:
		return "uvec3"
	case KindUVec4:
		return "uvec4"
	case KindBVec2:
		return "bvec2"
	case KindBVec3:
		return "bvec3"
	case KindBVec4:
		return "bvec4"
	case KindMat2:
		return "mat2"
	case KindMat3:
		return "mat3"
	case KindMat4:
		return "mat4"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	default:
		return "invalid"
	}
}

// IsScalar reports whether k is one of bool/int/uint/float.
func (k Kind) IsScalar() bool {
	return k == KindBool || k == KindInt || k == KindUint || k == KindFloat
}

// IsFloatVector reports whether k is a floating-point vector (vecN).
func (k Kind) IsFloatVector() bool {
	return k == KindVec2 || k == KindVec3 || k == KindVec4
}

// IsVector reports whether k is any vector kind (vec/ivec/uvec/bvec).
func (k Kind) IsVector() bool {
	switch k {
	case KindVec2, KindVec3, KindVec4,
		KindIVec2, KindIVec3, KindIVec4,
		KindUVec2, KindUVec3, KindUVec4,
		KindBVec2, KindBVec3, KindBVec4:
		return true
	}
	return false
}

// IsMatrix reports whether k is mat2/mat3/mat4.
func (k Kind) IsMatrix() bool {
	return k == KindMat2 || k == KindMat3 || k == KindMat4
}

// VectorLen returns the component count of a vector kind, or 0.
func (k Kind) VectorLen() int {
	switch k {
	case KindVec2, KindIVec2, KindUVec2, KindBVec2:
		return 2
	case KindVec3, KindIVec3, KindUVec3, KindBVec3:
		return 3
	case KindVec4, KindIVec4, KindUVec4, KindBVec4:
		return 4
	}
	return 0
}

// MatrixDim returns the square dimension of a matrix kind, or 0.
func (k Kind) MatrixDim() int {
	switch k {
	case KindMat2:
		return 2
	case KindMat3:
		return 3
	case KindMat4:
		return 4
	}
	return 0
}

// ComponentKind returns the scalar kind underlying a vector kind.
func (k Kind) ComponentKind() Kind {
	switch k {
	case KindVec2, KindVec3, KindVec4:
		return KindFloat
	case KindIVec2, KindIVec3, KindIVec4:
		return KindInt
	case KindUVec2, KindUVec3, KindUVec4:
		return KindUint
	case KindBVec2, KindBVec3, KindBVec4:
		return KindBool
	}
	return KindInvalid
}

// Field is one ordered, named member of a struct type.
type Field struct {
	Name string
	Type *Type
}

// Type is a single member of the type lattice. Scalars, vectors, and
// matrices are described entirely by Kind. Arrays additionally carry an
// Elem type and Len; structs carry an ordered Fields list and a Name.
//
// Struct and array Types are interned through an Arena (arena.go) once
// semantic analysis has resolved them, so that two Type values describing
// the same struct compare equal by ID (see Arena.Intern).
type Type struct {
	Elem   *Type
	Name   string
	Fields []Field
	Kind   Kind
	Len    int
	id     ID
}

// ID is the Arena-assigned identifier of an interned struct or array
// Type. Scalar, vector, and matrix Types are never interned (there is
// only ever one `float` or one `vec3`) and always report ID 0.
type ID uint32

// Scalar/vector/matrix singletons. These are safe to compare by pointer
// because each Kind has exactly one package-level *Type, declared
// below.
var (
	Invalid = &Type{Kind: KindInvalid}

	Bool  = &Type{Kind: KindBool}
	Int   = &Type{Kind: KindInt}
	Uint  = &Type{Kind: KindUint}
	Float = &Type{Kind: KindFloat}

	Vec2 = &Type{Kind: KindVec2}
	Vec3 = &Type{Kind: KindVec3}
	Vec4 = &Type{Kind: KindVec4}

	IVec2 = &Type{Kind: KindIVec2}
	IVec3 = &Type{Kind: KindIVec3}
	IVec4 = &Type{Kind: KindIVec4}

	UVec2 = &Type{Kind: KindUVec2}
	UVec3 = &Type{Kind: KindUVec3}
	UVec4 = &Type{Kind: KindUVec4}

	BVec2 = &Type{Kind: KindBVec2}
	BVec3 = &Type{Kind: KindBVec3}
	BVec4 = &Type{Kind: KindBVec4}

	Mat2 = &Type{Kind: KindMat2}
	Mat3 = &Type{Kind: KindMat3}
	Mat4 = &Type{Kind: KindMat4}
)

// NewArray returns an (uninterned) array-of-elem type with the given
// length. Call Arena.Intern to obtain the canonical, comparable instance.
func NewArray(elem *Type, length int) *Type {
	return &Type{Kind: KindArray, Elem: elem, Len: length}
}

// NewStruct returns an (uninterned) struct type with the given ordered
// fields. Call Arena.Intern to obtain the canonical, comparable instance.
func NewStruct(name string, fields []Field) *Type {
	return &Type{Kind: KindStruct, Name: name, Fields: fields}
}

// ID returns the Arena-assigned identifier of an interned struct or array
// type, or 0 if the type was never interned.
func (t *Type) ID() ID { return t.id }

// Equal reports structural equality: same kind, and (for arrays/structs)
// same shape all the way down. Prefer comparing *Type pointers directly
// once types have been interned through an Arena; Equal is for checking
// an as-yet-uninterned Type against the lattice.
func (t *Type) Equal(other *Type) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil || t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case KindArray:
		return t.Len == other.Len && t.Elem.Equal(other.Elem)
	case KindStruct:
		if t.Name != other.Name || len(t.Fields) != len(other.Fields) {
			return false
		}
		for i, f := range t.Fields {
			if f.Name != other.Fields[i].Name || !f.Type.Equal(other.Fields[i].Type) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders a human-readable type name, e.g. "float[4]" or
// "struct Light".
func (t *Type) String() string {
	switch t.Kind {
	case KindArray:
		return fmt.Sprintf("%s[%d]", t.Elem, t.Len)
	case KindStruct:
		if t.Name != "" {
			return "struct " + t.Name
		}
		return "anonymous struct"
	default:
		return t.Kind.String()
	}
}
