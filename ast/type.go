package ast

// TypeSpec is a type as written in source: a scalar name, a vector with
// its component count, a matrix with its dimension, an array with a
// size expression (or unsized, for a parameter), or a struct referenced
// by name (spec §6a).
type TypeSpec interface {
	typeSpecNode()
	Span() Span
}

// ScalarTypeSpec names one of bool/int/uint/float.
type ScalarTypeSpec struct {
	SpanVal Span
	Name    string
}

func (n *ScalarTypeSpec) typeSpecNode() {}
func (n *ScalarTypeSpec) Span() Span    { return n.SpanVal }

// VectorTypeSpec names a vecN/ivecN/uvecN/bvecN.
type VectorTypeSpec struct {
	SpanVal Span
	Name    string
	Len     int
}

func (n *VectorTypeSpec) typeSpecNode() {}
func (n *VectorTypeSpec) Span() Span    { return n.SpanVal }

// MatrixTypeSpec names a matN.
type MatrixTypeSpec struct {
	SpanVal Span
	Name    string
	Dim     int
}

func (n *MatrixTypeSpec) typeSpecNode() {}
func (n *MatrixTypeSpec) Span() Span    { return n.SpanVal }

// ArrayTypeSpec names an array of Elem. Size is nil for an unsized
// array (only valid in a parameter's type position); otherwise Size is
// the constant-expression the frontend must fold to a positive length.
type ArrayTypeSpec struct {
	SpanVal Span
	Elem    TypeSpec
	Size    Expr
}

func (n *ArrayTypeSpec) typeSpecNode() {}
func (n *ArrayTypeSpec) Span() Span    { return n.SpanVal }

// StructTypeSpec references a struct type by name.
type StructTypeSpec struct {
	SpanVal Span
	Name    string
}

func (n *StructTypeSpec) typeSpecNode() {}
func (n *StructTypeSpec) Span() Span    { return n.SpanVal }
