package ast

// ParamQualifier identifies a function parameter's passing convention
// (spec §3.1): in (copy-in, the default), out (copy-out), inout
// (copy-in/copy-out), or const (in, and not assignable in the body).
type ParamQualifier int

const (
	QualifierIn ParamQualifier = iota
	QualifierOut
	QualifierInout
	QualifierConst
)

// Param is one function parameter.
type Param struct {
	SpanVal   Span
	Name      string
	Type      TypeSpec
	Qualifier ParamQualifier
}

func (p Param) Span() Span { return p.SpanVal }

// StructField is one ordered, named member of a struct declaration.
type StructField struct {
	SpanVal Span
	Name    string
	Type    TypeSpec
}

func (f StructField) Span() Span { return f.SpanVal }

// StructDecl declares a named struct type (spec §3.2).
type StructDecl struct {
	SpanVal Span
	Name    string
	Fields  []StructField
}

func (d *StructDecl) Span() Span { return d.SpanVal }

// ConstDecl declares a global constant. Init must be a compile-time
// constant expression (spec §3.2, §4.1 pass 2).
type ConstDecl struct {
	SpanVal Span
	Name    string
	Type    TypeSpec
	Init    Expr
}

func (d *ConstDecl) Span() Span { return d.SpanVal }

// FuncDecl declares a function. ReturnType is nil for a void function.
// Body is nil for a forward-declared header (spec §4.1 pass 1: "forward
// references allowed only for functions, two-pass: headers first").
type FuncDecl struct {
	SpanVal    Span
	Name       string
	Params     []Param
	ReturnType TypeSpec
	Body       *BlockStmt
}

func (d *FuncDecl) Span() Span { return d.SpanVal }

// Module is the root of an ingested shader's syntax tree: global
// constants, struct definitions, and function declarations, each in
// source order (spec §3.2).
type Module struct {
	Consts  []*ConstDecl
	Structs []*StructDecl
	Funcs   []*FuncDecl
}
