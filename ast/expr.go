package ast

// Expr is a GLSL expression node: literals, identifier references,
// member access, swizzles, array indexing, calls, operators, and
// constructors (spec §3.2).
type Expr interface {
	exprNode()
	Span() Span
}

// BinOp identifies a binary arithmetic, logical, comparison, or
// assignment operator.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd // logical &&
	OpOr  // logical ||
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAssign
	OpAddAssign
	OpSubAssign
	OpMulAssign
	OpDivAssign
)

// UnaryOp identifies a unary prefix operator.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
	OpPreInc
	OpPreDec
)

// LitKind distinguishes the literal forms the GLSL subset allows.
type LitKind int

const (
	LitInt LitKind = iota
	LitUint
	LitFloat
	LitBool
)

// LiteralExpr is a literal constant as written in source.
type LiteralExpr struct {
	SpanVal Span
	Kind    LitKind
	Int     int64
	Float   float64
	Bool    bool
}

func (n *LiteralExpr) exprNode()  {}
func (n *LiteralExpr) Span() Span { return n.SpanVal }

// IdentExpr references a variable, parameter, or const by name.
type IdentExpr struct {
	SpanVal Span
	Name    string
}

func (n *IdentExpr) exprNode()  {}
func (n *IdentExpr) Span() Span { return n.SpanVal }

// MemberExpr is struct field access, `base.Field`.
type MemberExpr struct {
	SpanVal Span
	Base    Expr
	Field   string
}

func (n *MemberExpr) exprNode()  {}
func (n *MemberExpr) Span() Span { return n.SpanVal }

// SwizzleExpr is vector component access/permutation, `base.xyz`.
// Components is the literal swizzle string, e.g. "xyz", "rgba", "xx".
type SwizzleExpr struct {
	SpanVal    Span
	Base       Expr
	Components string
}

func (n *SwizzleExpr) exprNode()  {}
func (n *SwizzleExpr) Span() Span { return n.SpanVal }

// IndexExpr is array indexing, `base[Index]`.
type IndexExpr struct {
	SpanVal Span
	Base    Expr
	Index   Expr
}

func (n *IndexExpr) exprNode()  {}
func (n *IndexExpr) Span() Span { return n.SpanVal }

// CallExpr invokes a user function or builtin by name with ordered
// arguments. Name resolution (user function vs. builtin, and which
// arity overload) happens in package sema, not here.
type CallExpr struct {
	SpanVal Span
	Callee  string
	Args    []Expr
}

func (n *CallExpr) exprNode()  {}
func (n *CallExpr) Span() Span { return n.SpanVal }

// ConstructorExpr builds a vector, matrix, array, or struct value from
// its component expressions, e.g. `vec3(1.0, 0.0, z)` or
// `int[3](10, 20, 30)`.
type ConstructorExpr struct {
	SpanVal Span
	Type    TypeSpec
	Args    []Expr
}

func (n *ConstructorExpr) exprNode()  {}
func (n *ConstructorExpr) Span() Span { return n.SpanVal }

// UnaryExpr applies a prefix operator to Operand.
type UnaryExpr struct {
	SpanVal Span
	Op      UnaryOp
	Operand Expr
}

func (n *UnaryExpr) exprNode()  {}
func (n *UnaryExpr) Span() Span { return n.SpanVal }

// BinaryExpr applies a binary operator, including assignment forms
// (the left operand must be an lvalue in that case; sema enforces it).
type BinaryExpr struct {
	SpanVal Span
	Op      BinOp
	Left    Expr
	Right   Expr
}

func (n *BinaryExpr) exprNode()  {}
func (n *BinaryExpr) Span() Span { return n.SpanVal }
