package sema

import (
	"github.com/lightplayer/lightplayer/ast"
	"github.com/lightplayer/lightplayer/types"
)

// ConstValue is a folded compile-time constant (spec §4.1 pass 2).
// Exactly one field is meaningful, selected by Type.Kind.
type ConstValue struct {
	Type  *types.Type
	Int   int64
	Float float64
	Bool  bool
}

// Module is the frontend's output: a typed module the rest of the
// pipeline consumes unconditionally (spec §3.2, §4.1).
type Module struct {
	Consts  []*Const
	Structs []*types.Type
	Funcs   []*Func
}

// Const is a resolved global constant declaration.
type Const struct {
	Name  string
	Value ConstValue
}

// Func is a resolved function: a typed signature and, unless it is a
// forward-declared header, a typed body.
type Func struct {
	Name       string
	Params     []ParamInfo
	ReturnType *types.Type // nil for void
	Body       *Block      // nil for a header-only declaration
	Exported   bool
}

// ParamInfo is one resolved function parameter.
type ParamInfo struct {
	Name      string
	Type      *types.Type
	Qualifier paramQualifier
}

// Stmt is a typed statement node.
type Stmt interface {
	stmtNode()
	Span() ast.Span
}

// Block is an ordered sequence of typed statements forming a scope.
type Block struct {
	SpanVal ast.Span
	Stmts   []Stmt
}

func (n *Block) stmtNode()      {}
func (n *Block) Span() ast.Span { return n.SpanVal }

// LocalDecl declares a typed local, with an optional initializer
// already checked against Type.
type LocalDecl struct {
	SpanVal ast.Span
	Name    string
	Type    *types.Type
	Init    Expr
	Const   bool
	// SlotRequired marks locals package lower must place in a stack
	// slot rather than carry as a bare SSA value (spec §4.2): set for
	// every array/struct/matrix local, regardless of whether its
	// address is later taken.
	SlotRequired bool
}

func (n *LocalDecl) stmtNode()      {}
func (n *LocalDecl) Span() ast.Span { return n.SpanVal }

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	SpanVal ast.Span
	X       Expr
}

func (n *ExprStmt) stmtNode()      {}
func (n *ExprStmt) Span() ast.Span { return n.SpanVal }

// If is a typed conditional. Else is nil when absent.
type If struct {
	SpanVal ast.Span
	Cond    Expr
	Then    Stmt
	Else    Stmt
}

func (n *If) stmtNode()      {}
func (n *If) Span() ast.Span { return n.SpanVal }

// For is a typed C-style loop.
type For struct {
	SpanVal ast.Span
	Init    Stmt
	Cond    Expr
	Post    Stmt
	Body    Stmt
}

func (n *For) stmtNode()      {}
func (n *For) Span() ast.Span { return n.SpanVal }

// While is a typed pre-test loop.
type While struct {
	SpanVal ast.Span
	Cond    Expr
	Body    Stmt
}

func (n *While) stmtNode()      {}
func (n *While) Span() ast.Span { return n.SpanVal }

// DoWhile is a typed post-test loop.
type DoWhile struct {
	SpanVal ast.Span
	Body    Stmt
	Cond    Expr
}

func (n *DoWhile) stmtNode()      {}
func (n *DoWhile) Span() ast.Span { return n.SpanVal }

// Break exits the nearest enclosing loop.
type Break struct{ SpanVal ast.Span }

func (n *Break) stmtNode()      {}
func (n *Break) Span() ast.Span { return n.SpanVal }

// Continue jumps to the nearest enclosing loop's continuation point.
type Continue struct{ SpanVal ast.Span }

func (n *Continue) stmtNode()      {}
func (n *Continue) Span() ast.Span { return n.SpanVal }

// Return returns from the enclosing function. Value is nil for void.
type Return struct {
	SpanVal ast.Span
	Value   Expr
}

func (n *Return) stmtNode()      {}
func (n *Return) Span() ast.Span { return n.SpanVal }

// Expr is a typed expression node: every Expr carries exactly one
// concrete type (spec §3.1 invariant).
type Expr interface {
	exprNode()
	Span() ast.Span
	Type() *types.Type
}

// Literal is a typed, possibly-folded constant value.
type Literal struct {
	SpanVal ast.Span
	Value   ConstValue
}

func (n *Literal) exprNode()         {}
func (n *Literal) Span() ast.Span    { return n.SpanVal }
func (n *Literal) Type() *types.Type { return n.Value.Type }

// Ident references a resolved local, parameter, or global constant.
type Ident struct {
	SpanVal ast.Span
	Name    string
	Ty      *types.Type
	// IsOutParam marks a reference to an out/inout parameter; package
	// lower must treat it as a pointer dereference rather than a plain
	// SSA value (spec §4.2).
	IsOutParam bool
}

func (n *Ident) exprNode()         {}
func (n *Ident) Span() ast.Span    { return n.SpanVal }
func (n *Ident) Type() *types.Type { return n.Ty }

// Member is resolved struct field access.
type Member struct {
	SpanVal   ast.Span
	Base      Expr
	FieldName string
	FieldIdx  int
	Ty        *types.Type
}

func (n *Member) exprNode()         {}
func (n *Member) Span() ast.Span    { return n.SpanVal }
func (n *Member) Type() *types.Type { return n.Ty }

// Swizzle is resolved vector component access.
type Swizzle struct {
	SpanVal    ast.Span
	Base       Expr
	Components []int // component indices into Base, e.g. "zy" -> [2,1]
	Ty         *types.Type
}

func (n *Swizzle) exprNode()         {}
func (n *Swizzle) Span() ast.Span    { return n.SpanVal }
func (n *Swizzle) Type() *types.Type { return n.Ty }

// Index is resolved array indexing.
type Index struct {
	SpanVal ast.Span
	Base    Expr
	Idx     Expr
	Ty      *types.Type
}

func (n *Index) exprNode()         {}
func (n *Index) Span() ast.Span    { return n.SpanVal }
func (n *Index) Type() *types.Type { return n.Ty }

// CalleeKind distinguishes the two call-resolution outcomes spec §4.1
// pass 3 names: a user function (exact-name lookup) or a builtin
// (name+arity lookup).
type CalleeKind int

const (
	CalleeUserFunc CalleeKind = iota
	CalleeBuiltin
)

// Call is a resolved function or builtin call.
type Call struct {
	SpanVal ast.Span
	Kind    CalleeKind
	Name    string
	Args    []Expr
	Ty      *types.Type // nil for a void user-function call
	// BuiltinID is meaningful only when Kind == CalleeBuiltin; it
	// identifies the registry.Entry the call resolved to.
	BuiltinID int
}

func (n *Call) exprNode()         {}
func (n *Call) Span() ast.Span    { return n.SpanVal }
func (n *Call) Type() *types.Type { return n.Ty }

// Constructor builds a vector, matrix, array, or struct from argument
// expressions already checked against Ty's shape.
type Constructor struct {
	SpanVal ast.Span
	Ty      *types.Type
	Args    []Expr
}

func (n *Constructor) exprNode()         {}
func (n *Constructor) Span() ast.Span    { return n.SpanVal }
func (n *Constructor) Type() *types.Type { return n.Ty }

// UnaryOp mirrors ast.UnaryOp, resolved to the operand's type.
type UnaryOp int

const (
	UnNeg UnaryOp = iota
	UnNot
	UnPreInc
	UnPreDec
)

// Unary is a typed unary operator application.
type Unary struct {
	SpanVal ast.Span
	Op      UnaryOp
	X       Expr
	Ty      *types.Type
}

func (n *Unary) exprNode()         {}
func (n *Unary) Span() ast.Span    { return n.SpanVal }
func (n *Unary) Type() *types.Type { return n.Ty }

// BinOp mirrors ast.BinOp, resolved to its result type.
type BinOp int

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinAnd
	BinOr
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
	BinAssign
	BinAddAssign
	BinSubAssign
	BinMulAssign
	BinDivAssign
)

// IsAssignment reports whether op mutates its left operand.
func (op BinOp) IsAssignment() bool {
	return op >= BinAssign
}

// Binary is a typed binary operator application, including assignment
// forms (Left must be an lvalue; checked during typing, not here).
type Binary struct {
	SpanVal ast.Span
	Op      BinOp
	Left    Expr
	Right   Expr
	Ty      *types.Type
}

func (n *Binary) exprNode()         {}
func (n *Binary) Span() ast.Span    { return n.SpanVal }
func (n *Binary) Type() *types.Type { return n.Ty }
