package sema

import (
	"github.com/lightplayer/lightplayer/ast"
	"github.com/lightplayer/lightplayer/errors"
	"github.com/lightplayer/lightplayer/types"
)

// analyzeFunc runs passes 2-5 of spec §4.1 over one function body: type
// checking and constant folding, call resolution, qualifier checking,
// and control-flow validation.
func (a *Analyzer) analyzeFunc(fd *ast.FuncDecl) *Func {
	hdr := a.funcSigs[fd.Name]

	a.scopes.push(scopeFunction)
	defer a.scopes.pop()

	for _, p := range hdr.params {
		a.scopes.top().declare(symbol{name: p.Name, typ: p.Type, qualifier: p.Qualifier})
	}

	prevFunc, prevReturn := a.currentFunc, a.currentReturn
	a.currentFunc, a.currentReturn = fd.Name, hdr.result
	body := a.checkBlock(fd.Body)
	a.currentFunc, a.currentReturn = prevFunc, prevReturn

	if hdr.result != nil && !allPathsReturn(body) {
		a.errorf(errors.MissingReturn(fd.Span(), fd.Name))
	}

	return &Func{
		Name:       fd.Name,
		Params:     hdr.params,
		ReturnType: hdr.result,
		Body:       body,
		Exported:   true, // every user-visible function is a potential shader entry point
	}
}

func (a *Analyzer) checkBlock(b *ast.BlockStmt) *Block {
	a.scopes.push(scopeBlock)
	defer a.scopes.pop()

	out := &Block{SpanVal: b.Span()}
	for _, s := range b.Stmts {
		if cs := a.checkStmt(s); cs != nil {
			out.Stmts = append(out.Stmts, cs)
		}
	}
	return out
}

func (a *Analyzer) checkStmt(s ast.Stmt) Stmt {
	switch x := s.(type) {
	case *ast.BlockStmt:
		return a.checkBlock(x)

	case *ast.DeclStmt:
		return a.checkDecl(x)

	case *ast.ExprStmt:
		return &ExprStmt{SpanVal: x.Span(), X: a.checkExpr(x.X)}

	case *ast.IfStmt:
		cond := a.checkExpr(x.Cond)
		then := a.checkStmt(x.Then)
		var els Stmt
		if x.Else != nil {
			els = a.checkStmt(x.Else)
		}
		return &If{SpanVal: x.Span(), Cond: cond, Then: then, Else: els}

	case *ast.ForStmt:
		a.scopes.push(scopeBlock)
		defer a.scopes.pop()
		var init, post Stmt
		if x.Init != nil {
			init = a.checkStmt(x.Init)
		}
		var cond Expr
		if x.Cond != nil {
			cond = a.checkExpr(x.Cond)
		}
		if x.Post != nil {
			post = a.checkStmt(x.Post)
		}
		a.loops.enter()
		body := a.checkStmt(x.Body)
		a.loops.exit()
		return &For{SpanVal: x.Span(), Init: init, Cond: cond, Post: post, Body: body}

	case *ast.WhileStmt:
		cond := a.checkExpr(x.Cond)
		a.loops.enter()
		body := a.checkStmt(x.Body)
		a.loops.exit()
		return &While{SpanVal: x.Span(), Cond: cond, Body: body}

	case *ast.DoWhileStmt:
		a.loops.enter()
		body := a.checkStmt(x.Body)
		a.loops.exit()
		cond := a.checkExpr(x.Cond)
		return &DoWhile{SpanVal: x.Span(), Body: body, Cond: cond}

	case *ast.BreakStmt:
		if !a.loops.inLoop() {
			a.errorf(errors.QualifierViolation(x.Span(), "break statement outside of a loop"))
		}
		return &Break{SpanVal: x.Span()}

	case *ast.ContinueStmt:
		if !a.loops.inLoop() {
			a.errorf(errors.QualifierViolation(x.Span(), "continue statement outside of a loop"))
		}
		return &Continue{SpanVal: x.Span()}

	case *ast.ReturnStmt:
		var val Expr
		if x.Value != nil {
			val = a.checkExpr(x.Value)
		}
		a.checkReturnType(x, val)
		return &Return{SpanVal: x.Span(), Value: val}

	default:
		return nil
	}
}

// checkReturnType validates a return statement against the enclosing
// function's declared result type (spec §4.1 pass 5: "returns must be
// type-consistent with the function's declared result and with one
// another").
func (a *Analyzer) checkReturnType(x *ast.ReturnStmt, val Expr) {
	switch {
	case a.currentReturn == nil && val != nil:
		a.errorf(errors.TypeMismatch(x.Span(), "void", val.Type().String()))
	case a.currentReturn != nil && val == nil:
		a.errorf(errors.TypeMismatch(x.Span(), a.currentReturn.String(), "void"))
	case a.currentReturn != nil && val != nil:
		if !val.Type().Equal(a.currentReturn) && !isWideningCompatible(val.Type(), a.currentReturn) {
			a.errorf(errors.DivergentReturnTypes(x.Span(), a.currentFunc, a.currentReturn.String(), val.Type().String()))
		}
	}
}

// isWideningCompatible reports whether got may be implicitly converted
// to want under the spec §3.1 int->float widening rule.
func isWideningCompatible(got, want *types.Type) bool {
	return got.Kind == types.KindInt && want.Kind == types.KindFloat
}

func (a *Analyzer) checkDecl(d *ast.DeclStmt) *LocalDecl {
	declTy := a.resolveTypeSpec(d.Type)

	var init Expr
	if d.Init != nil {
		init = a.checkExpr(d.Init)
		init = a.checkImplicitConvert(init, declTy, d.Span())
	}

	var cv *ConstValue
	if d.Const {
		if folded, ok := a.foldConst(d.Init); ok {
			folded = a.coerceConst(folded, declTy)
			cv = &folded
		} else {
			a.errorf(errors.NonConstExpression(d.Span(), "const local initializer"))
		}
	}

	sym := symbol{name: d.Name, typ: declTy, constVal: cv}
	if d.Const {
		sym.qualifier = qualConst
	}
	if !a.scopes.top().declare(sym) {
		a.errorf(errors.New(errors.PhaseSemantic, errors.KindTypeMismatch).At(d.Span()).
			Detail("%q is already declared in this scope", d.Name).Build())
	}

	return &LocalDecl{
		SpanVal:      d.Span(),
		Name:         d.Name,
		Type:         declTy,
		Init:         init,
		Const:        d.Const,
		SlotRequired: requiresSlot(declTy),
	}
}

// requiresSlot reports whether a local of type t must be placed in a
// stack slot regardless of whether its address is later taken (spec
// §4.2: arrays, structs, and matrices always do).
func requiresSlot(t *types.Type) bool {
	return t.Kind == types.KindArray || t.Kind == types.KindStruct || t.Kind.IsMatrix()
}

// allPathsReturn conservatively verifies spec §4.1 pass 5's "every
// non-void function must return on every path." It is deliberately
// conservative: a for/while loop is never assumed to run, so a return
// only inside a loop body does not count, matching "conservatively
// verified" in the spec text.
func allPathsReturn(s Stmt) bool {
	switch x := s.(type) {
	case *Block:
		for _, inner := range x.Stmts {
			if allPathsReturn(inner) {
				return true
			}
		}
		return false
	case *Return:
		return true
	case *If:
		if x.Else == nil {
			return false
		}
		return allPathsReturn(x.Then) && allPathsReturn(x.Else)
	case *DoWhile:
		// A do-while body always executes at least once.
		return allPathsReturn(x.Body)
	default:
		return false
	}
}
