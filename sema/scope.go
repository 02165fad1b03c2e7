package sema

import "github.com/lightplayer/lightplayer/types"

// symbol is a name bound in some scope: a variable, parameter, or
// global constant, together with its resolved type and (for constants)
// its folded value.
type symbol struct {
	name      string
	typ       *types.Type
	constVal  *ConstValue // non-nil iff this binding is a compile-time constant
	qualifier paramQualifier
}

// paramQualifier mirrors ast.ParamQualifier; duplicated here (rather
// than imported) because sema's scope entries also need to represent
// plain locals, which have no ast.ParamQualifier at all.
type paramQualifier int

const (
	qualNone paramQualifier = iota
	qualIn
	qualOut
	qualInout
	qualConst
)

// IsOut reports whether q is the `out` parameter qualifier. Exported so
// package lower, which never needs the qualifier's identity beyond this
// and the sibling predicates below, can select a calling convention
// without sema exporting the enum itself.
func (q paramQualifier) IsOut() bool { return q == qualOut }

// IsInout reports whether q is the `inout` parameter qualifier.
func (q paramQualifier) IsInout() bool { return q == qualInout }

// IsConst reports whether q is the `const` parameter qualifier.
func (q paramQualifier) IsConst() bool { return q == qualConst }

// scopeKind distinguishes the three nesting levels spec §4.1 pass 1
// names: global, function, block.
type scopeKind int

const (
	scopeGlobal scopeKind = iota
	scopeFunction
	scopeBlock
)

// scope is one lexical level: an ordered, insertion-sensitive list of
// bindings. Shadowing an outer scope is allowed; redeclaring within the
// same scope is not (spec §4.1 pass 1).
type scope struct {
	kind    scopeKind
	order   []string
	symbols map[string]symbol
}

func newScope(kind scopeKind) *scope {
	return &scope{kind: kind, symbols: make(map[string]symbol)}
}

// declare adds name to this scope. ok is false if name is already bound
// in this same scope (shadowing an outer scope is fine and always ok).
func (s *scope) declare(sym symbol) (ok bool) {
	if _, exists := s.symbols[sym.name]; exists {
		return false
	}
	s.symbols[sym.name] = sym
	s.order = append(s.order, sym.name)
	return true
}

// scopeStack is the lexical scope stack a function body is resolved
// against: one scopeGlobal entry for the module's consts, pushed once;
// one scopeFunction entry per function, holding its parameters; and one
// scopeBlock entry per nested block.
type scopeStack struct {
	stack []*scope
}

func newScopeStack() *scopeStack {
	return &scopeStack{}
}

func (ss *scopeStack) push(kind scopeKind) *scope {
	s := newScope(kind)
	ss.stack = append(ss.stack, s)
	return s
}

func (ss *scopeStack) pop() {
	ss.stack = ss.stack[:len(ss.stack)-1]
}

// top returns the innermost scope.
func (ss *scopeStack) top() *scope {
	return ss.stack[len(ss.stack)-1]
}

// lookup searches from innermost to outermost scope and returns the
// first binding found.
func (ss *scopeStack) lookup(name string) (symbol, bool) {
	for i := len(ss.stack) - 1; i >= 0; i-- {
		if sym, ok := ss.stack[i].symbols[name]; ok {
			return sym, true
		}
	}
	return symbol{}, false
}

// loopTracker tracks how many loop bodies currently enclose the
// statement being checked, for break/continue validation (spec §4.1
// pass 5).
type loopTracker struct {
	depth int
}

func (l *loopTracker) enter()       { l.depth++ }
func (l *loopTracker) exit()        { l.depth-- }
func (l *loopTracker) inLoop() bool { return l.depth > 0 }
