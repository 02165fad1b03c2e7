package errors

import (
	"fmt"
	"strings"
)

// Span locates a range of source bytes in the original shader buffer.
// The AST ingestion contract (see package ast) attaches a Span to every
// node; the frontend copies the Span of the offending node onto any
// error it raises.
type Span struct {
	Start int
	End   int
}

// IsZero reports whether the span was never set.
func (s Span) IsZero() bool { return s.Start == 0 && s.End == 0 }

// Phase indicates which pipeline stage raised the error.
type Phase string

const (
	PhaseSemantic Phase = "semantic" // name resolution, type checking, constant folding
	PhaseLowering Phase = "lowering" // typed IR -> SSA IR
	PhaseQ32      Phase = "q32"      // fp -> Q16.16 rewrite
	PhaseBackend  Phase = "backend"  // RISC-V codegen and module assembly
	PhaseEmulator Phase = "emulator" // RV32IMAC execution
	PhaseLoad     Phase = "load"     // ELF loading and relocation
	PhaseInternal Phase = "internal" // compiler bugs: fatal, never user-facing
)

// Kind categorizes the defect within a Phase.
type Kind string

const (
	// Semantic (frontend) kinds — spec §4.1, §7.
	KindUnknownIdentifier      Kind = "unknown_identifier"
	KindTypeMismatch           Kind = "type_mismatch"
	KindArityMismatch          Kind = "arity_mismatch"
	KindNonConstExpression     Kind = "non_const_expression"
	KindArrayBoundsInvalid     Kind = "array_bounds_invalid"
	KindOutParamRequiresLvalue Kind = "out_param_requires_lvalue"
	KindDuplicateSwizzle       Kind = "duplicate_swizzle_component"
	KindMissingReturn          Kind = "missing_return"
	KindDivergentReturnTypes   Kind = "divergent_return_types"
	KindQualifierViolation     Kind = "qualifier_violation"

	// Backend kinds — spec §4.4, §7.
	KindUnresolvedSymbol Kind = "unresolved_symbol"
	KindOutOfCodeSpace   Kind = "out_of_code_space"
	KindUnsupportedReloc Kind = "unsupported_relocation"

	// Emulator kinds — spec §4.5, §7.
	KindTrap            Kind = "trap"
	KindSyscallError    Kind = "syscall_error"
	KindBudgetExhausted Kind = "budget_exhausted"

	// Load (ELF) kinds.
	KindInvalidELF Kind = "invalid_elf"

	// Internal compiler-bug kind, used only with PhaseInternal.
	KindInternal Kind = "internal_compiler_error"
)

// Error is the structured error type used throughout the compiler core.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Pass   string // failing pass name, for PhaseInternal errors
	Detail string
	Span   Span
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Pass != "" {
		b.WriteString(" in pass ")
		b.WriteString(e.Pass)
	}

	if !e.Span.IsZero() {
		fmt.Fprintf(&b, " at [%d:%d]", e.Span.Start, e.Span.End)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error's Phase and Kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides fluent, structured error construction.
type Builder struct {
	err Error
}

// New starts building an error of the given Phase and Kind.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: Error{Phase: phase, Kind: kind}}
}

// At attaches the source span the error refers to.
func (b *Builder) At(span Span) *Builder {
	b.err.Span = span
	return b
}

// Pass names the failing pass (used for PhaseInternal errors).
func (b *Builder) Pass(name string) *Builder {
	b.err.Pass = name
	return b
}

// Cause sets the underlying wrapped error.
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message.
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the frontend's fixed error vocabulary
// (spec §4.1, §7). Each mirrors a specific semantic-analysis failure.

// UnknownIdentifier reports a reference to an undeclared name.
func UnknownIdentifier(span Span, name string) *Error {
	return New(PhaseSemantic, KindUnknownIdentifier).At(span).
		Detail("undeclared identifier %q", name).Build()
}

// TypeMismatch reports an expression whose type does not match its context.
func TypeMismatch(span Span, want, got string) *Error {
	return New(PhaseSemantic, KindTypeMismatch).At(span).
		Detail("expected type %s, got %s", want, got).Build()
}

// ArityMismatch reports a call with the wrong number of arguments.
func ArityMismatch(span Span, callee string, want, got int) *Error {
	return New(PhaseSemantic, KindArityMismatch).At(span).
		Detail("%s expects %d argument(s), got %d", callee, want, got).Build()
}

// NonConstExpression reports a non-constant expression where a constant
// is required (array size, global initializer).
func NonConstExpression(span Span, context string) *Error {
	return New(PhaseSemantic, KindNonConstExpression).At(span).
		Detail("%s requires a compile-time constant expression", context).Build()
}

// ArrayBoundsInvalid reports a non-positive or non-constant array length.
func ArrayBoundsInvalid(span Span, detail string) *Error {
	return New(PhaseSemantic, KindArrayBoundsInvalid).At(span).Detail("%s", detail).Build()
}

// OutParamRequiresLvalue reports an out/inout argument that is not an lvalue.
func OutParamRequiresLvalue(span Span, paramName string) *Error {
	return New(PhaseSemantic, KindOutParamRequiresLvalue).At(span).
		Detail("argument for out/inout parameter %q must be an lvalue", paramName).Build()
}

// DuplicateSwizzleComponent reports a write-swizzle lvalue with a repeated
// component (e.g. `v.xx = ...`).
func DuplicateSwizzleComponent(span Span, swizzle string) *Error {
	return New(PhaseSemantic, KindDuplicateSwizzle).At(span).
		Detail("swizzle %q used as an lvalue repeats a component", swizzle).Build()
}

// MissingReturn reports a non-void function with a path lacking a return.
func MissingReturn(span Span, fn string) *Error {
	return New(PhaseSemantic, KindMissingReturn).At(span).
		Detail("function %q does not return a value on all paths", fn).Build()
}

// DivergentReturnTypes reports return statements disagreeing on type.
func DivergentReturnTypes(span Span, fn, first, second string) *Error {
	return New(PhaseSemantic, KindDivergentReturnTypes).At(span).
		Detail("function %q returns both %s and %s", fn, first, second).Build()
}

// QualifierViolation reports a const-parameter assignment or similar
// qualifier misuse.
func QualifierViolation(span Span, detail string) *Error {
	return New(PhaseSemantic, KindQualifierViolation).At(span).Detail("%s", detail).Build()
}

// Backend convenience constructors — spec §4.4, §7. These surface to the
// caller; they are never silently ignored.

// UnresolvedSymbol reports a builtin or import missing from the registry.
func UnresolvedSymbol(name string) *Error {
	return New(PhaseBackend, KindUnresolvedSymbol).
		Detail("unresolved symbol %q", name).Build()
}

// OutOfCodeSpace reports a module too large for its configured code heap.
func OutOfCodeSpace(needed, available int) *Error {
	return New(PhaseBackend, KindOutOfCodeSpace).
		Detail("need %d bytes of code space, have %d", needed, available).Build()
}

// UnsupportedRelocation reports a relocation kind the target flavor cannot
// consume.
func UnsupportedRelocation(kind string) *Error {
	return New(PhaseBackend, KindUnsupportedReloc).
		Detail("relocation kind %q is not supported for this module flavor", kind).Build()
}

// Emulator convenience constructors — spec §4.5, §7.

// Trap reports the guest program executing ebreak with the given code
// (spec §4.5's vocabulary: small negative codes name an unresolved symbol
// via backend.unresolvedSymbolTrapCode, codes from -1<<20 downward are the
// emulator's own faults (emu.TrapPermission and friends); non-negative
// codes are program-defined, e.g. an array-bounds check).
func Trap(code int32, detail string) *Error {
	return New(PhaseEmulator, KindTrap).
		Detail("trap %d: %s", code, detail).Build()
}

// SyscallError reports an ecall the guest issued with an unknown syscall
// number, or whose arguments the host handler rejected.
func SyscallError(number uint32, detail string) *Error {
	return New(PhaseEmulator, KindSyscallError).
		Detail("syscall %d: %s", number, detail).Build()
}

// BudgetExhausted reports the guest exceeding its configured instruction
// or cycle budget without reaching a return/trap.
func BudgetExhausted(executed, budget int64) *Error {
	return New(PhaseEmulator, KindBudgetExhausted).
		Detail("executed %d instructions against a budget of %d", executed, budget).Build()
}

// Load convenience constructor — ELF parsing.

// InvalidELF reports a malformed or unsupported ELF object fed to the
// loader (wrong magic, class, machine, or a section table it cannot make
// sense of).
func InvalidELF(detail string) *Error {
	return New(PhaseLoad, KindInvalidELF).Detail("%s", detail).Build()
}

// Internal wraps a violated compiler invariant as a fatal error; the
// caller sees "internal compiler error" with the failing pass name.
// compiler.Compile also converts a recovered panic into one of these
// rather than letting it escape.
func Internal(pass, detail string) *Error {
	return New(PhaseInternal, KindInternal).Pass(pass).Detail("%s", detail).Build()
}

// IsInternal reports whether err is a fatal internal compiler error.
func IsInternal(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Phase == PhaseInternal
}
