package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseSemantic,
				Kind:   KindTypeMismatch,
				Span:   Span{Start: 10, End: 14},
				Detail: "cannot convert",
			},
			contains: []string{"[semantic]", "type_mismatch", "[10:14]", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseLowering,
				Kind:  KindArrayBoundsInvalid,
			},
			contains: []string{"[lowering]", "array_bounds_invalid"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseBackend,
				Kind:   KindOutOfCodeSpace,
				Detail: "module too large",
				Cause:  stderrors.New("underlying error"),
			},
			contains: []string{"[backend]", "out_of_code_space", "module too large", "caused by", "underlying error"},
		},
		{
			name: "internal error names its pass",
			err:  Internal("q32.rewrite", "unsupported fp operation"),
			contains: []string{
				"[internal]", "internal_compiler_error", "in pass q32.rewrite", "unsupported fp operation",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("Error() = %q, want substring %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := &Error{Phase: PhaseLoad, Kind: KindInvalidELF, Cause: cause}

	if !stderrors.Is(err.Unwrap(), cause) {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
	if !stderrors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{Phase: PhaseSemantic, Kind: KindTypeMismatch}

	if !err.Is(&Error{Phase: PhaseSemantic, Kind: KindTypeMismatch}) {
		t.Error("expected same phase/kind to match")
	}
	if err.Is(&Error{Phase: PhaseLowering, Kind: KindTypeMismatch}) {
		t.Error("expected different phase not to match")
	}
	if err.Is(&Error{Phase: PhaseSemantic, Kind: KindArityMismatch}) {
		t.Error("expected different kind not to match")
	}

	target := &Error{Phase: PhaseSemantic, Kind: KindTypeMismatch}
	if !stderrors.Is(err, target) {
		t.Error("errors.Is(err, target) = false, want true")
	}
}

func TestBuilder(t *testing.T) {
	cause := stderrors.New("root")
	span := Span{Start: 3, End: 9}
	err := New(PhaseSemantic, KindTypeMismatch).
		At(span).
		Cause(cause).
		Detail("expected %s, got %s", "float", "int").
		Build()

	if err.Phase != PhaseSemantic {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseSemantic)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if err.Span != span {
		t.Errorf("Span = %v, want %v", err.Span, span)
	}
	if !stderrors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected float, got int" {
		t.Errorf("Detail = %q, want %q", err.Detail, "expected float, got int")
	}
}

func TestFrontendConstructors(t *testing.T) {
	t.Run("UnknownIdentifier", func(t *testing.T) {
		err := UnknownIdentifier(Span{}, "foo")
		if err.Kind != KindUnknownIdentifier {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnknownIdentifier)
		}
		if !strings.Contains(err.Detail, "foo") {
			t.Errorf("Detail = %q, want to contain %q", err.Detail, "foo")
		}
	})

	t.Run("ArityMismatch", func(t *testing.T) {
		err := ArityMismatch(Span{}, "mix", 3, 2)
		if err.Kind != KindArityMismatch {
			t.Errorf("Kind = %v, want %v", err.Kind, KindArityMismatch)
		}
		for _, s := range []string{"mix", "3", "2"} {
			if !strings.Contains(err.Detail, s) {
				t.Errorf("Detail = %q, want to contain %q", err.Detail, s)
			}
		}
	})

	t.Run("DuplicateSwizzleComponent", func(t *testing.T) {
		err := DuplicateSwizzleComponent(Span{}, "xx")
		if err.Kind != KindDuplicateSwizzle {
			t.Errorf("Kind = %v, want %v", err.Kind, KindDuplicateSwizzle)
		}
	})

	t.Run("MissingReturn", func(t *testing.T) {
		err := MissingReturn(Span{}, "test")
		if err.Kind != KindMissingReturn {
			t.Errorf("Kind = %v, want %v", err.Kind, KindMissingReturn)
		}
	})

	t.Run("DivergentReturnTypes", func(t *testing.T) {
		err := DivergentReturnTypes(Span{}, "test", "float", "int")
		if err.Kind != KindDivergentReturnTypes {
			t.Errorf("Kind = %v, want %v", err.Kind, KindDivergentReturnTypes)
		}
		for _, s := range []string{"float", "int"} {
			if !strings.Contains(err.Detail, s) {
				t.Errorf("Detail = %q, want to contain %q", err.Detail, s)
			}
		}
	})
}

func TestBackendConstructors(t *testing.T) {
	t.Run("UnresolvedSymbol", func(t *testing.T) {
		err := UnresolvedSymbol("sin")
		if err.Phase != PhaseBackend {
			t.Errorf("Phase = %v, want %v", err.Phase, PhaseBackend)
		}
		if err.Kind != KindUnresolvedSymbol {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnresolvedSymbol)
		}
	})

	t.Run("OutOfCodeSpace", func(t *testing.T) {
		err := OutOfCodeSpace(8192, 4096)
		if err.Kind != KindOutOfCodeSpace {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfCodeSpace)
		}
		for _, s := range []string{"8192", "4096"} {
			if !strings.Contains(err.Detail, s) {
				t.Errorf("Detail = %q, want to contain %q", err.Detail, s)
			}
		}
	})

	t.Run("UnsupportedRelocation", func(t *testing.T) {
		err := UnsupportedRelocation("R_RISCV_CALL")
		if err.Kind != KindUnsupportedReloc {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupportedReloc)
		}
	})
}

func TestIsInternal(t *testing.T) {
	if !IsInternal(Internal("lower.stmt", "unreachable case")) {
		t.Error("expected Internal() error to report IsInternal")
	}
	if IsInternal(UnknownIdentifier(Span{}, "x")) {
		t.Error("expected frontend error not to report IsInternal")
	}
	if IsInternal(stderrors.New("plain")) {
		t.Error("expected plain error not to report IsInternal")
	}
}
