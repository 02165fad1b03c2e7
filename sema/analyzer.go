package sema

import (
	"github.com/lightplayer/lightplayer/ast"
	"github.com/lightplayer/lightplayer/builtin"
	"github.com/lightplayer/lightplayer/errors"
	"github.com/lightplayer/lightplayer/types"
)

// Analyzer converts a spanned AST into a typed Module (spec §4.1). One
// Analyzer is constructed per compilation and discarded afterward; it
// holds no state a second compilation could observe (spec §5).
//
// Passes run in the fixed order spec §4.1 specifies, mirroring the
// teacher's phased Build (linker/internal/graph/graph.go: a sequence of
// private pass methods called once from the public entry point, each
// consuming only the state the previous passes established).
type Analyzer struct {
	builtins *builtin.Registry
	arena    *types.Arena

	scopes *scopeStack
	loops  loopTracker
	errs   []error

	// currentFunc/currentReturn are set for the duration of analyzeFunc
	// so Return statements can be checked against the enclosing
	// function's declared result type (spec §4.1 pass 5).
	currentFunc   string
	currentReturn *types.Type

	structTypes map[string]*types.Type
	funcSigs    map[string]*funcHeader
}

type funcHeader struct {
	decl   *ast.FuncDecl
	params []ParamInfo
	result *types.Type
}

// New returns an Analyzer that resolves builtin calls against builtins.
func New(builtins *builtin.Registry) *Analyzer {
	return &Analyzer{
		builtins:    builtins,
		arena:       types.NewArena(),
		scopes:      newScopeStack(),
		structTypes: make(map[string]*types.Type),
		funcSigs:    make(map[string]*funcHeader),
	}
}

// Analyze runs every pass over m in order and returns the typed module.
// On success errs is empty. Semantic errors are collected per spec §7
// ("recovered per-statement where possible to collect multiple errors
// per compile") rather than aborting at the first one.
func (a *Analyzer) Analyze(m *ast.Module) (*Module, []error) {
	a.scopes.push(scopeGlobal)

	a.resolveStructs(m.Structs)
	a.resolveConstsAndHeaders(m)

	out := &Module{Structs: a.arena.Structs()}
	for _, c := range m.Consts {
		if cv, ok := a.globalConst(c.Name); ok {
			out.Consts = append(out.Consts, &Const{Name: c.Name, Value: cv})
		}
	}

	for _, fd := range m.Funcs {
		if fd.Body == nil {
			continue // forward declaration only
		}
		fn := a.analyzeFunc(fd)
		if fn != nil {
			out.Funcs = append(out.Funcs, fn)
		}
	}

	a.scopes.pop()
	return out, a.errs
}

func (a *Analyzer) errorf(err *errors.Error) {
	a.errs = append(a.errs, err)
}

// resolveStructs closes the struct-definition set (spec §3.2) before
// anything else runs, so every later pass can resolve a StructTypeSpec
// by name.
func (a *Analyzer) resolveStructs(decls []*ast.StructDecl) {
	for _, d := range decls {
		fields := make([]types.Field, 0, len(d.Fields))
		for _, f := range d.Fields {
			ft := a.resolveTypeSpec(f.Type)
			fields = append(fields, types.Field{Name: f.Name, Type: ft})
		}
		st := a.arena.Intern(types.NewStruct(d.Name, fields))
		a.structTypes[d.Name] = st
	}
}

// resolveConstsAndHeaders is spec §4.1 pass 1's "two-pass: headers
// first" rule generalized to also fold global constant initializers,
// since both must be visible before any function body is checked.
func (a *Analyzer) resolveConstsAndHeaders(m *ast.Module) {
	for _, c := range m.Consts {
		ct := a.resolveTypeSpec(c.Type)
		val, ok := a.foldConst(c.Init)
		if !ok {
			a.errorf(errors.NonConstExpression(c.Init.Span(), "global constant initializer"))
			continue
		}
		val = a.coerceConst(val, ct)
		a.scopes.top().declare(symbol{name: c.Name, typ: ct, constVal: &val})
	}

	for _, fd := range m.Funcs {
		var resultTy *types.Type
		if fd.ReturnType != nil {
			resultTy = a.resolveTypeSpec(fd.ReturnType)
		}
		params := make([]ParamInfo, 0, len(fd.Params))
		for _, p := range fd.Params {
			params = append(params, ParamInfo{
				Name:      p.Name,
				Type:      a.resolveTypeSpec(p.Type),
				Qualifier: qualifierFromAST(p.Qualifier),
			})
		}
		a.funcSigs[fd.Name] = &funcHeader{decl: fd, params: params, result: resultTy}
	}
}

func qualifierFromAST(q ast.ParamQualifier) paramQualifier {
	switch q {
	case ast.QualifierOut:
		return qualOut
	case ast.QualifierInout:
		return qualInout
	case ast.QualifierConst:
		return qualConst
	default:
		return qualIn
	}
}

func (a *Analyzer) globalConst(name string) (ConstValue, bool) {
	sym, ok := a.scopes.stack[0].symbols[name]
	if !ok || sym.constVal == nil {
		return ConstValue{}, false
	}
	return *sym.constVal, true
}

// resolveTypeSpec turns a source type-specifier into a resolved,
// interned *types.Type.
func (a *Analyzer) resolveTypeSpec(spec ast.TypeSpec) *types.Type {
	switch s := spec.(type) {
	case *ast.ScalarTypeSpec:
		return scalarByName(s.Name)
	case *ast.VectorTypeSpec:
		return vectorByName(s.Name)
	case *ast.MatrixTypeSpec:
		return matrixByName(s.Name)
	case *ast.StructTypeSpec:
		if t, ok := a.structTypes[s.Name]; ok {
			return t
		}
		a.errorf(errors.UnknownIdentifier(s.Span(), s.Name))
		return types.Invalid
	case *ast.ArrayTypeSpec:
		elem := a.resolveTypeSpec(s.Elem)
		if s.Size == nil {
			return types.NewArray(elem, 0) // unsized: only valid in a parameter position
		}
		cv, ok := a.foldConst(s.Size)
		if !ok || cv.Type.Kind != types.KindInt || cv.Int <= 0 {
			a.errorf(errors.ArrayBoundsInvalid(s.Span(), "array size must be a positive compile-time integer constant"))
			return a.arena.Intern(types.NewArray(elem, 1))
		}
		return a.arena.Intern(types.NewArray(elem, int(cv.Int)))
	default:
		return types.Invalid
	}
}

func scalarByName(name string) *types.Type {
	switch name {
	case "bool":
		return types.Bool
	case "int":
		return types.Int
	case "uint":
		return types.Uint
	case "float":
		return types.Float
	default:
		return types.Invalid
	}
}

func vectorByName(name string) *types.Type {
	switch name {
	case "vec2":
		return types.Vec2
	case "vec3":
		return types.Vec3
	case "vec4":
		return types.Vec4
	case "ivec2":
		return types.IVec2
	case "ivec3":
		return types.IVec3
	case "ivec4":
		return types.IVec4
	case "uvec2":
		return types.UVec2
	case "uvec3":
		return types.UVec3
	case "uvec4":
		return types.UVec4
	case "bvec2":
		return types.BVec2
	case "bvec3":
		return types.BVec3
	case "bvec4":
		return types.BVec4
	default:
		return types.Invalid
	}
}

func matrixByName(name string) *types.Type {
	switch name {
	case "mat2":
		return types.Mat2
	case "mat3":
		return types.Mat3
	case "mat4":
		return types.Mat4
	default:
		return types.Invalid
	}
}
