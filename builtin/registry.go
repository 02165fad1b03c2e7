package builtin

import "github.com/lightplayer/lightplayer/types"

// ID identifies one entry in the registry. IDs are dense and assigned
// in registration order; they index directly into Registry's backing
// arrays, the same discipline the teacher's opcode Registry uses for
// byte opcodes.
type ID int

// ResolutionKind selects how a builtin's call target is realized (spec
// §3.5, §4.4): a native function pointer for the HostJIT flavor, or an
// ELF symbol the Emulator/Object flavors link against.
type ResolutionKind int

const (
	ResolveNative ResolutionKind = iota
	ResolveELFSymbol
)

// Signature is a builtin's GLSL-visible calling shape.
type Signature struct {
	Params []*types.Type
	Result *types.Type
}

// Entry is one builtin's full registration: its GLSL identity, its
// optional Q32 fixed-point variant, and its resolution target.
type Entry struct {
	ID         ID
	Name       string // GLSL-visible name, e.g. "sin", "mix"
	Sig        Signature
	Q32Name    string // "" means format-agnostic: no rewrite needed
	Resolution ResolutionKind
	Symbol     string     // ELF symbol name, when Resolution == ResolveELFSymbol
	NativeFn   NativeFunc // non-nil when Resolution == ResolveNative
}

// NativeFunc is a host-callable implementation of a builtin, used by
// the HostJIT module flavor. Its signature is fixed-width: every
// parameter and the result are passed as raw 32-bit words (Q16.16 for
// float-typed parameters, after the Q32 pass; untouched for int/uint/
// bool), matching the calling convention spec §4.2 lowers to.
type NativeFunc func(args []uint32) uint32

// Registry is the process-wide builtin catalog. Populate once at
// startup (see RegisterStandardLibrary) and never mutate afterward;
// concurrent read-only access from multiple compilations is safe
// (spec §5).
type Registry struct {
	entries []Entry
	byName  map[string][]ID // name -> every arity overload, in registration order
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string][]ID)}
}

// Register adds e to the registry, assigning it the next dense ID.
// Register is not safe to call concurrently with lookups; callers must
// finish all registration before sharing the Registry across
// compilations (spec §5).
func (r *Registry) Register(e Entry) ID {
	e.ID = ID(len(r.entries))
	r.entries = append(r.entries, e)
	r.byName[e.Name] = append(r.byName[e.Name], e.ID)
	return e.ID
}

// Get returns the entry for id. Panics if id is out of range, which
// can only happen on a registry-construction bug.
func (r *Registry) Get(id ID) Entry {
	return r.entries[id]
}

// Has reports whether any overload of name is registered.
func (r *Registry) Has(name string) bool {
	return len(r.byName[name]) > 0
}

// Lookup resolves name called with argc arguments to the matching
// overload, per spec §4.1 pass 3: "one entry per arity." Returns
// (Entry{}, false) if no overload of that arity is registered.
func (r *Registry) Lookup(name string, argc int) (Entry, bool) {
	for _, id := range r.byName[name] {
		e := r.entries[id]
		if len(e.Sig.Params) == argc {
			return e, true
		}
	}
	return Entry{}, false
}

// Names returns every registered GLSL-visible name, for diagnostics.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}

// Len returns the number of registered entries (across all name/arity
// overloads).
func (r *Registry) Len() int {
	return len(r.entries)
}
