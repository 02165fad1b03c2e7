// Package builtin implements the process-wide, immutable-after-init
// builtin registry (spec §3.5): the fixed catalog of GLSL-visible
// functions (transcendentals, fixed-point helpers, noise, color
// conversion) the frontend type-checks calls against, the Q32 pass
// renames fp-typed calls through, and the backend resolves imports
// against.
//
// The registry is a direct generalization of the teacher's opcode
// dispatch table (asyncify/internal/handler/registry.go's fixed-array
// Registry: Register/Get/Has/Name/MissingHandlers) from "opcode byte ->
// transform handler" to "builtin ID -> GLSL signature + Q32 variant +
// resolution target" (see DESIGN.md). Lookup by GLSL name and arity
// layers a map on top, since builtin names are not already a compact
// enum the way WASM opcodes are.
package builtin
