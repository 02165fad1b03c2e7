// Package types implements the GLSL type lattice (spec §3.1): scalars,
// fixed-length vectors and matrices, and composite arrays and structs.
//
// Struct and array shapes are interned in an Arena so that two
// structurally-later-compared types (e.g. a function parameter and the
// argument expression's inferred type) can be compared by ID rather than
// by deep structural equality, generalizing the component-model type
// arena's "each type gets a unique ID when stored in the arena"
// discipline (see DESIGN.md) from WIT records to GLSL structs.
//
// LayoutCalculator computes size, alignment, and field/element byte
// offsets for every type, used by package lower to place locals in stack
// slots.
package types
