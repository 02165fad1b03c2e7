// Package ast declares the AST ingestion contract (spec §6a): the shape
// of syntax tree the frontend (package sema) consumes. No parser is
// implemented here or anywhere in this module — producing an *ast.Module
// from GLSL source text is the job of an external collaborator; this
// package only fixes the node shapes that collaborator must deliver.
//
// The tree follows the same node-interface-plus-concrete-struct pattern
// as the teacher's control-flow IR (see DESIGN.md): a small interface
// per tree role (Expr, Stmt, TypeSpec) implemented by one struct per
// concrete construct, each carrying its own Span.
package ast
