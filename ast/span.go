package ast

import "github.com/lightplayer/lightplayer/errors"

// Span locates a node in the original source buffer. It is the same
// type the error package attaches to diagnostics, so a node's Span can
// be copied directly onto an *errors.Error without conversion.
type Span = errors.Span
