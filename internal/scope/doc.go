// Package scope holds the model state that finite differencing perturbs.
//
// A [Scope] maps variable names to [Value]s. Names may be dotted paths into
// nested variable trees (comp.ins.x.x1) and may carry bracketed indices that
// address one element of an array-valued variable (x[2], m[1][0], m[1,0]).
//
//   - [Value]: scalar, array or opaque payload; numbers are complex128 so the
//     same state can be evaluated in complex-step mode
//   - [Ref]: a parsed variable reference
//   - [Tree]: in-memory Scope with per-variable [Metadata]
//
// # Thread Safety
//
// Tree is safe for concurrent readers, but finite differencing assumes a
// single mutator for the duration of one solve.
package scope
