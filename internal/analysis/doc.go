// Package analysis studies finite-difference Jacobians after the fact.
//
//   - [Convergence]: error of each differencing form over a range of steps
//   - [StepRange]: log-spaced step sizes for a sweep
//   - [FiniteTimeLyapunov]: growth rate of a flow map from its Jacobian
//   - [LyapunovSpectrum]: every singular growth rate of a flow map
//   - [Survey]: Jacobians of many independent problems, concurrently
//
// # Choosing a step
//
// Forward and backward differences lose accuracy both to truncation (large
// steps) and to cancellation (small steps); the best step sits near the
// square root of machine epsilon. The complex step has no cancellation:
//
//	curves, _ := analysis.Convergence(ctx, sys, sc, in, out, ref, forms, analysis.StepRange(1e-14, 1e-1, 27))
//	best := curves[0].Best
package analysis
