// Package viz renders Jacobians and step-size studies in the terminal.
//
//   - [RenderJacobian]: labelled matrix table, entries shaded by magnitude
//   - [PlotConvergence]: asciigraph plot of log10 error against step size
//   - [Explorer]: Bubble Tea application to pick a model and differentiate
//     it interactively
//
// # Key Bindings
//
//	Enter - Select model / recompute
//	F     - Cycle differencing form
//	+/-   - Grow or shrink the step tenfold
//	S     - Run a convergence sweep
//	T     - Cycle color themes
//	Esc   - Back to the model list
package viz
