// Package fd estimates Jacobians of a model by finite differencing.
//
// The package drives an external model through repeated evaluations while
// perturbing its inputs in a [scope.Scope]:
//
//   - [Engine]: full Jacobian, one evaluation per input element (two for
//     central differences)
//   - [Directional]: a single Jacobian-vector product along a direction, one
//     evaluation per call (two for central differences)
//   - [Descriptor]: per-input step size, differencing [Form] and [StepType],
//     resolved from an ordered list of override [Source]s
//
// # Example
//
//	eng, err := fd.New(sys, sc, []fd.Input{{"x"}}, []string{"y"}, fd.DefaultOptions(), nil)
//	if err != nil {
//	    return err
//	}
//	jac, err := eng.Solve(ctx, sc, "iter1")
//
// # State
//
// Every Solve or Calculate snapshots the perturbed inputs and the baseline
// outputs and writes them back before returning, including when a model
// evaluation fails. The engine must be the only mutator of the scope for the
// duration of a call; perturbations are never run concurrently.
package fd
