// Package models provides ready-made components to differentiate: closed
// form test functions, a linear map, a variable-tree component and flow maps
// of classic dynamical systems integrated with RK4.
//
// Every component evaluates on complex values so the complex-step form can
// be used on all of them.
package models
