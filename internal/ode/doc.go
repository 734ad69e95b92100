// Package ode provides the initial-value core used by the boundary-value
// solvers.
//
// The package defines the primitives for integrating first-order systems
// dy/dx = f(y, x):
//
//   - [State]: vector holding the system state at one abscissa
//   - [System]: interface for first-order systems
//   - [Integrator]: single-step numerical integrator
//   - [AdaptiveIntegrator]: integrator with embedded error control
//   - [Propagator]: drives an integrator across an interval
//
// # Example
//
//	prob := contactline.New(0.01)
//	prop := ode.New(prob, integrators.NewRK45())
//	traj, err := prop.Run(ctx, prob.InitialState(0.15), ode.DefaultConfig(50))
//
// # Thread Safety
//
// Propagator instances are NOT thread-safe, and neither are the stateful
// integrators. Concurrent solves must each own their integrator.
package ode
