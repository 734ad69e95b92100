// Package viz provides the terminal explorer for contact-line profiles.
//
// The explorer is a Bubble Tea program: edit the parameters, press s to
// solve, and flip between views of the accepted profile:
//
//   - profile: h'(x) and h''(x) graphs
//   - shape: h(x) on a Braille canvas
//   - phase: the (h', h'') trajectory
//   - asymptote: deviation from the Cox–Voinov law
//
// # Key Bindings
//
//	j/k    - Select parameter
//	h/l    - Decrease/increase parameter
//	enter  - Edit parameter value
//	s      - Solve
//	tab    - Cycle views
//	t      - Cycle color themes
//	q      - Quit
package viz
