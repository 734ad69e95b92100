// Package optim provides the one-dimensional root finding used to match the
// far-field condition: bracket expansion, a safeguarded Illinois iteration
// and a residual scan.
//
// Objectives may report a sample as one-sided by returning an error built
// with Signed. Such a sample carries the sign of the residual but no usable
// magnitude, so the iteration bisects while it is an endpoint.
package optim
