// Package contactline defines the thin-film contact-line equation
//
//	h''' = -c / (h² + h),  h(0) = 0,  h'(0) = 1,  h''(X) = 0
//
// as a first-order system on the state [h, h', h''], together with the
// singularity guard that keeps the right-hand side finite at the poles
// h = 0 and h = -1.
package contactline
