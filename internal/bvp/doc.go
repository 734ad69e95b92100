// Package bvp solves the contact-line boundary value problem on a truncated
// domain [0, X].
//
// Two drivers are provided. Shooter integrates the initial value problem
// (0, 1, s) forward and matches h''(X) = 0 with a bracketing root finder on
// s = h''(0). Collocation discretises the whole profile with the trapezoidal
// rule on a mesh graded toward the origin and solves the nonlinear system by
// Newton's method with a banded Jacobian.
//
// Solver wraps both, checks that the truncation X is large enough by
// re-solving on 2X, and reports failures as *SolveError:
//
//	prob := contactline.New(0.01)
//	sol, err := bvp.NewSolver(prob, bvp.DefaultOptions(), log).Solve(ctx)
//	if err != nil {
//		var serr *bvp.SolveError
//		if errors.As(err, &serr) {
//			fmt.Println(serr.Kind)
//		}
//	}
package bvp
