// Package analysis provides far-field diagnostics for solved profiles.
//
//   - [CoxVoinov]: the large-x law θ³ = θ0³ + 3c·ln(e·x)
//   - [FitPowerLaw]: least-squares power law on log-log data
//   - [Compare]: deviation of a solved slope profile from the asymptote
//   - [NewPhasePortrait]: (h', h'') trajectory rendered as ASCII
//
// # Asymptote check
//
//	cv := analysis.NewCoxVoinov(sol.Constant())
//	dev, err := analysis.Compare(sol, cv, 1)
//	if err == nil && dev.MaxRel < 0.05 {
//	    // profile follows the logarithmic law
//	}
package analysis
