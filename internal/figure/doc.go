// Package figure draws solved profiles.
//
// [Render] produces the stacked h'(x) / h''(x) figure, [RenderLogLog] the
// magnitudes on log–log axes and [RenderAsymptote] the Cox–Voinov law. The
// file format follows the extension of the output path (png, svg, pdf).
// [Terminal] renders the same curves as text for the CLI and explorer.
//
// Every function reads the grid through [bvp.Solution.Points] or
// [bvp.Solution.Resample], which return copies.
package figure
