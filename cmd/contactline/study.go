package main

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/contactline/internal/analysis"
	"github.com/san-kum/contactline/internal/automation"
	"github.com/san-kum/contactline/internal/bvp"
	"github.com/san-kum/contactline/internal/experiment"
	"github.com/san-kum/contactline/internal/figure"
	"github.com/san-kum/contactline/internal/integrators"
	"github.com/san-kum/contactline/internal/optim"
	"github.com/san-kum/contactline/internal/storage"
)

var (
	sweepParam  string
	sweepValues []float64
	concurrency int
	scanPoints  int
	asymFrom    float64
	asymTo      float64
)

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(sweepValues) == 0 {
		return fmt.Errorf("no values to sweep")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sw := experiment.Sweep{Param: sweepParam, Values: sweepValues, Concurrency: concurrency}
	start := time.Now()
	points, err := experiment.Run(ctx, cfg, sw, experiment.NewRegistry(), log)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("sweep %s, %d values, %s", sweepParam, len(points), time.Since(start).Round(time.Millisecond))))
	drift := experiment.Drift(points)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VALUE\tH''(0)\t|Δ|\tRESIDUAL\tTRUNCATION\tTIME\tERROR")
	failed := 0
	for i, p := range points {
		if p.Err != nil {
			failed++
			fmt.Fprintf(w, "%g\t-\t-\t-\t-\t%s\t%s\n", p.Value, p.Elapsed.Round(time.Millisecond), bvp.Classify(p.Err))
			continue
		}
		trunc := "-"
		if r := p.Solution.Truncation(); r != nil {
			trunc = fmt.Sprintf("%.2e", r.FarCurvatureRatio)
		}
		fmt.Fprintf(w, "%g\t%.10g\t%.2e\t%.2e\t%s\t%s\t\n",
			p.Value, p.Shoot(), drift[i], p.Solution.Residual(), trunc, p.Elapsed.Round(time.Millisecond))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	shoots := make([]float64, 0, len(points))
	for _, p := range points {
		if p.Solution != nil {
			shoots = append(shoots, p.Shoot())
		}
	}
	if len(shoots) > 1 {
		fmt.Println()
		fmt.Println(figure.Series(shoots, fmt.Sprintf("h''(0) against %s", sweepParam), 60, 10))
	}
	if failed > 0 {
		fmt.Println(warnStyle.Render(fmt.Sprintf("%d of %d solves failed", failed, len(points))))
	}
	return nil
}

type comparison struct {
	label string
	sol   *bvp.Solution
	err   error
	took  time.Duration
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		for _, name := range integrators.Names() {
			args = append(args, string(bvp.MethodShooting)+"/"+name)
		}
		args = append(args, string(bvp.MethodCollocation))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var results []comparison
	for _, arg := range args {
		m, integ, err := parseDriver(arg)
		if err != nil {
			return err
		}
		run := cfg.Clone()
		run.Method = string(m)
		if integ != "" {
			run.Integrator = integ
		}
		if err := run.Validate(); err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}
		start := time.Now()
		sol, err := experiment.New(run, log.With().Str("driver", arg).Logger()).Run(ctx)
		results = append(results, comparison{label: arg, sol: sol, err: err, took: time.Since(start)})
		if h := failureHint(run, err); h != "" {
			log.Warn().Str("driver", arg).Msg(h)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	var ref *bvp.Solution
	for i := len(results) - 1; i >= 0; i-- {
		if results[i].sol != nil {
			ref = results[i].sol
			break
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DRIVER\tH''(0)\t|Δs|\tMAX |Δh'|\tPOINTS\tTIME\tERROR")
	for _, r := range results {
		if r.err != nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t%s\t%v\n", r.label, r.took.Round(time.Millisecond), bvp.Classify(r.err))
			continue
		}
		fmt.Fprintf(w, "%s\t%.10g\t%.2e\t%.2e\t%d\t%s\t\n",
			r.label, r.sol.Shoot(), math.Abs(r.sol.Shoot()-ref.Shoot()), slopeGap(r.sol, ref),
			r.sol.Len(), r.took.Round(time.Millisecond))
	}
	return w.Flush()
}

// slopeGap is the largest |h'_a - h'_b| over the grid of a.
func slopeGap(a, b *bvp.Solution) float64 {
	gap := 0.0
	for _, p := range a.Points() {
		q, err := b.Interpolate(p.X)
		if err != nil {
			continue
		}
		gap = math.Max(gap, math.Abs(p.Slope-q.Slope))
	}
	return gap
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sh, err := bvp.NewSolver(cfg.Problem(), cfg.SolverOptions(), log).Shooter(cfg.XMax)
	if err != nil {
		return err
	}
	b := optim.Bracket{Low: cfg.BracketLow, High: cfg.BracketHigh}
	samples, err := optim.Scan(ctx, sh.Residual, b, scanPoints)
	if err != nil {
		return err
	}
	return printScan(samples, cfg.XMax)
}

func printScan(samples []optim.Sample, xmax float64) error {
	fmt.Println(headerStyle.Render(fmt.Sprintf("h''(%g; s) over s in [%g, %g]", xmax, samples[0].X, samples[len(samples)-1].X)))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "S\tRESIDUAL\tSIGN\tNOTE")
	data := make([]float64, len(samples))
	for i, s := range samples {
		data[i] = s.F
		note := ""
		if s.Err != nil {
			note = s.Err.Error()
			data[i] = math.NaN()
		}
		fmt.Fprintf(w, "%.6g\t%.4e\t%+d\t%s\n", s.X, s.F, s.Sign, note)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, i := range optim.SignChanges(samples) {
		fmt.Printf("%s root in [%.6g, %.6g]\n", okStyle.Render("bracket"), samples[i].X, samples[i+1].X)
	}
	finite := 0
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite++
		}
	}
	if finite > 1 {
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(12),
			asciigraph.Width(60),
			asciigraph.Caption("shooting residual"),
		))
	}
	return nil
}

func runAsymptote(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	cv := analysis.NewCoxVoinov(cfg.Constant)
	var sol *bvp.Solution
	if len(args) == 1 {
		s, meta, _, err := loadRun(cmd, args[0])
		if err != nil {
			return err
		}
		sol = s
		cv = analysis.NewCoxVoinov(meta.Constant)
	}

	xs := analysis.LogSpace(asymFrom, asymTo, 13)
	if xs == nil {
		return fmt.Errorf("invalid range [%g, %g]", asymFrom, asymTo)
	}
	theta, dtheta := cv.Sample(xs)

	fmt.Println(headerStyle.Render(fmt.Sprintf("θ³ = 1 + 3c(1 + ln x), c=%g", cv.Constant)))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := "x\tθ³\tθ\tdθ/dx"
	if sol != nil {
		header += "\th'(x)"
	}
	fmt.Fprintln(w, header)
	for i, x := range xs {
		fmt.Fprintf(w, "%.3g\t%.6f\t%.6f\t%.3e", x, cv.SlopeCubed(x), theta[i], dtheta[i])
		if sol != nil {
			if p, err := sol.Interpolate(x); err == nil {
				fmt.Fprintf(w, "\t%.6f", p.Slope)
			} else {
				fmt.Fprint(w, "\t-")
			}
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if sol != nil {
		dev, err := analysis.Compare(sol, cv, asymFrom)
		if err != nil {
			return err
		}
		fmt.Printf("%s max |h'-θ| = %.3e at x=%.4g, max rel %.3e, rms %.3e over %d points\n",
			labelStyle.Render("deviation"), dev.MaxAbs, dev.At, dev.MaxRel, dev.RMS, dev.N)
		tail := func(p bvp.Point) float64 { return p.Curvature }
		if fit, err := analysis.FitWindow(sol, tail, sol.XMax()/10, sol.XMax()); err == nil {
			fmt.Printf("%s h'' ≈ %s\n", labelStyle.Render("tail"), fit)
		}
	}

	if outPath != "" {
		if err := figure.RenderAsymptote(cv, asymFrom, asymTo, logLog, outPath, figure.DefaultOptions()); err != nil {
			return err
		}
		fmt.Println(outPath)
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	title := sc.Name
	if sc.Description != "" {
		title += ": " + sc.Description
	}
	fmt.Println(headerStyle.Render(title))

	out, err := automation.RunScenario(ctx, sc, cfg, experiment.NewRegistry(), storage.New(cfg.DataDir), log)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tRUN\tMETHOD\tX\tH''(0)\tRESULT")
	for _, o := range out {
		if o.Err != nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t%s\n", o.Step, bvp.Classify(o.Err))
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%.10g\tok\n", o.Step, o.RunID, o.Solution.Method(), o.Solution.XMax(), o.Solution.Shoot())
	}
	if ferr := w.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}
