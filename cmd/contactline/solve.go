package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/contactline/internal/bvp"
	"github.com/san-kum/contactline/internal/cache"
	"github.com/san-kum/contactline/internal/config"
	"github.com/san-kum/contactline/internal/experiment"
	"github.com/san-kum/contactline/internal/figure"
	"github.com/san-kum/contactline/internal/storage"
)

const cacheFile = "cache.db"

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	exp := experiment.New(cfg, log)
	sol, meta, hit, err := solve(ctx, exp, cfg)
	if err != nil {
		var se *bvp.SolveError
		if errors.As(err, &se) {
			fmt.Println(errStyle.Render(se.Kind.String()))
		}
		if h := failureHint(cfg, err); h != "" {
			fmt.Println(h)
		}
		return err
	}

	store := storage.New(cfg.DataDir)
	var runID string
	if meta != nil {
		runID, err = store.SaveRun(*meta, sol.Points())
	} else {
		runID, err = store.Save(sol, exp.Info())
	}
	if err != nil {
		return fmt.Errorf("failed to save: %w", err)
	}

	printReport(runID, sol, hit)

	if outPath != "" {
		opts := figure.DefaultOptions()
		opts.Samples = cfg.Samples
		if err := figure.Render(sol, outPath, opts); err != nil {
			return fmt.Errorf("figure: %w", err)
		}
		fmt.Printf("%s %s\n", labelStyle.Render("figure"), outPath)
	}
	return nil
}

// solve runs exp through the cache in the data directory unless it is
// disabled. Cache failures degrade to an uncached solve.
func solve(ctx context.Context, exp *experiment.Experiment, cfg *config.Config) (*bvp.Solution, *storage.RunMetadata, bool, error) {
	if noCache {
		sol, err := exp.Run(ctx)
		return sol, nil, false, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, nil, false, err
	}
	c, err := cache.Open(filepath.Join(cfg.DataDir, cacheFile))
	if err != nil {
		log.Warn().Err(err).Msg("cache unavailable")
		sol, err := exp.Run(ctx)
		return sol, nil, false, err
	}
	defer c.Close()
	return exp.Cached(ctx, c)
}

func printReport(runID string, sol *bvp.Solution, cached bool) {
	title := "solved"
	if cached {
		title = "solved (cached)"
	}
	fmt.Println(headerStyle.Render(title))
	row := func(label, value string) {
		fmt.Printf("%s %s\n", labelStyle.Render(label), value)
	}
	row("run", runID)
	row("method", string(sol.Method()))
	row("equation", fmt.Sprintf("h''' = -%g/(h²+h)", sol.Constant()))
	row("conditions", sol.BoundaryConditions().String())
	row("X", fmt.Sprintf("%g", sol.XMax()))
	row("h''(0)", fmt.Sprintf("%.10g", sol.Shoot()))
	row("residual", fmt.Sprintf("%.3e", sol.Residual()))
	row("iterations", fmt.Sprintf("%d", sol.Iterations()))
	row("points", fmt.Sprintf("%d", sol.Len()))

	last := sol.At(sol.Len() - 1)
	row("h'(X)", fmt.Sprintf("%.6g", last.Slope))

	metrics := sol.Metrics()
	names := make([]string, 0, len(metrics))
	for k := range metrics {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		row(k, fmt.Sprintf("%g", metrics[k]))
	}

	if r := sol.Truncation(); r != nil {
		status := okStyle.Render("adequate")
		if !r.Adequate {
			status = warnStyle.Render("insufficient")
		}
		row("truncation", status)
		fmt.Println("  " + r.String())
	}
	warnings := make([]string, 0, len(sol.Warnings()))
	for _, w := range sol.Warnings() {
		warnings = append(warnings, w.Error())
	}
	printWarnings(os.Stdout, warnings)
}

func parseDriver(s string) (bvp.Method, string, error) {
	name, integ, _ := strings.Cut(s, "/")
	m, err := bvp.ParseMethod(name)
	if err != nil {
		return "", "", err
	}
	if m == bvp.MethodCollocation && integ != "" {
		return "", "", fmt.Errorf("collocation takes no integrator: %s", s)
	}
	return m, integ, nil
}

// failureHint suggests a remedy for failures with a known cause.
func failureHint(cfg *config.Config, err error) string {
	if bvp.Classify(err) != bvp.KindNonConvergence || cfg.Method != string(bvp.MethodShooting) {
		return ""
	}
	if cfg.Integrator == "euler" {
		return fmt.Sprintf("hint: euler is a first-order baseline and exhausts max_steps=%d at step_tol=%g; loosen --step-tol or use rk45", cfg.MaxSteps, cfg.StepTol)
	}
	return ""
}
