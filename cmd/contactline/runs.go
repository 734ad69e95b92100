package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/contactline/internal/bvp"
	"github.com/san-kum/contactline/internal/figure"
	"github.com/san-kum/contactline/internal/storage"
)

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	runs, err := storage.New(cfg.DataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMETHOD\tC\tX\tH''(0)\tRESIDUAL\tPOINTS\tTRUNCATION\tTIMESTAMP")
	for _, r := range runs {
		trunc := "-"
		if r.Truncation != nil {
			trunc = "ok"
			if !r.Truncation.Adequate {
				trunc = "insufficient"
			}
		}
		method := r.Method
		if r.Integrator != "" {
			method += "/" + r.Integrator
		}
		fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%.8g\t%.2e\t%d\t%s\t%s\n",
			r.ID, method, r.Constant, r.XMax, r.Shoot, r.Residual, r.Points, trunc,
			r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func loadRun(cmd *cobra.Command, runID string) (*bvp.Solution, *storage.RunMetadata, *storage.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	store := storage.New(cfg.DataDir)
	sol, meta, err := store.LoadSolution(runID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load %s: %w", runID, err)
	}
	return sol, meta, store, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	sol, meta, _, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	fmt.Println(headerStyle.Render(fmt.Sprintf("%s  c=%g  X=%g  h''(0)=%.8g", meta.ID, meta.Constant, meta.XMax, meta.Shoot)))
	fmt.Println(figure.Terminal(sol, 70, 12))
	printWarnings(os.Stdout, meta.Warnings)
	return nil
}

func figureRun(cmd *cobra.Command, args []string) error {
	sol, meta, store, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	out := outPath
	if out == "" {
		out = filepath.Join(store.Dir(), meta.ID, "profile.png")
	}

	opts := figure.DefaultOptions()
	if err := figure.Render(sol, out, opts); err != nil {
		return err
	}
	fmt.Println(out)
	printWarnings(os.Stdout, meta.Warnings)

	if logLog {
		ext := filepath.Ext(out)
		llPath := strings.TrimSuffix(out, ext) + "_loglog" + ext
		if err := figure.RenderLogLog(sol, llPath, opts); err != nil {
			return err
		}
		fmt.Println(llPath)
	}
	return nil
}

// output opens the export destination; stdout when path is empty.
func output(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportPoints(sol *bvp.Solution) []bvp.Point {
	if exportSamples > 1 {
		return sol.Resample(exportSamples)
	}
	return sol.Points()
}

func exportCSV(cmd *cobra.Command, args []string) error {
	sol, _, _, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	w, err := output(outPath)
	if err != nil {
		return err
	}
	if err := storage.WriteCSV(w, exportPoints(sol)); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	sol, meta, _, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	w, err := output(outPath)
	if err != nil {
		return err
	}
	if err := storage.ExportJSON(w, *meta, exportPoints(sol)); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintln(w, warnStyle.Render("warning:"), msg)
	}
}
