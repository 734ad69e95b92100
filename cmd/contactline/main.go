package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/contactline/internal/config"
	"github.com/san-kum/contactline/internal/experiment"
	"github.com/san-kum/contactline/internal/logging"
	"github.com/san-kum/contactline/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string
	logFormat  string

	// solve parameters, applied over the config only when set
	constant        float64
	xMax            float64
	tol             float64
	maxIter         int
	method          string
	integrator      string
	stepTol         float64
	initialStep     float64
	maxSteps        int
	guard           bool
	floor           float64
	bracketLow      float64
	bracketHigh     float64
	nodes           int
	maxNodes        int
	truncTol        float64
	checkTruncation bool
	autoExtend      bool
	maxXMax         float64
	samples         int

	noCache       bool
	outPath       string
	logLog        bool
	exportSamples int

	log = zerolog.Nop()
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "contactline",
		Short:         "contact-line thin-film profile solver",
		Long:          "Solves h''' = -c/(h²+h) with h(0)=0, h'(0)=1, h''(X)=0 and checks the truncation X.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.StringVar(&logLevel, "log-level", string(logging.LevelInfo), "log level (trace, debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", string(logging.FormatConsole), "log format (console, json)")

	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "solve the boundary-value problem and store the run",
		Args:  cobra.NoArgs,
		RunE:  runSolve,
	}
	addSolveFlags(solveCmd)
	solveCmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the solve cache")
	solveCmd.Flags().StringVar(&outPath, "figure", "", "also write the two-panel figure to this path")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	figureCmd := &cobra.Command{
		Use:   "figure [run_id]",
		Short: "write the two-panel figure of a run (png, svg, pdf)",
		Args:  cobra.ExactArgs(1),
		RunE:  figureRun,
	}
	figureCmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (default <data>/<run>/profile.png)")
	figureCmd.Flags().BoolVar(&logLog, "loglog", false, "also write |h'|, |h''| on log-log axes")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export the grid of a run as x,h,dh,d2h rows",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	exportCSVCmd.Flags().IntVar(&exportSamples, "samples", 0, "resample to this many evenly spaced points")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	exportJSONCmd.Flags().IntVar(&exportSamples, "samples", 0, "resample to this many evenly spaced points")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "solve over several truncations or mesh sizes",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addSolveFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "x_max", "swept parameter ("+strings.Join(experiment.NewRegistry().List(), ", ")+")")
	sweepCmd.Flags().Float64SliceVar(&sweepValues, "values", []float64{20, 50, 500, 5000}, "values of the swept parameter")
	sweepCmd.Flags().IntVar(&concurrency, "concurrency", 0, "solves in flight (default GOMAXPROCS)")

	compareCmd := &cobra.Command{
		Use:   "compare [method[/integrator]]...",
		Short: "compare drivers and integrators on the same problem",
		RunE:  runCompare,
	}
	addSolveFlags(compareCmd)

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "sample the shooting residual h''(X; s) over the bracket",
		Args:  cobra.NoArgs,
		RunE:  runScan,
	}
	addSolveFlags(scanCmd)
	scanCmd.Flags().IntVar(&scanPoints, "points", 41, "number of trial slopes")

	asymptoteCmd := &cobra.Command{
		Use:   "asymptote [run_id]",
		Short: "tabulate the Cox-Voinov law and compare a run with it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAsymptote,
	}
	asymptoteCmd.Flags().Float64Var(&asymFrom, "from", 1e-3, "smallest x")
	asymptoteCmd.Flags().Float64Var(&asymTo, "to", 1e3, "largest x")
	asymptoteCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the θ³, dθ/dx figure to this path")
	asymptoteCmd.Flags().BoolVar(&logLog, "loglog", false, "logarithmic axes")
	asymptoteCmd.Flags().Float64Var(&constant, "ode-constant", config.DefaultConstant, "singularity strength c")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run a scripted sequence of solves",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Printf("  %-12s %s\n", name, config.Presets[name].Description)
			}
			return nil
		},
	}

	exploreCmd := &cobra.Command{
		Use:   "explore",
		Short: "interactive terminal explorer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// the explorer owns the terminal; solve logs go to a file
			if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
				return err
			}
			f, err := os.OpenFile(filepath.Join(cfg.DataDir, "explore.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return viz.Run(cfg, zerolog.Nop())
			}
			defer f.Close()
			flog, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: logging.FormatJSON}, f)
			if err != nil {
				return err
			}
			return viz.Run(cfg, flog)
		},
	}
	addSolveFlags(exploreCmd)

	rootCmd.AddCommand(solveCmd, listCmd, plotCmd, figureCmd, exportCSVCmd, exportJSONCmd,
		sweepCmd, compareCmd, scanCmd, asymptoteCmd, batchCmd, presetsCmd, exploreCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("error:"), err)
		os.Exit(1)
	}
}

func addSolveFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&constant, "ode-constant", config.DefaultConstant, "singularity strength c")
	f.Float64Var(&xMax, "x-max", config.DefaultXMax, "far-field truncation X")
	f.Float64Var(&tol, "tol", config.DefaultTol, "residual tolerance")
	f.IntVar(&maxIter, "max-iter", config.DefaultMaxIter, "root finder / Newton iteration bound")
	f.StringVar(&method, "method", "shooting", "solver: shooting or collocation")
	f.StringVar(&integrator, "integrator", "rk45", "integrator: euler, rk4, rk45 (euler needs a looser --step-tol)")
	f.Float64Var(&stepTol, "step-tol", config.DefaultStepTol, "adaptive step error tolerance")
	f.Float64Var(&initialStep, "initial-step", config.DefaultInitialStep, "initial integration step")
	f.IntVar(&maxSteps, "max-steps", config.DefaultMaxSteps, "step budget per propagation")
	f.BoolVar(&guard, "guard", true, "clamp h near the poles of h'''")
	f.Float64Var(&floor, "floor", config.DefaultFloor, "guard floor")
	f.Float64Var(&bracketLow, "bracket-low", 0, "initial bracket for h''(0)")
	f.Float64Var(&bracketHigh, "bracket-high", 1, "initial bracket for h''(0)")
	f.IntVar(&nodes, "nodes", config.DefaultNodes, "initial collocation nodes")
	f.IntVar(&maxNodes, "max-nodes", config.DefaultMaxNodes, "collocation node budget")
	f.Float64Var(&truncTol, "trunc-tol", config.DefaultTruncTol, "truncation adequacy tolerance")
	f.BoolVar(&checkTruncation, "check", true, "compare with a solve on 2X")
	f.BoolVar(&autoExtend, "auto-extend", false, "double X until the truncation check passes")
	f.Float64Var(&maxXMax, "max-x-max", config.DefaultMaxXMax, "ceiling for auto-extend")
	f.IntVar(&samples, "samples", config.DefaultSamples, "output resampling for figures")
}

// loadConfig layers defaults, preset, config file, environment and the
// flags that were set explicitly, then installs the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		var err error
		cfg, err = config.LoadOver(cfg, configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			apply()
		}
	}
	set("data", func() { cfg.DataDir = dataDir })
	set("log-level", func() { cfg.Log.Level = logging.Level(logLevel) })
	set("log-format", func() { cfg.Log.Format = logging.Format(logFormat) })
	set("ode-constant", func() { cfg.Constant = constant })
	set("x-max", func() { cfg.XMax = xMax })
	set("tol", func() { cfg.Tol = tol })
	set("max-iter", func() { cfg.MaxIter = maxIter })
	set("method", func() { cfg.Method = method })
	set("integrator", func() { cfg.Integrator = integrator })
	set("step-tol", func() { cfg.StepTol = stepTol })
	set("initial-step", func() { cfg.InitialStep = initialStep })
	set("max-steps", func() { cfg.MaxSteps = maxSteps })
	set("guard", func() { cfg.Guard = guard })
	set("floor", func() { cfg.Floor = floor })
	set("bracket-low", func() { cfg.BracketLow = bracketLow })
	set("bracket-high", func() { cfg.BracketHigh = bracketHigh })
	set("nodes", func() { cfg.Nodes = nodes })
	set("max-nodes", func() { cfg.MaxNodes = maxNodes })
	set("trunc-tol", func() { cfg.TruncTol = truncTol })
	set("check", func() { cfg.CheckTruncation = checkTruncation })
	set("auto-extend", func() { cfg.AutoExtend = autoExtend })
	set("max-x-max", func() { cfg.MaxXMax = maxXMax })
	set("samples", func() { cfg.Samples = samples })

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	l, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	log = l
	return cfg, nil
}
