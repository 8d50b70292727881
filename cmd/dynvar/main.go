package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"

	"github.com/san-kum/dynvar/internal/config"
	"github.com/san-kum/dynvar/internal/experiment"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dataDir    string
	verbose    bool
	configFile string
	preset     string
	dt         float64
	nstep      int
	seed       uint64
	initState  []float64
	params     map[string]string
	obsEvery   int
	obsSigma   float64
	components []int
	maxIter    int
	strict     bool
	watch      bool
	windows    int
	artifact   string
	grid       []string
	metric     string
	members    int
	workers    int
	phase      []int
	spectrum   bool
	bifParam   string
	bifFrom    float64
	bifTo      float64
	bifSteps   int
	component  int
	transient  int

	logger = zap.NewNop()
)

// main registers the dynvar commands and executes the root command.
// It exits the process with status 1 if command execution returns an error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "dynvar",
		Short:         "tangent-linear / adjoint integrator and 4D-Var twin lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".dynvar", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	forwardCmd := &cobra.Command{
		Use:   "forward [model]",
		Short: "integrate a model and store the trajectory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runForward,
	}
	addExperimentFlags(forwardCmd)

	gradCmd := &cobra.Command{
		Use:   "gradcheck [model]",
		Short: "run dot-product, linearity and finite-difference checks",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGradCheck,
	}
	addExperimentFlags(gradCmd)
	addAssimFlags(gradCmd)

	assimCmd := &cobra.Command{
		Use:   "assimilate [model]",
		Short: "run a 4D-Var twin experiment",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAssimilate,
	}
	addExperimentFlags(assimCmd)
	addAssimFlags(assimCmd)
	assimCmd.Flags().BoolVarP(&watch, "watch", "w", false, "show live minimisation progress")

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [model]",
		Short: "estimate the largest Lyapunov exponent from the tangent-linear model",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLyapunov,
	}
	addExperimentFlags(lyapunovCmd)
	lyapunovCmd.Flags().IntVar(&windows, "windows", 100, "number of renormalisation windows")

	sweepCmd := &cobra.Command{
		Use:   "sweep [model]",
		Short: "grid search over assimilation settings or model parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addExperimentFlags(sweepCmd)
	addAssimFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&grid, "grid", nil, "grid axis, e.g. --grid obs_sigma=0.1,0.5,1")
	sweepCmd.Flags().StringVar(&metric, "metric", "rmse_analysis", "outcome metric to minimise")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [model]",
		Short: "repeat a twin experiment over consecutive seeds",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	addExperimentFlags(ensembleCmd)
	addAssimFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&members, "members", 8, "number of twin experiments")
	ensembleCmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "concurrent experiments")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&artifact, "artifact", "", "trajectory to plot (default xtraj)")
	plotCmd.Flags().IntSliceVar(&phase, "phase", nil, "phase portrait of two components, e.g. --phase 0,2")
	plotCmd.Flags().BoolVar(&spectrum, "spectrum", false, "print the dominant period of each component")

	bifCmd := &cobra.Command{
		Use:   "bifurcation [model]",
		Short: "local maxima of one component across a parameter range",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBifurcation,
	}
	addExperimentFlags(bifCmd)
	bifCmd.Flags().StringVar(&bifParam, "sweep", "rho", "model parameter to sweep")
	bifCmd.Flags().Float64Var(&bifFrom, "from", 20, "first parameter value")
	bifCmd.Flags().Float64Var(&bifTo, "to", 30, "last parameter value")
	bifCmd.Flags().IntVar(&bifSteps, "steps", 40, "number of parameter values")
	bifCmd.Flags().IntVar(&component, "component", 2, "recorded state component")
	bifCmd.Flags().IntVar(&transient, "transient", 500, "steps discarded before recording")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and trajectory to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVar(&artifact, "artifact", "", "trajectory to export (default xtraj)")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list registered models",
		Run: func(cmd *cobra.Command, args []string) {
			for _, m := range experiment.NewRegistry().ListModels() {
				fmt.Println(m)
			}
		},
	}

	rootCmd.AddCommand(forwardCmd, gradCmd, assimCmd, lyapunovCmd, sweepCmd, ensembleCmd, bifCmd, listCmd, plotCmd, exportJSONCmd, presetsCmd, modelsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func addExperimentFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().IntVar(&nstep, "nstep", config.DefaultNStep, "number of steps")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().Float64SliceVar(&initState, "init", nil, "initial state")
	cmd.Flags().StringToStringVar(&params, "param", nil, "model parameter, e.g. --param rho=28")
}

func addAssimFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&obsEvery, "obs-every", config.DefaultObsEvery, "observation interval in steps")
	cmd.Flags().Float64Var(&obsSigma, "obs-sigma", config.DefaultObsSigma, "observation error standard deviation")
	cmd.Flags().IntSliceVar(&components, "components", nil, "observed state components (default all)")
	cmd.Flags().IntVar(&maxIter, "max-iter", config.DefaultMaxIterations, "maximum minimiser iterations")
	cmd.Flags().BoolVar(&strict, "strict", false, "reject forcing at step 0")
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// loadConfig resolves preset, then config file, then explicitly set flags.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	model := "lorenz"
	if len(args) > 0 {
		model = args[0]
	}

	cfg := config.DefaultConfig()
	cfg.Model = model
	if preset != "" {
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q for model %s", preset, model)
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		if len(args) > 0 {
			cfg.Model = model
		}
	}

	f := cmd.Flags()
	if f.Changed("dt") {
		cfg.Dt = dt
	}
	if f.Changed("nstep") {
		cfg.NStep = nstep
	}
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("init") {
		cfg.InitState = initState
	}
	if f.Changed("param") {
		if cfg.Params == nil {
			cfg.Params = map[string]float64{}
		}
		for k, v := range params {
			x, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("param %s: %w", k, err)
			}
			cfg.Params[k] = x
		}
	}
	if f.Lookup("obs-every") != nil {
		if f.Changed("obs-every") {
			cfg.Assim.ObsEvery = obsEvery
		}
		if f.Changed("obs-sigma") {
			cfg.Assim.ObsSigma = obsSigma
		}
		if f.Changed("components") {
			cfg.Assim.Components = components
		}
		if f.Changed("max-iter") {
			cfg.Assim.MaxIterations = maxIter
		}
		if f.Changed("strict") {
			cfg.Assim.StrictForcing = strict
		}
	}
	if cfg.Assim.ObsEvery > cfg.NStep {
		cfg.Assim.ObsEvery = cfg.NStep
	}

	logger.Debug("config resolved",
		zap.String("model", cfg.Model),
		zap.Float64("dt", cfg.Dt),
		zap.Int("nstep", cfg.NStep),
		zap.Uint64("seed", cfg.Seed),
	)
	return cfg, nil
}

func newExperiment(cmd *cobra.Command, args []string) (*experiment.Experiment, error) {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return nil, err
	}
	return experiment.New(cfg, experiment.NewRegistry(), logger)
}
