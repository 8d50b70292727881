package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/dynvar/internal/analysis"
	"github.com/san-kum/dynvar/internal/assim"
	"github.com/san-kum/dynvar/internal/config"
	"github.com/san-kum/dynvar/internal/dynamo"
	"github.com/san-kum/dynvar/internal/experiment"
	"github.com/san-kum/dynvar/internal/optim"
	"github.com/san-kum/dynvar/internal/storage"
	"github.com/san-kum/dynvar/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	dotTol       = 1e-10
	linearityTol = 1e-8
	fdTol        = 1e-4
)

func runForward(cmd *cobra.Command, args []string) error {
	exp, err := newExperiment(cmd, args)
	if err != nil {
		return err
	}
	cfg := exp.Config()

	traj, err := exp.Forward(cmd.Context())
	if err != nil {
		var se *dynamo.StepError
		if errors.As(err, &se) {
			logger.Warn("forward run diverged", zap.Int("step", se.Step), zap.Float64("t", se.Time))
		}
		return err
	}

	id, err := saveRun(cfg, "forward", nil, map[string]*dynamo.Trajectory{storage.TrajectoryFile: traj})
	if err != nil {
		return err
	}

	fmt.Println(viz.PlotTrajectory(traj, nil, fmt.Sprintf("%s: %d steps, dt=%g", cfg.Model, cfg.NStep, cfg.Dt)))
	fmt.Println()
	fmt.Println(viz.Panel("forward", []viz.Row{
		{Label: "run", Value: id},
		{Label: "final state", Value: fmt.Sprintf("%.6g", []float64(traj.Final()))},
	}))
	return nil
}

func runGradCheck(cmd *cobra.Command, args []string) error {
	exp, err := newExperiment(cmd, args)
	if err != nil {
		return err
	}

	rep, err := exp.GradCheck(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Println(viz.Panel("gradient checks: "+exp.Config().Model, []viz.Row{
		{Label: "<TL dx, y>", Value: viz.Float(rep.DotProduct.Forward)},
		{Label: "<dx, AD y>", Value: viz.Float(rep.DotProduct.Backward)},
		{Label: "dot product rel err", Value: viz.Float(rep.DotProduct.RelError), OK: viz.Pass(rep.DotProduct.Passed(dotTol))},
		{Label: "forcing dot rel err", Value: viz.Float(rep.DotForcing.RelError), OK: viz.Pass(rep.DotForcing.Passed(dotTol))},
		{Label: "linearity residual", Value: viz.Float(rep.Linearity), OK: viz.Pass(rep.Linearity < linearityTol)},
		{Label: "zero forcing", Value: "AD 0 = 0", OK: viz.Pass(rep.ZeroForcingOK)},
		{Label: "cost gradient (AD)", Value: viz.Float(rep.CostGradient.Analytic)},
		{Label: "cost gradient (FD)", Value: viz.Float(rep.CostGradient.Numeric)},
		{Label: "cost gradient rel err", Value: viz.Float(rep.CostGradient.RelError), OK: viz.Pass(rep.CostGradient.RelError < fdTol)},
	}))

	if !rep.DotProduct.Passed(dotTol) || !rep.DotForcing.Passed(dotTol) || !rep.ZeroForcingOK {
		return fmt.Errorf("adjoint is inconsistent with the tangent-linear model")
	}
	return nil
}

func runAssimilate(cmd *cobra.Command, args []string) error {
	exp, err := newExperiment(cmd, args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var out *experiment.Outcome
	if watch {
		out, err = watchAssimilation(ctx, exp)
	} else {
		out, err = exp.Assimilate(ctx, func(it assim.Iteration) error {
			fmt.Printf("iter %3d  cost %-14.6g |grad| %-12.4g evals %d\n", it.N, it.Cost, it.GradNorm, it.Evals)
			return nil
		})
	}
	if err != nil {
		return err
	}

	id, err := saveRun(exp.Config(), "assimilate", out.Metrics, map[string]*dynamo.Trajectory{
		storage.TrajectoryFile: out.Forecast,
		"truth":                out.Twin.Truth,
		"background":           out.Background,
	})
	if err != nil {
		return err
	}

	costs := make([]float64, len(out.Analysis.Iterations))
	for i, it := range out.Analysis.Iterations {
		costs[i] = it.Cost
	}
	fmt.Println(viz.PlotCost(costs))
	fmt.Println()
	fmt.Println(viz.Panel("4D-Var twin: "+exp.Config().Model, []viz.Row{
		{Label: "run", Value: id},
		{Label: "status", Value: out.Analysis.Status},
		{Label: "iterations", Value: fmt.Sprint(out.Metrics["iterations"])},
		{Label: "cost", Value: viz.Float(out.Analysis.Cost)},
		{Label: "|grad|", Value: viz.Float(out.Analysis.GradNorm)},
		{Label: "rmse background", Value: viz.Float(out.Metrics["rmse_background"])},
		{Label: "rmse analysis", Value: viz.Float(out.Metrics["rmse_analysis"]),
			OK: viz.Pass(out.Metrics["rmse_analysis"] <= out.Metrics["rmse_background"])},
	}))
	return nil
}

func watchAssimilation(ctx context.Context, exp *experiment.Experiment) (*experiment.Outcome, error) {
	twin, p, err := exp.Twin(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	settings := exp.Settings()
	events := assim.Stream(ctx, p, settings)
	final, err := tea.NewProgram(viz.NewProgressModel("4D-Var: "+exp.Config().Model, events, settings.MaxIterations)).Run()
	if err != nil {
		return nil, err
	}

	pm := final.(viz.ProgressModel)
	if pm.Aborted() {
		return nil, fmt.Errorf("assimilation aborted")
	}
	an, err := pm.Result()
	if err != nil {
		return nil, err
	}
	if an == nil {
		return nil, ctx.Err()
	}
	return exp.Finish(ctx, twin, an)
}

func runLyapunov(cmd *cobra.Command, args []string) error {
	exp, err := newExperiment(cmd, args)
	if err != nil {
		return err
	}

	lambda, err := exp.Lyapunov(cmd.Context(), windows)
	if err != nil {
		return err
	}

	cfg := exp.Config()
	fmt.Println(viz.Panel("lyapunov: "+cfg.Model, []viz.Row{
		{Label: "windows", Value: fmt.Sprint(windows)},
		{Label: "window length", Value: viz.Float(float64(cfg.NStep) * cfg.Dt)},
		{Label: "largest exponent", Value: viz.Float(lambda)},
	}))
	return nil
}

func saveRun(cfg *config.Config, kind string, m map[string]float64, artifacts map[string]*dynamo.Trajectory) (string, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return "", err
	}
	ic := cfg.IntegratorConfig()
	id, err := st.Save(storage.RunMetadata{
		Kind:    kind,
		Model:   cfg.Model,
		Seed:    cfg.Seed,
		Dt:      ic.Dt,
		NStep:   ic.NStep,
		XLen:    ic.XLen,
		Metrics: m,
	}, artifacts)
	if err != nil {
		return "", err
	}
	logger.Debug("run saved", zap.String("id", id), zap.String("dir", dataDir))
	return id, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tMODEL\tTIME\tDT\tNSTEP\tARTIFACTS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.4g\t%d\t%v\n",
			run.ID,
			run.Kind,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Dt,
			run.NStep,
			run.Artifacts,
		)
	}

	return w.Flush()
}

func artifactName() string {
	if artifact == "" {
		return storage.TrajectoryFile
	}
	return artifact
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	traj, err := st.LoadTrajectory(runID, artifactName())
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("samples: %d\n\n", traj.Len())

	if len(phase) > 0 {
		if len(phase) != 2 {
			return fmt.Errorf("--phase needs two components, got %v", phase)
		}
		portrait, err := analysis.NewPhasePortrait(traj, phase[0], phase[1])
		if err != nil {
			return err
		}
		fmt.Printf("phase portrait x%d vs x%d\n", phase[0], phase[1])
		fmt.Println(analysis.ScatterASCII(portrait.Points, 70, 24))
		return nil
	}

	// one plot per component; emissions runs only have the concentration
	for i := 0; i < traj.Dim(); i++ {
		fmt.Println(viz.PlotTrajectory(traj, []int{i}, fmt.Sprintf("x%d vs step", i)))
		if spectrum {
			period, err := analysis.DominantPeriod(traj.Component(i), meta.Dt)
			if err != nil {
				return err
			}
			fmt.Printf("dominant period: %.4g\n", period)
		}
		fmt.Println()
	}
	return nil
}

func runBifurcation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if bifSteps < 2 {
		return fmt.Errorf("--steps must be at least 2, got %d", bifSteps)
	}

	params := make([]float64, bifSteps)
	for i := range params {
		params[i] = bifFrom + float64(i)*(bifTo-bifFrom)/float64(bifSteps-1)
	}

	reg := experiment.NewRegistry()
	build := func(v float64) (dynamo.ForwardOperator, error) {
		c := cfg.Clone()
		optim.Apply(c, bifParam, v)
		op, err := reg.GetOperator(c.Model, c.IntegratorConfig(), experiment.Options{Params: c.Params})
		if err != nil {
			return nil, err
		}
		return op, nil
	}

	pts, err := analysis.BifurcationDiagram(cmd.Context(), build, cfg.GetInitState(), params, component, transient)
	if err != nil {
		return err
	}

	fmt.Printf("maxima of x%d for %s in [%g, %g]\n", component, bifParam, bifFrom, bifTo)
	fmt.Println(analysis.BifurcationToASCII(pts, 70, 24))
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	traj, err := st.LoadTrajectory(runID, artifactName())
	if err != nil {
		return err
	}

	return storage.WriteJSON(os.Stdout, *meta, traj)
}
