package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/dynvar/internal/experiment"
	"github.com/san-kum/dynvar/internal/optim"
	"github.com/san-kum/dynvar/internal/viz"
	"github.com/spf13/cobra"
)

// parseGrid turns "name=v1,v2,..." axes into names and ranges.
func parseGrid(axes []string) ([]string, [][]float64, error) {
	var names []string
	var ranges [][]float64
	for _, axis := range axes {
		name, list, ok := strings.Cut(axis, "=")
		if !ok || name == "" {
			return nil, nil, fmt.Errorf("grid axis %q: want name=v1,v2", axis)
		}
		var vals []float64
		for _, f := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid axis %s: %w", name, err)
			}
			vals = append(vals, v)
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}
	return names, ranges, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	names, ranges, err := parseGrid(grid)
	if err != nil {
		return err
	}
	g, err := optim.NewGridSearch(names, ranges, logger)
	if err != nil {
		return err
	}

	res, err := g.Search(cmd.Context(), cfg, experiment.NewRegistry(), metric)
	if err != nil {
		return err
	}

	rows := make([]viz.Row, 0, len(res.Points)+1)
	for _, p := range res.Points {
		rows = append(rows, viz.Row{Label: formatParams(names, p.Params), Value: viz.Float(p.Value)})
	}
	rows = append(rows, viz.Row{Label: "best", Value: formatParams(names, res.Best) + "  " + viz.Float(res.BestValue)})
	fmt.Println(viz.Panel(fmt.Sprintf("sweep: %s (%s)", cfg.Model, metric), rows))
	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	ens, err := experiment.NewEnsemble(cfg, experiment.NewRegistry(), logger, members, workers)
	if err != nil {
		return err
	}

	sum, err := ens.Run(cmd.Context())
	if err != nil {
		return err
	}

	var rows []viz.Row
	for _, name := range sum.Metrics() {
		rows = append(rows, viz.Row{
			Label: name,
			Value: fmt.Sprintf("%s ± %s", viz.Float(sum.Mean[name]), viz.Float(sum.StdDev[name])),
		})
	}
	fmt.Println(viz.Panel(fmt.Sprintf("ensemble: %s, %d members", cfg.Model, len(sum.Outcomes)), rows))
	return nil
}

func formatParams(order []string, params map[string]float64) string {
	keys := append([]string(nil), order...)
	if len(keys) == 0 {
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%g", k, params[k]))
	}
	return strings.Join(parts, " ")
}
