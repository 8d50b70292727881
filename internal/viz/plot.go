package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/dynvar/internal/dynamo"
)

const (
	plotWidth  = 70
	plotHeight = 15
)

var seriesColors = []asciigraph.AnsiColor{asciigraph.Cyan, asciigraph.Magenta, asciigraph.Yellow, asciigraph.Green}

// PlotTrajectory draws the selected components of traj against step index.
// An empty component list plots every component.
func PlotTrajectory(traj *dynamo.Trajectory, components []int, caption string) string {
	if len(components) == 0 {
		for i := 0; i < traj.Dim(); i++ {
			components = append(components, i)
		}
	}

	series := make([][]float64, 0, len(components))
	colors := make([]asciigraph.AnsiColor, 0, len(components))
	for j, c := range components {
		if c < 0 || c >= traj.Dim() {
			continue
		}
		series = append(series, traj.Component(c))
		colors = append(colors, seriesColors[j%len(seriesColors)])
	}
	if len(series) == 0 {
		return ""
	}

	return asciigraph.PlotMany(series,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption(caption),
	)
}

// PlotCost draws log10 of a cost history.
func PlotCost(costs []float64) string {
	// non-finite costs (rejected trial points) are left out of the plot
	logs := make([]float64, 0, len(costs))
	for _, c := range costs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			continue
		}
		logs = append(logs, math.Log10(math.Max(c, 1e-300)))
	}
	if len(logs) < 2 {
		return Subtle.Render("(waiting for iterations)")
	}
	return asciigraph.Plot(logs,
		asciigraph.Height(8),
		asciigraph.Width(plotWidth-10),
		asciigraph.Caption(fmt.Sprintf("log10 cost over %d iterations", len(costs))),
	)
}
