package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/dynvar/internal/dynamo"
)

// Point2 is a point of a planar projection.
type Point2 struct{ X, Y float64 }

// PhasePortrait is the projection of a trajectory onto two components.
type PhasePortrait struct {
	XIndex, YIndex int
	Points         []Point2
}

// NewPhasePortrait projects every column of traj onto components xIdx, yIdx.
func NewPhasePortrait(traj *dynamo.Trajectory, xIdx, yIdx int) (*PhasePortrait, error) {
	if err := checkComponents(traj, xIdx, yIdx); err != nil {
		return nil, err
	}

	portrait := &PhasePortrait{XIndex: xIdx, YIndex: yIdx, Points: make([]Point2, traj.Len())}
	for k := range portrait.Points {
		x := traj.At(k)
		portrait.Points[k] = Point2{X: x[xIdx], Y: x[yIdx]}
	}
	return portrait, nil
}

// PoincareSection records (recordX, recordY) each time component crossIdx
// passes upward through threshold, interpolated linearly within the step.
func PoincareSection(traj *dynamo.Trajectory, crossIdx int, threshold float64, recordX, recordY int) ([]Point2, error) {
	if err := checkComponents(traj, crossIdx, recordX, recordY); err != nil {
		return nil, err
	}

	var section []Point2
	prev := traj.At(0)
	for k := 1; k < traj.Len(); k++ {
		curr := traj.At(k)
		if prev[crossIdx] < threshold && curr[crossIdx] >= threshold {
			frac := (threshold - prev[crossIdx]) / (curr[crossIdx] - prev[crossIdx])
			if math.IsNaN(frac) || math.IsInf(frac, 0) {
				frac = 0.5
			}
			section = append(section, Point2{
				X: prev[recordX] + frac*(curr[recordX]-prev[recordX]),
				Y: prev[recordY] + frac*(curr[recordY]-prev[recordY]),
			})
		}
		prev = curr
	}
	return section, nil
}

func checkComponents(traj *dynamo.Trajectory, idx ...int) error {
	for _, i := range idx {
		if i < 0 || i >= traj.Dim() {
			return fmt.Errorf("%w: component %d out of range [0, %d)", dynamo.ErrDimension, i, traj.Dim())
		}
	}
	return nil
}

// ScatterASCII draws points on a width×height character grid with axes
// where they cross the visible area.
func ScatterASCII(points []Point2, width, height int) string {
	if len(points) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, p := range points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int(-minX / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int(-minY/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
