package assim

import (
	"fmt"

	"github.com/san-kum/dynvar/internal/dynamo"
)

// Observation is a measurement of the selected components of X[Step].
type Observation struct {
	Step  int          `json:"step" yaml:"step"`
	Value dynamo.State `json:"value" yaml:"value"`
	Sigma float64      `json:"sigma" yaml:"sigma"`
}

// Selector is the observation operator H that picks components of a
// trajectory state. A nil or empty component list observes every component.
type Selector struct {
	dim        int
	components []int
}

func NewSelector(dim int, components []int) (*Selector, error) {
	if len(components) == 0 {
		components = make([]int, dim)
		for i := range components {
			components[i] = i
		}
	}
	seen := make(map[int]bool, len(components))
	for _, c := range components {
		if c < 0 || c >= dim {
			return nil, fmt.Errorf("%w: observed component %d outside [0, %d)", dynamo.ErrDimension, c, dim)
		}
		if seen[c] {
			return nil, fmt.Errorf("%w: component %d observed twice", dynamo.ErrConfig, c)
		}
		seen[c] = true
	}
	return &Selector{dim: dim, components: append([]int(nil), components...)}, nil
}

func (s *Selector) Dim() int          { return s.dim }
func (s *Selector) ObsDim() int       { return len(s.components) }
func (s *Selector) Components() []int { return append([]int(nil), s.components...) }

// Apply returns H·x.
func (s *Selector) Apply(x dynamo.State) dynamo.State {
	y := make(dynamo.State, len(s.components))
	for j, c := range s.components {
		y[j] = x[c]
	}
	return y
}

// AddAdjoint accumulates Hᵀ·r onto dst.
func (s *Selector) AddAdjoint(dst, r dynamo.State) {
	for j, c := range s.components {
		dst[c] += r[j]
	}
}
