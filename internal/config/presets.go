package config

import "sort"

var Presets = map[string]map[string]*Config{
	"lorenz": {
		"short": {
			Model: "lorenz", Dt: 0.01, NStep: 100, InitState: []float64{1, 1, 1},
			Assim: AssimConfig{ObsEvery: 10, ObsSigma: 0.5, BackgroundSigma: 1, MaxIterations: 100, GradTol: 1e-6},
		},
		"attractor": {
			Model: "lorenz", Dt: 0.01, NStep: 200, InitState: []float64{-5.8, -5.5, 24.0},
			Assim: AssimConfig{ObsEvery: 20, ObsSigma: 1, BackgroundSigma: 2, MaxIterations: 200, GradTol: 1e-6},
		},
		"sparse_x": {
			Model: "lorenz", Dt: 0.01, NStep: 150, InitState: []float64{1, 1, 1},
			Assim: AssimConfig{ObsEvery: 5, ObsSigma: 0.3, Components: []int{0}, BackgroundSigma: 1, MaxIterations: 200, GradTol: 1e-6},
		},
		"long": {
			Model: "lorenz", Dt: 0.005, NStep: 1000, InitState: []float64{1, 1, 1},
			Assim: AssimConfig{ObsEvery: 50, ObsSigma: 0.5, BackgroundSigma: 1, MaxIterations: 300, GradTol: 1e-6},
		},
	},
	"emissions": {
		"day": {
			Model: "emissions", Dt: 1, NStep: 24, Emissions: EmissionsConfig{C0: 400, Rate: 2},
			Assim: AssimConfig{ObsEvery: 1, ObsSigma: 0.1, BackgroundSigma: 1, MaxIterations: 100, GradTol: 1e-8},
		},
		"week": {
			Model: "emissions", Dt: 1, NStep: 168, Emissions: EmissionsConfig{C0: 400, Rate: 0.5},
			Assim: AssimConfig{ObsEvery: 6, ObsSigma: 0.2, BackgroundSigma: 0.5, MaxIterations: 200, GradTol: 1e-8},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, name string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	p, ok := modelPresets[name]
	if !ok {
		return nil
	}
	return p.Clone()
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
