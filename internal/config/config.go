package config

import (
	"fmt"
	"os"

	"github.com/san-kum/dynvar/internal/dynamo"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt              = 0.01
	DefaultNStep           = 100
	DefaultObsEvery        = 10
	DefaultObsSigma        = 0.5
	DefaultBackgroundSigma = 1.0
	DefaultMaxIterations   = 100
	DefaultGradTol         = 1e-6
	DefaultC0              = 400.0
	DefaultRate            = 2.0
)

type Config struct {
	Model     string             `yaml:"model"`
	Dt        float64            `yaml:"dt"`
	NStep     int                `yaml:"nstep"`
	XLen      int                `yaml:"x_len,omitempty"`
	Seed      uint64             `yaml:"seed"`
	Params    map[string]float64 `yaml:"params,omitempty"`
	InitState []float64          `yaml:"init_state,omitempty"`
	Emissions EmissionsConfig    `yaml:"emissions"`
	Assim     AssimConfig        `yaml:"assim"`
}

type EmissionsConfig struct {
	C0   float64 `yaml:"c0"`
	Rate float64 `yaml:"rate"`
}

type AssimConfig struct {
	ObsEvery        int     `yaml:"obs_every"`
	ObsSigma        float64 `yaml:"obs_sigma"`
	Components      []int   `yaml:"components,omitempty"`
	BackgroundSigma float64 `yaml:"background_sigma"`
	MaxIterations   int     `yaml:"max_iterations"`
	GradTol         float64 `yaml:"grad_tol"`
	StrictForcing   bool    `yaml:"strict_forcing"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:     "lorenz",
		Dt:        DefaultDt,
		NStep:     DefaultNStep,
		InitState: []float64{1, 1, 1},
		Emissions: EmissionsConfig{
			C0:   DefaultC0,
			Rate: DefaultRate,
		},
		Assim: AssimConfig{
			ObsEvery:        DefaultObsEvery,
			ObsSigma:        DefaultObsSigma,
			BackgroundSigma: DefaultBackgroundSigma,
			MaxIterations:   DefaultMaxIterations,
			GradTol:         DefaultGradTol,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IntegratorConfig returns the integration constants. An unset x_len is
// derived from the model.
func (c *Config) IntegratorConfig() dynamo.Config {
	xlen := c.XLen
	if xlen == 0 {
		switch c.Model {
		case "emissions":
			xlen = c.NStep + 1
		default:
			xlen = 3
		}
	}
	return dynamo.Config{Dt: c.Dt, NStep: c.NStep, XLen: xlen}
}

func (c *Config) Validate() error {
	switch c.Model {
	case "lorenz", "emissions":
	default:
		return fmt.Errorf("%w: unknown model %q", dynamo.ErrConfig, c.Model)
	}
	if err := c.IntegratorConfig().Validate(); err != nil {
		return err
	}
	if c.Model == "lorenz" && len(c.InitState) != 0 && len(c.InitState) != 3 {
		return dynamo.DimensionError("init_state", len(c.InitState), 3)
	}
	a := c.Assim
	if a.ObsEvery <= 0 || a.ObsEvery > c.NStep {
		return fmt.Errorf("%w: obs_every must be in [1, %d], got %d", dynamo.ErrConfig, c.NStep, a.ObsEvery)
	}
	if !(a.ObsSigma > 0) || !(a.BackgroundSigma > 0) {
		return fmt.Errorf("%w: obs_sigma and background_sigma must be positive", dynamo.ErrConfig)
	}
	if a.MaxIterations <= 0 {
		return fmt.Errorf("%w: max_iterations must be positive, got %d", dynamo.ErrConfig, a.MaxIterations)
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	cp.InitState = append([]float64(nil), c.InitState...)
	cp.Assim.Components = append([]int(nil), c.Assim.Components...)
	if c.Params != nil {
		cp.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			cp.Params[k] = v
		}
	}
	return &cp
}

// GetInitState returns the control vector the experiment starts from.
func (c *Config) GetInitState() []float64 {
	switch c.Model {
	case "emissions":
		x := make([]float64, c.NStep+1)
		x[0] = c.Emissions.C0
		for i := 1; i < len(x); i++ {
			x[i] = c.Emissions.Rate
		}
		return x
	default:
		if len(c.InitState) == 0 {
			return []float64{1, 1, 1}
		}
		return append([]float64(nil), c.InitState...)
	}
}
