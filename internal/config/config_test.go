package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/dynvar/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "lorenz", cfg.Model)
	assert.Positive(t, cfg.Dt)
	assert.Positive(t, cfg.NStep)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, dynamo.Config{Dt: DefaultDt, NStep: DefaultNStep, XLen: 3}, cfg.IntegratorConfig())
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("lorenz", "sparse_x")
	require.NotNil(t, cfg)
	assert.Equal(t, []int{0}, cfg.Assim.Components)
	require.NoError(t, cfg.Validate())

	cfg.Assim.Components[0] = 2
	assert.Equal(t, 0, Presets["lorenz"]["sparse_x"].Assim.Components[0], "preset mutated through copy")
}

func TestGetPreset_NotFound(t *testing.T) {
	assert.Nil(t, GetPreset("lorenz", "nonexistent"))
	assert.Nil(t, GetPreset("nonexistent", "short"))
}

func TestPresetsValidate(t *testing.T) {
	for model := range Presets {
		for _, name := range ListPresets(model) {
			t.Run(model+"/"+name, func(t *testing.T) {
				assert.NoError(t, GetPreset(model, name).Validate())
			})
		}
	}
}

func TestListPresets(t *testing.T) {
	assert.Equal(t, []string{"day", "week"}, ListPresets("emissions"))
	assert.Nil(t, ListPresets("nonexistent"))
}

func TestEmissionsConfig(t *testing.T) {
	cfg := GetPreset("emissions", "day")
	require.NotNil(t, cfg)

	ic := cfg.IntegratorConfig()
	assert.Equal(t, 25, ic.XLen)

	x := cfg.GetInitState()
	require.Len(t, x, 25)
	assert.Equal(t, 400.0, x[0])
	assert.Equal(t, 2.0, x[24])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"unknown model", func(c *Config) { c.Model = "pendulum" }, dynamo.ErrConfig},
		{"zero dt", func(c *Config) { c.Dt = 0 }, dynamo.ErrConfig},
		{"negative nstep", func(c *Config) { c.NStep = -1 }, dynamo.ErrConfig},
		{"bad init state", func(c *Config) { c.InitState = []float64{1, 2} }, dynamo.ErrDimension},
		{"obs every too large", func(c *Config) { c.Assim.ObsEvery = 1000 }, dynamo.ErrConfig},
		{"zero obs sigma", func(c *Config) { c.Assim.ObsSigma = 0 }, dynamo.ErrConfig},
		{"zero iterations", func(c *Config) { c.Assim.MaxIterations = 0 }, dynamo.ErrConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exp.yaml")
	cfg := GetPreset("lorenz", "attractor")
	cfg.Seed = 99
	cfg.Params = map[string]float64{"rho": 30}
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.NStep, got.NStep)
	assert.Equal(t, cfg.InitState, got.InitState)
	assert.Equal(t, uint64(99), got.Seed)
	assert.Equal(t, 30.0, got.Params["rho"])
	assert.Equal(t, cfg.Assim, got.Assim)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: lorenz\nnstep: 250\n"), 0644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250, got.NStep)
	assert.Equal(t, DefaultDt, got.Dt)
	assert.Equal(t, DefaultObsSigma, got.Assim.ObsSigma)
}

func TestClone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Params = map[string]float64{"rho": 28}
	cfg.Assim.Components = []int{0, 2}

	cp := cfg.Clone()
	cp.InitState[0] = 99
	cp.Params["rho"] = 1
	cp.Assim.Components[0] = 1

	assert.Equal(t, 1.0, cfg.InitState[0])
	assert.Equal(t, 28.0, cfg.Params["rho"])
	assert.Equal(t, []int{0, 2}, cfg.Assim.Components)
}
