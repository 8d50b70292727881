package main

import (
	"context"
	"testing"

	"github.com/san-kum/dynvar/internal/storage"
	"github.com/spf13/cobra"
)

func TestParseGrid(t *testing.T) {
	names, ranges, err := parseGrid([]string{"obs_sigma=0.1, 0.5,1", "rho=28"})
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "obs_sigma" || names[1] != "rho" {
		t.Errorf("names = %v", names)
	}
	if len(ranges[0]) != 3 || ranges[0][1] != 0.5 || ranges[1][0] != 28 {
		t.Errorf("ranges = %v", ranges)
	}

	for _, bad := range []string{"obs_sigma", "=1", "rho=a"} {
		if _, _, err := parseGrid([]string{bad}); err == nil {
			t.Errorf("parseGrid(%q) should fail", bad)
		}
	}
}

func TestFormatParams(t *testing.T) {
	got := formatParams([]string{"rho", "obs_sigma"}, map[string]float64{"obs_sigma": 0.5, "rho": 28})
	if want := "rho=28 obs_sigma=0.5"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoadConfigFlagsOverridePreset(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addExperimentFlags(cmd)
	addAssimFlags(cmd)
	t.Cleanup(func() { preset = "" })

	for flag, val := range map[string]string{
		"preset":    "day",
		"nstep":     "12",
		"obs-every": "3",
		"param":     "rate=1.5",
	} {
		if err := cmd.Flags().Set(flag, val); err != nil {
			t.Fatal(err)
		}
	}

	cfg, err := loadConfig(cmd, []string{"emissions"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model != "emissions" || cfg.NStep != 12 || cfg.Assim.ObsEvery != 3 {
		t.Errorf("got model=%s nstep=%d obs_every=%d", cfg.Model, cfg.NStep, cfg.Assim.ObsEvery)
	}
	if cfg.Assim.ObsSigma != 0.1 {
		t.Errorf("preset obs_sigma lost: %g", cfg.Assim.ObsSigma)
	}
	if cfg.Params["rate"] != 1.5 {
		t.Errorf("params = %v", cfg.Params)
	}
}

func TestLoadConfigUnknownPreset(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addExperimentFlags(cmd)
	t.Cleanup(func() { preset = "" })

	if err := cmd.Flags().Set("preset", "nope"); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(cmd, nil); err == nil {
		t.Error("expected unknown preset error")
	}
}

func TestRunAssimilateSavesRun(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addExperimentFlags(cmd)
	addAssimFlags(cmd)
	cmd.SetContext(context.Background())

	prevDir, prevMax := dataDir, maxIter
	dataDir = t.TempDir()
	watch = false
	t.Cleanup(func() {
		preset = ""
		dataDir, maxIter = prevDir, prevMax
	})

	for flag, val := range map[string]string{"preset": "day", "max-iter": "5"} {
		if err := cmd.Flags().Set(flag, val); err != nil {
			t.Fatal(err)
		}
	}
	if err := runAssimilate(cmd, []string{"emissions"}); err != nil {
		t.Fatal(err)
	}

	runs, err := storage.New(dataDir).List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Kind != "assimilate" {
		t.Fatalf("runs = %+v", runs)
	}
	if _, ok := runs[0].Metrics["iterations"]; !ok {
		t.Errorf("metrics = %v", runs[0].Metrics)
	}
}
