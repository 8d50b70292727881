package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/san-kum/dynvar/internal/dynamo"
	"github.com/sebdah/goldie/v2"
)

func testTrajectory(t *testing.T) *dynamo.Trajectory {
	t.Helper()
	traj, err := dynamo.TrajectoryFrom([]dynamo.State{{1, 2, 3}, {4, 5, 6}})
	if err != nil {
		t.Fatal(err)
	}
	return traj
}

func TestTrajectoryCSVGolden(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTrajectoryCSV(&buf, 0.5, testTrajectory(t)); err != nil {
		t.Fatal(err)
	}

	g := goldie.New(t)
	g.Assert(t, "trajectory", buf.Bytes())
}

func TestTrajectoryCSVRoundTripIsExact(t *testing.T) {
	orig, err := dynamo.TrajectoryFrom([]dynamo.State{
		{1.0 / 3.0, -2.0 / 7.0, 1e-300},
		{0.1 + 0.2, 123456789.123456789, -0.0},
	})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteTrajectoryCSV(&buf, 0.01, orig); err != nil {
		t.Fatal(err)
	}
	got, err := ReadTrajectoryCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(orig.States(), got.States()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	meta := RunMetadata{
		Kind:    "forward",
		Model:   "test",
		Seed:    42,
		Dt:      0.5,
		NStep:   1,
		XLen:    3,
		Metrics: map[string]float64{"stability": 1.0},
	}
	runID, err := st.Save(meta, map[string]*dynamo.Trajectory{TrajectoryFile: testTrajectory(t)})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if runID == "" {
		t.Error("expected non-empty run id")
	}

	loaded, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Model != "test" {
		t.Errorf("expected model 'test', got '%s'", loaded.Model)
	}

	if loaded.Seed != 42 {
		t.Errorf("expected seed 42, got %d", loaded.Seed)
	}

	if loaded.Metrics["stability"] != 1.0 {
		t.Errorf("expected stability 1.0, got %f", loaded.Metrics["stability"])
	}

	if diff := cmp.Diff([]string{TrajectoryFile}, loaded.Artifacts); diff != "" {
		t.Errorf("artifacts mismatch (-want +got):\n%s", diff)
	}

	traj, err := st.LoadTrajectory(runID, TrajectoryFile)
	if err != nil {
		t.Fatalf("load trajectory failed: %v", err)
	}

	if diff := cmp.Diff(testTrajectory(t).States(), traj.States()); diff != "" {
		t.Errorf("trajectory mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	for _, model := range []string{"lorenz", "emissions"} {
		if _, err := st.Save(RunMetadata{Model: model, Dt: 0.5}, map[string]*dynamo.Trajectory{TrajectoryFile: testTrajectory(t)}); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Model != "lorenz" {
		t.Errorf("expected runs in save order, got %s first", runs[0].Model)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(RunMetadata{Model: "test", Dt: 0.5}, map[string]*dynamo.Trajectory{
		TrajectoryFile: testTrajectory(t),
		"truth":        testTrajectory(t),
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	for _, name := range []string{"metadata.json", "xtraj.csv", "truth.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	meta := RunMetadata{Model: "lorenz", Dt: 0.5}
	if err := WriteJSON(&buf, meta, testTrajectory(t)); err != nil {
		t.Fatal(err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatal(err)
	}
	if data.NStep != 1 || len(data.States) != 2 {
		t.Errorf("unexpected export shape: nstep=%d states=%d", data.NStep, len(data.States))
	}
	if data.Times[1] != 0.5 {
		t.Errorf("time[1] = %v, want 0.5", data.Times[1])
	}
}
