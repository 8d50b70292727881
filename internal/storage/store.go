package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/dynvar/internal/dynamo"
)

// TrajectoryFile is the artifact name of a run's main trajectory.
const TrajectoryFile = "xtraj"

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Kind      string             `json:"kind"`
	Model     string             `json:"model"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      uint64             `json:"seed"`
	Dt        float64            `json:"dt"`
	NStep     int                `json:"nstep"`
	XLen      int                `json:"x_len"`
	Metrics   map[string]float64 `json:"metrics"`
	Artifacts []string           `json:"artifacts"`
}

// Save creates a run directory holding metadata.json and one CSV file per
// trajectory artifact. The main trajectory should be stored under TrajectoryFile.
func (s *Store) Save(meta RunMetadata, artifacts map[string]*dynamo.Trajectory) (string, error) {
	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Model, now.UnixNano())
	meta.Timestamp = now
	meta.Artifacts = make([]string, 0, len(artifacts))
	for name := range artifacts {
		meta.Artifacts = append(meta.Artifacts, name)
	}
	sort.Strings(meta.Artifacts)

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	for _, name := range meta.Artifacts {
		if err := s.writeTrajectory(filepath.Join(runDir, name+".csv"), meta.Dt, artifacts[name]); err != nil {
			return "", fmt.Errorf("write %s: %w", name, err)
		}
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	return meta.ID, nil
}

func (s *Store) writeTrajectory(path string, dt float64, traj *dynamo.Trajectory) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WriteTrajectoryCSV(f, dt, traj); err != nil {
		return err
	}
	return f.Close()
}

// WriteTrajectoryCSV writes one row per step: step, time, x0..xn. Values are
// formatted with full precision so a reloaded trajectory is bit-identical.
func WriteTrajectoryCSV(out io.Writer, dt float64, traj *dynamo.Trajectory) error {
	w := csv.NewWriter(out)

	header := []string{"step", "time"}
	for i := 0; i < traj.Dim(); i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for k := 0; k < traj.Len(); k++ {
		row := []string{strconv.Itoa(k), strconv.FormatFloat(float64(k)*dt, 'g', -1, 64)}
		for _, val := range traj.At(k) {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// ReadTrajectoryCSV parses the format written by WriteTrajectoryCSV.
func ReadTrajectoryCSV(in io.Reader) (*dynamo.Trajectory, error) {
	r := csv.NewReader(in)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, errors.New("storage: trajectory has no rows")
	}

	dim := len(records[0]) - 2
	states := make([]dynamo.State, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != dim+2 {
			return nil, fmt.Errorf("storage: row %d has %d fields, want %d", i+1, len(record), dim+2)
		}
		state := make(dynamo.State, dim)
		for j := range state {
			val, err := strconv.ParseFloat(record[j+2], 64)
			if err != nil {
				return nil, fmt.Errorf("storage: row %d: %w", i+1, err)
			}
			state[j] = val
		}
		states = append(states, state)
	}

	return dynamo.TrajectoryFrom(states)
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadTrajectory(runID, name string) (*dynamo.Trajectory, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, name+".csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadTrajectoryCSV(f)
}
