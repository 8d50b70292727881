package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/dynvar/internal/dynamo"
)

type ExportData struct {
	Model   string             `json:"model"`
	Dt      float64            `json:"dt"`
	NStep   int                `json:"nstep"`
	Times   []float64          `json:"times"`
	States  [][]float64        `json:"states"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

func NewExportData(meta RunMetadata, traj *dynamo.Trajectory) ExportData {
	data := ExportData{
		Model:   meta.Model,
		Dt:      meta.Dt,
		NStep:   traj.Steps(),
		Times:   make([]float64, traj.Len()),
		States:  make([][]float64, traj.Len()),
		Metrics: meta.Metrics,
	}
	for k := range data.States {
		data.Times[k] = float64(k) * meta.Dt
		data.States[k] = traj.At(k).Clone()
	}
	return data
}

func ExportJSON(path string, meta RunMetadata, traj *dynamo.Trajectory) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, meta, traj)
}

func WriteJSON(out io.Writer, meta RunMetadata, traj *dynamo.Trajectory) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(meta, traj))
}
