package storage

import (
	"encoding/json"
	"os"

	"gonum.org/v1/gonum/mat"
)

type ExportData struct {
	RunMetadata
	RowLabels []string    `json:"row_labels"`
	ColLabels []string    `json:"col_labels"`
	Jacobian  [][]float64 `json:"jacobian"`
}

// ExportJSON writes a run as a single JSON document.
func ExportJSON(path string, rec *Record) error {
	data := ExportData{
		RunMetadata: rec.Meta,
		RowLabels:   rec.RowLabels,
		ColLabels:   rec.ColLabels,
		Jacobian:    rows(rec.J),
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportCSV copies a run's matrix to path.
func ExportCSV(path string, rec *Record) error {
	return writeCSV(path, *rec)
}

func rows(m *mat.Dense) [][]float64 {
	if m == nil {
		return nil
	}
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}
