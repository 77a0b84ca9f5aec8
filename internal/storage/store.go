package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"
)

var ErrMalformed = errors.New("storage: malformed jacobian file")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes one saved Jacobian.
type RunMetadata struct {
	ID          string    `json:"id"`
	Model       string    `json:"model"`
	Label       string    `json:"label,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Form        string    `json:"form"`
	Step        float64   `json:"step"`
	StepType    string    `json:"step_type"`
	Format      string    `json:"format"`
	Inputs      []string  `json:"inputs"`
	Outputs     []string  `json:"outputs"`
	Rows        int       `json:"rows"`
	Cols        int       `json:"cols"`
	Evaluations int       `json:"evaluations"`
	// MaxAbsError is the largest deviation from the analytic Jacobian, when
	// the model has one.
	MaxAbsError *float64 `json:"max_abs_error,omitempty"`
}

// Record is everything Save writes for one run.
type Record struct {
	Meta      RunMetadata
	J         *mat.Dense
	RowLabels []string
	ColLabels []string
}

func (s *Store) Save(rec Record) (string, error) {
	now := time.Now()
	meta := rec.Meta
	meta.ID = fmt.Sprintf("%s_%d", meta.Model, now.UnixNano())
	meta.Timestamp = now
	meta.Rows, meta.Cols = rec.J.Dims()
	if len(rec.RowLabels) != meta.Rows || len(rec.ColLabels) != meta.Cols {
		return "", fmt.Errorf("storage: %d row and %d column labels for a %dx%d matrix", len(rec.RowLabels), len(rec.ColLabels), meta.Rows, meta.Cols)
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
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

	if err := writeCSV(filepath.Join(runDir, "jacobian.csv"), rec); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeCSV(path string, rec Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"output"}, rec.ColLabels...)
	if err := w.Write(header); err != nil {
		return err
	}

	rows, cols := rec.J.Dims()
	for i := 0; i < rows; i++ {
		row := make([]string, 0, cols+1)
		row = append(row, rec.RowLabels[i])
		for j := 0; j < cols; j++ {
			row = append(row, strconv.FormatFloat(rec.J.At(i, j), 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every saved run, newest first.
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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
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

// LoadJacobian reads a saved matrix with its row and column labels.
func (s *Store) LoadJacobian(runID string) (*Record, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, "jacobian.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) != meta.Rows+1 {
		return nil, fmt.Errorf("%w: %d rows, metadata says %d", ErrMalformed, len(records)-1, meta.Rows)
	}

	rec := &Record{Meta: *meta, ColLabels: records[0][1:]}
	if len(rec.ColLabels) != meta.Cols {
		return nil, fmt.Errorf("%w: %d columns, metadata says %d", ErrMalformed, len(rec.ColLabels), meta.Cols)
	}
	if meta.Rows == 0 || meta.Cols == 0 {
		return rec, nil
	}

	rec.J = mat.NewDense(meta.Rows, meta.Cols, nil)
	for i, record := range records[1:] {
		rec.RowLabels = append(rec.RowLabels, record[0])
		for j, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %v", ErrMalformed, i, j, err)
			}
			rec.J.Set(i, j, v)
		}
	}
	return rec, nil
}
