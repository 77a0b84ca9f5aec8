package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func sampleRecord() Record {
	errv := 2.5e-9
	return Record{
		Meta: RunMetadata{
			Model:       "linear",
			Form:        "central",
			Step:        1e-4,
			StepType:    "absolute",
			Format:      "array",
			Inputs:      []string{"lin.x"},
			Outputs:     []string{"lin.y"},
			Evaluations: 4,
			MaxAbsError: &errv,
		},
		J:         mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6.000000001}),
		RowLabels: []string{"lin.y[0]", "lin.y[1]", "lin.y[2]"},
		ColLabels: []string{"lin.x[0]", "lin.x[1]"},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(sampleRecord())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Rows != 3 || meta.Cols != 2 {
		t.Errorf("expected 3x2, got %dx%d", meta.Rows, meta.Cols)
	}
	if meta.MaxAbsError == nil || *meta.MaxAbsError != 2.5e-9 {
		t.Errorf("expected max error 2.5e-9, got %v", meta.MaxAbsError)
	}

	rec, err := st.LoadJacobian(runID)
	if err != nil {
		t.Fatalf("load jacobian failed: %v", err)
	}
	if !mat.Equal(rec.J, sampleRecord().J) {
		t.Errorf("matrix changed in round trip: %v", mat.Formatted(rec.J))
	}
	if rec.RowLabels[2] != "lin.y[2]" || rec.ColLabels[1] != "lin.x[1]" {
		t.Errorf("labels changed: %v %v", rec.RowLabels, rec.ColLabels)
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
	first, _ := st.Save(sampleRecord())
	second, err := st.Save(sampleRecord())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != second || runs[1].ID != first {
		t.Errorf("expected newest first, got %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(sampleRecord())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	for _, name := range []string{"metadata.json", "jacobian.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestSaveRejectsLabelMismatch(t *testing.T) {
	rec := sampleRecord()
	rec.RowLabels = rec.RowLabels[:1]
	if _, err := New(t.TempDir()).Save(rec); err == nil {
		t.Error("expected label mismatch error")
	}
}

func TestLoadJacobianMalformed(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	runID, err := st.Save(sampleRecord())
	if err != nil {
		t.Fatal(err)
	}
	csvPath := filepath.Join(tmpDir, runID, "jacobian.csv")
	if err := os.WriteFile(csvPath, []byte("output,a\nr,1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := st.LoadJacobian(runID); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestExport(t *testing.T) {
	tmpDir := t.TempDir()
	rec := sampleRecord()

	jsonPath := filepath.Join(tmpDir, "run.json")
	if err := ExportJSON(jsonPath, &rec); err != nil {
		t.Fatalf("export json failed: %v", err)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var got ExportData
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Model != "linear" || len(got.Jacobian) != 3 || got.Jacobian[1][0] != 3 {
		t.Errorf("unexpected export %+v", got)
	}

	csvPath := filepath.Join(tmpDir, "run.csv")
	if err := ExportCSV(csvPath, &rec); err != nil {
		t.Fatalf("export csv failed: %v", err)
	}
	if _, err := os.Stat(csvPath); err != nil {
		t.Error("csv not written")
	}
}
