package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/contactline/internal/bvp"
	"github.com/san-kum/contactline/internal/contactline"
)

func testSolution(t *testing.T) *bvp.Solution {
	t.Helper()
	pts := []bvp.Point{
		{X: 0, H: 0, Slope: 1, Curvature: 0.148},
		{X: 0.5, H: 0.51, Slope: 1.04, Curvature: 0.02},
		{X: 1, H: 1.03, Slope: 1.05, Curvature: 0},
	}
	sol, err := bvp.Restore(contactline.New(0.01), bvp.MethodShooting, 1, pts)
	if err != nil {
		t.Fatal(err)
	}
	return sol
}

var testInfo = RunInfo{Integrator: "rk45", Tol: 1e-6, Guard: contactline.DefaultGuard()}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())

	runID, err := st.Save(testSolution(t), testInfo)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "shooting_") {
		t.Errorf("unexpected run id %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Method != "shooting" || meta.Integrator != "rk45" {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Constant != 0.01 || meta.XMax != 1 || meta.Shoot != 0.148 {
		t.Errorf("unexpected parameters %+v", meta)
	}
	if !meta.Guard || meta.Floor != contactline.DefaultFloor {
		t.Errorf("guard not recorded: %+v", meta)
	}

	sol, meta2, err := st.LoadSolution(runID)
	if err != nil {
		t.Fatalf("load solution failed: %v", err)
	}
	if meta2.ID != runID || sol.Len() != 3 {
		t.Errorf("id=%s len=%d", meta2.ID, sol.Len())
	}
	if got := sol.At(1); got.X != 0.5 || got.H != 0.51 || got.Slope != 1.04 || got.Curvature != 0.02 {
		t.Errorf("grid row lost precision: %+v", got)
	}
	if sol.At(1).Third == 0 {
		t.Error("restored solution should carry h'''")
	}
}

func TestStoreList(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "runs"))

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	for i := 0; i < 2; i++ {
		if _, err := st.Save(testSolution(t), testInfo); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID == runs[1].ID {
		t.Error("run ids must be unique")
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(testSolution(t), testInfo)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{"metadata.json", "grid.csv"} {
		if _, err := os.Stat(filepath.Join(tmpDir, runID, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, runID, "grid.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "x,h,dh,d2h" || len(lines) != 4 {
		t.Errorf("unexpected grid file:\n%s", data)
	}
}

func TestLoadGridRejectsGarbage(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	runDir := filepath.Join(tmpDir, "broken")
	if err := os.MkdirAll(runDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "grid.csv"), []byte("x,h,dh,d2h\n0,0,1,abc\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := st.LoadGrid("broken"); err == nil {
		t.Error("expected parse error")
	}
}

func TestExportJSON(t *testing.T) {
	sol := testSolution(t)
	meta := NewMetadata("run", sol, testInfo)

	var buf bytes.Buffer
	if err := ExportJSON(&buf, meta, sol.Points()); err != nil {
		t.Fatal(err)
	}

	var got ExportData
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.X) != 3 || got.Slope[2] != 1.05 || got.Run.ID != "run" {
		t.Errorf("unexpected export %+v", got)
	}
}

func TestStoreSaveRunKeepsRecord(t *testing.T) {
	st := New(t.TempDir())
	sol := testSolution(t)

	meta := NewMetadata("cached", sol, testInfo)
	meta.Warnings = []string{"truncation insufficient"}

	runID, err := st.SaveRun(meta, sol.Points())
	if err != nil {
		t.Fatal(err)
	}
	if runID == "cached" {
		t.Error("SaveRun must assign a fresh id")
	}

	loaded, err := st.Load(runID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ID != runID || len(loaded.Warnings) != 1 || loaded.Shoot != sol.Shoot() {
		t.Errorf("unexpected record %+v", loaded)
	}
}

func TestLoadSolutionKeepsWarnings(t *testing.T) {
	st := New(t.TempDir())
	sol := testSolution(t)

	meta := NewMetadata("", sol, testInfo)
	meta.Iterations = 12
	meta.Warnings = []string{"TruncationInsufficient: shooting solve failed (c=0.01, X=1): far curvature ratio 3.000e-01 exceeds 2.0e-03"}
	meta.Truncation = &bvp.TruncationReport{XMax: 1, ExtendedXMax: 2, FarCurvatureRatio: 0.3, Tol: 2e-3}

	runID, err := st.SaveRun(meta, sol.Points())
	if err != nil {
		t.Fatal(err)
	}
	restored, _, err := st.LoadSolution(runID)
	if err != nil {
		t.Fatal(err)
	}

	if restored.Iterations() != 12 {
		t.Errorf("iterations = %d, want 12", restored.Iterations())
	}
	if r := restored.Truncation(); r == nil || r.Adequate || r.FarCurvatureRatio != 0.3 {
		t.Errorf("truncation report lost: %+v", r)
	}
	ws := restored.Warnings()
	if len(ws) != 1 || bvp.Classify(ws[0]) != bvp.KindTruncationInsufficient {
		t.Errorf("warnings lost: %v", ws)
	}
}
