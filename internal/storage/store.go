package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/contactline/internal/bvp"
	"github.com/san-kum/contactline/internal/contactline"
)

const (
	metadataFile = "metadata.json"
	gridFile     = "grid.csv"
)

var gridHeader = []string{"x", "h", "dh", "d2h"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

// RunInfo carries the solve settings that are not part of the solution.
type RunInfo struct {
	Integrator string
	Tol        float64
	Guard      contactline.Guard
}

type RunMetadata struct {
	ID         string                         `json:"id"`
	Timestamp  time.Time                      `json:"timestamp"`
	Method     string                         `json:"method"`
	Integrator string                         `json:"integrator,omitempty"`
	Constant   float64                        `json:"ode_constant"`
	XMax       float64                        `json:"x_max"`
	Tol        float64                        `json:"tol"`
	Guard      bool                           `json:"guard"`
	Floor      float64                        `json:"floor"`
	BC         contactline.BoundaryConditions `json:"boundary_conditions"`
	Shoot      float64                        `json:"shoot"`
	Residual   float64                        `json:"residual"`
	Iterations int                            `json:"iterations"`
	Points     int                            `json:"points"`
	Metrics    map[string]float64             `json:"metrics"`
	Warnings   []string                       `json:"warnings,omitempty"`
	Truncation *bvp.TruncationReport          `json:"truncation,omitempty"`
}

// Problem rebuilds the equation the run was solved for.
func (m *RunMetadata) Problem() *contactline.Problem {
	p := contactline.New(m.Constant)
	p.BC = m.BC
	p.Guard = contactline.Guard{Enabled: m.Guard, Floor: m.Floor}
	return p
}

// Record returns the solve history kept alongside the grid.
func (m *RunMetadata) Record() bvp.Record {
	return bvp.Record{
		Iterations: m.Iterations,
		Metrics:    m.Metrics,
		Warnings:   m.Warnings,
		Truncation: m.Truncation,
	}
}

func (s *Store) newRunDir(prefix string) (string, string, error) {
	base := fmt.Sprintf("%s_%d", prefix, time.Now().Unix())
	for i := 0; ; i++ {
		id := base
		if i > 0 {
			id = fmt.Sprintf("%s_%d", base, i)
		}
		dir := filepath.Join(s.baseDir, id)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return id, dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", err
		}
	}
}

// Save writes metadata.json and grid.csv into a new run directory and
// returns its id.
func (s *Store) Save(sol *bvp.Solution, info RunInfo) (string, error) {
	return s.SaveRun(NewMetadata("", sol, info), sol.Points())
}

// SaveRun persists an existing metadata record under a fresh id, as when a
// cached solve is recorded as a new run.
func (s *Store) SaveRun(meta RunMetadata, pts []bvp.Point) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}
	runID, runDir, err := s.newRunDir(meta.Method)
	if err != nil {
		return "", err
	}
	meta.ID = runID
	meta.Timestamp = time.Now()

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, gridFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, pts); err != nil {
		return "", err
	}
	return runID, nil
}

func NewMetadata(id string, sol *bvp.Solution, info RunInfo) RunMetadata {
	meta := RunMetadata{
		ID:         id,
		Timestamp:  time.Now(),
		Method:     string(sol.Method()),
		Integrator: info.Integrator,
		Constant:   sol.Constant(),
		XMax:       sol.XMax(),
		Tol:        info.Tol,
		Guard:      info.Guard.Enabled,
		Floor:      info.Guard.Floor,
		BC:         sol.BoundaryConditions(),
		Shoot:      sol.Shoot(),
		Residual:   sol.Residual(),
		Iterations: sol.Iterations(),
		Points:     sol.Len(),
		Metrics:    make(map[string]float64),
		Truncation: sol.Truncation(),
	}
	for k, v := range sol.Metrics() {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			meta.Metrics[k] = v
		}
	}
	if sol.Method() == bvp.MethodCollocation {
		meta.Integrator = ""
	}
	for _, w := range sol.Warnings() {
		meta.Warnings = append(meta.Warnings, w.Error())
	}
	return meta
}

// List returns every readable run, oldest first.
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

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadGrid(runID string) ([]bvp.Point, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, gridFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(gridHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%s: empty grid", runID)
	}

	pts := make([]bvp.Point, 0, len(records)-1)
	for i, record := range records[1:] {
		var vals [4]float64
		for j := range vals {
			v, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d column %s: %w", runID, i+1, gridHeader[j], err)
			}
			vals[j] = v
		}
		pts = append(pts, bvp.Point{X: vals[0], H: vals[1], Slope: vals[2], Curvature: vals[3]})
	}
	return pts, nil
}

// LoadSolution restores a stored run as a solution.
func (s *Store) LoadSolution(runID string) (*bvp.Solution, *RunMetadata, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	pts, err := s.LoadGrid(runID)
	if err != nil {
		return nil, nil, err
	}
	sol, err := bvp.RestoreRecord(meta.Problem(), bvp.Method(meta.Method), meta.XMax, pts, meta.Record())
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", runID, err)
	}
	return sol, meta, nil
}
