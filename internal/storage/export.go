package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/san-kum/contactline/internal/bvp"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes x, h, h', h'' rows with a header.
func WriteCSV(w io.Writer, pts []bvp.Point) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(gridHeader); err != nil {
		return err
	}
	for _, p := range pts {
		row := []string{formatFloat(p.X), formatFloat(p.H), formatFloat(p.Slope), formatFloat(p.Curvature)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type ExportData struct {
	Run       RunMetadata `json:"run"`
	X         []float64   `json:"x"`
	H         []float64   `json:"h"`
	Slope     []float64   `json:"dh"`
	Curvature []float64   `json:"d2h"`
	Third     []float64   `json:"d3h"`
}

// ExportJSON writes the run metadata and the given points as columns.
func ExportJSON(w io.Writer, meta RunMetadata, pts []bvp.Point) error {
	data := ExportData{
		Run:       meta,
		X:         make([]float64, len(pts)),
		H:         make([]float64, len(pts)),
		Slope:     make([]float64, len(pts)),
		Curvature: make([]float64, len(pts)),
		Third:     make([]float64, len(pts)),
	}
	for i, p := range pts {
		data.X[i] = p.X
		data.H[i] = p.H
		data.Slope[i] = p.Slope
		data.Curvature[i] = p.Curvature
		data.Third[i] = p.Third
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
