package figure

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	_ "gonum.org/v1/plot/vg/vgimg"
	_ "gonum.org/v1/plot/vg/vgpdf"
	_ "gonum.org/v1/plot/vg/vgsvg"
)

// Clip is the floor applied to magnitudes on logarithmic axes.
const Clip = 1e-20

var (
	slopeColor     = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	curvatureColor = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
)

type Options struct {
	Width   vg.Length
	Height  vg.Length
	Samples int
	Title   string
}

func DefaultOptions() Options {
	return Options{
		Width:   8 * vg.Inch,
		Height:  9 * vg.Inch,
		Samples: 1000,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	return o
}

// format maps a path to a registered canvas format.
func format(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "png", "svg", "pdf", "jpg", "jpeg", "tif", "tiff":
		return ext, nil
	case "":
		return "", fmt.Errorf("figure: %q has no extension", path)
	default:
		return "", fmt.Errorf("figure: unsupported format %q", ext)
	}
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.Title.Padding = vg.Points(8)

	p.X.Label.TextStyle.Font.Size = vg.Points(12)
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)
	p.X.Label.Padding = vg.Points(6)
	p.Y.Label.Padding = vg.Points(6)

	p.X.Tick.Label.Font.Size = vg.Points(10)
	p.Y.Tick.Label.Font.Size = vg.Points(10)

	p.Legend.Top = true
	p.Legend.TextStyle.Font.Size = vg.Points(10)

	p.Add(plotter.NewGrid())
}

func logAxes(p *plot.Plot) {
	p.X.Scale = plot.LogScale{}
	p.Y.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
}

func newLine(xs, ys []float64, c color.Color) (*plotter.Line, error) {
	pts := make(plotter.XYs, 0, len(xs))
	for i := range xs {
		if math.IsNaN(ys[i]) || math.IsInf(ys[i], 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: xs[i], Y: ys[i]})
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("figure: no finite points to draw")
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Color = c
	return line, nil
}

// save lays plots out as a column of panels and writes them to path.
func save(plots []*plot.Plot, path string, opts Options) error {
	ext, err := format(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}

	c, err := draw.NewFormattedCanvas(opts.Width, opts.Height, ext)
	if err != nil {
		return err
	}

	grid := make([][]*plot.Plot, len(plots))
	for i, p := range plots {
		grid[i] = []*plot.Plot{p}
	}
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadTop:    vg.Points(6),
		PadBottom: vg.Points(6),
		PadLeft:   vg.Points(6),
		PadRight:  vg.Points(12),
		PadY:      vg.Points(18),
	}
	canvases := plot.Align(grid, tiles, draw.New(c))
	for i := range grid {
		grid[i][0].Draw(canvases[i][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create figure: %w", err)
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("cannot write figure: %w", err)
	}
	return f.Close()
}
