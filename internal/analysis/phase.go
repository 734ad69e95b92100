package analysis

import (
	"strings"

	"github.com/san-kum/contactline/internal/bvp"
)

// PhasePortrait holds a projection of the solved state onto two columns.
type PhasePortrait struct {
	XLabel, YLabel string
	Points         []struct{ X, Y float64 }
}

// NewPhasePortrait projects every grid point through fx and fy.
func NewPhasePortrait(sol *bvp.Solution, xLabel, yLabel string, fx, fy func(bvp.Point) float64) *PhasePortrait {
	pts := sol.Points()
	portrait := &PhasePortrait{
		XLabel: xLabel,
		YLabel: yLabel,
		Points: make([]struct{ X, Y float64 }, 0, len(pts)),
	}
	for _, p := range pts {
		portrait.Points = append(portrait.Points, struct{ X, Y float64 }{X: fx(p), Y: fy(p)})
	}
	return portrait
}

// ASCII draws the portrait on a width×height character canvas.
func (p *PhasePortrait) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX = min(minX, pt.X)
		maxX = max(maxX, pt.X)
		minY = min(minY, pt.Y)
		maxY = max(maxY, pt.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, pt := range p.Points {
		col := int((pt.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((pt.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// axes where they cross the visible area
	if minX <= 0 && maxX >= 0 {
		col := int(-minX / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int(-minY/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
