package figure

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/contactline/internal/bvp"
)

// Terminal renders h'(x) and h''(x) as two stacked text graphs.
func Terminal(sol *bvp.Solution, width, height int) string {
	if width < 10 {
		width = 10
	}
	if height < 3 {
		height = 3
	}
	pts := sol.Resample(width)

	slope := make([]float64, len(pts))
	curv := make([]float64, len(pts))
	for i, p := range pts {
		slope[i], curv[i] = p.Slope, p.Curvature
	}

	var sb strings.Builder
	sb.WriteString(asciigraph.Plot(slope,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(4),
		asciigraph.SeriesColors(asciigraph.Blue),
		asciigraph.Caption(fmt.Sprintf("h'(x) on [0, %g]", sol.XMax())),
	))
	sb.WriteString("\n\n")
	sb.WriteString(asciigraph.Plot(curv,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(4),
		asciigraph.SeriesColors(asciigraph.Red),
		asciigraph.Caption(fmt.Sprintf("h''(x), %s", sol.BoundaryConditions())),
	))
	return sb.String()
}

// Series renders a single labelled series, used for sweep summaries.
func Series(data []float64, caption string, width, height int) string {
	if len(data) == 0 {
		return ""
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}
