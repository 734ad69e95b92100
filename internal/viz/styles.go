package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// styles are derived from a theme so switching themes restyles everything.
type styles struct {
	title    lipgloss.Style
	subtle   lipgloss.Style
	cursor   lipgloss.Style
	selected lipgloss.Style
	value    lipgloss.Style
	label    lipgloss.Style
	key      lipgloss.Style
	ok       lipgloss.Style
	warn     lipgloss.Style
	err      lipgloss.Style
	panel    lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		title:    lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		subtle:   lipgloss.NewStyle().Foreground(t.Muted),
		cursor:   lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		selected: lipgloss.NewStyle().Foreground(t.Text).Bold(true),
		value:    lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		label:    lipgloss.NewStyle().Foreground(t.Muted).Width(14),
		key:      lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		ok:       lipgloss.NewStyle().Foreground(t.Success).Bold(true),
		warn:     lipgloss.NewStyle().Foreground(t.Warning).Bold(true),
		err:      lipgloss.NewStyle().Foreground(t.Error).Bold(true),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 1),
	}
}

// hints renders "key action" pairs.
func (s styles) hints(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(s.key.Render(pairs[i]))
		b.WriteString(s.subtle.Render(" " + pairs[i+1] + "  "))
	}
	return b.String()
}

// AnimatedSpinner returns one frame of a Braille spinner.
func AnimatedSpinner(frame int) string {
	spinners := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return spinners[frame%len(spinners)]
}

// SparklineChart renders values as a one-line bar chart of at most width
// cells.
func SparklineChart(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := bounds(values)
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := max(len(values)/width, 1)
	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		v := values[i*step]
		if !finite(v) {
			b.WriteRune(' ')
			continue
		}
		idx := int((v - lo) / rng * float64(len(chars)-1))
		idx = min(max(idx, 0), len(chars)-1)
		b.WriteRune(chars[idx])
	}
	return b.String()
}
