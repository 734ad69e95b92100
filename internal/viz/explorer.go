package viz

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/san-kum/contactline/internal/analysis"
	"github.com/san-kum/contactline/internal/bvp"
	"github.com/san-kum/contactline/internal/config"
	"github.com/san-kum/contactline/internal/experiment"
	"github.com/san-kum/contactline/internal/figure"
	"github.com/san-kum/contactline/internal/integrators"
)

// SolveFunc runs one solve for the explorer.
type SolveFunc func(ctx context.Context, cfg *config.Config) (*bvp.Solution, error)

type view int

const (
	viewProfile view = iota
	viewShape
	viewPhase
	viewAsymptote
)

var viewNames = []string{"profile", "shape", "phase", "asymptote"}

func (v view) String() string { return viewNames[v] }

type solvedMsg struct {
	sol     *bvp.Solution
	err     error
	elapsed time.Duration
}

type spinMsg time.Time

// Explorer is the Bubble Tea model.
type Explorer struct {
	cfg     *config.Config
	solve   SolveFunc
	cursor  int
	editing bool
	editBuf string
	message string

	solving bool
	frame   int
	sol     *bvp.Solution
	err     error
	elapsed time.Duration
	shoots  []float64

	view          view
	theme         Theme
	st            styles
	width, height int
}

func NewExplorer(cfg *config.Config, solve SolveFunc) Explorer {
	return Explorer{
		cfg:    cfg.Clone(),
		solve:  solve,
		theme:  ThemeLab,
		st:     newStyles(ThemeLab),
		width:  100,
		height: 32,
	}
}

// Run starts the explorer on the terminal. Solves log to log, which should
// not write to the terminal the program draws on.
func Run(cfg *config.Config, log zerolog.Logger) error {
	solve := func(ctx context.Context, c *config.Config) (*bvp.Solution, error) {
		return experiment.New(c, log).Run(ctx)
	}
	_, err := tea.NewProgram(NewExplorer(cfg, solve), tea.WithAltScreen()).Run()
	return err
}

func (m Explorer) Init() tea.Cmd { return nil }

// Config returns a copy of the parameters being edited.
func (m Explorer) Config() *config.Config { return m.cfg.Clone() }

func (m Explorer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case solvedMsg:
		m.solving = false
		m.elapsed = msg.elapsed
		m.err = msg.err
		if msg.err == nil {
			m.sol = msg.sol
			m.shoots = append(m.shoots, msg.sol.Shoot())
		}
	case spinMsg:
		if m.solving {
			m.frame++
			return m, spin()
		}
	case tea.KeyMsg:
		if m.editing {
			return m.editKey(msg), nil
		}
		return m.key(msg)
	}
	return m, nil
}

func (m Explorer) key(msg tea.KeyMsg) (Explorer, tea.Cmd) {
	m.message = ""
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(params)-1 {
			m.cursor++
		}
	case "left", "h":
		params[m.cursor].adjust(m.cfg, -1)
	case "right", "l":
		params[m.cursor].adjust(m.cfg, 1)
	case "enter":
		m.editing, m.editBuf = true, params[m.cursor].get(m.cfg)
	case "tab":
		m.view = (m.view + 1) % view(len(viewNames))
	case "t":
		m.theme = m.theme.Next()
		m.st = newStyles(m.theme)
	case "s":
		if m.solving {
			return m, nil
		}
		m.solving, m.frame = true, 0
		return m, tea.Batch(m.solveCmd(), spin())
	}
	return m, nil
}

func (m Explorer) editKey(msg tea.KeyMsg) Explorer {
	switch msg.Type {
	case tea.KeyEnter:
		if err := params[m.cursor].set(m.cfg, strings.TrimSpace(m.editBuf)); err != nil {
			m.message = err.Error()
		}
		m.editing, m.editBuf = false, ""
	case tea.KeyEsc:
		m.editing, m.editBuf = false, ""
	case tea.KeyBackspace:
		if len(m.editBuf) > 0 {
			m.editBuf = m.editBuf[:len(m.editBuf)-1]
		}
	case tea.KeyRunes:
		m.editBuf += string(msg.Runes)
	}
	return m
}

func (m Explorer) solveCmd() tea.Cmd {
	cfg, solve := m.cfg.Clone(), m.solve
	if cfg.MaxXMax < cfg.XMax {
		cfg.MaxXMax = cfg.XMax
	}
	return func() tea.Msg {
		start := time.Now()
		sol, err := solve(context.Background(), cfg)
		return solvedMsg{sol: sol, err: err, elapsed: time.Since(start)}
	}
}

func spin() tea.Cmd {
	return tea.Tick(time.Second/10, func(t time.Time) tea.Msg { return spinMsg(t) })
}

func (m Explorer) View() string {
	st := m.st
	var b strings.Builder
	b.WriteString("\n  " + st.title.Render("CONTACTLINE") + "\n")
	b.WriteString("  " + st.subtle.Render("h''' = -c/(h²+h),  h(0)=0, h'(0)=1, h''(X)=0") + "\n\n")

	left := m.viewParams()
	right := m.viewResult()
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))
	b.WriteString("\n\n  ")
	b.WriteString(st.hints("j/k", "select", "h/l", "adjust", "enter", "edit", "s", "solve",
		"tab", m.view.String(), "t", m.theme.Name, "q", "quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Explorer) viewParams() string {
	st := m.st
	var b strings.Builder
	for i, p := range params {
		val := p.get(m.cfg)
		if m.editing && i == m.cursor {
			val = m.editBuf + "_"
		}
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("%s %s %s\n", st.cursor.Render("▸"), st.selected.Render(fmt.Sprintf("%-12s", p.name)), st.value.Render(val)))
		} else {
			b.WriteString(fmt.Sprintf("  %s %s\n", st.subtle.Render(fmt.Sprintf("%-12s", p.name)), st.subtle.Render(val)))
		}
	}
	if m.message != "" {
		b.WriteString("\n" + st.err.Render(m.message) + "\n")
	}
	return st.panel.Render(b.String())
}

func (m Explorer) viewResult() string {
	st := m.st
	var b strings.Builder

	switch {
	case m.solving:
		b.WriteString(st.warn.Render(AnimatedSpinner(m.frame)+" solving") + "\n\n")
	case m.err != nil:
		b.WriteString(st.err.Render("FAILED") + "  " + m.err.Error() + "\n\n")
	case m.sol != nil:
		b.WriteString(st.ok.Render("ACCEPTED") + st.subtle.Render(fmt.Sprintf("  %s in %s", m.sol.Method(), m.elapsed.Round(time.Millisecond))) + "\n\n")
	default:
		b.WriteString(st.subtle.Render("press s to solve") + "\n")
		return st.panel.Render(b.String())
	}
	if m.sol == nil {
		return st.panel.Render(b.String())
	}

	sol := m.sol
	b.WriteString(st.label.Render("h''(0)") + st.value.Render(fmt.Sprintf("%.10g", sol.Shoot())) + "\n")
	b.WriteString(st.label.Render("residual") + fmt.Sprintf("%.3e", sol.Residual()) + "\n")
	b.WriteString(st.label.Render("x_max") + fmt.Sprintf("%g", sol.XMax()) + "\n")
	b.WriteString(st.label.Render("points") + fmt.Sprintf("%d", sol.Len()) + "\n")
	if tr := sol.Truncation(); tr != nil {
		b.WriteString(st.label.Render("truncation") + tr.String() + "\n")
	}
	for _, w := range sol.Warnings() {
		b.WriteString(st.warn.Render("! "+w.Error()) + "\n")
	}
	if len(m.shoots) > 1 {
		b.WriteString(st.label.Render("history") + SparklineChart(m.shoots, 30) + "\n")
	}
	b.WriteString("\n" + m.viewPanel(sol))
	return st.panel.Render(b.String())
}

func (m Explorer) viewPanel(sol *bvp.Solution) string {
	w := max(m.width-50, 30)
	switch m.view {
	case viewShape:
		c := NewCanvas(w, 10)
		pts := sol.Resample(4 * w)
		xs, hs := make([]float64, len(pts)), make([]float64, len(pts))
		for i, p := range pts {
			xs[i], hs[i] = p.X, p.H
		}
		c.Plot(xs, hs)
		return "h(x)\n" + c.String()
	case viewPhase:
		p := analysis.NewPhasePortrait(sol, "h'", "h''",
			func(p bvp.Point) float64 { return p.Slope },
			func(p bvp.Point) float64 { return p.Curvature })
		return "h'' against h'\n" + p.ASCII(w, 12)
	case viewAsymptote:
		return asymptoteReport(sol)
	default:
		return figure.Terminal(sol, w, 6)
	}
}

func asymptoteReport(sol *bvp.Solution) string {
	var b strings.Builder
	cv := analysis.NewCoxVoinov(sol.Constant())
	fmt.Fprintf(&b, "θ³ = 1 + %g ln(e x)\n", 3*sol.Constant())

	if dev, err := analysis.Compare(sol, cv, 1); err == nil {
		fmt.Fprintf(&b, "max |h' - θ|   %.3e at x=%.4g\n", dev.MaxAbs, dev.At)
		fmt.Fprintf(&b, "max relative   %.3e\n", dev.MaxRel)
		fmt.Fprintf(&b, "rms            %.3e (n=%d)\n", dev.RMS, dev.N)
	} else {
		fmt.Fprintf(&b, "no points beyond x=1\n")
	}
	if fit, err := analysis.FitWindow(sol, func(p bvp.Point) float64 { return p.Curvature }, 1, sol.XMax()/2); err == nil {
		fmt.Fprintf(&b, "h'' fit        %s\n", fit)
	}

	metrics := sol.Metrics()
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%-15s%.4g\n", k, metrics[k])
	}
	return b.String()
}

// param is one editable configuration field.
type param struct {
	name   string
	get    func(*config.Config) string
	set    func(*config.Config, string) error
	adjust func(*config.Config, int)
}

func floatParam(name string, field func(*config.Config) *float64, factor float64) param {
	return param{
		name: name,
		get:  func(c *config.Config) string { return strconv.FormatFloat(*field(c), 'g', -1, 64) },
		set: func(c *config.Config, s string) error {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil || !(v > 0) {
				return fmt.Errorf("%s must be a positive number", name)
			}
			*field(c) = v
			return nil
		},
		adjust: func(c *config.Config, dir int) {
			if dir > 0 {
				*field(c) *= factor
			} else {
				*field(c) /= factor
			}
		},
	}
}

func boolParam(name string, field func(*config.Config) *bool) param {
	return param{
		name: name,
		get:  func(c *config.Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *config.Config, s string) error {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return fmt.Errorf("%s must be true or false", name)
			}
			*field(c) = v
			return nil
		},
		adjust: func(c *config.Config, _ int) { *field(c) = !*field(c) },
	}
}

func choiceParam(name string, field func(*config.Config) *string, choices []string) param {
	return param{
		name: name,
		get:  func(c *config.Config) string { return *field(c) },
		set: func(c *config.Config, s string) error {
			for _, ch := range choices {
				if ch == s {
					*field(c) = s
					return nil
				}
			}
			return fmt.Errorf("%s must be one of %s", name, strings.Join(choices, ", "))
		},
		adjust: func(c *config.Config, dir int) {
			i := 0
			for j, ch := range choices {
				if ch == *field(c) {
					i = j
				}
			}
			*field(c) = choices[(i+dir+len(choices))%len(choices)]
		},
	}
}

var params = []param{
	floatParam("ode_constant", func(c *config.Config) *float64 { return &c.Constant }, 2),
	floatParam("x_max", func(c *config.Config) *float64 { return &c.XMax }, 2),
	floatParam("tol", func(c *config.Config) *float64 { return &c.Tol }, 10),
	choiceParam("method", func(c *config.Config) *string { return &c.Method },
		[]string{string(bvp.MethodShooting), string(bvp.MethodCollocation)}),
	choiceParam("integrator", func(c *config.Config) *string { return &c.Integrator }, integrators.Names()),
	boolParam("guard", func(c *config.Config) *bool { return &c.Guard }),
	boolParam("check", func(c *config.Config) *bool { return &c.CheckTruncation }),
	boolParam("auto_extend", func(c *config.Config) *bool { return &c.AutoExtend }),
}
