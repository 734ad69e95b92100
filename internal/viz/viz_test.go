package viz

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/contactline/internal/bvp"
	"github.com/san-kum/contactline/internal/config"
	"github.com/san-kum/contactline/internal/contactline"
)

func stubSolve(t *testing.T) SolveFunc {
	pts := []bvp.Point{
		{X: 0, H: 0, Slope: 1, Curvature: 0.148},
		{X: 1, H: 1.05, Slope: 1.09, Curvature: 0.05},
		{X: 2, H: 2.15, Slope: 1.11, Curvature: 0.01},
		{X: 4, H: 4.38, Slope: 1.12, Curvature: 0},
	}
	return func(ctx context.Context, cfg *config.Config) (*bvp.Solution, error) {
		sol, err := bvp.Restore(contactline.New(cfg.Constant), bvp.MethodShooting, 4, pts)
		if err != nil {
			t.Fatal(err)
		}
		return sol, nil
	}
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func press(t *testing.T, m Explorer, keys ...tea.Msg) Explorer {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(Explorer)
	}
	return m
}

func TestExplorerNavigateAndAdjust(t *testing.T) {
	m := NewExplorer(config.DefaultConfig(), stubSolve(t))

	m = press(t, m, runes("l"))
	if got := m.Config().Constant; got != 0.02 {
		t.Errorf("ode_constant = %g, want 0.02", got)
	}

	m = press(t, m, runes("j"), runes("h"))
	if got := m.Config().XMax; got != 25 {
		t.Errorf("x_max = %g, want 25", got)
	}

	m = press(t, m, runes("j"), runes("j"), runes("l"))
	if got := m.Config().Method; got != "collocation" {
		t.Errorf("method = %s", got)
	}
	m = press(t, m, runes("l"))
	if got := m.Config().Method; got != "shooting" {
		t.Errorf("method should wrap, got %s", got)
	}

	// k never moves above the first row
	m = press(t, m, runes("k"), runes("k"), runes("k"), runes("k"), runes("k"))
	if m.cursor != 0 {
		t.Errorf("cursor = %d", m.cursor)
	}
}

func TestExplorerEdit(t *testing.T) {
	m := NewExplorer(config.DefaultConfig(), stubSolve(t))

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.editing || m.editBuf != "0.01" {
		t.Fatalf("editing=%v buf=%q", m.editing, m.editBuf)
	}
	for range m.editBuf {
		m = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	}
	m = press(t, m, runes("0.05"), tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.Config().Constant; got != 0.05 {
		t.Errorf("ode_constant = %g, want 0.05", got)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter}, runes("x"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.message == "" {
		t.Error("invalid value should leave a message")
	}
	if got := m.Config().Constant; got != 0.05 {
		t.Errorf("invalid edit changed the value to %g", got)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter}, runes("9"), tea.KeyMsg{Type: tea.KeyEsc})
	if m.editing || m.Config().Constant != 0.05 {
		t.Error("escape should discard the edit")
	}
}

func TestExplorerSolve(t *testing.T) {
	m := NewExplorer(config.DefaultConfig(), stubSolve(t))
	if !strings.Contains(m.View(), "press s to solve") {
		t.Error("initial view should prompt for a solve")
	}

	next, cmd := m.Update(runes("s"))
	m = next.(Explorer)
	if !m.solving || cmd == nil {
		t.Fatal("s should start a solve")
	}
	if !strings.Contains(m.View(), "solving") {
		t.Error("view should show progress")
	}

	m = press(t, m, m.solveCmd()())
	if m.solving || m.sol == nil {
		t.Fatal("solve result not applied")
	}
	view := m.View()
	for _, want := range []string{"ACCEPTED", "h''(0)", "0.148"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	for _, name := range []string{"h(x)", "h'' against h'", "θ³ = 1 + 0.03"} {
		m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
		if !strings.Contains(m.View(), name) {
			t.Errorf("view %s missing %q", m.view, name)
		}
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.view != viewProfile {
		t.Errorf("tab should wrap to profile, got %s", m.view)
	}
}

func TestExplorerSolveFailure(t *testing.T) {
	fail := func(ctx context.Context, cfg *config.Config) (*bvp.Solution, error) {
		return nil, errors.New("boom")
	}
	m := NewExplorer(config.DefaultConfig(), fail)
	m = press(t, m, runes("s"))
	m = press(t, m, m.solveCmd()())
	if !strings.Contains(m.View(), "FAILED") || !strings.Contains(m.View(), "boom") {
		t.Error("failure should be shown")
	}
}

func TestExplorerQuitAndTheme(t *testing.T) {
	m := NewExplorer(config.DefaultConfig(), stubSolve(t))
	m = press(t, m, runes("t"))
	if m.theme.Name != "phosphor" {
		t.Errorf("theme = %s", m.theme.Name)
	}
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestCanvasPlot(t *testing.T) {
	c := NewCanvas(20, 5)
	c.Plot([]float64{0, 1, 2, 3}, []float64{0, 1, 4, 9})

	lines := strings.Split(strings.TrimSuffix(c.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(lines))
	}
	for _, l := range lines {
		if n := utf8.RuneCountInString(l); n != 20 {
			t.Errorf("row has %d cells", n)
		}
	}
	// first point sits bottom-left, last point top-right
	if c.Grid[4][0] == brailleBlank || c.Grid[0][19] == brailleBlank {
		t.Error("curve endpoints not drawn")
	}

	c.Clear()
	c.Set(-1, 3)
	c.Set(100, 100)
	for _, row := range c.Grid {
		for _, r := range row {
			if r != brailleBlank {
				t.Fatal("out of range dots must be ignored")
			}
		}
	}
}

func TestSparklineChart(t *testing.T) {
	if got := SparklineChart(nil, 5); got != "─────" {
		t.Errorf("empty sparkline %q", got)
	}
	got := SparklineChart([]float64{0, 1, 2, 3}, 10)
	if got != "▁▃▅█" {
		t.Errorf("sparkline %q", got)
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("missing").Name != "lab" {
		t.Error("unknown theme should fall back to lab")
	}
	names := ThemeNames()
	th := GetTheme(names[0])
	for range names {
		th = th.Next()
	}
	if th.Name != names[0] {
		t.Error("Next should cycle through every theme")
	}
}
