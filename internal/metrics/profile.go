package metrics

import (
	"math"

	"github.com/san-kum/contactline/internal/ode"
)

// MinHeight tracks the smallest h seen strictly after the first sample.
type MinHeight struct {
	min     float64
	samples int
}

func NewMinHeight() *MinHeight {
	return &MinHeight{min: math.Inf(1)}
}

func (m *MinHeight) Name() string { return "min_height" }

func (m *MinHeight) Observe(y ode.State, x float64) {
	m.samples++
	if m.samples == 1 {
		return
	}
	m.min = math.Min(m.min, y[0])
}

func (m *MinHeight) Value() float64 {
	if m.samples < 2 {
		return 0
	}
	return m.min
}

func (m *MinHeight) Reset() {
	m.min = math.Inf(1)
	m.samples = 0
}

type PeakCurvature struct {
	peak float64
}

func NewPeakCurvature() *PeakCurvature { return &PeakCurvature{} }

func (p *PeakCurvature) Name() string { return "peak_curvature" }

func (p *PeakCurvature) Observe(y ode.State, x float64) {
	p.peak = math.Max(p.peak, math.Abs(y[2]))
}

func (p *PeakCurvature) Value() float64 { return p.peak }
func (p *PeakCurvature) Reset()         { p.peak = 0 }

type MaxSlope struct {
	max     float64
	samples int
}

func NewMaxSlope() *MaxSlope { return &MaxSlope{} }

func (m *MaxSlope) Name() string { return "max_slope" }

func (m *MaxSlope) Observe(y ode.State, x float64) {
	if m.samples == 0 || y[1] > m.max {
		m.max = y[1]
	}
	m.samples++
}

func (m *MaxSlope) Value() float64 { return m.max }

func (m *MaxSlope) Reset() {
	m.max = 0
	m.samples = 0
}

type StepCount struct {
	n int
}

func NewStepCount() *StepCount { return &StepCount{} }

func (s *StepCount) Name() string                   { return "steps" }
func (s *StepCount) Observe(y ode.State, x float64) { s.n++ }
func (s *StepCount) Value() float64                 { return float64(s.n) }
func (s *StepCount) Reset()                         { s.n = 0 }
