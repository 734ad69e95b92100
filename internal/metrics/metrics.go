package metrics

import (
	"github.com/san-kum/contactline/internal/ode"
)

// Metric accumulates a scalar over the accepted steps of a propagation.
type Metric interface {
	Name() string
	Observe(y ode.State, x float64)
	Value() float64
	Reset()
}

// Collector feeds every accepted step to a set of metrics. It implements
// ode.Observer.
type Collector struct {
	metrics []Metric
}

func NewCollector(ms ...Metric) *Collector {
	return &Collector{metrics: ms}
}

func (c *Collector) Add(m Metric) { c.metrics = append(c.metrics, m) }

func (c *Collector) OnStep(y ode.State, x float64) error {
	for _, m := range c.metrics {
		m.Observe(y, x)
	}
	return nil
}

// Values returns the current value of every metric keyed by name.
func (c *Collector) Values() map[string]float64 {
	out := make(map[string]float64, len(c.metrics))
	for _, m := range c.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (c *Collector) Reset() {
	for _, m := range c.metrics {
		m.Reset()
	}
}

// Default returns the metrics recorded for every shooting attempt.
func Default() []Metric {
	return []Metric{
		NewMinHeight(),
		NewPeakCurvature(),
		NewMaxSlope(),
		NewStepCount(),
	}
}
