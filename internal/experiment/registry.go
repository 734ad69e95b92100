package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/contactline/internal/config"
)

// Param applies one swept value to a configuration.
type Param func(cfg *config.Config, v float64)

type Registry struct {
	params map[string]Param
}

func NewRegistry() *Registry {
	r := &Registry{params: make(map[string]Param)}

	r.params["x_max"] = func(c *config.Config, v float64) {
		c.XMax = v
		if c.MaxXMax < v {
			c.MaxXMax = v
		}
	}
	r.params["nodes"] = func(c *config.Config, v float64) {
		c.Method = "collocation"
		c.Nodes = int(v)
		if c.MaxNodes < c.Nodes {
			c.MaxNodes = c.Nodes
		}
	}
	r.params["ode_constant"] = func(c *config.Config, v float64) { c.Constant = v }
	r.params["tol"] = func(c *config.Config, v float64) { c.Tol = v }
	r.params["floor"] = func(c *config.Config, v float64) { c.Floor = v }

	return r
}

func (r *Registry) Get(name string) (Param, error) {
	fn, ok := r.params[name]
	if !ok {
		return nil, fmt.Errorf("unknown sweep parameter: %s", name)
	}
	return fn, nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.params))
	for name := range r.params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
