package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/contactline/internal/ode"
)

var registry = map[string]func() ode.Integrator{
	"euler": func() ode.Integrator { return NewEuler() },
	"rk4":   func() ode.Integrator { return NewRK4() },
	"rk45":  func() ode.Integrator { return NewRK45() },
}

// New returns a fresh integrator instance by name.
func New(name string) (ode.Integrator, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
