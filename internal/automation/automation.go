package automation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/contactline/internal/bvp"
	"github.com/san-kum/contactline/internal/config"
	"github.com/san-kum/contactline/internal/experiment"
	"github.com/san-kum/contactline/internal/storage"
)

// Scenario is a scripted sequence of solves read from YAML.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step is one solve. Preset replaces the base configuration; Method,
// Integrator and Params are applied on top of it.
type Step struct {
	Name       string             `yaml:"name"`
	Preset     string             `yaml:"preset"`
	Method     string             `yaml:"method"`
	Integrator string             `yaml:"integrator"`
	Params     map[string]float64 `yaml:"params"`
}

// Outcome records a step. A failed solve keeps its error and does not stop
// the scenario.
type Outcome struct {
	Step     string
	RunID    string
	Solution *bvp.Solution
	Err      error
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// Configure builds the configuration of one step over base.
func (st Step) Configure(base *config.Config, reg *experiment.Registry) (*config.Config, error) {
	cfg := base.Clone()
	if st.Preset != "" {
		p := config.GetPreset(st.Preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s", st.Preset)
		}
		p.DataDir, p.Log = base.DataDir, base.Log
		cfg = p
	}
	if st.Method != "" {
		cfg.Method = st.Method
	}
	if st.Integrator != "" {
		cfg.Integrator = st.Integrator
	}

	names := make([]string, 0, len(st.Params))
	for k := range st.Params {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		apply, err := reg.Get(k)
		if err != nil {
			return nil, err
		}
		apply(cfg, st.Params[k])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunScenario executes the steps in order and saves every accepted solution
// to store when it is not nil. Configuration errors abort; solve errors are
// recorded in the outcome.
func RunScenario(ctx context.Context, scenario *Scenario, base *config.Config, reg *experiment.Registry, store *storage.Store, log zerolog.Logger) ([]Outcome, error) {
	results := make([]Outcome, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step %d", i+1)
		}
		log.Info().Str("scenario", scenario.Name).Msgf("running %s (%d/%d)", name, i+1, len(scenario.Steps))

		cfg, err := step.Configure(base, reg)
		if err != nil {
			return results, fmt.Errorf("%s: %w", name, err)
		}

		exp := experiment.New(cfg, log.With().Str("step", name).Logger())
		sol, err := exp.Run(ctx)
		out := Outcome{Step: name, Solution: sol, Err: err}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return append(results, out), err
			}
			log.Warn().Err(err).Str("step", name).Msg("step failed")
		} else if store != nil {
			id, err := store.Save(sol, exp.Info())
			if err != nil {
				return append(results, out), fmt.Errorf("%s: save: %w", name, err)
			}
			out.RunID = id
		}
		results = append(results, out)
	}

	return results, nil
}
