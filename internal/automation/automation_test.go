package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/san-kum/contactline/internal/config"
	"github.com/san-kum/contactline/internal/experiment"
	"github.com/san-kum/contactline/internal/storage"
)

const scenarioYAML = `name: domain
description: truncation study
steps:
  - name: short
    params:
      x_max: 20
  - name: colloc
    method: collocation
    params:
      x_max: 20
      nodes: 200
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "domain" || len(sc.Steps) != 2 {
		t.Fatalf("unexpected scenario %+v", sc)
	}
	if sc.Steps[1].Method != "collocation" || sc.Steps[1].Params["nodes"] != 200 {
		t.Errorf("unexpected step %+v", sc.Steps[1])
	}
}

func TestLoadScenarioEmpty(t *testing.T) {
	if _, err := LoadScenario(writeScenario(t, "name: empty\n")); err == nil {
		t.Error("expected error for a scenario without steps")
	}
}

func TestConfigure(t *testing.T) {
	base := config.DefaultConfig()
	base.DataDir = "/tmp/runs"
	reg := experiment.NewRegistry()

	cfg, err := Step{Method: "collocation", Params: map[string]float64{"x_max": 500}}.Configure(base, reg)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Method != "collocation" || cfg.XMax != 500 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if base.XMax != config.DefaultXMax {
		t.Error("base config was modified")
	}

	if _, err := (Step{Params: map[string]float64{"bogus": 1}}).Configure(base, reg); err == nil {
		t.Error("expected error for unknown parameter")
	}
	if _, err := (Step{Preset: "nope"}).Configure(base, reg); err == nil {
		t.Error("expected error for unknown preset")
	}
	if _, err := (Step{Integrator: "verlet"}).Configure(base, reg); err == nil {
		t.Error("expected validation error for unknown integrator")
	}
}

func TestRunScenario(t *testing.T) {
	base := config.DefaultConfig()
	base.CheckTruncation = false
	store := storage.New(t.TempDir())

	sc := &Scenario{Name: "short", Steps: []Step{
		{Name: "shoot", Params: map[string]float64{"x_max": 10}},
		{Name: "colloc", Method: "collocation", Params: map[string]float64{"x_max": 10, "nodes": 100}},
	}}
	out, err := RunScenario(context.Background(), sc, base, experiment.NewRegistry(), store, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(out))
	}
	for _, o := range out {
		if o.Err != nil {
			t.Errorf("%s: %v", o.Step, o.Err)
			continue
		}
		if o.RunID == "" {
			t.Errorf("%s: run not saved", o.Step)
		}
	}

	runs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 stored runs, got %d", len(runs))
	}
}
