package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/san-kum/contactline/internal/bvp"
	"github.com/san-kum/contactline/internal/config"
	"github.com/san-kum/contactline/internal/ode"
)

func TestPrintWarnings(t *testing.T) {
	var buf bytes.Buffer
	printWarnings(&buf, []string{"TruncationInsufficient: shooting solve failed (c=0.01, X=1)", "second"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], "warning:") || !strings.Contains(lines[0], "TruncationInsufficient") {
		t.Errorf("unexpected line %q", lines[0])
	}

	buf.Reset()
	printWarnings(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("no warnings should print nothing, got %q", buf.String())
	}
}

func TestFailureHint(t *testing.T) {
	exhausted := &bvp.SolveError{Kind: bvp.KindNonConvergence, Method: bvp.MethodShooting, Err: fmt.Errorf("propagate: %w", ode.ErrMaxSteps)}

	tests := []struct {
		name       string
		method     string
		integrator string
		err        error
		want       bool
	}{
		{"euler out of steps", "shooting", "euler", exhausted, true},
		{"rk45 out of steps", "shooting", "rk45", exhausted, false},
		{"collocation", "collocation", "euler", exhausted, false},
		{"euler singular", "shooting", "euler", bvp.ErrSingularEvaluation, false},
		{"success", "shooting", "euler", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Method = tt.method
			cfg.Integrator = tt.integrator

			got := failureHint(cfg, tt.err)
			if (got != "") != tt.want {
				t.Errorf("failureHint = %q, want hint: %v", got, tt.want)
			}
			if tt.want && !strings.Contains(got, "--step-tol") {
				t.Errorf("hint should name the flag: %q", got)
			}
		})
	}
}
