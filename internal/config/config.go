package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/contactline/internal/bvp"
	"github.com/san-kum/contactline/internal/contactline"
	"github.com/san-kum/contactline/internal/logging"
	"github.com/san-kum/contactline/internal/optim"
)

const (
	DefaultConstant    = 0.01
	DefaultXMax        = 50.0
	DefaultTol         = 1e-6
	DefaultMaxIter     = 100
	DefaultStepTol     = 1e-9
	DefaultInitialStep = 1e-8
	DefaultMaxSteps    = 200000
	DefaultFloor       = 1e-6
	DefaultNodes       = 300
	DefaultMaxNodes    = 5000
	DefaultTruncTol    = 2e-3
	DefaultMaxXMax     = 5000.0
	DefaultSamples     = 1000
	DefaultDataDir     = "./runs"
)

type Config struct {
	Constant        float64        `yaml:"ode_constant" env:"CONTACTLINE_ODE_CONSTANT" validate:"gt=0"`
	XMax            float64        `yaml:"x_max" env:"CONTACTLINE_X_MAX" validate:"gt=0"`
	Tol             float64        `yaml:"tol" env:"CONTACTLINE_TOL" validate:"gt=0"`
	MaxIter         int            `yaml:"max_iter" env:"CONTACTLINE_MAX_ITER" validate:"min=1"`
	Method          string         `yaml:"method" env:"CONTACTLINE_METHOD" validate:"oneof=shooting collocation"`
	Integrator      string         `yaml:"integrator" env:"CONTACTLINE_INTEGRATOR" validate:"oneof=euler rk4 rk45"`
	StepTol         float64        `yaml:"step_tol" env:"CONTACTLINE_STEP_TOL" validate:"gt=0"`
	InitialStep     float64        `yaml:"initial_step" env:"CONTACTLINE_INITIAL_STEP" validate:"gt=0"`
	MaxSteps        int            `yaml:"max_steps" env:"CONTACTLINE_MAX_STEPS" validate:"min=1"`
	Guard           bool           `yaml:"guard" env:"CONTACTLINE_GUARD"`
	Floor           float64        `yaml:"floor" env:"CONTACTLINE_FLOOR" validate:"gt=0"`
	BracketLow      float64        `yaml:"bracket_low" env:"CONTACTLINE_BRACKET_LOW"`
	BracketHigh     float64        `yaml:"bracket_high" env:"CONTACTLINE_BRACKET_HIGH" validate:"gtfield=BracketLow"`
	Nodes           int            `yaml:"nodes" env:"CONTACTLINE_NODES" validate:"min=3"`
	MaxNodes        int            `yaml:"max_nodes" env:"CONTACTLINE_MAX_NODES" validate:"gtefield=Nodes"`
	TruncTol        float64        `yaml:"trunc_tol" env:"CONTACTLINE_TRUNC_TOL" validate:"gt=0"`
	CheckTruncation bool           `yaml:"check_truncation" env:"CONTACTLINE_CHECK_TRUNCATION"`
	AutoExtend      bool           `yaml:"auto_extend" env:"CONTACTLINE_AUTO_EXTEND"`
	MaxXMax         float64        `yaml:"max_x_max" env:"CONTACTLINE_MAX_X_MAX" validate:"gt=0"`
	Samples         int            `yaml:"samples" env:"CONTACTLINE_SAMPLES" validate:"min=2"`
	DataDir         string         `yaml:"data_dir" env:"CONTACTLINE_DATA_DIR" validate:"required"`
	Log             logging.Config `yaml:"log" env:""`
}

func DefaultConfig() *Config {
	return &Config{
		Constant:        DefaultConstant,
		XMax:            DefaultXMax,
		Tol:             DefaultTol,
		MaxIter:         DefaultMaxIter,
		Method:          string(bvp.MethodShooting),
		Integrator:      "rk45",
		StepTol:         DefaultStepTol,
		InitialStep:     DefaultInitialStep,
		MaxSteps:        DefaultMaxSteps,
		Guard:           true,
		Floor:           DefaultFloor,
		BracketLow:      0,
		BracketHigh:     1,
		Nodes:           DefaultNodes,
		MaxNodes:        DefaultMaxNodes,
		TruncTol:        DefaultTruncTol,
		CheckTruncation: true,
		AutoExtend:      false,
		MaxXMax:         DefaultMaxXMax,
		Samples:         DefaultSamples,
		DataDir:         DefaultDataDir,
		Log:             logging.DefaultConfig(),
	}
}

func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	return LoadOver(DefaultConfig(), path)
}

// LoadOver reads a YAML file over base, so keys missing from the file keep
// the values of base.
func LoadOver(base *Config, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides fields from CONTACTLINE_* variables. Unset variables
// leave fields untouched.
func (c *Config) ApplyEnv() error {
	if err := envdecode.Decode(c); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("decode env: %w", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(autoExtendLimit, Config{})
	return v
}

// autoExtendLimit bounds max_x_max below by x_max only when the domain may
// grow.
func autoExtendLimit(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)
	if c.AutoExtend && c.MaxXMax < c.XMax {
		sl.ReportError(c.MaxXMax, "MaxXMax", "MaxXMax", "gtefield", "XMax")
	}
}

// ValidationErrors lists every failed field.
type ValidationErrors struct {
	Errors []string
}

func (ve ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "no validation errors"
	}
	return strings.Join(ve.Errors, "; ")
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			out := ValidationErrors{}
			for _, e := range ve {
				out.Errors = append(out.Errors, fmt.Sprintf("%s %s", e.Namespace(), e.ActualTag()))
			}
			return out
		}
		return err
	}
	return nil
}

func (c *Config) Problem() *contactline.Problem {
	p := contactline.New(c.Constant)
	p.Guard = contactline.Guard{Enabled: c.Guard, Floor: c.Floor}
	return p
}

func (c *Config) SolverOptions() bvp.Options {
	return bvp.Options{
		Method:          bvp.Method(c.Method),
		Integrator:      c.Integrator,
		XMax:            c.XMax,
		Tol:             c.Tol,
		MaxIter:         c.MaxIter,
		StepTol:         c.StepTol,
		InitialStep:     c.InitialStep,
		MaxSteps:        c.MaxSteps,
		Bracket:         optim.Bracket{Low: c.BracketLow, High: c.BracketHigh},
		Nodes:           c.Nodes,
		MaxNodes:        c.MaxNodes,
		CheckTruncation: c.CheckTruncation,
		TruncTol:        c.TruncTol,
		AutoExtend:      c.AutoExtend,
		MaxXMax:         c.MaxXMax,
	}
}
