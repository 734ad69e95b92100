package config

import "sort"

type Preset struct {
	Description string
	Apply       func(*Config)
}

// Presets cover the truncation lengths and drivers used when studying the
// problem.
var Presets = map[string]Preset{
	"default": {
		Description: "shooting on X=50",
		Apply:       func(c *Config) {},
	},
	"short": {
		Description: "X=1, too short; the truncation check flags it",
		Apply:       func(c *Config) { c.XMax = 1 },
	},
	"medium": {
		Description: "X=20",
		Apply:       func(c *Config) { c.XMax = 20 },
	},
	"far": {
		Description: "X=500",
		Apply:       func(c *Config) { c.XMax = 500; c.MaxXMax = 5000 },
	},
	"huge": {
		Description: "X=5000, no truncation check",
		Apply: func(c *Config) {
			c.XMax = 5000
			c.MaxXMax = 10000
			c.CheckTruncation = false
		},
	},
	"collocation": {
		Description: "trapezoidal collocation on X=50",
		Apply:       func(c *Config) { c.Method = "collocation" },
	},
	"auto": {
		Description: "start at X=1 and double until the truncation check passes",
		Apply: func(c *Config) {
			c.XMax = 1
			c.AutoExtend = true
		},
	},
}

// GetPreset returns the defaults with the named preset applied, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	p.Apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
