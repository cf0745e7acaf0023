// Package config loads solver and logging settings from defaults, an optional
// YAML file and BREADBOARD_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/edp1096/toy-breadboard/internal/consts"
)

const envPrefix = "BREADBOARD_"

type Config struct {
	Solver Solver `yaml:"solver"`
	Log    Log    `yaml:"log"`
}

type Solver struct {
	MaxPasses int     `yaml:"max_passes" validate:"min=1,max=1000"`
	Tolerance float64 `yaml:"tolerance" validate:"gt=0"`
	Backend   string  `yaml:"backend" validate:"oneof=dense sparse"`
}

type Log struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

func Default() *Config {
	return &Config{
		Solver: Solver{
			MaxPasses: consts.MAX_PASSES,
			Tolerance: consts.VOLT_TOL,
			Backend:   "dense",
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load layers path (skipped when empty) and the environment over the
// defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnvironmentVariables(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(content, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnvironmentVariables() error {
	if v, ok := lookupEnv("MAX_PASSES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_PASSES: %w", envPrefix, err)
		}
		c.Solver.MaxPasses = n
	}
	if v, ok := lookupEnv("TOLERANCE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sTOLERANCE: %w", envPrefix, err)
		}
		c.Solver.Tolerance = f
	}
	if v, ok := lookupEnv("BACKEND"); ok {
		c.Solver.Backend = strings.ToLower(v)
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := lookupEnv("LOG_DEVELOPMENT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sLOG_DEVELOPMENT: %w", envPrefix, err)
		}
		c.Log.Development = b
	}
	return nil
}

func lookupEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	return fmt.Errorf("invalid config: %w", err)
}
