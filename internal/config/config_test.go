package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-breadboard/internal/config"
)

func TestDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Solver.MaxPasses)
	assert.Equal(t, 1e-3, cfg.Solver.Tolerance)
	assert.Equal(t, "dense", cfg.Solver.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solver.yaml")
	content := "solver:\n  max_passes: 25\n  backend: sparse\nlog:\n  level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("BREADBOARD_TOLERANCE", "1e-6")
	t.Setenv("BREADBOARD_LOG_LEVEL", "WARN")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Solver.MaxPasses)
	assert.Equal(t, "sparse", cfg.Solver.Backend)
	assert.Equal(t, 1e-6, cfg.Solver.Tolerance)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		errMsg string
	}{
		{
			name:   "zero passes",
			mutate: func(c *config.Config) { c.Solver.MaxPasses = 0 },
			errMsg: "MaxPasses",
		},
		{
			name:   "negative tolerance",
			mutate: func(c *config.Config) { c.Solver.Tolerance = -1 },
			errMsg: "Tolerance",
		},
		{
			name:   "unknown backend",
			mutate: func(c *config.Config) { c.Solver.Backend = "cuda" },
			errMsg: "Backend",
		},
		{
			name:   "unknown log level",
			mutate: func(c *config.Config) { c.Log.Level = "trace" },
			errMsg: "Level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestBadEnvironmentValue(t *testing.T) {
	t.Setenv("BREADBOARD_MAX_PASSES", "many")

	_, err := config.Load("")
	assert.Error(t, err)
}

func TestMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
