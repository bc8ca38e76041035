package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadUsesEnvironmentOverrides(t *testing.T) {
	t.Setenv("ENGINE_CLIP_BOUND", "0.25")
	t.Setenv("ENGINE_MAX_FILL_GAP", "5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.25, cfg.ClipBound)
	assert.Equal(t, 5, cfg.MaxFillGap)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched values keep their defaults.
	assert.Equal(t, 252, cfg.TradingDaysPerYear)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("ENGINE_CLIP_BOUND", "-1")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateChecks(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Defaults)
	}{
		{"negative fill gap", func(d *Defaults) { d.MaxFillGap = -1 }},
		{"min observations too low", func(d *Defaults) { d.MinObservations = 1 }},
		{"zero weight tolerance", func(d *Defaults) { d.WeightTolerance = 0 }},
		{"zero trading days", func(d *Defaults) { d.TradingDaysPerYear = 0 }},
		{"zero iteration cap", func(d *Defaults) { d.IRRMaxIterations = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
