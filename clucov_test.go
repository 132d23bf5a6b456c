package clucov

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MahalanobisCutoff = 25
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 20, cfg.MaxIterations)
	assert.Equal(t, 100, cfg.Planes)
	assert.True(t, math.IsNaN(cfg.MahalanobisCutoff), "cutoff must be chosen by the caller")
	assert.Equal(t, 0.1, cfg.SplitThreshold)
	assert.Equal(t, 0.2, cfg.MergeThreshold)
	assert.Equal(t, 10, cfg.MinMembers)
	assert.Equal(t, 100, cfg.MaxClusters)
	assert.Equal(t, 0, cfg.FewChanges)
	assert.IsType(t, EuclideanMetric{}, cfg.Metric)
	assert.Equal(t, 0, cfg.Workers)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unset cutoff", func(c *Config) { c.MahalanobisCutoff = math.NaN() }},
		{"negative cutoff", func(c *Config) { c.MahalanobisCutoff = -1 }},
		{"negative MaxIterations", func(c *Config) { c.MaxIterations = -1 }},
		{"negative Planes", func(c *Config) { c.Planes = -5 }},
		{"negative SplitThreshold", func(c *Config) { c.SplitThreshold = -0.1 }},
		{"NaN MergeThreshold", func(c *Config) { c.MergeThreshold = math.NaN() }},
		{"MinMembers < 2", func(c *Config) { c.MinMembers = 1 }},
		{"negative MaxClusters", func(c *Config) { c.MaxClusters = -3 }},
		{"negative FewChanges", func(c *Config) { c.FewChanges = -1 }},
		{"negative Workers", func(c *Config) { c.Workers = -2 }},
	}

	ds, err := NewDataset([][]float64{{1, 2}, {3, 4}}, nil)
	require.NoError(t, err)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := New(ds, cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestConfigZeroCutoffIsValid(t *testing.T) {
	ds, err := NewDataset([][]float64{{1, 2}, {3, 4}}, nil)
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.MahalanobisCutoff = 0
	_, err = New(ds, cfg)
	assert.NoError(t, err)
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	applyDefaults(&cfg)
	assert.Equal(t, 20, cfg.MaxIterations)
	assert.Equal(t, 100, cfg.Planes)
	assert.Equal(t, 10, cfg.MinMembers)
	assert.Equal(t, 100, cfg.MaxClusters)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
	assert.NotNil(t, cfg.Metric)
	assert.Zero(t, cfg.SplitThreshold, "zero thresholds are meaningful")
}

func TestFitEmptyData(t *testing.T) {
	result, err := Fit(context.Background(), nil, nil, Radius{R: 1}, testConfig())
	require.NoError(t, err)
	assert.Empty(t, result.Labels)
	assert.Empty(t, result.Clusters)
	assert.Nil(t, result.Overlap)
}

func TestFitEmptyDataStillValidatesConfig(t *testing.T) {
	_, err := Fit(context.Background(), nil, nil, Radius{R: 1}, DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestStopReasonString(t *testing.T) {
	assert.Equal(t, "converged", StopConverged.String())
	assert.Equal(t, "max_iterations", StopMaxIterations.String())
	assert.Equal(t, "too_few_clusters", StopTooFewClusters.String())
	assert.Equal(t, "StopReason(9)", StopReason(9).String())
}
