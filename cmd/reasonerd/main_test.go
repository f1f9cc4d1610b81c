package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdcreasoner/internal/config"
)

func TestNewVectorRuntimeExactDisablesVectors(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.HDCStrategy = config.StrategyExact

	vector, err := newVectorRuntime(cfg)
	require.NoError(t, err)
	assert.Nil(t, vector)
}

func TestNewVectorRuntimeDenseBinary(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.HDCStrategy = config.StrategyDenseBinary
	cfg.Engine.VectorDimension = 256

	vector, err := newVectorRuntime(cfg)
	require.NoError(t, err)
	require.NotNil(t, vector)
}

func TestNewVectorRuntimeSparsePolynomial(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.HDCStrategy = config.StrategySparsePolynomial
	cfg.Engine.VectorDimension = 256

	vector, err := newVectorRuntime(cfg)
	require.NoError(t, err)
	require.NotNil(t, vector)
}

func TestLoadConfigDefaultsWithoutEnvOverride(t *testing.T) {
	t.Setenv("HDC_CONFIG_FILE", "")
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "hdcreasoner", cfg.Server.Name)
}
