package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fixedEnv(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	cfg := Load(fixedEnv(nil))
	assert.Equal(t, Default(), cfg)
}

func TestLoadAppliesOverrides(t *testing.T) {
	cfg := Load(fixedEnv(map[string]string{
		"JEEVES_LISTEN_ADDR":        ":9090",
		"JEEVES_ENV":                "development",
		"JEEVES_MAX_PARALLEL_TASKS": "7",
		"JEEVES_PROVIDER_TIMEOUT":   "5m",
	}))
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 7, cfg.MaxParallelTasks)
	assert.Equal(t, "5m0s", cfg.ProviderTimeout.String())
}

func TestLoadIgnoresMalformedIntegerOverride(t *testing.T) {
	cfg := Load(fixedEnv(map[string]string{"JEEVES_MAX_PARALLEL_TASKS": "not-a-number"}))
	assert.Equal(t, Default().MaxParallelTasks, cfg.MaxParallelTasks)
}
