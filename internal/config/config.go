// Package config resolves jeeves's runtime configuration: environment
// variables first, with defaults filled in afterward, following the
// teacher's layered-config approach (env overrides a conservative default
// rather than requiring a config file for every deployment).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is jeeves's resolved runtime configuration.
type Config struct {
	// ListenAddr is the HTTP server's bind address, e.g. ":8787".
	ListenAddr string
	// Environment gates CORS/dev-only behavior: "development" or "production".
	Environment string
	// DataDir overrides the platform-default data root (JEEVES_DATA_DIR).
	DataDir string
	// WorkflowsDir is scanned for *.yaml workflow documents at startup.
	WorkflowsDir string
	// MaxParallelTasks caps the task scheduler's ready-set size.
	MaxParallelTasks int
	// ProviderTimeout bounds a single provider subprocess invocation.
	ProviderTimeout time.Duration
	// ClaudeCodeBinary/CodexBinary override the resolved provider binaries.
	ClaudeCodeBinary string
	CodexBinary      string
	LogLevel         string
}

// Default returns jeeves's conservative baseline configuration.
func Default() Config {
	return Config{
		ListenAddr:       ":8787",
		Environment:      "production",
		WorkflowsDir:     "workflows",
		MaxParallelTasks: 3,
		ProviderTimeout:  20 * time.Minute,
		ClaudeCodeBinary: "claude",
		CodexBinary:      "codex",
		LogLevel:         "info",
	}
}

// Load resolves Config by starting from Default and applying JEEVES_*
// environment overrides. It never fails — a malformed or non-positive
// integer/duration override is ignored without a warning and the default
// is kept.
func Load(env func(string) (string, bool)) Config {
	if env == nil {
		env = os.LookupEnv
	}
	cfg := Default()

	if v, ok := lookup(env, "JEEVES_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := lookup(env, "JEEVES_ENV"); ok {
		cfg.Environment = v
	}
	if v, ok := lookup(env, "JEEVES_DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := lookup(env, "JEEVES_WORKFLOWS_DIR"); ok {
		cfg.WorkflowsDir = v
	}
	if v, ok := lookup(env, "JEEVES_MAX_PARALLEL_TASKS"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxParallelTasks = n
		}
	}
	if v, ok := lookup(env, "JEEVES_PROVIDER_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ProviderTimeout = d
		}
	}
	if v, ok := lookup(env, "JEEVES_CLAUDE_CODE_BINARY"); ok {
		cfg.ClaudeCodeBinary = v
	}
	if v, ok := lookup(env, "JEEVES_CODEX_BINARY"); ok {
		cfg.CodexBinary = v
	}
	if v, ok := lookup(env, "JEEVES_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	return cfg
}

func lookup(env func(string) (string, bool), key string) (string, bool) {
	v, ok := env(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
