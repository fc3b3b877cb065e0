package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Transport: "stdio",
			HTTPPort:  8080,
		},
		Runner: RunnerConfig{
			Entrypoint:      []string{"python3", "/main.py", "/eval.py"},
			HotswapEnv:      "EVAL_IMPLEMENTATION_ID",
			TimeoutSec:      30,
			SetupTimeoutSec: 300,
			Workers:         1,
		},
		Paths: PathsConfig{
			Workspace: "/workspace",
			Imps:      "/imps",
			Inputs:    "/inputs",
			Outputs:   "/outputs",
			Logs:      "/logs",
		},
		Engine: EngineConfig{
			Backend:  "local",
			Image:    "evalbox-sandbox",
			MemoryMB: 512,
		},
		Logging: LoggingConfig{
			Mode:  "production",
			Level: "info",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		cfg := validConfig()
		require.NoError(t, cfg.Validate())
	})

	t.Run("InvalidServerTransport", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Transport = "grpc"

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server.transport")
	})

	t.Run("EmptyEntrypoint", func(t *testing.T) {
		cfg := validConfig()
		cfg.Runner.Entrypoint = nil

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "runner.entrypoint")
	})

	t.Run("InvalidTimeout", func(t *testing.T) {
		cfg := validConfig()
		cfg.Runner.TimeoutSec = 0

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "runner.timeout_sec")
	})

	t.Run("InvalidSetupTimeout", func(t *testing.T) {
		cfg := validConfig()
		cfg.Runner.SetupTimeoutSec = 0

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "runner.setup_timeout_sec")
	})

	t.Run("InvalidWorkers", func(t *testing.T) {
		cfg := validConfig()
		cfg.Runner.Workers = -2

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "runner.workers")
	})

	t.Run("EmptyPath", func(t *testing.T) {
		cfg := validConfig()
		cfg.Paths.Outputs = ""

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "paths.outputs")
	})

	t.Run("AutoBackend", func(t *testing.T) {
		cfg := validConfig()
		cfg.Engine.Backend = "auto"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("UnsupportedBackend", func(t *testing.T) {
		cfg := validConfig()
		cfg.Engine.Backend = "kubernetes"

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported engine.backend")
	})

	t.Run("InvalidMemory", func(t *testing.T) {
		cfg := validConfig()
		cfg.Engine.MemoryMB = 0

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "engine.memory_mb")
	})
}

func TestGetTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Runner.TimeoutSec = 45
	assert.Equal(t, 45*time.Second, cfg.GetTimeout())
}
