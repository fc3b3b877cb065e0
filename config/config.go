package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Runner  RunnerConfig  `mapstructure:"runner"`
	Paths   PathsConfig   `mapstructure:"paths"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds MCP server configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
}

// RunnerConfig holds evaluation runner configuration
type RunnerConfig struct {
	// Entrypoint is the command prefix that evaluates one test case.
	// The runner appends the input path, the output path and the timeout
	// in seconds as trailing arguments.
	Entrypoint []string `mapstructure:"entrypoint"`
	// HotswapEnv is the environment variable carrying the implementation
	// identifier into the entry point process.
	HotswapEnv  string `mapstructure:"hotswap_env"`
	SetupScript string `mapstructure:"setup_script"`
	TimeoutSec  int    `mapstructure:"timeout_sec"`
	// SetupTimeoutSec bounds the setup script, which may install
	// dependencies and so gets a larger budget than a single test.
	SetupTimeoutSec int `mapstructure:"setup_timeout_sec"`
	Workers         int `mapstructure:"workers"`
}

// PathsConfig holds the directory contract for an evaluation run
type PathsConfig struct {
	Workspace string `mapstructure:"workspace"`
	Imps      string `mapstructure:"imps"`
	Inputs    string `mapstructure:"inputs"`
	Outputs   string `mapstructure:"outputs"`
	Logs      string `mapstructure:"logs"`
	HistoryDB string `mapstructure:"history_db"`
}

// EngineConfig holds sandbox engine configuration
type EngineConfig struct {
	Backend        string `mapstructure:"backend"`
	Image          string `mapstructure:"image"`
	Container      string `mapstructure:"container"`
	BuildContext   string `mapstructure:"build_context"`
	Dockerfile     string `mapstructure:"dockerfile"`
	MemoryMB       int    `mapstructure:"memory_mb"`
	NetworkEnabled bool   `mapstructure:"network_enabled"`
	ForceRebuild   bool   `mapstructure:"force_rebuild"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// New loads and validates the application configuration
func New() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	viper.SetDefault("server.transport", "stdio")
	viper.SetDefault("server.http_port", 8080)

	viper.SetDefault("runner.entrypoint", []string{"python3", "/main.py", "/eval.py"})
	viper.SetDefault("runner.hotswap_env", "EVAL_IMPLEMENTATION_ID")
	viper.SetDefault("runner.setup_script", "")
	viper.SetDefault("runner.timeout_sec", 30)
	viper.SetDefault("runner.setup_timeout_sec", 300)
	viper.SetDefault("runner.workers", 1)

	viper.SetDefault("paths.workspace", "/workspace")
	viper.SetDefault("paths.imps", "/imps")
	viper.SetDefault("paths.inputs", "/inputs")
	viper.SetDefault("paths.outputs", "/outputs")
	viper.SetDefault("paths.logs", "/logs")
	viper.SetDefault("paths.history_db", "")

	viper.SetDefault("engine.backend", "local")
	viper.SetDefault("engine.image", "evalbox-sandbox")
	viper.SetDefault("engine.container", "evalbox-sandbox")
	viper.SetDefault("engine.build_context", ".")
	viper.SetDefault("engine.dockerfile", "Dockerfile")
	viper.SetDefault("engine.memory_mb", 512)
	viper.SetDefault("engine.network_enabled", false)
	viper.SetDefault("engine.force_rebuild", false)

	viper.SetDefault("logging.mode", "production")
	viper.SetDefault("logging.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if len(c.Runner.Entrypoint) == 0 {
		return fmt.Errorf("runner.entrypoint must not be empty")
	}

	if c.Runner.TimeoutSec <= 0 {
		return fmt.Errorf("runner.timeout_sec must be positive, got: %d", c.Runner.TimeoutSec)
	}

	if c.Runner.SetupTimeoutSec <= 0 {
		return fmt.Errorf("runner.setup_timeout_sec must be positive, got: %d", c.Runner.SetupTimeoutSec)
	}

	if c.Runner.Workers <= 0 {
		return fmt.Errorf("runner.workers must be positive, got: %d", c.Runner.Workers)
	}

	for name, path := range map[string]string{
		"paths.workspace": c.Paths.Workspace,
		"paths.imps":      c.Paths.Imps,
		"paths.inputs":    c.Paths.Inputs,
		"paths.outputs":   c.Paths.Outputs,
		"paths.logs":      c.Paths.Logs,
	} {
		if path == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}

	supportedBackends := map[string]bool{
		"docker": true,
		"podman": true,
		"auto":   true,
		"local":  true,
	}

	if !supportedBackends[c.Engine.Backend] {
		return fmt.Errorf("unsupported engine.backend: %s", c.Engine.Backend)
	}

	if c.Engine.MemoryMB <= 0 {
		return fmt.Errorf("engine.memory_mb must be positive, got: %d", c.Engine.MemoryMB)
	}

	return nil
}

// GetTimeout returns the per-test execution timeout as a duration
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Runner.TimeoutSec) * time.Second
}
