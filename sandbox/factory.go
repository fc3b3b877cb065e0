package sandbox

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/isdmx/evalbox/config"
)

// NewSandbox creates an appropriate sandbox based on the configuration
func NewSandbox(logger *zap.Logger, cfg *config.Config) (Sandbox, error) {
	switch cfg.Engine.Backend {
	case "docker", "podman", "auto":
		return NewContainerSandbox(logger, &Config{
			Backend:        cfg.Engine.Backend,
			Image:          cfg.Engine.Image,
			Container:      cfg.Engine.Container,
			BuildContext:   cfg.Engine.BuildContext,
			Dockerfile:     cfg.Engine.Dockerfile,
			ImpsDir:        cfg.Paths.Imps,
			InputsDir:      cfg.Paths.Inputs,
			OutputsDir:     cfg.Paths.Outputs,
			LogsDir:        cfg.Paths.Logs,
			MemoryMB:       cfg.Engine.MemoryMB,
			NetworkEnabled: cfg.Engine.NetworkEnabled,
			ForceRebuild:   cfg.Engine.ForceRebuild,
		}), nil
	case "local":
		return NewLocalSandbox(logger), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Engine.Backend)
	}
}
