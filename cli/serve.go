package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/isdmx/evalbox/config"
	"github.com/isdmx/evalbox/logger"
	"github.com/isdmx/evalbox/mcpserver"
	"github.com/isdmx/evalbox/runner"
	"github.com/isdmx/evalbox/sandbox"
)

// newServeCmd creates the serve command. The server is a long-lived
// process, so its dependency graph and lifecycle are managed by fx.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Expose the evaluation runner over MCP",
		RunE: func(_ *cobra.Command, _ []string) error {
			app := fx.New(
				// Provide dependencies
				fx.Provide(
					// Config
					config.New,

					// Logger with configuration
					logger.NewFromConfig,

					// Sandbox backend based on config
					sandbox.NewSandbox,

					// Evaluation runner
					runner.New,

					// MCP Server
					mcpserver.New,
				),

				// Bring the sandbox up before the transport accepts requests
				fx.Invoke(
					func(lc fx.Lifecycle, box sandbox.Sandbox) {
						lc.Append(fx.Hook{OnStart: box.Prepare})
					},
				),

				// Start the appropriate transport based on config
				fx.Invoke(
					func(cfg *config.Config, server *mcpserver.MCPServer) {
						switch cfg.Server.Transport {
						case "stdio":
							go func() {
								if err := server.ServeStdio(); err != nil {
									panic(err)
								}
							}()
						case "http":
							go func() {
								if err := server.ServeHTTP(); err != nil {
									panic(err)
								}
							}()
						default:
							panic("unsupported transport: " + cfg.Server.Transport)
						}
					},
				),

				// Use the application logger for fx logs
				fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
					return &fxevent.ZapLogger{Logger: log}
				}),
			)

			app.Run()
			return nil
		},
	}
}
