package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/isdmx/evalbox/config"
	"github.com/isdmx/evalbox/runner"
)

// MCPServer represents the MCP server
type MCPServer struct {
	config     *config.Config
	logger     *zap.Logger
	evalRunner *runner.Runner
	mcpServer  *server.MCPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, evalRunner *runner.Runner) (*MCPServer, error) {
	s := &MCPServer{
		config:     cfg,
		logger:     logger,
		evalRunner: evalRunner,
	}

	// Log configuration parameters on startup
	logger.Info("configuration loaded",
		zap.String("server.transport", s.config.Server.Transport),
		zap.Int("server.http_port", s.config.Server.HTTPPort),
		zap.String("engine.backend", s.config.Engine.Backend),
		zap.Int("runner.timeout_sec", s.config.Runner.TimeoutSec),
		zap.Int("runner.workers", s.config.Runner.Workers),
		zap.String("paths.inputs", s.config.Paths.Inputs),
		zap.String("paths.outputs", s.config.Paths.Outputs),
		zap.String("paths.logs", s.config.Paths.Logs),
	)

	// Create the MCP server
	s.mcpServer = server.NewMCPServer("evalbox-runner", "A sandboxed batch evaluation server")

	// Register the tools
	s.registerEvaluateTool()
	s.registerListResultsTool()

	return s, nil
}

// registerEvaluateTool registers the evaluate tool
func (s *MCPServer) registerEvaluateTool() {
	tool := mcp.Tool{
		Name:        "evaluate",
		Description: "Run an implementation against every test case and report per-test outcomes",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"implementation_id": map[string]any{
					"type":        "string",
					"description": "Identifier of the implementation to evaluate",
				},
			},
			Required: []string{"implementation_id"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleEvaluate)
}

// registerListResultsTool registers the list_results tool
func (s *MCPServer) registerListResultsTool() {
	tool := mcp.Tool{
		Name:        "list_results",
		Description: "Return the recorded report of a previous evaluation run",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"implementation_id": map[string]any{
					"type":        "string",
					"description": "Identifier of the evaluated implementation",
				},
			},
			Required: []string{"implementation_id"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleListResults)
}

// handleEvaluate handles the evaluate tool
func (s *MCPServer) handleEvaluate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	implID, err := request.RequireString("implementation_id")
	if err != nil {
		return nil, fmt.Errorf("implementation_id parameter is required: %w", err)
	}

	s.logger.Info("evaluation requested", zap.String("implementation", implID))

	report, err := s.evalRunner.Run(ctx, implID)
	if err != nil {
		s.logger.Error("evaluation run failed",
			zap.Error(err),
			zap.String("implementation", implID))
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf("Evaluation failed: %v", err),
				},
			},
			IsError: true,
		}, nil
	}

	s.logger.Info("evaluation completed",
		zap.String("implementation", implID),
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", report.Failed()))

	return reportResult(report)
}

// handleListResults handles the list_results tool
func (s *MCPServer) handleListResults(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	implID, err := request.RequireString("implementation_id")
	if err != nil {
		return nil, fmt.Errorf("implementation_id parameter is required: %w", err)
	}

	reportPath := filepath.Join(s.config.Paths.Outputs, implID, runner.ReportFileName)
	report, err := runner.LoadReport(reportPath)
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf("No report available for %s: %v", implID, err),
				},
			},
			IsError: true,
		}, nil
	}

	return reportResult(report)
}

// reportResult renders a run report as a JSON tool result
func reportResult(report *runner.Report) (*mcp.CallToolResult, error) {
	summary := struct {
		ImplementationID string              `json:"implementation_id"`
		Succeeded        int                 `json:"succeeded"`
		Failed           int                 `json:"failed"`
		Results          []runner.TestResult `json:"results"`
	}{
		ImplementationID: report.ImplementationID,
		Succeeded:        report.Succeeded(),
		Failed:           report.Failed(),
		Results:          report.Results,
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: string(data),
			},
		},
	}, nil
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	return httpServer.Start(fmt.Sprintf(":%d", port))
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
